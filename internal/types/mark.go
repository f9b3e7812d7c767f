package types

import "github.com/moznion/go-optional"

// MarkKind distinguishes the two event families a marker can be bound to.
type MarkKind string

const (
	MarkKindPosition MarkKind = "position"
	MarkKindSignal   MarkKind = "signal"
)

// MarkShape is the glyph drawn for a marker.
type MarkShape string

const (
	MarkShapeCircle   MarkShape = "circle"
	MarkShapeTriangle MarkShape = "triangle"
	MarkShapeDiamond  MarkShape = "diamond"
)

// MarkColor is the display color of a marker.
type MarkColor string

const (
	MarkColorGreen  MarkColor = "green"
	MarkColorRed    MarkColor = "red"
	MarkColorBlue   MarkColor = "blue"
	MarkColorYellow MarkColor = "yellow"
	MarkColorGray   MarkColor = "gray"
)

// Mark is the visual description of one overlay marker: which event it is
// bound to, how it should be drawn, and the tooltip content shown on hover.
type Mark struct {
	// Key is the (kind, event-identity) pair; at most one live marker may
	// exist per key at any time.
	Key string
	// Kind is the event family the marker belongs to.
	Kind MarkKind
	// Symbol is the trading pair the underlying event was polled for.
	Symbol string
	Color  MarkColor
	Shape  MarkShape
	// Title is the short tooltip headline.
	Title string
	// Message is the tooltip body.
	Message string
	// Time is the event time in epoch milliseconds. Position marks carry the
	// poll time, signal marks the candle time.
	Time int64
	// Price is the event price the marker is anchored to.
	Price float64
	// Signal carries the source signal for signal marks.
	Signal optional.Option[Signal]
	// Position carries the source position for position marks.
	Position optional.Option[Position]
}
