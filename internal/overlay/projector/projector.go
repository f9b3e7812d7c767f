// Package projector reconciles the overlay marker set with the event store
// and the chart viewport. Each pass clears every marker and rebuilds the
// in-bounds set; event counts are small and polls infrequent, so wholesale
// rebuilding beats incremental diffing on simplicity.
package projector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/TheFahmi/binance-trading-bot/internal/logger"
	"github.com/TheFahmi/binance-trading-bot/internal/overlay/coords"
	"github.com/TheFahmi/binance-trading-bot/internal/overlay/marker"
	"github.com/TheFahmi/binance-trading-bot/internal/overlay/store"
	"github.com/TheFahmi/binance-trading-bot/internal/overlay/viewport"
	"github.com/TheFahmi/binance-trading-bot/internal/types"
	"github.com/TheFahmi/binance-trading-bot/pkg/errors"
	"github.com/moznion/go-optional"
	"go.uber.org/zap"
)

// Default retry policy for a viewport that is not ready yet. The original
// dashboard retried forever; a bound keeps a widget that never initializes
// from pinning a goroutine, surfacing "overlay unavailable" instead.
const (
	DefaultRetryDelay  = 500 * time.Millisecond
	DefaultMaxAttempts = 20
	// DefaultEdgeOffset is how far position markers sit from the viewport's
	// trailing edge. Positions are price-localized only, so their X is
	// pinned rather than derived from time.
	DefaultEdgeOffset = 60.0
)

// Config tunes a Projector.
type Config struct {
	// RetryDelay is the fixed wait between not-ready attempts.
	RetryDelay time.Duration `yaml:"retry_delay"`
	// MaxAttempts bounds the not-ready retry loop.
	MaxAttempts int `yaml:"max_attempts"`
	// EdgeOffset is the pinned X distance from the right edge for position
	// markers.
	EdgeOffset float64 `yaml:"edge_offset"`
}

func (c Config) withDefaults() Config {
	if c.RetryDelay <= 0 {
		c.RetryDelay = DefaultRetryDelay
	}

	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}

	if c.EdgeOffset <= 0 {
		c.EdgeOffset = DefaultEdgeOffset
	}

	return c
}

// Projector owns the live marker set for one dashboard session. The
// scheduler serializes projection passes, but Clear arrives from its loop
// goroutine while a pass may be mid-flight on the worker, so the marker set
// is guarded by a mutex. A pass re-checks its source under that lock: once
// the source is disposed the pass places nothing, and a Clear issued during
// an in-flight pass wins by running after it.
type Projector struct {
	config   Config
	store    *store.EventStore
	surface  marker.Surface
	tooltips *marker.Tooltips
	log      *logger.Logger

	// onUnavailable is invoked once per pass that exhausts the retry budget,
	// so the UI can show "overlay unavailable" instead of silently missing
	// markers.
	onUnavailable func(error)

	mu      sync.Mutex
	handles map[string]marker.Handle
}

// Option customizes a Projector.
type Option func(*Projector)

// WithUnavailableCallback registers the terminal-failure callback.
func WithUnavailableCallback(fn func(error)) Option {
	return func(p *Projector) {
		p.onUnavailable = fn
	}
}

// New creates a Projector drawing onto the given surface from the given
// store.
func New(config Config, eventStore *store.EventStore, surface marker.Surface, log *logger.Logger, opts ...Option) *Projector {
	p := &Projector{
		config:        config.withDefaults(),
		store:         eventStore,
		surface:       surface,
		tooltips:      marker.NewTooltips(surface),
		log:           log,
		onUnavailable: nil,
		handles:       make(map[string]marker.Handle),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Project runs one reconciliation pass against the given viewport source.
// A not-ready viewport is retried with a fixed delay up to the configured
// bound; a disposed source ends the pass immediately (the selection moved
// on). The method is synchronous; the scheduler decides when to call it.
func (p *Projector) Project(ctx context.Context, source viewport.Source) error {
	view, err := p.awaitViewport(ctx, source)
	if err != nil {
		return err
	}

	return p.reconcile(source, view)
}

// awaitViewport polls the source until it yields a usable viewport, the
// retry budget runs out, the source is disposed, or the context ends.
func (p *Projector) awaitViewport(ctx context.Context, source viewport.Source) (types.Viewport, error) {
	for attempt := 1; ; attempt++ {
		if source.Disposed() {
			return types.Viewport{}, errors.New(errors.ErrCodeViewportDisposed, "viewport source disposed during projection")
		}

		if snapshot := source.Snapshot(); snapshot.IsSome() {
			return snapshot.Unwrap(), nil
		}

		if attempt >= p.config.MaxAttempts {
			err := errors.Newf(errors.ErrCodeOverlayUnavailable,
				"viewport not ready after %d attempts", attempt)
			p.log.Warn("giving up on overlay projection",
				zap.Int("attempts", attempt),
				zap.Duration("retry_delay", p.config.RetryDelay),
			)

			if p.onUnavailable != nil {
				p.onUnavailable(err)
			}

			return types.Viewport{}, err
		}

		select {
		case <-ctx.Done():
			return types.Viewport{}, ctx.Err()
		case <-time.After(p.config.RetryDelay):
		}
	}
}

// reconcile clears the marker set and rebuilds it from the latest snapshot.
// The whole rebuild holds the marker lock, and a source disposed by a
// selection switch aborts before placing anything.
func (p *Projector) reconcile(source viewport.Source, view types.Viewport) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if source.Disposed() {
		return errors.New(errors.ErrCodeViewportDisposed, "viewport source disposed during projection")
	}

	p.clearLocked()

	snapshot, ok := p.store.Latest()
	if !ok {
		return nil
	}

	for _, position := range snapshot.Positions {
		p.projectOne(func() error {
			return p.projectPosition(snapshot.Symbol, position, view)
		}, types.MarkKindPosition, position.Key())
	}

	for _, signal := range snapshot.Signals {
		p.projectOne(func() error {
			return p.projectSignal(snapshot.Symbol, signal, view)
		}, types.MarkKindSignal, signal.Key())
	}

	return nil
}

// projectOne isolates one event's projection: a panic or error in a single
// marker must not abort the rest of the batch.
func (p *Projector) projectOne(project func() error, kind types.MarkKind, key string) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("projection fault",
				zap.String("kind", string(kind)),
				zap.String("event", key),
				zap.Any("panic", r),
			)
		}
	}()

	if err := project(); err != nil {
		p.log.Error("projection fault",
			zap.String("kind", string(kind)),
			zap.String("event", key),
			zap.Error(err),
		)
	}
}

// projectPosition pins a position marker near the trailing edge at the
// height of its entry price. Out-of-range prices are a normal skip.
func (p *Projector) projectPosition(symbol string, position types.Position, view types.Viewport) error {
	entry := position.EntryPrice.InexactFloat64()

	y, err := coords.ToY(entry, view.Price, view.Rect.Height)
	if err != nil {
		if errors.HasCode(err, errors.ErrCodeOutOfBounds) {
			return nil
		}

		return err
	}

	x := view.Rect.Width - p.config.EdgeOffset
	if x < 0 {
		x = 0
	}

	mark := types.Mark{
		Key:      string(types.MarkKindPosition) + ":" + position.Key(),
		Kind:     types.MarkKindPosition,
		Symbol:   symbol,
		Color:    positionColor(position),
		Shape:    types.MarkShapeDiamond,
		Title:    fmt.Sprintf("%s position", position.Side),
		Message:  fmt.Sprintf("entry %s, size %s", position.EntryPrice.String(), position.Size.String()),
		Time:     position.Timestamp,
		Price:    entry,
		Signal:   optional.None[types.Signal](),
		Position: optional.Some(position),
	}

	return p.place(mark, x, y)
}

// projectSignal places a signal marker at its candle time and price. Either
// axis out of range is a normal skip.
func (p *Projector) projectSignal(symbol string, signal types.Signal, view types.Viewport) error {
	price := signal.Price.InexactFloat64()

	x, y, err := coords.Project(signal.Timestamp, price, view)
	if err != nil {
		if errors.HasCode(err, errors.ErrCodeOutOfBounds) {
			return nil
		}

		return err
	}

	mark := types.Mark{
		Key:      string(types.MarkKindSignal) + ":" + signal.Key(),
		Kind:     types.MarkKindSignal,
		Symbol:   symbol,
		Color:    signalColor(signal),
		Shape:    signalShape(signal),
		Title:    fmt.Sprintf("%s signal", signal.Type),
		Message:  fmt.Sprintf("price %s", signal.Price.String()),
		Time:     signal.Timestamp,
		Price:    price,
		Signal:   optional.Some(signal),
		Position: optional.None[types.Position](),
	}

	return p.place(mark, x, y)
}

// place creates the marker and wires its hover handlers to the shared
// tooltips. Duplicate keys inside one snapshot keep the first marker.
func (p *Projector) place(mark types.Mark, x, y float64) error {
	if _, exists := p.handles[mark.Key]; exists {
		return nil
	}

	handle, err := p.surface.CreateMarker(mark, x, y)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeProjectionFault, err, "creating marker %s", mark.Key)
	}

	hover := marker.HoverHandler{
		Enter: func(pointerX, pointerY float64) {
			p.tooltips.Show(mark, pointerX, pointerY)
		},
		Leave: func() {
			p.tooltips.Hide(mark.Kind)
		},
	}

	if err := p.surface.BindHover(handle, hover); err != nil {
		p.surface.RemoveMarker(handle)

		return errors.Wrapf(errors.ErrCodeProjectionFault, err, "binding hover for %s", mark.Key)
	}

	p.handles[mark.Key] = handle

	return nil
}

// Clear removes every marker and tooltip, used on selection change and
// teardown. Safe to call while a pass is in flight; it waits the pass out
// and then wipes whatever it placed.
func (p *Projector) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.clearLocked()
}

// clearLocked wipes the marker set. Caller holds the lock.
func (p *Projector) clearLocked() {
	p.surface.Clear()
	p.tooltips.HideAll()
	p.handles = make(map[string]marker.Handle)
}

// LiveMarkers returns the number of markers currently on the surface.
func (p *Projector) LiveMarkers() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.handles)
}

// Tooltips exposes the tooltip controller, for surfaces that route hover
// events themselves.
func (p *Projector) Tooltips() *marker.Tooltips {
	return p.tooltips
}

func positionColor(position types.Position) types.MarkColor {
	if position.IsLong() {
		return types.MarkColorGreen
	}

	return types.MarkColorRed
}

func signalColor(signal types.Signal) types.MarkColor {
	switch signal.Type {
	case types.SignalTypeLong:
		return types.MarkColorGreen
	case types.SignalTypeShort:
		return types.MarkColorRed
	default:
		return types.MarkColorGray
	}
}

func signalShape(signal types.Signal) types.MarkShape {
	if signal.IsEntry() {
		return types.MarkShapeTriangle
	}

	return types.MarkShapeCircle
}
