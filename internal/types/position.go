package types

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// PositionSide is the direction of an open position as reported by the bot.
type PositionSide string

const (
	PositionSideLong  PositionSide = "LONG"
	PositionSideShort PositionSide = "SHORT"
)

// Position is an open position snapshot for the active symbol. Snapshots are
// replaced wholesale on every poll; there is no per-position identity diffing.
type Position struct {
	// Side is the direction of the position.
	Side PositionSide `json:"side" yaml:"side"`
	// EntryPrice is the average entry price.
	EntryPrice decimal.Decimal `json:"entry_price" yaml:"entry_price"`
	// Size is the absolute position size in base units.
	Size decimal.Decimal `json:"size" yaml:"size"`
	// PnL is the current unrealized profit or loss in quote units.
	PnL decimal.Decimal `json:"pnl" yaml:"pnl"`
	// Timestamp is the time the snapshot was taken, in epoch milliseconds.
	Timestamp int64 `json:"timestamp" yaml:"timestamp"`
}

// Key derives the marker identity of the position. Positions carry no id on
// the wire, so side plus entry price stands in for one within a snapshot.
func (p Position) Key() string {
	return fmt.Sprintf("%s@%s", p.Side, p.EntryPrice.String())
}

// IsLong reports whether the position is a long.
func (p Position) IsLong() bool {
	return p.Side == PositionSideLong
}
