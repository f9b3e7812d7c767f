package types

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// SignalType is the direction of an entry signal emitted by the bot.
type SignalType string

const (
	// SignalTypeLong marks a long-entry signal.
	SignalTypeLong SignalType = "LONG"
	// SignalTypeShort marks a short-entry signal.
	SignalTypeShort SignalType = "SHORT"
	// SignalTypeNeutral marks a candle where indicators were computed but no
	// entry condition fired.
	SignalTypeNeutral SignalType = "NEUTRAL"
)

// IndicatorSnapshot carries the indicator values the bot computed on the
// candle that produced a signal. Field names follow the bot's wire format.
type IndicatorSnapshot struct {
	RSI           float64 `json:"rsi" yaml:"rsi"`
	EMAShort      float64 `json:"ema_short" yaml:"ema_short"`
	EMALong       float64 `json:"ema_long" yaml:"ema_long"`
	BBUpper       float64 `json:"bb_upper" yaml:"bb_upper"`
	BBMiddle      float64 `json:"bb_middle" yaml:"bb_middle"`
	BBLower       float64 `json:"bb_lower" yaml:"bb_lower"`
	MACDLine      float64 `json:"macd_line" yaml:"macd_line"`
	MACDSignal    float64 `json:"macd_signal" yaml:"macd_signal"`
	MACDHistogram float64 `json:"macd_histogram" yaml:"macd_histogram"`
}

// Signal is one entry signal detected on a historical candle.
type Signal struct {
	// Type is the direction of the signal.
	Type SignalType `json:"type" yaml:"type"`
	// Price is the close price of the candle that produced the signal.
	Price decimal.Decimal `json:"price" yaml:"price"`
	// Timestamp is the candle open time in epoch milliseconds.
	Timestamp int64 `json:"timestamp" yaml:"timestamp"`
	// Indicators holds the indicator values behind the signal.
	Indicators IndicatorSnapshot `json:"indicators" yaml:"indicators"`
}

// Key derives the marker identity of the signal: type plus candle time.
func (s Signal) Key() string {
	return fmt.Sprintf("%s@%d", s.Type, s.Timestamp)
}

// Time converts the epoch-millisecond timestamp to a time.Time.
func (s Signal) Time() time.Time {
	return time.UnixMilli(s.Timestamp)
}

// IsEntry reports whether the signal is an actionable entry (long or short)
// rather than a neutral indicator snapshot.
func (s Signal) IsEntry() bool {
	return s.Type == SignalTypeLong || s.Type == SignalTypeShort
}

// SortSignalsForDisplay orders signals newest first, the order the dashboard
// tables show them in. Projection does not depend on ordering.
func SortSignalsForDisplay(signals []Signal) {
	sort.SliceStable(signals, func(i, j int) bool {
		return signals[i].Timestamp > signals[j].Timestamp
	})
}
