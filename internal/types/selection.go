package types

import (
	"fmt"
	"time"
)

// Selection is the active symbol/interval pair the dashboard is looking at.
// It is a value type: selection changes replace it wholesale, and every
// asynchronous operation captures the selection it was issued for so late
// results can be matched against the current one.
type Selection struct {
	Symbol   string `json:"symbol" yaml:"symbol"`
	Interval string `json:"interval" yaml:"interval"`
}

// Validate checks that both fields are present and the interval is one the
// chart understands.
func (s Selection) Validate() error {
	if s.Symbol == "" {
		return fmt.Errorf("selection has no symbol")
	}

	if _, ok := intervalDurations[s.Interval]; !ok {
		return fmt.Errorf("unsupported interval %q", s.Interval)
	}

	return nil
}

// String renders the selection for logs.
func (s Selection) String() string {
	return s.Symbol + "/" + s.Interval
}

// intervalDurations maps candle interval names to their wall-clock length.
var intervalDurations = map[string]time.Duration{
	"1s":  time.Second,
	"1m":  time.Minute,
	"3m":  3 * time.Minute,
	"5m":  5 * time.Minute,
	"15m": 15 * time.Minute,
	"30m": 30 * time.Minute,
	"1h":  time.Hour,
	"2h":  2 * time.Hour,
	"4h":  4 * time.Hour,
	"6h":  6 * time.Hour,
	"8h":  8 * time.Hour,
	"12h": 12 * time.Hour,
	"1d":  24 * time.Hour,
	"3d":  72 * time.Hour,
	"1w":  168 * time.Hour,
}

// IntervalDuration converts a candle interval name to a duration. Unknown
// intervals fall back to one minute.
func IntervalDuration(interval string) time.Duration {
	if d, ok := intervalDurations[interval]; ok {
		return d
	}

	return time.Minute
}

// SupportedIntervals lists the interval names accepted by Validate.
func SupportedIntervals() []string {
	return []string{"1s", "1m", "3m", "5m", "15m", "30m", "1h", "2h", "4h", "6h", "8h", "12h", "1d", "3d", "1w"}
}
