package types

import "time"

// Candle is one OHLCV bar. The simulated bot server streams these and the
// terminal chart derives its visible ranges from them.
type Candle struct {
	Symbol string    `json:"symbol" yaml:"symbol"`
	Time   time.Time `json:"time" yaml:"time"`
	Open   float64   `json:"open" yaml:"open"`
	High   float64   `json:"high" yaml:"high"`
	Low    float64   `json:"low" yaml:"low"`
	Close  float64   `json:"close" yaml:"close"`
	Volume float64   `json:"volume" yaml:"volume"`
}

// IsBullish reports whether the candle closed above its open.
func (c Candle) IsBullish() bool {
	return c.Close > c.Open
}
