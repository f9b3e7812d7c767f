// Package datagen generates realistic market data for the simulated bot
// server and for tests. A fixed seed reproduces the same series.
package datagen

import (
	"math"
	"math/rand"
	"time"

	"github.com/TheFahmi/binance-trading-bot/internal/types"
	"github.com/shopspring/decimal"
)

// Generator produces candle series plus the positions and signals a bot
// would have emitted against them.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator creates a Generator with the given seed. Use a fixed seed
// for reproducible results in tests.
func NewGenerator(seed int64) *Generator {
	return &Generator{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// Config configures how market data is generated.
type Config struct {
	// Symbol is the trading pair (e.g., "BTCUSDT")
	Symbol string
	// StartTime is the beginning of the candle series
	StartTime time.Time
	// Interval is the duration between candles
	Interval time.Duration
	// Count is the number of candles to generate
	Count int
	// InitialPrice is the starting price
	InitialPrice float64
	// Volatility controls price movement per candle (0.002 = 0.2%)
	Volatility float64
	// Trend is the drift factor across the whole series
	Trend float64
	// VolumeBase is the average volume per candle
	VolumeBase float64
	// VolumeVariance is the variance in volume (0.0 to 1.0)
	VolumeVariance float64
	// SignalEvery emits a trading signal roughly every N candles
	SignalEvery int
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	return Config{
		Symbol:         "BTCUSDT",
		StartTime:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Interval:       time.Minute,
		Count:          240,
		InitialPrice:   64000.0,
		Volatility:     0.002,
		Trend:          0.0,
		VolumeBase:     150,
		VolumeVariance: 0.3,
		SignalEvery:    20,
	}
}

// Candles creates a candle series following a geometric Brownian motion
// model.
func (g *Generator) Candles(config Config) []types.Candle {
	candles := make([]types.Candle, config.Count)
	currentPrice := config.InitialPrice
	currentTime := config.StartTime

	for i := 0; i < config.Count; i++ {
		open := currentPrice

		// Box-Muller transform for a normally distributed step
		u1 := g.rng.Float64()
		u2 := g.rng.Float64()
		z := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)

		priceChange := config.Volatility * z
		drift := config.Trend / float64(config.Count)

		closePrice := open * (1 + priceChange + drift)
		if closePrice <= 0 {
			closePrice = open * 0.99
		}

		highExtension := math.Abs(g.rng.Float64() * config.Volatility * open * 0.5)
		lowExtension := math.Abs(g.rng.Float64() * config.Volatility * open * 0.5)

		high := math.Max(open, closePrice) + highExtension
		low := math.Min(open, closePrice) - lowExtension
		if low <= 0 {
			low = math.Min(open, closePrice) * 0.99
		}

		volumeVariation := 1.0 + (g.rng.Float64()*2-1)*config.VolumeVariance
		volume := config.VolumeBase * volumeVariation
		if volume < 0 {
			volume = config.VolumeBase * 0.1
		}

		candles[i] = types.Candle{
			Symbol: config.Symbol,
			Time:   currentTime,
			Open:   roundToDecimals(open, 4),
			High:   roundToDecimals(high, 4),
			Low:    roundToDecimals(low, 4),
			Close:  roundToDecimals(closePrice, 4),
			Volume: roundToDecimals(volume, 2),
		}

		currentPrice = closePrice
		currentTime = currentTime.Add(config.Interval)
	}

	return candles
}

// Signals derives entry signals from a candle series, one roughly every
// SignalEvery candles, alternating long and short with plausible indicator
// values around the candle's close.
func (g *Generator) Signals(config Config, candles []types.Candle) []types.Signal {
	every := config.SignalEvery
	if every <= 0 {
		every = 20
	}

	var signals []types.Signal

	long := true

	for i := every - 1; i < len(candles); i += every {
		candle := candles[i]
		price := candle.Close

		signalType := types.SignalTypeLong
		rsi := 25 + g.rng.Float64()*10

		if !long {
			signalType = types.SignalTypeShort
			rsi = 65 + g.rng.Float64()*10
		}

		emaShort := price * (1 + (g.rng.Float64()*2-1)*0.001)
		emaLong := price * (1 + (g.rng.Float64()*2-1)*0.003)
		band := price * 0.01

		signals = append(signals, types.Signal{
			Type:      signalType,
			Price:     decimal.NewFromFloat(roundToDecimals(price, 4)),
			Timestamp: candle.Time.UnixMilli(),
			Indicators: types.IndicatorSnapshot{
				RSI:           roundToDecimals(rsi, 2),
				EMAShort:      roundToDecimals(emaShort, 4),
				EMALong:       roundToDecimals(emaLong, 4),
				BBUpper:       roundToDecimals(price+band, 4),
				BBMiddle:      roundToDecimals(price, 4),
				BBLower:       roundToDecimals(price-band, 4),
				MACDLine:      roundToDecimals((emaShort-emaLong)*0.1, 6),
				MACDSignal:    roundToDecimals((emaShort-emaLong)*0.08, 6),
				MACDHistogram: roundToDecimals((emaShort-emaLong)*0.02, 6),
			},
		})

		long = !long
	}

	return signals
}

// Positions derives open positions from the most recent signals, priced at
// the signal's entry with PnL against the last close.
func (g *Generator) Positions(config Config, candles []types.Candle, signals []types.Signal, count int) []types.Position {
	if len(candles) == 0 || len(signals) == 0 || count <= 0 {
		return nil
	}

	if count > len(signals) {
		count = len(signals)
	}

	lastClose := candles[len(candles)-1].Close
	positions := make([]types.Position, 0, count)

	for _, signal := range signals[len(signals)-count:] {
		side := types.PositionSideLong
		if signal.Type == types.SignalTypeShort {
			side = types.PositionSideShort
		}

		entry, _ := signal.Price.Float64()
		size := roundToDecimals(0.05+g.rng.Float64()*0.45, 3)

		pnl := (lastClose - entry) * size
		if side == types.PositionSideShort {
			pnl = -pnl
		}

		positions = append(positions, types.Position{
			Side:       side,
			EntryPrice: signal.Price,
			Size:       decimal.NewFromFloat(size),
			PnL:        decimal.NewFromFloat(roundToDecimals(pnl, 4)),
			Timestamp:  signal.Timestamp,
		})
	}

	return positions
}

// NextCandle extends a series by one candle, continuing the random walk
// from the last close. Used by the live candle stream.
func (g *Generator) NextCandle(config Config, last types.Candle) types.Candle {
	series := g.Candles(Config{
		Symbol:         config.Symbol,
		StartTime:      last.Time.Add(config.Interval),
		Interval:       config.Interval,
		Count:          1,
		InitialPrice:   last.Close,
		Volatility:     config.Volatility,
		Trend:          config.Trend,
		VolumeBase:     config.VolumeBase,
		VolumeVariance: config.VolumeVariance,
	})

	return series[0]
}

// roundToDecimals rounds a float64 to the specified number of decimal places.
func roundToDecimals(val float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))

	return math.Round(val*pow) / pow
}
