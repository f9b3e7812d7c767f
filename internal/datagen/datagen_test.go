package datagen

import (
	"math"
	"testing"

	"github.com/TheFahmi/binance-trading-bot/internal/types"
	"github.com/stretchr/testify/suite"
)

type GeneratorTestSuite struct {
	suite.Suite
	config Config
}

func TestGeneratorTestSuite(t *testing.T) {
	suite.Run(t, new(GeneratorTestSuite))
}

func (suite *GeneratorTestSuite) SetupTest() {
	suite.config = DefaultConfig()
	suite.config.Count = 100
}

func (suite *GeneratorTestSuite) TestCandleInvariants() {
	gen := NewGenerator(42)
	candles := gen.Candles(suite.config)

	suite.Require().Len(candles, 100)

	for i, candle := range candles {
		suite.Equal("BTCUSDT", candle.Symbol)
		suite.GreaterOrEqual(candle.High, math.Max(candle.Open, candle.Close))
		suite.LessOrEqual(candle.Low, math.Min(candle.Open, candle.Close))
		suite.Greater(candle.Low, 0.0)
		suite.Greater(candle.Volume, 0.0)

		if i > 0 {
			suite.Equal(suite.config.Interval, candle.Time.Sub(candles[i-1].Time))
		}
	}
}

func (suite *GeneratorTestSuite) TestFixedSeedReproduces() {
	first := NewGenerator(7).Candles(suite.config)
	second := NewGenerator(7).Candles(suite.config)

	suite.Equal(first, second)
}

func (suite *GeneratorTestSuite) TestDifferentSeedsDiverge() {
	first := NewGenerator(1).Candles(suite.config)
	second := NewGenerator(2).Candles(suite.config)

	suite.NotEqual(first, second)
}

func (suite *GeneratorTestSuite) TestSignalsCadenceAndAlternation() {
	gen := NewGenerator(42)
	candles := gen.Candles(suite.config)
	signals := gen.Signals(suite.config, candles)

	suite.Require().Len(signals, 100/suite.config.SignalEvery)

	for i, signal := range signals {
		candle := candles[(i+1)*suite.config.SignalEvery-1]
		suite.Equal(candle.Time.UnixMilli(), signal.Timestamp)

		if i%2 == 0 {
			suite.Equal(types.SignalTypeLong, signal.Type)
			suite.Less(signal.Indicators.RSI, 40.0)
		} else {
			suite.Equal(types.SignalTypeShort, signal.Type)
			suite.Greater(signal.Indicators.RSI, 60.0)
		}
	}
}

func (suite *GeneratorTestSuite) TestPositionsFollowRecentSignals() {
	gen := NewGenerator(42)
	candles := gen.Candles(suite.config)
	signals := gen.Signals(suite.config, candles)

	positions := gen.Positions(suite.config, candles, signals, 2)
	suite.Require().Len(positions, 2)

	for i, position := range positions {
		signal := signals[len(signals)-2+i]
		suite.Equal(signal.Price, position.EntryPrice)
		suite.Equal(signal.Timestamp, position.Timestamp)
		suite.True(position.Size.IsPositive())
	}
}

func (suite *GeneratorTestSuite) TestPositionsEmptyInputs() {
	gen := NewGenerator(42)

	suite.Nil(gen.Positions(suite.config, nil, nil, 2))
	suite.Nil(gen.Positions(suite.config, gen.Candles(suite.config), nil, 2))
}

func (suite *GeneratorTestSuite) TestNextCandleContinuesSeries() {
	gen := NewGenerator(42)
	candles := gen.Candles(suite.config)
	last := candles[len(candles)-1]

	next := gen.NextCandle(suite.config, last)
	suite.Equal(last.Time.Add(suite.config.Interval), next.Time)
	suite.Equal(last.Close, next.Open)
	suite.Equal("BTCUSDT", next.Symbol)
}
