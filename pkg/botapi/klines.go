package botapi

import (
	"context"
	"strconv"
	"time"

	"github.com/TheFahmi/binance-trading-bot/internal/types"
	"github.com/TheFahmi/binance-trading-bot/pkg/errors"
	binance "github.com/adshao/go-binance/v2"
)

// DefaultKlineLimit is how many candles the terminal chart loads per
// selection.
const DefaultKlineLimit = 120

// KlineService fetches the candles the chart widget renders behind the
// overlay.
type KlineService interface {
	Candles(ctx context.Context, selection types.Selection, limit int) ([]types.Candle, error)
}

type binanceKlines struct {
	client *binance.Client
}

// NewBinanceKlines creates a KlineService backed by the public Binance spot
// endpoints. No API key is needed for kline data.
func NewBinanceKlines() KlineService {
	return &binanceKlines{client: binance.NewClient("", "")}
}

func (b *binanceKlines) Candles(ctx context.Context, selection types.Selection, limit int) ([]types.Candle, error) {
	if limit <= 0 {
		limit = DefaultKlineLimit
	}

	klines, err := b.client.NewKlinesService().
		Symbol(selection.Symbol).
		Interval(selection.Interval).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeRequestFailed, err, "fetching %s klines", selection.String())
	}

	candles := make([]types.Candle, 0, len(klines))

	for _, k := range klines {
		open, _ := strconv.ParseFloat(k.Open, 64)
		high, _ := strconv.ParseFloat(k.High, 64)
		low, _ := strconv.ParseFloat(k.Low, 64)
		closePrice, _ := strconv.ParseFloat(k.Close, 64)
		volume, _ := strconv.ParseFloat(k.Volume, 64)

		candles = append(candles, types.Candle{
			Symbol: selection.Symbol,
			Time:   time.UnixMilli(k.OpenTime),
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closePrice,
			Volume: volume,
		})
	}

	return candles, nil
}
