package main

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/TheFahmi/binance-trading-bot/internal/logger"
	"github.com/TheFahmi/binance-trading-bot/internal/overlay/projector"
	"github.com/TheFahmi/binance-trading-bot/internal/overlay/scheduler"
	"github.com/TheFahmi/binance-trading-bot/internal/overlay/store"
	"github.com/TheFahmi/binance-trading-bot/internal/overlay/viewport"
	"github.com/TheFahmi/binance-trading-bot/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// delayedCandleSource serves a canned series with per-symbol latency, the
// way a slow kline endpoint would.
type delayedCandleSource struct {
	mu     sync.Mutex
	delays map[string]time.Duration
}

func (d *delayedCandleSource) candles(ctx context.Context, symbol string) ([]types.Candle, error) {
	d.mu.Lock()
	delay := d.delays[symbol]
	d.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	return makeCandles(30, time.UnixMilli(1_700_000_000_000), time.Minute), nil
}

func TestSlowFetchForAbandonedSelectionKeepsChartOnLiveSymbol(t *testing.T) {
	chart := NewChart()
	chart.SetSize(80, 24)

	source := &delayedCandleSource{delays: map[string]time.Duration{
		"ETHUSDT": 120 * time.Millisecond,
	}}
	factory := scheduler.WidgetFactoryFunc(func(ctx context.Context, selection types.Selection) (viewport.Widget, error) {
		candles, err := source.candles(ctx, selection.Symbol)
		if err != nil {
			return nil, err
		}

		return chart.NewWidget(selection, candles), nil
	})

	log := logger.NewNopLogger()
	eventStore := store.New("BTCUSDT")
	proj := projector.New(projector.Config{
		RetryDelay:  2 * time.Millisecond,
		MaxAttempts: 5,
	}, eventStore, chart, log)

	engine, err := scheduler.New(scheduler.Config{
		Selection:          types.Selection{Symbol: "BTCUSDT", Interval: "1m"},
		StatusPollInterval: 15 * time.Millisecond,
		ChartPollInterval:  20 * time.Millisecond,
		ProjectionDebounce: time.Millisecond,
	}, stubAPI{}, factory, eventStore, proj, log)
	require.NoError(t, err)

	require.NoError(t, engine.Start(context.Background()))
	defer engine.Stop()

	require.Eventually(t, func() bool {
		return chart.Selection().Symbol == "BTCUSDT"
	}, 3*time.Second, 2*time.Millisecond)

	// abandon the slow symbol before its candles arrive
	require.NoError(t, engine.SetSelection(types.Selection{Symbol: "ETHUSDT", Interval: "1m"}))
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, engine.SetSelection(types.Selection{Symbol: "SOLUSDT", Interval: "1m"}))

	require.Eventually(t, func() bool {
		return chart.Selection().Symbol == "SOLUSDT"
	}, 3*time.Second, 2*time.Millisecond)

	// let the abandoned fetch land; it must not displace the live series
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, "SOLUSDT", engine.Selection().Symbol)
	assert.Equal(t, "SOLUSDT", chart.Selection().Symbol)
}
