package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/TheFahmi/binance-trading-bot/internal/logger"
	"github.com/TheFahmi/binance-trading-bot/internal/overlay/marker"
	"github.com/TheFahmi/binance-trading-bot/internal/overlay/overlaytest"
	"github.com/TheFahmi/binance-trading-bot/internal/overlay/projector"
	"github.com/TheFahmi/binance-trading-bot/internal/overlay/store"
	"github.com/TheFahmi/binance-trading-bot/internal/overlay/viewport"
	"github.com/TheFahmi/binance-trading-bot/internal/types"
	"github.com/TheFahmi/binance-trading-bot/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

const (
	eventuallyWait = 3 * time.Second
	eventuallyTick = 2 * time.Millisecond
)

// fakeBotAPI serves canned chart data and status with injectable failures
// and per-symbol response delays.
type fakeBotAPI struct {
	mu          sync.Mutex
	chartData   map[string]types.ChartData
	chartDelay  map[string]time.Duration
	chartFail   bool
	chartCalls  map[string]int
	status      types.BotStatus
	statusFail  bool
	statusCalls int
}

func newFakeBotAPI() *fakeBotAPI {
	return &fakeBotAPI{
		chartData:  make(map[string]types.ChartData),
		chartDelay: make(map[string]time.Duration),
		chartCalls: make(map[string]int),
		status:     types.BotStatus{IsRunning: true, Mode: "live"},
	}
}

func (a *fakeBotAPI) ChartData(ctx context.Context, symbol string) (types.ChartData, error) {
	a.mu.Lock()
	a.chartCalls[symbol]++
	delay := a.chartDelay[symbol]
	fail := a.chartFail
	data := a.chartData[symbol]
	a.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return types.ChartData{}, ctx.Err()
		case <-time.After(delay):
		}
	}

	if fail {
		return types.ChartData{}, errors.New(errors.ErrCodeRequestFailed, "connection refused")
	}

	return data, nil
}

func (a *fakeBotAPI) Status(ctx context.Context) (types.BotStatus, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.statusCalls++
	if a.statusFail {
		return types.BotStatus{}, errors.New(errors.ErrCodeRequestFailed, "connection refused")
	}

	return a.status, nil
}

func (a *fakeBotAPI) setChartFail(fail bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.chartFail = fail
}

func (a *fakeBotAPI) calls(symbol string) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.chartCalls[symbol]
}

// fakeFactory hands out ready fake widgets and remembers them per selection.
type fakeFactory struct {
	mu       sync.Mutex
	viewport types.Viewport
	widgets  map[string]*overlaytest.FakeWidget
	created  int
}

func newFakeFactory(v types.Viewport) *fakeFactory {
	return &fakeFactory{
		viewport: v,
		widgets:  make(map[string]*overlaytest.FakeWidget),
	}
}

func (f *fakeFactory) Create(_ context.Context, selection types.Selection) (viewport.Widget, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w := overlaytest.NewReadyFakeWidget(f.viewport)
	f.widgets[selection.Symbol] = w
	f.created++

	return w, nil
}

func (f *fakeFactory) widget(symbol string) *overlaytest.FakeWidget {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.widgets[symbol]
}

func (f *fakeFactory) createdCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.created
}

// fakeSink collects recorded snapshots.
type fakeSink struct {
	mu        sync.Mutex
	snapshots []store.Snapshot
}

func (s *fakeSink) RecordSnapshot(snapshot store.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshots = append(s.snapshots, snapshot)

	return nil
}

func (s *fakeSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.snapshots)
}

func (s *fakeSink) last() (store.Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.snapshots) == 0 {
		return store.Snapshot{}, false
	}

	return s.snapshots[len(s.snapshots)-1], true
}

type EngineTestSuite struct {
	suite.Suite
	api     *fakeBotAPI
	factory *fakeFactory
	surface *overlaytest.FakeSurface
	store   *store.EventStore
	engine  *Engine
	cancel  context.CancelFunc
}

func TestEngineTestSuite(t *testing.T) {
	suite.Run(t, new(EngineTestSuite))
}

func (suite *EngineTestSuite) SetupTest() {
	suite.api = newFakeBotAPI()
	suite.api.chartData["BTCUSDT"] = chartDataFor("BTCUSDT", 1)
	suite.api.chartData["ETHUSDT"] = chartDataFor("ETHUSDT", 2)
	suite.api.chartData["SOLUSDT"] = chartDataFor("SOLUSDT", 3)

	suite.factory = newFakeFactory(types.Viewport{
		Time:  types.TimeRange{From: 1000, To: 2000},
		Price: types.PriceRange{From: 100, To: 200},
		Rect:  types.Rect{Width: 500, Height: 300},
	})
	suite.surface = overlaytest.NewFakeSurface()
	suite.store = store.New("BTCUSDT")
	suite.engine = nil
	suite.cancel = nil
}

func (suite *EngineTestSuite) TearDownTest() {
	if suite.engine != nil {
		suite.engine.Stop()
	}

	if suite.cancel != nil {
		suite.cancel()
	}
}

// chartDataFor builds a payload with the given number of in-bounds signals
// plus one open position.
func chartDataFor(symbol string, signals int) types.ChartData {
	data := types.ChartData{
		Success: true,
		Symbol:  symbol,
		Positions: []types.Position{{
			Side:       types.PositionSideLong,
			EntryPrice: decimal.NewFromInt(150),
			Size:       decimal.NewFromFloat(0.5),
			PnL:        decimal.NewFromFloat(12.5),
			Timestamp:  1500,
		}},
	}

	for i := 0; i < signals; i++ {
		data.Signals = append(data.Signals, types.Signal{
			Type:      types.SignalTypeLong,
			Price:     decimal.NewFromInt(int64(110 + i*10)),
			Timestamp: int64(1100 + i*100),
		})
	}

	return data
}

func (suite *EngineTestSuite) startEngine(opts ...Option) {
	config := Config{
		Selection:          types.Selection{Symbol: "BTCUSDT", Interval: "1m"},
		StatusPollInterval: 15 * time.Millisecond,
		ChartPollInterval:  20 * time.Millisecond,
		ProjectionDebounce: 1 * time.Millisecond,
	}

	log := logger.NewNopLogger()
	proj := projector.New(projector.Config{
		RetryDelay:  2 * time.Millisecond,
		MaxAttempts: 5,
	}, suite.store, suite.surface, log)

	engine, err := New(config, suite.api, suite.factory, suite.store, proj, log, opts...)
	suite.Require().NoError(err)
	suite.engine = engine

	ctx, cancel := context.WithCancel(context.Background())
	suite.cancel = cancel
	suite.Require().NoError(engine.Start(ctx))
}

func (suite *EngineTestSuite) waitForMarkers(count int) {
	suite.Eventually(func() bool {
		return suite.surface.MarkerCount() == count
	}, eventuallyWait, eventuallyTick)
}

func (suite *EngineTestSuite) TestBootstrapPollProjectsMarkers() {
	suite.startEngine()

	// 1 signal + 1 position for BTCUSDT
	suite.waitForMarkers(2)
	suite.Equal(StateReady, suite.engine.State())
	suite.GreaterOrEqual(suite.api.calls("BTCUSDT"), 1)

	snapshot, ok := suite.store.Latest()
	suite.Require().True(ok)
	suite.Equal("BTCUSDT", snapshot.Symbol)
}

func (suite *EngineTestSuite) TestSelectionSwitchRebuildsWidget() {
	suite.startEngine()
	suite.waitForMarkers(2)

	suite.Require().NoError(suite.engine.SetSelection(types.Selection{Symbol: "ETHUSDT", Interval: "5m"}))

	// 2 signals + 1 position for ETHUSDT
	suite.waitForMarkers(3)
	suite.Equal(types.Selection{Symbol: "ETHUSDT", Interval: "5m"}, suite.engine.Selection())
	suite.Equal("ETHUSDT", suite.store.Selected())
	suite.True(suite.factory.widget("BTCUSDT").Destroyed())
	suite.False(suite.factory.widget("ETHUSDT").Destroyed())
}

func (suite *EngineTestSuite) TestRapidSelectionChangesLastWins() {
	suite.startEngine()
	suite.waitForMarkers(2)

	suite.Require().NoError(suite.engine.SetSelection(types.Selection{Symbol: "ETHUSDT", Interval: "1m"}))
	suite.Require().NoError(suite.engine.SetSelection(types.Selection{Symbol: "SOLUSDT", Interval: "1m"}))

	// 3 signals + 1 position for SOLUSDT
	suite.waitForMarkers(4)
	suite.Equal("SOLUSDT", suite.engine.Selection().Symbol)

	snapshot, ok := suite.store.Latest()
	suite.Require().True(ok)
	suite.Equal("SOLUSDT", snapshot.Symbol)
}

func (suite *EngineTestSuite) TestSlowResponseFromAbandonedSelectionIsDiscarded() {
	suite.api.mu.Lock()
	suite.api.chartDelay["BTCUSDT"] = 60 * time.Millisecond
	suite.api.mu.Unlock()

	suite.startEngine()
	suite.Require().NoError(suite.engine.SetSelection(types.Selection{Symbol: "ETHUSDT", Interval: "1m"}))

	suite.waitForMarkers(3)

	// let the slow BTCUSDT response land and verify it did not clobber
	// the ETHUSDT snapshot
	time.Sleep(100 * time.Millisecond)

	snapshot, ok := suite.store.Latest()
	suite.Require().True(ok)
	suite.Equal("ETHUSDT", snapshot.Symbol)
	suite.Equal(3, suite.surface.MarkerCount())
}

func (suite *EngineTestSuite) TestTransportFailureKeepsPreviousSnapshot() {
	suite.startEngine()
	suite.waitForMarkers(2)

	before := suite.api.calls("BTCUSDT")
	suite.api.setChartFail(true)

	// at least two failed polls go by
	suite.Eventually(func() bool {
		return suite.api.calls("BTCUSDT") >= before+2
	}, eventuallyWait, eventuallyTick)

	snapshot, ok := suite.store.Latest()
	suite.Require().True(ok)
	suite.Equal("BTCUSDT", snapshot.Symbol)
	suite.Equal(2, suite.surface.MarkerCount())

	// recovery on the next successful tick
	suite.api.setChartFail(false)
	after := suite.api.calls("BTCUSDT")
	suite.Eventually(func() bool {
		return suite.api.calls("BTCUSDT") > after
	}, eventuallyWait, eventuallyTick)
	suite.Equal(2, suite.surface.MarkerCount())
}

func (suite *EngineTestSuite) TestPanMovingEventsOutOfBoundsRemovesMarkers() {
	suite.startEngine()
	suite.waitForMarkers(2)

	// pan far above all event prices
	suite.factory.widget("BTCUSDT").SetViewport(types.Viewport{
		Time:  types.TimeRange{From: 1000, To: 2000},
		Price: types.PriceRange{From: 300, To: 400},
		Rect:  types.Rect{Width: 500, Height: 300},
	})

	suite.waitForMarkers(0)
}

func (suite *EngineTestSuite) TestStatusListenerReceivesUpdates() {
	var running atomic.Bool
	suite.startEngine(WithStatusListener(func(status types.BotStatus) {
		running.Store(status.IsRunning)
	}))

	suite.Eventually(running.Load, eventuallyWait, eventuallyTick)
}

func (suite *EngineTestSuite) TestSnapshotSinkReceivesPolledData() {
	sink := &fakeSink{}
	suite.startEngine(WithSnapshotSink(sink))

	suite.Eventually(func() bool {
		return sink.count() >= 1
	}, eventuallyWait, eventuallyTick)

	snapshot, ok := sink.last()
	suite.Require().True(ok)
	suite.Equal("BTCUSDT", snapshot.Symbol)
}

func (suite *EngineTestSuite) TestStopTearsDownWidgetAndMarkers() {
	suite.startEngine()
	suite.waitForMarkers(2)

	suite.engine.Stop()

	suite.Equal(StateIdle, suite.engine.State())
	suite.True(suite.factory.widget("BTCUSDT").Destroyed())
	suite.Equal(0, suite.surface.MarkerCount())

	err := suite.engine.SetSelection(types.Selection{Symbol: "ETHUSDT", Interval: "1m"})
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidParameter))
}

func (suite *EngineTestSuite) TestStopIsIdempotent() {
	suite.startEngine()
	suite.waitForMarkers(2)

	suite.engine.Stop()
	suite.engine.Stop()
	suite.Equal(StateIdle, suite.engine.State())
}

func (suite *EngineTestSuite) TestInvalidSelectionRejected() {
	suite.startEngine()

	err := suite.engine.SetSelection(types.Selection{Symbol: "", Interval: "1m"})
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidSelection))
}

func (suite *EngineTestSuite) TestInvalidBootstrapSelectionRejected() {
	log := logger.NewNopLogger()
	proj := projector.New(projector.Config{}, suite.store, suite.surface, log)

	_, err := New(Config{}, suite.api, suite.factory, suite.store, proj, log)
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidSelection))
}

func (suite *EngineTestSuite) TestDoubleStartRejected() {
	suite.startEngine()

	err := suite.engine.Start(context.Background())
	suite.Require().Error(err)
}

func (suite *EngineTestSuite) TestReadySignalSurvivesFullQueue() {
	log := logger.NewNopLogger()
	proj := projector.New(projector.Config{}, suite.store, suite.surface, log)

	engine, err := New(Config{
		Selection: types.Selection{Symbol: "BTCUSDT", Interval: "1m"},
	}, suite.api, suite.factory, suite.store, proj, log)
	suite.Require().NoError(err)

	// stale generations saturate the queue
	for generation := uint64(1); generation <= 4; generation++ {
		engine.readyCh <- generation
	}

	engine.signalReady(9)

	var queued []uint64
	for {
		select {
		case generation := <-engine.readyCh:
			queued = append(queued, generation)
			continue
		default:
		}

		break
	}

	suite.Contains(queued, uint64(9))
}

// slowMarkerSurface stretches each placement so a projection pass is still
// running when the selection switches away.
type slowMarkerSurface struct {
	*overlaytest.FakeSurface
	delay time.Duration
}

func (s *slowMarkerSurface) CreateMarker(mark types.Mark, x, y float64) (marker.Handle, error) {
	time.Sleep(s.delay)

	return s.FakeSurface.CreateMarker(mark, x, y)
}

func (suite *EngineTestSuite) TestSwitchDuringSlowProjectionLeavesOnlyNewMarkers() {
	slow := &slowMarkerSurface{FakeSurface: suite.surface, delay: 3 * time.Millisecond}

	log := logger.NewNopLogger()
	proj := projector.New(projector.Config{
		RetryDelay:  2 * time.Millisecond,
		MaxAttempts: 5,
	}, suite.store, slow, log)

	engine, err := New(Config{
		Selection:          types.Selection{Symbol: "BTCUSDT", Interval: "1m"},
		StatusPollInterval: 15 * time.Millisecond,
		ChartPollInterval:  20 * time.Millisecond,
		ProjectionDebounce: 1 * time.Millisecond,
	}, suite.api, suite.factory, suite.store, proj, log)
	suite.Require().NoError(err)
	suite.engine = engine

	ctx, cancel := context.WithCancel(context.Background())
	suite.cancel = cancel
	suite.Require().NoError(engine.Start(ctx))

	// switch away while the bootstrap pass is still placing markers
	suite.Eventually(func() bool {
		return suite.surface.MarkerCount() > 0
	}, eventuallyWait, eventuallyTick)
	suite.Require().NoError(engine.SetSelection(types.Selection{Symbol: "ETHUSDT", Interval: "1m"}))

	// 2 signals + 1 position for ETHUSDT, and nothing else
	suite.Eventually(func() bool {
		markers := suite.surface.Markers()
		if len(markers) != 3 {
			return false
		}

		for _, m := range markers {
			if m.Mark.Symbol != "ETHUSDT" {
				return false
			}
		}

		return true
	}, eventuallyWait, eventuallyTick)

	// any pass that predates the switch has long since landed
	time.Sleep(50 * time.Millisecond)
	for _, m := range suite.surface.Markers() {
		suite.Equal("ETHUSDT", m.Mark.Symbol)
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateIdle, "idle"},
		{StateLoading, "loading"},
		{StateReady, "ready"},
		{State(99), "unknown"},
	}

	for _, tc := range tests {
		if got := tc.state.String(); got != tc.want {
			t.Errorf("State(%d).String() = %q, want %q", tc.state, got, tc.want)
		}
	}
}
