// Package scheduler owns the overlay engine's lifecycle: polling cadence,
// the symbol/interval switch protocol, widget re-creation, and projection
// triggers. One Engine instance exists per dashboard session and is torn
// down explicitly; nothing leaks across navigations.
package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/TheFahmi/binance-trading-bot/internal/logger"
	"github.com/TheFahmi/binance-trading-bot/internal/overlay/projector"
	"github.com/TheFahmi/binance-trading-bot/internal/overlay/store"
	"github.com/TheFahmi/binance-trading-bot/internal/overlay/viewport"
	"github.com/TheFahmi/binance-trading-bot/internal/types"
	"github.com/TheFahmi/binance-trading-bot/pkg/errors"
	"go.uber.org/zap"
)

// Default poll cadences. Status is cheap and low-latency; chart data is
// heavier and tolerates more staleness, so the two run on independent
// timers.
const (
	DefaultStatusPollInterval = 5 * time.Second
	DefaultChartPollInterval  = 15 * time.Second
	DefaultProjectionDebounce = 250 * time.Millisecond
)

// State is the engine's position in the selection lifecycle.
type State int32

const (
	// StateIdle means no widget exists (before Start and after Stop).
	StateIdle State = iota
	// StateLoading means a widget re-creation is in flight.
	StateLoading
	// StateReady means the widget is up and polls project onto it.
	StateReady
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// ChartAPI is the slice of the bot HTTP API the engine polls.
type ChartAPI interface {
	// ChartData fetches positions and signals for a symbol.
	ChartData(ctx context.Context, symbol string) (types.ChartData, error)
	// Status fetches the bot status; the engine consumes only the running
	// indicator, listeners get the full payload.
	Status(ctx context.Context) (types.BotStatus, error)
}

// WidgetFactory creates a chart widget for a selection. Creation may be
// asynchronous and slow; the returned widget reports readiness through
// OnReady.
type WidgetFactory interface {
	Create(ctx context.Context, selection types.Selection) (viewport.Widget, error)
}

// WidgetFactoryFunc adapts a function to the WidgetFactory interface.
type WidgetFactoryFunc func(ctx context.Context, selection types.Selection) (viewport.Widget, error)

// Create implements WidgetFactory.
func (f WidgetFactoryFunc) Create(ctx context.Context, selection types.Selection) (viewport.Widget, error) {
	return f(ctx, selection)
}

// SnapshotSink receives every successfully polled snapshot, e.g. for mark
// persistence. Sink errors are logged and never interrupt polling.
type SnapshotSink interface {
	RecordSnapshot(snapshot store.Snapshot) error
}

// Config tunes an Engine.
type Config struct {
	// Selection is the initial symbol/interval, usually from URL bootstrap.
	Selection types.Selection `yaml:"selection"`
	// StatusPollInterval is the cadence of GET /api/status.
	StatusPollInterval time.Duration `yaml:"status_poll_interval"`
	// ChartPollInterval is the cadence of GET /api/chart-data.
	ChartPollInterval time.Duration `yaml:"chart_poll_interval"`
	// ProjectionDebounce coalesces bursts of projection triggers (poll
	// completion, pan/zoom) into one pass.
	ProjectionDebounce time.Duration `yaml:"projection_debounce"`
}

func (c Config) withDefaults() Config {
	if c.StatusPollInterval <= 0 {
		c.StatusPollInterval = DefaultStatusPollInterval
	}

	if c.ChartPollInterval <= 0 {
		c.ChartPollInterval = DefaultChartPollInterval
	}

	if c.ProjectionDebounce <= 0 {
		c.ProjectionDebounce = DefaultProjectionDebounce
	}

	return c
}

// Engine keeps the selection, the event store, and the chart viewport in
// mutual agreement. Every asynchronous operation carries the generation it
// was issued under; results whose generation no longer matches are
// discarded, which resolves all ordering races between overlapping polls,
// widget-ready callbacks, and selection changes.
type Engine struct {
	config    Config
	api       ChartAPI
	factory   WidgetFactory
	store     *store.EventStore
	projector *projector.Projector
	log       *logger.Logger

	sink     SnapshotSink
	onStatus func(types.BotStatus)
	onState  func(State)

	generation atomic.Uint64
	state      atomic.Int32
	started    atomic.Bool
	stopped    atomic.Bool

	mu        sync.Mutex
	selection types.Selection
	source    viewport.Source

	selectionCh chan types.Selection
	readyCh     chan uint64
	projectCh   chan uint64

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option customizes an Engine.
type Option func(*Engine)

// WithSnapshotSink attaches a sink receiving every polled snapshot.
func WithSnapshotSink(sink SnapshotSink) Option {
	return func(e *Engine) { e.sink = sink }
}

// WithStatusListener attaches a listener for bot status updates.
func WithStatusListener(fn func(types.BotStatus)) Option {
	return func(e *Engine) { e.onStatus = fn }
}

// WithStateListener attaches a listener for engine state transitions.
func WithStateListener(fn func(State)) Option {
	return func(e *Engine) { e.onState = fn }
}

// New creates an Engine. Start must be called before anything happens.
func New(
	config Config,
	api ChartAPI,
	factory WidgetFactory,
	eventStore *store.EventStore,
	proj *projector.Projector,
	log *logger.Logger,
	opts ...Option,
) (*Engine, error) {
	if err := config.Selection.Validate(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidSelection, "engine bootstrap selection", err)
	}

	e := &Engine{
		config:      config.withDefaults(),
		api:         api,
		factory:     factory,
		store:       eventStore,
		projector:   proj,
		log:         log,
		sink:        nil,
		onStatus:    nil,
		onState:     nil,
		selection:   config.Selection,
		source:      nil,
		selectionCh: make(chan types.Selection, 4),
		readyCh:     make(chan uint64, 4),
		projectCh:   make(chan uint64, 4),
		cancel:      nil,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e, nil
}

// Start brings the engine up: it creates the widget for the bootstrap
// selection and begins polling. Start is not reentrant.
func (e *Engine) Start(ctx context.Context) error {
	if !e.started.CompareAndSwap(false, true) {
		return errors.New(errors.ErrCodeInvalidParameter, "engine already started")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel

	e.wg.Add(2)
	go e.run(loopCtx)
	go e.projectionWorker(loopCtx)

	return nil
}

// Stop tears the engine down: timers stop, the viewport source is disposed,
// and no scheduled callback fires afterward. Safe to call more than once.
func (e *Engine) Stop() {
	if !e.stopped.CompareAndSwap(false, true) {
		return
	}

	if e.cancel != nil {
		e.cancel()
	}

	e.wg.Wait()
}

// SetSelection requests a switch to a new symbol/interval. The switch is
// asynchronous; a late call after Stop is ignored.
func (e *Engine) SetSelection(selection types.Selection) error {
	if err := selection.Validate(); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidSelection, "rejecting selection change", err)
	}

	if e.stopped.Load() {
		return errors.New(errors.ErrCodeInvalidParameter, "engine is stopped")
	}

	select {
	case e.selectionCh <- selection:
	default:
		// channel full: the loop is behind, drop the oldest pending switch
		select {
		case <-e.selectionCh:
		default:
		}
		e.selectionCh <- selection
	}

	return nil
}

// Selection returns the active selection.
func (e *Engine) Selection() types.Selection {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.selection
}

// State returns the engine's current lifecycle state.
func (e *Engine) State() State {
	return State(e.state.Load())
}

// Generation returns the current selection generation, mostly for tests.
func (e *Engine) Generation() uint64 {
	return e.generation.Load()
}

// run is the engine's event loop. All state transitions happen here; the
// pollers and widget callbacks only send messages.
func (e *Engine) run(ctx context.Context) {
	defer e.wg.Done()

	statusTicker := time.NewTicker(e.config.StatusPollInterval)
	defer statusTicker.Stop()

	chartTicker := time.NewTicker(e.config.ChartPollInterval)
	defer chartTicker.Stop()

	// bootstrap: Idle -> Loading for the initial selection
	e.switchSelection(ctx, e.selection)
	e.pollStatus(ctx)

	for {
		select {
		case <-ctx.Done():
			e.teardown()

			return

		case selection := <-e.selectionCh:
			e.switchSelection(ctx, selection)

		case generation := <-e.readyCh:
			e.handleWidgetReady(ctx, generation)

		case <-statusTicker.C:
			e.pollStatus(ctx)

		case <-chartTicker.C:
			e.pollChartData(ctx)
		}
	}
}

// switchSelection implements the Idle/Ready -> Loading transition: dispose
// the current viewport source, clear markers and the store's view, bump the
// generation so in-flight work becomes stale, and kick off widget
// re-creation.
func (e *Engine) switchSelection(ctx context.Context, selection types.Selection) {
	generation := e.generation.Add(1)

	e.mu.Lock()
	e.selection = selection
	old := e.source
	e.source = nil
	e.mu.Unlock()

	if old != nil {
		old.Dispose()
	}

	e.projector.Clear()
	e.store.Select(selection.Symbol)
	e.setState(StateLoading)

	e.log.Info("selection changed",
		zap.String("selection", selection.String()),
		zap.Uint64("generation", generation),
	)

	go e.createWidget(ctx, selection, generation)
}

// createWidget builds the widget off the loop goroutine and installs it if
// the selection has not moved on meanwhile. A stale widget is destroyed
// immediately so an abandoned creation can never signal ready into the
// current selection.
func (e *Engine) createWidget(ctx context.Context, selection types.Selection, generation uint64) {
	widget, err := e.factory.Create(ctx, selection)
	if err != nil {
		e.log.Error("widget creation failed",
			zap.String("selection", selection.String()),
			zap.Error(err),
		)

		return
	}

	if e.generation.Load() != generation {
		widget.Destroy()

		return
	}

	source := viewport.NewSource(widget, generation)

	e.mu.Lock()
	stale := e.generation.Load() != generation
	if !stale {
		e.source = source
	}
	e.mu.Unlock()

	if stale {
		source.Dispose()

		return
	}

	widget.OnReady(func() {
		e.signalReady(generation)
	})

	source.OnChange(func() {
		e.requestProjection(generation)
	})
}

// signalReady queues a widget-ready notification. A full channel holds only
// stale generations (the loop drains it faster than selections can switch),
// so the oldest pending signal is dropped rather than the live one.
func (e *Engine) signalReady(generation uint64) {
	select {
	case e.readyCh <- generation:
	default:
		select {
		case <-e.readyCh:
		default:
		}
		e.readyCh <- generation
	}
}

// handleWidgetReady implements Loading -> Ready: an immediate chart-data
// poll plus projection pass. A ready signal from an abandoned generation is
// dropped.
func (e *Engine) handleWidgetReady(ctx context.Context, generation uint64) {
	if e.generation.Load() != generation {
		e.log.Debug("ignoring ready callback from abandoned widget",
			zap.Uint64("generation", generation),
		)

		return
	}

	e.setState(StateReady)
	e.pollChartData(ctx)
}

// pollStatus fetches bot status off-loop. Status is not selection-scoped,
// so no generation check applies; transport failures only log.
func (e *Engine) pollStatus(ctx context.Context) {
	go func() {
		status, err := e.api.Status(ctx)
		if err != nil {
			if ctx.Err() == nil {
				e.log.Warn("status poll failed", zap.Error(err))
			}

			return
		}

		if e.onStatus != nil && !e.stopped.Load() {
			e.onStatus(status)
		}
	}()
}

// pollChartData fetches positions and signals off-loop. The request is
// tagged with the generation and symbol it was issued for; a result that
// arrives after a switch is discarded, never merged. A transport failure
// keeps the previous snapshot: stale-but-available beats a blank overlay,
// and the next tick heals.
func (e *Engine) pollChartData(ctx context.Context) {
	generation := e.generation.Load()
	symbol := e.Selection().Symbol

	go func() {
		data, err := e.api.ChartData(ctx, symbol)
		if err != nil {
			if ctx.Err() == nil {
				e.log.Warn("chart-data poll failed, keeping previous snapshot",
					zap.String("symbol", symbol),
					zap.Error(err),
				)
			}

			return
		}

		if e.generation.Load() != generation {
			e.log.Debug("discarding stale chart-data response",
				zap.String("symbol", symbol),
				zap.Uint64("generation", generation),
			)

			return
		}

		if !e.store.Replace(data.Symbol, data.Positions, data.Signals, time.Now()) {
			return
		}

		if e.sink != nil {
			if snapshot, ok := e.store.Latest(); ok {
				if err := e.sink.RecordSnapshot(snapshot); err != nil {
					e.log.Warn("snapshot sink failed", zap.Error(err))
				}
			}
		}

		e.requestProjection(generation)
	}()
}

// requestProjection queues a debounced projection pass for a generation.
func (e *Engine) requestProjection(generation uint64) {
	select {
	case e.projectCh <- generation:
	default:
	}
}

// projectionWorker serializes projection passes. Triggers arriving within
// the debounce window collapse into a single pass over the latest state.
func (e *Engine) projectionWorker(ctx context.Context) {
	defer e.wg.Done()

	for {
		var generation uint64

		select {
		case <-ctx.Done():
			return
		case generation = <-e.projectCh:
		}

		debounce := time.After(e.config.ProjectionDebounce)

	drain:
		for {
			select {
			case <-ctx.Done():
				return
			case generation = <-e.projectCh:
			case <-debounce:
				break drain
			}
		}

		e.runProjection(ctx, generation)
	}
}

// runProjection executes one pass against the source belonging to the
// trigger's generation.
func (e *Engine) runProjection(ctx context.Context, generation uint64) {
	if e.generation.Load() != generation {
		return
	}

	e.mu.Lock()
	source := e.source
	e.mu.Unlock()

	if source == nil || source.Generation() != generation {
		return
	}

	if err := e.projector.Project(ctx, source); err != nil {
		switch {
		case errors.HasCode(err, errors.ErrCodeViewportDisposed):
			// selection moved on mid-pass
		case ctx.Err() != nil:
			// teardown
		default:
			e.log.Warn("projection pass failed", zap.Error(err))
		}
	}
}

// teardown disposes the source and clears markers; runs on the loop
// goroutine when the context ends.
func (e *Engine) teardown() {
	e.mu.Lock()
	source := e.source
	e.source = nil
	e.mu.Unlock()

	if source != nil {
		source.Dispose()
	}

	e.projector.Clear()
	e.setState(StateIdle)
	e.log.Info("overlay engine stopped")
}

func (e *Engine) setState(state State) {
	if e.state.Swap(int32(state)) == int32(state) {
		return
	}

	if e.onState != nil {
		e.onState(state)
	}
}
