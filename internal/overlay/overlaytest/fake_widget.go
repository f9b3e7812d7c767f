// Package overlaytest provides fake widget and surface implementations used
// by the overlay engine tests.
package overlaytest

import (
	"sync"

	"github.com/TheFahmi/binance-trading-bot/internal/types"
)

// FakeWidget is a controllable chart widget. Tests drive its readiness and
// ranges explicitly instead of waiting on a real asynchronous init.
type FakeWidget struct {
	mu         sync.Mutex
	ready      bool
	readyFns   []func()
	changeFns  []func()
	timeRange  types.TimeRange
	hasTime    bool
	priceRange types.PriceRange
	hasPrice   bool
	rect       types.Rect
	destroyed  bool
}

// NewFakeWidget creates a widget that is not yet ready and has no ranges.
func NewFakeWidget() *FakeWidget {
	return &FakeWidget{}
}

// NewReadyFakeWidget creates a widget that is immediately ready with the
// given viewport.
func NewReadyFakeWidget(v types.Viewport) *FakeWidget {
	w := NewFakeWidget()
	w.SetViewport(v)
	w.FireReady()

	return w
}

// OnReady implements viewport.Widget.
func (w *FakeWidget) OnReady(fn func()) {
	w.mu.Lock()
	ready := w.ready
	if !ready {
		w.readyFns = append(w.readyFns, fn)
	}
	w.mu.Unlock()

	if ready {
		fn()
	}
}

// FireReady marks the widget ready and invokes pending callbacks.
func (w *FakeWidget) FireReady() {
	w.mu.Lock()
	w.ready = true
	fns := w.readyFns
	w.readyFns = nil
	w.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// TimeRange implements viewport.Widget.
func (w *FakeWidget) TimeRange() (types.TimeRange, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.timeRange, w.hasTime
}

// PriceRange implements viewport.Widget.
func (w *FakeWidget) PriceRange() (types.PriceRange, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.priceRange, w.hasPrice
}

// Rect implements viewport.Widget.
func (w *FakeWidget) Rect() types.Rect {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.rect
}

// OnRangeChange implements viewport.Widget.
func (w *FakeWidget) OnRangeChange(fn func()) {
	w.mu.Lock()
	w.changeFns = append(w.changeFns, fn)
	w.mu.Unlock()
}

// Destroy implements viewport.Widget.
func (w *FakeWidget) Destroy() {
	w.mu.Lock()
	w.destroyed = true
	w.mu.Unlock()
}

// Destroyed reports whether Destroy was called.
func (w *FakeWidget) Destroyed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.destroyed
}

// SetViewport sets all three spatial components and fires range-change
// callbacks, simulating a pan or zoom.
func (w *FakeWidget) SetViewport(v types.Viewport) {
	w.mu.Lock()
	w.timeRange = v.Time
	w.hasTime = true
	w.priceRange = v.Price
	w.hasPrice = true
	w.rect = v.Rect
	fns := make([]func(), len(w.changeFns))
	copy(fns, w.changeFns)
	w.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// ClearRanges simulates a widget that reports readiness before its scales
// are computed.
func (w *FakeWidget) ClearRanges() {
	w.mu.Lock()
	w.hasTime = false
	w.hasPrice = false
	w.mu.Unlock()
}
