// Package viewport wraps the externally owned chart widget behind a
// capability the overlay engine can query. The widget is created
// asynchronously and may report readiness before its internal scales exist,
// so "unavailable" is a first-class outcome of every spatial query rather
// than an error.
package viewport

import (
	"sync"
	"sync/atomic"

	"github.com/TheFahmi/binance-trading-bot/internal/types"
	"github.com/moznion/go-optional"
)

// Widget is the life-cycle and coordinate-query surface of the external
// chart widget. Implementations are not owned by this package; the terminal
// chart and test fakes both satisfy it.
type Widget interface {
	// OnReady registers a callback invoked once the widget has finished its
	// asynchronous initialization. Registering after readiness fires the
	// callback immediately.
	OnReady(fn func())
	// TimeRange returns the visible time window, or false while the widget's
	// time scale has not been computed yet.
	TimeRange() (types.TimeRange, bool)
	// PriceRange returns the visible price window, or false while the
	// widget's price scale has not been computed yet.
	PriceRange() (types.PriceRange, bool)
	// Rect returns the drawable size of the chart area.
	Rect() types.Rect
	// OnRangeChange registers a callback invoked whenever pan or zoom moves
	// the visible ranges.
	OnRangeChange(fn func())
	// Destroy tears the widget down. Further queries are undefined at the
	// widget level; Source shields callers from them.
	Destroy()
}

// Source is the capability the projector and scheduler query. Re-creating
// the widget on a selection change replaces the whole Source; the old one
// answers every query with "unavailable" after Dispose instead of reaching
// into a destroyed widget.
type Source interface {
	// IsReady reports whether the widget finished initializing and the
	// source has not been disposed.
	IsReady() bool
	// TimeRange returns the visible time window, None when unavailable.
	TimeRange() optional.Option[types.TimeRange]
	// PriceRange returns the visible price window, None when unavailable.
	PriceRange() optional.Option[types.PriceRange]
	// Rect returns the drawable size, zero when disposed.
	Rect() types.Rect
	// Snapshot combines ranges and rect into one viewport read, None when
	// any component is unavailable.
	Snapshot() optional.Option[types.Viewport]
	// Generation identifies which selection this source was created for.
	Generation() uint64
	// OnChange registers a callback fired on pan/zoom. No-op after Dispose.
	OnChange(fn func())
	// Dispose destroys the underlying widget exactly once and turns every
	// later query into "unavailable".
	Dispose()
	// Disposed reports whether Dispose has been called.
	Disposed() bool
}

type widgetSource struct {
	widget     Widget
	generation uint64
	ready      atomic.Bool
	disposed   atomic.Bool
	destroy    sync.Once

	mu        sync.Mutex
	onChange  []func()
	changeSet bool
}

// NewSource wraps a widget into a Source tagged with the generation of the
// selection it was created for.
func NewSource(widget Widget, generation uint64) Source {
	s := &widgetSource{
		widget:     widget,
		generation: generation,
	}

	widget.OnReady(func() {
		if !s.disposed.Load() {
			s.ready.Store(true)
		}
	})

	return s
}

func (s *widgetSource) IsReady() bool {
	return s.ready.Load() && !s.disposed.Load()
}

func (s *widgetSource) TimeRange() optional.Option[types.TimeRange] {
	if !s.IsReady() {
		return optional.None[types.TimeRange]()
	}

	tr, ok := s.widget.TimeRange()
	if !ok || !tr.IsValid() {
		return optional.None[types.TimeRange]()
	}

	return optional.Some(tr)
}

func (s *widgetSource) PriceRange() optional.Option[types.PriceRange] {
	if !s.IsReady() {
		return optional.None[types.PriceRange]()
	}

	pr, ok := s.widget.PriceRange()
	if !ok || !pr.IsValid() {
		return optional.None[types.PriceRange]()
	}

	return optional.Some(pr)
}

func (s *widgetSource) Rect() types.Rect {
	if s.disposed.Load() {
		return types.Rect{}
	}

	return s.widget.Rect()
}

func (s *widgetSource) Snapshot() optional.Option[types.Viewport] {
	tr := s.TimeRange()
	if tr.IsNone() {
		return optional.None[types.Viewport]()
	}

	pr := s.PriceRange()
	if pr.IsNone() {
		return optional.None[types.Viewport]()
	}

	rect := s.Rect()
	if !rect.IsValid() {
		return optional.None[types.Viewport]()
	}

	return optional.Some(types.Viewport{
		Time:  tr.Unwrap(),
		Price: pr.Unwrap(),
		Rect:  rect,
	})
}

func (s *widgetSource) Generation() uint64 {
	return s.generation
}

func (s *widgetSource) OnChange(fn func()) {
	if s.disposed.Load() {
		return
	}

	s.mu.Lock()
	s.onChange = append(s.onChange, fn)
	register := !s.changeSet
	s.changeSet = true
	s.mu.Unlock()

	// The widget gets one fan-out callback regardless of how many listeners
	// attach to the source.
	if register {
		s.widget.OnRangeChange(func() {
			if s.disposed.Load() {
				return
			}

			s.mu.Lock()
			listeners := make([]func(), len(s.onChange))
			copy(listeners, s.onChange)
			s.mu.Unlock()

			for _, listener := range listeners {
				listener()
			}
		})
	}
}

func (s *widgetSource) Dispose() {
	s.disposed.Store(true)
	s.ready.Store(false)
	s.destroy.Do(s.widget.Destroy)
}

func (s *widgetSource) Disposed() bool {
	return s.disposed.Load()
}
