package overlaytest

import (
	"fmt"
	"sync"

	"github.com/TheFahmi/binance-trading-bot/internal/overlay/marker"
	"github.com/TheFahmi/binance-trading-bot/internal/types"
	"github.com/google/uuid"
)

// PlacedMarker records one marker created on the fake surface.
type PlacedMarker struct {
	Mark  types.Mark
	X     float64
	Y     float64
	Hover marker.HoverHandler
}

// FakeSurface records marker and tooltip operations. FailKeys lets tests
// inject a per-marker fault to verify the projector isolates it.
type FakeSurface struct {
	mu       sync.Mutex
	markers  map[marker.Handle]*PlacedMarker
	tooltips map[types.MarkKind]string
	// FailKeys contains mark keys whose creation should fail.
	FailKeys map[string]bool
	// PanicKeys contains mark keys whose creation should panic.
	PanicKeys map[string]bool
}

// NewFakeSurface creates an empty surface.
func NewFakeSurface() *FakeSurface {
	return &FakeSurface{
		markers:   make(map[marker.Handle]*PlacedMarker),
		tooltips:  make(map[types.MarkKind]string),
		FailKeys:  make(map[string]bool),
		PanicKeys: make(map[string]bool),
	}
}

// CreateMarker implements marker.Surface.
func (s *FakeSurface) CreateMarker(mark types.Mark, x, y float64) (marker.Handle, error) {
	if s.PanicKeys[mark.Key] {
		panic(fmt.Sprintf("surface exploded on %s", mark.Key))
	}

	if s.FailKeys[mark.Key] {
		return "", fmt.Errorf("surface rejected marker %s", mark.Key)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	handle := marker.Handle(uuid.NewString())
	s.markers[handle] = &PlacedMarker{Mark: mark, X: x, Y: y}

	return handle, nil
}

// RemoveMarker implements marker.Surface.
func (s *FakeSurface) RemoveMarker(handle marker.Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.markers, handle)
}

// Clear implements marker.Surface.
func (s *FakeSurface) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.markers = make(map[marker.Handle]*PlacedMarker)
}

// BindHover implements marker.Surface.
func (s *FakeSurface) BindHover(handle marker.Handle, hover marker.HoverHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	placed, ok := s.markers[handle]
	if !ok {
		return fmt.Errorf("no marker with handle %s", handle)
	}

	placed.Hover = hover

	return nil
}

// ShowTooltip implements marker.Surface.
func (s *FakeSurface) ShowTooltip(kind types.MarkKind, content string, x, y float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tooltips[kind] = content
}

// HideTooltip implements marker.Surface.
func (s *FakeSurface) HideTooltip(kind types.MarkKind) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.tooltips, kind)
}

// Markers returns a snapshot of the live markers.
func (s *FakeSurface) Markers() []PlacedMarker {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]PlacedMarker, 0, len(s.markers))
	for _, m := range s.markers {
		out = append(out, *m)
	}

	return out
}

// MarkerCount returns the number of live markers.
func (s *FakeSurface) MarkerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.markers)
}

// MarkerKeys returns the set of live marker keys.
func (s *FakeSurface) MarkerKeys() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make(map[string]int)
	for _, m := range s.markers {
		keys[m.Mark.Key]++
	}

	return keys
}

// TooltipContent returns the visible tooltip content for a kind, empty when
// hidden.
func (s *FakeSurface) TooltipContent(kind types.MarkKind) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.tooltips[kind]
}

// HoverFirst simulates a hover-enter on the first marker matching the key.
func (s *FakeSurface) HoverFirst(key string, pointerX, pointerY float64) bool {
	s.mu.Lock()
	var target *PlacedMarker
	for _, m := range s.markers {
		if m.Mark.Key == key {
			target = m

			break
		}
	}
	s.mu.Unlock()

	if target == nil || target.Hover.Enter == nil {
		return false
	}

	target.Hover.Enter(pointerX, pointerY)

	return true
}

// LeaveFirst simulates a hover-leave on the first marker matching the key.
func (s *FakeSurface) LeaveFirst(key string) bool {
	s.mu.Lock()
	var target *PlacedMarker
	for _, m := range s.markers {
		if m.Mark.Key == key {
			target = m

			break
		}
	}
	s.mu.Unlock()

	if target == nil || target.Hover.Leave == nil {
		return false
	}

	target.Hover.Leave()

	return true
}
