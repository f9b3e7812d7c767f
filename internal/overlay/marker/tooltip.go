package marker

import (
	"fmt"
	"sync"
	"time"

	"github.com/TheFahmi/binance-trading-bot/internal/types"
)

// Tooltips coordinates the two singleton tooltips (one per marker kind).
// At most one tooltip per kind is ever visible; showing a new one replaces
// the previous one of the same kind.
type Tooltips struct {
	mu      sync.Mutex
	surface Surface
	visible map[types.MarkKind]bool
}

// NewTooltips creates the tooltip controller for a surface.
func NewTooltips(surface Surface) *Tooltips {
	return &Tooltips{
		surface: surface,
		visible: make(map[types.MarkKind]bool),
	}
}

// Show displays the tooltip for the mark's kind next to the pointer.
func (t *Tooltips) Show(mark types.Mark, pointerX, pointerY float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.surface.ShowTooltip(mark.Kind, FormatTooltip(mark), pointerX+TooltipOffset, pointerY+TooltipOffset)
	t.visible[mark.Kind] = true
}

// Hide hides the tooltip for a kind. Hiding an already hidden tooltip is a
// no-op.
func (t *Tooltips) Hide(kind types.MarkKind) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.visible[kind] {
		return
	}

	t.surface.HideTooltip(kind)
	t.visible[kind] = false
}

// HideAll hides both tooltips. Called when markers are cleared so no tooltip
// outlives the marker it belongs to.
func (t *Tooltips) HideAll() {
	t.Hide(types.MarkKindPosition)
	t.Hide(types.MarkKindSignal)
}

// Visible reports whether the tooltip for a kind is currently shown.
func (t *Tooltips) Visible(kind types.MarkKind) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.visible[kind]
}

// FormatTooltip renders the hover content for a mark.
func FormatTooltip(mark types.Mark) string {
	switch mark.Kind {
	case types.MarkKindPosition:
		if mark.Position.IsSome() {
			p := mark.Position.Unwrap()

			return fmt.Sprintf("%s %s\nEntry: %s\nSize: %s\nPnL: %s",
				mark.Symbol, p.Side, p.EntryPrice.String(), p.Size.String(), p.PnL.String())
		}
	case types.MarkKindSignal:
		if mark.Signal.IsSome() {
			s := mark.Signal.Unwrap()

			return fmt.Sprintf("%s %s @ %s\n%s\nRSI: %.1f  MACD: %.2f/%.2f",
				mark.Symbol, s.Type, s.Price.String(),
				time.UnixMilli(s.Timestamp).UTC().Format("2006-01-02 15:04"),
				s.Indicators.RSI, s.Indicators.MACDLine, s.Indicators.MACDSignal)
		}
	}

	return mark.Title
}
