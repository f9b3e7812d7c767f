// Package marker defines where overlay markers materialize. The projector
// decides what to draw; a Surface implementation (terminal chart, test fake,
// or any future frontend) owns the actual drawing.
package marker

import (
	"github.com/TheFahmi/binance-trading-bot/internal/types"
)

// Handle identifies one live marker on a surface.
type Handle string

// HoverHandler receives hover transitions for a marker. Enter is called with
// the pointer position in viewport coordinates; tooltips are positioned
// relative to the pointer, not the marker.
type HoverHandler struct {
	Enter func(pointerX, pointerY float64)
	Leave func()
}

// Surface is the drawing target for overlay markers. Implementations must
// tolerate Clear and RemoveMarker for handles that no longer exist, because
// a widget re-creation can wipe the underlying container out from under the
// projector.
type Surface interface {
	// CreateMarker draws a marker at the given viewport pixel offsets and
	// returns a handle for later removal.
	CreateMarker(mark types.Mark, x, y float64) (Handle, error)
	// RemoveMarker removes a single marker. Unknown handles are a no-op.
	RemoveMarker(handle Handle)
	// Clear removes every live marker.
	Clear()
	// BindHover attaches hover handlers to a live marker.
	BindHover(handle Handle, hover HoverHandler) error
	// ShowTooltip displays the singleton tooltip for the given kind at a
	// pointer-relative position, replacing any previous content.
	ShowTooltip(kind types.MarkKind, content string, x, y float64)
	// HideTooltip hides the singleton tooltip for the given kind.
	HideTooltip(kind types.MarkKind)
}

// TooltipOffset is the distance in pixels between the pointer and the
// tooltip's top-left corner.
const TooltipOffset = 12.0
