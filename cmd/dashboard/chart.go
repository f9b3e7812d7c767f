package main

import (
	"math"
	"strings"
	"sync"

	"github.com/TheFahmi/binance-trading-bot/internal/overlay/marker"
	"github.com/TheFahmi/binance-trading-bot/internal/types"
	"github.com/TheFahmi/binance-trading-bot/pkg/errors"
	"github.com/google/uuid"
)

// pricePadding widens the visible price range beyond the candle extremes so
// bars never touch the chart edge.
const pricePadding = 0.02

// defaultVisibleCandles is the initial zoom level.
const defaultVisibleCandles = 60

// placedMark is one marker pinned to chart pixel coordinates.
type placedMark struct {
	mark  types.Mark
	x     float64
	y     float64
	hover marker.HoverHandler
}

// tooltipState is one visible tooltip.
type tooltipState struct {
	content string
	x       float64
	y       float64
}

// Chart is the terminal candlestick chart. It is the stable drawing surface
// markers project onto; each selection change swaps its candle series and
// hands the engine a fresh widget view.
//
// Chart implements marker.Surface directly. The per-selection widgets
// returned by Reset implement viewport.Widget. One terminal cell is one
// pixel unit, so the coordinate mapper's output lands directly on cells.
type Chart struct {
	mu        sync.Mutex
	selection types.Selection
	candles   []types.Candle
	offset    int
	visible   int
	width     int
	height    int
	markers   map[marker.Handle]*placedMark
	tooltips  map[types.MarkKind]tooltipState
	changeFns map[int]func()
	nextFnID  int
}

// NewChart creates an empty chart sized for a typical terminal.
func NewChart() *Chart {
	return &Chart{
		visible:   defaultVisibleCandles,
		width:     80,
		height:    20,
		markers:   make(map[marker.Handle]*placedMark),
		tooltips:  make(map[types.MarkKind]tooltipState),
		changeFns: make(map[int]func()),
	}
}

// NewWidget returns a widget view over this chart for the given selection.
// The chart is NOT touched yet: the candles install on the widget's first
// OnReady registration, which the overlay engine only performs after its
// generation check. A widget created for an abandoned selection is destroyed
// before that point and never displaces the live series.
func (c *Chart) NewWidget(selection types.Selection, candles []types.Candle) *chartWidget {
	return &chartWidget{
		chart:     c,
		selection: selection,
		candles:   candles,
	}
}

// Reset installs a selection and candle series immediately and returns its
// widget view, already installed. Callers that race against selection
// switches use NewWidget instead.
func (c *Chart) Reset(selection types.Selection, candles []types.Candle) *chartWidget {
	c.install(selection, candles)

	return &chartWidget{
		chart:     c,
		selection: selection,
		candles:   candles,
		installed: true,
	}
}

// install swaps the displayed selection and candle series.
func (c *Chart) install(selection types.Selection, candles []types.Candle) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.selection = selection
	c.candles = candles
	c.visible = defaultVisibleCandles

	if c.visible > len(candles) {
		c.visible = len(candles)
	}

	c.offset = len(candles) - c.visible
}

// Selection returns the pair and interval currently displayed.
func (c *Chart) Selection() types.Selection {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.selection
}

// SetSize resizes the drawable area in cells.
func (c *Chart) SetSize(width, height int) {
	if width < 10 {
		width = 10
	}

	if height < 5 {
		height = 5
	}

	c.mu.Lock()
	c.width = width
	c.height = height
	c.mu.Unlock()

	c.fireRangeChange()
}

// Pan shifts the visible window by delta candles. Positive pans toward
// newer candles.
func (c *Chart) Pan(delta int) {
	c.mu.Lock()
	c.offset = clampInt(c.offset+delta, 0, maxInt(0, len(c.candles)-c.visible))
	c.mu.Unlock()

	c.fireRangeChange()
}

// Zoom changes how many candles are visible. Positive delta zooms out.
func (c *Chart) Zoom(delta int) {
	c.mu.Lock()
	c.visible = clampInt(c.visible+delta, 10, maxInt(10, len(c.candles)))
	c.offset = clampInt(c.offset, 0, maxInt(0, len(c.candles)-c.visible))
	c.mu.Unlock()

	c.fireRangeChange()
}

// visibleCandles returns the candles inside the window. Caller holds the
// lock.
func (c *Chart) visibleCandles() []types.Candle {
	if len(c.candles) == 0 {
		return nil
	}

	end := c.offset + c.visible
	if end > len(c.candles) {
		end = len(c.candles)
	}

	return c.candles[c.offset:end]
}

// timeRange derives the visible time window. Caller holds the lock.
func (c *Chart) timeRange() (types.TimeRange, bool) {
	window := c.visibleCandles()
	if len(window) == 0 {
		return types.TimeRange{}, false
	}

	interval := types.IntervalDuration(c.selection.Interval)
	last := window[len(window)-1]

	return types.TimeRange{
		From: window[0].Time.UnixMilli(),
		To:   last.Time.Add(interval).UnixMilli(),
	}, true
}

// priceRange derives the visible price window with padding. Caller holds
// the lock.
func (c *Chart) priceRange() (types.PriceRange, bool) {
	window := c.visibleCandles()
	if len(window) == 0 {
		return types.PriceRange{}, false
	}

	low := math.Inf(1)
	high := math.Inf(-1)

	for _, candle := range window {
		low = math.Min(low, candle.Low)
		high = math.Max(high, candle.High)
	}

	pad := (high - low) * pricePadding
	if pad == 0 {
		pad = low * pricePadding
	}

	return types.PriceRange{From: low - pad, To: high + pad}, true
}

// fireRangeChange invokes registered pan/zoom callbacks outside the lock.
func (c *Chart) fireRangeChange() {
	c.mu.Lock()
	fns := make([]func(), 0, len(c.changeFns))

	for _, fn := range c.changeFns {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// addChangeFn registers a pan/zoom listener and returns its id so the
// owning widget can remove exactly its own listeners on Destroy.
func (c *Chart) addChangeFn(fn func()) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextFnID
	c.nextFnID++
	c.changeFns[id] = fn

	return id
}

// removeChangeFns drops the listeners with the given ids.
func (c *Chart) removeChangeFns(ids []int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, id := range ids {
		delete(c.changeFns, id)
	}
}

// CreateMarker implements marker.Surface.
func (c *Chart) CreateMarker(mark types.Mark, x, y float64) (marker.Handle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if x < 0 || y < 0 || x > float64(c.width) || y > float64(c.height) {
		return "", errors.Newf(errors.ErrCodeOutOfBounds, "marker %s at (%.1f, %.1f) is outside the %dx%d chart",
			mark.Key, x, y, c.width, c.height)
	}

	handle := marker.Handle(uuid.NewString())
	c.markers[handle] = &placedMark{mark: mark, x: x, y: y}

	return handle, nil
}

// RemoveMarker implements marker.Surface.
func (c *Chart) RemoveMarker(handle marker.Handle) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.markers, handle)
}

// Clear implements marker.Surface.
func (c *Chart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.markers = make(map[marker.Handle]*placedMark)
}

// BindHover implements marker.Surface.
func (c *Chart) BindHover(handle marker.Handle, hover marker.HoverHandler) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	placed, ok := c.markers[handle]
	if !ok {
		return errors.Newf(errors.ErrCodeMarkerNotFound, "no marker with handle %s", handle)
	}

	placed.hover = hover

	return nil
}

// ShowTooltip implements marker.Surface.
func (c *Chart) ShowTooltip(kind types.MarkKind, content string, x, y float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.tooltips[kind] = tooltipState{content: content, x: x, y: y}
}

// HideTooltip implements marker.Surface.
func (c *Chart) HideTooltip(kind types.MarkKind) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.tooltips, kind)
}

// MarkerCount returns the number of live markers.
func (c *Chart) MarkerCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.markers)
}

// sortedMarkers returns the live markers ordered by key for stable
// traversal. Caller holds the lock.
func (c *Chart) sortedMarkers() []*placedMark {
	marks := make([]*placedMark, 0, len(c.markers))
	for _, m := range c.markers {
		marks = append(marks, m)
	}

	for i := 1; i < len(marks); i++ {
		for j := i; j > 0 && marks[j].mark.Key < marks[j-1].mark.Key; j-- {
			marks[j], marks[j-1] = marks[j-1], marks[j]
		}
	}

	return marks
}

// HoverMarker simulates pointer entry on the index-th marker (key order)
// and returns its mark. Keyboard-driven hover for the terminal UI.
func (c *Chart) HoverMarker(index int) (types.Mark, bool) {
	c.mu.Lock()
	marks := c.sortedMarkers()

	if len(marks) == 0 {
		c.mu.Unlock()

		return types.Mark{}, false
	}

	target := marks[((index%len(marks))+len(marks))%len(marks)]
	enter := target.hover.Enter
	x, y := target.x, target.y
	c.mu.Unlock()

	if enter != nil {
		enter(x, y)
	}

	return target.mark, true
}

// LeaveAll simulates pointer exit from every marker.
func (c *Chart) LeaveAll() {
	c.mu.Lock()
	leaves := make([]func(), 0, len(c.markers))

	for _, m := range c.markers {
		if m.hover.Leave != nil {
			leaves = append(leaves, m.hover.Leave)
		}
	}
	c.mu.Unlock()

	for _, leave := range leaves {
		leave()
	}
}

// markGlyph picks the glyph for a marker shape.
func markGlyph(mark types.Mark) string {
	switch mark.Shape {
	case types.MarkShapeDiamond:
		return "◆"
	case types.MarkShapeTriangle:
		if mark.Signal.IsSome() && mark.Signal.Unwrap().Type == types.SignalTypeShort {
			return "▼"
		}

		return "▲"
	case types.MarkShapeCircle:
		return "●"
	default:
		return "●"
	}
}

// Render draws the visible candles, markers and tooltips into a string of
// exactly height lines.
func (c *Chart) Render() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	window := c.visibleCandles()
	if len(window) == 0 {
		return emptyChartStyle.Render("waiting for candles...")
	}

	pr, _ := c.priceRange()
	span := pr.To - pr.From

	type cell struct {
		glyph string
		style int
	}

	grid := make([][]cell, c.height)
	for row := range grid {
		grid[row] = make([]cell, c.width)
		for col := range grid[row] {
			grid[row][col] = cell{glyph: " "}
		}
	}

	// price to row, growing downward
	toRow := func(price float64) int {
		ratio := (pr.To - price) / span

		return clampInt(int(ratio*float64(c.height)), 0, c.height-1)
	}

	// distribute candles across columns
	for i, candle := range window {
		col := int(float64(i) / float64(len(window)) * float64(c.width))
		if col >= c.width {
			col = c.width - 1
		}

		style := styleBearish
		if candle.IsBullish() {
			style = styleBullish
		}

		wickTop := toRow(candle.High)
		wickBottom := toRow(candle.Low)
		bodyTop := toRow(math.Max(candle.Open, candle.Close))
		bodyBottom := toRow(math.Min(candle.Open, candle.Close))

		for row := wickTop; row <= wickBottom; row++ {
			grid[row][col] = cell{glyph: "│", style: style}
		}

		for row := bodyTop; row <= bodyBottom; row++ {
			grid[row][col] = cell{glyph: "█", style: style}
		}
	}

	// markers draw over candles
	for _, m := range c.sortedMarkers() {
		col := clampInt(int(m.x), 0, c.width-1)
		row := clampInt(int(m.y), 0, c.height-1)
		grid[row][col] = cell{glyph: markGlyph(m.mark), style: styleForColor(m.mark.Color)}
	}

	var b strings.Builder

	for row := range grid {
		for col := range grid[row] {
			b.WriteString(renderCell(grid[row][col].glyph, grid[row][col].style))
		}

		if row < len(grid)-1 {
			b.WriteString("\n")
		}
	}

	out := b.String()

	for _, kind := range []types.MarkKind{types.MarkKindPosition, types.MarkKindSignal} {
		if tip, ok := c.tooltips[kind]; ok {
			out += "\n" + tooltipStyle.Render(tip.content)
		}
	}

	return out
}

// chartWidget is the per-selection widget view handed to the overlay
// engine. It carries its candle series and installs it into the shared
// chart lazily, so a widget abandoned by a faster selection switch never
// touches what the chart currently displays. Destroying it detaches only
// its own listeners; the chart itself survives for the next selection.
type chartWidget struct {
	mu        sync.Mutex
	chart     *Chart
	selection types.Selection
	candles   []types.Candle
	installed bool
	destroyed bool
	fnIDs     []int
}

// OnReady implements viewport.Widget. The first registration installs the
// widget's candles into the chart and fires immediately; the engine only
// registers after confirming the widget belongs to the live generation.
func (w *chartWidget) OnReady(fn func()) {
	w.mu.Lock()
	if w.destroyed {
		w.mu.Unlock()

		return
	}

	install := !w.installed
	w.installed = true
	w.mu.Unlock()

	if install {
		w.chart.install(w.selection, w.candles)
	}

	fn()
}

// TimeRange implements viewport.Widget.
func (w *chartWidget) TimeRange() (types.TimeRange, bool) {
	if !w.isLive() {
		return types.TimeRange{}, false
	}

	w.chart.mu.Lock()
	defer w.chart.mu.Unlock()

	return w.chart.timeRange()
}

// PriceRange implements viewport.Widget.
func (w *chartWidget) PriceRange() (types.PriceRange, bool) {
	if !w.isLive() {
		return types.PriceRange{}, false
	}

	w.chart.mu.Lock()
	defer w.chart.mu.Unlock()

	return w.chart.priceRange()
}

// Rect implements viewport.Widget.
func (w *chartWidget) Rect() types.Rect {
	if !w.isLive() {
		return types.Rect{}
	}

	w.chart.mu.Lock()
	defer w.chart.mu.Unlock()

	return types.Rect{Width: float64(w.chart.width), Height: float64(w.chart.height)}
}

// OnRangeChange implements viewport.Widget.
func (w *chartWidget) OnRangeChange(fn func()) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.destroyed || !w.installed {
		return
	}

	w.fnIDs = append(w.fnIDs, w.chart.addChangeFn(fn))
}

// Destroy implements viewport.Widget. Only this widget's pan/zoom
// listeners are removed; a newer widget's wiring stays intact.
func (w *chartWidget) Destroy() {
	w.mu.Lock()
	w.destroyed = true
	ids := w.fnIDs
	w.fnIDs = nil
	w.mu.Unlock()

	w.chart.removeChangeFns(ids)
}

// isLive reports whether the widget is installed and not destroyed.
func (w *chartWidget) isLive() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.installed && !w.destroyed
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}

	if v > hi {
		return hi
	}

	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}

	return b
}
