package types

// TimeRange is the visible time window of a chart viewport in epoch milliseconds.
type TimeRange struct {
	// From is the inclusive start of the window in epoch milliseconds.
	From int64 `json:"from" yaml:"from"`
	// To is the inclusive end of the window in epoch milliseconds.
	To int64 `json:"to" yaml:"to"`
}

// IsValid reports whether the range is well-formed (To strictly after From).
func (r TimeRange) IsValid() bool {
	return r.To > r.From
}

// Contains reports whether ts falls inside the range. Values on either edge
// are considered in range; only strictly-outside values are rejected.
func (r TimeRange) Contains(ts int64) bool {
	return r.IsValid() && ts >= r.From && ts <= r.To
}

// Span returns the width of the range in milliseconds.
func (r TimeRange) Span() int64 {
	return r.To - r.From
}

// PriceRange is the visible price window of a chart viewport.
type PriceRange struct {
	// From is the inclusive lower price bound.
	From float64 `json:"from" yaml:"from"`
	// To is the inclusive upper price bound.
	To float64 `json:"to" yaml:"to"`
}

// IsValid reports whether the range is well-formed (To strictly above From).
func (r PriceRange) IsValid() bool {
	return r.To > r.From
}

// Contains reports whether price falls inside the range. Values on either
// edge are considered in range; only strictly-outside values are rejected.
func (r PriceRange) Contains(price float64) bool {
	return r.IsValid() && price >= r.From && price <= r.To
}

// Span returns the height of the range in price units.
func (r PriceRange) Span() float64 {
	return r.To - r.From
}

// Rect is the drawable size of a chart viewport in pixels (or terminal cells).
type Rect struct {
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// IsValid reports whether the rect has a positive drawable area.
func (r Rect) IsValid() bool {
	return r.Width > 0 && r.Height > 0
}

// Viewport is a full snapshot of the visible chart area. It is volatile:
// pan and zoom change it out of band, so it must be re-read from the chart
// before every projection rather than cached across polls.
type Viewport struct {
	Time  TimeRange  `json:"time_range" yaml:"time_range"`
	Price PriceRange `json:"price_range" yaml:"price_range"`
	Rect  Rect       `json:"rect" yaml:"rect"`
}

// IsValid reports whether every component of the viewport is usable.
func (v Viewport) IsValid() bool {
	return v.Time.IsValid() && v.Price.IsValid() && v.Rect.IsValid()
}
