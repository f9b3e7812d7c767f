// Package coords maps time/price domain values to pixel offsets within a
// chart viewport. All functions are pure; callers re-query the viewport
// before projecting because pan and zoom invalidate previous results.
package coords

import (
	"github.com/TheFahmi/binance-trading-bot/internal/types"
	"github.com/TheFahmi/binance-trading-bot/pkg/errors"
)

// ToX maps a timestamp (epoch milliseconds) to a horizontal pixel offset
// within [0, width]. The timestamp must fall inside the visible time range;
// strictly-outside values are rejected with ErrCodeOutOfBounds rather than
// producing a negative or overflowing offset.
func ToX(ts int64, tr types.TimeRange, width float64) (float64, error) {
	if !tr.IsValid() {
		return 0, errors.Newf(errors.ErrCodeInvalidRange, "time range [%d, %d] is not increasing", tr.From, tr.To)
	}

	if width <= 0 {
		return 0, errors.Newf(errors.ErrCodeInvalidRect, "viewport width %v is not positive", width)
	}

	if !tr.Contains(ts) {
		return 0, errors.Newf(errors.ErrCodeOutOfBounds, "timestamp %d outside visible range [%d, %d]", ts, tr.From, tr.To)
	}

	ratio := float64(ts-tr.From) / float64(tr.Span())

	return ratio * width, nil
}

// ToY maps a price to a vertical pixel offset within [0, height]. Offsets
// grow downward: the top of the viewport is the upper price bound. The price
// must fall inside the visible price range; strictly-outside values are
// rejected with ErrCodeOutOfBounds.
func ToY(price float64, pr types.PriceRange, height float64) (float64, error) {
	if !pr.IsValid() {
		return 0, errors.Newf(errors.ErrCodeInvalidRange, "price range [%v, %v] is not increasing", pr.From, pr.To)
	}

	if height <= 0 {
		return 0, errors.Newf(errors.ErrCodeInvalidRect, "viewport height %v is not positive", height)
	}

	if !pr.Contains(price) {
		return 0, errors.Newf(errors.ErrCodeOutOfBounds, "price %v outside visible range [%v, %v]", price, pr.From, pr.To)
	}

	ratio := (pr.To - price) / pr.Span()

	return ratio * height, nil
}

// FromX is the inverse of ToX: it recovers the timestamp at a horizontal
// pixel offset. Used by hover handling and round-trip tests.
func FromX(x float64, tr types.TimeRange, width float64) (int64, error) {
	if !tr.IsValid() {
		return 0, errors.Newf(errors.ErrCodeInvalidRange, "time range [%d, %d] is not increasing", tr.From, tr.To)
	}

	if width <= 0 {
		return 0, errors.Newf(errors.ErrCodeInvalidRect, "viewport width %v is not positive", width)
	}

	if x < 0 || x > width {
		return 0, errors.Newf(errors.ErrCodeOutOfBounds, "offset %v outside viewport width %v", x, width)
	}

	return tr.From + int64(x/width*float64(tr.Span())+0.5), nil
}

// FromY is the inverse of ToY: it recovers the price at a vertical pixel
// offset.
func FromY(y float64, pr types.PriceRange, height float64) (float64, error) {
	if !pr.IsValid() {
		return 0, errors.Newf(errors.ErrCodeInvalidRange, "price range [%v, %v] is not increasing", pr.From, pr.To)
	}

	if height <= 0 {
		return 0, errors.Newf(errors.ErrCodeInvalidRect, "viewport height %v is not positive", height)
	}

	if y < 0 || y > height {
		return 0, errors.Newf(errors.ErrCodeOutOfBounds, "offset %v outside viewport height %v", y, height)
	}

	return pr.To - y/height*pr.Span(), nil
}

// Project maps an event's (timestamp, price) pair into viewport pixel
// coordinates in one call.
func Project(ts int64, price float64, viewport types.Viewport) (x, y float64, err error) {
	x, err = ToX(ts, viewport.Time, viewport.Rect.Width)
	if err != nil {
		return 0, 0, err
	}

	y, err = ToY(price, viewport.Price, viewport.Rect.Height)
	if err != nil {
		return 0, 0, err
	}

	return x, y, nil
}
