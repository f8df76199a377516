package models

import "math"

// tickBands is the exchange price ladder: each band's upper bound
// (exclusive) and the tick size within it.
var tickBands = []struct {
	upper float64
	tick  float64
}{
	{2, 0.01},
	{3, 0.02},
	{4, 0.05},
	{6, 0.1},
	{10, 0.2},
	{20, 0.5},
	{30, 1},
	{50, 2},
	{math.MaxFloat64, 5},
}

// TickSize returns the minimum legal price increment at the given odds
func TickSize(price float64) float64 {
	for _, b := range tickBands {
		if price < b.upper {
			return b.tick
		}
	}
	return 5
}

// SnapToTick rounds a price onto the exchange ladder. Prices below the
// ladder floor clamp to 1.01.
func SnapToTick(price float64) float64 {
	if price < 1.01 {
		return 1.01
	}
	tick := TickSize(price)
	snapped := math.Round(price/tick) * tick
	return math.Round(snapped*100) / 100
}

// WithinOneTick reports whether two prices are equal or at most one
// exchange tick apart. The tick at the lower of the two prices is
// used, with a small epsilon for float comparison.
func WithinOneTick(a, b float64) bool {
	lo, hi := a, b
	if lo > hi {
		lo, hi = hi, lo
	}
	return hi-lo <= TickSize(lo)+1e-9
}
