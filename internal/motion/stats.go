package motion

import (
	"math"
	"sort"
)

// sortedCopy returns x sorted ascending without touching x.
func sortedCopy(x []float64) []float64 {
	s := make([]float64, len(x))
	copy(s, x)
	sort.Float64s(s)
	return s
}

// percentileSorted returns the p-th percentile (0-100) of an ascending
// slice, interpolating linearly between the two nearest order statistics.
// The rank of p is p/100*(n-1).
func percentileSorted(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	p = clampPercent(p)
	pos := p / 100 * float64(n-1)
	lo := int(math.Floor(pos))
	if lo >= n-1 {
		return sorted[n-1]
	}
	return lerp(sorted[lo], sorted[lo+1], pos-float64(lo))
}

// lerp interpolates from a to b, anchoring on whichever end is nearer so
// that t == 1 returns b exactly.
func lerp(a, b, t float64) float64 {
	diff := b - a
	if t >= 0.5 {
		return b - diff*(1-t)
	}
	return a + diff*t
}

func clampPercent(p float64) float64 {
	switch {
	case math.IsNaN(p), p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}

// median returns the middle value of x, averaging the two middle values
// for even lengths.
func median(x []float64) float64 {
	n := len(x)
	if n == 0 {
		return 0
	}
	s := sortedCopy(x)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}

// MagnitudePercentile returns the p-th percentile (0-100) of |d| over all pixels.
func MagnitudePercentile(d *Frame, p float64) float64 {
	return percentileSorted(sortedCopy(magnitudes(d)), p)
}
