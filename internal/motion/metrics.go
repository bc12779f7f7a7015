package motion

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// snrEpsilon keeps DerivativeSNR finite for very quiet backgrounds.
const snrEpsilon = 1e-8

// Metrics scores one (derivative, mask) pair.
type Metrics struct {
	SNR                   float64 `json:"snr"`
	LargestComponentRatio float64 `json:"largest_component_ratio"`
	MotionPercentage      float64 `json:"motion_percentage"`
}

// Score computes all metrics for a derivative and a mask derived from it.
func Score(d *Frame, m *Mask) Metrics {
	return Metrics{
		SNR:                   DerivativeSNR(d),
		LargestComponentRatio: LargestComponentRatio(m),
		MotionPercentage:      MotionPercentage(m),
	}
}

// DerivativeSNR estimates the signal-to-noise ratio of a derivative.
//
// Signal is the mean of |d| over pixels at or above the 95th percentile;
// noise is the population standard deviation of |d| over pixels at or below
// the 50th percentile. The result is mean(signal) / (std(noise) + 1e-8).
// It is 0 when the background set is empty or has no spread, including the
// case where every derivative value is the same.
func DerivativeSNR(d *Frame) float64 {
	abs := magnitudes(d)
	if len(abs) == 0 {
		return 0
	}
	sorted := sortedCopy(abs)
	hi := percentileSorted(sorted, 95)
	mid := percentileSorted(sorted, 50)

	var fg, bg []float64
	for _, v := range abs {
		if v >= hi {
			fg = append(fg, v)
		}
		if v <= mid {
			bg = append(bg, v)
		}
	}
	if len(bg) == 0 || floats.Max(bg) == floats.Min(bg) {
		return 0
	}
	sd := stat.PopStdDev(bg, nil)
	if sd == 0 {
		return 0
	}
	return stat.Mean(fg, nil) / (sd + snrEpsilon)
}

// MotionPercentage is the share of foreground pixels, 0-100.
func MotionPercentage(m *Mask) float64 {
	if len(m.Pix) == 0 {
		return 0
	}
	return 100 * float64(m.Count()) / float64(len(m.Pix))
}

// LargestComponentRatio returns the size of the largest 4-connected
// foreground component divided by the total foreground count.
//
// Values near 1 mean motion is concentrated in one blob; values near 0 mean
// it is fragmented. An empty mask scores 0. Pixels that touch only at a
// corner belong to different components.
func LargestComponentRatio(m *Mask) float64 {
	sizes := Components(m)
	if len(sizes) == 0 {
		return 0
	}
	total := 0
	for _, s := range sizes {
		total += s
	}
	return float64(sizes[0]) / float64(total)
}

// Components labels the 4-connected foreground components of m and returns
// their pixel counts, largest first.
func Components(m *Mask) []int {
	visited := make([]bool, len(m.Pix))
	var sizes []int
	for i, v := range m.Pix {
		if v == 0 || visited[i] {
			continue
		}
		sizes = append(sizes, fill(m, visited, i))
	}
	sort.Sort(sort.Reverse(sort.IntSlice(sizes)))
	return sizes
}

// fill marks the component containing start and returns its size.
// It uses an explicit stack so large blobs cannot overflow the call stack.
func fill(m *Mask, visited []bool, start int) int {
	w, h := m.Width, m.Height
	stack := []int{start}
	visited[start] = true
	size := 0

	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		size++

		x, y := i%w, i/w
		push := func(nx, ny int) {
			if nx < 0 || nx >= w || ny < 0 || ny >= h {
				return
			}
			j := ny*w + nx
			if m.Pix[j] != 0 && !visited[j] {
				visited[j] = true
				stack = append(stack, j)
			}
		}
		push(x-1, y)
		push(x+1, y)
		push(x, y-1)
		push(x, y+1)
	}
	return size
}
