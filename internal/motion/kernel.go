package motion

import (
	"math"

	"github.com/anthonynsimon/bild/parallel"
)

// gaussianTruncate is how many standard deviations a Gaussian kernel spans
// on each side of its centre.
const gaussianTruncate = 4.0

// kernelRadius returns the half-width of a Gaussian kernel with the given sigma.
func kernelRadius(sigma float64) int {
	return int(gaussianTruncate*sigma + 0.5)
}

// gaussianWeights returns normalized Gaussian weights for offsets
// -r..r, where r = kernelRadius(sigma).
func gaussianWeights(sigma float64) []float64 {
	r := kernelRadius(sigma)
	w := make([]float64, 2*r+1)
	var sum float64
	for j := -r; j <= r; j++ {
		v := math.Exp(-0.5 * float64(j*j) / (sigma * sigma))
		w[j+r] = v
		sum += v
	}
	for i := range w {
		w[i] /= sum
	}
	return w
}

// gaussianDerivativeWeights returns correlation weights for a first-order
// derivative of Gaussian, w(j) = j/sigma^2 * phi(j), for offsets -r..r.
// The weights are odd: w(-j) == -w(j) and w(0) == 0.
func gaussianDerivativeWeights(sigma float64) []float64 {
	phi := gaussianWeights(sigma)
	r := len(phi) / 2
	w := make([]float64, len(phi))
	for j := -r; j <= r; j++ {
		w[j+r] = float64(j) / (sigma * sigma) * phi[j+r]
	}
	return w
}

// boxWeights returns a uniform kernel of the given odd size.
func boxWeights(size int) []float64 {
	w := make([]float64, size)
	for i := range w {
		w[i] = 1 / float64(size)
	}
	return w
}

// reflect maps an index into [0, n) by mirroring about the array edges,
// repeating the edge sample: -1 -> 0, -2 -> 1, n -> n-1, n+1 -> n-2.
func reflect(i, n int) int {
	if n == 1 {
		return 0
	}
	period := 2 * n
	i %= period
	if i < 0 {
		i += period
	}
	if i >= n {
		i = period - 1 - i
	}
	return i
}

// correlate2D applies a separable kernel along x, then along y.
// src and the returned slice are row-major width*height grids.
func correlate2D(src []float64, width, height int, weights []float64) []float64 {
	r := len(weights) / 2
	tmp := make([]float64, len(src))
	dst := make([]float64, len(src))

	parallel.Line(height, func(start, end int) {
		for y := start; y < end; y++ {
			row := src[y*width : (y+1)*width]
			out := tmp[y*width : (y+1)*width]
			for x := 0; x < width; x++ {
				var sum float64
				for k := -r; k <= r; k++ {
					sum += weights[k+r] * row[reflect(x+k, width)]
				}
				out[x] = sum
			}
		}
	})

	parallel.Line(height, func(start, end int) {
		for y := start; y < end; y++ {
			out := dst[y*width : (y+1)*width]
			for x := 0; x < width; x++ {
				var sum float64
				for k := -r; k <= r; k++ {
					sum += weights[k+r] * tmp[reflect(y+k, height)*width+x]
				}
				out[x] = sum
			}
		}
	})

	return dst
}
