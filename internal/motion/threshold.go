package motion

import (
	"fmt"
	"math"
	"strconv"
)

// madToSigma converts a median absolute deviation to the standard deviation
// of a Gaussian with the same MAD.
const madToSigma = 0.6745

// Mask is a binary motion mask; Pix holds 0 or 1 per pixel, row-major.
type Mask struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewMask returns an all-zero mask of the given size.
func NewMask(width, height int) *Mask {
	return &Mask{Width: width, Height: height, Pix: make([]uint8, width*height)}
}

// At returns the mask value at (x, y).
func (m *Mask) At(x, y int) uint8 {
	return m.Pix[y*m.Width+x]
}

// Count returns the number of foreground pixels.
func (m *Mask) Count() int {
	n := 0
	for _, v := range m.Pix {
		if v != 0 {
			n++
		}
	}
	return n
}

// Threshold is the outcome of applying a strategy to a derivative.
type Threshold struct {
	Mask  *Mask
	Value float64
	// SigmaNoise is the robust noise estimate; only the noise-model
	// strategy sets it.
	SigmaNoise float64
}

// maskAbove builds the mask |d| > value.
func maskAbove(d *Frame, value float64) *Mask {
	m := NewMask(d.Width, d.Height)
	for i, v := range d.Pix {
		if math.Abs(v) > value {
			m.Pix[i] = 1
		}
	}
	return m
}

// ThresholdFixed flags pixels whose |d| exceeds value.
func ThresholdFixed(d *Frame, value float64) Threshold {
	return Threshold{Mask: maskAbove(d, value), Value: value}
}

// ThresholdPercentile uses the p-th percentile of |d| (p in 0..100, clamped)
// as the threshold. At p=100 nothing can exceed the threshold and the mask
// is empty; at p=0 every pixel above the minimum is flagged.
func ThresholdPercentile(d *Frame, p float64) Threshold {
	thr := MagnitudePercentile(d, p)
	return Threshold{Mask: maskAbove(d, thr), Value: thr}
}

// ThresholdNoiseModel models background derivatives as Gaussian noise and
// flags pixels more than k noise standard deviations out.
//
// The noise sigma is estimated robustly from |d| as
//
//	sigma_noise = median(| |d| - median(|d|) |) / 0.6745
//
// and the threshold is k*sigma_noise. If every |d| is identical the MAD is
// 0, the threshold is 0, and every non-zero pixel is flagged.
func ThresholdNoiseModel(d *Frame, k float64) Threshold {
	abs := magnitudes(d)
	med := median(abs)
	dev := make([]float64, len(abs))
	for i, v := range abs {
		dev[i] = math.Abs(v - med)
	}
	sigma := median(dev) / madToSigma
	thr := k * sigma
	return Threshold{Mask: maskAbove(d, thr), Value: thr, SigmaNoise: sigma}
}

// Strategy is a thresholding policy with its parameter bound.
type Strategy interface {
	Apply(d *Frame) Threshold
	// Kind is the strategy family: "fixed", "percentile" or "noise_model".
	Kind() string
	// Param is the bound parameter as shown in tables.
	Param() string
	Label() string
}

// Fixed is the fixed-value strategy.
type Fixed struct{ Value float64 }

func (s Fixed) Apply(d *Frame) Threshold { return ThresholdFixed(d, s.Value) }
func (Fixed) Kind() string                { return "fixed" }
func (s Fixed) Param() string             { return formatParam(s.Value) }
func (s Fixed) Label() string             { return "Fixed=" + s.Param() }

// Percentile is the percentile-of-magnitude strategy.
type Percentile struct{ P float64 }

func (s Percentile) Apply(d *Frame) Threshold { return ThresholdPercentile(d, s.P) }
func (Percentile) Kind() string                { return "percentile" }
func (s Percentile) Param() string             { return formatParam(s.P) }
func (s Percentile) Label() string             { return "Pctl=" + s.Param() }

// NoiseModel is the MAD-based adaptive strategy.
type NoiseModel struct{ K float64 }

func (s NoiseModel) Apply(d *Frame) Threshold { return ThresholdNoiseModel(d, s.K) }
func (NoiseModel) Kind() string                { return "noise_model" }
func (s NoiseModel) Param() string             { return "k=" + formatParam(s.K) }
func (s NoiseModel) Label() string             { return fmt.Sprintf("Noise k=%s", formatSigma(s.K)) }

// ParseStrategy builds a strategy from its kind and parameter.
func ParseStrategy(kind string, param float64) (Strategy, error) {
	if math.IsNaN(param) {
		return nil, invalidf("%s threshold parameter is NaN", kind)
	}
	switch kind {
	case "fixed":
		if param < 0 {
			return nil, invalidf("fixed threshold must be >= 0, got %v", param)
		}
		return Fixed{Value: param}, nil
	case "percentile":
		if param < 0 || param > 100 {
			return nil, invalidf("percentile must be in [0, 100], got %v", param)
		}
		return Percentile{P: param}, nil
	case "noise_model":
		if param < 0 {
			return nil, invalidf("noise model k must be >= 0, got %v", param)
		}
		return NoiseModel{K: param}, nil
	}
	return nil, invalidf("unknown threshold strategy %q", kind)
}

func formatParam(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
