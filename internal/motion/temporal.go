package motion

import (
	"fmt"
	"math"
)

// TemporalMethod names a temporal derivative estimator.
type TemporalMethod string

const (
	// TemporalSimple is the central difference 0.5*[-1, 0, 1].
	TemporalSimple TemporalMethod = "simple"
	// TemporalGaussian is a first-order derivative-of-Gaussian kernel.
	TemporalGaussian TemporalMethod = "gaussian"
)

// ParseTemporalMethod converts a method name to a TemporalMethod.
func ParseTemporalMethod(name string) (TemporalMethod, error) {
	switch m := TemporalMethod(name); m {
	case TemporalSimple, TemporalGaussian:
		return m, nil
	}
	return "", invalidf("unknown temporal method %q", name)
}

// TemporalConfig selects a derivative estimator. Sigma is only used by
// TemporalGaussian and must be positive there.
type TemporalConfig struct {
	Method TemporalMethod `json:"method" yaml:"method"`
	Sigma  float64        `json:"sigma,omitempty" yaml:"sigma,omitempty"`
}

// Validate reports whether the configuration can be evaluated.
func (c TemporalConfig) Validate() error {
	switch c.Method {
	case TemporalSimple:
		return nil
	case TemporalGaussian:
		if math.IsNaN(c.Sigma) || math.IsInf(c.Sigma, 0) || c.Sigma <= 0 {
			return invalidf("temporal sigma must be > 0, got %v", c.Sigma)
		}
		return nil
	}
	return invalidf("unknown temporal method %q", c.Method)
}

// Margin is the number of frames the estimator needs on each side of the
// target index. It is 0 for an invalid configuration.
func (c TemporalConfig) Margin() int {
	switch c.Method {
	case TemporalSimple:
		return 1
	case TemporalGaussian:
		if c.Sigma > 0 {
			return int(math.Ceil(3 * c.Sigma))
		}
	}
	return 0
}

// Label is the display name used in tables and figure titles.
func (c TemporalConfig) Label() string {
	switch c.Method {
	case TemporalSimple:
		return "Simple [-1,0,1]"
	case TemporalGaussian:
		return fmt.Sprintf("DoG ts=%s", formatSigma(c.Sigma))
	}
	return string(c.Method)
}

// FrameRange is the inclusive span of frame indices a derivative was
// computed from.
type FrameRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

func (r FrameRange) String() string {
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}

// Derivative is a signed temporal derivative estimate at one frame index.
type Derivative struct {
	*Frame
	Index  int
	Range  FrameRange
	Config TemporalConfig
}

// Available reports whether cfg can be evaluated at index t of a sequence
// of n frames.
func Available(t, n int, cfg TemporalConfig) bool {
	if cfg.Validate() != nil {
		return false
	}
	m := cfg.Margin()
	return t-m >= 0 && t+m < n
}

// Temporal evaluates the estimator selected by cfg at index t.
//
// A nil *Derivative with a nil error means the estimator's support does not
// fit inside the sequence at t.
func Temporal(seq Sequence, t int, cfg TemporalConfig) (*Derivative, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Method {
	case TemporalSimple:
		return SimpleDerivative(seq, t)
	default:
		return GaussianDerivative(seq, t, cfg.Sigma)
	}
}

// SimpleDerivative returns 0.5*(seq[t+1] - seq[t-1]).
//
// It returns nil when t is 0 or t >= len(seq)-1. Only frames t-1 and t+1 are
// read.
func SimpleDerivative(seq Sequence, t int) (*Derivative, error) {
	if len(seq) == 0 {
		return nil, invalidf("empty frame sequence")
	}
	cfg := TemporalConfig{Method: TemporalSimple}
	if !Available(t, len(seq), cfg) {
		return nil, nil
	}

	prev, next := seq[t-1], seq[t+1]
	mustMatch(prev, next)

	d := NewFrame(prev.Width, prev.Height)
	for i := range d.Pix {
		d.Pix[i] = 0.5 * (next.Pix[i] - prev.Pix[i])
	}
	return &Derivative{
		Frame:  d,
		Index:  t,
		Range:  FrameRange{Start: t - 1, End: t + 1},
		Config: cfg,
	}, nil
}

// GaussianDerivative applies a first-order derivative-of-Gaussian kernel
// along time at every pixel and returns the value at index t.
//
// Parameters:
//   - seq: the frame sequence
//   - t: target frame index
//   - sigma: temporal standard deviation in frames, must be > 0
//
// The window is [t-m, t+m] with m = ceil(3*sigma). It returns nil when the
// window does not fit inside the sequence. The kernel itself reaches
// int(4*sigma+0.5) frames from the centre; taps beyond the window edge are
// mirror-reflected back into it, so no frame outside the window is read.
func GaussianDerivative(seq Sequence, t int, sigma float64) (*Derivative, error) {
	if len(seq) == 0 {
		return nil, invalidf("empty frame sequence")
	}
	cfg := TemporalConfig{Method: TemporalGaussian, Sigma: sigma}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !Available(t, len(seq), cfg) {
		return nil, nil
	}

	m := cfg.Margin()
	window := seq[t-m : t+m+1]
	for _, f := range window[1:] {
		mustMatch(window[0], f)
	}

	weights := gaussianDerivativeWeights(sigma)
	r := len(weights) / 2
	n := len(window)
	c := m

	// Odd kernel: pair taps +j and -j so a constant signal yields exactly 0.
	d := NewFrame(window[0].Width, window[0].Height)
	for j := 1; j <= r; j++ {
		w := weights[j+r]
		ahead := window[reflect(c+j, n)].Pix
		behind := window[reflect(c-j, n)].Pix
		for i := range d.Pix {
			d.Pix[i] += w * (ahead[i] - behind[i])
		}
	}

	return &Derivative{
		Frame:  d,
		Index:  t,
		Range:  FrameRange{Start: t - m, End: t + m},
		Config: cfg,
	}, nil
}
