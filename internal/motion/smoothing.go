package motion

import (
	"fmt"
	"math"
)

// SpatialMethod names a per-frame 2D smoothing filter.
type SpatialMethod string

const (
	// SpatialNone leaves frames unsmoothed.
	SpatialNone SpatialMethod = "none"
	// SpatialBox3 is a 3x3 mean filter.
	SpatialBox3 SpatialMethod = "box_3x3"
	// SpatialBox5 is a 5x5 mean filter.
	SpatialBox5 SpatialMethod = "box_5x5"
	// SpatialGaussian is an isotropic Gaussian with a caller-supplied sigma.
	SpatialGaussian SpatialMethod = "gaussian"
)

// ParseSpatialMethod converts a method name to a SpatialMethod.
func ParseSpatialMethod(name string) (SpatialMethod, error) {
	switch m := SpatialMethod(name); m {
	case SpatialNone, SpatialBox3, SpatialBox5, SpatialGaussian:
		return m, nil
	}
	return "", invalidf("unknown spatial method %q", name)
}

// SpatialConfig selects a smoothing method and, for Gaussian smoothing, its sigma.
type SpatialConfig struct {
	Method SpatialMethod `json:"method" yaml:"method"`
	Sigma  float64       `json:"sigma,omitempty" yaml:"sigma,omitempty"`
}

// Validate reports whether the configuration can be applied.
func (c SpatialConfig) Validate() error {
	_, err := spatialWeights(c.Method, c.Sigma)
	return err
}

// Label is the display name used in tables and figure titles.
func (c SpatialConfig) Label() string {
	switch c.Method {
	case SpatialNone, "":
		return "None"
	case SpatialBox3:
		return "Box 3x3"
	case SpatialBox5:
		return "Box 5x5"
	case SpatialGaussian:
		return fmt.Sprintf("Gauss ss=%s", formatSigma(c.Sigma))
	}
	return string(c.Method)
}

// spatialWeights returns the 1D separable kernel for a method. A nil kernel
// with a nil error means the frame passes through unchanged.
func spatialWeights(method SpatialMethod, sigma float64) ([]float64, error) {
	switch method {
	case SpatialNone, "":
		return nil, nil
	case SpatialBox3:
		return boxWeights(3), nil
	case SpatialBox5:
		return boxWeights(5), nil
	case SpatialGaussian:
		if math.IsNaN(sigma) || math.IsInf(sigma, 0) || sigma < 0 {
			return nil, invalidf("gaussian smoothing sigma must be >= 0, got %v", sigma)
		}
		if sigma == 0 {
			return nil, nil
		}
		return gaussianWeights(sigma), nil
	}
	return nil, invalidf("unknown spatial method %q", method)
}

// SmoothFrame returns a smoothed copy of a single frame.
func SmoothFrame(f *Frame, method SpatialMethod, sigma float64) (*Frame, error) {
	weights, err := spatialWeights(method, sigma)
	if err != nil {
		return nil, err
	}
	return smoothFrame(f, weights), nil
}

func smoothFrame(f *Frame, weights []float64) *Frame {
	if weights == nil {
		return f.Clone()
	}
	return &Frame{
		Width:  f.Width,
		Height: f.Height,
		Pix:    correlate2D(f.Pix, f.Width, f.Height, weights),
	}
}

// Smooth applies the same spatial filter independently to every frame and
// returns a new sequence of the same length and shape. The input is not
// modified.
//
// Box filters take no parameter and ignore sigma. Gaussian smoothing accepts
// any sigma >= 0, fractional values included; sigma 0 copies the frames.
func Smooth(seq Sequence, method SpatialMethod, sigma float64) (Sequence, error) {
	if err := seq.Validate(); err != nil {
		return nil, err
	}
	weights, err := spatialWeights(method, sigma)
	if err != nil {
		return nil, err
	}

	out := make(Sequence, len(seq))
	for i, f := range seq {
		out[i] = smoothFrame(f, weights)
	}
	return out, nil
}

// formatSigma prints sigma the way parameter labels show it: 0.5, 1.5, 5.0.
func formatSigma(s float64) string {
	if s == math.Trunc(s) {
		return fmt.Sprintf("%.1f", s)
	}
	return fmt.Sprintf("%g", s)
}
