// Package motion implements temporal-derivative motion detection over an
// in-memory grayscale frame sequence.
//
// The pipeline has four stages, each a pure function over immutable inputs:
//
//	Sequence -> Smooth (optional) -> Temporal derivative -> Threshold -> Score
//
// # Frames
//
// A Frame is a row-major float64 intensity grid. Pixel (x, y) lives at
// Pix[y*Width+x], with (0,0) at the top-left corner. A Sequence is an ordered
// slice of frames sharing one shape; index 0 is the earliest frame.
//
// # Temporal Derivatives
//
// Two estimators are provided:
//   - SimpleDerivative: the central difference 0.5*(f[t+1] - f[t-1])
//   - GaussianDerivative: a first-order derivative-of-Gaussian kernel with
//     temporal sigma s, evaluated over the window [t-ceil(3s), t+ceil(3s)]
//
// When the target index is too close to either end of the sequence for the
// requested kernel, both functions return a nil *Derivative and a nil error.
// A nil derivative means "not computable here", never "no motion".
//
// # Thresholds
//
// ThresholdFixed, ThresholdPercentile and ThresholdNoiseModel turn a
// derivative into a binary Mask. A pixel is foreground iff its absolute
// derivative is strictly greater than the threshold.
//
// # Metrics
//
// DerivativeSNR, LargestComponentRatio and MotionPercentage score a
// derivative and its mask. Connected components use 4-connectivity
// (up, down, left, right); diagonal neighbours are separate components.
//
// # Boundary Handling
//
// Spatial kernels and temporal kernels that extend past the available data
// mirror-reflect indices back into range (d c b a | a b c d | d c b a).
//
// # Errors
//
// Configuration problems (unknown method, bad sigma, empty sequence) wrap
// ErrInvalidConfiguration. Frames of different shapes passed to the same
// operation cause a panic; callers are expected to validate sequences at
// their loading boundary with Sequence.Validate.
package motion
