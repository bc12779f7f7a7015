package motion

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rampSequence returns n frames where frame i is filled with a*i + b.
func rampSequence(n int, a, b float64) Sequence {
	seq := make(Sequence, n)
	for i := range seq {
		seq[i] = constantFrame(3, 2, a*float64(i)+b)
	}
	return seq
}

func TestSimpleDerivative_CentralDifference(t *testing.T) {
	seq := Sequence{
		FrameFromRows([][]float64{{1, 2}, {3, 4}}),
		FrameFromRows([][]float64{{0, 0}, {0, 0}}),
		FrameFromRows([][]float64{{5, 1}, {3, 10}}),
	}

	d, err := SimpleDerivative(seq, 1)
	require.NoError(t, err)
	require.NotNil(t, d)

	want := []float64{2, -0.5, 0, 3}
	if diff := cmp.Diff(want, d.Pix); diff != "" {
		t.Errorf("derivative mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, FrameRange{Start: 0, End: 2}, d.Range)
	assert.Equal(t, 1, d.Index)
	assert.Equal(t, TemporalSimple, d.Config.Method)
}

func TestSimpleDerivative_Boundaries(t *testing.T) {
	seq := rampSequence(5, 1, 0)

	for tIdx := -1; tIdx <= 6; tIdx++ {
		d, err := SimpleDerivative(seq, tIdx)
		require.NoError(t, err)
		if tIdx > 0 && tIdx < 4 {
			assert.NotNil(t, d, "t=%d should be available", tIdx)
		} else {
			assert.Nil(t, d, "t=%d should be unavailable", tIdx)
		}
	}
}

func TestSimpleDerivative_EmptySequence(t *testing.T) {
	_, err := SimpleDerivative(Sequence{}, 1)
	assert.True(t, errors.Is(err, ErrInvalidConfiguration))
}

func TestGaussianDerivative_Availability(t *testing.T) {
	tests := []struct {
		sigma  float64
		margin int
	}{
		{0.5, 2},
		{1.5, 5},
		{5.0, 15},
	}
	n := 33
	seq := rampSequence(n, 1, 0)

	for _, tt := range tests {
		cfg := TemporalConfig{Method: TemporalGaussian, Sigma: tt.sigma}
		assert.Equal(t, tt.margin, cfg.Margin())

		for tIdx := 0; tIdx < n; tIdx++ {
			d, err := GaussianDerivative(seq, tIdx, tt.sigma)
			require.NoError(t, err)
			interior := tIdx-tt.margin >= 0 && tIdx+tt.margin < n
			assert.Equal(t, interior, d != nil, "sigma=%v t=%d", tt.sigma, tIdx)
			assert.Equal(t, interior, Available(tIdx, n, cfg))
			if d != nil {
				assert.Equal(t, FrameRange{Start: tIdx - tt.margin, End: tIdx + tt.margin}, d.Range)
			}
		}
	}
}

func TestGaussianDerivative_ConstantIsExactlyZero(t *testing.T) {
	seq := constantSequence(31, 4, 4, 123.456)
	for _, sigma := range []float64{0.5, 1.5, 5} {
		d, err := GaussianDerivative(seq, 15, sigma)
		require.NoError(t, err)
		require.NotNil(t, d)
		for _, v := range d.Pix {
			assert.Equal(t, 0.0, v, "sigma=%v", sigma)
		}
	}
}

func TestGaussianDerivative_RampGain(t *testing.T) {
	// sigma 0.5 has radius 2 == margin 2, so no tap is reflected and the
	// response to a ramp of slope a is a * sum_j (2j * j/s^2 * phi(j)).
	const sigma, slope = 0.5, 3.0
	seq := rampSequence(9, slope, 10)

	phi := make([]float64, 5)
	var sum float64
	for j := -2; j <= 2; j++ {
		phi[j+2] = math.Exp(-0.5 * float64(j*j) / (sigma * sigma))
		sum += phi[j+2]
	}
	var gain float64
	for j := 1; j <= 2; j++ {
		gain += 2 * float64(j) * float64(j) / (sigma * sigma) * phi[j+2] / sum
	}

	d, err := GaussianDerivative(seq, 4, sigma)
	require.NoError(t, err)
	require.NotNil(t, d)
	for _, v := range d.Pix {
		assert.InDelta(t, slope*gain, v, 1e-9)
	}
	assert.Greater(t, d.Pix[0], 0.0, "rising intensity gives a positive derivative")
}

func TestGaussianDerivative_ReadsOnlyWindow(t *testing.T) {
	// sigma 1.5: kernel radius 6 exceeds margin 5, so taps must reflect
	// inside the window rather than reach frames 0..4 or 16..20.
	seq := rampSequence(21, 1, 0)
	for i := range seq {
		if i < 5 || i > 15 {
			seq[i] = constantFrame(3, 2, math.NaN())
		}
	}

	d, err := GaussianDerivative(seq, 10, 1.5)
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, FrameRange{Start: 5, End: 15}, d.Range)
	for _, v := range d.Pix {
		assert.False(t, math.IsNaN(v), "derivative read a frame outside its range")
		assert.Greater(t, v, 0.0)
	}
}

func TestGaussianDerivative_InvalidSigma(t *testing.T) {
	seq := rampSequence(5, 1, 0)
	for _, sigma := range []float64{0, -0.5, math.NaN()} {
		d, err := GaussianDerivative(seq, 2, sigma)
		assert.Nil(t, d)
		assert.True(t, errors.Is(err, ErrInvalidConfiguration), "sigma=%v", sigma)
	}
}

func TestTemporal_Dispatch(t *testing.T) {
	seq := rampSequence(7, 2, 0)

	d, err := Temporal(seq, 3, TemporalConfig{Method: TemporalSimple})
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, 2.0, d.Pix[0])

	d, err = Temporal(seq, 3, TemporalConfig{Method: TemporalGaussian, Sigma: 0.5})
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, FrameRange{Start: 1, End: 5}, d.Range)

	_, err = Temporal(seq, 3, TemporalConfig{Method: "sobel"})
	assert.True(t, errors.Is(err, ErrInvalidConfiguration))
}

func TestTemporalConfigLabel(t *testing.T) {
	assert.Equal(t, "Simple [-1,0,1]", TemporalConfig{Method: TemporalSimple}.Label())
	assert.Equal(t, "DoG ts=1.5", TemporalConfig{Method: TemporalGaussian, Sigma: 1.5}.Label())
	assert.Equal(t, "DoG ts=5.0", TemporalConfig{Method: TemporalGaussian, Sigma: 5}.Label())
}

func TestParseTemporalMethod(t *testing.T) {
	m, err := ParseTemporalMethod("gaussian")
	require.NoError(t, err)
	assert.Equal(t, TemporalGaussian, m)

	_, err = ParseTemporalMethod("forward")
	assert.True(t, errors.Is(err, ErrInvalidConfiguration))
}
