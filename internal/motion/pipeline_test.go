package motion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// squareEntersSequence is 5 gray frames of 20x20; a 4x4 bright square
// appears at frame 2 and stays.
func squareEntersSequence() Sequence {
	seq := constantSequence(5, 20, 20, 100)
	for i := 2; i < len(seq); i++ {
		paintRect(seq[i], 8, 8, 12, 12, 200)
	}
	return seq
}

func TestPipeline_SquareIsIsolated(t *testing.T) {
	seq := squareEntersSequence()

	d, err := SimpleDerivative(seq, 2)
	require.NoError(t, err)
	require.NotNil(t, d)

	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			inside := x >= 8 && x < 12 && y >= 8 && y < 12
			if inside {
				assert.Equal(t, 50.0, d.At(x, y))
			} else {
				assert.Equal(t, 0.0, d.At(x, y), "(%d,%d) outside the square", x, y)
			}
		}
	}

	thr := ThresholdPercentile(d.Frame, 95)
	assert.Equal(t, 0.0, thr.Value, "the square covers less than 5%% of pixels")
	assert.Equal(t, 16, thr.Mask.Count())
	for y := 8; y < 12; y++ {
		for x := 8; x < 12; x++ {
			assert.Equal(t, uint8(1), thr.Mask.At(x, y))
		}
	}
	assert.InDelta(t, 1.0, LargestComponentRatio(thr.Mask), 1e-12)
}

func TestPipeline_SingleFrameFlashIsInvisibleToCentralDifference(t *testing.T) {
	// The central difference skips the target frame itself.
	seq := constantSequence(5, 10, 10, 100)
	paintRect(seq[2], 3, 3, 6, 6, 255)

	d, err := SimpleDerivative(seq, 2)
	require.NoError(t, err)
	require.NotNil(t, d)
	for _, v := range d.Pix {
		assert.Equal(t, 0.0, v)
	}

	// Either neighbour sees the flash.
	d, err = SimpleDerivative(seq, 1)
	require.NoError(t, err)
	assert.Equal(t, 77.5, d.At(4, 4))
	assert.Equal(t, 0.0, d.At(0, 0))
}

func TestPipeline_TwoBlobsAreSeparateComponents(t *testing.T) {
	seq := constantSequence(7, 30, 30, 0)
	for i := 3; i < len(seq); i++ {
		paintRect(seq[i], 5, 5, 8, 8, 200)
		paintRect(seq[i], 20, 20, 23, 23, 200)
	}

	d, err := GaussianDerivative(seq, 3, 0.5)
	require.NoError(t, err)
	require.NotNil(t, d)

	thr := ThresholdPercentile(d.Frame, 95)
	assert.Equal(t, 18, thr.Mask.Count())
	assert.Equal(t, []int{9, 9}, Components(thr.Mask))

	ratio := LargestComponentRatio(thr.Mask)
	assert.Less(t, ratio, 1.0)
	assert.InDelta(t, 0.5, ratio, 1e-12)
}

func TestDerive_SmoothedWindow(t *testing.T) {
	seq := squareEntersSequence()

	raw, err := Derive(seq, 2, SpatialConfig{Method: SpatialNone}, TemporalConfig{Method: TemporalSimple})
	require.NoError(t, err)
	require.NotNil(t, raw)
	assert.Equal(t, 2, raw.Index)
	assert.Equal(t, FrameRange{Start: 1, End: 3}, raw.Range)

	smoothed, err := Derive(seq, 2, SpatialConfig{Method: SpatialBox3}, TemporalConfig{Method: TemporalSimple})
	require.NoError(t, err)
	require.NotNil(t, smoothed)

	// Smoothing spreads the square one pixel outward.
	assert.Equal(t, 0.0, raw.At(7, 9))
	assert.Greater(t, smoothed.At(7, 9), 0.0)
	assert.Less(t, smoothed.At(9, 9), raw.At(9, 9)+1e-9)
}

func TestDerive_Unavailable(t *testing.T) {
	seq := squareEntersSequence()
	d, err := Derive(seq, 2, SpatialConfig{Method: SpatialBox5}, TemporalConfig{Method: TemporalGaussian, Sigma: 1.5})
	require.NoError(t, err)
	assert.Nil(t, d)

	res, err := Analyze(seq, 2, SpatialConfig{}, TemporalConfig{Method: TemporalGaussian, Sigma: 5}, Percentile{P: 90})
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestDerive_InvalidConfiguration(t *testing.T) {
	seq := squareEntersSequence()

	_, err := Derive(seq, 2, SpatialConfig{Method: "median"}, TemporalConfig{Method: TemporalSimple})
	assert.ErrorIs(t, err, ErrInvalidConfiguration)

	_, err = Derive(seq, 2, SpatialConfig{}, TemporalConfig{Method: TemporalGaussian})
	assert.ErrorIs(t, err, ErrInvalidConfiguration)

	_, err = Derive(Sequence{}, 0, SpatialConfig{}, TemporalConfig{Method: TemporalSimple})
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestAnalyze(t *testing.T) {
	seq := squareEntersSequence()

	res, err := Analyze(seq, 2, SpatialConfig{Method: SpatialNone}, TemporalConfig{Method: TemporalSimple}, NoiseModel{K: 3})
	require.NoError(t, err)
	require.NotNil(t, res)

	// More than half the pixels are 0, so MAD is 0 and only the square survives.
	assert.Equal(t, 0.0, res.Threshold.Value)
	assert.Equal(t, 16, res.Threshold.Mask.Count())
	assert.InDelta(t, 4.0, res.Metrics.MotionPercentage, 1e-12)
	assert.InDelta(t, 1.0, res.Metrics.LargestComponentRatio, 1e-12)
	assert.Equal(t, 0.0, res.Metrics.SNR, "background has zero spread")
}
