package motion

import (
	"math"

	"github.com/pkg/errors"
)

// ErrInvalidConfiguration is wrapped by every error caused by an unusable
// method name, sigma, or input sequence.
var ErrInvalidConfiguration = errors.New("invalid configuration")

func invalidf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrInvalidConfiguration, format, args...)
}

// Frame is a grayscale intensity image stored row-major.
type Frame struct {
	Width  int
	Height int
	Pix    []float64
}

// NewFrame returns a zero-filled frame of the given size.
func NewFrame(width, height int) *Frame {
	return &Frame{
		Width:  width,
		Height: height,
		Pix:    make([]float64, width*height),
	}
}

// FrameFromRows builds a frame from a slice of equal-length rows.
// It panics if the rows are ragged.
func FrameFromRows(rows [][]float64) *Frame {
	if len(rows) == 0 {
		return NewFrame(0, 0)
	}
	f := NewFrame(len(rows[0]), len(rows))
	for y, row := range rows {
		if len(row) != f.Width {
			panic("motion: ragged rows")
		}
		copy(f.Pix[y*f.Width:], row)
	}
	return f
}

// At returns the intensity at (x, y).
func (f *Frame) At(x, y int) float64 {
	return f.Pix[y*f.Width+x]
}

// Set writes the intensity at (x, y). Frames are treated as immutable once
// handed to the pipeline; Set is for constructing them.
func (f *Frame) Set(x, y int, v float64) {
	f.Pix[y*f.Width+x] = v
}

// Clone returns a deep copy of the frame.
func (f *Frame) Clone() *Frame {
	c := &Frame{Width: f.Width, Height: f.Height, Pix: make([]float64, len(f.Pix))}
	copy(c.Pix, f.Pix)
	return c
}

// Len returns the number of pixels.
func (f *Frame) Len() int { return len(f.Pix) }

func (f *Frame) sameShape(g *Frame) bool {
	return f.Width == g.Width && f.Height == g.Height
}

func mustMatch(a, b *Frame) {
	if !a.sameShape(b) {
		panic("motion: frame shape mismatch")
	}
}

// Sequence is an ordered list of frames; index 0 is the earliest.
type Sequence []*Frame

// Validate checks that the sequence is non-empty, that every frame is
// non-empty, and that all frames share the first frame's shape.
func (s Sequence) Validate() error {
	if len(s) == 0 {
		return invalidf("empty frame sequence")
	}
	first := s[0]
	if first == nil || first.Width <= 0 || first.Height <= 0 {
		return invalidf("frame 0 is empty")
	}
	for i, f := range s {
		if f == nil {
			return invalidf("frame %d is nil", i)
		}
		if !f.sameShape(first) {
			return invalidf("frame %d is %dx%d, want %dx%d", i, f.Width, f.Height, first.Width, first.Height)
		}
		if len(f.Pix) != f.Width*f.Height {
			return invalidf("frame %d has %d pixels, want %d", i, len(f.Pix), f.Width*f.Height)
		}
	}
	return nil
}

// Width returns the frame width, or 0 for an empty sequence.
func (s Sequence) Width() int {
	if len(s) == 0 {
		return 0
	}
	return s[0].Width
}

// Height returns the frame height, or 0 for an empty sequence.
func (s Sequence) Height() int {
	if len(s) == 0 {
		return 0
	}
	return s[0].Height
}

// MiddleIndex is the default target index N/2 used by the report tooling.
func (s Sequence) MiddleIndex() int {
	return len(s) / 2
}

// magnitudes returns |v| for every pixel of f.
func magnitudes(f *Frame) []float64 {
	abs := make([]float64, len(f.Pix))
	for i, v := range f.Pix {
		abs[i] = math.Abs(v)
	}
	return abs
}
