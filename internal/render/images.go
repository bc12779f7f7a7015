package render

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/png"
	"math"

	"github.com/anthonynsimon/bild/blend"
	"github.com/anthonynsimon/bild/imgio"
	"github.com/disintegration/imaging"
	"github.com/pkg/errors"

	"github.com/ironsheep/motion-tools-mcp/internal/motion"
)

// FrameImage converts intensities to 8-bit gray, clamping to [0, 255].
func FrameImage(f *motion.Frame) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, f.Width, f.Height))
	for i, v := range f.Pix {
		img.Pix[i] = toByte(v)
	}
	return img
}

func toByte(v float64) uint8 {
	switch {
	case math.IsNaN(v) || v <= 0:
		return 0
	case v >= 255:
		return 255
	}
	return uint8(math.Round(v))
}

// MaskImage draws motion pixels white and the rest black.
func MaskImage(m *motion.Mask) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	for i, v := range m.Pix {
		if v != 0 {
			img.Pix[i] = 255
		}
	}
	return img
}

// Overlay paints the mask's motion pixels white on top of frame f.
//
// The frame and mask must have the same shape.
func Overlay(f *motion.Frame, m *motion.Mask) *image.RGBA {
	return blend.Lighten(FrameImage(f), MaskImage(m))
}

// MagnitudeImage maps |d| onto the hot colormap, scaled to the largest
// magnitude in the frame. An all-zero derivative renders black.
func MagnitudeImage(d *motion.Frame) *image.NRGBA {
	peak := 0.0
	for _, v := range d.Pix {
		peak = math.Max(peak, math.Abs(v))
	}
	img := image.NewNRGBA(image.Rect(0, 0, d.Width, d.Height))
	for i, v := range d.Pix {
		t := 0.0
		if peak > 0 {
			t = math.Abs(v) / peak
		}
		img.Set(i%d.Width, i/d.Width, hot.at(t))
	}
	return img
}

// Heatmap maps the signed derivative onto a blue-white-red colormap
// symmetric about zero: negative change is blue, no change white, positive
// change red.
func Heatmap(d *motion.Frame) *image.NRGBA {
	peak := 0.0
	for _, v := range d.Pix {
		peak = math.Max(peak, math.Abs(v))
	}
	img := image.NewNRGBA(image.Rect(0, 0, d.Width, d.Height))
	for i, v := range d.Pix {
		t := 0.5
		if peak > 0 {
			t = 0.5 + 0.5*v/peak
		}
		img.Set(i%d.Width, i/d.Width, diverging.at(t))
	}
	return img
}

// Encoded is an image encoded as base64 PNG.
type Encoded struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// Encode PNG-encodes img, first enlarging it by an integer scale factor with
// nearest-neighbour sampling so small masks stay crisp. Scales below 2 leave
// the image as is.
func Encode(img image.Image, scale int) (*Encoded, error) {
	if scale > 1 {
		b := img.Bounds()
		img = imaging.Resize(img, b.Dx()*scale, b.Dy()*scale, imaging.NearestNeighbor)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, errors.Wrap(err, "encode png")
	}
	return &Encoded{
		Width:       img.Bounds().Dx(),
		Height:      img.Bounds().Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}

// Save writes img to path as PNG.
func Save(path string, img image.Image) error {
	if err := imgio.Save(path, img, imgio.PNGEncoder()); err != nil {
		return errors.Wrapf(err, "save %s", path)
	}
	return nil
}
