package render

import (
	"image/color"
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
)

type stop struct {
	col colorful.Color
	pos float64
}

// gradient is a piecewise colormap over [0, 1].
type gradient struct {
	stops []stop
	blend func(a, b colorful.Color, t float64) colorful.Color
}

func (g gradient) at(t float64) color.NRGBA {
	if math.IsNaN(t) || t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	c := g.stops[len(g.stops)-1].col
	for i := 0; i < len(g.stops)-1; i++ {
		a, b := g.stops[i], g.stops[i+1]
		if t >= a.pos && t <= b.pos {
			c = g.blend(a.col, b.col, (t-a.pos)/(b.pos-a.pos))
			break
		}
	}
	r, gr, bl := c.Clamped().RGB255()
	return color.NRGBA{R: r, G: gr, B: bl, A: 255}
}

// hot runs black, red, yellow, white; used for derivative magnitude.
var hot = gradient{
	stops: []stop{
		{colorful.Color{R: 0, G: 0, B: 0}, 0},
		{colorful.Color{R: 1, G: 0, B: 0}, 0.375},
		{colorful.Color{R: 1, G: 1, B: 0}, 0.75},
		{colorful.Color{R: 1, G: 1, B: 1}, 1},
	},
	blend: colorful.Color.BlendRgb,
}

// diverging runs blue, white, red in CIE-Lab; used for signed derivatives.
var diverging = gradient{
	stops: []stop{
		{colorful.Color{R: 0.129, G: 0.400, B: 0.675}, 0},
		{colorful.Color{R: 1, G: 1, B: 1}, 0.5},
		{colorful.Color{R: 0.698, G: 0.094, B: 0.169}, 1},
	},
	blend: colorful.Color.BlendLab,
}
