package render

import (
	"fmt"
	"image"
	"image/color"
	"os"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// Figure tiles are square; at the default 96 DPI a tile is 288 pixels.
const (
	tileSize = 3 * vg.Inch
	tileDPI  = vgimg.DefaultDPI
)

var (
	steelBlue = color.NRGBA{R: 70, G: 130, B: 180, A: 180}
	lineRed   = color.NRGBA{R: 220, G: 20, B: 20, A: 255}
)

// TilePixels is the edge length of one figure tile in pixels.
func TilePixels() int {
	return int(tileSize / vg.Inch * tileDPI)
}

func imagePanel(title string, img image.Image) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	b := img.Bounds()
	p.Add(plotter.NewImage(img, 0, 0, float64(b.Dx()), float64(b.Dy())))
	p.HideAxes()
	return p
}

// histogramPanel plots the density of values with a vertical line at thr.
// xmax > 0 clips the x axis.
func histogramPanel(title string, values []float64, thr, xmax float64) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "|Pixel Derivative Value|"
	p.Y.Label.Text = "Density"

	h, err := plotter.NewHist(plotter.Values(values), 100)
	if err != nil {
		return nil, errors.Wrap(err, "histogram")
	}
	h.Normalize(1)
	h.FillColor = steelBlue
	h.LineStyle.Width = 0
	p.Add(h)

	peak := 0.0
	for _, b := range h.Bins {
		if b.Weight > peak {
			peak = b.Weight
		}
	}
	line, err := plotter.NewLine(plotter.XYs{{X: thr, Y: 0}, {X: thr, Y: peak}})
	if err != nil {
		return nil, errors.Wrap(err, "threshold line")
	}
	line.Color = lineRed
	line.Width = vg.Points(2)
	p.Add(line)
	p.Legend.Add(fmt.Sprintf("thr=%.1f", thr), line)
	p.Legend.Top = true

	if xmax > 0 {
		p.X.Min = 0
		p.X.Max = xmax
	}
	return p, nil
}

// barPanel plots one labelled bar per value.
func barPanel(title, ylabel string, labels []string, values []float64) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = ylabel

	bars, err := plotter.NewBarChart(plotter.Values(values), vg.Points(16))
	if err != nil {
		return nil, errors.Wrap(err, "bar chart")
	}
	bars.Color = steelBlue
	bars.LineStyle.Width = 0
	p.Add(bars)
	p.NominalX(labels...)
	p.Y.Min = 0
	return p, nil
}

// writeFigure draws a grid of panels into one PNG. Nil panels and the
// missing cells of short rows are left blank.
func writeFigure(path string, rows [][]*plot.Plot) error {
	if len(rows) == 0 {
		return errors.New("figure has no panels")
	}
	cols := 0
	for _, r := range rows {
		if len(r) > cols {
			cols = len(r)
		}
	}
	grid := make([][]*plot.Plot, len(rows))
	for j, r := range rows {
		grid[j] = make([]*plot.Plot, cols)
		copy(grid[j], r)
	}

	img := vgimg.NewWith(
		vgimg.UseWH(vg.Length(cols)*tileSize, vg.Length(len(rows))*tileSize),
		vgimg.UseDPI(tileDPI),
	)
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows:      len(rows),
		Cols:      cols,
		PadX:      vg.Millimeter,
		PadY:      vg.Millimeter,
		PadTop:    vg.Millimeter,
		PadBottom: vg.Millimeter,
		PadLeft:   vg.Millimeter,
		PadRight:  vg.Millimeter,
	}
	canvases := plot.Align(grid, tiles, dc)
	for j := range grid {
		for i, p := range grid[j] {
			if p != nil {
				p.Draw(canvases[j][i])
			}
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create figure")
	}
	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(f); err != nil {
		f.Close()
		return errors.Wrapf(err, "write %s", path)
	}
	return errors.Wrapf(f.Close(), "close %s", path)
}
