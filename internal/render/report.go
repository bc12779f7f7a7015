package render

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gonum.org/v1/plot"

	"github.com/ironsheep/motion-tools-mcp/internal/config"
	"github.com/ironsheep/motion-tools-mcp/internal/motion"
	"github.com/ironsheep/motion-tools-mcp/internal/sweep"
)

// Figure file names.
const (
	TemporalMainFile       = "temporal_derivatives_only_main.png"
	StrategyComparisonFile = "strategy_comparison.png"
	StrategyMotionFile     = "strategy_motion.png"
)

// MaskSubdir holds the per-strategy mask and overlay PNGs under the
// threshold directory.
const MaskSubdir = "masks"

// mainPercentile is the percentile shown in the overview figures when the
// sweep includes it; otherwise the last percentile of each cell is shown.
const mainPercentile = "90"

var (
	temporalSafe = strings.NewReplacer(" ", "_", "[", "", "]", "", ",", "")
	spatialSafe  = strings.NewReplacer(" ", "_", "=", "")
)

// TemporalFileName turns a temporal label into a file-name fragment:
// "Simple [-1,0,1]" becomes "Simple_-101", "DoG ts=1.5" becomes "DoG_ts=1.5".
func TemporalFileName(label string) string { return temporalSafe.Replace(label) }

// SpatialFileName turns a spatial label into a file-name fragment:
// "Gauss ss=0.5" becomes "Gauss_ss0.5".
func SpatialFileName(label string) string { return spatialSafe.Replace(label) }

// FixedThresholdsFile is the fixed-threshold sweep figure for one filter.
func FixedThresholdsFile(temporal string) string {
	return "fixed_thresholds_" + TemporalFileName(temporal) + ".png"
}

// NoiseModelFile is the noise-model figure for one filter.
func NoiseModelFile(temporal string) string {
	return "Noise_model_adaptive_threshold_" + TemporalFileName(temporal) + ".png"
}

// Writer renders sweep reports into the results directories of a
// configuration.
type Writer struct {
	cfg *config.Config
	log zerolog.Logger
}

// NewWriter returns a writer for cfg's results directories.
func NewWriter(cfg *config.Config, log zerolog.Logger) *Writer {
	return &Writer{cfg: cfg, log: log}
}

// Write renders every report, plus the fixed-threshold and noise-model
// figures for each unsmoothed temporal filter, and returns the files written.
func (w *Writer) Write(seq motion.Sequence, reports []*sweep.Report) ([]string, error) {
	for _, dir := range []string{w.cfg.TemporalDir(), w.cfg.CombinedDir(), w.cfg.ThresholdDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(err, "create results directory")
		}
	}

	t := w.cfg.TargetIndex(len(seq))
	if t < 0 || t >= len(seq) {
		return nil, errors.Wrapf(motion.ErrInvalidConfiguration, "frame index %d out of range [0, %d)", t, len(seq))
	}

	var files []string
	for _, rep := range reports {
		var (
			out []string
			err error
		)
		switch rep.Experiment {
		case sweep.TemporalOnly:
			out, err = w.temporalOnly(seq, rep)
		case sweep.Combined:
			out, err = w.combined(seq, rep)
		case sweep.StrategyComparison:
			out, err = StrategyComparison(w.cfg.ThresholdDir(), seq[rep.FrameIndex], rep.Records)
			if err == nil {
				var masks []string
				masks, err = StrategyMasks(filepath.Join(w.cfg.ThresholdDir(), MaskSubdir), seq[rep.FrameIndex], rep.Records)
				out = append(out, masks...)
			}
		}
		if err != nil {
			return nil, errors.Wrapf(err, "render %s", rep.Experiment)
		}
		files = append(files, out...)
	}

	ds, err := sweep.Derivatives(seq, t, w.cfg.TemporalConfigs())
	if err != nil {
		return nil, err
	}
	for _, d := range ds {
		path, err := FixedThresholds(w.cfg.ThresholdDir(), seq[t], d, w.cfg.FixedThresholds)
		if err != nil {
			return nil, err
		}
		files = append(files, path)

		if path, err = NoiseModel(w.cfg.ThresholdDir(), seq[t], d, w.cfg.KValues); err != nil {
			return nil, err
		}
		files = append(files, path)
	}

	w.log.Info().Int("files", len(files)).Str("dir", w.cfg.ResultsDir).Msg("figures written")
	return files, nil
}

func (w *Writer) temporalOnly(seq motion.Sequence, rep *sweep.Report) ([]string, error) {
	dir := w.cfg.TemporalDir()
	center := seq[rep.FrameIndex]
	cells := groupCells(rep.Records)
	if len(cells) == 0 {
		return nil, nil
	}

	rows := [][]*plot.Plot{{imagePanel(fmt.Sprintf("Center Frame (t=%d)", rep.FrameIndex), FrameImage(center))}}
	for _, cell := range cells {
		r := pick(cell)
		rows = append(rows, append([]*plot.Plot{
			imagePanel(fmt.Sprintf("Frame %d", r.Range.Start), FrameImage(seq[r.Range.Start])),
			imagePanel(fmt.Sprintf("Frame %d", r.Range.End), FrameImage(seq[r.Range.End])),
		}, resultPanels(r.TemporalLabel, center, r)...))
	}

	files := []string{filepath.Join(dir, TemporalMainFile)}
	if err := w.save(files[0], rows); err != nil {
		return nil, err
	}
	for _, cell := range cells {
		name := "temporal_derivatives_only_percentile_compare_" + TemporalFileName(cell[0].TemporalLabel) + ".png"
		path := filepath.Join(dir, name)
		if err := w.save(path, maskRows(center, cell, percentileTitle)); err != nil {
			return nil, err
		}
		files = append(files, path)
	}
	return files, nil
}

func (w *Writer) combined(seq motion.Sequence, rep *sweep.Report) ([]string, error) {
	dir := w.cfg.CombinedDir()
	center := seq[rep.FrameIndex]

	var files []string
	bySpatial := groupBy(groupCells(rep.Records), func(c []sweep.Record) string { return c[0].SpatialLabel })
	for _, group := range bySpatial {
		spatial := group[0][0].Spatial
		label := group[0][0].SpatialLabel
		smooth := func(i int) (*motion.Frame, error) {
			return motion.SmoothFrame(seq[i], spatial.Method, spatial.Sigma)
		}

		smoothedCenter, err := smooth(rep.FrameIndex)
		if err != nil {
			return nil, err
		}
		rows := [][]*plot.Plot{{
			imagePanel("Original Frame", FrameImage(center)),
			imagePanel("After "+label, FrameImage(smoothedCenter)),
		}}
		for _, cell := range group {
			r := pick(cell)
			start, err := smooth(r.Range.Start)
			if err != nil {
				return nil, err
			}
			end, err := smooth(r.Range.End)
			if err != nil {
				return nil, err
			}
			rows = append(rows, append([]*plot.Plot{
				imagePanel(fmt.Sprintf("Smoothed Frame %d", r.Range.Start), FrameImage(start)),
				imagePanel(fmt.Sprintf("Smoothed Frame %d", r.Range.End), FrameImage(end)),
			}, resultPanels(r.TemporalLabel, center, r)...))
		}

		path := filepath.Join(dir, SpatialFileName(label)+".png")
		if err := w.save(path, rows); err != nil {
			return nil, err
		}
		files = append(files, path)

		for _, cell := range group {
			name := fmt.Sprintf("spatial_temporal_combined_percentile_%s_%s.png",
				SpatialFileName(label), TemporalFileName(cell[0].TemporalLabel))
			path := filepath.Join(dir, name)
			if err := w.save(path, maskRows(center, cell, percentileTitle)); err != nil {
				return nil, err
			}
			files = append(files, path)
		}
	}
	return files, nil
}

func (w *Writer) save(path string, rows [][]*plot.Plot) error {
	if err := writeFigure(path, rows); err != nil {
		return err
	}
	w.log.Debug().Str("file", path).Int("rows", len(rows)).Msg("wrote figure")
	return nil
}

// FixedThresholds writes the mask and overlay for each fixed threshold value
// applied to d, one column per value. It returns the file path.
func FixedThresholds(dir string, frame *motion.Frame, d *motion.Derivative, values []float64) (string, error) {
	masks := make([]*plot.Plot, len(values))
	overlays := make([]*plot.Plot, len(values))
	for i, v := range values {
		thr := motion.ThresholdFixed(d.Frame, v)
		title := fmt.Sprintf("thr=%s\n%.1f%%", motion.Fixed{Value: v}.Param(), motion.MotionPercentage(thr.Mask))
		masks[i] = imagePanel(title, MaskImage(thr.Mask))
		overlays[i] = imagePanel("", Overlay(frame, thr.Mask))
	}

	path := filepath.Join(dir, FixedThresholdsFile(d.Config.Label()))
	return path, writeFigure(path, [][]*plot.Plot{masks, overlays})
}

// NoiseModel writes, for each k, the |d| histogram with the noise-model
// threshold marked, the resulting mask and its overlay. The histogram's x
// axis stops at the 99.5th percentile of |d|.
func NoiseModel(dir string, frame *motion.Frame, d *motion.Derivative, ks []float64) (string, error) {
	abs := make([]float64, len(d.Pix))
	for i, v := range d.Pix {
		abs[i] = math.Abs(v)
	}
	xmax := motion.MagnitudePercentile(d.Frame, 99.5)

	hists := make([]*plot.Plot, len(ks))
	masks := make([]*plot.Plot, len(ks))
	overlays := make([]*plot.Plot, len(ks))
	for i, k := range ks {
		thr := motion.ThresholdNoiseModel(d.Frame, k)
		h, err := histogramPanel(fmt.Sprintf("%s (thr=%.2f)", motion.NoiseModel{K: k}.Param(), thr.Value), abs, thr.Value, xmax)
		if err != nil {
			return "", err
		}
		hists[i] = h
		masks[i] = imagePanel(fmt.Sprintf("Motion: %.1f%%", motion.MotionPercentage(thr.Mask)), MaskImage(thr.Mask))
		overlays[i] = imagePanel("", Overlay(frame, thr.Mask))
	}

	path := filepath.Join(dir, NoiseModelFile(d.Config.Label()))
	return path, writeFigure(path, [][]*plot.Plot{hists, masks, overlays})
}

// StrategyComparison writes the side-by-side masks of every strategy record
// and a bar chart of their motion percentages.
func StrategyComparison(dir string, frame *motion.Frame, records []sweep.Record) ([]string, error) {
	if len(records) == 0 {
		return nil, nil
	}
	grid := filepath.Join(dir, StrategyComparisonFile)
	if err := writeFigure(grid, maskRows(frame, records, func(r sweep.Record) string {
		return fmt.Sprintf("%s\nthr=%.1f, %.1f%%", r.StrategyLabel, r.Threshold, r.Metrics.MotionPercentage)
	})); err != nil {
		return nil, err
	}

	labels := make([]string, len(records))
	values := make([]float64, len(records))
	for i, r := range records {
		labels[i] = r.StrategyLabel
		values[i] = r.Metrics.MotionPercentage
	}
	bars, err := barPanel("Motion by strategy ("+records[0].TemporalLabel+")", "Motion %", labels, values)
	if err != nil {
		return nil, err
	}
	chart := filepath.Join(dir, StrategyMotionFile)
	if err := writeFigure(chart, [][]*plot.Plot{{bars, nil, nil}}); err != nil {
		return nil, err
	}
	return []string{grid, chart}, nil
}

// StrategyMaskFile is the file-name stem of one strategy's outputs:
// "percentile_95", "noise_model_k=3".
func StrategyMaskFile(r sweep.Record) string {
	return r.Strategy + "_" + r.Param
}

// StrategyMasks writes each record's binary mask and overlay as full
// resolution PNGs, mask_<stem>.png and overlay_<stem>.png.
func StrategyMasks(dir string, frame *motion.Frame, records []sweep.Record) ([]string, error) {
	if len(records) == 0 {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create mask directory")
	}
	files := make([]string, 0, 2*len(records))
	for _, r := range records {
		stem := StrategyMaskFile(r)
		mask := filepath.Join(dir, "mask_"+stem+".png")
		if err := Save(mask, MaskImage(r.Mask)); err != nil {
			return nil, err
		}
		overlay := filepath.Join(dir, "overlay_"+stem+".png")
		if err := Save(overlay, Overlay(frame, r.Mask)); err != nil {
			return nil, err
		}
		files = append(files, mask, overlay)
	}
	return files, nil
}

func percentileTitle(r sweep.Record) string {
	return fmt.Sprintf("p=%s, thr=%.1f\n%.1f%% motion", r.Param, r.Threshold, r.Metrics.MotionPercentage)
}

// maskRows lays out one column per record: mask on top, overlay below.
func maskRows(frame *motion.Frame, records []sweep.Record, title func(sweep.Record) string) [][]*plot.Plot {
	masks := make([]*plot.Plot, len(records))
	overlays := make([]*plot.Plot, len(records))
	for i, r := range records {
		masks[i] = imagePanel(title(r), MaskImage(r.Mask))
		overlays[i] = imagePanel("", Overlay(frame, r.Mask))
	}
	return [][]*plot.Plot{masks, overlays}
}

// resultPanels is the magnitude, mask and overlay trio for one record.
func resultPanels(label string, frame *motion.Frame, r sweep.Record) []*plot.Plot {
	return []*plot.Plot{
		imagePanel(label+"\nDerivative Magnitude", MagnitudeImage(r.Derivative.Frame)),
		imagePanel(fmt.Sprintf("%s\nMask (thr=%.1f)", label, r.Threshold), MaskImage(r.Mask)),
		imagePanel(label+"\nOverlay", Overlay(frame, r.Mask)),
	}
}

// groupCells splits records into runs that share one derivative.
func groupCells(records []sweep.Record) [][]sweep.Record {
	var cells [][]sweep.Record
	for i := 0; i < len(records); {
		j := i + 1
		for j < len(records) && records[j].Derivative == records[i].Derivative {
			j++
		}
		cells = append(cells, records[i:j])
		i = j
	}
	return cells
}

// groupBy groups consecutive cells with the same key.
func groupBy(cells [][]sweep.Record, key func([]sweep.Record) string) [][][]sweep.Record {
	var out [][][]sweep.Record
	for _, c := range cells {
		if n := len(out); n > 0 && key(out[n-1][0]) == key(c) {
			out[n-1] = append(out[n-1], c)
			continue
		}
		out = append(out, [][]sweep.Record{c})
	}
	return out
}

func pick(cell []sweep.Record) sweep.Record {
	for _, r := range cell {
		if r.Strategy == "percentile" && r.Param == mainPercentile {
			return r
		}
	}
	return cell[len(cell)-1]
}
