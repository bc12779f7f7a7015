package sweep

import (
	"context"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/ironsheep/motion-tools-mcp/internal/config"
	"github.com/ironsheep/motion-tools-mcp/internal/motion"
)

// Experiment selects one of the three standard sweeps.
type Experiment int

const (
	// TemporalOnly runs every temporal filter on raw frames with each percentile.
	TemporalOnly Experiment = iota + 1
	// Combined runs every spatial x temporal pair with each percentile.
	Combined
	// StrategyComparison runs fixed, percentile and noise-model thresholds
	// on the simple derivative.
	StrategyComparison
)

// Experiments lists the sweeps in report order.
var Experiments = []Experiment{TemporalOnly, Combined, StrategyComparison}

func (e Experiment) String() string {
	switch e {
	case TemporalOnly:
		return "temporal"
	case Combined:
		return "combined"
	case StrategyComparison:
		return "strategies"
	}
	return "experiment(" + strconv.Itoa(int(e)) + ")"
}

// Title is the report heading.
func (e Experiment) Title() string {
	switch e {
	case TemporalOnly:
		return "TABLE 1"
	case Combined:
		return "TABLE 2"
	case StrategyComparison:
		return "THRESHOLD STRATEGY COMPARISON (" + simple.Label() + ")"
	}
	return e.String()
}

// ParseExperiment accepts a number (1-3) or a name (temporal, combined,
// strategies).
func ParseExperiment(s string) (Experiment, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "temporal":
		return TemporalOnly, nil
	case "2", "combined":
		return Combined, nil
	case "3", "strategies":
		return StrategyComparison, nil
	}
	return 0, errors.Wrapf(motion.ErrInvalidConfiguration, "unknown experiment %q", s)
}

var (
	none   = motion.SpatialConfig{Method: motion.SpatialNone}
	simple = motion.TemporalConfig{Method: motion.TemporalSimple}
)

// Report is the result of one experiment.
type Report struct {
	Experiment Experiment `json:"-"`
	Name       string     `json:"experiment"`
	Title      string     `json:"title"`
	FrameIndex int        `json:"frame_index"`
	FrameCount int        `json:"frame_count"`
	Records    []Record   `json:"records"`
}

// Runner runs experiments with the parameter sets of a configuration.
type Runner struct {
	cfg *config.Config
	log zerolog.Logger
}

// NewRunner returns a runner for cfg. cfg must already be validated.
func NewRunner(cfg *config.Config, log zerolog.Logger) *Runner {
	return &Runner{cfg: cfg, log: log}
}

// TargetIndex resolves the frame index for seq and checks it is in range.
func (r *Runner) TargetIndex(seq motion.Sequence) (int, error) {
	t := r.cfg.TargetIndex(len(seq))
	if t < 0 || t >= len(seq) {
		return 0, errors.Wrapf(motion.ErrInvalidConfiguration, "frame index %d out of range [0, %d)", t, len(seq))
	}
	return t, nil
}

// Run executes experiment e on seq.
func (r *Runner) Run(ctx context.Context, e Experiment, seq motion.Sequence) (*Report, error) {
	t, err := r.TargetIndex(seq)
	if err != nil {
		return nil, err
	}

	var (
		spatials   []motion.SpatialConfig
		temporals  []motion.TemporalConfig
		strategies []motion.Strategy
	)
	switch e {
	case TemporalOnly:
		spatials = []motion.SpatialConfig{none}
		temporals = r.cfg.TemporalConfigs()
		strategies = r.cfg.PercentileStrategies()
	case Combined:
		spatials = r.cfg.SpatialConfigs()
		temporals = r.cfg.TemporalConfigs()
		strategies = r.cfg.PercentileStrategies()
	case StrategyComparison:
		spatials = []motion.SpatialConfig{none}
		temporals = []motion.TemporalConfig{simple}
		strategies = r.cfg.ComparisonStrategies()
	default:
		return nil, errors.Wrapf(motion.ErrInvalidConfiguration, "unknown experiment %d", int(e))
	}

	log := r.log.With().Str("experiment", e.String()).Logger()
	records, err := Run(ctx, seq, t, spatials, temporals, strategies, Options{
		Workers: r.cfg.Workers,
		Log:     log,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "experiment %s", e)
	}
	log.Info().
		Int("frame", t).
		Int("records", len(records)).
		Msg("experiment finished")

	return &Report{
		Experiment: e,
		Name:       e.String(),
		Title:      e.Title(),
		FrameIndex: t,
		FrameCount: len(seq),
		Records:    records,
	}, nil
}

// RunAll executes every experiment in report order.
func (r *Runner) RunAll(ctx context.Context, seq motion.Sequence) ([]*Report, error) {
	reports := make([]*Report, 0, len(Experiments))
	for _, e := range Experiments {
		rep, err := r.Run(ctx, e, seq)
		if err != nil {
			return nil, err
		}
		reports = append(reports, rep)
	}
	return reports, nil
}
