// Package sweep evaluates the motion pipeline over the Cartesian product of
// spatial filters, temporal filters and threshold strategies.
//
// Each spatial x temporal cell is derived once and then thresholded with
// every strategy. Cells run concurrently; records come back in the order
// the cells and strategies were given, whatever order the work finished in.
// Cells whose temporal kernel does not fit at the target frame are skipped.
package sweep

import (
	"context"
	"runtime"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/motion-tools-mcp/internal/motion"
)

// Record is the outcome of one spatial x temporal x strategy combination.
type Record struct {
	Spatial       motion.SpatialConfig  `json:"spatial"`
	Temporal      motion.TemporalConfig `json:"temporal"`
	SpatialLabel  string                `json:"spatial_label"`
	TemporalLabel string                `json:"temporal_label"`

	// Strategy is the strategy kind: fixed, percentile or noise_model.
	Strategy      string `json:"strategy"`
	Param         string `json:"param"`
	StrategyLabel string `json:"strategy_label"`

	FrameIndex int               `json:"frame_index"`
	Range      motion.FrameRange `json:"frame_range"`
	Threshold  float64           `json:"threshold"`
	SigmaNoise float64           `json:"sigma_noise,omitempty"`
	Metrics    motion.Metrics    `json:"metrics"`

	// Derivative is shared by every record of the same cell.
	Derivative *motion.Derivative `json:"-"`
	Mask       *motion.Mask       `json:"-"`
}

// Options tunes a sweep.
type Options struct {
	// Workers bounds the number of cells evaluated at once; 0 means GOMAXPROCS.
	Workers int
	Log     zerolog.Logger
}

type cell struct {
	spatial  motion.SpatialConfig
	temporal motion.TemporalConfig
}

// Run evaluates every combination at frame t.
//
// Configuration errors abort the sweep and are returned wrapped with the
// failing cell's labels. Cancelling ctx stops scheduling new cells and Run
// returns ctx.Err().
func Run(ctx context.Context, seq motion.Sequence, t int, spatials []motion.SpatialConfig,
	temporals []motion.TemporalConfig, strategies []motion.Strategy, opts Options) ([]Record, error) {
	if len(strategies) == 0 {
		return nil, errors.Wrap(motion.ErrInvalidConfiguration, "no threshold strategies")
	}
	if err := seq.Validate(); err != nil {
		return nil, err
	}

	cells := make([]cell, 0, len(spatials)*len(temporals))
	for _, s := range spatials {
		for _, tc := range temporals {
			cells = append(cells, cell{spatial: s, temporal: tc})
		}
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	log := opts.Log

	slots := make([][]Record, len(cells))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, c := range cells {
		if gctx.Err() != nil {
			break
		}
		i, c := i, c
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			d, err := motion.Derive(seq, t, c.spatial, c.temporal)
			if err != nil {
				return errors.Wrapf(err, "%s + %s", c.spatial.Label(), c.temporal.Label())
			}
			if d == nil {
				log.Debug().
					Str("spatial", c.spatial.Label()).
					Str("temporal", c.temporal.Label()).
					Int("frame", t).
					Int("frames", len(seq)).
					Msg("derivative unavailable, skipping")
				return nil
			}
			slots[i] = evaluate(c, d, strategies)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var records []Record
	for _, s := range slots {
		records = append(records, s...)
	}
	log.Debug().
		Int("cells", len(cells)).
		Int("records", len(records)).
		Msg("sweep complete")
	return records, nil
}

func evaluate(c cell, d *motion.Derivative, strategies []motion.Strategy) []Record {
	out := make([]Record, len(strategies))
	for i, s := range strategies {
		thr, m := motion.Evaluate(d, s)
		out[i] = Record{
			Spatial:       c.spatial,
			Temporal:      c.temporal,
			SpatialLabel:  c.spatial.Label(),
			TemporalLabel: c.temporal.Label(),
			Strategy:      s.Kind(),
			Param:         s.Param(),
			StrategyLabel: s.Label(),
			FrameIndex:    d.Index,
			Range:         d.Range,
			Threshold:     thr.Value,
			SigmaNoise:    thr.SigmaNoise,
			Metrics:       m,
			Derivative:    d,
			Mask:          thr.Mask,
		}
	}
	return out
}

// Derivatives returns the unsmoothed derivative for every available
// temporal configuration at t, in the given order.
func Derivatives(seq motion.Sequence, t int, temporals []motion.TemporalConfig) ([]*motion.Derivative, error) {
	var out []*motion.Derivative
	for _, tc := range temporals {
		d, err := motion.Derive(seq, t, none, tc)
		if err != nil {
			return nil, errors.Wrap(err, tc.Label())
		}
		if d != nil {
			out = append(out, d)
		}
	}
	return out, nil
}
