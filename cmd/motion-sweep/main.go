// Command motion-sweep runs the motion-analysis experiments over a directory
// of frames, prints the comparison tables and writes the report figures.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/ironsheep/motion-tools-mcp/internal/config"
	"github.com/ironsheep/motion-tools-mcp/internal/frames"
	"github.com/ironsheep/motion-tools-mcp/internal/logging"
	"github.com/ironsheep/motion-tools-mcp/internal/render"
	"github.com/ironsheep/motion-tools-mcp/internal/sweep"
)

// Version is set by ldflags during build.
var Version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCommand(os.Stdout, os.Stderr).ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

type options struct {
	configFile  string
	imageDir    string
	resultsDir  string
	frameIndex  int
	logLevel    string
	logFormat   string
	workers     int
	experiments []string
	noFigures   bool
	jsonOut     bool
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:           "motion-sweep",
		Short:         "Compare temporal derivative filters and motion thresholds on a frame sequence",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd, &opts)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, &opts, stdout, stderr)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.configFile, "config", "c", os.Getenv(config.EnvConfigFile), "YAML configuration file")
	f.StringVar(&opts.imageDir, "image-dir", "", "directory of frame images")
	f.StringVar(&opts.resultsDir, "results-dir", "", "directory for figures")
	f.IntVar(&opts.frameIndex, "frame-index", 0, "target frame index (default frame_count/2)")
	f.StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error")
	f.StringVar(&opts.logFormat, "log-format", "", "console or json")
	f.IntVar(&opts.workers, "workers", 0, "concurrent filter evaluations (0 = GOMAXPROCS)")
	f.StringSliceVarP(&opts.experiments, "experiment", "e", nil, "experiments to run: temporal, combined, strategies (default all)")
	f.BoolVar(&opts.noFigures, "no-figures", false, "print tables only")
	f.BoolVar(&opts.jsonOut, "json", false, "print records as JSON instead of tables")
	return cmd
}

// resolveConfig layers defaults, the YAML file, the environment and the
// flags that were set explicitly, then validates the result.
func resolveConfig(cmd *cobra.Command, opts *options) (*config.Config, error) {
	cfg, err := config.Load(opts.configFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	f := cmd.Flags()
	if f.Changed("image-dir") {
		cfg.ImageDir = opts.imageDir
	}
	if f.Changed("results-dir") {
		cfg.ResultsDir = opts.resultsDir
	}
	if f.Changed("frame-index") {
		idx := opts.frameIndex
		cfg.FrameIndex = &idx
	}
	if f.Changed("log-level") {
		cfg.LogLevel = opts.logLevel
	}
	if f.Changed("log-format") {
		cfg.LogFormat = opts.logFormat
	}
	if f.Changed("workers") {
		cfg.Workers = opts.workers
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(ctx context.Context, cfg *config.Config, opts *options, stdout, stderr io.Writer) error {
	log, err := logging.New(stderr, cfg.LogLevel, logging.Format(cfg.LogFormat))
	if err != nil {
		return err
	}

	experiments := sweep.Experiments
	if len(opts.experiments) > 0 {
		experiments = nil
		for _, name := range opts.experiments {
			e, err := sweep.ParseExperiment(name)
			if err != nil {
				return err
			}
			experiments = append(experiments, e)
		}
	}

	loaded, err := frames.LoadDir(cfg.ImageDir, cfg.Region)
	if err != nil {
		return errors.Wrap(err, "load frames")
	}
	info := loaded.Info()
	log.Info().
		Str("dir", info.Dir).
		Int("frames", info.FrameCount).
		Int("width", info.Width).
		Int("height", info.Height).
		Msg("loaded frames")

	runner := sweep.NewRunner(cfg, logging.Component(log, "sweep"))
	reports := make([]*sweep.Report, 0, len(experiments))
	for _, e := range experiments {
		rep, err := runner.Run(ctx, e, loaded.Frames)
		if err != nil {
			return err
		}
		reports = append(reports, rep)
	}

	if opts.jsonOut {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(reports); err != nil {
			return errors.Wrap(err, "encode reports")
		}
	} else {
		for _, rep := range reports {
			if err := sweep.WriteTable(stdout, rep); err != nil {
				return err
			}
			fmt.Fprintln(stdout)
		}
	}

	if opts.noFigures {
		return nil
	}
	_, err = render.NewWriter(cfg, logging.Component(log, "render")).Write(loaded.Frames, reports)
	return err
}
