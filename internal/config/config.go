// Package config holds the parameter sets and directories for a motion
// analysis run.
//
// Values are resolved in order: Default, then an optional YAML file (Load),
// then environment variables (ApplyEnv). Command-line flags are applied by
// the caller last. Validate must pass before the configuration is used.
package config

import (
	"bytes"
	"image"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/ironsheep/motion-tools-mcp/internal/frames"
	"github.com/ironsheep/motion-tools-mcp/internal/motion"
)

// Environment variables read by ApplyEnv. EnvConfigFile names the YAML file
// the binaries pass to Load when no path is given on the command line.
const (
	EnvConfigFile = "MOTION_CONFIG"
	EnvImageDir   = "MOTION_IMAGE_DIR"
	EnvResultsDir = "MOTION_RESULTS_DIR"
	EnvLogLevel   = "MOTION_LOG_LEVEL"
	EnvFrameIndex = "MOTION_FRAME_INDEX"
)

// Result subdirectories, one per experiment.
const (
	TemporalSubdir  = "temporal_derivatives_only"
	CombinedSubdir  = "spatial_temporal_combined"
	ThresholdSubdir = "threshold_analysis"
)

// maxFileSize caps the size of a YAML configuration file.
const maxFileSize = 1 << 20

// Config is the full run configuration.
type Config struct {
	ImageDir   string         `yaml:"image_dir"`
	ResultsDir string         `yaml:"results_dir"`
	LogLevel   string         `yaml:"log_level"`
	LogFormat  string         `yaml:"log_format"`
	FrameIndex *int           `yaml:"frame_index"`
	Region     *frames.Region `yaml:"region"`

	// Workers bounds the sweep's concurrency; 0 means GOMAXPROCS.
	Workers int `yaml:"workers"`

	SpatialMethods  []motion.SpatialMethod  `yaml:"spatial_methods"`
	SpatialSigmas   []float64               `yaml:"spatial_sigmas"`
	TemporalMethods []motion.TemporalMethod `yaml:"temporal_methods"`
	TemporalSigmas  []float64               `yaml:"temporal_sigmas"`

	Percentiles     []float64 `yaml:"percentiles"`
	FixedThresholds []float64 `yaml:"fixed_thresholds"`
	// ComparisonFixed are the fixed values used in the strategy comparison.
	ComparisonFixed []float64 `yaml:"comparison_fixed"`
	KValues         []float64 `yaml:"k_values"`
}

// Default returns the configuration used when nothing else is specified.
func Default() *Config {
	return &Config{
		ImageDir:   "images",
		ResultsDir: "results",
		LogLevel:   "info",
		LogFormat:  "console",

		SpatialMethods:  []motion.SpatialMethod{motion.SpatialBox3, motion.SpatialBox5, motion.SpatialGaussian},
		SpatialSigmas:   []float64{0.5, 1.5, 5.0},
		TemporalMethods: []motion.TemporalMethod{motion.TemporalSimple, motion.TemporalGaussian},
		TemporalSigmas:  []float64{0.5, 1.5, 5.0},

		Percentiles:     []float64{80, 85, 90, 95},
		FixedThresholds: []float64{2, 5, 10, 15, 20, 30, 50},
		ComparisonFixed: []float64{2, 5, 10, 20, 30},
		KValues:         []float64{2, 3, 4, 5},
	}
}

// Load reads a YAML file over the defaults. Keys absent from the file keep
// their default values; unknown keys are rejected.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	clean := filepath.Clean(path)
	info, err := os.Stat(clean)
	if err != nil {
		return nil, errors.Wrap(err, "stat config file")
	}
	if info.Size() > maxFileSize {
		return nil, errors.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(clean)
	if err != nil {
		return nil, errors.Wrap(err, "read config file")
	}
	if err := cfg.decode(data); err != nil {
		return nil, errors.Wrapf(err, "parse config file %s", clean)
	}
	return cfg, nil
}

func (c *Config) decode(data []byte) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	return dec.Decode(c)
}

// ApplyEnv overrides fields from environment variables. lookup is normally
// os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvImageDir); ok && v != "" {
		c.ImageDir = v
	}
	if v, ok := lookup(EnvResultsDir); ok && v != "" {
		c.ResultsDir = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.LogLevel = v
	}
	if v, ok := lookup(EnvFrameIndex); ok && strings.TrimSpace(v) != "" {
		idx, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return errors.Wrapf(motion.ErrInvalidConfiguration, "%s=%q is not an integer", EnvFrameIndex, v)
		}
		c.FrameIndex = &idx
	}
	return nil
}

// Validate checks every parameter set and method name.
func (c *Config) Validate() error {
	if len(c.SpatialMethods) == 0 {
		return invalid("spatial_methods is empty")
	}
	if len(c.TemporalMethods) == 0 {
		return invalid("temporal_methods is empty")
	}
	for _, m := range c.SpatialMethods {
		if _, err := motion.ParseSpatialMethod(string(m)); err != nil {
			return err
		}
		if m == motion.SpatialGaussian && len(c.SpatialSigmas) == 0 {
			return invalid("spatial_sigmas is empty but gaussian smoothing is enabled")
		}
	}
	for _, m := range c.TemporalMethods {
		if _, err := motion.ParseTemporalMethod(string(m)); err != nil {
			return err
		}
		if m == motion.TemporalGaussian && len(c.TemporalSigmas) == 0 {
			return invalid("temporal_sigmas is empty but the gaussian derivative is enabled")
		}
	}
	for _, s := range c.SpatialSigmas {
		if s < 0 {
			return invalid("spatial sigma must be >= 0, got %v", s)
		}
	}
	for _, s := range c.TemporalSigmas {
		if s <= 0 {
			return invalid("temporal sigma must be > 0, got %v", s)
		}
	}

	if len(c.Percentiles) == 0 {
		return invalid("percentiles is empty")
	}
	for _, p := range c.Percentiles {
		if p < 0 || p > 100 {
			return invalid("percentile must be in [0, 100], got %v", p)
		}
	}
	for _, set := range []struct {
		name   string
		values []float64
	}{
		{"fixed_thresholds", c.FixedThresholds},
		{"comparison_fixed", c.ComparisonFixed},
		{"k_values", c.KValues},
	} {
		if len(set.values) == 0 {
			return invalid("%s is empty", set.name)
		}
		for _, v := range set.values {
			if v < 0 {
				return invalid("%s values must be >= 0, got %v", set.name, v)
			}
		}
	}

	if c.FrameIndex != nil && *c.FrameIndex < 0 {
		return invalid("frame_index must be >= 0, got %d", *c.FrameIndex)
	}
	if c.Region != nil {
		if err := c.Region.Validate(image.Rectangle{}); err != nil {
			return errors.Wrap(motion.ErrInvalidConfiguration, err.Error())
		}
	}
	if c.Workers < 0 {
		return invalid("workers must be >= 0, got %d", c.Workers)
	}
	return nil
}

func invalid(format string, args ...interface{}) error {
	return errors.Wrapf(motion.ErrInvalidConfiguration, format, args...)
}

// TargetIndex returns the configured frame index for a sequence of n
// frames, or n/2 when none is set.
func (c *Config) TargetIndex(n int) int {
	if c.FrameIndex != nil {
		return *c.FrameIndex
	}
	return n / 2
}

// SpatialConfigs expands the spatial methods into concrete configurations,
// one Gaussian entry per spatial sigma.
func (c *Config) SpatialConfigs() []motion.SpatialConfig {
	var out []motion.SpatialConfig
	for _, m := range c.SpatialMethods {
		if m != motion.SpatialGaussian {
			out = append(out, motion.SpatialConfig{Method: m})
			continue
		}
		for _, s := range c.SpatialSigmas {
			out = append(out, motion.SpatialConfig{Method: m, Sigma: s})
		}
	}
	return out
}

// TemporalConfigs expands the temporal methods, one DoG entry per sigma.
func (c *Config) TemporalConfigs() []motion.TemporalConfig {
	var out []motion.TemporalConfig
	for _, m := range c.TemporalMethods {
		if m != motion.TemporalGaussian {
			out = append(out, motion.TemporalConfig{Method: m})
			continue
		}
		for _, s := range c.TemporalSigmas {
			out = append(out, motion.TemporalConfig{Method: m, Sigma: s})
		}
	}
	return out
}

// PercentileStrategies returns one strategy per configured percentile.
func (c *Config) PercentileStrategies() []motion.Strategy {
	out := make([]motion.Strategy, len(c.Percentiles))
	for i, p := range c.Percentiles {
		out[i] = motion.Percentile{P: p}
	}
	return out
}

// ComparisonStrategies returns the fixed, percentile and noise-model
// strategies compared against each other, in that order.
func (c *Config) ComparisonStrategies() []motion.Strategy {
	var out []motion.Strategy
	for _, v := range c.ComparisonFixed {
		out = append(out, motion.Fixed{Value: v})
	}
	out = append(out, c.PercentileStrategies()...)
	for _, k := range c.KValues {
		out = append(out, motion.NoiseModel{K: k})
	}
	return out
}

// TemporalDir is where the temporal-only experiment writes figures.
func (c *Config) TemporalDir() string { return filepath.Join(c.ResultsDir, TemporalSubdir) }

// CombinedDir is where the spatial+temporal experiment writes figures.
func (c *Config) CombinedDir() string { return filepath.Join(c.ResultsDir, CombinedSubdir) }

// ThresholdDir is where the strategy comparison writes figures.
func (c *Config) ThresholdDir() string { return filepath.Join(c.ResultsDir, ThresholdSubdir) }
