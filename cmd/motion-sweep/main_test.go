package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/motion-tools-mcp/internal/config"
	"github.com/ironsheep/motion-tools-mcp/internal/render"
)

func writeFrames(t *testing.T, dir string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		img := image.NewGray(image.Rect(0, 0, 16, 16))
		for p := range img.Pix {
			img.Pix[p] = 100
		}
		if i >= n/2 {
			for y := 6; y < 10; y++ {
				for x := 6; x < 10; x++ {
					img.Pix[y*img.Stride+x] = 200
				}
			}
		}
		f, err := os.Create(filepath.Join(dir, fmt.Sprintf("f%02d.png", i)))
		require.NoError(t, err)
		require.NoError(t, png.Encode(f, img))
		require.NoError(t, f.Close())
	}
}

func clearEnv(t *testing.T) {
	for _, k := range []string{config.EnvConfigFile, config.EnvImageDir, config.EnvResultsDir, config.EnvLogLevel, config.EnvFrameIndex} {
		t.Setenv(k, "")
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCommand(&stdout, &stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), err
}

func TestTablesOnly(t *testing.T) {
	clearEnv(t)
	frames := t.TempDir()
	results := t.TempDir()
	writeFrames(t, frames, 5)

	out, err := execute(t, "--image-dir", frames, "--results-dir", results, "--no-figures", "-e", "temporal,strategies")
	require.NoError(t, err)

	assert.Contains(t, out, "TABLE 1")
	assert.Contains(t, out, "THRESHOLD STRATEGY COMPARISON (Simple [-1,0,1])")
	assert.Contains(t, out, "Noise model")
	assert.NotContains(t, out, "TABLE 2")

	entries, err := os.ReadDir(results)
	require.NoError(t, err)
	assert.Empty(t, entries, "no figures written")
}

func TestJSONAndFigures(t *testing.T) {
	clearEnv(t)
	frames := t.TempDir()
	results := t.TempDir()
	writeFrames(t, frames, 5)

	out, err := execute(t, "--image-dir", frames, "--results-dir", results, "--json", "-e", "strategies", "--frame-index", "2")
	require.NoError(t, err)

	var reports []struct {
		Experiment string            `json:"experiment"`
		FrameIndex int               `json:"frame_index"`
		Records    []json.RawMessage `json:"records"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &reports))
	require.Len(t, reports, 1)
	assert.Equal(t, "strategies", reports[0].Experiment)
	assert.Equal(t, 2, reports[0].FrameIndex)
	assert.Len(t, reports[0].Records, 13)

	_, err = os.Stat(filepath.Join(results, config.ThresholdSubdir, render.StrategyComparisonFile))
	assert.NoError(t, err)
}

func TestConfigFileAndErrors(t *testing.T) {
	clearEnv(t)
	frames := t.TempDir()
	writeFrames(t, frames, 5)

	cfgPath := filepath.Join(t.TempDir(), "motion.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("image_dir: "+frames+"\npercentiles: [50]\n"), 0o644))

	out, err := execute(t, "-c", cfgPath, "--no-figures", "-e", "temporal")
	require.NoError(t, err)
	assert.Contains(t, out, "Simple [-1,0,1]  50")

	_, err = execute(t, "-c", cfgPath, "--no-figures", "-e", "everything")
	assert.Error(t, err)

	_, err = execute(t, "--image-dir", frames, "--no-figures", "--frame-index", "9")
	assert.Error(t, err)

	_, err = execute(t, "--image-dir", t.TempDir(), "--no-figures")
	assert.Error(t, err)
}
