package server

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"time"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"

	"github.com/ironsheep/motion-tools-mcp/internal/frames"
	"github.com/ironsheep/motion-tools-mcp/internal/logging"
	"github.com/ironsheep/motion-tools-mcp/internal/motion"
	"github.com/ironsheep/motion-tools-mcp/internal/render"
	"github.com/ironsheep/motion-tools-mcp/internal/sweep"
)

// errUnknownTool is returned for tools/call with a name not in
// GetToolDefinitions.
var errUnknownTool = errors.New("unknown tool")

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "motion_sweep").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Malformed arguments, invalid parameter values and unknown tools return
// code -32602; any other failure returns -32000.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, codeInvalidParams, "Invalid params", err.Error())
	}

	start := time.Now()
	result, err := s.executeTool(params.Name, params.Arguments)
	log := s.log.With().Str("tool", params.Name).Dur("elapsed", time.Since(start)).Logger()
	if err != nil {
		log.Warn().Err(err).Msg("tool call failed")
		if errors.Is(err, motion.ErrInvalidConfiguration) || errors.Is(err, errUnknownTool) {
			return s.errorResponse(req.ID, codeInvalidParams, "Invalid params", err.Error())
		}
		return s.errorResponse(req.ID, codeToolFailed, "Tool execution failed", err.Error())
	}
	log.Debug().Msg("tool call")

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	switch name {
	case "motion_sequence_load":
		return s.handleSequenceLoad(args)
	case "motion_temporal_derivative":
		return s.handleTemporalDerivative(args)
	case "motion_threshold":
		return s.handleThreshold(args)
	case "motion_sweep":
		return s.handleSweep(args)
	case "motion_render_report":
		return s.handleRenderReport(args)
	default:
		return nil, errors.Wrap(errUnknownTool, name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	e := &MCPError{Code: code, Message: message}
	if data != "" {
		e.Data = data
	}
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error:   e,
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// decodeArgs unmarshals tool arguments. An absent argument object leaves v
// at its zero value.
func decodeArgs(args json.RawMessage, v interface{}) error {
	if len(bytes.TrimSpace(args)) == 0 || string(bytes.TrimSpace(args)) == "null" {
		return nil
	}
	if err := json.Unmarshal(args, v); err != nil {
		return errors.Wrapf(motion.ErrInvalidConfiguration, "invalid arguments: %v", err)
	}
	return nil
}

// === Sequence ===

type sequenceArgs struct {
	Dir    string         `json:"dir"`
	Region *frames.Region `json:"region,omitempty"`
}

// load returns the cached sequence for a, falling back to the configured
// image directory and region.
func (s *Server) load(a sequenceArgs) (*frames.Loaded, error) {
	dir := s.dir(a)
	region := a.Region
	if region == nil {
		region = s.cfg.Region
	}
	loaded, err := s.cache.Load(dir, region)
	if err != nil {
		return nil, errors.Wrap(err, "load frames")
	}
	return loaded, nil
}

func (s *Server) dir(a sequenceArgs) string {
	if a.Dir == "" {
		return s.cfg.ImageDir
	}
	return a.Dir
}

// targetIndex resolves an optional frame index against a sequence of n
// frames.
func (s *Server) targetIndex(idx *int, n int) (int, error) {
	t := s.cfg.TargetIndex(n)
	if idx != nil {
		t = *idx
	}
	if t < 0 || t >= n {
		return 0, errors.Wrapf(motion.ErrInvalidConfiguration, "frame index %d out of range [0, %d)", t, n)
	}
	return t, nil
}

type sequenceLoadArgs struct {
	sequenceArgs
	Reload bool `json:"reload"`
}

func (s *Server) handleSequenceLoad(args json.RawMessage) (interface{}, error) {
	var a sequenceLoadArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Reload {
		s.cache.Evict(s.dir(a.sequenceArgs))
	}
	loaded, err := s.load(a.sequenceArgs)
	if err != nil {
		return nil, err
	}
	info := loaded.Info()
	info.TargetIndex = s.cfg.TargetIndex(info.FrameCount)
	return info, nil
}

// === Temporal derivative ===

type derivativeArgs struct {
	sequenceArgs
	FrameIndex    *int    `json:"frame_index,omitempty"`
	Method        string  `json:"method"`
	Sigma         float64 `json:"sigma"`
	SpatialMethod string  `json:"spatial_method"`
	SpatialSigma  float64 `json:"spatial_sigma"`
	IncludeImage  bool    `json:"include_image"`
	Scale         int     `json:"scale"`
}

// configs resolves the filter choice, applying the simple / no smoothing
// defaults. Sigmas are dropped for methods that do not use them.
func (a derivativeArgs) configs() (motion.SpatialConfig, motion.TemporalConfig, error) {
	if a.Method == "" {
		a.Method = string(motion.TemporalSimple)
	}
	if a.SpatialMethod == "" {
		a.SpatialMethod = string(motion.SpatialNone)
	}

	tm, err := motion.ParseTemporalMethod(a.Method)
	if err != nil {
		return motion.SpatialConfig{}, motion.TemporalConfig{}, err
	}
	temporal := motion.TemporalConfig{Method: tm}
	if tm == motion.TemporalGaussian {
		temporal.Sigma = a.Sigma
	}
	if err := temporal.Validate(); err != nil {
		return motion.SpatialConfig{}, motion.TemporalConfig{}, err
	}

	sm, err := motion.ParseSpatialMethod(a.SpatialMethod)
	if err != nil {
		return motion.SpatialConfig{}, motion.TemporalConfig{}, err
	}
	spatial := motion.SpatialConfig{Method: sm}
	if sm == motion.SpatialGaussian {
		spatial.Sigma = a.SpatialSigma
	}
	if err := spatial.Validate(); err != nil {
		return motion.SpatialConfig{}, motion.TemporalConfig{}, err
	}
	return spatial, temporal, nil
}

// filterResult identifies the derivative a tool result was computed from.
type filterResult struct {
	Spatial    string             `json:"spatial"`
	Temporal   string             `json:"temporal"`
	FrameIndex int                `json:"frame_index"`
	FrameCount int                `json:"frame_count"`
	Available  bool               `json:"available"`
	Range      *motion.FrameRange `json:"frame_range,omitempty"`
}

type derivation struct {
	filterResult
	frames motion.Sequence
	d      *motion.Derivative
}

// derive loads the sequence and evaluates the requested derivative. d is nil
// when the temporal filter does not fit at the target frame.
func (s *Server) derive(a derivativeArgs) (*derivation, error) {
	spatial, temporal, err := a.configs()
	if err != nil {
		return nil, err
	}
	loaded, err := s.load(a.sequenceArgs)
	if err != nil {
		return nil, err
	}
	t, err := s.targetIndex(a.FrameIndex, len(loaded.Frames))
	if err != nil {
		return nil, err
	}
	d, err := motion.Derive(loaded.Frames, t, spatial, temporal)
	if err != nil {
		return nil, errors.Wrapf(err, "%s + %s", spatial.Label(), temporal.Label())
	}

	out := &derivation{
		filterResult: filterResult{
			Spatial:    spatial.Label(),
			Temporal:   temporal.Label(),
			FrameIndex: t,
			FrameCount: len(loaded.Frames),
			Available:  d != nil,
		},
		frames: loaded.Frames,
		d:      d,
	}
	if d != nil {
		r := d.Range
		out.Range = &r
	}
	return out, nil
}

// magnitudeStats summarises |d| over the frame.
type magnitudeStats struct {
	Mean float64 `json:"mean"`
	P50  float64 `json:"p50"`
	P95  float64 `json:"p95"`
	P99  float64 `json:"p99"`
	Max  float64 `json:"max"`
	SNR  float64 `json:"snr"`
}

func summarize(d *motion.Frame) *magnitudeStats {
	abs := make([]float64, len(d.Pix))
	for i, v := range d.Pix {
		abs[i] = math.Abs(v)
	}
	return &magnitudeStats{
		Mean: stat.Mean(abs, nil),
		P50:  motion.MagnitudePercentile(d, 50),
		P95:  motion.MagnitudePercentile(d, 95),
		P99:  motion.MagnitudePercentile(d, 99),
		Max:  motion.MagnitudePercentile(d, 100),
		SNR:  motion.DerivativeSNR(d),
	}
}

type derivativeResult struct {
	filterResult
	Width     int             `json:"width"`
	Height    int             `json:"height"`
	Magnitude *magnitudeStats `json:"magnitude,omitempty"`
	Heatmap   *render.Encoded `json:"heatmap,omitempty"`
}

func (s *Server) handleTemporalDerivative(args json.RawMessage) (interface{}, error) {
	var a derivativeArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	dv, err := s.derive(a)
	if err != nil {
		return nil, err
	}

	out := &derivativeResult{
		filterResult: dv.filterResult,
		Width:        dv.frames.Width(),
		Height:       dv.frames.Height(),
	}
	if dv.d == nil {
		return out, nil
	}
	out.Magnitude = summarize(dv.d.Frame)
	if a.IncludeImage {
		if out.Heatmap, err = render.Encode(render.Heatmap(dv.d.Frame), a.Scale); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// === Threshold ===

type thresholdArgs struct {
	derivativeArgs
	Strategy string   `json:"strategy"`
	Param    *float64 `json:"param"`
}

type thresholdResult struct {
	filterResult
	Strategy     string          `json:"strategy"`
	Param        string          `json:"param"`
	Label        string          `json:"label"`
	Threshold    *float64        `json:"threshold,omitempty"`
	SigmaNoise   *float64        `json:"sigma_noise,omitempty"`
	Metrics      *motion.Metrics `json:"metrics,omitempty"`
	MotionPixels int             `json:"motion_pixels"`
	Components   int             `json:"components"`
	Mask         *render.Encoded `json:"mask,omitempty"`
	Overlay      *render.Encoded `json:"overlay,omitempty"`
}

func (s *Server) handleThreshold(args json.RawMessage) (interface{}, error) {
	var a thresholdArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Param == nil {
		return nil, errors.Wrap(motion.ErrInvalidConfiguration, "param is required")
	}
	strategy, err := motion.ParseStrategy(a.Strategy, *a.Param)
	if err != nil {
		return nil, err
	}
	dv, err := s.derive(a.derivativeArgs)
	if err != nil {
		return nil, err
	}

	out := &thresholdResult{
		filterResult: dv.filterResult,
		Strategy:     strategy.Kind(),
		Param:        strategy.Param(),
		Label:        strategy.Label(),
	}
	if dv.d == nil {
		return out, nil
	}

	thr, m := motion.Evaluate(dv.d, strategy)
	out.Threshold = &thr.Value
	if _, ok := strategy.(motion.NoiseModel); ok {
		out.SigmaNoise = &thr.SigmaNoise
	}
	out.Metrics = &m
	out.MotionPixels = thr.Mask.Count()
	out.Components = len(motion.Components(thr.Mask))

	if a.IncludeImage {
		if out.Mask, err = render.Encode(render.MaskImage(thr.Mask), a.Scale); err != nil {
			return nil, err
		}
		if out.Overlay, err = render.Encode(render.Overlay(dv.frames[dv.FrameIndex], thr.Mask), a.Scale); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// === Sweeps ===

type sweepArgs struct {
	sequenceArgs
	FrameIndex *int   `json:"frame_index,omitempty"`
	Experiment string `json:"experiment"`
}

type sweepResult struct {
	*sweep.Report
	Table string `json:"table"`
}

func (s *Server) handleSweep(args json.RawMessage) (interface{}, error) {
	var a sweepArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	e, err := sweep.ParseExperiment(a.Experiment)
	if err != nil {
		return nil, err
	}
	loaded, err := s.load(a.sequenceArgs)
	if err != nil {
		return nil, err
	}

	cfg := *s.cfg
	if a.FrameIndex != nil {
		cfg.FrameIndex = a.FrameIndex
	}
	rep, err := sweep.NewRunner(&cfg, logging.Component(s.base, "sweep")).Run(context.Background(), e, loaded.Frames)
	if err != nil {
		return nil, err
	}

	var table bytes.Buffer
	if err := sweep.WriteTable(&table, rep); err != nil {
		return nil, err
	}
	return &sweepResult{Report: rep, Table: table.String()}, nil
}

type renderArgs struct {
	sequenceArgs
	FrameIndex *int   `json:"frame_index,omitempty"`
	ResultsDir string `json:"results_dir"`
}

type renderResult struct {
	ResultsDir string   `json:"results_dir"`
	FrameIndex int      `json:"frame_index"`
	Records    int      `json:"records"`
	Files      []string `json:"files"`
}

func (s *Server) handleRenderReport(args json.RawMessage) (interface{}, error) {
	var a renderArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	loaded, err := s.load(a.sequenceArgs)
	if err != nil {
		return nil, err
	}

	cfg := *s.cfg
	if a.FrameIndex != nil {
		cfg.FrameIndex = a.FrameIndex
	}
	if a.ResultsDir != "" {
		cfg.ResultsDir = a.ResultsDir
	}

	reports, err := sweep.NewRunner(&cfg, logging.Component(s.base, "sweep")).RunAll(context.Background(), loaded.Frames)
	if err != nil {
		return nil, err
	}
	files, err := render.NewWriter(&cfg, logging.Component(s.base, "render")).Write(loaded.Frames, reports)
	if err != nil {
		return nil, err
	}

	out := &renderResult{ResultsDir: cfg.ResultsDir, Files: files}
	for _, rep := range reports {
		out.FrameIndex = rep.FrameIndex
		out.Records += len(rep.Records)
	}
	return out, nil
}
