package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// sequenceProperties are the arguments shared by every tool that reads a
// frame directory.
func sequenceProperties() map[string]interface{} {
	return map[string]interface{}{
		"dir": map[string]interface{}{
			"type":        "string",
			"description": "Directory of frame images (.png, .jpg, .jpeg), read in name order. Defaults to the configured image directory",
		},
		"region": map[string]interface{}{
			"type":        "object",
			"description": "Optional crop applied to every frame; (x1,y1) inclusive, (x2,y2) exclusive",
			"properties": map[string]interface{}{
				"x1": map[string]interface{}{"type": "integer"},
				"y1": map[string]interface{}{"type": "integer"},
				"x2": map[string]interface{}{"type": "integer"},
				"y2": map[string]interface{}{"type": "integer"},
			},
			"required": []string{"x1", "y1", "x2", "y2"},
		},
	}
}

func frameIndexProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "integer",
		"description": "Target frame index (default: configured index, else frame_count/2)",
	}
}

// derivativeProperties describes one spatial + temporal filter choice.
func derivativeProperties() map[string]interface{} {
	props := sequenceProperties()
	props["frame_index"] = frameIndexProperty()
	props["method"] = map[string]interface{}{
		"type":        "string",
		"enum":        []string{"simple", "gaussian"},
		"description": "Temporal derivative: simple central difference or derivative-of-Gaussian (default simple)",
		"default":     "simple",
	}
	props["sigma"] = map[string]interface{}{
		"type":        "number",
		"description": "Temporal sigma in frames; required and > 0 for method=gaussian",
	}
	props["spatial_method"] = map[string]interface{}{
		"type":        "string",
		"enum":        []string{"none", "box_3x3", "box_5x5", "gaussian"},
		"description": "Per-frame smoothing applied before differentiation (default none)",
		"default":     "none",
	}
	props["spatial_sigma"] = map[string]interface{}{
		"type":        "number",
		"description": "Spatial sigma in pixels for spatial_method=gaussian",
	}
	props["include_image"] = map[string]interface{}{
		"type":        "boolean",
		"description": "Return a base64 PNG rendering of the result",
		"default":     false,
	}
	props["scale"] = map[string]interface{}{
		"type":        "integer",
		"description": "Integer upscale factor for the returned image (default 1)",
		"default":     1,
	}
	return props
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	loadProps := sequenceProperties()
	loadProps["reload"] = map[string]interface{}{
		"type":        "boolean",
		"description": "Drop cached frames for the directory and decode it again (default false)",
		"default":     false,
	}

	thresholdProps := derivativeProperties()
	thresholdProps["strategy"] = map[string]interface{}{
		"type":        "string",
		"enum":        []string{"fixed", "percentile", "noise_model"},
		"description": "Thresholding strategy",
	}
	thresholdProps["param"] = map[string]interface{}{
		"type":        "number",
		"description": "Strategy parameter: the |d| value for fixed, p in [0,100] for percentile, k for noise_model",
	}

	sweepProps := sequenceProperties()
	sweepProps["frame_index"] = frameIndexProperty()
	sweepProps["experiment"] = map[string]interface{}{
		"type":        "string",
		"enum":        []string{"temporal", "combined", "strategies"},
		"description": "temporal: every temporal filter x percentile; combined: spatial x temporal x percentile; strategies: fixed, percentile and noise-model thresholds on the simple derivative",
	}

	reportProps := sequenceProperties()
	reportProps["frame_index"] = frameIndexProperty()
	reportProps["results_dir"] = map[string]interface{}{
		"type":        "string",
		"description": "Directory for the figures (default: configured results directory)",
	}

	return []Tool{
		{
			Name:        "motion_sequence_load",
			Description: "Load a directory of frames as a grayscale sequence and return the frame count, frame size and target index. Later calls on the same directory reuse the decoded frames unless reload is set.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": loadProps,
			},
		},
		{
			Name:        "motion_temporal_derivative",
			Description: "Compute the temporal derivative at one frame, optionally after spatial smoothing. Returns the frame range used, |d| percentiles, the derivative SNR, and optionally a blue-white-red heatmap PNG. Reports available=false when the filter does not fit at that frame.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": derivativeProperties(),
			},
		},
		{
			Name:        "motion_threshold",
			Description: "Threshold a temporal derivative into a motion mask with one strategy and score it: threshold value, noise sigma (noise_model only), SNR, largest-component ratio and motion percentage. Optionally returns the mask and overlay PNGs.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": thresholdProps,
				"required":   []string{"strategy", "param"},
			},
		},
		{
			Name:        "motion_sweep",
			Description: "Run one experiment over the configured parameter sets and return one record per available combination plus the text table.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": sweepProps,
				"required":   []string{"experiment"},
			},
		},
		{
			Name:        "motion_render_report",
			Description: "Run all three experiments and write the report figures (masks, overlays, histograms, strategy comparison) as PNG files under a results directory.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": reportProps,
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
