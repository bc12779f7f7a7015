package server

import (
	"testing"
)

func TestGetToolDefinitions(t *testing.T) {
	expectedTools := []string{
		"motion_sequence_load",
		"motion_temporal_derivative",
		"motion_threshold",
		"motion_sweep",
		"motion_render_report",
	}

	tools := GetToolDefinitions()
	if len(tools) != len(expectedTools) {
		t.Fatalf("tool count: got %d, want %d", len(tools), len(expectedTools))
	}
	for i, name := range expectedTools {
		if tools[i].Name != name {
			t.Errorf("tool %d: got %s, want %s", i, tools[i].Name, name)
		}
	}
}

func TestToolDefinitions_Structure(t *testing.T) {
	for _, tool := range GetToolDefinitions() {
		t.Run(tool.Name, func(t *testing.T) {
			if tool.Description == "" {
				t.Error("Tool description is empty")
			}
			if tool.InputSchema["type"] != "object" {
				t.Errorf("InputSchema type: got %v, want 'object'", tool.InputSchema["type"])
			}
			props, ok := tool.InputSchema["properties"].(map[string]interface{})
			if !ok {
				t.Fatal("InputSchema properties should be a map")
			}
			// Every tool reads a frame directory.
			for _, p := range []string{"dir", "region"} {
				if _, ok := props[p]; !ok {
					t.Errorf("missing property %q", p)
				}
			}
			if required, ok := tool.InputSchema["required"].([]string); ok {
				for _, r := range required {
					if _, ok := props[r]; !ok {
						t.Errorf("required %q is not a property", r)
					}
				}
			}
		})
	}
}

func TestToolDefinitions_Enums(t *testing.T) {
	toolMap := make(map[string]Tool)
	for _, tool := range GetToolDefinitions() {
		toolMap[tool.Name] = tool
	}

	tests := []struct {
		tool, prop string
		want       []string
	}{
		{"motion_temporal_derivative", "method", []string{"simple", "gaussian"}},
		{"motion_temporal_derivative", "spatial_method", []string{"none", "box_3x3", "box_5x5", "gaussian"}},
		{"motion_threshold", "strategy", []string{"fixed", "percentile", "noise_model"}},
		{"motion_sweep", "experiment", []string{"temporal", "combined", "strategies"}},
	}
	for _, tt := range tests {
		props := toolMap[tt.tool].InputSchema["properties"].(map[string]interface{})
		prop, ok := props[tt.prop].(map[string]interface{})
		if !ok {
			t.Errorf("%s.%s: not found", tt.tool, tt.prop)
			continue
		}
		enum, _ := prop["enum"].([]string)
		if len(enum) != len(tt.want) {
			t.Errorf("%s.%s: enum got %v, want %v", tt.tool, tt.prop, enum, tt.want)
			continue
		}
		for i := range enum {
			if enum[i] != tt.want[i] {
				t.Errorf("%s.%s: enum got %v, want %v", tt.tool, tt.prop, enum, tt.want)
				break
			}
		}
	}
}

func TestHandleToolsList(t *testing.T) {
	s := newTestServer(t)
	resp := s.handleToolsList(&MCPRequest{JSONRPC: "2.0", ID: 1})

	if resp.Error != nil {
		t.Fatalf("Unexpected error: %v", resp.Error)
	}
	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatal("Result should be a map")
	}
	toolsList, ok := result["tools"].([]Tool)
	if !ok {
		t.Fatal("tools should be a slice of Tool")
	}
	if len(toolsList) != len(GetToolDefinitions()) {
		t.Errorf("Tool count: got %d, want %d", len(toolsList), len(GetToolDefinitions()))
	}
}
