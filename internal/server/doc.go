// Package server implements the MCP (Model Context Protocol) server for
// temporal-derivative motion analysis.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
//   - motion_sequence_load: load a frame directory, report frame count, size
//     and target index; reload=true decodes it again
//   - motion_temporal_derivative: derivative at one frame with optional
//     spatial pre-smoothing; |d| summary, SNR, optional heatmap PNG
//   - motion_threshold: one thresholding strategy on one derivative;
//     threshold, noise sigma, metrics, optional mask and overlay PNGs
//   - motion_sweep: one experiment over the configured parameter sets
//   - motion_render_report: all experiments, written as figures
//
// # Frame Caching
//
// Decoded sequences are cached by directory and crop region for the
// lifetime of the process, so a client can issue many derivative and
// threshold calls against one directory without re-decoding it. Pass
// reload=true to motion_sequence_load after the files change.
//
// # Error Handling
//
// Tool failures are returned as JSON-RPC errors:
//   - -32602: malformed arguments, invalid parameter values, unknown tool
//   - -32000: any other failure (unreadable directory, size mismatch, ...)
//   - -32601: unknown method
//
// The data field carries the Go error string.
//
// # Logging
//
// stdout carries the protocol, so the logger passed to New must write
// elsewhere (the binary uses stderr).
package server
