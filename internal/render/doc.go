// Package render draws motion analysis results as images and figures.
//
// Single images (masks, overlays, magnitude and signed heatmaps) are built
// directly from motion frames and can be written to disk or encoded as
// base64 PNG for tool responses. Figures tile several panels into one PNG
// with gonum/plot and reproduce the report layout: per-filter overviews,
// percentile and fixed-threshold sweeps, noise-model histograms and the
// strategy comparison.
package render
