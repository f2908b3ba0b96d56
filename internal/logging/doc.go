// Package logging assembles structured slog loggers and formatting helpers used
// across the matcher.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so pipeline code can tag log
// lines with run IDs, stages, and chunk numbers. Warnings go through
// WarnWithContext so every one carries an event type, a hint, and its impact.
// ProgressSampler keeps per-chunk progress logging to a handful of lines.
package logging
