// Package main hosts the fuzzyjoin CLI entrypoint and command graph.
//
// The Cobra-based command tree resolves configuration, applies per-run flag
// overrides and hands the result to the joiner. It also exposes the
// maintenance commands around a run: merging leftover batches, listing the
// run manifest, preflight checks, spreadsheet export and configuration
// scaffolding.
//
// Keep this package lean: matching, batching and storage live in internal
// packages; commands here only wire them together and render results.
package main
