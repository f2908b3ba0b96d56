// Package services defines shared utilities consumed by the matching pipeline
// and its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, stage names, and chunk numbers for
//     logging.
//   - Structured error markers plus the Wrap helper that classify failures
//     into configuration, partial write, merge, and sink errors, and map them
//     to CLI exit codes.
//
// Use these helpers when wiring new pipeline steps so error handling and
// observability stay uniform across the run.
package services
