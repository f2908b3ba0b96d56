// Package joiner drives a complete fuzzy join run.
//
// A run resolves and loads both sources, binds logical fields, applies the
// pre-match filters and date rules, normalizes titles once, and builds the
// prefilter index over the right side. The left side is then processed in
// fixed-size chunks on a single control goroutine: prefilter (the only
// parallel stage), precise scoring, constraint, Top-K, and buffering into
// batch files. Each batch flush is checkpointed in the run manifest. After
// the last chunk the batches are merged into the final artifact, which is
// optionally handed to an object storage sink.
//
// State transitions are logged as Idle, Loading, then per chunk
// Prefiltering, Scoring, Limiting and Buffering, then Merging, Uploading and
// Done. Any fatal error ends in Failed and is recorded in the manifest with
// its failure class.
package joiner
