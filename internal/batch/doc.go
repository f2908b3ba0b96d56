// Package batch writes matched rows to numbered batch artifacts and merges
// them into the final output.
//
// Batches sit next to the final path as <stem>_batch_NNN<ext>. The Writer
// only flushes on Append and Flush calls, which the joiner makes at chunk
// boundaries, so every flushed batch is a complete checkpoint. Merge
// concatenates batches in index order into a temporary sibling, renames it
// into place, and only then deletes the batches. A failed merge leaves every
// batch on disk so it can be retried without rematching.
package batch
