// Package manifest records runs and their checkpoints in SQLite.
//
// Every run gets a row keyed by a UUID together with the fingerprint of its
// inputs and matching parameters. Each batch flush appends a checkpoint
// naming the next left row to process, which is what lets a failed run be
// resumed from its last durable batch instead of rematching everything.
// Access goes through sqlx on the modernc.org/sqlite driver and retries
// briefly when the database is busy.
package manifest
