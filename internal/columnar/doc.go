// Package columnar reads and writes flat Parquet files of map-shaped rows.
//
// Schemas are an ordered list of named, nullable scalar columns. Callers may
// declare a schema up front or infer one from rows; Unify widens several
// schemas into one that every input fits, which is what the batch merger
// needs after a writer fell back to inference.
package columnar
