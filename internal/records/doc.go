// Package records loads the two sides of a join into memory and prepares
// them for matching.
//
// Sources are parquet or CSV files located by path, glob, or directory
// (newest file wins). Logical fields such as the title or a range operand
// are bound to concrete columns through ordered candidate lists, so the
// same configuration works against slightly different upstream exports.
// Range filters and date rules run once per load and drop rows that cannot
// take part in matching; those drops are counted, never raised.
package records
