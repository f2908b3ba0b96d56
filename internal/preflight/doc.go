// Package preflight provides readiness checks for the inputs, directories
// and object storage a join run depends on.
//
// The CLI "fuzzyjoin check" command prints every result as a table, and
// "fuzzyjoin run" calls RunAll before loading anything so a doomed run fails
// in seconds rather than after the sources are read.
package preflight
