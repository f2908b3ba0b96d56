// Package prefilter narrows the left x right comparison space with the cheap
// token-set scorer before precise scoring.
//
// The right collection is indexed once per run: identical normalized titles
// collapse to a single entry so each distinct title is scored once per left
// title and then expanded to every right row sharing it. Chunks of left titles
// are scored in parallel; each worker owns a contiguous slice of the chunk and
// returns its own sparse result, so workers share no mutable state. Pairs below
// the threshold are never materialized.
package prefilter
