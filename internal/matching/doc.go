// Package matching turns prefilter candidates into accepted matches.
//
// Each candidate is rescored with the weighted composite scorer and kept when
// it clears the score cutoff. Survivors must then satisfy a Constraint over
// the original (non-normalized) records, and finally Limit keeps the best K
// matches per left record. The constraint runs before the limit, so a pair
// that fails it never takes a Top-K slot.
package matching
