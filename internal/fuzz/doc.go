// Package fuzz implements the string similarity scorers used to match titles.
//
// All scorers return a float in [0, 100] and operate on runes. Ratio is the
// normalized Indel similarity (2*LCS / total length). The token scorers split
// their inputs on whitespace and compare sorted token lists or token sets.
// WRatio blends the others into the composite score used for final matching.
//
// Inputs are expected to be normalized already (see package textutil); the
// scorers perform no case folding or punctuation handling of their own.
package fuzz
