// Package textutil normalizes free-text titles before similarity scoring.
//
// Two schemes are available and a run uses exactly one of them for both
// sides of the join:
//   - simple: lowercase, ASCII punctuation removed, whitespace collapsed.
//   - unicode: NFKC compatibility folding followed by uppercasing.
//
// Normalizers never fail; values that are not strings normalize to "".
// Tokenization helpers split normalized titles on whitespace for the
// token-based scorers in package fuzz.
package textutil
