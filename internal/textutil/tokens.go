package textutil

import (
	"slices"
	"strings"
)

// Tokenize splits a normalized title on whitespace.
func Tokenize(text string) []string {
	return strings.Fields(text)
}

// SortedTokens returns the whitespace tokens of text in lexical order,
// duplicates included.
func SortedTokens(text string) []string {
	tokens := Tokenize(text)
	slices.Sort(tokens)
	return tokens
}

// TokenSet returns the unique whitespace tokens of text in lexical order.
func TokenSet(text string) []string {
	return slices.Compact(SortedTokens(text))
}
