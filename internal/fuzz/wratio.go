package fuzz

import "unicode/utf8"

const (
	unbaseScale      = 0.95
	partialScale     = 0.90
	longPartialScale = 0.60
	partialLenRatio  = 1.5
	longLenRatio     = 8.0
)

// WRatio is the weighted composite score. Strings of similar length are
// compared whole and as token lists; when one is much longer than the other
// the partial scorers take over, discounted by how lopsided the lengths are.
func WRatio(a, b string) float64 {
	return WRatioTokens(Prepare(a), Prepare(b))
}

// WRatioTokens is WRatio over prepared tokens.
func WRatioTokens(a, b Tokens) float64 {
	la, lb := utf8.RuneCountInString(a.Text), utf8.RuneCountInString(b.Text)
	if la == 0 || lb == 0 {
		return 0
	}
	lenRatio := float64(max(la, lb)) / float64(min(la, lb))

	best := ratioLen(a.Text, b.Text, la, lb)
	if lenRatio < partialLenRatio {
		tokenScore := max(tokenSortRatio(a, b), TokenSetRatioTokens(a, b, 0))
		return max(best, tokenScore*unbaseScale)
	}

	scale := partialScale
	if lenRatio >= longLenRatio {
		scale = longPartialScale
	}
	best = max(best, PartialRatio(a.Text, b.Text)*scale)
	return max(best, partialTokenRatio(a, b)*unbaseScale*scale)
}
