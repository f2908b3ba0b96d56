package fuzz

import (
	"math"
	"unicode/utf8"

	"github.com/hbollon/go-edlib"
)

// Func scores two strings on a 0-100 scale.
type Func func(a, b string) float64

// WithCutoff wraps fn so that scores below cutoff are reported as 0.
func WithCutoff(fn Func, cutoff float64) Func {
	return func(a, b string) float64 {
		score := fn(a, b)
		if score < cutoff {
			return 0
		}
		return score
	}
}

// Round converts a score to the integer form stored in output rows.
func Round(score float64) int {
	return int(math.Round(score))
}

// Ratio returns the normalized Indel similarity of a and b.
func Ratio(a, b string) float64 {
	return ratioLen(a, b, utf8.RuneCountInString(a), utf8.RuneCountInString(b))
}

// RatioCutoff is Ratio with a cutoff. Pairs whose length alone bounds the
// score below cutoff skip the LCS computation.
func RatioCutoff(a, b string, cutoff float64) float64 {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	if RatioBound(la, lb) < cutoff {
		return 0
	}
	score := ratioLen(a, b, la, lb)
	if score < cutoff {
		return 0
	}
	return score
}

// RatioBound is the highest Ratio two strings of rune lengths la and lb can
// reach.
func RatioBound(la, lb int) float64 {
	if la+lb == 0 {
		return 100
	}
	return 200 * float64(min(la, lb)) / float64(la+lb)
}

func ratioLen(a, b string, la, lb int) float64 {
	total := la + lb
	if total == 0 {
		return 100
	}
	if la == 0 || lb == 0 {
		return 0
	}
	if a == b {
		return 100
	}
	return 200 * float64(edlib.LCS(a, b)) / float64(total)
}

// normalizedFromDistance converts an Indel distance over lensum runes into a
// similarity score.
func normalizedFromDistance(dist, lensum int) float64 {
	if lensum == 0 {
		return 100
	}
	return 100 * (1 - float64(dist)/float64(lensum))
}

func indelDistance(a, b string) int {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	if la == 0 || lb == 0 {
		return la + lb
	}
	return la + lb - 2*edlib.LCS(a, b)
}
