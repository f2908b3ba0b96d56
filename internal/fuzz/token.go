package fuzz

import (
	"strings"
	"unicode/utf8"

	"fuzzyjoin/internal/textutil"
)

// Tokens is a title split for the token scorers. Building it once per title
// lets hot loops skip repeated splitting and sorting.
type Tokens struct {
	Text   string
	Sorted []string
	Set    []string
}

// Prepare splits text into sorted tokens and a sorted token set.
func Prepare(text string) Tokens {
	sorted := textutil.SortedTokens(text)
	set := make([]string, 0, len(sorted))
	for i, tok := range sorted {
		if i == 0 || tok != sorted[i-1] {
			set = append(set, tok)
		}
	}
	return Tokens{Text: text, Sorted: sorted, Set: set}
}

// TokenSortRatio is Ratio over the whitespace tokens of each string joined in
// sorted order.
func TokenSortRatio(a, b string) float64 {
	return tokenSortRatio(Prepare(a), Prepare(b))
}

func tokenSortRatio(a, b Tokens) float64 {
	return Ratio(strings.Join(a.Sorted, " "), strings.Join(b.Sorted, " "))
}

// TokenSetRatio compares the token sets of a and b. Shared tokens are
// factored out so that extra words on one side cost little: when either
// side's tokens are a subset of the other's the score is 100.
func TokenSetRatio(a, b string) float64 {
	return TokenSetRatioTokens(Prepare(a), Prepare(b), 0)
}

// TokenSetRatioTokens is TokenSetRatio over prepared tokens. It returns 0
// without computing any LCS when the set lengths alone rule out cutoff.
func TokenSetRatioTokens(a, b Tokens, cutoff float64) float64 {
	if len(a.Set) == 0 || len(b.Set) == 0 {
		return 0
	}
	sect, diffAB, diffBA := splitSets(a.Set, b.Set)
	if len(sect) > 0 && (len(diffAB) == 0 || len(diffBA) == 0) {
		return 100
	}

	abJoined := strings.Join(diffAB, " ")
	baJoined := strings.Join(diffBA, " ")
	abLen := utf8.RuneCountInString(abJoined)
	baLen := utf8.RuneCountInString(baJoined)
	sectLen := joinedLen(sect)

	sep := 0
	if sectLen > 0 {
		sep = 1
	}
	sectABLen := sectLen + sep + abLen
	sectBALen := sectLen + sep + baLen

	best := 0.0
	if sectLen > 0 {
		// sect vs sect+" "+diff differs only by the appended diff.
		best = max(
			normalizedFromDistance(sep+abLen, sectLen+sectABLen),
			normalizedFromDistance(sep+baLen, sectLen+sectBALen),
		)
	}

	lensum := sectABLen + sectBALen
	bound := normalizedFromDistance(abs(abLen-baLen), lensum)
	if bound > best && bound >= cutoff {
		// Shared prefix contributes nothing to the distance.
		dist := indelDistance(abJoined, baJoined)
		best = max(best, normalizedFromDistance(dist, lensum))
	}
	if best < cutoff {
		return 0
	}
	return best
}

// PartialTokenRatio is 100 when the token sets intersect and otherwise the
// PartialRatio of the sorted token strings.
func PartialTokenRatio(a, b string) float64 {
	return partialTokenRatio(Prepare(a), Prepare(b))
}

func partialTokenRatio(a, b Tokens) float64 {
	if len(a.Set) == 0 || len(b.Set) == 0 {
		return 0
	}
	sect, diffAB, diffBA := splitSets(a.Set, b.Set)
	if len(sect) > 0 {
		return 100
	}
	best := PartialRatio(strings.Join(a.Sorted, " "), strings.Join(b.Sorted, " "))
	if len(a.Sorted) == len(diffAB) && len(b.Sorted) == len(diffBA) {
		return best
	}
	return max(best, PartialRatio(strings.Join(diffAB, " "), strings.Join(diffBA, " ")))
}

// splitSets merges two sorted unique token lists into their intersection and
// the two differences, all still sorted.
func splitSets(a, b []string) (sect, diffAB, diffBA []string) {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			sect = append(sect, a[i])
			i++
			j++
		case a[i] < b[j]:
			diffAB = append(diffAB, a[i])
			i++
		default:
			diffBA = append(diffBA, b[j])
			j++
		}
	}
	diffAB = append(diffAB, a[i:]...)
	diffBA = append(diffBA, b[j:]...)
	return sect, diffAB, diffBA
}

func joinedLen(tokens []string) int {
	if len(tokens) == 0 {
		return 0
	}
	n := len(tokens) - 1
	for _, tok := range tokens {
		n += utf8.RuneCountInString(tok)
	}
	return n
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
