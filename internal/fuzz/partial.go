package fuzz

// PartialRatio returns the best Ratio between the shorter string and any
// substring of the longer one of the same length. Windows that run off either
// edge of the longer string are considered too, so "abc" still aligns with
// the prefix "bc..." or suffix "...ab".
func PartialRatio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 && len(rb) == 0 {
		return 100
	}
	if len(ra) == 0 || len(rb) == 0 {
		return 0
	}
	if len(ra) > len(rb) {
		ra, rb = rb, ra
	}
	best := partialWindows(ra, rb)
	if len(ra) == len(rb) && best < 100 {
		best = max(best, partialWindows(rb, ra))
	}
	return best
}

// partialWindows slides needle across haystack. A window whose last (or, for
// the trailing edge, first) rune does not occur in needle can never beat its
// shorter neighbour and is skipped.
func partialWindows(needle, haystack []rune) float64 {
	n, h := len(needle), len(haystack)
	present := make(map[rune]struct{}, n)
	for _, r := range needle {
		present[r] = struct{}{}
	}
	in := func(r rune) bool {
		_, ok := present[r]
		return ok
	}
	needleStr := string(needle)
	best := 0.0
	score := func(window []rune) bool {
		s := ratioLen(needleStr, string(window), n, len(window))
		if s > best {
			best = s
		}
		return best == 100
	}

	for i := 1; i < n; i++ {
		if in(haystack[i-1]) && score(haystack[:i]) {
			return best
		}
	}
	for i := 0; i <= h-n; i++ {
		if in(haystack[i+n-1]) && score(haystack[i:i+n]) {
			return best
		}
	}
	for i := h - n + 1; i < h; i++ {
		if in(haystack[i]) && score(haystack[i:]) {
			return best
		}
	}
	return best
}
