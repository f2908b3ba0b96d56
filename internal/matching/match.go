package matching

import (
	"cmp"
	"slices"

	"fuzzyjoin/internal/fuzz"
	"fuzzyjoin/internal/prefilter"
	"fuzzyjoin/internal/records"
)

// Match is an accepted pair. Left and Right index the full collections.
// Score is the reported integer score; Raw is the unrounded value ranking
// uses.
type Match struct {
	Left  int
	Right int
	Score int
	Raw   float64
}

// Counts tallies what happened to a chunk's candidates.
type Counts struct {
	Candidates  int
	BelowCutoff int
	Scored      int
	Rejected    int
	LimitedOut  int
	Accepted    int
}

// Add accumulates other into c.
func (c *Counts) Add(other Counts) {
	c.Candidates += other.Candidates
	c.BelowCutoff += other.BelowCutoff
	c.Scored += other.Scored
	c.Rejected += other.Rejected
	c.LimitedOut += other.LimitedOut
	c.Accepted += other.Accepted
}

// Chunk is the left slice being matched together with the data candidates
// point into.
type Chunk struct {
	Offset int
	Titles []fuzz.Tokens
	Left   []records.Record
	Right  []records.Record
	Index  *prefilter.Index
}

// Evaluator runs the scoring, constraint and limit stages for one chunk.
type Evaluator struct {
	Scorer     *Scorer
	Constraint Constraint
	Limit      int
}

// Evaluate returns the accepted matches for a chunk's candidates. Matches
// are ordered by left record, then by score when a limit applies and by
// right row otherwise.
func (e *Evaluator) Evaluate(chunk Chunk, candidates []prefilter.Candidate) ([]Match, Counts) {
	defer e.Scorer.Reset()

	constraint := e.Constraint
	if constraint == nil {
		constraint = NoConstraint{}
	}
	counts := Counts{Candidates: len(candidates)}
	matches := make([]Match, 0, len(candidates)/4)
	for _, c := range candidates {
		raw, ok := e.Scorer.rawTitle(c.Left, c.Title, chunk.Titles[c.Left], chunk.Index.Title(c.Title))
		if !ok {
			counts.BelowCutoff++
			continue
		}
		counts.Scored++
		left := chunk.Offset + c.Left
		if !constraint.Holds(chunk.Left[left], chunk.Right[c.Right]) {
			counts.Rejected++
			continue
		}
		matches = append(matches, Match{Left: left, Right: c.Right, Score: fuzz.Round(raw), Raw: raw})
	}
	slices.SortFunc(matches, func(a, b Match) int {
		if n := cmp.Compare(a.Left, b.Left); n != 0 {
			return n
		}
		return cmp.Compare(a.Right, b.Right)
	})

	limited := Limit(matches, e.Limit)
	counts.LimitedOut = len(matches) - len(limited)
	counts.Accepted = len(limited)
	return limited, counts
}

// Limit keeps at most k matches per left record, highest unrounded score
// first (Score breaks ties between equal Raw values). Ties keep their input
// order and left records keep their first-appearance order.
// k <= 0 returns matches unchanged.
func Limit(matches []Match, k int) []Match {
	if k <= 0 || len(matches) == 0 {
		return matches
	}
	order := make([]int, 0)
	groups := make(map[int][]Match)
	for _, m := range matches {
		if _, ok := groups[m.Left]; !ok {
			order = append(order, m.Left)
		}
		groups[m.Left] = append(groups[m.Left], m)
	}
	out := make([]Match, 0, min(len(matches), len(order)*k))
	for _, left := range order {
		group := groups[left]
		slices.SortStableFunc(group, byScoreDesc)
		out = append(out, group[:min(k, len(group))]...)
	}
	return out
}

func byScoreDesc(a, b Match) int {
	if n := cmp.Compare(b.Raw, a.Raw); n != 0 {
		return n
	}
	return cmp.Compare(b.Score, a.Score)
}
