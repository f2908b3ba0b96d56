package matching

import (
	"fuzzyjoin/internal/fuzz"
)

type pairKey struct {
	left  int
	title int
}

// Scorer applies the precise score cutoff. Scores are memoized per left
// title and distinct right title, so right rows sharing a title are scored
// once. A Scorer is not safe for concurrent use.
type Scorer struct {
	cutoff float64
	memo   map[pairKey]float64
}

// NewScorer returns a Scorer keeping pairs scoring at least cutoff.
func NewScorer(cutoff int) *Scorer {
	return &Scorer{cutoff: float64(cutoff), memo: make(map[pairKey]float64)}
}

// Cutoff returns the configured cutoff.
func (s *Scorer) Cutoff() float64 { return s.cutoff }

// Score compares two prepared titles. The unrounded score is compared with
// the cutoff; the reported score is rounded.
func (s *Scorer) Score(left, right fuzz.Tokens) (int, bool) {
	return s.accept(fuzz.WRatioTokens(left, right))
}

// ScoreTitle is Score memoized by chunk-local left index and distinct right
// title id.
func (s *Scorer) ScoreTitle(leftID, titleID int, left, right fuzz.Tokens) (int, bool) {
	raw, ok := s.rawTitle(leftID, titleID, left, right)
	if !ok {
		return 0, false
	}
	return fuzz.Round(raw), true
}

// rawTitle is ScoreTitle without rounding.
func (s *Scorer) rawTitle(leftID, titleID int, left, right fuzz.Tokens) (float64, bool) {
	key := pairKey{left: leftID, title: titleID}
	raw, ok := s.memo[key]
	if !ok {
		raw = fuzz.WRatioTokens(left, right)
		s.memo[key] = raw
	}
	if raw <= 0 || raw < s.cutoff {
		return 0, false
	}
	return raw, true
}

// Reset drops memoized scores. Call it between chunks.
func (s *Scorer) Reset() {
	clear(s.memo)
}

func (s *Scorer) accept(raw float64) (int, bool) {
	if raw <= 0 || raw < s.cutoff {
		return 0, false
	}
	return fuzz.Round(raw), true
}
