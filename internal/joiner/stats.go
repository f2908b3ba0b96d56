package joiner

import (
	"time"

	"fuzzyjoin/internal/matching"
)

// SideStats describes one loaded source.
type SideStats struct {
	Path           string
	Loaded         int
	Filtered       int
	InvalidDate    int
	Usable         int
	DistinctTitles int
}

// Stats summarizes a run. Values are for reporting only.
type Stats struct {
	Left              SideStats
	Right             SideStats
	Chunks            int
	ChunksSkipped     int
	ResumedFromRow    int
	Candidates        int
	BelowCutoff       int
	Scored            int
	ConstraintRejects int
	LimitedOut        int
	RowsWritten       int64
	Batches           int
	SchemaFallbacks   int
	FinalRows         int64
	ScoreCutoff       int
	TokenSetThreshold int
	LimitPerLeft      int
	Workers           int
	Elapsed           time.Duration
}

func (s *Stats) addCounts(c matching.Counts) {
	s.Candidates += c.Candidates
	s.BelowCutoff += c.BelowCutoff
	s.Scored += c.Scored
	s.ConstraintRejects += c.Rejected
	s.LimitedOut += c.LimitedOut
}

// Progress is reported after every chunk.
type Progress struct {
	Chunk       int
	Chunks      int
	LeftDone    int
	LeftTotal   int
	Candidates  int
	RowsWritten int64
	Elapsed     time.Duration
}

// Percent returns completion of the left side in percent.
func (p Progress) Percent() float64 {
	if p.LeftTotal <= 0 {
		return 100
	}
	return float64(p.LeftDone) / float64(p.LeftTotal) * 100
}
