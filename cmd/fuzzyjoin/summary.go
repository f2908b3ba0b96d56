package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"fuzzyjoin/internal/joiner"
)

func count[T int | int64](n T) string {
	return humanize.Comma(int64(n))
}

func renderSummary(result *joiner.Result) string {
	s := result.Stats
	output := result.Output
	switch {
	case output == "":
		output = "(no matches)"
	case result.Uploaded:
		output = fmt.Sprintf("%s (uploaded as %s)", output, result.UploadKey)
	}
	limit := "none"
	if s.LimitPerLeft > 0 {
		limit = count(s.LimitPerLeft)
	}

	pairs := [][2]string{
		{"Run", result.RunID},
		{"State", string(result.State)},
		{"Resumed", yesNo(result.Resumed)},
		{"Left rows", fmt.Sprintf("%s of %s", count(s.Left.Usable), count(s.Left.Loaded))},
		{"Right rows", fmt.Sprintf("%s of %s", count(s.Right.Usable), count(s.Right.Loaded))},
		{"Rows skipped", count(s.Left.Filtered + s.Left.InvalidDate + s.Right.Filtered + s.Right.InvalidDate)},
		{"Distinct right titles", count(s.Right.DistinctTitles)},
		{"Chunks", count(s.Chunks)},
		{"Candidates", count(s.Candidates)},
		{"Scored pairs", count(s.Scored)},
		{"Constraint rejects", count(s.ConstraintRejects)},
		{"Limited out", count(s.LimitedOut)},
		{"Rows written", count(s.RowsWritten)},
		{"Batches", count(s.Batches)},
		{"Score cutoff", fmt.Sprint(s.ScoreCutoff)},
		{"Token set threshold", fmt.Sprint(s.TokenSetThreshold)},
		{"Limit per left", limit},
		{"Workers", fmt.Sprint(s.Workers)},
		{"Elapsed", s.Elapsed.Round(time.Millisecond).String()},
		{"Output", output},
	}
	if s.SchemaFallbacks > 0 {
		pairs = append(pairs, [2]string{"Schema fallbacks", count(s.SchemaFallbacks)})
	}
	return renderPairs("Run summary", pairs)
}

type runSummary struct {
	RunID             string  `json:"run_id"`
	State             string  `json:"state"`
	Resumed           bool    `json:"resumed"`
	Output            string  `json:"output,omitempty"`
	Uploaded          bool    `json:"uploaded"`
	UploadKey         string  `json:"upload_key,omitempty"`
	LeftRows          int     `json:"left_rows"`
	RightRows         int     `json:"right_rows"`
	Candidates        int     `json:"candidates"`
	Scored            int     `json:"scored"`
	ConstraintRejects int     `json:"constraint_rejects"`
	LimitedOut        int     `json:"limited_out"`
	RowsWritten       int64   `json:"rows_written"`
	Batches           int     `json:"batches"`
	ElapsedSeconds    float64 `json:"elapsed_seconds"`
}

func summaryJSON(result *joiner.Result) runSummary {
	s := result.Stats
	return runSummary{
		RunID:             result.RunID,
		State:             string(result.State),
		Resumed:           result.Resumed,
		Output:            result.Output,
		Uploaded:          result.Uploaded,
		UploadKey:         result.UploadKey,
		LeftRows:          s.Left.Usable,
		RightRows:         s.Right.Usable,
		Candidates:        s.Candidates,
		Scored:            s.Scored,
		ConstraintRejects: s.ConstraintRejects,
		LimitedOut:        s.LimitedOut,
		RowsWritten:       s.RowsWritten,
		Batches:           s.Batches,
		ElapsedSeconds:    s.Elapsed.Seconds(),
	}
}
