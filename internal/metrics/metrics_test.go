package metrics_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"fuzzyjoin/internal/metrics"
)

func TestRunCountersAndTextfile(t *testing.T) {
	m := metrics.New()
	m.RowsLoaded.WithLabelValues("left").Set(120)
	m.RowsSkipped.WithLabelValues("right", "filtered").Add(3)
	m.Candidates.Add(40)
	m.PairsScored.Add(12)
	m.RowsWritten.Add(9)
	m.Batches.Inc()
	m.ChunkDuration.Observe(0.25)
	m.Finish(90*time.Second, "completed", time.Unix(1700000000, 0))

	path := filepath.Join(t.TempDir(), "fuzzyjoin.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile returned error: %v", err)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	for _, want := range []string{
		`fuzzyjoin_input_rows{side="left"} 120`,
		"fuzzyjoin_matching_candidates_total 40",
		"fuzzyjoin_output_batches_total 1",
		`fuzzyjoin_input_rows_skipped_total{reason="filtered",side="right"} 3`,
		"fuzzyjoin_run_duration_seconds 90",
		"fuzzyjoin_matching_chunk_duration_seconds_count 1",
		`fuzzyjoin_run_last_timestamp_seconds{outcome="completed"} 1.7e+09`,
	} {
		if !strings.Contains(string(content), want) {
			t.Fatalf("textfile missing %q:\n%s", want, content)
		}
	}
}

func TestWriteTextfileEmptyPathIsNoop(t *testing.T) {
	if err := metrics.New().WriteTextfile(""); err != nil {
		t.Fatalf("expected no-op, got %v", err)
	}
}
