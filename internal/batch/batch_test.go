package batch_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"fuzzyjoin/internal/batch"
	"fuzzyjoin/internal/columnar"
	"fuzzyjoin/internal/records"
	"fuzzyjoin/internal/services"
)

func rows(n, start int) []records.Record {
	out := make([]records.Record, n)
	for i := range out {
		out[i] = records.Record{"title": "clerk", "salary": float64(start + i), "score": 90}
	}
	return out
}

func TestArtifactPath(t *testing.T) {
	tests := []struct {
		final string
		index int
		want  string
	}{
		{"/data/out/matches.parquet", 0, "/data/out/matches_batch_000.parquet"},
		{"/data/out/matches.parquet", 42, "/data/out/matches_batch_042.parquet"},
		{"/data/out/matches.parquet", 1234, "/data/out/matches_batch_1234.parquet"},
		{"/data/out/matches", 7, "/data/out/matches_batch_007.parquet"},
	}
	for _, tt := range tests {
		if got := batch.ArtifactPath(tt.final, tt.index); got != tt.want {
			t.Fatalf("ArtifactPath(%q, %d) = %q want %q", tt.final, tt.index, got, tt.want)
		}
	}
}

func TestDiscoverOrdersNumerically(t *testing.T) {
	dir := t.TempDir()
	final := filepath.Join(dir, "m.parquet")
	for _, name := range []string{"m_batch_010.parquet", "m_batch_002.parquet", "m_batch_1000.parquet", "m_batch_x.parquet", "other_batch_001.parquet", "m.parquet"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	got, err := batch.Discover(final)
	if err != nil {
		t.Fatalf("Discover returned error: %v", err)
	}
	if len(got) != 3 || got[0].Index != 2 || got[1].Index != 10 || got[2].Index != 1000 {
		t.Fatalf("unexpected artifacts %+v", got)
	}
}

func TestWriterFlushesAtBatchSize(t *testing.T) {
	dir := t.TempDir()
	final := filepath.Join(dir, "out.parquet")
	w, err := batch.NewWriter(batch.WriterOptions{FinalPath: final, BatchSize: 3})
	if err != nil {
		t.Fatalf("NewWriter returned error: %v", err)
	}

	written, err := w.Append(rows(2, 0))
	if err != nil || len(written) != 0 {
		t.Fatalf("expected no flush below batch size, got %v %v", written, err)
	}
	written, err = w.Append(rows(5, 2))
	if err != nil {
		t.Fatalf("Append returned error: %v", err)
	}
	if len(written) != 3 || written[0].Rows != 3 || written[1].Rows != 3 || written[2].Rows != 1 {
		t.Fatalf("expected 3+3+1 split, got %+v", written)
	}
	if w.Buffered() != 0 || w.NextIndex() != 3 || w.RowsWritten() != 7 {
		t.Fatalf("unexpected writer state buffered=%d next=%d rows=%d", w.Buffered(), w.NextIndex(), w.RowsWritten())
	}
	if rest, err := w.Flush(); err != nil || len(rest) != 0 {
		t.Fatalf("expected empty flush, got %v %v", rest, err)
	}
}

func TestWriterStartIndexAndTimeValues(t *testing.T) {
	final := filepath.Join(t.TempDir(), "out.parquet")
	w, err := batch.NewWriter(batch.WriterOptions{FinalPath: final, BatchSize: 10, StartIndex: 4})
	if err != nil {
		t.Fatalf("NewWriter returned error: %v", err)
	}
	posted := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	if _, err := w.Append([]records.Record{{"posting_date": posted, "score": 88}}); err != nil {
		t.Fatalf("Append returned error: %v", err)
	}
	written, err := w.Flush()
	if err != nil || len(written) != 1 {
		t.Fatalf("Flush = %v, %v", written, err)
	}
	if written[0].Path != batch.ArtifactPath(final, 4) {
		t.Fatalf("unexpected path %q", written[0].Path)
	}
	_, got, err := columnar.ReadFile(written[0].Path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if got[0]["posting_date"] != "2024-05-06T07:08:09" {
		t.Fatalf("expected canonical date string, got %#v", got[0]["posting_date"])
	}
}

func TestWriterSchemaFallback(t *testing.T) {
	final := filepath.Join(t.TempDir(), "out.parquet")
	declared := columnar.Schema{
		{Name: "title", Type: columnar.String},
		{Name: "salary", Type: columnar.Int32},
		{Name: "score", Type: columnar.Int32},
	}
	w, err := batch.NewWriter(batch.WriterOptions{FinalPath: final, BatchSize: 2, Schema: declared})
	if err != nil {
		t.Fatalf("NewWriter returned error: %v", err)
	}
	// salary values are doubles and do not fit int32
	written, err := w.Append(rows(2, 0))
	if err != nil {
		t.Fatalf("Append returned error: %v", err)
	}
	if len(written) != 1 || !written[0].Fallback || w.Fallbacks() != 1 {
		t.Fatalf("expected a fallback batch, got %+v", written)
	}
	schema, _, err := columnar.ReadFile(written[0].Path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if typ, _ := schema.Lookup("salary"); typ != columnar.Double {
		t.Fatalf("expected inferred double salary, got %v", typ)
	}

	ok := []records.Record{{"title": "clerk", "salary": 50000, "score": 91}, {"title": nil, "salary": nil, "score": 85}}
	written, err = w.Append(ok)
	if err != nil || len(written) != 1 || written[0].Fallback {
		t.Fatalf("expected declared schema batch, got %+v %v", written, err)
	}
	schema, _, err = columnar.ReadFile(written[0].Path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !schema.Equal(declared) {
		t.Fatalf("expected declared schema, got %v", schema)
	}
}

func TestMergeConcatenatesAndCleansUp(t *testing.T) {
	final := filepath.Join(t.TempDir(), "out.parquet")
	w, err := batch.NewWriter(batch.WriterOptions{FinalPath: final, BatchSize: 4})
	if err != nil {
		t.Fatalf("NewWriter returned error: %v", err)
	}
	if _, err := w.Append(rows(10, 0)); err != nil {
		t.Fatalf("Append: %v", err)
	}

	result, err := batch.Merge(context.Background(), final, nil)
	if err != nil {
		t.Fatalf("Merge returned error: %v", err)
	}
	if result.Batches != 3 || result.Rows != 10 || result.Removed != 3 || result.Unified {
		t.Fatalf("unexpected result %+v", result)
	}
	_, got, err := columnar.ReadFile(final)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	for i, row := range got {
		if row["salary"] != float64(i) {
			t.Fatalf("row %d out of order: %v", i, row)
		}
	}
	left, _ := batch.Discover(final)
	if len(left) != 0 {
		t.Fatalf("expected batches removed, found %v", left)
	}
}

func TestMergeUnifiesDifferingSchemas(t *testing.T) {
	final := filepath.Join(t.TempDir(), "out.parquet")
	first := columnar.Schema{{Name: "v", Type: columnar.Int32}, {Name: "name", Type: columnar.String}}
	second := columnar.Schema{{Name: "v", Type: columnar.Double}, {Name: "extra", Type: columnar.Boolean}}
	if err := columnar.WriteFile(batch.ArtifactPath(final, 0), first, []map[string]any{{"v": int32(1), "name": "a"}}); err != nil {
		t.Fatal(err)
	}
	if err := columnar.WriteFile(batch.ArtifactPath(final, 1), second, []map[string]any{{"v": 2.5, "extra": true}}); err != nil {
		t.Fatal(err)
	}

	result, err := batch.Merge(context.Background(), final, nil)
	if err != nil {
		t.Fatalf("Merge returned error: %v", err)
	}
	if !result.Unified || result.Rows != 2 {
		t.Fatalf("unexpected result %+v", result)
	}
	schema, got, err := columnar.ReadFile(final)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if typ, _ := schema.Lookup("v"); typ != columnar.Double {
		t.Fatalf("expected widened double, got %v", typ)
	}
	if got[0]["v"] != 1.0 || got[1]["v"] != 2.5 || got[0]["extra"] != nil || got[1]["name"] != nil {
		t.Fatalf("unexpected rows %v", got)
	}
}

func TestMergeWithoutBatchesWritesNothing(t *testing.T) {
	final := filepath.Join(t.TempDir(), "out.parquet")
	result, err := batch.Merge(context.Background(), final, nil)
	if err != nil {
		t.Fatalf("Merge returned error: %v", err)
	}
	if result.Batches != 0 || result.Path != "" {
		t.Fatalf("unexpected result %+v", result)
	}
	if _, err := os.Stat(final); !os.IsNotExist(err) {
		t.Fatalf("expected no output, stat err %v", err)
	}
}

func TestMergeFailurePreservesBatches(t *testing.T) {
	final := filepath.Join(t.TempDir(), "out.parquet")
	if err := os.WriteFile(batch.ArtifactPath(final, 0), []byte("not parquet"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := batch.Merge(context.Background(), final, nil)
	if !errors.Is(err, services.ErrMerge) {
		t.Fatalf("expected merge failure, got %v", err)
	}
	if _, err := os.Stat(batch.ArtifactPath(final, 0)); err != nil {
		t.Fatalf("expected batch preserved: %v", err)
	}
}

func TestRemoveAll(t *testing.T) {
	final := filepath.Join(t.TempDir(), "out.parquet")
	for i := range 3 {
		if err := os.WriteFile(batch.ArtifactPath(final, i), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	n, err := batch.RemoveAll(final)
	if err != nil || n != 3 {
		t.Fatalf("RemoveAll = %d, %v", n, err)
	}
}
