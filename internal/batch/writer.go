package batch

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"fuzzyjoin/internal/columnar"
	"fuzzyjoin/internal/logging"
	"fuzzyjoin/internal/records"
	"fuzzyjoin/internal/services"
)

// WriterOptions configures a Writer.
type WriterOptions struct {
	FinalPath  string
	BatchSize  int
	Schema     columnar.Schema
	StartIndex int
	Logger     *slog.Logger
}

// Writer buffers matched rows and writes them as batch artifacts.
type Writer struct {
	opts     WriterOptions
	logger   *slog.Logger
	buffer   []map[string]any
	next     int
	written  int
	order    []string
	flushed  []Artifact
	fallback int
}

// NewWriter validates opts and prepares the output directory.
func NewWriter(opts WriterOptions) (*Writer, error) {
	if opts.FinalPath == "" {
		return nil, errors.New("batch: final path is required")
	}
	if opts.BatchSize <= 0 {
		return nil, fmt.Errorf("batch: batch size must be positive, got %d", opts.BatchSize)
	}
	if err := os.MkdirAll(filepath.Dir(opts.FinalPath), 0o755); err != nil {
		return nil, services.Wrap(services.ErrSerialization, "buffering", "prepare output dir", filepath.Dir(opts.FinalPath), err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Writer{
		opts:   opts,
		logger: logging.NewComponentLogger(logger, "batch"),
		next:   opts.StartIndex,
		order:  opts.Schema.Names(),
	}, nil
}

// Append buffers rows. Once the buffer holds BatchSize rows it is written out
// in BatchSize pieces, remainder included, and the new artifacts are
// returned.
func (w *Writer) Append(rows []records.Record) ([]Artifact, error) {
	for _, row := range rows {
		for k, v := range row {
			row[k] = columnar.Stringify(v)
		}
		w.buffer = append(w.buffer, map[string]any(row))
	}
	if len(w.buffer) < w.opts.BatchSize {
		return nil, nil
	}
	return w.Flush()
}

// Flush writes everything buffered.
func (w *Writer) Flush() ([]Artifact, error) {
	var out []Artifact
	for len(w.buffer) > 0 {
		n := min(len(w.buffer), w.opts.BatchSize)
		artifact, err := w.write(w.buffer[:n])
		if err != nil {
			return out, err
		}
		clear(w.buffer[:n])
		w.buffer = w.buffer[n:]
		out = append(out, artifact)
	}
	w.buffer = nil
	return out, nil
}

// Buffered returns the number of rows waiting to be flushed.
func (w *Writer) Buffered() int { return len(w.buffer) }

// NextIndex returns the index the next artifact will use.
func (w *Writer) NextIndex() int { return w.next }

// RowsWritten returns rows flushed by this writer.
func (w *Writer) RowsWritten() int { return w.written }

// Artifacts returns every artifact written by this writer.
func (w *Writer) Artifacts() []Artifact { return w.flushed }

// Fallbacks returns how many batches were written with an inferred schema.
func (w *Writer) Fallbacks() int { return w.fallback }

func (w *Writer) write(rows []map[string]any) (Artifact, error) {
	path := ArtifactPath(w.opts.FinalPath, w.next)
	schema, fallback := w.schemaFor(rows, path)
	if err := columnar.WriteFile(path, schema, rows); err != nil {
		return Artifact{}, services.Wrap(services.ErrSerialization, "buffering", "write batch", path, err)
	}
	artifact := Artifact{Path: path, Index: w.next, Rows: len(rows), Fallback: fallback}
	w.next++
	w.written += len(rows)
	w.flushed = append(w.flushed, artifact)
	w.logger.Debug("batch written",
		logging.String("path", path),
		logging.Int("rows", len(rows)),
		logging.Int("batch", artifact.Index),
	)
	return artifact, nil
}

func (w *Writer) schemaFor(rows []map[string]any, path string) (columnar.Schema, bool) {
	if len(w.opts.Schema) == 0 {
		return columnar.Infer(rows, w.order), false
	}
	err := w.opts.Schema.Check(rows)
	if err == nil {
		return w.opts.Schema, false
	}
	w.fallback++
	logging.WarnWithContext(w.logger, "batch does not fit declared schema; inferring", "schema_fallback",
		logging.String("path", path),
		logging.Error(err),
		logging.String(logging.FieldImpact, "batch column types inferred from values"),
		logging.String(logging.FieldErrorHint, "align output.schema with the source column types"),
	)
	return columnar.Infer(rows, w.order), true
}
