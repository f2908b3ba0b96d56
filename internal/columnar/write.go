package columnar

import (
	"errors"
	"fmt"
	"os"

	"github.com/parquet-go/parquet-go"
)

// Writer streams rows into a Parquet file with a fixed schema.
type Writer struct {
	file    *os.File
	pw      *parquet.Writer
	schema  Schema
	columns map[string]int
	rows    int64
}

// Create opens path for writing, truncating any existing file.
func Create(path string, schema Schema) (*Writer, error) {
	if len(schema) == 0 {
		return nil, errors.New("columnar: empty schema")
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	ps, columns := schema.parquetSchema("row")
	return &Writer{
		file:    file,
		pw:      parquet.NewWriter(file, ps),
		schema:  schema,
		columns: columns,
	}, nil
}

// Schema returns the writer's schema.
func (w *Writer) Schema() Schema { return w.schema }

// Rows returns the number of rows written so far.
func (w *Writer) Rows() int64 { return w.rows }

// Write appends rows. Values are converted to their column's type; callers
// check compatibility beforehand with Schema.Check.
func (w *Writer) Write(rows ...map[string]any) error {
	if len(rows) == 0 {
		return nil
	}
	out := make([]parquet.Row, len(rows))
	for i, rec := range rows {
		row := make(parquet.Row, len(w.columns))
		for _, f := range w.schema {
			col := w.columns[f.Name]
			row[col] = toValue(f.Type, rec[f.Name], col)
		}
		out[i] = row
	}
	if _, err := w.pw.WriteRows(out); err != nil {
		return fmt.Errorf("write rows to %s: %w", w.file.Name(), err)
	}
	w.rows += int64(len(rows))
	return nil
}

// Close flushes the footer and closes the file.
func (w *Writer) Close() error {
	werr := w.pw.Close()
	if err := w.file.Sync(); err != nil && werr == nil {
		werr = err
	}
	if err := w.file.Close(); err != nil && werr == nil {
		werr = err
	}
	if werr != nil {
		return fmt.Errorf("close %s: %w", w.file.Name(), werr)
	}
	return nil
}

// Abort closes and removes a partially written file.
func (w *Writer) Abort() {
	_ = w.pw.Close()
	_ = w.file.Close()
	_ = os.Remove(w.file.Name())
}

// WriteFile writes rows to path in one call.
func WriteFile(path string, schema Schema, rows []map[string]any) error {
	w, err := Create(path, schema)
	if err != nil {
		return err
	}
	if err := w.Write(rows...); err != nil {
		w.Abort()
		return err
	}
	return w.Close()
}
