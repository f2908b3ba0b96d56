package records

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"fuzzyjoin/internal/columnar"
	"fuzzyjoin/internal/fileutil"
	"fuzzyjoin/internal/services"
)

const cancelCheckEvery = 4096

// Collection is a fully loaded source.
type Collection struct {
	Path    string
	Columns []string
	Schema  columnar.Schema
	Rows    []Record
}

// Len returns the number of rows.
func (c *Collection) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Rows)
}

// HasColumn reports whether the source declares column.
func (c *Collection) HasColumn(column string) bool {
	return slices.Contains(c.Columns, column)
}

// ResolveSource turns a configured location into one concrete file: a file
// is used as-is, a glob or directory yields its newest matching file.
func ResolveSource(location, pattern string) (string, error) {
	if strings.TrimSpace(location) == "" {
		return "", services.Wrap(services.ErrConfiguration, "loading", "resolve source", "source path is empty", nil)
	}
	path, err := fileutil.Resolve(location, pattern)
	if err != nil {
		if errors.Is(err, fileutil.ErrNoMatch) || errors.Is(err, os.ErrNotExist) {
			return "", services.Wrap(services.ErrInputMissing, "loading", "resolve source", fmt.Sprintf("nothing found at %s", location), err)
		}
		return "", services.Wrap(services.ErrInputMissing, "loading", "resolve source", location, err)
	}
	return path, nil
}

// Load reads path fully. The format follows the file extension.
func Load(ctx context.Context, path string) (*Collection, error) {
	var (
		c   *Collection
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet":
		c, err = loadParquet(ctx, path)
	case ".csv":
		c, err = loadCSV(ctx, path)
	default:
		return nil, services.Wrap(services.ErrConfiguration, "loading", "load source", fmt.Sprintf("unsupported file type %q", filepath.Ext(path)), nil)
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, services.Wrap(services.ErrValidation, "loading", "read source", path, err)
	}
	return c, nil
}

func loadParquet(ctx context.Context, path string) (*Collection, error) {
	reader, err := columnar.Open(path)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	schema := reader.Schema()
	c := &Collection{
		Path:    path,
		Columns: schema.Names(),
		Schema:  schema,
		Rows:    make([]Record, 0, reader.NumRows()),
	}
	err = reader.Each(func(row map[string]any) error {
		if len(c.Rows)%cancelCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		c.Rows = append(c.Rows, Record(row))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// loadCSV reads a header row and keeps every value as a string. Empty cells
// become nulls.
func loadCSV(ctx context.Context, path string) (*Collection, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return &Collection{Path: path}, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}
	schema := make(columnar.Schema, len(columns))
	for i, name := range columns {
		schema[i] = columnar.Field{Name: name, Type: columnar.String}
	}

	c := &Collection{Path: path, Columns: columns, Schema: schema}
	for line := 2; ; line++ {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if line%cancelCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		row := make(Record, len(columns))
		for i, name := range columns {
			if i >= len(fields) || fields[i] == "" {
				row[name] = nil
				continue
			}
			row[name] = fields[i]
		}
		c.Rows = append(c.Rows, row)
	}
	return c, nil
}
