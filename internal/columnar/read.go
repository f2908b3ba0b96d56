package columnar

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/format"
)

const readBatch = 256

// Reader iterates the rows of a Parquet file.
type Reader struct {
	file     *os.File
	pf       *parquet.File
	schema   Schema
	names    []string
	repeated []bool
	decoders []func(parquet.Value) any
}

// Open reads the footer of a Parquet file.
func Open(path string) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("read parquet footer %s: %w", path, err)
	}

	r := &Reader{file: file, pf: pf}
	ps := pf.Schema()
	for _, path := range ps.Columns() {
		leaf, ok := ps.Lookup(path...)
		if !ok {
			continue
		}
		name := strings.Join(path, ".")
		typ, decode := decoderFor(leaf.Node.Type())
		repeated := leaf.MaxRepetitionLevel > 0
		if repeated {
			typ = String
		}
		r.names = append(r.names, name)
		r.repeated = append(r.repeated, repeated)
		r.decoders = append(r.decoders, decode)
		r.schema = append(r.schema, Field{Name: name, Type: typ})
	}
	return r, nil
}

// Schema returns the file's columns. Temporal and repeated columns report
// String since that is how they are written back out.
func (r *Reader) Schema() Schema { return r.schema }

// NumRows returns the row count recorded in the footer.
func (r *Reader) NumRows() int64 { return r.pf.NumRows() }

// Each calls fn for every row in file order. Iteration stops at the first
// error fn returns.
func (r *Reader) Each(fn func(map[string]any) error) error {
	buf := make([]parquet.Row, readBatch)
	for _, rg := range r.pf.RowGroups() {
		if err := r.eachInGroup(rg, buf, fn); err != nil {
			return err
		}
	}
	return nil
}

func (r *Reader) eachInGroup(rg parquet.RowGroup, buf []parquet.Row, fn func(map[string]any) error) error {
	rows := rg.Rows()
	defer rows.Close()
	for {
		n, err := rows.ReadRows(buf)
		for _, row := range buf[:n] {
			if ferr := fn(r.decode(row)); ferr != nil {
				return ferr
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read rows from %s: %w", r.file.Name(), err)
		}
		if n == 0 {
			return nil
		}
	}
}

func (r *Reader) decode(row parquet.Row) map[string]any {
	rec := make(map[string]any, len(r.names))
	for _, name := range r.names {
		rec[name] = nil
	}
	for _, v := range row {
		col := v.Column()
		if col < 0 || col >= len(r.names) || v.IsNull() {
			continue
		}
		value := r.decoders[col](v)
		name := r.names[col]
		if !r.repeated[col] {
			rec[name] = value
			continue
		}
		list, _ := rec[name].([]any)
		rec[name] = append(list, value)
	}
	return rec
}

// Close releases the underlying file.
func (r *Reader) Close() error {
	return r.file.Close()
}

// ReadFile loads a whole Parquet file into memory.
func ReadFile(path string) (Schema, []map[string]any, error) {
	r, err := Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer r.Close()
	rows := make([]map[string]any, 0, r.NumRows())
	err = r.Each(func(rec map[string]any) error {
		rows = append(rows, rec)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return r.Schema(), rows, nil
}

func decoderFor(t parquet.Type) (Type, func(parquet.Value) any) {
	lt := t.LogicalType()
	switch t.Kind() {
	case parquet.Boolean:
		return Boolean, func(v parquet.Value) any { return v.Boolean() }
	case parquet.Int32:
		if lt != nil && lt.Date != nil {
			return String, func(v parquet.Value) any {
				return time.Unix(int64(v.Int32())*86400, 0).UTC()
			}
		}
		return Int32, func(v parquet.Value) any { return v.Int32() }
	case parquet.Int64:
		if lt != nil && lt.Timestamp != nil {
			return String, timestampDecoder(lt.Timestamp)
		}
		return Int64, func(v parquet.Value) any { return v.Int64() }
	case parquet.Float:
		return Double, func(v parquet.Value) any { return float64(v.Float()) }
	case parquet.Double:
		return Double, func(v parquet.Value) any { return v.Double() }
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return String, func(v parquet.Value) any { return string(v.ByteArray()) }
	default:
		return String, func(v parquet.Value) any { return v.String() }
	}
}

func timestampDecoder(ts *format.TimestampType) func(parquet.Value) any {
	switch {
	case ts.Unit.Millis != nil:
		return func(v parquet.Value) any { return time.UnixMilli(v.Int64()).UTC() }
	case ts.Unit.Nanos != nil:
		return func(v parquet.Value) any { return time.Unix(0, v.Int64()).UTC() }
	default:
		return func(v parquet.Value) any { return time.UnixMicro(v.Int64()).UTC() }
	}
}
