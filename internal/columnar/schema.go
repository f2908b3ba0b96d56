package columnar

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"
)

// Type is a column's physical value type.
type Type int

const (
	String Type = iota
	Int32
	Int64
	Double
	Boolean
)

func (t Type) String() string {
	switch t {
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case Double:
		return "double"
	case Boolean:
		return "boolean"
	default:
		return "string"
	}
}

// ParseType maps a configuration type name to a Type.
func ParseType(name string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "string", "utf8", "str":
		return String, nil
	case "int32", "int":
		return Int32, nil
	case "int64", "bigint", "long", "uint8":
		return Int64, nil
	case "double", "float", "float64":
		return Double, nil
	case "bool", "boolean":
		return Boolean, nil
	default:
		return String, fmt.Errorf("unknown column type %q", name)
	}
}

// Field is one named column.
type Field struct {
	Name string
	Type Type
}

// Schema is an ordered set of nullable columns.
type Schema []Field

// Names returns the column names in schema order.
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, f := range s {
		names[i] = f.Name
	}
	return names
}

// Lookup returns the type of a named column.
func (s Schema) Lookup(name string) (Type, bool) {
	for _, f := range s {
		if f.Name == name {
			return f.Type, true
		}
	}
	return String, false
}

// Equal reports whether both schemas hold the same columns with the same
// types, ignoring order.
func (s Schema) Equal(other Schema) bool {
	if len(s) != len(other) {
		return false
	}
	for _, f := range s {
		t, ok := other.Lookup(f.Name)
		if !ok || t != f.Type {
			return false
		}
	}
	return true
}

// Check returns an error naming the first value that does not fit the
// schema, or a row column the schema does not declare.
func (s Schema) Check(rows []map[string]any) error {
	types := make(map[string]Type, len(s))
	for _, f := range s {
		types[f.Name] = f.Type
	}
	for i, row := range rows {
		for name, v := range row {
			t, ok := types[name]
			if !ok {
				return fmt.Errorf("row %d: column %q not in schema", i, name)
			}
			if !fits(t, v) {
				return fmt.Errorf("row %d: column %q: %T does not fit %s", i, name, v, t)
			}
		}
	}
	return nil
}

// Infer derives a schema from row values. Column order follows first
// appearance in order (when given) and then in the rows, sorted per row.
// Columns that only ever hold nulls become strings.
func Infer(rows []map[string]any, order []string) Schema {
	seen := make(map[string]int)
	var names []string
	for _, name := range order {
		if _, ok := seen[name]; !ok {
			seen[name] = len(names)
			names = append(names, name)
		}
	}
	for _, row := range rows {
		extra := make([]string, 0)
		for name := range row {
			if _, ok := seen[name]; !ok {
				extra = append(extra, name)
			}
		}
		slices.Sort(extra)
		for _, name := range extra {
			seen[name] = len(names)
			names = append(names, name)
		}
	}

	types := make([]Type, len(names))
	known := make([]bool, len(names))
	for _, row := range rows {
		for name, v := range row {
			t, ok := TypeOf(v)
			if !ok {
				continue
			}
			i := seen[name]
			if !known[i] {
				types[i], known[i] = t, true
				continue
			}
			types[i] = widen(types[i], t)
		}
	}

	schema := make(Schema, len(names))
	for i, name := range names {
		schema[i] = Field{Name: name, Type: types[i]}
	}
	return schema
}

// Unify merges schemas into one every input fits. Integer widths widen to
// int64, mixed integer and double columns become double, and any other
// conflict falls back to string.
func Unify(schemas ...Schema) Schema {
	var out Schema
	index := make(map[string]int)
	for _, s := range schemas {
		for _, f := range s {
			i, ok := index[f.Name]
			if !ok {
				index[f.Name] = len(out)
				out = append(out, f)
				continue
			}
			out[i].Type = widen(out[i].Type, f.Type)
		}
	}
	return out
}

// TypeOf returns the column type for a Go value. Nil reports false.
// Unsigned values beyond the int64 range are doubles.
func TypeOf(v any) (Type, bool) {
	switch n := v.(type) {
	case uint:
		if uint64(n) > math.MaxInt64 {
			return Double, true
		}
		return Int64, true
	case uint64:
		if n > math.MaxInt64 {
			return Double, true
		}
		return Int64, true
	}
	switch v.(type) {
	case nil:
		return String, false
	case string, []byte, time.Time:
		return String, true
	case bool:
		return Boolean, true
	case int8, int16, int32, uint8, uint16:
		return Int32, true
	case int, int64, uint32:
		return Int64, true
	case float32, float64:
		return Double, true
	default:
		return String, true
	}
}

func widen(a, b Type) Type {
	switch {
	case a == b:
		return a
	case isInt(a) && isInt(b):
		return Int64
	case (isInt(a) || a == Double) && (isInt(b) || b == Double):
		return Double
	default:
		return String
	}
}

func isInt(t Type) bool { return t == Int32 || t == Int64 }

func fits(t Type, v any) bool {
	if v == nil {
		return true
	}
	vt, _ := TypeOf(v)
	switch t {
	case String:
		return vt == String
	case Boolean:
		return vt == Boolean
	case Double:
		return vt == Double || isInt(vt)
	case Int64:
		return isInt(vt)
	case Int32:
		if vt == Int32 {
			return true
		}
		if vt != Int64 {
			return false
		}
		n, ok := asInt64(v)
		return ok && n >= math.MinInt32 && n <= math.MaxInt32
	}
	return false
}

// parquetSchema builds the file schema and the leaf column index of each
// field. Parquet groups order their fields by name, so indexes are looked up
// rather than assumed.
func (s Schema) parquetSchema(name string) (*parquet.Schema, map[string]int) {
	group := make(parquet.Group, len(s))
	for _, f := range s {
		group[f.Name] = parquet.Optional(leafNode(f.Type))
	}
	ps := parquet.NewSchema(name, group)
	columns := make(map[string]int, len(s))
	for i, path := range ps.Columns() {
		columns[strings.Join(path, ".")] = i
	}
	return ps, columns
}

func leafNode(t Type) parquet.Node {
	switch t {
	case Int32:
		return parquet.Int(32)
	case Int64:
		return parquet.Int(64)
	case Double:
		return parquet.Leaf(parquet.DoubleType)
	case Boolean:
		return parquet.Leaf(parquet.BooleanType)
	default:
		return parquet.String()
	}
}
