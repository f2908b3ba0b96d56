package records

import (
	"math"
	"strconv"
	"strings"
)

// Record is one row keyed by column name. Nil means null.
type Record map[string]any

// Merge returns the union of left and right plus the score field. Right
// values win on column collisions.
func Merge(left, right Record, scoreField string, score int) Record {
	out := make(Record, len(left)+len(right)+1)
	for k, v := range left {
		out[k] = v
	}
	for k, v := range right {
		out[k] = v
	}
	out[scoreField] = score
	return out
}

// Project returns a copy of r restricted to columns. Absent columns are
// carried as nulls.
func Project(r Record, columns []string) Record {
	out := make(Record, len(columns))
	for _, c := range columns {
		out[c] = r[c]
	}
	return out
}

// Float coerces v to a float64. Numbers convert directly and numeric strings
// are parsed; nil, NaN, booleans and anything else report false.
func Float(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case nil:
		return 0, false
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int8:
		f = float64(n)
	case int16:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint8:
		f = float64(n)
	case uint16:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case string:
		s := strings.TrimSpace(strings.ReplaceAll(n, ",", ""))
		if s == "" {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	case []byte:
		return Float(string(n))
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// IsEmpty reports whether v is null or a blank string.
func IsEmpty(v any) bool {
	switch s := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(s) == ""
	case []byte:
		return strings.TrimSpace(string(s)) == ""
	default:
		return false
	}
}
