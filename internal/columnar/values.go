package columnar

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/parquet-go/parquet-go"
)

// TimeLayout is the canonical string form of temporal values in output files.
const TimeLayout = "2006-01-02T15:04:05"

// Stringify converts temporal values to their canonical string form and
// leaves everything else untouched.
func Stringify(v any) any {
	if t, ok := v.(time.Time); ok {
		return t.Format(TimeLayout)
	}
	return v
}

func toValue(t Type, v any, column int) parquet.Value {
	if v == nil {
		return parquet.Value{}.Level(0, 0, column)
	}
	var pv parquet.Value
	switch t {
	case Int32:
		n, _ := asInt64(v)
		pv = parquet.Int32Value(int32(n))
	case Int64:
		n, _ := asInt64(v)
		pv = parquet.Int64Value(n)
	case Double:
		f, _ := asFloat64(v)
		pv = parquet.DoubleValue(f)
	case Boolean:
		b, _ := v.(bool)
		pv = parquet.BooleanValue(b)
	default:
		pv = parquet.ByteArrayValue([]byte(stringOf(v)))
	}
	return pv.Level(0, 1, column)
}

func stringOf(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case time.Time:
		return v.Format(TimeLayout)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case bool:
		return strconv.FormatBool(v)
	default:
		if n, ok := asInt64(v); ok {
			return strconv.FormatInt(n, 10)
		}
		return fmt.Sprint(v)
	}
}

func asInt64(v any) (int64, bool) {
	switch v := v.(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint:
		if uint64(v) > math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		if v > math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	default:
		return 0, false
	}
}

func asFloat64(v any) (float64, bool) {
	switch v := v.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint64:
		return float64(v), true
	default:
		n, ok := asInt64(v)
		return float64(n), ok
	}
}
