package columnar

import (
	"math"
	"path/filepath"
	"testing"
	"time"
)

func TestInferAndUnify(t *testing.T) {
	rows := []map[string]any{
		{"title": "clerk", "salary": 50000, "active": true},
		{"title": nil, "salary": 61000.5, "note": nil},
	}
	schema := Infer(rows, []string{"title"})
	want := map[string]Type{"title": String, "salary": Double, "active": Boolean, "note": String}
	if len(schema) != len(want) {
		t.Fatalf("Infer = %v", schema)
	}
	if schema[0].Name != "title" {
		t.Fatalf("expected declared order first, got %v", schema.Names())
	}
	for name, typ := range want {
		got, ok := schema.Lookup(name)
		if !ok || got != typ {
			t.Fatalf("column %s = %v (%v), want %v", name, got, ok, typ)
		}
	}

	a := Schema{{"id", Int32}, {"score", Int64}, {"label", String}}
	b := Schema{{"id", Int64}, {"score", Double}, {"label", Boolean}, {"extra", String}}
	u := Unify(a, b)
	checks := map[string]Type{"id": Int64, "score": Double, "label": String, "extra": String}
	for name, typ := range checks {
		if got, _ := u.Lookup(name); got != typ {
			t.Fatalf("Unify %s = %v, want %v", name, got, typ)
		}
	}
	if !u.Equal(Unify(b, a)) {
		t.Fatal("unify should be order independent in column types")
	}
}

func TestSchemaCheck(t *testing.T) {
	schema := Schema{{"title", String}, {"salary", Double}, {"score", Int32}}
	ok := []map[string]any{{"title": "clerk", "salary": 10, "score": int64(95)}, {"title": nil}}
	if err := schema.Check(ok); err != nil {
		t.Fatalf("Check: %v", err)
	}
	bad := [][]map[string]any{
		{{"title": 12}},
		{{"salary": "high"}},
		{{"score": int64(1) << 40}},
		{{"unknown": "x"}},
	}
	for _, rows := range bad {
		if err := schema.Check(rows); err == nil {
			t.Fatalf("expected incompatibility for %v", rows)
		}
	}
}

func TestUnsignedBeyondInt64(t *testing.T) {
	big := uint64(math.MaxInt64) + 1
	if typ, _ := TypeOf(big); typ != Double {
		t.Fatalf("TypeOf(%d) = %s want double", big, typ)
	}
	if typ, _ := TypeOf(uint64(7)); typ != Int64 {
		t.Fatalf("TypeOf(7) = %s want int64", typ)
	}
	if err := (Schema{{"n", Int64}}).Check([]map[string]any{{"n": big}}); err == nil {
		t.Fatal("expected out of range uint64 to be rejected by an int64 column")
	}
	if got := Infer([]map[string]any{{"n": big}}, nil); !got.Equal(Schema{{"n", Double}}) {
		t.Fatalf("Infer = %v", got)
	}
	if f, ok := asFloat64(big); !ok || f != float64(big) {
		t.Fatalf("asFloat64 = %v,%v", f, ok)
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rows.parquet")
	schema := Schema{{"title", String}, {"salary", Double}, {"score", Int32}, {"count", Int64}, {"ok", Boolean}}
	rows := []map[string]any{
		{"title": "clerk", "salary": 50000.0, "score": 95, "count": int64(3), "ok": true},
		{"title": nil, "salary": nil, "score": nil, "count": nil, "ok": nil},
		{"title": "nurse", "salary": 70000, "score": int32(88), "count": 7, "ok": false},
	}
	if err := WriteFile(path, schema, rows); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, read, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !got.Equal(schema) {
		t.Fatalf("schema = %v, want %v", got, schema)
	}
	if len(read) != len(rows) {
		t.Fatalf("read %d rows, want %d", len(read), len(rows))
	}
	if read[0]["title"] != "clerk" || read[0]["salary"] != 50000.0 || read[0]["score"] != int32(95) || read[0]["ok"] != true {
		t.Fatalf("row 0 = %v", read[0])
	}
	if read[1]["title"] != nil || read[1]["salary"] != nil || read[1]["count"] != nil {
		t.Fatalf("expected nulls in row 1, got %v", read[1])
	}
	if read[2]["salary"] != 70000.0 || read[2]["count"] != int64(7) {
		t.Fatalf("row 2 = %v", read[2])
	}
}

func TestStringify(t *testing.T) {
	ts := time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC)
	if got := Stringify(ts); got != "2024-03-05T14:30:00" {
		t.Fatalf("Stringify = %v", got)
	}
	if got := Stringify(42); got != 42 {
		t.Fatalf("Stringify changed non-time value: %v", got)
	}
	if got := stringOf(61000.5); got != "61000.5" {
		t.Fatalf("stringOf = %q", got)
	}
}

func TestParseType(t *testing.T) {
	for name, want := range map[string]Type{"Utf8": String, "float64": Double, "uint8": Int64, "bool": Boolean, "int32": Int32} {
		got, err := ParseType(name)
		if err != nil || got != want {
			t.Fatalf("ParseType(%q) = %v, %v", name, got, err)
		}
	}
	if _, err := ParseType("decimal"); err == nil {
		t.Fatal("expected error for unsupported type")
	}
}
