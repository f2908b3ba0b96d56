package fuzz

import (
	"math"
	"testing"
)

func approx(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 0.01 {
		t.Errorf("%s = %.4f, want %.4f", name, got, want)
	}
}

func TestRatio(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"this is a test", "this is a test!", 96.5517},
		{"kitten", "sitting", 61.5385},
		{"senior data analyst", "data analyst senior", 63.1579},
		{"", "", 100},
		{"abc", "", 0},
		{"same", "same", 100},
	}
	for _, tt := range tests {
		approx(t, "Ratio("+tt.a+","+tt.b+")", Ratio(tt.a, tt.b), tt.want)
		approx(t, "Ratio symmetric", Ratio(tt.b, tt.a), tt.want)
	}
}

func TestRatioCutoffUsesLengthBound(t *testing.T) {
	if got := RatioCutoff("ab", "abcdefghijklmnop", 50); got != 0 {
		t.Fatalf("expected bound to reject, got %v", got)
	}
	if bound := RatioBound(2, 16); bound >= 50 {
		t.Fatalf("bound = %v, want < 50", bound)
	}
	if got := RatioCutoff("kitten", "sitting", 60); got < 60 {
		t.Fatalf("expected score above cutoff, got %v", got)
	}
	if got := RatioCutoff("kitten", "sitting", 70); got != 0 {
		t.Fatalf("expected 0 below cutoff, got %v", got)
	}
}

func TestPartialRatio(t *testing.T) {
	approx(t, "substring", PartialRatio("this is a test", "this is a test!"), 100)
	approx(t, "contained", PartialRatio("analyst", "senior data analyst ii"), 100)
	approx(t, "empty", PartialRatio("", "abc"), 0)
	approx(t, "both empty", PartialRatio("", ""), 100)
	if got := PartialRatio("abcd", "xxxx"); got != 0 {
		t.Fatalf("disjoint alphabets = %v, want 0", got)
	}
	// "bcx" aligns with the trailing edge "bc" of the haystack.
	if got := PartialRatio("bcx", "aaaaabc"); got < 79 {
		t.Fatalf("edge alignment = %v, want >= 80", got)
	}
}

func TestTokenSortRatio(t *testing.T) {
	approx(t, "reordered", TokenSortRatio("fuzzy wuzzy was a bear", "wuzzy fuzzy was a bear"), 100)
	approx(t, "reordered title", TokenSortRatio("senior data analyst", "data analyst senior"), 100)
}

func TestTokenSetRatio(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"duplicates ignored", "fuzzy was a bear", "fuzzy fuzzy was a bear", 100},
		{"subset", "data analyst", "senior data analyst", 100},
		{"same set", "senior data analyst", "data analyst senior", 100},
		{"one differing token", "senior data analyst", "junior data analyst", 89.4737},
		{"shared prefix", "payroll clerk", "payroll specialist", 70},
		{"disjoint", "truck driver", "senior data analyst", 19.3548},
		{"empty left", "", "data analyst", 0},
		{"empty right", "data analyst", "   ", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			approx(t, "TokenSetRatio", TokenSetRatio(tt.a, tt.b), tt.want)
			approx(t, "TokenSetRatio swapped", TokenSetRatio(tt.b, tt.a), tt.want)
		})
	}
}

func TestTokenSetRatioTokensCutoff(t *testing.T) {
	a := Prepare("truck driver")
	b := Prepare("senior data analyst")
	if got := TokenSetRatioTokens(a, b, 70); got != 0 {
		t.Fatalf("expected 0 below cutoff, got %v", got)
	}
	c := Prepare("junior data analyst")
	if got := TokenSetRatioTokens(b, c, 85); got < 85 {
		t.Fatalf("expected score kept at cutoff 85, got %v", got)
	}
}

func TestPartialTokenRatio(t *testing.T) {
	approx(t, "shared token", PartialTokenRatio("data", "senior data analyst"), 100)
	approx(t, "empty", PartialTokenRatio("", "data"), 0)
	if got := PartialTokenRatio("analysts", "senior analyst"); got < 90 {
		t.Fatalf("near token = %v, want >= 90", got)
	}
}

func TestWRatio(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"identical", "data analyst", "data analyst", 100},
		{"reordered", "senior data analyst", "data analyst senior", 95},
		{"subset similar length", "data analyst", "data analyst ii", 95},
		{"empty", "", "data analyst", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			approx(t, "WRatio", WRatio(tt.a, tt.b), tt.want)
		})
	}
}

func TestWRatioLongStringsUsePartialScale(t *testing.T) {
	short := "analyst"
	long := "principal senior staff data analyst for regional operations"
	got := WRatio(short, long)
	// Length ratio is at least 8, so partial matches are scaled by 0.6.
	if got > 60.01 {
		t.Fatalf("WRatio = %v, want <= 60", got)
	}
	if got < 57 {
		t.Fatalf("WRatio = %v, want partial token credit", got)
	}
}

func TestScoresStayInRange(t *testing.T) {
	pairs := [][2]string{
		{"a", "b"},
		{"accountant", "account manager"},
		{"x y z", "z y x w"},
		{"café", "cafe"},
	}
	scorers := map[string]Func{
		"Ratio":             Ratio,
		"PartialRatio":      PartialRatio,
		"TokenSortRatio":    TokenSortRatio,
		"TokenSetRatio":     TokenSetRatio,
		"PartialTokenRatio": PartialTokenRatio,
		"WRatio":            WRatio,
	}
	for name, fn := range scorers {
		for _, p := range pairs {
			score := fn(p[0], p[1])
			if score < 0 || score > 100 {
				t.Fatalf("%s(%q,%q) = %v out of range", name, p[0], p[1], score)
			}
			if self := fn(p[0], p[0]); self != 100 {
				t.Fatalf("%s(%q,%q) = %v, want 100", name, p[0], p[0], self)
			}
		}
	}
}

func TestWithCutoffAndRound(t *testing.T) {
	fn := WithCutoff(Ratio, 70)
	if got := fn("kitten", "sitting"); got != 0 {
		t.Fatalf("expected cutoff to zero score, got %v", got)
	}
	if Round(94.5) != 95 || Round(61.53) != 62 {
		t.Fatalf("unexpected rounding")
	}
}
