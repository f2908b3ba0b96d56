package preflight

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"fuzzyjoin/internal/config"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckOutputDir_Missing(t *testing.T) {
	root := t.TempDir()
	result := CheckOutputDir("out", filepath.Join(root, "a", "b"))
	if !result.Passed {
		t.Fatalf("expected pass for creatable dir, got: %s", result.Detail)
	}
}

func TestCheckSource(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "jobs.csv"), []byte("title\nclerk\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if result := CheckSource("left", config.Source{Path: dir, Pattern: ".csv"}); !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
	if result := CheckSource("left", config.Source{Path: dir, Pattern: ".parquet"}); result.Passed {
		t.Fatal("expected failure when no file matches the pattern")
	}
	if result := CheckSource("left", config.Source{}); result.Passed {
		t.Fatal("expected failure for empty path")
	}
}

func TestCheckSink(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Sink
		pass bool
	}{
		{"none", config.Sink{Kind: "none"}, true},
		{"minio without bucket", config.Sink{Kind: "minio"}, true},
		{"dir", config.Sink{Kind: "dir", Dir: t.TempDir()}, true},
		{"unknown", config.Sink{Kind: "ftp"}, false},
		{"minio bad endpoint", config.Sink{Kind: "minio", Bucket: "b"}, false},
	}
	for _, tt := range tests {
		if got := CheckSink(context.Background(), tt.cfg); got.Passed != tt.pass {
			t.Fatalf("%s: passed=%v detail=%q", tt.name, got.Passed, got.Detail)
		}
	}
}

func TestRunAll(t *testing.T) {
	if results := RunAll(context.Background(), nil, false); results != nil {
		t.Fatal("expected nil results for nil config")
	}

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "jobs.csv"), []byte("title\nclerk\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := config.Default()
	cfg.Paths.StateDir = dir
	cfg.Left = config.Source{Path: filepath.Join(dir, "jobs.csv"), Pattern: ".csv"}
	cfg.Right = config.Source{Path: filepath.Join(dir, "missing"), Pattern: ".csv"}
	cfg.Output.Path = filepath.Join(dir, "out", "m.parquet")

	results := RunAll(context.Background(), &cfg, false)
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %+v", results)
	}
	failed := Failed(results)
	if len(failed) != 1 || failed[0].Name != "Right source" {
		t.Fatalf("expected only the right source to fail, got %+v", failed)
	}
}
