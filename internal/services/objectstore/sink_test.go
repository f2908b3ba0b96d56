package objectstore

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"fuzzyjoin/internal/config"
	"fuzzyjoin/internal/logging"
	"fuzzyjoin/internal/services"
)

type failingSink struct{}

func (failingSink) Name() string { return "failing" }

func (failingSink) Put(context.Context, string, io.Reader, int64) error {
	return errors.New("connection refused")
}

func writeArtifact(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "matches.parquet")
	if err := os.WriteFile(path, []byte("PAR1"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestUploadRemovesLocalOnSuccess(t *testing.T) {
	path := writeArtifact(t)
	dest := t.TempDir()
	if err := Upload(context.Background(), DirSink{Dir: dest}, path, "runs/matches.parquet", logging.NewNop()); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected local artifact removed, stat err = %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dest, "runs", "matches.parquet"))
	if err != nil || string(data) != "PAR1" {
		t.Fatalf("uploaded content = %q, %v", data, err)
	}
}

func TestUploadFailureKeepsLocal(t *testing.T) {
	path := writeArtifact(t)
	err := Upload(context.Background(), failingSink{}, path, "", logging.NewNop())
	if !errors.Is(err, services.ErrSink) {
		t.Fatalf("expected ErrSink, got %v", err)
	}
	if _, statErr := os.Stat(path); statErr != nil {
		t.Fatalf("expected local artifact kept: %v", statErr)
	}
}

func TestUploadWithoutSink(t *testing.T) {
	if err := Upload(context.Background(), nil, writeArtifact(t), "", nil); !errors.Is(err, services.ErrSink) {
		t.Fatalf("expected ErrSink, got %v", err)
	}
}

func TestEndpointHost(t *testing.T) {
	tests := []struct {
		endpoint   string
		secure     bool
		wantHost   string
		wantSecure bool
	}{
		{"minio:9000", false, "minio:9000", false},
		{"minio:9000", true, "minio:9000", true},
		{"http://localhost:9000", true, "localhost:9000", false},
		{"https://s3.example.com/", false, "s3.example.com", true},
	}
	for _, tt := range tests {
		host, secure, err := endpointHost(tt.endpoint, tt.secure)
		if err != nil {
			t.Fatalf("endpointHost(%q): %v", tt.endpoint, err)
		}
		if host != tt.wantHost || secure != tt.wantSecure {
			t.Fatalf("endpointHost(%q) = %q %v", tt.endpoint, host, secure)
		}
	}
	if _, _, err := endpointHost("", false); err == nil {
		t.Fatal("expected error for empty endpoint")
	}
}

func TestNewMinIOKeyPrefix(t *testing.T) {
	m, err := NewMinIO(MinIOConfig{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b", Bucket: "matches", Prefix: "/salary/"})
	if err != nil {
		t.Fatalf("NewMinIO: %v", err)
	}
	if got := m.Key("out.parquet"); got != "salary/out.parquet" {
		t.Fatalf("Key = %q", got)
	}
	if _, err := NewMinIO(MinIOConfig{Endpoint: "localhost:9000"}); err == nil {
		t.Fatal("expected error without bucket")
	}
}

func TestFromConfig(t *testing.T) {
	if _, err := FromConfig(config.Sink{Kind: "none"}); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured for none, got %v", err)
	}
	if _, err := FromConfig(config.Sink{Kind: "minio", Endpoint: "localhost:9000"}); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured without bucket, got %v", err)
	}
	sink, err := FromConfig(config.Sink{Kind: "dir", Dir: t.TempDir()})
	if err != nil || sink.Name() != "dir" {
		t.Fatalf("unexpected dir sink %v %v", sink, err)
	}
	sink, err = FromConfig(config.Sink{Kind: "minio", Endpoint: "http://localhost:9000", Bucket: "bronze", Prefix: "/fuzzy/"})
	if err != nil {
		t.Fatalf("FromConfig returned error: %v", err)
	}
	m, ok := sink.(*MinIO)
	if !ok || m.Key("matches.parquet") != "fuzzy/matches.parquet" {
		t.Fatalf("unexpected minio sink %#v", sink)
	}
	if _, err := FromConfig(config.Sink{Kind: "ftp"}); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}
