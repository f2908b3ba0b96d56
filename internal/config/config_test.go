package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"fuzzyjoin/internal/columnar"
	"fuzzyjoin/internal/config"
)

func clearSinkEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"MINIO_EXTERNAL_URL", "MINIO_ACCESS_KEY", "MINIO_SECRET_KEY", "MINIO_BUCKET_NAME", "FUZZYJOIN_LOG_LEVEL"} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	clearSinkEnv(t)
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantState := filepath.Join(tempHome, ".local", "share", "fuzzyjoin")
	if cfg.Paths.StateDir != wantState {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, wantState)
	}
	if cfg.ManifestPath() != filepath.Join(wantState, "runs.db") {
		t.Fatalf("unexpected manifest path: %q", cfg.ManifestPath())
	}
	if cfg.Matching.ScoreCutoff != 85 || cfg.Matching.TokenSetThreshold != 85 {
		t.Fatalf("unexpected thresholds: %+v", cfg.Matching)
	}
	if cfg.Matching.LimitPerLeft != 0 {
		t.Fatalf("expected unlimited matches by default, got %d", cfg.Matching.LimitPerLeft)
	}
	if cfg.Matching.LeftChunkSize != 100000 || cfg.Matching.BatchSize != 100000 {
		t.Fatalf("unexpected sizing: %+v", cfg.Matching)
	}
	if cfg.Matching.Scheme != "simple" {
		t.Fatalf("unexpected scheme %q", cfg.Matching.Scheme)
	}
	if cfg.Left.Pattern != ".parquet" || cfg.Right.Pattern != ".parquet" {
		t.Fatalf("unexpected patterns %q %q", cfg.Left.Pattern, cfg.Right.Pattern)
	}
	if cfg.Output.ScoreField != "score" {
		t.Fatalf("unexpected score field %q", cfg.Output.ScoreField)
	}
	if cfg.Constraint.Kind != "range" || cfg.Constraint.Value[0] != "base_salary" {
		t.Fatalf("unexpected constraint %+v", cfg.Constraint)
	}
}

func TestLoadCustomPath(t *testing.T) {
	clearSinkEnv(t)
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "fuzzyjoin.toml")
	content := `
[left]
path = "jobs"
title = ["job_title"]

[right]
path = "payroll/*.csv"
pattern = "csv"
title = ["title"]

[[right.filters]]
fields = ["fiscal_year"]
min = 2024
max = 2025

[constraint]
kind = "none"

[matching]
scheme = "UNICODE"
score_cutoff = 90
limit_per_left = 3
left_chunk_size = 50

[output]
path = "out/matches.parquet"

[output.schema]
score = "int32"
base_salary = "double"
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("unexpected resolution: %q exists=%v", resolved, exists)
	}
	if cfg.Matching.Scheme != "unicode" {
		t.Fatalf("expected lowercased scheme, got %q", cfg.Matching.Scheme)
	}
	if cfg.Matching.ScoreCutoff != 90 || cfg.Matching.TokenSetThreshold != 85 {
		t.Fatalf("unexpected thresholds %+v", cfg.Matching)
	}
	if cfg.Matching.LimitPerLeft != 3 || cfg.Matching.LeftChunkSize != 50 {
		t.Fatalf("unexpected matching %+v", cfg.Matching)
	}
	if cfg.Right.Pattern != ".csv" {
		t.Fatalf("expected normalized pattern, got %q", cfg.Right.Pattern)
	}
	if !filepath.IsAbs(cfg.Left.Path) || !filepath.IsAbs(cfg.Output.Path) {
		t.Fatalf("expected absolute paths, got %q %q", cfg.Left.Path, cfg.Output.Path)
	}
	if !strings.HasSuffix(cfg.Right.Path, filepath.Join("payroll", "*.csv")) {
		t.Fatalf("expected glob preserved, got %q", cfg.Right.Path)
	}
	if len(cfg.Right.Filters) != 1 || *cfg.Right.Filters[0].Min != 2024 || *cfg.Right.Filters[0].Max != 2025 {
		t.Fatalf("unexpected filters %+v", cfg.Right.Filters)
	}
	if cfg.Left.Title[0] != "job_title" {
		t.Fatalf("unexpected left title candidates %v", cfg.Left.Title)
	}

	schema := cfg.OutputSchema()
	want := columnar.Schema{{Name: "base_salary", Type: columnar.Double}, {Name: "score", Type: columnar.Int32}}
	if !schema.Equal(want) {
		t.Fatalf("unexpected output schema %v", schema)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	clearSinkEnv(t)
	configPath := filepath.Join(t.TempDir(), "fuzzyjoin.toml")
	if err := os.WriteFile(configPath, []byte("[matching]\nscore_cutof = 80\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	_, _, _, err := config.Load(configPath)
	if err == nil || !strings.Contains(err.Error(), "score_cutof") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
}

func TestSinkEnvFallbacks(t *testing.T) {
	clearSinkEnv(t)
	t.Setenv("HOME", t.TempDir())
	t.Setenv("MINIO_EXTERNAL_URL", "minio.local:9000")
	t.Setenv("MINIO_ACCESS_KEY", "access")
	t.Setenv("MINIO_SECRET_KEY", "secret")
	t.Setenv("MINIO_BUCKET_NAME", "bronze")
	t.Setenv("FUZZYJOIN_LOG_LEVEL", "WARNING")

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Sink.Endpoint != "minio.local:9000" || cfg.Sink.AccessKey != "access" || cfg.Sink.SecretKey != "secret" || cfg.Sink.Bucket != "bronze" {
		t.Fatalf("unexpected sink %+v", cfg.Sink)
	}
	if cfg.Logging.Level != "warn" {
		t.Fatalf("expected warn level, got %q", cfg.Logging.Level)
	}
}

func TestDotEnvNextToConfigIsLoaded(t *testing.T) {
	clearSinkEnv(t)
	os.Unsetenv("MINIO_BUCKET_NAME")
	os.Unsetenv("MINIO_EXTERNAL_URL")
	dir := t.TempDir()
	configPath := filepath.Join(dir, "fuzzyjoin.toml")
	if err := os.WriteFile(configPath, []byte("[sink]\nkind = \"minio\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	env := "MINIO_EXTERNAL_URL=files.example:9000\nMINIO_BUCKET_NAME=from-dotenv\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0o644); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Cleanup(func() {
		os.Unsetenv("MINIO_BUCKET_NAME")
		os.Unsetenv("MINIO_EXTERNAL_URL")
	})

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Sink.Bucket != "from-dotenv" || cfg.Sink.Endpoint != "files.example:9000" {
		t.Fatalf("expected sink from .env, got %+v", cfg.Sink)
	}
}

func TestValidateFailures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"score cutoff range", func(c *config.Config) { c.Matching.ScoreCutoff = 101 }, "matching.score_cutoff must be <= 100"},
		{"token threshold range", func(c *config.Config) { c.Matching.TokenSetThreshold = -1 }, "matching.token_set_threshold must be >= 0"},
		{"chunk size", func(c *config.Config) { c.Matching.LeftChunkSize = 0 }, "matching.left_chunk_size must be positive"},
		{"batch size", func(c *config.Config) { c.Matching.BatchSize = 0 }, "matching.batch_size must be positive"},
		{"negative limit", func(c *config.Config) { c.Matching.LimitPerLeft = -2 }, "matching.limit_per_left must be >= 0"},
		{"scheme", func(c *config.Config) { c.Matching.Scheme = "ascii" }, "matching.scheme must be one of"},
		{"left titles", func(c *config.Config) { c.Left.Title = nil }, "left.title needs at least 1"},
		{"range needs value", func(c *config.Config) { c.Constraint.Value = nil }, "constraint.value"},
		{"filter bounds", func(c *config.Config) {
			lo, hi := 2025.0, 2024.0
			c.Right.Filters = []config.RangeFilter{{Fields: []string{"fiscal_year"}, Min: &lo, Max: &hi}}
		}, "right.filters[0]: min"},
		{"filter without bounds", func(c *config.Config) {
			c.Right.Filters = []config.RangeFilter{{Fields: []string{"fiscal_year"}}}
		}, "right.filters[0] needs min or max"},
		{"date fallback", func(c *config.Config) {
			c.Left.Dates = []config.DateRule{{Field: "post_until", FallbackDays: 30}}
		}, "left.dates[0]: fallback_days requires fallback_from"},
		{"schema type", func(c *config.Config) { c.Output.Schema = map[string]string{"score": "decimal"} }, "output.schema.score"},
		{"dir sink", func(c *config.Config) { c.Sink.Kind = "dir" }, "sink.dir must be set"},
		{"bucket without endpoint", func(c *config.Config) { c.Sink.Bucket = "bronze" }, "sink.endpoint must be set"},
		{"log level", func(c *config.Config) { c.Logging.Level = "verbose" }, "logging.level must be one of"},
		{"pattern", func(c *config.Config) { c.Left.Pattern = ".json" }, "left.pattern must be .parquet or .csv"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected error containing %q", tt.want)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error %q does not contain %q", err, tt.want)
			}
		})
	}
}

func TestDefaultConfigValidates(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestCreateSampleLoads(t *testing.T) {
	clearSinkEnv(t)
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample config does not load: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if len(cfg.Left.Dates) != 2 || cfg.Left.Dates[1].FallbackDays != 30 {
		t.Fatalf("unexpected sample date rules %+v", cfg.Left.Dates)
	}
	if len(cfg.Right.Filters) != 1 {
		t.Fatalf("unexpected sample filters %+v", cfg.Right.Filters)
	}
	if len(cfg.OutputSchema()) != 13 {
		t.Fatalf("unexpected sample schema %v", cfg.OutputSchema())
	}
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Paths.LogDir = filepath.Join(base, "state", "logs")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories returned error: %v", err)
	}
	for _, dir := range []string{cfg.Paths.StateDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q: %v", dir, err)
		}
	}
}
