package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directories for state and logs.
type Paths struct {
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format" validate:"oneof=console json"`
	Level  string `toml:"level" validate:"oneof=debug info warn error"`
}

// RangeFilter drops rows whose numeric field falls outside [Min, Max] before
// matching. Rows with a missing or non-numeric value are dropped too.
type RangeFilter struct {
	Fields []string `toml:"fields" validate:"min=1,dive,required"`
	Min    *float64 `toml:"min"`
	Max    *float64 `toml:"max"`
}

// DateRule parses a date field into a timestamp. Required rules drop rows
// whose value does not parse; fallback rules fill an empty field from another
// date plus a number of days.
type DateRule struct {
	Field          string   `toml:"field" validate:"required"`
	Layouts        []string `toml:"layouts"`
	Required       bool     `toml:"required"`
	FallbackFrom   string   `toml:"fallback_from"`
	FallbackDays   int      `toml:"fallback_days"`
	FallbackLayout string   `toml:"fallback_layout"`
	Uppercase      bool     `toml:"uppercase"`
}

// Source describes one side of the join.
type Source struct {
	Path    string        `toml:"path"`
	Pattern string        `toml:"pattern"`
	Title   []string      `toml:"title" validate:"min=1,dive,required"`
	Keep    []string      `toml:"keep"`
	Filters []RangeFilter `toml:"filters" validate:"dive"`
	Dates   []DateRule    `toml:"dates" validate:"dive"`
}

// Constraint selects the secondary rule a title match must also satisfy.
// For the range kind, Min and Max are left-side field candidates and Value is
// a right-side field candidate list.
type Constraint struct {
	Kind  string   `toml:"kind" validate:"oneof=range none"`
	Min   []string `toml:"min"`
	Max   []string `toml:"max"`
	Value []string `toml:"value"`
}

// Matching contains the similarity thresholds and run sizing.
type Matching struct {
	Scheme            string `toml:"scheme" validate:"oneof=simple unicode"`
	ScoreCutoff       int    `toml:"score_cutoff" validate:"gte=0,lte=100"`
	TokenSetThreshold int    `toml:"token_set_threshold" validate:"gte=0,lte=100"`
	LimitPerLeft      int    `toml:"limit_per_left" validate:"gte=0"`
	LeftChunkSize     int    `toml:"left_chunk_size" validate:"gt=0"`
	BatchSize         int    `toml:"batch_size" validate:"gt=0"`
	Workers           int    `toml:"workers" validate:"gte=0"`
}

// Output describes the final artifact.
type Output struct {
	Path       string            `toml:"path"`
	ScoreField string            `toml:"score_field" validate:"required"`
	Schema     map[string]string `toml:"schema"`
}

// Sink contains object storage upload settings.
type Sink struct {
	Kind      string `toml:"kind" validate:"oneof=none minio dir"`
	Endpoint  string `toml:"endpoint"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	Bucket    string `toml:"bucket"`
	Prefix    string `toml:"prefix"`
	Secure    bool   `toml:"secure"`
	Dir       string `toml:"dir"`
}

// Metrics configures the Prometheus textfile written after each run.
type Metrics struct {
	Textfile string `toml:"textfile"`
}

// Config encapsulates all configuration values for fuzzyjoin.
//
// Configuration sections by subsystem:
//   - Paths: run manifest and log directories
//   - Logging: log format and level
//   - Left/Right: source locations, title candidates, filters, date rules
//   - Constraint: the secondary predicate applied to title matches
//   - Matching: thresholds, Top-K, chunk and batch sizes, worker count
//   - Output: final artifact path, score column, declared schema
//   - Sink: object storage upload of the final artifact
//   - Metrics: Prometheus textfile export
type Config struct {
	Paths      Paths      `toml:"paths"`
	Logging    Logging    `toml:"logging"`
	Left       Source     `toml:"left"`
	Right      Source     `toml:"right"`
	Constraint Constraint `toml:"constraint"`
	Matching   Matching   `toml:"matching"`
	Output     Output     `toml:"output"`
	Sink       Sink       `toml:"sink"`
	Metrics    Metrics    `toml:"metrics"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if err := loadDotEnv(resolvedPath); err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			var strict *toml.StrictMissingError
			if errors.As(err, &strict) {
				return nil, "", false, fmt.Errorf("parse config: %s", strict.String())
			}
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("fuzzyjoin.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}

	return defaultPath, false, nil
}

// loadDotEnv reads .env from the working directory and from the config
// file's directory. Variables already set in the environment win.
func loadDotEnv(configPath string) error {
	candidates := []string{".env"}
	if configPath != "" {
		candidates = append(candidates, filepath.Join(filepath.Dir(configPath), ".env"))
	}
	seen := map[string]struct{}{}
	for _, candidate := range candidates {
		abs, err := filepath.Abs(candidate)
		if err != nil {
			continue
		}
		if _, ok := seen[abs]; ok {
			continue
		}
		seen[abs] = struct{}{}
		if info, err := os.Stat(abs); err != nil || info.IsDir() {
			continue
		}
		if err := godotenv.Load(abs); err != nil {
			return fmt.Errorf("load %s: %w", abs, err)
		}
	}
	return nil
}

// EnsureDirectories creates the state and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// ManifestPath returns the run manifest database location.
func (c *Config) ManifestPath() string {
	return filepath.Join(c.Paths.StateDir, manifestFileName)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
// Globs are expanded like plain paths; their metacharacters are preserved.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Sample returns the annotated sample configuration.
func Sample() string { return sampleConfig }
