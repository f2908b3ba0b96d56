package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeSources(); err != nil {
		return err
	}
	c.normalizeLogging()
	c.normalizeMatching()
	c.normalizeSink()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Output.Path, err = expandPath(strings.TrimSpace(c.Output.Path)); err != nil {
		return fmt.Errorf("output.path: %w", err)
	}
	if c.Metrics.Textfile, err = expandPath(strings.TrimSpace(c.Metrics.Textfile)); err != nil {
		return fmt.Errorf("metrics.textfile: %w", err)
	}
	return nil
}

func (c *Config) normalizeSources() error {
	for _, side := range []struct {
		name string
		src  *Source
	}{{"left", &c.Left}, {"right", &c.Right}} {
		var err error
		if side.src.Path, err = expandPath(strings.TrimSpace(side.src.Path)); err != nil {
			return fmt.Errorf("%s.path: %w", side.name, err)
		}
		side.src.Pattern = strings.ToLower(strings.TrimSpace(side.src.Pattern))
		if side.src.Pattern == "" {
			side.src.Pattern = defaultSourcePattern
		}
		if !strings.HasPrefix(side.src.Pattern, ".") {
			side.src.Pattern = "." + side.src.Pattern
		}
		side.src.Title = trimAll(side.src.Title)
		side.src.Keep = trimAll(side.src.Keep)
		for i := range side.src.Filters {
			side.src.Filters[i].Fields = trimAll(side.src.Filters[i].Fields)
		}
		for i := range side.src.Dates {
			rule := &side.src.Dates[i]
			rule.Field = strings.TrimSpace(rule.Field)
			rule.FallbackFrom = strings.TrimSpace(rule.FallbackFrom)
		}
	}
	c.Constraint.Kind = strings.ToLower(strings.TrimSpace(c.Constraint.Kind))
	if c.Constraint.Kind == "" {
		c.Constraint.Kind = defaultConstraintKind
	}
	c.Constraint.Min = trimAll(c.Constraint.Min)
	c.Constraint.Max = trimAll(c.Constraint.Max)
	c.Constraint.Value = trimAll(c.Constraint.Value)
	return nil
}

func (c *Config) normalizeLogging() {
	if value, ok := os.LookupEnv("FUZZYJOIN_LOG_LEVEL"); ok && strings.TrimSpace(value) != "" {
		c.Logging.Level = value
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.Level == "warning" {
		c.Logging.Level = "warn"
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
}

func (c *Config) normalizeMatching() {
	c.Matching.Scheme = strings.ToLower(strings.TrimSpace(c.Matching.Scheme))
	if c.Matching.Scheme == "" {
		c.Matching.Scheme = defaultScheme
	}
	c.Output.ScoreField = strings.TrimSpace(c.Output.ScoreField)
	if c.Output.ScoreField == "" {
		c.Output.ScoreField = defaultScoreField
	}
}

func (c *Config) normalizeSink() {
	c.Sink.Kind = strings.ToLower(strings.TrimSpace(c.Sink.Kind))
	if c.Sink.Kind == "" {
		c.Sink.Kind = defaultSinkKind
	}
	fallbacks := []struct {
		dst *string
		env string
	}{
		{&c.Sink.Endpoint, "MINIO_EXTERNAL_URL"},
		{&c.Sink.AccessKey, "MINIO_ACCESS_KEY"},
		{&c.Sink.SecretKey, "MINIO_SECRET_KEY"},
		{&c.Sink.Bucket, "MINIO_BUCKET_NAME"},
	}
	for _, fb := range fallbacks {
		*fb.dst = strings.TrimSpace(*fb.dst)
		if *fb.dst != "" {
			continue
		}
		if value, ok := os.LookupEnv(fb.env); ok {
			*fb.dst = strings.TrimSpace(value)
		}
	}
	if c.Sink.Dir != "" {
		if dir, err := expandPath(c.Sink.Dir); err == nil {
			c.Sink.Dir = dir
		}
	}
}

func trimAll(values []string) []string {
	out := values[:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
