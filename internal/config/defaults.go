package config

const (
	defaultConfigPath        = "~/.config/fuzzyjoin/config.toml"
	defaultStateDir          = "~/.local/share/fuzzyjoin"
	defaultLogDir            = "~/.local/share/fuzzyjoin/logs"
	manifestFileName         = "runs.db"
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultScheme            = "simple"
	defaultScoreCutoff       = 85
	defaultTokenSetThreshold = 85
	defaultLeftChunkSize     = 100_000
	defaultBatchSize         = 100_000
	defaultScoreField        = "score"
	defaultSourcePattern     = ".parquet"
	defaultConstraintKind    = "range"
	defaultSinkKind          = "minio"
)

// Default returns a Config populated with repository defaults. The field
// candidates describe the job postings (left) to payroll (right) join.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Left: Source{
			Pattern: defaultSourcePattern,
			Title:   []string{"business_title", "job_title", "title"},
		},
		Right: Source{
			Pattern: defaultSourcePattern,
			Title:   []string{"title_description", "job_title", "title"},
		},
		Constraint: Constraint{
			Kind:  defaultConstraintKind,
			Min:   []string{"salary_range_from", "min"},
			Max:   []string{"salary_range_to", "max"},
			Value: []string{"base_salary", "value"},
		},
		Matching: Matching{
			Scheme:            defaultScheme,
			ScoreCutoff:       defaultScoreCutoff,
			TokenSetThreshold: defaultTokenSetThreshold,
			LeftChunkSize:     defaultLeftChunkSize,
			BatchSize:         defaultBatchSize,
		},
		Output: Output{
			ScoreField: defaultScoreField,
		},
		Sink: Sink{
			Kind: defaultSinkKind,
		},
	}
}
