package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"fuzzyjoin/internal/config"
	"fuzzyjoin/internal/joiner"
	"fuzzyjoin/internal/logging"
	"fuzzyjoin/internal/metrics"
	"fuzzyjoin/internal/preflight"
	"fuzzyjoin/internal/services"
	"fuzzyjoin/internal/services/objectstore"
)

type runOptions struct {
	left              string
	right             string
	output            string
	scheme            string
	scoreCutoff       int
	tokenSetThreshold int
	limit             int
	chunkSize         int
	batchSize         int
	workers           int
	resume            bool
	noUpload          bool
	skipChecks        bool
	progress          string
	jsonOutput        bool
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Match the left source against the right source",
		Long: `Match every left record against the right records by title similarity.

Pairs pass a token-set prefilter, a precise score cutoff and the configured
constraint, are limited per left record and written in batches that are
merged into the output file and optionally uploaded.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			runCfg, err := applyRunFlags(cmd, *cfg, opts)
			if err != nil {
				return err
			}
			return executeRun(cmd, ctx, runCfg, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.left, "left", "", "Left source file, glob or directory")
	flags.StringVar(&opts.right, "right", "", "Right source file, glob or directory")
	flags.StringVarP(&opts.output, "output", "o", "", "Final output artifact path")
	flags.StringVar(&opts.scheme, "scheme", "", "Title normalization scheme (simple or unicode)")
	flags.IntVar(&opts.scoreCutoff, "score-cutoff", 0, "Minimum precise score (0-100)")
	flags.IntVar(&opts.tokenSetThreshold, "token-set-threshold", 0, "Minimum token-set prefilter score (0-100)")
	flags.IntVar(&opts.limit, "limit", 0, "Keep at most this many matches per left record (0 keeps all)")
	flags.IntVar(&opts.chunkSize, "chunk-size", 0, "Left records matched per chunk")
	flags.IntVar(&opts.batchSize, "batch-size", 0, "Rows per batch artifact")
	flags.IntVar(&opts.workers, "workers", 0, "Prefilter workers (0 uses every CPU)")
	flags.BoolVar(&opts.resume, "resume", false, "Continue the last interrupted run for the same output and inputs")
	flags.BoolVar(&opts.noUpload, "no-upload", false, "Keep the result locally and skip the sink upload")
	flags.BoolVar(&opts.skipChecks, "skip-checks", false, "Skip preflight checks")
	flags.StringVar(&opts.progress, "progress", "auto", "Progress bar: auto, always or never")
	flags.BoolVar(&opts.jsonOutput, "json", false, "Print the run summary as JSON")
	return cmd
}

// applyRunFlags returns a copy of cfg with the flags the user set applied
// and re-validated.
func applyRunFlags(cmd *cobra.Command, cfg config.Config, opts runOptions) (*config.Config, error) {
	flags := cmd.Flags()
	expand := func(flag, value string, target *string) error {
		if !flags.Changed(flag) {
			return nil
		}
		expanded, err := config.ExpandPath(strings.TrimSpace(value))
		if err != nil {
			return services.Wrap(services.ErrConfiguration, "config", "--"+flag, value, err)
		}
		*target = expanded
		return nil
	}
	if err := expand("left", opts.left, &cfg.Left.Path); err != nil {
		return nil, err
	}
	if err := expand("right", opts.right, &cfg.Right.Path); err != nil {
		return nil, err
	}
	if err := expand("output", opts.output, &cfg.Output.Path); err != nil {
		return nil, err
	}
	if flags.Changed("scheme") {
		cfg.Matching.Scheme = strings.ToLower(strings.TrimSpace(opts.scheme))
	}
	if flags.Changed("score-cutoff") {
		cfg.Matching.ScoreCutoff = opts.scoreCutoff
	}
	if flags.Changed("token-set-threshold") {
		cfg.Matching.TokenSetThreshold = opts.tokenSetThreshold
	}
	if flags.Changed("limit") {
		cfg.Matching.LimitPerLeft = opts.limit
	}
	if flags.Changed("chunk-size") {
		cfg.Matching.LeftChunkSize = opts.chunkSize
	}
	if flags.Changed("batch-size") {
		cfg.Matching.BatchSize = opts.batchSize
	}
	if flags.Changed("workers") {
		cfg.Matching.Workers = opts.workers
	}
	switch opts.progress {
	case "auto", "always", "never":
	default:
		return nil, services.Wrap(services.ErrConfiguration, "config", "--progress", fmt.Sprintf("must be auto, always or never, got %q", opts.progress), nil)
	}

	if err := cfg.Validate(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "config", "validate", "", err)
	}
	var missing []string
	if cfg.Left.Path == "" {
		missing = append(missing, "left.path (--left)")
	}
	if cfg.Right.Path == "" {
		missing = append(missing, "right.path (--right)")
	}
	if cfg.Output.Path == "" {
		missing = append(missing, "output.path (--output)")
	}
	if len(missing) > 0 {
		return nil, services.Wrap(services.ErrConfiguration, "config", "validate", "missing "+strings.Join(missing, ", "), nil)
	}
	return &cfg, nil
}

func executeRun(cmd *cobra.Command, ctx *commandContext, cfg *config.Config, opts runOptions) error {
	logger, err := ctx.loggerFor(cfg)
	if err != nil {
		return err
	}

	if !opts.skipChecks {
		results := preflight.RunAll(cmd.Context(), cfg, false)
		if failed := preflight.Failed(results); len(failed) > 0 {
			details := make([]string, len(failed))
			for i, r := range failed {
				details[i] = fmt.Sprintf("%s: %s", r.Name, r.Detail)
			}
			return services.Wrap(services.ErrInputMissing, "preflight", "", strings.Join(details, "; "), nil)
		}
	}

	store, err := ctx.openManifest(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	var sink objectstore.Sink
	if !opts.noUpload {
		sink, err = objectstore.FromConfig(cfg.Sink)
		if err != nil && !errors.Is(err, objectstore.ErrNotConfigured) {
			return services.Wrap(services.ErrConfiguration, "config", "sink", "", err)
		}
	}

	runMetrics := metrics.New()
	bar := newProgressBar(cmd.ErrOrStderr(), opts.progress)
	j := joiner.New(cfg.Matching, joiner.Dependencies{
		Logger:   logger,
		Manifest: store,
		Sink:     sink,
		Metrics:  runMetrics,
		Progress: bar.update,
	})

	result, runErr := j.Run(cmd.Context(), joiner.Request{
		Left:       cfg.Left,
		Right:      cfg.Right,
		Constraint: cfg.Constraint,
		Output:     cfg.Output.Path,
		ScoreField: cfg.Output.ScoreField,
		Schema:     cfg.OutputSchema(),
		Resume:     opts.resume,
		SkipUpload: opts.noUpload,
	})
	bar.finish()

	if err := runMetrics.WriteTextfile(cfg.Metrics.Textfile); err != nil {
		logging.WarnWithContext(logger, "failed to write metrics textfile", "metrics_write_failed",
			logging.String("path", cfg.Metrics.Textfile),
			logging.Error(err),
		)
	}
	if result != nil {
		out := cmd.OutOrStdout()
		if opts.jsonOutput {
			if err := writeJSON(out, summaryJSON(result)); err != nil {
				return err
			}
		} else {
			fmt.Fprintln(out, renderSummary(result))
		}
	}
	return runErr
}
