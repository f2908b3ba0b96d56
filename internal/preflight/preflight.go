package preflight

import (
	"context"
	"path/filepath"

	"fuzzyjoin/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every check that applies to cfg. The sink check only runs
// when withSink is set.
func RunAll(ctx context.Context, cfg *config.Config, withSink bool) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckSource("Left source", cfg.Left),
		CheckSource("Right source", cfg.Right),
	}
	if cfg.Output.Path != "" {
		results = append(results, CheckOutputDir("Output directory", filepath.Dir(cfg.Output.Path)))
	}
	results = append(results, CheckDirectoryAccess("State directory", cfg.Paths.StateDir))
	if withSink {
		results = append(results, CheckSink(ctx, cfg.Sink))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
