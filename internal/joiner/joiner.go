package joiner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"fuzzyjoin/internal/batch"
	"fuzzyjoin/internal/columnar"
	"fuzzyjoin/internal/config"
	"fuzzyjoin/internal/fileutil"
	"fuzzyjoin/internal/logging"
	"fuzzyjoin/internal/manifest"
	"fuzzyjoin/internal/matching"
	"fuzzyjoin/internal/metrics"
	"fuzzyjoin/internal/services"
	"fuzzyjoin/internal/services/objectstore"
	"fuzzyjoin/internal/textutil"
)

// Dependencies are the collaborators of a Joiner. Every field is optional.
type Dependencies struct {
	Logger   *slog.Logger
	Manifest *manifest.Store
	Sink     objectstore.Sink
	Metrics  *metrics.Run
	Progress func(Progress)
}

// Request describes one run.
type Request struct {
	Left       config.Source
	Right      config.Source
	Constraint config.Constraint
	Output     string
	ScoreField string
	Schema     columnar.Schema
	Resume     bool
	SkipUpload bool
}

// Result reports a finished run. Output is empty when no row matched.
type Result struct {
	RunID     string
	Output    string
	Uploaded  bool
	UploadKey string
	Resumed   bool
	State     State
	Stats     Stats
}

// Joiner runs fuzzy joins with a fixed matching configuration.
type Joiner struct {
	cfg    config.Matching
	deps   Dependencies
	logger *slog.Logger
	now    func() time.Time
}

// New returns a Joiner for cfg.
func New(cfg config.Matching, deps Dependencies) *Joiner {
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Joiner{
		cfg:    cfg,
		deps:   deps,
		logger: logging.NewComponentLogger(logger, "joiner"),
		now:    time.Now,
	}
}

// Run executes req. A sink failure returns both the Result (with the local
// artifact still on disk) and an error wrapping services.ErrSink.
func (j *Joiner) Run(ctx context.Context, req Request) (*Result, error) {
	if req.Output == "" {
		return nil, services.Wrap(services.ErrConfiguration, "loading", "validate request", "output path is required", nil)
	}
	if req.ScoreField == "" {
		req.ScoreField = "score"
	}
	output, err := filepath.Abs(req.Output)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "loading", "resolve output", req.Output, err)
	}
	req.Output = output

	r := &run{
		j:      j,
		req:    req,
		id:     uuid.NewString(),
		start:  j.now(),
		state:  StateIdle,
		result: &Result{},
	}
	ctx = services.WithRunID(ctx, r.id)
	r.logger = logging.WithContext(ctx, j.logger)
	r.stats = &r.result.Stats
	r.stats.ScoreCutoff = j.cfg.ScoreCutoff
	r.stats.TokenSetThreshold = j.cfg.TokenSetThreshold
	r.stats.LimitPerLeft = j.cfg.LimitPerLeft

	unlock, err := lockOutput(output)
	if err != nil {
		return nil, err
	}
	defer unlock()

	err = r.execute(ctx)
	r.stats.Elapsed = j.now().Sub(r.start)
	r.result.RunID = r.id
	r.result.State = r.state
	r.finish(ctx, err)
	return r.result, err
}

func lockOutput(output string) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "loading", "prepare output dir", filepath.Dir(output), err)
	}
	lock := flock.New(output + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "loading", "lock output", output, err)
	}
	if !locked {
		return nil, services.Wrap(services.ErrConfiguration, "loading", "lock output", fmt.Sprintf("another run is writing %s", output), nil)
	}
	return func() {
		_ = lock.Unlock()
		_ = os.Remove(lock.Path())
	}, nil
}

// run carries the state of one Run call.
type run struct {
	j       *Joiner
	req     Request
	id      string
	start   time.Time
	state   State
	logger  *slog.Logger
	result  *Result
	stats   *Stats
	tracked bool
}

func (r *run) transition(ctx context.Context, next State) context.Context {
	prev := r.state
	r.state = next
	ctx = services.WithStage(ctx, string(next))
	attrs := []any{
		logging.String(logging.FieldEventType, "state_transition"),
		logging.String("from", string(prev)),
		logging.String("to", string(next)),
	}
	if next.chunkState() {
		r.logger.Debug("state changed", attrs...)
	} else {
		r.logger.Info("state changed", attrs...)
	}
	return ctx
}

func (r *run) execute(ctx context.Context) error {
	j := r.j
	loadCtx := r.transition(ctx, StateLoading)

	norm, err := textutil.NewNormalizer(j.cfg.Scheme)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "loading", "normalizer", j.cfg.Scheme, err)
	}

	leftExtra, rightExtra, constraint := constraintFields(r.req.Constraint)
	left, err := j.loadSide(loadCtx, "left", r.req.Left, leftExtra, norm)
	if err != nil {
		return err
	}
	right, err := j.loadSide(loadCtx, "right", r.req.Right, rightExtra, norm)
	if err != nil {
		return err
	}
	r.stats.Left = left.stats
	r.stats.Right = right.stats
	if rc, ok := constraint.(matching.RangeConstraint); ok {
		constraint = matching.RangeConstraint{
			Min:   left.binding.Column(rc.Min),
			Max:   left.binding.Column(rc.Max),
			Value: right.binding.Column(rc.Value),
		}
	}

	ctx, start, err := r.prepareOutput(ctx, left, right)
	if err != nil {
		return err
	}
	return r.match(ctx, left, right, constraint, start)
}

// constraintFields returns the logical fields each side must bind and a
// constraint over those logical names.
func constraintFields(c config.Constraint) (map[string][]string, map[string][]string, matching.Constraint) {
	if c.Kind != "range" {
		return nil, nil, matching.NoConstraint{}
	}
	left := map[string][]string{"min": c.Min, "max": c.Max}
	right := map[string][]string{"value": c.Value}
	return left, right, matching.RangeConstraint{Min: "min", Max: "max", Value: "value"}
}

// resumeState is where matching starts.
type resumeState struct {
	leftRow   int
	nextBatch int
	rows      int64
}

// prepareOutput registers the run in the manifest and either resumes from
// the last checkpoint or clears stale batch files and any previous final
// artifact.
func (r *run) prepareOutput(ctx context.Context, left, right *side) (context.Context, resumeState, error) {
	j := r.j
	var start resumeState
	store := j.deps.Manifest

	var fingerprint string
	if store != nil {
		fp, err := manifest.Fingerprint([]string{left.stats.Path, right.stats.Path}, r.fingerprintParams())
		if err != nil {
			return ctx, start, services.Wrap(services.ErrInputMissing, "loading", "fingerprint inputs", "", err)
		}
		fingerprint = fp
	}

	if r.req.Resume && store != nil {
		point, err := store.ResumePoint(ctx, r.req.Output, fingerprint)
		if err != nil {
			return ctx, start, fmt.Errorf("read resume point: %w", err)
		}
		if point != nil && r.batchesPresent(point) {
			r.id = point.RunID
			ctx = services.WithRunID(ctx, r.id)
			r.logger = logging.WithContext(ctx, j.logger)
			if err := store.Reopen(ctx, r.id); err != nil {
				return ctx, start, fmt.Errorf("reopen run: %w", err)
			}
			r.tracked = true
			r.result.Resumed = true
			r.stats.ResumedFromRow = point.NextLeftRow
			start = resumeState{leftRow: point.NextLeftRow, nextBatch: point.NextBatch, rows: point.RowsWritten}
			r.logger.Info("resuming run",
				logging.Int("next_left_row", point.NextLeftRow),
				logging.Int("next_batch", point.NextBatch),
				logging.Int64("rows_written", point.RowsWritten),
			)
			return ctx, start, nil
		}
		logging.WarnWithContext(r.logger, "nothing to resume; starting fresh", "resume_unavailable",
			logging.String("output", r.req.Output),
			logging.String(logging.FieldImpact, "matching restarts from the first left row"),
		)
	}

	removed, err := batch.RemoveAll(r.req.Output)
	if err != nil {
		return ctx, start, services.Wrap(services.ErrSerialization, "loading", "clear stale batches", r.req.Output, err)
	}
	if removed > 0 {
		logging.WarnWithContext(r.logger, "removed stale batch files", "stale_batches",
			logging.Int("count", removed),
			logging.String("output", r.req.Output),
			logging.String(logging.FieldErrorHint, "use --resume to continue an interrupted run"),
		)
	}

	stale, err := fileutil.RemoveIfExists(r.req.Output)
	if err != nil {
		return ctx, start, services.Wrap(services.ErrSerialization, "loading", "clear previous output", r.req.Output, err)
	}
	if stale {
		logging.WarnWithContext(r.logger, "removed previous final artifact", "output_overwrite",
			logging.String("output", r.req.Output),
			logging.String(logging.FieldImpact, "the artifact is rewritten only if this run finds matches"),
		)
	}

	if store != nil {
		err := store.BeginRun(ctx, manifest.Run{
			ID:          r.id,
			OutputPath:  r.req.Output,
			Fingerprint: fingerprint,
			LeftPath:    left.stats.Path,
			RightPath:   right.stats.Path,
		})
		if err != nil {
			return ctx, start, fmt.Errorf("record run: %w", err)
		}
		r.tracked = true
	}
	return ctx, start, nil
}

// batchesPresent checks that every checkpointed batch is still on disk and
// removes batches written after the last checkpoint.
func (r *run) batchesPresent(point *manifest.ResumePoint) bool {
	artifacts, err := batch.Discover(r.req.Output)
	if err != nil {
		return false
	}
	have := make(map[int]bool, len(artifacts))
	for _, a := range artifacts {
		if a.Index >= point.NextBatch {
			_ = os.Remove(a.Path)
			continue
		}
		have[a.Index] = true
	}
	for _, index := range point.Batches {
		if !have[index] {
			logging.WarnWithContext(r.logger, "checkpointed batch missing", "resume_batch_missing",
				logging.String("path", batch.ArtifactPath(r.req.Output, index)),
			)
			return false
		}
	}
	return true
}

func (r *run) fingerprintParams() any {
	return struct {
		Scheme            string
		ScoreCutoff       int
		TokenSetThreshold int
		LimitPerLeft      int
		Left              config.Source
		Right             config.Source
		Constraint        config.Constraint
		ScoreField        string
		Schema            columnar.Schema
	}{
		Scheme:            r.j.cfg.Scheme,
		ScoreCutoff:       r.j.cfg.ScoreCutoff,
		TokenSetThreshold: r.j.cfg.TokenSetThreshold,
		LimitPerLeft:      r.j.cfg.LimitPerLeft,
		Left:              r.req.Left,
		Right:             r.req.Right,
		Constraint:        r.req.Constraint,
		ScoreField:        r.req.ScoreField,
		Schema:            r.req.Schema,
	}
}

// finish records the outcome in the manifest and metrics.
func (r *run) finish(ctx context.Context, err error) {
	j := r.j
	outcome := "completed"
	if err != nil {
		outcome = services.Kind(err)
		if !errors.Is(err, services.ErrSink) {
			r.state = StateFailed
			r.result.State = StateFailed
		}
		logging.ErrorWithContext(r.logger, "run failed", "run_failed",
			logging.Error(err),
			logging.String("state", string(r.state)),
			logging.String("failure", outcome),
		)
	}
	if r.tracked && j.deps.Manifest != nil {
		// the run context may already be cancelled
		bg := context.WithoutCancel(ctx)
		var merr error
		if err != nil {
			merr = j.deps.Manifest.Fail(bg, r.id, outcome, err.Error())
		} else {
			merr = j.deps.Manifest.Finish(bg, r.id, r.stats.RowsWritten, r.stats.Batches)
		}
		if merr != nil {
			logging.WarnWithContext(r.logger, "failed to update run manifest", "manifest_update_failed", logging.Error(merr))
		}
	}
	if j.deps.Metrics != nil {
		j.deps.Metrics.Finish(r.stats.Elapsed, outcome, j.now())
	}
}
