package joiner

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"fuzzyjoin/internal/batch"
	"fuzzyjoin/internal/fuzz"
	"fuzzyjoin/internal/logging"
	"fuzzyjoin/internal/manifest"
	"fuzzyjoin/internal/matching"
	"fuzzyjoin/internal/prefilter"
	"fuzzyjoin/internal/records"
	"fuzzyjoin/internal/services"
	"fuzzyjoin/internal/services/objectstore"
)

// match runs the chunk loop, merges the batches and uploads the result.
func (r *run) match(ctx context.Context, left, right *side, constraint matching.Constraint, start resumeState) error {
	j := r.j
	cfg := j.cfg

	index := prefilter.NewIndex(right.titles)
	r.stats.Right.DistinctTitles = index.Distinct()
	r.stats.Left.DistinctTitles = distinct(left.titles)
	pf := prefilter.New(index, float64(cfg.TokenSetThreshold), cfg.Workers)
	r.stats.Workers = pf.Workers()
	eval := &matching.Evaluator{
		Scorer:     matching.NewScorer(cfg.ScoreCutoff),
		Constraint: constraint,
		Limit:      cfg.LimitPerLeft,
	}

	writer, err := batch.NewWriter(batch.WriterOptions{
		FinalPath:  r.req.Output,
		BatchSize:  cfg.BatchSize,
		Schema:     r.req.Schema,
		StartIndex: start.nextBatch,
		Logger:     r.logger,
	})
	if err != nil {
		if !errors.Is(err, services.ErrSerialization) {
			err = services.Wrap(services.ErrSerialization, "buffering", "open writer", r.req.Output, err)
		}
		return err
	}

	leftTokens := make([]fuzz.Tokens, len(left.titles))
	for i, title := range left.titles {
		leftTokens[i] = fuzz.Prepare(title)
	}

	total := len(leftTokens)
	chunkSize := max(cfg.LeftChunkSize, 1)
	r.stats.Chunks = (total + chunkSize - 1) / chunkSize
	r.stats.ChunksSkipped = start.leftRow / chunkSize
	r.stats.RowsWritten = start.rows
	r.stats.Batches = start.nextBatch

	r.logger.Info("matching started",
		logging.Int("left_rows", total),
		logging.Int("right_rows", len(right.titles)),
		logging.Int("right_distinct_titles", index.Distinct()),
		logging.Int("chunks", r.stats.Chunks),
		logging.Int("workers", pf.Workers()),
		logging.Int("start_row", start.leftRow),
	)

	sampler := logging.NewProgressSampler(5)
	for begin := start.leftRow; begin < total; begin += chunkSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(begin+chunkSize, total)
		chunkNo := begin / chunkSize
		chunkCtx := services.WithChunk(ctx, chunkNo)
		chunkStart := time.Now()

		chunkCtx = r.transition(chunkCtx, StatePrefiltering)
		candidates, err := pf.Candidates(chunkCtx, leftTokens[begin:end])
		if err != nil {
			return err
		}

		r.transition(chunkCtx, StateScoring)
		matches, counts := eval.Evaluate(matching.Chunk{
			Offset: begin,
			Titles: leftTokens[begin:end],
			Left:   left.records.Rows,
			Right:  right.records.Rows,
			Index:  index,
		}, candidates)
		r.transition(chunkCtx, StateLimiting)
		r.stats.addCounts(counts)

		r.transition(chunkCtx, StateBuffering)
		rows := make([]records.Record, len(matches))
		for i, m := range matches {
			rows[i] = records.Merge(left.records.Rows[m.Left], right.records.Rows[m.Right], r.req.ScoreField, m.Score)
		}
		artifacts, err := writer.Append(rows)
		if cerr := r.checkpoint(ctx, writer, artifacts, end, start.rows); cerr != nil {
			return cerr
		}
		if err != nil {
			return err
		}

		elapsed := time.Since(chunkStart)
		if m := j.deps.Metrics; m != nil {
			m.Candidates.Add(float64(counts.Candidates))
			m.PairsScored.Add(float64(counts.Scored))
			m.ConstraintRejects.Add(float64(counts.Rejected))
			m.LimitedOut.Add(float64(counts.LimitedOut))
			m.ChunkDuration.Observe(elapsed.Seconds())
		}
		progress := Progress{
			Chunk:       chunkNo + 1,
			Chunks:      r.stats.Chunks,
			LeftDone:    end,
			LeftTotal:   total,
			Candidates:  r.stats.Candidates,
			RowsWritten: r.stats.RowsWritten + int64(writer.Buffered()),
			Elapsed:     time.Since(r.start),
		}
		if sampler.ShouldLogCount(end, total, "matching") {
			logging.WithContext(chunkCtx, j.logger).Info("matching progress",
				logging.Int("chunk", progress.Chunk),
				logging.Int("chunks", progress.Chunks),
				logging.Float64("percent", progress.Percent()),
				logging.Int("candidates", counts.Candidates),
				logging.Int("accepted", counts.Accepted),
				logging.Duration("chunk_elapsed", elapsed),
			)
		}
		if j.deps.Progress != nil {
			j.deps.Progress(progress)
		}
	}

	artifacts, err := writer.Flush()
	if cerr := r.checkpoint(ctx, writer, artifacts, total, start.rows); cerr != nil {
		return cerr
	}
	if err != nil {
		return err
	}
	r.stats.SchemaFallbacks = writer.Fallbacks()
	r.logger.Info("matching complete",
		logging.Int64("rows_written", r.stats.RowsWritten),
		logging.Int("batches", r.stats.Batches),
		logging.Int("candidates", r.stats.Candidates),
		logging.Int("constraint_rejects", r.stats.ConstraintRejects),
		logging.Int("limited_out", r.stats.LimitedOut),
	)

	ctx = r.transition(ctx, StateMerging)
	merged, err := batch.Merge(ctx, r.req.Output, r.logger)
	if err != nil {
		return err
	}
	r.stats.FinalRows = merged.Rows
	if merged.Batches == 0 {
		r.transition(ctx, StateDone)
		return nil
	}
	r.result.Output = merged.Path

	if r.req.SkipUpload {
		r.transition(ctx, StateDone)
		return nil
	}
	if j.deps.Sink == nil {
		logging.WarnWithContext(r.logger, "upload skipped: no sink configured", "upload_skipped",
			logging.String("output", merged.Path),
			logging.String(logging.FieldImpact, "result stays on local disk"),
			logging.String(logging.FieldErrorHint, "configure [sink] to upload results"),
		)
		r.transition(ctx, StateDone)
		return nil
	}
	ctx = r.transition(ctx, StateUploading)
	key := filepath.Base(merged.Path)
	if err := objectstore.Upload(ctx, j.deps.Sink, merged.Path, key, r.logger); err != nil {
		return err
	}
	r.result.Uploaded = true
	r.result.UploadKey = key
	if keyer, ok := j.deps.Sink.(interface{ Key(string) string }); ok {
		r.result.UploadKey = keyer.Key(key)
	}
	r.transition(ctx, StateDone)
	return nil
}

// checkpoint records each newly written artifact. nextLeft is the first left
// row whose matches are not yet on disk.
func (r *run) checkpoint(ctx context.Context, writer *batch.Writer, artifacts []batch.Artifact, nextLeft int, baseRows int64) error {
	if len(artifacts) == 0 {
		return nil
	}
	rows := baseRows + int64(writer.RowsWritten())
	r.stats.RowsWritten = rows
	r.stats.Batches = writer.NextIndex()
	if m := r.j.deps.Metrics; m != nil {
		var n int
		for _, a := range artifacts {
			n += a.Rows
		}
		m.RowsWritten.Add(float64(n))
		m.Batches.Add(float64(len(artifacts)))
	}
	store := r.j.deps.Manifest
	if store == nil {
		return nil
	}
	for _, a := range artifacts {
		err := store.Checkpoint(ctx, manifest.Checkpoint{
			RunID:       r.id,
			BatchIndex:  a.Index,
			NextLeftRow: nextLeft,
			RowsWritten: rows,
		})
		if err != nil {
			return services.Wrap(services.ErrSerialization, "buffering", "checkpoint", a.Path, err)
		}
	}
	return nil
}

func distinct(values []string) int {
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v != "" {
			seen[v] = struct{}{}
		}
	}
	return len(seen)
}
