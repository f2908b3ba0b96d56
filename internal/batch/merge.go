package batch

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"fuzzyjoin/internal/columnar"
	"fuzzyjoin/internal/fileutil"
	"fuzzyjoin/internal/logging"
	"fuzzyjoin/internal/services"
)

const mergeBuffer = 4096

// MergeResult describes a finished merge.
type MergeResult struct {
	Path    string
	Batches int
	Rows    int64
	Schema  columnar.Schema
	Unified bool
	Removed int
}

// Merge concatenates every batch artifact of finalPath, in index order, into
// finalPath and deletes the batches. With no batches it logs a warning and
// returns a zero result without creating a file.
func Merge(ctx context.Context, finalPath string, logger *slog.Logger) (MergeResult, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "merge")

	artifacts, err := Discover(finalPath)
	if err != nil {
		return MergeResult{}, services.Wrap(services.ErrMerge, "merging", "discover batches", finalPath, err)
	}
	if len(artifacts) == 0 {
		logging.WarnWithContext(logger, "no batch files found to merge", "merge_empty",
			logging.String("output", finalPath),
			logging.String(logging.FieldImpact, "no output artifact written"),
		)
		return MergeResult{}, nil
	}

	schema, unified, err := mergedSchema(artifacts)
	if err != nil {
		return MergeResult{}, services.Wrap(services.ErrMerge, "merging", "read batch schema", finalPath, err)
	}
	if unified {
		logging.WarnWithContext(logger, "batch schemas differ; unifying column types", "schema_unified",
			logging.Int("batches", len(artifacts)),
			logging.String(logging.FieldImpact, "conflicting columns widened"),
		)
	}
	if _, err := os.Stat(finalPath); err == nil {
		logging.WarnWithContext(logger, "overwriting existing output", "output_overwrite",
			logging.String("output", finalPath),
		)
	}

	logger.Info("merging batch files",
		logging.Int("batches", len(artifacts)),
		logging.String("output", finalPath),
	)
	rows, err := concat(ctx, artifacts, schema, finalPath)
	if err != nil {
		return MergeResult{}, services.Wrap(services.ErrMerge, "merging", "write output", finalPath, err)
	}

	result := MergeResult{Path: finalPath, Batches: len(artifacts), Rows: rows, Schema: schema, Unified: unified}
	for _, a := range artifacts {
		if err := os.Remove(a.Path); err != nil && !os.IsNotExist(err) {
			logging.WarnWithContext(logger, "failed to delete batch file", "batch_cleanup_failed",
				logging.String("path", a.Path),
				logging.Error(err),
			)
			continue
		}
		result.Removed++
	}
	logger.Info("final output written",
		logging.String("output", finalPath),
		logging.Int64("rows", rows),
		logging.Int("batches_removed", result.Removed),
	)
	return result, nil
}

func mergedSchema(artifacts []Artifact) (columnar.Schema, bool, error) {
	schemas := make([]columnar.Schema, 0, len(artifacts))
	for _, a := range artifacts {
		r, err := columnar.Open(a.Path)
		if err != nil {
			return nil, false, err
		}
		schemas = append(schemas, r.Schema())
		if err := r.Close(); err != nil {
			return nil, false, err
		}
	}
	first := schemas[0]
	for _, s := range schemas[1:] {
		if !s.Equal(first) {
			return columnar.Unify(schemas...), true, nil
		}
	}
	return first, false, nil
}

func concat(ctx context.Context, artifacts []Artifact, schema columnar.Schema, finalPath string) (int64, error) {
	tmp := fileutil.TempSibling(finalPath)
	w, err := columnar.Create(tmp, schema)
	if err != nil {
		return 0, err
	}
	for _, a := range artifacts {
		if err := ctx.Err(); err != nil {
			w.Abort()
			return 0, err
		}
		if err := copyRows(w, a.Path); err != nil {
			w.Abort()
			return 0, err
		}
	}
	if err := w.Close(); err != nil {
		_ = os.Remove(tmp)
		return 0, err
	}
	if err := os.Rename(tmp, finalPath); err != nil {
		_ = os.Remove(tmp)
		return 0, fmt.Errorf("rename %s: %w", tmp, err)
	}
	return w.Rows(), nil
}

func copyRows(w *columnar.Writer, path string) error {
	r, err := columnar.Open(path)
	if err != nil {
		return err
	}
	defer r.Close()
	buf := make([]map[string]any, 0, mergeBuffer)
	err = r.Each(func(row map[string]any) error {
		buf = append(buf, row)
		if len(buf) < mergeBuffer {
			return nil
		}
		err := w.Write(buf...)
		buf = buf[:0]
		return err
	})
	if err != nil {
		return fmt.Errorf("copy %s: %w", path, err)
	}
	return w.Write(buf...)
}
