package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"fuzzyjoin/internal/logging"
	"fuzzyjoin/internal/services"
)

// Sink stores an object under key.
type Sink interface {
	Name() string
	Put(ctx context.Context, key string, r io.Reader, size int64) error
}

// Upload sends the file at path to sink under key and deletes the local copy
// once the sink accepted it. A failed delete only logs a warning.
func Upload(ctx context.Context, sink Sink, path, key string, logger *slog.Logger) error {
	if sink == nil {
		return services.Wrap(services.ErrSink, "upload", "configure", "no sink configured", nil)
	}
	if key == "" {
		key = filepath.Base(path)
	}
	file, err := os.Open(path)
	if err != nil {
		return services.Wrap(services.ErrSink, "upload", "open", path, err)
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return services.Wrap(services.ErrSink, "upload", "stat", path, err)
	}
	putErr := sink.Put(ctx, key, file, info.Size())
	_ = file.Close()
	if putErr != nil {
		return services.Wrap(services.ErrSink, "upload", sink.Name(), fmt.Sprintf("put %s (local artifact kept at %s)", key, path), putErr)
	}
	if logger != nil {
		logger.Info("artifact uploaded",
			logging.String("sink", sink.Name()),
			logging.String("key", key),
			logging.Int64("bytes", info.Size()),
		)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.WarnWithContext(logger, "local artifact not removed after upload", "artifact_cleanup_failed",
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove the file manually"),
			logging.String(logging.FieldImpact, "local disk keeps a copy of the uploaded artifact"),
		)
	}
	return nil
}

// DirSink copies objects into a local directory.
type DirSink struct {
	Dir string
}

func (d DirSink) Name() string { return "dir" }

func (d DirSink) Put(ctx context.Context, key string, r io.Reader, _ int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	target := filepath.Join(d.Dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create target directory: %w", err)
	}
	tmp := target + ".part"
	dest, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("create destination: %w", err)
	}
	if _, err := io.Copy(dest, r); err != nil {
		dest.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("copy data: %w", err)
	}
	if err := dest.Sync(); err != nil {
		dest.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("sync destination: %w", err)
	}
	if err := dest.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close destination: %w", err)
	}
	return os.Rename(tmp, target)
}
