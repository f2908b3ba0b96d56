package manifest

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema changes.
const schemaVersion = 1

var (
	// ErrSchemaMismatch indicates the database schema version doesn't match the expected version.
	ErrSchemaMismatch = errors.New("schema version mismatch")
	// ErrNotFound is returned when no run matches a lookup.
	ErrNotFound = errors.New("run not found")
)

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

const runColumns = "id, output_path, fingerprint, status, left_path, right_path, started_at, finished_at, rows_written, batches, error_kind, error_message"

// Store persists runs and checkpoints.
type Store struct {
	db   *sqlx.DB
	path string
	now  func() time.Time
}

// Open initializes or connects to the manifest database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create manifest directory: %w", err)
	}
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path, now: time.Now}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.GetContext(ctx, &tableExists,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'")
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	if err := s.db.GetContext(ctx, &version, "SELECT version FROM schema_version LIMIT 1"); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to reset run history)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// BeginRun records a new run in the running state.
func (s *Store) BeginRun(ctx context.Context, run Run) error {
	if strings.TrimSpace(run.ID) == "" {
		return errors.New("manifest: run id is required")
	}
	run.Status = StatusRunning
	if run.StartedRaw == "" {
		run.StartedRaw = formatTime(s.now())
	}
	return s.namedExec(ctx, `INSERT INTO runs (id, output_path, fingerprint, status, left_path, right_path, started_at)
		VALUES (:id, :output_path, :fingerprint, :status, :left_path, :right_path, :started_at)`, run)
}

// Checkpoint records a durable batch flush and updates the run's totals.
func (s *Store) Checkpoint(ctx context.Context, cp Checkpoint) error {
	if cp.CreatedRaw == "" {
		cp.CreatedRaw = formatTime(s.now())
	}
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTxx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()
		if _, err := tx.NamedExecContext(ctx, `INSERT OR REPLACE INTO checkpoints (run_id, batch_index, next_left_row, rows_written, created_at)
			VALUES (:run_id, :batch_index, :next_left_row, :rows_written, :created_at)`, cp); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE runs SET rows_written = ?, batches = (SELECT COUNT(1) FROM checkpoints WHERE run_id = ?) WHERE id = ?",
			cp.RowsWritten, cp.RunID, cp.RunID); err != nil {
			return err
		}
		return tx.Commit()
	})
}

// Finish marks a run completed.
func (s *Store) Finish(ctx context.Context, id string, rows int64, batches int) error {
	return s.exec(ctx,
		"UPDATE runs SET status = ?, finished_at = ?, rows_written = ?, batches = ?, error_kind = NULL, error_message = NULL WHERE id = ?",
		StatusCompleted, formatTime(s.now()), rows, batches, id)
}

// Fail marks a run failed with a classified error.
func (s *Store) Fail(ctx context.Context, id, kind, message string) error {
	return s.exec(ctx,
		"UPDATE runs SET status = ?, finished_at = ?, error_kind = ?, error_message = ? WHERE id = ?",
		StatusFailed, formatTime(s.now()), kind, message, id)
}

// Reopen puts a failed or interrupted run back in the running state so it
// can continue from its checkpoints.
func (s *Store) Reopen(ctx context.Context, id string) error {
	var affected int64
	err := retryOnBusy(ctx, func() error {
		res, err := s.db.ExecContext(ctx,
			"UPDATE runs SET status = ?, finished_at = NULL, error_kind = NULL, error_message = NULL WHERE id = ? AND status != ?",
			StatusRunning, id, StatusCompleted)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("reopen run: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: no resumable run %s", ErrNotFound, id)
	}
	return nil
}

// Get returns a run by id.
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	var run Run
	err := s.db.GetContext(ctx, &run, "SELECT "+runColumns+" FROM runs WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return &run, nil
}

// Latest returns the most recent run writing to output.
func (s *Store) Latest(ctx context.Context, output string) (*Run, error) {
	var run Run
	err := s.db.GetContext(ctx, &run,
		"SELECT "+runColumns+" FROM runs WHERE output_path = ? ORDER BY started_at DESC, rowid DESC LIMIT 1", output)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no runs for %s", ErrNotFound, output)
	}
	if err != nil {
		return nil, fmt.Errorf("latest run: %w", err)
	}
	return &run, nil
}

// List returns the newest runs first. limit <= 0 returns every run.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	query := "SELECT " + runColumns + " FROM runs ORDER BY started_at DESC, rowid DESC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	var runs []Run
	if err := s.db.SelectContext(ctx, &runs, query, args...); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// Checkpoints returns a run's checkpoints in batch order.
func (s *Store) Checkpoints(ctx context.Context, runID string) ([]Checkpoint, error) {
	var cps []Checkpoint
	err := s.db.SelectContext(ctx, &cps,
		"SELECT run_id, batch_index, next_left_row, rows_written, created_at FROM checkpoints WHERE run_id = ? ORDER BY batch_index", runID)
	if err != nil {
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}
	return cps, nil
}

// ResumePoint returns where to continue the latest unfinished run for
// output, provided it was started with the same fingerprint and reached at
// least one checkpoint. It returns nil when there is nothing to resume.
func (s *Store) ResumePoint(ctx context.Context, output, fingerprint string) (*ResumePoint, error) {
	run, err := s.Latest(ctx, output)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if run.Status == StatusCompleted || run.Fingerprint != fingerprint {
		return nil, nil
	}
	cps, err := s.Checkpoints(ctx, run.ID)
	if err != nil {
		return nil, err
	}
	if len(cps) == 0 {
		return nil, nil
	}
	last := cps[len(cps)-1]
	point := &ResumePoint{
		RunID:       run.ID,
		NextLeftRow: last.NextLeftRow,
		NextBatch:   last.BatchIndex + 1,
		RowsWritten: last.RowsWritten,
	}
	for _, cp := range cps {
		point.Batches = append(point.Batches, cp.BatchIndex)
	}
	return point, nil
}

// Prune deletes finished runs older than cutoff and returns how many were
// removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	var affected int64
	err := retryOnBusy(ctx, func() error {
		res, err := s.db.ExecContext(ctx,
			"DELETE FROM runs WHERE status != ? AND started_at < ?", StatusRunning, formatTime(cutoff))
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return affected, nil
}

func (s *Store) exec(ctx context.Context, query string, args ...any) error {
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, query, args...)
		return err
	})
}

func (s *Store) namedExec(ctx context.Context, query string, arg any) error {
	return retryOnBusy(ctx, func() error {
		_, err := s.db.NamedExecContext(ctx, query, arg)
		return err
	})
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}
