package manifest

import (
	"database/sql"
	"time"
)

// Status is the lifecycle state of a run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Run is one execution of the join.
type Run struct {
	ID           string         `db:"id"`
	OutputPath   string         `db:"output_path"`
	Fingerprint  string         `db:"fingerprint"`
	Status       Status         `db:"status"`
	LeftPath     string         `db:"left_path"`
	RightPath    string         `db:"right_path"`
	StartedRaw   string         `db:"started_at"`
	FinishedRaw  sql.NullString `db:"finished_at"`
	RowsWritten  int64          `db:"rows_written"`
	Batches      int            `db:"batches"`
	ErrorKind    sql.NullString `db:"error_kind"`
	ErrorMessage sql.NullString `db:"error_message"`
}

// StartedAt parses the stored start time.
func (r Run) StartedAt() time.Time { return parseTime(r.StartedRaw) }

// FinishedAt parses the stored finish time; zero while running.
func (r Run) FinishedAt() time.Time {
	if !r.FinishedRaw.Valid {
		return time.Time{}
	}
	return parseTime(r.FinishedRaw.String)
}

// Duration returns the run's wall time, or time since start while running.
func (r Run) Duration() time.Duration {
	start := r.StartedAt()
	if start.IsZero() {
		return 0
	}
	end := r.FinishedAt()
	if end.IsZero() {
		end = time.Now()
	}
	return end.Sub(start)
}

// Checkpoint marks a durable batch flush.
type Checkpoint struct {
	RunID       string `db:"run_id"`
	BatchIndex  int    `db:"batch_index"`
	NextLeftRow int    `db:"next_left_row"`
	RowsWritten int64  `db:"rows_written"`
	CreatedRaw  string `db:"created_at"`
}

// ResumePoint is where a resumed run picks up.
type ResumePoint struct {
	RunID       string
	NextLeftRow int
	NextBatch   int
	RowsWritten int64
	Batches     []int
}

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(raw string) time.Time {
	t, err := time.Parse(timeLayout, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}
