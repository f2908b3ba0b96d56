// Package metrics provides Prometheus metrics for a join run.
//
// Each run owns its registry; the joiner updates it as chunks complete and
// the CLI writes it once, at the end of the run, to a textfile for the
// node_exporter textfile collector.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "fuzzyjoin"

// Run holds the metrics of one join run.
type Run struct {
	registry *prometheus.Registry

	// RowsLoaded tracks rows loaded per side after filtering
	RowsLoaded *prometheus.GaugeVec
	// RowsSkipped tracks rows dropped before matching by side and reason
	RowsSkipped *prometheus.CounterVec
	// Candidates tracks pairs surfaced by the token-set prefilter
	Candidates prometheus.Counter
	// PairsScored tracks candidates that cleared the score cutoff
	PairsScored prometheus.Counter
	// ConstraintRejects tracks scored pairs failing the constraint
	ConstraintRejects prometheus.Counter
	// LimitedOut tracks matches dropped by the per-left limit
	LimitedOut prometheus.Counter
	// RowsWritten tracks rows flushed to batch files
	RowsWritten prometheus.Counter
	// Batches tracks batch files written
	Batches prometheus.Counter
	// ChunkDuration tracks time spent matching one left chunk
	ChunkDuration prometheus.Histogram
	// RunDuration is the wall time of the run in seconds
	RunDuration prometheus.Gauge
	// LastRun is the unix time the run finished, labelled by outcome
	LastRun *prometheus.GaugeVec
}

// New returns a Run with a fresh registry.
func New() *Run {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Run{
		registry: reg,
		RowsLoaded: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "input",
			Name:      "rows",
			Help:      "Rows available for matching per side",
		}, []string{"side"}),
		RowsSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "input",
			Name:      "rows_skipped_total",
			Help:      "Rows dropped before matching by side and reason",
		}, []string{"side", "reason"}),
		Candidates: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "matching",
			Name:      "candidates_total",
			Help:      "Pairs surfaced by the token-set prefilter",
		}),
		PairsScored: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "matching",
			Name:      "pairs_scored_total",
			Help:      "Candidates that cleared the score cutoff",
		}),
		ConstraintRejects: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "matching",
			Name:      "constraint_rejects_total",
			Help:      "Scored pairs rejected by the secondary constraint",
		}),
		LimitedOut: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "matching",
			Name:      "limited_out_total",
			Help:      "Matches dropped by the per-left limit",
		}),
		RowsWritten: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "output",
			Name:      "rows_written_total",
			Help:      "Rows flushed to batch files",
		}),
		Batches: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "output",
			Name:      "batches_total",
			Help:      "Batch files written",
		}),
		ChunkDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "matching",
			Name:      "chunk_duration_seconds",
			Help:      "Duration of matching one left chunk in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300, 900, 1800},
		}),
		RunDuration: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "duration_seconds",
			Help:      "Wall time of the run in seconds",
		}),
		LastRun: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "last_timestamp_seconds",
			Help:      "Unix time the run finished by outcome",
		}, []string{"outcome"}),
	}
}

// Registry exposes the run's registry.
func (m *Run) Registry() *prometheus.Registry { return m.registry }

// Finish records the run's duration and outcome.
func (m *Run) Finish(elapsed time.Duration, outcome string, at time.Time) {
	m.RunDuration.Set(elapsed.Seconds())
	m.LastRun.WithLabelValues(outcome).Set(float64(at.Unix()))
}

// WriteTextfile writes the registry to path atomically. An empty path is a
// no-op.
func (m *Run) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
