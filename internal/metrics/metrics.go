// Package metrics records operational metrics for pipeline runs behind a
// small pluggable Backend.
//
// The default backend is a no-op, so every helper is safe to call whether or
// not a real backend (Prometheus Pushgateway, Datadog) has been installed.
// Concrete systems live in subpackages; the rest of the code depends only on
// the helpers below.
package metrics

import "time"

// Metric names emitted by the helpers.
const (
	StageTotal    = "retailetl_stage_total"
	StageDuration = "retailetl_stage_duration_seconds"
	RowsTotal     = "retailetl_rows_total"
	BatchesTotal  = "retailetl_batches_total"
	WarningsTotal = "retailetl_warnings_total"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it.
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil keeps the existing one.
// It is meant to be called once at startup.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Flush delegates to the current backend.
func Flush() error {
	return backend.Flush()
}

// RecordStep counts one execution of a pipeline stage and observes its
// duration, labelled by success or failure.
func RecordStep(job, stage string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	lbls := Labels{"job": job, "stage": stage, "status": status}

	backend.IncCounter(StageTotal, 1, lbls)
	backend.ObserveHistogram(StageDuration, d.Seconds(), lbls)
}

// RecordRows adds n rows of the given kind ("read", "loaded").
func RecordRows(job, kind string, n int64) {
	if n <= 0 {
		return
	}
	backend.IncCounter(RowsTotal, float64(n), Labels{"job": job, "kind": kind})
}

// RecordBatches adds n flushed insert batches.
func RecordBatches(job string, n int64) {
	if n <= 0 {
		return
	}
	backend.IncCounter(BatchesTotal, float64(n), Labels{"job": job})
}

// RecordWarning counts a data-quality warning; n is the number of affected
// cells or rows.
func RecordWarning(job, kind string, n int) {
	if n <= 0 {
		return
	}
	backend.IncCounter(WarningsTotal, float64(n), Labels{"job": job, "kind": kind})
}
