// Package etlerr defines the error taxonomy shared by the pipeline stages.
//
// Fatal conditions are typed errors that wrap their cause, so callers can use
// errors.As to find the stage that failed and errors.Is to reach the root
// cause (for example fs.ErrNotExist). Non-fatal data-quality signals are
// Warning values: steps return them, the transform chain logs them, and they
// never abort a run.
package etlerr

import (
	"fmt"
	"time"
)

// IngestionError reports a source that is absent, unreadable, or
// structurally malformed.
type IngestionError struct {
	Path string
	Err  error
}

func (e *IngestionError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("ingestion: %v", e.Err)
	}
	return fmt.Sprintf("ingestion: %s: %v", e.Path, e.Err)
}

func (e *IngestionError) Unwrap() error { return e.Err }

// TransformError reports a transform precondition that cannot be satisfied,
// such as a required column that is absent or two headers that normalize to
// the same name.
type TransformError struct {
	Step string
	Err  error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("transform %s: %v", e.Step, e.Err)
}

func (e *TransformError) Unwrap() error { return e.Err }

// PersistenceError reports a connection or write failure. Op names the
// operation that failed: descriptor, connect, begin, replace_table, insert
// or commit.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// StageError is what the orchestrator returns when a run fails. It carries
// the stage that was active and how long the run had been going.
type StageError struct {
	Stage   string
	Elapsed time.Duration
	Err     error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s failed after %s: %v", e.Stage, e.Elapsed.Truncate(time.Millisecond), e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Warning is a non-fatal data-quality signal raised by a transform step.
type Warning struct {
	Step    string
	Kind    string
	Count   int
	Message string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s/%s (count=%d): %s", w.Step, w.Kind, w.Count, w.Message)
}
