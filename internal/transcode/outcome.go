package transcode

import (
	"fmt"
	"strings"
	"time"
)

// Status is the terminal state of one rendition job.
type Status int

const (
	StatusCompleted Status = iota + 1
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome records how one rendition job ended. Cause is nil when Completed.
type Outcome struct {
	Rendition string
	Status    Status
	Cause     error
	Elapsed   time.Duration
}

// Completed reports whether the job succeeded.
func (o Outcome) Completed() bool {
	return o.Status == StatusCompleted
}

// JobError attributes a failure to a rendition and pipeline phase.
type JobError struct {
	Rendition string
	Phase     string
	Err       error
}

func (e *JobError) Error() string {
	return fmt.Sprintf("rendition %s: %s: %v", e.Rendition, e.Phase, e.Err)
}

func (e *JobError) Unwrap() error {
	return e.Err
}

// BatchError is returned when at least one rendition failed. It names every
// failed rendition; none of the batch's output may be published.
type BatchError struct {
	Total  int
	Failed []Outcome
}

func (e *BatchError) Error() string {
	parts := make([]string, 0, len(e.Failed))
	for _, outcome := range e.Failed {
		parts = append(parts, fmt.Sprintf("%s (%v)", outcome.Rendition, outcome.Cause))
	}
	return fmt.Sprintf("%d of %d renditions failed: %s", len(e.Failed), e.Total, strings.Join(parts, "; "))
}

// Unwrap exposes every failure cause to errors.Is and errors.As.
func (e *BatchError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failed))
	for _, outcome := range e.Failed {
		if outcome.Cause != nil {
			errs = append(errs, outcome.Cause)
		}
	}
	return errs
}

// Renditions returns the names of the failed renditions in ladder order.
func (e *BatchError) Renditions() []string {
	names := make([]string, len(e.Failed))
	for i, outcome := range e.Failed {
		names[i] = outcome.Rendition
	}
	return names
}
