package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals an unknown job or entity id.
	ErrNotFound = errors.New("resource not found")

	// ErrValidation rejects a malformed job payload before a Job record is
	// created. It is always returned synchronously to the submitter.
	ErrValidation = errors.New("validation failed")
)

// GenerationError wraps an adapter failure or an output-validation failure
// inside a stage runner. It is captured into the job's terminal failed state
// and never retried automatically.
type GenerationError struct {
	Stage string
	Cause error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed in stage %s: %v", e.Stage, e.Cause)
}

func (e *GenerationError) Unwrap() error { return e.Cause }

// TimeoutError marks a job that exceeded its configured wall-clock budget.
// Writes applied before the deadline remain in place; there is no rollback.
type TimeoutError struct {
	JobType JobType
	Budget  string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("job type %s exceeded its %s budget", e.JobType, e.Budget)
}

func NewValidationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
