package core

import (
	"fmt"

	"github.com/valter-silva-au/gdd/pkg/models"
)

// DuplicateStepError is returned by StepTracker.Add for an id already present.
type DuplicateStepError struct {
	ID string
}

func (e *DuplicateStepError) Error() string {
	return fmt.Sprintf("step %q already exists", e.ID)
}

// UnknownStepError is returned when a step id is not tracked.
type UnknownStepError struct {
	ID string
}

func (e *UnknownStepError) Error() string {
	return fmt.Sprintf("unknown step %q", e.ID)
}

// InvalidTransitionError is returned when a step is asked to move to a status
// its current status does not allow.
type InvalidTransitionError struct {
	ID   string
	From models.StepStatus
	To   models.StepStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition for step %q: %s -> %s", e.ID, e.From, e.To)
}

// RetryExhaustedError reports that a step's work failed on every attempt.
type RetryExhaustedError struct {
	StepID   string
	Attempts int
	Err      error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("step %q failed after %d attempt(s): %v", e.StepID, e.Attempts, e.Err)
}

func (e *RetryExhaustedError) Unwrap() error { return e.Err }
