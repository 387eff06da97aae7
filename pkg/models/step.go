package models

import "time"

// StepStatus is the lifecycle state of a tracked step.
type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepRunning   StepStatus = "running"
	StepCompleted StepStatus = "completed"
	StepError     StepStatus = "error"
	StepSkipped   StepStatus = "skipped"
)

// Terminal reports whether no further transitions are allowed from s.
func (s StepStatus) Terminal() bool {
	return s == StepCompleted || s == StepError || s == StepSkipped
}

// Step is one tracked unit of work. Zero StartedAt/FinishedAt mean the step
// has not started/finished.
type Step struct {
	ID         string     `json:"id"`
	Label      string     `json:"label"`
	Status     StepStatus `json:"status"`
	StartedAt  time.Time  `json:"started_at,omitempty"`
	FinishedAt time.Time  `json:"finished_at,omitempty"`
	Message    string     `json:"message,omitempty"`
}

// Duration returns how long the step ran. It is zero until the step finishes.
func (s Step) Duration() time.Duration {
	if s.StartedAt.IsZero() || s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}
