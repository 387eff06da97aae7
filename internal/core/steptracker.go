package core

import (
	"time"

	"github.com/valter-silva-au/gdd/pkg/models"
)

// StepTracker is a state machine over an ordered set of named steps.
//
//	pending -> running -> completed | error
//	pending -> skipped
//
// completed, error and skipped are terminal. A tracker has a single writer;
// it does no locking and triggers no display or notification side effects.
type StepTracker struct {
	steps []*models.Step
	index map[string]*models.Step
	now   func() time.Time
}

// TrackerSnapshot is an immutable copy of tracker state for rendering.
type TrackerSnapshot struct {
	Steps     []models.Step
	Percent   float64
	ETA       time.Duration
	ETAKnown  bool
	Done      bool
	Completed int
	Failed    int
	Skipped   int
}

// NewStepTracker creates an empty tracker. A nil now uses time.Now.
func NewStepTracker(now func() time.Time) *StepTracker {
	if now == nil {
		now = time.Now
	}
	return &StepTracker{index: make(map[string]*models.Step), now: now}
}

// Add registers a new pending step.
func (t *StepTracker) Add(id, label string) error {
	if _, exists := t.index[id]; exists {
		return &DuplicateStepError{ID: id}
	}
	s := &models.Step{ID: id, Label: label, Status: models.StepPending}
	t.steps = append(t.steps, s)
	t.index[id] = s
	return nil
}

// Start moves a pending step to running.
func (t *StepTracker) Start(id, message string) error {
	s, err := t.transition(id, models.StepRunning, models.StepPending)
	if err != nil {
		return err
	}
	s.StartedAt = t.now()
	s.Message = message
	return nil
}

// Complete moves a running step to completed.
func (t *StepTracker) Complete(id, message string) error {
	return t.finish(id, models.StepCompleted, message)
}

// Fail moves a running step to error.
func (t *StepTracker) Fail(id, message string) error {
	return t.finish(id, models.StepError, message)
}

// Skip moves a pending step to skipped without running it.
func (t *StepTracker) Skip(id, reason string) error {
	s, err := t.transition(id, models.StepSkipped, models.StepPending)
	if err != nil {
		return err
	}
	s.FinishedAt = t.now()
	s.Message = reason
	return nil
}

func (t *StepTracker) finish(id string, to models.StepStatus, message string) error {
	s, err := t.transition(id, to, models.StepRunning)
	if err != nil {
		return err
	}
	s.FinishedAt = t.now()
	s.Message = message
	return nil
}

func (t *StepTracker) transition(id string, to, from models.StepStatus) (*models.Step, error) {
	s, ok := t.index[id]
	if !ok {
		return nil, &UnknownStepError{ID: id}
	}
	if s.Status != from {
		return nil, &InvalidTransitionError{ID: id, From: s.Status, To: to}
	}
	s.Status = to
	return s, nil
}

// Step returns a copy of the step with the given id.
func (t *StepTracker) Step(id string) (models.Step, error) {
	s, ok := t.index[id]
	if !ok {
		return models.Step{}, &UnknownStepError{ID: id}
	}
	return *s, nil
}

// Steps returns copies of all steps in insertion order.
func (t *StepTracker) Steps() []models.Step {
	out := make([]models.Step, len(t.steps))
	for i, s := range t.steps {
		out[i] = *s
	}
	return out
}

// ProgressPercent is completed-or-skipped steps over total steps, times 100.
// An empty tracker reports 0.
func (t *StepTracker) ProgressPercent() float64 {
	if len(t.steps) == 0 {
		return 0
	}
	done := 0
	for _, s := range t.steps {
		if s.Status == models.StepCompleted || s.Status == models.StepSkipped {
			done++
		}
	}
	if done == len(t.steps) {
		return 100
	}
	return float64(done) / float64(len(t.steps)) * 100
}

// ETA is the average duration of completed steps times the number of steps
// not yet terminal. ok is false while no step has completed.
func (t *StepTracker) ETA() (eta time.Duration, ok bool) {
	var total time.Duration
	completed, remaining := 0, 0
	for _, s := range t.steps {
		switch {
		case s.Status == models.StepCompleted:
			total += s.Duration()
			completed++
		case !s.Status.Terminal():
			remaining++
		}
	}
	if completed == 0 {
		return 0, false
	}
	return total / time.Duration(completed) * time.Duration(remaining), true
}

// Done reports whether the tracker has at least one step and every step is
// terminal.
func (t *StepTracker) Done() bool {
	if len(t.steps) == 0 {
		return false
	}
	for _, s := range t.steps {
		if !s.Status.Terminal() {
			return false
		}
	}
	return true
}

// Snapshot captures the tracker state for a renderer.
func (t *StepTracker) Snapshot() TrackerSnapshot {
	snap := TrackerSnapshot{
		Steps:   t.Steps(),
		Percent: t.ProgressPercent(),
		Done:    t.Done(),
	}
	snap.ETA, snap.ETAKnown = t.ETA()
	for _, s := range snap.Steps {
		switch s.Status {
		case models.StepCompleted:
			snap.Completed++
		case models.StepError:
			snap.Failed++
		case models.StepSkipped:
			snap.Skipped++
		}
	}
	return snap
}
