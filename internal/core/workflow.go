package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/valter-silva-au/gdd/pkg/models"
)

// WorkflowStep is one unit of a tracked run.
type WorkflowStep struct {
	ID    string
	Label string
	Run   func(ctx context.Context) error
	// SkipIf, when set, is evaluated right before the step would start. A true
	// result skips the step with the returned reason.
	SkipIf func() (bool, string)
}

// WorkflowOptions configures a Workflow. Zero values fall back to defaults.
type WorkflowOptions struct {
	RunID         string
	Policy        RetryPolicy
	Interval      time.Duration
	Renderer      Renderer
	Logger        EventLogger
	Now           func() time.Time
	Sleep         func(time.Duration)
	StopOnFailure bool
}

// Workflow wires a StepTracker, ErrorHandler, ProgressDriver and
// NotificationSink around a list of steps. It runs entirely on the calling
// goroutine.
type Workflow struct {
	Tracker *StepTracker
	Handler *ErrorHandler
	Driver  *ProgressDriver
	Sink    *NotificationSink

	stopOnFailure bool
}

// RunResult summarizes a finished run.
type RunResult struct {
	RunID    string
	Snapshot TrackerSnapshot
	Failures []*RetryExhaustedError
}

// Failed reports whether any step ended in error.
func (r RunResult) Failed() bool { return len(r.Failures) > 0 }

// NewWorkflow builds the tracking stack for one run.
func NewWorkflow(opts WorkflowOptions) *Workflow {
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	if opts.Renderer == nil {
		opts.Renderer = RendererFunc(func(TrackerSnapshot) error { return nil })
	}
	tracker := NewStepTracker(opts.Now)
	sink := NewNotificationSink(opts.RunID, opts.Logger, opts.Now)
	driver := NewProgressDriver(tracker, opts.Renderer, opts.Interval, opts.Now, opts.Sleep)
	return &Workflow{
		Tracker:       tracker,
		Handler:       NewErrorHandler(tracker, sink, opts.Policy, driver.Wait),
		Driver:        driver,
		Sink:          sink,
		stopOnFailure: opts.StopOnFailure,
	}
}

// Run executes steps in order. A failed step does not abort the run unless
// StopOnFailure was set, in which case the remaining steps are skipped. The
// returned error is reserved for tracker misuse; step failures are reported
// in RunResult.Failures.
func (w *Workflow) Run(ctx context.Context, steps []WorkflowStep) (RunResult, error) {
	result := RunResult{RunID: w.Sink.RunID()}
	for _, s := range steps {
		if err := w.Tracker.Add(s.ID, s.Label); err != nil {
			return result, err
		}
	}

	w.Sink.Emit("run.started", models.LevelInfo, "", fmt.Sprintf("run started with %d step(s)", len(steps)), map[string]any{"steps": len(steps)})
	w.Driver.Start()

	abortedBy := ""
	for _, s := range steps {
		if err := w.runStep(ctx, s, abortedBy, &result); err != nil {
			w.Driver.Stop()
			return result, err
		}
		if w.stopOnFailure && abortedBy == "" && result.Failed() {
			abortedBy = s.ID
		}
		w.Driver.Refresh()
	}

	w.Driver.Stop()
	result.Snapshot = w.Tracker.Snapshot()

	level, text := models.LevelSuccess, "run finished"
	if result.Failed() {
		level, text = models.LevelError, fmt.Sprintf("run finished with %d failed step(s)", len(result.Failures))
	}
	w.Sink.Emit("run.finished", level, "", text, map[string]any{
		"completed": result.Snapshot.Completed,
		"failed":    result.Snapshot.Failed,
		"skipped":   result.Snapshot.Skipped,
	})
	return result, nil
}

func (w *Workflow) runStep(ctx context.Context, s WorkflowStep, abortedBy string, result *RunResult) error {
	if abortedBy != "" {
		reason := fmt.Sprintf("skipped after %s failed", abortedBy)
		if err := w.Tracker.Skip(s.ID, reason); err != nil {
			return err
		}
		w.Sink.Emit("step.skipped", models.LevelWarning, s.ID, fmt.Sprintf("%s %s", s.Label, reason), nil)
		return nil
	}
	if s.SkipIf != nil {
		if skip, reason := s.SkipIf(); skip {
			if err := w.Tracker.Skip(s.ID, reason); err != nil {
				return err
			}
			w.Sink.Emit("step.skipped", models.LevelInfo, s.ID, fmt.Sprintf("%s skipped: %s", s.Label, reason), nil)
			return nil
		}
	}
	if s.Run == nil {
		return fmt.Errorf("step %q has no work function", s.ID)
	}

	w.Sink.Emit("step.started", models.LevelInfo, s.ID, s.Label+" started", nil)
	err := w.Handler.Execute(ctx, s.ID, s.Run)
	var exhausted *RetryExhaustedError
	if errors.As(err, &exhausted) {
		result.Failures = append(result.Failures, exhausted)
		return nil
	}
	return err
}
