package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/valter-silva-au/gdd/pkg/models"
)

// RetryPolicy bounds how often and how patiently a step's work is retried.
// The delay before retry n (0-based) is BaseDelay × 2^n, capped at MaxDelay.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// RetryPolicyFromConfig converts the configured retry settings.
func RetryPolicyFromConfig(cfg models.RetryConfig) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: cfg.MaxAttempts,
		BaseDelay:   cfg.BaseDelay,
		MaxDelay:    cfg.MaxDelay,
	}
}

// NewBackOff returns a fresh, deterministic backoff schedule for one step.
// It yields backoff.Stop once MaxAttempts-1 retries have been handed out.
func (p RetryPolicy) NewBackOff() backoff.BackOff {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	maxDelay := p.MaxDelay
	if maxDelay < p.BaseDelay {
		maxDelay = p.BaseDelay
	}
	b := &backoff.ExponentialBackOff{
		InitialInterval:     p.BaseDelay,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         maxDelay,
		MaxElapsedTime:      0,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}
	b.Reset()
	return backoff.WithMaxRetries(b, uint64(attempts-1))
}

// ErrorHandler runs a step's work with bounded retries. Intermediate failures
// are only counted; the tracker and sink hear about the final outcome.
// Tracker misuse errors are returned immediately and never retried.
type ErrorHandler struct {
	tracker *StepTracker
	sink    *NotificationSink
	policy  RetryPolicy
	sleep   func(time.Duration)

	errorCount map[string]int
	retries    map[string]int
}

// NewErrorHandler creates an ErrorHandler. sleep waits between attempts; nil
// means time.Sleep. sink may be nil.
func NewErrorHandler(tracker *StepTracker, sink *NotificationSink, policy RetryPolicy, sleep func(time.Duration)) *ErrorHandler {
	if sleep == nil {
		sleep = time.Sleep
	}
	return &ErrorHandler{
		tracker:    tracker,
		sink:       sink,
		policy:     policy,
		sleep:      sleep,
		errorCount: make(map[string]int),
		retries:    make(map[string]int),
	}
}

// ErrorCount returns how many attempts of the step have failed.
func (h *ErrorHandler) ErrorCount(stepID string) int { return h.errorCount[stepID] }

// Retries returns how many backoff delays were applied for the step.
func (h *ErrorHandler) Retries(stepID string) int { return h.retries[stepID] }

// Execute starts the step if it is pending, runs work until it succeeds, the
// attempts run out, or work returns a backoff.Permanent error. On success the
// step is completed and a success event emitted; otherwise the step fails with
// the last error's message, an error event is emitted and a
// *RetryExhaustedError returned.
//
// ctx is handed to work but does not interrupt the retry sequence.
func (h *ErrorHandler) Execute(ctx context.Context, stepID string, work func(context.Context) error) error {
	step, err := h.tracker.Step(stepID)
	if err != nil {
		return err
	}
	if step.Status == models.StepPending {
		if err := h.tracker.Start(stepID, step.Label); err != nil {
			return err
		}
	} else if step.Status != models.StepRunning {
		return &InvalidTransitionError{ID: stepID, From: step.Status, To: models.StepRunning}
	}

	b := h.policy.NewBackOff()
	attempts := 0
	var lastErr error
	for {
		attempts++
		lastErr = work(ctx)
		if lastErr == nil {
			return h.succeed(step, attempts)
		}
		h.errorCount[stepID]++

		var permanent *backoff.PermanentError
		if errors.As(lastErr, &permanent) {
			lastErr = permanent.Err
			break
		}
		delay := b.NextBackOff()
		if delay == backoff.Stop {
			break
		}
		h.retries[stepID]++
		h.sleep(delay)
	}
	return h.exhaust(step, attempts, lastErr)
}

func (h *ErrorHandler) succeed(step models.Step, attempts int) error {
	msg := "done"
	if attempts > 1 {
		msg = fmt.Sprintf("done after %d attempts", attempts)
	}
	if err := h.tracker.Complete(step.ID, msg); err != nil {
		return err
	}
	if h.sink != nil {
		h.sink.Emit("step.completed", models.LevelSuccess, step.ID, fmt.Sprintf("%s: %s", labelOrID(step), msg), map[string]any{
			"attempts": attempts,
			"retries":  h.retries[step.ID],
		})
	}
	return nil
}

func (h *ErrorHandler) exhaust(step models.Step, attempts int, cause error) error {
	if err := h.tracker.Fail(step.ID, cause.Error()); err != nil {
		return err
	}
	if h.sink != nil {
		h.sink.Emit("step.failed", models.LevelError, step.ID, fmt.Sprintf("%s failed: %v", labelOrID(step), cause), map[string]any{
			"attempts": attempts,
			"retries":  h.retries[step.ID],
		})
	}
	return &RetryExhaustedError{StepID: step.ID, Attempts: attempts, Err: cause}
}

func labelOrID(s models.Step) string {
	if s.Label != "" {
		return s.Label
	}
	return s.ID
}
