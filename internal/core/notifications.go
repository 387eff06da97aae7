package core

import (
	"time"

	"github.com/valter-silva-au/gdd/pkg/models"
)

// NotificationSink records leveled events for the lifetime of one run. When
// an EventLogger is attached every event is also forwarded to it; forwarding
// failures never affect the in-memory record.
type NotificationSink struct {
	events []models.NotificationEvent
	now    func() time.Time
	logger EventLogger
	runID  string
	// OnEvent, when set, is called after each event is recorded.
	OnEvent func(models.NotificationEvent)
}

// NewNotificationSink creates a sink. logger may be nil; now defaults to
// time.Now. runID is attached to forwarded events.
func NewNotificationSink(runID string, logger EventLogger, now func() time.Time) *NotificationSink {
	if now == nil {
		now = time.Now
	}
	return &NotificationSink{now: now, logger: logger, runID: runID}
}

// RunID returns the identifier stamped on forwarded events.
func (n *NotificationSink) RunID() string { return n.runID }

// Info, Warning, Error and Success record a plain notification at their
// level for stepID, which may be empty for run-level messages.
func (n *NotificationSink) Info(stepID, text string) {
	n.Emit("", models.LevelInfo, stepID, text, nil)
}

func (n *NotificationSink) Warning(stepID, text string) {
	n.Emit("", models.LevelWarning, stepID, text, nil)
}

func (n *NotificationSink) Error(stepID, text string) {
	n.Emit("", models.LevelError, stepID, text, nil)
}

func (n *NotificationSink) Success(stepID, text string) {
	n.Emit("", models.LevelSuccess, stepID, text, nil)
}

// Emit records an event. eventType names the event in the forwarded log
// (e.g. "step.failed"); empty means "notification.<level>". data is attached
// to the forwarded event only.
func (n *NotificationSink) Emit(eventType string, level models.NotificationLevel, stepID, text string, data map[string]any) {
	ev := models.NotificationEvent{
		Level:     level,
		Text:      text,
		Timestamp: n.now().UTC(),
		StepID:    stepID,
	}
	n.events = append(n.events, ev)

	if n.logger != nil {
		fields := map[string]any{"run_id": n.runID}
		for k, v := range data {
			fields[k] = v
		}
		if stepID != "" {
			fields["step_id"] = stepID
		}
		if eventType == "" {
			eventType = "notification." + string(level)
		}
		_ = n.logger.LogEvent(eventType, level, text, fields)
	}
	if n.OnEvent != nil {
		n.OnEvent(ev)
	}
}

// Events returns a copy of all recorded events in emission order.
func (n *NotificationSink) Events() []models.NotificationEvent {
	return append([]models.NotificationEvent(nil), n.events...)
}

// EventsByLevel returns the recorded events of a single level.
func (n *NotificationSink) EventsByLevel(level models.NotificationLevel) []models.NotificationEvent {
	var out []models.NotificationEvent
	for _, ev := range n.events {
		if ev.Level == level {
			out = append(out, ev)
		}
	}
	return out
}
