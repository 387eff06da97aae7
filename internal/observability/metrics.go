package observability

import (
	"fmt"
	"time"

	"github.com/valter-silva-au/gdd/pkg/models"
)

// Metrics holds run and step counts derived from the event log.
type Metrics struct {
	RunsStarted    int                              `json:"runs_started"`
	RunsFinished   int                              `json:"runs_finished"`
	RunsFailed     int                              `json:"runs_failed"`
	StepsCompleted int                              `json:"steps_completed"`
	StepsFailed    int                              `json:"steps_failed"`
	StepsSkipped   int                              `json:"steps_skipped"`
	Retries        int                              `json:"retries"`
	EventsByLevel  map[models.NotificationLevel]int `json:"events_by_level"`
	EventCount     int                              `json:"event_count"`
	OldestEvent    *time.Time                       `json:"oldest_event,omitempty"`
	NewestEvent    *time.Time                       `json:"newest_event,omitempty"`
}

// MetricsCalculator derives metrics from the event log.
type MetricsCalculator interface {
	Calculate(since time.Time) (*Metrics, error)
}

type metricsCalculator struct {
	eventLog EventLog
}

// NewMetricsCalculator creates a MetricsCalculator that reads from eventLog.
func NewMetricsCalculator(eventLog EventLog) MetricsCalculator {
	return &metricsCalculator{eventLog: eventLog}
}

// Calculate aggregates all events at or after since.
func (mc *metricsCalculator) Calculate(since time.Time) (*Metrics, error) {
	events, err := mc.eventLog.Read(EventFilter{Since: &since})
	if err != nil {
		return nil, fmt.Errorf("reading events for metrics: %w", err)
	}

	m := &Metrics{EventsByLevel: make(map[models.NotificationLevel]int)}
	m.EventCount = len(events)

	for _, event := range events {
		t := event.Time
		if m.OldestEvent == nil || t.Before(*m.OldestEvent) {
			m.OldestEvent = &t
		}
		if m.NewestEvent == nil || t.After(*m.NewestEvent) {
			m.NewestEvent = &t
		}
		m.EventsByLevel[event.Level]++

		switch event.Type {
		case "run.started":
			m.RunsStarted++
		case "run.finished":
			m.RunsFinished++
			if event.Level == models.LevelError {
				m.RunsFailed++
			}
		case "step.completed":
			m.StepsCompleted++
			m.Retries += intField(event.Data, "retries")
		case "step.failed":
			m.StepsFailed++
			m.Retries += intField(event.Data, "retries")
		case "step.skipped":
			m.StepsSkipped++
		}
	}
	return m, nil
}

// intField reads a numeric field that may have round-tripped through JSON.
func intField(data map[string]any, key string) int {
	switch v := data[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}
