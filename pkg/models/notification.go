package models

import "time"

// NotificationLevel grades a notification event.
type NotificationLevel string

const (
	LevelInfo    NotificationLevel = "info"
	LevelWarning NotificationLevel = "warning"
	LevelError   NotificationLevel = "error"
	LevelSuccess NotificationLevel = "success"
)

// NotificationEvent is a single user-facing event emitted during a run.
type NotificationEvent struct {
	Level     NotificationLevel `json:"level"`
	Text      string            `json:"text"`
	Timestamp time.Time         `json:"timestamp"`
	StepID    string            `json:"step_id,omitempty"`
}
