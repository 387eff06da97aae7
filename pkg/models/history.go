package models

import (
	"fmt"
	"math"
	"time"
)

// MaxComplexityScore is the upper bound of every complexity score.
const MaxComplexityScore = 10.0

// HistoricalEntry records the observed outcome of a completed goal. Entries
// are append-only and never mutated once written.
type HistoricalEntry struct {
	GoalID             string         `yaml:"goal_id" json:"goal_id"`
	ComplexityScore    float64        `yaml:"complexity_score" json:"complexity_score"`
	ActualDurationDays float64        `yaml:"actual_duration_days" json:"actual_duration_days"`
	TeamSize           int            `yaml:"team_size" json:"team_size"`
	RisksEncountered   []RiskCategory `yaml:"risks_encountered,omitempty" json:"risks_encountered,omitempty"`
	RecordedAt         time.Time      `yaml:"recorded_at" json:"recorded_at"`
}

// ScoreRange is an inclusive complexity-score interval used to query history.
type ScoreRange struct {
	Min float64
	Max float64
}

// Contains reports whether score lies within the inclusive range.
func (r ScoreRange) Contains(score float64) bool {
	return score >= r.Min && score <= r.Max
}

// Validate rejects entries that could not have come from a completed goal.
func (e HistoricalEntry) Validate() error {
	if e.GoalID == "" {
		return fmt.Errorf("historical entry: goal id must not be empty")
	}
	if !finite(e.ComplexityScore) || e.ComplexityScore < 0 || e.ComplexityScore > MaxComplexityScore {
		return fmt.Errorf("historical entry %s: complexity score %g outside [0, %g]", e.GoalID, e.ComplexityScore, MaxComplexityScore)
	}
	if !finite(e.ActualDurationDays) || e.ActualDurationDays < 0 {
		return fmt.Errorf("historical entry %s: actual duration must be a non-negative number, got %g", e.GoalID, e.ActualDurationDays)
	}
	if e.TeamSize < 0 {
		return fmt.Errorf("historical entry %s: team size must be non-negative, got %d", e.GoalID, e.TeamSize)
	}
	for _, r := range e.RisksEncountered {
		if !r.Valid() {
			return fmt.Errorf("historical entry %s: unknown risk category %q", e.GoalID, r)
		}
	}
	return nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
