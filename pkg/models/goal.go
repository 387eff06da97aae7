package models

// DependencyStatus is the lifecycle state of a goal that another goal depends on,
// as reported by the goal-management layer.
type DependencyStatus string

const (
	DependencyPending    DependencyStatus = "pending"
	DependencyInProgress DependencyStatus = "in_progress"
	DependencyBlocked    DependencyStatus = "blocked"
	DependencyCompleted  DependencyStatus = "completed"
)

// Valid reports whether s is one of the four known statuses.
func (s DependencyStatus) Valid() bool {
	switch s {
	case DependencyPending, DependencyInProgress, DependencyBlocked, DependencyCompleted:
		return true
	}
	return false
}

// GoalRecord is the read-only input to the analytics engine. It is owned by
// the goal-management layer; the engine never mutates it.
type GoalRecord struct {
	ID           string   `yaml:"id" json:"id"`
	Description  string   `yaml:"description" json:"description"`
	Objectives   []string `yaml:"objectives,omitempty" json:"objectives,omitempty"`
	Dependencies []string `yaml:"dependencies,omitempty" json:"dependencies,omitempty"`
	RelatedGoals []string `yaml:"related_goals,omitempty" json:"related_goals,omitempty"`
	Tags         []string `yaml:"tags,omitempty" json:"tags,omitempty"`
}

// GoalFile is the on-disk shape accepted by `gdd analyze --file`: a goal plus
// the statuses of the goals it depends on.
type GoalFile struct {
	Goal               GoalRecord                  `yaml:"goal"`
	DependencyStatuses map[string]DependencyStatus `yaml:"dependency_statuses,omitempty"`
	TeamSize           int                         `yaml:"team_size,omitempty"`
}
