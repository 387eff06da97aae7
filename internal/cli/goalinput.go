package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/gdd/internal/core"
	"github.com/valter-silva-au/gdd/pkg/models"
	"gopkg.in/yaml.v3"
)

// goalInput collects a goal from a YAML goal file, flags, or both. Flags
// override scalar fields from the file and extend its lists.
type goalInput struct {
	file         string
	id           string
	description  string
	objectives   []string
	dependencies []string
	related      []string
	tags         []string
	depStatuses  []string
	teamSize     int
}

func (g *goalInput) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&g.file, "file", "f", "", "YAML goal file (goal, dependency_statuses, team_size)")
	f.StringVar(&g.id, "id", "", "Goal ID")
	f.StringVarP(&g.description, "description", "d", "", "Goal description")
	f.StringArrayVar(&g.objectives, "objective", nil, "Objective (repeatable)")
	f.StringSliceVar(&g.dependencies, "dep", nil, "ID of a goal this goal depends on (repeatable)")
	f.StringSliceVar(&g.related, "related", nil, "ID of a related goal (repeatable)")
	f.StringSliceVar(&g.tags, "tag", nil, "Tag (repeatable)")
	f.StringSliceVar(&g.depStatuses, "dep-status", nil, "Dependency status as id=status (pending, in_progress, blocked, completed)")
	f.IntVar(&g.teamSize, "team-size", 0, "Team size doing the work (default: the recommended team size)")
}

func (g *goalInput) reset() {
	*g = goalInput{}
}

// resolve builds the goal and analysis options.
func (g *goalInput) resolve() (models.GoalRecord, core.AnalyzeOptions, error) {
	var gf models.GoalFile
	if g.file != "" {
		data, err := os.ReadFile(g.file)
		if err != nil {
			return models.GoalRecord{}, core.AnalyzeOptions{}, fmt.Errorf("reading goal file: %w", err)
		}
		if err := yaml.Unmarshal(data, &gf); err != nil {
			return models.GoalRecord{}, core.AnalyzeOptions{}, fmt.Errorf("parsing goal file %s: %w", g.file, err)
		}
	}

	goal := gf.Goal
	if g.id != "" {
		goal.ID = g.id
	}
	if g.description != "" {
		goal.Description = g.description
	}
	goal.Objectives = append(goal.Objectives, g.objectives...)
	goal.Dependencies = append(goal.Dependencies, g.dependencies...)
	goal.RelatedGoals = append(goal.RelatedGoals, g.related...)
	goal.Tags = append(goal.Tags, g.tags...)

	if strings.TrimSpace(goal.ID) == "" {
		return models.GoalRecord{}, core.AnalyzeOptions{}, fmt.Errorf("goal ID is required (--id or goal.id in --file)")
	}

	opts := core.AnalyzeOptions{TeamSize: gf.TeamSize}
	if g.teamSize > 0 {
		opts.TeamSize = g.teamSize
	}
	for id, st := range gf.DependencyStatuses {
		if !st.Valid() {
			return models.GoalRecord{}, core.AnalyzeOptions{}, fmt.Errorf("invalid status %q for dependency %s", st, id)
		}
	}
	statuses, err := parseDependencyStatuses(g.depStatuses)
	if err != nil {
		return models.GoalRecord{}, core.AnalyzeOptions{}, err
	}
	if len(gf.DependencyStatuses) > 0 || len(statuses) > 0 {
		opts.DependencyStatuses = make(map[string]models.DependencyStatus, len(gf.DependencyStatuses)+len(statuses))
		for id, st := range gf.DependencyStatuses {
			opts.DependencyStatuses[id] = st
		}
		for id, st := range statuses {
			opts.DependencyStatuses[id] = st
		}
	}
	return goal, opts, nil
}

// parseDependencyStatuses parses id=status pairs.
func parseDependencyStatuses(pairs []string) (map[string]models.DependencyStatus, error) {
	out := make(map[string]models.DependencyStatus, len(pairs))
	for _, p := range pairs {
		id, st, ok := strings.Cut(p, "=")
		id = strings.TrimSpace(id)
		status := models.DependencyStatus(strings.TrimSpace(st))
		if !ok || id == "" {
			return nil, fmt.Errorf("invalid --dep-status %q: want id=status", p)
		}
		if !status.Valid() {
			return nil, fmt.Errorf("invalid status %q for dependency %s: must be one of pending, in_progress, blocked, completed", status, id)
		}
		out[id] = status
	}
	return out, nil
}
