// Package mcp provides an MCP (Model Context Protocol) server that exposes
// the gdd analytics engine as MCP tools for AI coding assistants.
package mcp

import (
	"context"
	"fmt"
	"time"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/valter-silva-au/gdd/internal/core"
	"github.com/valter-silva-au/gdd/internal/observability"
	"github.com/valter-silva-au/gdd/pkg/models"
)

// Server wraps the engine services and exposes them as MCP tools.
type Server struct {
	server      *gomcp.Server
	analyzer    core.Analyzer
	history     core.HistoryStore
	metricsCalc observability.MetricsCalculator
}

// NewServer creates a new MCP server. history and metricsCalc may be nil when
// those subsystems are unavailable.
func NewServer(analyzer core.Analyzer, history core.HistoryStore, metricsCalc observability.MetricsCalculator, version string) *Server {
	if version == "" {
		version = "dev"
	}

	s := &Server{
		analyzer:    analyzer,
		history:     history,
		metricsCalc: metricsCalc,
	}

	s.server = gomcp.NewServer(
		&gomcp.Implementation{Name: "gdd", Version: version},
		nil,
	)

	s.registerTools()

	return s
}

// Run serves over stdio, blocking until the client disconnects or the context
// is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &gomcp.StdioTransport{})
}

// MCPServer returns the underlying mcp.Server for testing purposes.
func (s *Server) MCPServer() *gomcp.Server {
	return s.server
}

// --- Tool input/output types ---

type analyzeGoalInput struct {
	GoalID             string            `json:"goal_id" jsonschema:"identifier of the goal being analyzed"`
	Description        string            `json:"description" jsonschema:"free-text goal description"`
	Objectives         []string          `json:"objectives,omitempty" jsonschema:"objectives the goal must meet"`
	Dependencies       []string          `json:"dependencies,omitempty" jsonschema:"ids of goals this goal depends on"`
	RelatedGoals       []string          `json:"related_goals,omitempty" jsonschema:"ids of related goals"`
	Tags               []string          `json:"tags,omitempty" jsonschema:"free-form tags such as security"`
	TeamSize           int               `json:"team_size,omitempty" jsonschema:"team that will do the work; omit to use the recommended size"`
	DependencyStatuses map[string]string `json:"dependency_statuses,omitempty" jsonschema:"status per dependency id (pending, in_progress, blocked, completed)"`
}

type riskOutput struct {
	Category string   `json:"category"`
	Severity string   `json:"severity"`
	Keywords []string `json:"keywords,omitempty"`
}

type analysisOutput struct {
	GoalID              string                `json:"goal_id"`
	ComplexityScore     float64               `json:"complexity_score"`
	EstimatedDays       float64               `json:"estimated_days"`
	RiskFactors         []riskOutput          `json:"risk_factors"`
	RecommendedSkills   []string              `json:"recommended_skills"`
	RecommendedTeamSize int                   `json:"recommended_team_size"`
	Calibrated          bool                  `json:"calibrated"`
	Breakdown           models.ScoreBreakdown `json:"breakdown"`
}

type recordOutcomeInput struct {
	GoalID             string   `json:"goal_id" jsonschema:"identifier of the completed goal"`
	ComplexityScore    float64  `json:"complexity_score" jsonschema:"complexity score the goal was analyzed with (0-10)"`
	ActualDurationDays float64  `json:"actual_duration_days" jsonschema:"observed duration in days"`
	TeamSize           int      `json:"team_size,omitempty" jsonschema:"team size that did the work; omit to use the size recommended for the score"`
	RisksEncountered   []string `json:"risks_encountered,omitempty" jsonschema:"risk categories that materialized"`
}

type recordOutcomeOutput struct {
	Message string `json:"message"`
}

type queryHistoryInput struct {
	MinScore float64 `json:"min_score,omitempty" jsonschema:"lower score bound, inclusive. Defaults to 0."`
	MaxScore float64 `json:"max_score,omitempty" jsonschema:"upper score bound, inclusive. Defaults to 10."`
}

type historyEntryOutput struct {
	GoalID             string   `json:"goal_id"`
	ComplexityScore    float64  `json:"complexity_score"`
	ActualDurationDays float64  `json:"actual_duration_days"`
	TeamSize           int      `json:"team_size"`
	RisksEncountered   []string `json:"risks_encountered,omitempty"`
	RecordedAt         string   `json:"recorded_at,omitempty"`
}

type queryHistoryOutput struct {
	Entries []historyEntryOutput `json:"entries"`
	Count   int                  `json:"count"`
}

type getMetricsInput struct {
	Since string `json:"since,omitempty" jsonschema:"time window for metrics (e.g. 7d, 30d, 24h). Defaults to 7d."`
}

type metricsOutput struct {
	RunsStarted    int            `json:"runs_started"`
	RunsFinished   int            `json:"runs_finished"`
	RunsFailed     int            `json:"runs_failed"`
	StepsCompleted int            `json:"steps_completed"`
	StepsFailed    int            `json:"steps_failed"`
	StepsSkipped   int            `json:"steps_skipped"`
	Retries        int            `json:"retries"`
	EventsByLevel  map[string]int `json:"events_by_level"`
	EventCount     int            `json:"event_count"`
	OldestEvent    string         `json:"oldest_event,omitempty"`
	NewestEvent    string         `json:"newest_event,omitempty"`
}

// --- Tool registration ---

func (s *Server) registerTools() {
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "analyze_goal",
		Description: "Score a goal's complexity, identify risks, estimate its duration in days and recommend skills and team size.",
	}, s.handleAnalyzeGoal)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "record_outcome",
		Description: "Record the actual duration of a completed goal so future estimates are calibrated against it.",
	}, s.handleRecordOutcome)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "query_history",
		Description: "List recorded goal outcomes whose complexity score lies in a range.",
	}, s.handleQueryHistory)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_metrics",
		Description: "Get run and step metrics from the event log: runs started and failed, steps completed, failed and skipped, and retries.",
	}, s.handleGetMetrics)
}

// --- Tool handlers ---

func (s *Server) handleAnalyzeGoal(_ context.Context, _ *gomcp.CallToolRequest, input analyzeGoalInput) (*gomcp.CallToolResult, analysisOutput, error) {
	if input.GoalID == "" {
		return errorResult("goal_id is required"), analysisOutput{}, nil
	}

	statuses := make(map[string]models.DependencyStatus, len(input.DependencyStatuses))
	for id, st := range input.DependencyStatuses {
		status := models.DependencyStatus(st)
		if !status.Valid() {
			return errorResult(fmt.Sprintf("invalid status %q for dependency %s: must be one of pending, in_progress, blocked, completed", st, id)), analysisOutput{}, nil
		}
		statuses[id] = status
	}

	goal := models.GoalRecord{
		ID:           input.GoalID,
		Description:  input.Description,
		Objectives:   input.Objectives,
		Dependencies: input.Dependencies,
		RelatedGoals: input.RelatedGoals,
		Tags:         input.Tags,
	}
	res := s.analyzer.Analyze(goal, core.AnalyzeOptions{TeamSize: input.TeamSize, DependencyStatuses: statuses})
	return nil, analysisToOutput(res), nil
}

func (s *Server) handleRecordOutcome(_ context.Context, _ *gomcp.CallToolRequest, input recordOutcomeInput) (*gomcp.CallToolResult, recordOutcomeOutput, error) {
	if input.GoalID == "" {
		return errorResult("goal_id is required"), recordOutcomeOutput{}, nil
	}

	entry := models.HistoricalEntry{
		GoalID:             input.GoalID,
		ComplexityScore:    input.ComplexityScore,
		ActualDurationDays: input.ActualDurationDays,
		TeamSize:           input.TeamSize,
		RecordedAt:         time.Now().UTC(),
	}
	if entry.TeamSize <= 0 {
		entry.TeamSize = core.RecommendedTeamSize(entry.ComplexityScore)
	}
	for _, r := range input.RisksEncountered {
		entry.RisksEncountered = append(entry.RisksEncountered, models.RiskCategory(r))
	}

	if err := s.analyzer.RecordOutcome(entry); err != nil {
		return errorResult(fmt.Sprintf("recording outcome: %s", err)), recordOutcomeOutput{}, nil
	}

	out := recordOutcomeOutput{
		Message: fmt.Sprintf("recorded %s: score %.1f, %.1f days", entry.GoalID, entry.ComplexityScore, entry.ActualDurationDays),
	}
	return nil, out, nil
}

func (s *Server) handleQueryHistory(_ context.Context, _ *gomcp.CallToolRequest, input queryHistoryInput) (*gomcp.CallToolResult, queryHistoryOutput, error) {
	if s.history == nil {
		return errorResult("history store not available"), queryHistoryOutput{Entries: []historyEntryOutput{}}, nil
	}

	r := models.ScoreRange{Min: input.MinScore, Max: input.MaxScore}
	if r.Max == 0 {
		r.Max = models.MaxComplexityScore
	}
	if r.Min > r.Max {
		return errorResult(fmt.Sprintf("min_score %g is above max_score %g", r.Min, r.Max)), queryHistoryOutput{Entries: []historyEntryOutput{}}, nil
	}

	entries, err := s.history.Query(r)
	if err != nil {
		return errorResult(fmt.Sprintf("querying history: %s", err)), queryHistoryOutput{Entries: []historyEntryOutput{}}, nil
	}

	out := queryHistoryOutput{
		Entries: make([]historyEntryOutput, len(entries)),
		Count:   len(entries),
	}
	for i, e := range entries {
		out.Entries[i] = entryToOutput(e)
	}
	return nil, out, nil
}

func (s *Server) handleGetMetrics(_ context.Context, _ *gomcp.CallToolRequest, input getMetricsInput) (*gomcp.CallToolResult, metricsOutput, error) {
	if s.metricsCalc == nil {
		return errorResult("metrics calculator not available (event log may be disabled)"), emptyMetricsOutput(), nil
	}

	sinceStr := input.Since
	if sinceStr == "" {
		sinceStr = "7d"
	}

	sinceTime, err := parseSince(sinceStr)
	if err != nil {
		return errorResult(fmt.Sprintf("parsing since duration: %s", err)), emptyMetricsOutput(), nil
	}

	metrics, err := s.metricsCalc.Calculate(sinceTime)
	if err != nil {
		return errorResult(fmt.Sprintf("calculating metrics: %s", err)), emptyMetricsOutput(), nil
	}

	out := emptyMetricsOutput()
	out.RunsStarted = metrics.RunsStarted
	out.RunsFinished = metrics.RunsFinished
	out.RunsFailed = metrics.RunsFailed
	out.StepsCompleted = metrics.StepsCompleted
	out.StepsFailed = metrics.StepsFailed
	out.StepsSkipped = metrics.StepsSkipped
	out.Retries = metrics.Retries
	out.EventCount = metrics.EventCount
	for level, n := range metrics.EventsByLevel {
		out.EventsByLevel[string(level)] = n
	}
	if metrics.OldestEvent != nil {
		out.OldestEvent = metrics.OldestEvent.Format(time.RFC3339)
	}
	if metrics.NewestEvent != nil {
		out.NewestEvent = metrics.NewestEvent.Format(time.RFC3339)
	}

	return nil, out, nil
}

// --- Helpers ---

func analysisToOutput(res models.AnalysisResult) analysisOutput {
	out := analysisOutput{
		GoalID:              res.GoalID,
		ComplexityScore:     res.ComplexityScore,
		EstimatedDays:       res.EstimatedDays,
		RiskFactors:         make([]riskOutput, len(res.RiskFactors)),
		RecommendedSkills:   res.RecommendedSkills,
		RecommendedTeamSize: res.RecommendedTeamSize,
		Calibrated:          res.Calibrated,
		Breakdown:           res.Breakdown,
	}
	for i, rf := range res.RiskFactors {
		out.RiskFactors[i] = riskOutput{
			Category: string(rf.Category),
			Severity: string(rf.Severity),
			Keywords: rf.Keywords,
		}
	}
	if out.RecommendedSkills == nil {
		out.RecommendedSkills = []string{}
	}
	return out
}

func entryToOutput(e models.HistoricalEntry) historyEntryOutput {
	out := historyEntryOutput{
		GoalID:             e.GoalID,
		ComplexityScore:    e.ComplexityScore,
		ActualDurationDays: e.ActualDurationDays,
		TeamSize:           e.TeamSize,
	}
	for _, r := range e.RisksEncountered {
		out.RisksEncountered = append(out.RisksEncountered, string(r))
	}
	if !e.RecordedAt.IsZero() {
		out.RecordedAt = e.RecordedAt.Format(time.RFC3339)
	}
	return out
}

func emptyMetricsOutput() metricsOutput {
	return metricsOutput{EventsByLevel: make(map[string]int)}
}

func errorResult(msg string) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: msg}},
		IsError: true,
	}
}

// parseSince parses a human-friendly duration string like "7d", "30d", or "24h"
// into the corresponding time in the past.
func parseSince(s string) (time.Time, error) {
	now := time.Now().UTC()

	if len(s) < 2 {
		return time.Time{}, fmt.Errorf("invalid duration %q", s)
	}

	suffix := s[len(s)-1]
	numStr := s[:len(s)-1]
	var num int
	if _, err := fmt.Sscanf(numStr, "%d", &num); err != nil {
		return time.Time{}, fmt.Errorf("invalid duration %q: %w", s, err)
	}

	switch suffix {
	case 'd':
		return now.AddDate(0, 0, -num), nil
	case 'h':
		return now.Add(-time.Duration(num) * time.Hour), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported duration suffix %q (use d or h)", string(suffix))
	}
}
