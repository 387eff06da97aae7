package cli

import (
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/valter-silva-au/gdd/internal/observability"
	"github.com/valter-silva-au/gdd/pkg/models"
)

// Dashboard panel indices.
const (
	panelOutcomes = iota
	panelBands
	panelRuns
	panelCount
)

// recentOutcomes is how many of the latest outcomes the dashboard lists.
const recentOutcomes = 8

type dashboardModel struct {
	activePanel int
	width       int
	height      int

	// Data.
	summary historySummary
	runs    *runSnapshot

	// State.
	loading bool
	err     error
}

// scoreBand aggregates outcomes whose score falls in [lo, hi).
type scoreBand struct {
	lo, hi  float64
	count   int
	avgDays float64
}

type historySummary struct {
	total     int
	avgScore  float64
	avgDays   float64
	bands     []scoreBand
	riskCount map[models.RiskCategory]int
	recent    []models.HistoricalEntry
}

type runSnapshot struct {
	runsStarted    int
	runsFailed     int
	stepsCompleted int
	stepsFailed    int
	retries        int
	eventCount     int
}

// dataLoadedMsg carries loaded data back to the model.
type dataLoadedMsg struct {
	summary historySummary
	runs    *runSnapshot
	err     error
}

// Style definitions.
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(1, 2)

	activePanelStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("62")).
				Padding(1, 2)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			MarginBottom(1)

	riskHighStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	riskMediumStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))

	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func newDashboardModel() dashboardModel {
	return dashboardModel{
		activePanel: panelOutcomes,
		loading:     true,
	}
}

func (m dashboardModel) Init() tea.Cmd {
	return loadData
}

func (m dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "tab":
			m.activePanel = (m.activePanel + 1) % panelCount
			return m, nil
		case "shift+tab":
			m.activePanel = (m.activePanel - 1 + panelCount) % panelCount
			return m, nil
		case "r":
			m.loading = true
			return m, loadData
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case dataLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.summary = msg.summary
		m.runs = msg.runs
		m.err = nil
		return m, nil
	}

	return m, nil
}

func (m dashboardModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	title := titleStyle.Render(" gdd History ")
	help := helpStyle.Render("tab: switch panel | r: refresh | q: quit")

	if m.loading {
		return fmt.Sprintf("%s\n\n  Loading data...\n\n%s", title, help)
	}

	if m.err != nil {
		return fmt.Sprintf("%s\n\n  Error: %s\n\n%s", title, m.err, help)
	}

	outcomes := m.renderOutcomesPanel()
	bands := m.renderBandsPanel()
	runs := m.renderRunsPanel()

	availableWidth := m.width - 2

	var body string
	if availableWidth > 120 {
		colWidth := availableWidth / 3
		outcomes = m.applyPanelStyle(panelOutcomes, outcomes, colWidth-4)
		bands = m.applyPanelStyle(panelBands, bands, colWidth-4)
		runs = m.applyPanelStyle(panelRuns, runs, colWidth-4)
		body = lipgloss.JoinHorizontal(lipgloss.Top, outcomes, bands, runs)
	} else {
		panelWidth := availableWidth - 4
		if panelWidth < 20 {
			panelWidth = 20
		}
		outcomes = m.applyPanelStyle(panelOutcomes, outcomes, panelWidth)
		bands = m.applyPanelStyle(panelBands, bands, panelWidth)
		runs = m.applyPanelStyle(panelRuns, runs, panelWidth)
		body = lipgloss.JoinVertical(lipgloss.Left, outcomes, bands, runs)
	}

	return fmt.Sprintf("%s\n\n%s\n\n%s", title, body, help)
}

func (m dashboardModel) applyPanelStyle(panel int, content string, width int) string {
	style := panelStyle
	if m.activePanel == panel {
		style = activePanelStyle
	}
	return style.Width(width).Render(content)
}

func (m dashboardModel) renderOutcomesPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Outcomes"))
	b.WriteString("\n")

	s := m.summary
	if s.total == 0 {
		b.WriteString("  No outcomes recorded.")
		return b.String()
	}

	b.WriteString(fmt.Sprintf("  %-14s %d\n", "Recorded", s.total))
	b.WriteString(fmt.Sprintf("  %-14s %.1f\n", "Avg score", s.avgScore))
	b.WriteString(fmt.Sprintf("  %-14s %.1f\n\n", "Avg days", s.avgDays))

	for _, e := range s.recent {
		b.WriteString(fmt.Sprintf("  %-10s %4.1f  %5.1fd\n", e.GoalID, e.ComplexityScore, e.ActualDurationDays))
	}
	return b.String()
}

func (m dashboardModel) renderBandsPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("By score"))
	b.WriteString("\n")

	if m.summary.total == 0 {
		b.WriteString("  No outcomes recorded.")
		return b.String()
	}

	for _, band := range m.summary.bands {
		if band.count == 0 {
			continue
		}
		b.WriteString(fmt.Sprintf("  %2.0f-%-2.0f  %3d  avg %5.1fd\n", band.lo, band.hi, band.count, band.avgDays))
	}

	if len(m.summary.riskCount) > 0 {
		b.WriteString("\n  Risks encountered:\n")
		for _, c := range models.RiskCategories {
			n := m.summary.riskCount[c]
			if n == 0 {
				continue
			}
			label := fmt.Sprintf("    %-12s %d", c, n)
			b.WriteString(styleForRiskShare(n, m.summary.total).Render(label))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (m dashboardModel) renderRunsPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Tracked runs (7d)"))
	b.WriteString("\n")

	if m.runs == nil {
		b.WriteString("  No run metrics available.")
		return b.String()
	}

	r := m.runs
	lines := []struct {
		label string
		value int
	}{
		{"Events", r.eventCount},
		{"Runs", r.runsStarted},
		{"Failed runs", r.runsFailed},
		{"Steps done", r.stepsCompleted},
		{"Steps failed", r.stepsFailed},
		{"Retries", r.retries},
	}
	for _, l := range lines {
		b.WriteString(fmt.Sprintf("  %-14s %d\n", l.label, l.value))
	}
	return b.String()
}

// styleForRiskShare highlights risks met by at least half (high) or a
// quarter (medium) of all recorded goals.
func styleForRiskShare(n, total int) lipgloss.Style {
	switch {
	case n*2 >= total:
		return riskHighStyle
	case n*4 >= total:
		return riskMediumStyle
	default:
		return lipgloss.NewStyle()
	}
}

// summarizeHistory aggregates entries for the dashboard.
func summarizeHistory(entries []models.HistoricalEntry) historySummary {
	s := historySummary{riskCount: make(map[models.RiskCategory]int)}
	for lo := 0.0; lo < models.MaxComplexityScore; lo += 2 {
		s.bands = append(s.bands, scoreBand{lo: lo, hi: lo + 2})
	}
	if len(entries) == 0 {
		return s
	}

	var scoreSum, daysSum float64
	for _, e := range entries {
		scoreSum += e.ComplexityScore
		daysSum += e.ActualDurationDays
		i := int(e.ComplexityScore / 2)
		if i >= len(s.bands) {
			i = len(s.bands) - 1
		}
		band := &s.bands[i]
		band.avgDays = (band.avgDays*float64(band.count) + e.ActualDurationDays) / float64(band.count+1)
		band.count++
		for _, r := range e.RisksEncountered {
			s.riskCount[r]++
		}
	}
	s.total = len(entries)
	s.avgScore = scoreSum / float64(s.total)
	s.avgDays = daysSum / float64(s.total)

	recent := append([]models.HistoricalEntry(nil), entries...)
	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].RecordedAt.After(recent[j].RecordedAt)
	})
	if len(recent) > recentOutcomes {
		recent = recent[:recentOutcomes]
	}
	s.recent = recent
	return s
}

func toRunSnapshot(m *observability.Metrics) *runSnapshot {
	return &runSnapshot{
		runsStarted:    m.RunsStarted,
		runsFailed:     m.RunsFailed,
		stepsCompleted: m.StepsCompleted,
		stepsFailed:    m.StepsFailed,
		retries:        m.Retries,
		eventCount:     m.EventCount,
	}
}

func loadData() tea.Msg {
	var result dataLoadedMsg

	if History != nil {
		entries, err := History.All()
		if err != nil {
			result.err = fmt.Errorf("loading history: %w", err)
			return result
		}
		result.summary = summarizeHistory(entries)
	}

	if MetricsCalc != nil {
		since := time.Now().UTC().AddDate(0, 0, -7)
		metrics, err := MetricsCalc.Calculate(since)
		if err != nil {
			result.err = fmt.Errorf("loading metrics: %w", err)
			return result
		}
		result.runs = toRunSnapshot(metrics)
	}

	return result
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Interactive TUI over recorded outcomes and tracked runs",
	Long: `Launch an interactive terminal dashboard showing recorded outcomes,
their distribution by complexity score and risk, and recent tracked-run
metrics.

Navigate between panels with Tab, refresh with r, quit with q.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if History == nil {
			return fmt.Errorf("history store not initialized")
		}
		p := tea.NewProgram(newDashboardModel(), tea.WithAltScreen())
		_, err := p.Run()
		return err
	},
}
