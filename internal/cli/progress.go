package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/valter-silva-au/gdd/internal/core"
	"github.com/valter-silva-au/gdd/pkg/models"
	"golang.org/x/term"
)

const progressBarWidth = 30

var (
	stepPendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	stepRunningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	stepDoneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	stepErrorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	stepSkippedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	barFilledStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("62"))
	barEmptyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))

	progressTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("230")).
				Background(lipgloss.Color("62")).
				Padding(0, 1)

	progressHelpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func stepGlyph(s models.StepStatus) string {
	switch s {
	case models.StepRunning:
		return stepRunningStyle.Render("▸")
	case models.StepCompleted:
		return stepDoneStyle.Render("✓")
	case models.StepError:
		return stepErrorStyle.Render("✗")
	case models.StepSkipped:
		return stepSkippedStyle.Render("-")
	default:
		return stepPendingStyle.Render("·")
	}
}

func progressBar(percent float64, width int) string {
	filled := int(percent / 100 * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return barFilledStyle.Render(strings.Repeat("█", filled)) + barEmptyStyle.Render(strings.Repeat("░", width-filled))
}

func formatETA(snap core.TrackerSnapshot) string {
	if snap.Done {
		return "done"
	}
	if !snap.ETAKnown {
		return "ETA --"
	}
	return "ETA " + snap.ETA.Round(100*time.Millisecond).String()
}

// retryCounter reports the retries applied to a step so far.
type retryCounter func(stepID string) int

// summaryLine renders a snapshot on a single line.
func summaryLine(snap core.TrackerSnapshot, retries retryCounter) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%3.0f%%]", snap.Percent)
	for _, s := range snap.Steps {
		b.WriteString(" ")
		b.WriteString(stepGlyph(s.Status))
		b.WriteString(" ")
		b.WriteString(labelOf(s))
		if retries != nil {
			if n := retries(s.ID); n > 0 {
				fmt.Fprintf(&b, " (retry %d)", n)
			}
		}
	}
	b.WriteString("  ")
	b.WriteString(formatETA(snap))
	return b.String()
}

func labelOf(s models.Step) string {
	if s.Label != "" {
		return s.Label
	}
	return s.ID
}

// lineRenderer prints one line per visible change. It is used when the
// output is not a terminal or --plain is set.
type lineRenderer struct {
	out     io.Writer
	retries retryCounter
	last    string
}

func (r *lineRenderer) Render(snap core.TrackerSnapshot) error {
	line := summaryLine(snap, r.retries)
	if line == r.last {
		return nil
	}
	r.last = line
	_, err := fmt.Fprintln(r.out, line)
	return err
}

// snapshotMsg carries a tracker snapshot to the TUI.
type snapshotMsg struct {
	snap    core.TrackerSnapshot
	retries map[string]int
}

// runDoneMsg tells the TUI that the workflow has returned.
type runDoneMsg struct{}

// teaRenderer forwards snapshots to a running bubbletea program.
type teaRenderer struct {
	send    func(tea.Msg)
	retries retryCounter
}

func (r *teaRenderer) Render(snap core.TrackerSnapshot) error {
	counts := make(map[string]int, len(snap.Steps))
	if r.retries != nil {
		for _, s := range snap.Steps {
			counts[s.ID] = r.retries(s.ID)
		}
	}
	r.send(snapshotMsg{snap: snap, retries: counts})
	return nil
}

type trackModel struct {
	title   string
	snap    core.TrackerSnapshot
	retries map[string]int
	done    bool
	aborted bool
	cancel  func()
}

func newTrackModel(title string, cancel func()) trackModel {
	return trackModel{title: title, retries: map[string]int{}, cancel: cancel}
}

func (m trackModel) Init() tea.Cmd { return nil }

func (m trackModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.aborted = true
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}
	case snapshotMsg:
		m.snap = msg.snap
		m.retries = msg.retries
		return m, nil
	case runDoneMsg:
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

func (m trackModel) View() string {
	var b strings.Builder
	b.WriteString(progressTitleStyle.Render(" " + m.title + " "))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "  %s %3.0f%%  %s\n\n", progressBar(m.snap.Percent, progressBarWidth), m.snap.Percent, formatETA(m.snap))
	for _, s := range m.snap.Steps {
		fmt.Fprintf(&b, "  %s %-24s", stepGlyph(s.Status), labelOf(s))
		if d := s.Duration(); d > 0 {
			fmt.Fprintf(&b, " %8s", d.Round(time.Millisecond))
		}
		if n := m.retries[s.ID]; n > 0 {
			fmt.Fprintf(&b, "  retries: %d", n)
		}
		if s.Message != "" {
			b.WriteString("  ")
			b.WriteString(progressHelpStyle.Render(s.Message))
		}
		b.WriteString("\n")
	}
	if !m.done && !m.aborted {
		b.WriteString("\n")
		b.WriteString(progressHelpStyle.Render("q: abort"))
		b.WriteString("\n")
	}
	return b.String()
}

// isTerminal reports whether w is a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
