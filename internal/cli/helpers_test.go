package cli

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/gdd/internal/core"
	"github.com/valter-silva-au/gdd/internal/observability"
	"github.com/valter-silva-au/gdd/pkg/models"
)

// memHistory implements storage.HistoryStoreManager over a slice.
type memHistory struct {
	entries  []models.HistoricalEntry
	queryErr error
}

func (m *memHistory) Query(r models.ScoreRange) ([]models.HistoricalEntry, error) {
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	return core.FilterHistory(m.entries, r), nil
}

func (m *memHistory) All() ([]models.HistoricalEntry, error) {
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	return append([]models.HistoricalEntry(nil), m.entries...), nil
}

func (m *memHistory) Append(e models.HistoricalEntry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	m.entries = append(m.entries, e)
	return nil
}

func (m *memHistory) Close() error { return nil }

// fakeMetrics implements observability.MetricsCalculator.
type fakeMetrics struct {
	metrics *observability.Metrics
	err     error
	since   time.Time
}

func (f *fakeMetrics) Calculate(since time.Time) (*observability.Metrics, error) {
	f.since = since
	return f.metrics, f.err
}

// recordingLogger implements core.EventLogger.
type recordingLogger struct {
	types []string
}

func (r *recordingLogger) LogEvent(eventType string, _ models.NotificationLevel, _ string, _ map[string]any) error {
	r.types = append(r.types, eventType)
	return nil
}

var errBoom = errors.New("boom")

// withEngine installs a fresh analyzer over history and restores the
// package-level variables when the test ends.
func withEngine(t *testing.T, history *memHistory) *models.Config {
	t.Helper()
	origCfg, origAnalyzer, origHistory := Config, Analyzer, History
	origLog, origMetrics, origLogger := EventLog, MetricsCalc, RunLogger
	t.Cleanup(func() {
		Config, Analyzer, History = origCfg, origAnalyzer, origHistory
		EventLog, MetricsCalc, RunLogger = origLog, origMetrics, origLogger
	})

	cfg := core.DefaultConfig()
	cfg.CacheSize = 0
	cfg.Retry.BaseDelay = time.Millisecond
	cfg.Retry.MaxDelay = 2 * time.Millisecond
	cfg.Display.RefreshInterval = time.Millisecond

	var store core.HistoryStore
	History = nil
	if history != nil {
		store = history
		History = history
	}
	a, err := core.NewAnalyzer(cfg, store)
	if err != nil {
		t.Fatal(err)
	}
	Config, Analyzer = cfg, a
	EventLog, MetricsCalc, RunLogger = nil, nil, nil
	return cfg
}

// captureOutput points cmd's output at a buffer for the test's duration.
func captureOutput(t *testing.T, cmd *cobra.Command) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	t.Cleanup(func() { cmd.SetOut(nil) })
	return &buf
}

// oauthGoalInput scores 7.4 with risks security, integration and business,
// and a recommended team of 5 estimated at 24 days.
func oauthGoalInput() goalInput {
	return goalInput{
		id:           "G-1",
		description:  "Implement OAuth2 authentication with third-party SSO integration",
		dependencies: []string{"G-0", "G-00"},
		objectives:   []string{"login flow", "token refresh", "logout"},
		tags:         []string{"security"},
	}
}
