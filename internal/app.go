// Package internal provides the App struct that wires all components of the
// gdd analytics engine together and initializes the CLI layer.
package internal

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/valter-silva-au/gdd/internal/cli"
	"github.com/valter-silva-au/gdd/internal/core"
	"github.com/valter-silva-au/gdd/internal/observability"
	"github.com/valter-silva-au/gdd/internal/storage"
	"github.com/valter-silva-au/gdd/pkg/models"
)

// EventLogFileName is the JSONL event log written under the base path.
const EventLogFileName = ".gdd_events.jsonl"

// App holds all service dependencies for gdd.
type App struct {
	BasePath string

	// Configuration
	ConfigMgr core.ConfigurationManager
	Config    *models.Config

	// Storage layer
	History storage.HistoryStoreManager

	// Core services
	Analyzer core.Analyzer

	// Observability
	EventLog    observability.EventLog
	MetricsCalc observability.MetricsCalculator
	RunLogger   core.EventLogger
}

// NewApp creates and wires all components. basePath is the directory holding
// .gddconfig, the history store and the event log.
func NewApp(basePath string) (*App, error) {
	app := &App{BasePath: basePath}

	// --- Configuration ---
	app.ConfigMgr = core.NewConfigurationManager(basePath)
	cfg, err := app.ConfigMgr.Load()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	if err := app.ConfigMgr.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	app.Config = cfg

	// --- Storage layer ---
	// Non-fatal: without a store the estimator stays on its heuristic.
	app.History, err = openHistoryStore(basePath, cfg.History)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: history store unavailable: %v\n", err)
		app.History = nil
	}

	// --- Observability ---
	app.EventLog, err = observability.NewJSONLEventLog(filepath.Join(basePath, EventLogFileName))
	if err != nil {
		// Non-fatal: disable observability if log can't be created.
		app.EventLog = nil
	}
	if app.EventLog != nil {
		app.MetricsCalc = observability.NewMetricsCalculator(app.EventLog)
		app.RunLogger = &eventLogAdapter{log: app.EventLog}
	}

	// --- Core services ---
	var history core.HistoryStore
	if app.History != nil {
		history = app.History
	}
	app.Analyzer, err = core.NewAnalyzer(cfg, history)
	if err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("creating analyzer: %w", err)
	}

	// --- Wire CLI package-level variables ---
	cli.BasePath = basePath
	cli.Config = cfg
	cli.Analyzer = app.Analyzer
	cli.History = app.History
	cli.EventLog = app.EventLog
	cli.MetricsCalc = app.MetricsCalc
	cli.RunLogger = app.RunLogger

	return app, nil
}

// openHistoryStore opens the configured backend. A relative path is resolved
// against basePath.
func openHistoryStore(basePath string, hc models.HistoryConfig) (storage.HistoryStoreManager, error) {
	path := hc.Path
	if !filepath.IsAbs(path) {
		path = filepath.Join(basePath, path)
	}
	switch hc.Backend {
	case models.HistoryBackendSQLite:
		return storage.NewSQLiteHistoryStore(path)
	case models.HistoryBackendYAML, "":
		return storage.NewYAMLHistoryStore(path), nil
	default:
		return nil, fmt.Errorf("unknown history backend %q", hc.Backend)
	}
}

// Close releases resources held by the App. It is safe to call on an App
// whose EventLog or History is nil.
func (a *App) Close() error {
	var firstErr error
	if a.History != nil {
		if err := a.History.Close(); err != nil {
			firstErr = err
		}
	}
	if a.EventLog != nil {
		if err := a.EventLog.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// ResolveBasePath determines the gdd base directory. GDD_HOME wins; otherwise
// the nearest ancestor of the working directory holding .gddconfig; otherwise
// the working directory itself.
func ResolveBasePath() string {
	if home := os.Getenv("GDD_HOME"); home != "" {
		return home
	}
	dir, err := os.Getwd()
	if err != nil {
		return "."
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, core.ConfigFileName)); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	cwd, _ := os.Getwd()
	return cwd
}

// --- Adapters ---

// eventLogAdapter adapts observability.EventLog to core.EventLogger. The
// run_id and step_id fields are lifted out of data onto the event itself.
type eventLogAdapter struct {
	log observability.EventLog
}

func (a *eventLogAdapter) LogEvent(eventType string, level models.NotificationLevel, msg string, data map[string]any) error {
	ev := observability.Event{
		Time:    time.Now().UTC(),
		Level:   level,
		Type:    eventType,
		Message: msg,
	}
	rest := make(map[string]any, len(data))
	for k, v := range data {
		switch k {
		case "run_id":
			ev.RunID, _ = v.(string)
		case "step_id":
			ev.StepID, _ = v.(string)
		default:
			rest[k] = v
		}
	}
	if len(rest) > 0 {
		ev.Data = rest
	}
	return a.log.Write(ev)
}
