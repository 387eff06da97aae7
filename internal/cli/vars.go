package cli

import (
	"github.com/valter-silva-au/gdd/internal/core"
	"github.com/valter-silva-au/gdd/internal/observability"
	"github.com/valter-silva-au/gdd/internal/storage"
	"github.com/valter-silva-au/gdd/pkg/models"
)

// Engine instances, set during app initialization in app.go.
var (
	BasePath string
	Config   *models.Config
	Analyzer core.Analyzer
	History  storage.HistoryStoreManager
)

// Observability service instances. All three are nil when the event log
// could not be opened.
var (
	EventLog    observability.EventLog
	MetricsCalc observability.MetricsCalculator
	RunLogger   core.EventLogger
)
