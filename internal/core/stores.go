package core

import (
	"sort"
	"sync"

	"github.com/valter-silva-au/gdd/pkg/models"
)

// HistoryStore is the append-only record of past goal outcomes used by the
// Estimator for calibration. Implementations live in the storage package; the
// interface is defined here so core never imports storage.
type HistoryStore interface {
	Query(r models.ScoreRange) ([]models.HistoricalEntry, error)
	Append(entry models.HistoricalEntry) error
}

// EventLogger is the subset of the observability event log that core
// services need. Defining it here avoids importing the observability package.
type EventLogger interface {
	LogEvent(eventType string, level models.NotificationLevel, msg string, data map[string]any) error
}

// memoryHistoryStore keeps entries in process memory.
type memoryHistoryStore struct {
	mu      sync.Mutex
	entries []models.HistoricalEntry
}

// NewMemoryHistoryStore creates an empty in-memory HistoryStore.
func NewMemoryHistoryStore(entries ...models.HistoricalEntry) HistoryStore {
	return &memoryHistoryStore{entries: append([]models.HistoricalEntry(nil), entries...)}
}

func (m *memoryHistoryStore) Query(r models.ScoreRange) ([]models.HistoricalEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return FilterHistory(m.entries, r), nil
}

func (m *memoryHistoryStore) Append(entry models.HistoricalEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

// FilterHistory returns the entries whose score lies in r, ordered by score
// and then by insertion order.
func FilterHistory(entries []models.HistoricalEntry, r models.ScoreRange) []models.HistoricalEntry {
	var out []models.HistoricalEntry
	for _, e := range entries {
		if r.Contains(e.ComplexityScore) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ComplexityScore < out[j].ComplexityScore
	})
	return out
}
