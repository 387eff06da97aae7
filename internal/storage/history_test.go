package storage

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/valter-silva-au/gdd/pkg/models"
)

type storeFactory func(t *testing.T, dir string) HistoryStoreManager

func backends() map[string]storeFactory {
	return map[string]storeFactory{
		"yaml": func(t *testing.T, dir string) HistoryStoreManager {
			return NewYAMLHistoryStore(filepath.Join(dir, "history.yaml"))
		},
		"sqlite": func(t *testing.T, dir string) HistoryStoreManager {
			s, err := NewSQLiteHistoryStore(filepath.Join(dir, "history.db"))
			if err != nil {
				t.Fatalf("opening sqlite store: %v", err)
			}
			return s
		},
	}
}

func entry(id string, score, days float64) models.HistoricalEntry {
	return models.HistoricalEntry{
		GoalID:             id,
		ComplexityScore:    score,
		ActualDurationDays: days,
		TeamSize:           3,
		RecordedAt:         time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestHistoryStore_AppendAndQuery(t *testing.T) {
	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			store := factory(t, t.TempDir())
			defer store.Close()

			for _, e := range []models.HistoricalEntry{
				entry("G-1", 7.0, 14),
				entry("G-2", 2.5, 4),
				entry("G-3", 7.0, 18),
				entry("G-4", 9.5, 30),
			} {
				if err := store.Append(e); err != nil {
					t.Fatalf("Append(%s): %v", e.GoalID, err)
				}
			}

			got, err := store.Query(models.ScoreRange{Min: 2.5, Max: 7.0})
			if err != nil {
				t.Fatalf("Query: %v", err)
			}
			ids := make([]string, len(got))
			for i, e := range got {
				ids[i] = e.GoalID
			}
			if strings.Join(ids, ",") != "G-2,G-1,G-3" {
				t.Errorf("Query ids = %v, want [G-2 G-1 G-3]", ids)
			}

			all, err := store.All()
			if err != nil {
				t.Fatalf("All: %v", err)
			}
			if len(all) != 4 || all[0].GoalID != "G-1" || all[3].GoalID != "G-4" {
				t.Errorf("All should return insertion order, got %+v", all)
			}
		})
	}
}

func TestHistoryStore_EmptyQuery(t *testing.T) {
	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			store := factory(t, t.TempDir())
			defer store.Close()

			got, err := store.Query(models.ScoreRange{Min: 0, Max: 10})
			if err != nil {
				t.Fatalf("Query on empty store: %v", err)
			}
			if len(got) != 0 {
				t.Errorf("expected no entries, got %d", len(got))
			}
		})
	}
}

func TestHistoryStore_RejectsInvalidEntries(t *testing.T) {
	invalid := []models.HistoricalEntry{
		{ComplexityScore: 3},
		{GoalID: "G-1", ComplexityScore: 11},
		{GoalID: "G-1", ComplexityScore: 3, ActualDurationDays: -1},
		{GoalID: "G-1", ComplexityScore: 3, ActualDurationDays: math.NaN()},
		{GoalID: "G-1", ComplexityScore: 3, ActualDurationDays: math.Inf(1)},
		{GoalID: "G-1", ComplexityScore: math.NaN(), ActualDurationDays: 2},
		{GoalID: "G-1", ComplexityScore: math.Inf(-1), ActualDurationDays: 2},
		{GoalID: "G-1", ComplexityScore: 3, TeamSize: -2},
		{GoalID: "G-1", ComplexityScore: 3, RisksEncountered: []models.RiskCategory{"weather"}},
	}
	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			store := factory(t, t.TempDir())
			defer store.Close()

			for i, e := range invalid {
				if err := store.Append(e); err == nil {
					t.Errorf("case %d: expected validation error", i)
				}
			}
			all, err := store.All()
			if err != nil {
				t.Fatalf("All: %v", err)
			}
			if len(all) != 0 {
				t.Errorf("invalid entries were stored: %+v", all)
			}
		})
	}
}

func TestHistoryStore_PersistsAcrossReopen(t *testing.T) {
	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			first := factory(t, dir)
			e := entry("G-9", 4.2, 6)
			e.RisksEncountered = []models.RiskCategory{models.RiskSecurity, models.RiskBusiness}
			if err := first.Append(e); err != nil {
				t.Fatalf("Append: %v", err)
			}
			if err := first.Close(); err != nil {
				t.Fatalf("Close: %v", err)
			}

			second := factory(t, dir)
			defer second.Close()
			all, err := second.All()
			if err != nil {
				t.Fatalf("All: %v", err)
			}
			if len(all) != 1 {
				t.Fatalf("expected 1 entry after reopen, got %d", len(all))
			}
			got := all[0]
			if got.GoalID != "G-9" || got.ComplexityScore != 4.2 || len(got.RisksEncountered) != 2 || got.RisksEncountered[1] != models.RiskBusiness {
				t.Errorf("unexpected entry after reopen: %+v", got)
			}
			if !got.RecordedAt.Equal(e.RecordedAt) {
				t.Errorf("RecordedAt = %v, want %v", got.RecordedAt, e.RecordedAt)
			}
		})
	}
}

func TestYAMLHistoryStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.yaml")
	if err := os.WriteFile(path, []byte("entries: [unterminated"), 0o600); err != nil {
		t.Fatal(err)
	}
	store := NewYAMLHistoryStore(path)
	if _, err := store.Query(models.ScoreRange{Min: 0, Max: 10}); err == nil {
		t.Error("expected parse error for corrupt history file")
	}
	if err := store.Append(entry("G-1", 1, 1)); err == nil {
		t.Error("expected Append to refuse to overwrite a corrupt file")
	}
}

func TestYAMLHistoryStore_WritesVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.yaml")
	store := NewYAMLHistoryStore(path)
	if err := store.Append(entry("G-1", 1, 1)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading history file: %v", err)
	}
	if !strings.Contains(string(data), `version: "1.0"`) {
		t.Errorf("history file missing version:\n%s", data)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file left behind")
	}
}

func TestYAMLHistoryStore_ConcurrentWritersShareFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.yaml")
	// Separate store values stand in for separate processes: they share no
	// in-memory mutex, only the lock file.
	stores := []HistoryStoreManager{NewYAMLHistoryStore(path), NewYAMLHistoryStore(path)}

	var wg sync.WaitGroup
	for i, store := range stores {
		wg.Add(1)
		go func(i int, store HistoryStoreManager) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				if err := store.Append(entry(fmt.Sprintf("G-%d-%d", i, j), float64(j), 1)); err != nil {
					t.Errorf("Append: %v", err)
				}
			}
		}(i, store)
	}
	wg.Wait()

	all, err := NewYAMLHistoryStore(path).All()
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(all) != 20 {
		t.Errorf("entries = %d, want 20 (no lost updates)", len(all))
	}
	if _, err := os.Stat(path + ".lock"); err != nil {
		t.Errorf("lock file not created: %v", err)
	}
}

func TestLockFile_Serializes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.lock")
	unlock, err := lockFile(path)
	if err != nil {
		t.Fatalf("lockFile: %v", err)
	}

	acquired := make(chan struct{})
	go func() {
		u, err := lockFile(path)
		if err != nil {
			t.Errorf("second lockFile: %v", err)
			close(acquired)
			return
		}
		close(acquired)
		_ = u()
	}()

	select {
	case <-acquired:
		t.Fatal("second lock acquired while the first was held")
	case <-time.After(50 * time.Millisecond):
	}
	if err := unlock(); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	select {
	case <-acquired:
	case <-time.After(2 * time.Second):
		t.Fatal("second lock not acquired after release")
	}
}
