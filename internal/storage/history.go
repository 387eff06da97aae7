package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/valter-silva-au/gdd/pkg/models"
	"gopkg.in/yaml.v3"
)

// HistoryFile represents the top-level structure of the YAML history file.
type HistoryFile struct {
	Version string                   `yaml:"version"`
	Entries []models.HistoricalEntry `yaml:"entries"`
}

// HistoryStoreManager is an append-only store of completed goal outcomes.
type HistoryStoreManager interface {
	Query(r models.ScoreRange) ([]models.HistoricalEntry, error)
	Append(entry models.HistoricalEntry) error
	All() ([]models.HistoricalEntry, error)
	Close() error
}

type yamlHistoryStore struct {
	path string
	mu   sync.Mutex
}

// NewYAMLHistoryStore creates a HistoryStoreManager backed by a YAML file at
// path. The file is created on the first Append.
func NewYAMLHistoryStore(path string) HistoryStoreManager {
	return &yamlHistoryStore{path: path}
}

// Query reads the file and returns the entries whose score lies in r, ordered
// by score and then by insertion order.
func (s *yamlHistoryStore) Query(r models.ScoreRange) ([]models.HistoricalEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	hf, err := s.load()
	if err != nil {
		return nil, err
	}
	return filterEntries(hf.Entries, r), nil
}

func (s *yamlHistoryStore) All() ([]models.HistoricalEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	hf, err := s.load()
	if err != nil {
		return nil, err
	}
	return hf.Entries, nil
}

// Append validates entry and writes it after the existing entries.
func (s *yamlHistoryStore) Append(entry models.HistoricalEntry) error {
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("appending history: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Other processes (the CLI and the MCP server) may append to the same
	// file; the read-modify-write runs under a lock file beside it.
	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return fmt.Errorf("appending history: creating directory: %w", err)
	}
	unlock, err := lockFile(s.path + ".lock")
	if err != nil {
		return fmt.Errorf("appending history: %w", err)
	}
	defer func() { _ = unlock() }()

	hf, err := s.load()
	if err != nil {
		return err
	}
	hf.Entries = append(hf.Entries, entry)
	return s.save(hf)
}

func (s *yamlHistoryStore) Close() error { return nil }

func (s *yamlHistoryStore) load() (HistoryFile, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return HistoryFile{Version: "1.0"}, nil
		}
		return HistoryFile{}, fmt.Errorf("loading history: %w", err)
	}

	var hf HistoryFile
	if err := yaml.Unmarshal(data, &hf); err != nil {
		return HistoryFile{}, fmt.Errorf("loading history: parsing YAML: %w", err)
	}
	if hf.Version == "" {
		hf.Version = "1.0"
	}
	return hf, nil
}

func (s *yamlHistoryStore) save(hf HistoryFile) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return fmt.Errorf("saving history: creating directory: %w", err)
	}
	data, err := yaml.Marshal(&hf)
	if err != nil {
		return fmt.Errorf("saving history: marshaling YAML: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("saving history: writing file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("saving history: replacing file: %w", err)
	}
	return nil
}

func filterEntries(entries []models.HistoricalEntry, r models.ScoreRange) []models.HistoricalEntry {
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
