package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/valter-silva-au/gdd/pkg/models"
	_ "modernc.org/sqlite"
)

const historySchema = `
CREATE TABLE IF NOT EXISTS history (
	seq                  INTEGER PRIMARY KEY AUTOINCREMENT,
	goal_id              TEXT    NOT NULL,
	complexity_score     REAL    NOT NULL,
	actual_duration_days REAL    NOT NULL,
	team_size            INTEGER NOT NULL,
	risks_encountered    TEXT    NOT NULL DEFAULT '',
	recorded_at          TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS history_score_idx ON history(complexity_score);
`

type sqliteHistoryStore struct {
	db *sql.DB
}

// NewSQLiteHistoryStore opens (creating if needed) a SQLite history database
// at path.
func NewSQLiteHistoryStore(path string) (HistoryStoreManager, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("opening history database: creating directory: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}
	if _, err := db.Exec(historySchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrating history database: %w", err)
	}
	return &sqliteHistoryStore{db: db}, nil
}

func (s *sqliteHistoryStore) Query(r models.ScoreRange) ([]models.HistoricalEntry, error) {
	return s.query(`SELECT goal_id, complexity_score, actual_duration_days, team_size, risks_encountered, recorded_at
		FROM history WHERE complexity_score >= ? AND complexity_score <= ?
		ORDER BY complexity_score, seq`, r.Min, r.Max)
}

func (s *sqliteHistoryStore) All() ([]models.HistoricalEntry, error) {
	return s.query(`SELECT goal_id, complexity_score, actual_duration_days, team_size, risks_encountered, recorded_at
		FROM history ORDER BY seq`)
}

func (s *sqliteHistoryStore) Append(entry models.HistoricalEntry) error {
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("appending history: %w", err)
	}
	risks := make([]string, len(entry.RisksEncountered))
	for i, r := range entry.RisksEncountered {
		risks[i] = string(r)
	}
	_, err := s.db.Exec(`INSERT INTO history
		(goal_id, complexity_score, actual_duration_days, team_size, risks_encountered, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		entry.GoalID, entry.ComplexityScore, entry.ActualDurationDays, entry.TeamSize,
		strings.Join(risks, ","), entry.RecordedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("appending history for %s: %w", entry.GoalID, err)
	}
	return nil
}

func (s *sqliteHistoryStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("closing history database: %w", err)
	}
	return nil
}

func (s *sqliteHistoryStore) query(q string, args ...any) ([]models.HistoricalEntry, error) {
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var out []models.HistoricalEntry
	for rows.Next() {
		var (
			e        models.HistoricalEntry
			risks    string
			recorded string
		)
		if err := rows.Scan(&e.GoalID, &e.ComplexityScore, &e.ActualDurationDays, &e.TeamSize, &risks, &recorded); err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		if risks != "" {
			for _, r := range strings.Split(risks, ",") {
				e.RisksEncountered = append(e.RisksEncountered, models.RiskCategory(r))
			}
		}
		if t, err := time.Parse(time.RFC3339Nano, recorded); err == nil {
			e.RecordedAt = t
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading history rows: %w", err)
	}
	return out, nil
}
