package observability

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/valter-silva-au/gdd/pkg/models"
)

func newTestLog(t *testing.T) EventLog {
	t.Helper()
	log, err := NewJSONLEventLog(filepath.Join(t.TempDir(), "events.jsonl"))
	if err != nil {
		t.Fatalf("creating event log: %v", err)
	}
	t.Cleanup(func() { _ = log.Close() })
	return log
}

func TestEventLog_WriteAndRead(t *testing.T) {
	log := newTestLog(t)

	now := time.Now().UTC().Truncate(time.Millisecond)
	events := []Event{
		{Time: now, Level: models.LevelInfo, Type: "run.started", RunID: "r1", Message: "run started", Data: map[string]any{"steps": 3}},
		{Time: now.Add(time.Second), Level: models.LevelError, Type: "step.failed", RunID: "r1", StepID: "estimate", Message: "estimate failed"},
	}
	for _, e := range events {
		if err := log.Write(e); err != nil {
			t.Fatalf("writing event: %v", err)
		}
	}

	result, err := log.Read(EventFilter{})
	if err != nil {
		t.Fatalf("reading events: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("expected 2 events, got %d", len(result))
	}
	if result[0].Type != "run.started" || result[0].RunID != "r1" {
		t.Errorf("unexpected first event: %+v", result[0])
	}
	if steps, _ := result[0].Data["steps"].(float64); steps != 3 {
		t.Errorf("expected steps=3 in data, got %v", result[0].Data["steps"])
	}
	if result[1].StepID != "estimate" || result[1].Level != models.LevelError {
		t.Errorf("unexpected second event: %+v", result[1])
	}
}

func TestEventLog_StampsZeroTime(t *testing.T) {
	log := newTestLog(t)
	before := time.Now().UTC().Add(-time.Second)
	if err := log.Write(Event{Level: models.LevelInfo, Type: "run.started"}); err != nil {
		t.Fatalf("writing event: %v", err)
	}
	result, err := log.Read(EventFilter{})
	if err != nil {
		t.Fatalf("reading events: %v", err)
	}
	if len(result) != 1 || result[0].Time.Before(before) {
		t.Errorf("expected stamped event, got %+v", result)
	}
}

func TestEventLog_Filters(t *testing.T) {
	log := newTestLog(t)
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	events := []Event{
		{Time: base, Level: models.LevelInfo, Type: "run.started", RunID: "a"},
		{Time: base.Add(time.Hour), Level: models.LevelError, Type: "step.failed", RunID: "a"},
		{Time: base.Add(2 * time.Hour), Level: models.LevelInfo, Type: "run.started", RunID: "b"},
		{Time: base.Add(3 * time.Hour), Level: models.LevelSuccess, Type: "run.finished", RunID: "b"},
	}
	for _, e := range events {
		if err := log.Write(e); err != nil {
			t.Fatalf("writing event: %v", err)
		}
	}

	since := base.Add(30 * time.Minute)
	until := base.Add(150 * time.Minute)
	tests := []struct {
		name   string
		filter EventFilter
		want   int
	}{
		{"all", EventFilter{}, 4},
		{"type", EventFilter{Type: "run.started"}, 2},
		{"level", EventFilter{Level: models.LevelError}, 1},
		{"run", EventFilter{RunID: "b"}, 2},
		{"range", EventFilter{Since: &since, Until: &until}, 2},
		{"combined", EventFilter{RunID: "a", Type: "run.started"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := log.Read(tt.filter)
			if err != nil {
				t.Fatalf("reading events: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("got %d events, want %d", len(got), tt.want)
			}
		})
	}
}

func TestEventLog_SkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	content := `{"time":"2026-03-01T09:00:00Z","level":"info","type":"run.started","msg":"ok"}
not json at all

{"time":"2026-03-01T09:01:00Z","level":"success","type":"run.finished","msg":"ok"}
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	log, err := NewJSONLEventLog(path)
	if err != nil {
		t.Fatalf("opening event log: %v", err)
	}
	defer log.Close()

	got, err := log.Read(EventFilter{})
	if err != nil {
		t.Fatalf("reading events: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 valid events, got %d", len(got))
	}
}

func TestEventLog_EmptyLog(t *testing.T) {
	log := newTestLog(t)
	got, err := log.Read(EventFilter{})
	if err != nil {
		t.Fatalf("reading empty log: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no events, got %d", len(got))
	}
}

func TestEventLog_ConcurrentWrites(t *testing.T) {
	log := newTestLog(t)

	const writers, perWriter = 8, 25
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				_ = log.Write(Event{
					Level:   models.LevelInfo,
					Type:    "step.started",
					StepID:  fmt.Sprintf("s-%d-%d", w, i),
					Message: "step started",
				})
			}
		}(w)
	}
	wg.Wait()

	got, err := log.Read(EventFilter{})
	if err != nil {
		t.Fatalf("reading events: %v", err)
	}
	if len(got) != writers*perWriter {
		t.Errorf("expected %d events, got %d", writers*perWriter, len(got))
	}
}
