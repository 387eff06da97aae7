package cli

import (
	"encoding/json"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/valter-silva-au/gdd/pkg/models"
)

func setRecordFlags(t *testing.T, in goalInput, score, days float64, risks []string) {
	t.Helper()
	origGoal, origScore, origDays, origRisks := recordGoal, recordScore, recordDays, recordRisks
	t.Cleanup(func() {
		recordGoal, recordScore, recordDays, recordRisks = origGoal, origScore, origDays, origRisks
		_ = historyRecordCmd.Flags().Set("score", "0")
		historyRecordCmd.Flags().Lookup("score").Changed = false
	})
	recordGoal, recordScore, recordDays, recordRisks = in, score, days, risks
}

func TestHistoryRecordCmd_ExplicitScore(t *testing.T) {
	history := &memHistory{}
	withEngine(t, history)
	setRecordFlags(t, goalInput{id: "G-3", teamSize: 4}, 0, 14, []string{"Security", "business"})
	if err := historyRecordCmd.Flags().Set("score", "6.5"); err != nil {
		t.Fatal(err)
	}
	out := captureOutput(t, historyRecordCmd)

	if err := historyRecordCmd.RunE(historyRecordCmd, nil); err != nil {
		t.Fatalf("RunE() error = %v", err)
	}
	if len(history.entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(history.entries))
	}
	e := history.entries[0]
	if e.GoalID != "G-3" || e.ComplexityScore != 6.5 || e.ActualDurationDays != 14 || e.TeamSize != 4 {
		t.Errorf("entry = %+v", e)
	}
	if len(e.RisksEncountered) != 2 || e.RisksEncountered[0] != models.RiskSecurity {
		t.Errorf("risks should be normalized, got %v", e.RisksEncountered)
	}
	if !strings.Contains(out.String(), "Recorded G-3: score 6.5, 14 days, team 4") {
		t.Errorf("output = %q", out.String())
	}
}

func TestHistoryRecordCmd_ExplicitScoreWithoutTeamUsesRecommended(t *testing.T) {
	history := &memHistory{}
	withEngine(t, history)
	setRecordFlags(t, goalInput{id: "G-4"}, 0, 9, nil)
	if err := historyRecordCmd.Flags().Set("score", "6.5"); err != nil {
		t.Fatal(err)
	}
	out := captureOutput(t, historyRecordCmd)

	if err := historyRecordCmd.RunE(historyRecordCmd, nil); err != nil {
		t.Fatalf("RunE() error = %v", err)
	}
	if got := history.entries[0].TeamSize; got != 5 {
		t.Errorf("team size = %d, want 5 recommended for score 6.5", got)
	}
	if !strings.Contains(out.String(), "team 5") {
		t.Errorf("output = %q", out.String())
	}
}

func TestHistoryRecordCmd_DerivesFromAnalysis(t *testing.T) {
	history := &memHistory{}
	withEngine(t, history)
	setRecordFlags(t, oauthGoalInput(), 0, 21, nil)
	captureOutput(t, historyRecordCmd)

	if err := historyRecordCmd.RunE(historyRecordCmd, nil); err != nil {
		t.Fatalf("RunE() error = %v", err)
	}
	e := history.entries[0]
	if e.ComplexityScore < 7.39 || e.ComplexityScore > 7.41 {
		t.Errorf("score = %g, want 7.4", e.ComplexityScore)
	}
	if e.TeamSize != 5 {
		t.Errorf("team size = %d, want the recommended 5", e.TeamSize)
	}
	if len(e.RisksEncountered) != 3 {
		t.Errorf("risks = %v, want the identified three", e.RisksEncountered)
	}
}

func TestHistoryRecordCmd_Errors(t *testing.T) {
	withEngine(t, nil)
	setRecordFlags(t, goalInput{id: "G-1"}, 0, 3, nil)
	if err := historyRecordCmd.RunE(historyRecordCmd, nil); err == nil || !strings.Contains(err.Error(), "not initialized") {
		t.Errorf("err = %v, want not initialized", err)
	}

	withEngine(t, &memHistory{})
	setRecordFlags(t, goalInput{id: "G-1"}, 0, 3, []string{"weather"})
	if err := historyRecordCmd.RunE(historyRecordCmd, nil); err == nil {
		t.Error("unknown risk category should be rejected")
	}

	setRecordFlags(t, goalInput{id: "G-1"}, 0, -2, nil)
	if err := historyRecordCmd.RunE(historyRecordCmd, nil); err == nil {
		t.Error("negative duration should be rejected")
	}

	setRecordFlags(t, goalInput{}, 0, 2, nil)
	if err := historyRecordCmd.RunE(historyRecordCmd, nil); err == nil {
		t.Error("missing goal ID should be rejected")
	}

	for _, days := range []float64{math.NaN(), math.Inf(1)} {
		setRecordFlags(t, goalInput{id: "G-1"}, 0, days, nil)
		if err := historyRecordCmd.RunE(historyRecordCmd, nil); err == nil {
			t.Errorf("duration %g should be rejected", days)
		}
	}
}

func setListFlags(t *testing.T, min, max float64, asJSON bool) {
	t.Helper()
	origMin, origMax, origJSON := historyMin, historyMax, historyJSON
	t.Cleanup(func() { historyMin, historyMax, historyJSON = origMin, origMax, origJSON })
	historyMin, historyMax, historyJSON = min, max, asJSON
}

func listFixture() *memHistory {
	at := time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC)
	return &memHistory{entries: []models.HistoricalEntry{
		outcome("G-8", 8, 20, at, models.RiskTechnical),
		outcome("G-2", 2, 4, at),
		outcome("G-5", 5, 12, at, models.RiskSecurity, models.RiskBusiness),
	}}
}

func TestHistoryListCmd_Table(t *testing.T) {
	withEngine(t, listFixture())
	setListFlags(t, 0, 10, false)
	out := captureOutput(t, historyListCmd)

	if err := historyListCmd.RunE(historyListCmd, nil); err != nil {
		t.Fatalf("RunE() error = %v", err)
	}
	got := out.String()
	i2, i5, i8 := strings.Index(got, "G-2"), strings.Index(got, "G-5"), strings.Index(got, "G-8")
	if i2 < 0 || i5 < i2 || i8 < i5 {
		t.Errorf("entries should be listed by score:\n%s", got)
	}
	lower := strings.ToLower(got)
	for _, want := range []string{"security, business", "2026-04-02", "3 outcome(s)", "avg 12.0"} {
		if !strings.Contains(lower, want) {
			t.Errorf("output should contain %q:\n%s", want, got)
		}
	}
}

func TestHistoryListCmd_RangeAndJSON(t *testing.T) {
	withEngine(t, listFixture())
	setListFlags(t, 4, 8, true)
	out := captureOutput(t, historyListCmd)

	if err := historyListCmd.RunE(historyListCmd, nil); err != nil {
		t.Fatalf("RunE() error = %v", err)
	}
	var entries []models.HistoricalEntry
	if err := json.Unmarshal(out.Bytes(), &entries); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(entries) != 2 || entries[0].GoalID != "G-5" || entries[1].GoalID != "G-8" {
		t.Errorf("entries = %+v, want G-5 and G-8 (inclusive bounds)", entries)
	}
}

func TestHistoryListCmd_Empty(t *testing.T) {
	withEngine(t, &memHistory{})
	setListFlags(t, 0, 10, false)
	out := captureOutput(t, historyListCmd)
	if err := historyListCmd.RunE(historyListCmd, nil); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "No outcomes recorded") {
		t.Errorf("output = %q", out.String())
	}

	setListFlags(t, 0, 10, true)
	out.Reset()
	if err := historyListCmd.RunE(historyListCmd, nil); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out.String()) != "[]" {
		t.Errorf("empty JSON output = %q, want []", out.String())
	}
}

func TestHistoryListCmd_Errors(t *testing.T) {
	withEngine(t, nil)
	setListFlags(t, 0, 10, false)
	if err := historyListCmd.RunE(historyListCmd, nil); err == nil || !strings.Contains(err.Error(), "not initialized") {
		t.Errorf("err = %v", err)
	}

	withEngine(t, &memHistory{})
	setListFlags(t, 6, 2, false)
	if err := historyListCmd.RunE(historyListCmd, nil); err == nil || !strings.Contains(err.Error(), "above") {
		t.Errorf("err = %v, want inverted range error", err)
	}

	withEngine(t, &memHistory{queryErr: errBoom})
	setListFlags(t, 0, 10, false)
	if err := historyListCmd.RunE(historyListCmd, nil); err == nil || !strings.Contains(err.Error(), "querying history") {
		t.Errorf("err = %v", err)
	}
}

func TestHistoryCmd_Subcommands(t *testing.T) {
	want := map[string]bool{"record": false, "list": false, "dashboard": false}
	for _, c := range historyCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("history %s not registered", name)
		}
	}
}
