package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/valter-silva-au/gdd/internal/core"
	"github.com/valter-silva-au/gdd/pkg/models"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Record and inspect outcomes of completed goals",
	Long: `The history store holds the observed outcomes of completed goals. The
estimator calibrates its duration estimates against it.`,
}

var (
	recordGoal  goalInput
	recordScore float64
	recordDays  float64
	recordRisks []string
)

var historyRecordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record the actual outcome of a completed goal",
	Long: `Append a completed goal's outcome to the history store.

Without --score the complexity score, team size and risks are derived by
analyzing the goal given through --file or the goal flags.`,
	Example: `  gdd history record --id G-3 --score 6.5 --days 14 --team-size 4 --risk security
  gdd history record -f goal.yaml --days 21`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Analyzer == nil || History == nil {
			return fmt.Errorf("history store not initialized")
		}
		entry, err := buildHistoryEntry(cmd.Flags().Changed("score"), time.Now().UTC())
		if err != nil {
			return err
		}
		if err := Analyzer.RecordOutcome(entry); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Recorded %s: score %.1f, %g days, team %d\n",
			entry.GoalID, entry.ComplexityScore, entry.ActualDurationDays, entry.TeamSize)
		return nil
	},
}

func buildHistoryEntry(scoreGiven bool, now time.Time) (models.HistoricalEntry, error) {
	goal, opts, err := recordGoal.resolve()
	if err != nil {
		return models.HistoricalEntry{}, err
	}
	entry := models.HistoricalEntry{
		GoalID:             goal.ID,
		ComplexityScore:    recordScore,
		ActualDurationDays: recordDays,
		TeamSize:           opts.TeamSize,
		RecordedAt:         now,
	}
	for _, r := range recordRisks {
		entry.RisksEncountered = append(entry.RisksEncountered, models.RiskCategory(strings.ToLower(strings.TrimSpace(r))))
	}

	if !scoreGiven {
		res := Analyzer.Analyze(goal, opts)
		entry.ComplexityScore = res.ComplexityScore
		if entry.TeamSize <= 0 {
			entry.TeamSize = res.RecommendedTeamSize
		}
		if len(recordRisks) == 0 {
			for _, rf := range res.RiskFactors {
				entry.RisksEncountered = append(entry.RisksEncountered, rf.Category)
			}
		}
	}
	if entry.TeamSize <= 0 {
		entry.TeamSize = core.RecommendedTeamSize(entry.ComplexityScore)
	}
	return entry, nil
}

var (
	historyMin  float64
	historyMax  float64
	historyJSON bool
)

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded outcomes within a complexity score range",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if History == nil {
			return fmt.Errorf("history store not initialized")
		}
		if historyMin > historyMax {
			return fmt.Errorf("--min %g is above --max %g", historyMin, historyMax)
		}
		entries, err := History.Query(models.ScoreRange{Min: historyMin, Max: historyMax})
		if err != nil {
			return fmt.Errorf("querying history: %w", err)
		}

		out := cmd.OutOrStdout()
		if historyJSON {
			if entries == nil {
				entries = []models.HistoricalEntry{}
			}
			data, err := json.MarshalIndent(entries, "", "  ")
			if err != nil {
				return fmt.Errorf("formatting history as JSON: %w", err)
			}
			fmt.Fprintln(out, string(data))
			return nil
		}

		if len(entries) == 0 {
			fmt.Fprintf(out, "No outcomes recorded with score in [%g, %g].\n", historyMin, historyMax)
			return nil
		}
		tw := table.NewWriter()
		tw.SetOutputMirror(out)
		tw.AppendHeader(table.Row{"Goal", "Score", "Days", "Team", "Risks", "Recorded"})
		var days float64
		for _, e := range entries {
			risks := make([]string, len(e.RisksEncountered))
			for i, r := range e.RisksEncountered {
				risks[i] = string(r)
			}
			tw.AppendRow(table.Row{e.GoalID, e.ComplexityScore, e.ActualDurationDays, e.TeamSize, strings.Join(risks, ", "), e.RecordedAt.Format("2006-01-02")})
			days += e.ActualDurationDays
		}
		tw.AppendFooter(table.Row{fmt.Sprintf("%d outcome(s)", len(entries)), "", fmt.Sprintf("avg %.1f", days/float64(len(entries)))})
		tw.Render()
		return nil
	},
}

func init() {
	recordGoal.register(historyRecordCmd)
	historyRecordCmd.Flags().Float64Var(&recordScore, "score", 0, "Complexity score (default: derived by analyzing the goal)")
	historyRecordCmd.Flags().Float64Var(&recordDays, "days", 0, "Actual duration in days")
	historyRecordCmd.Flags().StringSliceVar(&recordRisks, "risk", nil, "Risk category encountered (repeatable)")
	_ = historyRecordCmd.MarkFlagRequired("days")

	historyListCmd.Flags().Float64Var(&historyMin, "min", 0, "Minimum complexity score")
	historyListCmd.Flags().Float64Var(&historyMax, "max", core.MaxComplexityScore, "Maximum complexity score")
	historyListCmd.Flags().BoolVar(&historyJSON, "json", false, "Output entries as JSON")

	historyCmd.AddCommand(historyRecordCmd, historyListCmd, dashboardCmd)
	rootCmd.AddCommand(historyCmd)
}
