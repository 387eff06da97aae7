package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/valter-silva-au/gdd/internal/core"
	"github.com/valter-silva-au/gdd/pkg/models"
)

var (
	analyzeGoal    goalInput
	analyzeJSON    bool
	analyzeExplain bool
)

// analyzeReport is the --json output of analyze.
type analyzeReport struct {
	Analysis models.AnalysisResult `json:"analysis"`
	Estimate *core.EstimateDetail  `json:"estimate,omitempty"`
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Score, assess risks and estimate a goal",
	Long: `Analyze a goal: complexity score (0-10), risk factors, recommended
skills and team size, and estimated duration in days.

The goal comes from --file (YAML with goal, dependency_statuses and
team_size keys) and/or flags. Use --explain to show how the score and the
estimate were composed.`,
	Example: `  gdd analyze --id G-1 -d "Implement OAuth integration with third-party API" \
    --objective "login" --objective "token refresh" --tag security
  gdd analyze -f goal.yaml --dep-status G-0=in_progress --explain`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Analyzer == nil {
			return fmt.Errorf("analyzer not initialized")
		}
		goal, opts, err := analyzeGoal.resolve()
		if err != nil {
			return err
		}

		res, detail := Analyzer.Explain(goal, opts)
		out := cmd.OutOrStdout()

		if analyzeJSON {
			report := analyzeReport{Analysis: res}
			if analyzeExplain {
				report.Estimate = &detail
			}
			data, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return fmt.Errorf("formatting analysis as JSON: %w", err)
			}
			fmt.Fprintln(out, string(data))
			return nil
		}

		renderAnalysis(out, res)
		if analyzeExplain {
			renderExplain(out, res.Breakdown, detail)
		}
		return nil
	},
}

func renderAnalysis(out io.Writer, res models.AnalysisResult) {
	tw := table.NewWriter()
	tw.SetOutputMirror(out)
	tw.SetTitle("Analysis: " + res.GoalID)
	tw.AppendRow(table.Row{"Complexity score", fmt.Sprintf("%.1f / 10", res.ComplexityScore)})
	estimate := fmt.Sprintf("%g days", res.EstimatedDays)
	if res.Calibrated {
		estimate += " (calibrated)"
	}
	tw.AppendRow(table.Row{"Estimated duration", estimate})
	tw.AppendRow(table.Row{"Recommended team size", res.RecommendedTeamSize})
	skills := "-"
	if len(res.RecommendedSkills) > 0 {
		skills = strings.Join(res.RecommendedSkills, ", ")
	}
	tw.AppendRow(table.Row{"Recommended skills", skills})
	tw.Render()

	if len(res.RiskFactors) == 0 {
		fmt.Fprintln(out, "\nNo risk factors identified.")
		return
	}
	fmt.Fprintln(out)
	rw := table.NewWriter()
	rw.SetOutputMirror(out)
	rw.AppendHeader(table.Row{"Risk", "Severity", "Keywords"})
	for _, rf := range res.RiskFactors {
		rw.AppendRow(table.Row{rf.Category, rf.Severity, strings.Join(rf.Keywords, ", ")})
	}
	rw.Render()
}

func renderExplain(out io.Writer, b models.ScoreBreakdown, d core.EstimateDetail) {
	fmt.Fprintln(out)
	bw := table.NewWriter()
	bw.SetOutputMirror(out)
	bw.SetTitle("Score breakdown")
	bw.AppendHeader(table.Row{"Component", "Points"})
	bw.AppendRows([]table.Row{
		{"keywords", b.Keyword},
		{"dependencies", b.Dependency},
		{"scope", b.Scope},
		{"integration", b.Integration},
		{"security", b.Security},
	})
	bw.AppendFooter(table.Row{"total (clamped)", b.Total})
	bw.Render()

	fmt.Fprintln(out)
	ew := table.NewWriter()
	ew.SetOutputMirror(out)
	ew.SetTitle("Estimate")
	ew.AppendRows([]table.Row{
		{"heuristic base (days)", d.HeuristicBase},
		{"base used (days)", d.Base},
		{"history samples", d.Samples},
		{"calibrated", d.Calibrated},
		{"open dependencies", d.OpenDependencies},
		{"dependency factor", d.DependencyFactor},
		{"team factor", d.TeamFactor},
		{"estimate (days)", d.Days},
	})
	ew.Render()
}

func init() {
	analyzeGoal.register(analyzeCmd)
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "Output the analysis as JSON")
	analyzeCmd.Flags().BoolVar(&analyzeExplain, "explain", false, "Show the score breakdown and estimate composition")
	rootCmd.AddCommand(analyzeCmd)
}
