package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"time"

	"github.com/cenkalti/backoff/v4"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/valter-silva-au/gdd/internal/core"
	"github.com/valter-silva-au/gdd/pkg/models"
)

var (
	trackGoal       goalInput
	trackPlain      bool
	trackKeepGoing  bool
	trackActualDays float64
)

// trackRun holds the state passed between the steps of a tracked analysis.
type trackRun struct {
	input      *goalInput
	cfg        *models.Config
	history    core.HistoryStore
	record     func(models.HistoricalEntry) error
	actualDays float64
	now        func() time.Time

	goal      models.GoalRecord
	opts      core.AnalyzeOptions
	breakdown models.ScoreBreakdown
	risks     []models.RiskFactor
	rec       models.Recommendation
	detail    core.EstimateDetail
	estimated bool
}

func (r *trackRun) steps() []core.WorkflowStep {
	return []core.WorkflowStep{
		{ID: "load", Label: "Load goal", Run: r.load},
		{ID: "score", Label: "Score complexity", Run: r.score},
		{ID: "risks", Label: "Identify risks", Run: r.identifyRisks},
		{ID: "recommend", Label: "Recommend resources", Run: r.recommend},
		{ID: "estimate", Label: "Estimate duration", Run: r.estimate},
		{
			ID:    "record",
			Label: "Record outcome",
			Run:   r.recordOutcome,
			SkipIf: func() (bool, string) {
				if r.actualDays <= 0 {
					return true, "no --actual-days given"
				}
				return false, ""
			},
		},
	}
}

func (r *trackRun) load(context.Context) error {
	goal, opts, err := r.input.resolve()
	if err != nil {
		// Only transient I/O failures are worth retrying.
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) && !errors.Is(err, fs.ErrNotExist) && !errors.Is(err, fs.ErrPermission) {
			return err
		}
		return backoff.Permanent(err)
	}
	r.goal, r.opts = goal, opts
	return nil
}

func (r *trackRun) score(context.Context) error {
	r.breakdown = core.NewComplexityScorer(r.cfg.Scoring).Breakdown(r.goal)
	return nil
}

func (r *trackRun) identifyRisks(context.Context) error {
	r.risks = core.NewRiskIdentifier(r.cfg.Risk).Identify(r.goal)
	return nil
}

func (r *trackRun) recommend(context.Context) error {
	r.rec = core.NewResourceRecommender(r.cfg.Risk.PerformanceKeywords).Recommend(r.breakdown.Total, r.risks, r.goal.Tags)
	return nil
}

func (r *trackRun) estimate(context.Context) error {
	r.detail = core.NewEstimator(r.cfg.Estimator, r.history).Explain(r.goal, r.breakdown.Total, r.teamSize(), r.opts.DependencyStatuses)
	r.estimated = true
	return nil
}

func (r *trackRun) recordOutcome(context.Context) error {
	if r.record == nil {
		return backoff.Permanent(fmt.Errorf("no history store configured"))
	}
	entry := models.HistoricalEntry{
		GoalID:             r.goal.ID,
		ComplexityScore:    r.breakdown.Total,
		ActualDurationDays: r.actualDays,
		TeamSize:           r.teamSize(),
		RecordedAt:         r.now().UTC(),
	}
	for _, rf := range r.risks {
		entry.RisksEncountered = append(entry.RisksEncountered, rf.Category)
	}
	if err := entry.Validate(); err != nil {
		return backoff.Permanent(err)
	}
	return r.record(entry)
}

func (r *trackRun) teamSize() int {
	if r.opts.TeamSize > 0 {
		return r.opts.TeamSize
	}
	return r.rec.TeamSize
}

func (r *trackRun) result() models.AnalysisResult {
	risks := r.risks
	if risks == nil {
		risks = []models.RiskFactor{}
	}
	return models.AnalysisResult{
		GoalID:              r.goal.ID,
		ComplexityScore:     r.breakdown.Total,
		EstimatedDays:       r.detail.Days,
		RiskFactors:         risks,
		RecommendedSkills:   r.rec.Skills,
		RecommendedTeamSize: r.rec.TeamSize,
		Breakdown:           r.breakdown,
		Calibrated:          r.detail.Calibrated,
	}
}

var trackCmd = &cobra.Command{
	Use:   "track",
	Short: "Run the goal analysis as a tracked workflow with live progress",
	Long: `Run each stage of the analysis (load, score, risks, recommendation,
estimate, and optionally recording the outcome) as a tracked step.

Progress refreshes live: a full-screen view on a terminal, one line per
change otherwise (or with --plain). Failed steps are retried with
exponential backoff per the retry.* configuration; every run event is
appended to the event log.`,
	Example: `  gdd track -f goal.yaml
  gdd track --id G-7 -d "Migrate legacy reporting" --actual-days 12 --plain`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := Config
		if cfg == nil {
			cfg = core.DefaultConfig()
		}
		run := &trackRun{
			input:      &trackGoal,
			cfg:        cfg,
			actualDays: trackActualDays,
			now:        time.Now,
		}
		if History != nil {
			run.history = History
			run.record = History.Append
		}
		if Analyzer != nil && History != nil {
			run.record = Analyzer.RecordOutcome
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		out := cmd.OutOrStdout()
		useTUI := !trackPlain && isTerminal(out)
		return executeTrack(ctx, out, run, cfg, useTUI)
	},
}

func executeTrack(ctx context.Context, out io.Writer, run *trackRun, cfg *models.Config, useTUI bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	opts := core.WorkflowOptions{
		Policy:        core.RetryPolicyFromConfig(cfg.Retry),
		Interval:      cfg.Display.RefreshInterval,
		StopOnFailure: !trackKeepGoing,
	}
	if RunLogger != nil {
		opts.Logger = RunLogger
	}

	var (
		prog     *tea.Program
		progDone chan error
	)
	lines := &lineRenderer{out: out}
	tui := &teaRenderer{}
	if useTUI {
		prog = tea.NewProgram(newTrackModel("gdd track", cancel), tea.WithOutput(out))
		tui.send = prog.Send
		opts.Renderer = tui
	} else {
		opts.Renderer = lines
	}

	wf := core.NewWorkflow(opts)
	lines.retries = wf.Handler.Retries
	tui.retries = wf.Handler.Retries

	if prog != nil {
		progDone = make(chan error, 1)
		go func() {
			_, err := prog.Run()
			progDone <- err
		}()
	} else {
		fmt.Fprintf(out, "Run %s\n", wf.Sink.RunID())
	}

	result, err := wf.Run(ctx, run.steps())

	if prog != nil {
		prog.Send(runDoneMsg{})
		if perr := <-progDone; perr != nil && err == nil {
			err = fmt.Errorf("running progress display: %w", perr)
		}
	}
	if err != nil {
		return err
	}

	if run.estimated {
		fmt.Fprintln(out)
		renderAnalysis(out, run.result())
	}
	for _, f := range result.Failures {
		fmt.Fprintln(out, stepErrorStyle.Render("✗ "+f.Error()))
	}
	if result.Failed() {
		return fmt.Errorf("run %s: %d step(s) failed", result.RunID, len(result.Failures))
	}
	if run.actualDays > 0 {
		fmt.Fprintf(out, "\nRecorded outcome for %s: %g days\n", run.goal.ID, run.actualDays)
	}
	return nil
}

func init() {
	trackGoal.register(trackCmd)
	trackCmd.Flags().BoolVar(&trackPlain, "plain", false, "Print line-based progress even on a terminal")
	trackCmd.Flags().BoolVar(&trackKeepGoing, "keep-going", false, "Run remaining steps after a failure instead of skipping them")
	trackCmd.Flags().Float64Var(&trackActualDays, "actual-days", 0, "Record the goal's actual duration in days to the history store")
	rootCmd.AddCommand(trackCmd)
}
