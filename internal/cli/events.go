package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/valter-silva-au/gdd/internal/observability"
	"github.com/valter-silva-au/gdd/pkg/models"
)

var (
	eventsJSON  bool
	eventsSince string
	eventsList  bool
	eventsType  string
	eventsLevel string
	eventsRun   string
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Summarize or list tracked-run events",
	Long: `Display metrics derived from the event log written by tracked runs:
runs started, finished and failed, step outcomes, retries, and event counts
per level.

With --list, print the matching events themselves, optionally filtered by
--type, --level and --run.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sinceTime, err := parseSinceDuration(eventsSince)
		if err != nil {
			return fmt.Errorf("parsing --since: %w", err)
		}
		if eventsList {
			return listEvents(cmd.OutOrStdout(), sinceTime)
		}

		if MetricsCalc == nil {
			return fmt.Errorf("metrics calculator not initialized (observability may be disabled)")
		}
		metrics, err := MetricsCalc.Calculate(sinceTime)
		if err != nil {
			return fmt.Errorf("calculating metrics: %w", err)
		}

		out := cmd.OutOrStdout()
		if eventsJSON {
			data, err := json.MarshalIndent(metrics, "", "  ")
			if err != nil {
				return fmt.Errorf("formatting metrics as JSON: %w", err)
			}
			fmt.Fprintln(out, string(data))
			return nil
		}

		tw := table.NewWriter()
		tw.SetOutputMirror(out)
		tw.SetTitle(fmt.Sprintf("Events since %s", sinceTime.Format("2006-01-02")))
		tw.AppendRows([]table.Row{
			{"Events recorded", metrics.EventCount},
			{"Runs started", metrics.RunsStarted},
			{"Runs finished", metrics.RunsFinished},
			{"Runs failed", metrics.RunsFailed},
			{"Steps completed", metrics.StepsCompleted},
			{"Steps failed", metrics.StepsFailed},
			{"Steps skipped", metrics.StepsSkipped},
			{"Retries", metrics.Retries},
		})
		tw.AppendSeparator()
		for _, level := range []models.NotificationLevel{models.LevelInfo, models.LevelSuccess, models.LevelWarning, models.LevelError} {
			tw.AppendRow(table.Row{"Level " + string(level), metrics.EventsByLevel[level]})
		}
		if metrics.OldestEvent != nil {
			tw.AppendSeparator()
			tw.AppendRow(table.Row{"Oldest event", metrics.OldestEvent.Format(time.RFC3339)})
		}
		if metrics.NewestEvent != nil {
			tw.AppendRow(table.Row{"Newest event", metrics.NewestEvent.Format(time.RFC3339)})
		}
		tw.Render()
		return nil
	},
}

func listEvents(out io.Writer, since time.Time) error {
	if EventLog == nil {
		return fmt.Errorf("event log not initialized (observability may be disabled)")
	}
	filter := observability.EventFilter{
		Since: &since,
		Type:  eventsType,
		Level: models.NotificationLevel(strings.ToLower(eventsLevel)),
		RunID: eventsRun,
	}
	events, err := EventLog.Read(filter)
	if err != nil {
		return fmt.Errorf("reading events: %w", err)
	}

	if eventsJSON {
		if events == nil {
			events = []observability.Event{}
		}
		data, err := json.MarshalIndent(events, "", "  ")
		if err != nil {
			return fmt.Errorf("formatting events as JSON: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	if len(events) == 0 {
		fmt.Fprintln(out, "No matching events.")
		return nil
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(out)
	tw.AppendHeader(table.Row{"Time", "Level", "Type", "Run", "Step", "Message"})
	for _, e := range events {
		tw.AppendRow(table.Row{e.Time.Format(time.RFC3339), e.Level, e.Type, shortRunID(e.RunID), e.StepID, e.Message})
	}
	tw.Render()
	return nil
}

// shortRunID trims a UUID run ID to its first group for table display.
func shortRunID(id string) string {
	if head, _, ok := strings.Cut(id, "-"); ok && len(id) == 36 {
		return head
	}
	return id
}

// parseSinceDuration parses a human-friendly duration string like "7d", "30d",
// or "24h" and returns the corresponding time in the past.
func parseSinceDuration(s string) (time.Time, error) {
	now := time.Now().UTC()
	s = strings.TrimSpace(s)
	if s == "" {
		return now.AddDate(0, 0, -7), nil
	}

	if strings.HasSuffix(s, "d") {
		days, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid day duration %q", s)
		}
		return now.AddDate(0, 0, -days), nil
	}

	if strings.HasSuffix(s, "h") {
		hours, err := strconv.Atoi(strings.TrimSuffix(s, "h"))
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid hour duration %q", s)
		}
		return now.Add(-time.Duration(hours) * time.Hour), nil
	}

	return time.Time{}, fmt.Errorf("unsupported duration format %q (use e.g. 7d, 30d, 24h)", s)
}

func init() {
	eventsCmd.Flags().BoolVar(&eventsJSON, "json", false, "Output as JSON")
	eventsCmd.Flags().StringVar(&eventsSince, "since", "7d", "Time window (e.g. 7d, 30d, 24h)")
	eventsCmd.Flags().BoolVar(&eventsList, "list", false, "List matching events instead of summarizing them")
	eventsCmd.Flags().StringVar(&eventsType, "type", "", "With --list, only events of this type (e.g. step.failed)")
	eventsCmd.Flags().StringVar(&eventsLevel, "level", "", "With --list, only events of this level (info, success, warning, error)")
	eventsCmd.Flags().StringVar(&eventsRun, "run", "", "With --list, only events of this run ID")
	rootCmd.AddCommand(eventsCmd)
}
