package main

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/fatih/color"
	"github.com/scarlet-home/scarletdash/internal/storage"
	"github.com/spf13/cobra"
)

var historyFilter struct {
	source  string
	kind    string
	target  string
	outcome string
	since   time.Duration
	limit   int
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recently journaled dashboard actions",
	Long: `Show the actions issued from the dashboard, newest first. Only useful with
storage.type=redis; the memory journal lives and dies with one process.`,
	Example: `  scarletdash history --outcome error --since 24h
  scarletdash history --source web --kind program.delete`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().StringVar(&historyFilter.source, "source", "", "Only actions from this front-end (web, tui, cli)")
	historyCmd.Flags().StringVar(&historyFilter.kind, "kind", "", "Only actions of this kind (e.g. program.update)")
	historyCmd.Flags().StringVar(&historyFilter.target, "target", "", "Only actions on this target")
	historyCmd.Flags().StringVar(&historyFilter.outcome, "outcome", "", "Only actions with this outcome (ok, error, declined, invalid)")
	historyCmd.Flags().DurationVar(&historyFilter.since, "since", 0, "Only actions newer than this")
	historyCmd.Flags().IntVarP(&historyFilter.limit, "limit", "n", 50, "Maximum entries to show")
	historyCmd.Flags().BoolVar(&outputJSON, "json", false, "Print JSON instead of a table")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	filter := storage.ActionFilter{
		Source: storage.Source(historyFilter.source),
		Kind:   historyFilter.kind,
		Target: historyFilter.target,
		Limit:  historyFilter.limit,
	}
	if historyFilter.outcome != "" {
		outcome, err := storage.ParseOutcome(historyFilter.outcome)
		if err != nil {
			return err
		}
		filter.Outcome = outcome
	}
	if historyFilter.since > 0 {
		start := time.Now().Add(-historyFilter.since)
		filter.StartTime = &start
	}

	app, err := openCLI()
	if err != nil {
		return err
	}
	defer app.Close()

	entries, err := app.recorder.Recent(cmd.Context(), filter)
	if err != nil {
		return fmt.Errorf("failed to read journal: %w", err)
	}

	if outputJSON {
		return writeJSON(cmd.OutOrStdout(), entries)
	}
	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No journaled actions.")
		return nil
	}

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			e.Timestamp.Local().Format("2006-01-02 15:04:05"),
			string(e.Source),
			e.Kind,
			e.Target,
			outcomeText(e.Outcome),
			fmt.Sprintf("%dms", e.DurationMs),
			e.Error,
		})
	}
	fmt.Fprintln(cmd.OutOrStdout(), table.New().
		Border(lipgloss.NormalBorder()).
		Headers("TIME", "SOURCE", "KIND", "TARGET", "OUTCOME", "TOOK", "ERROR").
		Rows(rows...).
		Render())
	return nil
}

func outcomeText(o storage.Outcome) string {
	switch o {
	case storage.OutcomeOK:
		return color.GreenString(string(o))
	case storage.OutcomeDeclined:
		return color.YellowString(string(o))
	default:
		return color.RedString(string(o))
	}
}
