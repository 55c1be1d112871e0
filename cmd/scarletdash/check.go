package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/scarlet-home/scarletdash/internal/remote"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that the backend answers every read endpoint",
	Long: `Call the read endpoints the dashboard depends on and report which ones
answer. Nothing is changed on the backend.`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

// backendCheck is one read-only backend call.
type backendCheck struct {
	name string
	run  func(ctx context.Context, c *remote.Client) (string, error)
}

var backendChecks = []backendCheck{
	{"GET /irrigation/program/all", func(ctx context.Context, c *remote.Client) (string, error) {
		programs, err := c.ListPrograms(ctx)
		return fmt.Sprintf("%d program(s)", len(programs)), err
	}},
	{"GET /irrigation/automation", func(ctx context.Context, c *remote.Client) (string, error) {
		on, err := c.IrrigationAutomation(ctx)
		return onOff(on), err
	}},
	{"GET /blinds/automation", func(ctx context.Context, c *remote.Client) (string, error) {
		on, err := c.BlindsAutomation(ctx)
		return onOff(on), err
	}},
	{"GET /open_weather/score", func(ctx context.Context, c *remote.Client) (string, error) {
		score, err := c.Score(ctx)
		return fmt.Sprintf("%.2f", score), err
	}},
}

// checkResult is the outcome of one backend check.
type checkResult struct {
	name   string
	detail string
	took   time.Duration
	err    error
}

func runCheck(cmd *cobra.Command, args []string) error {
	app, err := openCLI()
	if err != nil {
		return err
	}
	defer app.Close()

	results := runChecks(cmd.Context(), app.client, backendChecks)
	failed := printCheckResult(cmd.OutOrStdout(), app.client.BaseURL(), results)
	if failed > 0 {
		return fmt.Errorf("%d of %d backend checks failed", failed, len(results))
	}
	return nil
}

func runChecks(ctx context.Context, c *remote.Client, checks []backendCheck) []checkResult {
	results := make([]checkResult, 0, len(checks))
	for _, p := range checks {
		start := time.Now()
		detail, err := p.run(ctx, c)
		results = append(results, checkResult{name: p.name, detail: detail, took: time.Since(start), err: err})
	}
	return results
}

// printCheckResult prints the check result with colors and returns the
// number of failed checks.
func printCheckResult(out io.Writer, baseURL string, results []checkResult) int {
	cyan := color.New(color.FgCyan, color.Bold)
	green := color.New(color.FgGreen, color.Bold)
	red := color.New(color.FgRed, color.Bold)

	fmt.Fprintln(out)
	cyan.Fprintln(out, "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	cyan.Fprintln(out, "BACKEND CHECK")
	cyan.Fprintln(out, "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Backend:    %s\n", baseURL)
	fmt.Fprintln(out)

	failed := 0
	for _, r := range results {
		if r.err != nil {
			failed++
			red.Fprint(out, "FAIL ")
			fmt.Fprintf(out, "%-30s %-10s %s\n", r.name, remote.Classify(r.err), r.err)
			continue
		}
		green.Fprint(out, "OK   ")
		fmt.Fprintf(out, "%-30s %-10s %s\n", r.name, r.took.Round(time.Millisecond), r.detail)
	}

	fmt.Fprintln(out)
	cyan.Fprintln(out, "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Fprintln(out)
	return failed
}
