package main

import (
	"fmt"
	"strings"

	"github.com/scarlet-home/scarletdash/internal/dashboard"
	"github.com/spf13/cobra"
)

var (
	runForm dashboard.RunForm
	runStop bool
)

var blindsCmd = &cobra.Command{
	Use:     "blinds LEFT RIGHT",
	Short:   "Move the blinds (up, down, or nostate for each side)",
	Example: `  scarletdash blinds up nostate`,
	Args:    cobra.ExactArgs(2),
	RunE:    runBlinds,
}

var automationCmd = &cobra.Command{
	Use:   "automation [blinds|irrigation] [on|off]",
	Short: "Show or set the automation toggles",
	Example: `  scarletdash automation
  scarletdash automation irrigation off`,
	Args: cobra.MatchAll(cobra.RangeArgs(0, 2), func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			return fmt.Errorf("expected both a toggle and a state")
		}
		return nil
	}),
	RunE: runAutomation,
}

var irrigateCmd = &cobra.Command{
	Use:     "irrigate",
	Short:   "Start or stop a manual irrigation run",
	Example: `  scarletdash irrigate --zone1 10 --zone3 5`,
	Args:    cobra.NoArgs,
	RunE:    runIrrigate,
}

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Show the current weather score",
	Args:  cobra.NoArgs,
	RunE:  runScore,
}

func init() {
	irrigateCmd.Flags().StringVar(&runForm.Zone1, "zone1", "", "Zone 1 minutes")
	irrigateCmd.Flags().StringVar(&runForm.Zone2, "zone2", "", "Zone 2 minutes")
	irrigateCmd.Flags().StringVar(&runForm.Zone3, "zone3", "", "Zone 3 minutes")
	irrigateCmd.Flags().StringVar(&runForm.ZoneConnected, "connected", "", "Connected zone minutes")
	irrigateCmd.Flags().BoolVar(&runStop, "off", false, "Stop irrigation instead of starting it")

	rootCmd.AddCommand(blindsCmd, automationCmd, irrigateCmd, scoreCmd)
}

func (c *cli) panel() *dashboard.Panel {
	return dashboard.NewPanel(c.client, c.options())
}

func runBlinds(cmd *cobra.Command, args []string) error {
	app, err := openCLI()
	if err != nil {
		return err
	}
	defer app.Close()

	panel := app.panel()
	err = panel.SendBlinds(cmd.Context(), args[0], args[1])
	if status := panel.State().BlindsStatus; status != "" {
		fmt.Fprintln(cmd.OutOrStdout(), status)
	}
	return err
}

func runAutomation(cmd *cobra.Command, args []string) error {
	app, err := openCLI()
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := cmd.Context()
	panel := app.panel()

	if len(args) == 2 {
		enabled, err := parseOnOff(args[1])
		if err != nil {
			return err
		}
		switch strings.ToLower(args[0]) {
		case "blinds":
			err = panel.SetBlindsAutomation(ctx, enabled)
		case "irrigation":
			err = panel.SetIrrigationAutomation(ctx, enabled)
		default:
			return fmt.Errorf("unknown automation toggle: %s (must be blinds or irrigation)", args[0])
		}
		if err != nil {
			return err
		}
	}

	if err := panel.LoadAutomation(ctx); err != nil {
		return err
	}
	state := panel.State()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Blinds automation:     %s\n", onOff(state.BlindsAutomation))
	fmt.Fprintf(out, "Irrigation automation: %s\n", onOff(state.IrrigationAutomation))
	return nil
}

func runIrrigate(cmd *cobra.Command, args []string) error {
	app, err := openCLI()
	if err != nil {
		return err
	}
	defer app.Close()

	form := runForm
	form.Active = !runStop

	panel := app.panel()
	err = panel.RunIrrigation(cmd.Context(), form)
	if status := panel.State().RunStatus; status != "" {
		fmt.Fprintln(cmd.OutOrStdout(), status)
	}
	return err
}

func runScore(cmd *cobra.Command, args []string) error {
	app, err := openCLI()
	if err != nil {
		return err
	}
	defer app.Close()

	panel := app.panel()
	if err := panel.RefreshScore(cmd.Context()); err != nil {
		fmt.Fprintln(cmd.OutOrStdout(), dashboard.StatusScoreFailed)
		return err
	}
	state := panel.State()
	fmt.Fprintf(cmd.OutOrStdout(), "%s / %.0f  %s\n", state.ScoreText, dashboard.ScoreMax, scoreBar(state.ScoreRatio, 20))
	return nil
}

func parseOnOff(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "true", "1", "yes":
		return true, nil
	case "off", "false", "0", "no":
		return false, nil
	default:
		return false, fmt.Errorf("invalid state: %s (must be on or off)", s)
	}
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func scoreBar(ratio float64, width int) string {
	filled := int(ratio*float64(width) + 0.5)
	if filled < 0 {
		filled = 0
	}
	if filled > width {
		filled = width
	}
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", width-filled) + "]"
}
