package main

import (
	"errors"
	"fmt"

	"github.com/scarlet-home/scarletdash/internal/dashboard"
	"github.com/scarlet-home/scarletdash/internal/irrigation"
	"github.com/spf13/cobra"
)

var sessionValues irrigation.SessionForm

var sessionsCmd = &cobra.Command{
	Use:     "sessions",
	Aliases: []string{"session"},
	Short:   "Manage the sessions of an irrigation program",
}

var sessionsAddCmd = &cobra.Command{
	Use:     "add PROGRAM_ID",
	Short:   "Add a session to a program",
	Long:    `Add a session to a program. The start time is required; zone durations left out are sent as 0.`,
	Example: `  scarletdash sessions add 7 --start 06:00 --zone1 15 --zone2 10`,
	Args:    cobra.ExactArgs(1),
	RunE:    runSessionsAdd,
}

var sessionsUpdateCmd = &cobra.Command{
	Use:     "update PROGRAM_ID SESSION_ID",
	Short:   "Update a session; flags not given keep their current value",
	Example: `  scarletdash sessions update 7 31 --zone3 5`,
	Args:    cobra.ExactArgs(2),
	RunE:    runSessionsUpdate,
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete PROGRAM_ID SESSION_ID",
	Short: "Delete a session",
	Args:  cobra.ExactArgs(2),
	RunE:  runSessionsDelete,
}

func init() {
	for _, c := range []*cobra.Command{sessionsAddCmd, sessionsUpdateCmd} {
		c.Flags().StringVar(&sessionValues.StartTime, "start", "", "Start time (HH:MM)")
		c.Flags().StringVar(&sessionValues.Zone1, "zone1", "", "Zone 1 duration")
		c.Flags().StringVar(&sessionValues.Zone2, "zone2", "", "Zone 2 duration")
		c.Flags().StringVar(&sessionValues.Zone3, "zone3", "", "Zone 3 duration")
		c.Flags().StringVar(&sessionValues.ZoneConnected, "connected", "", "Connected zone duration")
	}
	sessionsAddCmd.MarkFlagRequired("start")
	sessionsDeleteCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Do not ask for confirmation")

	sessionsCmd.AddCommand(sessionsAddCmd, sessionsUpdateCmd, sessionsDeleteCmd)
	rootCmd.AddCommand(sessionsCmd)
}

func runSessionsAdd(cmd *cobra.Command, args []string) error {
	app, err := openCLI()
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := cmd.Context()
	programID := irrigation.ID(args[0])
	list, err := app.list(ctx, args[0])
	if err != nil {
		return err
	}
	key, err := list.AddSessionDraft(programID)
	if err != nil {
		return fmt.Errorf("program %s: %w", programID, err)
	}
	if err := list.CreateSession(ctx, programID, key, sessionValues); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Added session at %s to program %s.\n", irrigation.FormatTimeOfDay(sessionValues.StartTime), programID)
	return nil
}

func runSessionsUpdate(cmd *cobra.Command, args []string) error {
	app, err := openCLI()
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := cmd.Context()
	programID, sessionID := irrigation.ID(args[0]), irrigation.ID(args[1])
	list, err := app.list(ctx, args[0])
	if err != nil {
		return err
	}
	form, err := list.EditSession(programID, sessionID)
	if err != nil {
		return fmt.Errorf("session %s of program %s: %w", sessionID, programID, err)
	}

	flags := cmd.Flags()
	if flags.Changed("start") {
		form.StartTime = sessionValues.StartTime
	}
	if flags.Changed("zone1") {
		form.Zone1 = sessionValues.Zone1
	}
	if flags.Changed("zone2") {
		form.Zone2 = sessionValues.Zone2
	}
	if flags.Changed("zone3") {
		form.Zone3 = sessionValues.Zone3
	}
	if flags.Changed("connected") {
		form.ZoneConnected = sessionValues.ZoneConnected
	}

	if err := list.SaveSession(ctx, programID, sessionID, form); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Updated session %s.\n", sessionID)
	return nil
}

func runSessionsDelete(cmd *cobra.Command, args []string) error {
	app, err := openCLI()
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := cmd.Context()
	programID, sessionID := irrigation.ID(args[0]), irrigation.ID(args[1])
	list, err := app.list(ctx, args[0])
	if err != nil {
		return err
	}

	err = list.DeleteSession(ctx, programID, sessionID, promptConfirmer(cmd.InOrStdin(), cmd.ErrOrStderr(), assumeYes))
	switch {
	case err == nil:
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted session %s.\n", sessionID)
		return nil
	case errors.Is(err, dashboard.ErrNotConfirmed):
		fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
		return nil
	default:
		return err
	}
}
