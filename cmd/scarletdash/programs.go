package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/scarlet-home/scarletdash/internal/dashboard"
	"github.com/scarlet-home/scarletdash/internal/irrigation"
	"github.com/spf13/cobra"
)

var (
	outputJSON bool
	assumeYes  bool

	programName     string
	programActive   bool
	programFreq     string
	programLower    string
	programUpper    string
	programSessions []string
)

var programsCmd = &cobra.Command{
	Use:     "programs",
	Aliases: []string{"program"},
	Short:   "Manage irrigation programs",
}

var programsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List irrigation programs",
	Args:  cobra.NoArgs,
	RunE:  runProgramsList,
}

var programsShowCmd = &cobra.Command{
	Use:   "show PROGRAM_ID",
	Short: "Show one program and its sessions",
	Args:  cobra.ExactArgs(1),
	RunE:  runProgramsShow,
}

var programsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a program with its initial sessions",
	Example: `  scarletdash programs create --name Lawn --frequency 2 --lower 1 --upper 4 --session 06:00=15
  scarletdash programs create --name Beds --active=false --frequency 1 --lower 0 --upper 5 --session 05:30=10 --session 19:00=10`,
	Args: cobra.NoArgs,
	RunE: runProgramsCreate,
}

var programsUpdateCmd = &cobra.Command{
	Use:     "update PROGRAM_ID",
	Short:   "Update a program; flags not given keep their current value",
	Example: `  scarletdash programs update 7 --frequency 3 --lower 1.5 --upper 4.25`,
	Args:    cobra.ExactArgs(1),
	RunE:    runProgramsUpdate,
}

var programsDeleteCmd = &cobra.Command{
	Use:   "delete PROGRAM_ID",
	Short: "Delete a program and its sessions",
	Args:  cobra.ExactArgs(1),
	RunE:  runProgramsDelete,
}

func init() {
	programsListCmd.Flags().BoolVar(&outputJSON, "json", false, "Print JSON instead of a table")
	programsShowCmd.Flags().BoolVar(&outputJSON, "json", false, "Print JSON instead of a table")

	programsCreateCmd.Flags().StringVar(&programName, "name", "", "Program name (required)")
	programsCreateCmd.Flags().BoolVar(&programActive, "active", true, "Whether the program is active")
	programsCreateCmd.Flags().StringVar(&programFreq, "frequency", "", "Days between runs (required)")
	programsCreateCmd.Flags().StringVar(&programLower, "lower", "", "Lower weather score bound (required)")
	programsCreateCmd.Flags().StringVar(&programUpper, "upper", "", "Upper weather score bound (required)")
	programsCreateCmd.Flags().StringArrayVar(&programSessions, "session", nil, "Initial session as HH:MM=MINUTES (repeatable)")
	programsCreateCmd.MarkFlagRequired("name")

	programsUpdateCmd.Flags().StringVar(&programName, "name", "", "Program name")
	programsUpdateCmd.Flags().BoolVar(&programActive, "active", true, "Whether the program is active")
	programsUpdateCmd.Flags().StringVar(&programFreq, "frequency", "", "Days between runs")
	programsUpdateCmd.Flags().StringVar(&programLower, "lower", "", "Lower weather score bound")
	programsUpdateCmd.Flags().StringVar(&programUpper, "upper", "", "Upper weather score bound")

	programsDeleteCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Do not ask for confirmation")

	programsCmd.AddCommand(programsListCmd, programsShowCmd, programsCreateCmd, programsUpdateCmd, programsDeleteCmd)
	rootCmd.AddCommand(programsCmd)
}

func runProgramsList(cmd *cobra.Command, args []string) error {
	app, err := openCLI()
	if err != nil {
		return err
	}
	defer app.Close()

	list, err := app.list(cmd.Context())
	if err != nil {
		return err
	}
	snap := list.Snapshot()

	if outputJSON {
		return writeJSON(cmd.OutOrStdout(), snap.Programs)
	}
	if len(snap.Programs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No programs.")
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), programTable(snap.Programs))
	return nil
}

func runProgramsShow(cmd *cobra.Command, args []string) error {
	app, err := openCLI()
	if err != nil {
		return err
	}
	defer app.Close()

	list, err := app.list(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	p, ok := list.Snapshot().Program(irrigation.ID(args[0]))
	if !ok {
		return fmt.Errorf("program %s: %w", args[0], dashboard.ErrNotFound)
	}

	if outputJSON {
		return writeJSON(cmd.OutOrStdout(), p)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, programTable([]dashboard.ProgramView{p}))
	if p.Detail == nil || len(p.Detail.Rows) == 0 {
		fmt.Fprintln(out, "No sessions.")
		return nil
	}
	fmt.Fprintln(out, sessionTable(p.Detail.Rows))
	return nil
}

func runProgramsCreate(cmd *cobra.Command, args []string) error {
	form := irrigation.NewProgramForm{
		Name:       programName,
		IsActive:   fmt.Sprint(programActive),
		Frequency:  programFreq,
		LowerScore: programLower,
		UpperScore: programUpper,
	}
	for _, raw := range programSessions {
		start, minutes, ok := strings.Cut(raw, "=")
		if !ok {
			return fmt.Errorf("invalid session %q (expected HH:MM=MINUTES)", raw)
		}
		form.Sessions = append(form.Sessions, irrigation.InitialSessionForm{
			StartTime:       strings.TrimSpace(start),
			DurationMinutes: strings.TrimSpace(minutes),
		})
	}

	app, err := openCLI()
	if err != nil {
		return err
	}
	defer app.Close()

	list := dashboard.NewProgramList(app.client, app.options())
	if err := list.SubmitAddForm(cmd.Context(), form); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created program %q with %d session(s).\n", form.Name, len(form.Sessions))
	return nil
}

func runProgramsUpdate(cmd *cobra.Command, args []string) error {
	app, err := openCLI()
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := cmd.Context()
	id := irrigation.ID(args[0])
	list, err := app.list(ctx)
	if err != nil {
		return err
	}
	form, err := list.Edit(id)
	if err != nil {
		return fmt.Errorf("program %s: %w", id, err)
	}

	flags := cmd.Flags()
	if flags.Changed("name") {
		form.Name = programName
	}
	if flags.Changed("active") {
		form.IsActive = fmt.Sprint(programActive)
	}
	if flags.Changed("frequency") {
		form.Frequency = programFreq
	}
	if flags.Changed("lower") {
		form.LowerScore = programLower
	}
	if flags.Changed("upper") {
		form.UpperScore = programUpper
	}

	if err := list.Save(ctx, id, form); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Updated program %s.\n", id)
	return nil
}

func runProgramsDelete(cmd *cobra.Command, args []string) error {
	app, err := openCLI()
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := cmd.Context()
	id := irrigation.ID(args[0])
	list, err := app.list(ctx)
	if err != nil {
		return err
	}

	err = list.Delete(ctx, id, promptConfirmer(cmd.InOrStdin(), cmd.ErrOrStderr(), assumeYes))
	switch {
	case err == nil:
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted program %s.\n", id)
		return nil
	case errors.Is(err, dashboard.ErrNotConfirmed):
		fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
		return nil
	default:
		return err
	}
}

func programTable(programs []dashboard.ProgramView) string {
	rows := make([][]string, 0, len(programs))
	for _, p := range programs {
		rows = append(rows, []string{
			p.ID, p.Name, p.Active, fmt.Sprint(p.Frequency), p.LowerScore, p.UpperScore, fmt.Sprint(p.Sessions),
		})
	}
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "NAME", "ACTIVE", "FREQUENCY", "LOWER", "UPPER", "SESSIONS").
		Rows(rows...).
		Render()
}

func sessionTable(sessions []dashboard.SessionView) string {
	rows := make([][]string, 0, len(sessions))
	for _, s := range sessions {
		rows = append(rows, []string{s.ID, s.StartTime, s.Zone1, s.Zone2, s.Zone3, s.ZoneConnected})
	}
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers("SESSION", "START", "ZONE 1", "ZONE 2", "ZONE 3", "CONNECTED").
		Rows(rows...).
		Render()
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
