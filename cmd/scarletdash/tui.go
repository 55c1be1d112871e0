package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/scarlet-home/scarletdash/internal/config"
	"github.com/scarlet-home/scarletdash/internal/dashboard"
	"github.com/scarlet-home/scarletdash/internal/journal"
	"github.com/scarlet-home/scarletdash/internal/storage"
	"github.com/scarlet-home/scarletdash/internal/tui"
	"github.com/spf13/cobra"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the terminal dashboard",
	Long: `Open the dashboard in the terminal. Logs go to logging.file since the
terminal belongs to the interface.`,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logFile, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer logFile.Close()

	logger := setupLogger(cfg.Logging, logFile)
	logger.Info().Str("version", version).Str("backend", cfg.Backend.BaseURL).Msg("Starting terminal dashboard")

	store, err := openStorage(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close storage")
		}
	}()

	client, err := newClient(cfg, logger)
	if err != nil {
		return err
	}

	opts := dashboard.Options{
		Guard:   dashboard.NewGuard(),
		Journal: journal.NewRecorder(store.Actions(), storage.SourceTUI, logger),
		Logger:  logger,
	}
	list := dashboard.NewProgramList(client, opts)
	panel := dashboard.NewPanel(client, opts)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	model := tui.NewModel(ctx, list, panel, tui.Options{
		ScoreRefresh: cfg.ScoreRefresh(),
		Logger:       logger,
	})
	if _, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
		return fmt.Errorf("terminal dashboard failed: %w", err)
	}

	logger.Info().Msg("Terminal dashboard closed")
	return nil
}
