package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/scarlet-home/scarletdash/internal/config"
	"github.com/scarlet-home/scarletdash/internal/dashboard"
	"github.com/scarlet-home/scarletdash/internal/irrigation"
	"github.com/scarlet-home/scarletdash/internal/journal"
	"github.com/scarlet-home/scarletdash/internal/remote"
	"github.com/scarlet-home/scarletdash/internal/storage"
	"github.com/scarlet-home/scarletdash/internal/storage/memory"
	"github.com/scarlet-home/scarletdash/internal/storage/redis"
)

func openStorage(cfg config.StorageConfig) (storage.Store, error) {
	switch cfg.Type {
	case "", "memory":
		return memory.New(), nil
	case "redis":
		return redis.Open(cfg.Redis)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s (must be memory or redis)", cfg.Type)
	}
}

// setupLogger configures the logger based on configuration
func setupLogger(cfg config.LoggingConfig, out io.Writer) zerolog.Logger {
	// Set log level
	level := zerolog.InfoLevel
	switch cfg.Level {
	case "debug":
		level = zerolog.DebugLevel
	case "info":
		level = zerolog.InfoLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zerolog.SetGlobalLevel(level)

	// Set output format
	if cfg.Format == "text" {
		return zerolog.New(zerolog.ConsoleWriter{Out: out}).With().Timestamp().Logger()
	}

	// Default to JSON
	return zerolog.New(out).With().Timestamp().Logger()
}

func newClient(cfg *config.Config, logger zerolog.Logger) (*remote.Client, error) {
	client, err := remote.New(remote.Config{
		BaseURL:   cfg.Backend.BaseURL,
		Timeout:   cfg.BackendTimeout(),
		UserAgent: cfg.Backend.UserAgent,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize backend client: %w", err)
	}
	return client, nil
}

// cli is what a one-shot subcommand needs: the backend, the journal and
// a quiet logger on stderr.
type cli struct {
	cfg      *config.Config
	logger   zerolog.Logger
	client   *remote.Client
	store    storage.Store
	recorder *journal.Recorder
}

func openCLI() (*cli, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	// Create a quiet logger for command mode
	logger := zerolog.New(os.Stderr).Level(zerolog.WarnLevel).With().Timestamp().Logger()

	client, err := newClient(cfg, logger)
	if err != nil {
		return nil, err
	}

	store, err := openStorage(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	return &cli{
		cfg:      cfg,
		logger:   logger,
		client:   client,
		store:    store,
		recorder: journal.NewRecorder(store.Actions(), storage.SourceCLI, logger),
	}, nil
}

func (c *cli) Close() {
	if err := c.store.Close(); err != nil {
		c.logger.Error().Err(err).Msg("Failed to close storage")
	}
}

func (c *cli) options() dashboard.Options {
	return dashboard.Options{Journal: c.recorder, Logger: c.logger}
}

// list returns a loaded program list.
func (c *cli) list(ctx context.Context, expand ...string) (*dashboard.ProgramList, error) {
	list := dashboard.NewProgramList(c.client, c.options())
	ids := make([]irrigation.ID, 0, len(expand))
	for _, id := range expand {
		ids = append(ids, irrigation.ID(id))
	}
	if err := list.Load(ctx, ids...); err != nil {
		return nil, err
	}
	return list, nil
}

// promptConfirmer asks on the terminal unless assumeYes is set.
func promptConfirmer(in io.Reader, out io.Writer, assumeYes bool) dashboard.Confirmer {
	if assumeYes {
		return dashboard.Confirmed
	}
	reader := bufio.NewReader(in)
	return dashboard.ConfirmFunc(func(ctx context.Context, prompt string) (bool, error) {
		fmt.Fprintf(out, "%s [y/N] ", prompt)
		answer, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return false, err
		}
		switch strings.ToLower(strings.TrimSpace(answer)) {
		case "y", "yes":
			return true, nil
		default:
			return false, nil
		}
	})
}
