package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/scarlet-home/scarletdash/internal/config"
	"github.com/scarlet-home/scarletdash/internal/dashboard"
	"github.com/scarlet-home/scarletdash/internal/journal"
	"github.com/scarlet-home/scarletdash/internal/metrics"
	"github.com/scarlet-home/scarletdash/internal/server"
	"github.com/scarlet-home/scarletdash/internal/storage"
	"github.com/scarlet-home/scarletdash/internal/systemd"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web dashboard",
	Long:  `Start the web dashboard and the metrics endpoint. Also runs when scarletdash is invoked without a subcommand.`,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Setup logger
	logger := setupLogger(cfg.Logging, os.Stdout)
	log.Logger = logger

	logger.Info().
		Str("version", version).
		Str("config", configPath).
		Str("backend", cfg.Backend.BaseURL).
		Msg("Starting scarletdash")

	// Check for systemd socket activation
	sdListeners, err := systemd.GetListeners()
	if err != nil {
		return fmt.Errorf("failed to get systemd listeners: %w", err)
	}
	if sdListeners.Activated {
		logger.Info().Msg("Running with systemd socket activation")
	}

	// Initialize storage
	store, err := openStorage(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close storage")
		}
	}()

	logger.Info().
		Str("type", cfg.Storage.Type).
		Int("retention_days", cfg.Storage.RetentionDays).
		Msg("Journal storage initialized")

	pruner, err := journal.NewPruner(store.Actions(), cfg.Storage.PruneTime, cfg.Storage.RetentionDays, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize journal pruner: %w", err)
	}
	defer pruner.Stop()

	client, err := newClient(cfg, logger)
	if err != nil {
		return err
	}

	recorder := journal.NewRecorder(store.Actions(), storage.SourceWeb, logger)
	guard := dashboard.NewGuard()
	panel := dashboard.NewPanel(client, dashboard.Options{
		Guard:   guard,
		Journal: recorder,
		Logger:  logger,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Warm the shared panel; each browser loads its own program list
	if err := dashboard.Bootstrap(ctx, nil, panel); err != nil {
		logger.Warn().Err(err).Msg("Initial panel load failed")
	}

	// Initialize Dashboard Server
	var dashboardServer *server.Server
	if cfg.Dashboard.Enabled {
		dashboardServer, err = server.NewServer(server.Config{
			ListenAddr:      fmt.Sprintf("%s:%d", cfg.Dashboard.BindAddress, cfg.Dashboard.Port),
			MaxViews:        cfg.Dashboard.MaxViews,
			RateLimit:       cfg.Dashboard.RateLimit,
			RateLimitWindow: cfg.RateLimitWindow(),
			AllowedOrigins:  cfg.Dashboard.AllowedOrigins,
			SecureCookie:    cfg.Dashboard.SecureCookie,
		}, server.Deps{
			Backend:  client,
			Panel:    panel,
			Guard:    guard,
			Recorder: recorder,
		}, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize dashboard server: %w", err)
		}

		// Use systemd socket-activated listener if available
		if sdListeners.Activated && sdListeners.Dashboard != nil {
			dashboardServer.SetListener(sdListeners.Dashboard)
		}

		if err := dashboardServer.Start(); err != nil {
			return fmt.Errorf("failed to start dashboard server: %w", err)
		}
	}

	// Initialize Metrics Server
	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		metricsAddr := fmt.Sprintf("%s:%d", cfg.Metrics.BindAddress, cfg.Metrics.Port)
		metricsServer = metrics.NewServer(metricsAddr, logger)

		// Use systemd socket-activated listener if available
		if sdListeners.Activated && sdListeners.Metrics != nil {
			metricsServer.SetListener(sdListeners.Metrics)
		}

		if err := metricsServer.Start(); err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
	}

	pruner.Start()
	if every := cfg.ScoreRefresh(); every > 0 {
		go refreshScore(ctx, panel, every, logger)
	}
	if interval := systemd.WatchdogInterval(); interval > 0 {
		go watchdog(ctx, interval, logger)
	}

	logger.Info().Msg("scarletdash startup complete")
	if cfg.Dashboard.Enabled {
		logger.Info().Msgf("Dashboard: http://%s:%d/", cfg.Dashboard.BindAddress, cfg.Dashboard.Port)
	}
	if cfg.Metrics.Enabled {
		logger.Info().Msgf("Metrics: http://%s:%d/metrics", cfg.Metrics.BindAddress, cfg.Metrics.Port)
	}

	// Notify systemd that we're ready to serve requests
	if err := systemd.NotifyReady(); err != nil {
		logger.Warn().Err(err).Msg("Failed to send systemd ready notification")
	} else {
		logger.Debug().Msg("Sent systemd ready notification")
	}

	// Wait for signals (shutdown or refresh)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigChan)

	for sig := range sigChan {
		if sig == syscall.SIGHUP {
			logger.Info().Msg("SIGHUP received, refreshing panel...")
			if err := dashboard.Bootstrap(ctx, nil, panel); err != nil {
				logger.Error().Err(err).Msg("Failed to refresh panel")
			} else {
				logger.Info().Msg("Panel refreshed")
			}
			continue
		}
		logger.Info().Str("signal", sig.String()).Msg("Shutdown signal received, gracefully stopping...")
		break
	}

	// Notify systemd that we're stopping
	if err := systemd.NotifyStopping(); err != nil {
		logger.Warn().Err(err).Msg("Failed to send systemd stopping notification")
	}

	cancel()

	if dashboardServer != nil {
		if err := dashboardServer.Stop(); err != nil {
			logger.Error().Err(err).Msg("Error stopping dashboard server")
		}
	}

	if metricsServer != nil {
		if err := metricsServer.Stop(); err != nil {
			logger.Error().Err(err).Msg("Error stopping metrics server")
		}
	}

	logger.Info().Msg("scarletdash stopped")

	return nil
}

// refreshScore keeps the shared gauge current between page loads.
func refreshScore(ctx context.Context, panel *dashboard.Panel, every time.Duration, logger zerolog.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := panel.RefreshScore(ctx); err != nil {
				logger.Debug().Err(err).Msg("Scheduled score refresh failed")
			}
		}
	}
}

func watchdog(ctx context.Context, interval time.Duration, logger zerolog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := systemd.NotifyWatchdog(); err != nil {
				logger.Warn().Err(err).Msg("Failed to send systemd watchdog notification")
			}
		}
	}
}
