// Package server is the browser dashboard: server-rendered pages backed by
// one program list per browser and a shared control panel.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/scarlet-home/scarletdash/internal/dashboard"
	"github.com/scarlet-home/scarletdash/internal/journal"
	"github.com/scarlet-home/scarletdash/web"
)

// Config holds the dashboard server configuration.
type Config struct {
	ListenAddr      string
	MaxViews        int
	RateLimit       int
	RateLimitWindow time.Duration
	AllowedOrigins  []string
	// SecureCookie marks the view cookie Secure; set when served over TLS.
	SecureCookie bool
}

// Deps are the collaborators shared by every browser view.
type Deps struct {
	Backend  dashboard.ProgramBackend
	Panel    *dashboard.Panel
	Guard    *dashboard.Guard
	Recorder *journal.Recorder
}

// Server represents the dashboard HTTP server.
type Server struct {
	config   Config
	panel    *dashboard.Panel
	recorder *journal.Recorder
	views    *viewCache
	limiter  *rateLimiter
	engine   *gin.Engine
	server   *http.Server
	listener net.Listener // Optional pre-created listener (for systemd socket activation)
	logger   zerolog.Logger
}

// NewServer creates the dashboard server.
func NewServer(cfg Config, deps Deps, logger zerolog.Logger) (*Server, error) {
	logger = logger.With().Str("component", "web").Logger()

	rateLimit := cfg.RateLimit
	if rateLimit == 0 {
		rateLimit = 120
	}
	rateLimitWindow := cfg.RateLimitWindow
	if rateLimitWindow == 0 {
		rateLimitWindow = time.Minute
	}

	views, err := newViewCache(cfg.MaxViews, deps.Backend, dashboard.Options{
		Guard:   deps.Guard,
		Journal: deps.Recorder,
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create view cache: %w", err)
	}

	tmpl, err := web.Templates()
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.SetHTMLTemplate(tmpl)

	s := &Server{
		config:   cfg,
		panel:    deps.Panel,
		recorder: deps.Recorder,
		views:    views,
		limiter:  newRateLimiter(rateLimit, rateLimitWindow),
		engine:   engine,
		logger:   logger,
	}

	if err := s.setupRoutes(); err != nil {
		return nil, err
	}

	s.server = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

func (s *Server) setupRoutes() error {
	r := s.engine

	if len(s.config.AllowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     s.config.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}
	r.Use(loggingMiddleware(s.logger))

	if err := web.SetupStaticRoutes(r); err != nil {
		return fmt.Errorf("failed to mount static assets: %w", err)
	}
	r.GET("/health", s.handleHealth)

	ui := r.Group("/", rateLimitMiddleware(s.limiter), s.withView)
	ui.GET("/", s.handleIndex)
	ui.POST("/programs/reload", s.handleReload)
	ui.POST("/programs/:id/toggle", s.handleToggle)
	ui.POST("/programs/:id/edit", s.handleEdit)
	ui.POST("/programs/:id/save", s.handleSave)
	ui.POST("/programs/:id/cancel", s.handleCancel)
	ui.GET("/programs/:id/delete", s.handleDeleteConfirm)
	ui.POST("/programs/:id/delete", s.handleDelete)

	ui.POST("/add-form/toggle", s.handleAddFormToggle)
	ui.POST("/add-form/sessions", s.handleAddFormSessions)
	ui.POST("/add-form/submit", s.handleAddFormSubmit)

	ui.POST("/programs/:id/drafts", s.handleAddDraft)
	ui.POST("/programs/:id/drafts/:key/create", s.handleCreateDraft)
	ui.POST("/programs/:id/drafts/:key/cancel", s.handleCancelDraft)
	ui.POST("/programs/:id/sessions/:sid/edit", s.handleEditSession)
	ui.POST("/programs/:id/sessions/:sid/save", s.handleSaveSession)
	ui.POST("/programs/:id/sessions/:sid/cancel", s.handleCancelSession)
	ui.GET("/programs/:id/sessions/:sid/delete", s.handleDeleteSessionConfirm)
	ui.POST("/programs/:id/sessions/:sid/delete", s.handleDeleteSession)

	ui.POST("/blinds", s.handleBlinds)
	ui.POST("/blinds/automation", s.handleBlindsAutomation)
	ui.POST("/irrigation/run", s.handleRunIrrigation)
	ui.POST("/irrigation/automation", s.handleIrrigationAutomation)
	ui.POST("/score/refresh", s.handleScoreRefresh)

	ui.GET("/api/state", s.handleState)
	ui.GET("/api/history", s.handleHistory)
	return nil
}

// SetListener sets a pre-created listener for systemd socket activation.
func (s *Server) SetListener(ln net.Listener) {
	s.listener = ln
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start starts the dashboard HTTP server.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.config.ListenAddr).Msg("Starting dashboard server")

	go func() {
		var err error
		if s.listener != nil {
			s.logger.Debug().Msg("Using systemd socket-activated dashboard listener")
			err = s.server.Serve(s.listener)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("Dashboard server error")
		}
	}()
	return nil
}

// Stop gracefully stops the dashboard HTTP server.
func (s *Server) Stop() error {
	s.logger.Info().Msg("Stopping dashboard server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("dashboard server shutdown: %w", err)
	}
	s.views.purge()
	return nil
}
