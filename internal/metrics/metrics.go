package metrics

import (
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	// Backend metrics
	BackendRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scarletdash_backend_requests_total",
			Help: "Total requests sent to the scarlet backend",
		},
		[]string{"endpoint", "method", "outcome"},
	)

	BackendRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scarletdash_backend_request_duration_seconds",
			Help:    "Backend request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"endpoint"},
	)

	// Dashboard metrics
	ActionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scarletdash_actions_total",
			Help: "Dashboard actions by outcome",
		},
		[]string{"action", "outcome"},
	)

	InFlightRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scarletdash_inflight_rejections_total",
			Help: "Actions rejected because the same action was already in flight",
		},
		[]string{"action"},
	)

	StaleReloadsDiscarded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scarletdash_stale_reloads_discarded_total",
			Help: "Program list responses discarded because a newer reload had started",
		},
	)

	OpenViews = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "scarletdash_open_views",
			Help: "Number of browser dashboard views held in memory",
		},
	)

	WeatherScore = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "scarletdash_weather_score",
			Help: "Last weather score fetched from the backend",
		},
	)

	// Journal metrics
	JournalEntriesPruned = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scarletdash_journal_entries_pruned_total",
			Help: "Journal entries removed by the retention job",
		},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(
		BackendRequestsTotal,
		BackendRequestDuration,
		ActionsTotal,
		InFlightRejections,
		StaleReloadsDiscarded,
		OpenViews,
		WeatherScore,
		JournalEntriesPruned,
	)
}

// Server is the metrics HTTP server
type Server struct {
	server   *http.Server
	logger   zerolog.Logger
	listener net.Listener // Optional pre-created listener (for systemd socket activation)
}

// NewServer creates a new metrics server
func NewServer(addr string, logger zerolog.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return &Server{
		server: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
		logger: logger.With().Str("component", "metrics").Logger(),
	}
}

// SetListener sets a pre-created listener for systemd socket activation
func (s *Server) SetListener(ln net.Listener) {
	s.listener = ln
}

// Handler exposes the mux, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the metrics server
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("Starting metrics server")
	go func() {
		var err error
		if s.listener != nil {
			s.logger.Debug().Msg("Using systemd socket-activated metrics listener")
			err = s.server.Serve(s.listener)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("Metrics server error")
		}
	}()
	return nil
}

// Stop stops the metrics server
func (s *Server) Stop() error {
	s.logger.Info().Msg("Stopping metrics server")
	return s.server.Close()
}
