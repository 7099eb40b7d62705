package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"snapbench/internal/bench"
	"snapbench/internal/collectors"
	"snapbench/internal/config"
	"snapbench/internal/utils"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// RequestIDHeader carries the caller supplied invocation identity.
const RequestIDHeader = "X-Request-Id"

// maxBodyBytes bounds the JSON body read from POST invocations.
const maxBodyBytes = 64 << 10

// Server is the main server struct
type Server struct {
	config     *config.Config
	logger     *zap.Logger
	httpServer *http.Server
	registry   *prometheus.Registry
	collectors []collectors.Collector
	benchmark  *bench.Benchmark
}

// ServerParams is the parameters for the server
type ServerParams struct {
	fx.In

	Config    *config.Config
	Logger    *zap.Logger
	Executor  utils.CommandExecutor
	Benchmark *bench.Benchmark
	Metrics   *collectors.BenchmarkCollector
}

// New creates a new server
// Args:
// - params: ServerParams
// Returns:
// - *Server: new Server instance
func New(params ServerParams) *Server {
	registry := prometheus.NewRegistry()

	deps := &collectors.CollectorDependencies{
		Executor: params.Executor,
		Logger:   params.Logger,
		Config:   params.Config,
	}

	processCollector := collectors.NewProcessCollector(deps)

	registry.MustRegister(params.Metrics)
	registry.MustRegister(processCollector)

	s := &Server{
		config:   params.Config,
		logger:   params.Logger,
		registry: registry,
		collectors: []collectors.Collector{
			params.Metrics,
			processCollector,
		},
		benchmark: params.Benchmark,
	}

	mux := http.NewServeMux()

	// Benchmark endpoints
	mux.HandleFunc("/", s.handleInvoke)
	mux.HandleFunc("/invoke", s.handleInvoke)

	// Prometheus metrics endpoint
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		status, code := "healthy", http.StatusOK
		if !s.benchmark.Info().Populated {
			status, code = "unpopulated", http.StatusServiceUnavailable
		}
		writeJSON(w, code, map[string]string{
			"status":    status,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	// Info endpoint
	mux.HandleFunc("/info", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, struct {
			Service            string `json:"service"`
			Collectors         int    `json:"collectors"`
			CollectionInterval string `json:"collection_interval"`
			bench.Info
		}{
			Service:            "snapbench",
			Collectors:         len(s.collectors),
			CollectionInterval: params.Config.Metrics.CollectionInterval.String(),
			Info:               s.benchmark.Info(),
		})
	})

	s.httpServer = &http.Server{
		Addr:         params.Config.Server.Port,
		Handler:      mux,
		ReadTimeout:  params.Config.Server.ReadTimeout.Duration,
		WriteTimeout: params.Config.Server.WriteTimeout.Duration,
	}

	return s
}

// Handler returns the HTTP handler, used by tests
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// handleInvoke runs one benchmark invocation
// Query parameters:
// - incrementLimit: optional non-negative busy loop count, default 0
// POST body, used when the query parameter is absent:
// - {"IncrementLimit": n}
func (s *Server) handleInvoke(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/invoke" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		w.Header().Set("Allow", "GET, POST")
		writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}

	var body []byte
	if r.Method == http.MethodPost {
		var err error
		body, err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}

	limit, err := bench.ResolveIncrementLimit(r.URL.Query().Get("incrementLimit"), body)
	if err != nil {
		s.logger.Warn("Rejected invocation", zap.Error(err))
		writeError(w, http.StatusBadRequest, err)
		return
	}

	result, err := s.benchmark.Invoke(r.Context(), bench.Invocation{
		IncrementLimit: limit,
		RequestID:      r.Header.Get(RequestIDHeader),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

// Start starts the server
func (s *Server) Start(ctx context.Context) error {
	// Start metric collection in background
	go s.startMetricCollection(ctx)

	s.logger.Info("Starting HTTP server",
		zap.String("addr", s.httpServer.Addr),
		zap.Duration("read_timeout", s.config.Server.ReadTimeout.Duration),
		zap.Duration("write_timeout", s.config.Server.WriteTimeout.Duration),
	)

	// Start HTTP server
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		s.logger.Error("HTTP server failed", zap.Error(err))
		return err
	}

	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.Server.ShutdownTimeout.Duration)
	defer cancel()

	return s.httpServer.Shutdown(shutdownCtx)
}

// startMetricCollection starts the metric collection
// It collects metrics at the specified interval
func (s *Server) startMetricCollection(ctx context.Context) {
	ticker := time.NewTicker(s.config.Metrics.CollectionInterval.Duration)
	defer ticker.Stop()

	s.logger.Info("Starting metric collection",
		zap.Duration("interval", s.config.Metrics.CollectionInterval.Duration),
		zap.Int("collectors", len(s.collectors)),
	)

	// Collect metrics immediately on startup
	s.collectAllMetrics(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Stopping metric collection")
			return
		case <-ticker.C:
			s.collectAllMetrics(ctx)
		}
	}
}

// collectAllMetrics calls CollectMetrics on every collector
func (s *Server) collectAllMetrics(ctx context.Context) {
	start := time.Now()

	// Create a timeout context for metric collection
	collectCtx, cancel := context.WithTimeout(ctx, s.config.Metrics.CommandTimeout.Duration)
	defer cancel()

	for _, collector := range s.collectors {
		if err := collector.CollectMetrics(collectCtx); err != nil {
			s.logger.Error("Failed to collect metrics",
				zap.String("collector", collector.Name()),
				zap.Error(err),
			)
		}
	}

	s.logger.Debug("Metric collection completed",
		zap.Duration("duration", time.Since(start)),
		zap.Int("collectors", len(s.collectors)),
	)
}

// ServerLifecycle manages the server lifecycle with fx
type ServerLifecycle struct {
	server *Server
	logger *zap.Logger
	cancel context.CancelFunc
}

func NewServerLifecycle(server *Server, logger *zap.Logger) *ServerLifecycle {
	return &ServerLifecycle{
		server: server,
		logger: logger,
	}
}

// Start serves in the background. The fx start context ends once startup
// completes, so the collection loop runs on its own context.
func (sl *ServerLifecycle) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(context.Background())
	sl.cancel = cancel

	go func() {
		if err := sl.server.Start(runCtx); err != nil {
			sl.logger.Error("Server startup failed", zap.Error(err))
		}
	}()
	return nil
}

func (sl *ServerLifecycle) Stop(ctx context.Context) error {
	if sl.cancel != nil {
		sl.cancel()
	}
	return sl.server.Stop(ctx)
}
