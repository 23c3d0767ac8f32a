// Package api exposes the backtester over HTTP: backtest runs and their
// progress stream, strategy validation, the indicator catalogue and
// equity analysis helpers.
package api

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"backtest-lab/internal/indicator"
	"backtest-lab/internal/observability"
	"backtest-lab/internal/simulation"
)

// Defaults fills fields omitted from a backtest request.
type Defaults struct {
	InitialCapital float64
	CommissionRate float64
	SlippageRate   float64
}

// DefaultDefaults returns 10000 initial capital and 0.1% commission and slippage.
func DefaultDefaults() Defaults {
	cfg := simulation.DefaultConfig()
	return Defaults{
		InitialCapital: cfg.InitialCapital,
		CommissionRate: cfg.CommissionRate,
		SlippageRate:   cfg.SlippageRate,
	}
}

// Options contains configuration for creating a Server.
type Options struct {
	Runner      *simulation.Runner
	Metrics     *observability.Metrics // defaults to observability.DefaultMetrics
	Logger      *log.Logger
	CORSOrigins []string // "*" allows any origin
	Defaults    Defaults
}

// Server serves the HTTP API.
type Server struct {
	runner    *simulation.Runner
	registry  *indicator.Registry
	metrics   *observability.Metrics
	logger    *log.Logger
	origins   map[string]struct{}
	anyOrigin bool
	defaults  Defaults
	upgrader  websocket.Upgrader
}

// NewServer creates an API server around runner.
func NewServer(opts Options) *Server {
	s := &Server{
		runner:   opts.Runner,
		registry: opts.Runner.Compiler().Registry(),
		metrics:  opts.Metrics,
		logger:   opts.Logger,
		origins:  make(map[string]struct{}, len(opts.CORSOrigins)),
		defaults: opts.Defaults,
	}
	if s.metrics == nil {
		s.metrics = observability.DefaultMetrics
	}
	if s.logger == nil {
		s.logger = log.New(io.Discard, "", 0)
	}
	if s.defaults == (Defaults{}) {
		s.defaults = DefaultDefaults()
	}
	for _, o := range opts.CORSOrigins {
		if o == "*" {
			s.anyOrigin = true
		}
		s.origins[o] = struct{}{}
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// Handler returns the routed handler with CORS and request metrics applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})

	// Prometheus metrics
	mux.Handle("GET /metrics", observability.Handler())

	// Backtests
	mux.HandleFunc("POST /api/backtest/run", s.handleRunBacktest)
	mux.HandleFunc("GET /api/backtest/stream", s.handleStreamBacktest)
	mux.HandleFunc("GET /api/backtest/{id}", s.handleGetBacktest)

	// Strategies
	mux.HandleFunc("POST /api/strategy/validate", s.handleValidateStrategy)
	mux.HandleFunc("GET /api/strategy/indicators", s.handleListIndicators)
	mux.HandleFunc("GET /api/strategy/{id}/summary", s.handleStrategySummary)

	// Analysis
	mux.HandleFunc("POST /api/analysis/equity-curve", s.handleEquityCurve)
	mux.HandleFunc("POST /api/analysis/drawdown-periods", s.handleDrawdownPeriods)

	return s.instrument(s.cors(mux))
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Printf("Starting HTTP server on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Printf("Shutting down HTTP server")
		return srv.Shutdown(shutdownCtx)
	}
}
