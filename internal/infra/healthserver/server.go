// Package healthserver exposes the monitor daemon's own health over HTTP.
package healthserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pptgen/internal/connectivity"
	"pptgen/internal/observability/tracing"
)

// StatusProvider reports the current backend connectivity snapshot.
// *connectivity.Monitor satisfies it.
type StatusProvider interface {
	Status() connectivity.Status
}

// Server provides HTTP endpoints for health checks.
//
//   - /health: liveness probe (always 200 OK)
//   - /health/ready: 200 once SetReady(true) was called and the backend is healthy, 503 otherwise
//   - /health/connectivity: the connectivity snapshot as JSON
//   - /metrics: Prometheus metrics, when a gatherer is configured
//
// Example usage:
//
//	srv := healthserver.New(":9091", monitor, logger)
//	go func() {
//	    if err := srv.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
//	        logger.Error("health server failed", slog.Any("error", err))
//	    }
//	}()
//	srv.SetReady(true)
type Server struct {
	addr     string
	status   StatusProvider
	gatherer prometheus.Gatherer
	logger   *slog.Logger
	isReady  atomic.Bool
	server   *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics serves gatherer on /metrics.
func WithMetrics(gatherer prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = gatherer }
}

// healthResponse is the JSON response format for liveness and readiness.
type healthResponse struct {
	Status string `json:"status"`
}

// New creates a health server that is not ready and not started.
func New(addr string, status StatusProvider, logger *slog.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		addr:   addr,
		status: status,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the server's routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleLiveness)
	mux.HandleFunc("GET /health/ready", s.handleReadiness)
	mux.HandleFunc("GET /health/connectivity", s.handleConnectivity)
	if s.gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return tracing.Middleware(mux)
}

// Start serves until ctx is cancelled, then shuts down with a 5 second grace period.
// It returns http.ErrServerClosed after a graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.logger.Error("health server listen failed", slog.String("addr", s.addr), slog.Any("error", err))
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Start on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.server = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("health server starting", slog.String("addr", ln.Addr().String()))
		errChan <- s.server.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("health server shutting down")
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("health server shutdown failed", slog.Any("error", err))
			return err
		}
		s.logger.Info("health server stopped")
		return http.ErrServerClosed

	case err := <-errChan:
		if !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("health server failed", slog.Any("error", err))
		}
		return err
	}
}

// SetReady sets the readiness state reported by /health/ready.
func (s *Server) SetReady(ready bool) {
	s.isReady.Store(ready)
	s.logger.Info("health server readiness changed", slog.Bool("ready", ready))
}

func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

// handleReadiness fails while the daemon is starting or the backend has been
// unreachable for longer than the monitor's offline threshold.
func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	switch {
	case !s.isReady.Load():
		s.writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "not ready"})
	case s.status != nil && !s.status.Status().IsHealthy:
		s.writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "backend unreachable"})
	default:
		s.writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
	}
}

func (s *Server) handleConnectivity(w http.ResponseWriter, r *http.Request) {
	if s.status == nil {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "connectivity monitor not initialized",
		})
		return
	}
	s.writeJSON(w, http.StatusOK, s.status.Status())
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode health response", slog.Any("error", err))
	}
}
