// Package api serves the bot's operational HTTP endpoints: liveness, readiness,
// a short status document and Prometheus metrics.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"salonbook/internal/config"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Check reports whether one dependency is usable.
type Check func(ctx context.Context) error

// SessionCounter reports how many owners are signed in.
type SessionCounter interface {
	CountSessions(ctx context.Context) (int, error)
}

type HTTPServer struct {
	app      config.AppConfig
	checks   map[string]Check
	sessions SessionCounter
	limiter  *rateLimiter
	logger   *zerolog.Logger
	started  time.Time
	mux      *http.ServeMux
	server   *http.Server
}

type Option func(*HTTPServer)

// WithCheck adds a dependency probed by /readyz.
func WithCheck(name string, check Check) Option {
	return func(s *HTTPServer) { s.checks[name] = check }
}

func WithSessions(counter SessionCounter) Option {
	return func(s *HTTPServer) { s.sessions = counter }
}

// WithMetrics exposes the default Prometheus registry on /metrics.
func WithMetrics() Option {
	return func(s *HTTPServer) { s.mux.Handle("/metrics", promhttp.Handler()) }
}

func NewHTTPServer(port int, app config.AppConfig, logger *zerolog.Logger, opts ...Option) *HTTPServer {
	mux := http.NewServeMux()
	srv := &HTTPServer{
		app:     app,
		checks:  make(map[string]Check),
		limiter: newRateLimiter(defaultRPS, defaultBurst),
		logger:  logger,
		started: time.Now(),
		mux:     mux,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      15 * time.Second,
		},
	}

	mux.HandleFunc("/healthz", srv.handleHealth)
	mux.HandleFunc("/readyz", srv.handleReady)
	mux.HandleFunc("/api/v1/status", srv.handleStatus)
	for _, opt := range opts {
		opt(srv)
	}

	srv.server.Handler = srv.loggingMiddleware(srv.limiter.Wrap(mux))
	return srv
}

func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP server listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleReady(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := http.StatusOK
	results := make(map[string]string, len(names))
	for _, name := range names {
		if err := s.checks[name](ctx); err != nil {
			s.logger.Warn().Err(err).Str("check", name).Msg("Readiness check failed")
			results[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}
	writeJSON(w, status, map[string]any{"checks": results})
}

func (s *HTTPServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	resp := map[string]any{
		"name":        s.app.Name,
		"version":     s.app.Version,
		"environment": s.app.Environment,
		"uptime":      time.Since(s.started).Round(time.Second).String(),
	}
	if s.sessions != nil {
		n, err := s.sessions.CountSessions(r.Context())
		if err != nil {
			s.logger.Error().Err(err).Msg("Failed to count sessions")
			writeError(w, http.StatusInternalServerError, "sessions unavailable")
			return
		}
		resp["sessions"] = n
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
