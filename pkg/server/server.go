// Package server exposes a scenario catalog over HTTP for external runners.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/labdesc/internal/version"
	"github.com/ethpandaops/labdesc/pkg/catalog"
	"github.com/ethpandaops/labdesc/pkg/middleware"
	"github.com/ethpandaops/labdesc/pkg/observability"
	"github.com/ethpandaops/labdesc/pkg/types"
)

const shutdownTimeout = 10 * time.Second

// Catalog is the read side of catalog.Registry the server needs.
type Catalog interface {
	Summaries() []types.ScenarioSummary
	Get(name string) (catalog.Entry, bool)
	Count() int
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string    `json:"status"`
	Version   string    `json:"version"`
	Scenarios int       `json:"scenarios"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Options configures optional routes.
type Options struct {
	MetricsEnabled bool
	// RateLimiter guards the scenario API when set.
	RateLimiter *middleware.RateLimiter
}

// Server serves the catalog.
type Server struct {
	log     logrus.FieldLogger
	catalog Catalog
	opts    Options
}

// New creates a catalog server.
func New(log logrus.FieldLogger, c Catalog, opts Options) *Server {
	return &Server{
		log:     log.WithField("component", "server"),
		catalog: c,
		opts:    opts,
	}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(observability.RequestLogger(s.log))

	r.Get("/health", s.handleHealth)

	if s.opts.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/api/v1/scenarios", func(r chi.Router) {
		if s.opts.RateLimiter != nil {
			r.Use(s.opts.RateLimiter.Middleware)
		}

		r.Get("/", s.handleListScenarios)
		r.Get("/{name}", s.handleGetScenario)
	})

	return r
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		s.log.WithField("addr", addr).Info("Catalog server listening")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}

		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serving on %s: %w", addr, err)
		}

		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}

	s.log.Info("Catalog server stopped")

	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Version:   version.Version,
		Scenarios: s.catalog.Count(),
		Timestamp: time.Now().UTC(),
	})
}

func (s *Server) handleListScenarios(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.catalog.Summaries())
}

func (s *Server) handleGetScenario(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	entry, ok := s.catalog.Get(name)
	if !ok {
		observability.LoggerFromContext(r.Context(), s.log).
			WithField("scenario", name).Debug("Scenario not found")

		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: fmt.Sprintf("scenario %q not found", name)})

		return
	}

	writeJSON(w, http.StatusOK, entry.Descriptor)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
