// Package server exposes the printbay core over HTTP: job and quote
// lifecycle, mesh measurement on upload, and parametric cost estimates.
// Identity is a caller-supplied opaque id; authentication and authorization
// live upstream of this service.
package server

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/printbay/printbay/internal/config"
	"github.com/printbay/printbay/internal/metrics"
	"github.com/printbay/printbay/internal/quote"
)

type Server struct {
	cfg    config.Config
	log    *zap.Logger
	db     *sql.DB
	quotes *quote.Manager
}

func New(cfg config.Config, log *zap.Logger, database *sql.DB) *Server {
	return &Server{
		cfg:    cfg,
		log:    log,
		db:     database,
		quotes: quote.NewManager(database),
	}
}

// Router wires every route. The mesh upload route is the only one that can
// block for a bounded duration; everything else is a short single-step
// database operation.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestLogger)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/jobs", s.handleCreateJob)
		r.Get("/jobs", s.handleListJobs)
		r.Get("/jobs/{jobID}", s.handleGetJob)
		r.Post("/jobs/{jobID}/mesh", s.handleUploadMesh)
		r.Post("/jobs/{jobID}/submit", s.handleSubmitJob)
		r.Post("/jobs/{jobID}/cancel", s.handleCancelJob)
		r.Post("/jobs/{jobID}/complete", s.handleCompleteJob)

		r.Post("/jobs/{jobID}/quotes", s.handleSubmitQuote)
		r.Get("/jobs/{jobID}/quotes", s.handleListQuotes)
		r.Post("/jobs/{jobID}/quotes/{quoteID}/accept", s.handleAcceptQuote)

		r.Post("/estimate", s.handleEstimate)

		r.Get("/materials", s.handleListMaterials)
		r.Post("/materials", s.handleCreateMaterial)
		r.Post("/materials/{id}", s.handleUpdateMaterial)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.PingContext(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("duration", time.Since(start)),
		)
	})
}
