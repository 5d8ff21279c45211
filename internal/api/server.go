// Package api is the HTTP control surface: it queues runs, reports their
// progress and renders finished runs as HTML.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgallion1/voybot/internal/config"
	"github.com/dgallion1/voybot/internal/pipeline"
	"github.com/dgallion1/voybot/internal/store"
	"github.com/dgallion1/voybot/internal/wikidata"
)

// Server is the HTTP API server for voybot.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	stats        *wikidata.ResolverStats
	progress     *store.Store
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server. stats and progress may
// be nil; their endpoints then answer 503.
func NewServer(orch *pipeline.Orchestrator, stats *wikidata.ResolverStats, progress *store.Store, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		stats:        stats,
		progress:     progress,
		log:          log,
		cfg:          cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.VoybotAPIKey, s.log))

		r.Get("/api/recipes", s.handleListRecipes)

		r.Post("/api/runs", s.handleSubmitRun)
		r.Get("/api/runs", s.handleRunHistory)
		r.Get("/api/runs/{runID}", s.handleRunStatus)
		r.Get("/api/runs/{runID}/report", s.handleRunReport)

		r.Get("/api/stats/resolver", s.handleResolverStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"queue_depth": s.orchestrator.QueueDepth(),
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}
