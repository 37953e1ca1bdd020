package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgallion1/wikigest/internal/config"
	"github.com/dgallion1/wikigest/internal/embedder"
	"github.com/dgallion1/wikigest/internal/pipeline"
)

// Server is the HTTP API server for wikigest.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	embed        embedder.Embedder
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server. embed is the query
// embedder for /api/search and may be nil when embeddings are disabled.
func NewServer(orch *pipeline.Orchestrator, embed embedder.Embedder, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		embed:        embed,
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
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Post("/api/ingest", s.handleIngest)
		r.Post("/api/ingest/batch", s.handleBatchIngest)
		r.Get("/api/ingest/{jobID}/status", s.handleIngestStatus)

		r.Get("/api/articles", s.handleListArticles)
		r.Get("/api/articles/{docID}", s.handleGetArticle)
		r.Delete("/api/articles/{docID}", s.handleDeleteArticle)
		r.Get("/api/articles/{docID}/chunks", s.handleArticleChunks)

		r.Get("/api/search", s.handleSearch)
		r.Get("/api/stats", s.handleStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
