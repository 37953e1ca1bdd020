package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/wikigest/internal/storage"
)

// handleListArticles returns article summaries without markdown bodies.
func (s *Server) handleListArticles(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	articles, err := s.orchestrator.Store().ListArticles(r.Context(), limit, offset)
	if err != nil {
		jsonError(w, "failed to list articles: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if articles == nil {
		articles = []*storage.Article{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"articles": articles})
}

// handleGetArticle returns one article with its sidecar assets.
func (s *Server) handleGetArticle(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")
	ctx := r.Context()

	article, err := s.orchestrator.Store().GetArticle(ctx, docID)
	if errors.Is(err, storage.ErrNotFound) {
		jsonError(w, "article not found", http.StatusNotFound)
		return
	}
	if err != nil {
		jsonError(w, "failed to load article: "+err.Error(), http.StatusInternalServerError)
		return
	}

	assets, err := s.orchestrator.Store().AssetsForArticle(ctx, docID)
	if err != nil {
		jsonError(w, "failed to load assets: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"article": article,
		"assets":  assets,
	})
}

// handleDeleteArticle removes an article with its chunks and assets.
func (s *Server) handleDeleteArticle(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")

	err := s.orchestrator.Store().DeleteArticle(r.Context(), docID)
	if errors.Is(err, storage.ErrNotFound) {
		jsonError(w, "article not found", http.StatusNotFound)
		return
	}
	if err != nil {
		jsonError(w, "failed to delete article: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"deleted": docID})
}

// handleArticleChunks returns an article's chunks in traversal order.
func (s *Server) handleArticleChunks(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")
	ctx := r.Context()

	if _, err := s.orchestrator.Store().GetArticle(ctx, docID); errors.Is(err, storage.ErrNotFound) {
		jsonError(w, "article not found", http.StatusNotFound)
		return
	} else if err != nil {
		jsonError(w, "failed to load article: "+err.Error(), http.StatusInternalServerError)
		return
	}

	chunks, err := s.orchestrator.Store().ChunksForArticle(ctx, docID)
	if err != nil {
		jsonError(w, "failed to load chunks: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"doc_id": docID,
		"count":  len(chunks),
		"chunks": chunks,
	})
}

func queryInt(r *http.Request, key string, fallback int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return fallback
}
