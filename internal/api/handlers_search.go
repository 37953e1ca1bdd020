package api

import (
	"encoding/json"
	"net/http"

	"github.com/dgallion1/wikigest/internal/storage"
)

// handleSearch embeds the query text and ranks stored chunks by cosine
// similarity.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if s.embed == nil {
		jsonError(w, "search requires an embedding provider", http.StatusServiceUnavailable)
		return
	}

	query := r.URL.Query().Get("q")
	if query == "" {
		jsonError(w, "q query parameter is required", http.StatusBadRequest)
		return
	}
	limit := queryInt(r, "limit", 10)

	vecs, err := s.embed.Embed(r.Context(), []string{query})
	if err != nil {
		jsonError(w, "failed to embed query: "+err.Error(), http.StatusBadGateway)
		return
	}
	if len(vecs) != 1 {
		jsonError(w, "embedder returned no vector", http.StatusBadGateway)
		return
	}

	results, err := s.orchestrator.Store().SearchChunks(r.Context(), vecs[0], limit)
	if err != nil {
		jsonError(w, "search failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if results == nil {
		results = []storage.SearchResult{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"query":   query,
		"results": results,
	})
}

// handleStats reports store row counts and queue depth.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.orchestrator.Store().CountStats(r.Context())
	if err != nil {
		jsonError(w, "failed to collect stats: "+err.Error(), http.StatusInternalServerError)
		return
	}

	resp := map[string]any{
		"articles":        stats.Articles,
		"assets":          stats.Assets,
		"chunks":          stats.Chunks,
		"embedded_chunks": stats.EmbeddedChunks,
		"queue_depth":     s.orchestrator.QueueDepth(),
	}
	if s.embed != nil {
		resp["embed_model"] = s.embed.Model()
		resp["embed_dims"] = s.embed.Dimensions()
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
