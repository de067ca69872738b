// Package httpapi exposes retrieval and maintenance operations over HTTP.
// Ingestion stays CLI-only; the API is read-only against the store.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/semdex/semdex/internal/core/domain"
	"github.com/semdex/semdex/internal/core/ports/driven"
	"github.com/semdex/semdex/internal/core/services"
)

// Server serves the JSON API.
type Server struct {
	store    driven.VectorStore
	provider driven.EmbeddingProvider
	search   *services.SearchService

	defaultTopK      int
	defaultThreshold float32
}

// NewServer creates an API server bound to one embedding model.
func NewServer(
	store driven.VectorStore,
	provider driven.EmbeddingProvider,
	model string,
	defaultTopK int,
	defaultThreshold float32,
) *Server {
	return &Server{
		store:            store,
		provider:         provider,
		search:           services.NewSearchService(store, provider, model),
		defaultTopK:      defaultTopK,
		defaultThreshold: defaultThreshold,
	}
}

// Router builds the chi router with all routes and middleware attached.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(requestLogger)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/stats", s.handleStats)
		r.Get("/search", s.handleSearch)
		r.Get("/models", s.handleModels)
	})

	return r
}

// ListenAndServe runs the server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// healthResponse is the body of GET /api/health.
type healthResponse struct {
	Status          string `json:"status"`
	OllamaAvailable bool   `json:"ollamaAvailable"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:          "ok",
		OllamaAvailable: s.provider.HealthCheck(r.Context()),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "reading stats: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// searchResponse is the body of GET /api/search.
type searchResponse struct {
	Query   string                `json:"query"`
	Results []domain.SearchResult `json:"results"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	query := q.Get("query")
	opts := services.SearchOptions{
		TopK:      s.defaultTopK,
		Threshold: s.defaultThreshold,
	}

	if raw := q.Get("top_k"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid top_k: "+raw)
			return
		}
		opts.TopK = n
	}
	if raw := q.Get("threshold"); raw != "" {
		f, err := strconv.ParseFloat(raw, 32)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid threshold: "+raw)
			return
		}
		opts.Threshold = float32(f)
	}

	results, err := s.search.Search(r.Context(), query, opts)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, domain.ErrProviderUnavailable), errors.Is(err, domain.ErrEmbeddingFailed):
			writeError(w, http.StatusBadGateway, err.Error())
		case errors.Is(err, domain.ErrModelNotFound):
			writeError(w, http.StatusNotFound, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	if results == nil {
		results = []domain.SearchResult{}
	}
	writeJSON(w, http.StatusOK, searchResponse{Query: query, Results: results})
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	models, err := s.provider.ListModels(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, "listing models: "+err.Error())
		return
	}
	if models == nil {
		models = []domain.ModelInfo{}
	}
	writeJSON(w, http.StatusOK, models)
}

// errorResponse is the body of every non-2xx reply.
type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
