package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/semdex/semdex/internal/core/domain"
	"github.com/semdex/semdex/internal/core/ports/driven"
	"github.com/semdex/semdex/internal/logger"
)

// SearchOptions control one search invocation.
type SearchOptions struct {
	// TopK is the maximum number of results to return.
	TopK int

	// Threshold drops results whose similarity falls below it.
	// Zero disables filtering, so negative similarities still rank.
	Threshold float32
}

// SearchService answers similarity queries against the stored embeddings.
type SearchService struct {
	store    driven.VectorStore
	provider driven.EmbeddingProvider
	model    string
}

// NewSearchService creates a search service bound to one embedding model.
func NewSearchService(store driven.VectorStore, provider driven.EmbeddingProvider, model string) *SearchService {
	return &SearchService{
		store:    store,
		provider: provider,
		model:    model,
	}
}

// Search embeds the query once, scans stored embeddings for the service's
// model, and returns results in descending similarity order.
func (s *SearchService) Search(ctx context.Context, query string, opts SearchOptions) ([]domain.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
	}
	if opts.TopK <= 0 {
		return nil, fmt.Errorf("%w: topK must be positive, got %d", domain.ErrInvalidInput, opts.TopK)
	}

	logger.Debug("embedding query with model %s", s.model)
	vector, err := s.provider.Embed(ctx, s.model, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	results, err := s.store.SearchSimilar(ctx, vector, s.model, opts.TopK)
	if err != nil {
		return nil, fmt.Errorf("searching: %w", err)
	}

	if opts.Threshold > 0.0 {
		filtered := results[:0]
		for _, r := range results {
			if r.Similarity >= opts.Threshold {
				filtered = append(filtered, r)
			}
		}
		results = filtered
	}

	logger.Debug("search returned %d results", len(results))
	return results, nil
}
