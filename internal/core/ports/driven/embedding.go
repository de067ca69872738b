package driven

import (
	"context"

	"github.com/semdex/semdex/internal/core/domain"
)

// EmbeddingProvider generates vector embeddings from text via a remote
// service. Implementations own retry/backoff and error classification;
// callers only ever see exhaustion or non-retryable failures.
//
// The provider is stateless beyond its base URL and timeout and is safe to
// share across concurrent callers.
type EmbeddingProvider interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, model, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts, one output per
	// input in the same order. The remote API accepts one text per call, so
	// latency scales linearly with input count, and a failure on item i
	// aborts the batch without attempting items i+1..n. Empty input returns
	// empty output without a network call.
	EmbedBatch(ctx context.Context, model string, texts []string) ([][]float32, error)

	// HealthCheck probes provider liveness. Liveness is advisory: transport
	// failures and non-success statuses report unhealthy, never an error.
	HealthCheck(ctx context.Context) bool

	// ListModels returns the models the provider has available.
	ListModels(ctx context.Context) ([]domain.ModelInfo, error)

	// HasModel reports whether the named model is available, matching
	// exactly, then with an implied :latest tag, then by base name with any
	// tag stripped from both sides.
	HasModel(ctx context.Context, name string) (bool, error)
}
