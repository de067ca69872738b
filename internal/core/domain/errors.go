package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input, such as an
	// unsupported file type or a path that is not a regular file.
	ErrInvalidInput = errors.New("invalid input")

	// ErrProviderUnavailable indicates the embedding provider could not be
	// reached after exhausting retries. Transient transport failures are
	// retried inside the client and never surface here directly.
	ErrProviderUnavailable = errors.New("embedding provider unavailable")

	// ErrModelNotFound indicates the provider does not know the requested
	// model. Retrying cannot help, so this fails immediately.
	ErrModelNotFound = errors.New("model not found")

	// ErrEmbeddingFailed indicates the provider rejected an embedding
	// request: a retry-exhausted server error, or an unparseable response.
	ErrEmbeddingFailed = errors.New("embedding failed")

	// ErrEmbeddingCountMismatch indicates the provider returned a different
	// number of vectors than texts requested. This is a provider contract
	// violation; nothing is written for the affected file.
	ErrEmbeddingCountMismatch = errors.New("embedding count mismatch")
)
