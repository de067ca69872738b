package driven

import (
	"context"

	"github.com/semdex/semdex/internal/core/domain"
)

// VectorStore is the durable repository for documents, chunks, and
// embeddings. It is the sole owner of persisted state; callers never mutate
// rows directly. All operations are synchronous and self-contained: none of
// them suspends on network I/O, so a store handle is never held across a
// provider call.
type VectorStore interface {
	// InsertDocument persists a new document and returns its assigned id.
	// The content hash is unique; inserting a duplicate fails.
	InsertDocument(ctx context.Context, doc *domain.Document) (int64, error)

	// GetDocument retrieves a document by id.
	// Returns domain.ErrNotFound if it does not exist.
	GetDocument(ctx context.Context, id int64) (*domain.Document, error)

	// GetDocumentByHash retrieves a document by content fingerprint.
	// Returns domain.ErrNotFound if no document has that fingerprint.
	GetDocumentByHash(ctx context.Context, contentHash string) (*domain.Document, error)

	// InsertChunk persists a single chunk and returns its assigned id.
	InsertChunk(ctx context.Context, chunk *domain.Chunk) (int64, error)

	// InsertChunks persists a batch of chunks in one transaction, returning
	// assigned ids in input order.
	InsertChunks(ctx context.Context, chunks []domain.Chunk) ([]int64, error)

	// GetChunk retrieves a chunk by id.
	GetChunk(ctx context.Context, id int64) (*domain.Chunk, error)

	// GetChunksForDocument returns a document's chunks ordered by index.
	GetChunksForDocument(ctx context.Context, documentID int64) ([]domain.Chunk, error)

	// UpsertEmbedding inserts or replaces the embedding for a chunk.
	// The write is all-or-nothing for one chunk.
	UpsertEmbedding(ctx context.Context, emb *domain.Embedding) error

	// UpsertEmbeddings upserts a batch of embeddings in one transaction.
	UpsertEmbeddings(ctx context.Context, embs []domain.Embedding) error

	// GetEmbedding retrieves the embedding for a chunk.
	GetEmbedding(ctx context.Context, chunkID int64) (*domain.Embedding, error)

	// SearchSimilar scans every stored embedding for the given model,
	// scores it against the query vector with cosine similarity, and
	// returns the topK highest-scoring results in descending order.
	// Mismatched dimensions score 0.0 and never rank.
	SearchSimilar(ctx context.Context, query []float32, model string, topK int) ([]domain.SearchResult, error)

	// CountDocuments returns the total number of documents.
	CountDocuments(ctx context.Context) (int64, error)

	// CountChunks returns the total number of chunks.
	CountChunks(ctx context.Context) (int64, error)

	// CountEmbeddings returns the total number of embeddings.
	CountEmbeddings(ctx context.Context) (int64, error)

	// Stats returns counts plus the database size in bytes.
	Stats(ctx context.Context) (*domain.Stats, error)

	// Vacuum reclaims unused space. Blocking; the caller must ensure no
	// conflicting writers.
	Vacuum(ctx context.Context) error

	// Analyze refreshes query-planner statistics. Same caveats as Vacuum.
	Analyze(ctx context.Context) error

	// Close releases the database handle.
	Close() error
}
