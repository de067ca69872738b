package domain

// SearchResult is an ephemeral (chunk, document, score) triple produced by a
// similarity query. It is never persisted.
type SearchResult struct {
	Chunk      Chunk    `json:"chunk"`
	Document   Document `json:"document"`
	Similarity float32  `json:"similarity"`
}

// Stats is a snapshot of the store's contents.
type Stats struct {
	DocumentCount  int64 `json:"documentCount"`
	ChunkCount     int64 `json:"chunkCount"`
	EmbeddingCount int64 `json:"embeddingCount"`
	SizeBytes      int64 `json:"sizeBytes"`
}

// ModelInfo describes one model reported by the embedding provider.
type ModelInfo struct {
	Name       string `json:"name"`
	Size       int64  `json:"size"`
	ModifiedAt string `json:"modifiedAt"`
}
