package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Document represents one ingested source unit. The content itself is not
// stored on the document; only its fingerprint is kept for deduplication.
type Document struct {
	// ID is assigned by the store on insert. Zero means not yet persisted.
	ID int64 `json:"id"`

	// Source is the original location (file path, URL, etc).
	Source string `json:"source"`

	// ContentHash is the SHA-256 hex digest of the raw content.
	// It is unique across all documents and serves as the dedup key.
	ContentHash string `json:"contentHash"`

	// Metadata contains arbitrary string key-value pairs.
	Metadata map[string]string `json:"metadata,omitempty"`

	// CreatedAt is when the document was ingested.
	CreatedAt time.Time `json:"createdAt"`
}

// NewDocument creates a document from a source descriptor and its raw
// content, computing the content fingerprint.
func NewDocument(source, content string) *Document {
	sum := sha256.Sum256([]byte(content))

	return &Document{
		Source:      source,
		ContentHash: hex.EncodeToString(sum[:]),
		Metadata:    make(map[string]string),
		CreatedAt:   time.Now().UTC(),
	}
}

// Chunk is one contiguous span of a document's text.
// (DocumentID, Index) is unique; indices are contiguous from zero.
type Chunk struct {
	// ID is assigned by the store on insert.
	ID int64 `json:"id"`

	// DocumentID links to the owning Document.
	DocumentID int64 `json:"documentId"`

	// Index is the zero-based ordinal position within the document.
	Index int `json:"index"`

	// Content is the text content of this chunk.
	Content string `json:"content"`

	// TokenCount is a heuristic estimate, not an exact tokenizer count.
	TokenCount int `json:"tokenCount"`
}

// NewChunk creates a chunk with an approximate token count.
func NewChunk(documentID int64, index int, content string) *Chunk {
	// Rough estimate: ~4 characters per token.
	return &Chunk{
		DocumentID: documentID,
		Index:      index,
		Content:    content,
		TokenCount: len(content) / 4,
	}
}

// Embedding is the vector representation of one chunk under one model.
// A later write for the same chunk replaces the prior vector.
type Embedding struct {
	// ChunkID links to the owning Chunk.
	ChunkID int64

	// Model is the name of the model that produced the vector.
	Model string

	// Vector holds the embedding components.
	Vector []float32

	// Dimension always equals len(Vector).
	Dimension int
}

// NewEmbedding creates an embedding, deriving the dimension from the vector.
func NewEmbedding(chunkID int64, model string, vector []float32) *Embedding {
	return &Embedding{
		ChunkID:   chunkID,
		Model:     model,
		Vector:    vector,
		Dimension: len(vector),
	}
}
