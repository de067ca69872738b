package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/semdex/semdex/internal/chunker"
	"github.com/semdex/semdex/internal/core/domain"
	"github.com/semdex/semdex/internal/core/ports/driven"
	"github.com/semdex/semdex/internal/logger"
)

// supportedExtensions lists the file extensions ingestion accepts,
// lowercase, without the dot. Extensionless files are accepted too.
var supportedExtensions = map[string]bool{
	"txt":      true,
	"md":       true,
	"markdown": true,
	"":         true,
}

// IngestResult reports the outcome of ingesting one file.
type IngestResult struct {
	Path              string
	DocumentID        int64
	ChunksCreated     int
	EmbeddingsCreated int

	// Skipped is true when the file produced no new document: it was empty,
	// or its content was already ingested. DocumentID still points at the
	// existing document for duplicates.
	Skipped bool
	Reason  string
}

// IngestionService turns files into chunked, embedded, persisted documents.
type IngestionService struct {
	store    driven.VectorStore
	provider driven.EmbeddingProvider
	model    string
	strategy chunker.Strategy
}

// NewIngestionService creates an ingestion service bound to one embedding
// model and one chunking strategy.
func NewIngestionService(
	store driven.VectorStore,
	provider driven.EmbeddingProvider,
	model string,
	strategy chunker.Strategy,
) *IngestionService {
	return &IngestionService{
		store:    store,
		provider: provider,
		model:    model,
		strategy: strategy,
	}
}

// IngestFile ingests a single file: read, dedup by content fingerprint,
// chunk, embed, persist. The path must name a regular file with a supported
// extension; anything else fails with ErrInvalidInput before any read.
// Chunks are written before the provider is called,
// so an embedding failure leaves the document and its chunks stored with no
// embeddings; re-running against fixed content re-ingests under a new hash,
// and identical content simply reports the duplicate.
func (s *IngestionService) IngestFile(ctx context.Context, path string) (*IngestResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: not a regular file: %s", domain.ErrInvalidInput, path)
	}
	if !isSupportedFile(path) {
		return nil, fmt.Errorf("%w: unsupported file type %s", domain.ErrInvalidInput, path)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	text := string(content)
	if strings.TrimSpace(text) == "" {
		logger.Debug("skipping empty file %s", path)
		return &IngestResult{Path: path, Skipped: true, Reason: "empty file"}, nil
	}

	// Dedup gate: identical content is never re-chunked or re-embedded.
	doc := domain.NewDocument(path, text)
	existing, err := s.store.GetDocumentByHash(ctx, doc.ContentHash)
	if err == nil {
		logger.Debug("duplicate content for %s (document %d)", path, existing.ID)
		return &IngestResult{
			Path:       path,
			DocumentID: existing.ID,
			Skipped:    true,
			Reason:     fmt.Sprintf("duplicate of document %d", existing.ID),
		}, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("checking for duplicate: %w", err)
	}

	docID, err := s.store.InsertDocument(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("storing document: %w", err)
	}

	pieces := chunker.Split(text, s.strategy)
	chunks := make([]domain.Chunk, 0, len(pieces))
	for i, piece := range pieces {
		chunks = append(chunks, *domain.NewChunk(docID, i, piece))
	}

	chunkIDs, err := s.store.InsertChunks(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("storing chunks: %w", err)
	}

	logger.Debug("embedding %d chunks from %s with model %s", len(pieces), path, s.model)
	vectors, err := s.provider.EmbedBatch(ctx, s.model, pieces)
	if err != nil {
		return nil, fmt.Errorf("embedding chunks: %w", err)
	}
	if len(vectors) != len(chunkIDs) {
		// The provider returned a partial batch. Write nothing: a chunk either
		// has its real embedding or none at all.
		return nil, fmt.Errorf("%w: got %d embeddings for %d chunks",
			domain.ErrEmbeddingCountMismatch, len(vectors), len(chunkIDs))
	}

	embeddings := make([]domain.Embedding, 0, len(vectors))
	for i, vec := range vectors {
		embeddings = append(embeddings, *domain.NewEmbedding(chunkIDs[i], s.model, vec))
	}

	if err := s.store.UpsertEmbeddings(ctx, embeddings); err != nil {
		return nil, fmt.Errorf("storing embeddings: %w", err)
	}

	logger.Info("ingested %s: document %d, %d chunks", path, docID, len(chunks))
	return &IngestResult{
		Path:              path,
		DocumentID:        docID,
		ChunksCreated:     len(chunks),
		EmbeddingsCreated: len(embeddings),
	}, nil
}

// IngestFiles ingests each path independently. A failure on one file is
// recorded in its result and does not stop the rest of the batch.
func (s *IngestionService) IngestFiles(ctx context.Context, paths []string) ([]IngestResult, error) {
	results := make([]IngestResult, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		res, err := s.IngestFile(ctx, path)
		if err != nil {
			logger.Warn("failed to ingest %s: %v", path, err)
			results = append(results, IngestResult{
				Path:    path,
				Skipped: true,
				Reason:  err.Error(),
			})
			continue
		}
		results = append(results, *res)
	}
	return results, nil
}

// CollectFiles expands a path into the list of ingestable files under it.
// A file path returns itself if its extension is supported. A directory is
// walked (recursively when recursive is set), keeping only supported files,
// sorted for deterministic ordering.
func CollectFiles(path string, recursive bool) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	if !info.IsDir() {
		if !isSupportedFile(path) {
			return nil, fmt.Errorf("%w: unsupported file type %s", domain.ErrInvalidInput, path)
		}
		return []string{path}, nil
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != path && !recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if isSupportedFile(p) {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", path, err)
	}

	sort.Strings(files)
	return files, nil
}

func isSupportedFile(path string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	return supportedExtensions[ext]
}
