package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semdex/semdex/internal/chunker"
	"github.com/semdex/semdex/internal/core/domain"
)

// --- Mock implementations ---

// mockStore implements driven.VectorStore in memory for testing.
type mockStore struct {
	docs       map[int64]*domain.Document
	docsByHash map[string]int64
	chunks     map[int64]*domain.Chunk
	embeddings map[int64]*domain.Embedding
	nextID     int64

	searchResults   []domain.SearchResult
	searchErr       error
	insertChunksErr error
	upsertErr       error
}

func newMockStore() *mockStore {
	return &mockStore{
		docs:       make(map[int64]*domain.Document),
		docsByHash: make(map[string]int64),
		chunks:     make(map[int64]*domain.Chunk),
		embeddings: make(map[int64]*domain.Embedding),
	}
}

func (m *mockStore) InsertDocument(_ context.Context, doc *domain.Document) (int64, error) {
	if _, ok := m.docsByHash[doc.ContentHash]; ok {
		return 0, errors.New("UNIQUE constraint failed: documents.content_hash")
	}
	m.nextID++
	stored := *doc
	stored.ID = m.nextID
	m.docs[stored.ID] = &stored
	m.docsByHash[stored.ContentHash] = stored.ID
	return stored.ID, nil
}

func (m *mockStore) GetDocument(_ context.Context, id int64) (*domain.Document, error) {
	doc, ok := m.docs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return doc, nil
}

func (m *mockStore) GetDocumentByHash(_ context.Context, hash string) (*domain.Document, error) {
	id, ok := m.docsByHash[hash]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return m.docs[id], nil
}

func (m *mockStore) InsertChunk(_ context.Context, chunk *domain.Chunk) (int64, error) {
	m.nextID++
	stored := *chunk
	stored.ID = m.nextID
	m.chunks[stored.ID] = &stored
	return stored.ID, nil
}

func (m *mockStore) InsertChunks(ctx context.Context, chunks []domain.Chunk) ([]int64, error) {
	if m.insertChunksErr != nil {
		return nil, m.insertChunksErr
	}
	ids := make([]int64, 0, len(chunks))
	for i := range chunks {
		id, _ := m.InsertChunk(ctx, &chunks[i])
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *mockStore) GetChunk(_ context.Context, id int64) (*domain.Chunk, error) {
	chunk, ok := m.chunks[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return chunk, nil
}

func (m *mockStore) GetChunksForDocument(_ context.Context, documentID int64) ([]domain.Chunk, error) {
	var out []domain.Chunk
	for _, c := range m.chunks {
		if c.DocumentID == documentID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *mockStore) UpsertEmbedding(_ context.Context, emb *domain.Embedding) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	stored := *emb
	m.embeddings[emb.ChunkID] = &stored
	return nil
}

func (m *mockStore) UpsertEmbeddings(ctx context.Context, embs []domain.Embedding) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	for i := range embs {
		if err := m.UpsertEmbedding(ctx, &embs[i]); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockStore) GetEmbedding(_ context.Context, chunkID int64) (*domain.Embedding, error) {
	emb, ok := m.embeddings[chunkID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return emb, nil
}

func (m *mockStore) SearchSimilar(_ context.Context, _ []float32, _ string, topK int) ([]domain.SearchResult, error) {
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	if topK > len(m.searchResults) {
		return m.searchResults, nil
	}
	return m.searchResults[:topK], nil
}

func (m *mockStore) CountDocuments(_ context.Context) (int64, error) {
	return int64(len(m.docs)), nil
}

func (m *mockStore) CountChunks(_ context.Context) (int64, error) {
	return int64(len(m.chunks)), nil
}

func (m *mockStore) CountEmbeddings(_ context.Context) (int64, error) {
	return int64(len(m.embeddings)), nil
}

func (m *mockStore) Stats(ctx context.Context) (*domain.Stats, error) {
	docs, _ := m.CountDocuments(ctx)
	chunks, _ := m.CountChunks(ctx)
	embs, _ := m.CountEmbeddings(ctx)
	return &domain.Stats{DocumentCount: docs, ChunkCount: chunks, EmbeddingCount: embs}, nil
}

func (m *mockStore) Vacuum(_ context.Context) error  { return nil }
func (m *mockStore) Analyze(_ context.Context) error { return nil }
func (m *mockStore) Close() error                    { return nil }

// mockProvider implements driven.EmbeddingProvider for testing.
type mockProvider struct {
	vector    []float32
	embedErr  error
	batchErr  error
	shortfall int // drop this many vectors from batch output
	calls     int
}

func (m *mockProvider) Embed(_ context.Context, _ string, _ string) ([]float32, error) {
	m.calls++
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	return m.vector, nil
}

func (m *mockProvider) EmbedBatch(_ context.Context, _ string, texts []string) ([][]float32, error) {
	m.calls++
	if m.batchErr != nil {
		return nil, m.batchErr
	}
	n := len(texts) - m.shortfall
	out := make([][]float32, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, m.vector)
	}
	return out, nil
}

func (m *mockProvider) HealthCheck(_ context.Context) bool { return true }

func (m *mockProvider) ListModels(_ context.Context) ([]domain.ModelInfo, error) {
	return nil, nil
}

func (m *mockProvider) HasModel(_ context.Context, _ string) (bool, error) {
	return true, nil
}

// --- Helpers ---

func writeTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func newTestIngestion(store *mockStore, provider *mockProvider) *IngestionService {
	return NewIngestionService(store, provider, "test-model", chunker.FixedSize(10, 2))
}

// --- Tests ---

func TestIngestFile(t *testing.T) {
	store := newMockStore()
	provider := &mockProvider{vector: []float32{0.1, 0.2}}
	svc := newTestIngestion(store, provider)

	path := writeTestFile(t, t.TempDir(), "doc.txt", "this is a test document with enough text to chunk")

	res, err := svc.IngestFile(context.Background(), path)
	require.NoError(t, err)

	assert.False(t, res.Skipped)
	assert.Positive(t, res.DocumentID)
	assert.Positive(t, res.ChunksCreated)
	assert.Equal(t, res.ChunksCreated, res.EmbeddingsCreated)
	assert.Equal(t, res.ChunksCreated, len(store.chunks))
	assert.Equal(t, res.ChunksCreated, len(store.embeddings))
}

func TestIngestFileEmptySkipped(t *testing.T) {
	store := newMockStore()
	provider := &mockProvider{vector: []float32{0.1}}
	svc := newTestIngestion(store, provider)

	path := writeTestFile(t, t.TempDir(), "empty.txt", "   \n\t ")

	res, err := svc.IngestFile(context.Background(), path)
	require.NoError(t, err)

	assert.True(t, res.Skipped)
	assert.Zero(t, res.DocumentID)
	assert.Empty(t, store.docs)
	assert.Zero(t, provider.calls)
}

func TestIngestFileDuplicateContent(t *testing.T) {
	store := newMockStore()
	provider := &mockProvider{vector: []float32{0.1}}
	svc := newTestIngestion(store, provider)

	dir := t.TempDir()
	first := writeTestFile(t, dir, "a.txt", "identical content")
	second := writeTestFile(t, dir, "b.txt", "identical content")

	res1, err := svc.IngestFile(context.Background(), first)
	require.NoError(t, err)
	require.False(t, res1.Skipped)

	callsAfterFirst := provider.calls

	res2, err := svc.IngestFile(context.Background(), second)
	require.NoError(t, err)

	assert.True(t, res2.Skipped)
	assert.Equal(t, res1.DocumentID, res2.DocumentID)
	assert.Len(t, store.docs, 1)
	// Duplicate never reaches the provider.
	assert.Equal(t, callsAfterFirst, provider.calls)
}

func TestIngestFileRejectsUnsupportedExtension(t *testing.T) {
	store := newMockStore()
	provider := &mockProvider{vector: []float32{0.1}}
	svc := newTestIngestion(store, provider)

	path := writeTestFile(t, t.TempDir(), "image.png", "binary-ish content")

	_, err := svc.IngestFile(context.Background(), path)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	// Nothing was chunked, embedded, or stored.
	assert.Empty(t, store.docs)
	assert.Empty(t, store.chunks)
	assert.Zero(t, provider.calls)
}

func TestIngestFileRejectsDirectory(t *testing.T) {
	store := newMockStore()
	svc := newTestIngestion(store, &mockProvider{})

	_, err := svc.IngestFile(context.Background(), t.TempDir())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Empty(t, store.docs)
}

func TestIngestFileMissing(t *testing.T) {
	store := newMockStore()
	svc := newTestIngestion(store, &mockProvider{})

	_, err := svc.IngestFile(context.Background(), "/nonexistent/file.txt")
	assert.Error(t, err)
}

func TestIngestFileEmbedBatchFails(t *testing.T) {
	store := newMockStore()
	provider := &mockProvider{batchErr: domain.ErrProviderUnavailable}
	svc := newTestIngestion(store, provider)

	path := writeTestFile(t, t.TempDir(), "doc.txt", "some content to ingest")

	_, err := svc.IngestFile(context.Background(), path)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
	// Document and chunks are stored, embeddings are not.
	assert.Len(t, store.docs, 1)
	assert.NotEmpty(t, store.chunks)
	assert.Empty(t, store.embeddings)
}

func TestIngestFileEmbeddingCountMismatch(t *testing.T) {
	store := newMockStore()
	provider := &mockProvider{vector: []float32{0.1}, shortfall: 1}
	svc := newTestIngestion(store, provider)

	path := writeTestFile(t, t.TempDir(), "doc.txt", "enough text here to produce more than one chunk")

	_, err := svc.IngestFile(context.Background(), path)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmbeddingCountMismatch)
	// No partial embedding writes.
	assert.Empty(t, store.embeddings)
}

func TestIngestFilesIsolatesFailures(t *testing.T) {
	store := newMockStore()
	provider := &mockProvider{vector: []float32{0.1}}
	svc := newTestIngestion(store, provider)

	dir := t.TempDir()
	good := writeTestFile(t, dir, "good.txt", "good content")

	results, err := svc.IngestFiles(context.Background(), []string{
		filepath.Join(dir, "missing.txt"),
		good,
	})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.True(t, results[0].Skipped)
	assert.NotEmpty(t, results[0].Reason)
	assert.False(t, results[1].Skipped)
}

func TestCollectFilesSingle(t *testing.T) {
	dir := t.TempDir()
	path := writeTestFile(t, dir, "doc.md", "content")

	files, err := CollectFiles(path, false)
	require.NoError(t, err)
	assert.Equal(t, []string{path}, files)
}

func TestCollectFilesUnsupportedExtension(t *testing.T) {
	dir := t.TempDir()
	path := writeTestFile(t, dir, "image.png", "not text")

	_, err := CollectFiles(path, false)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCollectFilesDirectory(t *testing.T) {
	dir := t.TempDir()
	a := writeTestFile(t, dir, "a.txt", "a")
	b := writeTestFile(t, dir, "b.markdown", "b")
	writeTestFile(t, dir, "c.png", "binary")

	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.Mkdir(sub, 0700))
	nested := writeTestFile(t, sub, "nested.md", "nested")

	files, err := CollectFiles(dir, false)
	require.NoError(t, err)
	assert.Equal(t, []string{a, b}, files)

	files, err = CollectFiles(dir, true)
	require.NoError(t, err)
	assert.Equal(t, []string{a, b, nested}, files)
}

func TestCollectFilesExtensionlessAccepted(t *testing.T) {
	dir := t.TempDir()
	path := writeTestFile(t, dir, "README", "plain")

	files, err := CollectFiles(path, false)
	require.NoError(t, err)
	assert.Equal(t, []string{path}, files)
}
