package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semdex/semdex/internal/config"
	"github.com/semdex/semdex/internal/core/domain"
)

// --- Mock implementations ---

type fakeStore struct {
	docs          map[string]*domain.Document
	nextID        int64
	chunkCount    int64
	searchResults []domain.SearchResult
	vacuumed      bool
	analyzed      bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{docs: make(map[string]*domain.Document)}
}

func (f *fakeStore) InsertDocument(_ context.Context, doc *domain.Document) (int64, error) {
	f.nextID++
	stored := *doc
	stored.ID = f.nextID
	f.docs[doc.ContentHash] = &stored
	return stored.ID, nil
}

func (f *fakeStore) GetDocument(_ context.Context, _ int64) (*domain.Document, error) {
	return nil, domain.ErrNotFound
}

func (f *fakeStore) GetDocumentByHash(_ context.Context, hash string) (*domain.Document, error) {
	if doc, ok := f.docs[hash]; ok {
		return doc, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeStore) InsertChunk(_ context.Context, _ *domain.Chunk) (int64, error) {
	f.nextID++
	f.chunkCount++
	return f.nextID, nil
}

func (f *fakeStore) InsertChunks(ctx context.Context, chunks []domain.Chunk) ([]int64, error) {
	ids := make([]int64, 0, len(chunks))
	for i := range chunks {
		id, _ := f.InsertChunk(ctx, &chunks[i])
		ids = append(ids, id)
	}
	return ids, nil
}

func (f *fakeStore) GetChunk(_ context.Context, _ int64) (*domain.Chunk, error) {
	return nil, domain.ErrNotFound
}

func (f *fakeStore) GetChunksForDocument(_ context.Context, _ int64) ([]domain.Chunk, error) {
	return nil, nil
}

func (f *fakeStore) UpsertEmbedding(_ context.Context, _ *domain.Embedding) error { return nil }
func (f *fakeStore) UpsertEmbeddings(_ context.Context, _ []domain.Embedding) error { return nil }

func (f *fakeStore) GetEmbedding(_ context.Context, _ int64) (*domain.Embedding, error) {
	return nil, domain.ErrNotFound
}

func (f *fakeStore) SearchSimilar(_ context.Context, _ []float32, _ string, topK int) ([]domain.SearchResult, error) {
	if topK > len(f.searchResults) {
		return f.searchResults, nil
	}
	return f.searchResults[:topK], nil
}

func (f *fakeStore) CountDocuments(_ context.Context) (int64, error) {
	return int64(len(f.docs)), nil
}
func (f *fakeStore) CountChunks(_ context.Context) (int64, error)     { return f.chunkCount, nil }
func (f *fakeStore) CountEmbeddings(_ context.Context) (int64, error) { return f.chunkCount, nil }

func (f *fakeStore) Stats(_ context.Context) (*domain.Stats, error) {
	return &domain.Stats{
		DocumentCount:  int64(len(f.docs)),
		ChunkCount:     f.chunkCount,
		EmbeddingCount: f.chunkCount,
		SizeBytes:      8192,
	}, nil
}

func (f *fakeStore) Vacuum(_ context.Context) error  { f.vacuumed = true; return nil }
func (f *fakeStore) Analyze(_ context.Context) error { f.analyzed = true; return nil }
func (f *fakeStore) Close() error                    { return nil }

type fakeProvider struct {
	vector []float32
	models []domain.ModelInfo
	has    bool
}

func (f *fakeProvider) Embed(_ context.Context, _ string, _ string) ([]float32, error) {
	return f.vector, nil
}

func (f *fakeProvider) EmbedBatch(_ context.Context, _ string, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vector
	}
	return out, nil
}

func (f *fakeProvider) HealthCheck(_ context.Context) bool { return true }

func (f *fakeProvider) ListModels(_ context.Context) ([]domain.ModelInfo, error) {
	return f.models, nil
}

func (f *fakeProvider) HasModel(_ context.Context, _ string) (bool, error) {
	return f.has, nil
}

// setupTestServices injects fakes into the package-level services and
// returns them plus a cleanup that restores the previous state.
func setupTestServices() (*fakeStore, *fakeProvider, func()) {
	fs := newFakeStore()
	fp := &fakeProvider{vector: []float32{1, 0}, has: true}

	prevCfg, prevStore, prevProvider := cfg, store, provider
	cfg = config.Default()
	store = fs
	provider = fp

	return fs, fp, func() {
		cfg, store, provider = prevCfg, prevStore, prevProvider
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}

// --- Tests ---

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "semdex version")
}

func TestSearchCmd_RequiresExactlyOneArg(t *testing.T) {
	_, err := execute(t, "search")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestSearchCmd_HasFlags(t *testing.T) {
	flag := searchCmd.Flags().Lookup("top-k")
	require.NotNil(t, flag)
	assert.Equal(t, "k", flag.Shorthand)

	require.NotNil(t, searchCmd.Flags().Lookup("threshold"))
	require.NotNil(t, searchCmd.Flags().Lookup("format"))
}

func TestSearchCmd_ExecutesWithQuery(t *testing.T) {
	fs, _, cleanup := setupTestServices()
	defer cleanup()

	fs.searchResults = []domain.SearchResult{{
		Chunk:      domain.Chunk{ID: 1, Index: 0, Content: "matching chunk"},
		Document:   domain.Document{ID: 1, Source: "notes.md"},
		Similarity: 0.88,
	}}

	out, err := execute(t, "search", "test query")
	require.NoError(t, err)
	assert.Contains(t, out, "notes.md")
	assert.Contains(t, out, "matching chunk")
}

func TestSearchCmd_NoResults(t *testing.T) {
	_, _, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "search", "nothing matches")
	require.NoError(t, err)
	assert.Contains(t, out, "No results found.")
}

func TestSearchCmd_JSONFormat(t *testing.T) {
	fs, _, cleanup := setupTestServices()
	defer cleanup()
	fs.searchResults = []domain.SearchResult{{
		Chunk:      domain.Chunk{Content: "chunk"},
		Document:   domain.Document{Source: "a.txt"},
		Similarity: 0.5,
	}}

	out, err := execute(t, "search", "query", "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"similarity"`)

	// Reset for other tests.
	searchFormat = "text"
}

func TestSearchCmd_UnknownFormat(t *testing.T) {
	_, _, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "search", "query", "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format")

	searchFormat = "text"
}

func TestIngestCmd(t *testing.T) {
	fs, _, cleanup := setupTestServices()
	defer cleanup()

	dir := t.TempDir()
	path := filepath.Join(dir, "doc.txt")
	require.NoError(t, os.WriteFile(path, []byte("some text content to ingest"), 0600))

	out, err := execute(t, "ingest", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Ingested 1 file(s)")
	assert.Len(t, fs.docs, 1)
}

func TestIngestCmd_ModelUnavailable(t *testing.T) {
	_, fp, cleanup := setupTestServices()
	defer cleanup()
	fp.has = false

	dir := t.TempDir()
	path := filepath.Join(dir, "doc.txt")
	require.NoError(t, os.WriteFile(path, []byte("content"), 0600))

	_, err := execute(t, "ingest", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not available")
}

func TestStatsCmd(t *testing.T) {
	_, _, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Documents:")
	assert.Contains(t, out, "8.0 KiB")
}

func TestOptimizeCmd(t *testing.T) {
	fs, _, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "optimize")
	require.NoError(t, err)
	assert.True(t, fs.vacuumed)
	assert.True(t, fs.analyzed)
	assert.Contains(t, out, "optimized")
}

func TestModelsCmd(t *testing.T) {
	_, fp, cleanup := setupTestServices()
	defer cleanup()
	fp.models = []domain.ModelInfo{{Name: "nomic-embed-text:latest", Size: 1024}}

	out, err := execute(t, "models")
	require.NoError(t, err)
	assert.Contains(t, out, "nomic-embed-text:latest")
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", formatBytes(512))
	assert.Equal(t, "1.0 KiB", formatBytes(1024))
	assert.Equal(t, "1.5 MiB", formatBytes(1536*1024))
}
