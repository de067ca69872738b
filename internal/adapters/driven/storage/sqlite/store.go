package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/semdex/semdex/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/semdex/semdex/internal/core/domain"
	"github.com/semdex/semdex/internal/core/ports/driven"
	"github.com/semdex/semdex/internal/logger"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// Store is the SQLite-backed vector store. It owns the documents, chunks,
// and embeddings tables, the binary vector codec, and the similarity scan.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (or creates) the database at dbPath.
// If dbPath is empty, defaults to ~/.semdex/data/vectors.db.
func NewStore(dbPath string) (*Store, error) {
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dbPath = filepath.Join(home, ".semdex", "data", "vectors.db")
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	// WAL journaling allows concurrent readers with a single active writer;
	// NORMAL synchronous trades a little durability for write throughput.
	db, err := sql.Open("sqlite", dbPath+
		"?_pragma=journal_mode(WAL)"+
		"&_pragma=synchronous(NORMAL)"+
		"&_pragma=busy_timeout(5000)"+
		"&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Document Operations ====================

// InsertDocument persists a new document and returns its assigned id.
func (s *Store) InsertDocument(ctx context.Context, doc *domain.Document) (int64, error) {
	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return 0, fmt.Errorf("marshalling metadata: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (source, content_hash, metadata, created_at)
		VALUES (?, ?, ?, ?)
	`, doc.Source, doc.ContentHash, string(metadataJSON), doc.CreatedAt.Unix())
	if err != nil {
		return 0, fmt.Errorf("inserting document: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading document id: %w", err)
	}

	logger.Debug("inserted document %d (%s)", id, doc.Source)
	return id, nil
}

// GetDocument retrieves a document by id.
func (s *Store) GetDocument(ctx context.Context, id int64) (*domain.Document, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, source, content_hash, metadata, created_at
		FROM documents WHERE id = ?
	`, id)

	return scanDocument(row.Scan)
}

// GetDocumentByHash retrieves a document by its content fingerprint.
func (s *Store) GetDocumentByHash(ctx context.Context, contentHash string) (*domain.Document, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, source, content_hash, metadata, created_at
		FROM documents WHERE content_hash = ?
	`, contentHash)

	return scanDocument(row.Scan)
}

// CountDocuments returns the total number of documents.
func (s *Store) CountDocuments(ctx context.Context) (int64, error) {
	return s.count(ctx, "documents")
}

// ==================== Chunk Operations ====================

// InsertChunk persists a single chunk and returns its assigned id.
func (s *Store) InsertChunk(ctx context.Context, chunk *domain.Chunk) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO chunks (document_id, chunk_index, content, token_count)
		VALUES (?, ?, ?, ?)
	`, chunk.DocumentID, chunk.Index, chunk.Content, chunk.TokenCount)
	if err != nil {
		return 0, fmt.Errorf("inserting chunk: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading chunk id: %w", err)
	}
	return id, nil
}

// InsertChunks persists a batch of chunks in one transaction, returning
// assigned ids in input order.
func (s *Store) InsertChunks(ctx context.Context, chunks []domain.Chunk) ([]int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // No-op after commit

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (document_id, chunk_index, content, token_count)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return nil, fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	ids := make([]int64, 0, len(chunks))
	for i := range chunks {
		res, err := stmt.ExecContext(ctx, chunks[i].DocumentID, chunks[i].Index,
			chunks[i].Content, chunks[i].TokenCount)
		if err != nil {
			return nil, fmt.Errorf("inserting chunk %d: %w", chunks[i].Index, err)
		}

		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("reading chunk id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	return ids, nil
}

// GetChunk retrieves a chunk by id.
func (s *Store) GetChunk(ctx context.Context, id int64) (*domain.Chunk, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, document_id, chunk_index, content, token_count
		FROM chunks WHERE id = ?
	`, id)

	var chunk domain.Chunk
	if err := row.Scan(&chunk.ID, &chunk.DocumentID, &chunk.Index,
		&chunk.Content, &chunk.TokenCount); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning chunk: %w", err)
	}

	return &chunk, nil
}

// GetChunksForDocument returns a document's chunks ordered by index.
func (s *Store) GetChunksForDocument(ctx context.Context, documentID int64) ([]domain.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, chunk_index, content, token_count
		FROM chunks WHERE document_id = ?
		ORDER BY chunk_index
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var chunks []domain.Chunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		var chunk domain.Chunk
		if err := rows.Scan(&chunk.ID, &chunk.DocumentID, &chunk.Index,
			&chunk.Content, &chunk.TokenCount); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		chunks = append(chunks, chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}

	return chunks, nil
}

// CountChunks returns the total number of chunks.
func (s *Store) CountChunks(ctx context.Context) (int64, error) {
	return s.count(ctx, "chunks")
}

// ==================== Embedding Operations ====================

// UpsertEmbedding inserts or replaces the embedding for a chunk. The write
// is all-or-nothing for one chunk.
func (s *Store) UpsertEmbedding(ctx context.Context, emb *domain.Embedding) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO embeddings (chunk_id, model, vector, dimension)
		VALUES (?, ?, ?, ?)
	`, emb.ChunkID, emb.Model, float32SliceToBytes(emb.Vector), emb.Dimension)
	if err != nil {
		return fmt.Errorf("upserting embedding: %w", err)
	}
	return nil
}

// UpsertEmbeddings upserts a batch of embeddings in one transaction.
func (s *Store) UpsertEmbeddings(ctx context.Context, embs []domain.Embedding) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // No-op after commit

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO embeddings (chunk_id, model, vector, dimension)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for i := range embs {
		if _, err := stmt.ExecContext(ctx, embs[i].ChunkID, embs[i].Model,
			float32SliceToBytes(embs[i].Vector), embs[i].Dimension); err != nil {
			return fmt.Errorf("upserting embedding for chunk %d: %w", embs[i].ChunkID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// GetEmbedding retrieves the embedding for a chunk.
func (s *Store) GetEmbedding(ctx context.Context, chunkID int64) (*domain.Embedding, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT chunk_id, model, vector, dimension
		FROM embeddings WHERE chunk_id = ?
	`, chunkID)

	var emb domain.Embedding
	var blob []byte
	if err := row.Scan(&emb.ChunkID, &emb.Model, &blob, &emb.Dimension); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning embedding: %w", err)
	}

	emb.Vector = bytesToFloat32Slice(blob)
	return &emb, nil
}

// CountEmbeddings returns the total number of embeddings.
func (s *Store) CountEmbeddings(ctx context.Context) (int64, error) {
	return s.count(ctx, "embeddings")
}

// ==================== Search ====================

// SearchSimilar loads every stored embedding for the model, scores each
// against the query vector with cosine similarity, and returns the topK
// highest-scoring results in descending order. This is an exact linear scan:
// cost is O(stored embeddings) per query. Ties keep storage iteration order.
func (s *Store) SearchSimilar(ctx context.Context, query []float32, model string, topK int) ([]domain.SearchResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.vector,
		       c.id, c.document_id, c.chunk_index, c.content, c.token_count,
		       d.id, d.source, d.content_hash, d.metadata, d.created_at
		FROM embeddings e
		JOIN chunks c ON e.chunk_id = c.id
		JOIN documents d ON c.document_id = d.id
		WHERE e.model = ?
	`, model)
	if err != nil {
		return nil, fmt.Errorf("querying embeddings: %w", err)
	}
	defer rows.Close()

	var results []domain.SearchResult //nolint:prealloc // size unknown from query
	for rows.Next() {
		var (
			blob         []byte
			chunk        domain.Chunk
			doc          domain.Document
			metadataJSON string
			createdAt    int64
		)
		if err := rows.Scan(&blob,
			&chunk.ID, &chunk.DocumentID, &chunk.Index, &chunk.Content, &chunk.TokenCount,
			&doc.ID, &doc.Source, &doc.ContentHash, &metadataJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning search row: %w", err)
		}

		if metadataJSON != "" {
			if err := json.Unmarshal([]byte(metadataJSON), &doc.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshaling metadata: %w", err)
			}
		}
		doc.CreatedAt = time.Unix(createdAt, 0).UTC()

		results = append(results, domain.SearchResult{
			Chunk:      chunk,
			Document:   doc,
			Similarity: cosineSimilarity(query, bytesToFloat32Slice(blob)),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating search rows: %w", err)
	}

	// Stable keeps storage order for exact ties.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if len(results) > topK {
		results = results[:topK]
	}

	return results, nil
}

// ==================== Maintenance ====================

// Vacuum reclaims unused space. Blocking; callers must ensure no conflicting
// writers.
func (s *Store) Vacuum(ctx context.Context) error {
	logger.Info("running VACUUM on %s", s.path)
	if _, err := s.db.ExecContext(ctx, "VACUUM"); err != nil {
		return fmt.Errorf("vacuuming database: %w", err)
	}
	return nil
}

// Analyze refreshes query-planner statistics.
func (s *Store) Analyze(ctx context.Context) error {
	logger.Info("running ANALYZE on %s", s.path)
	if _, err := s.db.ExecContext(ctx, "ANALYZE"); err != nil {
		return fmt.Errorf("analyzing database: %w", err)
	}
	return nil
}

// Stats returns counts plus the database size in bytes.
func (s *Store) Stats(ctx context.Context) (*domain.Stats, error) {
	docs, err := s.CountDocuments(ctx)
	if err != nil {
		return nil, err
	}
	chunks, err := s.CountChunks(ctx)
	if err != nil {
		return nil, err
	}
	embeddings, err := s.CountEmbeddings(ctx)
	if err != nil {
		return nil, err
	}

	var pageCount, pageSize int64
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err != nil {
		return nil, fmt.Errorf("reading page count: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize); err != nil {
		return nil, fmt.Errorf("reading page size: %w", err)
	}

	return &domain.Stats{
		DocumentCount:  docs,
		ChunkCount:     chunks,
		EmbeddingCount: embeddings,
		SizeBytes:      pageCount * pageSize,
	}, nil
}

// ==================== Helper Functions ====================

// count runs COUNT(*) against one of the store's own tables.
func (s *Store) count(ctx context.Context, table string) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting %s: %w", table, err)
	}
	return n, nil
}

// scanDocument scans one document row via the given scan func.
func scanDocument(scan func(dest ...any) error) (*domain.Document, error) {
	var doc domain.Document
	var metadataJSON string
	var createdAt int64

	if err := scan(&doc.ID, &doc.Source, &doc.ContentHash, &metadataJSON, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}

	if metadataJSON != "" {
		if err := json.Unmarshal([]byte(metadataJSON), &doc.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshaling metadata: %w", err)
		}
	}
	doc.CreatedAt = time.Unix(createdAt, 0).UTC()

	return &doc, nil
}
