package index

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// PostgresStore keeps indexed records in Postgres with pgvector for
// similarity search.
type PostgresStore struct {
	pool      *pgxpool.Pool
	dimension int
}

func NewPostgresStore(pool *pgxpool.Pool, dimension int) (*PostgresStore, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("embedding dimension must be positive, got %d", dimension)
	}
	return &PostgresStore{pool: pool, dimension: dimension}, nil
}

// EnsureSchema creates the tables and indexes if they do not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		"CREATE EXTENSION IF NOT EXISTS vector",
		`CREATE TABLE IF NOT EXISTS documents (
			id UUID PRIMARY KEY,
			filename TEXT NOT NULL,
			content_type TEXT,
			blob_url TEXT,
			uploaded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS document_chunks (
			id UUID PRIMARY KEY,
			file_id UUID NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			filename TEXT NOT NULL,
			chunk_index INT NOT NULL,
			content TEXT NOT NULL,
			token_count INT NOT NULL,
			embedding VECTOR(%d) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE(file_id, chunk_index)
		)`, s.dimension),
		"CREATE INDEX IF NOT EXISTS idx_document_chunks_file ON document_chunks(file_id)",
		"CREATE INDEX IF NOT EXISTS idx_document_chunks_embedding ON document_chunks USING ivfflat (embedding vector_cosine_ops)",
	}

	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("execute schema statement: %w", err)
		}
	}
	return nil
}

// Upsert replaces all records for doc.FileID in a single transaction. If any
// insert fails the transaction rolls back, so a document is never left
// partially queryable.
func (s *PostgresStore) Upsert(ctx context.Context, doc Document, records []Record) (err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, "DELETE FROM documents WHERE id = $1", doc.FileID); err != nil {
		return fmt.Errorf("clear existing document: %w", err)
	}

	if _, err = tx.Exec(ctx, `
		INSERT INTO documents (id, filename, content_type, blob_url, uploaded_at)
		VALUES ($1, $2, $3, $4, $5)
	`, doc.FileID, doc.Filename, doc.ContentType, doc.BlobURL, doc.UploadedAt); err != nil {
		return fmt.Errorf("insert document: %w", err)
	}

	for _, record := range records {
		if _, err = tx.Exec(ctx, `
			INSERT INTO document_chunks (id, file_id, filename, chunk_index, content, token_count, embedding, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		`, record.ChunkID, record.FileID, record.Filename, record.ChunkIndex, record.Content, record.TokenCount, pgvector.NewVector(record.Embedding)); err != nil {
			return fmt.Errorf("insert chunk %d: %w", record.ChunkIndex, err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteDocument(ctx context.Context, fileID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM documents WHERE id = $1", fileID)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDocumentNotFound
	}
	return nil
}

func (s *PostgresStore) Search(ctx context.Context, vector []float32, limit int) ([]Result, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("query vector is empty")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	probes := limit * 10
	if probes < 10 {
		probes = 10
	}
	if _, err := conn.Exec(ctx, fmt.Sprintf("SET ivfflat.probes = %d", probes)); err != nil {
		return nil, fmt.Errorf("set ivfflat probes: %w", err)
	}

	rows, err := conn.Query(ctx, `
		SELECT
			dc.id,
			dc.file_id,
			dc.filename,
			dc.chunk_index,
			dc.content,
			(dc.embedding <=> $1::vector) AS distance
		FROM document_chunks dc
		ORDER BY dc.embedding <=> $1::vector ASC, dc.created_at DESC, dc.chunk_index DESC
		LIMIT $2
	`, pgvector.NewVector(vector), limit)
	if err != nil {
		return nil, fmt.Errorf("query similar chunks: %w", err)
	}
	defer rows.Close()

	results := make([]Result, 0, limit)
	for rows.Next() {
		var item Result
		var distance float64
		if err := rows.Scan(&item.ChunkID, &item.FileID, &item.Filename, &item.ChunkIndex, &item.Content, &distance); err != nil {
			return nil, fmt.Errorf("scan similar chunk: %w", err)
		}
		item.Score = cosineScore(distance)
		results = append(results, item)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return results, nil
}

func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM document_chunks").Scan(&count); err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return count, nil
}

// cosineScore maps pgvector's cosine distance (0..2) onto a similarity score
// clamped to [0,1].
func cosineScore(distance float64) float64 {
	score := 1 - distance
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

var _ Store = (*PostgresStore)(nil)
