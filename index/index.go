// Package index persists chunk records with their embedding vectors and
// serves similarity queries. The store is the only shared mutable resource in
// the pipeline and is written append/delete-only per document: re-indexing a
// document always means delete-all-for-file_id then insert-all.
package index

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrDocumentNotFound is returned when a delete targets an unknown file_id.
var ErrDocumentNotFound = errors.New("document not found")

// Document is the per-file identity a set of records belongs to.
type Document struct {
	FileID      uuid.UUID
	Filename    string
	ContentType string
	BlobURL     string
	UploadedAt  time.Time
}

// Record is the stored unit of retrieval: one chunk, its vector, and the
// identity needed to attribute it back to a document.
type Record struct {
	ChunkID    uuid.UUID
	FileID     uuid.UUID
	Filename   string
	ChunkIndex int
	Content    string
	TokenCount int
	Embedding  []float32
}

// Result is a ranked record with its similarity score in [0,1].
type Result struct {
	ChunkID    uuid.UUID
	FileID     uuid.UUID
	Filename   string
	ChunkIndex int
	Content    string
	Score      float64
}

// Store is the external vector index. Upsert is all-or-nothing per document:
// either every record for the document becomes queryable or none does.
// Search returns up to limit results ordered by descending similarity, ties
// broken by insertion recency (most recently indexed first).
type Store interface {
	Upsert(ctx context.Context, doc Document, records []Record) error
	DeleteDocument(ctx context.Context, fileID uuid.UUID) error
	Search(ctx context.Context, vector []float32, limit int) ([]Result, error)
	Count(ctx context.Context) (int64, error)
}
