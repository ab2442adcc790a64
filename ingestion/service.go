// Package ingestion runs the upload pipeline for one document: store the
// original payload, extract text, chunk, embed, index. Steps run strictly in
// that order; independent documents may be ingested concurrently because the
// only shared state is the index store.
package ingestion

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/mlevan/docqa/blobstore"
	"github.com/mlevan/docqa/chunking"
	"github.com/mlevan/docqa/embeddings"
	"github.com/mlevan/docqa/extract"
	"github.com/mlevan/docqa/index"
)

// Result reports the outcome of one document ingestion.
type Result struct {
	FileID     uuid.UUID
	Filename   string
	BlobURL    string
	ChunkCount int
}

type Service struct {
	chunker  chunking.Strategy
	embedder embeddings.Embedder
	store    index.Store
	blobs    blobstore.Store
	logger   *log.Logger
}

func NewService(chunker chunking.Strategy, embedder embeddings.Embedder, store index.Store, blobs blobstore.Store, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		chunker:  chunker,
		embedder: embedder,
		store:    store,
		blobs:    blobs,
		logger:   logger,
	}
}

// IngestDocument pushes one uploaded file through the pipeline. A failure at
// any step leaves the document entirely absent from retrieval: indexing is
// transactional in the store, and the stored blob is cleaned up best-effort.
// Text that produces zero chunks is a no-op, not an error.
func (s *Service) IngestDocument(ctx context.Context, filename, contentType string, data []byte) (Result, error) {
	if s.chunker == nil || s.embedder == nil || s.store == nil {
		return Result{}, fmt.Errorf("ingestion service is not fully configured")
	}

	fileID := uuid.New()
	result := Result{FileID: fileID, Filename: filename}

	blobURL := ""
	if s.blobs != nil {
		url, err := s.blobs.Put(ctx, fileID, filename, data)
		if err != nil {
			return Result{}, fmt.Errorf("store original file: %w", err)
		}
		blobURL = url
		result.BlobURL = url
	}

	text, err := extract.Text(filename, data)
	if err != nil {
		s.discardBlob(ctx, fileID)
		return Result{}, fmt.Errorf("extract text: %w", err)
	}

	chunks, err := s.chunker.Split(text)
	if err != nil {
		s.discardBlob(ctx, fileID)
		return Result{}, fmt.Errorf("chunk text: %w", err)
	}
	if len(chunks) == 0 {
		// Nothing will be indexed, so the stored original must not outlive
		// this call either.
		s.discardBlob(ctx, fileID)
		result.BlobURL = ""
		s.logger.Printf("document %s produced no chunks, skipping indexing", filename)
		return result, nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		s.discardBlob(ctx, fileID)
		return Result{}, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		s.discardBlob(ctx, fileID)
		return Result{}, fmt.Errorf("embedding count mismatch: %d chunks, %d vectors", len(chunks), len(vectors))
	}

	doc := index.Document{
		FileID:      fileID,
		Filename:    filename,
		ContentType: contentType,
		BlobURL:     blobURL,
		UploadedAt:  time.Now().UTC(),
	}

	records := make([]index.Record, len(chunks))
	for i, chunk := range chunks {
		records[i] = index.Record{
			ChunkID:    uuid.New(),
			FileID:     fileID,
			Filename:   filename,
			ChunkIndex: chunk.Index,
			Content:    chunk.Text,
			TokenCount: chunk.TokenCount,
			Embedding:  vectors[i],
		}
	}

	if err := s.store.Upsert(ctx, doc, records); err != nil {
		s.discardBlob(ctx, fileID)
		return Result{}, fmt.Errorf("index document: %w", err)
	}

	result.ChunkCount = len(records)
	s.logger.Printf("ingested %s as %s (%d chunks)", filename, fileID, len(records))
	return result, nil
}

// DeleteDocument removes a document's indexed records and its stored blob.
func (s *Service) DeleteDocument(ctx context.Context, fileID uuid.UUID) error {
	if err := s.store.DeleteDocument(ctx, fileID); err != nil {
		return err
	}
	s.discardBlob(ctx, fileID)
	s.logger.Printf("deleted document %s", fileID)
	return nil
}

func (s *Service) discardBlob(ctx context.Context, fileID uuid.UUID) {
	if s.blobs == nil {
		return
	}
	if err := s.blobs.Delete(ctx, fileID); err != nil {
		s.logger.Printf("blob cleanup for %s failed: %v", fileID, err)
	}
}
