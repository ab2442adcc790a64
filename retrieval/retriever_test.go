package retrieval_test

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"github.com/google/uuid"

	"github.com/mlevan/docqa/config"
	"github.com/mlevan/docqa/index"
	"github.com/mlevan/docqa/retrieval"
)

func seededStore(t *testing.T, embeddings [][]float32) *index.MemoryStore {
	t.Helper()
	store := index.NewMemoryStore()
	doc := index.Document{FileID: uuid.New(), Filename: "doc.pdf"}
	records := make([]index.Record, len(embeddings))
	for i, embedding := range embeddings {
		records[i] = index.Record{
			ChunkID:    uuid.New(),
			FileID:     doc.FileID,
			Filename:   doc.Filename,
			ChunkIndex: i,
			Embedding:  embedding,
		}
	}
	if err := store.Upsert(context.Background(), doc, records); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return store
}

func newRetriever(store index.Store) *retrieval.Retriever {
	cfg := config.RetrievalConfig{TopK: 2, MaxTopK: 3}
	return retrieval.New(store, cfg, log.New(io.Discard, "", 0))
}

func TestRetrieveUsesDefaultTopK(t *testing.T) {
	store := seededStore(t, [][]float32{{1, 0}, {0, 1}, {1, 1}, {0.5, 0.5}})
	r := newRetriever(store)

	results, err := r.Retrieve(context.Background(), []float32{1, 0}, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected default top_k of 2 results, got %d", len(results))
	}
}

func TestRetrieveClampsTopKToMaximum(t *testing.T) {
	store := seededStore(t, [][]float32{{1, 0}, {0, 1}, {1, 1}, {0.5, 0.5}})
	r := newRetriever(store)

	results, err := r.Retrieve(context.Background(), []float32{1, 0}, 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected results clamped to max top_k of 3, got %d", len(results))
	}
}

func TestRetrieveReturnsAllWhenFewerThanTopK(t *testing.T) {
	store := seededStore(t, [][]float32{{1, 0}})
	r := newRetriever(store)

	results, err := r.Retrieve(context.Background(), []float32{1, 0}, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected the single available record, got %d", len(results))
	}
}

func TestRetrieveSortedByDescendingScore(t *testing.T) {
	store := seededStore(t, [][]float32{{0, 1}, {1, 0}, {0.7, 0.7}})
	r := newRetriever(store)

	results, err := r.Retrieve(context.Background(), []float32{1, 0}, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Fatalf("results not ordered by descending score at position %d", i)
		}
	}
}

func TestRetrieveEmptyIndex(t *testing.T) {
	r := newRetriever(index.NewMemoryStore())

	_, err := r.Retrieve(context.Background(), []float32{1, 0}, 3)
	if !errors.Is(err, retrieval.ErrEmptyIndex) {
		t.Fatalf("expected ErrEmptyIndex, got %v", err)
	}
}

func TestRetrieveRejectsEmptyVector(t *testing.T) {
	r := newRetriever(index.NewMemoryStore())

	if _, err := r.Retrieve(context.Background(), nil, 3); err == nil {
		t.Fatal("expected error for empty query vector")
	}
}
