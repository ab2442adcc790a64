// Package embeddings converts text into fixed-length vectors via an external
// embedding model. The Batched wrapper splits large inputs into sub-batches
// without disturbing output order; a sub-batch failure fails the whole call
// so partial embeddings are never surfaced as success.
package embeddings

import (
	"context"
	"fmt"
)

// Embedder maps an ordered batch of texts to an ordered batch of equal-length
// vectors; result i corresponds to input i.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Batched wraps an Embedder and splits inputs into sub-batches of at most
// batchSize texts, respecting the backing model's request-size limit.
type Batched struct {
	inner     Embedder
	batchSize int
}

func NewBatched(inner Embedder, batchSize int) (*Batched, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", batchSize)
	}
	return &Batched{inner: inner, batchSize: batchSize}, nil
}

func (b *Batched) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += b.batchSize {
		end := start + b.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch, err := b.inner.Embed(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embed texts [%d,%d): %w", start, end, err)
		}
		if len(batch) != end-start {
			return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(batch), end-start)
		}
		vectors = append(vectors, batch...)
	}

	return vectors, nil
}

var _ Embedder = (*Batched)(nil)
