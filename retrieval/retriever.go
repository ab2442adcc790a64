// Package retrieval ranks indexed records against a query vector. It does
// pure ranking: no similarity floor is applied here, relevance judgment
// belongs to the answer composer.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/mlevan/docqa/config"
	"github.com/mlevan/docqa/index"
)

// ErrEmptyIndex distinguishes "no documents indexed yet" from external
// search failures so callers can render different guidance.
var ErrEmptyIndex = errors.New("no documents indexed yet")

type Retriever struct {
	store       index.Store
	defaultTopK int
	maxTopK     int
	logger      *log.Logger
}

func New(store index.Store, cfg config.RetrievalConfig, logger *log.Logger) *Retriever {
	if logger == nil {
		logger = log.Default()
	}
	return &Retriever{
		store:       store,
		defaultTopK: cfg.TopK,
		maxTopK:     cfg.MaxTopK,
		logger:      logger,
	}
}

// Retrieve returns up to topK records most similar to the query vector,
// ordered by descending score. topK <= 0 selects the configured default;
// values above the configured maximum are clamped. Fewer records than topK
// existing is not an error.
func (r *Retriever) Retrieve(ctx context.Context, vector []float32, topK int) ([]index.Result, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("query vector is empty")
	}

	if topK <= 0 {
		topK = r.defaultTopK
	}
	if topK > r.maxTopK {
		r.logger.Printf("top_k %d exceeds maximum, clamping to %d", topK, r.maxTopK)
		topK = r.maxTopK
	}

	total, err := r.store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count indexed records: %w", err)
	}
	if total == 0 {
		return nil, ErrEmptyIndex
	}

	results, err := r.store.Search(ctx, vector, topK)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	return results, nil
}
