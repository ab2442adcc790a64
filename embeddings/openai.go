package embeddings

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/cenkalti/backoff/v4"
	openai "github.com/sashabaranov/go-openai"

	"github.com/mlevan/docqa/config"
)

type openAIEmbedder struct {
	client     *openai.Client
	model      string
	dimension  int
	maxRetries uint64
}

// NewOpenAIEmbedder builds the production embedder: an OpenAI-compatible
// endpoint wrapped with bounded exponential-backoff retries and sub-batching.
func NewOpenAIEmbedder(cfg config.OpenAIConfig, embedCfg config.EmbeddingConfig) (Embedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is not set")
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	raw := &openAIEmbedder{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      cfg.EmbeddingModel,
		dimension:  cfg.Dimension,
		maxRetries: uint64(embedCfg.MaxRetries),
	}

	return NewBatched(raw, embedCfg.BatchSize)
}

func (e *openAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	var vectors [][]float32

	operation := func() error {
		resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Model: openai.EmbeddingModel(e.model),
			Input: texts,
		})
		if err != nil {
			if isTransient(err) {
				return err
			}
			return backoff.Permanent(err)
		}

		if len(resp.Data) != len(texts) {
			return backoff.Permanent(fmt.Errorf("embedding count mismatch: sent %d texts, got %d vectors", len(texts), len(resp.Data)))
		}

		vectors = make([][]float32, len(texts))
		for i, datum := range resp.Data {
			if e.dimension > 0 && len(datum.Embedding) != e.dimension {
				return backoff.Permanent(fmt.Errorf("embedding dimension mismatch: expected %d, got %d", e.dimension, len(datum.Embedding)))
			}
			vectors[i] = datum.Embedding
		}
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), e.maxRetries), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, fmt.Errorf("create embeddings: %w", err)
	}

	return vectors, nil
}

// isTransient reports whether an embedding call failure is worth retrying:
// rate limits, server-side errors, and transport failures. Auth and request
// errors are permanent.
func isTransient(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= http.StatusInternalServerError
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests || reqErr.HTTPStatusCode >= http.StatusInternalServerError
	}
	// Transport-level failures (timeouts, connection resets) arrive as plain
	// errors from the HTTP client.
	return true
}
