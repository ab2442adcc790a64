// Package query runs the question pipeline: embed the question, retrieve the
// most similar chunks, compose a grounded answer. Nothing is persisted
// between queries.
package query

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/mlevan/docqa/answer"
	"github.com/mlevan/docqa/embeddings"
	"github.com/mlevan/docqa/retrieval"
)

type Service struct {
	embedder  embeddings.Embedder
	retriever *retrieval.Retriever
	composer  *answer.Composer
	logger    *log.Logger
}

func NewService(embedder embeddings.Embedder, retriever *retrieval.Retriever, composer *answer.Composer, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		embedder:  embedder,
		retriever: retriever,
		composer:  composer,
		logger:    logger,
	}
}

// Ask answers a question from indexed documents. topK <= 0 selects the
// configured default. An empty index yields the fixed "no documents" answer
// rather than an error; external failures propagate wrapped.
func (s *Service) Ask(ctx context.Context, question string, topK int) (answer.Response, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return answer.Response{}, fmt.Errorf("question cannot be empty")
	}

	vectors, err := s.embedder.Embed(ctx, []string{question})
	if err != nil {
		return answer.Response{}, fmt.Errorf("embed question: %w", err)
	}
	if len(vectors) != 1 {
		return answer.Response{}, fmt.Errorf("embedder returned %d vectors for one question", len(vectors))
	}

	results, err := s.retriever.Retrieve(ctx, vectors[0], topK)
	if err != nil {
		if errors.Is(err, retrieval.ErrEmptyIndex) {
			s.logger.Printf("question received before any documents were indexed")
			return answer.Response{
				Answer:   answer.NoDocumentsAnswer,
				Sources:  []answer.Source{},
				Question: question,
			}, nil
		}
		return answer.Response{}, fmt.Errorf("retrieve context: %w", err)
	}

	return s.composer.Answer(ctx, question, results)
}
