// Package answer assembles retrieved context and produces a grounded answer
// with source attribution. Grounding is enforced through instruction framing:
// the generation model is told to answer strictly from the supplied context,
// which is a best-effort policy, not a verifiable guarantee.
package answer

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/mlevan/docqa/index"
	"github.com/mlevan/docqa/llm"
)

// NoContextAnswer is returned when retrieval produced no relevant records.
// The generation model is never invoked in that case.
const NoContextAnswer = "I cannot answer this question based on the uploaded documents. No relevant information was found."

// NoDocumentsAnswer is returned when nothing has been indexed yet.
const NoDocumentsAnswer = "There are no documents uploaded and indexed yet. Please upload documents first, then ask your question."

// Source points an answer back at the chunk it was grounded on.
type Source struct {
	FileID     string  `json:"file_id"`
	Filename   string  `json:"filename"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float64 `json:"score"`
	Content    string  `json:"content"`
}

// Response is the per-query output. It is never persisted.
type Response struct {
	Answer   string   `json:"answer"`
	Sources  []Source `json:"sources"`
	Question string   `json:"question"`
}

type Composer struct {
	llm    llm.Client
	logger *log.Logger
}

func NewComposer(client llm.Client, logger *log.Logger) *Composer {
	if logger == nil {
		logger = log.Default()
	}
	return &Composer{llm: client, logger: logger}
}

// Answer builds the context block from the retrieval results and asks the
// generation model. Empty results short-circuit to the fixed no-context
// response without a model call.
func (c *Composer) Answer(ctx context.Context, question string, results []index.Result) (Response, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Response{}, fmt.Errorf("question cannot be empty")
	}

	if len(results) == 0 {
		return Response{
			Answer:   NoContextAnswer,
			Sources:  []Source{},
			Question: question,
		}, nil
	}

	if c.llm == nil {
		return Response{}, fmt.Errorf("llm client is not configured")
	}

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: systemPrompt},
		{Role: llm.RoleUser, Content: userPrompt(question, buildContext(results))},
	}

	generated, err := c.llm.Generate(ctx, messages)
	if err != nil {
		return Response{}, fmt.Errorf("generate answer: %w", err)
	}

	return Response{
		Answer:   strings.TrimSpace(generated),
		Sources:  formatSources(results),
		Question: question,
	}, nil
}

// buildContext concatenates retrieved chunk texts with per-source delimiters
// so the model can attribute claims to documents.
func buildContext(results []index.Result) string {
	var sb strings.Builder
	for i, result := range results {
		sb.WriteString(fmt.Sprintf("[Document %d: %s, Chunk %d]\n", i+1, result.Filename, result.ChunkIndex))
		sb.WriteString(result.Content)
		sb.WriteString("\n\n")
	}
	return sb.String()
}

func formatSources(results []index.Result) []Source {
	sources := make([]Source, len(results))
	for i, result := range results {
		sources[i] = Source{
			FileID:     result.FileID.String(),
			Filename:   result.Filename,
			ChunkIndex: result.ChunkIndex,
			Score:      result.Score,
			Content:    result.Content,
		}
	}
	return sources
}

const systemPrompt = `You are a document-based Q&A assistant. Your only source of information is the context provided from uploaded documents.

Rules you must follow strictly:
1. Use only information from the provided context to answer questions.
2. Do not use any knowledge, facts, or information from outside the provided context.
3. Do not make assumptions or inferences beyond what is explicitly stated in the context.
4. If the context does not contain enough information to answer the question, say: "I cannot answer this question based on the provided documents. The information is not available in the uploaded documents."
5. When referencing information, mention which document (filename) it came from.
6. Only state facts that are directly supported by the context.`

func userPrompt(question, context string) string {
	var sb strings.Builder
	sb.WriteString("Context from uploaded documents:\n\n")
	sb.WriteString(context)
	sb.WriteString("Question: ")
	sb.WriteString(question)
	sb.WriteString("\n\nAnswer using only the context above. If the answer is not in the context, state explicitly that the information is not available in the uploaded documents.")
	return sb.String()
}
