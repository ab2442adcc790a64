package answer_test

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/mlevan/docqa/answer"
	"github.com/mlevan/docqa/index"
	"github.com/mlevan/docqa/llm"
)

type stubLLM struct {
	answer   string
	err      error
	called   bool
	messages []llm.Message
}

func (s *stubLLM) Generate(ctx context.Context, messages []llm.Message) (string, error) {
	s.called = true
	s.messages = messages
	if s.err != nil {
		return "", s.err
	}
	return s.answer, nil
}

var _ llm.Client = (*stubLLM)(nil)

func sampleResults() []index.Result {
	return []index.Result{
		{
			ChunkID:    uuid.New(),
			FileID:     uuid.New(),
			Filename:   "handbook.pdf",
			ChunkIndex: 2,
			Content:    "Employees accrue 25 vacation days per year.",
			Score:      0.91,
		},
		{
			ChunkID:    uuid.New(),
			FileID:     uuid.New(),
			Filename:   "policy.pdf",
			ChunkIndex: 0,
			Content:    "Vacation requests require two weeks notice.",
			Score:      0.84,
		},
	}
}

func TestComposerAnswersWithSources(t *testing.T) {
	stub := &stubLLM{answer: "You accrue 25 vacation days per year (handbook.pdf)."}
	composer := answer.NewComposer(stub, log.New(io.Discard, "", 0))

	resp, err := composer.Answer(context.Background(), "How many vacation days do I get?", sampleResults())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !stub.called {
		t.Fatal("expected the generation model to be invoked")
	}
	if resp.Answer != stub.answer {
		t.Fatalf("unexpected answer: %q", resp.Answer)
	}
	if len(resp.Sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(resp.Sources))
	}
	if resp.Sources[0].Filename != "handbook.pdf" || resp.Sources[0].ChunkIndex != 2 {
		t.Fatalf("source attribution lost: %+v", resp.Sources[0])
	}
	if resp.Question != "How many vacation days do I get?" {
		t.Fatalf("question not echoed back: %q", resp.Question)
	}
}

func TestComposerContextCarriesSourceDelimiters(t *testing.T) {
	stub := &stubLLM{answer: "ok"}
	composer := answer.NewComposer(stub, log.New(io.Discard, "", 0))

	if _, err := composer.Answer(context.Background(), "question?", sampleResults()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(stub.messages) != 2 {
		t.Fatalf("expected system + user messages, got %d", len(stub.messages))
	}
	user := stub.messages[1].Content
	if !strings.Contains(user, "[Document 1: handbook.pdf, Chunk 2]") {
		t.Fatal("user prompt missing the first source delimiter")
	}
	if !strings.Contains(user, "[Document 2: policy.pdf, Chunk 0]") {
		t.Fatal("user prompt missing the second source delimiter")
	}
	if !strings.Contains(user, "Employees accrue 25 vacation days per year.") {
		t.Fatal("user prompt missing retrieved chunk text")
	}
}

func TestComposerShortCircuitsWithoutContext(t *testing.T) {
	stub := &stubLLM{answer: "should never be used"}
	composer := answer.NewComposer(stub, log.New(io.Discard, "", 0))

	resp, err := composer.Answer(context.Background(), "anything?", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if stub.called {
		t.Fatal("generation model must not be invoked with empty retrieval results")
	}
	if resp.Answer != answer.NoContextAnswer {
		t.Fatalf("expected the fixed no-context answer, got %q", resp.Answer)
	}
	if len(resp.Sources) != 0 {
		t.Fatalf("expected no sources, got %d", len(resp.Sources))
	}
}

func TestComposerRejectsEmptyQuestion(t *testing.T) {
	composer := answer.NewComposer(&stubLLM{}, log.New(io.Discard, "", 0))
	if _, err := composer.Answer(context.Background(), "   ", sampleResults()); err == nil {
		t.Fatal("expected error for empty question")
	}
}

func TestComposerPropagatesGenerationFailure(t *testing.T) {
	stub := &stubLLM{err: errors.New("service unavailable")}
	composer := answer.NewComposer(stub, log.New(io.Discard, "", 0))

	if _, err := composer.Answer(context.Background(), "question?", sampleResults()); err == nil {
		t.Fatal("expected generation failure to propagate")
	}
}
