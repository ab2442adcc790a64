package chunking_test

import (
	"strings"
	"testing"

	"github.com/mlevan/docqa/chunking"
	"github.com/mlevan/docqa/config"
)

// runeTokenizer treats every rune as one token, which makes window boundary
// arithmetic directly observable in tests.
type runeTokenizer struct{}

func (runeTokenizer) Encode(text string) []int {
	runes := []rune(text)
	tokens := make([]int, len(runes))
	for i, r := range runes {
		tokens[i] = int(r)
	}
	return tokens
}

func (runeTokenizer) Decode(tokens []int) string {
	runes := make([]rune, len(tokens))
	for i, tok := range tokens {
		runes[i] = rune(tok)
	}
	return string(runes)
}

func repeatedText(n int) string {
	var sb strings.Builder
	for i := 0; i < n; i++ {
		sb.WriteRune(rune('a' + i%26))
	}
	return sb.String()
}

func TestTokenStrategyBoundaryArithmetic(t *testing.T) {
	strategy, err := chunking.NewTokenStrategy(runeTokenizer{}, 500, 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	text := repeatedText(1000)
	chunks, err := strategy.Split(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}

	runes := []rune(text)
	bounds := []struct{ start, end, overlap int }{
		{0, 500, 0},
		{450, 950, 50},
		{900, 1000, 50},
	}
	for i, b := range bounds {
		if chunks[i].Index != i {
			t.Fatalf("chunk %d: expected index %d, got %d", i, i, chunks[i].Index)
		}
		if want := string(runes[b.start:b.end]); chunks[i].Text != want {
			t.Fatalf("chunk %d: text does not match window [%d,%d)", i, b.start, b.end)
		}
		if want := b.end - b.start; chunks[i].TokenCount != want {
			t.Fatalf("chunk %d: expected %d tokens, got %d", i, want, chunks[i].TokenCount)
		}
		if chunks[i].OverlapTokens != b.overlap {
			t.Fatalf("chunk %d: expected overlap %d, got %d", i, b.overlap, chunks[i].OverlapTokens)
		}
	}
}

func TestTokenStrategyReconstructsOriginal(t *testing.T) {
	strategy, err := chunking.NewTokenStrategy(runeTokenizer{}, 64, 16)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	text := repeatedText(1003)
	chunks, err := strategy.Split(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var sb strings.Builder
	for _, chunk := range chunks {
		runes := []rune(chunk.Text)
		sb.WriteString(string(runes[chunk.OverlapTokens:]))
	}
	if sb.String() != text {
		t.Fatal("concatenated chunks minus overlaps do not reconstruct the original text")
	}
}

func TestTokenStrategyShortText(t *testing.T) {
	strategy, err := chunking.NewTokenStrategy(runeTokenizer{}, 100, 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	chunks, err := strategy.Split("short document")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].OverlapTokens != 0 {
		t.Fatalf("single chunk must have zero overlap, got %d", chunks[0].OverlapTokens)
	}
	if chunks[0].Text != "short document" {
		t.Fatalf("unexpected chunk text: %q", chunks[0].Text)
	}
}

func TestTokenStrategyEmptyText(t *testing.T) {
	strategy, err := chunking.NewTokenStrategy(runeTokenizer{}, 100, 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, text := range []string{"", "   \n\t"} {
		chunks, err := strategy.Split(text)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(chunks) != 0 {
			t.Fatalf("expected no chunks for %q, got %d", text, len(chunks))
		}
	}
}

func TestTokenStrategyMergesShortTail(t *testing.T) {
	strategy, err := chunking.NewTokenStrategy(runeTokenizer{}, 10, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 16 tokens with step 6: the window at 12 would hold only 4 tokens,
	// which is below the overlap+1 minimum, so it merges into the previous
	// chunk and that chunk extends to the end of the text.
	text := repeatedText(16)
	chunks, err := strategy.Split(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks after tail merge, got %d", len(chunks))
	}
	if chunks[1].TokenCount != 10 {
		t.Fatalf("expected merged chunk of 10 tokens, got %d", chunks[1].TokenCount)
	}

	runes := []rune(text)
	if want := string(runes[6:16]); chunks[1].Text != want {
		t.Fatalf("merged chunk does not cover to end of text: %q", chunks[1].Text)
	}
}

func TestTokenStrategyDeterministic(t *testing.T) {
	strategy, err := chunking.NewTokenStrategy(runeTokenizer{}, 50, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	text := repeatedText(777)
	first, err := strategy.Split(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := strategy.Split(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("chunk counts differ between runs: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("chunk %d differs between runs", i)
		}
	}
}

func TestTokenStrategyRejectsInvalidOverlap(t *testing.T) {
	if _, err := chunking.NewTokenStrategy(runeTokenizer{}, 100, 100); err == nil {
		t.Fatal("expected error when overlap equals chunk size")
	}
	if _, err := chunking.NewTokenStrategy(runeTokenizer{}, 100, 150); err == nil {
		t.Fatal("expected error when overlap exceeds chunk size")
	}
}

func TestCharacterStrategyReconstructsOriginal(t *testing.T) {
	strategy, err := chunking.NewCharacterStrategy(5, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	text := repeatedText(137)
	chunks, err := strategy.Split(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	var sb strings.Builder
	for _, chunk := range chunks {
		runes := []rune(chunk.Text)
		sb.WriteString(string(runes[chunk.OverlapTokens*chunking.CharsPerToken:]))
	}
	if sb.String() != text {
		t.Fatal("character chunks minus overlaps do not reconstruct the original text")
	}
}

func TestCharacterStrategyChunkShape(t *testing.T) {
	strategy, err := chunking.NewCharacterStrategy(5, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	chunks, err := strategy.Split(repeatedText(50))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i, chunk := range chunks {
		if chunk.Index != i {
			t.Fatalf("expected contiguous indices, chunk %d has index %d", i, chunk.Index)
		}
		if i > 0 && chunk.OverlapTokens != 1 {
			t.Fatalf("chunk %d: expected overlap of 1 token, got %d", i, chunk.OverlapTokens)
		}
	}
}

func TestNewSelectsStrategyFromConfig(t *testing.T) {
	charStrategy, err := chunking.New(config.ChunkingConfig{Mode: config.ChunkModeCharacter, ChunkSize: 100, Overlap: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if charStrategy.Mode() != config.ChunkModeCharacter {
		t.Fatalf("expected character mode, got %s", charStrategy.Mode())
	}

	if _, err := chunking.New(config.ChunkingConfig{Mode: "sentences", ChunkSize: 100, Overlap: 10}); err == nil {
		t.Fatal("expected error for unknown chunking mode")
	}
}
