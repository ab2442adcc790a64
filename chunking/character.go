package chunking

import (
	"strings"

	"github.com/mlevan/docqa/config"
)

// CharacterStrategy applies the same sliding-window contract at rune
// granularity, scaling the configured token sizes by CharsPerToken. It is a
// drop-in substitute for the token strategy when no tokenizer is wanted:
// downstream components see the same chunk shape.
type CharacterStrategy struct {
	size    int // window size in runes
	overlap int // overlap in runes
}

func NewCharacterStrategy(chunkTokens, overlapTokens int) (*CharacterStrategy, error) {
	if err := validateWindow(chunkTokens, overlapTokens); err != nil {
		return nil, err
	}
	return &CharacterStrategy{
		size:    chunkTokens * CharsPerToken,
		overlap: overlapTokens * CharsPerToken,
	}, nil
}

func (s *CharacterStrategy) Mode() string { return config.ChunkModeCharacter }

func (s *CharacterStrategy) Split(text string) ([]Chunk, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	runes := []rune(text)
	windows := slideWindows(len(runes), s.size, s.overlap)

	chunks := make([]Chunk, 0, len(windows))
	prevEnd := 0
	for i, w := range windows {
		overlap := 0
		if i > 0 {
			overlap = prevEnd - w.start
		}
		chunks = append(chunks, Chunk{
			Index:         i,
			Text:          string(runes[w.start:w.end]),
			TokenCount:    ceilDiv(w.end-w.start, CharsPerToken),
			OverlapTokens: overlap / CharsPerToken,
		})
		prevEnd = w.end
	}
	return chunks, nil
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

var _ Strategy = (*CharacterStrategy)(nil)
