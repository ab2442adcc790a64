package chunking

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"github.com/mlevan/docqa/config"
)

// encodingName is the BPE encoding used by the OpenAI embedding and chat
// models this system targets.
const encodingName = "cl100k_base"

// Tokenizer encodes text to token IDs and decodes them back. Decoding a
// sub-slice and concatenating the pieces must reproduce the decoded whole.
type Tokenizer interface {
	Encode(text string) []int
	Decode(tokens []int) string
}

type tiktokenTokenizer struct {
	enc *tiktoken.Tiktoken
}

func (t tiktokenTokenizer) Encode(text string) []int {
	return t.enc.Encode(text, nil, nil)
}

func (t tiktokenTokenizer) Decode(tokens []int) string {
	return t.enc.Decode(tokens)
}

// TokenStrategy slides a fixed-size token window over the encoded text and
// decodes each window back to a text span.
type TokenStrategy struct {
	tokenizer Tokenizer
	size      int
	overlap   int
}

// NewTokenStrategy builds a token-window strategy. A nil tokenizer selects
// the cl100k_base tiktoken encoding.
func NewTokenStrategy(tokenizer Tokenizer, size, overlap int) (*TokenStrategy, error) {
	if err := validateWindow(size, overlap); err != nil {
		return nil, err
	}
	if tokenizer == nil {
		enc, err := tiktoken.GetEncoding(encodingName)
		if err != nil {
			return nil, fmt.Errorf("load %s encoding: %w", encodingName, err)
		}
		tokenizer = tiktokenTokenizer{enc: enc}
	}
	return &TokenStrategy{tokenizer: tokenizer, size: size, overlap: overlap}, nil
}

func (s *TokenStrategy) Mode() string { return config.ChunkModeToken }

func (s *TokenStrategy) Split(text string) ([]Chunk, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	tokens := s.tokenizer.Encode(text)
	windows := slideWindows(len(tokens), s.size, s.overlap)

	chunks := make([]Chunk, 0, len(windows))
	prevEnd := 0
	for i, w := range windows {
		overlap := 0
		if i > 0 {
			overlap = prevEnd - w.start
		}
		chunks = append(chunks, Chunk{
			Index:         i,
			Text:          s.tokenizer.Decode(tokens[w.start:w.end]),
			TokenCount:    w.end - w.start,
			OverlapTokens: overlap,
		})
		prevEnd = w.end
	}
	return chunks, nil
}

var _ Strategy = (*TokenStrategy)(nil)
