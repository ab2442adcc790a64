// Package chunking splits extracted document text into overlapping,
// token-bounded chunks. Two strategies implement the same sliding-window
// contract: token windows over a BPE tokenizer and character windows using an
// approximate token-to-character ratio. The strategy is selected explicitly
// from configuration at startup.
package chunking

import (
	"fmt"

	"github.com/mlevan/docqa/config"
)

// CharsPerToken is the approximation used by the character strategy.
const CharsPerToken = 4

// Chunk is one bounded slice of a document's text. Indices are contiguous
// from zero; concatenating a document's chunks while dropping each chunk's
// overlap with its predecessor reproduces the original text.
type Chunk struct {
	Index         int
	Text          string
	TokenCount    int
	OverlapTokens int
}

// Strategy produces an ordered, gapless chunk sequence covering the input
// text. Empty or whitespace-only input yields zero chunks.
type Strategy interface {
	Split(text string) ([]Chunk, error)
	Mode() string
}

// New builds the strategy named by cfg.Mode.
func New(cfg config.ChunkingConfig) (Strategy, error) {
	switch cfg.Mode {
	case config.ChunkModeToken:
		return NewTokenStrategy(nil, cfg.ChunkSize, cfg.Overlap)
	case config.ChunkModeCharacter:
		return NewCharacterStrategy(cfg.ChunkSize, cfg.Overlap)
	default:
		return nil, fmt.Errorf("unknown chunking mode: %s", cfg.Mode)
	}
}

func validateWindow(size, overlap int) error {
	if size <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return fmt.Errorf("overlap must satisfy 0 <= overlap < chunk size, got overlap=%d size=%d", overlap, size)
	}
	return nil
}

type window struct {
	start, end int
}

// slideWindows computes half-open [start,end) windows over n units with the
// given size and overlap. The step between windows is size-overlap. A trailing
// window shorter than overlap+1 units is merged into the previous window so
// no degenerate fragment is emitted; content is never dropped.
func slideWindows(n, size, overlap int) []window {
	if n <= 0 {
		return nil
	}
	if n <= size {
		return []window{{0, n}}
	}

	step := size - overlap
	minTail := overlap + 1

	var windows []window
	for start := 0; start < n; start += step {
		end := start + size
		if end < n {
			windows = append(windows, window{start, end})
			continue
		}
		if n-start < minTail && len(windows) > 0 {
			windows[len(windows)-1].end = n
		} else {
			windows = append(windows, window{start, n})
		}
		break
	}
	return windows
}
