package index

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store with the same ordering semantics as the
// Postgres implementation. It backs tests and credential-free local runs.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []memoryEntry
	nextSeq int64
}

type memoryEntry struct {
	record Record
	seq    int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Upsert(_ context.Context, doc Document, records []Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeLocked(doc.FileID)
	for _, record := range records {
		s.nextSeq++
		s.entries = append(s.entries, memoryEntry{record: record, seq: s.nextSeq})
	}
	return nil
}

func (s *MemoryStore) DeleteDocument(_ context.Context, fileID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if removed := s.removeLocked(fileID); removed == 0 {
		return ErrDocumentNotFound
	}
	return nil
}

func (s *MemoryStore) removeLocked(fileID uuid.UUID) int {
	kept := s.entries[:0]
	removed := 0
	for _, entry := range s.entries {
		if entry.record.FileID == fileID {
			removed++
			continue
		}
		kept = append(kept, entry)
	}
	s.entries = kept
	return removed
}

func (s *MemoryStore) Search(_ context.Context, vector []float32, limit int) ([]Result, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("query vector is empty")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		result Result
		seq    int64
	}

	candidates := make([]scored, 0, len(s.entries))
	for _, entry := range s.entries {
		candidates = append(candidates, scored{
			result: Result{
				ChunkID:    entry.record.ChunkID,
				FileID:     entry.record.FileID,
				Filename:   entry.record.Filename,
				ChunkIndex: entry.record.ChunkIndex,
				Content:    entry.record.Content,
				Score:      clampScore(cosineSimilarity(vector, entry.record.Embedding)),
			},
			seq: entry.seq,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].result.Score != candidates[j].result.Score {
			return candidates[i].result.Score > candidates[j].result.Score
		}
		return candidates[i].seq > candidates[j].seq
	})

	if limit > len(candidates) {
		limit = len(candidates)
	}
	results := make([]Result, 0, limit)
	for _, c := range candidates[:limit] {
		results = append(results, c.result)
	}
	return results, nil
}

func (s *MemoryStore) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.entries)), nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

var _ Store = (*MemoryStore)(nil)
