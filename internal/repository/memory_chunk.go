package repository

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/cloo-solutions/plancheck/internal/domain"
	"github.com/cloo-solutions/plancheck/internal/service"
)

// MemoryChunkStore is an in-process chunk store with brute-force cosine
// search. A parent and its children become visible to readers together.
type MemoryChunkStore struct {
	mu         sync.RWMutex
	seq        int64
	parents    map[string]*domain.RegulatoryChunk
	searchable []*domain.RegulatoryChunk
	children   int
}

func NewMemoryChunkStore() *MemoryChunkStore {
	return &MemoryChunkStore{parents: make(map[string]*domain.RegulatoryChunk)}
}

// SaveParent validates everything before publishing anything.
func (s *MemoryChunkStore) SaveParent(ctx context.Context, parent *domain.RegulatoryChunk, children []*domain.RegulatoryChunk) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := parent.Validate(); err != nil {
		return err
	}
	for _, c := range children {
		if err := c.Validate(); err != nil {
			return err
		}
		if c.ParentID != parent.ID {
			return domain.NewDomainError(domain.ErrCodeValidation, "child does not reference its parent")
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.parents[parent.ID]; ok {
		return domain.ErrParentExists
	}

	s.seq++
	parent.Seq = s.seq
	p := *parent
	s.parents[p.ID] = &p
	if p.Searchable() {
		s.searchable = append(s.searchable, &p)
	}
	for _, c := range children {
		s.seq++
		c.Seq = s.seq
		cc := *c
		s.searchable = append(s.searchable, &cc)
	}
	s.children += len(children)
	return nil
}

// SearchChildren scores every embedded chunk against the query.
func (s *MemoryChunkStore) SearchChildren(ctx context.Context, embedding []float32, k int) ([]service.ScoredChunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	scored := make([]service.ScoredChunk, 0, len(s.searchable))
	for _, c := range s.searchable {
		scored = append(scored, service.ScoredChunk{Chunk: c, Score: cosineSimilarity(embedding, c.Embedding)})
	}
	s.mu.RUnlock()

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Chunk.Seq < scored[j].Chunk.Seq
	})
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

// GetParents returns the stored parents for the given ids.
func (s *MemoryChunkStore) GetParents(ctx context.Context, ids []string) (map[string]*domain.RegulatoryChunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]*domain.RegulatoryChunk, len(ids))
	for _, id := range ids {
		if p, ok := s.parents[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

// Count returns the number of stored chunks by kind.
func (s *MemoryChunkStore) Count(_ context.Context) (domain.IngestResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var res domain.IngestResult
	for _, p := range s.parents {
		if p.ElementType == domain.ElementTypeTable {
			res.Tables++
		} else {
			res.Parents++
		}
	}
	res.Children = s.children
	return res, nil
}

// cosineSimilarity returns 0 for mismatched or zero-length vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
