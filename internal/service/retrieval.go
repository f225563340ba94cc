package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/cloo-solutions/plancheck/internal/domain"
	"github.com/cloo-solutions/plancheck/internal/logger"
	"github.com/cloo-solutions/plancheck/internal/telemetry"
)

// IndexSearcher is the part of the hierarchical index used for retrieval.
type IndexSearcher interface {
	Search(ctx context.Context, query string, k int) ([]SearchHit, error)
}

// RetrievedRegulation is a parent chunk offered as citation material.
type RetrievedRegulation struct {
	Parent *domain.RegulatoryChunk
	// Matched is the highest-scoring child that led to Parent.
	Matched *domain.RegulatoryChunk
	Score   float64
}

// RetrievalResult is the deduplicated output of Retrieve.
type RetrievalResult struct {
	Regulations []RetrievedRegulation
	RawHits     int
	Unresolved  int
}

// RetrievalCoordinator resolves index hits to unique parent regulations.
type RetrievalCoordinator struct {
	index IndexSearcher
}

// NewRetrievalCoordinator creates a RetrievalCoordinator.
func NewRetrievalCoordinator(index IndexSearcher) *RetrievalCoordinator {
	return &RetrievalCoordinator{index: index}
}

// Retrieve searches the top-k children and returns their parents in score
// order, keeping the first occurrence of each parent. It never issues a
// second query to make up for duplicates. Hits whose parent is missing are
// skipped and counted in Unresolved.
func (c *RetrievalCoordinator) Retrieve(ctx context.Context, question string, k int) (*RetrievalResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "RetrievalCoordinator.Retrieve", telemetry.SpanAttributes{
		Operation: "retrieve",
	})
	defer span.End()

	hits, err := c.index.Search(ctx, question, k)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	result := &RetrievalResult{
		Regulations: make([]RetrievedRegulation, 0, len(hits)),
		RawHits:     len(hits),
	}
	seen := make(map[string]struct{}, len(hits))
	for _, h := range hits {
		if h.Parent == nil {
			result.Unresolved++
			continue
		}
		if _, ok := seen[h.Parent.ID]; ok {
			continue
		}
		seen[h.Parent.ID] = struct{}{}
		result.Regulations = append(result.Regulations, RetrievedRegulation{
			Parent:  h.Parent,
			Matched: h.Child,
			Score:   h.Score,
		})
	}

	if result.Unresolved > 0 {
		logger.FromContext(ctx).Warn("search hits without a resolvable parent",
			zap.Int("unresolved", result.Unresolved))
	}
	return result, nil
}
