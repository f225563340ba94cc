//go:build integration

package repository

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/plancheck/internal/domain"
	"github.com/cloo-solutions/plancheck/internal/testutil"
)

func unitVector(hot int) []float32 {
	v := make([]float32, 1536)
	v[hot] = 1
	return v
}

func TestRegulationChunkRepository_SaveAndSearch(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewRegulationChunkRepository(pool)

	parent := &domain.RegulatoryChunk{
		ID:             uuid.NewString(),
		SourceDocument: "GPDO 2015",
		Section:        "A.1",
		PageNumber:     2,
		ElementType:    domain.ElementTypeText,
		Text:           "A.1 Development is not permitted if the ground covered exceeds 50%.",
	}
	children := []*domain.RegulatoryChunk{
		{ID: uuid.NewString(), ParentID: parent.ID, SourceDocument: "GPDO 2015", ElementType: domain.ElementTypeText, Text: "A.1 Development is not permitted", End: 32, Embedding: unitVector(0)},
		{ID: uuid.NewString(), ParentID: parent.ID, SourceDocument: "GPDO 2015", ElementType: domain.ElementTypeText, Text: "ground covered exceeds 50%.", Start: 40, End: 67, Embedding: unitVector(1)},
	}
	require.NoError(t, repo.SaveParent(ctx, parent, children))
	assert.NotZero(t, parent.Seq)
	assert.Greater(t, children[1].Seq, children[0].Seq)

	table := &domain.RegulatoryChunk{
		ID:             uuid.NewString(),
		SourceDocument: "GPDO 2015",
		PageNumber:     3,
		ElementType:    domain.ElementTypeTable,
		Text:           "| Limit | 50% |",
		Embedding:      unitVector(1),
	}
	require.NoError(t, repo.SaveParent(ctx, table, nil))

	hits, err := repo.SearchChildren(ctx, unitVector(1), 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, children[1].ID, hits[0].Chunk.ID, "tie broken by insertion order")
	assert.Equal(t, table.ID, hits[1].Chunk.ID)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
	assert.Equal(t, parent.ID, hits[0].Chunk.ParentID)
	assert.Equal(t, 40, hits[0].Chunk.Start)

	parents, err := repo.GetParents(ctx, []string{parent.ID, table.ID, children[0].ID, uuid.NewString()})
	require.NoError(t, err)
	assert.Len(t, parents, 2, "children and unknown ids are not parents")
	assert.Equal(t, "Section A.1, Page 2", parents[parent.ID].Reference())

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.IngestResult{Parents: 1, Children: 2, Tables: 1}, count)
}

func TestRegulationChunkRepository_SaveParentIsAtomic(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewRegulationChunkRepository(pool)

	parent := &domain.RegulatoryChunk{ID: uuid.NewString(), SourceDocument: "doc", ElementType: domain.ElementTypeText, Text: "parent"}
	children := []*domain.RegulatoryChunk{
		{ID: uuid.NewString(), ParentID: parent.ID, ElementType: domain.ElementTypeText, Text: "ok", End: 2, Embedding: unitVector(0)},
		// Wrong dimension: rejected by the vector(1536) column.
		{ID: uuid.NewString(), ParentID: parent.ID, ElementType: domain.ElementTypeText, Text: "bad", End: 3, Embedding: []float32{1, 2}},
	}

	err := repo.SaveParent(ctx, parent, children)
	require.Error(t, err)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.IngestResult{}, count)
}

func TestRegulationChunkRepository_SaveParentTwice(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewRegulationChunkRepository(pool)
	newParent := func() (*domain.RegulatoryChunk, []*domain.RegulatoryChunk) {
		p := &domain.RegulatoryChunk{ID: "6f1c2a52-6f5e-5d6a-9a57-3f0d0f3b1a11", SourceDocument: "doc", ElementType: domain.ElementTypeText, Text: "parent"}
		return p, []*domain.RegulatoryChunk{
			{ID: "0b8f5d8e-2d47-5b8e-8c53-5c7f5f0e9d22", ParentID: p.ID, ElementType: domain.ElementTypeText, Text: "par", End: 3, Embedding: unitVector(0)},
		}
	}

	p, children := newParent()
	require.NoError(t, repo.SaveParent(ctx, p, children))

	p, children = newParent()
	err := repo.SaveParent(ctx, p, children)

	assert.ErrorIs(t, err, domain.ErrParentExists)
	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.IngestResult{Parents: 1, Children: 1}, count)
}

func TestRegulationChunkRepository_SearchTiesBySeq(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewRegulationChunkRepository(pool)
	var ids []string
	for i := 0; i < 4; i++ {
		table := &domain.RegulatoryChunk{
			ID:          uuid.NewString(),
			ElementType: domain.ElementTypeTable,
			Text:        "| same |",
			Embedding:   unitVector(3),
		}
		require.NoError(t, repo.SaveParent(ctx, table, nil))
		ids = append(ids, table.ID)
	}

	hits, err := repo.SearchChildren(ctx, unitVector(3), 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	for i, h := range hits {
		assert.Equal(t, ids[i], h.Chunk.ID, "equal scores keep ingestion order")
	}
}
