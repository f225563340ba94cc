package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cloo-solutions/plancheck/internal/domain"
	"github.com/cloo-solutions/plancheck/internal/logger"
	"github.com/cloo-solutions/plancheck/internal/metrics"
	"github.com/cloo-solutions/plancheck/internal/telemetry"
)

// ScoredChunk is a searchable chunk with its similarity to a query vector.
type ScoredChunk struct {
	Chunk *domain.RegulatoryChunk
	Score float64
}

// ChunkStore persists regulation chunks. SaveParent must store a parent and
// all of its children atomically and assign Seq in ingestion order.
// SearchChildren returns searchable chunks ordered by score descending, then
// Seq ascending.
type ChunkStore interface {
	SaveParent(ctx context.Context, parent *domain.RegulatoryChunk, children []*domain.RegulatoryChunk) error
	SearchChildren(ctx context.Context, embedding []float32, k int) ([]ScoredChunk, error)
	GetParents(ctx context.Context, ids []string) (map[string]*domain.RegulatoryChunk, error)
}

// SearchHit is one raw index hit. Parent is nil when the child's parent could
// not be resolved; for an atomic table Child and Parent are the same chunk.
type SearchHit struct {
	Child  *domain.RegulatoryChunk
	Parent *domain.RegulatoryChunk
	Score  float64
}

// IndexConfig controls the hierarchical index.
type IndexConfig struct {
	Chunking         ChunkConfig
	EmbeddingTimeout time.Duration
}

// DefaultIndexConfig returns the default index configuration.
func DefaultIndexConfig() IndexConfig {
	return IndexConfig{
		Chunking:         DefaultChunkConfig(),
		EmbeddingTimeout: 15 * time.Second,
	}
}

// HierarchicalIndex stores regulation text as parent blocks with small
// embedded children and searches over the children.
type HierarchicalIndex struct {
	store     ChunkStore
	embedding EmbeddingClient
	cfg       IndexConfig
	now       func() time.Time
}

// NewHierarchicalIndex creates an index with the default configuration.
func NewHierarchicalIndex(store ChunkStore, embedding EmbeddingClient) *HierarchicalIndex {
	idx, _ := NewHierarchicalIndexWithConfig(store, embedding, DefaultIndexConfig())
	return idx
}

// NewHierarchicalIndexWithConfig creates an index with explicit configuration.
func NewHierarchicalIndexWithConfig(store ChunkStore, embedding EmbeddingClient, cfg IndexConfig) (*HierarchicalIndex, error) {
	if err := cfg.Chunking.Validate(); err != nil {
		return nil, err
	}
	return &HierarchicalIndex{
		store:     store,
		embedding: embedding,
		cfg:       cfg,
		now:       time.Now,
	}, nil
}

// Ingest splits and stores each input. Text and heading inputs longer than
// the parent target are cut into consecutive parents first; tables are stored
// as one atomic searchable chunk. Each parent is saved together with its
// children, so a failure leaves earlier parents intact and no partial pair.
// Chunk ids are derived from the input position and text, so retrying a
// partly ingested batch skips the parents already stored.
func (x *HierarchicalIndex) Ingest(ctx context.Context, inputs []domain.ParentInput) (domain.IngestResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "HierarchicalIndex.Ingest", telemetry.SpanAttributes{
		Operation: "ingest",
	})
	defer span.End()

	var result domain.IngestResult
	for i, in := range inputs {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		r, err := x.ingestOne(ctx, i, in)
		if err != nil {
			span.SetError(err)
			return result, fmt.Errorf("ingest element %d of %q: %w", i, in.Meta.SourceDocument, err)
		}
		result.Add(r)
	}

	logger.FromContext(ctx).Info("regulations ingested",
		zap.Int("parents", result.Parents),
		zap.Int("children", result.Children),
		zap.Int("tables", result.Tables),
		zap.Int("skipped", result.Skipped))
	return result, nil
}

func (x *HierarchicalIndex) ingestOne(ctx context.Context, element int, in domain.ParentInput) (domain.IngestResult, error) {
	var result domain.IngestResult
	if strings.TrimSpace(in.Text) == "" {
		return result, nil
	}
	meta := in.Meta
	if meta.ElementType == "" {
		meta.ElementType = domain.ElementTypeText
	}
	if !meta.ElementType.IsValid() {
		return result, domain.ErrInvalidElementType
	}

	if meta.ElementType == domain.ElementTypeTable {
		table := x.newChunk(meta, in.Text, ParentChunkID(meta.SourceDocument, element, 0, in.Text), "")
		stored, err := x.stored(ctx, table.ID)
		if err != nil {
			return result, err
		}
		if stored {
			result.Skipped++
			return result, nil
		}
		emb, err := x.embed(ctx, in.Text)
		if err != nil {
			return result, err
		}
		table.Embedding = emb
		if err := x.store.SaveParent(ctx, table, nil); err != nil {
			if errors.Is(err, domain.ErrParentExists) {
				result.Skipped++
				return result, nil
			}
			return result, err
		}
		metrics.IngestedChunksTotal.WithLabelValues("table").Inc()
		result.Tables++
		return result, nil
	}

	for b, block := range SplitParents(in.Text, x.cfg.Chunking) {
		parent := x.newChunk(meta, block, ParentChunkID(meta.SourceDocument, element, b, block), "")
		stored, err := x.stored(ctx, parent.ID)
		if err != nil {
			return result, err
		}
		if stored {
			result.Skipped++
			continue
		}

		runes := []rune(block)
		spans := SplitChildren(block, x.cfg.Chunking)

		children := make([]*domain.RegulatoryChunk, 0, len(spans))
		for n, sp := range spans {
			text := string(runes[sp.Start:sp.End])
			emb, err := x.embed(ctx, text)
			if err != nil {
				return result, err
			}
			child := x.newChunk(meta, text, ChildChunkID(parent.ID, n), parent.ID)
			child.Start, child.End = sp.Start, sp.End
			child.Embedding = emb
			children = append(children, child)
		}

		if err := x.store.SaveParent(ctx, parent, children); err != nil {
			if errors.Is(err, domain.ErrParentExists) {
				result.Skipped++
				continue
			}
			return result, err
		}
		metrics.IngestedChunksTotal.WithLabelValues("parent").Inc()
		metrics.IngestedChunksTotal.WithLabelValues("child").Add(float64(len(children)))
		result.Parents++
		result.Children += len(children)
	}
	return result, nil
}

// stored reports whether a parent with this id is already in the store.
func (x *HierarchicalIndex) stored(ctx context.Context, id string) (bool, error) {
	found, err := x.store.GetParents(ctx, []string{id})
	if err != nil {
		return false, fmt.Errorf("check stored parent: %w", err)
	}
	_, ok := found[id]
	return ok, nil
}

func (x *HierarchicalIndex) newChunk(meta domain.SourceMetadata, text, id, parentID string) *domain.RegulatoryChunk {
	return &domain.RegulatoryChunk{
		ID:             id,
		ParentID:       parentID,
		SourceDocument: meta.SourceDocument,
		Section:        meta.Section,
		PageNumber:     meta.PageNumber,
		ElementType:    meta.ElementType,
		Text:           text,
		CreatedAt:      x.now().UTC(),
	}
}

func (x *HierarchicalIndex) embed(ctx context.Context, text string) ([]float32, error) {
	if x.cfg.EmbeddingTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, x.cfg.EmbeddingTimeout)
		defer cancel()
	}
	emb, err := x.embedding.GenerateEmbedding(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}
	return emb, nil
}

// Search returns the top-k children for a query, each paired with its parent,
// ordered by score descending with ties going to the earlier-ingested chunk.
// Hits are raw: several children may share a parent.
func (x *HierarchicalIndex) Search(ctx context.Context, query string, k int) ([]SearchHit, error) {
	ctx, span := telemetry.StartSpan(ctx, "HierarchicalIndex.Search", telemetry.SpanAttributes{
		Operation: "search",
	})
	defer span.End()

	if strings.TrimSpace(query) == "" {
		return nil, domain.ErrEmptyQuestion
	}
	if k <= 0 {
		return []SearchHit{}, nil
	}

	emb, err := x.embed(ctx, query)
	if err != nil {
		span.SetError(err)
		return nil, embeddingFailure(err)
	}

	scored, err := x.store.SearchChildren(ctx, emb, k)
	if err != nil {
		span.SetError(err)
		return nil, domain.NewRetrievalFailure(err)
	}
	scored = rankScored(scored, k)

	parentIDs := make([]string, 0, len(scored))
	for _, s := range scored {
		if !s.Chunk.IsParent() {
			parentIDs = append(parentIDs, s.Chunk.ParentID)
		}
	}
	parents := map[string]*domain.RegulatoryChunk{}
	if len(parentIDs) > 0 {
		parents, err = x.store.GetParents(ctx, parentIDs)
		if err != nil {
			span.SetError(err)
			return nil, domain.NewRetrievalFailure(err)
		}
	}

	hits := make([]SearchHit, 0, len(scored))
	for _, s := range scored {
		hit := SearchHit{Child: s.Chunk, Score: s.Score}
		if s.Chunk.IsParent() {
			hit.Parent = s.Chunk
		} else {
			hit.Parent = parents[s.Chunk.ParentID]
		}
		hits = append(hits, hit)
	}
	metrics.SearchHits.Observe(float64(len(hits)))
	return hits, nil
}

// rankScored enforces score-descending, seq-ascending order, drops repeated
// chunk ids and truncates to k regardless of what the store returned.
func rankScored(scored []ScoredChunk, k int) []ScoredChunk {
	seen := make(map[string]struct{}, len(scored))
	out := make([]ScoredChunk, 0, len(scored))
	for _, s := range scored {
		if s.Chunk == nil {
			continue
		}
		if _, ok := seen[s.Chunk.ID]; ok {
			continue
		}
		seen[s.Chunk.ID] = struct{}{}
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Chunk.Seq < out[j].Chunk.Seq
	})
	if len(out) > k {
		out = out[:k]
	}
	return out
}
