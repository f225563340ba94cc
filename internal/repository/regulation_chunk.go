package repository

import (
	"context"
	"errors"
	"time"

	"github.com/cloo-solutions/plancheck/internal/domain"
	"github.com/cloo-solutions/plancheck/internal/service"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// RegulationChunkRepository stores parent and child regulation chunks in
// Postgres with pgvector embeddings.
type RegulationChunkRepository struct {
	db dbtx
	tx service.TxRunner
}

func NewRegulationChunkRepository(pool *pgxpool.Pool) *RegulationChunkRepository {
	return &RegulationChunkRepository{db: pool, tx: NewTxRunner(pool)}
}

func NewRegulationChunkRepositoryWithTx(tx dbtx) *RegulationChunkRepository {
	return &RegulationChunkRepository{db: tx}
}

// Insert stores one chunk and fills in its database-assigned Seq. An id that
// is already stored yields domain.ErrParentExists and leaves the row as is.
func (r *RegulationChunkRepository) Insert(ctx context.Context, c *domain.RegulatoryChunk) error {
	if err := c.Validate(); err != nil {
		return err
	}
	createdAt := c.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	var embedding *pgvector.Vector
	if c.Searchable() {
		v := pgvector.NewVector(c.Embedding)
		embedding = &v
	}

	err := r.db.QueryRow(ctx,
		`INSERT INTO regulation_chunks
			(id, parent_id, source_document, section, page_number, element_type, content, span_start, span_end, embedding, created_at)
		 VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (id) DO NOTHING
		 RETURNING seq`,
		c.ID,
		nullableString(c.ParentID),
		c.SourceDocument,
		c.Section,
		c.PageNumber,
		string(c.ElementType),
		c.Text,
		c.Start,
		c.End,
		embedding,
		createdAt,
	).Scan(&c.Seq)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrParentExists
	}
	return err
}

// SaveParent stores a parent and its children in one transaction.
func (r *RegulationChunkRepository) SaveParent(ctx context.Context, parent *domain.RegulatoryChunk, children []*domain.RegulatoryChunk) error {
	save := func(w service.RegulationChunkWriter) error {
		if err := w.Insert(ctx, parent); err != nil {
			return err
		}
		for _, c := range children {
			if err := w.Insert(ctx, c); err != nil {
				return err
			}
		}
		return nil
	}
	if r.tx == nil {
		return save(r)
	}
	return r.tx.WithTx(ctx, func(repos service.TxRepositories) error {
		return save(repos.RegulationChunks())
	})
}

const chunkColumns = `id::text, COALESCE(parent_id::text, ''), seq, source_document, section, page_number,
	element_type, content, span_start, span_end, created_at`

func scanChunk(row pgx.Row, extra ...any) (*domain.RegulatoryChunk, error) {
	var c domain.RegulatoryChunk
	var elementType string
	dest := []any{
		&c.ID, &c.ParentID, &c.Seq, &c.SourceDocument, &c.Section, &c.PageNumber,
		&elementType, &c.Text, &c.Start, &c.End, &c.CreatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	c.ElementType = domain.ElementType(elementType)
	return &c, nil
}

// SearchChildren returns the k embedded chunks closest to the query by
// cosine distance, ties going to the lower seq. Score is cosine similarity.
// The scan is exact: the seq tiebreak keeps results identical to the memory
// store, which an approximate vector index cannot guarantee.
func (r *RegulationChunkRepository) SearchChildren(ctx context.Context, embedding []float32, k int) ([]service.ScoredChunk, error) {
	if k <= 0 {
		return nil, nil
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+chunkColumns+`, 1 - (embedding <=> $1) AS score
		 FROM regulation_chunks
		 WHERE embedding IS NOT NULL
		 ORDER BY embedding <=> $1, seq
		 LIMIT $2`,
		pgvector.NewVector(embedding), k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []service.ScoredChunk
	for rows.Next() {
		var score float64
		c, err := scanChunk(rows, &score)
		if err != nil {
			return nil, err
		}
		results = append(results, service.ScoredChunk{Chunk: c, Score: score})
	}
	return results, rows.Err()
}

// GetParents loads parent chunks by id. Unknown ids are absent from the map.
func (r *RegulationChunkRepository) GetParents(ctx context.Context, ids []string) (map[string]*domain.RegulatoryChunk, error) {
	out := make(map[string]*domain.RegulatoryChunk, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+chunkColumns+`
		 FROM regulation_chunks
		 WHERE id = ANY($1::uuid[]) AND parent_id IS NULL`,
		ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		out[c.ID] = c
	}
	return out, rows.Err()
}

// Count returns the number of stored chunks by kind.
func (r *RegulationChunkRepository) Count(ctx context.Context) (domain.IngestResult, error) {
	var res domain.IngestResult
	err := r.db.QueryRow(ctx,
		`SELECT
			COUNT(*) FILTER (WHERE parent_id IS NULL AND element_type <> 'table'),
			COUNT(*) FILTER (WHERE parent_id IS NOT NULL),
			COUNT(*) FILTER (WHERE element_type = 'table')
		 FROM regulation_chunks`).Scan(&res.Parents, &res.Children, &res.Tables)
	return res, err
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
