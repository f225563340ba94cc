package service

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/cloo-solutions/plancheck/internal/domain"
	"github.com/cloo-solutions/plancheck/internal/logger"
	"github.com/cloo-solutions/plancheck/internal/storage"
)

// Indexer is the write side of the hierarchical index.
type Indexer interface {
	Ingest(ctx context.Context, inputs []domain.ParentInput) (domain.IngestResult, error)
}

// ObjectReader fetches bundles from object storage.
type ObjectReader interface {
	GetObject(ctx context.Context, bucket, key string) ([]byte, error)
}

// IngestionService loads element bundles and feeds them to the index.
type IngestionService struct {
	index    Indexer
	objects  ObjectReader
	readFile func(string) ([]byte, error)
}

// NewIngestionService creates an IngestionService. objects may be nil when
// no object storage is configured.
func NewIngestionService(index Indexer, objects ObjectReader) *IngestionService {
	return &IngestionService{
		index:    index,
		objects:  objects,
		readFile: os.ReadFile,
	}
}

// IngestBundle validates a bundle and ingests its elements in order.
func (s *IngestionService) IngestBundle(ctx context.Context, b *domain.ElementBundle) (domain.IngestResult, error) {
	if err := b.Validate(); err != nil {
		return domain.IngestResult{}, err
	}
	inputs, err := b.ParentInputs()
	if err != nil {
		return domain.IngestResult{}, err
	}
	return s.index.Ingest(ctx, inputs)
}

// Load reads a bundle from a local path or an s3:// URI.
func (s *IngestionService) Load(ctx context.Context, ref string) (*domain.ElementBundle, error) {
	var (
		data []byte
		err  error
	)
	if storage.IsS3URI(ref) {
		if s.objects == nil {
			return nil, domain.NewDomainError(domain.ErrCodeInvalidOperation, "object storage is not configured")
		}
		bucket, key, perr := storage.ParseS3URI(ref)
		if perr != nil {
			return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid bundle reference", perr)
		}
		data, err = s.objects.GetObject(ctx, bucket, key)
	} else {
		data, err = s.readFile(ref)
	}
	if err != nil {
		return nil, fmt.Errorf("load bundle %s: %w", ref, err)
	}
	return domain.DecodeElementBundle(data)
}

// IngestRef loads and ingests one bundle.
func (s *IngestionService) IngestRef(ctx context.Context, ref string) (domain.IngestResult, error) {
	b, err := s.Load(ctx, ref)
	if err != nil {
		return domain.IngestResult{}, err
	}
	res, err := s.IngestBundle(ctx, b)
	if err != nil {
		return res, err
	}
	logger.FromContext(ctx).Info("bundle ingested",
		zap.String("ref", ref),
		zap.String("source_document", b.SourceDocument),
		zap.Int("elements", len(b.Elements)))
	return res, nil
}
