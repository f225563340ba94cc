package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloo-solutions/plancheck/internal/domain"
	"github.com/cloo-solutions/plancheck/internal/service"
)

type kvGetter interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

// DrawingRepository reads session drawings cached by the upload front end.
// It never writes: the session lifecycle belongs to that front end.
type DrawingRepository struct {
	kv kvGetter
}

func NewDrawingRepository(kv kvGetter) *DrawingRepository {
	return &DrawingRepository{kv: kv}
}

// DrawingKey is the key under which a session's drawing is cached.
func DrawingKey(sessionID string) string {
	return fmt.Sprintf("session:%s:drawing", sessionID)
}

// GetDrawing returns the session's drawing entities. A missing or expired
// drawing yields domain.ErrDrawingNotFound.
func (r *DrawingRepository) GetDrawing(ctx context.Context, sessionID string) ([]domain.DrawingEntity, error) {
	if sessionID == "" {
		return nil, domain.ErrDrawingNotFound
	}
	data, err := r.kv.Get(ctx, DrawingKey(sessionID))
	if err != nil {
		if errors.Is(err, service.ErrKeyNotFound) {
			return nil, domain.ErrDrawingNotFound
		}
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, domain.ErrStorageOperationFail.Message, err)
	}
	if len(data) == 0 {
		return nil, domain.ErrDrawingNotFound
	}
	return domain.DecodeDrawing(data)
}
