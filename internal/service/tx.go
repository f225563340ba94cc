package service

import (
	"context"

	"github.com/cloo-solutions/plancheck/internal/domain"
)

// RegulationChunkWriter inserts chunks inside a transaction.
type RegulationChunkWriter interface {
	Insert(ctx context.Context, chunk *domain.RegulatoryChunk) error
}

// TxRepositories provides transaction-bound repositories.
type TxRepositories interface {
	RegulationChunks() RegulationChunkWriter
}

// TxRunner executes a function within a transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(repos TxRepositories) error) error
}
