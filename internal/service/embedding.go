package service

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/cloo-solutions/plancheck/internal/domain"
)

// EmbeddingClient defines the interface for generating embeddings
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

const embeddingCacheKeyPrefix = "plancheck:emb_cache:"

// EmbeddingCacheStore is the key-value store backing CachedEmbeddingClient.
// Get returns ErrKeyNotFound for absent keys.
type EmbeddingCacheStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// ErrKeyNotFound is returned by key-value stores when a key is absent.
var ErrKeyNotFound = errors.New("kv: key not found")

// CachedEmbeddingClient caches embeddings by text hash so recomputing the
// same text returns the stored vector. Keys are scoped by a namespace naming
// the model and dimensions, so vectors from another model are never served.
type CachedEmbeddingClient struct {
	inner      EmbeddingClient
	store      EmbeddingCacheStore
	namespace  string
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// NewCachedEmbeddingClient wraps inner with a cache. namespace is usually
// EmbeddingCacheNamespace(model, dimensions). cacheTotal carries the label
// "result" ("hit"/"miss") and may be nil.
func NewCachedEmbeddingClient(
	inner EmbeddingClient,
	store EmbeddingCacheStore,
	namespace string,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedEmbeddingClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedEmbeddingClient{
		inner:      inner,
		store:      store,
		namespace:  namespace,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// GenerateEmbedding returns a cached vector or calls the inner client.
// Cache failures are logged and never fail the call.
func (c *CachedEmbeddingClient) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	key := embeddingCacheKey(c.namespace, text)

	if vec, ok := c.getFromCache(ctx, key); ok {
		c.incCache("hit")
		return vec, nil
	}
	c.incCache("miss")

	vec, err := c.inner.GenerateEmbedding(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed text: %w", err)
	}

	c.putToCache(ctx, key, vec)
	return vec, nil
}

func (c *CachedEmbeddingClient) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

// EmbeddingCacheNamespace identifies the vector space of a model.
func EmbeddingCacheNamespace(model string, dimensions int) string {
	return fmt.Sprintf("%s@%d", model, dimensions)
}

func embeddingCacheKey(namespace, text string) string {
	h := sha256.Sum256([]byte(text))
	return embeddingCacheKeyPrefix + namespace + ":" + hex.EncodeToString(h[:])
}

func (c *CachedEmbeddingClient) getFromCache(ctx context.Context, key string) ([]float32, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached embedding", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	if len(data) == 0 {
		return nil, false
	}

	vec, err := bytesToVector(data)
	if err != nil {
		c.logger.Warn("Failed to parse cached embedding", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return vec, true
}

func (c *CachedEmbeddingClient) putToCache(ctx context.Context, key string, vec []float32) {
	if err := c.store.Set(ctx, key, vectorToBytes(vec)); err != nil {
		c.logger.Warn("Failed to cache embedding", zap.String("key", key), zap.Error(err))
	}
}

func vectorToBytes(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func bytesToVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding cache data: len=%d (not multiple of 4)", len(data))
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, nil
}

// embeddingFailure wraps an embedding error for the query path.
func embeddingFailure(err error) error {
	if errors.Is(err, domain.ErrRetrievalFailure) {
		return err
	}
	return domain.NewRetrievalFailure(err)
}
