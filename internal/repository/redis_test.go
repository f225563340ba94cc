//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/plancheck/internal/domain"
	"github.com/cloo-solutions/plancheck/internal/service"
	"github.com/cloo-solutions/plancheck/internal/testutil"
)

func TestRedisStore_GetSet(t *testing.T) {
	ctx := context.Background()
	rc := testutil.NewRedisContainer(ctx, t)
	defer rc.Terminate(ctx)

	store, err := NewRedisStore(RedisConfig{Addrs: []string{rc.Addr()}})
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.Ping(ctx))

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, service.ErrKeyNotFound)

	value := []byte{0x00, 0xff, 0x10}
	require.NoError(t, store.Set(ctx, "bin", value))
	got, err := store.Get(ctx, "bin")
	require.NoError(t, err)
	assert.Equal(t, value, got)

	ttl := TTLStore{RedisStore: store, TTL: time.Second}
	require.NoError(t, ttl.Set(ctx, "short", []byte("x")))
	assert.Eventually(t, func() bool {
		_, err := store.Get(ctx, "short")
		return err == service.ErrKeyNotFound
	}, 5*time.Second, 100*time.Millisecond)
}

func TestDrawingRepository_Redis(t *testing.T) {
	ctx := context.Background()
	rc := testutil.NewRedisContainer(ctx, t)
	defer rc.Terminate(ctx)

	store, err := NewRedisStore(RedisConfig{Addrs: []string{rc.Addr()}})
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Set(ctx, DrawingKey("s1"), []byte(`[
		{"type": "POLYLINE", "layer": "Plot Boundary", "points": [[0,0],[10,0],[10,10],[0,10]], "closed": true}
	]`)))

	repo := NewDrawingRepository(store)

	entities, err := repo.GetDrawing(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, entities, 1)
	poly, ok := entities[0].(domain.Polyline)
	require.True(t, ok)
	assert.True(t, poly.Closed)
	assert.Len(t, poly.Points, 4)

	_, err = repo.GetDrawing(ctx, "s2")
	assert.ErrorIs(t, err, domain.ErrDrawingNotFound)
}
