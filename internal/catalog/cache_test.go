package catalog

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/supplyhub/supplyhub/internal/shared"
)

type mockStockSource struct {
	snapshots map[int64]StockSnapshot
	calls     int
}

func (m *mockStockSource) StockSnapshot(_ context.Context, itemID int64) (StockSnapshot, error) {
	m.calls++
	snap, ok := m.snapshots[itemID]
	if !ok {
		return StockSnapshot{}, shared.ErrNotFound
	}
	return snap, nil
}

func newTestStockCache(t *testing.T, source StockSource) (*StockCache, *redis.Client, func()) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewStockCache(client, source, time.Minute)
	return cache, client, func() {
		_ = client.Close()
		mr.Close()
	}
}

func TestStockCacheReadThrough(t *testing.T) {
	source := &mockStockSource{snapshots: map[int64]StockSnapshot{
		101: {ItemID: 101, StockNumber: "SN-101", Name: "Bond Paper A4", Unit: "ream", StockLevel: 120},
	}}
	cache, _, cleanup := newTestStockCache(t, source)
	defer cleanup()

	ctx := context.Background()
	snap, err := cache.Stock(ctx, 101)
	require.NoError(t, err)
	require.Equal(t, int64(120), snap.StockLevel)
	require.Equal(t, 1, source.calls)

	// Second call served from cache.
	snap, err = cache.Stock(ctx, 101)
	require.NoError(t, err)
	require.Equal(t, int64(120), snap.StockLevel)
	require.Equal(t, 1, source.calls)
}

func TestStockCacheInvalidate(t *testing.T) {
	source := &mockStockSource{snapshots: map[int64]StockSnapshot{
		101: {ItemID: 101, StockLevel: 120},
	}}
	cache, _, cleanup := newTestStockCache(t, source)
	defer cleanup()

	ctx := context.Background()
	_, err := cache.Stock(ctx, 101)
	require.NoError(t, err)

	source.snapshots[101] = StockSnapshot{ItemID: 101, StockLevel: 70}
	require.NoError(t, cache.Invalidate(ctx, 101))

	snap, err := cache.Stock(ctx, 101)
	require.NoError(t, err)
	require.Equal(t, int64(70), snap.StockLevel)
	require.Equal(t, 2, source.calls)
}

func TestStockCacheUnknownItem(t *testing.T) {
	source := &mockStockSource{snapshots: map[int64]StockSnapshot{}}
	cache, _, cleanup := newTestStockCache(t, source)
	defer cleanup()

	_, err := cache.Stock(context.Background(), 999)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestStockCacheNilClientLoadsDirect(t *testing.T) {
	source := &mockStockSource{snapshots: map[int64]StockSnapshot{
		5: {ItemID: 5, StockLevel: 9},
	}}
	cache := NewStockCache(nil, source, time.Minute)

	snap, err := cache.Stock(context.Background(), 5)
	require.NoError(t, err)
	require.Equal(t, int64(9), snap.StockLevel)
}
