package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// StockSource loads the authoritative stock snapshot for an item.
type StockSource interface {
	StockSnapshot(ctx context.Context, itemID int64) (StockSnapshot, error)
}

// StockSnapshot is the cached view of an item's stock position.
type StockSnapshot struct {
	ItemID      int64     `json:"item_id"`
	StockNumber string    `json:"stock_number"`
	Name        string    `json:"name"`
	Unit        string    `json:"unit"`
	StockLevel  int64     `json:"stock_level"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// StockCache is a Redis read-through cache over item stock lookups.
// A nil client degrades to loading straight from the source.
type StockCache struct {
	client *redis.Client
	source StockSource
	ttl    time.Duration
}

// NewStockCache instantiates the cache helper.
func NewStockCache(client *redis.Client, source StockSource, ttl time.Duration) *StockCache {
	return &StockCache{client: client, source: source, ttl: ttl}
}

func stockKey(itemID int64) string {
	return fmt.Sprintf("catalog:item:%d", itemID)
}

// Stock returns the item's stock snapshot, populating the cache on a miss.
func (c *StockCache) Stock(ctx context.Context, itemID int64) (StockSnapshot, error) {
	if c.client == nil {
		return c.load(ctx, itemID)
	}
	payload, err := c.client.Get(ctx, stockKey(itemID)).Bytes()
	if err == nil {
		var snap StockSnapshot
		if err := json.Unmarshal(payload, &snap); err == nil {
			return snap, nil
		}
		// Corrupt entry; fall through and repopulate.
	} else if err != redis.Nil {
		return StockSnapshot{}, err
	}
	snap, err := c.load(ctx, itemID)
	if err != nil {
		return StockSnapshot{}, err
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return StockSnapshot{}, err
	}
	if err := c.client.Set(ctx, stockKey(itemID), raw, c.ttl).Err(); err != nil {
		return StockSnapshot{}, err
	}
	return snap, nil
}

// Invalidate drops the cached entry for an item. Item writes call this so
// the next read sees the fresh level.
func (c *StockCache) Invalidate(ctx context.Context, itemID int64) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, stockKey(itemID)).Err()
}

func (c *StockCache) load(ctx context.Context, itemID int64) (StockSnapshot, error) {
	snap, err := c.source.StockSnapshot(ctx, itemID)
	if err != nil {
		return StockSnapshot{}, err
	}
	snap.FetchedAt = time.Now()
	return snap, nil
}
