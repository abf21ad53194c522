package geocode

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/otherscentered/platform/internal/clock"
	redis "github.com/redis/go-redis/v9"
)

// Coordinates is a resolved latitude/longitude pair.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Cache stores resolved coordinates per normalized postal-code key.
// Get must treat an entry older than its TTL as absent.
type Cache interface {
	Get(ctx context.Context, key string) (Coordinates, bool, error)
	Set(ctx context.Context, key string, coords Coordinates, ttl time.Duration) error
}

type redisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) Cache {
	return &redisCache{client: client}
}

func (c *redisCache) Get(ctx context.Context, key string) (Coordinates, bool, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return Coordinates{}, false, nil
		}
		return Coordinates{}, false, err
	}
	var coords Coordinates
	if err := json.Unmarshal(raw, &coords); err != nil {
		// Treat a corrupt entry as a miss so the next lookup rewrites it.
		return Coordinates{}, false, nil
	}
	return coords, true, nil
}

func (c *redisCache) Set(ctx context.Context, key string, coords Coordinates, ttl time.Duration) error {
	raw, err := json.Marshal(coords)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, raw, ttl).Err()
}

type memoryEntry struct {
	coords     Coordinates
	insertedAt time.Time
	ttl        time.Duration
}

type memoryCache struct {
	mu      sync.RWMutex
	clock   clock.Clock
	entries map[string]memoryEntry
}

// NewMemoryCache returns an in-process Cache with lazy expiry. Expired
// entries are reported absent but not purged until overwritten.
func NewMemoryCache(clk clock.Clock) Cache {
	return &memoryCache{
		clock:   clk,
		entries: make(map[string]memoryEntry),
	}
}

func (c *memoryCache) Get(ctx context.Context, key string) (Coordinates, bool, error) {
	_ = ctx
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok {
		return Coordinates{}, false, nil
	}
	if entry.ttl > 0 && c.clock.Now().Sub(entry.insertedAt) > entry.ttl {
		return Coordinates{}, false, nil
	}
	return entry.coords, true, nil
}

func (c *memoryCache) Set(ctx context.Context, key string, coords Coordinates, ttl time.Duration) error {
	_ = ctx
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = memoryEntry{
		coords:     coords,
		insertedAt: c.clock.Now(),
		ttl:        ttl,
	}
	return nil
}
