package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is the read-through layer: a miss or a Redis outage always
// falls back to the Adapter, never the reverse, so Redis can never
// become the source of truth for a conditional write.
type Cache struct {
	client *redis.Client
}

func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client}
}

// GetOrLoad returns the cached value for key if present and unexpired;
// otherwise it calls load, stores the result with ttl, and returns it.
// A Redis error on either path is swallowed and load is used directly --
// the cache is an optimization, not a dependency.
func (c *Cache) GetOrLoad(ctx context.Context, key string, ttl time.Duration, dst any, load func(ctx context.Context) (any, error)) error {
	if c.client != nil {
		raw, err := c.client.Get(ctx, key).Bytes()
		if err == nil {
			if uerr := json.Unmarshal(raw, dst); uerr == nil {
				return nil
			}
		}
	}

	val, err := load(ctx)
	if err != nil {
		return err
	}

	encoded, merr := json.Marshal(val)
	if merr == nil && c.client != nil {
		_ = c.client.Set(ctx, key, encoded, ttl).Err()
	}

	return json.Unmarshal(encoded, dst)
}

// Invalidate drops key from the cache. CachingAdapter does not call it:
// its writes pass straight through, and cached entries end by TTL.
func (c *Cache) Invalidate(ctx context.Context, key string) {
	if c.client == nil {
		return
	}
	_ = c.client.Del(ctx, key).Err()
}

// QuestionKey and SessionKey are the cache key shapes for the two
// read-heavy entities the spec calls out: the question catalog (read on
// every "next question" call) and in-progress sessions (read on every
// answer submission).
func QuestionKey(id string) string { return "question:" + id }
func SessionKey(id string) string  { return "session:" + id }
