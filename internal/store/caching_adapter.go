package store

import (
	"context"
	"time"
)

// questionCacheTTL is how long a catalog entry is trusted in Redis
// before a fresh Mongo read is forced. Questions are catalog-owned and
// effectively immutable from the core's perspective, so a generous TTL
// just bounds staleness after an out-of-band catalog edit.
const questionCacheTTL = 10 * time.Minute

// CachingAdapter decorates an Adapter with a read-through cache in
// front of the questions table, the hottest read path (every selection
// and every answer submission fetches one). Writes and every other
// table pass straight through -- sessions, wrong entries, and progress
// all need read-your-writes consistency the cache cannot give them.
type CachingAdapter struct {
	Adapter
	cache *Cache
}

func NewCachingAdapter(adapter Adapter, cache *Cache) *CachingAdapter {
	return &CachingAdapter{Adapter: adapter, cache: cache}
}

func (a *CachingAdapter) Get(ctx context.Context, table string, key Key) (Record, error) {
	if table != TableQuestions {
		return a.Adapter.Get(ctx, table, key)
	}

	id, _ := key["_id"].(string)
	var rec Record
	err := a.cache.GetOrLoad(ctx, QuestionKey(id), questionCacheTTL, &rec, func(ctx context.Context) (any, error) {
		return a.Adapter.Get(ctx, table, key)
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}
