package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// timestampBefore orders two "timestamp" field values regardless of
// whether the caller stored them as time.Time or an integer epoch --
// persisted timestamps are ISO-8601 UTC, but in-memory test records
// are sometimes built with a bare int64.
func timestampBefore(a, b any) bool {
	switch av := a.(type) {
	case time.Time:
		bv, _ := b.(time.Time)
		return av.Before(bv)
	case int64:
		bv, _ := b.(int64)
		return av < bv
	default:
		return false
	}
}

// MemoryAdapter is an in-memory Adapter used by component tests so
// sessionmgr/wrongpool/progresstrack/selection/answer/quizcore can be
// exercised without a live Mongo instance. It mirrors UpdateConditional's
// filter-match semantics exactly (a miss is a Conflict, not an error).
type MemoryAdapter struct {
	mu     sync.Mutex
	tables map[string]map[string]Record
}

func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{tables: make(map[string]map[string]Record)}
}

func (m *MemoryAdapter) table(name string) map[string]Record {
	t, ok := m.tables[name]
	if !ok {
		t = make(map[string]Record)
		m.tables[name] = t
	}
	return t
}

func idOf(key Key) string {
	if id, ok := key["_id"]; ok {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return ""
}

func matches(rec Record, filter Record) bool {
	for k, v := range filter {
		if k == "$in" {
			continue
		}
		if rec[k] != v {
			return false
		}
	}
	return true
}

func (m *MemoryAdapter) Get(ctx context.Context, table string, key Key) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.table(table)[idOf(key)]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneRecord(rec), nil
}

func (m *MemoryAdapter) Put(ctx context.Context, table string, key Key, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	merged := cloneRecord(rec)
	for k, v := range key {
		merged[k] = v
	}
	m.table(table)[idOf(key)] = merged
	return nil
}

func (m *MemoryAdapter) UpdateConditional(ctx context.Context, table string, update ConditionalUpdate) (ConditionalStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := idOf(update.Filter)
	rec, ok := m.table(table)[id]
	if !ok || !matches(rec, update.Filter) {
		return ConditionalConflict, nil
	}
	updated := cloneRecord(rec)
	for k, v := range update.Set {
		updated[k] = v
	}
	for k, v := range update.Inc {
		cur, _ := updated[k].(int)
		delta, _ := v.(int)
		updated[k] = cur + delta
	}
	m.table(table)[id] = updated
	return ConditionalOK, nil
}

func (m *MemoryAdapter) Query(ctx context.Context, table string, opts QueryOptions) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Record
	for _, rec := range m.table(table) {
		if matches(rec, opts.Filter) {
			out = append(out, cloneRecord(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		before := timestampBefore(out[i]["timestamp"], out[j]["timestamp"])
		if opts.Ascending {
			return before
		}
		return !before
	})
	if opts.Limit > 0 && int64(len(out)) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (m *MemoryAdapter) BatchGet(ctx context.Context, table string, keys []Key) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Record
	t := m.table(table)
	for _, k := range keys {
		if rec, ok := t[idOf(k)]; ok {
			out = append(out, cloneRecord(rec))
		}
	}
	return out, nil
}

func (m *MemoryAdapter) Delete(ctx context.Context, table string, key Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.table(table), idOf(key))
	return nil
}

func cloneRecord(rec Record) Record {
	out := make(Record, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out
}
