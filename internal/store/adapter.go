// Package store implements the Store Adapter: a narrow, typed façade
// over a partitioned key-value store with secondary indices. All
// retry/backoff for transient transport errors lives here and nowhere
// else in the core.
package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

// Record is one stored item, shaped the way the Entity Codec (internal
// /codec) produces it: a flat bson.M ready to hand to the driver.
type Record = bson.M

// Key identifies one record within a table.
type Key = bson.M

// ConditionalUpdate describes a compare-and-set write: Filter must match
// the target record (including any predicate, typically version ==
// expected) or the write is rejected as a Conflict rather than erroring.
type ConditionalUpdate struct {
	Filter Key
	Set    Record
	Inc    Record
}

// ConditionalStatus is the dedicated result of UpdateConditional; a
// conflict is not an error.
type ConditionalStatus int

const (
	ConditionalOK ConditionalStatus = iota
	ConditionalConflict
)

// QueryOptions parameterizes Query's ordered range read.
type QueryOptions struct {
	Filter    Record
	Index     string
	Limit     int64
	Ascending bool
}

// ErrNotFound is returned by Get when no record matches key. It is a
// sentinel, not a *coreerr.Error, because the Store Adapter is a layer
// below the error taxonomy -- callers translate it.
var ErrNotFound = errors.New("store: not found")

// ErrRetryExhausted is surfaced when internal backoff for a transient
// transport error (throttling, connection reset) runs out, translated
// by callers into StorageUnavailable.
var ErrRetryExhausted = errors.New("store: retry attempts exhausted")

// Adapter is the interface every component above it depends on. The
// Mongo-backed implementation in mongo_adapter.go is the only production
// implementation; memory_adapter.go is an in-memory fake used by tests
// so the rest of the core can be exercised without a live database.
type Adapter interface {
	Get(ctx context.Context, table string, key Key) (Record, error)
	Put(ctx context.Context, table string, key Key, rec Record) error
	UpdateConditional(ctx context.Context, table string, update ConditionalUpdate) (ConditionalStatus, error)
	Query(ctx context.Context, table string, opts QueryOptions) ([]Record, error)
	BatchGet(ctx context.Context, table string, keys []Key) ([]Record, error)
	Delete(ctx context.Context, table string, key Key) error
}

// Table names, matching the persisted schema.
const (
	TableSessions       = "sessions"
	TableQuestions      = "questions"
	TableWrongEntries   = "wrong_entries"
	TableProgress       = "progress"
	TableUserDifficulty = "user_difficulty"
)

// RetryPolicy configures the exponential-backoff-with-jitter retry loop
// that wraps every transport call.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   50 * time.Millisecond,
		MaxDelay:    2 * time.Second,
	}
}
