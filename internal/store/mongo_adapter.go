package store

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoAdapter implements Adapter over go.mongodb.org/mongo-driver,
// generalizing what used to be one collection wrapper per entity into
// a single narrow interface. It is the store's single pooled client
// (see DESIGN.md / spec §5) and is shared across every concurrent
// request, so its jitter source is mutex-guarded rather than a bare
// *rand.Rand, which is not safe for concurrent use.
type MongoAdapter struct {
	db    *mongo.Database
	retry RetryPolicy

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewMongoAdapter(db *mongo.Database, retry RetryPolicy) *MongoAdapter {
	return &MongoAdapter{
		db:    db,
		retry: retry,
		rnd:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// jitter returns a random duration in [0, n) guarded by rndMu.
func (a *MongoAdapter) jitter(n int64) time.Duration {
	if n <= 0 {
		return 0
	}
	a.rndMu.Lock()
	defer a.rndMu.Unlock()
	return time.Duration(a.rnd.Int63n(n))
}

func (a *MongoAdapter) collection(table string) *mongo.Collection {
	return a.db.Collection(table)
}

// withRetry runs op, retrying transient transport errors with
// exponential backoff + jitter up to MaxAttempts, honouring ctx's
// deadline. Non-transient errors are returned immediately.
func (a *MongoAdapter) withRetry(ctx context.Context, op func() error) error {
	var lastErr error
	delay := a.retry.BaseDelay
	for attempt := 0; attempt <= a.retry.MaxAttempts; attempt++ {
		err := op()
		if err == nil {
			return nil
		}
		if !isTransient(err) {
			return err
		}
		lastErr = err
		if attempt == a.retry.MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay + a.jitter(int64(delay)/2)):
		}
		delay *= 2
		if delay > a.retry.MaxDelay {
			delay = a.retry.MaxDelay
		}
	}
	return errors.Join(ErrRetryExhausted, lastErr)
}

func isTransient(err error) bool {
	if err == nil {
		return false
	}
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.HasErrorLabel("TransientTransactionError") || cmdErr.Code == 11601 /* interrupted */
	}
	return mongo.IsNetworkError(err) || mongo.IsTimeout(err)
}

func (a *MongoAdapter) Get(ctx context.Context, table string, key Key) (Record, error) {
	var rec Record
	err := a.withRetry(ctx, func() error {
		res := a.collection(table).FindOne(ctx, bson.M(key))
		if res.Err() != nil {
			if errors.Is(res.Err(), mongo.ErrNoDocuments) {
				return mongo.ErrNoDocuments
			}
			return res.Err()
		}
		return res.Decode(&rec)
	})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (a *MongoAdapter) Put(ctx context.Context, table string, key Key, rec Record) error {
	merged := bson.M{}
	for k, v := range rec {
		merged[k] = v
	}
	for k, v := range key {
		merged[k] = v
	}
	opts := options.Replace().SetUpsert(true)
	return a.withRetry(ctx, func() error {
		_, err := a.collection(table).ReplaceOne(ctx, bson.M(key), merged, opts)
		return err
	})
}

func (a *MongoAdapter) UpdateConditional(ctx context.Context, table string, update ConditionalUpdate) (ConditionalStatus, error) {
	setDoc := bson.M(update.Set)
	updateDoc := bson.M{}
	if len(setDoc) > 0 {
		updateDoc["$set"] = setDoc
	}
	if len(update.Inc) > 0 {
		updateDoc["$inc"] = bson.M(update.Inc)
	}
	var matched int64
	err := a.withRetry(ctx, func() error {
		res, err := a.collection(table).UpdateOne(ctx, bson.M(update.Filter), updateDoc)
		if err != nil {
			return err
		}
		matched = res.MatchedCount
		return nil
	})
	if err != nil {
		return ConditionalConflict, err
	}
	if matched == 0 {
		return ConditionalConflict, nil
	}
	return ConditionalOK, nil
}

func (a *MongoAdapter) Query(ctx context.Context, table string, opts QueryOptions) ([]Record, error) {
	findOpts := options.Find()
	if opts.Limit > 0 {
		findOpts.SetLimit(opts.Limit)
	}
	if opts.Index != "" {
		findOpts.SetHint(opts.Index)
	}
	dir := -1
	if opts.Ascending {
		dir = 1
	}
	findOpts.SetSort(bson.D{{Key: "timestamp", Value: dir}})

	var recs []Record
	err := a.withRetry(ctx, func() error {
		recs = nil
		cur, err := a.collection(table).Find(ctx, bson.M(opts.Filter), findOpts)
		if err != nil {
			return err
		}
		defer cur.Close(ctx)
		for cur.Next(ctx) {
			var r Record
			if err := cur.Decode(&r); err != nil {
				return err
			}
			recs = append(recs, r)
		}
		return cur.Err()
	})
	return recs, err
}

func (a *MongoAdapter) BatchGet(ctx context.Context, table string, keys []Key) ([]Record, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	ids := make([]any, 0, len(keys))
	for _, k := range keys {
		if id, ok := k["_id"]; ok {
			ids = append(ids, id)
		}
	}
	const chunkSize = 100
	var all []Record
	for i := 0; i < len(ids); i += chunkSize {
		end := i + chunkSize
		if end > len(ids) {
			end = len(ids)
		}
		var recs []Record
		err := a.withRetry(ctx, func() error {
			recs = nil
			cur, err := a.collection(table).Find(ctx, bson.M{"_id": bson.M{"$in": ids[i:end]}})
			if err != nil {
				return err
			}
			defer cur.Close(ctx)
			for cur.Next(ctx) {
				var r Record
				if err := cur.Decode(&r); err != nil {
					return err
				}
				recs = append(recs, r)
			}
			return cur.Err()
		})
		if err != nil {
			return nil, err
		}
		all = append(all, recs...)
	}
	return all, nil
}

func (a *MongoAdapter) Delete(ctx context.Context, table string, key Key) error {
	return a.withRetry(ctx, func() error {
		_, err := a.collection(table).DeleteOne(ctx, bson.M(key))
		return err
	})
}
