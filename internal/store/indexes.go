package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates every index the persisted schema relies on. It
// is idempotent -- CreateMany against an already-existing index is a
// no-op -- so it is safe to call on every boot.
//
// wrong_entries uses a composite string _id of "<user_id>#<question_id>"
// (built by codec.WrongEntryID) instead of a generated ObjectID, which
// gives "at most one entry per (user, question)" for free via the
// collection's existing _id uniqueness rather than a race-prone
// check-then-insert. This resolves one of the open questions left by the
// distilled spec: how uniqueness of the active wrong-pool entry is
// enforced without a literal secondary unique index.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	specs := map[string][]mongo.IndexModel{
		TableSessions: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "created_at", Value: -1}}},
		},
		TableQuestions: {
			{Keys: bson.D{{Key: "category", Value: 1}, {Key: "language", Value: 1}}},
			{Keys: bson.D{{Key: "provider", Value: 1}, {Key: "certificate", Value: 1}}},
		},
		TableWrongEntries: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "active", Value: 1}, {Key: "last_attempt_at", Value: 1}}},
		},
		TableProgress: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "question_id", Value: 1}}},
			{Keys: bson.D{{Key: "question_id", Value: 1}, {Key: "last_attempt_at", Value: 1}}},
		},
		TableUserDifficulty: {
			{Keys: bson.D{{Key: "user_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}

	for table, models := range specs {
		if len(models) == 0 {
			continue
		}
		if _, err := db.Collection(table).Indexes().CreateMany(ctx, models); err != nil {
			return err
		}
	}
	return nil
}
