// Package wrongpool implements the Wrong-Pool Manager: lifecycle of
// per-user wrong-answer records backed by the Store Adapter. Every
// operation is scoped to one user_id, behind the narrow store.Adapter
// interface instead of a raw *mongo.Collection.
package wrongpool

import (
	"context"
	"sort"

	"adaptive-quiz-core/internal/clock"
	"adaptive-quiz-core/internal/codec"
	"adaptive-quiz-core/internal/models"
	"adaptive-quiz-core/internal/store"
)

// Manager is the Wrong-Pool Manager. It holds no state of its own;
// everything lives in the Store Adapter.
type Manager struct {
	adapter store.Adapter
	clock   clock.Clock
	mastery int
}

func New(adapter store.Adapter, clk clock.Clock, masteryThreshold int) *Manager {
	return &Manager{adapter: adapter, clock: clk, mastery: masteryThreshold}
}

// Add creates a new entry for (userID, questionID) unless one is already
// active, in which case it is a no-op -- idempotent so an at-least-once
// replay of the answer path never produces two active entries for the
// same question.
func (m *Manager) Add(ctx context.Context, userID, questionID, sessionID string) (*models.WrongEntry, error) {
	existing, err := m.LookupActive(ctx, userID, questionID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	entry := models.NewWrongEntry(userID, questionID, sessionID, m.mastery, m.clock.Now())
	if err := m.put(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// LookupActive returns the active entry for (userID, questionID), or nil
// if none exists or the existing one has been mastered/evicted.
func (m *Manager) LookupActive(ctx context.Context, userID, questionID string) (*models.WrongEntry, error) {
	rec, err := m.adapter.Get(ctx, store.TableWrongEntries, store.Key{"_id": codec.WrongEntryID(userID, questionID)})
	if err == store.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	entry, err := codec.DecodeWrongEntry(rec)
	if err != nil {
		return nil, err
	}
	if !entry.Active() {
		return nil, nil
	}
	return entry, nil
}

// ListOldest returns up to limit active entries for userID, ascending by
// timestamp (oldest miss first), the candidate pool the selection engine
// draws wrong-pool questions from.
func (m *Manager) ListOldest(ctx context.Context, userID string, limit int) ([]*models.WrongEntry, error) {
	recs, err := m.adapter.Query(ctx, store.TableWrongEntries, store.QueryOptions{
		Filter:    store.Record{"user_id": userID, "active": true},
		Ascending: true,
		Limit:     int64(limit),
	})
	if err != nil {
		return nil, err
	}
	entries := make([]*models.WrongEntry, 0, len(recs))
	for _, rec := range recs {
		e, err := codec.DecodeWrongEntry(rec)
		if err != nil {
			return nil, err
		}
		if e.Active() {
			entries = append(entries, e)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Timestamp.Before(entries[j].Timestamp) })
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// HasActive reports whether userID has at least one active entry, used
// by the selection engine's SessionComplete / wrong-pool-draw checks.
func (m *Manager) HasActive(ctx context.Context, userID string) (bool, error) {
	entries, err := m.ListOldest(ctx, userID, 1)
	if err != nil {
		return false, err
	}
	return len(entries) > 0, nil
}

// Decrement records one correct attempt against entry, returning the new
// remaining_correct. At 0, the entry is evicted for storage hygiene.
func (m *Manager) Decrement(ctx context.Context, entry *models.WrongEntry, timeS int) (int, error) {
	entry.Attempts = append(entry.Attempts, models.Attempt{Timestamp: m.clock.Now(), Correct: true})
	entry.LastAttemptAt = m.clock.Now()
	entry.RemainingCorrect--

	if entry.RemainingCorrect <= 0 {
		if err := m.Evict(ctx, entry); err != nil {
			return 0, err
		}
		return 0, nil
	}
	if err := m.put(ctx, entry); err != nil {
		return 0, err
	}
	return entry.RemainingCorrect, nil
}

// Reset reopens entry at full mastery distance after another incorrect
// attempt, used when a wrong-pool retry is answered wrong again.
func (m *Manager) Reset(ctx context.Context, entry *models.WrongEntry) error {
	entry.Attempts = append(entry.Attempts, models.Attempt{Timestamp: m.clock.Now(), Correct: false})
	entry.RemainingCorrect = m.mastery
	entry.Timestamp = m.clock.Now()
	entry.LastAttemptAt = m.clock.Now()
	entry.FrozenChoiceOrder = nil
	return m.put(ctx, entry)
}

// FreezeOrder performs the one-time write of the shuffled presentation
// order so subsequent appearances of the same wrong-pool question are
// stable.
func (m *Manager) FreezeOrder(ctx context.Context, entry *models.WrongEntry, orderedChoiceIDs []string) error {
	entry.FrozenChoiceOrder = orderedChoiceIDs
	return m.put(ctx, entry)
}

// Evict removes entry's record entirely.
func (m *Manager) Evict(ctx context.Context, entry *models.WrongEntry) error {
	return m.adapter.Delete(ctx, store.TableWrongEntries, store.Key{"_id": codec.WrongEntryID(entry.UserID, entry.QuestionID)})
}

func (m *Manager) put(ctx context.Context, entry *models.WrongEntry) error {
	rec := codec.EncodeWrongEntry(entry)
	return m.adapter.Put(ctx, store.TableWrongEntries, store.Key{"_id": codec.WrongEntryID(entry.UserID, entry.QuestionID)}, rec)
}
