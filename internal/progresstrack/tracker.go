// Package progresstrack implements the Progress Tracker: the
// per-(user, question) attempt tally. It is strictly append-style --
// record_attempt never decrements a counter, and replaying the same
// attempt under at-least-once delivery costs at most one extra
// increment, which is the accepted tradeoff documented in DESIGN.md.
package progresstrack

import (
	"context"

	"adaptive-quiz-core/internal/clock"
	"adaptive-quiz-core/internal/codec"
	"adaptive-quiz-core/internal/models"
	"adaptive-quiz-core/internal/store"
)

type Tracker struct {
	adapter store.Adapter
	clock   clock.Clock
}

func New(adapter store.Adapter, clk clock.Clock) *Tracker {
	return &Tracker{adapter: adapter, clock: clk}
}

// RecordAttempt inserts a fresh Progress row on first sight of
// (userID, questionID), otherwise loads, mutates, and writes back the
// existing one. Returns the updated record so callers (the Answer
// Resolution State Machine) can derive the mastery flag without a
// second read.
func (t *Tracker) RecordAttempt(ctx context.Context, userID, questionID, sessionID string, correct bool, timeS int) (*models.Progress, error) {
	_ = sessionID // accepted but not stored: the Progress row has no session_id field and no session_id index exists

	prog, err := t.get(ctx, userID, questionID)
	if err != nil {
		return nil, err
	}
	if prog == nil {
		prog = &models.Progress{UserID: userID, QuestionID: questionID}
	}

	prog.RecordAttempt(correct, timeS, t.clock.Now())

	if err := t.adapter.Put(ctx, store.TableProgress, store.Key{"_id": codec.ProgressID(userID, questionID)}, codec.EncodeProgress(prog)); err != nil {
		return nil, err
	}
	return prog, nil
}

// Get returns the current Progress for (userID, questionID), or nil if
// the pair has never been attempted.
func (t *Tracker) Get(ctx context.Context, userID, questionID string) (*models.Progress, error) {
	return t.get(ctx, userID, questionID)
}

func (t *Tracker) get(ctx context.Context, userID, questionID string) (*models.Progress, error) {
	rec, err := t.adapter.Get(ctx, store.TableProgress, store.Key{"_id": codec.ProgressID(userID, questionID)})
	if err == store.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return codec.DecodeProgress(rec)
}

// QuestionSuccessRate aggregates Progress across all users for
// questionID, the input the Difficulty Model's question_difficulty
// formula needs. Returns ok=false when fewer than minAttempts
// have been recorded, the declared-difficulty fallback trigger.
func (t *Tracker) QuestionSuccessRate(ctx context.Context, questionID string, minAttempts int) (successRate float64, avgTimeS float64, attempts int, ok bool, err error) {
	recs, err := t.adapter.Query(ctx, store.TableProgress, store.QueryOptions{
		Filter: store.Record{"question_id": questionID},
	})
	if err != nil {
		return 0, 0, 0, false, err
	}

	var totalAttempts, totalCorrect, totalTimeS int
	for _, rec := range recs {
		p, derr := codec.DecodeProgress(rec)
		if derr != nil {
			return 0, 0, 0, false, derr
		}
		totalAttempts += p.AttemptsTotal
		totalCorrect += p.AttemptsCorrect
		totalTimeS += p.CumulativeTimeS
	}

	if totalAttempts < minAttempts {
		return 0, 0, totalAttempts, false, nil
	}
	return float64(totalCorrect) / float64(totalAttempts), float64(totalTimeS) / float64(totalAttempts), totalAttempts, true, nil
}
