package models

import "time"

// MasteryThreshold is the default M: correct answers required in the
// wrong pool before an entry is evicted. Configurable, but this is the
// value NewWrongEntry uses when the caller does not override it.
const MasteryThreshold = 2

// Attempt is one append-only log entry on a WrongEntry.
type Attempt struct {
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
	Correct   bool      `bson:"correct" json:"correct"`
}

// WrongEntry records one (user, original-miss-event) in the wrong pool.
// It is stored under the composite _id (UserID, QuestionID) built by
// codec.WrongEntryID, not keyed by Timestamp; Timestamp is the instant the
// question most recently entered (or was reset in) the pool and orders
// entries oldest-first.
type WrongEntry struct {
	SchemaVersion string `bson:"schema_version" json:"schema_version"`

	UserID    string    `bson:"user_id" json:"user_id"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`

	QuestionID string `bson:"question_id" json:"question_id"`
	SessionID  string `bson:"session_id" json:"session_id"`

	RemainingCorrect  int      `bson:"remaining_correct" json:"remaining_correct"`
	FrozenChoiceOrder []string `bson:"frozen_choice_order,omitempty" json:"frozen_choice_order,omitempty"`

	Attempts      []Attempt `bson:"attempts" json:"attempts"`
	LastAttemptAt time.Time `bson:"last_attempt_at" json:"last_attempt_at"`
}

// NewWrongEntry builds the record created by Wrong-Pool Manager.add: a
// fresh entry with remaining_correct = M and no frozen order yet.
func NewWrongEntry(userID, questionID, sessionID string, mastery int, now time.Time) *WrongEntry {
	return &WrongEntry{
		SchemaVersion:    "1",
		UserID:           userID,
		Timestamp:        now,
		QuestionID:       questionID,
		SessionID:        sessionID,
		RemainingCorrect: mastery,
		Attempts:         nil,
		LastAttemptAt:    now,
	}
}

// Active reports whether this entry is still eligible to be returned by
// lookup_active / list_oldest (remaining_correct > 0).
func (e *WrongEntry) Active() bool {
	return e.RemainingCorrect > 0
}

// RecentSuccessRate is the fraction of logged attempts that were
// correct, used by the readiness score in the selection engine. Returns
// 0 when there is no attempt history yet (a brand-new miss looks
// maximally "struggling").
func (e *WrongEntry) RecentSuccessRate() float64 {
	if len(e.Attempts) == 0 {
		return 0
	}
	correct := 0
	for _, a := range e.Attempts {
		if a.Correct {
			correct++
		}
	}
	return float64(correct) / float64(len(e.Attempts))
}
