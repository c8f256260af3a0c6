package codec

import (
	"adaptive-quiz-core/internal/models"
	"adaptive-quiz-core/internal/store"
)

// WrongEntryID builds the composite Mongo _id "<user_id>#<question_id>"
// that gives "at most one active entry per (user, question)" for free
// via the collection's own _id uniqueness, instead of a separate
// check-then-insert race. See EnsureIndexes and DESIGN.md.
func WrongEntryID(userID, questionID string) string {
	return userID + "#" + questionID
}

func EncodeWrongEntry(e *models.WrongEntry) store.Record {
	attempts := make([]store.Record, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		attempts = append(attempts, store.Record{
			"timestamp": a.Timestamp,
			"correct":   a.Correct,
		})
	}
	return store.Record{
		"_id":                 WrongEntryID(e.UserID, e.QuestionID),
		"schema_version":      CurrentSchemaVersion,
		"user_id":             e.UserID,
		"timestamp":           e.Timestamp,
		"question_id":         e.QuestionID,
		"session_id":          e.SessionID,
		"remaining_correct":   e.RemainingCorrect,
		"active":              e.Active(),
		"frozen_choice_order": e.FrozenChoiceOrder,
		"attempts":            attempts,
		"last_attempt_at":     e.LastAttemptAt,
	}
}

func DecodeWrongEntry(rec store.Record) (*models.WrongEntry, error) {
	userID, ok := getString(rec, "user_id")
	if !ok {
		return nil, newDecodeError("wrong_entry", "user_id", "missing")
	}
	questionID, ok := getString(rec, "question_id")
	if !ok {
		return nil, newDecodeError("wrong_entry", "question_id", "missing")
	}
	remaining, ok := getInt(rec, "remaining_correct")
	if !ok {
		return nil, newDecodeError("wrong_entry", "remaining_correct", "missing or not numeric")
	}

	e := &models.WrongEntry{
		UserID:           userID,
		QuestionID:       questionID,
		RemainingCorrect: remaining,
	}
	e.SchemaVersion, _ = getString(rec, "schema_version")
	e.SessionID, _ = getString(rec, "session_id")
	e.Timestamp, _ = getTime(rec, "timestamp")
	e.LastAttemptAt, _ = getTime(rec, "last_attempt_at")

	if raw, ok := rec["frozen_choice_order"].([]any); ok {
		e.FrozenChoiceOrder = stringsFromAny(raw)
	}

	if raw, ok := rec["attempts"].([]any); ok {
		for _, a := range raw {
			am, ok := a.(store.Record)
			if !ok {
				continue
			}
			ts, _ := getTime(am, "timestamp")
			correct, _ := getBool(am, "correct")
			e.Attempts = append(e.Attempts, models.Attempt{Timestamp: ts, Correct: correct})
		}
	}

	return e, nil
}
