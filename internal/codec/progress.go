package codec

import (
	"adaptive-quiz-core/internal/models"
	"adaptive-quiz-core/internal/store"
)

// ProgressID is the composite _id "<user_id>#<question_id>" for the
// per-(user,question) aggregate, mirroring WrongEntryID's reasoning: the
// natural composite key becomes the primary key instead of a secondary
// uniqueness constraint.
func ProgressID(userID, questionID string) string {
	return userID + "#" + questionID
}

func EncodeProgress(p *models.Progress) store.Record {
	return store.Record{
		"_id":                ProgressID(p.UserID, p.QuestionID),
		"schema_version":     CurrentSchemaVersion,
		"user_id":            p.UserID,
		"question_id":        p.QuestionID,
		"attempts_total":     p.AttemptsTotal,
		"attempts_correct":   p.AttemptsCorrect,
		"attempts_incorrect": p.AttemptsIncorrect,
		"first_seen_at":      p.FirstSeenAt,
		"last_attempt_at":    p.LastAttemptAt,
		"cumulative_time_s":  p.CumulativeTimeS,
		"last_two_correct":   boolsToAny(p.LastTwoCorrect),
	}
}

func DecodeProgress(rec store.Record) (*models.Progress, error) {
	userID, ok := getString(rec, "user_id")
	if !ok {
		return nil, newDecodeError("progress", "user_id", "missing")
	}
	questionID, ok := getString(rec, "question_id")
	if !ok {
		return nil, newDecodeError("progress", "question_id", "missing")
	}

	p := &models.Progress{UserID: userID, QuestionID: questionID}
	p.SchemaVersion, _ = getString(rec, "schema_version")
	p.AttemptsTotal, _ = getInt(rec, "attempts_total")
	p.AttemptsCorrect, _ = getInt(rec, "attempts_correct")
	p.AttemptsIncorrect, _ = getInt(rec, "attempts_incorrect")
	p.CumulativeTimeS, _ = getInt(rec, "cumulative_time_s")
	p.FirstSeenAt, _ = getTime(rec, "first_seen_at")
	p.LastAttemptAt, _ = getTime(rec, "last_attempt_at")

	if raw, ok := rec["last_two_correct"].([]any); ok {
		for _, v := range raw {
			if b, ok := v.(bool); ok {
				p.LastTwoCorrect = append(p.LastTwoCorrect, b)
			}
		}
	}

	return p, nil
}

func boolsToAny(bs []bool) []any {
	out := make([]any, len(bs))
	for i, b := range bs {
		out[i] = b
	}
	return out
}
