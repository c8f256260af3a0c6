package codec

import (
	"adaptive-quiz-core/internal/models"
	"adaptive-quiz-core/internal/store"
)

// EncodeUserDifficulty persists target_difficulty as a Decimal128
// (exact-decimal), not a binary float64, so repeated adjustment cycles
// never accumulate rounding drift.
func EncodeUserDifficulty(d *models.UserDifficulty) (store.Record, error) {
	dec, err := floatToDecimal(d.TargetDifficulty)
	if err != nil {
		return nil, err
	}
	return store.Record{
		"_id":               d.UserID,
		"schema_version":    CurrentSchemaVersion,
		"user_id":           d.UserID,
		"target_difficulty": dec,
		"recent_outcomes":   boolsToAny(d.RecentOutcomes),
		"updated_at":        d.UpdatedAt,
	}, nil
}

func DecodeUserDifficulty(rec store.Record) (*models.UserDifficulty, error) {
	userID, ok := getString(rec, "user_id")
	if !ok {
		return nil, newDecodeError("user_difficulty", "user_id", "missing")
	}
	target, ok := getFloat(rec, "target_difficulty")
	if !ok {
		return nil, newDecodeError("user_difficulty", "target_difficulty", "missing or not numeric")
	}

	d := &models.UserDifficulty{UserID: userID, TargetDifficulty: target}
	d.SchemaVersion, _ = getString(rec, "schema_version")
	d.UpdatedAt, _ = getTime(rec, "updated_at")
	if raw, ok := rec["recent_outcomes"].([]any); ok {
		for _, v := range raw {
			if b, ok := v.(bool); ok {
				d.RecentOutcomes = append(d.RecentOutcomes, b)
			}
		}
	}
	return d, nil
}
