package codec

import (
	"adaptive-quiz-core/internal/models"
	"adaptive-quiz-core/internal/store"
)

// EncodeSession flattens a Session into the record the Store Adapter
// persists. Version, CreatedAt/UpdatedAt/ExpiresAt and the nested
// Config/Progress structs are stored as-is; the Mongo driver marshals
// nested structs into sub-documents natively, so there's no manual
// flattening needed beyond the top-level fields the conditional update
// filters on (_id, version).
func EncodeSession(s *models.Session) store.Record {
	return store.Record{
		"_id":            s.SessionID,
		"schema_version": CurrentSchemaVersion,
		"user_id":        s.UserID,
		"config":         s.Config,
		"question_pool":  s.QuestionPool,
		"progress":       s.Progress,
		"status":         string(s.Status),
		"version":        s.Version,
		"created_at":     s.CreatedAt,
		"updated_at":     s.UpdatedAt,
		"expires_at":     s.ExpiresAt,
	}
}

// DecodeSession is EncodeSession's inverse.
func DecodeSession(rec store.Record) (*models.Session, error) {
	id, ok := getString(rec, "_id")
	if !ok || id == "" {
		return nil, newDecodeError("session", "_id", "missing or not a string")
	}

	userID, ok := getString(rec, "user_id")
	if !ok {
		return nil, newDecodeError("session", "user_id", "missing")
	}

	status, ok := getString(rec, "status")
	if !ok {
		return nil, newDecodeError("session", "status", "missing")
	}
	sessionStatus := models.SessionStatus(status)
	if !sessionStatus.Valid() {
		return nil, newDecodeError("session", "status", "unknown tag: "+status)
	}

	version, ok := getInt(rec, "version")
	if !ok {
		return nil, newDecodeError("session", "version", "missing or not numeric")
	}

	s := &models.Session{
		SessionID: id,
		UserID:    userID,
		Status:    sessionStatus,
		Version:   version,
	}
	s.SchemaVersion, _ = getString(rec, "schema_version")
	s.CreatedAt, _ = getTime(rec, "created_at")
	s.UpdatedAt, _ = getTime(rec, "updated_at")
	s.ExpiresAt, _ = getTime(rec, "expires_at")

	if cfg, ok := rec["config"].(models.SessionConfig); ok {
		s.Config = cfg
	} else if cfg, ok := rec["config"].(store.Record); ok {
		s.Config = decodeSessionConfig(cfg)
	}

	if pool, ok := rec["question_pool"].([]string); ok {
		s.QuestionPool = pool
	} else if raw, ok := rec["question_pool"].([]any); ok {
		s.QuestionPool = stringsFromAny(raw)
	}

	if prog, ok := rec["progress"].(models.SessionProgress); ok {
		s.Progress = prog
	} else if prog, ok := rec["progress"].(store.Record); ok {
		s.Progress = decodeSessionProgress(prog)
	}

	return s, nil
}

func decodeSessionConfig(rec store.Record) models.SessionConfig {
	cfg := models.SessionConfig{}
	cfg.Name, _ = getString(rec, "name")
	cfg.PlannedTotal, _ = getInt(rec, "planned_total")
	cfg.EstimatedSeconds, _ = getInt(rec, "estimated_seconds")
	if settings, ok := rec["settings"].(map[string]any); ok {
		cfg.Settings = settings
	}
	if raw, ok := rec["sources"].([]any); ok {
		for _, s := range raw {
			if sm, ok := s.(store.Record); ok {
				src := models.SessionSource{}
				src.Category, _ = getString(sm, "category")
				src.Provider, _ = getString(sm, "provider")
				src.Certificate, _ = getString(sm, "certificate")
				src.Language, _ = getString(sm, "language")
				src.QuestionCount, _ = getInt(sm, "question_count")
				cfg.Sources = append(cfg.Sources, src)
			}
		}
	}
	return cfg
}

func decodeSessionProgress(rec store.Record) models.SessionProgress {
	p := models.SessionProgress{}
	p.Cursor, _ = getInt(rec, "cursor")
	p.CorrectCount, _ = getInt(rec, "correct_count")
	p.WrongCount, _ = getInt(rec, "wrong_count")
	p.TimeSpentS, _ = getInt(rec, "time_spent_s")
	if raw, ok := rec["answered_ids"].([]any); ok {
		p.AnsweredIDs = stringsFromAny(raw)
	}
	return p
}

func stringsFromAny(raw []any) []string {
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
