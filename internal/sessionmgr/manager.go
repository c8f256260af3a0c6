// Package sessionmgr implements the Session State Manager: create/get/
// transition sessions and the atomic, version-guarded progress advance
// every answer submission drives.
package sessionmgr

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"adaptive-quiz-core/internal/clock"
	"adaptive-quiz-core/internal/codec"
	"adaptive-quiz-core/internal/coreerr"
	"adaptive-quiz-core/internal/models"
	"adaptive-quiz-core/internal/rng"
	"adaptive-quiz-core/internal/store"
)

// Config exposes the tunables this package is responsible for.
type Config struct {
	DefaultDurationS int // session_default_duration_s
	MaxQuestions     int // session_max_questions
	AdvanceRetries   int // advance_retry_attempts K
}

func DefaultConfig() Config {
	return Config{DefaultDurationS: 3600, MaxQuestions: 500, AdvanceRetries: 3}
}

// CatalogQuery is the narrow read-only collaborator the manager uses to
// resolve a SessionConfig's sources into a concrete question_pool; it is
// satisfied by the Store Adapter's Query against the questions table
// by source filter and limit.
type CatalogQuery interface {
	QueryQuestions(ctx context.Context, source models.SessionSource, limit int) ([]string, error)
}

type Manager struct {
	adapter store.Adapter
	catalog CatalogQuery
	clock   clock.Clock
	rng     rng.Source
	cfg     Config
}

func New(adapter store.Adapter, catalog CatalogQuery, clk clock.Clock, src rng.Source, cfg Config) *Manager {
	return &Manager{adapter: adapter, catalog: catalog, clock: clk, rng: src, cfg: cfg}
}

// Create validates config, assembles question_pool from the catalog, and
// persists a fresh Session in status created.
func (m *Manager) Create(ctx context.Context, userID string, config models.SessionConfig) (*models.Session, error) {
	if err := m.validateConfig(config); err != nil {
		return nil, err
	}
	if config.PlannedTotal == 0 {
		for _, src := range config.Sources {
			config.PlannedTotal += src.QuestionCount
		}
	}

	pool := make([]string, 0, config.PlannedTotal)
	for _, src := range config.Sources {
		ids, err := m.catalog.QueryQuestions(ctx, src, src.QuestionCount)
		if err != nil {
			return nil, coreerr.Wrap(coreerr.StorageUnavailable, "catalog query failed", err)
		}
		if len(ids) < src.QuestionCount {
			return nil, coreerr.New(coreerr.InsufficientQuestions, "catalog source has fewer questions than requested")
		}
		pool = append(pool, ids[:src.QuestionCount]...)
	}
	if len(pool) < config.PlannedTotal {
		return nil, coreerr.New(coreerr.InsufficientQuestions, "assembled pool is smaller than planned_total")
	}
	rng.Shuffle(m.rng, pool)

	now := m.clock.Now()
	session := &models.Session{
		SchemaVersion: codec.CurrentSchemaVersion,
		SessionID:     primitive.NewObjectID().Hex(),
		UserID:        userID,
		Config:        config,
		QuestionPool:  pool,
		Progress:      models.SessionProgress{AnsweredIDs: []string{}},
		Status:        models.SessionCreated,
		Version:       0,
		CreatedAt:     now,
		UpdatedAt:     now,
		ExpiresAt:     now.Add(time.Duration(m.cfg.DefaultDurationS) * time.Second),
	}

	if err := m.adapter.Put(ctx, store.TableSessions, store.Key{"_id": session.SessionID}, codec.EncodeSession(session)); err != nil {
		return nil, coreerr.Wrap(coreerr.StorageUnavailable, "failed to persist new session", err)
	}
	return session, nil
}

func (m *Manager) validateConfig(config models.SessionConfig) error {
	if config.Name == "" {
		return coreerr.WithField(coreerr.InvalidSessionConfig, "name", "must be non-empty")
	}
	if len(config.Sources) == 0 || len(config.Sources) > 10 {
		return coreerr.WithField(coreerr.InvalidSessionConfig, "sources", "must supply between 1 and 10 sources")
	}
	total := 0
	for _, src := range config.Sources {
		if src.QuestionCount <= 0 {
			return coreerr.WithField(coreerr.InvalidSessionConfig, "sources[].question_count", "must be positive")
		}
		total += src.QuestionCount
	}
	if total > m.cfg.MaxQuestions {
		return coreerr.WithField(coreerr.InvalidSessionConfig, "sources", "total question_count exceeds session_max_questions")
	}
	return nil
}

// Get point-reads (sessionID, userID), lazily surfacing the expired
// status when expires_at has passed without requiring a caller-visible
// write.
func (m *Manager) Get(ctx context.Context, sessionID, userID string) (*models.Session, error) {
	rec, err := m.adapter.Get(ctx, store.TableSessions, store.Key{"_id": sessionID})
	if err == store.ErrNotFound {
		return nil, coreerr.New(coreerr.SessionNotFound, "session does not exist")
	}
	if err != nil {
		return nil, coreerr.Wrap(coreerr.StorageUnavailable, "failed to read session", err)
	}

	session, err := codec.DecodeSession(rec)
	if err != nil {
		return nil, coreerr.Wrap(coreerr.Corrupted, "session record failed to decode", err)
	}
	if session.UserID != userID {
		return nil, coreerr.New(coreerr.UserMismatch, "session does not belong to this user")
	}

	if session.IsServing() && m.clock.Now().After(session.ExpiresAt) {
		session.Status = models.SessionExpired
	}
	return session, nil
}

// ProgressDelta is the partial mutation the Answer Resolution State
// Machine applies on a NextQuestion outcome.
type ProgressDelta struct {
	QuestionID string
	Correct    bool
	TimeS      int
}

// AdvanceProgress applies delta to session atomically, retrying on
// version conflict up to AdvanceRetries times before surfacing
// Concurrent.
func (m *Manager) AdvanceProgress(ctx context.Context, sessionID, userID string, delta ProgressDelta) (*models.Session, error) {
	for attempt := 0; attempt <= m.cfg.AdvanceRetries; attempt++ {
		session, err := m.Get(ctx, sessionID, userID)
		if err != nil {
			return nil, err
		}
		if !session.IsServing() {
			return nil, coreerr.New(coreerr.SessionNotServing, "session is not in a servable status")
		}

		firstTime := true
		for _, id := range session.Progress.AnsweredIDs {
			if id == delta.QuestionID {
				firstTime = false
				break
			}
		}

		newProgress := session.Progress
		if firstTime {
			newProgress.AnsweredIDs = append(append([]string{}, session.Progress.AnsweredIDs...), delta.QuestionID)
			newProgress.Cursor++
			if delta.Correct {
				newProgress.CorrectCount++
			} else {
				newProgress.WrongCount++
			}
		}
		newProgress.TimeSpentS += delta.TimeS

		status := session.Status
		if status == models.SessionCreated {
			status = models.SessionActive
		}

		update := store.ConditionalUpdate{
			Filter: store.Key{"_id": sessionID, "version": session.Version},
			Set: store.Record{
				"progress":   newProgress,
				"status":     string(status),
				"updated_at": m.clock.Now(),
			},
			Inc: store.Record{"version": 1},
		}
		result, err := m.adapter.UpdateConditional(ctx, store.TableSessions, update)
		if err != nil {
			return nil, coreerr.Wrap(coreerr.StorageUnavailable, "failed to advance session progress", err)
		}
		if result == store.ConditionalOK {
			session.Progress = newProgress
			session.Status = status
			session.Version++
			return session, nil
		}
	}
	return nil, coreerr.New(coreerr.Concurrent, "session progress advance lost too many version races")
}

// Transition moves session to next, gated by the allow-list in
// models.SessionStatus.CanTransitionTo, itself a conditional update so
// concurrent transitions are safe.
func (m *Manager) Transition(ctx context.Context, sessionID, userID string, next models.SessionStatus) (*models.Session, error) {
	for attempt := 0; attempt <= m.cfg.AdvanceRetries; attempt++ {
		session, err := m.Get(ctx, sessionID, userID)
		if err != nil {
			return nil, err
		}
		if !session.Status.CanTransitionTo(next) {
			return nil, coreerr.New(coreerr.InvalidTransition, "illegal session status transition")
		}

		update := store.ConditionalUpdate{
			Filter: store.Key{"_id": sessionID, "version": session.Version},
			Set: store.Record{
				"status":     string(next),
				"updated_at": m.clock.Now(),
			},
			Inc: store.Record{"version": 1},
		}
		result, err := m.adapter.UpdateConditional(ctx, store.TableSessions, update)
		if err != nil {
			return nil, coreerr.Wrap(coreerr.StorageUnavailable, "failed to transition session", err)
		}
		if result == store.ConditionalOK {
			session.Status = next
			session.Version++
			return session, nil
		}
	}
	return nil, coreerr.New(coreerr.Concurrent, "session transition lost too many version races")
}

