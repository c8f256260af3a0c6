// Package quizcore wires the Session State Manager, Adaptive Selection
// Engine, Answer Resolution State Machine, Difficulty Model, Wrong-Pool
// Manager, and Progress Tracker into the single facade the HTTP surface
// and the end-to-end scenario tests in engine_test.go drive. Nothing in this
// package owns storage or business rules of its own -- it only
// sequences calls across the components above and fires the
// best-effort session_completed notification.
package quizcore

import (
	"context"

	"adaptive-quiz-core/internal/answer"
	"adaptive-quiz-core/internal/clock"
	"adaptive-quiz-core/internal/difficulty"
	"adaptive-quiz-core/internal/event"
	"adaptive-quiz-core/internal/models"
	"adaptive-quiz-core/internal/progresstrack"
	"adaptive-quiz-core/internal/rng"
	"adaptive-quiz-core/internal/selection"
	"adaptive-quiz-core/internal/sessionmgr"
	"adaptive-quiz-core/internal/store"
	"adaptive-quiz-core/internal/wrongpool"
)

// Config collects every tunable the core components expose.
// DefaultConfig's values match the documented defaults exactly.
type Config struct {
	MasteryThreshold        int     // M
	WrongPoolProbability    float64 // P_wrong
	DifficultyWindow        int     // W
	TargetSuccessRate       float64 // T
	DifficultyDelta         float64 // Δ
	SpacedIntervalsH        []float64
	SessionDefaultDurationS int
	SessionMaxQuestions     int
	AdvanceRetryAttempts    int // K
}

func DefaultConfig() Config {
	return Config{
		MasteryThreshold:        models.MasteryThreshold,
		WrongPoolProbability:    0.20,
		DifficultyWindow:        10,
		TargetSuccessRate:       0.75,
		DifficultyDelta:         0.15,
		SpacedIntervalsH:        []float64{1, 4, 24, 72, 168},
		SessionDefaultDurationS: 3600,
		SessionMaxQuestions:     500,
		AdvanceRetryAttempts:    3,
	}
}

// Engine is the facade. Construct one per process and share it across
// requests; every collaborator it holds is safe for concurrent use.
type Engine struct {
	sessions   *sessionmgr.Manager
	selection  *selection.Engine
	resolver   *answer.Resolver
	difficulty *difficulty.Model
	wrongPool  *wrongpool.Manager
	publisher  *event.EventPublisher
}

// New wires every component from a single Store Adapter, catalog query,
// clock, RNG source, and Config. publisher may be nil, in which case
// session_completed notifications are silently skipped -- delivery is
// best-effort and core correctness never depends on it.
func New(adapter store.Adapter, catalog sessionmgr.CatalogQuery, clk clock.Clock, src rng.Source, cfg Config, publisher *event.EventPublisher) *Engine {
	tracker := progresstrack.New(adapter, clk)
	wp := wrongpool.New(adapter, clk, cfg.MasteryThreshold)
	dm := difficulty.New(adapter, tracker, clk, difficulty.Config{
		Window:            cfg.DifficultyWindow,
		TargetSuccessRate: cfg.TargetSuccessRate,
		Delta:             cfg.DifficultyDelta,
		Tolerance:         0.10,
		MinAttemptsForQ:   10,
	})
	sessions := sessionmgr.New(adapter, catalog, clk, src, sessionmgr.Config{
		DefaultDurationS: cfg.SessionDefaultDurationS,
		MaxQuestions:     cfg.SessionMaxQuestions,
		AdvanceRetries:   cfg.AdvanceRetryAttempts,
	})
	sel := selection.New(adapter, wp, dm, clk, src, selection.Config{
		WrongPoolProbability: cfg.WrongPoolProbability,
		SpacedIntervalsH:     cfg.SpacedIntervalsH,
	})
	resolver := answer.New(adapter, wp, tracker, sessions, dm, src, clk)

	return &Engine{
		sessions:   sessions,
		selection:  sel,
		resolver:   resolver,
		difficulty: dm,
		wrongPool:  wp,
		publisher:  publisher,
	}
}

// CreateSession assembles a fresh session's question pool and persists
// it in status created.
func (e *Engine) CreateSession(ctx context.Context, userID string, config models.SessionConfig) (*models.Session, error) {
	return e.sessions.Create(ctx, userID, config)
}

// GetSession point-reads a session, lazily surfacing expiry.
func (e *Engine) GetSession(ctx context.Context, sessionID, userID string) (*models.Session, error) {
	return e.sessions.Get(ctx, sessionID, userID)
}

// NextQuestion runs the Adaptive Selection Engine against the caller's
// current target difficulty.
func (e *Engine) NextQuestion(ctx context.Context, sessionID, userID string) (*selection.Result, error) {
	session, err := e.sessions.Get(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	ud, err := e.difficulty.TargetDifficulty(ctx, userID)
	if err != nil {
		return nil, err
	}
	return e.selection.SelectNext(ctx, session, ud.TargetDifficulty)
}

// SubmitAnswer grades one answer and runs the full outcome-table
// sequence. When the outcome promotes the session to SessionComplete,
// it also performs the completed transition and fires the best-effort
// session_completed notification.
func (e *Engine) SubmitAnswer(ctx context.Context, sessionID, userID, questionID string, selected []string, timeS int) (*models.AnswerOutcome, error) {
	outcome, err := e.resolver.Submit(ctx, sessionID, userID, questionID, selected, timeS)
	if err != nil {
		return nil, err
	}

	if outcome.Action == models.NextActionSessionComplete {
		session, tErr := e.sessions.Transition(ctx, sessionID, userID, models.SessionCompleted)
		if tErr != nil {
			return outcome, tErr
		}
		e.notifyCompleted(session)
	}

	return outcome, nil
}

// Pause, Resume, Cancel, and Complete drive the session lifecycle
// transitions the HTTP surface exposes directly, beyond the ones
// SubmitAnswer triggers implicitly.
func (e *Engine) Pause(ctx context.Context, sessionID, userID string) (*models.Session, error) {
	return e.sessions.Transition(ctx, sessionID, userID, models.SessionPaused)
}

func (e *Engine) Resume(ctx context.Context, sessionID, userID string) (*models.Session, error) {
	return e.sessions.Transition(ctx, sessionID, userID, models.SessionActive)
}

func (e *Engine) Cancel(ctx context.Context, sessionID, userID string) (*models.Session, error) {
	return e.sessions.Transition(ctx, sessionID, userID, models.SessionCancelled)
}

// Complete forces early completion (e.g. an operator or user-initiated
// "finish now" action), firing the same notification SubmitAnswer does
// when the pool naturally drains.
func (e *Engine) Complete(ctx context.Context, sessionID, userID string) (*models.Session, error) {
	session, err := e.sessions.Transition(ctx, sessionID, userID, models.SessionCompleted)
	if err != nil {
		return nil, err
	}
	e.notifyCompleted(session)
	return session, nil
}

// Progress returns a session's own cursor/tally state.
func (e *Engine) Progress(ctx context.Context, sessionID, userID string) (*models.SessionProgress, error) {
	session, err := e.sessions.Get(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	return &session.Progress, nil
}

func (e *Engine) notifyCompleted(session *models.Session) {
	if e.publisher == nil {
		return
	}
	summary := map[string]any{
		"question_count": len(session.QuestionPool),
		"correct_count":  session.Progress.CorrectCount,
		"wrong_count":    session.Progress.WrongCount,
		"time_spent_s":   session.Progress.TimeSpentS,
	}
	_ = e.publisher.PublishSessionCompleted(session.SessionID, session.UserID, summary)
}
