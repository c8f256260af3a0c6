// internal/models/session.go
package models

import "time"

// SessionStatus is the session's lifecycle state. Transitions are gated
// by Session.CanTransitionTo, not left to callers to enforce ad hoc.
type SessionStatus string

const (
	SessionCreated   SessionStatus = "created"
	SessionActive    SessionStatus = "active"
	SessionPaused    SessionStatus = "paused"
	SessionCompleted SessionStatus = "completed"
	SessionExpired   SessionStatus = "expired"
	SessionCancelled SessionStatus = "cancelled"
)

func (s SessionStatus) Valid() bool {
	switch s {
	case SessionCreated, SessionActive, SessionPaused, SessionCompleted, SessionExpired, SessionCancelled:
		return true
	default:
		return false
	}
}

// sessionTransitions is the allow-list: created->{active,
// cancelled}, active->{paused, completed, cancelled}, paused->{active,
// cancelled}; completed/cancelled/expired are terminal.
var sessionTransitions = map[SessionStatus]map[SessionStatus]bool{
	SessionCreated: {SessionActive: true, SessionCancelled: true},
	SessionActive:  {SessionPaused: true, SessionCompleted: true, SessionCancelled: true},
	SessionPaused:  {SessionActive: true, SessionCancelled: true},
}

// CanTransitionTo reports whether moving from s to next is legal.
func (s SessionStatus) CanTransitionTo(next SessionStatus) bool {
	return sessionTransitions[s][next]
}

// SessionSource names one catalog source a session pool is drawn from
// (e.g. a provider/certificate/category combination) along with how many
// questions to draw from it.
type SessionSource struct {
	Category       string `bson:"category,omitempty" json:"category,omitempty"`
	Provider       string `bson:"provider,omitempty" json:"provider,omitempty"`
	Certificate    string `bson:"certificate,omitempty" json:"certificate,omitempty"`
	Language       string `bson:"language,omitempty" json:"language,omitempty"`
	QuestionCount  int    `bson:"question_count" json:"question_count"`
}

// SessionConfig is the caller-supplied configuration at creation time.
type SessionConfig struct {
	Name             string          `bson:"name" json:"name"`
	Sources          []SessionSource `bson:"sources" json:"sources"`
	Settings         map[string]any  `bson:"settings,omitempty" json:"settings,omitempty"`
	PlannedTotal     int             `bson:"planned_total" json:"planned_total"`
	EstimatedSeconds int             `bson:"estimated_seconds" json:"estimated_seconds"`
}

// SessionProgress is the session's own cursor/tally state; it excludes
// the per-(user,question) Progress aggregate owned by the user.
type SessionProgress struct {
	Cursor       int      `bson:"cursor" json:"cursor"`
	AnsweredIDs  []string `bson:"answered_ids" json:"answered_ids"`
	CorrectCount int      `bson:"correct_count" json:"correct_count"`
	WrongCount   int      `bson:"wrong_count" json:"wrong_count"`
	TimeSpentS   int      `bson:"time_spent_s" json:"time_spent_s"`
}

// Session is a user's attempt at a fixed, pre-selected question pool.
// Composite identity is (SessionID, UserID); concurrent mutation is
// coordinated exclusively through Version.
type Session struct {
	SchemaVersion string `bson:"schema_version" json:"schema_version"`

	SessionID string `bson:"_id" json:"session_id"`
	UserID    string `bson:"user_id" json:"user_id"`

	Config       SessionConfig   `bson:"config" json:"config"`
	QuestionPool []string        `bson:"question_pool" json:"question_pool"`
	Progress     SessionProgress `bson:"progress" json:"progress"`
	Status       SessionStatus   `bson:"status" json:"status"`

	Version int `bson:"version" json:"version"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
}

// IsServing reports whether the session can currently hand out a
// question.
func (s *Session) IsServing() bool {
	return s.Status == SessionCreated || s.Status == SessionActive
}

// AnsweredSet returns the answered_ids as a lookup set, used by the
// regular-selection candidate computation (question_pool \ answered_ids).
func (s *Session) AnsweredSet() map[string]struct{} {
	set := make(map[string]struct{}, len(s.Progress.AnsweredIDs))
	for _, id := range s.Progress.AnsweredIDs {
		set[id] = struct{}{}
	}
	return set
}

// RemainingPool returns question_pool ids not yet in answered_ids, in
// pool order.
func (s *Session) RemainingPool() []string {
	answered := s.AnsweredSet()
	remaining := make([]string, 0, len(s.QuestionPool)-len(answered))
	for _, id := range s.QuestionPool {
		if _, done := answered[id]; !done {
			remaining = append(remaining, id)
		}
	}
	return remaining
}
