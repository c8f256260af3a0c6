package models

import "time"

// Progress is the per-(user, question) aggregate. It is append-only: the
// tracker never decrements these counters, only Reset-style test helpers
// should ever zero them out.
type Progress struct {
	SchemaVersion string `bson:"schema_version" json:"schema_version"`

	UserID     string `bson:"user_id" json:"user_id"`
	QuestionID string `bson:"question_id" json:"question_id"`

	AttemptsTotal     int `bson:"attempts_total" json:"attempts_total"`
	AttemptsCorrect   int `bson:"attempts_correct" json:"attempts_correct"`
	AttemptsIncorrect int `bson:"attempts_incorrect" json:"attempts_incorrect"`

	FirstSeenAt      time.Time `bson:"first_seen_at" json:"first_seen_at"`
	LastAttemptAt    time.Time `bson:"last_attempt_at" json:"last_attempt_at"`
	CumulativeTimeS  int       `bson:"cumulative_time_s" json:"cumulative_time_s"`

	// LastTwoCorrect tracks the correctness of the two most recent
	// attempts (oldest first) so MasteryFlag can be derived without a
	// second read. This repo tolerates at-most-one drift under
	// concurrency rather than a strict transactional multi-attribute
	// update (see DESIGN.md).
	LastTwoCorrect []bool `bson:"last_two_correct" json:"last_two_correct"`
}

// RecordAttempt applies one attempt in place: insert-or-append
// semantics, atomic increments, never decrements.
func (p *Progress) RecordAttempt(correct bool, timeS int, now time.Time) {
	if p.AttemptsTotal == 0 {
		p.FirstSeenAt = now
	}
	p.AttemptsTotal++
	if correct {
		p.AttemptsCorrect++
	} else {
		p.AttemptsIncorrect++
	}
	p.LastAttemptAt = now
	p.CumulativeTimeS += timeS

	p.LastTwoCorrect = append(p.LastTwoCorrect, correct)
	if len(p.LastTwoCorrect) > 2 {
		p.LastTwoCorrect = p.LastTwoCorrect[len(p.LastTwoCorrect)-2:]
	}
}

// MasteryFlag is true when the two most recent attempts were both
// correct and the caller confirms no active WrongEntry remains for this
// question (the WrongEntry check happens in the wrong-pool manager, not
// here, since Progress has no visibility into it).
func (p *Progress) MasteryFlag(noActiveWrongEntry bool) bool {
	if !noActiveWrongEntry || len(p.LastTwoCorrect) < 2 {
		return false
	}
	return p.LastTwoCorrect[0] && p.LastTwoCorrect[1]
}

// UserDifficulty is the per-user adaptive target difficulty maintained
// by the Difficulty Model.
type UserDifficulty struct {
	SchemaVersion string `bson:"schema_version" json:"schema_version"`

	UserID           string    `bson:"user_id" json:"user_id"`
	TargetDifficulty float64   `bson:"target_difficulty" json:"target_difficulty"`
	RecentOutcomes   []bool    `bson:"recent_outcomes" json:"recent_outcomes"`
	UpdatedAt        time.Time `bson:"updated_at" json:"updated_at"`
}

const (
	DefaultTargetDifficulty = 0.5
	MinDifficulty           = 0.1
	MaxDifficulty           = 1.0
)

func NewUserDifficulty(userID string, now time.Time) *UserDifficulty {
	return &UserDifficulty{
		SchemaVersion:    "1",
		UserID:           userID,
		TargetDifficulty: DefaultTargetDifficulty,
		UpdatedAt:        now,
	}
}

// ClampDifficulty clamps v to [MinDifficulty, MaxDifficulty].
func ClampDifficulty(v float64) float64 {
	if v < MinDifficulty {
		return MinDifficulty
	}
	if v > MaxDifficulty {
		return MaxDifficulty
	}
	return v
}
