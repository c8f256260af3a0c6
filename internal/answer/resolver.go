// Package answer implements the Answer Resolution State Machine:
// grades a submitted answer, drives the wrong-pool transitions in the
// outcome table, and produces the next-action outcome the caller acts
// on.
package answer

import (
	"context"
	"fmt"

	"adaptive-quiz-core/internal/clock"
	"adaptive-quiz-core/internal/codec"
	"adaptive-quiz-core/internal/coreerr"
	"adaptive-quiz-core/internal/difficulty"
	"adaptive-quiz-core/internal/models"
	"adaptive-quiz-core/internal/progresstrack"
	"adaptive-quiz-core/internal/rng"
	"adaptive-quiz-core/internal/selection"
	"adaptive-quiz-core/internal/sessionmgr"
	"adaptive-quiz-core/internal/store"
	"adaptive-quiz-core/internal/wrongpool"
)

type Resolver struct {
	adapter   store.Adapter
	wrongPool *wrongpool.Manager
	tracker   *progresstrack.Tracker
	sessions  *sessionmgr.Manager
	diffModel *difficulty.Model
	rng       rng.Source
	clock     clock.Clock
}

func New(
	adapter store.Adapter,
	wrongPool *wrongpool.Manager,
	tracker *progresstrack.Tracker,
	sessions *sessionmgr.Manager,
	diffModel *difficulty.Model,
	src rng.Source,
	clk clock.Clock,
) *Resolver {
	return &Resolver{
		adapter:   adapter,
		wrongPool: wrongPool,
		tracker:   tracker,
		sessions:  sessions,
		diffModel: diffModel,
		rng:       src,
		clock:     clk,
	}
}

// Submit runs the full side-effect sequence for one answer: fetch,
// grade, mutate wrong-pool, record progress, advance session (on
// NextQuestion only), update difficulty.
func (r *Resolver) Submit(ctx context.Context, sessionID, userID, questionID string, selected []string, timeS int) (*models.AnswerOutcome, error) {
	session, err := r.sessions.Get(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	if !session.IsServing() {
		return nil, coreerr.New(coreerr.SessionNotServing, "session is not in a servable status")
	}

	q, err := r.getQuestion(ctx, questionID)
	if err != nil {
		return nil, err
	}

	correct, err := grade(q, selected)
	if err != nil {
		return nil, err
	}

	priorActive, err := r.wrongPool.LookupActive(ctx, userID, questionID)
	if err != nil {
		return nil, err
	}

	outcome, err := r.applyWrongPoolTransition(ctx, userID, sessionID, q, priorActive, correct, timeS)
	if err != nil {
		return nil, err
	}

	if _, err := r.tracker.RecordAttempt(ctx, userID, questionID, sessionID, correct, timeS); err != nil {
		return nil, err
	}

	if outcome.Action == models.NextActionQuestion {
		updatedSession, err := r.sessions.AdvanceProgress(ctx, sessionID, userID, sessionmgr.ProgressDelta{
			QuestionID: questionID,
			Correct:    correct,
			TimeS:      timeS,
		})
		if err != nil {
			// Grading and the wrong-pool transition already committed and
			// are idempotent under replay; the session is simply left
			// unadvanced, and the caller may re-submit safely.
			return nil, err
		}
		if len(updatedSession.RemainingPool()) == 0 {
			hasActive, hErr := r.wrongPool.HasActive(ctx, userID)
			if hErr == nil && !hasActive {
				outcome.Action = models.NextActionSessionComplete
			}
		}
	}

	if _, err := r.diffModel.UpdateAfterAnswer(ctx, userID, correct); err != nil {
		return nil, err
	}

	return outcome, nil
}

// grade reports whether the deduplicated selected set exactly equals
// the question's correct_set. An empty selection is invalid input.
func grade(q *models.Question, selected []string) (bool, error) {
	if len(selected) == 0 {
		return false, coreerr.New(coreerr.InvalidAnswer, "selected choices must not be empty")
	}

	set := make(map[string]struct{}, len(selected))
	for _, id := range selected {
		set[id] = struct{}{}
	}

	correctSet := q.CorrectSet()
	if len(set) != len(correctSet) {
		return false, nil
	}
	for id := range set {
		if _, ok := correctSet[id]; !ok {
			return false, nil
		}
	}
	return true, nil
}

func (r *Resolver) applyWrongPoolTransition(ctx context.Context, userID, sessionID string, q *models.Question, prior *models.WrongEntry, correct bool, timeS int) (*models.AnswerOutcome, error) {
	switch {
	case prior == nil && correct:
		return &models.AnswerOutcome{
			Correct: true,
			Action:  models.NextActionQuestion,
		}, nil

	case prior == nil && !correct:
		entry, err := r.wrongPool.Add(ctx, userID, q.QuestionID, sessionID)
		if err != nil {
			return nil, err
		}
		order := selection.ShuffledChoiceIDs(r.rng, q.Choices)
		if err := r.wrongPool.FreezeOrder(ctx, entry, order); err != nil {
			return nil, err
		}
		return &models.AnswerOutcome{
			Correct:          false,
			Action:           models.NextActionRetrySame,
			RemainingCorrect: entry.RemainingCorrect,
			PenaltyIndicator: penaltyIndicator(entry.RemainingCorrect),
			PresentedQuestion: &models.PresentedQuestion{
				QuestionID:     q.QuestionID,
				Prompt:         q.Prompt,
				Kind:           q.Kind,
				Choices:        selection.ReorderChoices(q.Choices, order),
				FromWrongPool:  true,
				RemainingTries: entry.RemainingCorrect,
			},
		}, nil

	case prior != nil && correct:
		remaining, err := r.wrongPool.Decrement(ctx, prior, timeS)
		if err != nil {
			return nil, err
		}
		return &models.AnswerOutcome{
			Correct:          true,
			Action:           models.NextActionQuestion,
			RemainingCorrect: remaining,
			PenaltyIndicator: penaltyIndicator(remaining),
		}, nil

	default: // prior != nil && !correct
		if err := r.wrongPool.Reset(ctx, prior); err != nil {
			return nil, err
		}
		order := selection.ShuffledChoiceIDs(r.rng, q.Choices)
		if err := r.wrongPool.FreezeOrder(ctx, prior, order); err != nil {
			return nil, err
		}
		return &models.AnswerOutcome{
			Correct:          false,
			Action:           models.NextActionRetrySame,
			RemainingCorrect: prior.RemainingCorrect,
			PenaltyIndicator: penaltyIndicator(prior.RemainingCorrect),
			PresentedQuestion: &models.PresentedQuestion{
				QuestionID:     q.QuestionID,
				Prompt:         q.Prompt,
				Kind:           q.Kind,
				Choices:        selection.ReorderChoices(q.Choices, order),
				FromWrongPool:  true,
				RemainingTries: prior.RemainingCorrect,
			},
		}, nil
	}
}

func penaltyIndicator(remainingCorrect int) string {
	if remainingCorrect <= 0 {
		return ""
	}
	return fmt.Sprintf("(+1 Question @ %d Tries)", remainingCorrect)
}

func (r *Resolver) getQuestion(ctx context.Context, id string) (*models.Question, error) {
	rec, err := r.adapter.Get(ctx, store.TableQuestions, store.Key{"_id": id})
	if err == store.ErrNotFound {
		return nil, coreerr.New(coreerr.QuestionNotFound, "question does not exist")
	}
	if err != nil {
		return nil, coreerr.Wrap(coreerr.StorageUnavailable, "failed to read question", err)
	}
	q, err := codec.DecodeQuestion(rec)
	if err != nil {
		return nil, coreerr.Wrap(coreerr.Corrupted, "question record failed to decode", err)
	}
	return q, nil
}
