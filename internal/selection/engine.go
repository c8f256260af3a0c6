// Package selection implements the Adaptive Selection Engine: choosing
// the next question to serve from either the wrong pool or the regular
// pool, weighted by spaced-repetition readiness and difficulty match.
// Regular-pool candidates are scored and then multiplied by a random
// factor to break ties and inject exploration, rather than always serving
// the single top-scoring candidate; the wrong-pool pick takes the highest
// readiness, ties going to the older entry.
package selection

import (
	"context"

	"adaptive-quiz-core/internal/clock"
	"adaptive-quiz-core/internal/codec"
	"adaptive-quiz-core/internal/coreerr"
	"adaptive-quiz-core/internal/difficulty"
	"adaptive-quiz-core/internal/models"
	"adaptive-quiz-core/internal/rng"
	"adaptive-quiz-core/internal/store"
	"adaptive-quiz-core/internal/wrongpool"
)

// Config exposes the tunables this package owns.
type Config struct {
	WrongPoolProbability float64 // P_wrong
	SpacedIntervalsH     []float64
}

func DefaultConfig() Config {
	return Config{
		WrongPoolProbability: 0.20,
		SpacedIntervalsH:     []float64{1, 4, 24, 72, 168},
	}
}

// Result is the Engine's output: either a question to present or the
// SessionComplete signal.
type Result struct {
	Complete bool
	Question *models.PresentedQuestion
}

type Engine struct {
	adapter   store.Adapter
	wrongPool *wrongpool.Manager
	diffModel *difficulty.Model
	clock     clock.Clock
	rng       rng.Source
	cfg       Config
}

func New(adapter store.Adapter, wp *wrongpool.Manager, dm *difficulty.Model, clk clock.Clock, src rng.Source, cfg Config) *Engine {
	return &Engine{adapter: adapter, wrongPool: wp, diffModel: dm, clock: clk, rng: src, cfg: cfg}
}

// SelectNext runs the full selection procedure for session, returning
// either a presented question or SessionComplete.
func (e *Engine) SelectNext(ctx context.Context, session *models.Session, targetDifficulty float64) (*Result, error) {
	if !session.IsServing() {
		return nil, coreerr.New(coreerr.SessionNotServing, "session is not in a servable status")
	}

	hasActive, err := e.wrongPool.HasActive(ctx, session.UserID)
	if err != nil {
		return nil, err
	}

	remaining := session.RemainingPool()
	if len(remaining) == 0 && !hasActive {
		return &Result{Complete: true}, nil
	}

	drawWrongPool := hasActive && e.rng.Float64() < e.cfg.WrongPoolProbability
	if drawWrongPool {
		q, err := e.selectFromWrongPool(ctx, session.UserID)
		if err != nil {
			return nil, err
		}
		if q != nil {
			return &Result{Question: q}, nil
		}
		// fell through: no eligible wrong-pool candidate, try regular.
	}

	if len(remaining) > 0 {
		q, err := e.selectRegular(ctx, remaining, targetDifficulty)
		if err != nil {
			return nil, err
		}
		if q != nil {
			return &Result{Question: q}, nil
		}
	}

	// Regular pool exhausted (or empty): fall back to wrong pool.
	if hasActive {
		q, err := e.selectFromWrongPool(ctx, session.UserID)
		if err != nil {
			return nil, err
		}
		if q != nil {
			return &Result{Question: q}, nil
		}
	}

	return &Result{Complete: true}, nil
}

func (e *Engine) selectFromWrongPool(ctx context.Context, userID string) (*models.PresentedQuestion, error) {
	candidates, err := e.wrongPool.ListOldest(ctx, userID, 5)
	if err != nil || len(candidates) == 0 {
		return nil, err
	}

	best := candidates[0]
	bestScore := e.readiness(best)
	for _, c := range candidates[1:] {
		score := e.readiness(c)
		if score > bestScore || (score == bestScore && c.Timestamp.Before(best.Timestamp)) {
			best = c
			bestScore = score
		}
	}

	q, err := e.getQuestion(ctx, best.QuestionID)
	if err != nil {
		return nil, err
	}

	if len(best.FrozenChoiceOrder) == 0 {
		order := ShuffledChoiceIDs(e.rng, q.Choices)
		if err := e.wrongPool.FreezeOrder(ctx, best, order); err != nil {
			return nil, err
		}
		best.FrozenChoiceOrder = order
	}

	return &models.PresentedQuestion{
		QuestionID:     q.QuestionID,
		Prompt:         q.Prompt,
		Kind:           q.Kind,
		Choices:        ReorderChoices(q.Choices, best.FrozenChoiceOrder),
		FromWrongPool:  true,
		RemainingTries: best.RemainingCorrect,
	}, nil
}

// readiness implements the spaced-repetition score.
func (e *Engine) readiness(entry *models.WrongEntry) float64 {
	ageH := e.clock.Now().Sub(entry.LastAttemptAt).Hours()
	idx := len(entry.Attempts) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(e.cfg.SpacedIntervalsH) {
		idx = len(e.cfg.SpacedIntervalsH) - 1
	}
	expectedIntervalH := e.cfg.SpacedIntervalsH[idx]

	ratio := ageH / expectedIntervalH
	if ratio > 2.0 {
		ratio = 2.0
	}
	gap := 1 - entry.RecentSuccessRate()
	if gap < 0 {
		gap = 0
	}
	return ratio + gap*0.5
}

func (e *Engine) selectRegular(ctx context.Context, candidateIDs []string, targetDifficulty float64) (*models.PresentedQuestion, error) {
	type scored struct {
		q     *models.Question
		score float64
	}

	var best *scored
	for _, id := range candidateIDs {
		q, err := e.getQuestion(ctx, id)
		if err != nil {
			return nil, err
		}
		diff, err := e.diffModel.QuestionDifficulty(ctx, q)
		if err != nil {
			return nil, err
		}
		base := 1 - absFloat(diff-targetDifficulty)
		score := base * (0.8 + e.rng.Float64()*0.4)
		if best == nil || score > best.score {
			best = &scored{q: q, score: score}
		}
	}
	if best == nil {
		return nil, nil
	}

	order := make([]string, 0, len(best.q.Choices))
	for _, c := range best.q.Choices {
		order = append(order, c.ChoiceID)
	}
	rng.Shuffle(e.rng, order)

	return &models.PresentedQuestion{
		QuestionID:    best.q.QuestionID,
		Prompt:        best.q.Prompt,
		Kind:          best.q.Kind,
		Choices:       ReorderChoices(best.q.Choices, order),
		FromWrongPool: false,
	}, nil
}

func (e *Engine) getQuestion(ctx context.Context, id string) (*models.Question, error) {
	rec, err := e.adapter.Get(ctx, store.TableQuestions, store.Key{"_id": id})
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

func ShuffledChoiceIDs(src rng.Source, choices []models.Choice) []string {
	order := make([]string, 0, len(choices))
	for _, c := range choices {
		order = append(order, c.ChoiceID)
	}
	rng.Shuffle(src, order)
	return order
}

// ReorderChoices permutes choices into the order named by choiceIDs,
// preserving each choice's {choice_id, text, is_correct} identity.
func ReorderChoices(choices []models.Choice, choiceIDs []string) []models.Choice {
	byID := make(map[string]models.Choice, len(choices))
	for _, c := range choices {
		byID[c.ChoiceID] = c
	}
	out := make([]models.Choice, 0, len(choiceIDs))
	for _, id := range choiceIDs {
		if c, ok := byID[id]; ok {
			out = append(out, c)
		}
	}
	return out
}

func absFloat(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
