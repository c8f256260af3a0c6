// Package difficulty implements the Difficulty Model: the
// per-user target-difficulty estimator and the per-question difficulty
// calculator the Adaptive Selection Engine scores candidates against.
package difficulty

import (
	"context"

	"adaptive-quiz-core/internal/clock"
	"adaptive-quiz-core/internal/codec"
	"adaptive-quiz-core/internal/models"
	"adaptive-quiz-core/internal/progresstrack"
	"adaptive-quiz-core/internal/store"
)

// Config exposes this package's tunables; DefaultConfig matches the
// documented defaults exactly.
type Config struct {
	Window            int     // W: recent answers considered for target adjustment
	TargetSuccessRate float64 // T
	Delta             float64 // Δ: step size
	Tolerance         float64 // δ: dead-band around T
	MinAttemptsForQ   int     // attempts required before question_difficulty replaces the declared fallback
}

func DefaultConfig() Config {
	return Config{
		Window:            10,
		TargetSuccessRate: 0.75,
		Delta:             0.15,
		Tolerance:         0.10,
		MinAttemptsForQ:   10,
	}
}

type Model struct {
	adapter  store.Adapter
	tracker  *progresstrack.Tracker
	clock    clock.Clock
	cfg      Config
}

func New(adapter store.Adapter, tracker *progresstrack.Tracker, clk clock.Clock, cfg Config) *Model {
	return &Model{adapter: adapter, tracker: tracker, clock: clk, cfg: cfg}
}

// TargetDifficulty returns userID's current target, creating the default
// 0.5 record on first access.
func (m *Model) TargetDifficulty(ctx context.Context, userID string) (*models.UserDifficulty, error) {
	rec, err := m.adapter.Get(ctx, store.TableUserDifficulty, store.Key{"_id": userID})
	if err == store.ErrNotFound {
		return models.NewUserDifficulty(userID, m.clock.Now()), nil
	}
	if err != nil {
		return nil, err
	}
	return codec.DecodeUserDifficulty(rec)
}

// UpdateAfterAnswer recomputes and persists userID's target_difficulty
// after one more answer. Outcomes accumulate into a non-overlapping
// window of W answers; t moves by a single step (+Δ up, −Δ/2 down) only
// once the window fills and its success rate drifts outside T±δ, then the
// window resets
// -- a sliding-window recompute on every answer would compound the step
// across overlapping windows instead of applying it once per W answers.
func (m *Model) UpdateAfterAnswer(ctx context.Context, userID string, correct bool) (*models.UserDifficulty, error) {
	ud, err := m.TargetDifficulty(ctx, userID)
	if err != nil {
		return nil, err
	}

	ud.RecentOutcomes = append(ud.RecentOutcomes, correct)
	if len(ud.RecentOutcomes) >= m.cfg.Window {
		s := successRate(ud.RecentOutcomes)
		t := ud.TargetDifficulty
		switch {
		case s > m.cfg.TargetSuccessRate+m.cfg.Tolerance:
			t = models.ClampDifficulty(t + m.cfg.Delta)
		case s < m.cfg.TargetSuccessRate-m.cfg.Tolerance:
			t = models.ClampDifficulty(t - 0.5*m.cfg.Delta)
		}
		ud.TargetDifficulty = t
		ud.RecentOutcomes = nil
	}
	ud.UpdatedAt = m.clock.Now()

	rec, err := codec.EncodeUserDifficulty(ud)
	if err != nil {
		return nil, err
	}
	if err := m.adapter.Put(ctx, store.TableUserDifficulty, store.Key{"_id": userID}, rec); err != nil {
		return nil, err
	}
	return ud, nil
}

func successRate(outcomes []bool) float64 {
	if len(outcomes) == 0 {
		return 0
	}
	correct := 0
	for _, o := range outcomes {
		if o {
			correct++
		}
	}
	return float64(correct) / float64(len(outcomes))
}

// QuestionDifficulty returns question's empirical difficulty, or the
// declared-difficulty fallback mapped onto [0.1, 0.9] when fewer than
// MinAttemptsForQ attempts have been recorded across all users.
func (m *Model) QuestionDifficulty(ctx context.Context, q *models.Question) (float64, error) {
	successRate, avgTimeS, _, ok, err := m.tracker.QuestionSuccessRate(ctx, q.QuestionID, m.cfg.MinAttemptsForQ)
	if err != nil {
		return 0, err
	}
	if !ok {
		return q.DeclaredDifficultyNormalized(), nil
	}

	timeFactor := avgTimeS / 120.0
	if timeFactor < 0 {
		timeFactor = 0
	}
	if timeFactor > 1 {
		timeFactor = 1
	}
	return models.ClampDifficulty(0.8*(1-successRate) + 0.2*timeFactor), nil
}
