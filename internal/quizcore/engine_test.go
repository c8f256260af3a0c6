package quizcore

import (
	"context"
	"sync"
	"testing"
	"time"

	"adaptive-quiz-core/internal/clock"
	"adaptive-quiz-core/internal/models"
	"adaptive-quiz-core/internal/rng"
	"adaptive-quiz-core/internal/store"
)

// fixedCatalog hands back a deterministic pool regardless of source, so
// these tests don't depend on the questions table's query shape.
type fixedCatalog struct{ ids []string }

func (f fixedCatalog) QueryQuestions(ctx context.Context, source models.SessionSource, limit int) ([]string, error) {
	n := limit
	if n > len(f.ids) {
		n = len(f.ids)
	}
	return f.ids[:n], nil
}

func seedQuestion(t *testing.T, adapter store.Adapter, id string, correctChoice string, otherChoices ...string) {
	t.Helper()
	choices := []any{store.Record{"choice_id": correctChoice, "text": correctChoice, "is_correct": true}}
	for _, c := range otherChoices {
		choices = append(choices, store.Record{"choice_id": c, "text": c, "is_correct": false})
	}
	rec := store.Record{
		"_id":                 id,
		"kind":                string(models.KindSingleChoice),
		"status":              string(models.QuestionActive),
		"declared_difficulty": 3,
		"prompt":              "prompt-" + id,
		"choices":             choices,
	}
	if err := adapter.Put(context.Background(), store.TableQuestions, store.Key{"_id": id}, rec); err != nil {
		t.Fatalf("seed question %s: %v", id, err)
	}
}

func newTestEngine(t *testing.T, ids []string) (*Engine, store.Adapter, *clock.Fixed) {
	t.Helper()
	clk := clock.NewFixed(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	adapter := store.NewMemoryAdapter()
	for _, id := range ids {
		seedQuestion(t, adapter, id, "c2", "c1")
	}
	src := rng.NewLocked(7)
	eng := New(adapter, fixedCatalog{ids: ids}, clk, src, DefaultConfig(), nil)
	return eng, adapter, clk
}

// Scenario 1 -- Perfect run.
func TestScenario1_PerfectRun(t *testing.T) {
	ctx := context.Background()
	eng, _, _ := newTestEngine(t, []string{"q1", "q2", "q3"})

	session, err := eng.CreateSession(ctx, "u1", models.SessionConfig{
		Name:    "perfect-run",
		Sources: []models.SessionSource{{QuestionCount: 3}},
	})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	var last *models.AnswerOutcome
	for _, qid := range session.QuestionPool {
		last, err = eng.SubmitAnswer(ctx, session.SessionID, "u1", qid, []string{"c2"}, 10)
		if err != nil {
			t.Fatalf("SubmitAnswer(%s): %v", qid, err)
		}
		if !last.Correct || last.Action == models.NextActionRetrySame {
			t.Fatalf("expected correct/advance outcome for %s, got %+v", qid, last)
		}
	}

	if last.Action != models.NextActionSessionComplete {
		t.Fatalf("expected the final answer to report SessionComplete, got %v", last.Action)
	}

	final, err := eng.GetSession(ctx, session.SessionID, "u1")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if final.Progress.Cursor != 3 || final.Progress.CorrectCount != 3 || final.Progress.WrongCount != 0 {
		t.Errorf("unexpected final progress: %+v", final.Progress)
	}
	if final.Status != models.SessionCompleted {
		t.Errorf("expected session status completed, got %s", final.Status)
	}
}

// Scenarios 2 and 3 -- immediate retry then mastery, then a later
// wrong-pool re-entry resets the counter.
func TestScenario2And3_RetryMasteryThenReentryReset(t *testing.T) {
	ctx := context.Background()
	eng, _, _ := newTestEngine(t, []string{"q1"})

	session, err := eng.CreateSession(ctx, "u2", models.SessionConfig{
		Name:    "retry-mastery",
		Sources: []models.SessionSource{{QuestionCount: 1}},
	})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	outcome1, err := eng.SubmitAnswer(ctx, session.SessionID, "u2", "q1", []string{"c1"}, 10)
	if err != nil {
		t.Fatalf("Submit 1: %v", err)
	}
	if outcome1.Correct || outcome1.Action != models.NextActionRetrySame {
		t.Fatalf("expected incorrect/retry, got %+v", outcome1)
	}
	if outcome1.RemainingCorrect != models.MasteryThreshold {
		t.Errorf("expected remaining_correct = %d, got %d", models.MasteryThreshold, outcome1.RemainingCorrect)
	}
	if outcome1.PresentedQuestion == nil || len(outcome1.PresentedQuestion.Choices) == 0 {
		t.Fatalf("expected a frozen re-presentation, got %+v", outcome1.PresentedQuestion)
	}

	active, err := eng.wrongPool.LookupActive(ctx, "u2", "q1")
	if err != nil || active == nil || len(active.FrozenChoiceOrder) == 0 {
		t.Fatalf("expected an active wrong entry with a frozen order, err=%v", err)
	}

	outcome2, err := eng.SubmitAnswer(ctx, session.SessionID, "u2", "q1", []string{"c2"}, 10)
	if err != nil {
		t.Fatalf("Submit 2: %v", err)
	}
	if !outcome2.Correct || outcome2.RemainingCorrect != models.MasteryThreshold-1 {
		t.Fatalf("expected correct/remaining=%d, got %+v", models.MasteryThreshold-1, outcome2)
	}
	// q1's only pool slot is now consumed, but the WrongEntry is still
	// active (remaining_correct = 1), so the session is not yet complete.
	if outcome2.Action != models.NextActionQuestion {
		t.Fatalf("expected NextQuestion since the wrong entry is still active, got %v", outcome2.Action)
	}

	// Scenario 3: re-entry (a later session) answers q1 wrong again.
	entry, err := eng.wrongPool.LookupActive(ctx, "u2", "q1")
	if err != nil || entry == nil {
		t.Fatalf("expected entry still active with remaining_correct=1, err=%v", err)
	}
	if entry.RemainingCorrect != 1 {
		t.Fatalf("expected remaining_correct=1 before re-entry, got %d", entry.RemainingCorrect)
	}
	preAttempts := len(entry.Attempts)

	if err := eng.wrongPool.Reset(ctx, entry); err != nil {
		t.Fatalf("simulate re-entry miss: %v", err)
	}

	reset, err := eng.wrongPool.LookupActive(ctx, "u2", "q1")
	if err != nil || reset == nil {
		t.Fatalf("expected entry still active after reset, err=%v", err)
	}
	if reset.RemainingCorrect != models.MasteryThreshold {
		t.Errorf("expected remaining_correct reset to %d, got %d", models.MasteryThreshold, reset.RemainingCorrect)
	}
	if len(reset.Attempts) != preAttempts+1 {
		t.Errorf("expected attempts log to grow by one, got %d -> %d", preAttempts, len(reset.Attempts))
	}
	if len(reset.FrozenChoiceOrder) != 0 {
		t.Errorf("expected frozen_choice_order cleared pending recomputation, got %v", reset.FrozenChoiceOrder)
	}
}

// Scenario 4 -- concurrent advance: two submissions for different
// questions of the same session race the version guard; one wins outright, the other
// retries against the winner's version and still lands.
func TestScenario4_ConcurrentAdvance(t *testing.T) {
	ctx := context.Background()
	eng, _, _ := newTestEngine(t, []string{"q1", "q2"})

	session, err := eng.CreateSession(ctx, "u4", models.SessionConfig{
		Name:    "concurrent",
		Sources: []models.SessionSource{{QuestionCount: 2}},
	})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, errs[0] = eng.SubmitAnswer(ctx, session.SessionID, "u4", session.QuestionPool[0], []string{"c2"}, 5)
	}()
	go func() {
		defer wg.Done()
		_, errs[1] = eng.SubmitAnswer(ctx, session.SessionID, "u4", session.QuestionPool[1], []string{"c2"}, 5)
	}()
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("submit %d returned error: %v", i, err)
		}
	}

	final, err := eng.GetSession(ctx, session.SessionID, "u4")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if final.Progress.Cursor != 2 || final.Progress.CorrectCount != 2 {
		t.Errorf("expected both concurrent advances to land, got %+v", final.Progress)
	}
}

// Scenario 6 -- difficulty adjustment convergence.
func TestScenario6_DifficultyConvergence(t *testing.T) {
	ctx := context.Background()
	eng, _, _ := newTestEngine(t, nil)

	for i := 0; i < 10; i++ {
		if _, err := eng.difficulty.UpdateAfterAnswer(ctx, "u6", true); err != nil {
			t.Fatalf("UpdateAfterAnswer(correct): %v", err)
		}
	}
	ud, err := eng.difficulty.TargetDifficulty(ctx, "u6")
	if err != nil {
		t.Fatalf("TargetDifficulty: %v", err)
	}
	if diff := ud.TargetDifficulty - 0.65; diff < -1e-9 || diff > 1e-9 {
		t.Errorf("expected target_difficulty = 0.65 after 10 correct, got %v", ud.TargetDifficulty)
	}

	for i := 0; i < 10; i++ {
		if _, err := eng.difficulty.UpdateAfterAnswer(ctx, "u6", false); err != nil {
			t.Fatalf("UpdateAfterAnswer(incorrect): %v", err)
		}
	}
	ud, err = eng.difficulty.TargetDifficulty(ctx, "u6")
	if err != nil {
		t.Fatalf("TargetDifficulty: %v", err)
	}
	if diff := ud.TargetDifficulty - 0.575; diff < -1e-9 || diff > 1e-9 {
		t.Errorf("expected target_difficulty = 0.575 after 10 incorrect, got %v", ud.TargetDifficulty)
	}
}

// Pause/Resume/Cancel round-trip through the facade's lifecycle calls.
func TestLifecycleTransitions(t *testing.T) {
	ctx := context.Background()
	eng, _, _ := newTestEngine(t, []string{"q1", "q2"})

	session, err := eng.CreateSession(ctx, "u5", models.SessionConfig{
		Name:    "lifecycle",
		Sources: []models.SessionSource{{QuestionCount: 2}},
	})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	if _, err := eng.SubmitAnswer(ctx, session.SessionID, "u5", session.QuestionPool[0], []string{"c2"}, 5); err != nil {
		t.Fatalf("Submit to activate session: %v", err)
	}

	if _, err := eng.Pause(ctx, session.SessionID, "u5"); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	paused, err := eng.GetSession(ctx, session.SessionID, "u5")
	if err != nil || paused.Status != models.SessionPaused {
		t.Fatalf("expected paused status, got %+v err=%v", paused, err)
	}

	if _, err := eng.Resume(ctx, session.SessionID, "u5"); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if _, err := eng.Cancel(ctx, session.SessionID, "u5"); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	cancelled, err := eng.GetSession(ctx, session.SessionID, "u5")
	if err != nil || cancelled.Status != models.SessionCancelled {
		t.Fatalf("expected cancelled status, got %+v err=%v", cancelled, err)
	}
}
