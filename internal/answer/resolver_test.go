package answer

import (
	"context"
	"testing"
	"time"

	"adaptive-quiz-core/internal/clock"
	"adaptive-quiz-core/internal/difficulty"
	"adaptive-quiz-core/internal/models"
	"adaptive-quiz-core/internal/progresstrack"
	"adaptive-quiz-core/internal/rng"
	"adaptive-quiz-core/internal/sessionmgr"
	"adaptive-quiz-core/internal/store"
	"adaptive-quiz-core/internal/wrongpool"
)

type fixedCatalog struct{ ids []string }

func (f fixedCatalog) QueryQuestions(ctx context.Context, source models.SessionSource, limit int) ([]string, error) {
	n := limit
	if n > len(f.ids) {
		n = len(f.ids)
	}
	return f.ids[:n], nil
}

type testHarness struct {
	resolver  *Resolver
	sessions  *sessionmgr.Manager
	wrongPool *wrongpool.Manager
	adapter   store.Adapter
	clock     *clock.Fixed
}

func newHarness(t *testing.T, questionIDs ...string) *testHarness {
	t.Helper()
	clk := clock.NewFixed(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	adapter := store.NewMemoryAdapter()
	src := rng.NewLocked(42)

	for _, id := range questionIDs {
		rec := store.Record{
			"_id":                 id,
			"kind":                string(models.KindSingleChoice),
			"status":              string(models.QuestionActive),
			"declared_difficulty": 3,
			"prompt":              "prompt-" + id,
			"choices": []any{
				store.Record{"choice_id": "correct", "text": "Correct", "is_correct": true},
				store.Record{"choice_id": "wrong", "text": "Wrong", "is_correct": false},
			},
		}
		if err := adapter.Put(context.Background(), store.TableQuestions, store.Key{"_id": id}, rec); err != nil {
			t.Fatalf("seed question %s: %v", id, err)
		}
	}

	sessions := sessionmgr.New(adapter, fixedCatalog{ids: questionIDs}, clk, src, sessionmgr.DefaultConfig())
	wp := wrongpool.New(adapter, clk, models.MasteryThreshold)
	tracker := progresstrack.New(adapter, clk)
	dm := difficulty.New(adapter, tracker, clk, difficulty.DefaultConfig())
	resolver := New(adapter, wp, tracker, sessions, dm, src, clk)

	return &testHarness{resolver: resolver, sessions: sessions, wrongPool: wp, adapter: adapter, clock: clk}
}

func (h *testHarness) createSession(t *testing.T, userID string, count int) *models.Session {
	t.Helper()
	session, err := h.sessions.Create(context.Background(), userID, models.SessionConfig{
		Name:    "quiz",
		Sources: []models.SessionSource{{QuestionCount: count}},
	})
	if err != nil {
		t.Fatalf("Create session: %v", err)
	}
	return session
}

func TestSubmit_CorrectWithNoPriorWrongEntry_AdvancesToNextQuestion(t *testing.T) {
	h := newHarness(t, "q1", "q2", "q3")
	session := h.createSession(t, "u1", 3)

	outcome, err := h.resolver.Submit(context.Background(), session.SessionID, "u1", "q1", []string{"correct"}, 10)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !outcome.Correct || outcome.Action != models.NextActionQuestion {
		t.Fatalf("expected correct/NextQuestion, got %+v", outcome)
	}

	updated, err := h.sessions.Get(context.Background(), session.SessionID, "u1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if updated.Progress.Cursor != 1 || updated.Progress.CorrectCount != 1 {
		t.Errorf("expected cursor/correct_count advanced, got %+v", updated.Progress)
	}
}

func TestSubmit_IncorrectWithNoPriorWrongEntry_AddsAndRetries(t *testing.T) {
	h := newHarness(t, "q1", "q2", "q3")
	session := h.createSession(t, "u1", 3)

	outcome, err := h.resolver.Submit(context.Background(), session.SessionID, "u1", "q1", []string{"wrong"}, 10)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if outcome.Correct || outcome.Action != models.NextActionRetrySame {
		t.Fatalf("expected incorrect/RetrySameQuestion, got %+v", outcome)
	}
	if outcome.PresentedQuestion == nil || !outcome.PresentedQuestion.FromWrongPool {
		t.Fatalf("expected a re-presented wrong-pool question")
	}
	if outcome.PenaltyIndicator == "" {
		t.Errorf("expected a non-empty penalty indicator after first miss")
	}

	updated, err := h.sessions.Get(context.Background(), session.SessionID, "u1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if updated.Progress.Cursor != 0 {
		t.Errorf("expected cursor unchanged on retry, got %d", updated.Progress.Cursor)
	}

	active, err := h.wrongPool.LookupActive(context.Background(), "u1", "q1")
	if err != nil || active == nil {
		t.Fatalf("expected an active wrong-pool entry for q1, err=%v", err)
	}
}

func TestSubmit_CorrectWithActiveWrongEntry_DecrementsAndAdvances(t *testing.T) {
	h := newHarness(t, "q1", "q2", "q3")
	session := h.createSession(t, "u1", 3)

	if _, err := h.wrongPool.Add(context.Background(), "u1", "q1", session.SessionID); err != nil {
		t.Fatalf("seed wrong entry: %v", err)
	}

	outcome, err := h.resolver.Submit(context.Background(), session.SessionID, "u1", "q1", []string{"correct"}, 10)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !outcome.Correct || outcome.Action != models.NextActionQuestion {
		t.Fatalf("expected correct/NextQuestion, got %+v", outcome)
	}
	if outcome.RemainingCorrect != models.MasteryThreshold-1 {
		t.Errorf("expected remaining_correct decremented to %d, got %d", models.MasteryThreshold-1, outcome.RemainingCorrect)
	}
}

func TestSubmit_IncorrectWithActiveWrongEntry_Resets(t *testing.T) {
	h := newHarness(t, "q1", "q2", "q3")
	session := h.createSession(t, "u1", 3)

	entry, err := h.wrongPool.Add(context.Background(), "u1", "q1", session.SessionID)
	if err != nil {
		t.Fatalf("seed wrong entry: %v", err)
	}
	if _, err := h.wrongPool.Decrement(context.Background(), entry, 10); err != nil {
		t.Fatalf("pre-decrement: %v", err)
	}

	outcome, err := h.resolver.Submit(context.Background(), session.SessionID, "u1", "q1", []string{"wrong"}, 10)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if outcome.Correct || outcome.Action != models.NextActionRetrySame {
		t.Fatalf("expected incorrect/RetrySameQuestion, got %+v", outcome)
	}
	if outcome.RemainingCorrect != models.MasteryThreshold {
		t.Errorf("expected remaining_correct reset to %d, got %d", models.MasteryThreshold, outcome.RemainingCorrect)
	}
}

func TestSubmit_RejectsEmptySelection(t *testing.T) {
	h := newHarness(t, "q1")
	session := h.createSession(t, "u1", 1)

	_, err := h.resolver.Submit(context.Background(), session.SessionID, "u1", "q1", nil, 10)
	if err == nil {
		t.Fatal("expected InvalidAnswer error for empty selection")
	}
}

func TestSubmit_DedupsDuplicateSelections(t *testing.T) {
	h := newHarness(t, "q1")
	session := h.createSession(t, "u1", 1)

	outcome, err := h.resolver.Submit(context.Background(), session.SessionID, "u1", "q1", []string{"correct", "correct"}, 10)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !outcome.Correct {
		t.Errorf("expected duplicate-but-otherwise-correct selection to grade correct")
	}
}
