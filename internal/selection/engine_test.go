package selection

import (
	"context"
	"testing"
	"time"

	"adaptive-quiz-core/internal/clock"
	"adaptive-quiz-core/internal/codec"
	"adaptive-quiz-core/internal/difficulty"
	"adaptive-quiz-core/internal/models"
	"adaptive-quiz-core/internal/progresstrack"
	"adaptive-quiz-core/internal/rng"
	"adaptive-quiz-core/internal/store"
	"adaptive-quiz-core/internal/wrongpool"
)

type fixedSource struct {
	f float64
	i int
}

func (s fixedSource) Float64() float64 { return s.f }
func (s fixedSource) Intn(n int) int   { return s.i % n }

func putQuestion(t *testing.T, adapter store.Adapter, id string, declaredDifficulty int, choiceIDs ...string) {
	t.Helper()
	choices := make([]any, 0, len(choiceIDs))
	for i, cid := range choiceIDs {
		choices = append(choices, store.Record{"choice_id": cid, "text": cid, "is_correct": i == 0})
	}
	rec := store.Record{
		"_id":                 id,
		"kind":                string(models.KindSingleChoice),
		"status":              string(models.QuestionActive),
		"declared_difficulty": declaredDifficulty,
		"prompt":              "prompt-" + id,
		"choices":             choices,
	}
	if err := adapter.Put(context.Background(), store.TableQuestions, store.Key{"_id": id}, rec); err != nil {
		t.Fatalf("seed question %s: %v", id, err)
	}
}

// putWrongEntry seeds a WrongEntry record directly (bypassing the
// manager's Add, which always stamps "now" and zero attempts) so tests
// can construct the exact age/attempt-count combinations spec.md's
// worked examples specify.
func putWrongEntry(t *testing.T, adapter store.Adapter, userID, questionID, sessionID string, timestamp, lastAttemptAt time.Time, attempts int) {
	t.Helper()
	entry := &models.WrongEntry{
		UserID:           userID,
		Timestamp:        timestamp,
		QuestionID:       questionID,
		SessionID:        sessionID,
		RemainingCorrect: models.MasteryThreshold,
		LastAttemptAt:    lastAttemptAt,
	}
	for i := 0; i < attempts; i++ {
		entry.Attempts = append(entry.Attempts, models.Attempt{Timestamp: lastAttemptAt, Correct: true})
	}
	rec := codec.EncodeWrongEntry(entry)
	key := store.Key{"_id": codec.WrongEntryID(userID, questionID)}
	if err := adapter.Put(context.Background(), store.TableWrongEntries, key, rec); err != nil {
		t.Fatalf("seed wrong entry %s: %v", questionID, err)
	}
}

func newTestEngine(t *testing.T, src rng.Source) (*Engine, store.Adapter, *wrongpool.Manager, *clock.Fixed) {
	t.Helper()
	clk := clock.NewFixed(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	adapter := store.NewMemoryAdapter()
	wp := wrongpool.New(adapter, clk, models.MasteryThreshold)
	tracker := progresstrack.New(adapter, clk)
	dm := difficulty.New(adapter, tracker, clk, difficulty.DefaultConfig())
	return New(adapter, wp, dm, clk, src, DefaultConfig()), adapter, wp, clk
}

func TestSelectNext_SessionCompleteWhenPoolExhaustedAndNoWrongEntries(t *testing.T) {
	ctx := context.Background()
	engine, _, _, _ := newTestEngine(t, fixedSource{f: 0.99})

	session := &models.Session{
		UserID:       "u1",
		Status:       models.SessionActive,
		QuestionPool: []string{"q1"},
		Progress:     models.SessionProgress{AnsweredIDs: []string{"q1"}},
	}

	result, err := engine.SelectNext(ctx, session, 0.5)
	if err != nil {
		t.Fatalf("SelectNext: %v", err)
	}
	if !result.Complete {
		t.Errorf("expected SessionComplete when pool is exhausted and no wrong entries exist")
	}
}

func TestSelectNext_RegularSelectionPrefersClosestDifficulty(t *testing.T) {
	ctx := context.Background()
	engine, adapter, _, _ := newTestEngine(t, fixedSource{f: 0.99}) // f >= P_wrong, skip wrong-pool draw

	putQuestion(t, adapter, "easy", 1, "a", "b")
	putQuestion(t, adapter, "hard", 5, "a", "b")

	session := &models.Session{
		UserID:       "u1",
		Status:       models.SessionActive,
		QuestionPool: []string{"easy", "hard"},
		Progress:     models.SessionProgress{},
	}

	result, err := engine.SelectNext(ctx, session, 0.9) // target near "hard"'s declared difficulty
	if err != nil {
		t.Fatalf("SelectNext: %v", err)
	}
	if result.Complete || result.Question == nil {
		t.Fatal("expected a question to be selected")
	}
	if result.Question.QuestionID != "hard" {
		t.Errorf("expected the harder question to score closer to target 0.9, got %s", result.Question.QuestionID)
	}
}

func TestSelectNext_WrongPoolDrawServesWrongPoolEntry(t *testing.T) {
	ctx := context.Background()
	engine, adapter, wp, clk := newTestEngine(t, fixedSource{f: 0.0}) // f < P_wrong, force wrong-pool draw

	putQuestion(t, adapter, "q1", 3, "a", "b")
	putQuestion(t, adapter, "q2", 3, "a", "b")

	if _, err := wp.Add(ctx, "u1", "q1", "s1"); err != nil {
		t.Fatalf("Add q1: %v", err)
	}
	clk.Advance(time.Hour)
	if _, err := wp.Add(ctx, "u1", "q2", "s1"); err != nil {
		t.Fatalf("Add q2: %v", err)
	}

	// Age both entries far beyond the first 1h interval; both saturate at
	// the same readiness.
	clk.Advance(200 * time.Hour)

	session := &models.Session{
		UserID:       "u1",
		Status:       models.SessionActive,
		QuestionPool: []string{"q1", "q2"},
		Progress:     models.SessionProgress{AnsweredIDs: []string{"q1", "q2"}},
	}

	result, err := engine.SelectNext(ctx, session, 0.5)
	if err != nil {
		t.Fatalf("SelectNext: %v", err)
	}
	if result.Complete || result.Question == nil {
		t.Fatal("expected a wrong-pool question to be selected")
	}
	if !result.Question.FromWrongPool {
		t.Errorf("expected from_wrong_pool = true")
	}
}

// TestSelectNext_SpacedRepetitionTieBreak reproduces spec.md §8
// Scenario 5: three active WrongEntries at ages 2h/8h/30h with attempt
// counts 1/1/2, scored against intervals [1, 4, 24, 72]. Every entry
// saturates readiness at the 2.0 cap (2/1, 8/1, 30/4 all clip), so the
// tie is broken by oldest timestamp -- the 30-hour entry.
func TestSelectNext_SpacedRepetitionTieBreak(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewFixed(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	adapter := store.NewMemoryAdapter()
	wp := wrongpool.New(adapter, clk, models.MasteryThreshold)
	tracker := progresstrack.New(adapter, clk)
	dm := difficulty.New(adapter, tracker, clk, difficulty.DefaultConfig())
	cfg := Config{WrongPoolProbability: 1.0, SpacedIntervalsH: []float64{1, 4, 24, 72}}
	engine := New(adapter, wp, dm, clk, fixedSource{f: 0.0}, cfg)

	putQuestion(t, adapter, "q1", 3, "a", "b")
	putQuestion(t, adapter, "q2", 3, "a", "b")
	putQuestion(t, adapter, "q3", 3, "a", "b")

	now := clk.Now()
	// q3 is the oldest miss (entered the pool first), q1 the most recent.
	putWrongEntry(t, adapter, "u1", "q3", "s1", now.Add(-40*time.Hour), now.Add(-30*time.Hour), 2)
	putWrongEntry(t, adapter, "u1", "q2", "s1", now.Add(-20*time.Hour), now.Add(-8*time.Hour), 1)
	putWrongEntry(t, adapter, "u1", "q1", "s1", now.Add(-10*time.Hour), now.Add(-2*time.Hour), 1)

	session := &models.Session{
		UserID:       "u1",
		Status:       models.SessionActive,
		QuestionPool: []string{"q1", "q2", "q3"},
		Progress:     models.SessionProgress{AnsweredIDs: []string{"q1", "q2", "q3"}},
	}

	result, err := engine.SelectNext(ctx, session, 0.5)
	if err != nil {
		t.Fatalf("SelectNext: %v", err)
	}
	if result.Complete || result.Question == nil {
		t.Fatal("expected a wrong-pool question to be selected")
	}
	if result.Question.QuestionID != "q3" {
		t.Errorf("expected the 30h entry (q3) to win the readiness tie-break by oldest timestamp, got %s", result.Question.QuestionID)
	}
}

func TestReorderChoices_PreservesIdentity(t *testing.T) {
	choices := []models.Choice{
		{ChoiceID: "a", Text: "A", IsCorrect: true},
		{ChoiceID: "b", Text: "B", IsCorrect: false},
	}
	reordered := ReorderChoices(choices, []string{"b", "a"})
	if len(reordered) != 2 || reordered[0].ChoiceID != "b" || reordered[1].ChoiceID != "a" {
		t.Fatalf("unexpected reorder: %+v", reordered)
	}
	if !reordered[1].IsCorrect {
		t.Errorf("expected choice a to remain marked correct after reordering")
	}
}
