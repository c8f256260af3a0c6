package models

// Kind enumerates the presentation styles a Question supports.
type Kind string

const (
	KindSingleChoice   Kind = "single_choice"
	KindMultipleChoice Kind = "multiple_choice"
	KindTrueFalse      Kind = "true_false"
	KindFillBlank      Kind = "fill_blank"
)

// Valid reports whether k is one of the known question kinds. The codec
// rejects unknown kinds as Corrupted rather than passing them through.
func (k Kind) Valid() bool {
	switch k {
	case KindSingleChoice, KindMultipleChoice, KindTrueFalse, KindFillBlank:
		return true
	default:
		return false
	}
}

// QuestionStatus mirrors the catalog's publication lifecycle.
type QuestionStatus string

const (
	QuestionDraft      QuestionStatus = "draft"
	QuestionActive     QuestionStatus = "active"
	QuestionDeprecated QuestionStatus = "deprecated"
	QuestionFlagged    QuestionStatus = "flagged"
)

func (s QuestionStatus) Valid() bool {
	switch s {
	case QuestionDraft, QuestionActive, QuestionDeprecated, QuestionFlagged:
		return true
	default:
		return false
	}
}

// Choice is one answer option of a Question. Identity (ChoiceID, Text,
// IsCorrect) must survive any reordering performed by the shuffling
// policy in the selection engine.
type Choice struct {
	ChoiceID  string `bson:"choice_id" json:"choice_id"`
	Text      string `bson:"text" json:"text"`
	IsCorrect bool   `bson:"is_correct" json:"is_correct"`
}

// Question is immutable content owned by the external catalog. The core
// never writes a Question; it only reads it through the Store Adapter.
type Question struct {
	SchemaVersion string `bson:"schema_version" json:"schema_version"`

	QuestionID string `bson:"_id" json:"question_id"`

	Category    string `bson:"category" json:"category"`
	Provider    string `bson:"provider" json:"provider"`
	Certificate string `bson:"certificate" json:"certificate"`
	Language    string `bson:"language" json:"language"`

	Prompt  string         `bson:"prompt" json:"prompt"`
	Kind    Kind           `bson:"kind" json:"kind"`
	Choices []Choice       `bson:"choices" json:"choices"`
	Status  QuestionStatus `bson:"status" json:"status"`

	DeclaredDifficulty int `bson:"declared_difficulty" json:"declared_difficulty"`
}

// CorrectSet returns the set of choice_ids marked is_correct. Computed on
// demand rather than persisted twice, so there is exactly one source of
// truth for what counts as correct.
func (q *Question) CorrectSet() map[string]struct{} {
	set := make(map[string]struct{}, len(q.Choices))
	for _, c := range q.Choices {
		if c.IsCorrect {
			set[c.ChoiceID] = struct{}{}
		}
	}
	return set
}

// Validate enforces: at least two choices, a non-empty correct set,
// unique choice_ids, and a known kind/status.
func (q *Question) Validate() error {
	if !q.Kind.Valid() {
		return NewValidationError("kind", "unknown question kind")
	}
	if !q.Status.Valid() {
		return NewValidationError("status", "unknown question status")
	}
	if len(q.Choices) < 2 {
		return NewValidationError("choices", "question must have at least two choices")
	}
	seen := make(map[string]struct{}, len(q.Choices))
	anyCorrect := false
	for _, c := range q.Choices {
		if _, dup := seen[c.ChoiceID]; dup {
			return NewValidationError("choices", "duplicate choice_id: "+c.ChoiceID)
		}
		seen[c.ChoiceID] = struct{}{}
		if c.IsCorrect {
			anyCorrect = true
		}
	}
	if !anyCorrect {
		return NewValidationError("choices", "no correct choice declared")
	}
	return nil
}

// DeclaredDifficultyNormalized maps the author-declared 1..5 scale
// linearly onto [0.1, 0.9], the fallback used by the Difficulty Model
// when fewer than 10 attempts have been recorded for a question.
func (q *Question) DeclaredDifficultyNormalized() float64 {
	d := q.DeclaredDifficulty
	if d < 1 {
		d = 1
	}
	if d > 5 {
		d = 5
	}
	return 0.1 + (float64(d-1)/4.0)*0.8
}

// ValidationError is returned by Validate and by the codec for malformed
// field values; it names the offending field so callers can report
// precisely what was wrong.
type ValidationError struct {
	Field   string
	Message string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}
