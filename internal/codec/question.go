package codec

import (
	"fmt"

	"adaptive-quiz-core/internal/models"
	"adaptive-quiz-core/internal/store"
)

// DecodeQuestion reads a catalog-owned Question record. The core never
// encodes one back -- questions are immutable content owned by the
// external catalog -- so there is no EncodeQuestion.
func DecodeQuestion(rec store.Record) (*models.Question, error) {
	q := &models.Question{}

	id, ok := getString(rec, "_id")
	if !ok || id == "" {
		return nil, newDecodeError("question", "_id", "missing or not a string")
	}
	q.QuestionID = id

	q.Category, _ = getString(rec, "category")
	q.Provider, _ = getString(rec, "provider")
	q.Certificate, _ = getString(rec, "certificate")
	q.Language, _ = getString(rec, "language")
	q.Prompt, _ = getString(rec, "prompt")

	kind, ok := getString(rec, "kind")
	if !ok {
		return nil, newDecodeError("question", "kind", "missing")
	}
	if k := models.Kind(kind); k.Valid() {
		q.Kind = k
	} else {
		return nil, newDecodeError("question", "kind", "unknown tag: "+kind)
	}

	status, ok := getString(rec, "status")
	if !ok {
		return nil, newDecodeError("question", "status", "missing")
	}
	if s := models.QuestionStatus(status); s.Valid() {
		q.Status = s
	} else {
		return nil, newDecodeError("question", "status", "unknown tag: "+status)
	}

	declared, _ := getInt(rec, "declared_difficulty")
	q.DeclaredDifficulty = declared

	rawChoices, ok := rec["choices"].([]any)
	if !ok {
		return nil, newDecodeError("question", "choices", "missing or not an array")
	}
	choices := make([]models.Choice, 0, len(rawChoices))
	for i, rc := range rawChoices {
		cm, ok := rc.(store.Record)
		if !ok {
			return nil, newDecodeError("question", fmt.Sprintf("choices[%d]", i), "not a document")
		}
		choiceID, _ := getString(cm, "choice_id")
		text, _ := getString(cm, "text")
		isCorrect, _ := getBool(cm, "is_correct")
		choices = append(choices, models.Choice{ChoiceID: choiceID, Text: text, IsCorrect: isCorrect})
	}
	q.Choices = choices

	q.SchemaVersion, _ = getString(rec, "schema_version")
	return q, nil
}
