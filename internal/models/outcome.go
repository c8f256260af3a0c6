package models

// NextAction is the closed set of instructions the Answer Resolution
// State Machine hands back to the caller, instead of signaling
// "retry vs advance" through exception flow.
type NextAction string

const (
	NextActionQuestion       NextAction = "next_question"
	NextActionRetrySame      NextAction = "retry_same_question"
	NextActionSessionComplete NextAction = "session_complete"
)

// AnswerOutcome is the full result of grading one submitted answer.
type AnswerOutcome struct {
	Correct           bool
	Action            NextAction
	RemainingCorrect  int
	PenaltyIndicator  string
	PresentedQuestion *PresentedQuestion
}

// PresentedQuestion is a Question re-shaped for presentation: for
// wrong-pool retries the Choices are the frozen permutation, not the
// catalog order.
type PresentedQuestion struct {
	QuestionID      string
	Prompt          string
	Kind            Kind
	Choices         []Choice
	FromWrongPool   bool
	RemainingTries  int
}
