package domain

import (
	"fmt"
	"time"
)

// SubmittedAnswer is one entry of the submission request body.
type SubmittedAnswer struct {
	QuestionID       string `json:"questionId" validate:"required"`
	Answer           Value  `json:"answer"`
	TimeSpentSeconds int    `json:"timeSpentSeconds" validate:"min=0"`
}

// Submission is the body POSTed to the submission endpoint.
type Submission struct {
	QuizID    string            `json:"quizId" validate:"required"`
	SessionID string            `json:"sessionId" validate:"required"`
	Answers   []SubmittedAnswer `json:"answers" validate:"dive"`
}

// Validate checks required fields of a submission.
func (s Submission) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSubmission, err)
	}
	return nil
}

// ReceiptAnswer is the server's per-question verdict.
type ReceiptAnswer struct {
	QuestionID string `json:"questionId"`
	Answer     Value  `json:"answer"`
	IsCorrect  bool   `json:"isCorrect"`
}

// Receipt is the success response of the submission endpoint.
type Receipt struct {
	Score       int             `json:"score"`
	Passed      bool            `json:"passed"`
	Answers     []ReceiptAnswer `json:"answers"`
	CompletedAt time.Time       `json:"completedAt"`
}

// ReceiptFor projects a result onto the endpoint response shape.
func ReceiptFor(r Result) Receipt {
	answers := make([]ReceiptAnswer, 0, len(r.Answers))
	for _, a := range r.Answers {
		answers = append(answers, ReceiptAnswer{QuestionID: a.QuestionID, Answer: a.Value, IsCorrect: a.IsCorrect})
	}
	return Receipt{
		Score:       r.Score,
		Passed:      r.Passed,
		Answers:     answers,
		CompletedAt: r.CompletedAt,
	}
}
