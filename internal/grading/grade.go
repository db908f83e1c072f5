// Package grading compares submitted answers with answer keys. Every function here is
// pure: identical input always gives identical output.
package grading

import (
	"strings"
	"time"

	"cemse-quiz/internal/domain"
)

// Outcome is the verdict for one question.
type Outcome struct {
	Correct bool
	Points  int
}

// Grade checks a submitted value against the question's key. Empty or mis-shaped
// submissions are incorrect.
func Grade(q domain.Question, submitted domain.Value) Outcome {
	if submitted.IsEmpty() || q.CorrectAnswer.IsEmpty() {
		return Outcome{}
	}

	var correct bool
	switch q.Type {
	case domain.SingleChoice, domain.TrueFalse:
		correct = submitted.Kind() == domain.KindText && q.CorrectAnswer.Contains(submitted.Str())
	case domain.MultiSelect:
		correct = submitted.Kind() == domain.KindSet && setEqual(toSet(q.CorrectAnswer.Members()), toSet(submitted.Members()))
	default:
		// short-answer, fill-blank and unknown types compare as free text
		correct = submitted.Kind() == domain.KindText && textMatch(q.CorrectAnswer, submitted.Str())
	}

	if !correct {
		return Outcome{}
	}
	return Outcome{Correct: true, Points: q.Points}
}

// Score grades every question of the quiz, answered or not.
func Score(quiz domain.Quiz, answers map[string]domain.Value, spent map[string]time.Duration, completedAt time.Time) domain.Result {
	questions := quiz.Ordered()
	res := domain.Result{
		QuizID:      quiz.ID,
		Answers:     make([]domain.Answer, 0, len(questions)),
		CompletedAt: completedAt,
	}

	var total time.Duration
	for _, q := range questions {
		value, ok := answers[q.ID]
		if !ok {
			value = q.EmptyValue()
		}
		outcome := Grade(q, value)
		res.Score += outcome.Points
		res.TotalPoints += q.Points
		total += spent[q.ID]
		res.Answers = append(res.Answers, domain.Answer{
			QuestionID:       q.ID,
			Value:            value,
			IsCorrect:        outcome.Correct,
			PointsAwarded:    outcome.Points,
			TimeSpentSeconds: seconds(spent[q.ID]),
		})
	}

	res.Percentage = domain.Percentage(res.Score, res.TotalPoints)
	res.Passed = domain.Passed(res.Percentage, quiz.PassingScore)
	res.TimeSpentSeconds = seconds(total)
	return res
}

func textMatch(key domain.Value, submitted string) bool {
	norm := normalize(submitted)
	if norm == "" {
		return false
	}
	for _, k := range key.Members() {
		if normalize(k) == norm {
			return true
		}
	}
	return false
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func toSet(arr []string) map[string]struct{} {
	m := make(map[string]struct{}, len(arr))
	for _, s := range arr {
		m[s] = struct{}{}
	}
	return m
}

func setEqual(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range b {
		if _, ok := a[k]; !ok {
			return false
		}
	}
	return true
}

func seconds(d time.Duration) int {
	return int(d.Round(time.Second) / time.Second)
}
