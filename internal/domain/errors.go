package domain

import "errors"

var (
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrQuizUnavailable is returned for quizzes that cannot be taken (no questions, malformed questions).
	ErrQuizUnavailable = errors.New("quiz unavailable")
	// ErrQuestionNotFound indicates an answer referenced a question outside the quiz.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrOptionNotFound indicates a picked option is not one of the question's options.
	ErrOptionNotFound = errors.New("option not found")
	// ErrAnswerShape is returned when a value does not fit the question type.
	ErrAnswerShape = errors.New("answer does not match question type")
	// ErrInvalidSubmission is returned for submission requests missing required fields.
	ErrInvalidSubmission = errors.New("invalid submission")
	// ErrAttemptNotFound is returned when no result is stored for a session.
	ErrAttemptNotFound = errors.New("attempt not found")
	// ErrSessionNotFound is returned when a live session is not registered.
	ErrSessionNotFound = errors.New("quiz session not found")
)
