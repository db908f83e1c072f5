package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"cemse-quiz/internal/app"
	"cemse-quiz/internal/domain"
	"github.com/go-chi/chi/v5"
)

// QuizHandler serves quiz definitions and the submission endpoint.
type QuizHandler struct {
	service *app.QuizService
}

func NewQuizHandler(service *app.QuizService) *QuizHandler {
	return &QuizHandler{service: service}
}

// publicQuestion hides the answer key and explanation while a quiz is being taken.
type publicQuestion struct {
	ID         string              `json:"id"`
	Text       string              `json:"text"`
	Type       domain.QuestionType `json:"type"`
	Options    []string            `json:"options,omitempty"`
	Points     int                 `json:"points"`
	OrderIndex int                 `json:"orderIndex"`
}

type publicQuiz struct {
	ID                 string           `json:"id"`
	Title              string           `json:"title"`
	Description        string           `json:"description,omitempty"`
	TimeLimitSeconds   *int             `json:"timeLimitSeconds,omitempty"`
	PassingScore       float64          `json:"passingScore"`
	ShowCorrectAnswers bool             `json:"showCorrectAnswers"`
	TotalPoints        int              `json:"totalPoints"`
	Questions          []publicQuestion `json:"questions"`
}

func toPublic(q domain.Quiz) publicQuiz {
	out := publicQuiz{
		ID:                 q.ID,
		Title:              q.Title,
		Description:        q.Description,
		TimeLimitSeconds:   q.TimeLimitSeconds,
		PassingScore:       q.PassingScore,
		ShowCorrectAnswers: q.ShowCorrectAnswers,
		TotalPoints:        q.TotalPoints(),
	}
	for _, qq := range q.Ordered() {
		out.Questions = append(out.Questions, publicQuestion{
			ID:         qq.ID,
			Text:       qq.Text,
			Type:       qq.Type,
			Options:    qq.Options,
			Points:     qq.Points,
			OrderIndex: qq.OrderIndex,
		})
	}
	return out
}

func (h *QuizHandler) GetQuiz(w http.ResponseWriter, r *http.Request) {
	quiz, err := h.service.GetQuiz(r.Context(), chi.URLParam(r, "quizID"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toPublic(quiz))
}

// Submit grades a submission and replies with the receipt. The quiz id in the path
// wins over the body.
func (h *QuizHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var sub domain.Submission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		respondError(w, fmt.Errorf("%w: %v", domain.ErrInvalidSubmission, err))
		return
	}
	sub.QuizID = chi.URLParam(r, "quizID")

	res, err := h.service.Submit(r.Context(), sub)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, domain.ReceiptFor(res))
}

func (h *QuizHandler) GetSubmission(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.AttemptResult(r.Context(), chi.URLParam(r, "quizID"), chi.URLParam(r, "sessionID"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}
