package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"cemse-quiz/internal/app"
	"cemse-quiz/internal/domain"
	"cemse-quiz/internal/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterOptions configure the HTTP surface.
type RouterOptions struct {
	AllowedOrigins []string
	RequireAnswer  bool
}

// NewRouter mounts the REST API and the websocket endpoint.
func NewRouter(service *app.QuizService, opts RouterOptions) http.Handler {
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		ExposedHeaders: []string{"Content-Length"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	quizzes := NewQuizHandler(service)
	r.Route("/api/quizzes/{quizID}", func(qr chi.Router) {
		qr.Use(middleware.Timeout(30 * time.Second))
		qr.Get("/", quizzes.GetQuiz)
		qr.Post("/submissions", quizzes.Submit)
		qr.Get("/submissions/{sessionID}", quizzes.GetSubmission)
	})

	r.Get("/ws", NewWSHandler(service, opts.RequireAnswer).ServeWS)
	return r
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func respondError(w http.ResponseWriter, err error) {
	respondJSON(w, statusFor(err), errorPayload{Message: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrQuizNotFound),
		errors.Is(err, domain.ErrAttemptNotFound),
		errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrQuizUnavailable):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrInvalidSubmission),
		errors.Is(err, domain.ErrQuestionNotFound),
		errors.Is(err, domain.ErrOptionNotFound),
		errors.Is(err, domain.ErrAnswerShape),
		errors.Is(err, session.ErrIndexOutOfRange),
		errors.Is(err, session.ErrWidgetKind):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrNotTaking),
		errors.Is(err, session.ErrAnswerRequired),
		errors.Is(err, session.ErrNotCompleted),
		errors.Is(err, session.ErrNotReviewing),
		errors.Is(err, session.ErrReviewUnavailable),
		errors.Is(err, session.ErrClosed):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
