package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"cemse-quiz/internal/app"
	"cemse-quiz/internal/domain"
	"cemse-quiz/internal/session"
	"github.com/gorilla/websocket"
)

type WSHandler struct {
	service       *app.QuizService
	requireAnswer bool
	upgrader      websocket.Upgrader
}

func NewWSHandler(service *app.QuizService, requireAnswer bool) *WSHandler {
	return &WSHandler{
		service:       service,
		requireAnswer: requireAnswer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	QuestionID string       `json:"questionId"`
	Answer     domain.Value `json:"answer"`
}

type togglePayload struct {
	Option string `json:"option"`
}

type jumpPayload struct {
	Index int `json:"index"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type statePayload struct {
	session.View
	Widget *session.Widget      `json:"widget,omitempty"`
	Review []domain.ReviewItem `json:"review,omitempty"`
}

type tickPayload struct {
	Remaining int `json:"remaining"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// client is the app.Listener of one connection. All writes go through send so a
// single goroutine owns the socket.
type client struct {
	send chan outboundMessage
	done chan struct{}
	live *app.LiveSession
}

func (c *client) push(msg outboundMessage) {
	select {
	case c.send <- msg:
	case <-c.done:
	}
}

func (c *client) Tick(remaining int) {
	c.push(outboundMessage{Type: "tick", Payload: tickPayload{Remaining: remaining}})
}

// Submitting pushes the frozen state before grading starts, so the client can
// disable input while a remote submission is pending.
func (c *client) Submitting() {
	c.push(outboundMessage{Type: "state", Payload: stateOf(c.live.Controller())})
}

func (c *client) Completed(res domain.Result) {
	c.push(outboundMessage{Type: "result", Payload: res})
	c.push(outboundMessage{Type: "state", Payload: stateOf(c.live.Controller())})
}

func (c *client) Cancelled() {
	c.push(outboundMessage{Type: "state", Payload: stateOf(c.live.Controller())})
}

func stateOf(ctrl *session.Controller) statePayload {
	p := statePayload{View: ctrl.Snapshot()}
	switch p.State {
	case session.StateTaking:
		if w, err := ctrl.Render(); err == nil {
			p.Widget = &w
		}
	case session.StateReviewing:
		p.Review, _ = ctrl.ReviewItems()
	}
	return p
}

// ServeWS upgrades the request and attaches the connection to a live session.
// ?quizId= starts a new attempt, ?sessionId= resumes one that is still registered.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	quizID := r.URL.Query().Get("quizId")
	sessionID := r.URL.Query().Get("sessionId")
	if quizID == "" && sessionID == "" {
		http.Error(w, "missing quizId or sessionId", http.StatusBadRequest)
		return
	}

	var (
		live *app.LiveSession
		err  error
	)
	if sessionID != "" {
		live, err = h.service.Session(r.Context(), sessionID)
	} else {
		live, err = h.service.StartSession(r.Context(), quizID, app.SessionOptions{RequireAnswer: h.requireAnswer})
	}
	if err != nil {
		respondError(w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	c := &client{
		send: make(chan outboundMessage, 16),
		done: make(chan struct{}),
		live: live,
	}
	writerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for {
			select {
			case msg := <-c.send:
				if err := conn.WriteJSON(msg); err != nil {
					log.Printf("ws write error: %v", err)
					_ = conn.Close()
					return
				}
			case <-c.done:
				return
			}
		}
	}()

	live.Attach(c)
	c.push(outboundMessage{Type: "state", Payload: stateOf(live.Controller())})

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if err := h.dispatch(live, inbound); err != nil {
			c.push(outboundMessage{Type: "error", Payload: errorPayload{Message: err.Error()}})
			continue
		}
		if inbound.Type == "cancel" {
			// Cancelled already pushed the final state.
			continue
		}
		if st := live.Controller().State(); st == session.StateCompleted && (inbound.Type == "submit" || inbound.Type == "next") {
			// Completed already pushed result and state.
			continue
		}
		c.push(outboundMessage{Type: "state", Payload: stateOf(live.Controller())})
	}

	live.Detach(c, time.Now())
	close(c.done)
	<-writerDone
}

func (h *WSHandler) dispatch(live *app.LiveSession, msg inboundMessage) error {
	ctrl := live.Controller()
	ctx := context.Background()

	switch msg.Type {
	case "answer":
		var p answerPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return fmt.Errorf("invalid answer payload: %w", err)
		}
		return answer(ctrl, p)
	case "toggle":
		var p togglePayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return fmt.Errorf("invalid toggle payload: %w", err)
		}
		widget, err := ctrl.Render()
		if err != nil {
			return err
		}
		return widget.Toggle(p.Option)
	case "next":
		return ctrl.Next(ctx)
	case "previous":
		return ctrl.Previous()
	case "jump":
		var p jumpPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return fmt.Errorf("invalid jump payload: %w", err)
		}
		return ctrl.Jump(p.Index)
	case "submit":
		if !ctrl.Submit(ctx) {
			return fmt.Errorf("%w: %s", session.ErrNotTaking, ctrl.State())
		}
		return nil
	case "review":
		return ctrl.Review()
	case "closeReview":
		return ctrl.CloseReview()
	case "retake":
		return h.service.Retake(ctx, live)
	case "cancel":
		return ctrl.Cancel()
	default:
		return errors.New("unsupported message type")
	}
}

// answer routes a value for the current question through its widget so options are
// checked; other questions are set directly.
func answer(ctrl *session.Controller, p answerPayload) error {
	widget, err := ctrl.Render()
	if err != nil {
		return err
	}
	if p.QuestionID != "" && p.QuestionID != widget.QuestionID {
		return ctrl.SetAnswer(p.QuestionID, p.Answer)
	}
	switch widget.Kind {
	case session.WidgetChoice:
		if p.Answer.IsEmpty() {
			return ctrl.SetAnswer(widget.QuestionID, p.Answer)
		}
		return widget.Select(p.Answer.Str())
	case session.WidgetText:
		return widget.Input(p.Answer.Str())
	default:
		return ctrl.SetAnswer(widget.QuestionID, p.Answer)
	}
}
