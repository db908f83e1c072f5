package http

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cemse-quiz/internal/app"
	"cemse-quiz/internal/domain"
	"cemse-quiz/internal/infra/memory"
	"cemse-quiz/internal/session"
	"github.com/gorilla/websocket"
)

func TestWebSocketTakeAndReview(t *testing.T) {
	server, _ := newTestServer(t)
	defer server.Close()

	conn := dial(t, server, "quizId=quiz-1")
	defer conn.Close()

	state := readUntil(t, conn, "state")
	if state["state"] != "taking" || state["index"].(float64) != 0 {
		t.Fatalf("unexpected initial state %v", state)
	}
	widget := state["widget"].(map[string]any)
	if widget["kind"] != "choice" || widget["questionId"] != "q1" {
		t.Fatalf("unexpected widget %v", widget)
	}

	send(t, conn, "answer", map[string]any{"answer": "4"})
	if state = readUntil(t, conn, "state"); state["answered"].(float64) != 1 {
		t.Fatalf("expected one answered question, got %v", state)
	}

	send(t, conn, "next", nil)
	state = readUntil(t, conn, "state")
	if state["index"].(float64) != 1 || state["widget"].(map[string]any)["kind"] != "checkbox" {
		t.Fatalf("expected checkbox question, got %v", state)
	}

	send(t, conn, "toggle", map[string]any{"option": "red"})
	readUntil(t, conn, "state")
	send(t, conn, "toggle", map[string]any{"option": "blue"})
	readUntil(t, conn, "state")

	send(t, conn, "submit", nil)
	if state = readUntil(t, conn, "state"); state["state"] != "submitting" || state["widget"] != nil {
		t.Fatalf("expected submitting state without a widget, got %v", state)
	}
	result := readUntil(t, conn, "result")
	if result["score"].(float64) != 3 || result["passed"] != true {
		t.Fatalf("unexpected result %v", result)
	}
	if state = readUntil(t, conn, "state"); state["state"] != "completed" || state["canReview"] != true {
		t.Fatalf("expected completed state, got %v", state)
	}

	send(t, conn, "review", nil)
	state = readUntil(t, conn, "state")
	review, ok := state["review"].([]any)
	if state["state"] != "reviewing" || !ok || len(review) != 2 {
		t.Fatalf("expected review items, got %v", state)
	}
}

func TestWebSocketRejectsBadCommands(t *testing.T) {
	server, _ := newTestServer(t)
	defer server.Close()

	conn := dial(t, server, "quizId=quiz-1")
	defer conn.Close()
	readUntil(t, conn, "state")

	send(t, conn, "toggle", map[string]any{"option": "red"})
	if msg := readUntil(t, conn, "error"); !strings.Contains(msg["message"].(string), "not supported") {
		t.Fatalf("expected widget error, got %v", msg)
	}

	send(t, conn, "answer", map[string]any{"answer": "5"})
	if msg := readUntil(t, conn, "error"); !strings.Contains(msg["message"].(string), "option") {
		t.Fatalf("expected option error, got %v", msg)
	}

	send(t, conn, "review", nil)
	readUntil(t, conn, "error")

	send(t, conn, "dance", nil)
	readUntil(t, conn, "error")
}

func TestWebSocketResumeSession(t *testing.T) {
	server, _ := newTestServer(t)
	defer server.Close()

	first := dial(t, server, "quizId=quiz-1")
	state := readUntil(t, first, "state")
	sessionID := state["sessionId"].(string)
	send(t, first, "answer", map[string]any{"answer": "4"})
	readUntil(t, first, "state")
	first.Close()

	second := dial(t, server, "sessionId="+sessionID)
	defer second.Close()
	state = readUntil(t, second, "state")
	if state["sessionId"] != sessionID || state["answered"].(float64) != 1 {
		t.Fatalf("expected resumed session, got %v", state)
	}
}

func TestWebSocketCancel(t *testing.T) {
	server, _ := newTestServer(t)
	defer server.Close()

	conn := dial(t, server, "quizId=quiz-1")
	defer conn.Close()
	readUntil(t, conn, "state")

	send(t, conn, "cancel", nil)
	if state := readUntil(t, conn, "state"); state["state"] != "cancelled" {
		t.Fatalf("expected cancelled, got %v", state)
	}
}

func TestWebSocketSubmissionIsPersisted(t *testing.T) {
	server, service := newTestServer(t)
	defer server.Close()

	conn := dial(t, server, "quizId=quiz-1")
	defer conn.Close()
	sessionID := readUntil(t, conn, "state")["sessionId"].(string)

	send(t, conn, "submit", nil)
	readUntil(t, conn, "state")
	readUntil(t, conn, "result")

	res, err := service.AttemptResult(context.Background(), "quiz-1", sessionID)
	if err != nil {
		t.Fatalf("expected stored attempt: %v", err)
	}
	if res.Score != 0 || len(res.Answers) != 2 {
		t.Fatalf("unexpected stored result %+v", res)
	}
}

func TestWebSocketShowsSubmittingWhileRemotePending(t *testing.T) {
	server, service := newTestServer(t)
	defer server.Close()
	slow := &slowRemote{delay: 300 * time.Millisecond}
	service.SetGrading(session.StrategyRemote, slow)

	conn := dial(t, server, "quizId=quiz-1")
	defer conn.Close()
	readUntil(t, conn, "state")

	sent := time.Now()
	send(t, conn, "submit", nil)
	state := readUntil(t, conn, "state")
	if state["state"] != "submitting" {
		t.Fatalf("expected submitting, got %v", state)
	}
	if time.Since(sent) >= slow.delay {
		t.Fatalf("submitting state arrived only after grading")
	}
	if result := readUntil(t, conn, "result"); result["score"].(float64) != 3 {
		t.Fatalf("expected remote verdict, got %v", result)
	}
	if state = readUntil(t, conn, "state"); state["state"] != "completed" {
		t.Fatalf("expected completed, got %v", state)
	}
}

type slowRemote struct {
	delay time.Duration
}

func (r *slowRemote) Submit(ctx context.Context, sub domain.Submission) (domain.Receipt, error) {
	time.Sleep(r.delay)
	receipt := domain.Receipt{Score: 3, Passed: true, CompletedAt: time.Now()}
	for _, a := range sub.Answers {
		receipt.Answers = append(receipt.Answers, domain.ReceiptAnswer{QuestionID: a.QuestionID, Answer: a.Answer, IsCorrect: true})
	}
	return receipt, nil
}

func newTestServer(t *testing.T) (*httptest.Server, *app.QuizService) {
	t.Helper()
	quizRepo := memory.NewQuizRepository(memory.NewStaticQuizLoader(map[string]domain.Quiz{"quiz-1": sampleQuiz()}), time.Minute)
	service := app.NewQuizService(memory.NewSessionStore(), quizRepo, memory.NewAttemptStore())
	return httptest.NewServer(NewRouter(service, RouterOptions{})), service
}

func dial(t *testing.T, server *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?" + query
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func send(t *testing.T, conn *websocket.Conn, typ string, payload any) {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	if err := conn.WriteJSON(inboundMessage{Type: typ, Payload: raw}); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

// readUntil skips tick messages and fails on any other unexpected type.
func readUntil(t *testing.T, conn *websocket.Conn, expect string) map[string]any {
	t.Helper()
	for {
		var msg struct {
			Type    string         `json:"type"`
			Payload map[string]any `json:"payload"`
		}
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read %s: %v", expect, err)
		}
		if msg.Type == "tick" && expect != "tick" {
			continue
		}
		if msg.Type != expect {
			t.Fatalf("expected %s, got %s %v", expect, msg.Type, msg.Payload)
		}
		return msg.Payload
	}
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		ID:                 "quiz-1",
		Title:              "Basics",
		PassingScore:       50,
		ShowCorrectAnswers: true,
		Questions: []domain.Question{
			{
				ID:            "q1",
				Text:          "What is 2 + 2?",
				Type:          domain.SingleChoice,
				Options:       []string{"3", "4"},
				CorrectAnswer: domain.Text("4"),
				Points:        1,
				Explanation:   "Arithmetic.",
			},
			{
				ID:            "q2",
				Text:          "Primary colours?",
				Type:          domain.MultiSelect,
				Options:       []string{"red", "green", "blue"},
				CorrectAnswer: domain.Set("red", "blue"),
				Points:        2,
				OrderIndex:    1,
			},
		},
	}
}
