package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"mcq-quiz-service/internal/app"
	"mcq-quiz-service/internal/domain"
	"mcq-quiz-service/internal/infra/memory"
)

func fastRules() app.Rules {
	return app.Rules{
		TimeLimit:       2 * time.Second,
		FeedbackDelay:   10 * time.Millisecond,
		WelcomeDelay:    10 * time.Millisecond,
		AutoSubmitGrace: 10 * time.Millisecond,
		ResultHold:      50 * time.Millisecond,
		MaxAttempts:     3,
		PassMark:        70,
		TopN:            10,
	}
}

func newTestServer(t *testing.T) (*httptest.Server, *app.QuizService) {
	t.Helper()
	cache := memory.NewCache()
	questions := memory.NewQuestionRepository(memory.NewStaticQuestionLoader([]domain.Question{
		{ID: 1, Text: "What is 2 + 2?", Options: []string{"3", "4", "5", "6"}, CorrectOption: 1},
	}), time.Minute)
	registry := app.NewRegistry(cache, time.Minute)
	aggregator := app.NewAggregator(cache, 70)
	service := app.NewQuizService(registry, questions, aggregator, cache, fastRules())

	mux := http.NewServeMux()
	wsHandler := NewWSHandler(service)
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	NewStatsHandler(service).Register(mux)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, service
}

func dialWS(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	u := "ws" + server.URL[len("http"):] + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readNext(t *testing.T, conn *websocket.Conn, expect string) map[string]any {
	t.Helper()
	var msg map[string]any
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	typ, _ := msg["type"].(string)
	if expect != "" && typ != expect {
		t.Fatalf("expected type %s, got %s (%v)", expect, typ, msg)
	}
	return msg
}

func TestWebSocketQuizFlow(t *testing.T) {
	server, _ := newTestServer(t)
	conn := dialWS(t, server)

	welcome := readNext(t, conn, "welcome")
	if welcome["studentId"] == "" || welcome["totalQuestions"].(float64) != 1 {
		t.Fatalf("unexpected welcome: %v", welcome)
	}

	question := readNext(t, conn, "question")
	if question["questionNumber"].(float64) != 1 {
		t.Fatalf("unexpected question: %v", question)
	}

	if err := conn.WriteJSON(map[string]any{"type": "answer", "answerIndex": 1}); err != nil {
		t.Fatalf("write answer: %v", err)
	}
	warning := readNext(t, conn, "attempt-warning")
	if warning["attemptsRemaining"].(float64) != 2 || warning["currentAnswer"].(float64) != 1 {
		t.Fatalf("unexpected attempt-warning: %v", warning)
	}

	if err := conn.WriteJSON(map[string]any{"type": "submit", "answerIndex": 1}); err != nil {
		t.Fatalf("write submit: %v", err)
	}
	feedback := readNext(t, conn, "feedback")
	if feedback["isCorrect"] != true {
		t.Fatalf("expected correct feedback: %v", feedback)
	}

	results := readNext(t, conn, "results")
	if results["score"].(float64) != 1 || results["percentage"].(float64) != 100 {
		t.Fatalf("unexpected results: %v", results)
	}
	if _, ok := results["leaderboard"].([]any); !ok {
		t.Fatalf("expected leaderboard snapshot in results: %v", results)
	}

	// After the result hold the server closes the connection.
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatalf("expected connection closed after result hold")
	}
}

func TestWebSocketPingAndMalformed(t *testing.T) {
	server, _ := newTestServer(t)
	conn := dialWS(t, server)

	readNext(t, conn, "welcome")

	if err := conn.WriteJSON(map[string]any{"type": "ping"}); err != nil {
		t.Fatalf("write ping: %v", err)
	}

	// Pong and question #1 can interleave depending on the welcome delay.
	seenPong := false
	for i := 0; i < 2; i++ {
		msg := readNext(t, conn, "")
		if msg["type"] == "pong" {
			seenPong = true
		}
	}
	if !seenPong {
		t.Fatalf("expected pong response")
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatalf("write malformed: %v", err)
	}
	readNext(t, conn, "error")

	if err := conn.WriteJSON(map[string]any{"type": "mystery"}); err != nil {
		t.Fatalf("write unknown: %v", err)
	}
	readNext(t, conn, "error")

	if err := conn.WriteJSON(map[string]any{"type": "answer"}); err != nil {
		t.Fatalf("write answer without index: %v", err)
	}
	readNext(t, conn, "error")
}

func TestWebSocketDisconnectRemovesSession(t *testing.T) {
	server, service := newTestServer(t)
	conn := dialWS(t, server)

	readNext(t, conn, "welcome")
	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if service.Stats(context.Background()).ActiveCount == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("session not removed after client disconnect")
}
