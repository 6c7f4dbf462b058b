package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"bugfeature-quiz-service/internal/app"
	"bugfeature-quiz-service/internal/infra/memory"
)

func TestWebSocketQuizFlow(t *testing.T) {
	store := memory.NewStore()
	service := app.NewQuizService(store)
	conn := dialTestServer(t, service)
	defer conn.Close()

	creds := map[string]any{"user_name": "alice", "password": "hunter2"}

	// Submit a question.
	submit := map[string]any{
		"type": "insert_new_question",
		"data": map[string]any{
			"user_name":                "alice",
			"password":                 "hunter2",
			"question":                 "def add(a, b): return a - b",
			"correct_answer":           "Bug",
			"new_question_title":       "Addition",
			"new_question_explanation": "Subtracts instead of adding.",
		},
	}
	if err := conn.WriteJSON(submit); err != nil {
		t.Fatalf("write submit: %v", err)
	}
	_, raw := readNext(conn, t, "return_new_question")
	var confirmation string
	if err := json.Unmarshal(raw, &confirmation); err != nil {
		t.Fatalf("unmarshal confirmation: %v", err)
	}
	if !strings.HasPrefix(confirmation, "Added `Addition` to the database") {
		t.Fatalf("unexpected confirmation %q", confirmation)
	}

	// Request a question; the submitter has not answered it yet, so it comes back.
	if err := conn.WriteJSON(map[string]any{"type": "get_question", "data": creds}); err != nil {
		t.Fatalf("write get_question: %v", err)
	}
	_, raw = readNext(conn, t, "return_question")
	var view struct {
		Text  string `json:"txt"`
		Ident string `json:"ident"`
	}
	if err := json.Unmarshal(raw, &view); err != nil {
		t.Fatalf("unmarshal question: %v", err)
	}
	if view.Ident == "INVALID" || view.Ident == "" {
		t.Fatalf("expected a real question, got %+v", view)
	}
	readNext(conn, t, "return_user_info")

	// Answer it incorrectly.
	answer := map[string]any{
		"type": "answered_question",
		"data": map[string]any{
			"user_name":     "alice",
			"password":      "hunter2",
			"question_uuid": view.Ident,
			"user_answer":   "Feature",
		},
	}
	if err := conn.WriteJSON(answer); err != nil {
		t.Fatalf("write answer: %v", err)
	}
	_, raw = readNext(conn, t, "answered_question_feedback")
	var feedback string
	if err := json.Unmarshal(raw, &feedback); err != nil {
		t.Fatalf("unmarshal feedback: %v", err)
	}
	if !strings.HasPrefix(feedback, `Sorry, this was a "Bug".`) {
		t.Fatalf("unexpected feedback %q", feedback)
	}
	readNext(conn, t, "return_user_info")

	// Upvote it.
	vote := map[string]any{
		"type": "vote_question",
		"data": map[string]any{
			"user_name":     "alice",
			"password":      "hunter2",
			"question_uuid": view.Ident,
		},
	}
	if err := conn.WriteJSON(vote); err != nil {
		t.Fatalf("write vote: %v", err)
	}
	_, raw = readNext(conn, t, "vote_feedback")
	var voted struct {
		Ident string `json:"ident"`
		Votes int    `json:"votes"`
	}
	if err := json.Unmarshal(raw, &voted); err != nil {
		t.Fatalf("unmarshal vote feedback: %v", err)
	}
	if voted.Votes != 1 {
		t.Fatalf("expected one vote, got %d", voted.Votes)
	}

	// All questions answered now: the exhausted placeholder comes back.
	if err := conn.WriteJSON(map[string]any{"type": "get_question", "data": creds}); err != nil {
		t.Fatalf("write get_question: %v", err)
	}
	_, raw = readNext(conn, t, "return_question")
	if err := json.Unmarshal(raw, &view); err != nil {
		t.Fatalf("unmarshal question: %v", err)
	}
	if view.Ident != "INVALID" {
		t.Fatalf("expected exhausted placeholder, got %+v", view)
	}
}

func TestWebSocketWrongPassword(t *testing.T) {
	store := memory.NewStore()
	service := app.NewQuizService(store)
	if _, err := service.ResolveOrCreateUser(context.Background(), "alice", "hunter2"); err != nil {
		t.Fatalf("create user: %v", err)
	}

	conn := dialTestServer(t, service)
	defer conn.Close()

	event := map[string]any{
		"type": "get_question",
		"data": map[string]any{"user_name": "alice", "password": "nope"},
	}
	if err := conn.WriteJSON(event); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, raw := readNext(conn, t, "error")
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("unmarshal error payload: %v", err)
	}
	if !strings.Contains(payload.Message, "wrong password") {
		t.Fatalf("unexpected error message %q", payload.Message)
	}
}

func dialTestServer(t *testing.T, service *app.QuizService) *websocket.Conn {
	t.Helper()
	wsHandler := NewWSHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/quiz", wsHandler.ServeWS)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	u := "ws" + server.URL[len("http"):] + "/quiz"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func readNext(conn *websocket.Conn, t *testing.T, expect string) (string, json.RawMessage) {
	t.Helper()
	var msg struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected type %s, got %s (data %s)", expect, msg.Type, msg.Data)
	}
	return msg.Type, msg.Data
}
