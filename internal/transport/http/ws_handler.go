package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"bugfeature-quiz-service/internal/app"
	"bugfeature-quiz-service/internal/domain"
)

// WSHandler upgrades HTTP requests to websockets and maps the quiz event
// protocol onto the service use cases. Credentials ride inside each event's
// data payload; the handler resolves (or creates) the user per message.
type WSHandler struct {
	service  *app.QuizService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type credentials struct {
	UserName string `json:"user_name"`
	Password string `json:"password"`
}

type newQuestionPayload struct {
	credentials
	Question    string `json:"question"`
	Answer      string `json:"correct_answer"`
	Title       string `json:"new_question_title"`
	Explanation string `json:"new_question_explanation"`
	Difficulty  int    `json:"difficulty"`
}

type answerPayload struct {
	credentials
	QuestionIdent string `json:"question_uuid"`
	UserAnswer    string `json:"user_answer"`
}

type votePayload struct {
	credentials
	QuestionIdent string `json:"question_uuid"`
}

type questionView struct {
	Text  string `json:"txt"`
	Title string `json:"title"`
	Votes int    `json:"votes"`
	Ident string `json:"ident"`
}

type voteView struct {
	Ident string `json:"ident"`
	Votes int    `json:"votes"`
}

type outboundEvent struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// exhaustedQuestion is what the client renders when no unseen question
// remains; the frontend keys off the INVALID ident.
var exhaustedQuestion = questionView{
	Title: "You have answered all questions, add more to the database!",
	Ident: "INVALID",
}

// ServeWS handles one websocket session, processing events sequentially.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx := r.Context()
	for {
		var event inboundEvent
		if err := conn.ReadJSON(&event); err != nil {
			return
		}

		switch event.Type {
		case "insert_new_question":
			h.handleInsertQuestion(ctx, conn, event.Data)
		case "get_question":
			h.handleGetQuestion(ctx, conn, event.Data)
		case "answered_question":
			h.handleAnsweredQuestion(ctx, conn, event.Data)
		case "vote_question":
			h.handleVoteQuestion(ctx, conn, event.Data)
		default:
			log.Printf("unknown event type %q", event.Type)
			writeEvent(conn, "error", errorPayload{Message: "unsupported event type"})
		}
	}
}

func (h *WSHandler) handleInsertQuestion(ctx context.Context, conn *websocket.Conn, data json.RawMessage) {
	var payload newQuestionPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		writeEvent(conn, "error", errorPayload{Message: "invalid question payload"})
		return
	}
	user, ok := h.resolveUser(ctx, conn, payload.credentials)
	if !ok {
		return
	}

	q, err := h.service.SubmitQuestion(ctx, user.Ident, domain.QuestionSubmission{
		Title:       payload.Title,
		Text:        payload.Question,
		Answer:      payload.Answer,
		Explanation: payload.Explanation,
		Difficulty:  payload.Difficulty,
	})
	if err != nil {
		writeServiceError(conn, err)
		return
	}
	writeEvent(conn, "return_new_question", "Added `"+q.Title+"` to the database with UUID "+q.Ident+".")
}

func (h *WSHandler) handleGetQuestion(ctx context.Context, conn *websocket.Conn, data json.RawMessage) {
	var payload credentials
	if err := json.Unmarshal(data, &payload); err != nil {
		writeEvent(conn, "error", errorPayload{Message: "invalid payload"})
		return
	}
	user, ok := h.resolveUser(ctx, conn, payload)
	if !ok {
		return
	}

	view := exhaustedQuestion
	q, err := h.service.NextQuestionFor(ctx, user.Ident)
	switch {
	case err == nil:
		view = questionView{Text: q.Text, Title: q.Title, Votes: q.Votes, Ident: q.Ident}
	case errors.Is(err, domain.ErrNoUnseenQuestions):
		// expected terminal state, serve the placeholder
	default:
		writeServiceError(conn, err)
		return
	}
	writeEvent(conn, "return_question", view)
	h.pushUserStats(ctx, conn, user.Ident)
}

func (h *WSHandler) handleAnsweredQuestion(ctx context.Context, conn *websocket.Conn, data json.RawMessage) {
	var payload answerPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		writeEvent(conn, "error", errorPayload{Message: "invalid answer payload"})
		return
	}
	user, ok := h.resolveUser(ctx, conn, payload.credentials)
	if !ok {
		return
	}

	feedback, _, err := h.service.GradeAnswer(ctx, user.Ident, payload.QuestionIdent, payload.UserAnswer)
	if err != nil {
		writeServiceError(conn, err)
		return
	}
	writeEvent(conn, "answered_question_feedback", feedback)
	h.pushUserStats(ctx, conn, user.Ident)
}

func (h *WSHandler) handleVoteQuestion(ctx context.Context, conn *websocket.Conn, data json.RawMessage) {
	var payload votePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		writeEvent(conn, "error", errorPayload{Message: "invalid vote payload"})
		return
	}
	user, ok := h.resolveUser(ctx, conn, payload.credentials)
	if !ok {
		return
	}

	applied, votes, err := h.service.CastUpvote(ctx, user.Ident, payload.QuestionIdent)
	if err != nil {
		writeServiceError(conn, err)
		return
	}
	if !applied {
		log.Printf("user %s already voted on %s", user.Ident, payload.QuestionIdent)
	}
	writeEvent(conn, "vote_feedback", voteView{Ident: payload.QuestionIdent, Votes: votes})
}

func (h *WSHandler) resolveUser(ctx context.Context, conn *websocket.Conn, creds credentials) (domain.User, bool) {
	if creds.UserName == "" {
		writeEvent(conn, "error", errorPayload{Message: "missing user_name"})
		return domain.User{}, false
	}
	user, err := h.service.ResolveOrCreateUser(ctx, creds.UserName, creds.Password)
	if err != nil {
		writeServiceError(conn, err)
		return domain.User{}, false
	}
	return user, true
}

func (h *WSHandler) pushUserStats(ctx context.Context, conn *websocket.Conn, userIdent string) {
	stats, err := h.service.UserStats(ctx, userIdent)
	if err != nil {
		log.Printf("user stats for %s failed: %v", userIdent, err)
		return
	}
	writeEvent(conn, "return_user_info", stats)
}

// writeServiceError translates validation-shaped failures into user-facing
// messages; anything else is logged and reported as a generic failure.
func writeServiceError(conn *websocket.Conn, err error) {
	switch {
	case errors.Is(err, domain.ErrWrongPassword),
		errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrQuestionNotFound):
		writeEvent(conn, "error", errorPayload{Message: err.Error()})
	default:
		log.Printf("request failed: %v", err)
		writeEvent(conn, "error", errorPayload{Message: "internal error"})
	}
}

func writeEvent(conn *websocket.Conn, eventType string, data any) {
	if err := conn.WriteJSON(outboundEvent{Type: eventType, Data: data}); err != nil {
		log.Printf("ws write error: %v", err)
	}
}
