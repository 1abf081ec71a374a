package http

import (
	"encoding/json"
	"html"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"trivia-quiz-service/internal/app"
	"trivia-quiz-service/internal/domain"
)

// SessionRegistry tracks live sessions for the stats endpoint.
type SessionRegistry interface {
	Register(session *app.Session)
	Remove(id string)
}

// WSHandler serves the quiz over a websocket: one connection owns one
// session. The client drives the session with start/select/reveal/newGame
// actions and receives a full session snapshot after each one, which maps
// directly onto the two screens of the game (start screen while no batch is
// loaded, questions screen otherwise).
type WSHandler struct {
	newSession func() *app.Session
	registry   SessionRegistry
	upgrader   websocket.Upgrader
	logger     *zap.Logger
}

func NewWSHandler(newSession func() *app.Session, registry SessionRegistry, logger *zap.Logger) *WSHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WSHandler{
		newSession: newSession,
		registry:   registry,
		logger:     logger,
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

// selectPayload addresses an answer by its slot in the displayed ordering.
// The handler resolves the slot back to the stored answer string, so clients
// never have to echo provider-escaped text.
type selectPayload struct {
	Question    int `json:"question"`
	AnswerIndex int `json:"answerIndex"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades the request and runs the session loop. All session
// mutation happens on this goroutine, so there is never a concurrent writer
// to either the session or the connection.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	session := h.newSession()
	defer session.Close()
	if h.registry != nil {
		h.registry.Register(session)
		defer h.registry.Remove(session.ID())
	}
	h.logger.Info("session opened", zap.String("session", session.ID()))
	defer h.logger.Info("session closed", zap.String("session", session.ID()))

	h.sendSnapshot(conn, session)

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			return
		}
		switch inbound.Type {
		case "start":
			if err := session.Start(r.Context()); err != nil {
				h.sendError(conn, err.Error())
				continue
			}
			h.sendSnapshot(conn, session)
		case "select":
			var payload selectPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				h.sendError(conn, "invalid select payload")
				continue
			}
			if answer, ok := answerAt(session.Snapshot(), payload.Question, payload.AnswerIndex); ok {
				session.SelectAnswer(payload.Question, answer)
			}
			h.sendSnapshot(conn, session)
		case "reveal":
			if err := session.Reveal(r.Context()); err != nil {
				h.sendError(conn, err.Error())
				continue
			}
			h.sendSnapshot(conn, session)
		case "newGame":
			if err := session.NewGame(r.Context()); err != nil {
				h.sendError(conn, err.Error())
				continue
			}
			h.sendSnapshot(conn, session)
		default:
			h.sendError(conn, "unsupported message type")
		}
	}
}

func (h *WSHandler) sendSnapshot(conn *websocket.Conn, session *app.Session) {
	snap := decodeEntities(session.Snapshot())
	if err := conn.WriteJSON(outboundMessage[app.Snapshot]{Type: "session", Payload: snap}); err != nil {
		h.logger.Warn("ws write error", zap.Error(err))
	}
}

func (h *WSHandler) sendError(conn *websocket.Conn, message string) {
	if err := conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: message}}); err != nil {
		h.logger.Warn("ws write error", zap.Error(err))
	}
}

// answerAt resolves a (question, slot) pair to the stored answer string.
// Out-of-range inputs report false, which the caller treats as a no-op,
// matching the select semantics.
func answerAt(snap app.Snapshot, question, answerIndex int) (string, bool) {
	if question < 0 || question >= len(snap.Questions) {
		return "", false
	}
	answers := snap.Questions[question].Answers
	if answerIndex < 0 || answerIndex >= len(answers) {
		return "", false
	}
	return answers[answerIndex], true
}

// decodeEntities unescapes HTML entities for display. It works on a copy of
// the snapshot's strings; the session keeps the provider's escaping so answer
// comparisons stay exact.
func decodeEntities(snap app.Snapshot) app.Snapshot {
	for qi := range snap.Questions {
		q := &snap.Questions[qi]
		q.Text = html.UnescapeString(q.Text)
		decoded := make([]string, len(q.Answers))
		for ai, answer := range q.Answers {
			decoded[ai] = html.UnescapeString(answer)
		}
		q.Answers = decoded
		if q.Selection.Chosen {
			q.Selection = domain.Selection{Answer: html.UnescapeString(q.Selection.Answer), Chosen: true}
		}
	}
	return snap
}
