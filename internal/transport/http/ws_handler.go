package http

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"mcq-quiz-service/internal/app"
)

// WSHandler upgrades HTTP requests to websockets and wires each connection
// into its own quiz session.
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

type inboundMessage struct {
	Type        string `json:"type"`
	AnswerIndex *int   `json:"answerIndex"`
}

// ServeWS runs the connection lifecycle: one session per connection, a
// writer goroutine draining the session's outbound stream (the only writer
// on the conn), and a read loop dispatching participant messages.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	session, err := h.service.Connect(r.Context())
	if err != nil {
		_ = conn.WriteJSON(app.ErrorMessage{Type: "error", Message: err.Error()})
		return
	}
	defer h.service.Disconnect(session.ID())

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for msg := range session.Outbound() {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error for %s: %v", session.ID(), err)
				return
			}
		}
		// Outbound closed: the session finished its result hold. Closing
		// the conn unblocks the read loop below.
		_ = conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		var inbound inboundMessage
		if err := json.Unmarshal(data, &inbound); err != nil {
			session.Reject("Invalid message format. Please send valid JSON.")
			continue
		}
		switch inbound.Type {
		case "answer":
			if inbound.AnswerIndex == nil {
				session.Reject("answerIndex is required")
				continue
			}
			session.Select(*inbound.AnswerIndex)
		case "submit":
			if inbound.AnswerIndex == nil {
				session.Reject("answerIndex is required")
				continue
			}
			session.Submit(*inbound.AnswerIndex)
		case "ping":
			session.Ping()
		default:
			session.Reject("unsupported message type")
		}
	}

	// Client-side close: tear the session down so the writer drains out.
	h.service.Disconnect(session.ID())
	<-writerDone
}
