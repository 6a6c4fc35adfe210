package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"movie-trivia-service/internal/app"
)

type WSHandler struct {
	games    *app.GameService
	upgrader websocket.Upgrader
}

func NewWSHandler(games *app.GameService, allowedOrigin string) *WSHandler {
	return &WSHandler{
		games: games,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowedOrigin == "*" || origin == allowedOrigin
			},
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

// msgClosing is internal and never written to the socket.
const msgClosing = "closing"

type errorPayload struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// ServeWS upgrades the request and streams the updates of one session.
// Clients send "guess" and "pick" messages; results arrive as session
// updates and as a direct "result" reply.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid_input", Message: "missing sessionId"})
		return
	}

	updates, cancel, err := h.games.Subscribe(r.Context(), sessionID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer cancel()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("session", sessionID).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// single writer: gorilla connections allow one concurrent writer
	go func() {
		defer close(writerDone)
		for msg := range send {
			if msg.Type == msgClosing {
				deadline := time.Now().Add(time.Second)
				_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"), deadline)
				return
			}
			if err := conn.WriteJSON(msg); err != nil {
				log.Debug().Err(err).Str("session", sessionID).Msg("ws write error")
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					// session discarded: close after the pending updates are written
					select {
					case send <- outboundMessage[any]{Type: msgClosing}:
					case <-closeSignals:
					}
					return
				}
				select {
				case send <- outboundMessage[any]{Type: update.Type, Payload: update}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		msg := h.handleInbound(r, sessionID, inbound)
		select {
		case send <- msg:
		case <-updatesDone:
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

func (h *WSHandler) handleInbound(r *http.Request, sessionID string, inbound inboundMessage) outboundMessage[any] {
	var (
		tr  app.TransitionView
		err error
	)
	switch inbound.Type {
	case "guess":
		var payload guessRequest
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return wsError("invalid_input", "invalid guess payload")
		}
		tr, err = h.games.Guess(r.Context(), sessionID, payload.Round, payload.Text)
	case "pick":
		var payload pickRequest
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return wsError("invalid_input", "invalid pick payload")
		}
		tr, err = h.games.Pick(r.Context(), sessionID, payload.Round, payload.Choice)
	default:
		return wsError("invalid_input", "unsupported message type")
	}
	if err != nil {
		_, body := classify(err)
		return wsError(body.Error, body.Message)
	}
	return outboundMessage[any]{Type: "result", Payload: tr}
}

func wsError(code, message string) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Code: code, Message: message}}
}
