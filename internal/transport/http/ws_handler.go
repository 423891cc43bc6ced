package http

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"studymaster-service/internal/app"
)

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
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	Option string `json:"option"`
}

type replayPayload struct {
	Refetch bool `json:"refetch"`
}

type startedPayload struct {
	SessionID string `json:"sessionId"`
	SubjectID string `json:"subjectId"`
}

type answerResult struct {
	Option   string  `json:"option"`
	Correct  bool    `json:"correct"`
	Repeated bool    `json:"repeated"`
	Score    float64 `json:"score"`
}

type completedPayload struct {
	Scores []float64 `json:"scores"`
	Mean   float64   `json:"mean"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

func errorMessage(err error) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
}

// ServeWS starts a quiz session for the requested subject and streams its
// state over the websocket until the client disconnects.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	subjectID := r.URL.Query().Get("subjectId")
	if subjectID == "" {
		http.Error(w, "missing subjectId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	session, _, err := h.service.StartQuiz(r.Context(), subjectID)
	if err != nil {
		_ = conn.WriteJSON(errorMessage(err))
		return
	}
	sessionID := session.ID()
	defer h.service.Leave(r.Context(), sessionID)

	updates, cancel, err := h.service.Subscribe(r.Context(), sessionID)
	if err != nil {
		_ = conn.WriteJSON(errorMessage(err))
		return
	}
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// Only this goroutine writes to conn.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	send <- outboundMessage[any]{Type: "started", Payload: startedPayload{SessionID: sessionID, SubjectID: subjectID}}

	go func() {
		defer close(updatesDone)
		for {
			select {
			case snap, ok := <-updates:
				if !ok {
					return
				}
				msgs := []outboundMessage[any]{{Type: "state", Payload: snap}}
				if snap.State == app.StateCompleted {
					msgs = append(msgs, outboundMessage[any]{Type: "completed", Payload: completedPayload{Scores: snap.Scores, Mean: snap.Mean}})
				}
				for _, msg := range msgs {
					select {
					case send <- msg:
					case <-closeSignals:
						return
					}
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
		if msg, ok := h.handle(r, sessionID, inbound); ok {
			send <- msg
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

// handle applies one client command. State changes reach the client through
// the subscription, so only answer results and errors are returned here.
func (h *WSHandler) handle(r *http.Request, sessionID string, inbound inboundMessage) (outboundMessage[any], bool) {
	ctx := r.Context()
	switch inbound.Type {
	case "answer":
		var payload answerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}}, true
		}
		outcome, snap, err := h.service.SelectAnswer(ctx, sessionID, payload.Option)
		if err != nil {
			return errorMessage(err), true
		}
		result := answerResult{Option: payload.Option, Correct: outcome.Correct, Repeated: outcome.Repeated}
		if snap.Attempt != nil {
			result.Score = snap.Attempt.Score
		}
		return outboundMessage[any]{Type: "answerResult", Payload: result}, true
	case "forfeit":
		if _, err := h.service.Forfeit(ctx, sessionID); err != nil {
			return errorMessage(err), true
		}
	case "next":
		if _, err := h.service.Advance(ctx, sessionID); err != nil {
			return errorMessage(err), true
		}
	case "replay":
		var payload replayPayload
		if len(inbound.Payload) > 0 {
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid replay payload"}}, true
			}
		}
		if _, err := h.service.Replay(ctx, sessionID, payload.Refetch); err != nil {
			return errorMessage(err), true
		}
	default:
		return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}, true
	}
	return outboundMessage[any]{}, false
}
