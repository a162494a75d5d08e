package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"jsquiz-service/internal/app"
	"jsquiz-service/internal/domain"
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

type startPayload struct {
	Theme string `json:"theme"`
}

// answerPayload names the question it answers, as sent in the "question" message.
type answerPayload struct {
	Index   *int   `json:"index"`
	Indices *[]int `json:"indices"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type joinedPayload struct {
	Profile domain.Profile `json:"profile"`
	Themes  []string       `json:"themes"`
}

// ServeWS upgrades HTTP requests to websockets and wires them into the quiz use cases.
// One connection plays as one username; starting again on the same connection is a retake.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.URL.Query().Get("username"))
	if username == "" {
		http.Error(w, "missing username", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx := r.Context()
	profile, err := h.service.Login(ctx, username)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	themes, err := h.service.Themes(ctx)
	if err != nil {
		log.Printf("list themes: %v", err)
	}
	if themes == nil {
		themes = []string{}
	}

	send := make(chan outboundMessage[any], 32)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})

	// send is never closed: timer goroutines may still be flushing events when the reader exits.
	go func() {
		defer close(writerDone)
		for {
			select {
			case msg := <-send:
				if err := conn.WriteJSON(msg); err != nil {
					log.Printf("ws write error: %v", err)
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	presenter := &wsPresenter{send: send, closed: closeSignals}
	presenter.push("joined", joinedPayload{Profile: profile, Themes: themes})

	var sessionID string
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "start":
			var payload startPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.Theme == "" {
				presenter.error("invalid start payload")
				continue
			}
			session, err := h.service.StartQuiz(ctx, username, payload.Theme, presenter)
			if err != nil {
				var loadFailure *app.LoadFailure
				if errors.As(err, &loadFailure) {
					log.Printf("start quiz for %q: %v", username, err)
				} else {
					presenter.error(err.Error())
				}
				continue
			}
			sessionID = session.ID()
		case "answer", "next", "skip":
			var payload answerPayload
			if len(inbound.Payload) > 0 {
				if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
					presenter.error("invalid answer payload")
					continue
				}
			}
			if payload.Index == nil {
				presenter.error("missing question index")
				continue
			}
			if err := h.dispatchAnswer(ctx, username, inbound.Type, *payload.Index, payload.Indices); err != nil {
				presenter.error(err.Error())
			}
		default:
			presenter.error("unsupported message type")
		}
	}

	if sessionID != "" {
		h.service.Leave(ctx, username, sessionID)
	}
	close(closeSignals)
	<-writerDone
}

// dispatchAnswer applies an answer, next or skip message to the question it was sent for.
func (h *WSHandler) dispatchAnswer(ctx context.Context, username, kind string, index int, indices *[]int) error {
	switch kind {
	case "answer":
		if indices == nil {
			return errors.New("invalid answer payload")
		}
		return h.service.SelectAnswer(ctx, username, index, *indices)
	case "next":
		var selection []int
		if indices != nil {
			selection = *indices
		}
		return h.service.CommitAnswer(ctx, username, index, selection)
	default:
		return h.service.SkipQuestion(ctx, username, index)
	}
}
