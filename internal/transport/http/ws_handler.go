package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"vibe-check-service/internal/app"
	"vibe-check-service/internal/domain"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	sendBuffer = 16
	// Largest inbound frame. Intake fields are capped far below it.
	maxQuizMessage = 8192
)

// WSHandler serves the quiz session socket. One connection owns one session.
type WSHandler struct {
	service  *app.QuizService
	origin   string
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService, origin string, logger *zap.Logger) *WSHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WSHandler{
		service: service,
		origin:  origin,
		logger:  logger,
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

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type errorPayload struct {
	Kind    string `json:"kind"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

type publishedPayload struct {
	Submission domain.Submission `json:"submission"`
	Share      app.ShareLinks    `json:"share"`
}

func newErrorMessage(err error) outboundMessage {
	payload := errorPayload{Kind: app.ErrorKind(err), Message: err.Error()}
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		payload.Field = verr.Field
		payload.Message = verr.Message
	}
	if payload.Kind == "persistence" {
		payload.Message = domain.ErrPublishFailed.Error() + ", try again"
	}
	return outboundMessage{Type: "error", Payload: payload}
}

func badPayload(message string) outboundMessage {
	return outboundMessage{Type: "error", Payload: errorPayload{Kind: "validation", Message: message}}
}

// ServeWS upgrades HTTP requests to websockets and wires them into the quiz
// use cases. Every connection gets a fresh server-minted session; the ID is
// reported in the first state message.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	sessionID := uuid.NewString()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxQuizMessage)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	view, err := h.service.Open(ctx, sessionID)
	if err != nil {
		_ = conn.WriteJSON(newErrorMessage(err))
		return
	}
	defer h.service.Close(ctx, sessionID)
	log := h.logger.With(zap.String("session", sessionID))

	send := make(chan outboundMessage, sendBuffer)
	writerDone := make(chan struct{})

	// Single writer; after a write error it keeps draining so senders never block.
	go func() {
		defer close(writerDone)
		failed := false
		for msg := range send {
			if failed {
				continue
			}
			if err := conn.WriteJSON(msg); err != nil {
				log.Debug("ws write error", zap.Error(err))
				failed = true
			}
		}
	}()

	var publishes sync.WaitGroup
	send <- outboundMessage{Type: "state", Payload: view}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "intake":
			var intake domain.Intake
			if err := json.Unmarshal(inbound.Payload, &intake); err != nil {
				send <- badPayload("invalid intake payload")
				continue
			}
			h.reply(send, func() (domain.SessionView, error) {
				return h.service.SubmitIntake(ctx, sessionID, intake)
			})
		case "start":
			h.reply(send, func() (domain.SessionView, error) {
				return h.service.Start(ctx, sessionID)
			})
		case "answer":
			var answer domain.AnswerSubmission
			if err := json.Unmarshal(inbound.Payload, &answer); err != nil {
				send <- badPayload("invalid answer payload")
				continue
			}
			h.reply(send, func() (domain.SessionView, error) {
				return h.service.Answer(ctx, sessionID, answer)
			})
		case "restart":
			h.reply(send, func() (domain.SessionView, error) {
				return h.service.Restart(ctx, sessionID)
			})
		case "state":
			h.reply(send, func() (domain.SessionView, error) {
				return h.service.View(ctx, sessionID)
			})
		case "publish":
			var req domain.PublishRequest
			if len(inbound.Payload) > 0 {
				if err := json.Unmarshal(inbound.Payload, &req); err != nil {
					send <- badPayload("invalid publish payload")
					continue
				}
			}
			// Publishing runs beside the read loop so the socket stays responsive.
			publishes.Add(1)
			go func() {
				defer publishes.Done()
				h.publish(ctx, send, sessionID, req)
			}()
		default:
			send <- badPayload("unsupported message type")
		}
	}

	cancel()
	publishes.Wait()
	close(send)
	<-writerDone
}

func (h *WSHandler) reply(send chan<- outboundMessage, op func() (domain.SessionView, error)) {
	view, err := op()
	if err != nil {
		send <- newErrorMessage(err)
		if errors.Is(err, domain.ErrSessionNotFound) {
			return
		}
	}
	send <- outboundMessage{Type: "state", Payload: view}
}

func (h *WSHandler) publish(ctx context.Context, send chan<- outboundMessage, sessionID string, req domain.PublishRequest) {
	submission, err := h.service.Publish(ctx, sessionID, req)
	if err != nil {
		send <- newErrorMessage(err)
		return
	}
	view, err := h.service.View(ctx, sessionID)
	if err != nil {
		send <- newErrorMessage(err)
		return
	}
	send <- outboundMessage{Type: "published", Payload: publishedPayload{
		Submission: submission,
		Share:      app.BuildShareLinks(h.origin, view.ResultTitle),
	}}
	send <- outboundMessage{Type: "state", Payload: view}
}
