package http

import (
	"context"
	"encoding/json"
	"net/http"

	"vibe-check-service/internal/app"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// GalleryHandler streams the public gallery over a websocket.
type GalleryHandler struct {
	gallery  *app.GalleryService
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

func NewGalleryHandler(gallery *app.GalleryService, logger *zap.Logger) *GalleryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GalleryHandler{
		gallery: gallery,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Gallery clients only send focus and blur notices.
const maxGalleryMessage = 512

type focusPayload struct {
	ID string `json:"id"`
}

// ServeWS sends a snapshot, then live snapshots and rotate ticks until the
// client goes away. Inbound "focus" pauses rotation and "blur" resumes it.
func (h *GalleryHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("gallery ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxGalleryMessage)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	view, err := h.gallery.Open(ctx)
	if err != nil {
		h.logger.Warn("gallery subscribe failed", zap.Error(err))
		_ = conn.WriteJSON(app.GalleryEvent{Type: app.GalleryEventError, Message: "live gallery unavailable"})
		return
	}
	defer view.Close()

	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		defer cancel()
		for {
			var inbound inboundMessage
			if err := conn.ReadJSON(&inbound); err != nil {
				return
			}
			switch inbound.Type {
			case "focus":
				var p focusPayload
				if err := json.Unmarshal(inbound.Payload, &p); err != nil || p.ID == "" {
					continue
				}
				view.Focus(p.ID)
			case "blur":
				view.Blur()
			}
		}
	}()

	// Run is the only writer on conn.
	err = view.Run(ctx, func(ev app.GalleryEvent) error {
		return conn.WriteJSON(ev)
	})
	if err != nil && ctx.Err() == nil {
		h.logger.Debug("gallery stream ended", zap.Error(err))
	}
	cancel()
	_ = conn.Close()
	<-readerDone
}
