package http

import (
	"context"
	"encoding/json"
	"net/http"

	"vibe-check-service/internal/app"
	"vibe-check-service/internal/domain"

	"go.uber.org/zap"
)

// LiveSessions counts quiz sessions currently open.
type LiveSessions interface {
	Live(ctx context.Context) (int, error)
}

// APIHandler serves the read-only JSON endpoints.
type APIHandler struct {
	quiz    *app.QuizService
	gallery *app.GalleryService
	counter *app.Counter
	live    LiveSessions
	origin  string
	logger  *zap.Logger
}

func NewAPIHandler(quiz *app.QuizService, gallery *app.GalleryService, counter *app.Counter, live LiveSessions, origin string, logger *zap.Logger) *APIHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &APIHandler{quiz: quiz, gallery: gallery, counter: counter, live: live, origin: origin, logger: logger}
}

type quizResponse struct {
	ID        string            `json:"id"`
	Questions []domain.Question `json:"questions"`
	Vibes     []domain.Vibe     `json:"vibes"`
}

type statsResponse struct {
	Visits  int64 `json:"visits"`
	Playing *int  `json:"playing,omitempty"`
}

type galleryResponse struct {
	Items []domain.Submission `json:"items"`
}

type shareResponse struct {
	Title string         `json:"title"`
	Vibe  domain.Vibe    `json:"vibe"`
	Links app.ShareLinks `json:"links"`
}

func (h *APIHandler) Health(w http.ResponseWriter, _ *http.Request) {
	w.Write([]byte("ok"))
}

func (h *APIHandler) Quiz(w http.ResponseWriter, r *http.Request) {
	quiz, err := h.quiz.Quiz(r.Context())
	if err != nil {
		h.logger.Error("load quiz", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "quiz unavailable")
		return
	}
	writeJSON(w, http.StatusOK, quizResponse{ID: quiz.ID, Questions: quiz.Questions, Vibes: quiz.Vibes})
}

// Stats reports the visit count and, when it can be read, how many quizzes
// are being played right now.
func (h *APIHandler) Stats(w http.ResponseWriter, r *http.Request) {
	resp := statsResponse{Visits: h.counter.Value()}
	if h.live != nil {
		if n, err := h.live.Live(r.Context()); err == nil {
			resp.Playing = &n
		} else {
			h.logger.Debug("live session count failed", zap.Error(err))
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *APIHandler) Gallery(w http.ResponseWriter, r *http.Request) {
	items, err := h.gallery.Recent(r.Context())
	if err != nil {
		h.logger.Warn("gallery load failed", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "couldn't load the gallery")
		return
	}
	writeJSON(w, http.StatusOK, galleryResponse{Items: items})
}

func (h *APIHandler) Share(w http.ResponseWriter, r *http.Request) {
	quiz, err := h.quiz.Quiz(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "quiz unavailable")
		return
	}
	vibe, ok := quiz.FindVibe(r.URL.Query().Get("vibe"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown vibe")
		return
	}
	title := app.ResultTitle(vibe, domain.Gender(r.URL.Query().Get("gender")))
	writeJSON(w, http.StatusOK, shareResponse{
		Title: title,
		Vibe:  vibe,
		Links: app.BuildShareLinks(h.origin, title),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
