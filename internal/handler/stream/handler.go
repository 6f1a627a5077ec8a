package stream

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	chatService "github.com/zhouzirui/maktab-chat/backend/internal/service/chat"
	"github.com/zhouzirui/maktab-chat/backend/internal/service/events"
	"github.com/zhouzirui/maktab-chat/backend/pkg/utils"
)

const defaultKeepAlive = 15 * time.Second

// Handler pushes widget events to the browser over Server-Sent Events.
type Handler struct {
	chatSvc   *chatService.Service
	logger    *slog.Logger
	keepAlive time.Duration
}

// New creates a stream handler.
func New(chatSvc *chatService.Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{chatSvc: chatSvc, logger: logger, keepAlive: defaultKeepAlive}
}

// RegisterRoutes mounts the stream route on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/stream/{sessionID}", h.handleStream)
}

func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	ctrl, err := h.chatSvc.GetSession(r.Context(), sessionID)
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	feed, cancel := h.chatSvc.Broker().Subscribe(ctrl.Topics()...)
	defer cancel()

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	logger := h.logger.With("session", sessionID)
	logger.Debug("sse stream opened")
	defer logger.Debug("sse stream closed")

	snap := ctrl.Snapshot()
	if err := utils.SendSSEEvent(w, flusher, events.TypeSession, events.Event{
		Type:          events.TypeSession,
		ParticipantID: snap.ParticipantID,
		Session:       &snap,
		Timestamp:     time.Now().UTC(),
	}); err != nil {
		logger.Debug("sse write failed", "err", err)
		return
	}

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := utils.SendSSEComment(w, flusher, "keep-alive"); err != nil {
				return
			}
		case evt, ok := <-feed:
			if !ok {
				return
			}
			if err := utils.SendSSEEvent(w, flusher, evt.Type, evt); err != nil {
				logger.Debug("sse write failed", "err", err)
				return
			}
		}
	}
}
