package chat

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/maktab-chat/backend/internal/middleware"
	"github.com/zhouzirui/maktab-chat/backend/internal/model/chat"
	chatService "github.com/zhouzirui/maktab-chat/backend/internal/service/chat"
	"github.com/zhouzirui/maktab-chat/backend/pkg/utils"
)

// Identity headers set by the host application's session provider.
const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"
	HeaderUserName = "X-User-Name"
)

type ctxKey struct{}

// Handler exposes widget actions over REST.
type Handler struct {
	chatSvc *chatService.Service
	limiter *middleware.LimiterPool
	logger  *slog.Logger
}

// New creates the chat handler. A nil limiter leaves sends unthrottled.
func New(chatSvc *chatService.Service, limiter *middleware.LimiterPool, logger *slog.Logger) *Handler {
	if limiter == nil {
		limiter = middleware.NewLimiterPool(0, 1)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{chatSvc: chatSvc, limiter: limiter, logger: logger}
}

// RegisterRoutes mounts the session routes on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/quick-questions", h.handleQuickQuestions)
	r.Post("/sessions", h.handleCreateSession)

	r.Route("/sessions/{sessionID}", func(r chi.Router) {
		r.Use(h.loadSession)

		throttled := r.With(middleware.RateLimit(h.limiter, sessionKey, h.logger))

		r.Get("/", h.handleSnapshot)
		r.Post("/open", h.action((*chatService.Controller).Open))
		r.Post("/close", h.action((*chatService.Controller).Close))
		r.Post("/minimize", h.action((*chatService.Controller).Minimize))
		r.Post("/expand", h.action((*chatService.Controller).Expand))
		r.Post("/mode", h.action((*chatService.Controller).ToggleMode))

		r.Get("/messages", h.handleThread)
		throttled.Post("/messages", h.handleSend)
		throttled.Post("/quick/{index}", h.handleQuickQuestion)

		r.Post("/reply", h.handleBeginReply)
		throttled.Post("/reply/send", h.handleSendReply)
		r.Delete("/reply", h.action((*chatService.Controller).CancelReply))

		r.Post("/focus/{participantID}", h.handleFocus)
		r.Delete("/conversation", h.handleClear)

		r.Get("/conversations", h.handleInbox)
		r.Get("/badge", h.handleBadge)
	})
}

// ActionResult is the body of every widget action. Applied is false when the
// action was suppressed by a guard; Reason then names the guard.
type ActionResult struct {
	Applied bool          `json:"applied"`
	Reason  string        `json:"reason,omitempty"`
	Session chat.Session  `json:"session"`
	Message *chat.Message `json:"message,omitempty"`
}

// ConversationView is an inbox row.
type ConversationView struct {
	chat.Conversation
	LastActivityLabel string `json:"lastActivityLabel"`
}

// InboxResponse lists the admin conversations.
type InboxResponse struct {
	Conversations []ConversationView `json:"conversations"`
	Unreplied     int                `json:"unreplied"`
	TotalUnread   int                `json:"totalUnread"`
}

// ThreadResponse is the rendered active conversation.
type ThreadResponse struct {
	Messages []chatService.ThreadMessage `json:"messages"`
	Typing   bool                        `json:"typing"`
}

// IdentityFromRequest reads the viewer identity from the host headers.
func IdentityFromRequest(r *http.Request) chat.Identity {
	return chat.Identity{
		UserID:      strings.TrimSpace(r.Header.Get(HeaderUserID)),
		Role:        strings.ToLower(strings.TrimSpace(r.Header.Get(HeaderUserRole))),
		DisplayName: strings.TrimSpace(r.Header.Get(HeaderUserName)),
	}
}

func sessionKey(r *http.Request) string {
	return chi.URLParam(r, "sessionID")
}

func (h *Handler) loadSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctrl, err := h.chatSvc.GetSession(r.Context(), chi.URLParam(r, "sessionID"))
		if err != nil {
			utils.RespondError(w, http.StatusNotFound, "session not found")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, ctrl)))
	})
}

func controllerFrom(r *http.Request) *chatService.Controller {
	ctrl, _ := r.Context().Value(ctxKey{}).(*chatService.Controller)
	return ctrl
}

func (h *Handler) handleQuickQuestions(w http.ResponseWriter, _ *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string][]string{
		"questions": h.chatSvc.Catalog().QuickQuestions,
	})
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	ctrl, err := h.chatSvc.CreateSession(r.Context(), IdentityFromRequest(r))
	if err != nil {
		if chatService.IsValidation(err) {
			utils.RespondError(w, http.StatusBadRequest, HeaderUserID+" header is required")
			return
		}
		h.logger.Error("create session failed", "err", err)
		utils.RespondError(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	utils.RespondJSON(w, http.StatusCreated, ctrl.Snapshot())
}

func (h *Handler) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, controllerFrom(r).Snapshot())
}

func (h *Handler) action(fn func(*chatService.Controller) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctrl := controllerFrom(r)
		h.respondAction(w, ctrl, nil, fn(ctrl))
	}
}

func (h *Handler) respondAction(w http.ResponseWriter, ctrl *chatService.Controller, msg *chat.Message, err error) {
	result := ActionResult{Applied: err == nil}
	if err != nil {
		if !errors.Is(err, chatService.ErrValidation) && !errors.Is(err, chatService.ErrNotFound) {
			h.logger.Error("widget action failed", "session", ctrl.ID(), "err", err)
			utils.RespondError(w, http.StatusInternalServerError, "action failed")
			return
		}
		result.Reason = chatService.Reason(err)
		msg = nil
	}
	result.Session = ctrl.Snapshot()
	result.Message = msg
	utils.RespondJSON(w, http.StatusOK, result)
}

type textPayload struct {
	Text string `json:"text"`
}

func (h *Handler) decodeText(w http.ResponseWriter, r *http.Request) (string, bool) {
	var payload textPayload
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return "", false
	}
	return payload.Text, true
}

func (h *Handler) handleSend(w http.ResponseWriter, r *http.Request) {
	text, ok := h.decodeText(w, r)
	if !ok {
		return
	}
	ctrl := controllerFrom(r)
	msg, err := ctrl.Send(text)
	h.respondAction(w, ctrl, &msg, err)
}

func (h *Handler) handleSendReply(w http.ResponseWriter, r *http.Request) {
	text, ok := h.decodeText(w, r)
	if !ok {
		return
	}
	ctrl := controllerFrom(r)
	msg, err := ctrl.SendReply(text)
	h.respondAction(w, ctrl, &msg, err)
}

func (h *Handler) handleQuickQuestion(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "index must be a number")
		return
	}
	ctrl := controllerFrom(r)
	msg, err := ctrl.AskQuickQuestion(index)
	h.respondAction(w, ctrl, &msg, err)
}

func (h *Handler) handleBeginReply(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		MessageID string `json:"messageId"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	ctrl := controllerFrom(r)
	h.respondAction(w, ctrl, nil, ctrl.BeginReply(chat.MessageID(payload.MessageID)))
}

func (h *Handler) handleFocus(w http.ResponseWriter, r *http.Request) {
	ctrl := controllerFrom(r)
	h.respondAction(w, ctrl, nil, ctrl.Focus(chi.URLParam(r, "participantID")))
}

func (h *Handler) handleClear(w http.ResponseWriter, r *http.Request) {
	ctrl := controllerFrom(r)
	seed, err := ctrl.ClearConversation(r.URL.Query().Get("id"))
	h.respondAction(w, ctrl, &seed, err)
}

func (h *Handler) handleThread(w http.ResponseWriter, r *http.Request) {
	ctrl := controllerFrom(r)
	messages, err := ctrl.Thread()
	if err != nil {
		// admin without a focused participant: nothing to render yet
		messages = []chatService.ThreadMessage{}
	}
	utils.RespondJSON(w, http.StatusOK, ThreadResponse{
		Messages: messages,
		Typing:   ctrl.Snapshot().Typing,
	})
}

func (h *Handler) handleInbox(w http.ResponseWriter, r *http.Request) {
	ctrl := controllerFrom(r)
	conversations, err := ctrl.Inbox(r.URL.Query().Get("sort") == "recent")
	if err != nil {
		h.respondAction(w, ctrl, nil, err)
		return
	}

	resp := InboxResponse{
		Conversations: make([]ConversationView, 0, len(conversations)),
		Unreplied:     ctrl.UnrepliedCount(),
	}
	for _, conv := range conversations {
		resp.TotalUnread += conv.UnreadCount
		resp.Conversations = append(resp.Conversations, ConversationView{
			Conversation:      conv,
			LastActivityLabel: humanize.Time(conv.LastActivity),
		})
	}
	utils.RespondJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleBadge(w http.ResponseWriter, r *http.Request) {
	ctrl := controllerFrom(r)
	utils.RespondJSON(w, http.StatusOK, map[string]int{
		"unread":    ctrl.Badge(),
		"unreplied": ctrl.UnrepliedCount(),
	})
}
