package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/maktab-chat/backend/internal/middleware"
	"github.com/zhouzirui/maktab-chat/backend/internal/model/chat"
	chatService "github.com/zhouzirui/maktab-chat/backend/internal/service/chat"
	"github.com/zhouzirui/maktab-chat/backend/internal/service/events"
)

const (
	readTimeout  = 60 * time.Second
	pingInterval = 54 * time.Second
	writeTimeout = 10 * time.Second
)

// Handler serves the widget websocket: pushed events out, widget commands in.
type Handler struct {
	chatSvc  *chatService.Service
	limiter  *middleware.LimiterPool
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// New creates a websocket handler. A nil limiter leaves commands unthrottled.
func New(chatSvc *chatService.Service, limiter *middleware.LimiterPool, logger *slog.Logger) *Handler {
	if limiter == nil {
		limiter = middleware.NewLimiterPool(0, 1)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		chatSvc: chatSvc,
		limiter: limiter,
		logger:  logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes mounts the websocket route on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/{sessionID}", h.handleWebSocket)
}

type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type commandData struct {
	Text           string `json:"text"`
	Index          *int   `json:"index"`
	MessageID      string `json:"messageId"`
	ConversationID string `json:"conversationId"`
	ParticipantID  string `json:"participantId"`
}

var sessionCommands = map[string]func(*chatService.Controller) error{
	"open":         (*chatService.Controller).Open,
	"close":        (*chatService.Controller).Close,
	"minimize":     (*chatService.Controller).Minimize,
	"expand":       (*chatService.Controller).Expand,
	"mode":         (*chatService.Controller).ToggleMode,
	"cancel_reply": (*chatService.Controller).CancelReply,
}

type outgoingMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId,omitempty"`
	Data      any    `json:"data,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// Result acknowledges one inbound command.
type Result struct {
	Command string        `json:"command"`
	Applied bool          `json:"applied"`
	Reason  string        `json:"reason,omitempty"`
	Session chat.Session  `json:"session"`
	Message *chat.Message `json:"message,omitempty"`
}

// conn serializes writes; gorilla allows one concurrent writer.
type conn struct {
	mu sync.Mutex
	ws *websocket.Conn
}

func (c *conn) write(msg outgoingMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.ws.WriteJSON(msg)
}

func (c *conn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	ctrl, err := h.chatSvc.GetSession(r.Context(), sessionID)
	if err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "session", sessionID, "err", err)
		return
	}
	defer ws.Close()

	logger := h.logger.With("session", sessionID)
	logger.Debug("websocket connected")

	c := &conn{ws: ws}
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	feed, unsubscribe := h.chatSvc.Broker().Subscribe(ctrl.Topics()...)
	defer unsubscribe()

	ws.SetReadDeadline(time.Now().Add(readTimeout))
	ws.SetPongHandler(func(string) error {
		ws.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	if err := c.write(outgoingMessage{
		Type:      "connected",
		SessionID: sessionID,
		Data:      ctrl.Snapshot(),
		Timestamp: time.Now().Unix(),
	}); err != nil {
		return
	}

	go h.pushLoop(ctx, cancel, c, feed)

	for {
		var msg inboundMessage
		if err := ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("websocket read failed", "err", err)
			}
			return
		}
		ws.SetReadDeadline(time.Now().Add(readTimeout))

		out := h.handleMessage(ctrl, &msg)
		out.SessionID = sessionID
		if err := c.write(out); err != nil {
			return
		}
	}
}

// pushLoop forwards broker events and keeps the connection alive with pings.
func (h *Handler) pushLoop(ctx context.Context, cancel context.CancelFunc, c *conn, feed <-chan events.Event) {
	defer cancel()
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.ping(); err != nil {
				return
			}
		case evt, ok := <-feed:
			if !ok {
				return
			}
			if err := c.write(outgoingMessage{Type: "event", Data: evt, Timestamp: evt.Timestamp.Unix()}); err != nil {
				return
			}
		}
	}
}

func (h *Handler) handleMessage(ctrl *chatService.Controller, msg *inboundMessage) outgoingMessage {
	var data commandData
	if len(msg.Data) > 0 {
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			return errorMessage("invalid payload for " + msg.Type)
		}
	}

	var (
		sent *chat.Message
		err  error
	)
	if msg.Type == "quick" && data.Index == nil {
		return errorMessage("quick requires data.index")
	}

	switch msg.Type {
	case "text", "quick", "reply":
		if !h.limiter.Allow(ctrl.ID()) {
			return errorMessage("too many messages, slow down")
		}
		var m chat.Message
		switch msg.Type {
		case "text":
			m, err = ctrl.Send(data.Text)
		case "quick":
			m, err = ctrl.AskQuickQuestion(*data.Index)
		default:
			m, err = ctrl.SendReply(data.Text)
		}
		sent = &m
	case "begin_reply":
		err = ctrl.BeginReply(chat.MessageID(data.MessageID))
	case "focus":
		err = ctrl.Focus(data.ParticipantID)
	case "clear":
		var seed chat.Message
		seed, err = ctrl.ClearConversation(data.ConversationID)
		sent = &seed
	default:
		action, ok := sessionCommands[msg.Type]
		if !ok {
			return errorMessage("unsupported message type: " + msg.Type)
		}
		err = action(ctrl)
	}

	result := Result{Command: msg.Type, Applied: err == nil, Message: sent}
	if err != nil {
		result.Reason = chatService.Reason(err)
		result.Message = nil
	}
	result.Session = ctrl.Snapshot()
	return outgoingMessage{Type: "result", Data: result, Timestamp: time.Now().Unix()}
}

func errorMessage(message string) outgoingMessage {
	return outgoingMessage{
		Type:      "error",
		Data:      map[string]string{"message": message},
		Timestamp: time.Now().Unix(),
	}
}
