package chat

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zhouzirui/maktab-chat/backend/internal/analysis/intent"
	"github.com/zhouzirui/maktab-chat/backend/internal/model/chat"
	"github.com/zhouzirui/maktab-chat/backend/internal/model/participant"
	"github.com/zhouzirui/maktab-chat/backend/internal/obs"
	"github.com/zhouzirui/maktab-chat/backend/internal/service/events"
)

// DefaultResponseDelay simulates backend latency before the auto-responder answers.
const DefaultResponseDelay = 1500 * time.Millisecond

// Responder produces the canned answer for an end-user message.
type Responder interface {
	Respond(ctx context.Context, text string) intent.Reply
}

// ResponderFunc adapts a plain function to Responder.
type ResponderFunc func(ctx context.Context, text string) intent.Reply

// Respond calls f.
func (f ResponderFunc) Respond(ctx context.Context, text string) intent.Reply {
	return f(ctx, text)
}

// Options tunes a Service. Zero values pick defaults.
type Options struct {
	ResponseDelay time.Duration
	PreviewLimit  int
	Catalog       intent.Catalog
	AfterFunc     AfterFunc
	Broker        *events.Broker
	Metrics       *obs.Metrics
	Logger        *slog.Logger
}

type profileRegistrar interface {
	Upsert(participant.Participant)
}

// ThreadMessage is a message prepared for rendering.
type ThreadMessage struct {
	chat.Message
	Lines        []string `json:"lines"`
	ReplyPreview string   `json:"replyPreview,omitempty"`
}

// Service owns the shared chat state: message logs, the inbox directory, the
// delayed auto-responder and the widget sessions driving them.
type Service struct {
	mu       sync.RWMutex
	sessions map[string]*Controller

	// writeMu serializes every log write with its directory update and with
	// timer claims, so a cancelled auto-response can never slip in between.
	writeMu sync.Mutex

	// followers maps a participant to the admin sessions focused on its thread.
	followMu  sync.Mutex
	followers map[string]map[string]struct{}

	store     *MessageStore
	directory *Directory
	resolver  *Resolver
	scheduler *Scheduler
	responder Responder
	profiles  participant.Store
	catalog   intent.Catalog
	delay     time.Duration
	broker    *events.Broker
	metrics   *obs.Metrics
	logger    *slog.Logger
}

// NewService wires the chat core around responder and the participant profiles.
func NewService(responder Responder, profiles participant.Store, opts Options) *Service {
	if opts.ResponseDelay <= 0 {
		opts.ResponseDelay = DefaultResponseDelay
	}
	if opts.PreviewLimit <= 0 {
		opts.PreviewLimit = DefaultPreviewLimit
	}
	if opts.Catalog.Replies == nil {
		opts.Catalog = intent.DefaultCatalog()
	}
	if opts.Broker == nil {
		opts.Broker = events.NewBroker(64)
	}
	if opts.Metrics == nil {
		opts.Metrics = obs.NewMetrics(nil)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if responder == nil {
		catalog := opts.Catalog
		responder = ResponderFunc(func(_ context.Context, text string) intent.Reply {
			return intent.Answer(text, catalog)
		})
	}

	store := NewMessageStore()
	return &Service{
		sessions:  make(map[string]*Controller),
		followers: make(map[string]map[string]struct{}),
		store:     store,
		directory: NewDirectory(profiles, opts.PreviewLimit),
		resolver:  NewResolver(store, opts.PreviewLimit),
		scheduler: NewScheduler(opts.AfterFunc),
		responder: responder,
		profiles:  profiles,
		catalog:   opts.Catalog,
		delay:     opts.ResponseDelay,
		broker:    opts.Broker,
		metrics:   opts.Metrics,
		logger:    opts.Logger.With("component", "chat"),
	}
}

// Store exposes the message store.
func (s *Service) Store() *MessageStore { return s.store }

// Directory exposes the conversation directory.
func (s *Service) Directory() *Directory { return s.directory }

// Broker exposes the push event broker.
func (s *Service) Broker() *events.Broker { return s.broker }

// Catalog returns the localized text catalog.
func (s *Service) Catalog() intent.Catalog { return s.catalog }

// CreateSession provisions a closed widget session in end-user mode for identity.
func (s *Service) CreateSession(_ context.Context, identity chat.Identity) (*Controller, error) {
	if identity.UserID == "" {
		return nil, ErrMissingIdentity
	}

	if reg, ok := s.profiles.(profileRegistrar); ok && identity.DisplayName != "" {
		reg.Upsert(participant.Participant{
			ID:   identity.UserID,
			Name: identity.DisplayName,
			Role: identity.Role,
		})
	}

	ctrl := newController(s, identity, chat.Session{
		ID:            uuid.NewString(),
		ParticipantID: identity.UserID,
		Role:          identity.Role,
		Mode:          chat.ModeEndUser,
		CreatedAt:     time.Now().UTC(),
	})

	s.mu.Lock()
	s.sessions[ctrl.ID()] = ctrl
	count := len(s.sessions)
	s.mu.Unlock()

	s.metrics.Sessions.Set(float64(count))
	s.logger.Info("session created", "session", ctrl.ID(), "participant", identity.UserID, "role", identity.Role)
	return ctrl, nil
}

// GetSession retrieves a widget session by identifier.
func (s *Service) GetSession(_ context.Context, sessionID string) (*Controller, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ctrl, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return ctrl, nil
}

// Append writes msg to the participant's log and updates the directory.
func (s *Service) Append(participantID string, msg chat.Message) chat.Message {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	stored := s.store.Append(participantID, msg)
	s.announce(stored, s.directory.UpsertOnInbound(participantID, stored))
	return stored
}

// SubmitEndUser appends an end-user message and schedules the delayed auto-response.
func (s *Service) SubmitEndUser(participantID string, msg chat.Message) chat.Message {
	msg.Sender = chat.SenderEndUser

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	stored := s.store.Append(participantID, msg)
	s.announce(stored, s.directory.UpsertOnInbound(participantID, stored))
	epoch, _ := s.store.Epoch(participantID)
	s.scheduleAutoResponse(participantID, epoch, stored.Text)
	s.publishTyping(participantID, true)
	return stored
}

// scheduleAutoResponse runs under writeMu so the captured epoch matches the log.
// The callback claims its task and re-checks the epoch before writing; failing
// either check means a clear or close got there first.
func (s *Service) scheduleAutoResponse(participantID string, epoch uint64, text string) {
	s.scheduler.Schedule(participantID, s.delay, func(taskID uint64) {
		reply := s.responder.Respond(context.Background(), text)

		s.writeMu.Lock()
		defer s.writeMu.Unlock()

		delivered := false
		if s.scheduler.Claim(participantID, taskID) {
			var stored chat.Message
			stored, delivered = s.store.AppendIfEpoch(participantID, epoch, chat.Message{
				Sender: chat.SenderAutoResponder,
				Text:   reply.Text,
			})
			if delivered {
				s.announce(stored, s.directory.UpsertOnInbound(participantID, stored))
			}
		}
		if !delivered {
			s.metrics.StaleAutoResponses.Inc()
			s.logger.Debug("discarded stale auto-response", "participant", participantID, "task", taskID)
			return
		}

		s.metrics.AutoResponses.WithLabelValues(string(reply.Category)).Inc()
		if s.scheduler.Pending(participantID) == 0 {
			s.publishTyping(participantID, false)
		}
	})
}

// CancelAutoResponses drops every pending auto-response for the participant.
func (s *Service) CancelAutoResponses(participantID string) int {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	cancelled := s.scheduler.Cancel(participantID)
	if cancelled > 0 {
		s.logger.Debug("cancelled pending auto-responses", "participant", participantID, "count", cancelled)
		s.publishTyping(participantID, false)
	}
	return cancelled
}

// ClearConversation resets the participant's log to the reset notice.
// Directory metadata is left untouched.
func (s *Service) ClearConversation(participantID string) chat.Message {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	cancelled := s.scheduler.Cancel(participantID)
	seed, epoch := s.store.Reset(participantID, chat.Message{
		Sender: chat.SenderAutoResponder,
		Text:   s.catalog.ResetNotice,
		Read:   true,
	})

	s.logger.Info("conversation cleared", "participant", participantID, "epoch", epoch, "cancelled", cancelled)
	s.broker.Publish(events.Event{
		Type:          events.TypeCleared,
		ParticipantID: participantID,
		Message:       &seed,
	}, s.threadTopics(participantID)...)
	s.publishTyping(participantID, false)
	return seed
}

// AutoResponsePending reports whether the participant is waiting on the responder.
func (s *Service) AutoResponsePending(participantID string) bool {
	return s.scheduler.Pending(participantID) > 0
}

// Thread renders the participant's conversation with reply previews resolved.
func (s *Service) Thread(participantID string) []ThreadMessage {
	messages := s.store.List(participantID)
	out := make([]ThreadMessage, 0, len(messages))
	for _, msg := range messages {
		rendered := ThreadMessage{Message: msg, Lines: msg.Lines()}
		if msg.IsReply() {
			rendered.ReplyPreview = s.resolver.Preview(participantID, msg.ReplyToID)
		}
		out = append(out, rendered)
	}
	return out
}

// viewConversation acknowledges the participant's thread for an admin viewer.
// With hold set the directory keeps it caught up until releaseConversation.
func (s *Service) viewConversation(participantID string, hold bool) bool {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var (
		conv chat.Conversation
		ok   bool
	)
	if hold {
		conv, ok = s.directory.Focus(participantID)
	} else {
		conv, ok = s.directory.Acknowledge(participantID)
	}
	if !ok {
		return false
	}
	s.store.MarkRead(participantID, chat.SenderEndUser)
	s.broker.Publish(events.Event{
		Type:          events.TypeConversation,
		ParticipantID: participantID,
		Conversation:  &conv,
	}, events.InboxTopic)
	return true
}

func (s *Service) releaseConversation(participantID string) {
	s.directory.Blur(participantID)
}

func (s *Service) announce(msg chat.Message, conv chat.Conversation) {
	s.metrics.MessagesAppended.WithLabelValues(string(msg.Sender)).Inc()
	s.broker.Publish(events.Event{
		Type:          events.TypeMessage,
		ParticipantID: msg.ParticipantID,
		Message:       &msg,
	}, s.threadTopics(msg.ParticipantID)...)
	s.broker.Publish(events.Event{
		Type:          events.TypeConversation,
		ParticipantID: conv.ParticipantID,
		Conversation:  &conv,
	}, events.InboxTopic)
}

func (s *Service) publishTyping(participantID string, typing bool) {
	s.broker.Publish(events.Event{
		Type:          events.TypeTyping,
		ParticipantID: participantID,
		Typing:        &typing,
	}, s.threadTopics(participantID)...)
}

// follow moves an admin session's thread subscription from one participant to another.
func (s *Service) follow(sessionID, from, to string) {
	s.followMu.Lock()
	defer s.followMu.Unlock()

	if from != "" {
		delete(s.followers[from], sessionID)
		if len(s.followers[from]) == 0 {
			delete(s.followers, from)
		}
	}
	if to != "" {
		if s.followers[to] == nil {
			s.followers[to] = make(map[string]struct{})
		}
		s.followers[to][sessionID] = struct{}{}
	}
}

// threadTopics is where events of a participant's thread go: its own
// conversation topic plus the session topic of every admin following it.
func (s *Service) threadTopics(participantID string) []string {
	s.followMu.Lock()
	defer s.followMu.Unlock()

	topics := make([]string, 0, 1+len(s.followers[participantID]))
	topics = append(topics, events.ConversationTopic(participantID))
	for sessionID := range s.followers[participantID] {
		topics = append(topics, events.SessionTopic(sessionID))
	}
	return topics
}

func (s *Service) recordSuppressed(err error) {
	s.metrics.SuppressedActions.WithLabelValues(Reason(err)).Inc()
}
