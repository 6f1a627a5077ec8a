package chat

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zhouzirui/maktab-chat/backend/internal/model/chat"
)

type conversationLog struct {
	messages []chat.Message
	index    map[chat.MessageID]int
	epoch    uint64
}

func newConversationLog() *conversationLog {
	return &conversationLog{
		messages: make([]chat.Message, 0, 16),
		index:    make(map[chat.MessageID]int),
	}
}

// MessageStore keeps an ordered, append-only message log per conversation.
// The only truncation is Reset, which bumps the conversation epoch.
type MessageStore struct {
	mu      sync.RWMutex
	logs    map[string]*conversationLog
	nextSeq uint64
	now     func() time.Time
}

// NewMessageStore creates an empty in-memory store.
func NewMessageStore() *MessageStore {
	return &MessageStore{
		logs: make(map[string]*conversationLog),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Append adds msg to the conversation, creating it if needed, and returns the stored message.
func (s *MessageStore) Append(conversationID string, msg chat.Message) chat.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendLocked(s.logFor(conversationID), conversationID, msg)
}

// AppendIfEpoch appends only while the conversation is still at epoch.
// Delayed writers use it so nothing lands in a log that was reset after they were scheduled.
func (s *MessageStore) AppendIfEpoch(conversationID string, epoch uint64, msg chat.Message) (chat.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	log, ok := s.logs[conversationID]
	if !ok || log.epoch != epoch {
		return chat.Message{}, false
	}
	return s.appendLocked(log, conversationID, msg), true
}

func (s *MessageStore) logFor(conversationID string) *conversationLog {
	log, ok := s.logs[conversationID]
	if !ok {
		log = newConversationLog()
		s.logs[conversationID] = log
	}
	return log
}

func (s *MessageStore) appendLocked(log *conversationLog, conversationID string, msg chat.Message) chat.Message {
	if _, taken := log.index[msg.ID]; msg.ID == "" || taken {
		msg.ID = newMessageID()
	}
	if msg.ReplyToID != "" {
		if _, ok := log.index[msg.ReplyToID]; !ok {
			msg.ReplyToID = ""
		}
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = s.now()
	}
	s.nextSeq++
	msg.Seq = s.nextSeq
	msg.ParticipantID = conversationID

	log.index[msg.ID] = len(log.messages)
	log.messages = append(log.messages, msg)
	return msg
}

// List returns a snapshot of the conversation in insertion order.
func (s *MessageStore) List(conversationID string) []chat.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	log, ok := s.logs[conversationID]
	if !ok {
		return []chat.Message{}
	}
	copied := make([]chat.Message, len(log.messages))
	copy(copied, log.messages)
	return copied
}

// Get looks a message up inside one conversation only.
func (s *MessageStore) Get(conversationID string, id chat.MessageID) (chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	log, ok := s.logs[conversationID]
	if !ok {
		return chat.Message{}, ErrMessageNotFound
	}
	idx, ok := log.index[id]
	if !ok {
		return chat.Message{}, ErrMessageNotFound
	}
	return log.messages[idx], nil
}

// Reset truncates the conversation to the single seed message and returns the new epoch.
func (s *MessageStore) Reset(conversationID string, seed chat.Message) (chat.Message, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := s.logFor(conversationID)
	log.epoch++
	log.messages = log.messages[:0:0]
	log.index = make(map[chat.MessageID]int)

	seed.ReplyToID = ""
	return s.appendLocked(log, conversationID, seed), log.epoch
}

// Epoch reports the reset generation of a conversation.
func (s *MessageStore) Epoch(conversationID string) (uint64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	log, ok := s.logs[conversationID]
	if !ok {
		return 0, false
	}
	return log.epoch, true
}

// Exists reports whether the conversation has been created.
func (s *MessageStore) Exists(conversationID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.logs[conversationID]
	return ok
}

// Len returns the number of messages in the conversation.
func (s *MessageStore) Len(conversationID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if log, ok := s.logs[conversationID]; ok {
		return len(log.messages)
	}
	return 0
}

// MarkRead acknowledges every unread message written by one of senders and returns how many changed.
func (s *MessageStore) MarkRead(conversationID string, senders ...chat.Sender) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	log, ok := s.logs[conversationID]
	if !ok {
		return 0
	}

	changed := 0
	for i := range log.messages {
		msg := &log.messages[i]
		if msg.Read || !containsSender(senders, msg.Sender) {
			continue
		}
		msg.Read = true
		changed++
	}
	return changed
}

// CountUnread counts unread messages written by one of senders.
func (s *MessageStore) CountUnread(conversationID string, senders ...chat.Sender) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	log, ok := s.logs[conversationID]
	if !ok {
		return 0
	}
	count := 0
	for _, msg := range log.messages {
		if !msg.Read && containsSender(senders, msg.Sender) {
			count++
		}
	}
	return count
}

func containsSender(senders []chat.Sender, s chat.Sender) bool {
	for _, candidate := range senders {
		if candidate == s {
			return true
		}
	}
	return false
}

func newMessageID() chat.MessageID {
	id, err := uuid.NewV7()
	if err != nil {
		return chat.MessageID(uuid.NewString())
	}
	return chat.MessageID(id.String())
}
