// Package events fans widget updates out to push subscribers (SSE and websocket).
package events

import (
	"sync"
	"time"

	"github.com/zhouzirui/maktab-chat/backend/internal/model/chat"
)

// Event types pushed to widget clients.
const (
	TypeMessage      = "message"
	TypeTyping       = "typing"
	TypeConversation = "conversation"
	TypeCleared      = "cleared"
	TypeSession      = "session"
)

// InboxTopic receives every directory change, for admin inbox views.
const InboxTopic = "inbox"

// ConversationTopic is the topic carrying one participant's thread.
func ConversationTopic(participantID string) string {
	return "conversation:" + participantID
}

// SessionTopic is the topic for state changes of a single widget session.
func SessionTopic(sessionID string) string {
	return "session:" + sessionID
}

// Event is a single push notification.
type Event struct {
	Type          string             `json:"type"`
	ParticipantID string             `json:"participantId,omitempty"`
	Message       *chat.Message      `json:"message,omitempty"`
	Conversation  *chat.Conversation `json:"conversation,omitempty"`
	Session       *chat.Session      `json:"session,omitempty"`
	Typing        *bool              `json:"typing,omitempty"`
	Timestamp     time.Time          `json:"timestamp"`
}

type subscriber struct {
	ch     chan Event
	topics []string
}

// Broker delivers events to subscribers without ever blocking the publisher.
type Broker struct {
	mu      sync.RWMutex
	buffer  int
	nextID  uint64
	subs    map[uint64]*subscriber
	byTopic map[string]map[uint64]struct{}
	onDrop  func()
}

// NewBroker creates a broker whose subscriber channels hold buffer events.
func NewBroker(buffer int) *Broker {
	if buffer < 1 {
		buffer = 1
	}
	return &Broker{
		buffer:  buffer,
		subs:    make(map[uint64]*subscriber),
		byTopic: make(map[string]map[uint64]struct{}),
	}
}

// OnDrop registers a hook invoked whenever an event is dropped for a slow subscriber.
func (b *Broker) OnDrop(fn func()) {
	b.mu.Lock()
	b.onDrop = fn
	b.mu.Unlock()
}

// Subscribe listens on the given topics. The returned cancel func closes the channel.
func (b *Broker) Subscribe(topics ...string) (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	sub := &subscriber{ch: make(chan Event, b.buffer), topics: append([]string(nil), topics...)}
	b.subs[id] = sub
	for _, topic := range topics {
		if b.byTopic[topic] == nil {
			b.byTopic[topic] = make(map[uint64]struct{})
		}
		b.byTopic[topic][id] = struct{}{}
	}

	var once sync.Once
	cancel := func() {
		once.Do(func() { b.unsubscribe(id) })
	}
	return sub.ch, cancel
}

func (b *Broker) unsubscribe(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub, ok := b.subs[id]
	if !ok {
		return
	}
	delete(b.subs, id)
	for _, topic := range sub.topics {
		delete(b.byTopic[topic], id)
		if len(b.byTopic[topic]) == 0 {
			delete(b.byTopic, topic)
		}
	}
	close(sub.ch)
}

// Publish sends evt once to every subscriber of any of the topics.
// Subscribers with a full buffer miss the event.
func (b *Broker) Publish(evt Event, topics ...string) int {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	delivered := 0
	seen := make(map[uint64]struct{})
	for _, topic := range topics {
		for id := range b.byTopic[topic] {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}

			select {
			case b.subs[id].ch <- evt:
				delivered++
			default:
				if b.onDrop != nil {
					b.onDrop()
				}
			}
		}
	}
	return delivered
}

// SubscriberCount returns the number of live subscriptions.
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Pending counts events buffered but not yet received, over all subscribers.
func (b *Broker) Pending() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n := 0
	for _, sub := range b.subs {
		n += len(sub.ch)
	}
	return n
}
