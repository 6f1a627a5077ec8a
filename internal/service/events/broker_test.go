package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishDeliversOncePerSubscriber(t *testing.T) {
	b := NewBroker(4)
	ch, cancel := b.Subscribe(InboxTopic, ConversationTopic("u1"))
	defer cancel()

	n := b.Publish(Event{Type: TypeMessage, ParticipantID: "u1"}, ConversationTopic("u1"), InboxTopic)
	require.Equal(t, 1, n)

	evt := <-ch
	assert.Equal(t, TypeMessage, evt.Type)
	assert.False(t, evt.Timestamp.IsZero())
	assert.Len(t, ch, 0)
}

func TestPublishIgnoresOtherTopics(t *testing.T) {
	b := NewBroker(4)
	ch, cancel := b.Subscribe(ConversationTopic("u2"))
	defer cancel()

	assert.Equal(t, 0, b.Publish(Event{Type: TypeMessage}, ConversationTopic("u1")))
	assert.Len(t, ch, 0)
}

func TestPublishDropsWhenBufferFull(t *testing.T) {
	b := NewBroker(1)
	drops := 0
	b.OnDrop(func() { drops++ })

	_, cancel := b.Subscribe(InboxTopic)
	defer cancel()

	b.Publish(Event{Type: TypeConversation}, InboxTopic)
	b.Publish(Event{Type: TypeConversation}, InboxTopic)

	assert.Equal(t, 1, drops)
}

func TestCancelClosesChannel(t *testing.T) {
	b := NewBroker(1)
	ch, cancel := b.Subscribe(SessionTopic("s1"))
	require.Equal(t, 1, b.SubscriberCount())

	cancel()
	cancel()

	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, b.SubscriberCount())
	assert.Equal(t, 0, b.Publish(Event{Type: TypeSession}, SessionTopic("s1")))
}

func TestPendingCountsBufferedEvents(t *testing.T) {
	b := NewBroker(4)
	ch, cancel := b.Subscribe(InboxTopic)
	defer cancel()

	b.Publish(Event{Type: TypeConversation}, InboxTopic)
	b.Publish(Event{Type: TypeConversation}, InboxTopic)
	assert.Equal(t, 2, b.Pending())

	<-ch
	assert.Equal(t, 1, b.Pending())
}
