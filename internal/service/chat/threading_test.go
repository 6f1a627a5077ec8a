package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/maktab-chat/backend/internal/model/chat"
)

func TestResolveRoundTrip(t *testing.T) {
	store := NewMessageStore()
	resolver := NewResolver(store, DefaultPreviewLimit)

	texts := []string{
		"Salom",
		"Baholarim qanday?",
		"Uy vazifasi\nikki qatorli",
		"Dars jadvali qayerda? Ertangi darslar o'zgardimi yoki yo'qmi?",
	}
	for _, text := range texts {
		msg := store.Append("u1", chat.Message{Sender: chat.SenderEndUser, Text: text})
		assert.Equal(t, text, resolver.Resolve("u1", msg.ID))
		assert.Equal(t, Truncate(text, DefaultPreviewLimit), resolver.Preview("u1", msg.ID))
	}
}

func TestResolveMisses(t *testing.T) {
	store := NewMessageStore()
	resolver := NewResolver(store, 0)
	msg := store.Append("u1", chat.Message{Sender: chat.SenderEndUser, Text: "Salom"})

	assert.Empty(t, resolver.Resolve("u1", ""))
	assert.Empty(t, resolver.Resolve("u1", "missing"))
	assert.Empty(t, resolver.Resolve("u2", msg.ID))
	assert.Empty(t, resolver.Preview("u2", msg.ID))
}

func TestLink(t *testing.T) {
	store := NewMessageStore()
	resolver := NewResolver(store, DefaultPreviewLimit)
	target := store.Append("u1", chat.Message{Sender: chat.SenderEndUser, Text: "savol"})

	msg := chat.Message{Sender: chat.SenderAdmin, Text: "javob"}
	require.NoError(t, resolver.Link("u1", &msg, target.ID))
	assert.Equal(t, target.ID, msg.ReplyToID)

	other := chat.Message{Sender: chat.SenderAdmin, Text: "javob"}
	assert.ErrorIs(t, resolver.Link("u2", &other, target.ID), ErrMessageNotFound)
	assert.Empty(t, other.ReplyToID)
}

func TestTruncate(t *testing.T) {
	cases := []struct {
		name  string
		text  string
		limit int
		want  string
	}{
		{name: "short", text: "Salom", limit: 30, want: "Salom"},
		{name: "exact", text: "abcde", limit: 5, want: "abcde"},
		{name: "cut", text: "abcdefghij", limit: 5, want: "abcde..."},
		{name: "cut trims trailing space", text: "abcd efgh", limit: 5, want: "abcd..."},
		{name: "runes", text: "привет мир", limit: 6, want: "привет..."},
		{name: "no limit", text: "abcdefghij", limit: 0, want: "abcdefghij"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Truncate(tc.text, tc.limit))
		})
	}
}
