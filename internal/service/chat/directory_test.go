package chat

import (
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/maktab-chat/backend/internal/model/chat"
	"github.com/zhouzirui/maktab-chat/backend/internal/model/participant"
)

func newTestDirectory() (*MessageStore, *Directory) {
	return NewMessageStore(), NewDirectory(participant.NewMemoryStore(participant.Seed()), DefaultPreviewLimit)
}

func record(store *MessageStore, dir *Directory, pid string, sender chat.Sender, text string) chat.Conversation {
	msg := store.Append(pid, chat.Message{Sender: sender, Text: text})
	return dir.UpsertOnInbound(pid, msg)
}

// expectUnreplied recomputes the flag from the log itself.
func expectUnreplied(log []chat.Message) bool {
	var lastEndUser, lastAdmin uint64
	for _, msg := range log {
		switch msg.Sender {
		case chat.SenderEndUser:
			lastEndUser = msg.Seq
		case chat.SenderAdmin:
			lastAdmin = msg.Seq
		}
	}
	return lastEndUser > lastAdmin
}

func TestUnrepliedFollowsLog(t *testing.T) {
	store, dir := newTestDirectory()
	rng := rand.New(rand.NewSource(42))
	pids := []string{"u1", "u2", "u3"}
	senders := []chat.Sender{chat.SenderEndUser, chat.SenderAutoResponder, chat.SenderAdmin}

	for i := 0; i < 500; i++ {
		pid := pids[rng.Intn(len(pids))]
		switch op := rng.Intn(5); op {
		case 0:
			dir.Focus(pid)
		case 1:
			dir.Blur(pid)
		default:
			record(store, dir, pid, senders[rng.Intn(len(senders))], "x")
		}

		for _, p := range pids {
			conv, ok := dir.Get(p)
			if !ok {
				continue
			}
			require.Equal(t, expectUnreplied(store.List(p)), conv.HasUnreplied, "step %d participant %s", i, p)
		}
	}
}

func TestUnreadCountsOnlyUnfocusedEndUserMessages(t *testing.T) {
	store, dir := newTestDirectory()

	conv := record(store, dir, "u1", chat.SenderEndUser, "Baholarim qanday?")
	assert.Equal(t, 1, conv.UnreadCount)
	assert.True(t, conv.HasUnreplied)

	conv = record(store, dir, "u1", chat.SenderAutoResponder, "bot")
	assert.Equal(t, 1, conv.UnreadCount)
	assert.True(t, conv.HasUnreplied)

	conv, ok := dir.Focus("u1")
	require.True(t, ok)
	assert.Zero(t, conv.UnreadCount)
	assert.True(t, conv.HasUnreplied, "viewing a thread is not answering it")

	conv = record(store, dir, "u1", chat.SenderEndUser, "yana savol")
	assert.Zero(t, conv.UnreadCount, "focused threads stay caught up")

	dir.Blur("u1")
	conv = record(store, dir, "u1", chat.SenderEndUser, "hali ham")
	assert.Equal(t, 1, conv.UnreadCount)

	conv = record(store, dir, "u1", chat.SenderAdmin, "javob")
	assert.Zero(t, conv.UnreadCount)
	assert.False(t, conv.HasUnreplied)
}

func TestAcknowledgeDoesNotHoldFocus(t *testing.T) {
	store, dir := newTestDirectory()
	record(store, dir, "u2", chat.SenderEndUser, "a")

	conv, ok := dir.Acknowledge("u2")
	require.True(t, ok)
	assert.Zero(t, conv.UnreadCount)

	conv = record(store, dir, "u2", chat.SenderEndUser, "b")
	assert.Equal(t, 1, conv.UnreadCount)

	_, ok = dir.Acknowledge("nobody")
	assert.False(t, ok)
	_, ok = dir.Focus("nobody")
	assert.False(t, ok)
}

func TestDirectoryProfilesAndPreview(t *testing.T) {
	store, dir := newTestDirectory()

	conv := record(store, dir, "u1", chat.SenderEndUser, "Assalomu alaykum, uy vazifalari haqida so'ramoqchi edim\nikkinchi qator")
	assert.Equal(t, "Aziza Karimova", conv.DisplayName)
	assert.Equal(t, "A", conv.AvatarGlyph)
	assert.True(t, strings.HasSuffix(conv.LastMessagePreview, "..."))
	assert.NotContains(t, conv.LastMessagePreview, "ikkinchi")
	assert.Equal(t, 1, conv.MessageCount)

	stranger := record(store, dir, "guest-7", chat.SenderEndUser, "hi")
	assert.Equal(t, "guest-7", stranger.DisplayName)
	assert.Equal(t, "G", stranger.AvatarGlyph)
}

func TestDirectoryListing(t *testing.T) {
	store, dir := newTestDirectory()
	base := time.Date(2024, 9, 2, 8, 0, 0, 0, time.UTC)

	for i, pid := range []string{"u3", "u1", "u2"} {
		msg := store.Append(pid, chat.Message{Sender: chat.SenderEndUser, Text: "x", CreatedAt: base.Add(time.Duration(i) * time.Minute)})
		dir.UpsertOnInbound(pid, msg)
	}
	msg := store.Append("u3", chat.Message{Sender: chat.SenderAdmin, Text: "javob", CreatedAt: base.Add(time.Hour)})
	dir.UpsertOnInbound("u3", msg)

	var order []string
	for _, conv := range dir.List() {
		order = append(order, conv.ParticipantID)
	}
	assert.Equal(t, []string{"u3", "u1", "u2"}, order)

	order = order[:0]
	for _, conv := range dir.ListByRecency() {
		order = append(order, conv.ParticipantID)
	}
	assert.Equal(t, []string{"u3", "u2", "u1"}, order)

	assert.Equal(t, 2, dir.UnrepliedCount())
	assert.Equal(t, 2, dir.TotalUnread())
}
