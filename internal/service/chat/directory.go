package chat

import (
	"sort"
	"sync"

	"github.com/zhouzirui/maktab-chat/backend/internal/model/chat"
	"github.com/zhouzirui/maktab-chat/backend/internal/model/participant"
)

type directoryEntry struct {
	conv           chat.Conversation
	lastInboundSeq uint64
	lastAdminSeq   uint64
	viewers        int
}

func (e *directoryEntry) snapshot() chat.Conversation {
	conv := e.conv
	conv.HasUnreplied = e.lastInboundSeq > e.lastAdminSeq
	return conv
}

// Directory tracks per-participant inbox metadata in first-contact order.
type Directory struct {
	mu           sync.RWMutex
	order        []string
	entries      map[string]*directoryEntry
	profiles     participant.Store
	previewLimit int
}

// NewDirectory creates an empty directory that takes display names from profiles.
func NewDirectory(profiles participant.Store, previewLimit int) *Directory {
	if previewLimit <= 0 {
		previewLimit = DefaultPreviewLimit
	}
	return &Directory{
		entries:      make(map[string]*directoryEntry),
		profiles:     profiles,
		previewLimit: previewLimit,
	}
}

func (d *Directory) entryFor(participantID string) *directoryEntry {
	if e, ok := d.entries[participantID]; ok {
		return e
	}

	conv := chat.Conversation{ParticipantID: participantID, DisplayName: participantID}
	if d.profiles != nil {
		if p, ok := d.profiles.FindByID(participantID); ok {
			conv.DisplayName = p.Name
			conv.AvatarGlyph = p.AvatarGlyph
		}
	}
	if conv.AvatarGlyph == "" {
		conv.AvatarGlyph = participant.Glyph(conv.DisplayName)
	}

	e := &directoryEntry{conv: conv}
	d.entries[participantID] = e
	d.order = append(d.order, participantID)
	return e
}

// UpsertOnInbound records msg against the participant's conversation.
// End-user messages raise the unread count unless the thread is focused;
// any admin message marks the thread caught up.
func (d *Directory) UpsertOnInbound(participantID string, msg chat.Message) chat.Conversation {
	d.mu.Lock()
	defer d.mu.Unlock()

	e := d.entryFor(participantID)
	switch msg.Sender {
	case chat.SenderEndUser:
		if e.viewers == 0 {
			e.conv.UnreadCount++
		}
		if msg.Seq > e.lastInboundSeq {
			e.lastInboundSeq = msg.Seq
		}
	case chat.SenderAdmin:
		e.conv.UnreadCount = 0
		if msg.Seq > e.lastAdminSeq {
			e.lastAdminSeq = msg.Seq
		}
	}

	if msg.CreatedAt.After(e.conv.LastActivity) {
		e.conv.LastActivity = msg.CreatedAt
	}
	e.conv.LastMessagePreview = Truncate(firstLine(msg.Text), d.previewLimit)
	e.conv.MessageCount++
	return e.snapshot()
}

// Focus acknowledges the thread as viewed: unread drops to zero and stays there
// until Blur is called.
func (d *Directory) Focus(participantID string) (chat.Conversation, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	e, ok := d.entries[participantID]
	if !ok {
		return chat.Conversation{}, false
	}
	e.viewers++
	e.conv.UnreadCount = 0
	return e.snapshot(), true
}

// Acknowledge resets the unread count without holding the thread focused.
func (d *Directory) Acknowledge(participantID string) (chat.Conversation, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	e, ok := d.entries[participantID]
	if !ok {
		return chat.Conversation{}, false
	}
	e.conv.UnreadCount = 0
	return e.snapshot(), true
}

// Blur releases a Focus.
func (d *Directory) Blur(participantID string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if e, ok := d.entries[participantID]; ok && e.viewers > 0 {
		e.viewers--
	}
}

// Get returns the metadata for one participant.
func (d *Directory) Get(participantID string) (chat.Conversation, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	e, ok := d.entries[participantID]
	if !ok {
		return chat.Conversation{}, false
	}
	return e.snapshot(), true
}

// List returns conversations in order of first contact.
func (d *Directory) List() []chat.Conversation {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]chat.Conversation, 0, len(d.order))
	for _, id := range d.order {
		out = append(out, d.entries[id].snapshot())
	}
	return out
}

// ListByRecency returns conversations with the most recent activity first.
func (d *Directory) ListByRecency() []chat.Conversation {
	out := d.List()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastActivity.After(out[j].LastActivity)
	})
	return out
}

// UnrepliedCount counts conversations still waiting for an admin answer.
func (d *Directory) UnrepliedCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	count := 0
	for _, e := range d.entries {
		if e.lastInboundSeq > e.lastAdminSeq {
			count++
		}
	}
	return count
}

// TotalUnread sums unread end-user messages over all conversations.
func (d *Directory) TotalUnread() int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	total := 0
	for _, e := range d.entries {
		total += e.conv.UnreadCount
	}
	return total
}
