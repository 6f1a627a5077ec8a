package chat

import (
	"strings"
	"unicode/utf8"

	"github.com/zhouzirui/maktab-chat/backend/internal/model/chat"
)

// DefaultPreviewLimit is the quoted-preview length used by the inbox.
const DefaultPreviewLimit = 30

const ellipsis = "..."

// Resolver turns reply references into quoted text.
type Resolver struct {
	store *MessageStore
	limit int
}

// NewResolver creates a resolver backed by store.
func NewResolver(store *MessageStore, limit int) *Resolver {
	if limit <= 0 {
		limit = DefaultPreviewLimit
	}
	return &Resolver{store: store, limit: limit}
}

// Resolve returns the full text of the referenced message, or "" if it cannot be found.
func (r *Resolver) Resolve(conversationID string, replyToID chat.MessageID) string {
	if replyToID == "" {
		return ""
	}
	msg, err := r.store.Get(conversationID, replyToID)
	if err != nil {
		return ""
	}
	return msg.Text
}

// Preview is Resolve truncated to the preview limit.
func (r *Resolver) Preview(conversationID string, replyToID chat.MessageID) string {
	return Truncate(r.Resolve(conversationID, replyToID), r.limit)
}

// Link points msg at target when target exists in the same conversation.
func (r *Resolver) Link(conversationID string, msg *chat.Message, target chat.MessageID) error {
	if _, err := r.store.Get(conversationID, target); err != nil {
		return err
	}
	msg.ReplyToID = target
	return nil
}

// Truncate shortens text to limit runes, appending an ellipsis when it cuts.
func Truncate(text string, limit int) string {
	text = strings.TrimSpace(text)
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	return strings.TrimSpace(string(runes[:limit])) + ellipsis
}

func firstLine(text string) string {
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		return text[:i]
	}
	return text
}
