package chat

import (
	"strings"
	"time"
)

// Sender identifies who authored a message.
type Sender string

const (
	SenderEndUser       Sender = "end_user"
	SenderAutoResponder Sender = "auto_responder"
	SenderAdmin         Sender = "admin"
)

// MessageID is unique within a conversation and time-ordered.
type MessageID string

// Message is a single entry of a conversation log.
type Message struct {
	ID            MessageID `json:"id"`
	ParticipantID string    `json:"participantId,omitempty"`
	Seq           uint64    `json:"seq"`
	Text          string    `json:"text"`
	Sender        Sender    `json:"sender"`
	CreatedAt     time.Time `json:"timestamp"`
	Read          bool      `json:"read"`
	ReplyToID     MessageID `json:"replyToId,omitempty"`
}

// Lines splits the text the way the widget renders it, one row per line.
func (m Message) Lines() []string {
	return strings.Split(strings.ReplaceAll(m.Text, "\r\n", "\n"), "\n")
}

// IsReply reports whether the message quotes another one.
func (m Message) IsReply() bool {
	return m.ReplyToID != ""
}
