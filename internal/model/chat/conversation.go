package chat

import "time"

// Conversation is the inbox metadata kept per end user.
type Conversation struct {
	ParticipantID      string    `json:"participantId"`
	DisplayName        string    `json:"displayName"`
	AvatarGlyph        string    `json:"avatarGlyph"`
	LastActivity       time.Time `json:"lastActivity"`
	LastMessagePreview string    `json:"lastMessagePreview,omitempty"`
	MessageCount       int       `json:"messageCount"`
	UnreadCount        int       `json:"unreadCount"`
	HasUnreplied       bool      `json:"hasUnreplied"`
}
