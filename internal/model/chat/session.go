package chat

import "time"

// Mode selects how the widget behaves.
type Mode string

const (
	ModeEndUser Mode = "end_user"
	ModeAdmin   Mode = "admin"
)

// Visibility is the widget window state derived from the open/minimized flags.
type Visibility string

const (
	VisibilityClosed        Visibility = "closed"
	VisibilityOpenMinimized Visibility = "open_minimized"
	VisibilityOpenExpanded  Visibility = "open_expanded"
)

// RoleAdmin is the only identity role allowed to switch the widget into admin mode.
const RoleAdmin = "admin"

// Identity is what the host's session provider tells us about the viewer.
type Identity struct {
	UserID      string `json:"userId"`
	Role        string `json:"role"`
	DisplayName string `json:"displayName,omitempty"`
}

// IsAdmin reports whether the identity may use the admin inbox.
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// ReplyTarget is the message a threaded reply is being composed against.
type ReplyTarget struct {
	MessageID     MessageID `json:"messageId"`
	ParticipantID string    `json:"participantId"`
	Text          string    `json:"text"`
	Preview       string    `json:"preview"`
}

// Session captures the state of one widget instance.
type Session struct {
	ID                   string       `json:"id"`
	ParticipantID        string       `json:"participantId"`
	Role                 string       `json:"role"`
	Mode                 Mode         `json:"mode"`
	IsOpen               bool         `json:"isOpen"`
	IsMinimized          bool         `json:"isMinimized"`
	FocusedParticipantID string       `json:"focusedParticipantId,omitempty"`
	PendingReply         *ReplyTarget `json:"pendingReply,omitempty"`
	Typing               bool         `json:"typing"`
	GlobalUnreadCount    int          `json:"globalUnreadCount"`
	CreatedAt            time.Time    `json:"createdAt"`
}

// State folds the visibility flags into a single value.
func (s Session) State() Visibility {
	switch {
	case !s.IsOpen:
		return VisibilityClosed
	case s.IsMinimized:
		return VisibilityOpenMinimized
	default:
		return VisibilityOpenExpanded
	}
}

// Visible reports whether the message thread is on screen.
func (s Session) Visible() bool {
	return s.State() == VisibilityOpenExpanded
}
