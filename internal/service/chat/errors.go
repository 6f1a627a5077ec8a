package chat

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound marks lookup misses; renders degrade to placeholders.
	ErrNotFound = errors.New("not found")
	// ErrValidation marks guard failures; the action is silently suppressed.
	ErrValidation = errors.New("validation failure")
)

var (
	ErrSessionNotFound      = fmt.Errorf("session %w", ErrNotFound)
	ErrMessageNotFound      = fmt.Errorf("message %w", ErrNotFound)
	ErrConversationNotFound = fmt.Errorf("conversation %w", ErrNotFound)
)

var (
	ErrEmptyText            = fmt.Errorf("%w: text is empty", ErrValidation)
	ErrNoReplyTarget        = fmt.Errorf("%w: no reply target", ErrValidation)
	ErrNoFocusedParticipant = fmt.Errorf("%w: no focused participant", ErrValidation)
	ErrOwnMessage           = fmt.Errorf("%w: cannot reply to own message", ErrValidation)
	ErrNotAdmin             = fmt.Errorf("%w: admin role required", ErrValidation)
	ErrWrongMode            = fmt.Errorf("%w: action not available in this mode", ErrValidation)
	ErrNotOpen              = fmt.Errorf("%w: widget is closed", ErrValidation)
	ErrForeignConversation  = fmt.Errorf("%w: conversation not owned by session", ErrValidation)
	ErrUnknownQuickQuestion = fmt.Errorf("%w: unknown quick question", ErrValidation)
	ErrMissingIdentity      = fmt.Errorf("%w: user id is required", ErrValidation)
)

// IsValidation reports whether err is a suppressed-action guard failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// Reason returns a short machine label for a validation error, used for metrics and responses.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrEmptyText):
		return "empty_text"
	case errors.Is(err, ErrNoReplyTarget):
		return "no_reply_target"
	case errors.Is(err, ErrNoFocusedParticipant):
		return "no_focused_participant"
	case errors.Is(err, ErrOwnMessage):
		return "own_message"
	case errors.Is(err, ErrNotAdmin):
		return "not_admin"
	case errors.Is(err, ErrWrongMode):
		return "wrong_mode"
	case errors.Is(err, ErrNotOpen):
		return "not_open"
	case errors.Is(err, ErrForeignConversation):
		return "foreign_conversation"
	case errors.Is(err, ErrUnknownQuickQuestion):
		return "unknown_quick_question"
	case errors.Is(err, ErrMissingIdentity):
		return "missing_identity"
	case errors.Is(err, ErrMessageNotFound):
		return "message_not_found"
	case errors.Is(err, ErrConversationNotFound):
		return "conversation_not_found"
	case err == nil:
		return ""
	default:
		return "other"
	}
}
