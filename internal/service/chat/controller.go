package chat

import (
	"strings"
	"sync"

	"github.com/zhouzirui/maktab-chat/backend/internal/model/chat"
	"github.com/zhouzirui/maktab-chat/backend/internal/service/events"
)

// Controller is the state machine behind one widget instance. It owns the
// session's visibility, mode and composing state, and routes every write
// through the shared Service.
type Controller struct {
	mu        sync.Mutex
	svc       *Service
	identity  chat.Identity
	session   chat.Session
	focusHeld string
	following string
}

func newController(svc *Service, identity chat.Identity, session chat.Session) *Controller {
	return &Controller{svc: svc, identity: identity, session: session}
}

// ID returns the session identifier.
func (c *Controller) ID() string {
	return c.session.ID
}

// Identity returns who the session belongs to.
func (c *Controller) Identity() chat.Identity {
	return c.identity
}

// do runs fn under the session lock. Failures are counted as suppressed
// actions; successes push a fresh snapshot to the session topic.
func (c *Controller) do(fn func() error) error {
	c.mu.Lock()
	err := fn()
	if err != nil {
		c.mu.Unlock()
		c.svc.recordSuppressed(err)
		return err
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.svc.broker.Publish(events.Event{
		Type:          events.TypeSession,
		ParticipantID: snap.ParticipantID,
		Session:       &snap,
	}, events.SessionTopic(snap.ID))
	return nil
}

// Open shows the widget expanded.
func (c *Controller) Open() error {
	return c.do(func() error {
		c.session.IsOpen = true
		c.session.IsMinimized = false
		c.syncFocus()
		c.acknowledge()
		return nil
	})
}

// Close hides the widget and cancels the auto-response still pending for the
// session's own conversation.
func (c *Controller) Close() error {
	return c.do(func() error {
		c.session.IsOpen = false
		c.session.IsMinimized = false
		c.svc.CancelAutoResponses(c.session.ParticipantID)
		c.syncFocus()
		return nil
	})
}

// Minimize collapses an open widget to its header.
func (c *Controller) Minimize() error {
	return c.do(func() error {
		if !c.session.IsOpen {
			return ErrNotOpen
		}
		c.session.IsMinimized = true
		c.syncFocus()
		return nil
	})
}

// Expand restores a minimized widget.
func (c *Controller) Expand() error {
	return c.do(func() error {
		if !c.session.IsOpen {
			return ErrNotOpen
		}
		c.session.IsMinimized = false
		c.syncFocus()
		c.acknowledge()
		return nil
	})
}

// ToggleMode switches between the end-user chat and the admin inbox.
func (c *Controller) ToggleMode() error {
	return c.do(func() error {
		if !c.identity.IsAdmin() {
			return ErrNotAdmin
		}
		c.session.PendingReply = nil
		if c.session.Mode == chat.ModeAdmin {
			c.session.Mode = chat.ModeEndUser
			c.session.FocusedParticipantID = ""
		} else {
			c.session.Mode = chat.ModeAdmin
		}
		c.syncFocus()
		c.acknowledge()
		return nil
	})
}

// Focus selects a participant's conversation in the admin inbox and marks it read.
func (c *Controller) Focus(participantID string) error {
	return c.do(func() error {
		if c.session.Mode != chat.ModeAdmin {
			return ErrWrongMode
		}
		if _, ok := c.svc.directory.Get(participantID); !ok {
			return ErrConversationNotFound
		}
		if target := c.session.PendingReply; target != nil && target.ParticipantID != participantID {
			c.session.PendingReply = nil
		}
		c.session.FocusedParticipantID = participantID
		c.svc.viewConversation(participantID, false)
		c.syncFocus()
		return nil
	})
}

// BeginReply starts composing a threaded reply to a message of the active conversation.
func (c *Controller) BeginReply(messageID chat.MessageID) error {
	return c.do(func() error {
		conversationID, err := c.activeConversation()
		if err != nil {
			return err
		}
		msg, err := c.svc.store.Get(conversationID, messageID)
		if err != nil {
			return err
		}
		if !c.fromOtherParty(msg.Sender) {
			return ErrOwnMessage
		}
		c.session.PendingReply = &chat.ReplyTarget{
			MessageID:     msg.ID,
			ParticipantID: conversationID,
			Text:          msg.Text,
			Preview:       c.svc.resolver.Preview(conversationID, msg.ID),
		}
		return nil
	})
}

// CancelReply abandons the reply being composed.
func (c *Controller) CancelReply() error {
	return c.do(func() error {
		c.session.PendingReply = nil
		return nil
	})
}

// SendReply sends text as a reply to the pending target.
func (c *Controller) SendReply(text string) (chat.Message, error) {
	var sent chat.Message
	err := c.do(func() error {
		var err error
		sent, err = c.sendReplyLocked(text)
		return err
	})
	return sent, err
}

func (c *Controller) sendReplyLocked(text string) (chat.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return chat.Message{}, ErrEmptyText
	}
	target := c.session.PendingReply
	if target == nil {
		return chat.Message{}, ErrNoReplyTarget
	}
	conversationID, err := c.activeConversation()
	if err != nil {
		return chat.Message{}, err
	}
	if target.ParticipantID != conversationID {
		c.session.PendingReply = nil
		return chat.Message{}, ErrNoReplyTarget
	}

	msg := chat.Message{Text: text}
	if err := c.svc.resolver.Link(conversationID, &msg, target.MessageID); err != nil {
		c.svc.logger.Debug("reply target gone, sending unthreaded", "participant", conversationID, "target", target.MessageID)
	}

	var sent chat.Message
	if c.session.Mode == chat.ModeAdmin {
		msg.Sender = chat.SenderAdmin
		sent = c.svc.Append(conversationID, msg)
	} else {
		sent = c.svc.SubmitEndUser(conversationID, msg)
	}
	c.session.PendingReply = nil
	return sent, nil
}

// Submit sends an end-user message and schedules the auto-response.
func (c *Controller) Submit(text string) (chat.Message, error) {
	var sent chat.Message
	err := c.do(func() error {
		var err error
		sent, err = c.submitLocked(text)
		return err
	})
	return sent, err
}

func (c *Controller) submitLocked(text string) (chat.Message, error) {
	if c.session.Mode == chat.ModeAdmin {
		return chat.Message{}, ErrWrongMode
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return chat.Message{}, ErrEmptyText
	}
	sent := c.svc.SubmitEndUser(c.session.ParticipantID, chat.Message{Text: text})
	c.acknowledge()
	return sent, nil
}

// AskQuickQuestion submits the canned question at index.
func (c *Controller) AskQuickQuestion(index int) (chat.Message, error) {
	var sent chat.Message
	err := c.do(func() error {
		question, ok := c.svc.catalog.QuickQuestion(index)
		if !ok {
			return ErrUnknownQuickQuestion
		}
		var err error
		sent, err = c.submitLocked(question)
		return err
	})
	return sent, err
}

// SendAdminMessage sends an unthreaded admin message to the focused participant.
func (c *Controller) SendAdminMessage(text string) (chat.Message, error) {
	var sent chat.Message
	err := c.do(func() error {
		var err error
		sent, err = c.sendAdminLocked(text)
		return err
	})
	return sent, err
}

func (c *Controller) sendAdminLocked(text string) (chat.Message, error) {
	if c.session.Mode != chat.ModeAdmin {
		return chat.Message{}, ErrWrongMode
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return chat.Message{}, ErrEmptyText
	}
	focused := c.session.FocusedParticipantID
	if focused == "" {
		return chat.Message{}, ErrNoFocusedParticipant
	}
	return c.svc.Append(focused, chat.Message{Sender: chat.SenderAdmin, Text: text}), nil
}

// Send is the widget input box: it replies when a target is pending,
// messages the focused participant in admin mode, and submits otherwise.
func (c *Controller) Send(text string) (chat.Message, error) {
	var sent chat.Message
	err := c.do(func() error {
		var err error
		switch {
		case c.session.PendingReply != nil:
			sent, err = c.sendReplyLocked(text)
		case c.session.Mode == chat.ModeAdmin:
			sent, err = c.sendAdminLocked(text)
		default:
			sent, err = c.submitLocked(text)
		}
		return err
	})
	return sent, err
}

// ClearConversation resets the session's own conversation to the reset notice.
// An empty id means the own conversation; any other participant is refused.
func (c *Controller) ClearConversation(conversationID string) (chat.Message, error) {
	var seed chat.Message
	err := c.do(func() error {
		own := c.session.ParticipantID
		if conversationID != "" && conversationID != own {
			return ErrForeignConversation
		}
		seed = c.svc.ClearConversation(own)
		if target := c.session.PendingReply; target != nil && target.ParticipantID == own {
			c.session.PendingReply = nil
		}
		return nil
	})
	return seed, err
}

// Snapshot returns the current session state.
func (c *Controller) Snapshot() chat.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() chat.Session {
	snap := c.session
	if snap.PendingReply != nil {
		target := *snap.PendingReply
		snap.PendingReply = &target
	}
	snap.Typing = c.svc.AutoResponsePending(snap.ParticipantID)
	snap.GlobalUnreadCount = c.badgeLocked()
	return snap
}

// Badge is the unread count shown outside the widget. Admins see the inbox
// total; end users see unanswered-for-them replies in their own thread.
func (c *Controller) Badge() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.badgeLocked()
}

func (c *Controller) badgeLocked() int {
	if c.session.Mode == chat.ModeAdmin {
		return c.svc.directory.TotalUnread()
	}
	return c.svc.store.CountUnread(c.session.ParticipantID, chat.SenderAutoResponder, chat.SenderAdmin)
}

// Thread renders the active conversation. While the widget is visible the
// other party's messages count as read.
func (c *Controller) Thread() ([]ThreadMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	conversationID, err := c.activeConversation()
	if err != nil {
		return nil, err
	}
	c.acknowledge()
	return c.svc.Thread(conversationID), nil
}

// Inbox lists the admin conversations, in first-contact order or most recent first.
func (c *Controller) Inbox(byRecency bool) ([]chat.Conversation, error) {
	c.mu.Lock()
	mode := c.session.Mode
	c.mu.Unlock()

	if mode != chat.ModeAdmin {
		c.svc.recordSuppressed(ErrWrongMode)
		return nil, ErrWrongMode
	}
	if byRecency {
		return c.svc.directory.ListByRecency(), nil
	}
	return c.svc.directory.List(), nil
}

// UnrepliedCount is the "needs attention" badge of the admin inbox.
func (c *Controller) UnrepliedCount() int {
	return c.svc.directory.UnrepliedCount()
}

func (c *Controller) activeConversation() (string, error) {
	if c.session.Mode == chat.ModeAdmin {
		if c.session.FocusedParticipantID == "" {
			return "", ErrNoFocusedParticipant
		}
		return c.session.FocusedParticipantID, nil
	}
	return c.session.ParticipantID, nil
}

func (c *Controller) fromOtherParty(sender chat.Sender) bool {
	if c.session.Mode == chat.ModeAdmin {
		return sender == chat.SenderEndUser
	}
	return sender != chat.SenderEndUser
}

// acknowledge marks the visible thread read for whoever is looking at it.
func (c *Controller) acknowledge() {
	if !c.session.Visible() {
		return
	}
	if c.session.Mode == chat.ModeAdmin {
		if c.focusHeld != "" {
			c.svc.store.MarkRead(c.focusHeld, chat.SenderEndUser)
		}
		return
	}
	c.svc.store.MarkRead(c.session.ParticipantID, chat.SenderAutoResponder, chat.SenderAdmin)
}

// syncFocus holds the directory focus exactly while an admin has the focused
// thread on screen, and keeps the push feed following the focused thread.
func (c *Controller) syncFocus() {
	c.syncFollow()

	want := ""
	if c.session.Mode == chat.ModeAdmin && c.session.Visible() {
		want = c.session.FocusedParticipantID
	}
	if want == c.focusHeld {
		return
	}
	if c.focusHeld != "" {
		c.svc.releaseConversation(c.focusHeld)
	}
	c.focusHeld = ""
	if want != "" && c.svc.viewConversation(want, true) {
		c.focusHeld = want
	}
}

func (c *Controller) syncFollow() {
	want := ""
	if c.session.Mode == chat.ModeAdmin {
		want = c.session.FocusedParticipantID
	}
	if want == c.following {
		return
	}
	c.svc.follow(c.session.ID, c.following, want)
	c.following = want
}

// Topics lists the broker topics a push client of this session should follow:
// the session itself, its own thread and, for admins, the inbox. Events of the
// thread an admin focuses arrive on the session topic.
func (c *Controller) Topics() []string {
	topics := []string{
		events.SessionTopic(c.session.ID),
		events.ConversationTopic(c.session.ParticipantID),
	}
	if c.identity.IsAdmin() {
		topics = append(topics, events.InboxTopic)
	}
	return topics
}
