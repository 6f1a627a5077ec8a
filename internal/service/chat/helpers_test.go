package chat

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/maktab-chat/backend/internal/model/chat"
	"github.com/zhouzirui/maktab-chat/backend/internal/model/participant"
	"github.com/zhouzirui/maktab-chat/backend/internal/obs"
)

type fakeTimer struct {
	delay   time.Duration
	fn      func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// fakeClock hands out timers that only fire when the test says so.
type fakeClock struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{delay: d, fn: f}
	c.timers = append(c.timers, t)
	return t
}

// FireAll runs every live timer and returns how many ran.
func (c *fakeClock) FireAll() int {
	return c.fire(false)
}

// FireRacing also runs stopped timers, the way a timer that was already
// firing when Stop was called would.
func (c *fakeClock) FireRacing() int {
	return c.fire(true)
}

func (c *fakeClock) fire(includeStopped bool) int {
	c.mu.Lock()
	var due []*fakeTimer
	for _, t := range c.timers {
		if t.fired || (t.stopped && !includeStopped) {
			continue
		}
		t.fired = true
		due = append(due, t)
	}
	c.mu.Unlock()

	for _, t := range due {
		t.fn()
	}
	return len(due)
}

func (c *fakeClock) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

func newTestService(t *testing.T) (*Service, *fakeClock) {
	t.Helper()
	clock := &fakeClock{}
	svc := NewService(nil, participant.NewMemoryStore(participant.Seed()), Options{
		AfterFunc: clock.AfterFunc,
		Metrics:   obs.NewMetrics(nil),
		Logger:    obs.Discard(),
	})
	return svc, clock
}

func newSession(t *testing.T, svc *Service, userID, role string) *Controller {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	ctrl, err := svc.CreateSession(ctx, chat.Identity{UserID: userID, Role: role})
	require.NoError(t, err)
	return ctrl
}

// newAdminInbox returns an admin session that is open and in admin mode.
func newAdminInbox(t *testing.T, svc *Service) *Controller {
	t.Helper()
	admin := newSession(t, svc, "admin1", chat.RoleAdmin)
	require.NoError(t, admin.Open())
	require.NoError(t, admin.ToggleMode())
	return admin
}

func sendersOf(messages []chat.Message) []chat.Sender {
	out := make([]chat.Sender, 0, len(messages))
	for _, m := range messages {
		out = append(out, m.Sender)
	}
	return out
}
