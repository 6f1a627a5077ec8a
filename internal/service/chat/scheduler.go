package chat

import (
	"sync"
	"time"
)

// Timer is the part of *time.Timer the scheduler needs.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d. time.AfterFunc satisfies it via RealAfterFunc.
type AfterFunc func(d time.Duration, f func()) Timer

// RealAfterFunc runs f on its own goroutine after d.
func RealAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Scheduler runs delayed tasks grouped by key. Cancelling a key stops every
// task under it, and a task that was already firing when it got cancelled
// finds itself unregistered and does nothing.
type Scheduler struct {
	mu     sync.Mutex
	after  AfterFunc
	nextID uint64
	tasks  map[string]map[uint64]Timer
}

// NewScheduler creates a scheduler; a nil after uses real timers.
func NewScheduler(after AfterFunc) *Scheduler {
	if after == nil {
		after = RealAfterFunc
	}
	return &Scheduler{
		after: after,
		tasks: make(map[string]map[uint64]Timer),
	}
}

// Schedule registers fn under key. When the timer fires fn gets the task id and
// must Claim it before applying any effect.
func (s *Scheduler) Schedule(key string, delay time.Duration, fn func(taskID uint64)) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID
	if s.tasks[key] == nil {
		s.tasks[key] = make(map[uint64]Timer)
	}
	s.tasks[key][id] = s.after(delay, func() {
		fn(id)
	})
	return id
}

// Claim removes the task and reports whether it was still registered, i.e.
// not cancelled and not claimed before.
func (s *Scheduler) Claim(key string, id uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks, ok := s.tasks[key]
	if !ok {
		return false
	}
	if _, ok := tasks[id]; !ok {
		return false
	}
	delete(tasks, id)
	if len(tasks) == 0 {
		delete(s.tasks, key)
	}
	return true
}

// Cancel stops all pending tasks under key and returns how many were pending.
func (s *Scheduler) Cancel(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks := s.tasks[key]
	for _, timer := range tasks {
		timer.Stop()
	}
	delete(s.tasks, key)
	return len(tasks)
}

// Pending reports how many tasks are waiting under key.
func (s *Scheduler) Pending(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks[key])
}
