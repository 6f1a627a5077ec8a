package participant

import "sync"

// Store exposes participant profiles to the directory and HTTP handlers.
type Store interface {
	List() []Participant
	FindByID(id string) (Participant, bool)
}

// MemoryStore implements Store with an in-memory slice.
type MemoryStore struct {
	mu    sync.RWMutex
	items []Participant
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied participants.
func NewMemoryStore(items []Participant) *MemoryStore {
	return &MemoryStore{items: append([]Participant(nil), items...)}
}

// List returns the known participants in registration order.
func (s *MemoryStore) List() []Participant {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Participant(nil), s.items...)
}

// FindByID looks up a participant by identifier.
func (s *MemoryStore) FindByID(id string) (Participant, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, item := range s.items {
		if item.ID == id {
			return item, true
		}
	}
	return Participant{}, false
}

// Upsert registers a participant or refreshes an existing profile.
func (s *MemoryStore) Upsert(p Participant) {
	if p.AvatarGlyph == "" {
		p.AvatarGlyph = Glyph(p.Name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == p.ID {
			s.items[i] = p
			return
		}
	}
	s.items = append(s.items, p)
}
