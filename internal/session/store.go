package session

import (
	"sync"
	"time"
)

// Store holds sessions by key. Implementations must treat a session idle for
// longer than their timeout as absent.
type Store interface {
	// Get returns a copy of the session. Expired sessions are deleted and
	// reported absent.
	Get(key string) (*Session, bool)
	// Put stores a copy of s and marks it active now.
	Put(key string, s *Session)
	Delete(key string)
	// Sweep deletes every expired session and returns how many were removed.
	Sweep() int
	Len() int
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithClock overrides the time source.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *MemoryStore) { m.now = now }
}

// NewMemoryStore creates a store that expires sessions idle for longer than ttl.
func NewMemoryStore(ttl time.Duration, opts ...MemoryOption) *MemoryStore {
	m := &MemoryStore{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *MemoryStore) expired(s *Session, now time.Time) bool {
	return now.Sub(s.LastActive) > m.ttl
}

// Get implements Store.
func (m *MemoryStore) Get(key string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[key]
	if !ok {
		return nil, false
	}
	if m.expired(s, m.now()) {
		delete(m.sessions, key)
		return nil, false
	}
	return s.Clone(), true
}

// Put implements Store.
func (m *MemoryStore) Put(key string, s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := s.Clone()
	c.LastActive = m.now()
	m.sessions[key] = c
}

// Delete implements Store.
func (m *MemoryStore) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, key)
}

// Sweep implements Store.
func (m *MemoryStore) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for key, s := range m.sessions {
		if m.expired(s, now) {
			delete(m.sessions, key)
			removed++
		}
	}
	return removed
}

// Len implements Store.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
