package approval

import (
	"sync"
	"sync/atomic"
	"time"

	"longbox/internal/services"
)

// SessionStore owns approval sessions and serializes writers per session.
type SessionStore interface {
	// Create registers a new session, stamping its timestamps.
	Create(session *Session) error
	// Get returns a deep copy of a live session.
	Get(id string) (*Session, bool)
	// Update runs fn against a working copy under the session's writer lock
	// and commits the copy only when fn returns nil.
	Update(id string, fn func(*Session) error) (*Session, error)
	// Delete removes a session under its writer lock. Applying sessions are
	// refused with ErrInvalidState.
	Delete(id string) error
	// Sweep removes expired sessions that are not applying and returns their ids.
	Sweep(now time.Time) []string
}

type storeEntry struct {
	writeMu   sync.Mutex
	committed atomic.Pointer[Session]
	removed   atomic.Bool
}

// MemoryStore is an in-memory SessionStore with a wall-clock TTL measured from
// the last committed change.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*storeEntry
	ttl     time.Duration
	now     Clock
}

// NewMemoryStore creates an empty store. A nil clock uses time.Now.
func NewMemoryStore(ttl time.Duration, clock Clock) *MemoryStore {
	if clock == nil {
		clock = time.Now
	}
	return &MemoryStore{
		entries: make(map[string]*storeEntry),
		ttl:     ttl,
		now:     clock,
	}
}

// Len returns the number of sessions held, expired or not.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func (m *MemoryStore) Create(session *Session) error {
	if session == nil || session.ID == "" {
		return services.Wrap(services.ErrValidation, "approval", "create session", "session id is required", nil)
	}
	now := m.now()
	stored := session.Clone()
	stored.CreatedAt = now
	m.touch(stored, now)

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.entries[session.ID]; exists {
		return services.Wrap(services.ErrValidation, "approval", "create session", "duplicate session id "+session.ID, nil)
	}
	entry := &storeEntry{}
	entry.committed.Store(stored)
	m.entries[session.ID] = entry
	session.CreatedAt, session.UpdatedAt, session.ExpiresAt = stored.CreatedAt, stored.UpdatedAt, stored.ExpiresAt
	return nil
}

func (m *MemoryStore) Get(id string) (*Session, bool) {
	entry := m.lookup(id)
	if entry == nil {
		return nil, false
	}
	current := entry.committed.Load()
	if m.expired(current, m.now()) {
		return nil, false
	}
	return current.Clone(), true
}

func (m *MemoryStore) Update(id string, fn func(*Session) error) (*Session, error) {
	entry := m.lookup(id)
	if entry == nil {
		return nil, sessionNotFound(id)
	}
	entry.writeMu.Lock()
	defer entry.writeMu.Unlock()

	current := entry.committed.Load()
	if entry.removed.Load() || m.expired(current, m.now()) {
		return nil, sessionNotFound(id)
	}
	working := current.Clone()
	if err := fn(working); err != nil {
		return nil, err
	}
	if entry.removed.Load() {
		return nil, sessionNotFound(id)
	}
	m.touch(working, m.now())
	entry.committed.Store(working)
	return working.Clone(), nil
}

func (m *MemoryStore) Delete(id string) error {
	entry := m.lookup(id)
	if entry == nil {
		return sessionNotFound(id)
	}
	entry.writeMu.Lock()
	defer entry.writeMu.Unlock()

	current := entry.committed.Load()
	if entry.removed.Load() || m.expired(current, m.now()) {
		return sessionNotFound(id)
	}
	if current.Status == StatusApplying {
		return services.Wrap(services.ErrInvalidState, "approval", "delete session", "session is applying", nil)
	}
	entry.removed.Store(true)
	m.mu.Lock()
	if m.entries[id] == entry {
		delete(m.entries, id)
	}
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Sweep(now time.Time) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var removed []string
	for id, entry := range m.entries {
		// A writer holding the lock is mid-operation; its commit refreshes expiry.
		if !entry.writeMu.TryLock() {
			continue
		}
		if m.expired(entry.committed.Load(), now) {
			delete(m.entries, id)
			entry.removed.Store(true)
			removed = append(removed, id)
		}
		entry.writeMu.Unlock()
	}
	return removed
}

func (m *MemoryStore) lookup(id string) *storeEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.entries[id]
}

// expired reports whether s is past its TTL. Applying sessions never expire.
func (m *MemoryStore) expired(s *Session, now time.Time) bool {
	if s == nil {
		return true
	}
	if s.Status == StatusApplying {
		return false
	}
	return !now.Before(s.ExpiresAt)
}

func (m *MemoryStore) touch(s *Session, now time.Time) {
	s.UpdatedAt = now
	s.ExpiresAt = now.Add(m.ttl)
}

func sessionNotFound(id string) error {
	return services.Wrap(services.ErrNotFound, "approval", "lookup session", "session "+id, nil)
}
