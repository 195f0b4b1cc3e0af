// Package session keeps per USSD session state between webhook deliveries.
package session

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNotFound is returned when no live session exists for an id.
var ErrNotFound = errors.New("session: not found")

// Session is the state an application keeps for one USSD session.
type Session struct {
	ID           string            `json:"id"`
	PhoneNumber  string            `json:"phoneNumber"`
	Data         map[string]string `json:"data,omitempty"`
	LastResponse string            `json:"lastResponse,omitempty"`
	Hops         int               `json:"hops"`
	UpdatedAt    time.Time         `json:"updatedAt"`
}

// Set stores a value, allocating Data on first use.
func (s *Session) Set(key, value string) {
	if s.Data == nil {
		s.Data = make(map[string]string)
	}
	s.Data[key] = value
}

func (s *Session) clone() *Session {
	out := *s
	if s.Data != nil {
		out.Data = make(map[string]string, len(s.Data))
		for k, v := range s.Data {
			out.Data[k] = v
		}
	}
	return &out
}

// Store persists sessions keyed by session id.
type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}

type memoryEntry struct {
	session   *Session
	expiresAt time.Time
}

// MemoryStore is an in-process Store with a fixed time to live.
type MemoryStore struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.RWMutex
	entries map[string]memoryEntry
}

// NewMemoryStore returns a store whose entries expire ttl after their last
// save. A non-positive ttl disables expiry.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]memoryEntry),
	}
}

// WithClock overrides the time source. Intended for tests.
func (m *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	if now != nil {
		m.now = now
	}
	return m
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	m.mu.RLock()
	entry, ok := m.entries[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	if m.expired(entry) {
		m.mu.Lock()
		delete(m.entries, id)
		m.mu.Unlock()
		return nil, ErrNotFound
	}
	return entry.session.clone(), nil
}

func (m *MemoryStore) Save(_ context.Context, s *Session) error {
	if s == nil || s.ID == "" {
		return errors.New("session: id is required")
	}
	now := m.now()
	stored := s.clone()
	stored.UpdatedAt = now
	s.UpdatedAt = now

	entry := memoryEntry{session: stored}
	if m.ttl > 0 {
		entry.expiresAt = now.Add(m.ttl)
	}

	m.mu.Lock()
	m.entries[s.ID] = entry
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.entries, id)
	m.mu.Unlock()
	return nil
}

// Sweep drops expired entries and returns how many were removed.
func (m *MemoryStore) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, entry := range m.entries {
		if m.expired(entry) {
			delete(m.entries, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored entries, expired or not.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func (m *MemoryStore) expired(e memoryEntry) bool {
	return !e.expiresAt.IsZero() && !m.now().Before(e.expiresAt)
}
