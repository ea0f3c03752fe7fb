package server

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/gradlab/pkg/errors"
	"github.com/matzehuels/gradlab/pkg/session"
)

// DefaultTTL is how long an idle session is kept.
const DefaultTTL = 2 * time.Hour

// ErrNotFound is returned for unknown or expired session IDs.
var ErrNotFound = errors.New(errors.ErrCodeSessionNotFound, "session not found")

// Store holds edit sessions in memory, keyed by a random UUID. Entries expire
// after the TTL without use; every Get refreshes the deadline.
type Store struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	sess      *session.Session
	createdAt time.Time
	expiresAt time.Time
}

// NewStore returns an empty store. ttl <= 0 uses DefaultTTL.
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{ttl: ttl, now: time.Now, entries: make(map[string]*entry)}
}

// Add stores sess and returns its new ID.
func (s *Store) Add(sess *session.Session) string {
	id := uuid.NewString()
	now := s.now()
	s.mu.Lock()
	s.entries[id] = &entry{sess: sess, createdAt: now, expiresAt: now.Add(s.ttl)}
	s.mu.Unlock()
	return id
}

// Get returns the session for id and extends its lifetime.
func (s *Store) Get(id string) (*session.Session, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	if now.After(e.expiresAt) {
		delete(s.entries, id)
		return nil, ErrNotFound
	}
	e.expiresAt = now.Add(s.ttl)
	return e.sess, nil
}

// Delete removes id. It reports whether the session existed.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[id]
	delete(s.entries, id)
	return ok
}

// Cleanup drops expired sessions and returns how many were removed.
func (s *Store) Cleanup() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, id)
			n++
		}
	}
	return n
}

// Len returns the number of stored sessions, expired ones included.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
