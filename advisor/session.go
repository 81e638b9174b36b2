package advisor

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// NewSession builds an immutable session with a fresh id.
func NewSession(m Measurements, ranked []RankedCrop) *Session {
	return &Session{
		ID:           uuid.NewString(),
		Measurements: m,
		Ranked:       append([]RankedCrop{}, ranked...),
		CreatedAt:    time.Now().UTC(),
	}
}

// SessionSlot holds the latest session of a single-user front end.
type SessionSlot struct {
	p atomic.Pointer[Session]
}

// Load returns the current session or nil.
func (s *SessionSlot) Load() *Session {
	return s.p.Load()
}

// Store replaces the current session.
func (s *SessionSlot) Store(sess *Session) {
	s.p.Store(sess)
}

// SessionStore keeps the latest session per client key for the HTTP API.
// Entries expire ttl after the last Put.
type SessionStore struct {
	c *cache.Cache
}

// NewSessionStore creates a store. ttl <= 0 keeps sessions until Delete.
func NewSessionStore(ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		return &SessionStore{c: cache.New(cache.NoExpiration, 0)}
	}
	return &SessionStore{c: cache.New(ttl, ttl)}
}

// Get returns the session stored under key.
func (s *SessionStore) Get(key string) (*Session, bool) {
	if key == "" {
		return nil, false
	}
	v, ok := s.c.Get(key)
	if !ok {
		return nil, false
	}
	sess, ok := v.(*Session)
	return sess, ok
}

// Put stores sess under key, replacing any previous session for that key.
func (s *SessionStore) Put(key string, sess *Session) {
	s.c.SetDefault(key, sess)
}

// Delete drops the session stored under key.
func (s *SessionStore) Delete(key string) {
	s.c.Delete(key)
}

// Len reports the number of stored sessions, including expired ones not yet
// evicted.
func (s *SessionStore) Len() int {
	return s.c.ItemCount()
}
