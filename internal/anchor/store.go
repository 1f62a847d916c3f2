// Package anchor implements the anchor navigation engine: the state
// machine that keeps a whole multi-screen conversational UI inside a
// single, continuously edited message per user.
package anchor

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/soyeahso/teo/internal/domain"
)

// SessionStore owns all mutable session state, keyed by session key.
//
// The store's mutex protects the map only. It does not serialize access
// to individual sessions — callers hold the single-event-at-a-time
// invariant per key (see routing.Router).
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
	now      func() time.Time
}

// NewSessionStore creates an empty in-memory session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*domain.Session),
		now:      time.Now,
	}
}

// GetOrCreate finds the session for a key, creating it lazily on first
// use. New sessions get a fresh ID and idempotency nonce.
func (s *SessionStore) GetOrCreate(key domain.SessionKey) *domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[key.String()]; ok {
		return sess
	}

	sess := &domain.Session{
		ID:           uuid.New().String(),
		Key:          key,
		LastActivity: s.now(),
		Nonce:        uuid.New().String()[:8],
	}
	s.sessions[key.String()] = sess
	return sess
}

// Get returns the session for a key without creating one.
func (s *SessionStore) Get(key domain.SessionKey) (*domain.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[key.String()]
	return sess, ok
}

// Put inserts a session as-is. Used to restore persisted sessions at
// startup, before any events flow.
func (s *SessionStore) Put(sess *domain.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.Key.String()] = sess
}

// Touch updates the session's last-activity timestamp.
func (s *SessionStore) Touch(sess *domain.Session) {
	sess.LastActivity = s.now()
}

// Reset removes the session for a key entirely. The next event recreates
// it with a new nonce.
func (s *SessionStore) Reset(key domain.SessionKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, key.String())
}

// SweepExpired removes and returns all sessions idle longer than maxIdle.
func (s *SessionStore) SweepExpired(maxIdle time.Duration) []*domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-maxIdle)
	var expired []*domain.Session
	for key, sess := range s.sessions {
		if sess.LastActivity.Before(cutoff) {
			expired = append(expired, sess)
			delete(s.sessions, key)
		}
	}
	return expired
}

// Len returns the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
