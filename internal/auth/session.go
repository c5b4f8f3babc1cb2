package auth

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// SessionStore keeps logged-in sessions in memory. Tokens are opaque UUIDs
// handed to the browser as a cookie; sessions expire after the configured
// TTL and expired entries are dropped lazily on lookup or by Sweep.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]session
	ttl      time.Duration
}

type session struct {
	userID    uuid.UUID
	expiresAt time.Time
}

// NewSessionStore creates a session store with the given TTL.
func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]session),
		ttl:      ttl,
	}
}

// Create registers a new session for the user and returns its token.
func (s *SessionStore) Create(userID uuid.UUID) string {
	token := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[token] = session{
		userID:    userID,
		expiresAt: time.Now().Add(s.ttl),
	}
	return token
}

// Get resolves a token to its user id. Expired sessions are removed on
// the spot and report as missing.
func (s *SessionStore) Get(token string) (uuid.UUID, bool) {
	s.mu.RLock()
	sess, ok := s.sessions[token]
	s.mu.RUnlock()

	if !ok {
		return uuid.Nil, false
	}
	if time.Now().After(sess.expiresAt) {
		s.Destroy(token)
		return uuid.Nil, false
	}
	return sess.userID, true
}

// Destroy removes a session. Destroying an unknown token is a no-op.
func (s *SessionStore) Destroy(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
}

// Sweep drops all expired sessions and returns how many were removed.
func (s *SessionStore) Sweep() int {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for token, sess := range s.sessions {
		if now.After(sess.expiresAt) {
			delete(s.sessions, token)
			removed++
		}
	}
	return removed
}

// Len returns the number of live sessions (expired ones included until
// swept).
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
