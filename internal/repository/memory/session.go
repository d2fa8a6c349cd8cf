// Package memory provides the in-process collaborators: a TTL'd
// registration session store and the static single-tenant profile source.
package memory

import (
	"context"
	"sync"
	"time"
)

// SessionStore implements domain.SessionStore with a mutex-guarded map.
// Sessions are process-local and lost on restart. Concurrent writers for
// the same user are last-writer-wins; expired entries are reaped lazily on
// read and on write.
type SessionStore struct {
	mu      sync.Mutex
	expiry  map[string]time.Time
	ttl     time.Duration
	nowFunc func() time.Time
}

// NewSessionStore creates a session store with the given TTL. A zero TTL
// means sessions never expire (the historical behavior).
func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		expiry:  make(map[string]time.Time),
		ttl:     ttl,
		nowFunc: time.Now,
	}
}

// Start marks userID as awaiting a credential
func (s *SessionStore) Start(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reap()
	if s.ttl == 0 {
		s.expiry[userID] = time.Time{}
	} else {
		s.expiry[userID] = s.nowFunc().Add(s.ttl)
	}
	return nil
}

// Active reports whether userID has a live registration session
func (s *SessionStore) Active(_ context.Context, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deadline, ok := s.expiry[userID]
	if !ok {
		return false, nil
	}
	if !deadline.IsZero() && s.nowFunc().After(deadline) {
		delete(s.expiry, userID)
		return false, nil
	}
	return true, nil
}

// Clear removes the session for userID, if any
func (s *SessionStore) Clear(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.expiry, userID)
	return nil
}

// reap drops expired entries; callers hold the lock.
func (s *SessionStore) reap() {
	if s.ttl == 0 {
		return
	}
	now := s.nowFunc()
	for userID, deadline := range s.expiry {
		if !deadline.IsZero() && now.After(deadline) {
			delete(s.expiry, userID)
		}
	}
}
