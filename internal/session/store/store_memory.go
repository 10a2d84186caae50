package store

import (
	"context"
	"sync"
	"time"

	"kycgate/internal/session/models"
	"kycgate/pkg/platform/sentinel"
)

// InMemorySessionStore keeps sessions in a map guarded by one mutex, so sweep,
// capacity check and insert happen in a single critical section.
type InMemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]models.Session
}

func New() *InMemorySessionStore {
	return &InMemorySessionStore{sessions: make(map[string]models.Session)}
}

func (s *InMemorySessionStore) Insert(_ context.Context, sess models.Session, now time.Time, ttl time.Duration, max int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweep(now, ttl)
	if len(s.sessions) >= max {
		return sentinel.ErrCapacity
	}
	s.sessions[sess.Token] = sess
	return nil
}

func (s *InMemorySessionStore) Exists(_ context.Context, token string, now time.Time, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweep(now, ttl)
	_, ok := s.sessions[token]
	return ok, nil
}

func (s *InMemorySessionStore) Take(_ context.Context, token string, now time.Time, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweep(now, ttl)
	if _, ok := s.sessions[token]; !ok {
		return false, nil
	}
	delete(s.sessions, token)
	return true, nil
}

func (s *InMemorySessionStore) Count(_ context.Context, now time.Time, ttl time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweep(now, ttl)
	return len(s.sessions), nil
}

// sweep must be called with s.mu held.
func (s *InMemorySessionStore) sweep(now time.Time, ttl time.Duration) {
	for token, sess := range s.sessions {
		if sess.Expired(now, ttl) {
			delete(s.sessions, token)
		}
	}
}
