package memory

import (
	"context"
	"sync"

	"kycgate/internal/audit/models"
)

// InMemoryStore is an attempt log for tests and ephemeral deployments.
type InMemoryStore struct {
	mu       sync.RWMutex
	attempts []models.Attempt
}

func New() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, attempt models.Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts = append(s.attempts, attempt)
	return nil
}

func (s *InMemoryStore) List(_ context.Context) ([]models.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Attempt, len(s.attempts))
	copy(out, s.attempts)
	return out, nil
}

func (s *InMemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts = nil
	return nil
}
