// Package ports defines the session storage contract.
package ports

import (
	"context"
	"time"

	"kycgate/internal/session/models"
)

// Store keeps live sessions. Every operation first removes sessions whose age
// exceeds ttl, then acts, as one atomic step.
type Store interface {
	// Insert stores sess unless max live sessions already exist, in which case
	// it returns sentinel.ErrCapacity.
	Insert(ctx context.Context, sess models.Session, now time.Time, ttl time.Duration, max int) error
	// Exists reports whether token is live.
	Exists(ctx context.Context, token string, now time.Time, ttl time.Duration) (bool, error)
	// Take removes token and reports whether it was live.
	Take(ctx context.Context, token string, now time.Time, ttl time.Duration) (bool, error)
	// Count returns the number of live sessions.
	Count(ctx context.Context, now time.Time, ttl time.Duration) (int, error)
}
