// Package ports defines the storage interface shared by the ratelimit service
// and its store implementations.
package ports

import (
	"context"
	"time"

	"kycgate/internal/ratelimit/models"
)

// BucketStore manages sliding window rate limit counters.
type BucketStore interface {
	// Allow prunes the window for key, then records one request if fewer than
	// limit remain. A denied request leaves the window unchanged.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.RateLimitResult, error)

	// Reset clears the rate limit counter for a key.
	Reset(ctx context.Context, key string) error

	// GetCurrentCount returns the current request count in the window.
	GetCurrentCount(ctx context.Context, key string, window time.Duration) (int, error)
}
