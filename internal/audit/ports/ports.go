// Package ports defines the attempt log persistence and fan-out contracts.
package ports

import (
	"context"

	"kycgate/internal/audit/models"
)

// Store is the durable, append-only attempt log.
type Store interface {
	Append(ctx context.Context, attempt models.Attempt) error
	// List returns every attempt in append order.
	List(ctx context.Context) ([]models.Attempt, error)
	// Clear removes the whole log.
	Clear(ctx context.Context) error
}

// Publisher forwards attempts to an external stream.
type Publisher interface {
	Publish(ctx context.Context, attempts ...models.Attempt) error
}
