// Package ports defines the persistence contracts behind the registry.
package ports

import (
	"context"

	"kycgate/internal/registry/models"
)

// VectorStore persists accepted identity records in append order.
type VectorStore interface {
	// Append durably adds rec. On error the stored collection is unchanged.
	Append(ctx context.Context, rec models.Record) error
	// ScanAll returns every record in append order.
	ScanAll(ctx context.Context) ([]models.Record, error)
	// Reset removes every record.
	Reset(ctx context.Context) error
}

// ImageStore persists the source image of each accepted identity.
type ImageStore interface {
	// Save writes img and returns its reference.
	Save(ctx context.Context, img models.Image) (string, error)
	Delete(ctx context.Context, ref string) error
	// Reset removes every stored image.
	Reset(ctx context.Context) error
}
