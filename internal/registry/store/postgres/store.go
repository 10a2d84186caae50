// Package postgres persists registry records in PostgreSQL through pgx.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"kycgate/internal/registry/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS kyc_identities (
    seq        BIGSERIAL PRIMARY KEY,
    id         TEXT NOT NULL UNIQUE,
    vector     DOUBLE PRECISION[] NOT NULL,
    image_ref  TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL
)`

// DB is the subset of pgxpool.Pool the store uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

var _ DB = (*pgxpool.Pool)(nil)

// Store keeps one row per record; seq preserves append order.
type Store struct {
	db DB
}

func New(db DB) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the identities table when it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create kyc_identities: %w", err)
	}
	return nil
}

func (s *Store) Append(ctx context.Context, rec models.Record) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO kyc_identities (id, vector, image_ref, created_at) VALUES ($1, $2, $3, $4)`,
		rec.ID, rec.Vector, rec.ImageRef, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert identity: %w", err)
	}
	return nil
}

func (s *Store) ScanAll(ctx context.Context) ([]models.Record, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, vector, image_ref, created_at FROM kyc_identities ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("scan identities: %w", err)
	}
	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Record, error) {
		var rec models.Record
		err := row.Scan(&rec.ID, &rec.Vector, &rec.ImageRef, &rec.CreatedAt)
		return rec, err
	})
	if err != nil {
		return nil, fmt.Errorf("read identities: %w", err)
	}
	return records, nil
}

func (s *Store) Reset(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, `TRUNCATE kyc_identities`); err != nil {
		return fmt.Errorf("truncate identities: %w", err)
	}
	return nil
}
