// Package postgres stores the attempt log in PostgreSQL via database/sql.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"kycgate/internal/audit/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS kyc_attempts (
    seq                BIGSERIAL PRIMARY KEY,
    id                 TEXT NOT NULL UNIQUE,
    recorded_at        TIMESTAMPTZ NOT NULL,
    attempt_type       TEXT NOT NULL,
    status             TEXT NOT NULL,
    state              TEXT NOT NULL DEFAULT '',
    reason             TEXT NOT NULL DEFAULT '',
    duplicate          BOOLEAN,
    liveness           BOOLEAN,
    similarity         DOUBLE PRECISION,
    confidence         DOUBLE PRECISION,
    request_id         TEXT NOT NULL DEFAULT '',
    client_ip          TEXT NOT NULL DEFAULT '',
    device             TEXT NOT NULL DEFAULT '',
    device_fingerprint TEXT NOT NULL DEFAULT ''
)`

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the attempts table when it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create kyc_attempts: %w", err)
	}
	return nil
}

func (s *Store) Append(ctx context.Context, a models.Attempt) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kyc_attempts (
			id, recorded_at, attempt_type, status, state, reason,
			duplicate, liveness, similarity, confidence,
			request_id, client_ip, device, device_fingerprint
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		a.ID, a.Timestamp, string(a.Type), a.Status, a.State, a.Reason,
		nullBool(a.Duplicate), nullBool(a.Liveness), nullFloat(a.Similarity), nullFloat(a.Confidence),
		a.RequestID, a.ClientIP, a.Device, a.DeviceFingerprint,
	)
	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}

func (s *Store) List(ctx context.Context) ([]models.Attempt, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, recorded_at, attempt_type, status, state, reason,
		       duplicate, liveness, similarity, confidence,
		       request_id, client_ip, device, device_fingerprint
		FROM kyc_attempts ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	attempts := []models.Attempt{}
	for rows.Next() {
		var (
			a                      models.Attempt
			attemptType            string
			duplicate, liveness    sql.NullBool
			similarity, confidence sql.NullFloat64
		)
		if err := rows.Scan(
			&a.ID, &a.Timestamp, &attemptType, &a.Status, &a.State, &a.Reason,
			&duplicate, &liveness, &similarity, &confidence,
			&a.RequestID, &a.ClientIP, &a.Device, &a.DeviceFingerprint,
		); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		a.Type = models.AttemptType(attemptType)
		a.Duplicate = boolPtr(duplicate)
		a.Liveness = boolPtr(liveness)
		a.Similarity = floatPtr(similarity)
		a.Confidence = floatPtr(confidence)
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attempts: %w", err)
	}
	return attempts, nil
}

func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `TRUNCATE kyc_attempts`); err != nil {
		return fmt.Errorf("clear attempts: %w", err)
	}
	return nil
}

func nullBool(b *bool) sql.NullBool {
	if b == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *b, Valid: true}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func boolPtr(n sql.NullBool) *bool {
	if !n.Valid {
		return nil
	}
	return &n.Bool
}

func floatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	return &n.Float64
}
