//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"kycgate/internal/registry/models"
	"kycgate/internal/registry/store/postgres"
	"kycgate/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *postgres.Store
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.pg = containers.GetManager().GetPostgres(s.T())
	s.store = postgres.New(s.pg.Pool)
	s.Require().NoError(s.store.EnsureSchema(context.Background()))
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.store.Reset(context.Background()))
}

func (s *PostgresStoreSuite) TestAppendPreservesOrder() {
	ctx := context.Background()
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	var ids []string
	for i := range 5 {
		rec := models.Record{
			ID:        uuid.NewString(),
			Vector:    []float64{float64(i), 0.5, -0.25},
			ImageRef:  uuid.NewString() + ".jpg",
			CreatedAt: created.Add(time.Duration(i) * time.Second),
		}
		ids = append(ids, rec.ID)
		s.Require().NoError(s.store.Append(ctx, rec))
	}

	records, err := s.store.ScanAll(ctx)
	s.Require().NoError(err)
	s.Require().Len(records, 5)
	for i, rec := range records {
		s.Equal(ids[i], rec.ID)
		s.Equal([]float64{float64(i), 0.5, -0.25}, rec.Vector)
	}
}

func (s *PostgresStoreSuite) TestReset() {
	ctx := context.Background()
	s.Require().NoError(s.store.Append(ctx, models.Record{
		ID: uuid.NewString(), Vector: []float64{1}, ImageRef: "x.jpg", CreatedAt: time.Now(),
	}))
	s.Require().NoError(s.store.Reset(ctx))

	records, err := s.store.ScanAll(ctx)
	s.Require().NoError(err)
	s.Empty(records)
}
