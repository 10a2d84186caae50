package file

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"kycgate/internal/platform/metrics"
	"kycgate/internal/registry/models"
)

type FileStoreSuite struct {
	suite.Suite
	dir     string
	path    string
	logs    *bytes.Buffer
	metrics *metrics.Metrics
	ctx     context.Context
}

func TestFileStoreSuite(t *testing.T) {
	suite.Run(t, new(FileStoreSuite))
}

func (s *FileStoreSuite) SetupTest() {
	s.dir = s.T().TempDir()
	s.path = filepath.Join(s.dir, "stored_embeddings.json")
	s.logs = &bytes.Buffer{}
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.ctx = context.Background()
}

func (s *FileStoreSuite) open() *Store {
	store, err := Open(s.path,
		WithLogger(slog.New(slog.NewJSONHandler(s.logs, nil))),
		WithMetrics(s.metrics),
	)
	s.Require().NoError(err)
	return store
}

func record(id string, v ...float64) models.Record {
	return models.Record{
		ID:        id,
		Vector:    v,
		ImageRef:  id + ".jpg",
		CreatedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (s *FileStoreSuite) TestMissingFileStartsEmpty() {
	store := s.open()
	records, err := store.ScanAll(s.ctx)
	s.Require().NoError(err)
	s.Empty(records)
	s.Zero(testutil.ToFloat64(s.metrics.RegistryRecoveries))
}

func (s *FileStoreSuite) TestAppendPersistsAcrossReopen() {
	store := s.open()
	s.Require().NoError(store.Append(s.ctx, record("a", 1, 0, 0)))
	s.Require().NoError(store.Append(s.ctx, record("b", 0, 1, 0)))

	reopened := s.open()
	records, err := reopened.ScanAll(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(records, 2)
	s.Equal("a", records[0].ID)
	s.Equal("b", records[1].ID)
	s.Equal([]float64{0, 1, 0}, records[1].Vector)
}

func (s *FileStoreSuite) TestNoTempFilesLeftBehind() {
	store := s.open()
	s.Require().NoError(store.Append(s.ctx, record("a", 1, 2)))

	entries, err := os.ReadDir(s.dir)
	s.Require().NoError(err)
	s.Len(entries, 1)
	s.Equal("stored_embeddings.json", entries[0].Name())
}

func (s *FileStoreSuite) TestRecovery() {
	cases := map[string]string{
		"truncated":         `{"dimension":2,"records":[{"id":"a","vector":[1,`,
		"not json":          `<html>oops</html>`,
		"wrong shape":       `[1,2,3]`,
		"mismatched length": `{"dimension":2,"records":[{"id":"a","vector":[1,2]},{"id":"b","vector":[1,2,3]}]}`,
		"empty vector":      `{"dimension":2,"records":[{"id":"a","vector":[]}]}`,
	}
	for name, content := range cases {
		s.Run(name, func() {
			s.Require().NoError(os.WriteFile(s.path, []byte(content), 0o600))
			before := testutil.ToFloat64(s.metrics.RegistryRecoveries)

			store := s.open()
			records, err := store.ScanAll(s.ctx)
			s.Require().NoError(err)
			s.Empty(records)
			s.Equal(before+1, testutil.ToFloat64(s.metrics.RegistryRecoveries))
			s.Contains(s.logs.String(), "registry file unreadable")

			aside, err := os.ReadFile(s.path + ".corrupt")
			s.Require().NoError(err)
			s.Equal(content, string(aside))

			s.Require().NoError(store.Append(s.ctx, record("fresh", 1, 1)))
			records, err = s.open().ScanAll(s.ctx)
			s.Require().NoError(err)
			s.Len(records, 1)

			s.Require().NoError(os.Remove(s.path))
		})
	}
}

func (s *FileStoreSuite) TestReset() {
	store := s.open()
	s.Require().NoError(store.Append(s.ctx, record("a", 1, 2)))
	s.Require().NoError(store.Reset(s.ctx))

	records, err := s.open().ScanAll(s.ctx)
	s.Require().NoError(err)
	s.Empty(records)
}

func (s *FileStoreSuite) TestFailedWriteLeavesCollectionUnchanged() {
	store := s.open()
	s.Require().NoError(store.Append(s.ctx, record("a", 1, 2)))

	store.path = filepath.Join(s.dir, "missing-dir", "registry.json")
	s.Error(store.Append(s.ctx, record("b", 3, 4)))

	records, err := store.ScanAll(s.ctx)
	s.Require().NoError(err)
	s.Len(records, 1)
}
