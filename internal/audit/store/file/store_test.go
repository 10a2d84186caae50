package file

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"kycgate/internal/audit/models"
)

type FileStoreSuite struct {
	suite.Suite
	path  string
	logs  *bytes.Buffer
	store *Store
	ctx   context.Context
}

func TestFileStoreSuite(t *testing.T) {
	suite.Run(t, new(FileStoreSuite))
}

func (s *FileStoreSuite) SetupTest() {
	s.path = filepath.Join(s.T().TempDir(), "logs", "attempt_log.jsonl")
	s.logs = &bytes.Buffer{}
	store, err := Open(s.path, slog.New(slog.NewJSONHandler(s.logs, nil)))
	s.Require().NoError(err)
	s.store = store
	s.ctx = context.Background()
	s.T().Cleanup(func() { _ = store.Close() })
}

func attempt(id, status string) models.Attempt {
	return models.Attempt{
		ID:        id,
		Timestamp: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		Type:      models.AttemptVerify,
		Status:    status,
	}
}

func (s *FileStoreSuite) TestAppendAndList() {
	s.Require().NoError(s.store.Append(s.ctx, attempt("a", "approved")))
	s.Require().NoError(s.store.Append(s.ctx, attempt("b", "rejected")))

	attempts, err := s.store.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(attempts, 2)
	s.Equal("a", attempts[0].ID)
	s.Equal("rejected", attempts[1].Status)
}

func (s *FileStoreSuite) TestSkipsUnreadableLines() {
	s.Require().NoError(s.store.Append(s.ctx, attempt("a", "approved")))
	f, err := os.OpenFile(s.path, os.O_WRONLY|os.O_APPEND, 0)
	s.Require().NoError(err)
	_, err = f.WriteString("{\"id\":\"broken\n")
	s.Require().NoError(err)
	s.Require().NoError(f.Close())
	s.Require().NoError(s.store.Append(s.ctx, attempt("c", "rejected")))

	attempts, err := s.store.List(s.ctx)
	s.Require().NoError(err)
	s.Len(attempts, 2)
	s.Contains(s.logs.String(), "skipping unreadable attempt log line")
}

func (s *FileStoreSuite) TestConcurrentAppendsDoNotInterleave() {
	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.NoError(s.store.Append(s.ctx, attempt(fmt.Sprintf("id-%d", i), "rejected")))
		}()
	}
	wg.Wait()

	attempts, err := s.store.List(s.ctx)
	s.Require().NoError(err)
	s.Len(attempts, 50)
	s.NotContains(s.logs.String(), "skipping")
}

func (s *FileStoreSuite) TestClear() {
	s.Require().NoError(s.store.Append(s.ctx, attempt("a", "approved")))
	s.Require().NoError(s.store.Clear(s.ctx))

	attempts, err := s.store.List(s.ctx)
	s.Require().NoError(err)
	s.Empty(attempts)

	s.Require().NoError(s.store.Append(s.ctx, attempt("b", "approved")))
	attempts, err = s.store.List(s.ctx)
	s.Require().NoError(err)
	s.Len(attempts, 1)
}
