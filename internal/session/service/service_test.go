package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"kycgate/internal/platform/metrics"
	"kycgate/internal/session/models"
	"kycgate/internal/session/store"
	dErrors "kycgate/pkg/domain-errors"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type brokenStore struct{}

func (brokenStore) Insert(context.Context, models.Session, time.Time, time.Duration, int) error {
	return errors.New("redis: connection pool timeout")
}

func (brokenStore) Exists(context.Context, string, time.Time, time.Duration) (bool, error) {
	return false, errors.New("redis: connection pool timeout")
}

func (brokenStore) Take(context.Context, string, time.Time, time.Duration) (bool, error) {
	return false, errors.New("redis: connection pool timeout")
}

func (brokenStore) Count(context.Context, time.Time, time.Duration) (int, error) {
	return 0, errors.New("redis: connection pool timeout")
}

type GuardSuite struct {
	suite.Suite
	clock   *clock
	metrics *metrics.Metrics
	guard   *Guard
	ctx     context.Context
}

func TestGuardSuite(t *testing.T) {
	suite.Run(t, new(GuardSuite))
}

func (s *GuardSuite) SetupTest() {
	s.clock = &clock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	s.metrics = metrics.New(prometheus.NewRegistry())
	guard, err := New(store.New(), 300*time.Second, 2,
		WithClock(s.clock.Now),
		WithMetrics(s.metrics),
	)
	s.Require().NoError(err)
	s.guard = guard
	s.ctx = context.Background()
}

func (s *GuardSuite) TestIssue() {
	s.Run("token is 32 hex characters", func() {
		sess, err := s.guard.Issue(s.ctx)
		s.Require().NoError(err)
		s.Len(sess.Token, 32)
		s.Regexp("^[0-9a-f]{32}$", sess.Token)
		s.Equal(s.clock.Now(), sess.IssuedAt)
	})

	s.Run("tokens are distinct", func() {
		a, err := s.guard.Issue(s.ctx)
		s.Require().NoError(err)
		s.True(s.guard.Consume(s.ctx, a.Token))
		b, err := s.guard.Issue(s.ctx)
		s.Require().NoError(err)
		s.NotEqual(a.Token, b.Token)
	})

	s.Run("capacity reached returns unavailable", func() {
		_, err := s.guard.Issue(s.ctx)
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
		s.Equal(float64(1), testutil.ToFloat64(s.metrics.SessionsRefused))
	})

	s.Run("expired sessions free capacity", func() {
		s.clock.Advance(301 * time.Second)
		_, err := s.guard.Issue(s.ctx)
		s.NoError(err)
	})
}

func (s *GuardSuite) TestValidate() {
	sess, err := s.guard.Issue(s.ctx)
	s.Require().NoError(err)

	s.True(s.guard.Validate(s.ctx, sess.Token))
	s.True(s.guard.Validate(s.ctx, sess.Token), "validate is repeatable")
	s.False(s.guard.Validate(s.ctx, ""))
	s.False(s.guard.Validate(s.ctx, "0123456789abcdef0123456789abcdef"))

	s.clock.Advance(300 * time.Second)
	s.True(s.guard.Validate(s.ctx, sess.Token))
	s.clock.Advance(time.Second)
	s.False(s.guard.Validate(s.ctx, sess.Token))
}

func (s *GuardSuite) TestConsume() {
	sess, err := s.guard.Issue(s.ctx)
	s.Require().NoError(err)

	s.True(s.guard.Consume(s.ctx, sess.Token))
	s.False(s.guard.Consume(s.ctx, sess.Token))
	s.False(s.guard.Validate(s.ctx, sess.Token))
}

func (s *GuardSuite) TestStoreFailure() {
	guard, err := New(brokenStore{}, time.Minute, 10)
	s.Require().NoError(err)

	_, err = guard.Issue(s.ctx)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	s.False(guard.Validate(s.ctx, "tok"))
	s.False(guard.Consume(s.ctx, "tok"))
}
