package service

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"kycgate/internal/ratelimit/metrics"
	"kycgate/internal/ratelimit/models"
	"kycgate/internal/ratelimit/store/bucket"
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

type failingStore struct{}

func (failingStore) Allow(context.Context, string, int, time.Duration) (*models.RateLimitResult, error) {
	return nil, errors.New("connection refused")
}

func (failingStore) Reset(context.Context, string) error { return errors.New("connection refused") }

func (failingStore) GetCurrentCount(context.Context, string, time.Duration) (int, error) {
	return 0, errors.New("connection refused")
}

type LimiterSuite struct {
	suite.Suite
	clock   *clock
	metrics *metrics.Metrics
	limiter *Limiter
	logs    *bytes.Buffer
	ctx     context.Context
}

func TestLimiterSuite(t *testing.T) {
	suite.Run(t, new(LimiterSuite))
}

func (s *LimiterSuite) SetupTest() {
	s.clock = &clock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.logs = &bytes.Buffer{}
	limiter, err := New(bucket.New(bucket.WithClock(s.clock.Now)), 5, 10*time.Second,
		WithLogger(slog.New(slog.NewJSONHandler(s.logs, nil))),
		WithMetrics(s.metrics),
	)
	s.Require().NoError(err)
	s.limiter = limiter
	s.ctx = context.Background()
}

func (s *LimiterSuite) TestNewValidation() {
	_, err := New(nil, 5, time.Second)
	s.Error(err)
	_, err = New(bucket.New(), 0, time.Second)
	s.Error(err)
	_, err = New(bucket.New(), 5, 0)
	s.Error(err)
}

func (s *LimiterSuite) TestAdmit() {
	s.Run("five requests in one second admitted, sixth denied", func() {
		for i := range 5 {
			s.True(s.limiter.Admit(s.ctx, "198.51.100.1"), "request %d", i+1)
			s.clock.Advance(150 * time.Millisecond)
		}
		s.False(s.limiter.Admit(s.ctx, "198.51.100.1"))
		s.Equal(float64(5), testutil.ToFloat64(s.metrics.Admitted))
		s.Equal(float64(1), testutil.ToFloat64(s.metrics.Denied))
	})

	s.Run("admitted again once the window passes", func() {
		s.clock.Advance(11 * time.Second)
		s.True(s.limiter.Admit(s.ctx, "198.51.100.1"))
	})

	s.Run("other clients unaffected", func() {
		s.True(s.limiter.Admit(s.ctx, "198.51.100.2"))
	})
}

func (s *LimiterSuite) TestStoreFailureAdmits() {
	m := metrics.New(prometheus.NewRegistry())
	limiter, err := New(failingStore{}, 5, 10*time.Second,
		WithLogger(slog.New(slog.NewJSONHandler(s.logs, nil))),
		WithMetrics(m),
	)
	s.Require().NoError(err)

	s.True(limiter.Admit(s.ctx, "198.51.100.3"))
	s.Equal(float64(1), testutil.ToFloat64(m.StoreErrors))
	s.Contains(s.logs.String(), "rate limit store failed")
}

func (s *LimiterSuite) TestReset() {
	s.Run("requires client id", func() {
		err := s.limiter.Reset(s.ctx, "")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("clears the window", func() {
		for range 5 {
			s.limiter.Admit(s.ctx, "198.51.100.4")
		}
		s.Require().NoError(s.limiter.Reset(s.ctx, "198.51.100.4"))
		n, err := s.limiter.Usage(s.ctx, "198.51.100.4")
		s.Require().NoError(err)
		s.Zero(n)
		s.Contains(s.logs.String(), `"event":"rate_limit_reset"`)
	})

	s.Run("store failure is internal", func() {
		limiter, err := New(failingStore{}, 5, time.Second)
		s.Require().NoError(err)
		err = limiter.Reset(s.ctx, "x")
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})
}
