package bucket

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

const (
	testLimit  = 5
	testWindow = 10 * time.Second
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type InMemoryBucketStoreSuite struct {
	suite.Suite
	clock *fakeClock
	store *InMemoryBucketStore
	ctx   context.Context
}

func TestInMemoryBucketStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryBucketStoreSuite))
}

func (s *InMemoryBucketStoreSuite) SetupTest() {
	s.clock = &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	s.store = New(WithClock(s.clock.Now))
	s.ctx = context.Background()
}

func (s *InMemoryBucketStoreSuite) TestAllow() {
	s.Run("first request allowed", func() {
		result, err := s.store.Allow(s.ctx, "first", testLimit, testWindow)
		s.Require().NoError(err)
		s.True(result.Allowed)
		s.Equal(testLimit, result.Limit)
		s.Equal(testLimit-1, result.Remaining)
	})

	s.Run("sixth request inside window denied", func() {
		for i := range testLimit {
			result, err := s.store.Allow(s.ctx, "burst", testLimit, testWindow)
			s.Require().NoError(err)
			s.True(result.Allowed, "request %d", i+1)
			s.clock.Advance(100 * time.Millisecond)
		}
		result, err := s.store.Allow(s.ctx, "burst", testLimit, testWindow)
		s.Require().NoError(err)
		s.False(result.Allowed)
		s.Equal(0, result.Remaining)
	})

	s.Run("denied request is not recorded", func() {
		for range testLimit + 3 {
			_, err := s.store.Allow(s.ctx, "denied", testLimit, testWindow)
			s.Require().NoError(err)
		}
		count, err := s.store.GetCurrentCount(s.ctx, "denied", testWindow)
		s.Require().NoError(err)
		s.Equal(testLimit, count)
	})

	s.Run("window slides after expiry", func() {
		for range testLimit {
			_, err := s.store.Allow(s.ctx, "slide", testLimit, testWindow)
			s.Require().NoError(err)
		}
		s.clock.Advance(11 * time.Second)
		result, err := s.store.Allow(s.ctx, "slide", testLimit, testWindow)
		s.Require().NoError(err)
		s.True(result.Allowed)
		s.Equal(testLimit-1, result.Remaining)
	})

	s.Run("entry exactly window old is pruned", func() {
		_, err := s.store.Allow(s.ctx, "edge", 1, testWindow)
		s.Require().NoError(err)
		s.clock.Advance(testWindow)
		result, err := s.store.Allow(s.ctx, "edge", 1, testWindow)
		s.Require().NoError(err)
		s.True(result.Allowed)
	})

	s.Run("keys are independent", func() {
		for range testLimit {
			_, err := s.store.Allow(s.ctx, "client-a", testLimit, testWindow)
			s.Require().NoError(err)
		}
		result, err := s.store.Allow(s.ctx, "client-b", testLimit, testWindow)
		s.Require().NoError(err)
		s.True(result.Allowed)
	})
}

func (s *InMemoryBucketStoreSuite) TestReset() {
	for range testLimit {
		_, err := s.store.Allow(s.ctx, "reset", testLimit, testWindow)
		s.Require().NoError(err)
	}
	s.Require().NoError(s.store.Reset(s.ctx, "reset"))

	count, err := s.store.GetCurrentCount(s.ctx, "reset", testWindow)
	s.Require().NoError(err)
	s.Zero(count)
}

func (s *InMemoryBucketStoreSuite) TestSweep() {
	_, err := s.store.Allow(s.ctx, "idle", testLimit, testWindow)
	s.Require().NoError(err)
	s.clock.Advance(testWindow / 2)
	_, err = s.store.Allow(s.ctx, "active", testLimit, testWindow)
	s.Require().NoError(err)

	s.clock.Advance(testWindow/2 + time.Second)
	s.Equal(1, s.store.Sweep(testWindow))

	total, _ := s.store.Stats()
	s.Equal(1, total)
}

func (s *InMemoryBucketStoreSuite) TestConcurrentAllowNeverExceedsLimit() {
	const workers = 50
	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := s.store.Allow(s.ctx, "concurrent", testLimit, testWindow)
			if err != nil || !result.Allowed {
				return
			}
			mu.Lock()
			allowed++
			mu.Unlock()
		}()
	}
	wg.Wait()
	s.Equal(testLimit, allowed)
}
