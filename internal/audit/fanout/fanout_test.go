package fanout

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kycgate/internal/audit/metrics"
	"kycgate/internal/audit/models"
)

type capturePublisher struct {
	mu       sync.Mutex
	attempts []models.Attempt
	calls    int
	err      error
}

func (p *capturePublisher) Publish(_ context.Context, attempts ...models.Attempt) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.err != nil {
		return p.err
	}
	p.attempts = append(p.attempts, attempts...)
	return nil
}

func (p *capturePublisher) snapshot() ([]models.Attempt, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.Attempt(nil), p.attempts...), p.calls
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func TestRingBuffer(t *testing.T) {
	b := NewRingBuffer(3)
	for i := range 3 {
		assert.False(t, b.Enqueue(models.Attempt{ID: fmt.Sprint(i)}))
	}
	assert.True(t, b.Enqueue(models.Attempt{ID: "3"}), "full buffer drops oldest")
	assert.Equal(t, int64(1), b.Dropped())

	batch := b.DequeueBatch(2)
	require.Len(t, batch, 2)
	assert.Equal(t, "1", batch[0].ID)
	assert.Equal(t, "2", batch[1].ID)
	assert.Equal(t, 1, b.Len())
	assert.Len(t, b.DequeueBatch(10), 1)
	assert.Nil(t, b.DequeueBatch(1))
}

func TestCircuitBreaker(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker(2, time.Minute, func() time.Time { return now })

	assert.True(t, cb.Allow())
	assert.False(t, cb.RecordFailure())
	assert.True(t, cb.RecordFailure())
	assert.False(t, cb.Allow())

	now = now.Add(61 * time.Second)
	assert.True(t, cb.Allow(), "half-open after cooldown")
	assert.True(t, cb.RecordFailure(), "one failure in half-open reopens")

	now = now.Add(61 * time.Second)
	assert.True(t, cb.Allow())
	cb.RecordSuccess()
	assert.False(t, cb.IsOpen())
}

func TestFanoutPublishesAndDrainsOnShutdown(t *testing.T) {
	pub := &capturePublisher{}
	m := metrics.New(prometheus.NewRegistry())
	f := New(pub, WithLogger(quietLogger()), WithMetrics(m), WithFlushInterval(10*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.Run(ctx)
		close(done)
	}()

	for i := range 5 {
		f.Enqueue(models.Attempt{ID: fmt.Sprint(i)})
	}
	assert.Eventually(t, func() bool {
		got, _ := pub.snapshot()
		return len(got) == 5
	}, time.Second, 5*time.Millisecond)

	f.Enqueue(models.Attempt{ID: "late"})
	cancel()
	<-done

	got, _ := pub.snapshot()
	assert.Equal(t, "late", got[len(got)-1].ID)
	assert.Equal(t, float64(6), testutil.ToFloat64(m.Published))
}

func TestFanoutOpensCircuitOnFailures(t *testing.T) {
	pub := &capturePublisher{err: errors.New("broker down")}
	m := metrics.New(prometheus.NewRegistry())
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	f := New(pub,
		WithLogger(quietLogger()),
		WithMetrics(m),
		WithCircuitBreaker(NewCircuitBreaker(2, time.Hour, func() time.Time { return now })),
	)

	for i := range 4 {
		f.Enqueue(models.Attempt{ID: fmt.Sprint(i)})
		f.flush(context.Background())
	}

	_, calls := pub.snapshot()
	assert.Equal(t, 2, calls, "publisher is not called while the circuit is open")
	assert.Equal(t, float64(2), testutil.ToFloat64(m.PublishFailures))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.CircuitBreakerDropped))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CircuitBreakerState))
}
