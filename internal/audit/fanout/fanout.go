// Package fanout streams recorded attempts to a Publisher in the background so
// a slow or failing stream never delays a verification response.
package fanout

import (
	"context"
	"log/slog"
	"time"

	"kycgate/internal/audit/metrics"
	"kycgate/internal/audit/models"
	"kycgate/internal/audit/ports"
)

const (
	defaultBatchSize      = 100
	defaultFlushInterval  = 250 * time.Millisecond
	defaultPublishTimeout = 5 * time.Second
)

// Fanout buffers attempts and publishes them in batches from Run.
type Fanout struct {
	publisher ports.Publisher
	buffer    *RingBuffer
	breaker   *CircuitBreaker
	logger    *slog.Logger
	metrics   *metrics.Metrics

	batchSize      int
	flushInterval  time.Duration
	publishTimeout time.Duration
	wake           chan struct{}
}

type Option func(*Fanout)

func WithLogger(logger *slog.Logger) Option {
	return func(f *Fanout) {
		f.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(f *Fanout) {
		f.metrics = m
	}
}

func WithBufferSize(n int) Option {
	return func(f *Fanout) {
		f.buffer = NewRingBuffer(n)
	}
}

func WithCircuitBreaker(cb *CircuitBreaker) Option {
	return func(f *Fanout) {
		if cb != nil {
			f.breaker = cb
		}
	}
}

func WithFlushInterval(d time.Duration) Option {
	return func(f *Fanout) {
		if d > 0 {
			f.flushInterval = d
		}
	}
}

func New(publisher ports.Publisher, opts ...Option) *Fanout {
	f := &Fanout{
		publisher:      publisher,
		buffer:         NewRingBuffer(0),
		breaker:        NewCircuitBreaker(0, 0, nil),
		batchSize:      defaultBatchSize,
		flushInterval:  defaultFlushInterval,
		publishTimeout: defaultPublishTimeout,
		wake:           make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		f.logger = slog.Default()
	}
	return f
}

// Enqueue hands an attempt to the background publisher without blocking.
func (f *Fanout) Enqueue(a models.Attempt) {
	if f.buffer.Enqueue(a) {
		f.metrics.IncBufferDropped()
	}
	select {
	case f.wake <- struct{}{}:
	default:
	}
}

// Run publishes buffered attempts until ctx is done, then drains what is left.
func (f *Fanout) Run(ctx context.Context) {
	ticker := time.NewTicker(f.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			f.drain(context.WithoutCancel(ctx))
			return
		case <-ticker.C:
		case <-f.wake:
		}
		f.flush(ctx)
	}
}

func (f *Fanout) drain(ctx context.Context) {
	for f.buffer.Len() > 0 {
		if !f.flush(ctx) {
			return
		}
	}
}

// flush publishes up to one batch and reports whether it was delivered.
func (f *Fanout) flush(ctx context.Context) bool {
	batch := f.buffer.DequeueBatch(f.batchSize)
	if len(batch) == 0 {
		return true
	}
	if !f.breaker.Allow() {
		f.metrics.AddCircuitBreakerDropped(len(batch))
		return false
	}

	pubCtx, cancel := context.WithTimeout(ctx, f.publishTimeout)
	defer cancel()
	if err := f.publisher.Publish(pubCtx, batch...); err != nil {
		f.metrics.IncPublishFailures()
		open := f.breaker.RecordFailure()
		f.metrics.SetCircuitBreakerState(open)
		f.logger.WarnContext(ctx, "attempt stream publish failed",
			"attempts", len(batch),
			"circuit_open", open,
			"error", err,
		)
		return false
	}
	f.breaker.RecordSuccess()
	f.metrics.SetCircuitBreakerState(false)
	f.metrics.AddPublished(len(batch))
	return true
}
