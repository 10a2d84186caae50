// Package service implements per-client admission for the verification
// endpoint using a sliding window over a BucketStore.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"kycgate/internal/ratelimit/metrics"
	"kycgate/internal/ratelimit/models"
	"kycgate/internal/ratelimit/observability"
	"kycgate/internal/ratelimit/ports"
	dErrors "kycgate/pkg/domain-errors"
)

type BucketStore = ports.BucketStore

// Limiter admits at most maxRequests per client inside any window-long interval.
type Limiter struct {
	buckets     BucketStore
	maxRequests int
	window      time.Duration
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

type Option func(*Limiter)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Limiter) {
		l.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Limiter) {
		l.metrics = m
	}
}

func New(buckets BucketStore, maxRequests int, window time.Duration, opts ...Option) (*Limiter, error) {
	if buckets == nil {
		return nil, errors.New("buckets store is required")
	}
	if maxRequests < 1 {
		return nil, errors.New("max requests must be at least 1")
	}
	if window <= 0 {
		return nil, errors.New("window must be positive")
	}

	l := &Limiter{
		buckets:     buckets,
		maxRequests: maxRequests,
		window:      window,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	return l, nil
}

// Admit reports whether clientID may proceed and records the request when it
// may. Store failures admit the request.
func (l *Limiter) Admit(ctx context.Context, clientID string) bool {
	result, err := l.Check(ctx, clientID)
	if err != nil {
		l.metrics.IncrementStoreErrors()
		l.logger.ErrorContext(ctx, "rate limit store failed, admitting request",
			"client_id", clientID,
			"error", err,
		)
		return true
	}
	return result.Allowed
}

// Check is Admit with the full window result.
func (l *Limiter) Check(ctx context.Context, clientID string) (*models.RateLimitResult, error) {
	result, err := l.buckets.Allow(ctx, models.NewVerifyKey(clientID), l.maxRequests, l.window)
	if err != nil {
		return nil, err
	}
	if result.Allowed {
		l.metrics.IncrementAdmitted()
		return result, nil
	}
	l.metrics.IncrementDenied()
	observability.LogAudit(ctx, l.logger, slog.LevelWarn, "rate_limit_exceeded",
		slog.String("client_id", clientID),
		slog.Int("limit", l.maxRequests),
		slog.Duration("window", l.window),
	)
	return result, nil
}

// Reset clears the admission window for clientID.
func (l *Limiter) Reset(ctx context.Context, clientID string) error {
	if clientID == "" {
		return dErrors.New(dErrors.CodeValidation, "client_id is required")
	}
	if err := l.buckets.Reset(ctx, models.NewVerifyKey(clientID)); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to reset rate limit")
	}
	l.metrics.IncrementResets()
	observability.LogAudit(ctx, l.logger, slog.LevelInfo, "rate_limit_reset", slog.String("client_id", clientID))
	return nil
}

// Usage returns how many requests clientID has inside the current window.
func (l *Limiter) Usage(ctx context.Context, clientID string) (int, error) {
	n, err := l.buckets.GetCurrentCount(ctx, models.NewVerifyKey(clientID), l.window)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read rate limit usage")
	}
	return n, nil
}

func (l *Limiter) MaxRequests() int { return l.maxRequests }
