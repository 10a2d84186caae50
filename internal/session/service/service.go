// Package service issues and checks verification session tokens.
package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"kycgate/internal/platform/metrics"
	"kycgate/internal/session/models"
	"kycgate/internal/session/ports"
	dErrors "kycgate/pkg/domain-errors"
	"kycgate/pkg/platform/sentinel"
)

const tokenBytes = 16

type Store = ports.Store

// Guard bounds the number of live sessions and expires them after ttl.
type Guard struct {
	store       Store
	ttl         time.Duration
	maxSessions int
	logger      *slog.Logger
	metrics     *metrics.Metrics
	now         func() time.Time
	newToken    func() (string, error)
}

type Option func(*Guard)

func WithLogger(logger *slog.Logger) Option {
	return func(g *Guard) {
		g.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Guard) {
		g.metrics = m
	}
}

func WithClock(now func() time.Time) Option {
	return func(g *Guard) {
		if now != nil {
			g.now = now
		}
	}
}

func New(store Store, ttl time.Duration, maxSessions int, opts ...Option) (*Guard, error) {
	if store == nil {
		return nil, errors.New("session store is required")
	}
	if ttl <= 0 {
		return nil, errors.New("session ttl must be positive")
	}
	if maxSessions < 1 {
		return nil, errors.New("max sessions must be at least 1")
	}
	g := &Guard{
		store:       store,
		ttl:         ttl,
		maxSessions: maxSessions,
		now:         time.Now,
		newToken:    randomToken,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}
	return g, nil
}

// Issue creates a new session. It fails with CodeUnavailable when the live
// session cap is reached.
func (g *Guard) Issue(ctx context.Context) (*models.Session, error) {
	token, err := g.newToken()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate session token")
	}
	now := g.now()
	sess := models.Session{Token: token, IssuedAt: now}

	if err := g.store.Insert(ctx, sess, now, g.ttl, g.maxSessions); err != nil {
		if errors.Is(err, sentinel.ErrCapacity) {
			g.metrics.IncrementSessionsRefused()
			g.logger.WarnContext(ctx, "session capacity reached", "max_sessions", g.maxSessions)
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "too many active sessions")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store session")
	}
	g.metrics.IncrementSessionsIssued()
	return &sess, nil
}

// Validate reports whether token is live without consuming it.
func (g *Guard) Validate(ctx context.Context, token string) bool {
	if token == "" {
		return false
	}
	ok, err := g.store.Exists(ctx, token, g.now(), g.ttl)
	if err != nil {
		g.logger.ErrorContext(ctx, "session lookup failed", "error", err)
		return false
	}
	return ok
}

// Consume reports whether token is live and removes it, so each token passes
// at most once.
func (g *Guard) Consume(ctx context.Context, token string) bool {
	if token == "" {
		return false
	}
	ok, err := g.store.Take(ctx, token, g.now(), g.ttl)
	if err != nil {
		g.logger.ErrorContext(ctx, "session consume failed", "error", err)
		return false
	}
	return ok
}

// Live returns the number of unexpired sessions.
func (g *Guard) Live(ctx context.Context) (int, error) {
	n, err := g.store.Count(ctx, g.now(), g.ttl)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count sessions")
	}
	return n, nil
}

func (g *Guard) TTL() time.Duration { return g.ttl }

func randomToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return hex.EncodeToString(b), nil
}
