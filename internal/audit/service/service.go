// Package service records verification and search attempts. Recording is
// best effort: a failing log never changes the outcome it describes.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"kycgate/internal/audit/models"
	"kycgate/internal/audit/ports"
	"kycgate/internal/device"
	"kycgate/internal/platform/metrics"
	dErrors "kycgate/pkg/domain-errors"
	"kycgate/pkg/requestcontext"
)

// Streamer receives every successfully recorded attempt.
type Streamer interface {
	Enqueue(a models.Attempt)
}

type Auditor struct {
	store    ports.Store
	sink     string
	streamer Streamer
	devices  *device.Service
	logger   *slog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

type Option func(*Auditor)

func WithLogger(logger *slog.Logger) Option {
	return func(a *Auditor) {
		a.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Auditor) {
		a.metrics = m
	}
}

// WithStreamer forwards recorded attempts to s.
func WithStreamer(s Streamer) Option {
	return func(a *Auditor) {
		a.streamer = s
	}
}

func WithDeviceService(d *device.Service) Option {
	return func(a *Auditor) {
		a.devices = d
	}
}

// WithSinkName labels store failures in metrics, e.g. "file" or "postgres".
func WithSinkName(name string) Option {
	return func(a *Auditor) {
		a.sink = name
	}
}

func WithClock(now func() time.Time) Option {
	return func(a *Auditor) {
		if now != nil {
			a.now = now
		}
	}
}

func New(store ports.Store, opts ...Option) (*Auditor, error) {
	if store == nil {
		return nil, errors.New("attempt store is required")
	}
	a := &Auditor{
		store: store,
		sink:  "store",
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	if a.devices == nil {
		a.devices = device.NewService(true)
	}
	return a, nil
}

// Record fills the attempt's identity and request context, then appends it.
// It never returns an error.
func (a *Auditor) Record(ctx context.Context, attempt models.Attempt) {
	if attempt.ID == "" {
		attempt.ID = uuid.NewString()
	}
	if attempt.Timestamp.IsZero() {
		attempt.Timestamp = a.timestamp(ctx)
	}
	if attempt.RequestID == "" {
		attempt.RequestID = requestcontext.RequestID(ctx)
	}
	if attempt.ClientIP == "" {
		attempt.ClientIP = requestcontext.ClientIP(ctx)
	}
	if attempt.Device == "" {
		ua := requestcontext.UserAgent(ctx)
		attempt.Device = device.ParseUserAgent(ua)
		attempt.DeviceFingerprint = a.devices.ComputeFingerprint(ua)
	}

	if err := a.store.Append(ctx, attempt); err != nil {
		a.metrics.IncrementAuditFailures(a.sink)
		a.logger.ErrorContext(ctx, "failed to record attempt",
			"attempt_id", attempt.ID,
			"attempt_type", attempt.Type,
			"status", attempt.Status,
			"request_id", attempt.RequestID,
			"error", err,
		)
		return
	}
	a.metrics.IncrementAttempts(string(attempt.Type), attempt.Status)
	a.logger.InfoContext(ctx, "attempt recorded",
		"event", "kyc_attempt",
		"log_type", "audit",
		"attempt_id", attempt.ID,
		"attempt_type", attempt.Type,
		"status", attempt.Status,
		"reason", attempt.Reason,
		"request_id", attempt.RequestID,
	)
	if a.streamer != nil {
		a.streamer.Enqueue(attempt)
	}
}

// timestamp prefers the injected clock, then the request-scoped time.
func (a *Auditor) timestamp(ctx context.Context) time.Time {
	if a.now != nil {
		return a.now().UTC()
	}
	return requestcontext.Now(ctx).UTC()
}

// List returns the full attempt log in append order.
func (a *Auditor) List(ctx context.Context) ([]models.Attempt, error) {
	attempts, err := a.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read attempt log")
	}
	return attempts, nil
}

// Stats summarizes the attempt log.
func (a *Auditor) Stats(ctx context.Context) (models.Stats, error) {
	attempts, err := a.List(ctx)
	if err != nil {
		return models.Stats{}, err
	}
	return models.Summarize(attempts), nil
}

// Clear removes the whole attempt log.
func (a *Auditor) Clear(ctx context.Context) error {
	if err := a.store.Clear(ctx); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to clear attempt log")
	}
	a.logger.InfoContext(ctx, "attempt log cleared",
		"event", "attempt_log_cleared",
		"log_type", "audit",
		"request_id", requestcontext.RequestID(ctx),
	)
	return nil
}
