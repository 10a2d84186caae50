package service

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"kycgate/internal/audit/models"
	"kycgate/internal/audit/store/memory"
	"kycgate/internal/platform/metrics"
	dErrors "kycgate/pkg/domain-errors"
	"kycgate/pkg/requestcontext"
)

type failingStore struct{}

func (failingStore) Append(context.Context, models.Attempt) error { return errors.New("disk full") }
func (failingStore) List(context.Context) ([]models.Attempt, error) {
	return nil, errors.New("disk full")
}
func (failingStore) Clear(context.Context) error { return errors.New("disk full") }

type captureStreamer struct {
	attempts []models.Attempt
}

func (c *captureStreamer) Enqueue(a models.Attempt) { c.attempts = append(c.attempts, a) }

type AuditorSuite struct {
	suite.Suite
	store    *memory.InMemoryStore
	streamer *captureStreamer
	metrics  *metrics.Metrics
	logs     *bytes.Buffer
	auditor  *Auditor
	now      time.Time
}

func TestAuditorSuite(t *testing.T) {
	suite.Run(t, new(AuditorSuite))
}

func (s *AuditorSuite) SetupTest() {
	s.store = memory.New()
	s.streamer = &captureStreamer{}
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.logs = &bytes.Buffer{}
	s.now = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	auditor, err := New(s.store,
		WithLogger(slog.New(slog.NewJSONHandler(s.logs, nil))),
		WithMetrics(s.metrics),
		WithStreamer(s.streamer),
		WithClock(func() time.Time { return s.now }),
	)
	s.Require().NoError(err)
	s.auditor = auditor
}

func (s *AuditorSuite) TestRecordFillsContext() {
	ctx := requestcontext.WithRequestID(context.Background(), "req-123")
	ctx = requestcontext.WithClientMetadata(ctx, "203.0.113.9",
		"Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0")

	s.auditor.Record(ctx, models.Attempt{Type: models.AttemptVerify, Status: "rejected", Reason: "liveness failed"})

	attempts, err := s.auditor.List(ctx)
	s.Require().NoError(err)
	s.Require().Len(attempts, 1)
	got := attempts[0]
	s.NotEmpty(got.ID)
	s.Equal(s.now, got.Timestamp)
	s.Equal("req-123", got.RequestID)
	s.Equal("203.0.113.9", got.ClientIP)
	s.Contains(got.Device, "Firefox")
	s.Len(got.DeviceFingerprint, 64)

	s.Len(s.streamer.attempts, 1)
	s.Equal(float64(1), testutil.ToFloat64(s.metrics.AttemptsRecorded.WithLabelValues("verify", "rejected")))
	s.Contains(s.logs.String(), `"log_type":"audit"`)
}

func (s *AuditorSuite) TestRecordFailureIsSwallowed() {
	auditor, err := New(failingStore{},
		WithLogger(slog.New(slog.NewJSONHandler(s.logs, nil))),
		WithMetrics(s.metrics),
		WithSinkName("file"),
		WithStreamer(s.streamer),
	)
	s.Require().NoError(err)

	s.NotPanics(func() {
		auditor.Record(context.Background(), models.Attempt{Type: models.AttemptVerify, Status: "approved"})
	})
	s.Equal(float64(1), testutil.ToFloat64(s.metrics.AuditFailures.WithLabelValues("file")))
	s.Empty(s.streamer.attempts, "unrecorded attempts are not streamed")
	s.Contains(s.logs.String(), "failed to record attempt")

	_, err = auditor.Stats(context.Background())
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func (s *AuditorSuite) TestStatsAndClear() {
	ctx := context.Background()
	for _, status := range []string{"approved", "rejected", "rejected", "error"} {
		s.auditor.Record(ctx, models.Attempt{Type: models.AttemptVerify, Status: status})
	}

	stats, err := s.auditor.Stats(ctx)
	s.Require().NoError(err)
	s.Equal(models.Stats{TotalAttempts: 4, Approved: 1, Rejected: 2}, stats)

	s.Require().NoError(s.auditor.Clear(ctx))
	stats, err = s.auditor.Stats(ctx)
	s.Require().NoError(err)
	s.Zero(stats.TotalAttempts)
}
