// Package service runs the verification pipeline: admission, session,
// biometric gates, duplicate check and the single registry write on approval.
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	auditmodels "kycgate/internal/audit/models"
	"kycgate/internal/decision"
	decisionmetrics "kycgate/internal/decision/metrics"
	registrymodels "kycgate/internal/registry/models"
	"kycgate/internal/verification/gates"
	"kycgate/internal/verification/models"
	"kycgate/internal/verification/ports"
	"kycgate/pkg/requestcontext"
)

const (
	tracerName = "kycgate/verification"

	// auditTimeout bounds an attempt write once it is detached from the request.
	auditTimeout = 5 * time.Second
)

// Limiter admits or refuses a client's request.
type Limiter interface {
	Admit(ctx context.Context, clientID string) bool
}

// Sessions validates verification session tokens.
type Sessions interface {
	Validate(ctx context.Context, token string) bool
	Consume(ctx context.Context, token string) bool
}

// Registry is the duplicate-identity store.
type Registry interface {
	FindDuplicate(ctx context.Context, vector []float64) (bool, error)
	Search(ctx context.Context, vector []float64) (registrymodels.SearchResult, error)
	AppendUnique(ctx context.Context, img registrymodels.Image, vector []float64) (registrymodels.Record, bool, error)
}

// Auditor records every completed run.
type Auditor interface {
	Record(ctx context.Context, attempt auditmodels.Attempt)
}

// Config holds the pipeline thresholds and limits.
type Config struct {
	IdentityThreshold float64
	MinConfidence     float64
	SpoofMaxRisk      float64
	MotionThreshold   float64
	MotionFallback    bool
	MinFrames         int
	MaxFrames         int
	Timeout           time.Duration
	OffloadWorkers    int
	SingleUseSessions bool
}

// Dependencies are the components the pipeline composes.
type Dependencies struct {
	Limiter    Limiter
	Sessions   Sessions
	Registry   Registry
	Auditor    Auditor
	Embeddings ports.EmbeddingExtractor
	Frames     ports.FrameExtractor
	Liveness   ports.LivenessScorer
	Spoof      ports.SpoofScorer
}

type Service struct {
	cfg  Config
	deps Dependencies

	livenessGate gates.LivenessGate
	spoofGate    gates.AntiSpoofGate
	motion       gates.MotionLiveness
	matcher      gates.IdentityMatcher
	pool         *offloader

	logger  *slog.Logger
	metrics *decisionmetrics.Metrics
	tracer  trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *decisionmetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

func New(cfg Config, deps Dependencies, opts ...Option) (*Service, error) {
	switch {
	case deps.Limiter == nil:
		return nil, errors.New("rate limiter is required")
	case deps.Sessions == nil:
		return nil, errors.New("session guard is required")
	case deps.Registry == nil:
		return nil, errors.New("registry is required")
	case deps.Auditor == nil:
		return nil, errors.New("auditor is required")
	case deps.Embeddings == nil || deps.Frames == nil || deps.Liveness == nil || deps.Spoof == nil:
		return nil, errors.New("all vision collaborators are required")
	}
	if cfg.MinFrames < 1 {
		return nil, fmt.Errorf("min frames must be positive, got %d", cfg.MinFrames)
	}
	if cfg.MaxFrames < cfg.MinFrames {
		return nil, fmt.Errorf("max frames %d is below min frames %d", cfg.MaxFrames, cfg.MinFrames)
	}
	if cfg.Timeout <= 0 {
		return nil, errors.New("verify timeout must be positive")
	}

	s := &Service{
		cfg:          cfg,
		deps:         deps,
		livenessGate: gates.NewLivenessGate(cfg.MinConfidence),
		spoofGate:    gates.NewAntiSpoofGate(cfg.SpoofMaxRisk),
		motion:       gates.NewMotionLiveness(cfg.MotionThreshold),
		matcher:      gates.NewIdentityMatcher(cfg.IdentityThreshold),
		pool:         newOffloader(cfg.OffloadWorkers),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer(tracerName)
	}
	return s, nil
}

// Verify runs one submission through the pipeline and returns its single
// terminal decision. Every run except a rate limited one is audited.
func (s *Service) Verify(ctx context.Context, req models.VerifyRequest) decision.Decision {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "verification.Verify",
		trace.WithAttributes(attribute.String("client_id", req.ClientID)))
	defer span.End()

	var d decision.Decision
	if !s.deps.Limiter.Admit(ctx, req.ClientID) {
		d = decision.For(decision.RateLimited)
		s.logger.WarnContext(ctx, "verification rate limited",
			"request_id", requestcontext.RequestID(ctx),
			"client_id", req.ClientID,
		)
	} else {
		attempt := auditmodels.Attempt{Type: auditmodels.AttemptVerify}
		d = s.runGuarded(ctx, req, &attempt)
		attempt.Status = string(d.Status)
		attempt.State = d.State.String()
		attempt.Reason = d.Reason
		s.record(ctx, attempt)
	}

	span.SetAttributes(
		attribute.String("decision.state", d.State.String()),
		attribute.String("decision.status", string(d.Status)),
	)
	if d.Status == decision.StatusError {
		span.SetStatus(codes.Error, d.Reason)
	}
	s.metrics.IncrementOutcome(d.State.String(), string(d.Status))
	s.metrics.ObserveVerifyLatency(time.Since(start))
	s.logger.InfoContext(ctx, "verification decided",
		"request_id", requestcontext.RequestID(ctx),
		"state", d.State.String(),
		"status", d.Status,
		"reason", d.Reason,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return d
}

// record writes the attempt even when the client has already gone away.
func (s *Service) record(ctx context.Context, attempt auditmodels.Attempt) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditTimeout)
	defer cancel()
	s.deps.Auditor.Record(ctx, attempt)
}

// runGuarded bounds the pipeline by the request deadline and turns errors and
// panics into PipelineError.
func (s *Service) runGuarded(ctx context.Context, req models.VerifyRequest, attempt *auditmodels.Attempt) (d decision.Decision) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.ErrorContext(ctx, "verification pipeline panicked",
				"request_id", requestcontext.RequestID(ctx),
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()),
			)
			d = decision.For(decision.PipelineError)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	d, err := s.run(ctx, req, attempt)
	if err != nil {
		s.logger.ErrorContext(ctx, "verification pipeline failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		trace.SpanFromContext(ctx).RecordError(err)
		return decision.For(decision.PipelineError)
	}
	return d
}

// run executes the stages in order and stops at the first rejection. An error
// return is a system failure, never an expected rejection.
func (s *Service) run(ctx context.Context, req models.VerifyRequest, attempt *auditmodels.Attempt) (decision.Decision, error) {
	if !s.checkSession(ctx, req.SessionToken) {
		return decision.For(decision.SessionInvalid), nil
	}

	selfie, format, err := decodeImage(req.Selfie)
	if err != nil {
		s.logger.InfoContext(ctx, "selfie rejected",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		return decision.For(decision.ImageInvalid), nil
	}

	reference, err := stage(ctx, s, "embedding", func(ctx context.Context) ([]float64, error) {
		return offload(ctx, s.pool, func(ctx context.Context) ([]float64, error) {
			return s.deps.Embeddings.ExtractEmbedding(ctx, selfie)
		})
	})
	if err != nil {
		return decision.Decision{}, fmt.Errorf("extract selfie embedding: %w", err)
	}
	if len(reference) == 0 {
		return decision.For(decision.EncodingFailed), nil
	}

	frames, err := stage(ctx, s, "frames", func(ctx context.Context) ([]image.Image, error) {
		return offload(ctx, s.pool, func(ctx context.Context) ([]image.Image, error) {
			return s.deps.Frames.ExtractFrames(ctx, req.Video, s.cfg.MaxFrames)
		})
	})
	if err != nil {
		return decision.Decision{}, fmt.Errorf("extract frames: %w", err)
	}
	if len(frames) < s.cfg.MinFrames {
		return decision.For(decision.FramesInsufficient), nil
	}

	spoof, err := stage(ctx, s, "anti_spoof", func(ctx context.Context) (models.SpoofVerdict, error) {
		risk, err := offload(ctx, s.pool, func(ctx context.Context) (float64, error) {
			return s.deps.Spoof.SpoofRisk(ctx, frames)
		})
		if err != nil {
			return models.SpoofVerdict{}, err
		}
		return s.spoofGate.Evaluate(risk), nil
	})
	if err != nil {
		return decision.Decision{}, fmt.Errorf("score spoof risk: %w", err)
	}
	if spoof.Suspected {
		return decision.For(decision.SpoofSuspected).WithRisk(spoof.Risk), nil
	}

	live, err := stage(ctx, s, "liveness", func(ctx context.Context) (models.LivenessVerdict, error) {
		return s.evaluateLiveness(ctx, req.Video, frames)
	})
	if err != nil {
		return decision.Decision{}, fmt.Errorf("score liveness: %w", err)
	}
	attempt.Liveness = &live.IsLive
	if !live.Fallback {
		attempt.Confidence = &live.Confidence
	}
	if !live.IsLive {
		d := decision.For(decision.LivenessFailed).WithLivenessMetrics(live.Metrics)
		if !live.Fallback {
			d = d.WithConfidence(live.Confidence)
		}
		return d, nil
	}

	match, err := stage(ctx, s, "identity_match", func(ctx context.Context) (models.MatchResult, error) {
		probes, err := s.probeEmbeddings(ctx, frames)
		if err != nil {
			return models.MatchResult{}, err
		}
		return s.matcher.Match(reference, probes)
	})
	if errors.Is(err, gates.ErrIdentityCheckFailed) {
		return decision.For(decision.IdentityMismatch).WithReason(decision.ReasonIdentityCheckFailed), nil
	}
	if err != nil {
		return decision.Decision{}, fmt.Errorf("match identity: %w", err)
	}
	attempt.Similarity = &match.Mean
	if !match.Passed {
		return decision.For(decision.IdentityMismatch).WithSimilarity(match.Mean), nil
	}

	duplicate, err := stage(ctx, s, "duplicate", func(ctx context.Context) (bool, error) {
		return s.deps.Registry.FindDuplicate(ctx, reference)
	})
	if err != nil {
		return decision.Decision{}, fmt.Errorf("check duplicate: %w", err)
	}
	attempt.Duplicate = &duplicate
	if d := decision.Decide(live.IsLive, duplicate); !d.Approved() {
		return d, nil
	}

	// A concurrent approval may have stored the same face since the scan above.
	rec, raced, err := s.deps.Registry.AppendUnique(ctx, registrymodels.Image{Data: req.Selfie, Ext: extension(format)}, reference)
	if err != nil {
		return decision.Decision{}, fmt.Errorf("store identity: %w", err)
	}
	if raced {
		attempt.Duplicate = &raced
		return decision.For(decision.DuplicateFound), nil
	}
	s.logger.InfoContext(ctx, "identity accepted",
		"event", "identity_accepted",
		"log_type", "audit",
		"request_id", requestcontext.RequestID(ctx),
		"record_id", rec.ID,
	)
	return decision.For(decision.Approved), nil
}

func (s *Service) checkSession(ctx context.Context, token string) bool {
	ctx, span := s.tracer.Start(ctx, "verification.session")
	defer span.End()
	if s.cfg.SingleUseSessions {
		return s.deps.Sessions.Consume(ctx, token)
	}
	return s.deps.Sessions.Validate(ctx, token)
}

// evaluateLiveness asks the scorer first and falls back to frame motion only
// when the scorer reports itself unavailable and the fallback is enabled.
func (s *Service) evaluateLiveness(ctx context.Context, video []byte, frames []image.Image) (models.LivenessVerdict, error) {
	signal, err := offload(ctx, s.pool, func(ctx context.Context) (models.LivenessSignal, error) {
		return s.deps.Liveness.ScoreLiveness(ctx, video)
	})
	if err == nil {
		return s.livenessGate.Evaluate(signal), nil
	}
	if !s.cfg.MotionFallback || !errors.Is(err, ports.ErrLivenessUnavailable) {
		return models.LivenessVerdict{}, err
	}

	motion := s.motion.Evaluate(frames)
	s.metrics.IncrementMotionFallback()
	s.logger.WarnContext(ctx, "liveness scorer unavailable, using motion fallback",
		"request_id", requestcontext.RequestID(ctx),
		"motion_score", motion.Score,
		"is_live", motion.IsLive,
		"error", err,
	)
	return models.LivenessVerdict{
		IsLive:   motion.IsLive,
		Metrics:  map[string]float64{"motion_score": motion.Score},
		Fallback: true,
	}, nil
}

// probeEmbeddings extracts one embedding per frame concurrently. A frame with
// no face yields a nil entry.
func (s *Service) probeEmbeddings(ctx context.Context, frames []image.Image) ([][]float64, error) {
	probes := make([][]float64, len(frames))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(s.cfg.OffloadWorkers, 1))
	for i, frame := range frames {
		g.Go(func() error {
			v, err := offload(gctx, s.pool, func(ctx context.Context) ([]float64, error) {
				return s.deps.Embeddings.ExtractEmbedding(ctx, frame)
			})
			if err != nil {
				return fmt.Errorf("frame %d: %w", i, err)
			}
			probes[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return probes, nil
}

// stage runs fn inside a child span and records its latency.
func stage[T any](ctx context.Context, s *Service, name string, fn func(context.Context) (T, error)) (T, error) {
	ctx, span := s.tracer.Start(ctx, "verification."+name)
	defer span.End()
	start := time.Now()
	v, err := fn(ctx)
	s.metrics.ObserveStageLatency(name, time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return v, err
}

func decodeImage(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", errors.New("empty image")
	}
	return image.Decode(bytes.NewReader(data))
}

func extension(format string) string {
	if format == "jpeg" {
		return "jpg"
	}
	return format
}
