package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/twmb/franz-go/pkg/kgo"

	auditfanout "kycgate/internal/audit/fanout"
	audithandler "kycgate/internal/audit/handler"
	auditmetrics "kycgate/internal/audit/metrics"
	auditports "kycgate/internal/audit/ports"
	auditkafka "kycgate/internal/audit/publisher/kafka"
	auditservice "kycgate/internal/audit/service"
	auditfile "kycgate/internal/audit/store/file"
	auditpostgres "kycgate/internal/audit/store/postgres"
	decisionmetrics "kycgate/internal/decision/metrics"
	"kycgate/internal/device"
	"kycgate/internal/platform/config"
	platformkafka "kycgate/internal/platform/kafka"
	"kycgate/internal/platform/metrics"
	"kycgate/internal/platform/postgres"
	platformredis "kycgate/internal/platform/redis"
	ratelimithandler "kycgate/internal/ratelimit/handler"
	ratelimitmetrics "kycgate/internal/ratelimit/metrics"
	ratelimitports "kycgate/internal/ratelimit/ports"
	ratelimitservice "kycgate/internal/ratelimit/service"
	"kycgate/internal/ratelimit/store/bucket"
	registryhandler "kycgate/internal/registry/handler"
	registryports "kycgate/internal/registry/ports"
	registryservice "kycgate/internal/registry/service"
	registryfile "kycgate/internal/registry/store/file"
	"kycgate/internal/registry/store/images"
	registrypostgres "kycgate/internal/registry/store/postgres"
	sessionhandler "kycgate/internal/session/handler"
	sessionports "kycgate/internal/session/ports"
	sessionservice "kycgate/internal/session/service"
	sessionstore "kycgate/internal/session/store"
	httptransport "kycgate/internal/transport/http"
	verificationhandler "kycgate/internal/verification/handler"
	verificationservice "kycgate/internal/verification/service"
	"kycgate/internal/vision"
	"kycgate/pkg/platform/middleware/apikey"
)

const janitorInterval = time.Minute

// app owns every long-lived resource of the process.
type app struct {
	log    *slog.Logger
	router http.Handler

	buckets *bucket.InMemoryBucketStore
	window  time.Duration
	fanout  *auditfanout.Fanout

	closers     []func() error
	stopWorkers context.CancelFunc
	wg          sync.WaitGroup
}

func build(ctx context.Context, cfg config.Server, log *slog.Logger) (a *app, err error) {
	a = &app{log: log, window: cfg.RateLimit.Window}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	platformMetrics := metrics.New(reg)
	checks := map[string]httptransport.HealthCheck{}

	redisClient, err := platformredis.New(ctx, cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	if redisClient != nil {
		a.closers = append(a.closers, redisClient.Close)
		checks["redis"] = redisClient.Health
	}

	// Rate limiter
	var buckets ratelimitports.BucketStore
	if redisClient != nil {
		buckets = bucket.NewRedis(redisClient.Client, time.Now)
	} else {
		a.buckets = bucket.New()
		buckets = a.buckets
	}
	limiter, err := ratelimitservice.New(buckets, cfg.RateLimit.MaxRequests, cfg.RateLimit.Window,
		ratelimitservice.WithLogger(log),
		ratelimitservice.WithMetrics(ratelimitmetrics.New(reg)),
	)
	if err != nil {
		return nil, err
	}

	// Sessions
	var sessions sessionports.Store = sessionstore.New()
	if redisClient != nil {
		sessions = sessionstore.NewRedis(redisClient.Client)
	}
	guard, err := sessionservice.New(sessions, cfg.Session.TTL, cfg.Session.MaxSessions,
		sessionservice.WithLogger(log),
		sessionservice.WithMetrics(platformMetrics),
	)
	if err != nil {
		return nil, err
	}

	// Registry
	vectors, err := a.openVectorStore(ctx, cfg, log, platformMetrics, checks)
	if err != nil {
		return nil, err
	}
	imageStore, err := images.NewDirStore(cfg.Registry.ImageDir)
	if err != nil {
		return nil, fmt.Errorf("open image store: %w", err)
	}
	registry, err := registryservice.New(ctx, vectors, imageStore, cfg.Pipeline.SimilarityThreshold,
		registryservice.WithLogger(log),
		registryservice.WithMetrics(platformMetrics),
	)
	if err != nil {
		return nil, err
	}

	// Attempt log
	attempts, sink, err := a.openAttemptStore(ctx, cfg, log, checks)
	if err != nil {
		return nil, err
	}
	auditOpts := []auditservice.Option{
		auditservice.WithLogger(log),
		auditservice.WithMetrics(platformMetrics),
		auditservice.WithSinkName(sink),
		auditservice.WithDeviceService(device.NewService(true)),
	}
	if len(cfg.Audit.KafkaBrokers) > 0 {
		producer, err := platformkafka.NewProducer(ctx, cfg.Audit.KafkaBrokers, cfg.Audit.KafkaTopic)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() error { producer.Close(); return nil })
		a.fanout = auditfanout.New(auditkafka.New(producer, cfg.Audit.KafkaTopic),
			auditfanout.WithLogger(log),
			auditfanout.WithMetrics(auditmetrics.New(reg)),
		)
		auditOpts = append(auditOpts, auditservice.WithStreamer(a.fanout))
		checks["kafka"] = kafkaHealth(producer)
	}
	auditor, err := auditservice.New(attempts, auditOpts...)
	if err != nil {
		return nil, err
	}

	// Vision sidecar
	visionClient, err := vision.New(cfg.Vision.URL, cfg.Vision.Timeout, vision.WithLogger(log))
	if err != nil {
		return nil, err
	}
	checks["vision"] = visionClient.Health

	// Pipeline
	p := cfg.Pipeline
	verifier, err := verificationservice.New(verificationservice.Config{
		IdentityThreshold: p.IdentityThreshold,
		MinConfidence:     p.MinConfidence,
		SpoofMaxRisk:      p.SpoofMaxRisk,
		MotionThreshold:   p.MotionThreshold,
		MotionFallback:    p.MotionFallback,
		MinFrames:         p.MinFrames,
		MaxFrames:         p.MaxFrames,
		Timeout:           p.Timeout,
		OffloadWorkers:    p.OffloadWorkers,
		SingleUseSessions: cfg.Session.SingleUse,
	}, verificationservice.Dependencies{
		Limiter:    limiter,
		Sessions:   guard,
		Registry:   registry,
		Auditor:    auditor,
		Embeddings: visionClient,
		Frames:     visionClient,
		Liveness:   visionClient,
		Spoof:      visionClient,
	},
		verificationservice.WithLogger(log),
		verificationservice.WithMetrics(decisionmetrics.New(reg)),
	)
	if err != nil {
		return nil, err
	}

	var keys apikey.Verifier = apikey.Static(cfg.APIKey)
	if cfg.APIKeyHash != "" {
		if keys, err = apikey.Hashed(cfg.APIKeyHash); err != nil {
			return nil, err
		}
	}

	a.router = httptransport.NewRouter(httptransport.Dependencies{
		Logger:   log,
		APIKeys:  keys,
		Gatherer: reg,
		Checks:   checks,

		TrustProxyHeaders: cfg.TrustProxyHeaders,
		Public:            []httptransport.Routes{sessionhandler.New(guard, log)},
		Protected: []httptransport.Routes{
			verificationhandler.New(verifier, log, cfg.MaxUploadBytes),
			registryhandler.New(registry, log),
		},
		Admin: []httptransport.AdminRoutes{
			audithandler.New(auditor, log),
			ratelimithandler.New(limiter, log),
		},
	})
	return a, nil
}

func (a *app) openVectorStore(ctx context.Context, cfg config.Server, log *slog.Logger, m *metrics.Metrics, checks map[string]httptransport.HealthCheck) (registryports.VectorStore, error) {
	if cfg.Registry.Backend != config.BackendPostgres {
		return registryfile.Open(cfg.Registry.Path, registryfile.WithLogger(log), registryfile.WithMetrics(m))
	}
	pool, err := postgres.OpenPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() error { pool.Close(); return nil })
	checks["postgres_registry"] = pool.Ping
	store := registrypostgres.New(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func (a *app) openAttemptStore(ctx context.Context, cfg config.Server, log *slog.Logger, checks map[string]httptransport.HealthCheck) (auditports.Store, string, error) {
	if cfg.Audit.Backend != config.BackendPostgres {
		store, err := auditfile.Open(cfg.Audit.LogPath, log)
		if err != nil {
			return nil, "", err
		}
		a.closers = append(a.closers, store.Close)
		return store, config.BackendFile, nil
	}
	db, err := postgres.OpenSQL(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, "", err
	}
	a.closers = append(a.closers, db.Close)
	checks["postgres_audit"] = db.PingContext
	store := auditpostgres.New(db)
	if err := store.EnsureSchema(ctx); err != nil {
		return nil, "", err
	}
	return store, config.BackendPostgres, nil
}

// start launches the background workers. The janitor stops with ctx. The
// attempt fanout keeps running until drain, since in-flight requests still
// enqueue after the shutdown signal.
func (a *app) start(ctx context.Context) {
	if a.buckets != nil {
		a.buckets.StartJanitor(ctx, janitorInterval, a.window)
	}
	workers, cancel := context.WithCancel(context.WithoutCancel(ctx))
	a.stopWorkers = cancel
	if a.fanout != nil {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			a.fanout.Run(workers)
		}()
	}
}

// drain stops the background workers and blocks until they have flushed.
// Call it only once the HTTP server no longer serves requests.
func (a *app) drain() {
	if a.stopWorkers != nil {
		a.stopWorkers()
	}
	a.wg.Wait()
}

// close drains the workers, then releases resources in reverse order of
// acquisition.
func (a *app) close() {
	a.drain()
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn("failed to close resource", "error", err)
		}
	}
	a.closers = nil
}

func kafkaHealth(client *kgo.Client) httptransport.HealthCheck {
	return func(ctx context.Context) error {
		return client.Ping(ctx)
	}
}
