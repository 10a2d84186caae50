package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Backend names for pluggable stores.
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
)

// DefaultAPIKey is used when API_KEY is unset. Development only.
const DefaultAPIKey = "dev-api-key-change-in-production"

// Server captures process level configuration.
type Server struct {
	Addr           string
	LogLevel       string
	MaxUploadBytes int64
	// TrustProxyHeaders takes the client address from X-Forwarded-For.
	TrustProxyHeaders bool

	APIKey string
	// APIKeyHash is a bcrypt hash of the API key; when set it replaces APIKey.
	APIKeyHash string

	RateLimit RateLimit
	Session   Session
	Pipeline  Pipeline
	Registry  Registry
	Audit     Audit
	Vision    Vision

	RedisURL    string
	DatabaseURL string
}

// RateLimit configures the sliding-window admission control.
type RateLimit struct {
	Window      time.Duration
	MaxRequests int
}

// Session configures verification session tokens.
type Session struct {
	TTL         time.Duration
	MaxSessions int
	SingleUse   bool
}

// Pipeline holds the verification thresholds and the offload boundary.
type Pipeline struct {
	SimilarityThreshold float64
	IdentityThreshold   float64
	MinConfidence       float64
	SpoofMaxRisk        float64
	MotionThreshold     float64
	MotionFallback      bool
	MinFrames           int
	MaxFrames           int
	Timeout             time.Duration
	OffloadWorkers      int
}

// Registry selects and locates the identity vector store.
type Registry struct {
	Backend  string
	Path     string
	ImageDir string
}

// Audit selects the attempt log store and optional Kafka fan-out.
type Audit struct {
	Backend      string
	LogPath      string
	KafkaBrokers []string
	KafkaTopic   string
}

// Vision locates the inference sidecar.
type Vision struct {
	URL     string
	Timeout time.Duration
}

// Default returns the configuration used when no environment is set.
func Default() Server {
	return Server{
		Addr:           ":8000",
		APIKey:         DefaultAPIKey,
		LogLevel:       "info",
		MaxUploadBytes: 64 << 20,
		RateLimit: RateLimit{
			Window:      10 * time.Second,
			MaxRequests: 5,
		},
		Session: Session{
			TTL:         300 * time.Second,
			MaxSessions: 200,
			SingleUse:   true,
		},
		Pipeline: Pipeline{
			SimilarityThreshold: 0.6,
			IdentityThreshold:   0.70,
			MinConfidence:       0.4,
			SpoofMaxRisk:        1.2,
			MotionThreshold:     5,
			MotionFallback:      false,
			MinFrames:           2,
			MaxFrames:           10,
			Timeout:             30 * time.Second,
			OffloadWorkers:      4,
		},
		Registry: Registry{
			Backend:  BackendFile,
			Path:     "data/stored_embeddings.json",
			ImageDir: "data/stored_images",
		},
		Audit: Audit{
			Backend:    BackendFile,
			LogPath:    "data/attempt_log.jsonl",
			KafkaTopic: "kyc.attempts",
		},
		Vision: Vision{
			URL:     "http://localhost:9000",
			Timeout: 20 * time.Second,
		},
	}
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() (Server, error) {
	cfg := Default()
	var errs []error

	cfg.Addr = envString("KYC_ADDR", cfg.Addr)
	cfg.APIKey = envString("API_KEY", cfg.APIKey)
	cfg.APIKeyHash = envString("API_KEY_HASH", cfg.APIKeyHash)
	cfg.LogLevel = envString("LOG_LEVEL", cfg.LogLevel)
	cfg.MaxUploadBytes = int64(envInt("MAX_UPLOAD_BYTES", int(cfg.MaxUploadBytes), &errs))
	cfg.TrustProxyHeaders = envBool("TRUST_PROXY_HEADERS", cfg.TrustProxyHeaders, &errs)

	cfg.RateLimit.Window = envDuration("RATE_LIMIT_WINDOW", cfg.RateLimit.Window, &errs)
	cfg.RateLimit.MaxRequests = envInt("RATE_LIMIT_MAX", cfg.RateLimit.MaxRequests, &errs)

	cfg.Session.TTL = envDuration("SESSION_TTL", cfg.Session.TTL, &errs)
	cfg.Session.MaxSessions = envInt("MAX_SESSIONS", cfg.Session.MaxSessions, &errs)
	cfg.Session.SingleUse = envBool("SESSION_SINGLE_USE", cfg.Session.SingleUse, &errs)

	p := &cfg.Pipeline
	p.SimilarityThreshold = envFloat("SIM_THRESHOLD", p.SimilarityThreshold, &errs)
	p.IdentityThreshold = envFloat("IDENTITY_THRESHOLD", p.IdentityThreshold, &errs)
	p.MinConfidence = envFloat("MIN_CONFIDENCE_SCORE", p.MinConfidence, &errs)
	p.SpoofMaxRisk = envFloat("SPOOF_MAX_RISK", p.SpoofMaxRisk, &errs)
	p.MotionThreshold = envFloat("MOTION_THRESHOLD", p.MotionThreshold, &errs)
	p.MotionFallback = envBool("MOTION_FALLBACK", p.MotionFallback, &errs)
	p.MinFrames = envInt("MIN_FRAMES", p.MinFrames, &errs)
	p.MaxFrames = envInt("MAX_FRAMES", p.MaxFrames, &errs)
	p.Timeout = envDuration("VERIFY_TIMEOUT", p.Timeout, &errs)
	p.OffloadWorkers = envInt("OFFLOAD_WORKERS", p.OffloadWorkers, &errs)

	cfg.Registry.Backend = strings.ToLower(envString("REGISTRY_BACKEND", cfg.Registry.Backend))
	cfg.Registry.Path = envString("REGISTRY_PATH", cfg.Registry.Path)
	cfg.Registry.ImageDir = envString("IMAGE_DIR", cfg.Registry.ImageDir)

	cfg.Audit.Backend = strings.ToLower(envString("AUDIT_BACKEND", cfg.Audit.Backend))
	cfg.Audit.LogPath = envString("ATTEMPT_LOG", cfg.Audit.LogPath)
	cfg.Audit.KafkaBrokers = envList("KAFKA_BROKERS")
	cfg.Audit.KafkaTopic = envString("KAFKA_ATTEMPTS_TOPIC", cfg.Audit.KafkaTopic)

	cfg.Vision.URL = envString("VISION_URL", cfg.Vision.URL)
	cfg.Vision.Timeout = envDuration("VISION_TIMEOUT", cfg.Vision.Timeout, &errs)

	cfg.RedisURL = os.Getenv("REDIS_URL")
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")

	if len(errs) > 0 {
		return Server{}, errors.Join(errs...)
	}
	if err := cfg.Validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the pipeline cannot run with.
func (c Server) Validate() error {
	var errs []error
	if c.APIKeyHash != "" {
		if _, err := bcrypt.Cost([]byte(c.APIKeyHash)); err != nil {
			errs = append(errs, fmt.Errorf("API_KEY_HASH is not a bcrypt hash: %w", err))
		}
	} else if c.APIKey == "" {
		errs = append(errs, errors.New("API_KEY must not be empty"))
	}
	if c.RateLimit.Window <= 0 || c.RateLimit.MaxRequests <= 0 {
		errs = append(errs, errors.New("rate limit window and max requests must be positive"))
	}
	if c.Session.TTL <= 0 || c.Session.MaxSessions <= 0 {
		errs = append(errs, errors.New("session ttl and max sessions must be positive"))
	}
	p := c.Pipeline
	if p.SimilarityThreshold < -1 || p.SimilarityThreshold > 1 {
		errs = append(errs, fmt.Errorf("SIM_THRESHOLD %.3f outside [-1,1]", p.SimilarityThreshold))
	}
	if p.IdentityThreshold < -1 || p.IdentityThreshold > 1 {
		errs = append(errs, fmt.Errorf("IDENTITY_THRESHOLD %.3f outside [-1,1]", p.IdentityThreshold))
	}
	if p.MinConfidence < 0 || p.MinConfidence > 1 {
		errs = append(errs, fmt.Errorf("MIN_CONFIDENCE_SCORE %.3f outside [0,1]", p.MinConfidence))
	}
	// Spoof risk is drift based and unbounded above 1, so only the sign is checked.
	if p.SpoofMaxRisk < 0 {
		errs = append(errs, errors.New("SPOOF_MAX_RISK must not be negative"))
	}
	if p.MinFrames < 2 {
		errs = append(errs, errors.New("MIN_FRAMES must be at least 2"))
	}
	if p.MaxFrames < p.MinFrames {
		errs = append(errs, errors.New("MAX_FRAMES must be >= MIN_FRAMES"))
	}
	if p.Timeout <= 0 || p.OffloadWorkers <= 0 {
		errs = append(errs, errors.New("VERIFY_TIMEOUT and OFFLOAD_WORKERS must be positive"))
	}
	for name, backend := range map[string]string{"REGISTRY_BACKEND": c.Registry.Backend, "AUDIT_BACKEND": c.Audit.Backend} {
		switch backend {
		case BackendFile:
		case BackendPostgres:
			if c.DatabaseURL == "" {
				errs = append(errs, fmt.Errorf("%s=postgres requires DATABASE_URL", name))
			}
		default:
			errs = append(errs, fmt.Errorf("%s %q not supported", name, backend))
		}
	}
	return errors.Join(errs...)
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int, errs *[]error) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return v
}

func envFloat(key string, def float64, errs *[]error) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return v
}

func envBool(key string, def bool, errs *[]error) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return v
}

// envDuration accepts Go durations ("90s") or bare seconds ("300").
func envDuration(key string, def time.Duration, errs *[]error) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return v
}

func envList(key string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}
	// Order is preserved; blanks and repeats are dropped.
	seen := make(map[string]struct{})
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if _, dup := seen[part]; dup {
			continue
		}
		seen[part] = struct{}{}
		out = append(out, part)
	}
	return out
}
