// Package httptransport assembles the HTTP surface: shared middleware, the
// public and API-key protected route groups, health and metrics.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"kycgate/pkg/platform/httputil"
	"kycgate/pkg/platform/middleware/apikey"
	"kycgate/pkg/platform/middleware/metadata"
	"kycgate/pkg/platform/middleware/request"
	"kycgate/pkg/requestcontext"
)

// Routes mounts endpoints on a router.
type Routes interface {
	Register(r chi.Router)
}

// AdminRoutes mounts operator endpoints on a router.
type AdminRoutes interface {
	RegisterAdmin(r chi.Router)
}

// HealthCheck reports whether one backing dependency is usable.
type HealthCheck func(ctx context.Context) error

type Dependencies struct {
	Logger   *slog.Logger
	APIKeys  apikey.Verifier
	Gatherer prometheus.Gatherer
	Checks   map[string]HealthCheck

	TrustProxyHeaders bool

	// Public routes are served without an API key.
	Public []Routes
	// Protected and Admin routes require the API key.
	Protected []Routes
	Admin     []AdminRoutes
}

func NewRouter(d Dependencies) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(metadata.Resolver{TrustProxyHeaders: d.TrustProxyHeaders}.Middleware)
	r.Use(request.Time(nil))
	r.Use(accessLog(logger))
	r.Use(chimw.Recoverer)

	r.Get("/healthz", healthHandler(d.Checks))
	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}
	for _, routes := range d.Public {
		routes.Register(r)
	}

	r.Group(func(r chi.Router) {
		r.Use(apikey.Require(d.APIKeys, logger))
		for _, routes := range d.Protected {
			routes.Register(r)
		}
		for _, routes := range d.Admin {
			routes.RegisterAdmin(r)
		}
	})
	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := healthResponse{Status: "ok"}
		status := http.StatusOK
		if len(checks) > 0 {
			resp.Checks = make(map[string]string, len(checks))
		}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				resp.Checks[name] = err.Error()
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		httputil.WriteJSON(w, status, resp)
	}
}

func accessLog(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			ctx := r.Context()
			logger.InfoContext(ctx, "http request",
				"request_id", requestcontext.RequestID(ctx),
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}
