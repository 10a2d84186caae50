package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"kycgate/pkg/platform/httputil"
	"kycgate/pkg/requestcontext"
)

// Service defines the operator operations on the verification rate limiter.
type Service interface {
	Usage(ctx context.Context, clientID string) (int, error)
	Reset(ctx context.Context, clientID string) error
	MaxRequests() int
}

// Handler exposes rate limit inspection and reset for operators.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterAdmin mounts the operator endpoints. Callers wrap r with API key auth.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/admin/ratelimit/{client}", h.HandleUsage)
	r.Delete("/admin/ratelimit/{client}", h.HandleReset)
}

type usageResponse struct {
	ClientID string `json:"client_id"`
	Requests int    `json:"requests"`
	Limit    int    `json:"limit"`
}

// HandleUsage handles GET /admin/ratelimit/{client}.
func (h *Handler) HandleUsage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	clientID := chi.URLParam(r, "client")

	n, err := h.service.Usage(ctx, clientID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to read rate limit usage",
			"request_id", requestcontext.RequestID(ctx),
			"client_id", clientID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, usageResponse{
		ClientID: clientID,
		Requests: n,
		Limit:    h.service.MaxRequests(),
	})
}

// HandleReset handles DELETE /admin/ratelimit/{client}.
func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	clientID := chi.URLParam(r, "client")

	if err := h.service.Reset(ctx, clientID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "rate limit cleared"})
}
