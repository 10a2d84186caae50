package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"kycgate/internal/audit/models"
	"kycgate/pkg/platform/httputil"
	"kycgate/pkg/requestcontext"
)

// Service is the read and clear surface of the attempt log.
type Service interface {
	List(ctx context.Context) ([]models.Attempt, error)
	Stats(ctx context.Context) (models.Stats, error)
	Clear(ctx context.Context) error
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterAdmin mounts the attempt log endpoints. Callers wrap r with API key auth.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/admin/attempts", h.HandleList)
	r.Get("/admin/stats", h.HandleStats)
	r.Delete("/admin/attempts", h.HandleClear)
}

// HandleList handles GET /admin/attempts.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	attempts, err := h.service.List(ctx)
	if err != nil {
		h.logFailure(ctx, "list attempts failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, attempts)
}

// HandleStats handles GET /admin/stats.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats, err := h.service.Stats(ctx)
	if err != nil {
		h.logFailure(ctx, "attempt stats failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

// HandleClear handles DELETE /admin/attempts.
func (h *Handler) HandleClear(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.service.Clear(ctx); err != nil {
		h.logFailure(ctx, "clear attempts failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "attempt log cleared"})
}

func (h *Handler) logFailure(ctx context.Context, msg string, err error) {
	h.logger.ErrorContext(ctx, msg,
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
}
