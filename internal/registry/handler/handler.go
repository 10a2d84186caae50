package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"kycgate/pkg/platform/httputil"
	"kycgate/pkg/requestcontext"
)

// Service is the read and reset surface of the identity registry.
type Service interface {
	Count(ctx context.Context) int
	ListImageRefs(ctx context.Context) []string
	Reset(ctx context.Context) error
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts registry endpoints. Callers wrap r with API key auth.
func (h *Handler) Register(r chi.Router) {
	r.Get("/kyc/count", h.HandleCount)
	r.Get("/kyc/identities", h.HandleList)
	r.Delete("/kyc/reset", h.HandleReset)
}

type countResponse struct {
	IdentityCount int `json:"identity_count"`
}

type listResponse struct {
	StoredIdentities []string `json:"stored_identities"`
}

type statusResponse struct {
	Status string `json:"status"`
}

// HandleCount handles GET /kyc/count.
func (h *Handler) HandleCount(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, countResponse{IdentityCount: h.service.Count(r.Context())})
}

// HandleList handles GET /kyc/identities.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, listResponse{StoredIdentities: h.service.ListImageRefs(r.Context())})
}

// HandleReset handles DELETE /kyc/reset.
func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.service.Reset(ctx); err != nil {
		h.logger.ErrorContext(ctx, "registry reset failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, statusResponse{Status: "registry cleared"})
}
