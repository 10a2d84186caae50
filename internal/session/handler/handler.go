package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"kycgate/internal/session/models"
	"kycgate/pkg/platform/httputil"
	"kycgate/pkg/requestcontext"
)

// Service issues verification sessions.
type Service interface {
	Issue(ctx context.Context) (*models.Session, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the public session endpoint.
func (h *Handler) Register(r chi.Router) {
	r.Get("/kyc/session", h.HandleIssue)
}

type issueResponse struct {
	SessionToken string `json:"session_token"`
}

// HandleIssue handles GET /kyc/session.
func (h *Handler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess, err := h.service.Issue(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "session issue refused",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, issueResponse{SessionToken: sess.Token})
}
