package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"kycgate/internal/decision"
	"kycgate/internal/verification/models"
	dErrors "kycgate/pkg/domain-errors"
	"kycgate/pkg/platform/httputil"
	"kycgate/pkg/requestcontext"
)

const multipartMemory = 8 << 20

// Service runs verification and search requests.
type Service interface {
	Verify(ctx context.Context, req models.VerifyRequest) decision.Decision
	Search(ctx context.Context, image []byte) models.SearchResult
}

type Handler struct {
	service        Service
	logger         *slog.Logger
	maxUploadBytes int64
}

func New(service Service, logger *slog.Logger, maxUploadBytes int64) *Handler {
	return &Handler{service: service, logger: logger, maxUploadBytes: maxUploadBytes}
}

// Register mounts the verification endpoints. Callers wrap r with API key auth.
func (h *Handler) Register(r chi.Router) {
	r.Post("/kyc/verify", h.HandleVerify)
	r.Post("/kyc/search", h.HandleSearch)
}

// HandleVerify handles POST /kyc/verify with multipart parts session_token,
// selfie and video.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.parseForm(w, r); err != nil {
		h.rejectInput(ctx, w, err)
		return
	}

	// An absent token is left for the pipeline to reject so the run is
	// rate limited and audited.
	token := r.FormValue("session_token")
	selfie, err := readPart(r, "selfie")
	if err != nil {
		h.rejectInput(ctx, w, err)
		return
	}
	video, err := readPart(r, "video")
	if err != nil {
		h.rejectInput(ctx, w, err)
		return
	}

	d := h.service.Verify(ctx, models.VerifyRequest{
		ClientID:     requestcontext.ClientIP(ctx),
		SessionToken: token,
		Selfie:       selfie,
		Video:        video,
	})
	status := http.StatusOK
	if d.State == decision.RateLimited {
		status = http.StatusTooManyRequests
	}
	httputil.WriteJSON(w, status, d)
}

// HandleSearch handles POST /kyc/search with a multipart image part.
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.parseForm(w, r); err != nil {
		h.rejectInput(ctx, w, err)
		return
	}
	img, err := readPart(r, "image")
	if err != nil {
		h.rejectInput(ctx, w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, h.service.Search(ctx, img))
}

func (h *Handler) parseForm(w http.ResponseWriter, r *http.Request) error {
	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit))
		}
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "expected a multipart form")
	}
	return nil
}

func (h *Handler) rejectInput(ctx context.Context, w http.ResponseWriter, err error) {
	h.logger.InfoContext(ctx, "verification input rejected",
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
	httputil.WriteError(w, err)
}

func readPart(r *http.Request, name string) ([]byte, error) {
	f, _, err := r.FormFile(name)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, name+" file is required")
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "failed to read "+name)
	}
	return data, nil
}
