package httputil

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	dErrors "kycgate/pkg/domain-errors"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		status   int
		wantBody string
	}{
		{
			name:     "client error carries its description",
			err:      dErrors.New(dErrors.CodeBadRequest, "selfie is required"),
			status:   http.StatusBadRequest,
			wantBody: `{"error":"bad_request","error_description":"selfie is required"}`,
		},
		{
			name:     "internal error hides its message",
			err:      dErrors.New(dErrors.CodeInternal, "registry write failed"),
			status:   http.StatusInternalServerError,
			wantBody: `{"error":"internal_error"}`,
		},
		{
			name:     "uncoded error is internal",
			err:      errors.New("boom"),
			status:   http.StatusInternalServerError,
			wantBody: `{"error":"internal_error"}`,
		},
		{
			name:     "wrapped coded error keeps its code",
			err:      fmt.Errorf("issue session: %w", dErrors.New(dErrors.CodeUnavailable, "too many active sessions")),
			status:   http.StatusServiceUnavailable,
			wantBody: `{"error":"service_unavailable","error_description":"too many active sessions"}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(w, tt.err)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			assert.JSONEq(t, tt.wantBody, w.Body.String())
		})
	}
}

func TestStatusFor(t *testing.T) {
	cases := map[dErrors.Code]int{
		dErrors.CodeValidation:         http.StatusBadRequest,
		dErrors.CodeInvalidInput:       http.StatusBadRequest,
		dErrors.CodeUnauthorized:       http.StatusUnauthorized,
		dErrors.CodeForbidden:          http.StatusForbidden,
		dErrors.CodeNotFound:           http.StatusNotFound,
		dErrors.CodeConflict:           http.StatusConflict,
		dErrors.CodeTooManyRequests:    http.StatusTooManyRequests,
		dErrors.CodeTimeout:            http.StatusGatewayTimeout,
		dErrors.CodeInvariantViolation: http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, StatusFor(code), string(code))
	}
}
