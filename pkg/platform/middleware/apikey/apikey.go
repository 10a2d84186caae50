// Package apikey guards operator and client routes with a shared API key.
package apikey

import (
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"

	"golang.org/x/crypto/bcrypt"

	dErrors "kycgate/pkg/domain-errors"
	"kycgate/pkg/platform/httputil"
	"kycgate/pkg/requestcontext"
)

// Header carries the API key.
const Header = "X-API-Key"

// Verifier decides whether a presented key is valid.
type Verifier interface {
	Verify(key string) bool
}

type static []byte

// Static accepts exactly key, compared in constant time.
func Static(key string) Verifier { return static(key) }

func (s static) Verify(key string) bool {
	return key != "" && subtle.ConstantTimeCompare([]byte(key), s) == 1
}

// HashedKey accepts the key whose bcrypt hash is configured, so the
// deployment never holds the key in plain text.
type HashedKey struct {
	hash []byte
	// digest of the last accepted key; skips bcrypt on repeat calls
	accepted atomic.Pointer[[sha256.Size]byte]
}

// Hashed validates hash as a bcrypt hash.
func Hashed(hash string) (*HashedKey, error) {
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return nil, fmt.Errorf("api key hash: %w", err)
	}
	return &HashedKey{hash: []byte(hash)}, nil
}

func (h *HashedKey) Verify(key string) bool {
	if key == "" {
		return false
	}
	digest := sha256.Sum256([]byte(key))
	if last := h.accepted.Load(); last != nil && subtle.ConstantTimeCompare(last[:], digest[:]) == 1 {
		return true
	}
	if bcrypt.CompareHashAndPassword(h.hash, []byte(key)) != nil {
		return false
	}
	h.accepted.Store(&digest)
	return true
}

// Require rejects requests whose X-API-Key the verifier does not accept.
func Require(keys Verifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !keys.Verify(r.Header.Get(Header)) {
				ctx := r.Context()
				logger.WarnContext(ctx, "api key mismatch",
					"request_id", requestcontext.RequestID(ctx),
					"path", r.URL.Path,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "valid api key required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
