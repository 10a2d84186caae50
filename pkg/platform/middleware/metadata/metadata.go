// Package metadata attaches the caller's address and User-Agent to the
// request context. The address is the client identity for rate limiting.
package metadata

import (
	"net"
	"net/http"
	"strings"

	"kycgate/pkg/requestcontext"
)

// Resolver derives the client address from a request.
type Resolver struct {
	// TrustProxyHeaders honours X-Forwarded-For and X-Real-IP. Leave it off
	// unless a proxy that overwrites those headers sits in front.
	TrustProxyHeaders bool
}

// Middleware stores the resolved address and User-Agent in the context.
func (res Resolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithClientMetadata(r.Context(), res.ClientIP(r), r.Header.Get("User-Agent"))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClientIP returns the caller's address without port.
func (res Resolver) ClientIP(r *http.Request) string {
	if res.TrustProxyHeaders {
		// first hop is the original client
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := parseIP(first); ip != "" {
				return ip
			}
		}
		if ip := parseIP(r.Header.Get("X-Real-IP")); ip != "" {
			return ip
		}
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}

func parseIP(raw string) string {
	ip := net.ParseIP(strings.TrimSpace(raw))
	if ip == nil {
		return ""
	}
	return ip.String()
}
