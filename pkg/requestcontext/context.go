// Package requestcontext carries request-scoped values from HTTP middleware
// into services that never import net/http.
//
// Tests set the values directly:
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
package requestcontext

import (
	"context"
	"time"
)

type (
	clientKey      struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// client is the caller as seen at the edge.
type client struct {
	ip        string
	userAgent string
}

func value[T any](ctx context.Context, key any) (T, bool) {
	v, ok := ctx.Value(key).(T)
	return v, ok
}

// WithClientMetadata records the caller's address and User-Agent.
func WithClientMetadata(ctx context.Context, clientIP, userAgent string) context.Context {
	return context.WithValue(ctx, clientKey{}, client{ip: clientIP, userAgent: userAgent})
}

// ClientIP is the caller's address, the identity used for rate limiting.
func ClientIP(ctx context.Context) string {
	c, _ := value[client](ctx, clientKey{})
	return c.ip
}

func UserAgent(ctx context.Context) string {
	c, _ := value[client](ctx, clientKey{})
	return c.userAgent
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestID returns "" outside an HTTP request.
func RequestID(ctx context.Context) string {
	id, _ := value[string](ctx, requestIDKey{})
	return id
}

// WithTime pins the request's notion of now.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}

// Now returns the pinned request time, or the wall clock when none was set
// (background workers, tests).
func Now(ctx context.Context) time.Time {
	if t, ok := value[time.Time](ctx, requestTimeKey{}); ok {
		return t
	}
	return time.Now()
}
