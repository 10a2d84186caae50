// Package observability emits the ratelimit module's audit lines.
package observability

import (
	"context"
	"log/slog"

	"kycgate/pkg/requestcontext"
)

// LogAudit writes one audit line for event. The request ID and log_type are
// appended so the line can be routed with the other audit streams.
func LogAudit(ctx context.Context, logger *slog.Logger, level slog.Level, event string, attrs ...slog.Attr) {
	if logger == nil {
		return
	}
	attrs = append(attrs, slog.String("event", event), slog.String("log_type", "audit"))
	if id := requestcontext.RequestID(ctx); id != "" {
		attrs = append(attrs, slog.String("request_id", id))
	}
	logger.LogAttrs(ctx, level, event, attrs...)
}
