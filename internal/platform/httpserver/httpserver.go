// Package httpserver builds the public HTTP server.
package httpserver

import (
	"log/slog"
	"net/http"
	"time"
)

// uploadAllowance covers reading a selfie and video over a slow link.
const uploadAllowance = 60 * time.Second

// New returns a server whose write deadline outlasts one verification run.
// Connection-level errors are reported through logger at WARN.
func New(addr string, handler http.Handler, verifyTimeout time.Duration, logger *slog.Logger) *http.Server {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       uploadAllowance,
		WriteTimeout:      verifyTimeout + uploadAllowance,
		IdleTimeout:       2 * time.Minute,
	}
	if logger != nil {
		srv.ErrorLog = slog.NewLogLogger(logger.Handler(), slog.LevelWarn)
	}
	return srv
}
