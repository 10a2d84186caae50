package models

import "time"

// RateLimitResult represents the outcome of a single admission check.
type RateLimitResult struct {
	Allowed   bool      `json:"allowed"`
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"reset_at"`
}

// RetryAfter returns whole seconds until the oldest entry leaves the window,
// or zero when the request was allowed.
func (r *RateLimitResult) RetryAfter(now time.Time) int {
	if r == nil || r.Allowed {
		return 0
	}
	secs := int(r.ResetAt.Sub(now).Seconds())
	if r.ResetAt.Sub(now) > time.Duration(secs)*time.Second {
		secs++
	}
	if secs < 1 {
		secs = 1
	}
	return secs
}
