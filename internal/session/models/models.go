package models

import "time"

// Session is a short-lived verification session. The token is an opaque
// lookup key with no embedded claims.
type Session struct {
	Token    string    `json:"session_token"`
	IssuedAt time.Time `json:"issued_at"`
}

// ExpiresAt returns the last instant the session is still valid under ttl.
func (s Session) ExpiresAt(ttl time.Duration) time.Time {
	return s.IssuedAt.Add(ttl)
}

// Expired reports whether now - issued_at exceeds ttl.
func (s Session) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(s.IssuedAt) > ttl
}
