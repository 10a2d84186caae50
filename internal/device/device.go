// Package device summarizes the submitting client for the attempt log.
package device

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/mssola/useragent"
)

const unknownDevice = "Unknown Device"

// Service computes device summaries and fingerprints. Fingerprinting can be
// disabled, in which case fingerprints are empty.
type Service struct {
	fingerprintEnabled bool
}

func NewService(fingerprintEnabled bool) *Service {
	return &Service{fingerprintEnabled: fingerprintEnabled}
}

// ParseUserAgent returns "<Browser> on <OS>" for display.
func ParseUserAgent(userAgent string) string {
	if strings.TrimSpace(userAgent) == "" {
		return unknownDevice
	}
	ua := useragent.New(userAgent)
	browser, _ := ua.Browser()
	os := ua.OS()
	if browser == "" {
		browser = "Unknown Browser"
	}
	if os == "" {
		os = ua.Platform()
	}
	if os == "" {
		os = "Unknown OS"
	}
	return strings.TrimSpace(browser) + " on " + strings.TrimSpace(os)
}

// ComputeFingerprint hashes the browser family, browser major version, OS and
// platform so minor browser updates keep the same fingerprint.
func (s *Service) ComputeFingerprint(userAgent string) string {
	if !s.fingerprintEnabled || strings.TrimSpace(userAgent) == "" {
		return ""
	}
	ua := useragent.New(userAgent)
	browser, version := ua.Browser()
	major, _, _ := strings.Cut(version, ".")
	parts := []string{browser, major, ua.OS(), ua.Platform(), mobileFlag(ua.Mobile())}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

func mobileFlag(mobile bool) string {
	if mobile {
		return "mobile"
	}
	return "desktop"
}
