package models

import "time"

// AttemptType distinguishes the operation an attempt record describes.
type AttemptType string

const (
	AttemptVerify AttemptType = "verify"
	AttemptSearch AttemptType = "search"
)

// Attempt is one append-only record per completed verification or search run.
type Attempt struct {
	ID                string      `json:"id"`
	Timestamp         time.Time   `json:"timestamp"`
	Type              AttemptType `json:"type"`
	Status            string      `json:"status"`
	State             string      `json:"state,omitempty"`
	Reason            string      `json:"reason,omitempty"`
	Duplicate         *bool       `json:"duplicate,omitempty"`
	Liveness          *bool       `json:"liveness,omitempty"`
	Similarity        *float64    `json:"similarity,omitempty"`
	Confidence        *float64    `json:"confidence,omitempty"`
	RequestID         string      `json:"request_id,omitempty"`
	ClientIP          string      `json:"client_ip,omitempty"`
	Device            string      `json:"device,omitempty"`
	DeviceFingerprint string      `json:"device_fingerprint,omitempty"`
}

// Stats summarizes the attempt log.
type Stats struct {
	TotalAttempts int `json:"total_attempts"`
	Approved      int `json:"approved"`
	Rejected      int `json:"rejected"`
}

// Summarize counts attempts by status.
func Summarize(attempts []Attempt) Stats {
	stats := Stats{TotalAttempts: len(attempts)}
	for _, a := range attempts {
		switch a.Status {
		case "approved":
			stats.Approved++
		case "rejected":
			stats.Rejected++
		}
	}
	return stats
}
