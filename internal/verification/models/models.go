package models

// LivenessSignal is the raw output of the liveness scorer for one clip.
type LivenessSignal struct {
	IsLive          bool    `json:"is_live"`
	Confidence      float64 `json:"confidence"`
	BlinkCount      int     `json:"blink_count"`
	HeadMovement    float64 `json:"head_movement"`
	MotionJitter    float64 `json:"motion_jitter"`
	MouthVariance   float64 `json:"mouth_variance"`
	FramesProcessed int     `json:"frames_processed"`
}

// Metrics returns the auxiliary measurements reported as rejection evidence.
func (s LivenessSignal) Metrics() map[string]float64 {
	return map[string]float64{
		"blink_count":      float64(s.BlinkCount),
		"head_movement":    s.HeadMovement,
		"motion_jitter":    s.MotionJitter,
		"mouth_variance":   s.MouthVariance,
		"frames_processed": float64(s.FramesProcessed),
	}
}

// LivenessVerdict is the gate's reduction of a liveness signal. Fallback is set
// when the verdict came from the motion check instead of the scorer, in which
// case Confidence is not meaningful.
type LivenessVerdict struct {
	IsLive     bool
	Confidence float64
	Metrics    map[string]float64
	Fallback   bool
}

// SpoofVerdict is the anti-spoof gate's reduction of a frame drift risk.
type SpoofVerdict struct {
	Suspected bool
	Risk      float64
}

// MotionVerdict is the result of the pixel-difference liveness check.
type MotionVerdict struct {
	IsLive bool
	// Score is the mean absolute per-channel difference between consecutive
	// frames, on a 0-255 scale.
	Score float64
}

// MatchResult is the reduction of all usable probe similarities.
type MatchResult struct {
	Passed bool
	Mean   float64
	Probes int
}

// VerifyRequest carries one verification submission.
type VerifyRequest struct {
	ClientID     string
	SessionToken string
	Selfie       []byte
	Video        []byte
}

const (
	SearchMatchFound = "match_found"
	SearchNoMatch    = "no_match"
	SearchRejected   = "rejected"
	SearchError      = "error"
)

const (
	SearchReasonInvalidImage   = "invalid image"
	SearchReasonEncodingFailed = "encoding failed"
	SearchReasonFailed         = "search failed"
)

// SearchResult is the response to an identity search.
type SearchResult struct {
	Status          string   `json:"status"`
	Reason          string   `json:"reason,omitempty"`
	SimilarityScore *float64 `json:"similarity_score,omitempty"`
	ClosestScore    *float64 `json:"closest_score,omitempty"`
}

func MatchFound(score float64) SearchResult {
	return SearchResult{Status: SearchMatchFound, SimilarityScore: &score}
}

func NoMatch(score float64) SearchResult {
	return SearchResult{Status: SearchNoMatch, ClosestScore: &score}
}

// Score returns whichever similarity the result carries.
func (r SearchResult) Score() *float64 {
	if r.SimilarityScore != nil {
		return r.SimilarityScore
	}
	return r.ClosestScore
}
