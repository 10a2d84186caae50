package decision

// Status is the client-facing outcome class.
type Status string

const (
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusError    Status = "error"
)

// State is a node of the verification state machine. Received is the only
// non-terminal state; every request ends in exactly one terminal state.
type State int

const (
	Received State = iota
	RateLimited
	SessionInvalid
	ImageInvalid
	EncodingFailed
	FramesInsufficient
	SpoofSuspected
	LivenessFailed
	IdentityMismatch
	DuplicateFound
	Approved
	PipelineError
)

// Reason strings returned to clients.
const (
	ReasonRateLimited         = "rate limit exceeded"
	ReasonSessionInvalid      = "invalid session"
	ReasonImageInvalid        = "invalid image"
	ReasonEncodingFailed      = "encoding failed"
	ReasonFramesInsufficient  = "not enough frames"
	ReasonSpoofSuspected      = "deepfake suspicion"
	ReasonLivenessFailed      = "liveness failed"
	ReasonIdentityMismatch    = "identity mismatch"
	ReasonIdentityCheckFailed = "identity check failed"
	ReasonDuplicateFound      = "duplicate identity"
	ReasonPipelineError       = "verification pipeline failure"
)

type stateInfo struct {
	name   string
	status Status
	reason string
}

var states = map[State]stateInfo{
	Received:           {"received", "", ""},
	RateLimited:        {"rate_limited", StatusRejected, ReasonRateLimited},
	SessionInvalid:     {"session_invalid", StatusRejected, ReasonSessionInvalid},
	ImageInvalid:       {"image_invalid", StatusRejected, ReasonImageInvalid},
	EncodingFailed:     {"encoding_failed", StatusRejected, ReasonEncodingFailed},
	FramesInsufficient: {"frames_insufficient", StatusRejected, ReasonFramesInsufficient},
	SpoofSuspected:     {"spoof_suspected", StatusRejected, ReasonSpoofSuspected},
	LivenessFailed:     {"liveness_failed", StatusRejected, ReasonLivenessFailed},
	IdentityMismatch:   {"identity_mismatch", StatusRejected, ReasonIdentityMismatch},
	DuplicateFound:     {"duplicate_found", StatusRejected, ReasonDuplicateFound},
	Approved:           {"approved", StatusApproved, ""},
	PipelineError:      {"pipeline_error", StatusError, ReasonPipelineError},
}

func (s State) String() string {
	if info, ok := states[s]; ok {
		return info.name
	}
	return "unknown"
}

// Terminal reports whether s ends a verification run.
func (s State) Terminal() bool {
	_, ok := states[s]
	return ok && s != Received
}

// Status returns the outcome class of a terminal state.
func (s State) Status() Status {
	return states[s].status
}

// Reason returns the default client-facing reason of a terminal state.
func (s State) Reason() string {
	return states[s].reason
}

// Decision is the single outcome of one verification request.
type Decision struct {
	Status          Status             `json:"status"`
	State           State              `json:"-"`
	Reason          string             `json:"reason,omitempty"`
	Similarity      *float64           `json:"similarity,omitempty"`
	Confidence      *float64           `json:"confidence,omitempty"`
	Risk            *float64           `json:"risk,omitempty"`
	LivenessMetrics map[string]float64 `json:"liveness_metrics,omitempty"`
}

// For builds the decision for a terminal state with its default reason.
func For(state State) Decision {
	return Decision{
		Status: state.Status(),
		State:  state,
		Reason: state.Reason(),
	}
}

// WithReason overrides the reason, used where one state has a more specific
// explanation.
func (d Decision) WithReason(reason string) Decision {
	d.Reason = reason
	return d
}

func (d Decision) WithSimilarity(v float64) Decision {
	d.Similarity = &v
	return d
}

func (d Decision) WithConfidence(v float64) Decision {
	d.Confidence = &v
	return d
}

func (d Decision) WithRisk(v float64) Decision {
	d.Risk = &v
	return d
}

func (d Decision) WithLivenessMetrics(m map[string]float64) Decision {
	d.LivenessMetrics = m
	return d
}

func (d Decision) Approved() bool {
	return d.State == Approved
}
