// Package gates reduces external biometric signals to pipeline verdicts.
package gates

import (
	"image"

	"kycgate/internal/verification/models"
)

// LivenessGate decides liveness from the scorer's confidence alone.
type LivenessGate struct {
	minConfidence float64
}

func NewLivenessGate(minConfidence float64) LivenessGate {
	return LivenessGate{minConfidence: minConfidence}
}

// Evaluate ignores the scorer's own IsLive flag; live iff confidence is at
// least the configured minimum.
func (g LivenessGate) Evaluate(sig models.LivenessSignal) models.LivenessVerdict {
	return models.LivenessVerdict{
		IsLive:     sig.Confidence >= g.minConfidence,
		Confidence: sig.Confidence,
		Metrics:    sig.Metrics(),
	}
}

// AntiSpoofGate rejects frame sequences whose drift risk exceeds maxRisk. The
// risk is not a probability and may exceed 1.
type AntiSpoofGate struct {
	maxRisk float64
}

func NewAntiSpoofGate(maxRisk float64) AntiSpoofGate {
	return AntiSpoofGate{maxRisk: maxRisk}
}

func (g AntiSpoofGate) Evaluate(risk float64) models.SpoofVerdict {
	return models.SpoofVerdict{Suspected: risk > g.maxRisk, Risk: risk}
}

// MotionLiveness is the passive fallback used when the liveness scorer is
// down. It only detects that something in the frame moved, so a replayed
// video passes it.
type MotionLiveness struct {
	threshold float64
}

func NewMotionLiveness(threshold float64) MotionLiveness {
	return MotionLiveness{threshold: threshold}
}

// Evaluate averages the per-pair mean pixel difference over all consecutive
// frame pairs. Fewer than two frames is never live.
func (m MotionLiveness) Evaluate(frames []image.Image) models.MotionVerdict {
	if len(frames) < 2 {
		return models.MotionVerdict{}
	}
	var total float64
	for i := 1; i < len(frames); i++ {
		total += meanAbsDiff(frames[i-1], frames[i])
	}
	score := total / float64(len(frames)-1)
	return models.MotionVerdict{IsLive: score > m.threshold, Score: score}
}

// meanAbsDiff compares the overlapping region of a and b channel by channel
// on an 8-bit scale.
func meanAbsDiff(a, b image.Image) float64 {
	ab, bb := a.Bounds(), b.Bounds()
	w := min(ab.Dx(), bb.Dx())
	h := min(ab.Dy(), bb.Dy())
	if w == 0 || h == 0 {
		return 0
	}
	var sum uint64
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r1, g1, b1, _ := a.At(ab.Min.X+x, ab.Min.Y+y).RGBA()
			r2, g2, b2, _ := b.At(bb.Min.X+x, bb.Min.Y+y).RGBA()
			sum += absDiff(r1>>8, r2>>8) + absDiff(g1>>8, g2>>8) + absDiff(b1>>8, b2>>8)
		}
	}
	return float64(sum) / float64(w*h*3)
}

func absDiff(a, b uint32) uint64 {
	if a > b {
		return uint64(a - b)
	}
	return uint64(b - a)
}
