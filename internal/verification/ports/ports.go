// Package ports defines the biometric collaborators the verification pipeline
// consumes. Implementations live outside the pipeline, see internal/vision.
package ports

import (
	"context"
	"fmt"
	"image"

	"kycgate/internal/verification/models"
	"kycgate/pkg/platform/sentinel"
)

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks

// ErrLivenessUnavailable is returned by a LivenessScorer that cannot score
// clips right now. It wraps sentinel.ErrUnavailable.
var ErrLivenessUnavailable = fmt.Errorf("liveness scorer: %w", sentinel.ErrUnavailable)

// EmbeddingExtractor maps one face image to an embedding vector. A nil vector
// with a nil error means no face was found.
type EmbeddingExtractor interface {
	ExtractEmbedding(ctx context.Context, img image.Image) ([]float64, error)
}

// FrameExtractor samples at most max frames from a video clip. The result may
// be empty.
type FrameExtractor interface {
	ExtractFrames(ctx context.Context, video []byte, max int) ([]image.Image, error)
}

// LivenessScorer scores a clip for signs of a live subject.
type LivenessScorer interface {
	ScoreLiveness(ctx context.Context, video []byte) (models.LivenessSignal, error)
}

// SpoofScorer returns an unbounded frame drift risk for a frame sequence.
type SpoofScorer interface {
	SpoofRisk(ctx context.Context, frames []image.Image) (float64, error)
}
