package gates

import (
	"errors"

	registrymodels "kycgate/internal/registry/models"
	"kycgate/internal/verification/models"
)

// ErrIdentityCheckFailed means no probe produced a usable embedding.
var ErrIdentityCheckFailed = errors.New("identity check failed: no usable probe embeddings")

// IdentityMatcher compares a reference embedding with per-frame probes.
type IdentityMatcher struct {
	threshold float64
}

func NewIdentityMatcher(threshold float64) IdentityMatcher {
	return IdentityMatcher{threshold: threshold}
}

// Match averages the cosine similarity of every usable probe against
// reference and passes iff the mean reaches the threshold. Probes that are
// empty or of the wrong length are skipped.
func (m IdentityMatcher) Match(reference []float64, probes [][]float64) (models.MatchResult, error) {
	var (
		sum    float64
		usable int
	)
	for _, p := range probes {
		if len(p) == 0 || len(p) != len(reference) {
			continue
		}
		sum += registrymodels.CosineSimilarity(reference, p)
		usable++
	}
	if usable == 0 {
		return models.MatchResult{}, ErrIdentityCheckFailed
	}
	mean := sum / float64(usable)
	return models.MatchResult{
		Passed: mean >= m.threshold,
		Mean:   mean,
		Probes: usable,
	}, nil
}
