package gates

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kycgate/internal/verification/models"
)

func uniform(v uint8) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, color.RGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return img
}

func TestLivenessGate(t *testing.T) {
	gate := NewLivenessGate(0.4)

	tests := []struct {
		name   string
		signal models.LivenessSignal
		live   bool
	}{
		{"at threshold", models.LivenessSignal{Confidence: 0.4}, true},
		{"above threshold", models.LivenessSignal{Confidence: 0.8}, true},
		{"below threshold", models.LivenessSignal{Confidence: 0.39}, false},
		{"scorer flag is ignored when confidence is low", models.LivenessSignal{IsLive: true, Confidence: 0.1}, false},
		{"scorer flag is ignored when confidence is high", models.LivenessSignal{IsLive: false, Confidence: 0.9}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := gate.Evaluate(tt.signal)
			assert.Equal(t, tt.live, v.IsLive)
			assert.Equal(t, tt.signal.Confidence, v.Confidence)
		})
	}
}

func TestLivenessGateCarriesMetrics(t *testing.T) {
	v := NewLivenessGate(0.4).Evaluate(models.LivenessSignal{Confidence: 0.2, BlinkCount: 3, FramesProcessed: 40})
	assert.Equal(t, 3.0, v.Metrics["blink_count"])
	assert.Equal(t, 40.0, v.Metrics["frames_processed"])
}

func TestAntiSpoofGateDoesNotClamp(t *testing.T) {
	gate := NewAntiSpoofGate(1.2)

	assert.False(t, gate.Evaluate(0.9).Suspected)
	assert.False(t, gate.Evaluate(1.1).Suspected, "risk above 1 is still below the limit")
	assert.False(t, gate.Evaluate(1.2).Suspected, "limit itself passes")
	v := gate.Evaluate(1.7)
	assert.True(t, v.Suspected)
	assert.Equal(t, 1.7, v.Risk)
}

func TestMotionLiveness(t *testing.T) {
	m := NewMotionLiveness(5)

	t.Run("static frames are not live", func(t *testing.T) {
		v := m.Evaluate([]image.Image{uniform(100), uniform(100), uniform(100)})
		assert.False(t, v.IsLive)
		assert.Zero(t, v.Score)
	})

	t.Run("moving frames are live", func(t *testing.T) {
		v := m.Evaluate([]image.Image{uniform(100), uniform(120), uniform(100)})
		assert.True(t, v.IsLive)
		assert.InDelta(t, 20, v.Score, 1e-9)
	})

	t.Run("score equal to threshold is not live", func(t *testing.T) {
		v := m.Evaluate([]image.Image{uniform(10), uniform(15)})
		assert.InDelta(t, 5, v.Score, 1e-9)
		assert.False(t, v.IsLive)
	})

	t.Run("single frame is not live", func(t *testing.T) {
		assert.False(t, m.Evaluate([]image.Image{uniform(0)}).IsLive)
	})
}

func TestIdentityMatcher(t *testing.T) {
	m := NewIdentityMatcher(0.70)
	ref := []float64{1, 0}

	t.Run("mean not max decides", func(t *testing.T) {
		res, err := m.Match(ref, [][]float64{{1, 0}, {0, 1}})
		require.NoError(t, err)
		assert.InDelta(t, 0.5, res.Mean, 1e-9)
		assert.False(t, res.Passed)
		assert.Equal(t, 2, res.Probes)
	})

	t.Run("missing probes are skipped", func(t *testing.T) {
		res, err := m.Match(ref, [][]float64{nil, {1, 0}, {}, {1, 0, 0}})
		require.NoError(t, err)
		assert.Equal(t, 1, res.Probes)
		assert.True(t, res.Passed)
	})

	t.Run("threshold is inclusive", func(t *testing.T) {
		res, err := NewIdentityMatcher(0.5).Match(ref, [][]float64{{1, 0}, {0, 1}})
		require.NoError(t, err)
		assert.Equal(t, 0.5, res.Mean)
		assert.True(t, res.Passed)
	})

	t.Run("no usable probes", func(t *testing.T) {
		_, err := m.Match(ref, [][]float64{nil, nil})
		require.ErrorIs(t, err, ErrIdentityCheckFailed)
	})
}
