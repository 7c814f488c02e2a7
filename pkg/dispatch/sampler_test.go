package dispatch

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestModeSampler_Weights(t *testing.T) {
	s := NewModeSampler(rand.New(rand.NewSource(1)))

	counts := map[string]int{}
	colors := map[string]bool{}
	const n = 20000
	for i := 0; i < n; i++ {
		mode, c := s.Sample()
		counts[mode]++
		colors[c.Name] = true
	}

	assert.InDelta(t, 0.5, float64(counts["water"])/n, 0.03)
	assert.InDelta(t, 0.3, float64(counts["breathe"])/n, 0.03)
	assert.InDelta(t, 0.2, float64(counts["sparkle"])/n, 0.03)
	assert.Len(t, colors, len(Palette))
}

func TestModeSampler_Deterministic(t *testing.T) {
	a := NewModeSampler(rand.New(rand.NewSource(42)))
	b := NewModeSampler(rand.New(rand.NewSource(42)))
	for i := 0; i < 50; i++ {
		ma, ca := a.Sample()
		mb, cb := b.Sample()
		assert.Equal(t, ma, mb)
		assert.Equal(t, ca, cb)
	}
}

func TestModeSampler_SkipsZeroWeights(t *testing.T) {
	s := NewModeSamplerWith(rand.New(rand.NewSource(3)),
		[]WeightedMode{{Mode: "never", Weight: 0}, {Mode: "always", Weight: 1}}, Palette)
	for i := 0; i < 100; i++ {
		mode, _ := s.Sample()
		assert.Equal(t, "always", mode)
	}
}
