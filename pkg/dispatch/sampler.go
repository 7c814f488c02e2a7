package dispatch

import (
	"math/rand"
	"sync"

	"github.com/realtime-ai/ferrolight/pkg/engine"
)

// WeightedMode is a light mode and its relative sampling weight.
type WeightedMode struct {
	Mode   string
	Weight float64
}

// NamedColor is a palette entry.
type NamedColor struct {
	Name  string
	Color engine.RGB
}

// DefaultModes favours water over breathe over sparkle.
var DefaultModes = []WeightedMode{
	{Mode: "water", Weight: 0.5},
	{Mode: "breathe", Weight: 0.3},
	{Mode: "sparkle", Weight: 0.2},
}

// Palette is the set of base colours a mode change picks from.
var Palette = []NamedColor{
	{"Green1", engine.RGB{R: 65, G: 255, B: 28}},
	{"Yellow", engine.RGB{R: 255, G: 160, B: 8}},
	{"Purple", engine.RGB{R: 185, G: 63, B: 255}},
	{"Red", engine.RGB{R: 255, G: 11, B: 11}},
	{"Blue1", engine.RGB{R: 83, G: 255, B: 129}},
	{"Pink", engine.RGB{R: 255, G: 129, B: 129}},
	{"Green2", engine.RGB{R: 0, G: 255, B: 6}},
	{"Blue2", engine.RGB{R: 16, G: 73, B: 255}},
}

// ModeSampler draws a light mode by weight and a colour uniformly.
type ModeSampler struct {
	rng     *rand.Rand
	modes   []WeightedMode
	palette []NamedColor
	total   float64
	mu      sync.Mutex
}

// NewModeSampler samples DefaultModes and Palette from rng.
func NewModeSampler(rng *rand.Rand) *ModeSampler {
	return NewModeSamplerWith(rng, DefaultModes, Palette)
}

// NewModeSamplerWith samples the given modes and palette.
func NewModeSamplerWith(rng *rand.Rand, modes []WeightedMode, palette []NamedColor) *ModeSampler {
	var total float64
	for _, m := range modes {
		if m.Weight > 0 {
			total += m.Weight
		}
	}
	return &ModeSampler{rng: rng, modes: modes, palette: palette, total: total}
}

// Sample returns a mode and a palette colour.
func (s *ModeSampler) Sample() (string, NamedColor) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var color NamedColor
	if len(s.palette) > 0 {
		color = s.palette[s.rng.Intn(len(s.palette))]
	}
	if len(s.modes) == 0 {
		return "", color
	}

	x := s.rng.Float64() * s.total
	for _, m := range s.modes {
		if m.Weight <= 0 {
			continue
		}
		if x < m.Weight {
			return m.Mode, color
		}
		x -= m.Weight
	}
	return s.modes[len(s.modes)-1].Mode, color
}

// Color returns a palette colour without drawing a mode.
func (s *ModeSampler) Color() NamedColor {
	_, c := s.Sample()
	return c
}
