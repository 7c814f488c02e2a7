package light

import (
	"time"

	"github.com/realtime-ai/ferrolight/pkg/engine"
)

// DefaultColor is used when SetMode carries no colour.
var DefaultColor = engine.RGB{R: 255, G: 160, B: 8}

// Config describes the strip and its animation constants.
type Config struct {
	Pixels          int
	Brightness      uint8   // resting brightness
	SparkleFraction float64 // share of pixels lit by Sparkle
	Amplitude       float64 // breathe depth, 0.4-1.0 is visible
	ColorJitter     int     // max per-channel offset of the breathe end colour
	Tick            time.Duration
}

// DefaultConfig returns the 14-pixel strip setup.
func DefaultConfig() Config {
	return Config{
		Pixels:          14,
		Brightness:      100,
		SparkleFraction: 0.5,
		Amplitude:       0.7,
		ColorJitter:     20,
		Tick:            5 * time.Millisecond,
	}
}
