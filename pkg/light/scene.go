// Package light renders scenes for a WS2812 LED strip.
package light

import (
	"github.com/realtime-ai/ferrolight/pkg/engine"
)

// Frame is one output: pixel colours plus the global brightness applied at
// encode time.
type Frame struct {
	Pixels     []engine.RGB
	Brightness uint8
}

// Scene is one of Breathe, Water, Sparkle or Unsupported.
type Scene interface {
	isScene()
}

// Breathe oscillates brightness over a gradient that rolls along the strip.
type Breathe struct {
	Start engine.RGB
	End   engine.RGB
}

// Water fills the strip bottom-up over the first half period and empties it
// over the second.
type Water struct {
	Base engine.RGB
}

// Sparkle lights a random subset of pixels, redrawn ten times per period.
type Sparkle struct {
	Base engine.RGB
	Seed int64
}

// Unsupported renders nothing.
type Unsupported struct {
	Name string
}

func (Breathe) isScene()     {}
func (Water) isScene()       {}
func (Sparkle) isScene()     {}
func (Unsupported) isScene() {}

// Mode names accepted by SetMode.
const (
	ModeBreathe   = "breathe"
	ModeWater     = "water"
	ModeSparkle   = "sparkle"
	ModeSparkling = "sparkling"
)
