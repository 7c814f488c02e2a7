package engine

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"
)

var (
	// ErrInvalidTempo is returned for non-positive tempo hints.
	ErrInvalidTempo = errors.New("engine: tempo must be positive")
	// ErrUnsupportedMode is returned by Configure for unknown mode names.
	// The accompanying scene renders blank.
	ErrUnsupportedMode = errors.New("engine: unsupported mode")
)

// Tick is the timing context handed to Render.
type Tick struct {
	Phase  float64 // seconds into the current period, in [0, Period)
	Period float64 // seconds
	Cycle  int     // completed periods since the last SetMode
	Count  uint64  // ticks since Start
}

// Fraction returns Phase/Period in [0, 1).
func (t Tick) Fraction() float64 {
	if t.Period <= 0 {
		return 0
	}
	return t.Phase / t.Period
}

// Step is one output of a blocking sequence, held for Hold.
type Step[O any] struct {
	Output O
	Hold   time.Duration
}

// Rig describes one actuator to the engine. S is its scene type and O its
// output frame.
type Rig[S, O any] interface {
	// Configure builds the scene for a SetMode and returns its period in
	// seconds. Unknown modes yield ErrUnsupportedMode and a blank scene.
	Configure(cmd SetMode, rng *rand.Rand) (S, float64, error)
	// Render draws the scene at the given tick.
	Render(scene S, tick Tick) O
	// Pulse returns the steps of a pulse played over the scene. last is the
	// most recently flushed output.
	Pulse(scene S, cmd Pulse, last O) []Step[O]
	// Prelude returns steps played once after Start, before the first tick.
	Prelude() []Step[O]
	// Off returns the all-off output.
	Off() O
}

// Driver pushes outputs to hardware.
type Driver[O any] interface {
	Write(out O) error
}

// DiscardDriver accepts and drops every output. It stands in for hardware in
// headless runs.
type DiscardDriver[O any] struct{}

// Write implements Driver.
func (DiscardDriver[O]) Write(O) error { return nil }

// PeriodFromTempo returns 60/tempo*scale seconds.
func PeriodFromTempo(tempo, scale float64) (float64, error) {
	if tempo <= 0 || math.IsNaN(tempo) || math.IsInf(tempo, 0) {
		return 0, fmt.Errorf("%w: %v", ErrInvalidTempo, tempo)
	}
	if scale <= 0 {
		scale = 1
	}
	return 60 / tempo * scale, nil
}

// Advance moves phase forward by max(elapsed, dt) and folds it into
// [0, period). It returns the new phase and the number of periods completed.
func Advance(phase, period float64, elapsed, dt time.Duration) (float64, int) {
	if period <= 0 {
		return 0, 0
	}
	step := elapsed
	if step < dt {
		step = dt
	}
	p := phase + step.Seconds()
	wraps := int(math.Floor(p / period))
	p -= float64(wraps) * period
	// rounding at the boundary
	if p >= period {
		p -= period
		wraps++
	}
	if p < 0 {
		p = 0
	}
	return p, wraps
}
