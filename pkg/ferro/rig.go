// Package ferro drives the four electromagnets under the ferrofluid dish.
package ferro

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/realtime-ai/ferrolight/pkg/engine"
)

// Coil indexes a Duty.
type Coil int

const (
	Middle Coil = iota
	DownLeft
	DownRight
	Up

	NumCoils = 4
)

var coilNames = [NumCoils]string{"middle", "downleft", "downright", "up"}

func (c Coil) String() string {
	if c < 0 || c >= NumCoils {
		return fmt.Sprintf("coil(%d)", int(c))
	}
	return coilNames[c]
}

// Duty holds one PWM duty cycle per coil, in percent.
type Duty [NumCoils]float64

// Active returns how many coils have a non-zero duty.
func (d Duty) Active() int {
	n := 0
	for _, v := range d {
		if v > 0 {
			n++
		}
	}
	return n
}

// Scene is Walk or Unsupported.
type Scene interface {
	isScene()
}

// Walk drags the fluid from coil to coil through the middle, one coil per period.
type Walk struct {
	Intensity float64
}

// Unsupported leaves every coil off.
type Unsupported struct {
	Name string
}

func (Walk) isScene()        {}
func (Unsupported) isScene() {}

// ModeWalk is the only motion mode.
const ModeWalk = "walk"

// periodScale stretches one beat into a slow walk step.
const periodScale = 20

// ditherRate and ditherDiv switch the energised coil at about 5 Hz with
// two-thirds duty.
const (
	ditherRate = 15
	ditherDiv  = 3
)

// Config describes the coil timing.
type Config struct {
	Tick           time.Duration
	Intensity      float64 // walk duty, percent
	GatherDuty     Duty
	GatherDuration time.Duration // 0 disables the gather prelude
}

// DefaultConfig returns the 10ms loop with a 2s gather.
func DefaultConfig() Config {
	return Config{
		Tick:           10 * time.Millisecond,
		Intensity:      100,
		GatherDuty:     Duty{Middle: 100, DownLeft: 70, DownRight: 70, Up: 70},
		GatherDuration: 2 * time.Second,
	}
}

// Rig implements engine.Rig for the coils.
type Rig struct {
	cfg Config
}

var _ engine.Rig[Scene, Duty] = (*Rig)(nil)

// NewRig creates a coil rig.
func NewRig(cfg Config) *Rig {
	if cfg.Tick <= 0 {
		cfg.Tick = DefaultConfig().Tick
	}
	if cfg.Intensity <= 0 || cfg.Intensity > 100 {
		cfg.Intensity = DefaultConfig().Intensity
	}
	return &Rig{cfg: cfg}
}

// Config returns the effective configuration.
func (r *Rig) Config() Config {
	return r.cfg
}

// Configure implements engine.Rig.
func (r *Rig) Configure(cmd engine.SetMode, _ *rand.Rand) (Scene, float64, error) {
	period, err := engine.PeriodFromTempo(cmd.Tempo, periodScale)
	if err != nil {
		return nil, 0, err
	}
	if cmd.Mode != ModeWalk {
		return Unsupported{Name: cmd.Mode}, period, fmt.Errorf("%w: %s", engine.ErrUnsupportedMode, cmd.Mode)
	}
	return Walk{Intensity: r.cfg.Intensity}, period, nil
}

// WalkTarget returns the coil a walk moves towards during cycle.
func WalkTarget(cycle int) Coil {
	return Coil((cycle + 1) % NumCoils)
}

// Render implements engine.Rig.
func (r *Rig) Render(s Scene, t engine.Tick) Duty {
	var d Duty
	switch s := s.(type) {
	case Walk:
		energised := Middle
		if t.Fraction() >= 0.5 {
			energised = WalkTarget(t.Cycle)
		}
		if int(t.Phase*ditherRate)%ditherDiv != 0 {
			d[energised] = s.Intensity
		}
	case Unsupported:
	default:
		panic(fmt.Sprintf("ferro: unknown scene %T", s))
	}
	return d
}

// Pulse implements engine.Rig. The energised coils dip along a raised cosine
// and recover by the end of the pulse.
func (r *Rig) Pulse(s Scene, cmd engine.Pulse, last Duty) []engine.Step[Duty] {
	w, ok := s.(Walk)
	if !ok {
		return nil
	}

	base := last
	if base.Active() == 0 {
		base[Middle] = w.Intensity
	}
	strength := math.Max(0, math.Min(1, cmd.Strength))

	n := int(cmd.Duration / r.cfg.Tick)
	if n < 1 {
		n = 1
	}
	steps := make([]engine.Step[Duty], 0, n)
	for k := 1; k <= n; k++ {
		u := float64(k) / float64(n)
		dip := 1 - strength*(1-math.Cos(2*math.Pi*u))/2

		var d Duty
		for i, v := range base {
			d[i] = v * dip
		}
		steps = append(steps, engine.Step[Duty]{Output: d, Hold: r.cfg.Tick})
	}
	return steps
}

// Prelude implements engine.Rig. It pulls the fluid to the centre before the
// first scene.
func (r *Rig) Prelude() []engine.Step[Duty] {
	if r.cfg.GatherDuration <= 0 {
		return nil
	}
	return []engine.Step[Duty]{
		{Output: r.cfg.GatherDuty, Hold: r.cfg.GatherDuration},
		{Output: r.Off()},
	}
}

// Off implements engine.Rig.
func (r *Rig) Off() Duty {
	return Duty{}
}
