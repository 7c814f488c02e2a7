package light

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/realtime-ai/ferrolight/pkg/engine"
)

// sparkleSlots is how many times per period Sparkle redraws its subset.
const sparkleSlots = 10

// pulseFlashes is the number of off-then-fill cycles in a pulse.
const pulseFlashes = 4

// Rig implements engine.Rig for the LED strip.
type Rig struct {
	cfg Config
}

var _ engine.Rig[Scene, Frame] = (*Rig)(nil)

// NewRig creates a strip rig. Zero config fields take their defaults.
func NewRig(cfg Config) *Rig {
	def := DefaultConfig()
	if cfg.Pixels <= 0 {
		cfg.Pixels = def.Pixels
	}
	if cfg.SparkleFraction <= 0 || cfg.SparkleFraction > 1 {
		cfg.SparkleFraction = def.SparkleFraction
	}
	if cfg.Amplitude <= 0 {
		cfg.Amplitude = def.Amplitude
	}
	if cfg.ColorJitter < 0 {
		cfg.ColorJitter = 0
	}
	if cfg.Tick <= 0 {
		cfg.Tick = def.Tick
	}
	return &Rig{cfg: cfg}
}

// Config returns the effective configuration.
func (r *Rig) Config() Config {
	return r.cfg
}

// Configure implements engine.Rig.
func (r *Rig) Configure(cmd engine.SetMode, rng *rand.Rand) (Scene, float64, error) {
	period, err := engine.PeriodFromTempo(cmd.Tempo, 1)
	if err != nil {
		return nil, 0, err
	}

	base := DefaultColor
	if cmd.Color != nil {
		base = *cmd.Color
	}

	switch cmd.Mode {
	case ModeBreathe:
		return Breathe{Start: base, End: r.jitter(base, rng)}, period, nil
	case ModeWater:
		return Water{Base: base}, period, nil
	case ModeSparkle, ModeSparkling:
		return Sparkle{Base: base, Seed: rng.Int63()}, period, nil
	default:
		return Unsupported{Name: cmd.Mode}, period, fmt.Errorf("%w: %s", engine.ErrUnsupportedMode, cmd.Mode)
	}
}

func (r *Rig) jitter(c engine.RGB, rng *rand.Rand) engine.RGB {
	j := r.cfg.ColorJitter
	off := func(v uint8) uint8 {
		if j == 0 {
			return v
		}
		return clampByte(float64(int(v) + rng.Intn(2*j+1) - j))
	}
	return engine.RGB{R: off(c.R), G: off(c.G), B: off(c.B)}
}

// Render implements engine.Rig.
func (r *Rig) Render(s Scene, t engine.Tick) Frame {
	f := Frame{Pixels: make([]engine.RGB, r.cfg.Pixels), Brightness: r.cfg.Brightness}
	frac := t.Fraction()

	switch s := s.(type) {
	case Breathe:
		r.breathe(&f, s, frac)
	case Water:
		water(&f, s, frac)
	case Sparkle:
		r.sparkle(&f, s, t.Cycle, frac)
	case Unsupported:
	default:
		panic(fmt.Sprintf("light: unknown scene %T", s))
	}
	return f
}

func (r *Rig) breathe(f *Frame, s Breathe, frac float64) {
	b := float64(r.cfg.Brightness) * (1 + r.cfg.Amplitude*math.Cos(2*math.Pi*frac)) / 2
	f.Brightness = clampByte(b)

	n := len(f.Pixels)
	half := n / 2
	shift := int(float64(n)*frac) % n
	for i := 0; i < n; i++ {
		var c engine.RGB
		if i < half {
			c = lerp(s.Start, s.End, float64(i)/float64(half))
		} else {
			c = lerp(s.End, s.Start, float64(i-half)/float64(n-half))
		}
		f.Pixels[(i+shift)%n] = c
	}
}

func water(f *Frame, s Water, frac float64) {
	n := len(f.Pixels)
	rising := frac <= 0.5
	level := frac * 2
	if !rising {
		level = (frac - 0.5) * 2
	}
	lit := float64(n) * level

	for i := range f.Pixels {
		below := float64(i) < lit
		if below == rising {
			f.Pixels[i] = s.Base
		}
	}
}

func (r *Rig) sparkle(f *Frame, s Sparkle, cycle int, frac float64) {
	n := len(f.Pixels)
	count := int(r.cfg.SparkleFraction * float64(n))
	slot := int64(cycle)*sparkleSlots + int64(frac*sparkleSlots)

	pick := rand.New(rand.NewSource(s.Seed ^ (slot+1)*0x5851F42D4C957F2D))
	for _, i := range pick.Perm(n)[:count] {
		f.Pixels[i] = s.Base
	}
}

// Pulse implements engine.Rig. Each flash blanks the strip, then paints the
// base colour from the top pixel down at the pulse strength. The strip is
// left dark; the next render restores the resting brightness.
func (r *Rig) Pulse(s Scene, cmd engine.Pulse, last Frame) []engine.Step[Frame] {
	base, ok := sceneColor(s)
	if !ok {
		return nil
	}

	n := r.cfg.Pixels
	hold := cmd.Duration / time.Duration(n*pulseFlashes)
	strength := clampByte(cmd.Strength)

	steps := make([]engine.Step[Frame], 0, pulseFlashes*(n+1)+1)
	for flash := 0; flash < pulseFlashes; flash++ {
		px := make([]engine.RGB, n)
		copy(px, last.Pixels)
		steps = append(steps, engine.Step[Frame]{Output: Frame{Pixels: clonePixels(px)}})

		for i := n - 1; i >= 0; i-- {
			px[i] = base
			steps = append(steps, engine.Step[Frame]{
				Output: Frame{Pixels: clonePixels(px), Brightness: strength},
				Hold:   hold,
			})
		}
	}
	steps = append(steps, engine.Step[Frame]{Output: r.Off()})
	return steps
}

// Prelude implements engine.Rig.
func (r *Rig) Prelude() []engine.Step[Frame] {
	return nil
}

// Off implements engine.Rig.
func (r *Rig) Off() Frame {
	return Frame{Pixels: make([]engine.RGB, r.cfg.Pixels)}
}

func sceneColor(s Scene) (engine.RGB, bool) {
	switch s := s.(type) {
	case Breathe:
		return s.Start, true
	case Water:
		return s.Base, true
	case Sparkle:
		return s.Base, true
	default:
		return engine.RGB{}, false
	}
}

func lerp(a, b engine.RGB, t float64) engine.RGB {
	mix := func(x, y uint8) uint8 {
		return clampByte(float64(x) + (float64(y)-float64(x))*t)
	}
	return engine.RGB{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B)}
}

func clonePixels(px []engine.RGB) []engine.RGB {
	out := make([]engine.RGB, len(px))
	copy(out, px)
	return out
}

func clampByte(v float64) uint8 {
	switch {
	case math.IsNaN(v) || v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(math.Round(v))
	}
}
