package light

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/realtime-ai/ferrolight/pkg/engine"
)

var green = engine.RGB{R: 65, G: 255, B: 28}

func tickAt(frac, period float64) engine.Tick {
	return engine.Tick{Phase: frac * period, Period: period}
}

func lit(f Frame) int {
	n := 0
	for _, p := range f.Pixels {
		if p != (engine.RGB{}) {
			n++
		}
	}
	return n
}

func TestConfigure(t *testing.T) {
	r := NewRig(DefaultConfig())
	rng := rand.New(rand.NewSource(5))

	t.Run("Breathe jitters end colour", func(t *testing.T) {
		for i := 0; i < 50; i++ {
			s, period, err := r.Configure(engine.SetMode{Mode: ModeBreathe, Tempo: 60, Color: &green}, rng)
			require.NoError(t, err)
			assert.InDelta(t, 1.0, period, 1e-12)

			b, ok := s.(Breathe)
			require.True(t, ok)
			assert.Equal(t, green, b.Start)
			assert.InDelta(t, int(green.R), int(b.End.R), 20)
			assert.InDelta(t, int(green.B), int(b.End.B), 20)
			assert.GreaterOrEqual(t, int(b.End.G), 235)
		}
	})

	t.Run("Sparkling is an alias", func(t *testing.T) {
		s, _, err := r.Configure(engine.SetMode{Mode: ModeSparkling, Tempo: 120}, rng)
		require.NoError(t, err)
		sp, ok := s.(Sparkle)
		require.True(t, ok)
		assert.Equal(t, DefaultColor, sp.Base)
	})

	t.Run("Unknown mode", func(t *testing.T) {
		s, period, err := r.Configure(engine.SetMode{Mode: "strobe", Tempo: 120}, rng)
		assert.ErrorIs(t, err, engine.ErrUnsupportedMode)
		assert.Equal(t, Unsupported{Name: "strobe"}, s)
		assert.InDelta(t, 0.5, period, 1e-12)
	})

	t.Run("Invalid tempo", func(t *testing.T) {
		_, _, err := r.Configure(engine.SetMode{Mode: ModeWater, Tempo: 0}, rng)
		assert.ErrorIs(t, err, engine.ErrInvalidTempo)
	})
}

func TestRender_Breathe(t *testing.T) {
	r := NewRig(DefaultConfig())
	s := Breathe{Start: engine.RGB{R: 200}, End: engine.RGB{B: 200}}

	f := r.Render(s, tickAt(0, 1))
	assert.Equal(t, uint8(85), f.Brightness)
	assert.Equal(t, s.Start, f.Pixels[0])
	assert.Equal(t, s.End, f.Pixels[7])

	f = r.Render(s, tickAt(0.5, 1))
	assert.Equal(t, uint8(15), f.Brightness)
	// rolled by 7 pixels
	assert.Equal(t, s.End, f.Pixels[0])
	assert.Equal(t, s.Start, f.Pixels[7])
}

func TestRender_Water(t *testing.T) {
	r := NewRig(DefaultConfig())
	s := Water{Base: green}

	tests := []struct {
		frac float64
		want []bool
	}{
		{0.25, []bool{true, true, true, true, true, true, true, false, false, false, false, false, false, false}},
		{0.75, []bool{false, false, false, false, false, false, false, true, true, true, true, true, true, true}},
		{0, make([]bool, 14)},
	}

	for _, tt := range tests {
		f := r.Render(s, tickAt(tt.frac, 2))
		require.Len(t, f.Pixels, 14)
		for i, on := range tt.want {
			if on {
				assert.Equal(t, green, f.Pixels[i], "frac %v pixel %d", tt.frac, i)
			} else {
				assert.Equal(t, engine.RGB{}, f.Pixels[i], "frac %v pixel %d", tt.frac, i)
			}
		}
		assert.Equal(t, uint8(100), f.Brightness)
	}
}

func TestRender_Sparkle(t *testing.T) {
	r := NewRig(DefaultConfig())
	s := Sparkle{Base: green, Seed: 42}

	patterns := map[string]bool{}
	for slot := 0; slot < 10; slot++ {
		frac := (float64(slot) + 0.5) / 10
		f := r.Render(s, tickAt(frac, 1))
		assert.Equal(t, 7, lit(f))

		again := r.Render(s, tickAt(frac, 1))
		assert.Equal(t, f, again, "same slot must redraw the same subset")

		key := ""
		for _, p := range f.Pixels {
			if p == green {
				key += "1"
			} else {
				key += "0"
			}
		}
		patterns[key] = true
	}
	assert.Greater(t, len(patterns), 1)
}

func TestRender_Unsupported(t *testing.T) {
	r := NewRig(DefaultConfig())
	f := r.Render(Unsupported{Name: "x"}, tickAt(0.3, 1))
	assert.Equal(t, 0, lit(f))
}

func TestPulse(t *testing.T) {
	r := NewRig(DefaultConfig())
	last := r.Render(Water{Base: green}, tickAt(0.25, 1))

	steps := r.Pulse(Water{Base: green}, engine.Pulse{Pattern: "beat", Strength: 255, Duration: 560 * time.Millisecond}, last)
	require.Len(t, steps, 4*15+1)

	assert.Equal(t, uint8(0), steps[0].Output.Brightness)
	assert.Equal(t, last.Pixels, steps[0].Output.Pixels)

	first := steps[1]
	assert.Equal(t, 10*time.Millisecond, first.Hold)
	assert.Equal(t, uint8(255), first.Output.Brightness)
	assert.Equal(t, green, first.Output.Pixels[13])

	full := steps[14].Output
	for _, p := range full.Pixels {
		assert.Equal(t, green, p)
	}

	end := steps[len(steps)-1].Output
	assert.Equal(t, r.Off(), end)

	var total time.Duration
	for _, s := range steps {
		total += s.Hold
	}
	assert.Equal(t, 560*time.Millisecond, total)

	assert.Empty(t, r.Pulse(Unsupported{}, engine.Pulse{Duration: time.Second}, last))
}

func TestRig_WithEngine(t *testing.T) {
	r := NewRig(DefaultConfig())
	var drv engine.Driver[Frame] = engine.DiscardDriver[Frame]{}
	e := engine.New[Scene, Frame](r, drv, engine.Options{Name: "light", Tick: r.Config().Tick})

	ctx := context.Background()
	require.NoError(t, e.Start(ctx))
	require.NoError(t, e.Send(ctx, engine.SetMode{Mode: ModeWater, Tempo: 60, Color: &green}))
	require.Eventually(t, func() bool { return e.State().Mode == ModeWater }, time.Second, time.Millisecond)
	e.Stop()
	assert.False(t, e.State().Running)
}
