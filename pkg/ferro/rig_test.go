package ferro

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/realtime-ai/ferrolight/pkg/engine"
)

func TestConfigure(t *testing.T) {
	r := NewRig(DefaultConfig())
	rng := rand.New(rand.NewSource(1))

	s, period, err := r.Configure(engine.SetMode{Mode: ModeWalk, Tempo: 120}, rng)
	require.NoError(t, err)
	assert.Equal(t, Walk{Intensity: 100}, s)
	assert.InDelta(t, 10.0, period, 1e-12)

	s, _, err = r.Configure(engine.SetMode{Mode: "spin", Tempo: 120}, rng)
	assert.ErrorIs(t, err, engine.ErrUnsupportedMode)
	assert.Equal(t, Unsupported{Name: "spin"}, s)

	_, _, err = r.Configure(engine.SetMode{Mode: ModeWalk, Tempo: -1}, rng)
	assert.ErrorIs(t, err, engine.ErrInvalidTempo)
}

func TestWalk_Halves(t *testing.T) {
	r := NewRig(DefaultConfig())
	w := Walk{Intensity: 100}
	period := 10.0

	for cycle := 0; cycle < 8; cycle++ {
		// 2.5s: first half, dither on (int(37.5) % 3 == 1)
		d := r.Render(w, engine.Tick{Phase: 2.5, Period: period, Cycle: cycle})
		assert.Equal(t, Duty{Middle: 100}, d, "cycle %d first half", cycle)

		// 7.5s: second half, dither on (int(112.5) % 3 == 1)
		d = r.Render(w, engine.Tick{Phase: 7.5, Period: period, Cycle: cycle})
		var want Duty
		want[(cycle+1)%4] = 100
		assert.Equal(t, want, d, "cycle %d second half", cycle)
	}
}

func TestWalk_Dither(t *testing.T) {
	r := NewRig(DefaultConfig())
	d := r.Render(Walk{Intensity: 100}, engine.Tick{Phase: 0, Period: 10})
	assert.Equal(t, Duty{}, d)

	on := 0
	ticks := 1000
	for i := 0; i < ticks; i++ {
		d := r.Render(Walk{Intensity: 100}, engine.Tick{Phase: float64(i) * 0.01, Period: 10})
		if d.Active() > 0 {
			on++
		}
	}
	assert.InDelta(t, 2.0/3, float64(on)/float64(ticks), 0.02)
}

func TestWalk_AtMostTwoCoils(t *testing.T) {
	r := NewRig(DefaultConfig())
	w := Walk{Intensity: 100}

	for cycle := 0; cycle < 4; cycle++ {
		for i := 0; i < 1000; i++ {
			d := r.Render(w, engine.Tick{Phase: float64(i) * 0.01, Period: 10, Cycle: cycle, Count: uint64(i)})
			require.LessOrEqual(t, d.Active(), 2)
		}
	}
}

func TestWalkTarget(t *testing.T) {
	assert.Equal(t, DownLeft, WalkTarget(0))
	assert.Equal(t, DownRight, WalkTarget(1))
	assert.Equal(t, Up, WalkTarget(2))
	assert.Equal(t, Middle, WalkTarget(3))
	assert.Equal(t, "downright", DownRight.String())
}

func TestPulse(t *testing.T) {
	r := NewRig(DefaultConfig())
	w := Walk{Intensity: 100}

	t.Run("Dips energised coil", func(t *testing.T) {
		steps := r.Pulse(w, engine.Pulse{Strength: 0.5, Duration: 100 * time.Millisecond}, Duty{Up: 100})
		require.Len(t, steps, 10)
		assert.InDelta(t, 50.0, steps[4].Output[Up], 1e-9)
		assert.InDelta(t, 100.0, steps[9].Output[Up], 1e-9)
		for _, s := range steps {
			assert.Equal(t, 10*time.Millisecond, s.Hold)
			assert.LessOrEqual(t, s.Output.Active(), 2)
			assert.Zero(t, s.Output[Middle])
		}
	})

	t.Run("Middle carries pulse when idle", func(t *testing.T) {
		steps := r.Pulse(w, engine.Pulse{Strength: 1, Duration: 20 * time.Millisecond}, Duty{})
		require.Len(t, steps, 2)
		assert.InDelta(t, 0.0, steps[0].Output[Middle], 1e-9)
		assert.InDelta(t, 100.0, steps[1].Output[Middle], 1e-9)
	})

	t.Run("Unsupported scene has no pulse", func(t *testing.T) {
		assert.Nil(t, r.Pulse(Unsupported{}, engine.Pulse{Duration: time.Second}, Duty{}))
	})
}

func TestPrelude(t *testing.T) {
	r := NewRig(DefaultConfig())
	steps := r.Prelude()
	require.Len(t, steps, 2)
	assert.Equal(t, Duty{Middle: 100, DownLeft: 70, DownRight: 70, Up: 70}, steps[0].Output)
	assert.Equal(t, 2*time.Second, steps[0].Hold)
	assert.Equal(t, Duty{}, steps[1].Output)

	cfg := DefaultConfig()
	cfg.GatherDuration = 0
	assert.Empty(t, NewRig(cfg).Prelude())
}
