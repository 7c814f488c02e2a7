package dispatch

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/realtime-ai/ferrolight/pkg/engine"
	"github.com/realtime-ai/ferrolight/pkg/light"
	"github.com/realtime-ai/ferrolight/pkg/onset"
	"github.com/realtime-ai/ferrolight/pkg/trace"
)

type fakeCommander struct {
	mu   sync.Mutex
	cmds []engine.Command
	err  error
}

func (f *fakeCommander) Send(_ context.Context, cmd engine.Command) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cmds = append(f.cmds, cmd)
	return f.err
}

func (f *fakeCommander) sent() []engine.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]engine.Command(nil), f.cmds...)
}

// 44 frames with a spike 17 frames from the end, inside the checked range
func spikeCurve() *onset.MockCurve {
	c := make([]float64, 44)
	c[27] = 1
	return onset.NewMockCurve(c)
}

func stereoHop() []int16 {
	return make([]int16, 2*3*onset.DefaultHopLength)
}

func newTestDispatcher(curve onset.EnergyCurve, wraps int, strip, ferro Commander) *Dispatcher {
	acfg := onset.DefaultAnalyzerConfig()
	acfg.ModeChangeWraps = wraps
	a := onset.NewAnalyzer(acfg, curve, nil)
	sampler := NewModeSampler(rand.New(rand.NewSource(9)))

	cfg := DefaultConfig()
	cfg.FerroFollowsMode = true
	return New(cfg, a, sampler, strip, ferro)
}

func TestDispatcher_PulseAfterWarmUp(t *testing.T) {
	strip := &fakeCommander{}
	d := newTestDispatcher(spikeCurve(), 100, strip, nil)
	ctx := context.Background()

	for i := 0; i < 14; i++ {
		d.OnHop(ctx, stereoHop())
	}
	assert.Empty(t, strip.sent())

	d.OnHop(ctx, stereoHop())
	require.Len(t, strip.sent(), 1)
	assert.Equal(t, engine.Pulse{Pattern: "beat", Strength: 255, Duration: 100 * time.Millisecond}, strip.sent()[0])
}

func TestDispatcher_ModeChange(t *testing.T) {
	strip, ferro := &fakeCommander{}, &fakeCommander{}
	d := newTestDispatcher(&onset.MockCurve{Length: 44}, 2, strip, ferro)
	ctx := context.Background()

	for i := 0; i < 30; i++ {
		d.OnHop(ctx, stereoHop())
	}

	require.Len(t, strip.sent(), 1)
	sm, ok := strip.sent()[0].(engine.SetMode)
	require.True(t, ok)
	assert.Contains(t, []string{"water", "breathe", "sparkle"}, sm.Mode)
	assert.Equal(t, onset.DefaultTempo, sm.Tempo)
	require.NotNil(t, sm.Color)

	require.Len(t, ferro.sent(), 1)
	assert.Equal(t, engine.SetMode{Mode: "walk", Tempo: onset.DefaultTempo}, ferro.sent()[0])
}

func TestDispatcher_ErrorsDoNotHalt(t *testing.T) {
	strip := &fakeCommander{err: errors.New("connection refused")}
	d := newTestDispatcher(spikeCurve(), 100, strip, nil)
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		d.OnHop(ctx, stereoHop())
	}
	// every warm hop still tries to pulse
	assert.Len(t, strip.sent(), 6)

	// oversized hop is rejected by the buffer and logged
	d.OnHop(ctx, make([]int16, 2*70000))
	assert.Len(t, strip.sent(), 6)
}

func TestDispatcher_PrimeAndClose(t *testing.T) {
	strip, ferro := &fakeCommander{}, &fakeCommander{}
	d := newTestDispatcher(&onset.MockCurve{Length: 44}, 100, strip, ferro)
	ctx := context.Background()

	d.Prime(ctx)
	require.Len(t, ferro.sent(), 1)
	assert.Equal(t, engine.SetMode{Mode: "walk", Tempo: 120}, ferro.sent()[0])

	require.Len(t, strip.sent(), 1)
	sm := strip.sent()[0].(engine.SetMode)
	assert.Equal(t, "water", sm.Mode)
	assert.Equal(t, 60.0, sm.Tempo)
	require.NotNil(t, sm.Color)

	d.Close(ctx)
	assert.Equal(t, engine.Stop{}, strip.sent()[1])
	assert.Equal(t, engine.Stop{}, ferro.sent()[1])
}

func TestDispatcher_Run(t *testing.T) {
	strip := &fakeCommander{}
	d := newTestDispatcher(spikeCurve(), 100, strip, nil)

	hops := make(chan []int16, 16)
	for i := 0; i < 16; i++ {
		hops <- stereoHop()
	}
	close(hops)
	require.NoError(t, d.Run(context.Background(), hops))
	assert.Len(t, strip.sent(), 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, d.Run(ctx, make(chan []int16)), context.Canceled)
}

func TestDispatcher_WithEngine(t *testing.T) {
	rig := light.NewRig(light.DefaultConfig())
	e := engine.New[light.Scene, light.Frame](rig, nil, engine.Options{Name: "light", Tick: rig.Config().Tick})
	ctx := context.Background()
	require.NoError(t, e.Start(ctx))

	d := newTestDispatcher(spikeCurve(), 100, e, nil)
	d.Prime(ctx)
	require.Eventually(t, func() bool { return e.State().Mode == "water" }, time.Second, time.Millisecond)

	for i := 0; i < 15; i++ {
		d.OnHop(ctx, stereoHop())
	}

	d.Close(ctx)
	assert.False(t, e.State().Running)
}


func TestDispatcher_HopSpanAttributes(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr)))
	defer otel.SetTracerProvider(noop.NewTracerProvider())

	d := newTestDispatcher(spikeCurve(), 100, &fakeCommander{}, nil)
	for i := 0; i < 15; i++ {
		d.OnHop(context.Background(), stereoHop())
	}

	spans := sr.Ended()
	require.Len(t, spans, 15)

	attrs := attribute.NewSet(spans[14].Attributes()...)
	fired, ok := attrs.Value(attribute.Key(trace.AttrOnsetFired))
	require.True(t, ok)
	assert.True(t, fired.AsBool())
	strength, ok := attrs.Value(attribute.Key(trace.AttrStrength))
	require.True(t, ok)
	assert.InDelta(t, 1.0, strength.AsFloat64(), 1e-9)

	// warm-up hops report no strength
	early := attribute.NewSet(spans[0].Attributes()...)
	strength, ok = early.Value(attribute.Key(trace.AttrStrength))
	require.True(t, ok)
	assert.Equal(t, 0.0, strength.AsFloat64())
}
