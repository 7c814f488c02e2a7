// Package dispatch turns analysed audio into commands for the rigs.
package dispatch

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/realtime-ai/ferrolight/pkg/audio"
	"github.com/realtime-ai/ferrolight/pkg/engine"
	"github.com/realtime-ai/ferrolight/pkg/onset"
	"github.com/realtime-ai/ferrolight/pkg/trace"
)

// Commander accepts commands for one rig. engine.Engine and control.Client
// both implement it.
type Commander interface {
	Send(ctx context.Context, cmd engine.Command) error
}

// Config controls what the dispatcher sends.
type Config struct {
	Channels      int // interleaved channels per hop; only the first is analysed
	SampleRate    int
	PulsePattern  string
	PulseDuration time.Duration

	// FerroFollowsMode re-sends walk at the new tempo on every mode change.
	FerroFollowsMode bool

	InitialLightMode  string
	InitialLightTempo float64
	InitialFerroMode  string
	InitialFerroTempo float64
}

// DefaultConfig returns the stereo 44.1kHz setup.
func DefaultConfig() Config {
	return Config{
		Channels:          audio.DefaultChannels,
		SampleRate:        audio.DefaultSampleRate,
		PulsePattern:      "beat",
		PulseDuration:     100 * time.Millisecond,
		InitialLightMode:  "water",
		InitialLightTempo: 60,
		InitialFerroMode:  "walk",
		InitialFerroTempo: 120,
	}
}

// Dispatcher feeds hops to an analyzer and forwards its verdicts. Either
// commander may be nil.
type Dispatcher struct {
	cfg      Config
	analyzer *onset.Analyzer
	light    Commander
	ferro    Commander
	sampler  *ModeSampler
}

// New creates a dispatcher.
func New(cfg Config, analyzer *onset.Analyzer, sampler *ModeSampler, light, ferro Commander) *Dispatcher {
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	if cfg.PulsePattern == "" {
		cfg.PulsePattern = DefaultConfig().PulsePattern
	}
	return &Dispatcher{
		cfg:      cfg,
		analyzer: analyzer,
		light:    light,
		ferro:    ferro,
		sampler:  sampler,
	}
}

// Prime sends the initial modes.
func (d *Dispatcher) Prime(ctx context.Context) {
	if d.ferro != nil && d.cfg.InitialFerroMode != "" {
		d.send(ctx, "ferro", d.ferro, engine.SetMode{Mode: d.cfg.InitialFerroMode, Tempo: d.cfg.InitialFerroTempo})
	}
	if d.light != nil && d.cfg.InitialLightMode != "" {
		c := d.sampler.Color()
		d.send(ctx, "light", d.light, engine.SetMode{Mode: d.cfg.InitialLightMode, Tempo: d.cfg.InitialLightTempo, Color: &c.Color})
	}
}

// OnHop analyses one interleaved hop and sends whatever it triggers. Errors
// are logged; the dispatcher never stops on them.
func (d *Dispatcher) OnHop(ctx context.Context, hop []int16) {
	mono := audio.LeftChannel(hop, d.cfg.Channels)

	ctx, span := trace.InstrumentHop(ctx, d.cfg.SampleRate, len(mono))
	defer span.End()

	res, err := d.analyzer.Analyze(mono)
	if err != nil {
		trace.RecordError(span, err)
		log.Printf("[Dispatcher] analyze: %v", err)
		return
	}
	span.SetAttributes(
		attribute.Bool(trace.AttrOnsetFired, res.Pulse),
		attribute.Bool(trace.AttrModeChange, res.SetMode),
		attribute.Float64(trace.AttrStrength, res.Strength),
	)

	if res.Pulse && d.light != nil {
		d.send(ctx, "light", d.light, engine.Pulse{
			Pattern:  d.cfg.PulsePattern,
			Strength: 255 * res.Strength,
			Duration: d.cfg.PulseDuration,
		})
	}

	if res.SetMode {
		mode, color := d.sampler.Sample()
		trace.AddEvent(span, "mode_change",
			attribute.String(trace.AttrMode, mode),
			attribute.Float64(trace.AttrTempo, res.Tempo),
		)
		log.Print(trace.LogWithTrace(ctx, fmt.Sprintf("[Dispatcher] mode change: %s %s @ %.1f BPM", mode, color.Name, res.Tempo)))
		if d.light != nil {
			d.send(ctx, "light", d.light, engine.SetMode{Mode: mode, Tempo: res.Tempo, Color: &color.Color})
		}
		if d.ferro != nil && d.cfg.FerroFollowsMode {
			d.send(ctx, "ferro", d.ferro, engine.SetMode{Mode: d.cfg.InitialFerroMode, Tempo: res.Tempo})
		}
	}
}

// Run dispatches hops until the channel closes or ctx is done.
func (d *Dispatcher) Run(ctx context.Context, hops <-chan []int16) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case hop, ok := <-hops:
			if !ok {
				return nil
			}
			d.OnHop(ctx, hop)
		}
	}
}

// Close stops both rigs.
func (d *Dispatcher) Close(ctx context.Context) {
	if d.light != nil {
		d.send(ctx, "light", d.light, engine.Stop{})
	}
	if d.ferro != nil {
		d.send(ctx, "ferro", d.ferro, engine.Stop{})
	}
}

func (d *Dispatcher) send(ctx context.Context, rig string, c Commander, cmd engine.Command) {
	if err := c.Send(ctx, cmd); err != nil {
		log.Printf("[Dispatcher] %s %s: %v", rig, engine.CommandType(cmd), err)
	}
}
