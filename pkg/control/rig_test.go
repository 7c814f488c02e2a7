package control

import (
	"math/rand"

	"github.com/realtime-ai/ferrolight/pkg/engine"
)

// stringRig is a minimal rig whose scene is the mode name.
type stringRig struct{}

func (stringRig) Configure(cmd engine.SetMode, _ *rand.Rand) (string, float64, error) {
	p, err := engine.PeriodFromTempo(cmd.Tempo, 1)
	return cmd.Mode, p, err
}

func (stringRig) Render(s string, _ engine.Tick) int { return len(s) }

func (stringRig) Pulse(string, engine.Pulse, int) []engine.Step[int] { return nil }

func (stringRig) Prelude() []engine.Step[int] { return nil }

func (stringRig) Off() int { return 0 }
