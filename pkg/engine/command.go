// Package engine runs one actuator's pattern loop.
//
// An Engine owns a scene, a phase within the scene's period and a cycle
// counter. It renders the scene once per tick, flushes the result to a
// Driver and advances the phase by the wall time the tick took. Commands
// arrive through a single-slot Mailbox: the newest SetMode or Pulse wins,
// and Stop latches with priority over everything else.
//
// Everything specific to an actuator (LED strip, electromagnets) lives behind
// Rig; the engine itself only knows about time, commands and outputs.
package engine

import (
	"fmt"
	"time"
)

// RGB is an 8-bit colour triple.
type RGB struct {
	R, G, B uint8
}

// String returns the colour as "[r g b]".
func (c RGB) String() string {
	return fmt.Sprintf("[%d %d %d]", c.R, c.G, c.B)
}

// Command is one of SetMode, Pulse or Stop.
type Command interface {
	isCommand()
}

// SetMode installs a new scene. Tempo is a BPM hint; Color is optional and
// only meaningful to rigs that draw colour.
type SetMode struct {
	Mode  string
	Tempo float64
	Color *RGB
}

// Pulse plays a short exclusive pattern on top of the current scene.
type Pulse struct {
	Pattern  string
	Strength float64 // 0-255 for light, 0-1 for ferro
	Duration time.Duration
}

// Stop halts the engine. It is terminal.
type Stop struct{}

func (SetMode) isCommand() {}
func (Pulse) isCommand()   {}
func (Stop) isCommand()    {}

// CommandType returns the wire name of a command.
func CommandType(c Command) string {
	switch c.(type) {
	case SetMode:
		return "set_mode"
	case Pulse:
		return "send_pulse"
	case Stop:
		return "stop"
	default:
		return "unknown"
	}
}
