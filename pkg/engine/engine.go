package engine

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/realtime-ai/ferrolight/pkg/trace"
)

// ErrAlreadyStarted is returned by a second Start.
var ErrAlreadyStarted = errors.New("engine: already started")

// flushLogEvery throttles repeated driver failures.
const flushLogEvery = 200

// Options configures an Engine.
type Options struct {
	// Name labels log lines and spans, e.g. "light".
	Name string
	// Tick is the render interval.
	Tick time.Duration
	// Clock defaults to wall time.
	Clock Clock
	// Rand is used by Configure. Defaults to a time-seeded source.
	Rand *rand.Rand
}

// State is a snapshot of the engine's timing state.
type State struct {
	Mode    string
	Phase   float64
	Period  float64
	Cycle   int
	Count   uint64
	Running bool
}

type engineState[S, O any] struct {
	scene    S
	hasScene bool
	mode     string
	phase    float64
	period   float64
	cycle    int
	count    uint64
	running  bool
	started  bool
	last     O
}

// Engine drives a Rig at a fixed tick and executes commands from its Mailbox.
type Engine[S, O any] struct {
	name    string
	rig     Rig[S, O]
	driver  Driver[O]
	mailbox *Mailbox
	clock   Clock
	rng     *rand.Rand
	dt      time.Duration

	mu sync.Mutex
	st engineState[S, O]

	flushFailures int
	done          chan struct{}
}

// New creates an engine. It touches no hardware and starts no goroutine.
func New[S, O any](rig Rig[S, O], driver Driver[O], opts Options) *Engine[S, O] {
	if opts.Name == "" {
		opts.Name = "engine"
	}
	if opts.Tick <= 0 {
		opts.Tick = 10 * time.Millisecond
	}
	if opts.Clock == nil {
		opts.Clock = realClock{}
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if driver == nil {
		driver = DiscardDriver[O]{}
	}

	return &Engine[S, O]{
		name:    opts.Name,
		rig:     rig,
		driver:  driver,
		mailbox: NewMailbox(),
		clock:   opts.Clock,
		rng:     opts.Rand,
		dt:      opts.Tick,
		st:      engineState[S, O]{last: rig.Off()},
		done:    make(chan struct{}),
	}
}

// Start plays the rig's prelude and launches the tick loop. Cancelling ctx
// stops the engine like Stop does.
func (e *Engine[S, O]) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.st.started {
		return ErrAlreadyStarted
	}
	if e.mailbox.Stopped() {
		return ErrStopped
	}
	e.st.started = true
	e.st.running = true

	go e.run(ctx)
	log.Printf("[Engine:%s] started, tick %v", e.name, e.dt)
	return nil
}

// Stop latches Stop and waits until the loop has zeroed the outputs and
// exited. It is safe to call more than once, and before Start.
func (e *Engine[S, O]) Stop() {
	_ = e.mailbox.Post(Stop{})

	e.mu.Lock()
	started := e.st.started
	e.mu.Unlock()

	if started {
		<-e.done
	}
}

// Done is closed when the loop has exited.
func (e *Engine[S, O]) Done() <-chan struct{} {
	return e.done
}

// Send delivers a command. Stop blocks like Stop(); other commands return
// immediately and take effect on the next tick.
func (e *Engine[S, O]) Send(ctx context.Context, cmd Command) error {
	_, span := trace.InstrumentCommand(ctx, e.name, CommandType(cmd))
	defer span.End()

	if _, ok := cmd.(Stop); ok {
		e.Stop()
		return nil
	}
	err := e.mailbox.Post(cmd)
	trace.RecordError(span, err)
	return err
}

// State returns a snapshot of the timing state.
func (e *Engine[S, O]) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return State{
		Mode:    e.st.mode,
		Phase:   e.st.phase,
		Period:  e.st.period,
		Cycle:   e.st.cycle,
		Count:   e.st.count,
		Running: e.st.running,
	}
}

// Dropped returns how many commands were replaced before the loop saw them.
func (e *Engine[S, O]) Dropped() uint64 {
	return e.mailbox.Dropped()
}

func (e *Engine[S, O]) run(ctx context.Context) {
	defer close(e.done)
	defer e.shutdown()

	if !e.playSteps(e.rig.Prelude()) {
		return
	}

	for {
		if ctx.Err() != nil {
			_ = e.mailbox.Post(Stop{})
			return
		}

		start := e.clock.Now()
		if !e.tick() {
			return
		}
		elapsed := e.clock.Now().Sub(start)

		sleep := e.dt - elapsed
		if sleep < 0 {
			sleep = 0
		}
		e.clock.Sleep(sleep)
		e.advance(elapsed)
	}
}

// tick drains one command and renders or pulses. It returns false on Stop.
func (e *Engine[S, O]) tick() bool {
	var pulse *Pulse
	if cmd, ok := e.mailbox.Take(); ok {
		switch c := cmd.(type) {
		case Stop:
			return false
		case SetMode:
			e.configure(c)
		case Pulse:
			pulse = &c
		}
	}

	e.mu.Lock()
	scene, hasScene, last := e.st.scene, e.st.hasScene, e.st.last
	t := Tick{Phase: e.st.phase, Period: e.st.period, Cycle: e.st.cycle, Count: e.st.count}
	e.st.count++
	e.mu.Unlock()

	if pulse != nil && hasScene {
		return e.playSteps(e.rig.Pulse(scene, *pulse, last))
	}

	if hasScene {
		e.flush(e.rig.Render(scene, t))
	} else {
		e.flush(e.rig.Off())
	}
	return true
}

func (e *Engine[S, O]) configure(cmd SetMode) {
	scene, period, err := e.rig.Configure(cmd, e.rng)
	if err != nil && !errors.Is(err, ErrUnsupportedMode) {
		log.Printf("[Engine:%s] set_mode %q rejected: %v", e.name, cmd.Mode, err)
		return
	}
	if err != nil {
		log.Printf("[Engine:%s] %v: %q, rendering blank", e.name, err, cmd.Mode)
	}

	e.mu.Lock()
	e.st.scene = scene
	e.st.hasScene = true
	e.st.mode = cmd.Mode
	e.st.period = period
	e.st.phase = 0
	e.st.cycle = 0
	e.mu.Unlock()

	log.Printf("[Engine:%s] mode %s, period %.3fs", e.name, cmd.Mode, period)
}

// playSteps flushes each step and holds it. Stop is checked between steps.
func (e *Engine[S, O]) playSteps(steps []Step[O]) bool {
	for _, s := range steps {
		if e.mailbox.Stopped() {
			return false
		}
		e.flush(s.Output)
		e.clock.Sleep(s.Hold)
	}
	return !e.mailbox.Stopped()
}

// advance moves the phase by the tick's elapsed time, at least one dt.
func (e *Engine[S, O]) advance(elapsed time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()

	phase, wraps := Advance(e.st.phase, e.st.period, elapsed, e.dt)
	e.st.phase = phase
	e.st.cycle += wraps
}

func (e *Engine[S, O]) flush(out O) {
	err := e.driver.Write(out)

	e.mu.Lock()
	e.st.last = out
	e.mu.Unlock()

	if err != nil {
		e.flushFailures++
		if e.flushFailures == 1 || e.flushFailures%flushLogEvery == 0 {
			log.Printf("[Engine:%s] driver write failed (%d consecutive): %v", e.name, e.flushFailures, err)
		}
		return
	}
	if e.flushFailures > 0 {
		log.Printf("[Engine:%s] driver recovered after %d failures", e.name, e.flushFailures)
		e.flushFailures = 0
	}
}

func (e *Engine[S, O]) shutdown() {
	e.flush(e.rig.Off())

	e.mu.Lock()
	e.st.running = false
	e.mu.Unlock()

	log.Printf("[Engine:%s] stopped, outputs off", e.name)
}
