// Package tick drives the engine on the host's cadence.
//
// One Step walks the state machine Idle, Ticking, Rendering, Flushing and
// back to Idle: the engine clock advances, the engine processes input and
// dispatches events, it renders and flushes dirty regions, and finally the
// deletions that callbacks requested during the tick are executed.
package tick

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-drift/lvbind/pkg/errors"
	"github.com/go-drift/lvbind/pkg/native"
)

// ErrReentrantStep is returned when Step is called from inside a step, for
// example from an event handler.
var ErrReentrantStep = stderrors.New("tick: step called while a step is running")

// State is a phase of the tick state machine.
type State uint8

const (
	Idle State = iota
	Ticking
	Rendering
	Flushing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Ticking:
		return "ticking"
	case Rendering:
		return "rendering"
	case Flushing:
		return "flushing"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// Hooks brackets a tick. The lv runtime implements it: deletions requested
// between BeginTick and EndTick are deferred and executed by EndTick.
type Hooks interface {
	BeginTick()
	EndTick()
}

// Clock provides time for StepAt and Run.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Option configures a Driver.
type Option func(*Driver)

// WithHooks sets the tick hooks.
func WithHooks(h Hooks) Option {
	return func(d *Driver) { d.hooks = h }
}

// WithClock replaces the wall clock used by StepAt and Run.
func WithClock(c Clock) Option {
	return func(d *Driver) { d.clock = c }
}

// WithLogger sets the driver's logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Driver) { d.logger = l }
}

// Driver steps an engine. It is not safe for concurrent use; Run owns the
// calling goroutine.
type Driver struct {
	engine native.Timing
	hooks  Hooks
	clock  Clock
	logger *slog.Logger

	state       State
	ticks       uint64
	last        time.Time
	transitions []func(from, to State)
}

// New returns an idle driver for engine.
func New(engine native.Timing, opts ...Option) *Driver {
	d := &Driver{engine: engine, clock: realClock{}}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = errors.Logger()
	}
	return d
}

// State returns the current phase. It is Idle between steps.
func (d *Driver) State() State { return d.state }

// Ticks returns the number of completed steps.
func (d *Driver) Ticks() uint64 { return d.ticks }

// OnTransition registers fn to be called on every state change.
func (d *Driver) OnTransition(fn func(from, to State)) {
	d.transitions = append(d.transitions, fn)
}

func (d *Driver) enter(s State) {
	from := d.state
	d.state = s
	for _, fn := range d.transitions {
		fn(from, s)
	}
}

// Step runs one full tick with elapsedMS added to the engine clock. Zero is
// a valid elapsed time.
func (d *Driver) Step(elapsedMS uint32) error {
	if d.state != Idle {
		return errors.Report(errors.New("tick.Driver.Step", errors.KindMisuse, 0,
			fmt.Errorf("%w (state %s)", ErrReentrantStep, d.state)))
	}
	// Whatever happens inside the engine, the driver ends the step idle and
	// the deferred deletions run.
	defer func() {
		if d.state != Idle {
			d.finish()
		}
	}()

	d.enter(Ticking)
	if d.hooks != nil {
		d.hooks.BeginTick()
	}
	d.engine.TickInc(elapsedMS)

	d.enter(Rendering)
	d.engine.Process()

	d.enter(Flushing)
	d.engine.Render()

	d.finish()
	d.ticks++
	return nil
}

// finish drains the runtime while the driver still reports a busy state, so
// a Step from a delete closure is rejected as reentrant. Idle is entered even
// if the drain panics.
func (d *Driver) finish() {
	defer d.enter(Idle)
	if d.hooks != nil {
		d.hooks.EndTick()
	}
}

// StepAt steps with the time elapsed since the previous StepAt, according to
// now. The first call steps with zero elapsed.
func (d *Driver) StepAt(now time.Time) error {
	var elapsed uint32
	if !d.last.IsZero() && now.After(d.last) {
		ms := now.Sub(d.last).Milliseconds()
		if ms > int64(^uint32(0)) {
			ms = int64(^uint32(0))
		}
		elapsed = uint32(ms)
		// Keep the sub-millisecond remainder for the next step.
		d.last = d.last.Add(time.Duration(ms) * time.Millisecond)
	} else if d.last.IsZero() {
		d.last = now
	}
	return d.Step(elapsed)
}

// Run steps every interval until ctx is done. before, if not nil, runs on the
// loop goroutine ahead of each step; remote input is applied there.
func (d *Driver) Run(ctx context.Context, interval time.Duration, before func()) error {
	if interval <= 0 {
		return errors.New("tick.Driver.Run", errors.KindConfig, 0, fmt.Errorf("interval must be positive, got %v", interval))
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	d.logger.Debug("tick loop started", "interval", interval)
	for {
		if err := ctx.Err(); err != nil {
			d.logger.Debug("tick loop stopped", "ticks", d.ticks)
			return err
		}
		select {
		case <-ctx.Done():
		case <-t.C:
			if before != nil {
				before()
			}
			if err := d.StepAt(d.clock.Now()); err != nil {
				return err
			}
		}
	}
}
