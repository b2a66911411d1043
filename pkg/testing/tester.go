package testing

import (
	"testing"
	"time"

	"github.com/go-drift/lvbind/pkg/display"
	"github.com/go-drift/lvbind/pkg/input"
	"github.com/go-drift/lvbind/pkg/lv"
	"github.com/go-drift/lvbind/pkg/native"
	"github.com/go-drift/lvbind/pkg/scene"
	"github.com/go-drift/lvbind/pkg/sim"
	"github.com/go-drift/lvbind/pkg/tick"
)

const (
	// DefaultTestWidth is the default display width in pixels.
	DefaultTestWidth = 40
	// DefaultTestHeight is the default display height in pixels.
	DefaultTestHeight = 20
	// DefaultFrameMS is the engine time one Pump advances.
	DefaultFrameMS = 16
)

type config struct {
	width, height int
	depth         native.ColorDepth
	bufferLines   int
	frameMS       uint32
	engine        []sim.Option
	runtime       []lv.Option
}

// Option configures a Tester.
type Option func(*config)

// WithSize sets the display size.
func WithSize(width, height int) Option {
	return func(c *config) { c.width, c.height = width, height }
}

// WithDepth sets the engine's native color depth. The default is Depth32,
// which converts to the framebuffer without loss.
func WithDepth(d native.ColorDepth) Option {
	return func(c *config) { c.depth = d }
}

// WithBufferLines sets the height of the engine's partial draw buffer.
func WithBufferLines(n int) Option {
	return func(c *config) { c.bufferLines = n }
}

// WithFrameMS sets the engine time advanced by each Pump.
func WithFrameMS(ms uint32) Option {
	return func(c *config) { c.frameMS = ms }
}

// WithEngineOptions passes options to the sim engine.
func WithEngineOptions(opts ...sim.Option) Option {
	return func(c *config) { c.engine = append(c.engine, opts...) }
}

// WithRuntimeOptions passes options to lv.Init.
func WithRuntimeOptions(opts ...lv.Option) Option {
	return func(c *config) { c.runtime = append(c.runtime, opts...) }
}

// Tester drives a complete binding stack on the reference engine. Every
// component is the production one; only the engine and the sink are
// in-memory.
type Tester struct {
	engine  *sim.Engine
	rt      *lv.Runtime
	adapter *display.Adapter
	frame   *display.Framebuffer
	sink    *RecordingSink
	input   *input.Injector
	driver  *tick.Driver
	clock   *FakeClock
	frameMS uint32
}

// New builds a Tester and registers its teardown with t. The runtime is
// process-wide, so tests using a Tester must not run in parallel.
func New(t testing.TB, opts ...Option) *Tester {
	t.Helper()
	cfg := config{
		width:   DefaultTestWidth,
		height:  DefaultTestHeight,
		depth:   native.Depth32,
		frameMS: DefaultFrameMS,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.bufferLines <= 0 {
		cfg.bufferLines = cfg.height
	}

	eng := sim.New(cfg.engine...)
	rt, err := lv.Init(eng, cfg.runtime...)
	if err != nil {
		t.Fatalf("lv.Init: %v", err)
	}
	t.Cleanup(rt.Deinit)

	frame, err := display.NewFramebuffer(cfg.width, cfg.height, display.FormatRGBX8888)
	if err != nil {
		t.Fatalf("framebuffer: %v", err)
	}
	sink := &RecordingSink{Next: frame}
	adapter, err := display.NewAdapter(cfg.depth, display.FormatRGBX8888, sink)
	if err != nil {
		t.Fatalf("display adapter: %v", err)
	}
	if err := eng.RegisterDisplay(adapter.Config(cfg.width, cfg.height, cfg.bufferLines)); err != nil {
		t.Fatalf("register display: %v", err)
	}

	inj := input.New()
	inj.Attach(eng)
	clk := NewFakeClock()
	return &Tester{
		engine:  eng,
		rt:      rt,
		adapter: adapter,
		frame:   frame,
		sink:    sink,
		input:   inj,
		driver:  tick.New(eng, tick.WithHooks(rt), tick.WithClock(clk)),
		clock:   clk,
		frameMS: cfg.frameMS,
	}
}

// Engine returns the reference engine.
func (t *Tester) Engine() *sim.Engine { return t.engine }

// Runtime returns the binding runtime.
func (t *Tester) Runtime() *lv.Runtime { return t.rt }

// Adapter returns the display adapter.
func (t *Tester) Adapter() *display.Adapter { return t.adapter }

// Frame returns the framebuffer the adapter writes to.
func (t *Tester) Frame() *display.Framebuffer { return t.frame }

// Sink returns the recording sink in front of the framebuffer.
func (t *Tester) Sink() *RecordingSink { return t.sink }

// Input returns the injector polled by the engine.
func (t *Tester) Input() *input.Injector { return t.input }

// Driver returns the tick driver.
func (t *Tester) Driver() *tick.Driver { return t.driver }

// Clock returns the fake clock Pump advances.
func (t *Tester) Clock() *FakeClock { return t.clock }

// Screen returns a borrowing wrapper for the active screen.
func (t *Tester) Screen() *lv.Obj {
	scr, err := t.rt.ActiveScreen()
	if err != nil {
		return nil
	}
	return scr
}

// LoadScene builds sc on the active screen.
func (t *Tester) LoadScene(sc *scene.Scene, opts ...scene.BuildOption) (*scene.Tree, error) {
	return scene.Build(t.rt, nil, sc, opts...)
}

// Pump runs one tick of the default frame length.
func (t *Tester) Pump() error {
	return t.PumpMS(t.frameMS)
}

// PumpMS runs one tick that advances the engine by ms.
func (t *Tester) PumpMS(ms uint32) error {
	t.clock.AdvanceMS(ms)
	return t.driver.Step(ms)
}

// PumpFor runs ticks of the default frame length until d has elapsed.
func (t *Tester) PumpFor(d time.Duration) error {
	for elapsed := time.Duration(0); elapsed < d; elapsed += time.Duration(t.frameMS) * time.Millisecond {
		if err := t.Pump(); err != nil {
			return err
		}
	}
	return nil
}
