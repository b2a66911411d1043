package cmd

import (
	"fmt"
	"log/slog"

	"github.com/go-drift/lvbind/cmd/lvsim/internal/config"
	"github.com/go-drift/lvbind/pkg/display"
	"github.com/go-drift/lvbind/pkg/input"
	"github.com/go-drift/lvbind/pkg/lv"
	"github.com/go-drift/lvbind/pkg/scene"
	"github.com/go-drift/lvbind/pkg/sim"
	"github.com/go-drift/lvbind/pkg/tick"
)

// stack is the full binding on the reference engine, built from a resolved
// config.
type stack struct {
	engine  *sim.Engine
	rt      *lv.Runtime
	adapter *display.Adapter
	input   *input.Injector
	driver  *tick.Driver
	tree    *scene.Tree
}

func newStack(res *config.Resolved, format display.Format, sink display.Sink, logger *slog.Logger) (*stack, error) {
	eng := sim.New(sim.WithLongPress(res.LongPressMS))
	rt, err := lv.Init(eng, lv.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	s := &stack{engine: eng, rt: rt}

	s.adapter, err = display.NewAdapter(res.Depth, format, sink, display.WithLogger(rt.Logger()))
	if err != nil {
		s.close()
		return nil, err
	}
	if err := eng.RegisterDisplay(s.adapter.Config(res.Width, res.Height, res.BufferLines)); err != nil {
		s.close()
		return nil, fmt.Errorf("register display: %w", err)
	}
	s.input = input.New()
	s.input.Attach(eng)
	s.driver = tick.New(eng, tick.WithHooks(rt), tick.WithLogger(rt.Logger()))

	if s.tree, err = scene.Build(rt, nil, res.Scene); err != nil {
		s.close()
		return nil, fmt.Errorf("build scene: %w", err)
	}
	rt.Logger().Info("scene built",
		"widgets", rt.Registry().Len(),
		"display", fmt.Sprintf("%dx%d", res.Width, res.Height),
		"depth", int(res.Depth))
	return s, nil
}

func (s *stack) close() {
	if s.tree != nil {
		s.tree.Destroy()
	}
	s.rt.Deinit()
}
