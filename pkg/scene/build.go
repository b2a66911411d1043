package scene

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-drift/lvbind/pkg/lv"
	"github.com/go-drift/lvbind/pkg/native"
)

type actionKind uint8

const (
	actionLog actionKind = iota
	actionDelete
	actionToggle
)

type action struct {
	kind actionKind
	// target is empty for actions on the widget itself.
	target string
}

func parseAction(s string) (action, error) {
	verb, target, _ := strings.Cut(s, ":")
	switch verb {
	case "log":
		if target != "" {
			return action{}, fmt.Errorf("action %q takes no target", s)
		}
		return action{kind: actionLog}, nil
	case "delete":
		return action{kind: actionDelete, target: target}, nil
	case "toggle":
		if target == "" {
			return action{}, fmt.Errorf("action %q needs a target", s)
		}
		return action{kind: actionToggle, target: target}, nil
	default:
		return action{}, fmt.Errorf("unknown action %q", s)
	}
}

// Tree is a built scene. It holds the owning wrapper of every widget it
// created.
type Tree struct {
	rt     *lv.Runtime
	logger *slog.Logger
	screen *lv.Obj
	roots  []*lv.Obj
	owners []*lv.Obj
	named  map[string]*lv.Obj
	fired  int
}

// BuildOption configures Build.
type BuildOption func(*Tree)

// WithLogger sets the logger used by "log" actions.
func WithLogger(l *slog.Logger) BuildOption {
	return func(t *Tree) { t.logger = l }
}

// Build creates the scene's widgets under parent. A nil parent means the
// scene's own screen when Screen is set, the active screen otherwise. On
// error every widget created so far is destroyed.
func Build(rt *lv.Runtime, parent *lv.Obj, sc *Scene, opts ...BuildOption) (*Tree, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	t := &Tree{rt: rt, named: make(map[string]*lv.Obj)}
	for _, opt := range opts {
		opt(t)
	}
	if t.logger == nil {
		t.logger = rt.Logger()
	}

	if parent == nil {
		var err error
		if len(sc.Screen) > 0 {
			if t.screen, err = rt.NewScreen(sc.Screen); err != nil {
				return nil, err
			}
			if err := rt.LoadScreen(t.screen, false); err != nil {
				t.screen.Destroy()
				return nil, err
			}
			parent = t.screen
		} else if parent, err = rt.ActiveScreen(); err != nil {
			return nil, err
		}
	}

	for i := range sc.Widgets {
		root, err := t.build(parent, &sc.Widgets[i])
		if err != nil {
			t.Destroy()
			return nil, err
		}
		t.roots = append(t.roots, root)
	}
	return t, nil
}

func (t *Tree) build(parent *lv.Obj, n *Node) (*lv.Obj, error) {
	kind, _ := native.ParseKind(n.Kind)
	obj, err := t.rt.CreateChild(parent, kind, n.Options)
	if err != nil {
		return nil, err
	}
	t.owners = append(t.owners, obj)
	if n.Name != "" {
		t.named[n.Name] = obj
	}
	for i := range n.Children {
		if _, err := t.build(obj, &n.Children[i]); err != nil {
			return nil, err
		}
	}
	return obj, t.bind(obj, n)
}

// bind subscribes the node's actions. Targets are resolved when the event
// fires, so a widget may refer to one declared after it.
func (t *Tree) bind(obj *lv.Obj, n *Node) error {
	label := n.Name
	if label == "" {
		label = n.Kind
	}
	for event, raw := range n.On {
		code, _ := native.ParseEventCode(event)
		a, _ := parseAction(raw)
		err := obj.On(code, func(ev *lv.Event) {
			t.fired++
			t.run(obj, label, a, ev)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (t *Tree) run(self *lv.Obj, label string, a action, ev *lv.Event) {
	target := self
	if a.target != "" {
		target = t.named[a.target]
	}
	switch a.kind {
	case actionLog:
		t.logger.Info("scene event", "widget", label, "event", ev.Code.String(),
			"x", ev.Point.X, "y", ev.Point.Y, "value", ev.Value, "key", ev.Key)
	case actionDelete:
		target.Destroy()
	case actionToggle:
		if target.Alive() {
			_ = target.SetHidden(!target.HasFlag(native.FlagHidden))
		}
	}
}

// Get returns the owning wrapper of a named widget.
func (t *Tree) Get(name string) (*lv.Obj, bool) {
	obj, ok := t.named[name]
	return obj, ok
}

// Roots returns the top-level widgets in declaration order.
func (t *Tree) Roots() []*lv.Obj { return t.roots }

// Screen returns the screen created for the scene, or nil.
func (t *Tree) Screen() *lv.Obj { return t.screen }

// Fired returns the number of actions run.
func (t *Tree) Fired() int { return t.fired }

// Destroy deletes every widget the tree created, and its screen.
func (t *Tree) Destroy() {
	for i := len(t.owners) - 1; i >= 0; i-- {
		t.owners[i].Destroy()
	}
	if t.screen != nil {
		t.screen.Destroy()
	}
}
