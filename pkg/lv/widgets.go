package lv

import (
	stderrors "errors"
	"fmt"

	"github.com/go-drift/lvbind/pkg/errors"
	"github.com/go-drift/lvbind/pkg/native"
)

// CreateChild allocates a kind object under parent, applies opts and returns
// the owning wrapper. Invalid options are rejected before anything is
// allocated. A native allocation failure is returned as a resource error
// wrapping native.ErrOutOfMemory.
func (r *Runtime) CreateChild(parent *Obj, kind native.Kind, opts Options) (*Obj, error) {
	const op = "lv.Runtime.CreateChild"
	if r.closed {
		return nil, errors.Report(errors.New(op, errors.KindMisuse, 0, ErrNotInitialized))
	}
	prec, err := parent.live(op)
	if err != nil {
		return nil, err
	}
	if kind == native.KindScreen {
		return nil, errors.Report(errors.New(op, errors.KindMisuse, uintptr(prec.Handle()),
			stderrors.New("screens have no parent; use NewScreen")))
	}
	s, err := opts.parse(kind)
	if err != nil {
		return nil, errors.Report(errors.New(op, errors.KindConfig, uintptr(prec.Handle()), err))
	}
	return r.create(op, kind, prec.Handle(), s)
}

func (r *Runtime) create(op string, kind native.Kind, parent native.Handle, s *settings) (*Obj, error) {
	h, err := r.engine.Create(kind, parent)
	if err != nil {
		return nil, errors.New(op, errors.KindResource, uintptr(parent), err)
	}
	if h.IsNil() {
		return nil, errors.New(op, errors.KindResource, uintptr(parent), native.ErrOutOfMemory)
	}
	rec, err := r.register(h, kind)
	if err != nil {
		r.engine.Delete(h)
		return nil, err
	}
	rec.SetOwned(true)
	if s != nil {
		s.apply(r.engine, h)
	}
	r.stats.Created++
	return &Obj{rt: r, rec: rec, owns: true}, nil
}

// NewScreen allocates a screen and returns the owning wrapper.
func (r *Runtime) NewScreen(opts Options) (*Obj, error) {
	const op = "lv.Runtime.NewScreen"
	if r.closed {
		return nil, errors.Report(errors.New(op, errors.KindMisuse, 0, ErrNotInitialized))
	}
	s, err := opts.parse(native.KindScreen)
	if err != nil {
		return nil, errors.Report(errors.New(op, errors.KindConfig, 0, err))
	}
	return r.create(op, native.KindScreen, 0, s)
}

// ActiveScreen returns a borrowing wrapper for the screen being displayed.
func (r *Runtime) ActiveScreen() (*Obj, error) {
	if r.closed {
		return nil, ErrNotInitialized
	}
	h := r.engine.ActiveScreen()
	if h.IsNil() {
		return nil, ErrNoChild
	}
	return r.borrow(r.reg.Ensure(h, native.KindScreen)), nil
}

// LoadScreen displays scr. With autoDelete the engine frees the previous
// screen on its next processing pass; the runtime learns about it through
// the delete hook or reconciliation.
func (r *Runtime) LoadScreen(scr *Obj, autoDelete bool) error {
	rec, err := scr.live("lv.Runtime.LoadScreen")
	if err != nil {
		return err
	}
	if !r.engine.Parent(rec.Handle()).IsNil() {
		return errors.Report(errors.New("lv.Runtime.LoadScreen", errors.KindMisuse, uintptr(rec.Handle()), ErrNotScreen))
	}
	r.engine.LoadScreen(rec.Handle(), autoDelete)
	return nil
}

// Geometry holds optional position and size. Zero width or height keeps the
// engine default.
type Geometry struct {
	X, Y          int16
	Width, Height int16
	Hidden        bool
}

func (g Geometry) options() Options {
	o := Options{OptX: g.X, OptY: g.Y}
	if g.Width > 0 {
		o[OptWidth] = g.Width
	}
	if g.Height > 0 {
		o[OptHeight] = g.Height
	}
	if g.Hidden {
		o[OptHidden] = true
	}
	return o
}

// Button is a clickable container.
type Button struct{ *Obj }

// ButtonConfig configures a Button.
type ButtonConfig struct {
	Geometry
	Checkable bool
	BgColor   *uint32
}

// NewButton creates a button under parent.
func (r *Runtime) NewButton(parent *Obj, cfg ButtonConfig) (*Button, error) {
	o := cfg.options()
	if cfg.Checkable {
		o[OptCheckable] = true
	}
	if cfg.BgColor != nil {
		o[OptBgColor] = *cfg.BgColor
	}
	obj, err := r.CreateChild(parent, native.KindButton, o)
	if err != nil {
		return nil, err
	}
	return &Button{obj}, nil
}

// OnClick subscribes fn to clicks.
func (b *Button) OnClick(fn Handler) error {
	return b.On(native.EventClicked, fn)
}

// Label displays text.
type Label struct{ *Obj }

// LabelConfig configures a Label.
type LabelConfig struct {
	Geometry
	Text string
}

// NewLabel creates a label under parent.
func (r *Runtime) NewLabel(parent *Obj, cfg LabelConfig) (*Label, error) {
	o := cfg.options()
	o[OptText] = cfg.Text
	obj, err := r.CreateChild(parent, native.KindLabel, o)
	if err != nil {
		return nil, err
	}
	return &Label{obj}, nil
}

// SetText replaces the label's text.
func (l *Label) SetText(text string) error {
	rec, err := l.live("lv.Label.SetText")
	if err != nil {
		return err
	}
	l.rt.engine.SetText(rec.Handle(), text)
	return nil
}

// Text returns the label's text.
func (l *Label) Text() (string, error) {
	rec, err := l.live("lv.Label.Text")
	if err != nil {
		return "", err
	}
	return l.rt.engine.Text(rec.Handle()), nil
}

// RangeConfig configures a value widget.
type RangeConfig struct {
	Geometry
	Min, Max int32
	Value    int32
}

func (c RangeConfig) options() Options {
	o := c.Geometry.options()
	if c.Min != 0 || c.Max != 0 {
		o[OptRange] = [2]int32{c.Min, c.Max}
	}
	o[OptValue] = c.Value
	return o
}

// valued is shared by sliders and bars.
type valued struct{ *Obj }

// SetValue sets the value, clamped to the range.
func (v valued) SetValue(n int32) error {
	rec, err := v.live("lv.SetValue")
	if err != nil {
		return err
	}
	v.rt.engine.SetValue(rec.Handle(), n)
	return nil
}

// Value returns the current value.
func (v valued) Value() (int32, error) {
	rec, err := v.live("lv.Value")
	if err != nil {
		return 0, err
	}
	return v.rt.engine.Value(rec.Handle()), nil
}

// SetRange sets the range and clamps the value.
func (v valued) SetRange(lo, hi int32) error {
	rec, err := v.live("lv.SetRange")
	if err != nil {
		return err
	}
	if _, err := checkRange([2]int32{lo, hi}); err != nil {
		return errors.Report(errors.New("lv.SetRange", errors.KindMisuse, uintptr(rec.Handle()), fmt.Errorf("%w: %v", ErrBadOption, err)))
	}
	v.rt.engine.SetRange(rec.Handle(), lo, hi)
	return nil
}

// Range returns the current range.
func (v valued) Range() (int32, int32, error) {
	rec, err := v.live("lv.Range")
	if err != nil {
		return 0, 0, err
	}
	lo, hi := v.rt.engine.Range(rec.Handle())
	return lo, hi, nil
}

// Slider is a draggable value widget.
type Slider struct{ valued }

// NewSlider creates a slider under parent.
func (r *Runtime) NewSlider(parent *Obj, cfg RangeConfig) (*Slider, error) {
	obj, err := r.CreateChild(parent, native.KindSlider, cfg.options())
	if err != nil {
		return nil, err
	}
	return &Slider{valued{obj}}, nil
}

// OnChange subscribes fn to value changes.
func (s *Slider) OnChange(fn Handler) error {
	return s.On(native.EventValueChanged, fn)
}

// Bar is a read-only value widget.
type Bar struct{ valued }

// NewBar creates a bar under parent.
func (r *Runtime) NewBar(parent *Obj, cfg RangeConfig) (*Bar, error) {
	obj, err := r.CreateChild(parent, native.KindBar, cfg.options())
	if err != nil {
		return nil, err
	}
	return &Bar{valued{obj}}, nil
}

// ToggleConfig configures switches and checkboxes.
type ToggleConfig struct {
	Geometry
	Checked bool
	// Text is used by checkboxes only.
	Text string
}

// toggle is shared by switches and checkboxes.
type toggle struct{ *Obj }

// Checked reports whether the widget is on.
func (t toggle) Checked() bool {
	return t.HasState(native.StateChecked)
}

// SetChecked turns the widget on or off without emitting an event.
func (t toggle) SetChecked(on bool) error {
	if on {
		return t.AddState(native.StateChecked)
	}
	return t.ClearState(native.StateChecked)
}

// OnToggle subscribes fn to value changes.
func (t toggle) OnToggle(fn Handler) error {
	return t.On(native.EventValueChanged, fn)
}

// Switch is an on/off toggle.
type Switch struct{ toggle }

// NewSwitch creates a switch under parent.
func (r *Runtime) NewSwitch(parent *Obj, cfg ToggleConfig) (*Switch, error) {
	o := cfg.options()
	o[OptChecked] = cfg.Checked
	obj, err := r.CreateChild(parent, native.KindSwitch, o)
	if err != nil {
		return nil, err
	}
	return &Switch{toggle{obj}}, nil
}

// Checkbox is a labelled toggle.
type Checkbox struct{ toggle }

// NewCheckbox creates a checkbox under parent.
func (r *Runtime) NewCheckbox(parent *Obj, cfg ToggleConfig) (*Checkbox, error) {
	o := cfg.options()
	o[OptChecked] = cfg.Checked
	if cfg.Text != "" {
		o[OptText] = cfg.Text
	}
	obj, err := r.CreateChild(parent, native.KindCheckbox, o)
	if err != nil {
		return nil, err
	}
	return &Checkbox{toggle{obj}}, nil
}
