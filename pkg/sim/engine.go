// Package sim is a pure-Go reference implementation of the [native.Engine]
// contract.
//
// It models the parts of an embedded retained-mode engine that the binding
// depends on: an address-based object arena with recycled addresses, a
// recursive delete that reports every freed object, a polled input model
// with press/release detection, and partial-buffer rendering that reuses a
// single draw buffer between flush calls. It is used by the simulator CLI and
// by tests; it is not a renderer of record.
package sim

import (
	stderrors "errors"

	"github.com/go-drift/lvbind/pkg/native"
)

// ErrInvalidHandle is returned by Create when the parent is not a live object.
var ErrInvalidHandle = stderrors.New("sim: invalid handle")

// ErrBadDisplay is returned by RegisterDisplay for unusable configurations.
var ErrBadDisplay = stderrors.New("sim: bad display configuration")

const (
	defaultBase        = 0x20000000
	defaultObjectSize  = 0x40
	defaultMaxObjects  = 4096
	defaultLongPressMS = 400
	maxDirtyAreas      = 32
	// poisonByte overwrites the draw buffer after every flush so that a sink
	// holding on to the slice observes garbage.
	poisonByte = 0xA5
)

// Option configures an Engine.
type Option func(*Engine)

// WithMaxObjects caps the number of simultaneously allocated objects.
// Create fails with native.ErrOutOfMemory beyond the cap.
func WithMaxObjects(n int) Option {
	return func(e *Engine) { e.maxObjects = n }
}

// WithLongPress sets the press duration after which EventLongPressed fires.
func WithLongPress(ms uint32) Option {
	return func(e *Engine) { e.longPressMS = ms }
}

// Stats counts engine activity for tests and diagnostics.
type Stats struct {
	Allocations      int
	Frees            int
	CallbackInstalls int
	EventsSent       int
	Flushes          int
}

// Engine is an in-memory engine. Like the engines it stands in for, it is not
// safe for concurrent use.
type Engine struct {
	objects    map[native.Handle]*object
	free       []native.Handle
	nextAddr   uintptr
	maxObjects int

	screens       []native.Handle
	active        native.Handle
	pendingDelete []native.Handle
	deleteHook    native.DeleteHook

	tick        uint32
	longPressMS uint32

	display *native.DisplayConfig
	drawBuf []byte
	dirty   []native.Area

	pointers []*pointerDevice
	keypads  []*keypadDevice
	focused  native.Handle

	params    [8]native.Param
	sendDepth int
	stats     Stats
}

type object struct {
	handle   native.Handle
	kind     native.Kind
	parent   native.Handle
	children []native.Handle
	x, y     int16
	w, h     int16
	state    native.State
	flags    native.Flag
	styles   map[native.Selector]map[native.StyleProp]int32
	text     string
	lo, hi   int32
	value    int32
	cb       native.Trampoline
}

// New creates an engine with one empty default screen, mirroring the engine
// initialization the binding expects.
func New(opts ...Option) *Engine {
	e := &Engine{
		objects:     make(map[native.Handle]*object),
		nextAddr:    defaultBase,
		maxObjects:  defaultMaxObjects,
		longPressMS: defaultLongPressMS,
	}
	for _, opt := range opts {
		opt(e)
	}
	scr, _ := e.Create(native.KindScreen, 0)
	e.active = scr
	return e
}

// Stats returns a copy of the activity counters.
func (e *Engine) Stats() Stats {
	return e.stats
}

// ObjectCount returns the number of live objects, screens included.
func (e *Engine) ObjectCount() int {
	return len(e.objects)
}

// Now returns the engine's millisecond clock.
func (e *Engine) Now() uint32 {
	return e.tick
}

func (e *Engine) alloc() (native.Handle, bool) {
	if len(e.objects) >= e.maxObjects {
		return 0, false
	}
	if n := len(e.free); n > 0 {
		h := e.free[n-1]
		e.free = e.free[:n-1]
		return h, true
	}
	h := native.Handle(e.nextAddr)
	e.nextAddr += defaultObjectSize
	return h, true
}

// Create implements native.Objects.
func (e *Engine) Create(kind native.Kind, parent native.Handle) (native.Handle, error) {
	if !parent.IsNil() {
		if _, ok := e.objects[parent]; !ok {
			return 0, ErrInvalidHandle
		}
	}
	h, ok := e.alloc()
	if !ok {
		return 0, native.ErrOutOfMemory
	}
	if parent.IsNil() {
		kind = native.KindScreen
	}
	o := &object{handle: h, kind: kind, parent: parent, lo: 0, hi: 100}
	o.w, o.h = defaultSize(kind)
	o.flags = defaultFlags(kind)
	e.objects[h] = o
	e.stats.Allocations++

	if parent.IsNil() {
		if e.display != nil {
			o.w, o.h = int16(e.display.Width), int16(e.display.Height)
		}
		e.screens = append(e.screens, h)
	} else {
		p := e.objects[parent]
		p.children = append(p.children, h)
		e.invalidate(h)
	}
	return h, nil
}

func defaultSize(kind native.Kind) (int16, int16) {
	switch kind {
	case native.KindButton:
		return 40, 20
	case native.KindLabel:
		return 40, 10
	case native.KindSlider, native.KindBar:
		return 60, 8
	case native.KindSwitch:
		return 20, 10
	case native.KindCheckbox:
		return 10, 10
	default:
		return 50, 50
	}
}

func defaultFlags(kind native.Kind) native.Flag {
	switch kind {
	case native.KindButton, native.KindSlider:
		return native.FlagClickable
	case native.KindSwitch, native.KindCheckbox:
		return native.FlagClickable | native.FlagCheckable
	default:
		return 0
	}
}

// Delete implements native.Objects. Children are freed before their parent
// and every freed object is reported to the delete hook.
func (e *Engine) Delete(h native.Handle) {
	o, ok := e.objects[h]
	if !ok {
		return
	}
	e.invalidate(h)
	if p, ok := e.objects[o.parent]; ok {
		p.children = removeHandle(p.children, h)
	}
	e.deleteRec(o)
	if o.parent.IsNil() {
		e.screens = removeHandle(e.screens, h)
		if e.active == h {
			e.active = 0
			if len(e.screens) > 0 {
				e.active = e.screens[0]
				e.invalidateAll()
			}
		}
	}
}

func (e *Engine) deleteRec(o *object) {
	for _, c := range append([]native.Handle(nil), o.children...) {
		if child, ok := e.objects[c]; ok {
			e.deleteRec(child)
		}
	}
	if e.deleteHook != nil {
		e.deleteHook(o.handle)
	}
	for _, p := range e.pointers {
		if p.target == o.handle {
			p.target = 0
		}
	}
	if e.focused == o.handle {
		e.focused = 0
	}
	delete(e.objects, o.handle)
	e.free = append(e.free, o.handle)
	e.stats.Frees++
}

func removeHandle(list []native.Handle, h native.Handle) []native.Handle {
	for i, c := range list {
		if c == h {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

// Valid implements native.Objects.
func (e *Engine) Valid(h native.Handle) bool {
	_, ok := e.objects[h]
	return ok
}

// KindOf implements native.Objects.
func (e *Engine) KindOf(h native.Handle) native.Kind {
	if o, ok := e.objects[h]; ok {
		return o.kind
	}
	return native.KindObj
}

// Parent implements native.Objects.
func (e *Engine) Parent(h native.Handle) native.Handle {
	if o, ok := e.objects[h]; ok {
		return o.parent
	}
	return 0
}

// ChildCount implements native.Objects.
func (e *Engine) ChildCount(h native.Handle) int {
	if o, ok := e.objects[h]; ok {
		return len(o.children)
	}
	return 0
}

// Child implements native.Objects. Out-of-range indexes return nil.
func (e *Engine) Child(h native.Handle, index int) native.Handle {
	o, ok := e.objects[h]
	if !ok || index < 0 || index >= len(o.children) {
		return 0
	}
	return o.children[index]
}

// SetParent implements native.Objects.
func (e *Engine) SetParent(h, parent native.Handle) {
	o, ok := e.objects[h]
	np, pok := e.objects[parent]
	if !ok || !pok || o.parent.IsNil() || o.parent == parent {
		return
	}
	e.invalidate(h)
	if old, ok := e.objects[o.parent]; ok {
		old.children = removeHandle(old.children, h)
	}
	o.parent = parent
	np.children = append(np.children, h)
	e.invalidate(h)
}

// ActiveScreen implements native.Objects.
func (e *Engine) ActiveScreen() native.Handle {
	return e.active
}

// LoadScreen implements native.Objects.
func (e *Engine) LoadScreen(h native.Handle, autoDelete bool) {
	o, ok := e.objects[h]
	if !ok || !o.parent.IsNil() || h == e.active {
		return
	}
	if autoDelete && !e.active.IsNil() {
		e.pendingDelete = append(e.pendingDelete, e.active)
	}
	e.active = h
	e.invalidateAll()
}

// SetDeleteHook implements native.Objects.
func (e *Engine) SetDeleteHook(hook native.DeleteHook) {
	e.deleteHook = hook
}

// SetEventCallback implements native.Events.
func (e *Engine) SetEventCallback(h native.Handle, cb native.Trampoline) {
	if o, ok := e.objects[h]; ok {
		o.cb = cb
		e.stats.CallbackInstalls++
	}
}

// ClearEventCallback implements native.Events.
func (e *Engine) ClearEventCallback(h native.Handle) {
	if o, ok := e.objects[h]; ok {
		o.cb = nil
	}
}

// SendEvent implements native.Events. The param passed to the callback is
// engine-owned and is cleared when the callback returns.
func (e *Engine) SendEvent(h native.Handle, code native.EventCode, param *native.Param) {
	o, ok := e.objects[h]
	if !ok || o.cb == nil {
		return
	}
	var p *native.Param
	if e.sendDepth < len(e.params) {
		p = &e.params[e.sendDepth]
	} else {
		p = new(native.Param)
	}
	if param != nil {
		*p = *param
	}
	e.sendDepth++
	e.stats.EventsSent++
	o.cb(h, code, p)
	e.sendDepth--
	*p = native.Param{}
}

// TickInc implements native.Timing.
func (e *Engine) TickInc(ms uint32) {
	e.tick += ms
}

// Process implements native.Timing. It frees screens scheduled by
// LoadScreen and polls every input device.
func (e *Engine) Process() {
	if len(e.pendingDelete) > 0 {
		pending := e.pendingDelete
		e.pendingDelete = nil
		for _, h := range pending {
			e.Delete(h)
		}
	}
	for _, p := range e.pointers {
		e.pollPointer(p)
	}
	for _, k := range e.keypads {
		e.pollKeypad(k)
	}
}

// RegisterInput implements native.Drivers.
func (e *Engine) RegisterInput(kind native.InputKind, read native.ReadFunc) {
	switch kind {
	case native.InputPointer:
		e.pointers = append(e.pointers, &pointerDevice{read: read})
	case native.InputKeypad:
		e.keypads = append(e.keypads, &keypadDevice{read: read})
	}
}
