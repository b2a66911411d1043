package lv

import (
	stderrors "errors"

	"github.com/go-drift/lvbind/pkg/errors"
	"github.com/go-drift/lvbind/pkg/native"
)

// ErrBadHandler is returned by On for a nil handler or an unknown code.
var ErrBadHandler = stderrors.New("lv: nil handler or unknown event code")

// Event is a typed copy of a native event. The engine's payload is copied
// field by field; nothing in an Event points into engine memory.
type Event struct {
	Code native.EventCode
	// Target is a borrowing wrapper for the object the event was sent to.
	Target *Obj
	Point  native.Point
	Key    uint32
	Value  int32
}

// Handler is a host closure subscribed to one event code of one object.
type Handler func(e *Event)

// On installs or replaces the handler for code. The native trampoline is
// installed on the first subscription only.
func (o *Obj) On(code native.EventCode, fn Handler) error {
	rec, err := o.live("lv.Obj.On")
	if err != nil {
		return err
	}
	if fn == nil || code == native.EventNone || int(code) >= native.EventCount {
		return errors.Report(errors.New("lv.Obj.On", errors.KindMisuse, uintptr(rec.Handle()), ErrBadHandler))
	}
	rec.SetSlot(code, fn)
	if !rec.HasTrampoline() {
		o.rt.engine.SetEventCallback(rec.Handle(), o.rt.trampoline)
		rec.SetTrampoline(true)
	}
	return nil
}

// Off removes the handler for code. The trampoline is uninstalled when no
// handlers remain.
func (o *Obj) Off(code native.EventCode) error {
	rec, err := o.live("lv.Obj.Off")
	if err != nil {
		return err
	}
	rec.ClearSlot(code)
	if rec.SlotCount() == 0 && rec.HasTrampoline() {
		o.rt.engine.ClearEventCallback(rec.Handle())
		rec.SetTrampoline(false)
	}
	return nil
}

// Send delivers a host-initiated event through the engine and the same
// trampoline native events use.
func (o *Obj) Send(code native.EventCode, param native.Param) error {
	rec, err := o.live("lv.Obj.Send")
	if err != nil {
		return err
	}
	o.rt.engine.SendEvent(rec.Handle(), code, &param)
	return nil
}

// trampoline is the single native callback installed on every subscribed
// object. Deleted objects and empty slots are skipped.
func (r *Runtime) trampoline(h native.Handle, code native.EventCode, p *native.Param) {
	if r.closed {
		return
	}
	rec, ok := r.reg.Lookup(h)
	if !ok {
		r.stats.Skipped++
		return
	}
	fn, ok := rec.Slot(code)
	if !ok {
		r.stats.Skipped++
		return
	}
	ev := Event{Code: code, Target: r.borrow(rec)}
	if p != nil {
		ev.Point, ev.Key, ev.Value = p.Point, p.Key, p.Value
	}
	r.dispatch(fn, &ev)
}

func (r *Runtime) dispatch(fn Handler, ev *Event) {
	r.dispatchDepth++
	defer func() { r.dispatchDepth-- }()
	defer errors.Recover("lv.dispatch "+ev.Code.String(), uintptr(ev.Target.Handle()), func(*errors.PanicError) {
		r.stats.Panics++
	})
	r.stats.Dispatched++
	fn(ev)
}
