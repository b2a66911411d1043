package sim

import "github.com/go-drift/lvbind/pkg/native"

type pointerDevice struct {
	read       native.ReadFunc
	pressed    bool
	point      native.Point
	target     native.Handle
	pressedAt  uint32
	longIssued bool
}

type keypadDevice struct {
	read    native.ReadFunc
	pressed bool
}

// pollPointer reads the current pointer state and derives transitions by
// comparing with the previous poll. Only the state at poll time is seen.
func (e *Engine) pollPointer(p *pointerDevice) {
	var data native.InputData
	p.read(&data)
	wasPressed := p.pressed
	p.pressed = data.Pressed
	p.point = data.Point

	switch {
	case data.Pressed && !wasPressed:
		p.target = e.hitTest(data.Point)
		if p.target.IsNil() {
			return
		}
		p.pressedAt = e.tick
		p.longIssued = false
		e.AddState(p.target, native.StatePressed)
		e.emit(p.target, native.EventPressed, native.Param{Point: data.Point})
		e.dragValue(p.target, data.Point)

	case data.Pressed && wasPressed:
		if p.target.IsNil() || !e.Valid(p.target) {
			return
		}
		e.emit(p.target, native.EventPressing, native.Param{Point: data.Point})
		e.dragValue(p.target, data.Point)
		if !p.longIssued && e.tick-p.pressedAt >= e.longPressMS && e.Valid(p.target) {
			p.longIssued = true
			e.emit(p.target, native.EventLongPressed, native.Param{Point: data.Point})
		}

	case !data.Pressed && wasPressed:
		target := p.target
		p.target = 0
		if target.IsNil() || !e.Valid(target) {
			return
		}
		e.ClearState(target, native.StatePressed)
		e.emit(target, native.EventReleased, native.Param{Point: data.Point})
		if !e.Valid(target) || !e.Coords(target).Contains(data.Point) {
			return
		}
		if e.HasFlag(target, native.FlagCheckable) {
			if e.State(target).Has(native.StateChecked) {
				e.ClearState(target, native.StateChecked)
			} else {
				e.AddState(target, native.StateChecked)
			}
			e.emit(target, native.EventValueChanged, native.Param{Point: data.Point})
		}
		if e.Valid(target) {
			e.emit(target, native.EventClicked, native.Param{Point: data.Point})
		}
		e.focus(target)
	}
}

func (e *Engine) pollKeypad(k *keypadDevice) {
	var data native.InputData
	k.read(&data)
	wasPressed := k.pressed
	k.pressed = data.Pressed
	if data.Pressed && !wasPressed && !e.focused.IsNil() {
		e.emit(e.focused, native.EventKey, native.Param{Key: data.Key})
	}
}

func (e *Engine) focus(h native.Handle) {
	if !e.Valid(h) || e.focused == h {
		return
	}
	if old := e.focused; !old.IsNil() && e.Valid(old) {
		e.ClearState(old, native.StateFocused)
		e.emit(old, native.EventDefocused, native.Param{})
	}
	if !e.Valid(h) {
		return
	}
	e.focused = h
	e.AddState(h, native.StateFocused)
	e.emit(h, native.EventFocused, native.Param{})
}

// dragValue maps the pointer's x position onto a slider's range.
func (e *Engine) dragValue(h native.Handle, pt native.Point) {
	o, ok := e.objects[h]
	if !ok || o.kind != native.KindSlider || o.w <= 1 {
		return
	}
	area := e.Coords(h)
	x := int32(pt.X) - int32(area.X1)
	v := o.lo + x*(o.hi-o.lo)/int32(o.w-1)
	v = clamp(v, o.lo, o.hi)
	if v == o.value {
		return
	}
	e.SetValue(h, v)
	e.emit(h, native.EventValueChanged, native.Param{Point: pt, Value: v})
}

func (e *Engine) emit(h native.Handle, code native.EventCode, param native.Param) {
	e.SendEvent(h, code, &param)
}

// hitTest returns the deepest clickable, visible object under pt on the
// active screen. Later children are on top.
func (e *Engine) hitTest(pt native.Point) native.Handle {
	var hit native.Handle
	var walk func(h native.Handle)
	walk = func(h native.Handle) {
		o, ok := e.objects[h]
		if !ok || o.flags&native.FlagHidden != 0 || !e.Coords(h).Contains(pt) {
			return
		}
		if o.flags&native.FlagClickable != 0 {
			hit = h
		}
		for _, c := range o.children {
			walk(c)
		}
	}
	walk(e.active)
	return hit
}
