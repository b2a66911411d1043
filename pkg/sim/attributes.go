package sim

import "github.com/go-drift/lvbind/pkg/native"

// SetPos implements native.Attributes. Positions are relative to the parent.
func (e *Engine) SetPos(h native.Handle, x, y int16) {
	o, ok := e.objects[h]
	if !ok || (o.x == x && o.y == y) {
		return
	}
	e.invalidate(h)
	o.x, o.y = x, y
	e.invalidate(h)
}

// SetSize implements native.Attributes.
func (e *Engine) SetSize(h native.Handle, w, hgt int16) {
	o, ok := e.objects[h]
	if !ok || (o.w == w && o.h == hgt) {
		return
	}
	e.invalidate(h)
	o.w, o.h = w, hgt
	e.invalidate(h)
}

// Coords implements native.Attributes and returns absolute coordinates.
func (e *Engine) Coords(h native.Handle) native.Area {
	o, ok := e.objects[h]
	if !ok {
		return native.Area{X1: 0, Y1: 0, X2: -1, Y2: -1}
	}
	x, y := o.x, o.y
	for p := o.parent; !p.IsNil(); {
		po, ok := e.objects[p]
		if !ok {
			break
		}
		x += po.x
		y += po.y
		p = po.parent
	}
	return native.Area{X1: x, Y1: y, X2: x + o.w - 1, Y2: y + o.h - 1}
}

// AddState implements native.Attributes.
func (e *Engine) AddState(h native.Handle, s native.State) {
	if o, ok := e.objects[h]; ok && o.state&s != s {
		o.state |= s
		e.invalidate(h)
	}
}

// ClearState implements native.Attributes.
func (e *Engine) ClearState(h native.Handle, s native.State) {
	if o, ok := e.objects[h]; ok && o.state&s != 0 {
		o.state &^= s
		e.invalidate(h)
	}
}

// State implements native.Attributes.
func (e *Engine) State(h native.Handle) native.State {
	if o, ok := e.objects[h]; ok {
		return o.state
	}
	return native.StateDefault
}

// SetFlag implements native.Attributes.
func (e *Engine) SetFlag(h native.Handle, f native.Flag, on bool) {
	o, ok := e.objects[h]
	if !ok {
		return
	}
	hiding := f&native.FlagHidden != 0
	if hiding && on {
		e.invalidate(h)
	}
	if on {
		o.flags |= f
	} else {
		o.flags &^= f
	}
	if hiding && !on {
		e.invalidate(h)
	}
}

// HasFlag implements native.Attributes.
func (e *Engine) HasFlag(h native.Handle, f native.Flag) bool {
	if o, ok := e.objects[h]; ok {
		return o.flags&f == f
	}
	return false
}

// SetStyleProp implements native.Attributes. Local properties overwrite.
func (e *Engine) SetStyleProp(h native.Handle, sel native.Selector, prop native.StyleProp, value int32) {
	o, ok := e.objects[h]
	if !ok {
		return
	}
	if o.styles == nil {
		o.styles = make(map[native.Selector]map[native.StyleProp]int32)
	}
	props := o.styles[sel]
	if props == nil {
		props = make(map[native.StyleProp]int32)
		o.styles[sel] = props
	}
	if old, ok := props[prop]; ok && old == value {
		return
	}
	props[prop] = value
	e.invalidate(h)
}

// StyleProp implements native.Attributes. It returns the local property
// stored for exactly sel.
func (e *Engine) StyleProp(h native.Handle, sel native.Selector, prop native.StyleProp) (int32, bool) {
	o, ok := e.objects[h]
	if !ok {
		return 0, false
	}
	v, ok := o.styles[sel][prop]
	return v, ok
}

// SetText implements native.Attributes.
func (e *Engine) SetText(h native.Handle, text string) {
	if o, ok := e.objects[h]; ok && o.text != text {
		o.text = text
		e.invalidate(h)
	}
}

// Text implements native.Attributes.
func (e *Engine) Text(h native.Handle) string {
	if o, ok := e.objects[h]; ok {
		return o.text
	}
	return ""
}

// SetRange implements native.Attributes. The current value is clamped.
func (e *Engine) SetRange(h native.Handle, lo, hi int32) {
	o, ok := e.objects[h]
	if !ok {
		return
	}
	if hi < lo {
		lo, hi = hi, lo
	}
	o.lo, o.hi = lo, hi
	o.value = clamp(o.value, lo, hi)
	e.invalidate(h)
}

// Range implements native.Attributes.
func (e *Engine) Range(h native.Handle) (int32, int32) {
	if o, ok := e.objects[h]; ok {
		return o.lo, o.hi
	}
	return 0, 0
}

// SetValue implements native.Attributes. Values are clamped to the range.
func (e *Engine) SetValue(h native.Handle, v int32) {
	o, ok := e.objects[h]
	if !ok {
		return
	}
	v = clamp(v, o.lo, o.hi)
	if v != o.value {
		o.value = v
		e.invalidate(h)
	}
}

// Value implements native.Attributes.
func (e *Engine) Value(h native.Handle) int32 {
	if o, ok := e.objects[h]; ok {
		return o.value
	}
	return 0
}

func clamp(v, lo, hi int32) int32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// onActiveScreen reports whether h is drawn on the active screen.
func (e *Engine) onActiveScreen(h native.Handle) bool {
	for !h.IsNil() {
		o, ok := e.objects[h]
		if !ok || o.flags&native.FlagHidden != 0 {
			return false
		}
		if o.parent.IsNil() {
			return h == e.active
		}
		h = o.parent
	}
	return false
}

// invalidate marks the visible part of h as needing a redraw.
func (e *Engine) invalidate(h native.Handle) {
	if e.display == nil || !e.onActiveScreen(h) {
		return
	}
	e.addDirty(e.Coords(h))
}

func (e *Engine) invalidateAll() {
	if e.display == nil {
		return
	}
	e.dirty = e.dirty[:0]
	e.addDirty(e.screenArea())
}

func (e *Engine) screenArea() native.Area {
	return native.Area{X2: int16(e.display.Width - 1), Y2: int16(e.display.Height - 1)}
}

func (e *Engine) addDirty(a native.Area) {
	a = a.Intersect(e.screenArea())
	if a.Empty() {
		return
	}
	for _, d := range e.dirty {
		if a.X1 >= d.X1 && a.Y1 >= d.Y1 && a.X2 <= d.X2 && a.Y2 <= d.Y2 {
			return
		}
	}
	if len(e.dirty) >= maxDirtyAreas {
		e.dirty = e.dirty[:0]
		a = e.screenArea()
	}
	e.dirty = append(e.dirty, a)
}

// DirtyAreas returns a copy of the areas waiting for the next Render.
func (e *Engine) DirtyAreas() []native.Area {
	return append([]native.Area(nil), e.dirty...)
}
