package lv

import (
	"github.com/go-drift/lvbind/pkg/errors"
	"github.com/go-drift/lvbind/pkg/native"
	"github.com/go-drift/lvbind/pkg/registry"
)

// Obj wraps one native object. The zero value is not usable; wrappers come
// from a Runtime, from traversal or from events.
type Obj struct {
	rt    *Runtime
	rec   *registry.Record[Handler]
	owns  bool
	moved bool
}

// live returns the object's record, or reports why the wrapper may not touch
// native memory.
func (o *Obj) live(op string) (*registry.Record[Handler], error) {
	if o == nil || o.rec == nil {
		return nil, errors.Report(errors.New(op, errors.KindMisuse, 0, ErrNilObject))
	}
	if o.rt.closed {
		return nil, errors.Report(errors.New(op, errors.KindMisuse, uintptr(o.rec.Handle()), ErrNotInitialized))
	}
	if o.moved {
		return nil, errors.Report(errors.New(op, errors.KindMisuse, uintptr(o.rec.Handle()), ErrMovedFrom))
	}
	if o.rec.Deleted() {
		return nil, errors.Report(errors.New(op, errors.KindMisuse, uintptr(o.rec.Handle()), ErrDeleted))
	}
	return o.rec, nil
}

// Handle returns the native address. It stays readable after deletion for
// diagnostics but must not be passed to the engine.
func (o *Obj) Handle() native.Handle {
	if o == nil || o.rec == nil {
		return 0
	}
	return o.rec.Handle()
}

// Kind returns the object's type tag.
func (o *Obj) Kind() native.Kind {
	if o == nil || o.rec == nil {
		return native.KindObj
	}
	return o.rec.Tag()
}

// Owned reports whether this wrapper owns the native object.
func (o *Obj) Owned() bool {
	return o != nil && o.owns && !o.moved && o.rec != nil && !o.rec.Deleted()
}

// Alive reports whether the native object still exists.
func (o *Obj) Alive() bool {
	return o != nil && o.rec != nil && !o.rt.closed && !o.rec.Deleted()
}

// Destroy deletes the native subtree if this wrapper owns it. It is a no-op
// for borrowing and moved-from wrappers and for objects that are already
// gone, so it is safe to defer. During a tick or an event dispatch the
// deletion is queued until the tick ends.
func (o *Obj) Destroy() {
	if o == nil || o.rec == nil || o.moved || !o.owns || o.rt.closed || o.rec.Deleted() {
		return
	}
	o.rt.requestDelete(o.rec)
}

// Delete deletes the native subtree regardless of ownership. Deleting an
// object twice in one tick deletes it once.
func (o *Obj) Delete() error {
	rec, err := o.live("lv.Obj.Delete")
	if err != nil {
		return err
	}
	o.rt.requestDelete(rec)
	return nil
}

// TransferOwnership moves ownership to a new wrapper. The receiver is
// consumed and reports ErrMovedFrom afterwards.
func (o *Obj) TransferOwnership() (*Obj, error) {
	rec, err := o.live("lv.Obj.TransferOwnership")
	if err != nil {
		return nil, err
	}
	if !o.owns {
		return nil, errors.Report(errors.New("lv.Obj.TransferOwnership", errors.KindMisuse, uintptr(rec.Handle()), ErrNotOwner))
	}
	o.owns = false
	o.moved = true
	return &Obj{rt: o.rt, rec: rec, owns: true}, nil
}

// Release gives ownership back to the native tree. The object is then
// deleted with its parent or screen.
func (o *Obj) Release() error {
	rec, err := o.live("lv.Obj.Release")
	if err != nil {
		return err
	}
	if !o.owns {
		return errors.Report(errors.New("lv.Obj.Release", errors.KindMisuse, uintptr(rec.Handle()), ErrNotOwner))
	}
	o.owns = false
	rec.SetOwned(false)
	return nil
}

// Adopt returns an owning wrapper for an object nobody owns, such as one
// obtained by traversal or released earlier.
func (o *Obj) Adopt() (*Obj, error) {
	rec, err := o.live("lv.Obj.Adopt")
	if err != nil {
		return nil, err
	}
	if rec.Owned() {
		return nil, errors.Report(errors.New("lv.Obj.Adopt", errors.KindMisuse, uintptr(rec.Handle()), ErrAlreadyOwned))
	}
	rec.SetOwned(true)
	return &Obj{rt: o.rt, rec: rec, owns: true}, nil
}

// SetParent moves the object under parent. Ownership does not change.
func (o *Obj) SetParent(parent *Obj) error {
	rec, err := o.live("lv.Obj.SetParent")
	if err != nil {
		return err
	}
	prec, err := parent.live("lv.Obj.SetParent")
	if err != nil {
		return err
	}
	eng := o.rt.engine
	if eng.Parent(rec.Handle()).IsNil() {
		return errors.Report(errors.New("lv.Obj.SetParent", errors.KindMisuse, uintptr(rec.Handle()), ErrNotScreen))
	}
	for h := prec.Handle(); !h.IsNil(); h = eng.Parent(h) {
		if h == rec.Handle() {
			return errors.Report(errors.New("lv.Obj.SetParent", errors.KindMisuse, uintptr(rec.Handle()), ErrCycle))
		}
	}
	eng.SetParent(rec.Handle(), prec.Handle())
	return nil
}

// Parent returns a borrowing wrapper for the parent, or nil for screens.
func (o *Obj) Parent() (*Obj, error) {
	rec, err := o.live("lv.Obj.Parent")
	if err != nil {
		return nil, err
	}
	p := o.rt.engine.Parent(rec.Handle())
	if p.IsNil() {
		return nil, nil
	}
	return o.rt.borrow(o.rt.reg.Ensure(p, o.rt.engine.KindOf(p))), nil
}

// ChildCount returns the number of direct children, or 0 for deleted
// objects.
func (o *Obj) ChildCount() int {
	if !o.Alive() {
		return 0
	}
	return o.rt.engine.ChildCount(o.rec.Handle())
}

// Child returns a borrowing wrapper for the child at index. No native object
// is allocated.
func (o *Obj) Child(index int) (*Obj, error) {
	rec, err := o.live("lv.Obj.Child")
	if err != nil {
		return nil, err
	}
	h := o.rt.engine.Child(rec.Handle(), index)
	if h.IsNil() {
		return nil, ErrNoChild
	}
	return o.rt.borrow(o.rt.reg.Ensure(h, o.rt.engine.KindOf(h))), nil
}

// Children returns borrowing wrappers for every direct child.
func (o *Obj) Children() ([]*Obj, error) {
	n := o.ChildCount()
	out := make([]*Obj, 0, n)
	for i := 0; i < n; i++ {
		c, err := o.Child(i)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// SetPos sets the position relative to the parent.
func (o *Obj) SetPos(x, y int16) error {
	rec, err := o.live("lv.Obj.SetPos")
	if err != nil {
		return err
	}
	o.rt.engine.SetPos(rec.Handle(), x, y)
	return nil
}

// SetSize sets the object's size.
func (o *Obj) SetSize(w, h int16) error {
	rec, err := o.live("lv.Obj.SetSize")
	if err != nil {
		return err
	}
	o.rt.engine.SetSize(rec.Handle(), w, h)
	return nil
}

// Coords returns the absolute area of the object.
func (o *Obj) Coords() (native.Area, error) {
	rec, err := o.live("lv.Obj.Coords")
	if err != nil {
		return native.Area{}, err
	}
	return o.rt.engine.Coords(rec.Handle()), nil
}

// SetHidden shows or hides the object.
func (o *Obj) SetHidden(hidden bool) error {
	return o.setFlag("lv.Obj.SetHidden", native.FlagHidden, hidden)
}

// SetClickable enables or disables pointer hits.
func (o *Obj) SetClickable(on bool) error {
	return o.setFlag("lv.Obj.SetClickable", native.FlagClickable, on)
}

func (o *Obj) setFlag(op string, f native.Flag, on bool) error {
	rec, err := o.live(op)
	if err != nil {
		return err
	}
	o.rt.engine.SetFlag(rec.Handle(), f, on)
	return nil
}

// HasFlag reports whether f is set. Deleted objects have no flags.
func (o *Obj) HasFlag(f native.Flag) bool {
	if !o.Alive() {
		return false
	}
	return o.rt.engine.HasFlag(o.rec.Handle(), f)
}

// AddState sets state bits.
func (o *Obj) AddState(s native.State) error {
	rec, err := o.live("lv.Obj.AddState")
	if err != nil {
		return err
	}
	o.rt.engine.AddState(rec.Handle(), s)
	return nil
}

// ClearState clears state bits.
func (o *Obj) ClearState(s native.State) error {
	rec, err := o.live("lv.Obj.ClearState")
	if err != nil {
		return err
	}
	o.rt.engine.ClearState(rec.Handle(), s)
	return nil
}

// HasState reports whether every bit of s is set.
func (o *Obj) HasState(s native.State) bool {
	if !o.Alive() {
		return false
	}
	return o.rt.engine.State(o.rec.Handle()).Has(s)
}

// State returns the object's state bits.
func (o *Obj) State() native.State {
	if !o.Alive() {
		return native.StateDefault
	}
	return o.rt.engine.State(o.rec.Handle())
}

// ApplyStyle writes every property of s as a local style for sel. Applying
// the same style twice leaves the object as applying it once.
func (o *Obj) ApplyStyle(s *Style, sel native.Selector) error {
	rec, err := o.live("lv.Obj.ApplyStyle")
	if err != nil {
		return err
	}
	if s == nil {
		return nil
	}
	for _, p := range s.props {
		o.rt.engine.SetStyleProp(rec.Handle(), sel, p.prop, p.value)
	}
	return nil
}

// StyleProp returns the local property stored for sel.
func (o *Obj) StyleProp(sel native.Selector, prop native.StyleProp) (int32, bool) {
	if !o.Alive() {
		return 0, false
	}
	return o.rt.engine.StyleProp(o.rec.Handle(), sel, prop)
}

// String implements fmt.Stringer.
func (o *Obj) String() string {
	if o == nil || o.rec == nil {
		return "lv.Obj(nil)"
	}
	state := "live"
	switch {
	case o.moved:
		state = "moved"
	case o.rec.Deleted():
		state = "deleted"
	case o.owns:
		state = "owned"
	}
	return "lv." + o.rec.Tag().String() + "(" + o.rec.Handle().String() + ", " + state + ")"
}
