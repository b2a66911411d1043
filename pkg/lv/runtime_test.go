package lv

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-drift/lvbind/pkg/errors"
	"github.com/go-drift/lvbind/pkg/native"
	"github.com/go-drift/lvbind/pkg/sim"
)

type captureHandler struct {
	errs   []*errors.BindingError
	panics []*errors.PanicError
}

func (h *captureHandler) HandleError(err *errors.BindingError) { h.errs = append(h.errs, err) }
func (h *captureHandler) HandlePanic(err *errors.PanicError)   { h.panics = append(h.panics, err) }

func captureErrors(t *testing.T) *captureHandler {
	t.Helper()
	h := &captureHandler{}
	old := errors.DefaultHandler
	errors.SetHandler(h)
	t.Cleanup(func() { errors.SetHandler(old) })
	return h
}

// setup returns an engine, an initialized runtime and the active screen.
func setup(t *testing.T, engOpts []sim.Option, opts ...Option) (*sim.Engine, *Runtime, *Obj) {
	t.Helper()
	eng := sim.New(engOpts...)
	rt, err := Init(eng, opts...)
	require.NoError(t, err)
	t.Cleanup(rt.Deinit)
	scr, err := rt.ActiveScreen()
	require.NoError(t, err)
	return eng, rt, scr
}

func TestInitIsProcessWide(t *testing.T) {
	h := captureErrors(t)
	_, rt, _ := setup(t, nil)
	assert.Same(t, rt, Current())
	assert.NotEmpty(t, rt.Session())

	_, err := Init(sim.New())
	require.ErrorIs(t, err, ErrAlreadyInitialized)
	assert.Equal(t, errors.KindMisuse, errors.KindOf(err))
	require.Len(t, h.errs, 1)

	rt.Deinit()
	assert.Nil(t, Current())
	rt.Deinit()

	rt2, err := Init(sim.New())
	require.NoError(t, err)
	rt2.Deinit()
}

func TestCreateChildReturnsOwningWrapper(t *testing.T) {
	eng, rt, scr := setup(t, nil)
	btn, err := rt.CreateChild(scr, native.KindButton, Options{OptX: 5, OptY: 6, OptWidth: 30})
	require.NoError(t, err)

	assert.True(t, btn.Owned())
	assert.True(t, btn.Alive())
	assert.Equal(t, native.KindButton, btn.Kind())
	assert.True(t, rt.Lookup(btn.Handle()))
	assert.True(t, eng.Valid(btn.Handle()))

	area, err := btn.Coords()
	require.NoError(t, err)
	assert.Equal(t, native.Area{X1: 5, Y1: 6, X2: 34, Y2: 25}, area)
	assert.Equal(t, 1, scr.ChildCount())
	assert.Equal(t, 1, rt.Stats().Created)
}

// buildTree creates fanout children per level under parent, depth levels
// deep, and returns every wrapper created.
func buildTree(t *testing.T, rt *Runtime, parent *Obj, depth, fanout int) []*Obj {
	t.Helper()
	if depth == 0 {
		return nil
	}
	var out []*Obj
	for i := 0; i < fanout; i++ {
		c, err := rt.CreateChild(parent, native.KindObj, nil)
		require.NoError(t, err)
		out = append(out, c)
		out = append(out, buildTree(t, rt, c, depth-1, fanout)...)
	}
	return out
}

func TestDestroyInvalidatesEveryDescendantOnce(t *testing.T) {
	for _, tc := range []struct {
		name string
		opts []Option
	}{
		{"delete hook", nil},
		{"no notifications", []Option{WithDeleteNotifications(false)}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			eng, rt, scr := setup(t, nil, tc.opts...)
			root, err := rt.CreateChild(scr, native.KindObj, nil)
			require.NoError(t, err)
			all := append([]*Obj{root}, buildTree(t, rt, root, 3, 10)...)
			require.Len(t, all, 1111)

			before := rt.Registry().Invalidations()
			root.Destroy()

			assert.Equal(t, 1111, rt.Registry().Invalidations()-before)
			for _, o := range all {
				assert.False(t, o.Alive())
				assert.False(t, rt.Lookup(o.Handle()))
			}
			assert.Equal(t, 1, eng.ObjectCount())
			assert.Equal(t, 1111, eng.Stats().Frees)

			// Destroying again, or destroying a descendant, is a no-op.
			root.Destroy()
			all[500].Destroy()
			assert.Equal(t, 1111, rt.Registry().Invalidations()-before)
		})
	}
}

func TestNoDanglingLookups(t *testing.T) {
	eng, rt, scr := setup(t, nil)
	rnd := rand.New(rand.NewSource(7))
	var live []*Obj
	var dead []native.Handle

	for i := 0; i < 2000; i++ {
		if len(live) == 0 || rnd.Intn(3) > 0 {
			parent := scr
			if len(live) > 0 && rnd.Intn(2) == 0 {
				parent = live[rnd.Intn(len(live))]
			}
			o, err := rt.CreateChild(parent, native.KindObj, nil)
			require.NoError(t, err)
			live = append(live, o)
			continue
		}
		idx := rnd.Intn(len(live))
		victim := live[idx]
		victim.Destroy()
		kept := live[:0]
		for _, o := range live {
			if o.Alive() {
				kept = append(kept, o)
			} else {
				dead = append(dead, o.Handle())
			}
		}
		live = kept

		for _, o := range live {
			require.True(t, eng.Valid(o.Handle()))
			require.True(t, rt.Lookup(o.Handle()))
		}
		for _, h := range dead {
			if rec, ok := rt.Registry().Lookup(h); ok {
				// The address was reused by a live object.
				require.False(t, rec.Deleted())
				require.True(t, eng.Valid(h))
			}
		}
	}
}

func TestEventForDeletedHandleIsSkipped(t *testing.T) {
	_, rt, scr := setup(t, nil)
	btn, err := rt.CreateChild(scr, native.KindButton, nil)
	require.NoError(t, err)
	calls := 0
	require.NoError(t, btn.On(native.EventClicked, func(*Event) { calls++ }))

	require.NoError(t, btn.Send(native.EventClicked, native.Param{}))
	assert.Equal(t, 1, calls)

	h := btn.Handle()
	btn.Destroy()
	// A late native callback for the freed address.
	rt.trampoline(h, native.EventClicked, &native.Param{})
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, rt.Stats().Skipped)
}

func TestOneTrampolinePerObject(t *testing.T) {
	eng, rt, scr := setup(t, nil)
	btn, err := rt.CreateChild(scr, native.KindButton, nil)
	require.NoError(t, err)

	var got []native.EventCode
	record := func(e *Event) { got = append(got, e.Code) }
	require.NoError(t, btn.On(native.EventPressed, record))
	require.NoError(t, btn.On(native.EventReleased, record))
	require.NoError(t, btn.On(native.EventClicked, record))
	require.NoError(t, btn.On(native.EventClicked, record))
	assert.Equal(t, 1, eng.Stats().CallbackInstalls)

	require.NoError(t, btn.Send(native.EventReleased, native.Param{}))
	require.NoError(t, btn.Send(native.EventFocused, native.Param{}))
	assert.Equal(t, []native.EventCode{native.EventReleased}, got)

	require.NoError(t, btn.Off(native.EventPressed))
	require.NoError(t, btn.Off(native.EventReleased))
	require.NoError(t, btn.Off(native.EventClicked))
	require.NoError(t, btn.On(native.EventPressed, record))
	assert.Equal(t, 2, eng.Stats().CallbackInstalls)
}

func TestEventPayloadIsCopied(t *testing.T) {
	_, rt, scr := setup(t, nil)
	sl, err := rt.NewSlider(scr, RangeConfig{Min: 0, Max: 10, Value: 3})
	require.NoError(t, err)

	var kept *Event
	require.NoError(t, sl.OnChange(func(e *Event) { kept = e }))
	require.NoError(t, sl.Send(native.EventValueChanged, native.Param{Point: native.Point{X: 4, Y: 2}, Value: 9}))

	require.NotNil(t, kept)
	assert.Equal(t, native.Point{X: 4, Y: 2}, kept.Point)
	assert.Equal(t, int32(9), kept.Value)
	assert.Equal(t, sl.Handle(), kept.Target.Handle())
	assert.False(t, kept.Target.Owned())
}

func TestDestroyInsideCallbackIsDeferredToTickEnd(t *testing.T) {
	_, rt, scr := setup(t, nil)
	btn, err := rt.CreateChild(scr, native.KindButton, nil)
	require.NoError(t, err)
	h := btn.Handle()

	reachableInside := false
	require.NoError(t, btn.On(native.EventClicked, func(e *Event) {
		btn.Destroy()
		reachableInside = rt.Lookup(h) && e.Target.Alive()
		require.NoError(t, e.Target.SetPos(1, 1))
	}))

	rt.BeginTick()
	require.NoError(t, btn.Send(native.EventClicked, native.Param{}))
	assert.True(t, reachableInside)
	assert.True(t, rt.Lookup(h), "object stays reachable for the rest of the tick")
	assert.Equal(t, 1, rt.Pending())
	rt.EndTick()

	assert.False(t, rt.Lookup(h))
	assert.False(t, btn.Alive())
	assert.Equal(t, 0, rt.Pending())
	assert.Equal(t, 1, rt.Stats().DeferredDrained)
}

func TestDoubleDeleteInOneTickCollapses(t *testing.T) {
	eng, rt, scr := setup(t, nil)
	btn, err := rt.CreateChild(scr, native.KindButton, nil)
	require.NoError(t, err)
	borrowed, err := scr.Child(0)
	require.NoError(t, err)

	rt.BeginTick()
	require.NoError(t, btn.Delete())
	require.NoError(t, borrowed.Delete())
	btn.Destroy()
	assert.Equal(t, 1, rt.Pending())
	rt.EndTick()

	assert.Equal(t, 1, eng.Stats().Frees)
	assert.False(t, btn.Alive())
}

func TestDeleteClosureFiresBeforeInvalidation(t *testing.T) {
	_, rt, scr := setup(t, nil)
	parent, err := rt.CreateChild(scr, native.KindObj, nil)
	require.NoError(t, err)
	child, err := rt.CreateChild(parent, native.KindLabel, Options{OptText: "bye"})
	require.NoError(t, err)

	var order []string
	require.NoError(t, child.On(native.EventDelete, func(e *Event) {
		text, err := (&Label{e.Target}).Text()
		require.NoError(t, err)
		order = append(order, "child:"+text)
	}))
	require.NoError(t, parent.On(native.EventDelete, func(e *Event) {
		assert.True(t, e.Target.Alive())
		assert.False(t, child.Alive())
		order = append(order, "parent")
	}))

	parent.Destroy()
	assert.Equal(t, []string{"child:bye", "parent"}, order)
	assert.False(t, parent.Alive())
}

func TestDeleteRequestedFromDeleteClosureRunsInSameCall(t *testing.T) {
	_, rt, scr := setup(t, nil)
	a, err := rt.CreateChild(scr, native.KindObj, nil)
	require.NoError(t, err)
	b, err := rt.CreateChild(scr, native.KindObj, nil)
	require.NoError(t, err)
	require.NoError(t, a.On(native.EventDelete, func(*Event) { b.Destroy() }))

	a.Destroy()
	assert.False(t, a.Alive())
	assert.False(t, b.Alive())
	assert.Equal(t, 0, rt.Pending())
}

func TestPanicInHandlerIsRecovered(t *testing.T) {
	h := captureErrors(t)
	_, rt, scr := setup(t, nil)
	btn, err := rt.CreateChild(scr, native.KindButton, nil)
	require.NoError(t, err)
	require.NoError(t, btn.On(native.EventClicked, func(*Event) { panic("boom") }))

	require.NotPanics(t, func() {
		require.NoError(t, btn.Send(native.EventClicked, native.Param{}))
	})
	require.Len(t, h.panics, 1)
	assert.Equal(t, "boom", h.panics[0].Value)
	assert.Equal(t, uintptr(btn.Handle()), h.panics[0].Handle)
	assert.Equal(t, 1, rt.Stats().Panics)

	// Dispatch depth was restored: deletion is immediate again.
	btn.Destroy()
	assert.False(t, btn.Alive())
}

func TestLoadScreenAutoDelete(t *testing.T) {
	t.Run("delete hook", func(t *testing.T) {
		eng, rt, oldScr := setup(t, nil)
		lbl, err := rt.NewLabel(oldScr, LabelConfig{Text: "old"})
		require.NoError(t, err)
		next, err := rt.NewScreen(nil)
		require.NoError(t, err)

		require.NoError(t, rt.LoadScreen(next, true))
		assert.True(t, oldScr.Alive())

		eng.Process()
		assert.False(t, oldScr.Alive())
		assert.False(t, lbl.Alive())

		active, err := rt.ActiveScreen()
		require.NoError(t, err)
		assert.Equal(t, next.Handle(), active.Handle())
	})

	t.Run("reconciliation", func(t *testing.T) {
		eng, rt, oldScr := setup(t, nil, WithDeleteNotifications(false), WithReconcile(true))
		lbl, err := rt.NewLabel(oldScr, LabelConfig{Text: "old"})
		require.NoError(t, err)
		next, err := rt.NewScreen(nil)
		require.NoError(t, err)
		require.NoError(t, rt.LoadScreen(next, true))

		rt.BeginTick()
		eng.Process()
		assert.True(t, lbl.Alive(), "no notification until reconciliation")
		rt.EndTick()

		assert.False(t, oldScr.Alive())
		assert.False(t, lbl.Alive())
		assert.Equal(t, 2, rt.Stats().Reconciled)
	})

	t.Run("not a screen", func(t *testing.T) {
		captureErrors(t)
		_, rt, scr := setup(t, nil)
		btn, err := rt.CreateChild(scr, native.KindButton, nil)
		require.NoError(t, err)
		assert.ErrorIs(t, rt.LoadScreen(btn, false), ErrNotScreen)
	})
}

func TestStaleRecordIsReclaimedOnAddressReuse(t *testing.T) {
	eng, rt, scr := setup(t, nil, WithDeleteNotifications(false))
	a, err := rt.CreateChild(scr, native.KindObj, nil)
	require.NoError(t, err)
	h := a.Handle()

	// The engine frees the object without telling the runtime.
	eng.Delete(h)
	b, err := rt.CreateChild(scr, native.KindButton, nil)
	require.NoError(t, err)
	require.Equal(t, h, b.Handle())

	assert.False(t, a.Alive())
	assert.True(t, b.Alive())
	a.Destroy()
	assert.True(t, eng.Valid(h))
}

func TestDeinitInvalidatesWrappers(t *testing.T) {
	h := captureErrors(t)
	eng := sim.New()
	rt, err := Init(eng)
	require.NoError(t, err)
	scr, err := rt.ActiveScreen()
	require.NoError(t, err)
	btn, err := rt.CreateChild(scr, native.KindButton, nil)
	require.NoError(t, err)
	require.NoError(t, btn.On(native.EventClicked, func(*Event) { t.Fatal("handler after deinit") }))

	rt.Deinit()
	assert.False(t, btn.Alive())
	assert.ErrorIs(t, btn.SetPos(1, 1), ErrNotInitialized)
	_, err = rt.CreateChild(scr, native.KindButton, nil)
	assert.ErrorIs(t, err, ErrNotInitialized)
	assert.NotEmpty(t, h.errs)

	eng.SendEvent(btn.Handle(), native.EventClicked, nil)
	btn.Destroy()
	assert.True(t, eng.Valid(btn.Handle()))
}

func TestQueuedDeleteSkipsAddressReusedByEngine(t *testing.T) {
	eng, rt, scr := setup(t, nil, WithDeleteNotifications(false))
	btn, err := rt.CreateChild(scr, native.KindButton, nil)
	require.NoError(t, err)
	h := btn.Handle()

	rt.BeginTick()
	btn.Destroy()
	require.Equal(t, 1, rt.Pending())

	// The engine frees the button on its own and hands the address to an
	// object the runtime never saw.
	eng.Delete(h)
	lbl, err := eng.Create(native.KindLabel, scr.Handle())
	require.NoError(t, err)
	require.Equal(t, h, lbl)

	rt.EndTick()
	assert.False(t, btn.Alive())
	assert.True(t, eng.Valid(h), "the label at the reused address survives")
	assert.Equal(t, native.KindLabel, eng.KindOf(h))
}

func TestReconcileDetectsKindChange(t *testing.T) {
	eng, rt, scr := setup(t, nil, WithDeleteNotifications(false))
	btn, err := rt.CreateChild(scr, native.KindButton, nil)
	require.NoError(t, err)
	h := btn.Handle()

	eng.Delete(h)
	_, err = eng.Create(native.KindSlider, scr.Handle())
	require.NoError(t, err)

	assert.Equal(t, 1, rt.Reconcile())
	assert.False(t, btn.Alive())
	assert.True(t, eng.Valid(h))
}
