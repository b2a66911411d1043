package lv

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-drift/lvbind/pkg/errors"
	"github.com/go-drift/lvbind/pkg/native"
	"github.com/go-drift/lvbind/pkg/sim"
)

func TestTransferOwnershipConsumesPreviousOwner(t *testing.T) {
	h := captureErrors(t)
	eng, rt, scr := setup(t, nil)
	btn, err := rt.CreateChild(scr, native.KindButton, nil)
	require.NoError(t, err)

	moved, err := btn.TransferOwnership()
	require.NoError(t, err)
	assert.True(t, moved.Owned())
	assert.False(t, btn.Owned())

	err = btn.SetPos(1, 1)
	assert.ErrorIs(t, err, ErrMovedFrom)
	assert.Equal(t, errors.KindMisuse, errors.KindOf(err))
	_, err = btn.TransferOwnership()
	assert.ErrorIs(t, err, ErrMovedFrom)
	require.Len(t, h.errs, 2)

	// Dropping the moved-from wrapper does nothing.
	btn.Destroy()
	assert.True(t, eng.Valid(moved.Handle()))

	moved.Destroy()
	assert.False(t, eng.Valid(moved.Handle()))
}

func TestTransferOfBorrowedWrapperIsMisuse(t *testing.T) {
	captureErrors(t)
	_, rt, scr := setup(t, nil)
	_, err := rt.CreateChild(scr, native.KindButton, nil)
	require.NoError(t, err)

	borrowed, err := scr.Child(0)
	require.NoError(t, err)
	assert.False(t, borrowed.Owned())
	_, err = borrowed.TransferOwnership()
	assert.ErrorIs(t, err, ErrNotOwner)
	assert.ErrorIs(t, borrowed.Release(), ErrNotOwner)
}

func TestReleaseAndAdopt(t *testing.T) {
	captureErrors(t)
	eng, rt, scr := setup(t, nil)
	btn, err := rt.CreateChild(scr, native.KindButton, nil)
	require.NoError(t, err)

	_, err = btn.Adopt()
	assert.ErrorIs(t, err, ErrAlreadyOwned)

	require.NoError(t, btn.Release())
	btn.Destroy()
	assert.True(t, eng.Valid(btn.Handle()), "released objects belong to the tree")

	child, err := scr.Child(0)
	require.NoError(t, err)
	owner, err := child.Adopt()
	require.NoError(t, err)
	owner.Destroy()
	assert.False(t, eng.Valid(btn.Handle()))
}

func TestBorrowingDoesNotAllocate(t *testing.T) {
	eng, rt, scr := setup(t, nil)
	for i := 0; i < 3; i++ {
		_, err := rt.CreateChild(scr, native.KindLabel, nil)
		require.NoError(t, err)
	}
	allocs := eng.Stats().Allocations

	kids, err := scr.Children()
	require.NoError(t, err)
	require.Len(t, kids, 3)
	for _, k := range kids {
		assert.False(t, k.Owned())
		assert.Equal(t, native.KindLabel, k.Kind())
		p, err := k.Parent()
		require.NoError(t, err)
		assert.Equal(t, scr.Handle(), p.Handle())
	}
	_, err = scr.Child(3)
	assert.ErrorIs(t, err, ErrNoChild)
	assert.Equal(t, allocs, eng.Stats().Allocations)

	// Destroying a borrowing wrapper leaves the object alone.
	kids[0].Destroy()
	assert.True(t, kids[0].Alive())

	p, err := scr.Parent()
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestSetParentMovesPositionNotOwnership(t *testing.T) {
	captureErrors(t)
	eng, rt, scr := setup(t, nil)
	a, err := rt.CreateChild(scr, native.KindObj, Options{OptX: 10, OptY: 10})
	require.NoError(t, err)
	b, err := rt.CreateChild(scr, native.KindButton, Options{OptX: 1, OptY: 2})
	require.NoError(t, err)

	require.NoError(t, b.SetParent(a))
	assert.True(t, b.Owned())
	area, err := b.Coords()
	require.NoError(t, err)
	assert.Equal(t, int16(11), area.X1)
	assert.Equal(t, int16(12), area.Y1)
	assert.Equal(t, a.Handle(), eng.Parent(b.Handle()))

	assert.ErrorIs(t, a.SetParent(b), ErrCycle)
	assert.ErrorIs(t, scr.SetParent(a), ErrNotScreen)

	// b is owned separately but still deleted with its new parent.
	a.Destroy()
	assert.False(t, b.Alive())
}

func TestUseAfterDeleteIsReported(t *testing.T) {
	h := captureErrors(t)
	_, rt, scr := setup(t, nil)
	lbl, err := rt.NewLabel(scr, LabelConfig{Text: "x"})
	require.NoError(t, err)
	lbl.Destroy()

	_, err = lbl.Text()
	assert.ErrorIs(t, err, ErrDeleted)
	assert.ErrorIs(t, lbl.On(native.EventClicked, func(*Event) {}), ErrDeleted)
	assert.ErrorIs(t, lbl.Delete(), ErrDeleted)
	assert.Len(t, h.errs, 3)
	for _, e := range h.errs {
		assert.Equal(t, errors.KindMisuse, e.Kind)
		assert.Equal(t, uintptr(lbl.Handle()), e.Handle)
	}
	assert.Contains(t, lbl.String(), "deleted")
}

func TestOutOfMemoryIsResourceError(t *testing.T) {
	eng, rt, scr := setup(t, []sim.Option{sim.WithMaxObjects(2)})
	_, err := rt.CreateChild(scr, native.KindButton, nil)
	require.NoError(t, err)

	obj, err := rt.CreateChild(scr, native.KindButton, nil)
	assert.Nil(t, obj)
	require.ErrorIs(t, err, native.ErrOutOfMemory)
	assert.Equal(t, errors.KindResource, errors.KindOf(err))
	assert.Equal(t, 2, eng.ObjectCount())
	assert.Equal(t, 2, rt.Registry().Len())
}

func TestOptionsValidation(t *testing.T) {
	tests := []struct {
		name string
		kind native.Kind
		opts Options
		want error
	}{
		{"unknown key", native.KindButton, Options{"colour": 1}, ErrUnknownOption},
		{"text on slider", native.KindSlider, Options{OptText: "x"}, ErrUnknownOption},
		{"range on label", native.KindLabel, Options{OptRange: []int{0, 1}}, ErrUnknownOption},
		{"string width", native.KindObj, Options{OptWidth: "10"}, ErrBadOption},
		{"negative width", native.KindObj, Options{OptWidth: -1}, ErrBadOption},
		{"x overflows", native.KindObj, Options{OptX: 40000}, ErrBadOption},
		{"fractional value", native.KindBar, Options{OptValue: 1.5}, ErrBadOption},
		{"infinite width", native.KindObj, Options{OptWidth: math.Inf(1)}, ErrBadOption},
		{"negative infinite x", native.KindObj, Options{OptX: math.Inf(-1)}, ErrBadOption},
		{"NaN value", native.KindBar, Options{OptValue: math.NaN()}, ErrBadOption},
		{"huge float y", native.KindObj, Options{OptY: 1e300}, ErrBadOption},
		{"inverted range", native.KindSlider, Options{OptRange: []int{5, 1}}, ErrBadOption},
		{"short range", native.KindSlider, Options{OptRange: []any{5}}, ErrBadOption},
		{"bad color", native.KindObj, Options{OptBgColor: "#12"}, ErrBadOption},
		{"checked not bool", native.KindSwitch, Options{OptChecked: "yes"}, ErrBadOption},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := captureErrors(t)
			eng, rt, scr := setup(t, nil)
			before := eng.Stats().Allocations

			obj, err := rt.CreateChild(scr, tt.kind, tt.opts)
			assert.Nil(t, obj)
			require.ErrorIs(t, err, tt.want)
			assert.Equal(t, errors.KindConfig, errors.KindOf(err))
			assert.Equal(t, before, eng.Stats().Allocations)
			assert.Equal(t, 1, eng.ObjectCount())
			require.Len(t, h.errs, 1)

			var oe *errors.OptionError
			require.ErrorAs(t, err, &oe)
			assert.Equal(t, tt.kind.String(), oe.Widget)
		})
	}
}

func TestToIntRejectsNonFiniteFloats(t *testing.T) {
	for _, x := range []float64{math.Inf(1), math.Inf(-1), math.NaN()} {
		_, err := toInt(x, math.MinInt64, math.MaxInt64)
		require.Error(t, err, "%v", x)
		assert.Contains(t, err.Error(), "want integer")
	}
	_, err := toInt(1e19, math.MinInt64, math.MaxInt64)
	assert.ErrorContains(t, err, "out of range")

	n, err := toInt(float64(-7), -10, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(-7), n)
}

func TestOptionsFromDecodedData(t *testing.T) {
	eng, rt, scr := setup(t, nil)
	// Shapes produced by YAML and TOML decoders.
	sl, err := rt.CreateChild(scr, native.KindSlider, Options{
		OptRange:   []any{int64(10), int64(20)},
		OptValue:   float64(25),
		OptBgColor: "#00FF00",
		OptX:       uint64(3),
	})
	require.NoError(t, err)

	lo, hi := eng.Range(sl.Handle())
	assert.Equal(t, [2]int32{10, 20}, [2]int32{lo, hi})
	assert.Equal(t, int32(20), eng.Value(sl.Handle()), "value is clamped to the range")
	v, ok := sl.StyleProp(native.Select(native.PartMain, native.StateDefault), native.StyleBgColor)
	require.True(t, ok)
	assert.Equal(t, int32(0x00FF00), v)
}

func TestAllowedOptions(t *testing.T) {
	assert.Equal(t, []string{OptBgColor}, Allowed(native.KindScreen))
	assert.Contains(t, Allowed(native.KindCheckbox), OptText)
	assert.Contains(t, Allowed(native.KindCheckbox), OptChecked)
	assert.NotContains(t, Allowed(native.KindButton), OptText)
	assert.Nil(t, Allowed(native.Kind(99)))
}

func TestTypedWidgets(t *testing.T) {
	_, rt, scr := setup(t, nil)
	blue := uint32(0x0000FF)

	btn, err := rt.NewButton(scr, ButtonConfig{Geometry: Geometry{X: 2, Y: 3, Width: 20, Height: 8}, Checkable: true, BgColor: &blue})
	require.NoError(t, err)
	assert.True(t, btn.HasFlag(native.FlagCheckable))
	clicks := 0
	require.NoError(t, btn.OnClick(func(*Event) { clicks++ }))
	require.NoError(t, btn.Send(native.EventClicked, native.Param{}))
	assert.Equal(t, 1, clicks)

	lbl, err := rt.NewLabel(scr, LabelConfig{Text: "hello"})
	require.NoError(t, err)
	require.NoError(t, lbl.SetText("world"))
	text, err := lbl.Text()
	require.NoError(t, err)
	assert.Equal(t, "world", text)

	bar, err := rt.NewBar(scr, RangeConfig{Min: -10, Max: 10, Value: 5})
	require.NoError(t, err)
	require.NoError(t, bar.SetValue(50))
	v, err := bar.Value()
	require.NoError(t, err)
	assert.Equal(t, int32(10), v)
	require.NoError(t, bar.SetRange(0, 4))
	lo, hi, err := bar.Range()
	require.NoError(t, err)
	assert.Equal(t, []int32{0, 4}, []int32{lo, hi})
	v, _ = bar.Value()
	assert.Equal(t, int32(4), v)

	captureErrors(t)
	assert.ErrorIs(t, bar.SetRange(3, 3), ErrBadOption)

	sw, err := rt.NewSwitch(scr, ToggleConfig{Checked: true})
	require.NoError(t, err)
	assert.True(t, sw.Checked())
	require.NoError(t, sw.SetChecked(false))
	assert.False(t, sw.Checked())

	cb, err := rt.NewCheckbox(scr, ToggleConfig{Text: "agree"})
	require.NoError(t, err)
	assert.False(t, cb.Checked())
	assert.Equal(t, "agree", rt.Engine().Text(cb.Handle()))
}

func TestApplyStyleIsIdempotent(t *testing.T) {
	eng, rt, scr := setup(t, nil)
	btn, err := rt.CreateChild(scr, native.KindButton, nil)
	require.NoError(t, err)

	style := NewStyle().BgColor(0xFF0000).Radius(4).BgColor(0x00FF00)
	assert.Equal(t, 2, style.Len())
	sel := native.Select(native.PartMain, native.StatePressed|native.StateChecked)

	require.NoError(t, btn.ApplyStyle(style, sel))
	first, _ := eng.StyleProp(btn.Handle(), sel, native.StyleBgColor)
	require.NoError(t, btn.ApplyStyle(style, sel))
	second, _ := eng.StyleProp(btn.Handle(), sel, native.StyleBgColor)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(0x00FF00), second)
	r, ok := btn.StyleProp(sel, native.StyleRadius)
	require.True(t, ok)
	assert.Equal(t, int32(4), r)

	require.NoError(t, btn.AddState(native.StateChecked))
	require.NoError(t, btn.AddState(native.StateChecked))
	assert.True(t, btn.HasState(native.StateChecked))
	require.NoError(t, btn.ClearState(native.StateChecked))
	assert.Equal(t, native.StateDefault, btn.State())
}
