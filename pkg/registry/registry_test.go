package registry

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-drift/lvbind/pkg/errors"
	"github.com/go-drift/lvbind/pkg/native"
)

type captureHandler struct {
	errs []*errors.BindingError
}

func (h *captureHandler) HandleError(err *errors.BindingError) { h.errs = append(h.errs, err) }
func (h *captureHandler) HandlePanic(*errors.PanicError)       {}

func captureErrors(t *testing.T) *captureHandler {
	t.Helper()
	h := &captureHandler{}
	old := errors.DefaultHandler
	errors.SetHandler(h)
	t.Cleanup(func() { errors.SetHandler(old) })
	return h
}

func TestRegisterAndLookup(t *testing.T) {
	r := New[func()]()
	rec, err := r.Register(0x1000, native.KindButton)
	require.NoError(t, err)

	got, ok := r.Lookup(0x1000)
	require.True(t, ok)
	assert.Same(t, rec, got)
	assert.Equal(t, native.KindButton, got.Tag())
	assert.Equal(t, native.Handle(0x1000), got.Handle())
	assert.Equal(t, 1, r.Len())

	_, ok = r.Lookup(0x2000)
	assert.False(t, ok)
}

func TestDoubleRegisterIsReportedMisuse(t *testing.T) {
	h := captureErrors(t)
	r := New[func()]()
	_, err := r.Register(0x1000, native.KindObj)
	require.NoError(t, err)

	_, err = r.Register(0x1000, native.KindObj)
	require.ErrorIs(t, err, ErrAlreadyRegistered)
	assert.Equal(t, errors.KindMisuse, errors.KindOf(err))
	require.Len(t, h.errs, 1)
	assert.Equal(t, uintptr(0x1000), h.errs[0].Handle)
}

func TestRegisterNilHandle(t *testing.T) {
	captureErrors(t)
	_, err := New[func()]().Register(0, native.KindObj)
	require.Error(t, err)
	assert.Equal(t, errors.KindMisuse, errors.KindOf(err))
}

func TestMarkDeletedHidesRecordAndIsIdempotent(t *testing.T) {
	r := New[func()]()
	rec, err := r.Register(0x1000, native.KindObj)
	require.NoError(t, err)
	rec.SetSlot(native.EventClicked, func() {})

	assert.True(t, r.MarkDeleted(0x1000))
	assert.False(t, r.MarkDeleted(0x1000))
	assert.Equal(t, 1, r.Invalidations())

	_, ok := r.Lookup(0x1000)
	assert.False(t, ok)
	assert.True(t, rec.Deleted())
	_, ok = rec.Slot(native.EventClicked)
	assert.False(t, ok, "slots must be cleared on deletion")
}

func TestReusedAddressGetsFreshRecord(t *testing.T) {
	r := New[func()]()
	first, err := r.Register(0x1000, native.KindLabel)
	require.NoError(t, err)
	r.MarkDeleted(0x1000)

	second, err := r.Register(0x1000, native.KindSlider)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID(), second.ID())
	assert.True(t, first.Deleted())
	assert.False(t, second.Deleted())
}

func TestEnsureReturnsExistingRecord(t *testing.T) {
	r := New[func()]()
	rec, err := r.Register(0x1000, native.KindObj)
	require.NoError(t, err)
	assert.Same(t, rec, r.Ensure(0x1000, native.KindObj))
	assert.Equal(t, 1, r.Len())

	other := r.Ensure(0x2000, native.KindLabel)
	assert.Equal(t, native.KindLabel, other.Tag())
	assert.Equal(t, 2, r.Len())
}

func TestUnregisterDoesNotCountInvalidation(t *testing.T) {
	r := New[func()]()
	rec, _ := r.Register(0x1000, native.KindObj)
	r.Unregister(0x1000)
	assert.True(t, rec.Deleted())
	assert.Zero(t, r.Invalidations())
	assert.Zero(t, r.Len())
}

func TestSlots(t *testing.T) {
	r := New[func() int]()
	rec, _ := r.Register(0x1000, native.KindObj)

	rec.SetSlot(native.EventClicked, func() int { return 1 })
	rec.SetSlot(native.EventClicked, func() int { return 2 })
	rec.SetSlot(native.EventValueChanged, func() int { return 3 })
	assert.Equal(t, 2, rec.SlotCount())

	fn, ok := rec.Slot(native.EventClicked)
	require.True(t, ok)
	assert.Equal(t, 2, fn(), "second SetSlot replaces the first")

	rec.ClearSlot(native.EventClicked)
	_, ok = rec.Slot(native.EventClicked)
	assert.False(t, ok)
	assert.Equal(t, 1, rec.SlotCount())
}

func TestResetInvalidatesEverything(t *testing.T) {
	r := New[func()]()
	a, _ := r.Register(0x1000, native.KindObj)
	b, _ := r.Register(0x2000, native.KindObj)
	r.Reset()
	assert.Zero(t, r.Len())
	assert.True(t, a.Deleted())
	assert.True(t, b.Deleted())
}

// Random register/delete sequences must never let Lookup observe a handle
// that was deleted and not registered again.
func TestNoDanglingLookups(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	r := New[func()]()
	deleted := map[native.Handle]bool{}
	live := map[native.Handle]bool{}

	for i := 0; i < 5000; i++ {
		h := native.Handle(0x1000 + rng.Intn(64)*0x40)
		if live[h] {
			r.MarkDeleted(h)
			delete(live, h)
			deleted[h] = true
		} else {
			_, err := r.Register(h, native.KindObj)
			require.NoError(t, err)
			live[h] = true
			delete(deleted, h)
		}
		for d := range deleted {
			_, ok := r.Lookup(d)
			require.False(t, ok, "lookup returned deleted handle %s", d)
		}
	}
	assert.Equal(t, len(live), r.Len())
}
