package testing

import (
	"fmt"
	"time"

	"github.com/go-drift/lvbind/pkg/lv"
	"github.com/go-drift/lvbind/pkg/native"
)

// center returns the middle pixel of obj's area.
func center(obj *lv.Obj) (native.Point, error) {
	area, err := obj.Coords()
	if err != nil {
		return native.Point{}, err
	}
	return native.Point{X: (area.X1 + area.X2) / 2, Y: (area.Y1 + area.Y2) / 2}, nil
}

// Tap presses and releases at the center of obj, one tick each.
func (t *Tester) Tap(obj *lv.Obj) error {
	pt, err := center(obj)
	if err != nil {
		return fmt.Errorf("Tap: %w", err)
	}
	return t.TapAt(pt)
}

// TapAt presses and releases at pt, one tick each.
func (t *Tester) TapAt(pt native.Point) error {
	if err := t.PressAt(pt); err != nil {
		return err
	}
	return t.ReleaseAt(pt)
}

// PressAt puts the pointer down at pt and runs a tick.
func (t *Tester) PressAt(pt native.Point) error {
	t.input.SetPointer(pt, true)
	return t.Pump()
}

// ReleaseAt lifts the pointer at pt and runs a tick.
func (t *Tester) ReleaseAt(pt native.Point) error {
	t.input.SetPointer(pt, false)
	return t.Pump()
}

// Drag presses at from, moves to to in steps ticks and releases there.
func (t *Tester) Drag(from, to native.Point, steps int) error {
	if steps < 1 {
		steps = 1
	}
	if err := t.PressAt(from); err != nil {
		return err
	}
	for i := 1; i <= steps; i++ {
		pt := native.Point{
			X: from.X + int16(int(to.X-from.X)*i/steps),
			Y: from.Y + int16(int(to.Y-from.Y)*i/steps),
		}
		t.input.SetPointer(pt, true)
		if err := t.Pump(); err != nil {
			return err
		}
	}
	return t.ReleaseAt(to)
}

// LongPress holds the pointer on obj for d before releasing.
func (t *Tester) LongPress(obj *lv.Obj, d time.Duration) error {
	pt, err := center(obj)
	if err != nil {
		return fmt.Errorf("LongPress: %w", err)
	}
	if err := t.PressAt(pt); err != nil {
		return err
	}
	if err := t.PumpFor(d); err != nil {
		return err
	}
	return t.ReleaseAt(pt)
}

// PressKey presses and releases a key, one tick each. Keys go to the focused
// object.
func (t *Tester) PressKey(code uint32) error {
	t.input.SetKey(code, true)
	if err := t.Pump(); err != nil {
		return err
	}
	t.input.SetKey(code, false)
	return t.Pump()
}
