// Package input holds the latest pointer and key state for the engine to
// poll.
//
// There is no event queue. Each setter overwrites a single snapshot and the
// engine reads whatever is current when it processes input, so two writes
// between engine passes collapse into the last one. Press and release
// transitions are detected by the engine, not here.
package input

import "github.com/go-drift/lvbind/pkg/native"

// PointerState is the pointer snapshot.
type PointerState struct {
	Point   native.Point
	Pressed bool
}

// KeyState is the keypad snapshot.
type KeyState struct {
	Code    uint32
	Pressed bool
}

// Injector stores input snapshots. It is not safe for concurrent use; feed it
// from the goroutine that steps the engine.
type Injector struct {
	pointer PointerState
	key     KeyState

	pointerWrites int
	keyWrites     int
	reads         int
}

// New returns an injector with the pointer released at the origin.
func New() *Injector {
	return &Injector{}
}

// SetPointer overwrites the pointer snapshot.
func (i *Injector) SetPointer(p native.Point, pressed bool) {
	i.pointer = PointerState{Point: p, Pressed: pressed}
	i.pointerWrites++
}

// SetKey overwrites the keypad snapshot.
func (i *Injector) SetKey(code uint32, pressed bool) {
	i.key = KeyState{Code: code, Pressed: pressed}
	i.keyWrites++
}

// Pointer returns the current pointer snapshot.
func (i *Injector) Pointer() PointerState { return i.pointer }

// Key returns the current keypad snapshot.
func (i *Injector) Key() KeyState { return i.key }

// ReadPointer is the engine's pointer read callback.
func (i *Injector) ReadPointer(data *native.InputData) {
	i.reads++
	data.Point = i.pointer.Point
	data.Pressed = i.pointer.Pressed
}

// ReadKeypad is the engine's keypad read callback.
func (i *Injector) ReadKeypad(data *native.InputData) {
	i.reads++
	data.Key = i.key.Code
	data.Pressed = i.key.Pressed
}

// Attach registers both devices with the engine.
func (i *Injector) Attach(d native.Drivers) {
	d.RegisterInput(native.InputPointer, i.ReadPointer)
	d.RegisterInput(native.InputKeypad, i.ReadKeypad)
}

// Counters reports how often the snapshots were written and read.
func (i *Injector) Counters() (pointerWrites, keyWrites, reads int) {
	return i.pointerWrites, i.keyWrites, i.reads
}
