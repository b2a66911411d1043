// Package native describes the contract between lvbind and the foreign GUI
// engine it wraps.
//
// The engine owns every object it allocates. lvbind only ever holds a
// [Handle], which is the raw address of a native object and carries no
// ownership by itself. All engine entry points are synchronous and must be
// called from the single thread that drives the engine's tick loop.
package native

import (
	"errors"
	"fmt"
)

// ErrOutOfMemory is returned by [Engine.Create] when the native allocator
// cannot satisfy an object allocation.
var ErrOutOfMemory = errors.New("native: out of memory")

// Handle is the address of a native object. The zero Handle is nil.
// Two handles are equal when they refer to the same address.
type Handle uintptr

// IsNil reports whether h is the nil handle.
func (h Handle) IsNil() bool {
	return h == 0
}

func (h Handle) String() string {
	return fmt.Sprintf("0x%08x", uintptr(h))
}

// Kind is the type tag of a native object.
type Kind uint16

const (
	KindObj Kind = iota
	KindScreen
	KindButton
	KindLabel
	KindSlider
	KindBar
	KindSwitch
	KindCheckbox
)

func (k Kind) String() string {
	switch k {
	case KindObj:
		return "obj"
	case KindScreen:
		return "screen"
	case KindButton:
		return "button"
	case KindLabel:
		return "label"
	case KindSlider:
		return "slider"
	case KindBar:
		return "bar"
	case KindSwitch:
		return "switch"
	case KindCheckbox:
		return "checkbox"
	default:
		return fmt.Sprintf("kind(%d)", uint16(k))
	}
}

// ParseKind maps a kind name as produced by [Kind.String] back to a Kind.
func ParseKind(name string) (Kind, bool) {
	for k := KindObj; k <= KindCheckbox; k++ {
		if k.String() == name {
			return k, true
		}
	}
	return 0, false
}

// Point is a position in display coordinates.
type Point struct {
	X, Y int16
}

// Area is an inclusive rectangle, matching the engine's coordinate model.
type Area struct {
	X1, Y1, X2, Y2 int16
}

// Width returns the number of columns covered by a.
func (a Area) Width() int {
	return int(a.X2) - int(a.X1) + 1
}

// Height returns the number of rows covered by a.
func (a Area) Height() int {
	return int(a.Y2) - int(a.Y1) + 1
}

// Empty reports whether a covers no pixels.
func (a Area) Empty() bool {
	return a.X2 < a.X1 || a.Y2 < a.Y1
}

// Contains reports whether p lies inside a.
func (a Area) Contains(p Point) bool {
	return p.X >= a.X1 && p.X <= a.X2 && p.Y >= a.Y1 && p.Y <= a.Y2
}

// Intersect returns the overlap of a and b. The result may be empty.
func (a Area) Intersect(b Area) Area {
	return Area{
		X1: max(a.X1, b.X1),
		Y1: max(a.Y1, b.Y1),
		X2: min(a.X2, b.X2),
		Y2: min(a.Y2, b.Y2),
	}
}

// EventCode identifies the kind of a native event.
type EventCode uint8

const (
	EventNone EventCode = iota
	EventPressed
	EventPressing
	EventReleased
	EventClicked
	EventLongPressed
	EventValueChanged
	EventFocused
	EventDefocused
	EventKey
	EventDelete
	eventCount
)

// EventCount is the number of defined event codes.
const EventCount = int(eventCount)

var eventNames = [...]string{
	EventNone:         "none",
	EventPressed:      "pressed",
	EventPressing:     "pressing",
	EventReleased:     "released",
	EventClicked:      "clicked",
	EventLongPressed:  "long_pressed",
	EventValueChanged: "value_changed",
	EventFocused:      "focused",
	EventDefocused:    "defocused",
	EventKey:          "key",
	EventDelete:       "delete",
}

func (c EventCode) String() string {
	if int(c) < len(eventNames) {
		return eventNames[c]
	}
	return fmt.Sprintf("event(%d)", uint8(c))
}

// ParseEventCode maps an event name back to its code.
func ParseEventCode(name string) (EventCode, bool) {
	for i, n := range eventNames {
		if n == name {
			return EventCode(i), true
		}
	}
	return EventNone, false
}

// Param is the raw payload the engine passes to an event callback.
// It is owned by the engine and is only valid for the duration of the call.
type Param struct {
	Point Point
	Key   uint32
	Value int32
}

// Trampoline is the single native callback installed per object.
type Trampoline func(h Handle, code EventCode, param *Param)

// DeleteHook is invoked by the engine for every object it frees, before the
// object's memory is released.
type DeleteHook func(h Handle)
