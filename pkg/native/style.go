package native

import "strings"

// State is a bit-set of composable object states.
type State uint16

const (
	StateDefault  State = 0
	StateChecked  State = 1 << 0
	StateFocused  State = 1 << 1
	StatePressed  State = 1 << 2
	StateDisabled State = 1 << 3
	StateEdited   State = 1 << 4
	StateHovered  State = 1 << 5
)

var stateNames = []struct {
	bit  State
	name string
}{
	{StateChecked, "checked"},
	{StateFocused, "focused"},
	{StatePressed, "pressed"},
	{StateDisabled, "disabled"},
	{StateEdited, "edited"},
	{StateHovered, "hovered"},
}

// Has reports whether every bit of other is set in s.
func (s State) Has(other State) bool {
	return s&other == other
}

func (s State) String() string {
	if s == StateDefault {
		return "default"
	}
	var parts []string
	for _, sn := range stateNames {
		if s&sn.bit != 0 {
			parts = append(parts, sn.name)
		}
	}
	return strings.Join(parts, "|")
}

// Part is a bit-set of structural parts of a widget.
type Part uint16

const (
	PartMain      Part = 0
	PartIndicator Part = 1 << 0
	PartKnob      Part = 1 << 1
	PartItems     Part = 1 << 2
)

// Selector combines a part with the states a style applies to.
type Selector uint32

// Select builds a selector from a part and a state.
func Select(part Part, state State) Selector {
	return Selector(uint32(part)<<16 | uint32(state))
}

// Part returns the part of the selector.
func (s Selector) Part() Part {
	return Part(s >> 16)
}

// State returns the state of the selector.
func (s Selector) State() State {
	return State(s & 0xFFFF)
}

// StyleProp identifies a local style property.
type StyleProp uint8

const (
	StyleBgColor StyleProp = iota + 1
	StyleBorderColor
	StyleBorderWidth
	StyleRadius
	StyleOpacity
)

// Flag is a behavioral object flag.
type Flag uint16

const (
	FlagHidden Flag = 1 << iota
	FlagClickable
	FlagCheckable
)

// ColorDepth is the native pixel depth of the engine's draw buffer.
type ColorDepth uint8

const (
	// Depth1 is one byte per pixel, zero is black and anything else white.
	Depth1 ColorDepth = 1
	// Depth8 is RGB332.
	Depth8 ColorDepth = 8
	// Depth16 is RGB565 stored little-endian.
	Depth16 ColorDepth = 16
	// Depth16Swap is RGB565 stored big-endian, as fed to SPI panels.
	Depth16Swap ColorDepth = 17
	// Depth32 is ARGB8888 stored little-endian (B, G, R, A in memory).
	Depth32 ColorDepth = 32
)

// BytesPerPixel returns the storage size of one pixel, or 0 for an unknown depth.
func (d ColorDepth) BytesPerPixel() int {
	switch d {
	case Depth1, Depth8:
		return 1
	case Depth16, Depth16Swap:
		return 2
	case Depth32:
		return 4
	default:
		return 0
	}
}
