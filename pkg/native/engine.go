package native

// InputKind selects the class of an input device.
type InputKind uint8

const (
	InputPointer InputKind = iota + 1
	InputKeypad
)

// InputData is filled by a [ReadFunc] when the engine polls an input device.
type InputData struct {
	Point   Point
	Key     uint32
	Pressed bool
}

// ReadFunc is polled by the engine once per processing pass for each device.
type ReadFunc func(data *InputData)

// FlushFunc receives one rendered region. The pixel slice is owned by the
// engine and may be reused as soon as the call returns.
type FlushFunc func(area Area, pixels []byte)

// DisplayConfig describes the draw buffer the engine renders into.
type DisplayConfig struct {
	Width, Height int
	Depth         ColorDepth
	// BufferLines is the number of rows of the partial draw buffer. Regions
	// taller than this are flushed in several strips.
	BufferLines int
	Flush       FlushFunc
}

// Objects is the object-tree half of the engine contract.
type Objects interface {
	// Create allocates an object of the given kind under parent. A nil parent
	// creates a screen. It returns ErrOutOfMemory when allocation fails.
	Create(kind Kind, parent Handle) (Handle, error)
	// Delete frees h and its whole subtree, reporting every freed object to
	// the delete hook.
	Delete(h Handle)
	// Valid reports whether h currently refers to a live object.
	Valid(h Handle) bool
	KindOf(h Handle) Kind
	Parent(h Handle) Handle
	ChildCount(h Handle) int
	Child(h Handle, index int) Handle
	SetParent(h, parent Handle)
	ActiveScreen() Handle
	// LoadScreen makes h the active screen. With autoDelete the previously
	// active screen is freed by the engine during its next processing pass.
	LoadScreen(h Handle, autoDelete bool)
	SetDeleteHook(hook DeleteHook)
}

// Events is the callback half of the engine contract. The engine stores at
// most one trampoline per object.
type Events interface {
	SetEventCallback(h Handle, cb Trampoline)
	ClearEventCallback(h Handle)
	// SendEvent invokes the object's trampoline synchronously.
	SendEvent(h Handle, code EventCode, param *Param)
}

// Attributes covers geometry, state, style and widget values.
type Attributes interface {
	SetPos(h Handle, x, y int16)
	SetSize(h Handle, w, hgt int16)
	Coords(h Handle) Area
	AddState(h Handle, s State)
	ClearState(h Handle, s State)
	State(h Handle) State
	SetFlag(h Handle, f Flag, on bool)
	HasFlag(h Handle, f Flag) bool
	SetStyleProp(h Handle, sel Selector, prop StyleProp, value int32)
	StyleProp(h Handle, sel Selector, prop StyleProp) (int32, bool)
	SetText(h Handle, text string)
	Text(h Handle) string
	SetRange(h Handle, lo, hi int32)
	Range(h Handle) (lo, hi int32)
	SetValue(h Handle, v int32)
	Value(h Handle) int32
}

// Timing covers the engine's clock and refresh passes.
type Timing interface {
	// TickInc advances the engine's millisecond clock.
	TickInc(ms uint32)
	// Process polls input devices, runs timers and recomputes layout. Event
	// callbacks fire from inside Process.
	Process()
	// Render draws every dirty region and calls the display flush callback
	// zero or more times.
	Render()
}

// Drivers registers the display and input devices.
type Drivers interface {
	RegisterDisplay(cfg DisplayConfig) error
	RegisterInput(kind InputKind, read ReadFunc)
}

// Engine is the complete surface lvbind needs from the foreign engine.
type Engine interface {
	Objects
	Events
	Attributes
	Timing
	Drivers
}
