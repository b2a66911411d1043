// Package errors provides structured error handling for lvbind.
//
// Errors fall into a small taxonomy (see [ErrorKind]). Programmer misuse is
// always reported through the global [ErrorHandler] and returned to the
// caller; resource exhaustion is returned to the immediate caller; sink
// failures are reported and then skipped by the display adapter.
package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorKind identifies the category of an error.
type ErrorKind int

const (
	// KindUnknown indicates an error of unknown type.
	KindUnknown ErrorKind = iota
	// KindMisuse indicates a binding contract violation by the caller, such
	// as double registration or use of a deleted object.
	KindMisuse
	// KindResource indicates a native allocation failure.
	KindResource
	// KindSink indicates that a display sink declined a region.
	KindSink
	// KindConfig indicates an invalid construction or configuration option.
	KindConfig
	// KindPanic indicates a recovered panic.
	KindPanic
	// KindParsing indicates malformed input from an external source.
	KindParsing
)

func (k ErrorKind) String() string {
	switch k {
	case KindMisuse:
		return "misuse"
	case KindResource:
		return "resource"
	case KindSink:
		return "sink"
	case KindConfig:
		return "config"
	case KindPanic:
		return "panic"
	case KindParsing:
		return "parsing"
	default:
		return "unknown"
	}
}

// BindingError represents a structured error raised by the binding layer.
type BindingError struct {
	// Op is the operation that failed (e.g., "lv.Obj.Destroy").
	Op string
	// Kind categorizes the error.
	Kind ErrorKind
	// Handle is the native object address involved, if any.
	Handle uintptr
	// Err is the underlying error.
	Err error
	// StackTrace contains the call stack at the time of the error.
	StackTrace string
	// Timestamp is when the error occurred.
	Timestamp time.Time
}

func (e *BindingError) Error() string {
	if e.Handle != 0 {
		return fmt.Sprintf("%s [%s] handle=0x%08x: %v", e.Op, e.Kind, e.Handle, e.Err)
	}
	return fmt.Sprintf("%s [%s]: %v", e.Op, e.Kind, e.Err)
}

func (e *BindingError) Unwrap() error {
	return e.Err
}

// New builds a BindingError. Misuse errors capture the caller's stack.
func New(op string, kind ErrorKind, handle uintptr, err error) *BindingError {
	be := &BindingError{Op: op, Kind: kind, Handle: handle, Err: err}
	if kind == KindMisuse {
		be.StackTrace = stackFrom(3)
	}
	return be
}

// KindOf returns the kind of the first BindingError in err's chain.
func KindOf(err error) ErrorKind {
	var be *BindingError
	if stderrors.As(err, &be) {
		return be.Kind
	}
	return KindUnknown
}

// PanicError represents a recovered panic.
type PanicError struct {
	// Op is the operation that panicked (e.g., "lv.trampoline").
	Op string
	// Handle is the object whose callback panicked, if any.
	Handle uintptr
	// Value is the value passed to panic().
	Value any
	// StackTrace contains the call stack at the time of the panic.
	StackTrace string
	// Timestamp is when the panic occurred.
	Timestamp time.Time
}

func (e *PanicError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("panic in %s: %v", e.Op, e.Value)
	}
	return fmt.Sprintf("panic: %v", e.Value)
}

// ParseError represents a failure to decode data from an external source.
type ParseError struct {
	// Source names where the data came from (e.g., "remote/input").
	Source string
	// DataType is the expected type name.
	DataType string
	// Got is the actual data received.
	Got any
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s from %s: got %T", e.DataType, e.Source, e.Got)
}

// OptionError represents a rejected widget construction option.
type OptionError struct {
	// Widget is the kind name of the widget being built.
	Widget string
	// Option is the offending option key.
	Option string
	// Err is the underlying error.
	Err error
}

func (e *OptionError) Error() string {
	return fmt.Sprintf("%s option %q: %v", e.Widget, e.Option, e.Err)
}

func (e *OptionError) Unwrap() error {
	return e.Err
}

// ErrorHandler receives errors reported by lvbind.
type ErrorHandler interface {
	// HandleError is called when an error occurs.
	HandleError(err *BindingError)
	// HandlePanic is called when a panic is recovered.
	HandlePanic(err *PanicError)
}
