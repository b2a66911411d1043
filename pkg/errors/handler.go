package errors

import (
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"
)

var (
	// DefaultHandler receives every reported error. It is a non-verbose
	// LogHandler until SetHandler replaces it.
	DefaultHandler ErrorHandler = &LogHandler{}

	handlerMu sync.RWMutex
)

// SetHandler installs h as the process-wide handler; nil restores the
// default LogHandler.
func SetHandler(h ErrorHandler) {
	if h == nil {
		h = &LogHandler{}
	}
	handlerMu.Lock()
	DefaultHandler = h
	handlerMu.Unlock()
}

func handler() ErrorHandler {
	handlerMu.RLock()
	defer handlerMu.RUnlock()
	return DefaultHandler
}

// Report stamps err and hands it to the installed handler. It returns err so
// call sites can report and return in one statement.
func Report(err *BindingError) *BindingError {
	if err == nil {
		return nil
	}
	if err.Timestamp.IsZero() {
		err.Timestamp = time.Now()
	}
	handler().HandleError(err)
	return err
}

// ReportPanic hands a recovered panic to the installed handler.
func ReportPanic(err *PanicError) {
	if err == nil {
		return
	}
	if err.Timestamp.IsZero() {
		err.Timestamp = time.Now()
	}
	handler().HandlePanic(err)
}

// Recover must be deferred directly. It stops a panic raised by user code
// running under op, reports it, and passes it to onPanic when set. Panics
// never cross back into the engine.
//
//	defer errors.Recover("lv.dispatch", uintptr(h), nil)
func Recover(op string, handle uintptr, onPanic func(*PanicError)) {
	r := recover()
	if r == nil {
		return
	}
	pe := &PanicError{
		Op:         op,
		Handle:     handle,
		Value:      r,
		StackTrace: stackFrom(4),
		Timestamp:  time.Now(),
	}
	ReportPanic(pe)
	if onPanic != nil {
		onPanic(pe)
	}
}

// CaptureStack returns the caller's stack, one "function\n\tfile:line" entry
// per frame, with runtime frames left out.
func CaptureStack() string {
	return stackFrom(3)
}

func stackFrom(skip int) string {
	var pcs [32]uintptr
	n := runtime.Callers(skip, pcs[:])
	if n == 0 {
		return ""
	}
	frames := runtime.CallersFrames(pcs[:n])
	var sb strings.Builder
	for {
		f, more := frames.Next()
		if !strings.HasPrefix(f.Function, "runtime.") {
			fmt.Fprintf(&sb, "%s\n\t%s:%d\n", f.Function, f.File, f.Line)
		}
		if !more {
			break
		}
	}
	return sb.String()
}
