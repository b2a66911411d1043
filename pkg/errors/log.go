package errors

import (
	"fmt"
	"log/slog"
	"os"
)

var logLevel = new(slog.LevelVar)

// SetLevel sets the minimum level of the package logger returned by Logger.
func SetLevel(level slog.Level) {
	logLevel.Set(level)
}

var defaultLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

// Logger returns the logger shared by lvbind packages.
func Logger() *slog.Logger {
	return defaultLogger
}

// LogHandler is an ErrorHandler that writes structured records through slog.
type LogHandler struct {
	// Verbose enables detailed output including stack traces.
	Verbose bool
	// Logger overrides the package logger when set.
	Logger *slog.Logger
}

func (h *LogHandler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return defaultLogger
}

// HandleError logs a BindingError. Sink failures are warnings, everything
// else is an error.
func (h *LogHandler) HandleError(err *BindingError) {
	if err == nil {
		return
	}
	attrs := []any{slog.String("op", err.Op), slog.String("kind", err.Kind.String())}
	if err.Handle != 0 {
		attrs = append(attrs, slog.String("handle", fmt.Sprintf("0x%08x", err.Handle)))
	}
	attrs = append(attrs, slog.Any("err", err.Err))
	if h.Verbose && err.StackTrace != "" {
		attrs = append(attrs, slog.String("stack", err.StackTrace))
	}
	if err.Kind == KindSink {
		h.logger().Warn("lvbind error", attrs...)
		return
	}
	h.logger().Error("lvbind error", attrs...)
}

// HandlePanic logs a PanicError.
func (h *LogHandler) HandlePanic(err *PanicError) {
	if err == nil {
		return
	}
	attrs := []any{slog.Any("value", err.Value)}
	if err.Op != "" {
		attrs = append(attrs, slog.String("op", err.Op))
	}
	if err.Handle != 0 {
		attrs = append(attrs, slog.String("handle", fmt.Sprintf("0x%08x", err.Handle)))
	}
	if h.Verbose && err.StackTrace != "" {
		attrs = append(attrs, slog.String("stack", err.StackTrace))
	}
	h.logger().Error("lvbind panic", attrs...)
}
