package errors

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestBindingErrorString(t *testing.T) {
	err := &BindingError{
		Op:   "lv.Obj.On",
		Kind: KindMisuse,
		Err:  stderrors.New("object deleted"),
	}
	want := "lv.Obj.On [misuse]: object deleted"
	if got := err.Error(); got != want {
		t.Errorf("BindingError.Error() = %q, want %q", got, want)
	}
}

func TestBindingErrorWithHandle(t *testing.T) {
	err := &BindingError{
		Op:     "registry.Register",
		Kind:   KindMisuse,
		Handle: 0x20000040,
		Err:    stderrors.New("already registered"),
	}
	want := "handle=0x20000040"
	if got := err.Error(); !strings.Contains(got, want) {
		t.Errorf("error string %q should contain %q", got, want)
	}
}

func TestErrorKindString(t *testing.T) {
	tests := []struct {
		kind ErrorKind
		want string
	}{
		{KindUnknown, "unknown"},
		{KindMisuse, "misuse"},
		{KindResource, "resource"},
		{KindSink, "sink"},
		{KindConfig, "config"},
		{KindPanic, "panic"},
		{KindParsing, "parsing"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("ErrorKind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestKindOfUnwrapsChain(t *testing.T) {
	sentinel := stderrors.New("out of memory")
	err := fmt.Errorf("create button: %w", New("lv.Runtime.CreateChild", KindResource, 0, sentinel))
	if got := KindOf(err); got != KindResource {
		t.Errorf("KindOf() = %v, want %v", got, KindResource)
	}
	if !stderrors.Is(err, sentinel) {
		t.Error("expected sentinel to be reachable through the chain")
	}
	if got := KindOf(sentinel); got != KindUnknown {
		t.Errorf("KindOf(plain) = %v, want %v", got, KindUnknown)
	}
}

func TestNewCapturesStackForMisuse(t *testing.T) {
	if New("op", KindMisuse, 0, stderrors.New("x")).StackTrace == "" {
		t.Error("misuse errors should carry a stack trace")
	}
	if New("op", KindSink, 0, stderrors.New("x")).StackTrace != "" {
		t.Error("sink errors should not capture a stack trace")
	}
}

func TestPanicErrorString(t *testing.T) {
	err := &PanicError{
		Value:     "test panic",
		Timestamp: time.Now(),
	}
	want := "panic: test panic"
	if got := err.Error(); got != want {
		t.Errorf("PanicError.Error() = %q, want %q", got, want)
	}
}

func TestPanicErrorStringWithOp(t *testing.T) {
	err := &PanicError{
		Op:    "lv.trampoline",
		Value: "test panic",
	}
	want := "panic in lv.trampoline: test panic"
	if got := err.Error(); got != want {
		t.Errorf("PanicError.Error() = %q, want %q", got, want)
	}
}

func TestOptionErrorString(t *testing.T) {
	err := &OptionError{Widget: "slider", Option: "colour", Err: stderrors.New("unknown option")}
	want := `slider option "colour": unknown option`
	if got := err.Error(); got != want {
		t.Errorf("OptionError.Error() = %q, want %q", got, want)
	}
}

func TestParseErrorString(t *testing.T) {
	err := &ParseError{Source: "remote/input", DataType: "Sample", Got: 123}
	want := "failed to parse Sample from remote/input: got int"
	if got := err.Error(); got != want {
		t.Errorf("ParseError.Error() = %q, want %q", got, want)
	}
}

func TestReport(t *testing.T) {
	var captured *BindingError
	handler := &testHandler{
		onError: func(err *BindingError) {
			captured = err
		},
	}

	oldHandler := DefaultHandler
	SetHandler(handler)
	defer SetHandler(oldHandler)

	returned := Report(&BindingError{
		Op:   "test.op",
		Kind: KindMisuse,
		Err:  stderrors.New("boom"),
	})

	if captured == nil {
		t.Fatal("expected error to be captured")
	}
	if captured != returned {
		t.Error("Report should return the reported error")
	}
	if captured.Op != "test.op" {
		t.Errorf("Op = %q, want %q", captured.Op, "test.op")
	}
	if captured.Timestamp.IsZero() {
		t.Error("expected Timestamp to be set")
	}
}

func TestReportNil(t *testing.T) {
	if Report(nil) != nil {
		t.Error("Report(nil) should return nil")
	}
}

func TestRecover(t *testing.T) {
	var captured *PanicError
	handler := &testHandler{
		onPanic: func(err *PanicError) {
			captured = err
		},
	}

	oldHandler := DefaultHandler
	SetHandler(handler)
	defer SetHandler(oldHandler)

	var seen *PanicError
	func() {
		defer Recover("test.recover", 0x20, func(pe *PanicError) { seen = pe })
		panic("intentional test panic")
	}()

	if captured == nil {
		t.Fatal("expected panic to be recovered and captured")
	}
	if seen != captured {
		t.Error("onPanic should receive the reported PanicError")
	}
	if captured.Value != "intentional test panic" {
		t.Errorf("Value = %v, want %q", captured.Value, "intentional test panic")
	}
	if captured.Op != "test.recover" || captured.Handle != 0x20 {
		t.Errorf("Op, Handle = %q, %#x", captured.Op, captured.Handle)
	}
	if !strings.Contains(captured.StackTrace, "TestRecover") {
		t.Errorf("stack should start at the panicking function, got: %s", captured.StackTrace)
	}
}

func TestRecoverWithoutPanic(t *testing.T) {
	called := false
	func() {
		defer Recover("test.quiet", 0, func(*PanicError) { called = true })
	}()
	if called {
		t.Error("onPanic must not run when nothing panicked")
	}
}

func TestCaptureStackSkipsRuntime(t *testing.T) {
	stack := CaptureStack()
	if !strings.Contains(stack, "TestCaptureStackSkipsRuntime") {
		t.Errorf("stack should include the caller, got: %s", stack)
	}
	for _, line := range strings.Split(stack, "\n") {
		if strings.HasPrefix(line, "runtime.") {
			t.Errorf("runtime frame %q should be filtered", line)
		}
	}
}

func TestSetHandlerNil(t *testing.T) {
	oldHandler := DefaultHandler
	defer SetHandler(oldHandler)

	SetHandler(nil)
	if _, ok := DefaultHandler.(*LogHandler); !ok {
		t.Errorf("SetHandler(nil) should set LogHandler, got %T", DefaultHandler)
	}
}

func TestLogHandlerWritesStructuredRecord(t *testing.T) {
	var buf bytes.Buffer
	h := &LogHandler{Logger: slog.New(slog.NewTextHandler(&buf, nil))}

	h.HandleError(&BindingError{Op: "display.Adapter.Flush", Kind: KindSink, Handle: 0x10, Err: stderrors.New("panel busy")})
	out := buf.String()
	for _, want := range []string{"level=WARN", "op=display.Adapter.Flush", "kind=sink", "handle=0x00000010", `err="panel busy"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log output %q should contain %q", out, want)
		}
	}

	buf.Reset()
	h.HandlePanic(&PanicError{Op: "lv.trampoline", Value: "bad"})
	if !strings.Contains(buf.String(), "level=ERROR") || !strings.Contains(buf.String(), "op=lv.trampoline") {
		t.Errorf("unexpected panic record: %q", buf.String())
	}
}

type testHandler struct {
	onError func(*BindingError)
	onPanic func(*PanicError)
}

func (h *testHandler) HandleError(err *BindingError) {
	if h.onError != nil {
		h.onError(err)
	}
}

func (h *testHandler) HandlePanic(err *PanicError) {
	if h.onPanic != nil {
		h.onPanic(err)
	}
}
