// Package display forwards the engine's flushed pixel buffers to a sink.
//
// The engine hands the adapter a region and a pixel slice in its native
// color depth. The adapter converts every pixel into the sink's format using
// a table keyed by native depth and forwards the region synchronously, in
// the order the engine flushed it. The engine's slice is valid only for the
// duration of the call and is never retained.
package display

import (
	"fmt"
	"log/slog"

	"github.com/go-drift/lvbind/pkg/errors"
	"github.com/go-drift/lvbind/pkg/native"
)

// Sink receives converted regions. Pixels are valid only during the call.
type Sink interface {
	WriteRegion(x, y, w, h int, pixels []byte) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(x, y, w, h int, pixels []byte) error

// WriteRegion calls f.
func (f SinkFunc) WriteRegion(x, y, w, h int, pixels []byte) error {
	return f(x, y, w, h, pixels)
}

// Stats counts adapter activity.
type Stats struct {
	Flushes     int
	Pixels      int
	SinkErrors  int
	ConvErrors  int
	LastFailure error
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithLogger sets the logger used for per-flush debug records.
func WithLogger(l *slog.Logger) Option {
	return func(a *Adapter) { a.logger = l }
}

// WithOnFlush registers a callback invoked after every forwarded region.
func WithOnFlush(fn func(area native.Area)) Option {
	return func(a *Adapter) { a.onFlush = fn }
}

// Adapter converts and forwards flushes. It is not safe for concurrent use.
type Adapter struct {
	depth   native.ColorDepth
	target  Format
	sink    Sink
	scratch []byte
	logger  *slog.Logger
	onFlush func(native.Area)
	stats   Stats
}

// NewAdapter returns an adapter converting from depth to target.
func NewAdapter(depth native.ColorDepth, target Format, sink Sink, opts ...Option) (*Adapter, error) {
	if !Supported(depth) {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedDepth, depth)
	}
	if target.BytesPerPixel() == 0 {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, target)
	}
	if sink == nil {
		return nil, errors.New("display.NewAdapter", errors.KindMisuse, 0, fmt.Errorf("nil sink"))
	}
	a := &Adapter{depth: depth, target: target, sink: sink}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = errors.Logger()
	}
	return a, nil
}

// Depth returns the native color depth the adapter decodes.
func (a *Adapter) Depth() native.ColorDepth { return a.depth }

// Target returns the sink format.
func (a *Adapter) Target() Format { return a.target }

// Stats returns a copy of the counters.
func (a *Adapter) Stats() Stats { return a.stats }

// Flush is the engine's flush callback. Conversion or sink failures are
// reported and the region is skipped; the engine is never blocked.
func (a *Adapter) Flush(area native.Area, px []byte) {
	w, h := area.Width(), area.Height()
	if w <= 0 || h <= 0 {
		return
	}
	need := w * h * a.target.BytesPerPixel()
	if cap(a.scratch) < need {
		a.scratch = make([]byte, need)
	}
	dst := a.scratch[:need]
	if len(px) != w*h*a.depth.BytesPerPixel() {
		a.fail(errors.KindMisuse, area, ErrShortBuffer)
		a.stats.ConvErrors++
		return
	}
	if _, err := Convert(dst, px, a.depth, a.target); err != nil {
		a.fail(errors.KindMisuse, area, err)
		a.stats.ConvErrors++
		return
	}
	a.stats.Flushes++
	a.stats.Pixels += w * h
	if err := a.sink.WriteRegion(int(area.X1), int(area.Y1), w, h, dst); err != nil {
		a.stats.SinkErrors++
		a.fail(errors.KindSink, area, err)
		return
	}
	a.logger.Debug("flush", "x", area.X1, "y", area.Y1, "w", w, "h", h)
	if a.onFlush != nil {
		a.onFlush(area)
	}
}

func (a *Adapter) fail(kind errors.ErrorKind, area native.Area, err error) {
	a.stats.LastFailure = err
	errors.Report(errors.New("display.Flush", kind, 0,
		fmt.Errorf("region (%d,%d %dx%d): %w", area.X1, area.Y1, area.Width(), area.Height(), err)))
}

// Config returns a native display configuration whose flush callback is this
// adapter.
func (a *Adapter) Config(width, height, bufferLines int) native.DisplayConfig {
	return native.DisplayConfig{
		Width:       width,
		Height:      height,
		Depth:       a.depth,
		BufferLines: bufferLines,
		Flush:       a.Flush,
	}
}
