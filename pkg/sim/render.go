package sim

import "github.com/go-drift/lvbind/pkg/native"

// Default colors, 0xRRGGBB.
const (
	colorScreen    = 0xFFFFFF
	colorPanel     = 0xFFFFFF
	colorButton    = 0x2196F3
	colorTrack     = 0xCCCCCC
	colorIndicator = 0x2196F3
)

// RegisterDisplay implements native.Drivers.
func (e *Engine) RegisterDisplay(cfg native.DisplayConfig) error {
	bpp := cfg.Depth.BytesPerPixel()
	if cfg.Width <= 0 || cfg.Height <= 0 || bpp == 0 || cfg.Flush == nil {
		return ErrBadDisplay
	}
	if cfg.BufferLines <= 0 || cfg.BufferLines > cfg.Height {
		cfg.BufferLines = max(cfg.Height/10, 1)
	}
	e.display = &cfg
	e.drawBuf = make([]byte, cfg.Width*cfg.BufferLines*bpp)
	for _, s := range e.screens {
		o := e.objects[s]
		o.w, o.h = int16(cfg.Width), int16(cfg.Height)
	}
	e.invalidateAll()
	return nil
}

// Render implements native.Timing. Each dirty area is drawn in strips of at
// most BufferLines rows, one flush call per strip, in invalidation order.
func (e *Engine) Render() {
	if e.display == nil || len(e.dirty) == 0 {
		return
	}
	dirty := e.dirty
	e.dirty = nil
	bpp := e.display.Depth.BytesPerPixel()
	lines := int16(e.display.BufferLines)
	for _, area := range dirty {
		for y := area.Y1; y <= area.Y2; y += lines {
			strip := native.Area{X1: area.X1, Y1: y, X2: area.X2, Y2: min(y+lines-1, area.Y2)}
			n := strip.Width() * strip.Height() * bpp
			buf := e.drawBuf[:n]
			e.drawStrip(strip, buf)
			e.stats.Flushes++
			e.display.Flush(strip, buf)
			for i := range buf {
				buf[i] = poisonByte
			}
		}
	}
	if e.dirty == nil {
		e.dirty = dirty[:0]
	}
}

func (e *Engine) drawStrip(strip native.Area, buf []byte) {
	bg := int32(colorScreen)
	if scr, ok := e.objects[e.active]; ok {
		if v, ok := e.resolveStyle(scr, native.PartMain, native.StyleBgColor); ok {
			bg = v
		}
	}
	e.fill(strip, strip, buf, bg)
	if o, ok := e.objects[e.active]; ok {
		for _, c := range o.children {
			e.drawObject(c, strip, buf)
		}
	}
}

func (e *Engine) drawObject(h native.Handle, strip native.Area, buf []byte) {
	o, ok := e.objects[h]
	if !ok || o.flags&native.FlagHidden != 0 {
		return
	}
	area := e.Coords(h)
	if bg, ok := e.background(o); ok {
		e.fill(strip, area, buf, bg)
	}
	if ind, ok := e.indicator(o, area); ok {
		color, found := e.resolveStyle(o, native.PartIndicator, native.StyleBgColor)
		if !found {
			color = colorIndicator
		}
		e.fill(strip, ind, buf, color)
	}
	for _, c := range o.children {
		e.drawObject(c, strip, buf)
	}
}

func (e *Engine) background(o *object) (int32, bool) {
	if v, ok := e.resolveStyle(o, native.PartMain, native.StyleBgColor); ok {
		return v, true
	}
	switch o.kind {
	case native.KindLabel:
		return 0, false
	case native.KindButton:
		return colorButton, true
	case native.KindSlider, native.KindBar, native.KindSwitch:
		return colorTrack, true
	default:
		return colorPanel, true
	}
}

// indicator returns the filled part of value-carrying widgets.
func (e *Engine) indicator(o *object, area native.Area) (native.Area, bool) {
	switch o.kind {
	case native.KindSlider, native.KindBar:
		if o.hi <= o.lo || o.value <= o.lo {
			return native.Area{}, false
		}
		w := int32(o.w) * (o.value - o.lo) / (o.hi - o.lo)
		if w <= 0 {
			return native.Area{}, false
		}
		return native.Area{X1: area.X1, Y1: area.Y1, X2: area.X1 + int16(w) - 1, Y2: area.Y2}, true
	case native.KindSwitch:
		return area, o.state.Has(native.StateChecked)
	case native.KindCheckbox:
		inner := native.Area{X1: area.X1 + 1, Y1: area.Y1 + 1, X2: area.X2 - 1, Y2: area.Y2 - 1}
		return inner, o.state.Has(native.StateChecked) && !inner.Empty()
	default:
		return native.Area{}, false
	}
}

// resolveStyle picks the local property whose selector matches the part and
// whose state bits are all present on the object, preferring the selector
// with the most state bits.
func (e *Engine) resolveStyle(o *object, part native.Part, prop native.StyleProp) (int32, bool) {
	var (
		best     int32
		bestBits = -1
	)
	for sel, props := range o.styles {
		if sel.Part() != part || !o.state.Has(sel.State()) {
			continue
		}
		v, ok := props[prop]
		if !ok {
			continue
		}
		bits := popcount(uint16(sel.State()))
		if bits > bestBits {
			best, bestBits = v, bits
		}
	}
	return best, bestBits >= 0
}

func popcount(v uint16) int {
	n := 0
	for v != 0 {
		v &= v - 1
		n++
	}
	return n
}

// fill paints the intersection of area and strip into buf.
func (e *Engine) fill(strip, area native.Area, buf []byte, rgb int32) {
	clip := strip.Intersect(area)
	if clip.Empty() {
		return
	}
	bpp := e.display.Depth.BytesPerPixel()
	stride := strip.Width() * bpp
	var px [4]byte
	encode(e.display.Depth, uint32(rgb), px[:bpp])
	for y := clip.Y1; y <= clip.Y2; y++ {
		row := int(y-strip.Y1) * stride
		for x := clip.X1; x <= clip.X2; x++ {
			copy(buf[row+int(x-strip.X1)*bpp:], px[:bpp])
		}
	}
}

// encode writes one 0xRRGGBB color in the engine's native format.
func encode(depth native.ColorDepth, rgb uint32, dst []byte) {
	r, g, b := uint8(rgb>>16), uint8(rgb>>8), uint8(rgb)
	switch depth {
	case native.Depth1:
		luma := (uint32(r)*299 + uint32(g)*587 + uint32(b)*114) / 1000
		if luma > 127 {
			dst[0] = 1
		} else {
			dst[0] = 0
		}
	case native.Depth8:
		dst[0] = r&0xE0 | (g&0xE0)>>3 | b>>6
	case native.Depth16:
		v := uint16(r>>3)<<11 | uint16(g>>2)<<5 | uint16(b>>3)
		dst[0], dst[1] = byte(v), byte(v>>8)
	case native.Depth16Swap:
		v := uint16(r>>3)<<11 | uint16(g>>2)<<5 | uint16(b>>3)
		dst[0], dst[1] = byte(v>>8), byte(v)
	case native.Depth32:
		dst[0], dst[1], dst[2], dst[3] = b, g, r, 0xFF
	}
}
