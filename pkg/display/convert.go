package display

import (
	stderrors "errors"
	"fmt"

	"github.com/go-drift/lvbind/pkg/native"
)

// ErrUnsupportedDepth is returned for native depths with no conversion entry.
var ErrUnsupportedDepth = stderrors.New("display: unsupported native color depth")

// ErrUnsupportedFormat is returned for unknown target formats.
var ErrUnsupportedFormat = stderrors.New("display: unsupported target format")

// ErrShortBuffer is returned when a pixel slice does not match the region size.
var ErrShortBuffer = stderrors.New("display: buffer size does not match region")

// Format is the pixel format a sink expects.
type Format uint8

const (
	// FormatRGB565 is 16-bit RGB565, little-endian.
	FormatRGB565 Format = iota + 1
	// FormatRGB888 is 24-bit R, G, B.
	FormatRGB888
	// FormatRGBX8888 is 24-bit color in a 32-bit word: R, G, B, 0.
	FormatRGBX8888
	// FormatRGBA8888 is R, G, B, A.
	FormatRGBA8888
)

var formatNames = map[Format]string{
	FormatRGB565:   "rgb565",
	FormatRGB888:   "rgb888",
	FormatRGBX8888: "rgbx8888",
	FormatRGBA8888: "rgba8888",
}

func (f Format) String() string {
	if n, ok := formatNames[f]; ok {
		return n
	}
	return fmt.Sprintf("format(%d)", uint8(f))
}

// ParseFormat maps a format name back to a Format.
func ParseFormat(name string) (Format, error) {
	for f, n := range formatNames {
		if n == name {
			return f, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
}

// BytesPerPixel returns the storage size of one target pixel.
func (f Format) BytesPerPixel() int {
	switch f {
	case FormatRGB565:
		return 2
	case FormatRGB888:
		return 3
	case FormatRGBX8888, FormatRGBA8888:
		return 4
	default:
		return 0
	}
}

// decoder expands one native pixel to 8-bit channels.
type decoder struct {
	bpp    int
	decode func(src []byte) (r, g, b, a uint8)
}

// decoders is the conversion table keyed by native color depth.
var decoders = map[native.ColorDepth]decoder{
	native.Depth1: {1, func(src []byte) (uint8, uint8, uint8, uint8) {
		if src[0] != 0 {
			return 0xFF, 0xFF, 0xFF, 0xFF
		}
		return 0, 0, 0, 0xFF
	}},
	native.Depth8: {1, func(src []byte) (uint8, uint8, uint8, uint8) {
		v := src[0]
		return expand3[v>>5], expand3[(v>>2)&0x07], expand2[v&0x03], 0xFF
	}},
	native.Depth16: {2, func(src []byte) (uint8, uint8, uint8, uint8) {
		return rgb565(uint16(src[0]) | uint16(src[1])<<8)
	}},
	native.Depth16Swap: {2, func(src []byte) (uint8, uint8, uint8, uint8) {
		return rgb565(uint16(src[0])<<8 | uint16(src[1]))
	}},
	native.Depth32: {4, func(src []byte) (uint8, uint8, uint8, uint8) {
		return src[2], src[1], src[0], src[3]
	}},
}

var (
	expand2 = [4]uint8{0x00, 0x55, 0xAA, 0xFF}
	expand3 = [8]uint8{0x00, 0x24, 0x49, 0x6D, 0x92, 0xB6, 0xDB, 0xFF}
)

// rgb565 expands 5/6-bit channels by bit replication so that full-scale
// inputs map to 0xFF.
func rgb565(v uint16) (uint8, uint8, uint8, uint8) {
	r5 := uint8(v >> 11)
	g6 := uint8(v>>5) & 0x3F
	b5 := uint8(v) & 0x1F
	return r5<<3 | r5>>2, g6<<2 | g6>>4, b5<<3 | b5>>2, 0xFF
}

func encodeTarget(f Format, dst []byte, r, g, b, a uint8) {
	switch f {
	case FormatRGB565:
		v := uint16(r>>3)<<11 | uint16(g>>2)<<5 | uint16(b>>3)
		dst[0], dst[1] = byte(v), byte(v>>8)
	case FormatRGB888:
		dst[0], dst[1], dst[2] = r, g, b
	case FormatRGBX8888:
		dst[0], dst[1], dst[2], dst[3] = r, g, b, 0
	case FormatRGBA8888:
		dst[0], dst[1], dst[2], dst[3] = r, g, b, a
	}
}

// Convert converts every native pixel in src into dst and returns the number
// of bytes written. dst must hold len(src)/native bpp target pixels.
func Convert(dst, src []byte, depth native.ColorDepth, target Format) (int, error) {
	dec, ok := decoders[depth]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnsupportedDepth, depth)
	}
	out := target.BytesPerPixel()
	if out == 0 {
		return 0, fmt.Errorf("%w: %v", ErrUnsupportedFormat, target)
	}
	if len(src)%dec.bpp != 0 {
		return 0, ErrShortBuffer
	}
	n := len(src) / dec.bpp
	if len(dst) < n*out {
		return 0, ErrShortBuffer
	}
	for i := 0; i < n; i++ {
		r, g, b, a := dec.decode(src[i*dec.bpp:])
		encodeTarget(target, dst[i*out:], r, g, b, a)
	}
	return n * out, nil
}

// Supported reports whether depth has a conversion table entry.
func Supported(depth native.ColorDepth) bool {
	_, ok := decoders[depth]
	return ok
}
