package display

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
)

// Framebuffer is a Sink that composes regions into an in-memory image. It
// expects FormatRGBX8888 or FormatRGBA8888 regions.
type Framebuffer struct {
	img    *image.RGBA
	format Format
	writes int
}

// NewFramebuffer allocates a width x height framebuffer for the given format.
func NewFramebuffer(width, height int, format Format) (*Framebuffer, error) {
	if format != FormatRGBX8888 && format != FormatRGBA8888 {
		return nil, fmt.Errorf("%w: framebuffer needs a 32-bit format, got %v", ErrUnsupportedFormat, format)
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("display: invalid framebuffer size %dx%d", width, height)
	}
	return &Framebuffer{
		img:    image.NewRGBA(image.Rect(0, 0, width, height)),
		format: format,
	}, nil
}

// WriteRegion implements Sink.
func (f *Framebuffer) WriteRegion(x, y, w, h int, pixels []byte) error {
	if len(pixels) != w*h*4 {
		return ErrShortBuffer
	}
	r := image.Rect(x, y, x+w, y+h)
	if !r.In(f.img.Bounds()) {
		return fmt.Errorf("display: region %v outside framebuffer %v", r, f.img.Bounds())
	}
	src := &image.RGBA{Pix: pixels, Stride: w * 4, Rect: image.Rect(0, 0, w, h)}
	if f.format == FormatRGBX8888 {
		// The padding byte is zero; treat the region as opaque.
		src = opaque(src)
	}
	draw.Draw(f.img, r, src, image.Point{}, draw.Src)
	f.writes++
	return nil
}

func opaque(src *image.RGBA) *image.RGBA {
	out := &image.RGBA{Pix: make([]byte, len(src.Pix)), Stride: src.Stride, Rect: src.Rect}
	copy(out.Pix, src.Pix)
	for i := 3; i < len(out.Pix); i += 4 {
		out.Pix[i] = 0xFF
	}
	return out
}

// Image returns the composed image. It is live; callers must not modify it.
func (f *Framebuffer) Image() *image.RGBA { return f.img }

// Writes returns the number of regions accepted.
func (f *Framebuffer) Writes() int { return f.writes }

// At returns the color at (x, y).
func (f *Framebuffer) At(x, y int) color.RGBA {
	return f.img.RGBAAt(x, y)
}

// WriteBMP encodes the framebuffer as a BMP image.
func (f *Framebuffer) WriteBMP(w io.Writer) error {
	return bmp.Encode(w, f.img)
}

// Scaled returns a copy of the framebuffer scaled by factor using
// nearest-neighbor sampling, for snapshots of tiny displays.
func (f *Framebuffer) Scaled(factor int) *image.RGBA {
	if factor <= 1 {
		out := image.NewRGBA(f.img.Bounds())
		draw.Copy(out, image.Point{}, f.img, f.img.Bounds(), draw.Src, nil)
		return out
	}
	b := f.img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx()*factor, b.Dy()*factor))
	draw.NearestNeighbor.Scale(out, out.Bounds(), f.img, b, draw.Src, nil)
	return out
}

// ASCII renders the framebuffer as text, one rune per pixel. Colors present
// in palette map to their rune; anything else is '?'.
func (f *Framebuffer) ASCII(palette map[color.RGBA]rune) string {
	b := f.img.Bounds()
	var sb strings.Builder
	sb.Grow((b.Dx() + 1) * b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := f.img.RGBAAt(x, y)
			c.A = 0xFF
			if r, ok := palette[c]; ok {
				sb.WriteRune(r)
			} else {
				sb.WriteByte('?')
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
