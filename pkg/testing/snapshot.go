package testing

import (
	"image/color"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// DefaultPalette maps the reference engine's default colors to runes:
// background '.', buttons and indicators '#', tracks '-', black ' '.
var DefaultPalette = map[color.RGBA]rune{
	{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}: '.',
	{R: 0x21, G: 0x96, B: 0xF3, A: 0xFF}: '#',
	{R: 0xCC, G: 0xCC, B: 0xCC, A: 0xFF}: '-',
	{R: 0x00, G: 0x00, B: 0x00, A: 0xFF}: ' ',
}

// ASCII renders the current frame with DefaultPalette. Pixels of other
// colors print as '?'.
func (t *Tester) ASCII() string {
	return t.frame.ASCII(DefaultPalette)
}

// AssertFrame compares the current frame's ASCII dump against
// testdata/golden/<name>.golden.
func (t *Tester) AssertFrame(tb *testing.T, name string) {
	tb.Helper()
	g := goldie.New(tb,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(tb, name, []byte(t.ASCII()))
}
