package lv

import "github.com/go-drift/lvbind/pkg/native"

type styleProp struct {
	prop  native.StyleProp
	value int32
}

// Style is an ordered set of local style properties. Setting a property
// twice keeps the last value.
type Style struct {
	props []styleProp
}

// NewStyle returns an empty style.
func NewStyle() *Style {
	return &Style{}
}

// Set stores value for prop and returns s for chaining.
func (s *Style) Set(prop native.StyleProp, value int32) *Style {
	for i := range s.props {
		if s.props[i].prop == prop {
			s.props[i].value = value
			return s
		}
	}
	s.props = append(s.props, styleProp{prop, value})
	return s
}

// BgColor sets the background color, 0xRRGGBB.
func (s *Style) BgColor(rgb uint32) *Style { return s.Set(native.StyleBgColor, int32(rgb&0xFFFFFF)) }

// BorderColor sets the border color, 0xRRGGBB.
func (s *Style) BorderColor(rgb uint32) *Style {
	return s.Set(native.StyleBorderColor, int32(rgb&0xFFFFFF))
}

// BorderWidth sets the border width in pixels.
func (s *Style) BorderWidth(px int32) *Style { return s.Set(native.StyleBorderWidth, px) }

// Radius sets the corner radius.
func (s *Style) Radius(px int32) *Style { return s.Set(native.StyleRadius, px) }

// Opacity sets the opacity, 0 to 255.
func (s *Style) Opacity(v uint8) *Style { return s.Set(native.StyleOpacity, int32(v)) }

// Get returns the value stored for prop.
func (s *Style) Get(prop native.StyleProp) (int32, bool) {
	for _, p := range s.props {
		if p.prop == prop {
			return p.value, true
		}
	}
	return 0, false
}

// Len returns the number of properties.
func (s *Style) Len() int { return len(s.props) }
