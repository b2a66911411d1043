package lv

import (
	stderrors "errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/go-drift/lvbind/pkg/errors"
	"github.com/go-drift/lvbind/pkg/native"
)

var (
	// ErrUnknownOption is returned for option keys the widget kind does not
	// recognize.
	ErrUnknownOption = stderrors.New("unknown option")
	// ErrBadOption is returned for option values of the wrong type or range.
	ErrBadOption = stderrors.New("bad option value")
)

// Options are widget construction options, keyed by name. Values may come
// from Go code or from decoded YAML/TOML, so numbers are accepted in any
// integer or integral float type.
type Options map[string]any

const (
	OptX         = "x"
	OptY         = "y"
	OptWidth     = "width"
	OptHeight    = "height"
	OptHidden    = "hidden"
	OptClickable = "clickable"
	OptBgColor   = "bg_color"
	OptText      = "text"
	OptRange     = "range"
	OptValue     = "value"
	OptChecked   = "checked"
	OptCheckable = "checkable"
)

var commonOptions = []string{OptX, OptY, OptWidth, OptHeight, OptHidden, OptClickable, OptBgColor}

var kindOptions = map[native.Kind][]string{
	native.KindObj:      nil,
	native.KindScreen:   {OptBgColor},
	native.KindButton:   {OptCheckable},
	native.KindLabel:    {OptText},
	native.KindSlider:   {OptRange, OptValue},
	native.KindBar:      {OptRange, OptValue},
	native.KindSwitch:   {OptChecked},
	native.KindCheckbox: {OptChecked, OptText},
}

// Allowed returns the sorted option keys accepted for kind.
func Allowed(kind native.Kind) []string {
	extra, ok := kindOptions[kind]
	if !ok {
		return nil
	}
	var keys []string
	if kind != native.KindScreen {
		keys = append(keys, commonOptions...)
	}
	keys = append(keys, extra...)
	sort.Strings(keys)
	return keys
}

// settings is the validated form of Options.
type settings struct {
	x, y      *int16
	width     *int16
	height    *int16
	hidden    *bool
	clickable *bool
	bgColor   *int32
	text      *string
	rng       *[2]int32
	value     *int32
	checked   *bool
	checkable *bool
}

// parse validates opts for kind. Errors are *errors.OptionError wrapping
// ErrUnknownOption or ErrBadOption.
func (opts Options) parse(kind native.Kind) (*settings, error) {
	allowed := Allowed(kind)
	s := &settings{}
	// Sorted keys make the first reported error deterministic.
	keys := make([]string, 0, len(opts))
	for k := range opts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if !contains(allowed, key) {
			return nil, &errors.OptionError{Widget: kind.String(), Option: key, Err: ErrUnknownOption}
		}
		if err := s.set(key, opts[key]); err != nil {
			return nil, &errors.OptionError{Widget: kind.String(), Option: key, Err: fmt.Errorf("%w: %v", ErrBadOption, err)}
		}
	}
	return s, nil
}

func (s *settings) set(key string, v any) error {
	switch key {
	case OptX, OptY, OptWidth, OptHeight:
		n, err := toInt(v, math.MinInt16, math.MaxInt16)
		if err != nil {
			return err
		}
		c := int16(n)
		switch key {
		case OptX:
			s.x = &c
		case OptY:
			s.y = &c
		case OptWidth:
			if c <= 0 {
				return fmt.Errorf("width must be positive, got %d", c)
			}
			s.width = &c
		case OptHeight:
			if c <= 0 {
				return fmt.Errorf("height must be positive, got %d", c)
			}
			s.height = &c
		}
	case OptHidden, OptClickable, OptChecked, OptCheckable:
		b, ok := v.(bool)
		if !ok {
			return fmt.Errorf("want bool, got %T", v)
		}
		switch key {
		case OptHidden:
			s.hidden = &b
		case OptClickable:
			s.clickable = &b
		case OptChecked:
			s.checked = &b
		case OptCheckable:
			s.checkable = &b
		}
	case OptBgColor:
		c, err := toColor(v)
		if err != nil {
			return err
		}
		s.bgColor = &c
	case OptText:
		str, ok := v.(string)
		if !ok {
			return fmt.Errorf("want string, got %T", v)
		}
		s.text = &str
	case OptRange:
		r, err := toRange(v)
		if err != nil {
			return err
		}
		s.rng = &r
	case OptValue:
		n, err := toInt(v, math.MinInt32, math.MaxInt32)
		if err != nil {
			return err
		}
		val := int32(n)
		s.value = &val
	}
	return nil
}

// apply writes the settings to h. Range is applied before value so the value
// is clamped to the new range.
func (s *settings) apply(eng native.Engine, h native.Handle) {
	if s.x != nil || s.y != nil {
		var x, y int16
		cur := eng.Coords(h)
		if p := eng.Parent(h); !p.IsNil() {
			pa := eng.Coords(p)
			x, y = cur.X1-pa.X1, cur.Y1-pa.Y1
		} else {
			x, y = cur.X1, cur.Y1
		}
		if s.x != nil {
			x = *s.x
		}
		if s.y != nil {
			y = *s.y
		}
		eng.SetPos(h, x, y)
	}
	if s.width != nil || s.height != nil {
		cur := eng.Coords(h)
		w, hgt := int16(cur.Width()), int16(cur.Height())
		if s.width != nil {
			w = *s.width
		}
		if s.height != nil {
			hgt = *s.height
		}
		eng.SetSize(h, w, hgt)
	}
	if s.hidden != nil {
		eng.SetFlag(h, native.FlagHidden, *s.hidden)
	}
	if s.clickable != nil {
		eng.SetFlag(h, native.FlagClickable, *s.clickable)
	}
	if s.checkable != nil {
		eng.SetFlag(h, native.FlagCheckable, *s.checkable)
	}
	if s.bgColor != nil {
		eng.SetStyleProp(h, native.Select(native.PartMain, native.StateDefault), native.StyleBgColor, *s.bgColor)
	}
	if s.text != nil {
		eng.SetText(h, *s.text)
	}
	if s.rng != nil {
		eng.SetRange(h, s.rng[0], s.rng[1])
	}
	if s.value != nil {
		eng.SetValue(h, *s.value)
	}
	if s.checked != nil {
		if *s.checked {
			eng.AddState(h, native.StateChecked)
		} else {
			eng.ClearState(h, native.StateChecked)
		}
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func toInt(v any, lo, hi int64) (int64, error) {
	var n int64
	switch x := v.(type) {
	case int:
		n = int64(x)
	case int8:
		n = int64(x)
	case int16:
		n = int64(x)
	case int32:
		n = int64(x)
	case int64:
		n = x
	case uint:
		n = int64(x)
	case uint8:
		n = int64(x)
	case uint16:
		n = int64(x)
	case uint32:
		n = int64(x)
	case uint64:
		if x > math.MaxInt64 {
			return 0, fmt.Errorf("%d out of range", x)
		}
		n = int64(x)
	case float64:
		// Decoders hand numbers over as float64; convert only finite values
		// already known to fit.
		if math.IsNaN(x) || math.IsInf(x, 0) || x != math.Trunc(x) {
			return 0, fmt.Errorf("want integer, got %v", x)
		}
		if x < float64(lo) || x > float64(hi) || x >= 1<<63 {
			return 0, fmt.Errorf("%v out of range [%d, %d]", x, lo, hi)
		}
		n = int64(x)
	default:
		return 0, fmt.Errorf("want integer, got %T", v)
	}
	if n < lo || n > hi {
		return 0, fmt.Errorf("%d out of range [%d, %d]", n, lo, hi)
	}
	return n, nil
}

// toColor accepts 0xRRGGBB integers and "#RRGGBB" strings.
func toColor(v any) (int32, error) {
	if str, ok := v.(string); ok {
		hex := strings.TrimPrefix(str, "#")
		if len(hex) != 6 {
			return 0, fmt.Errorf("want #RRGGBB, got %q", str)
		}
		n, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return 0, fmt.Errorf("want #RRGGBB, got %q", str)
		}
		return int32(n), nil
	}
	n, err := toInt(v, 0, 0xFFFFFF)
	if err != nil {
		return 0, err
	}
	return int32(n), nil
}

func toRange(v any) ([2]int32, error) {
	var items []any
	switch x := v.(type) {
	case [2]int32:
		return checkRange(x)
	case [2]int:
		return checkRange([2]int32{int32(x[0]), int32(x[1])})
	case []int:
		for _, n := range x {
			items = append(items, n)
		}
	case []int32:
		for _, n := range x {
			items = append(items, n)
		}
	case []any:
		items = x
	default:
		return [2]int32{}, fmt.Errorf("want [min, max], got %T", v)
	}
	if len(items) != 2 {
		return [2]int32{}, fmt.Errorf("want [min, max], got %d values", len(items))
	}
	var out [2]int32
	for i, item := range items {
		n, err := toInt(item, math.MinInt32, math.MaxInt32)
		if err != nil {
			return [2]int32{}, err
		}
		out[i] = int32(n)
	}
	return checkRange(out)
}

func checkRange(r [2]int32) ([2]int32, error) {
	if r[0] >= r[1] {
		return r, fmt.Errorf("min %d must be below max %d", r[0], r[1])
	}
	return r, nil
}
