// Package scene builds widget trees from declarative YAML or TOML files.
//
// A scene lists widgets with their kind, options and children, and binds
// event names to simple actions:
//
//	widgets:
//	  - kind: button
//	    name: ok
//	    options: {x: 10, y: 10, width: 60, height: 20}
//	    on: {clicked: "delete:banner"}
//	  - kind: label
//	    name: banner
//	    options: {text: hello}
//
// Supported actions are "log", "delete" (the widget itself), "delete:<name>"
// and "toggle:<name>", which flips the named widget's hidden flag.
package scene

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/go-drift/lvbind/pkg/lv"
	"github.com/go-drift/lvbind/pkg/native"
)

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = stderrors.New("scene: invalid scene")

// Node describes one widget and its subtree.
type Node struct {
	Kind     string            `yaml:"kind" toml:"kind"`
	Name     string            `yaml:"name,omitempty" toml:"name,omitempty"`
	Options  lv.Options        `yaml:"options,omitempty" toml:"options,omitempty"`
	Children []Node            `yaml:"children,omitempty" toml:"children,omitempty"`
	On       map[string]string `yaml:"on,omitempty" toml:"on,omitempty"`
}

// Scene is a complete scene file. When Screen is set, a new screen is
// created with those options and loaded.
type Scene struct {
	Screen  lv.Options `yaml:"screen,omitempty" toml:"screen,omitempty"`
	Widgets []Node     `yaml:"widgets" toml:"widgets"`
}

// Format is a scene file encoding.
type Format int

const (
	FormatYAML Format = iota
	FormatTOML
)

// FormatFor picks the format from a file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return 0, fmt.Errorf("scene: unknown file extension %q", filepath.Ext(path))
	}
}

// Decode parses a scene and validates it.
func Decode(data []byte, format Format) (*Scene, error) {
	var sc Scene
	var err error
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &sc)
	case FormatTOML:
		err = toml.Unmarshal(data, &sc)
	default:
		return nil, fmt.Errorf("scene: unknown format %d", format)
	}
	if err != nil {
		return nil, fmt.Errorf("scene: failed to parse: %w", err)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Load reads and decodes a scene file.
func Load(path string) (*Scene, error) {
	format, err := FormatFor(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scene: failed to read %s: %w", path, err)
	}
	return Decode(data, format)
}

// Validate checks kinds, option keys, event names, actions and names.
// Option values are checked when the widgets are created.
func (sc *Scene) Validate() error {
	names := make(map[string]bool)
	var targets []string
	var walk func(path string, n *Node) error
	walk = func(path string, n *Node) error {
		kind, ok := native.ParseKind(n.Kind)
		if !ok || kind == native.KindScreen {
			return fmt.Errorf("%w: %s: unknown widget kind %q", ErrInvalid, path, n.Kind)
		}
		allowed := lv.Allowed(kind)
		for key := range n.Options {
			if !contains(allowed, key) {
				return fmt.Errorf("%w: %s: option %q not supported by %s", ErrInvalid, path, key, kind)
			}
		}
		if n.Name != "" {
			if names[n.Name] {
				return fmt.Errorf("%w: %s: duplicate name %q", ErrInvalid, path, n.Name)
			}
			names[n.Name] = true
		}
		for event, action := range n.On {
			if code, ok := native.ParseEventCode(event); !ok || code == native.EventNone {
				return fmt.Errorf("%w: %s: unknown event %q", ErrInvalid, path, event)
			}
			a, err := parseAction(action)
			if err != nil {
				return fmt.Errorf("%w: %s: %v", ErrInvalid, path, err)
			}
			if a.target != "" {
				targets = append(targets, a.target)
			}
		}
		for i := range n.Children {
			if err := walk(fmt.Sprintf("%s.children[%d]", path, i), &n.Children[i]); err != nil {
				return err
			}
		}
		return nil
	}
	for i := range sc.Widgets {
		if err := walk(fmt.Sprintf("widgets[%d]", i), &sc.Widgets[i]); err != nil {
			return err
		}
	}
	for _, t := range targets {
		if !names[t] {
			return fmt.Errorf("%w: action targets unknown widget %q", ErrInvalid, t)
		}
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
