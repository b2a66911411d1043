package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/go-drift/lvbind/pkg/display"
	"github.com/go-drift/lvbind/pkg/native"
	"github.com/go-drift/lvbind/pkg/scene"
)

// DefaultNames are the config files looked up when no path is given, in
// order.
var DefaultNames = []string{"lvsim.yaml", "lvsim.yml", "lvsim.toml"}

// Config represents the optional lvsim configuration file.
type Config struct {
	Display DisplayConfig `yaml:"display" toml:"display"`
	Tick    TickConfig    `yaml:"tick" toml:"tick"`
	Remote  RemoteConfig  `yaml:"remote" toml:"remote"`
	Scene   scene.Scene   `yaml:"scene" toml:"scene"`
}

// DisplayConfig describes the simulated panel.
type DisplayConfig struct {
	Width  int `yaml:"width,omitempty" toml:"width,omitempty"`
	Height int `yaml:"height,omitempty" toml:"height,omitempty"`
	// Depth is the engine's native color depth in bits: 1, 8, 16 or 32.
	Depth int `yaml:"depth,omitempty" toml:"depth,omitempty"`
	// Swap selects byte-swapped RGB565. Only valid with depth 16.
	Swap        bool   `yaml:"swap,omitempty" toml:"swap,omitempty"`
	Format      string `yaml:"format,omitempty" toml:"format,omitempty"`
	BufferLines int    `yaml:"buffer_lines,omitempty" toml:"buffer_lines,omitempty"`
}

// TickConfig contains tick loop settings.
type TickConfig struct {
	IntervalMS  int `yaml:"interval_ms,omitempty" toml:"interval_ms,omitempty"`
	LongPressMS int `yaml:"long_press_ms,omitempty" toml:"long_press_ms,omitempty"`
}

// RemoteConfig contains websocket bridge settings.
type RemoteConfig struct {
	Addr   string `yaml:"addr,omitempty" toml:"addr,omitempty"`
	Path   string `yaml:"path,omitempty" toml:"path,omitempty"`
	Buffer int    `yaml:"buffer,omitempty" toml:"buffer,omitempty"`
}

// Resolved contains resolved configuration values.
type Resolved struct {
	Source      string
	Width       int
	Height      int
	Depth       native.ColorDepth
	Format      display.Format
	BufferLines int
	Interval    time.Duration
	LongPressMS uint32
	Addr        string
	Path        string
	Buffer      int
	Scene       *scene.Scene
}

// LoadOptional reads the config file at path. An empty path looks for the
// default names in dir. A missing file yields an empty Config.
func LoadOptional(dir, path string) (*Config, string, error) {
	if path == "" {
		for _, name := range DefaultNames {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
		if path == "" {
			return &Config{}, "", nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, "", nil
		}
		return nil, "", fmt.Errorf("failed to read %s: %w", path, err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	case ".toml":
		err = toml.Unmarshal(data, &cfg)
	default:
		return nil, "", fmt.Errorf("unsupported config file %s: want .yaml or .toml", path)
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &cfg, path, nil
}

// Load reads the config (if present) and resolves defaults.
func Load(dir, path string) (*Resolved, error) {
	cfg, source, err := LoadOptional(dir, path)
	if err != nil {
		return nil, err
	}
	res, err := Resolve(cfg)
	if err != nil {
		if source != "" {
			return nil, fmt.Errorf("%s: %w", source, err)
		}
		return nil, err
	}
	res.Source = source
	return res, nil
}

// Resolve fills defaults and validates cfg.
func Resolve(cfg *Config) (*Resolved, error) {
	res := &Resolved{
		Width:       orDefault(cfg.Display.Width, 320),
		Height:      orDefault(cfg.Display.Height, 240),
		BufferLines: cfg.Display.BufferLines,
		Interval:    time.Duration(orDefault(cfg.Tick.IntervalMS, 16)) * time.Millisecond,
		LongPressMS: uint32(orDefault(cfg.Tick.LongPressMS, 400)),
		Addr:        strings.TrimSpace(cfg.Remote.Addr),
		Path:        strings.TrimSpace(cfg.Remote.Path),
		Buffer:      orDefault(cfg.Remote.Buffer, 256),
	}
	if res.Width > 4096 || res.Height > 4096 || res.Width < 0 || res.Height < 0 {
		return nil, fmt.Errorf("display size %dx%d out of range", res.Width, res.Height)
	}
	if res.BufferLines <= 0 {
		res.BufferLines = max(res.Height/10, 1)
	}
	if res.BufferLines > res.Height {
		return nil, fmt.Errorf("buffer_lines %d exceeds display height %d", res.BufferLines, res.Height)
	}

	depth, err := resolveDepth(orDefault(cfg.Display.Depth, 16), cfg.Display.Swap)
	if err != nil {
		return nil, err
	}
	res.Depth = depth

	format := strings.ToLower(strings.TrimSpace(cfg.Display.Format))
	if format == "" {
		format = display.FormatRGBX8888.String()
	}
	if res.Format, err = display.ParseFormat(format); err != nil {
		return nil, err
	}

	if res.Interval < 0 || cfg.Tick.LongPressMS < 0 {
		return nil, fmt.Errorf("tick settings must not be negative")
	}
	if res.Addr == "" {
		res.Addr = ":8080"
	}
	if res.Path == "" {
		res.Path = "/ws"
	}
	if !strings.HasPrefix(res.Path, "/") {
		return nil, fmt.Errorf("remote path %q must start with /", res.Path)
	}

	sc := cfg.Scene
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	res.Scene = &sc
	return res, nil
}

func resolveDepth(bits int, swap bool) (native.ColorDepth, error) {
	if swap && bits != 16 {
		return 0, fmt.Errorf("swap requires depth 16, got %d", bits)
	}
	switch bits {
	case 1:
		return native.Depth1, nil
	case 8:
		return native.Depth8, nil
	case 16:
		if swap {
			return native.Depth16Swap, nil
		}
		return native.Depth16, nil
	case 32:
		return native.Depth32, nil
	default:
		return 0, fmt.Errorf("unsupported depth %d: want 1, 8, 16 or 32", bits)
	}
}

func orDefault(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}
