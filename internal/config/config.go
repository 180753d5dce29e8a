// Package config loads the TOML configuration file.
//
// Every section is optional; missing keys keep their defaults and a
// missing file yields Default(). Durations are written as strings such as
// "500ms" or "1.5s".
//
//	[log]
//	level = "debug"
//
//	[router]
//	initial_context = "explore"
//	ground_id = "terrain"
//
//	[mouse]
//	drag_threshold = 8
//	hold_duration = "650ms"
//
//	[[layers]]
//	name = "hud"
//	priority = 75
//	blocking = true
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/dshills/spatialcms/internal/input"
	"github.com/dshills/spatialcms/internal/input/keyboard"
	"github.com/dshills/spatialcms/internal/input/mode"
	"github.com/dshills/spatialcms/internal/input/mouse"
	"github.com/dshills/spatialcms/internal/input/touch"
	"github.com/dshills/spatialcms/internal/logging"
	"github.com/dshills/spatialcms/internal/remote"
)

// Config is the full configuration.
type Config struct {
	Log      LogConfig      `toml:"log"`
	Router   RouterConfig   `toml:"router"`
	Keyboard KeyboardConfig `toml:"keyboard"`
	Mouse    MouseConfig    `toml:"mouse"`
	Touch    TouchConfig    `toml:"touch"`
	Bindings BindingsConfig `toml:"bindings"`
	Scripts  ScriptsConfig  `toml:"scripts"`
	Remote   RemoteConfig   `toml:"remote"`

	// Layers replaces the default priority layers when non-empty.
	Layers []LayerConfig `toml:"layers"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is debug, info, warn, error or off.
	Level string `toml:"level"`

	// File receives log output. Empty means stderr.
	File string `toml:"file"`
}

// RouterConfig configures the input router.
type RouterConfig struct {
	// InitialContext is activated at startup.
	InitialContext string `toml:"initial_context"`

	// TargetLayer is the layer routed input targets.
	TargetLayer string `toml:"target_layer"`

	// GroundID is the pick target id of the ground plane.
	GroundID string `toml:"ground_id"`

	// QueueSize is the input loop queue capacity.
	QueueSize int `toml:"queue_size"`
}

// KeyboardConfig configures the keyboard source.
type KeyboardConfig struct {
	// GameKeys are codes whose platform default is suppressed.
	GameKeys []string `toml:"game_keys"`
}

// MouseConfig configures the mouse source.
type MouseConfig struct {
	DragThreshold       float32  `toml:"drag_threshold"`
	HoldDuration        Duration `toml:"hold_duration"`
	DoubleClickTime     Duration `toml:"double_click_time"`
	DoubleClickDistance float32  `toml:"double_click_distance"`
}

// TouchConfig configures the touch source.
type TouchConfig struct {
	TapMaxDuration    Duration `toml:"tap_max_duration"`
	MoveTolerance     float32  `toml:"move_tolerance"`
	LongPressDuration Duration `toml:"long_press_duration"`
	SwipeMaxDuration  Duration `toml:"swipe_max_duration"`
	SwipeMinDistance  float32  `toml:"swipe_min_distance"`
}

// BindingsConfig locates keymap files.
type BindingsConfig struct {
	// Dirs are scanned in order; later files override earlier ones.
	Dirs []string `toml:"dirs"`

	// Watch reloads files as they change.
	Watch bool `toml:"watch"`

	// Debounce is the quiet period before a changed file is reloaded.
	Debounce Duration `toml:"debounce"`
}

// ScriptsConfig locates Lua predicate scripts.
type ScriptsConfig struct {
	Dirs []string `toml:"dirs"`

	// Timeout bounds one predicate or curve call.
	Timeout Duration `toml:"timeout"`
}

// RemoteConfig configures the websocket input endpoint.
type RemoteConfig struct {
	Enabled bool   `toml:"enabled"`
	Addr    string `toml:"addr"`
	Path    string `toml:"path"`

	// AllowedOrigins lists browser origins accepted by the upgrade. Empty
	// accepts only same-host requests.
	AllowedOrigins []string `toml:"allowed_origins"`

	// MaxMessageSize bounds an incoming frame in bytes.
	MaxMessageSize int64 `toml:"max_message_size"`

	WriteTimeout Duration `toml:"write_timeout"`
	PingInterval Duration `toml:"ping_interval"`

	// SendBuffer is the per-connection outgoing queue length. A client
	// that falls this far behind is disconnected.
	SendBuffer int `toml:"send_buffer"`

	// Actions limits the forwarded actions. Empty forwards all.
	Actions []string `toml:"actions"`
}

// LayerConfig describes one priority layer.
type LayerConfig struct {
	Name     string `toml:"name"`
	Priority int    `toml:"priority"`
	Blocking bool   `toml:"blocking"`
	Active   bool   `toml:"active"`
}

// Default returns the built-in configuration.
func Default() *Config {
	mc := mouse.DefaultConfig()
	tc := touch.DefaultConfig()
	rc := input.DefaultConfig()
	return &Config{
		Log: LogConfig{Level: "info"},
		Router: RouterConfig{
			InitialContext: mode.Explore,
			TargetLayer:    rc.TargetLayer,
			GroundID:       rc.GroundID,
			QueueSize:      input.DefaultQueueSize,
		},
		Keyboard: KeyboardConfig{GameKeys: keyboard.DefaultConfig().GameKeys},
		Mouse: MouseConfig{
			DragThreshold:       mc.DragThreshold,
			HoldDuration:        Duration(mc.HoldDuration),
			DoubleClickTime:     Duration(mc.DoubleClickTime),
			DoubleClickDistance: mc.DoubleClickDistance,
		},
		Touch: TouchConfig{
			TapMaxDuration:    Duration(tc.TapMaxDuration),
			MoveTolerance:     tc.MoveTolerance,
			LongPressDuration: Duration(tc.LongPressDuration),
			SwipeMaxDuration:  Duration(tc.SwipeMaxDuration),
			SwipeMinDistance:  tc.SwipeMinDistance,
		},
		Bindings: BindingsConfig{Debounce: Duration(150 * time.Millisecond)},
		Scripts:  ScriptsConfig{Timeout: Duration(5 * time.Millisecond)},
		Remote: RemoteConfig{
			Addr:           "127.0.0.1:7878",
			Path:           "/input",
			MaxMessageSize: 64 << 10,
			WriteTimeout:   Duration(5 * time.Second),
			PingInterval:   Duration(30 * time.Second),
			SendBuffer:     64,
		},
	}
}

// Load reads path over the defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			pe.Path = path
		}
		return nil, err
	}
	return cfg, nil
}

// Parse decodes TOML over the defaults and validates the result. Unknown
// keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, newParseError(err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newParseError(err error) *ParseError {
	pe := &ParseError{Path: "<data>", Message: err.Error(), Err: err}
	var derr *toml.DecodeError
	var serr *toml.StrictMissingError
	switch {
	case errors.As(err, &derr):
		pe.Line, pe.Column = derr.Position()
	case errors.As(err, &serr) && len(serr.Errors) > 0:
		pe.Line, pe.Column = serr.Errors[0].Position()
		pe.Message = "unknown key " + strings.Join(serr.Errors[0].Key(), ".")
	}
	return pe
}

// Validate checks ranges and references. All problems are returned.
func (c *Config) Validate() error {
	var errs []error
	fail := func(field, format string, args ...any) {
		errs = append(errs, &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "warning", "error", "off", "none":
	default:
		fail("log.level", "unknown level %q", c.Log.Level)
	}

	if c.Router.QueueSize <= 0 {
		fail("router.queue_size", "must be positive")
	}
	layers := c.RouterConfig().Layers
	if !hasLayer(layers, c.Router.TargetLayer) {
		fail("router.target_layer", "no layer named %q", c.Router.TargetLayer)
	}
	seen := make(map[string]bool)
	for i, l := range c.Layers {
		if l.Name == "" {
			fail(fmt.Sprintf("layers[%d].name", i), "must not be empty")
		} else if seen[l.Name] {
			fail(fmt.Sprintf("layers[%d].name", i), "duplicate layer %q", l.Name)
		}
		seen[l.Name] = true
	}

	if c.Mouse.DragThreshold < 0 {
		fail("mouse.drag_threshold", "must be >= 0")
	}
	if c.Mouse.HoldDuration < 0 || c.Mouse.DoubleClickTime < 0 {
		fail("mouse", "durations must be >= 0")
	}
	if c.Touch.TapMaxDuration <= 0 || c.Touch.LongPressDuration <= 0 || c.Touch.SwipeMaxDuration <= 0 {
		fail("touch", "durations must be positive")
	}
	if c.Touch.LongPressDuration.Std() <= c.Touch.TapMaxDuration.Std() {
		fail("touch.long_press_duration", "must exceed tap_max_duration")
	}
	if c.Touch.SwipeMinDistance <= c.Touch.MoveTolerance {
		fail("touch.swipe_min_distance", "must exceed move_tolerance")
	}

	if c.Scripts.Timeout <= 0 {
		fail("scripts.timeout", "must be positive")
	}

	if c.Remote.Enabled {
		if c.Remote.Addr == "" {
			fail("remote.addr", "required when remote is enabled")
		}
		if c.Remote.Path == "" || c.Remote.Path[0] != '/' {
			fail("remote.path", "must start with /")
		}
		if c.Remote.MaxMessageSize <= 0 {
			fail("remote.max_message_size", "must be positive")
		}
		if c.Remote.SendBuffer <= 0 {
			fail("remote.send_buffer", "must be positive")
		}
	}
	return errors.Join(errs...)
}

func hasLayer(layers []input.Layer, name string) bool {
	for _, l := range layers {
		if l.Name == name {
			return true
		}
	}
	return false
}

// LogLevel returns the parsed log level.
func (c *Config) LogLevel() logging.Level {
	return logging.ParseLevel(c.Log.Level)
}

// RouterConfig maps the router and layer sections onto input.Config.
func (c *Config) RouterConfig() input.Config {
	rc := input.DefaultConfig()
	rc.TargetLayer = c.Router.TargetLayer
	rc.GroundID = c.Router.GroundID
	if len(c.Layers) > 0 {
		rc.Layers = make([]input.Layer, 0, len(c.Layers))
		for _, l := range c.Layers {
			rc.Layers = append(rc.Layers, input.Layer{
				Name:     l.Name,
				Priority: l.Priority,
				Blocking: l.Blocking,
				Active:   l.Active,
			})
		}
	}
	return rc
}

// MouseConfig maps the mouse section onto mouse.Config.
func (c *Config) MouseConfig() mouse.Config {
	return mouse.Config{
		DragThreshold:       c.Mouse.DragThreshold,
		HoldDuration:        c.Mouse.HoldDuration.Std(),
		DoubleClickTime:     c.Mouse.DoubleClickTime.Std(),
		DoubleClickDistance: c.Mouse.DoubleClickDistance,
	}
}

// TouchConfig maps the touch section onto touch.Config.
func (c *Config) TouchConfig() touch.Config {
	return touch.Config{
		TapMaxDuration:    c.Touch.TapMaxDuration.Std(),
		MoveTolerance:     c.Touch.MoveTolerance,
		LongPressDuration: c.Touch.LongPressDuration.Std(),
		SwipeMaxDuration:  c.Touch.SwipeMaxDuration.Std(),
		SwipeMinDistance:  c.Touch.SwipeMinDistance,
	}
}

// KeyboardConfig maps the keyboard section onto keyboard.Config.
func (c *Config) KeyboardConfig() keyboard.Config {
	return keyboard.Config{GameKeys: append([]string(nil), c.Keyboard.GameKeys...)}
}

// RemoteConfig maps the remote section onto remote.Config.
func (c *Config) RemoteConfig() remote.Config {
	return remote.Config{
		Addr:           c.Remote.Addr,
		Path:           c.Remote.Path,
		AllowedOrigins: append([]string(nil), c.Remote.AllowedOrigins...),
		MaxMessageSize: c.Remote.MaxMessageSize,
		WriteTimeout:   c.Remote.WriteTimeout.Std(),
		PingInterval:   c.Remote.PingInterval.Std(),
		SendBuffer:     c.Remote.SendBuffer,
		Actions:        append([]string(nil), c.Remote.Actions...),
	}
}
