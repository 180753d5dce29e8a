package keymap

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"gopkg.in/yaml.v3"

	"github.com/dshills/spatialcms/internal/logging"
)

// Format is a keymap file encoding.
type Format uint8

const (
	FormatUnknown Format = iota
	FormatYAML
	FormatJSON
	FormatTOML
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatYAML:
		return "yaml"
	case FormatJSON:
		return "json"
	case FormatTOML:
		return "toml"
	default:
		return "unknown"
	}
}

// FormatForPath picks the format from a file extension.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".json":
		return FormatJSON
	case ".toml":
		return FormatTOML
	default:
		return FormatUnknown
	}
}

// IsKeymapFile reports whether path has a keymap extension.
func IsKeymapFile(path string) bool {
	return FormatForPath(path) != FormatUnknown
}

// Loader reads keymap files.
type Loader struct {
	searchPaths []string
	logger      logging.Logger
}

// NewLoader creates a loader.
func NewLoader(logger logging.Logger) *Loader {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Loader{logger: logger.WithComponent("keymap")}
}

// AddSearchPath adds a directory scanned by LoadAll.
func (l *Loader) AddSearchPath(dir string) {
	l.searchPaths = append(l.searchPaths, dir)
}

// SearchPaths returns the configured directories.
func (l *Loader) SearchPaths() []string {
	return append([]string(nil), l.searchPaths...)
}

// LoadFile reads and decodes one file. Errors are *LoadError.
func (l *Loader) LoadFile(path string) (*Keymap, error) {
	format := FormatForPath(path)
	if format == FormatUnknown {
		return nil, &LoadError{Path: path, Err: ErrUnknownFormat}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	km, err := Decode(data, format)
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			le.Path = path
			return nil, le
		}
		return nil, &LoadError{Path: path, Err: err}
	}
	km.Source = path
	return km, nil
}

// LoadAll loads every keymap file in the search paths, in directory then
// file name order. Files that fail are logged and skipped; their errors
// are returned joined alongside the keymaps that loaded.
func (l *Loader) LoadAll() ([]*Keymap, error) {
	var (
		keymaps []*Keymap
		errs    []error
	)
	for _, dir := range l.searchPaths {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			errs = append(errs, &LoadError{Path: dir, Err: err})
			continue
		}
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			if !e.IsDir() && IsKeymapFile(e.Name()) {
				names = append(names, e.Name())
			}
		}
		sort.Strings(names)

		for _, name := range names {
			km, err := l.LoadFile(filepath.Join(dir, name))
			if err != nil {
				l.logger.Warn("skipping keymap: %v", err)
				errs = append(errs, err)
				continue
			}
			keymaps = append(keymaps, km)
		}
	}
	return keymaps, errors.Join(errs...)
}

// LoadAndRegister loads the search paths into registry. Keymaps that
// load are registered even when others fail.
func (l *Loader) LoadAndRegister(registry *Registry) error {
	keymaps, loadErr := l.LoadAll()
	errs := []error{loadErr}
	for _, km := range keymaps {
		if err := registry.Register(km); err != nil {
			l.logger.Warn("keymap %s rejected: %v", km.Source, err)
			errs = append(errs, &LoadError{Path: km.Source, Err: err})
		}
	}
	return errors.Join(errs...)
}

// Decode parses data in the given format and validates the result.
func Decode(data []byte, format Format) (*Keymap, error) {
	var (
		km  *Keymap
		err error
	)
	switch format {
	case FormatYAML:
		km, err = decodeYAML(data)
	case FormatJSON:
		km, err = decodeJSON(data)
	case FormatTOML:
		km, err = decodeTOML(data)
	default:
		return nil, &LoadError{Err: ErrUnknownFormat}
	}
	if err != nil {
		return nil, err
	}
	if err := km.Validate(); err != nil {
		return nil, &LoadError{Err: err}
	}
	return km, nil
}

var yamlLine = regexp.MustCompile(`line (\d+)`)

func decodeYAML(data []byte) (*Keymap, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var km Keymap
	if err := dec.Decode(&km); err != nil {
		le := &LoadError{Err: err}
		if m := yamlLine.FindStringSubmatch(err.Error()); m != nil {
			le.Line, _ = strconv.Atoi(m[1])
		}
		return nil, le
	}
	return &km, nil
}

func decodeTOML(data []byte) (*Keymap, error) {
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var km Keymap
	if err := dec.Decode(&km); err != nil {
		le := &LoadError{Err: err}
		var derr *toml.DecodeError
		var serr *toml.StrictMissingError
		switch {
		case errors.As(err, &derr):
			le.Line, _ = derr.Position()
		case errors.As(err, &serr) && len(serr.Errors) > 0:
			le.Line, _ = serr.Errors[0].Position()
		}
		return nil, le
	}
	return &km, nil
}

// decodeJSON reads JSON leniently: "on" and "modifiers" accept a string
// or an array, and "states" and "condition" are accepted as aliases of
// "on" and "when".
func decodeJSON(data []byte) (*Keymap, error) {
	if !gjson.ValidBytes(data) {
		return nil, &LoadError{Err: errors.New("malformed JSON")}
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, &LoadError{Err: errors.New("keymap must be a JSON object")}
	}

	km := &Keymap{
		Name:        root.Get("name").String(),
		Description: root.Get("description").String(),
		Extends:     root.Get("extends").String(),
	}

	var err error
	root.Get("bindings").ForEach(func(idx, b gjson.Result) bool {
		if !b.IsObject() {
			err = fmt.Errorf("binding %d is not an object", idx.Int())
			return false
		}
		binding := Binding{
			Input:       b.Get("input").String(),
			Action:      b.Get("action").String(),
			When:        first(b, "when", "condition").String(),
			Description: b.Get("description").String(),
			On:          stringList(first(b, "on", "states")),
		}
		if mods := stringList(b.Get("modifiers")); len(mods) > 0 {
			binding.Modifiers = strings.Join(mods, "+")
		}
		if v := b.Get("value"); v.Exists() {
			if v.Type != gjson.Number {
				err = fmt.Errorf("binding %d: value must be a number", idx.Int())
				return false
			}
			f := v.Float()
			binding.Value = &f
		}
		if f := b.Get("filters"); f.IsObject() {
			binding.Filters = &Filters{
				DeadZone:  first(f, "deadZone", "dead_zone").Float(),
				Smoothing: f.Get("smoothing").Float(),
				Curve:     f.Get("curve").String(),
			}
		}
		km.Bindings = append(km.Bindings, binding)
		return true
	})
	if err != nil {
		return nil, &LoadError{Err: err}
	}
	return km, nil
}

func first(r gjson.Result, keys ...string) gjson.Result {
	for _, k := range keys {
		if v := r.Get(k); v.Exists() {
			return v
		}
	}
	return gjson.Result{}
}

func stringList(r gjson.Result) []string {
	if !r.Exists() {
		return nil
	}
	if !r.IsArray() {
		if s := strings.TrimSpace(r.String()); s != "" {
			return []string{s}
		}
		return nil
	}
	var out []string
	for _, v := range r.Array() {
		out = append(out, v.String())
	}
	return out
}

// Encode renders km in the given format.
func Encode(km *Keymap, format Format) ([]byte, error) {
	switch format {
	case FormatYAML:
		return yaml.Marshal(km)
	case FormatTOML:
		return toml.Marshal(km)
	case FormatJSON:
		return encodeJSON(km)
	default:
		return nil, ErrUnknownFormat
	}
}

func encodeJSON(km *Keymap) ([]byte, error) {
	out := []byte(`{}`)
	set := func(path string, v any) (err error) {
		out, err = sjson.SetBytes(out, path, v)
		return err
	}

	if err := set("name", km.Name); err != nil {
		return nil, err
	}
	if km.Description != "" {
		if err := set("description", km.Description); err != nil {
			return nil, err
		}
	}
	if km.Extends != "" {
		if err := set("extends", km.Extends); err != nil {
			return nil, err
		}
	}
	if err := set("bindings", []any{}); err != nil {
		return nil, err
	}

	for i, b := range km.Bindings {
		prefix := "bindings." + strconv.Itoa(i) + "."
		fields := []struct {
			key  string
			val  any
			skip bool
		}{
			{"input", b.Input, false},
			{"action", b.Action, false},
			{"on", b.On, len(b.On) == 0},
			{"modifiers", b.Modifiers, b.Modifiers == ""},
			{"when", b.When, b.When == ""},
			{"value", b.Value, b.Value == nil},
			{"filters", b.Filters, b.Filters == nil},
			{"description", b.Description, b.Description == ""},
		}
		for _, f := range fields {
			if f.skip {
				continue
			}
			if err := set(prefix+f.key, f.val); err != nil {
				return nil, fmt.Errorf("binding %d %s: %w", i, f.key, err)
			}
		}
	}
	return out, nil
}

// SaveFile writes km to path in the format implied by its extension.
func SaveFile(km *Keymap, path string) error {
	format := FormatForPath(path)
	data, err := Encode(km, format)
	if err != nil {
		return fmt.Errorf("encoding keymap %q: %w", km.Name, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing keymap file: %w", err)
	}
	return nil
}
