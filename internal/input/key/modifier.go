package key

import (
	"fmt"
	"strings"
)

// Modifier represents keyboard modifier keys.
type Modifier uint8

const (
	// ModNone indicates no modifiers.
	ModNone Modifier = 0

	// ModShift indicates the Shift key.
	ModShift Modifier = 1 << iota

	// ModCtrl indicates the Control key.
	ModCtrl

	// ModAlt indicates the Alt key (Option on macOS).
	ModAlt

	// ModMeta indicates the Meta key (Cmd on macOS, Win on Windows).
	ModMeta
)

// modAll is the set of defined modifier bits.
const modAll = ModShift | ModCtrl | ModAlt | ModMeta

// Has returns true if m contains the specified modifier.
func (m Modifier) Has(mod Modifier) bool {
	return m&mod != 0
}

// Includes returns true if every modifier in required is also in m.
func (m Modifier) Includes(required Modifier) bool {
	return m&required == required
}

// HasShift returns true if Shift is pressed.
func (m Modifier) HasShift() bool {
	return m.Has(ModShift)
}

// HasCtrl returns true if Control is pressed.
func (m Modifier) HasCtrl() bool {
	return m.Has(ModCtrl)
}

// HasAlt returns true if Alt is pressed.
func (m Modifier) HasAlt() bool {
	return m.Has(ModAlt)
}

// HasMeta returns true if Meta is pressed.
func (m Modifier) HasMeta() bool {
	return m.Has(ModMeta)
}

// With returns a new Modifier with the specified modifier added.
func (m Modifier) With(mod Modifier) Modifier {
	return m | mod
}

// Without returns a new Modifier with the specified modifier removed.
func (m Modifier) Without(mod Modifier) Modifier {
	return m &^ mod
}

// IsEmpty returns true if no modifiers are set.
func (m Modifier) IsEmpty() bool {
	return m == ModNone
}

// Sanitize clears undefined bits. Hardware adapters pass raw masks through it.
func (m Modifier) Sanitize() Modifier {
	return m & modAll
}

// String returns a human-readable representation like "Ctrl+Alt".
func (m Modifier) String() string {
	if m == ModNone {
		return ""
	}

	var parts []string
	if m.HasCtrl() {
		parts = append(parts, "Ctrl")
	}
	if m.HasAlt() {
		parts = append(parts, "Alt")
	}
	if m.HasShift() {
		parts = append(parts, "Shift")
	}
	if m.HasMeta() {
		parts = append(parts, "Meta")
	}
	return strings.Join(parts, "+")
}

// FromFlags builds a Modifier from individual flags, the shape most
// platform event structs expose.
func FromFlags(ctrl, shift, alt, meta bool) Modifier {
	var m Modifier
	if ctrl {
		m |= ModCtrl
	}
	if shift {
		m |= ModShift
	}
	if alt {
		m |= ModAlt
	}
	if meta {
		m |= ModMeta
	}
	return m
}

// modifierNameMap maps modifier names (lowercase) to Modifier values.
var modifierNameMap = map[string]Modifier{
	"ctrl":    ModCtrl,
	"control": ModCtrl,
	"alt":     ModAlt,
	"option":  ModAlt,
	"opt":     ModAlt,
	"shift":   ModShift,
	"meta":    ModMeta,
	"cmd":     ModMeta,
	"command": ModMeta,
	"win":     ModMeta,
	"super":   ModMeta,
}

// ModifierFromName returns the Modifier for a given name (case-insensitive).
// Returns ModNone if the name is not recognized.
func ModifierFromName(name string) Modifier {
	if m, ok := modifierNameMap[strings.ToLower(strings.TrimSpace(name))]; ok {
		return m
	}
	return ModNone
}

// ParseModifiers parses a modifier string like "Ctrl+Shift".
// An empty string yields ModNone.
func ParseModifiers(s string) (Modifier, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ModNone, nil
	}

	var result Modifier
	for _, part := range strings.Split(s, "+") {
		mod := ModifierFromName(part)
		if mod == ModNone {
			return ModNone, fmt.Errorf("unknown modifier %q", strings.TrimSpace(part))
		}
		result = result.With(mod)
	}
	return result, nil
}

// ParseModifierList combines a list of modifier names.
func ParseModifierList(names []string) (Modifier, error) {
	var result Modifier
	for _, name := range names {
		mod, err := ParseModifiers(name)
		if err != nil {
			return ModNone, err
		}
		result = result.With(mod)
	}
	return result, nil
}
