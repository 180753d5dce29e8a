package keymap

import (
	"fmt"

	"github.com/dshills/spatialcms/internal/input"
	"github.com/dshills/spatialcms/internal/input/key"
)

// Binding is the file form of an input.Binding.
type Binding struct {
	// Input is the input id ("KeyW", "LeftClick", "TouchPinch").
	Input string `yaml:"input" toml:"input"`

	// Action is the produced action name.
	Action string `yaml:"action" toml:"action"`

	// On lists accepted states by name ("pressed", "double-clicked").
	On []string `yaml:"on,omitempty" toml:"on,omitempty"`

	// Modifiers is a modifier expression such as "Ctrl+Shift".
	Modifiers string `yaml:"modifiers,omitempty" toml:"modifiers,omitempty"`

	// When is a condition expression ("target.ground", "!selection.any").
	When string `yaml:"when,omitempty" toml:"when,omitempty"`

	// Value is the fixed value used when the event carries none.
	Value *float64 `yaml:"value,omitempty" toml:"value,omitempty"`

	// Filters configures the value pipeline.
	Filters *Filters `yaml:"filters,omitempty" toml:"filters,omitempty"`

	Description string `yaml:"description,omitempty" toml:"description,omitempty"`
}

// Filters is the file form of input.FilterSpec.
type Filters struct {
	DeadZone  float64 `yaml:"deadZone,omitempty" toml:"deadZone,omitempty" json:"deadZone,omitempty"`
	Smoothing float64 `yaml:"smoothing,omitempty" toml:"smoothing,omitempty" json:"smoothing,omitempty"`
	Curve     string  `yaml:"curve,omitempty" toml:"curve,omitempty" json:"curve,omitempty"`
}

// Compile converts the file form into an input.Binding.
func (b Binding) Compile() (input.Binding, error) {
	out := input.NewBinding(b.Input, b.Action).WithDescription(b.Description)

	if len(b.On) > 0 {
		states := make([]input.State, 0, len(b.On))
		for _, name := range b.On {
			st, ok := input.ParseState(name)
			if !ok {
				return input.Binding{}, fmt.Errorf("unknown state %q", name)
			}
			states = append(states, st)
		}
		out = out.On(states...)
	}

	mods, err := key.ParseModifiers(b.Modifiers)
	if err != nil {
		return input.Binding{}, err
	}
	out = out.WithModifiers(mods)

	cond, err := input.ParseCondition(b.When)
	if err != nil {
		return input.Binding{}, err
	}
	out = out.WithCondition(cond)

	if b.Value != nil {
		out = out.WithValue(*b.Value)
	}
	if b.Filters != nil {
		out = out.WithFilters(input.FilterSpec{
			DeadZone:  b.Filters.DeadZone,
			Smoothing: b.Filters.Smoothing,
			Curve:     b.Filters.Curve,
		})
	}

	if err := out.Validate(); err != nil {
		return input.Binding{}, err
	}
	return out, nil
}

// FromBinding returns the file form of b.
func FromBinding(b input.Binding) Binding {
	out := Binding{
		Input:       b.Input,
		Action:      b.Action,
		Modifiers:   b.Modifiers.String(),
		When:        b.Condition.String(),
		Description: b.Description,
	}
	for _, st := range b.States {
		out.On = append(out.On, st.String())
	}
	if b.HasValue {
		v := b.Value
		out.Value = &v
	}
	if !b.Filters.IsZero() {
		out.Filters = &Filters{
			DeadZone:  b.Filters.DeadZone,
			Smoothing: b.Filters.Smoothing,
			Curve:     b.Filters.Curve,
		}
	}
	return out
}
