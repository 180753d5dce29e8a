package input

import (
	"fmt"

	"github.com/dshills/spatialcms/internal/input/key"
)

// Binding maps one standardized input to one action name.
// Bindings are immutable once their context is constructed.
type Binding struct {
	// Input is the input id to match ("KeyW", "LeftClick", "TouchPinch").
	Input string

	// Action is the abstract action name produced on match.
	Action string

	// States restricts the event states this binding accepts.
	// Empty accepts every state.
	States []State

	// Modifiers lists modifiers that must all be held.
	Modifiers key.Modifier

	// Condition is an optional guard evaluated last.
	Condition Condition

	// Value is a fixed value used when the event carries none.
	// Released events resolve it to zero.
	Value    float64
	HasValue bool

	// Filters configures the router's value pipeline for this action.
	Filters FilterSpec

	// Description documents the binding.
	Description string
}

// NewBinding creates a binding from input to action.
func NewBinding(input, action string) Binding {
	return Binding{Input: input, Action: action}
}

// On restricts the binding to the given states.
func (b Binding) On(states ...State) Binding {
	b.States = append([]State(nil), states...)
	return b
}

// WithModifiers requires the given modifiers.
func (b Binding) WithModifiers(mods key.Modifier) Binding {
	b.Modifiers = mods
	return b
}

// When sets the condition from an expression. It panics on a malformed
// expression, which is a programming error in a static table.
func (b Binding) When(expr string) Binding {
	b.Condition = MustParseCondition(expr)
	return b
}

// WithCondition sets a parsed condition.
func (b Binding) WithCondition(c Condition) Binding {
	b.Condition = c
	return b
}

// WithValue sets the fixed value.
func (b Binding) WithValue(v float64) Binding {
	b.Value = v
	b.HasValue = true
	return b
}

// WithFilters sets the value filters.
func (b Binding) WithFilters(f FilterSpec) Binding {
	b.Filters = f
	return b
}

// WithDescription sets the description.
func (b Binding) WithDescription(desc string) Binding {
	b.Description = desc
	return b
}

// Validate checks that the binding can ever match.
func (b Binding) Validate() error {
	if b.Input == "" {
		return fmt.Errorf("binding for action %q: empty input", b.Action)
	}
	if b.Action == "" {
		return fmt.Errorf("binding for input %q: empty action", b.Input)
	}
	if b.Action == AnyAction {
		return fmt.Errorf("binding for input %q: action name %q is reserved", b.Input, AnyAction)
	}
	if err := b.Filters.Validate(); err != nil {
		return fmt.Errorf("binding %s -> %s: %w", b.Input, b.Action, err)
	}
	return nil
}

// Match reports whether ev satisfies the binding: input equality, then
// state, then required modifiers, then the condition.
func (b Binding) Match(ev Event, ec *EvaluationContext) bool {
	if ev.InputID != b.Input {
		return false
	}
	if len(b.States) > 0 && !containsState(b.States, ev.State) {
		return false
	}
	if !ev.Modifiers.Includes(b.Modifiers) {
		return false
	}
	return b.Condition.Evaluate(ev, ec)
}

// Resolve builds the action for a matched event.
func (b Binding) Resolve(ev Event) Action {
	a := ActionFromEvent(b.Action, ev)
	if !a.HasValue && b.HasValue {
		a.HasValue = true
		a.Value = b.Value
		if ev.State == StateReleased {
			a.Value = 0
		}
	}
	a.Filters = b.Filters
	return a
}

func containsState(states []State, s State) bool {
	for _, st := range states {
		if st == s {
			return true
		}
	}
	return false
}
