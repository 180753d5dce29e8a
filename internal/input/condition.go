package input

import (
	"fmt"
	"strings"
)

// ConditionKind enumerates the built-in binding conditions.
type ConditionKind uint8

const (
	// CondNone always matches.
	CondNone ConditionKind = iota
	// CondTargetGround matches when the pick hit the ground plane.
	CondTargetGround
	// CondTargetObject matches when the pick hit something other than the ground.
	CondTargetObject
	// CondNothingHit matches when the pick hit nothing, or no pick was taken.
	CondNothingHit
	// CondHasSelection matches when at least one object is selected.
	CondHasSelection
	// CondNoSelection matches when nothing is selected.
	CondNoSelection
	// CondButtonDrag matches when Button is held and a drag is in progress.
	CondButtonDrag
	// CondCustom delegates to a host-registered predicate called Name.
	CondCustom
)

// String returns the kind name.
func (k ConditionKind) String() string {
	switch k {
	case CondNone:
		return "none"
	case CondTargetGround:
		return "target.ground"
	case CondTargetObject:
		return "target.object"
	case CondNothingHit:
		return "target.none"
	case CondHasSelection:
		return "selection.any"
	case CondNoSelection:
		return "selection.none"
	case CondButtonDrag:
		return "drag"
	case CondCustom:
		return "custom"
	default:
		return "unknown"
	}
}

// Condition guards a binding.
type Condition struct {
	Kind ConditionKind

	// Button is the held button for CondButtonDrag ("Left", "Right", "Middle").
	Button string

	// Name is the predicate name for CondCustom.
	Name string

	// Negate inverts the result.
	Negate bool
}

// Predicate is a host-defined condition.
type Predicate func(ev Event, ec *EvaluationContext) bool

// DefaultGroundID is the target id of the ground plane unless configured.
const DefaultGroundID = "ground"

// EvaluationContext carries everything condition predicates may read.
// It is built by the router for every event, so contexts stay pure
// functions of (event, evaluation context).
type EvaluationContext struct {
	// GroundID is the target id that counts as the ground plane.
	GroundID string

	// SelectionCount is the number of selected objects.
	SelectionCount int

	// ActiveContext is the name of the context being evaluated.
	ActiveContext string

	// Predicates holds host-defined conditions by name.
	Predicates map[string]Predicate
}

// SelectionProvider supplies selection state to the evaluation context.
type SelectionProvider interface {
	SelectionCount() int
}

// SelectionFunc adapts a function to the SelectionProvider interface.
type SelectionFunc func() int

// SelectionCount calls f.
func (f SelectionFunc) SelectionCount() int {
	return f()
}

// ParseCondition parses a condition expression.
//
// Built-in names are "target.ground", "target.object", "target.none",
// "selection.any", "selection.none" and "drag.<button>". A leading "!"
// negates. Any other identifier refers to a host-registered predicate.
func ParseCondition(s string) (Condition, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Condition{}, nil
	}

	var c Condition
	if strings.HasPrefix(s, "!") {
		c.Negate = true
		s = strings.TrimSpace(s[1:])
		if s == "" {
			return Condition{}, fmt.Errorf("%w: bare negation", ErrInvalidCondition)
		}
	}

	switch s {
	case "target.ground":
		c.Kind = CondTargetGround
	case "target.object":
		c.Kind = CondTargetObject
	case "target.none":
		c.Kind = CondNothingHit
	case "selection.any":
		c.Kind = CondHasSelection
	case "selection.none":
		c.Kind = CondNoSelection
	default:
		if button, ok := strings.CutPrefix(s, "drag."); ok {
			button = normalizeButton(button)
			if button == "" {
				return Condition{}, fmt.Errorf("%w: %q has no button", ErrInvalidCondition, s)
			}
			c.Kind = CondButtonDrag
			c.Button = button
			break
		}
		if strings.ContainsAny(s, " \t") {
			return Condition{}, fmt.Errorf("%w: %q", ErrInvalidCondition, s)
		}
		c.Kind = CondCustom
		c.Name = s
	}
	return c, nil
}

// MustParseCondition is ParseCondition for static tables; it panics on error.
func MustParseCondition(s string) Condition {
	c, err := ParseCondition(s)
	if err != nil {
		panic(err)
	}
	return c
}

// String returns the expression form accepted by ParseCondition.
func (c Condition) String() string {
	var s string
	switch c.Kind {
	case CondNone:
		return ""
	case CondButtonDrag:
		s = "drag." + strings.ToLower(c.Button)
	case CondCustom:
		s = c.Name
	default:
		s = c.Kind.String()
	}
	if c.Negate {
		return "!" + s
	}
	return s
}

// IsZero reports whether the condition always matches.
func (c Condition) IsZero() bool {
	return c.Kind == CondNone
}

// Evaluate reports whether the condition holds for ev.
func (c Condition) Evaluate(ev Event, ec *EvaluationContext) bool {
	if c.Kind == CondNone {
		return true
	}
	result := c.evaluate(ev, ec)
	if c.Negate {
		return !result
	}
	return result
}

func (c Condition) evaluate(ev Event, ec *EvaluationContext) bool {
	ground := DefaultGroundID
	if ec != nil && ec.GroundID != "" {
		ground = ec.GroundID
	}
	hit := ev.Hit != nil && ev.Hit.Hit

	switch c.Kind {
	case CondTargetGround:
		return hit && ev.Hit.TargetID == ground
	case CondTargetObject:
		return hit && ev.Hit.TargetID != ground
	case CondNothingHit:
		return !hit
	case CondHasSelection:
		return ec != nil && ec.SelectionCount > 0
	case CondNoSelection:
		return ec == nil || ec.SelectionCount == 0
	case CondButtonDrag:
		return ev.IsDragging && strings.EqualFold(ev.HeldButton, c.Button)
	case CondCustom:
		if ec == nil || ec.Predicates == nil {
			return false
		}
		pred, ok := ec.Predicates[c.Name]
		if !ok || pred == nil {
			return false
		}
		return callPredicate(pred, ev, ec)
	default:
		return false
	}
}

// normalizeButton maps "left", "LEFT" and "Left" to "Left".
func normalizeButton(b string) string {
	b = strings.TrimSpace(b)
	if b == "" {
		return ""
	}
	return strings.ToUpper(b[:1]) + strings.ToLower(b[1:])
}

// callPredicate runs a host predicate, treating a panic as false.
func callPredicate(pred Predicate, ev Event, ec *EvaluationContext) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()
	return pred(ev, ec)
}
