package input

import (
	"math"
	"strings"
	"time"

	"github.com/chewxy/math32"

	"github.com/dshills/spatialcms/internal/input/key"
)

// State is the phase of a standardized input event.
type State uint8

const (
	// StateNone is the zero state of a malformed event.
	StateNone State = iota
	// StatePressed is the first frame of a button or key.
	StatePressed
	// StateHeld is a repeat of a key already down or a hold timer firing.
	StateHeld
	// StateReleased ends a press.
	StateReleased
	// StateMoved is continuous pointer or touch movement.
	StateMoved
	// StateScrolled is a wheel tick.
	StateScrolled
	// StateClicked is a press/release pair without drag.
	StateClicked
	// StateDoubleClicked is a second click inside the double-click window.
	StateDoubleClicked
	// StateStarted opens a continuous gesture.
	StateStarted
	// StateCompleted closes a gesture or classifies a discrete one.
	StateCompleted
	// StateChanged is an update of a continuous gesture value.
	StateChanged
)

var stateNames = [...]string{
	StateNone:          "none",
	StatePressed:       "pressed",
	StateHeld:          "held",
	StateReleased:      "released",
	StateMoved:         "moved",
	StateScrolled:      "scrolled",
	StateClicked:       "clicked",
	StateDoubleClicked: "double-clicked",
	StateStarted:       "started",
	StateCompleted:     "completed",
	StateChanged:       "changed",
}

// String returns the wire name of the state.
func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// ParseState parses a state name. It accepts "doubleclicked" and
// "double_clicked" as spellings of "double-clicked".
func ParseState(name string) (State, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.NewReplacer("_", "-").Replace(name)
	if name == "doubleclicked" {
		name = "double-clicked"
	}
	for i, n := range stateNames {
		if i != int(StateNone) && n == name {
			return State(i), true
		}
	}
	return StateNone, false
}

// IsActive reports whether an action in this state counts as currently
// engaged for IsActionActive polling.
func (s State) IsActive() bool {
	switch s {
	case StatePressed, StateHeld, StateStarted, StateChanged:
		return true
	}
	return false
}

// Direction represents a directional gesture.
type Direction uint8

const (
	// DirNone indicates no direction.
	DirNone Direction = iota
	// DirUp indicates upward direction (screen y decreasing).
	DirUp
	// DirDown indicates downward direction.
	DirDown
	// DirLeft indicates leftward direction.
	DirLeft
	// DirRight indicates rightward direction.
	DirRight
)

// String returns a string representation of the direction.
func (d Direction) String() string {
	switch d {
	case DirUp:
		return "up"
	case DirDown:
		return "down"
	case DirLeft:
		return "left"
	case DirRight:
		return "right"
	default:
		return "none"
	}
}

// Vec2 is a screen-space point or displacement in pixels.
type Vec2 struct {
	X float32
	Y float32
}

// V2 returns a Vec2.
func V2(x, y float32) Vec2 {
	return Vec2{X: x, Y: y}
}

// Sub returns v - o.
func (v Vec2) Sub(o Vec2) Vec2 {
	return Vec2{X: v.X - o.X, Y: v.Y - o.Y}
}

// Add returns v + o.
func (v Vec2) Add(o Vec2) Vec2 {
	return Vec2{X: v.X + o.X, Y: v.Y + o.Y}
}

// Length returns the Euclidean length of v.
func (v Vec2) Length() float32 {
	return math32.Sqrt(v.X*v.X + v.Y*v.Y)
}

// DistanceTo returns the Euclidean distance between v and o.
func (v Vec2) DistanceTo(o Vec2) float32 {
	return v.Sub(o).Length()
}

// Angle returns atan2(y, x) in radians.
func (v Vec2) Angle() float32 {
	return math32.Atan2(v.Y, v.X)
}

// IsFinite reports whether both components are finite numbers.
func (v Vec2) IsFinite() bool {
	return !math32.IsNaN(v.X) && !math32.IsInf(v.X, 0) &&
		!math32.IsNaN(v.Y) && !math32.IsInf(v.Y, 0)
}

// Vec3 is a world-space point.
type Vec3 struct {
	X float32
	Y float32
	Z float32
}

// HitResult is the outcome of a pick against the scene.
type HitResult struct {
	// Hit reports whether anything pickable was under the pointer.
	Hit bool

	// TargetID identifies the picked object.
	TargetID string

	// WorldPoint is the picked point in world coordinates.
	WorldPoint Vec3

	// Distance is the ray distance from the camera to WorldPoint.
	Distance float32
}

// Picker is the rendering collaborator that hit-tests screen coordinates.
type Picker interface {
	Pick(pos Vec2) HitResult
}

// PickerFunc adapts a function to the Picker interface.
type PickerFunc func(pos Vec2) HitResult

// Pick calls f(pos).
func (f PickerFunc) Pick(pos Vec2) HitResult {
	return f(pos)
}

// FocusProvider reports whether keyboard focus is on a text-editing element.
type FocusProvider interface {
	TextInputFocused() bool
}

// FocusFunc adapts a function to the FocusProvider interface.
type FocusFunc func() bool

// TextInputFocused calls f.
func (f FocusFunc) TextInputFocused() bool {
	return f()
}

// Event is a standardized input event produced by a Source.
// It lives for one router pass.
type Event struct {
	// SourceName is the producing source. Filled in by SendInput when empty.
	SourceName string

	// InputID is the stable symbolic name of the input ("KeyW", "LeftClick").
	InputID string

	// State is the phase of the input.
	State State

	// Value is an analog value (wheel delta, pinch scale) when HasValue is set.
	Value    float64
	HasValue bool

	// Position is the pointer position when HasPosition is set.
	Position    Vec2
	HasPosition bool

	// Delta is the movement since the last forwarded event.
	Delta Vec2

	// Modifiers is the modifier snapshot at the time of the event.
	Modifiers key.Modifier

	// Hit is the pick result when the source performed one.
	Hit *HitResult

	// HeldButton names the button held during a pointer move ("Left").
	HeldButton string

	// IsDragging is set on pointer moves past the drag threshold.
	IsDragging bool

	// WasDragging is set on the release that ends a drag.
	WasDragging bool

	// Direction is the bucketed direction of a swipe.
	Direction Direction

	// PointerID identifies the touch point for touch events.
	PointerID int

	// Timestamp is when the source observed the event.
	Timestamp time.Time
}

// WithValue returns a copy of the event carrying value v.
func (e Event) WithValue(v float64) Event {
	e.Value = v
	e.HasValue = true
	return e
}

// WithPosition returns a copy of the event carrying position p.
func (e Event) WithPosition(p Vec2) Event {
	e.Position = p
	e.HasPosition = true
	return e
}

// Normalize defensively repairs fields that hardware adapters may leave
// malformed. It never fails.
func (e Event) Normalize() Event {
	e.InputID = strings.TrimSpace(e.InputID)
	e.Modifiers = e.Modifiers.Sanitize()
	if e.HasPosition && !e.Position.IsFinite() {
		e.Position = Vec2{}
		e.HasPosition = false
	}
	if !e.Delta.IsFinite() {
		e.Delta = Vec2{}
	}
	if e.HasValue && (math.IsNaN(e.Value) || math.IsInf(e.Value, 0)) {
		e.Value = 0
		e.HasValue = false
	}
	return e
}

// Action is the mode-independent result of resolving an Event against a
// Binding. The router creates one per trigger.
type Action struct {
	// Name is the abstract action name ("walkTo", "moveForward").
	Name string

	// Value is the filtered analog value when HasValue is set.
	Value    float64
	HasValue bool

	// State is copied from the triggering event.
	State State

	// SourceName is the source that produced the triggering event.
	SourceName string

	// InputID is the input that matched.
	InputID string

	Position    Vec2
	HasPosition bool
	Delta       Vec2
	Hit         *HitResult
	Modifiers   key.Modifier
	HeldButton  string
	IsDragging  bool
	WasDragging bool
	Direction   Direction

	// Filters is the value pipeline configured on the matching binding.
	Filters FilterSpec
}

// ActionFromEvent builds the action for ev under the given name.
func ActionFromEvent(name string, ev Event) Action {
	return Action{
		Name:        name,
		Value:       ev.Value,
		HasValue:    ev.HasValue,
		State:       ev.State,
		SourceName:  ev.SourceName,
		InputID:     ev.InputID,
		Position:    ev.Position,
		HasPosition: ev.HasPosition,
		Delta:       ev.Delta,
		Hit:         ev.Hit,
		Modifiers:   ev.Modifiers,
		HeldButton:  ev.HeldButton,
		IsDragging:  ev.IsDragging,
		WasDragging: ev.WasDragging,
		Direction:   ev.Direction,
	}
}

// TargetID returns the picked target of the action, or "" if nothing was hit.
func (a Action) TargetID() string {
	if a.Hit == nil || !a.Hit.Hit {
		return ""
	}
	return a.Hit.TargetID
}
