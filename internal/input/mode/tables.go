package mode

import (
	"github.com/dshills/spatialcms/internal/input"
	"github.com/dshills/spatialcms/internal/input/key"
	"github.com/dshills/spatialcms/internal/input/mouse"
	"github.com/dshills/spatialcms/internal/input/touch"
)

// Built-in context names.
const (
	Explore = "explore"
	Edit    = "edit"
	Inspect = "inspect"
)

// Names returns the built-in context names in cycle order.
func Names() []string {
	return []string{Explore, Edit, Inspect}
}

var (
	left  = mouse.ButtonLeft.InputID()
	right = mouse.ButtonRight.InputID()
	mid   = mouse.ButtonMiddle.InputID()
)

// wheelFilters smooths wheel ticks and drops trackpad noise.
var wheelFilters = input.FilterSpec{DeadZone: 1, Smoothing: 0.3}

// pinchFilters eases the scale response between frames. Camera zoom
// takes the raw pinch ratio as ActionZoomScale, kept apart from the pixel
// deltas of ActionZoom.
var pinchFilters = input.FilterSpec{Smoothing: 0.2}

func bind(in, action string) input.Binding {
	return input.NewBinding(in, action)
}

// movementBindings map the game keys to fixed-value movement axes. A
// released key resolves the fixed value to zero.
func movementBindings() []input.Binding {
	return []input.Binding{
		bind(key.CodeW, ActionMoveForward).WithValue(1),
		bind(key.CodeArrowUp, ActionMoveForward).WithValue(1),
		bind(key.CodeS, ActionMoveBackward).WithValue(1),
		bind(key.CodeArrowDown, ActionMoveBackward).WithValue(1),
		bind(key.CodeA, ActionMoveLeft).WithValue(1),
		bind(key.CodeArrowLeft, ActionMoveLeft).WithValue(1),
		bind(key.CodeD, ActionMoveRight).WithValue(1),
		bind(key.CodeArrowRight, ActionMoveRight).WithValue(1),
		bind(key.CodeE, ActionMoveUp).WithValue(1),
		bind(key.CodeQ, ActionMoveDown).WithValue(1),
		bind(key.CodeShiftLeft, ActionSpeedBoost).WithValue(1),
	}
}

// ExploreBindings is the walk-and-look table.
func ExploreBindings() []input.Binding {
	b := []input.Binding{
		bind(left, ActionFocusObject).On(input.StateDoubleClicked).When("target.object"),
		bind(left, ActionWalkTo).On(input.StateClicked, input.StateDoubleClicked).When("target.ground"),
		bind(left, ActionSelectObject).On(input.StateClicked).When("target.object"),
		bind(left, ActionClearSelection).On(input.StateClicked).When("target.none"),
		bind(left, ActionLookEnd).On(input.StateReleased),
		bind(mouse.ButtonLeft.HoldInputID(), ActionContextMenu).When("target.object"),
		bind(right, ActionContextMenu).On(input.StateClicked).When("target.object"),

		bind(mouse.InputMove, ActionLookAround).When("drag.left"),
		bind(mouse.InputMove, ActionOrbitCamera).When("drag.right"),
		bind(mouse.InputMove, ActionPanCamera).When("drag.middle"),
		bind(mouse.InputWheel, ActionZoom).WithFilters(wheelFilters),

		bind(touch.InputTap, ActionWalkTo).When("target.ground"),
		bind(touch.InputTap, ActionSelectObject).When("target.object"),
		bind(touch.InputLongPress, ActionContextMenu).When("target.object"),
		bind(touch.InputPan, ActionLookAround),
		bind(touch.InputPinch, ActionZoomScale),
		bind(touch.InputSwipe, ActionSwipe),

		bind(key.CodeSpace, ActionJump).On(input.StatePressed),
		bind(key.CodeF, ActionFocusObject).On(input.StatePressed).When("selection.any"),
		bind(key.CodeEscape, ActionClearSelection).On(input.StatePressed),
		bind(key.CodeTab, ActionCycleMode).On(input.StatePressed),
		bind(key.CodeR, ActionResetCamera).On(input.StatePressed),
	}
	return append(b, movementBindings()...)
}

// EditBindings is the object manipulation table. Camera movement keys
// stay available.
func EditBindings() []input.Binding {
	b := []input.Binding{
		bind(left, ActionGrabObject).On(input.StatePressed).When("target.object"),
		bind(mouse.InputMove, ActionMoveObject).When("drag.left"),
		bind(left, ActionDropObject).On(input.StateReleased),
		bind(left, ActionSelectObject).On(input.StateClicked).When("target.object"),
		bind(left, ActionClearSelection).On(input.StateClicked).When("!target.object"),
		bind(right, ActionContextMenu).On(input.StateClicked).When("target.object"),

		bind(mouse.InputMove, ActionOrbitCamera).When("drag.right"),
		bind(mouse.InputMove, ActionPanCamera).When("drag.middle"),
		bind(mouse.InputWheel, ActionRotateSelection).WithModifiers(key.ModShift).When("selection.any").WithFilters(wheelFilters),
		bind(mouse.InputWheel, ActionZoom).WithFilters(wheelFilters),

		bind(touch.InputTap, ActionSelectObject).When("target.object"),
		bind(touch.InputTap, ActionClearSelection).When("!target.object"),
		bind(touch.InputPinch, ActionScaleSelection).When("selection.any").WithFilters(pinchFilters),
		bind(touch.InputPinch, ActionZoomScale),
		bind(touch.InputPan, ActionOrbitCamera),

		bind(key.CodeZ, ActionRedo).On(input.StatePressed).WithModifiers(key.ModCtrl | key.ModShift),
		bind(key.CodeZ, ActionUndo).On(input.StatePressed).WithModifiers(key.ModCtrl),
		bind(key.CodeY, ActionRedo).On(input.StatePressed).WithModifiers(key.ModCtrl),
		bind(key.CodeD, ActionDuplicate).On(input.StatePressed).WithModifiers(key.ModCtrl).When("selection.any"),
		bind(key.CodeDelete, ActionDeleteSelection).On(input.StatePressed).When("selection.any"),
		bind(key.CodeBackspace, ActionDeleteSelection).On(input.StatePressed).When("selection.any"),
		bind(key.CodeR, ActionRotateSelection).On(input.StatePressed, input.StateHeld).When("selection.any").WithValue(15),
		bind(key.CodeEscape, ActionExitMode).On(input.StatePressed),
		bind(key.CodeTab, ActionCycleMode).On(input.StatePressed),
	}
	return append(b, movementBindings()...)
}

// InspectBindings is the read-only table: orbit around and inspect.
func InspectBindings() []input.Binding {
	return []input.Binding{
		bind(left, ActionInspectObject).On(input.StateClicked, input.StateDoubleClicked).When("target.object"),
		bind(left, ActionCloseInspector).On(input.StateClicked).When("!target.object"),
		bind(mouse.InputMove, ActionOrbitCamera).When("drag.left"),
		bind(mouse.InputMove, ActionPanCamera).When("drag.right"),
		bind(mouse.InputWheel, ActionZoom).WithFilters(wheelFilters),

		bind(touch.InputTap, ActionInspectObject).When("target.object"),
		bind(touch.InputPan, ActionOrbitCamera),
		bind(touch.InputPinch, ActionZoomScale),

		bind(key.CodeEscape, ActionExitMode).On(input.StatePressed),
		bind(key.CodeTab, ActionCycleMode).On(input.StatePressed),
	}
}

// NewExplore returns the explore context.
func NewExplore(opts ...input.ContextOption) *input.BaseContext {
	opts = append([]input.ContextOption{input.WithDescription("walk, look and select")}, opts...)
	return input.NewContext(Explore, ExploreBindings(), opts...)
}

// NewEdit returns the edit context.
func NewEdit(opts ...input.ContextOption) *input.BaseContext {
	opts = append([]input.ContextOption{input.WithDescription("move, rotate and scale objects")}, opts...)
	return input.NewContext(Edit, EditBindings(), opts...)
}

// NewInspect returns the inspect context.
func NewInspect(opts ...input.ContextOption) *input.BaseContext {
	opts = append([]input.ContextOption{input.WithDescription("orbit and inspect without editing")}, opts...)
	return input.NewContext(Inspect, InspectBindings(), opts...)
}

// Defaults returns fresh instances of every built-in context.
func Defaults() []input.Context {
	return []input.Context{NewExplore(), NewEdit(), NewInspect()}
}
