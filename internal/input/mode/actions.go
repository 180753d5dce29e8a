package mode

// Action names produced by the built-in tables.
const (
	ActionMoveForward  = "moveForward"
	ActionMoveBackward = "moveBackward"
	ActionMoveLeft     = "moveLeft"
	ActionMoveRight    = "moveRight"
	ActionMoveUp       = "moveUp"
	ActionMoveDown     = "moveDown"
	ActionJump         = "jump"

	ActionWalkTo         = "walkTo"
	ActionSelectObject   = "selectObject"
	ActionClearSelection = "clearSelection"
	ActionFocusObject    = "focusObject"
	ActionContextMenu    = "showContextMenu"

	ActionLookAround   = "lookAround"
	ActionLookEnd      = "lookEnd"
	ActionOrbitCamera  = "orbitCamera"
	ActionPanCamera    = "panCamera"
	ActionZoom         = "zoom"
	ActionZoomScale    = "zoomScale"
	ActionSwipe        = "swipe"
	ActionCycleMode    = "cycleMode"
	ActionExitMode     = "exitMode"
	ActionSpeedBoost   = "speedBoost"
	ActionResetCamera  = "resetCamera"

	ActionGrabObject      = "grabObject"
	ActionMoveObject      = "moveObject"
	ActionDropObject      = "dropObject"
	ActionDeleteSelection = "deleteSelection"
	ActionDuplicate       = "duplicateSelection"
	ActionRotateSelection = "rotateSelection"
	ActionScaleSelection  = "scaleSelection"
	ActionUndo            = "undo"
	ActionRedo            = "redo"

	ActionInspectObject  = "inspectObject"
	ActionCloseInspector = "closeInspector"
)
