// Package key defines physical key codes and modifier state for the input core.
//
// Key codes are stable symbolic names of physical keys ("KeyW", "Space",
// "ArrowUp", "Digit1"). They are what the keyboard source reports as an
// event's input id, so bindings can be written against physical positions
// independently of the active keyboard layout.
//
// Modifier is a bitmask of Ctrl, Shift, Alt and Meta carried by every
// standardized event and optionally required by bindings.
package key
