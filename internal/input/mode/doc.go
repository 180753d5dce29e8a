// Package mode provides the built-in interaction modes of the spatial CMS
// and a manager for switching between them.
//
// A mode is an input.Context: an ordered binding table where the first
// matching binding wins. The built-in modes are:
//   - explore: walk with WASD, click the ground to walk there, drag to
//     look around, click objects to select them
//   - edit: grab and drag objects, undo/redo, delete, rotate and scale
//     the selection
//   - inspect: orbit the camera and open the inspector on objects
//
// # Switching
//
// Switching modes swaps the active table only. Disambiguation sessions
// inside the sources are not migrated, so a drag that starts in one mode
// and is released after a switch resolves its release under the new
// mode's bindings.
//
//	m := mode.NewManager(router)
//	_ = m.Switch(mode.Explore)
//	_ = m.Push(mode.Inspect) // temporary
//	_ = m.Pop()              // back to explore
package mode
