// Package mouse provides the pointer input source.
//
// Mouse disambiguates raw press, move and release callbacks into
// standardized events using timing and spatial heuristics only:
//
//   - Press opens a session, arms a hold timer and emits "<Button>Click"
//     pressed with a pick result taken at the press position.
//   - Movement within DragThreshold of the press position is swallowed.
//     The first move past it starts the drag, cancels the hold timer and
//     is forwarded as "MouseMove" with HeldButton and IsDragging set.
//   - The hold timer firing before release and before any drag emits
//     "<Button>Hold" held, once per session.
//   - Release after a drag emits "<Button>Click" released with WasDragging.
//     Otherwise it emits clicked, or double-clicked when the previous click
//     of the same button is inside DoubleClickTime. The two are mutually
//     exclusive.
//   - Wheel ticks are forwarded immediately as "MouseWheel" scrolled.
//
// Session state is reset at the end of every release, on Cancel and on
// Dispose, so no disambiguation state outlives its press/release pair.
//
// # Thread Safety
//
// Mouse is not safe for concurrent use. Drive it, and the Scheduler its
// timers fire on, from the goroutine that runs the router.
package mouse
