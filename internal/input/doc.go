// Package input is the input routing core of the spatial CMS.
//
// It turns raw hardware events (keyboard, mouse, touch) into mode-aware,
// disambiguated, filtered abstract actions that the rest of the application
// (camera control, selection, editing tools) subscribes to.
//
// # Architecture
//
// The package consists of several cooperating components:
//
//   - Source: standardizes one hardware channel into Events and forwards
//     them to the router while enabled (see subpackages keyboard, mouse, touch)
//   - Context: an ordered table of Bindings representing one interaction mode;
//     exactly one context is active at a time (see subpackage mode)
//   - Router: owns sources, contexts and priority layers, applies blocking
//     rules, resolves events against the active context, filters values and
//     publishes Actions
//   - Store: the last known state of every action, for polling consumers
//
// Data flows hardware -> Source -> Router.HandleInput -> Context.MapInputToAction
// -> Router.TriggerAction -> subscribers.
//
// # Threading
//
// The core is single-threaded and cooperative. Router, sources and contexts
// carry no locks; drive them from one goroutine. Loop provides such a
// goroutine together with a Scheduler whose timers fire on it. Only the Store
// may be read from other goroutines.
//
// # Usage
//
//	loop := input.NewLoop()
//	router := input.NewRouter(input.WithScheduler(loop.Scheduler()))
//	router.RegisterContext(mode.NewExplore())
//	_ = router.SetContext(mode.Explore)
//
//	router.Subscribe("walkTo", func(a input.Action) error {
//	    camera.WalkTo(a.Hit.WorldPoint)
//	    return nil
//	})
package input
