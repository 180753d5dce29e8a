// Package keymap loads binding tables from files and turns them into
// input contexts.
//
// A keymap file describes one context. YAML, JSON and TOML are accepted;
// the format is chosen by file extension.
//
//	name: explore
//	description: walk, look and select
//	bindings:
//	  - input: LeftClick
//	    action: walkTo
//	    on: [clicked, double-clicked]
//	    when: target.ground
//	  - input: MouseWheel
//	    action: zoom
//	    filters: {deadZone: 1, smoothing: 0.3, curve: quadratic}
//	  - input: KeyZ
//	    action: undo
//	    on: [pressed]
//	    modifiers: Ctrl
//
// A keymap may name another in "extends". Its own bindings are matched
// first, then the base keymap's, so a user file can override a handful
// of bindings of a built-in table without restating the rest.
//
// The Registry holds keymaps by name, resolves extends chains and
// applies the result to a router. The Watcher reloads files as they
// change and hands the parsed keymap to the input loop.
package keymap
