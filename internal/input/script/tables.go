package script

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/spatialcms/internal/input"
)

// eventTable exposes an event to Lua:
//
//	ev.input, ev.state, ev.source, ev.value, ev.x, ev.y, ev.dx, ev.dy,
//	ev.button, ev.dragging, ev.pointer, ev.direction,
//	ev.mods.ctrl/shift/alt/meta,
//	ev.hit.target, ev.hit.x/y/z, ev.hit.distance
//
// Absent optional fields are nil.
func eventTable(L *lua.LState, ev input.Event) *lua.LTable {
	t := L.CreateTable(0, 16)
	t.RawSetString("input", lua.LString(ev.InputID))
	t.RawSetString("state", lua.LString(ev.State.String()))
	t.RawSetString("source", lua.LString(ev.SourceName))
	if ev.HasValue {
		t.RawSetString("value", lua.LNumber(ev.Value))
	}
	if ev.HasPosition {
		t.RawSetString("x", lua.LNumber(ev.Position.X))
		t.RawSetString("y", lua.LNumber(ev.Position.Y))
	}
	t.RawSetString("dx", lua.LNumber(ev.Delta.X))
	t.RawSetString("dy", lua.LNumber(ev.Delta.Y))
	if ev.HeldButton != "" {
		t.RawSetString("button", lua.LString(ev.HeldButton))
	}
	t.RawSetString("dragging", lua.LBool(ev.IsDragging))
	t.RawSetString("pointer", lua.LNumber(ev.PointerID))
	if ev.Direction != input.DirNone {
		t.RawSetString("direction", lua.LString(ev.Direction.String()))
	}

	mods := L.CreateTable(0, 4)
	mods.RawSetString("ctrl", lua.LBool(ev.Modifiers.HasCtrl()))
	mods.RawSetString("shift", lua.LBool(ev.Modifiers.HasShift()))
	mods.RawSetString("alt", lua.LBool(ev.Modifiers.HasAlt()))
	mods.RawSetString("meta", lua.LBool(ev.Modifiers.HasMeta()))
	t.RawSetString("mods", mods)

	if ev.Hit != nil && ev.Hit.Hit {
		hit := L.CreateTable(0, 5)
		hit.RawSetString("target", lua.LString(ev.Hit.TargetID))
		hit.RawSetString("x", lua.LNumber(ev.Hit.WorldPoint.X))
		hit.RawSetString("y", lua.LNumber(ev.Hit.WorldPoint.Y))
		hit.RawSetString("z", lua.LNumber(ev.Hit.WorldPoint.Z))
		hit.RawSetString("distance", lua.LNumber(ev.Hit.Distance))
		t.RawSetString("hit", hit)
	}
	return t
}

// evalTable exposes the evaluation context: ctx.ground, ctx.selection
// and ctx.context.
func evalTable(L *lua.LState, ec *input.EvaluationContext) *lua.LTable {
	t := L.CreateTable(0, 3)
	if ec == nil {
		t.RawSetString("ground", lua.LString(input.DefaultGroundID))
		t.RawSetString("selection", lua.LNumber(0))
		return t
	}
	ground := ec.GroundID
	if ground == "" {
		ground = input.DefaultGroundID
	}
	t.RawSetString("ground", lua.LString(ground))
	t.RawSetString("selection", lua.LNumber(ec.SelectionCount))
	t.RawSetString("context", lua.LString(ec.ActiveContext))
	return t
}
