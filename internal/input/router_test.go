package input_test

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/spatialcms/internal/input"
	"github.com/dshills/spatialcms/internal/input/inputtest"
	"github.com/dshills/spatialcms/internal/input/key"
)

func newTestRouter(t *testing.T, bindings ...input.Binding) (*input.Router, *inputtest.Clock) {
	t.Helper()
	clock := inputtest.NewClock()
	r := input.NewRouter(input.WithScheduler(clock))
	require.NoError(t, r.RegisterContext(input.NewContext("test", bindings)))
	require.NoError(t, r.SetContext("test"))
	return r, clock
}

func collect(t *testing.T, r *input.Router, name string) *[]input.Action {
	t.Helper()
	var got []input.Action
	_, err := r.Subscribe(name, func(a input.Action) error {
		got = append(got, a)
		return nil
	})
	require.NoError(t, err)
	return &got
}

func keyEvent(code string, state input.State) input.Event {
	return input.Event{InputID: code, State: state}
}

func TestRouterSetContext(t *testing.T) {
	r := input.NewRouter()
	var log []string
	a := input.NewContext("a", nil,
		input.OnActivate(func() { log = append(log, "a+") }),
		input.OnDeactivate(func() { log = append(log, "a-") }))
	b := input.NewContext("b", nil,
		input.OnActivate(func() { log = append(log, "b+") }))

	require.NoError(t, r.RegisterContext(a))
	require.NoError(t, r.RegisterContext(b))
	assert.Nil(t, r.ActiveContext())

	require.NoError(t, r.SetContext("a"))
	require.NoError(t, r.SetContext("b"))
	assert.Equal(t, "b", r.ActiveContextName())
	assert.Equal(t, []string{"a+", "a-", "b+"}, log)
	assert.Equal(t, []string{"a", "b"}, r.Contexts())
}

func TestRouterSetUnknownContextKeepsPrevious(t *testing.T) {
	r, _ := newTestRouter(t)

	err := r.SetContext("missing")
	assert.True(t, errors.Is(err, input.ErrUnknownContext))
	assert.Equal(t, "test", r.ActiveContextName())
	assert.Equal(t, uint64(1), r.Stats().ConfigErrors)
}

func TestRouterDuplicateRegistration(t *testing.T) {
	r, _ := newTestRouter(t)

	err := r.RegisterContext(input.NewContext("test", nil))
	assert.True(t, errors.Is(err, input.ErrDuplicateContext))

	require.NoError(t, r.RegisterSource(input.NewBaseSource("kb")))
	err = r.RegisterSource(input.NewBaseSource("kb"))
	assert.True(t, errors.Is(err, input.ErrDuplicateSource))
	assert.Equal(t, []string{"kb"}, r.Sources())

	_, ok := r.Source("nope")
	assert.False(t, ok)
}

func TestRouterReplaceActiveContext(t *testing.T) {
	r, _ := newTestRouter(t, input.NewBinding("KeyW", "old"))
	got := collect(t, r, input.AnyAction)

	require.NoError(t, r.ReplaceContext(input.NewContext("test", []input.Binding{input.NewBinding("KeyW", "new")})))
	r.HandleInput("keyboard", keyEvent("KeyW", input.StatePressed))

	require.Len(t, *got, 1)
	assert.Equal(t, "new", (*got)[0].Name)
}

func TestRouterHandleInputThroughSource(t *testing.T) {
	r, _ := newTestRouter(t, input.NewBinding("KeyW", "moveForward").WithValue(1))
	src := input.NewBaseSource("keyboard")
	require.NoError(t, r.RegisterSource(src))
	got := collect(t, r, "moveForward")

	src.SendInput(keyEvent("KeyW", input.StatePressed))
	require.Len(t, *got, 1)
	assert.Equal(t, "keyboard", (*got)[0].SourceName)
	assert.True(t, r.IsActionActive("moveForward"))
	assert.Equal(t, 1.0, r.ActionValue("moveForward"))

	src.SendInput(keyEvent("KeyW", input.StateReleased))
	assert.False(t, r.IsActionActive("moveForward"))
	assert.Equal(t, 0.0, r.ActionValue("moveForward"))

	state, ok := r.ActionState("moveForward")
	require.True(t, ok)
	assert.Equal(t, input.StateReleased, state)
}

func TestRouterUnmatchedIsSilent(t *testing.T) {
	r, _ := newTestRouter(t, input.NewBinding("KeyW", "moveForward"))
	got := collect(t, r, input.AnyAction)

	r.HandleInput("keyboard", keyEvent("KeyX", input.StatePressed))
	assert.Empty(t, *got)
	assert.Equal(t, uint64(1), r.Stats().EventsUnmatched)
	assert.Equal(t, 0, r.Store().Len())
}

func TestRouterNoActiveContext(t *testing.T) {
	r := input.NewRouter()
	r.HandleInput("keyboard", keyEvent("KeyW", input.StatePressed))
	assert.Equal(t, uint64(1), r.Stats().EventsUnmatched)
}

func TestRouterUILayerBlocksKeyW(t *testing.T) {
	r, _ := newTestRouter(t, input.NewBinding("KeyW", "moveForward").WithValue(1))
	got := collect(t, r, "moveForward")

	require.NoError(t, r.SetLayerActive(input.LayerUI, true))
	for i := 0; i < 3; i++ {
		r.HandleInput("keyboard", keyEvent("KeyW", input.StatePressed))
	}
	assert.Empty(t, *got)
	assert.Equal(t, uint64(3), r.Stats().EventsBlocked)

	require.NoError(t, r.SetLayerActive(input.LayerUI, false))
	r.HandleInput("keyboard", keyEvent("KeyW", input.StatePressed))
	assert.Len(t, *got, 1)
}

func TestRouterLayers(t *testing.T) {
	r := input.NewRouter()

	layers := r.Layers()
	require.Len(t, layers, 3)
	assert.Equal(t, input.LayerModal, layers[0].Name)
	assert.Equal(t, input.LayerScene, layers[2].Name)

	ev := keyEvent("KeyW", input.StatePressed)
	assert.False(t, r.IsBlocked(ev))

	require.NoError(t, r.SetLayerActive(input.LayerModal, true))
	assert.True(t, r.IsBlocked(ev))
	require.NoError(t, r.SetLayerActive(input.LayerModal, false))

	// The scene layer never blocks, even when active.
	require.NoError(t, r.SetLayerActive(input.LayerScene, true))
	assert.False(t, r.IsBlocked(ev))

	err := r.SetLayerActive("hud", true)
	assert.True(t, errors.Is(err, input.ErrUnknownLayer))
}

func TestRouterCustomLayerBelowTarget(t *testing.T) {
	r := input.NewRouter(
		input.WithLayers(
			input.Layer{Name: "ui", Blocking: true, Priority: 50},
			input.Layer{Name: "scene", Active: true, Priority: 10},
			input.Layer{Name: "background", Blocking: true, Priority: 0},
		),
	)
	require.NoError(t, r.SetLayerActive("background", true))
	assert.False(t, r.IsBlocked(input.Event{}))
}

func TestRouterTextFocusBlocks(t *testing.T) {
	focus := &inputtest.Focus{}
	r := input.NewRouter(input.WithFocus(focus))
	require.NoError(t, r.RegisterContext(input.NewContext("test", []input.Binding{input.NewBinding("KeyW", "moveForward")})))
	require.NoError(t, r.SetContext("test"))
	got := collect(t, r, "moveForward")

	focus.Text = true
	r.HandleInput("keyboard", keyEvent("KeyW", input.StatePressed))
	assert.Empty(t, *got)

	focus.Text = false
	r.HandleInput("keyboard", keyEvent("KeyW", input.StatePressed))
	assert.Len(t, *got, 1)
}

func TestRouterEmitOrder(t *testing.T) {
	r, _ := newTestRouter(t, input.NewBinding("KeyW", "moveForward"))
	var order []string
	_, err := r.SubscribeAll(func(input.Action) error {
		order = append(order, "any")
		return nil
	})
	require.NoError(t, err)
	_, err = r.Subscribe("moveForward", func(input.Action) error {
		order = append(order, "named")
		return nil
	})
	require.NoError(t, err)

	r.HandleInput("keyboard", keyEvent("KeyW", input.StatePressed))
	assert.Equal(t, []string{"named", "any"}, order)
}

func TestRouterSubscriberIsolation(t *testing.T) {
	r, _ := newTestRouter(t, input.NewBinding("KeyW", "moveForward"))

	calls := 0
	_, _ = r.Subscribe("moveForward", func(input.Action) error { panic("broken consumer") })
	_, _ = r.Subscribe("moveForward", func(input.Action) error { return errors.New("failed") })
	_, _ = r.Subscribe("moveForward", func(input.Action) error {
		calls++
		return nil
	})
	_, _ = r.SubscribeAll(func(input.Action) error {
		calls++
		return nil
	})

	assert.NotPanics(t, func() {
		r.HandleInput("keyboard", keyEvent("KeyW", input.StatePressed))
	})
	assert.Equal(t, 2, calls)
	assert.Equal(t, uint64(2), r.Stats().SubscriberFailures)
	assert.Equal(t, uint64(1), r.Stats().ActionsTotal)
}

func TestRouterUnsubscribe(t *testing.T) {
	r, _ := newTestRouter(t, input.NewBinding("KeyW", "moveForward"))
	calls := 0
	sub, err := r.Subscribe("moveForward", func(input.Action) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.NotEmpty(t, sub.ID())
	assert.Equal(t, 1, r.SubscriberCount("moveForward"))

	r.HandleInput("keyboard", keyEvent("KeyW", input.StatePressed))
	r.Unsubscribe(sub)
	r.Unsubscribe(sub)
	r.HandleInput("keyboard", keyEvent("KeyW", input.StatePressed))

	assert.Equal(t, 1, calls)
	assert.False(t, sub.IsActive())
	assert.Equal(t, 0, r.SubscriberCount("moveForward"))
}

func TestRouterUnsubscribeDuringEmit(t *testing.T) {
	r, _ := newTestRouter(t, input.NewBinding("KeyW", "moveForward"))
	var second *input.Subscription
	secondCalls := 0
	_, _ = r.Subscribe("moveForward", func(input.Action) error {
		second.Cancel()
		return nil
	})
	second, _ = r.Subscribe("moveForward", func(input.Action) error {
		secondCalls++
		return nil
	})

	r.HandleInput("keyboard", keyEvent("KeyW", input.StatePressed))
	assert.Equal(t, 0, secondCalls)
}

func TestRouterSubscribeErrors(t *testing.T) {
	r := input.NewRouter()
	_, err := r.Subscribe("x", nil)
	assert.True(t, errors.Is(err, input.ErrNilHandler))
	_, err = r.Subscribe("", func(input.Action) error { return nil })
	assert.Error(t, err)
}

func TestRouterDeadZoneDeliversZero(t *testing.T) {
	r, _ := newTestRouter(t,
		input.NewBinding("Axis", "look").WithFilters(input.FilterSpec{DeadZone: 0.2}))
	got := collect(t, r, "look")

	for _, v := range []float64{0.19, -0.19, 0.05, 0} {
		r.HandleInput("pad", input.Event{InputID: "Axis", State: input.StateChanged}.WithValue(v))
	}
	r.HandleInput("pad", input.Event{InputID: "Axis", State: input.StateChanged}.WithValue(0.5))

	require.Len(t, *got, 5)
	for _, a := range (*got)[:4] {
		assert.Equal(t, 0.0, a.Value)
		assert.True(t, a.HasValue)
	}
	assert.Equal(t, 0.5, (*got)[4].Value)
}

func TestRouterDeadZoneWinsOverSmoothing(t *testing.T) {
	r, _ := newTestRouter(t,
		input.NewBinding("Axis", "look").WithFilters(input.FilterSpec{DeadZone: 0.2, Smoothing: 0.5}))

	r.HandleInput("pad", input.Event{InputID: "Axis"}.WithValue(1))
	r.HandleInput("pad", input.Event{InputID: "Axis"}.WithValue(0.1))
	assert.Equal(t, 0.0, r.ActionValue("look"))
}

func TestRouterSmoothing(t *testing.T) {
	r, _ := newTestRouter(t,
		input.NewBinding("MouseWheel", "zoom").WithFilters(input.FilterSpec{Smoothing: 0.5}))

	r.HandleInput("mouse", input.Event{InputID: "MouseWheel"}.WithValue(100))
	assert.InDelta(t, 100, r.ActionValue("zoom"), 1e-9)

	r.HandleInput("mouse", input.Event{InputID: "MouseWheel"}.WithValue(0))
	assert.InDelta(t, 50, r.ActionValue("zoom"), 1e-9)

	r.HandleInput("mouse", input.Event{InputID: "MouseWheel"}.WithValue(50))
	assert.InDelta(t, 50, r.ActionValue("zoom"), 1e-9)
}

func TestRouterSmoothingRestartsWithGesture(t *testing.T) {
	r, _ := newTestRouter(t,
		input.NewBinding("Pinch", "scale").WithFilters(input.FilterSpec{Smoothing: 0.5}))

	pinch := func(state input.State, v float64) {
		r.HandleInput("touch", input.Event{InputID: "Pinch", State: state}.WithValue(v))
	}
	pinch(input.StateStarted, 1)
	pinch(input.StateChanged, 3)
	assert.InDelta(t, 2, r.ActionValue("scale"), 1e-9)

	pinch(input.StateStarted, 1)
	assert.InDelta(t, 1, r.ActionValue("scale"), 1e-9, "a new session starts unsmoothed")
	pinch(input.StateChanged, 2)
	assert.InDelta(t, 1.5, r.ActionValue("scale"), 1e-9)
}

func TestRouterResponseCurves(t *testing.T) {
	r, _ := newTestRouter(t,
		input.NewBinding("A", "quad").WithFilters(input.FilterSpec{Curve: input.CurveQuadratic}),
		input.NewBinding("B", "double").WithFilters(input.FilterSpec{Curve: "double"}),
		input.NewBinding("C", "unknown").WithFilters(input.FilterSpec{Curve: "nope"}),
		input.NewBinding("D", "bad").WithFilters(input.FilterSpec{Curve: "panics"}),
	)
	require.NoError(t, r.RegisterCurve("double", func(v float64) float64 { return v * 2 }))
	require.NoError(t, r.RegisterCurve("panics", func(float64) float64 { panic("x") }))
	assert.Error(t, r.RegisterCurve("", nil))

	send := func(id string, v float64) {
		r.HandleInput("pad", input.Event{InputID: id}.WithValue(v))
	}
	send("A", -0.5)
	send("B", 3)
	send("C", 0.7)
	send("D", 0.3)

	assert.Equal(t, -0.25, r.ActionValue("quad"))
	assert.Equal(t, 6.0, r.ActionValue("double"))
	assert.Equal(t, 0.7, r.ActionValue("unknown"))
	assert.Equal(t, 0.3, r.ActionValue("bad"))
}

func TestRouterRegisterPredicate(t *testing.T) {
	r, _ := newTestRouter(t,
		input.NewBinding("KeyL", "lock").When("editable"),
		input.NewBinding("KeyL", "denied"),
	)
	editable := false
	require.NoError(t, r.RegisterPredicate("editable", func(input.Event, *input.EvaluationContext) bool {
		return editable
	}))
	got := collect(t, r, input.AnyAction)

	r.HandleInput("keyboard", keyEvent("KeyL", input.StatePressed))
	editable = true
	r.HandleInput("keyboard", keyEvent("KeyL", input.StatePressed))

	require.Len(t, *got, 2)
	assert.Equal(t, "denied", (*got)[0].Name)
	assert.Equal(t, "lock", (*got)[1].Name)
}

func TestRouterSelectionCondition(t *testing.T) {
	count := 0
	r := input.NewRouter(input.WithSelection(input.SelectionFunc(func() int { return count })))
	require.NoError(t, r.RegisterContext(input.NewContext("test", []input.Binding{
		input.NewBinding("Delete", "deleteSelection").When("selection.any"),
	})))
	require.NoError(t, r.SetContext("test"))
	got := collect(t, r, "deleteSelection")

	r.HandleInput("keyboard", keyEvent("Delete", input.StatePressed))
	count = 3
	r.HandleInput("keyboard", keyEvent("Delete", input.StatePressed))
	assert.Len(t, *got, 1)
}

func TestRouterGroundID(t *testing.T) {
	r := input.NewRouter(input.WithGroundID("terrain"))
	require.NoError(t, r.RegisterContext(input.NewContext("test", []input.Binding{
		input.NewBinding("LeftClick", "walkTo").When("target.ground"),
	})))
	require.NoError(t, r.SetContext("test"))
	got := collect(t, r, "walkTo")

	r.HandleInput("mouse", input.Event{InputID: "LeftClick", Hit: &input.HitResult{Hit: true, TargetID: "ground"}})
	r.HandleInput("mouse", input.Event{InputID: "LeftClick", Hit: &input.HitResult{Hit: true, TargetID: "terrain"}})
	require.Len(t, *got, 1)
	assert.Equal(t, "terrain", (*got)[0].TargetID())
}

func TestRouterMalformedEventIsNormalized(t *testing.T) {
	r, clock := newTestRouter(t, input.NewBinding("KeyW", "moveForward"))
	got := collect(t, r, "moveForward")

	nan := float32(math.NaN())
	r.HandleInput("keyboard", input.Event{
		InputID:     "  KeyW ",
		Position:    input.V2(nan, 1),
		HasPosition: true,
		Modifiers:   key.Modifier(0xff),
	})

	require.Len(t, *got, 1)
	a := (*got)[0]
	assert.False(t, a.HasPosition)
	assert.Equal(t, "keyboard", a.SourceName)
	rec, ok := r.Store().Get("moveForward")
	require.True(t, ok)
	assert.Equal(t, clock.Now(), rec.Timestamp)
}

func TestRouterTriggerActionDirect(t *testing.T) {
	r, clock := newTestRouter(t)
	got := collect(t, r, "teleport")

	r.TriggerAction(input.Action{Name: "teleport", State: input.StateCompleted, Value: 3, HasValue: true})
	r.TriggerAction(input.Action{})

	require.Len(t, *got, 1)
	rec, ok := r.Store().Get("teleport")
	require.True(t, ok)
	assert.Equal(t, clock.Now(), rec.Timestamp)
	assert.Equal(t, []string{"teleport"}, r.Store().Names())
}

func TestRouterDropsReservedActionName(t *testing.T) {
	r, _ := newTestRouter(t)
	got := collect(t, r, input.AnyAction)

	r.TriggerAction(input.Action{Name: input.AnyAction, State: input.StatePressed})

	assert.Empty(t, *got)
	assert.Empty(t, r.Store().Names())
}

func TestRouterDisposeIsIdempotent(t *testing.T) {
	r, _ := newTestRouter(t, input.NewBinding("KeyW", "moveForward"))
	src := input.NewBaseSource("keyboard")
	require.NoError(t, r.RegisterSource(src))
	disposals := 0
	src.OnDispose(func() { disposals++ })
	sub, _ := r.Subscribe("moveForward", func(input.Action) error { return nil })

	r.Dispose()
	r.Dispose()

	assert.True(t, r.Disposed())
	assert.Equal(t, 1, disposals)
	assert.True(t, src.Disposed())
	assert.False(t, sub.IsActive())
	assert.Nil(t, r.ActiveContext())

	r.HandleInput("keyboard", keyEvent("KeyW", input.StatePressed))
	assert.Equal(t, uint64(0), r.Stats().EventsTotal)
	assert.True(t, errors.Is(r.SetContext("test"), input.ErrRouterDisposed))
	_, err := r.Subscribe("x", func(input.Action) error { return nil })
	assert.True(t, errors.Is(err, input.ErrRouterDisposed))
}
