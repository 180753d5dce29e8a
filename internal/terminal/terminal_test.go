package terminal

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/spatialcms/internal/input"
	"github.com/dshills/spatialcms/internal/input/inputtest"
	"github.com/dshills/spatialcms/internal/input/key"
	"github.com/dshills/spatialcms/internal/input/keyboard"
	"github.com/dshills/spatialcms/internal/input/mode"
	"github.com/dshills/spatialcms/internal/input/mouse"
)

func TestKeyCode(t *testing.T) {
	tests := []struct {
		name string
		ev   *tcell.EventKey
		code string
		mods key.Modifier
		ok   bool
	}{
		{"letter", tcell.NewEventKey(tcell.KeyRune, 'w', tcell.ModNone), "KeyW", key.ModNone, true},
		{"shifted letter", tcell.NewEventKey(tcell.KeyRune, 'W', tcell.ModNone), "KeyW", key.ModShift, true},
		{"space", tcell.NewEventKey(tcell.KeyRune, ' ', tcell.ModNone), key.CodeSpace, key.ModNone, true},
		{"tab", tcell.NewEventKey(tcell.KeyTab, 0, tcell.ModNone), key.CodeTab, key.ModNone, true},
		{"backtab", tcell.NewEventKey(tcell.KeyBacktab, 0, tcell.ModNone), key.CodeTab, key.ModShift, true},
		{"escape", tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone), key.CodeEscape, key.ModNone, true},
		{"arrow", tcell.NewEventKey(tcell.KeyUp, 0, tcell.ModAlt), key.CodeArrowUp, key.ModAlt, true},
		{"ctrl letter", tcell.NewEventKey(tcell.KeyCtrlZ, 0, tcell.ModCtrl), "KeyZ", key.ModCtrl, true},
		{"function", tcell.NewEventKey(tcell.KeyF5, 0, tcell.ModNone), "F5", key.ModNone, true},
		{"unknown rune", tcell.NewEventKey(tcell.KeyRune, 'é', tcell.ModNone), "", key.ModNone, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, mods, ok := KeyCode(tt.ev)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.code, code)
				assert.Equal(t, tt.mods, mods)
			}
		})
	}
}

func TestScenePick(t *testing.T) {
	s := DemoScene(8, 16)
	s.Resize(24)

	hit := s.Pick(s.CellCenter(11, 5))
	assert.True(t, hit.Hit)
	assert.Equal(t, "crate", hit.TargetID)

	hit = s.Pick(s.CellCenter(0, 20))
	assert.Equal(t, input.DefaultGroundID, hit.TargetID)
	assert.Equal(t, input.Vec3{X: 0, Z: 4}, hit.WorldPoint)
	assert.Equal(t, float32(5), hit.Distance)

	s.SetGroundID("terrain")
	assert.Equal(t, "terrain", s.Pick(s.CellCenter(0, 0)).TargetID)
	assert.False(t, s.Pick(input.V2(-5, 3)).Hit)
}

func TestSceneApply(t *testing.T) {
	s := DemoScene(8, 16)
	crate := &input.HitResult{Hit: true, TargetID: "crate"}
	lamp := &input.HitResult{Hit: true, TargetID: "lamp"}

	require.NoError(t, s.Apply(input.Action{Name: mode.ActionSelectObject, Hit: crate}))
	require.NoError(t, s.Apply(input.Action{Name: mode.ActionSelectObject, Hit: lamp, Modifiers: key.ModShift}))
	assert.Equal(t, []string{"crate", "lamp"}, s.Selected())
	assert.Equal(t, 2, s.SelectionCount())

	require.NoError(t, s.Apply(input.Action{Name: mode.ActionSelectObject, Hit: lamp}))
	assert.Equal(t, []string{"lamp"}, s.Selected())

	require.NoError(t, s.Apply(input.Action{Name: mode.ActionDeleteSelection}))
	_, ok := s.Object("lamp")
	assert.False(t, ok)
	assert.Zero(t, s.SelectionCount())

	require.NoError(t, s.Apply(input.Action{Name: mode.ActionGrabObject, Hit: crate}))
	require.NoError(t, s.Apply(input.Action{Name: mode.ActionDropObject, Position: s.CellCenter(40, 2), HasPosition: true}))
	o, ok := s.Object("crate")
	require.True(t, ok)
	assert.Equal(t, 38, o.X)
	assert.Equal(t, 1, o.Y)

	require.NoError(t, s.Apply(input.Action{Name: mode.ActionWalkTo, Position: s.CellCenter(3, 4), HasPosition: true}))
	assert.Equal(t, input.V2(3, 4), s.Player())
}

type directPoster struct{}

func (directPoster) Post(fn func()) bool {
	fn()
	return true
}

type fixture struct {
	host   *Host
	router *input.Router
	scene  *Scene
	clock  *inputtest.Clock
	screen tcell.SimulationScreen
	got    []input.Action
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	screen := tcell.NewSimulationScreen("UTF-8")
	require.NoError(t, screen.Init())
	screen.SetSize(80, 24)
	t.Cleanup(screen.Fini)

	clock := inputtest.NewClock()
	scene := DemoScene(DefaultCellWidth, DefaultCellHeight)
	router := input.NewRouter(input.WithScheduler(clock), input.WithSelection(scene))
	kb := keyboard.New(keyboard.WithScheduler(clock))
	ms := mouse.New(mouse.WithScheduler(clock), mouse.WithPicker(scene))
	require.NoError(t, router.RegisterSource(kb))
	require.NoError(t, router.RegisterSource(ms))
	for _, c := range mode.Defaults() {
		require.NoError(t, router.RegisterContext(c))
	}
	require.NoError(t, router.SetContext(mode.Explore))

	f := &fixture{router: router, scene: scene, clock: clock, screen: screen}
	_, err := router.SubscribeAll(func(a input.Action) error {
		f.got = append(f.got, a)
		return nil
	})
	require.NoError(t, err)

	f.host = NewHost(screen, directPoster{}, Targets{
		Router:    router,
		Keyboard:  kb,
		Mouse:     ms,
		Scheduler: clock,
		Scene:     scene,
	})
	require.NoError(t, f.host.Attach())
	return f
}

func (f *fixture) names() []string {
	out := make([]string, 0, len(f.got))
	for _, a := range f.got {
		out = append(out, a.Name)
	}
	return out
}

func (f *fixture) mouse(x, y int, buttons tcell.ButtonMask) {
	f.host.Handle(tcell.NewEventMouse(x, y, buttons, tcell.ModNone))
}

func (f *fixture) row(y int) string {
	w, _ := f.screen.Size()
	var b strings.Builder
	for x := 0; x < w; x++ {
		r, _, _, _ := f.screen.GetContent(x, y) //nolint:staticcheck // simulation screen readback
		b.WriteRune(r)
	}
	return b.String()
}

func TestHostKeyPressSynthesizesRelease(t *testing.T) {
	f := newFixture(t)
	w := tcell.NewEventKey(tcell.KeyRune, 'w', tcell.ModNone)

	f.host.Handle(w)
	assert.True(t, f.router.IsActionActive(mode.ActionMoveForward))

	f.clock.Advance(300 * time.Millisecond)
	f.host.Handle(w)
	f.clock.Advance(300 * time.Millisecond)
	assert.True(t, f.router.IsActionActive(mode.ActionMoveForward), "a repeat restarts the release timer")

	f.clock.Advance(DefaultKeyRelease)
	assert.False(t, f.router.IsActionActive(mode.ActionMoveForward))

	require.Len(t, f.got, 3)
	assert.Equal(t, input.StatePressed, f.got[0].State)
	assert.Equal(t, input.StateHeld, f.got[1].State)
	assert.Equal(t, input.StateReleased, f.got[2].State)
}

func TestHostTabCyclesThroughManager(t *testing.T) {
	f := newFixture(t)
	m := mode.NewManager(f.router)
	_, err := m.Bind(f.router)
	require.NoError(t, err)

	f.host.Handle(tcell.NewEventKey(tcell.KeyTab, 0, tcell.ModNone))
	assert.Equal(t, mode.Edit, f.router.ActiveContextName())
	assert.Contains(t, f.row(24-DefaultLogLines-1), "mode: edit")
}

func TestHostClickSelectsObject(t *testing.T) {
	f := newFixture(t)

	f.mouse(11, 5, tcell.ButtonPrimary)
	f.mouse(11, 5, tcell.ButtonNone)

	assert.Contains(t, f.names(), mode.ActionSelectObject)
	assert.Equal(t, []string{"crate"}, f.scene.Selected())
	assert.Contains(t, f.row(24-DefaultLogLines-1), "selected: crate")
}

func TestHostClickGroundWalks(t *testing.T) {
	f := newFixture(t)

	f.mouse(2, 2, tcell.ButtonPrimary)
	f.mouse(2, 2, tcell.ButtonNone)

	assert.Equal(t, []string{mode.ActionWalkTo}, f.names())
	assert.Equal(t, input.V2(2, 2), f.scene.Player())
}

func TestHostDragLooks(t *testing.T) {
	f := newFixture(t)

	f.mouse(2, 2, tcell.ButtonPrimary)
	f.mouse(6, 2, tcell.ButtonPrimary)
	f.mouse(6, 2, tcell.ButtonNone)

	assert.Equal(t, []string{mode.ActionLookAround, mode.ActionLookEnd}, f.names())
	assert.True(t, f.got[1].WasDragging)
}

func TestHostWheelZooms(t *testing.T) {
	f := newFixture(t)
	f.mouse(2, 2, tcell.WheelUp)
	assert.Equal(t, []string{mode.ActionZoom}, f.names())
	assert.Less(t, f.got[0].Value, 0.0)
}

func TestHostFocusLossReleases(t *testing.T) {
	f := newFixture(t)
	f.host.Handle(tcell.NewEventKey(tcell.KeyRune, 'w', tcell.ModNone))
	require.True(t, f.router.IsActionActive(mode.ActionMoveForward))

	f.host.Handle(tcell.NewEventFocus(false))
	assert.False(t, f.router.IsActionActive(mode.ActionMoveForward))

	f.clock.Advance(time.Second)
	assert.Len(t, f.got, 2, "the cancelled release timer does not fire")
}

func TestHostLogKeepsRecentLines(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < DefaultLogLines+3; i++ {
		f.mouse(2, 2, tcell.WheelDown)
	}
	assert.Len(t, f.host.Log(), DefaultLogLines)
	assert.True(t, strings.HasPrefix(f.host.Log()[0], mode.ActionZoom))
}

func TestHostRunQuits(t *testing.T) {
	screen := tcell.NewSimulationScreen("UTF-8")
	require.NoError(t, screen.Init())
	screen.SetSize(40, 12)
	defer screen.Fini()

	router := input.NewRouter()
	h := NewHost(screen, directPoster{}, Targets{Router: router})

	errc := make(chan error, 1)
	go func() { errc <- h.Run(context.Background()) }()

	require.NoError(t, screen.PostEvent(tcell.NewEventKey(tcell.KeyCtrlC, 0, tcell.ModCtrl)))
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return on Ctrl+C")
	}
}

func TestHostRunStopsOnCancel(t *testing.T) {
	screen := tcell.NewSimulationScreen("UTF-8")
	require.NoError(t, screen.Init())
	defer screen.Fini()

	h := NewHost(screen, directPoster{}, Targets{Router: input.NewRouter()})
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- h.Run(ctx) }()
	cancel()

	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return on cancel")
	}
}
