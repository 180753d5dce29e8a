package mouse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/spatialcms/internal/input"
	"github.com/dshills/spatialcms/internal/input/inputtest"
	"github.com/dshills/spatialcms/internal/input/key"
)

type fixture struct {
	mouse  *Mouse
	clock  *inputtest.Clock
	rec    *inputtest.Recorder
	picker *inputtest.Picker
}

func newFixture(opts ...Option) *fixture {
	f := &fixture{
		clock:  inputtest.NewClock(),
		rec:    &inputtest.Recorder{},
		picker: inputtest.GroundPicker(),
	}
	f.picker.Regions = []inputtest.Region{
		{Min: input.V2(300, 300), Max: input.V2(400, 400), TargetID: "crate"},
	}
	opts = append([]Option{WithScheduler(f.clock), WithPicker(f.picker)}, opts...)
	f.mouse = New(opts...)
	f.mouse.Attach(f.rec)
	return f
}

func (f *fixture) click(b Button, pos input.Vec2) {
	f.mouse.Press(b, pos, key.ModNone)
	f.clock.Advance(50 * time.Millisecond)
	f.mouse.Release(b, pos, key.ModNone)
}

var p = input.V2

func TestButtonNames(t *testing.T) {
	tests := []struct {
		button Button
		name   string
	}{
		{ButtonNone, "None"},
		{ButtonLeft, "Left"},
		{ButtonMiddle, "Middle"},
		{ButtonRight, "Right"},
		{ButtonBack, "Back"},
		{ButtonForward, "Forward"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.name, tt.button.String())
			if tt.button.IsValid() {
				parsed, ok := ParseButton(tt.name)
				assert.True(t, ok)
				assert.Equal(t, tt.button, parsed)
			}
		})
	}
	assert.Equal(t, "LeftClick", ButtonLeft.InputID())
	assert.Equal(t, "RightHold", ButtonRight.HoldInputID())
	assert.Equal(t, ButtonRight, ButtonFromIndex(2))
	assert.Equal(t, ButtonNone, ButtonFromIndex(9))
}

func TestClickOnGround(t *testing.T) {
	f := newFixture()

	f.mouse.Press(ButtonLeft, p(100, 100), key.ModNone)
	f.clock.Advance(150 * time.Millisecond)
	f.mouse.Release(ButtonLeft, p(100, 100), key.ModNone)

	events := f.rec.Events()
	require.Len(t, events, 2)

	pressed := events[0]
	assert.Equal(t, "LeftClick", pressed.InputID)
	assert.Equal(t, input.StatePressed, pressed.State)
	require.NotNil(t, pressed.Hit)
	assert.Equal(t, "ground", pressed.Hit.TargetID)

	clicked := events[1]
	assert.Equal(t, input.StateClicked, clicked.State)
	require.NotNil(t, clicked.Hit)
	assert.Equal(t, "ground", clicked.Hit.TargetID)
	assert.False(t, clicked.WasDragging)
	assert.Equal(t, 2, f.picker.Calls, "one pick at press and a fresh pick at release")
	assert.False(t, f.mouse.Session().Open)
}

func TestSmallMovesAreSwallowed(t *testing.T) {
	f := newFixture()

	f.mouse.Press(ButtonLeft, p(100, 100), key.ModNone)
	f.mouse.Move(p(102, 101), key.ModNone)
	f.mouse.Move(p(103, 103), key.ModNone)
	f.mouse.Release(ButtonLeft, p(103, 103), key.ModNone)

	assert.Equal(t, 0, f.rec.Count(InputMove, input.StateMoved))
	assert.Equal(t, 1, f.rec.Count("LeftClick", input.StateClicked))
	assert.Equal(t, 0, f.rec.Count("LeftClick", input.StateReleased))
}

func TestDragRelease(t *testing.T) {
	f := newFixture()

	f.mouse.Press(ButtonLeft, p(100, 100), key.ModNone)
	f.mouse.Move(p(110, 100), key.ModNone)
	f.mouse.Release(ButtonLeft, p(110, 100), key.ModNone)

	assert.Equal(t, 0, f.rec.Count("LeftClick", input.StateClicked))
	released := f.rec.Matching("LeftClick", input.StateReleased)
	require.Len(t, released, 1)
	assert.True(t, released[0].WasDragging)
	assert.Nil(t, released[0].Hit, "no pick for drag release")
	assert.Equal(t, p(10, 0), released[0].Delta)
	assert.Equal(t, 1, f.picker.Calls)
}

func TestDragFlagsOnceAndStaysUntilRelease(t *testing.T) {
	f := newFixture()

	f.mouse.Press(ButtonRight, p(0, 0), key.ModNone)
	f.mouse.Move(p(3, 0), key.ModNone)
	assert.False(t, f.mouse.Dragging())
	f.mouse.Move(p(5, 0), key.ModNone)
	assert.True(t, f.mouse.Dragging())
	f.mouse.Move(p(1, 0), key.ModNone)
	f.mouse.Move(p(1, 1), key.ModNone)
	assert.True(t, f.mouse.Dragging(), "returning near the start does not end the drag")

	moves := f.rec.Matching(InputMove, input.StateMoved)
	require.Len(t, moves, 3)
	for _, ev := range moves {
		assert.True(t, ev.IsDragging)
		assert.Equal(t, "Right", ev.HeldButton)
	}
	assert.Equal(t, p(5, 0), moves[0].Delta, "first drag move is measured from the press")
	assert.Equal(t, p(-4, 0), moves[1].Delta)
	assert.Equal(t, p(0, 1), moves[2].Delta)

	f.mouse.Release(ButtonRight, p(1, 1), key.ModNone)
	assert.False(t, f.mouse.Dragging())
}

func TestHoverMoveWithoutSession(t *testing.T) {
	f := newFixture()
	f.mouse.Move(p(10, 10), key.ModNone)
	f.mouse.Move(p(12, 15), key.ModAlt)

	moves := f.rec.Matching(InputMove, input.StateMoved)
	require.Len(t, moves, 2)
	assert.Equal(t, input.Vec2{}, moves[0].Delta)
	assert.Equal(t, p(2, 5), moves[1].Delta)
	assert.False(t, moves[1].IsDragging)
	assert.Empty(t, moves[1].HeldButton)
	assert.Equal(t, key.ModAlt, moves[1].Modifiers)
}

func TestDoubleClick(t *testing.T) {
	f := newFixture()

	f.click(ButtonLeft, p(100, 100))
	f.clock.Advance(100 * time.Millisecond)
	f.click(ButtonLeft, p(100, 100))

	assert.Equal(t, 1, f.rec.Count("LeftClick", input.StateClicked))
	assert.Equal(t, 1, f.rec.Count("LeftClick", input.StateDoubleClicked))

	// A third click starts a new sequence.
	f.clock.Advance(100 * time.Millisecond)
	f.click(ButtonLeft, p(100, 100))
	assert.Equal(t, 2, f.rec.Count("LeftClick", input.StateClicked))
	assert.Equal(t, 1, f.rec.Count("LeftClick", input.StateDoubleClicked))
}

func TestDoubleClickWindowExpires(t *testing.T) {
	f := newFixture()

	f.click(ButtonLeft, p(100, 100))
	f.clock.Advance(400 * time.Millisecond)
	f.click(ButtonLeft, p(100, 100))

	assert.Equal(t, 2, f.rec.Count("LeftClick", input.StateClicked))
	assert.Equal(t, 0, f.rec.Count("LeftClick", input.StateDoubleClicked))
}

func TestDoubleClickNeedsSameButton(t *testing.T) {
	f := newFixture()

	f.click(ButtonLeft, p(100, 100))
	f.click(ButtonRight, p(100, 100))

	assert.Equal(t, 1, f.rec.Count("LeftClick", input.StateClicked))
	assert.Equal(t, 1, f.rec.Count("RightClick", input.StateClicked))
	assert.Equal(t, 0, f.rec.Count("RightClick", input.StateDoubleClicked))
}

func TestDoubleClickDistance(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DoubleClickDistance = 4
	f := newFixture(WithConfig(cfg))

	f.click(ButtonLeft, p(100, 100))
	f.click(ButtonLeft, p(104, 104))
	assert.Equal(t, 2, f.rec.Count("LeftClick", input.StateClicked))
}

func TestDragBreaksDoubleClick(t *testing.T) {
	f := newFixture()

	f.click(ButtonLeft, p(100, 100))
	f.mouse.Press(ButtonLeft, p(100, 100), key.ModNone)
	f.mouse.Move(p(120, 100), key.ModNone)
	f.mouse.Release(ButtonLeft, p(120, 100), key.ModNone)
	f.click(ButtonLeft, p(120, 100))

	assert.Equal(t, 2, f.rec.Count("LeftClick", input.StateClicked))
	assert.Equal(t, 0, f.rec.Count("LeftClick", input.StateDoubleClicked))
}

func TestHoldFiresOnce(t *testing.T) {
	f := newFixture()

	f.mouse.Press(ButtonLeft, p(350, 350), key.ModNone)
	f.clock.Advance(499 * time.Millisecond)
	assert.Equal(t, 0, f.rec.Count("LeftHold", input.StateHeld))

	f.clock.Advance(time.Millisecond)
	f.clock.Advance(time.Second)
	holds := f.rec.Matching("LeftHold", input.StateHeld)
	require.Len(t, holds, 1)
	require.NotNil(t, holds[0].Hit)
	assert.Equal(t, "crate", holds[0].Hit.TargetID)
	assert.True(t, f.mouse.Session().HoldFired)

	f.mouse.Release(ButtonLeft, p(350, 350), key.ModNone)
	assert.Equal(t, 1, f.rec.Count("LeftClick", input.StateClicked))
	assert.Equal(t, 0, f.clock.Pending())
}

func TestDragCancelsHold(t *testing.T) {
	f := newFixture()

	f.mouse.Press(ButtonLeft, p(0, 0), key.ModNone)
	f.clock.Advance(300 * time.Millisecond)
	f.mouse.Move(p(10, 0), key.ModNone)
	assert.Equal(t, 0, f.clock.Pending())
	f.clock.Advance(time.Second)

	assert.Equal(t, 0, f.rec.Count("LeftHold", input.StateHeld))
}

func TestReleaseCancelsHold(t *testing.T) {
	f := newFixture()

	f.click(ButtonLeft, p(0, 0))
	f.clock.Advance(time.Second)
	assert.Equal(t, 0, f.rec.Count("LeftHold", input.StateHeld))
}

func TestStaleHoldTimerIsIgnored(t *testing.T) {
	clock := inputtest.NewClock()
	rec := &inputtest.Recorder{}
	m := New(WithScheduler(clock))
	m.Attach(rec)

	m.Press(ButtonLeft, p(0, 0), key.ModNone)
	first := m.session
	m.Release(ButtonLeft, p(0, 0), key.ModNone)

	// Simulate a timer callback that was already queued when the session ended.
	m.fireHold(first)
	assert.Equal(t, 0, rec.Count("LeftHold", input.StateHeld))
}

func TestSecondPressReplacesSession(t *testing.T) {
	f := newFixture()

	f.mouse.Press(ButtonLeft, p(0, 0), key.ModNone)
	f.clock.Advance(200 * time.Millisecond)
	f.mouse.Press(ButtonLeft, p(50, 50), key.ModNone)
	assert.Equal(t, 1, f.clock.Pending(), "first hold timer was stopped")

	f.mouse.Move(p(52, 52), key.ModNone)
	f.mouse.Release(ButtonLeft, p(52, 52), key.ModNone)

	clicked := f.rec.Matching("LeftClick", input.StateClicked)
	require.Len(t, clicked, 1)
	assert.Equal(t, 0, f.rec.Count(InputMove, input.StateMoved))
}

func TestMismatchedReleaseResetsSession(t *testing.T) {
	f := newFixture()

	f.mouse.Press(ButtonLeft, p(0, 0), key.ModNone)
	f.mouse.Release(ButtonRight, p(0, 0), key.ModNone)
	assert.False(t, f.mouse.Session().Open)
	f.mouse.Release(ButtonLeft, p(0, 0), key.ModNone)

	assert.Equal(t, 0, f.rec.Count("LeftClick", input.StateClicked))
	assert.Equal(t, 0, f.rec.Count("RightClick", input.StateClicked))
	assert.Equal(t, 0, f.clock.Pending())
}

func TestCancelEndsSessionSilently(t *testing.T) {
	f := newFixture()

	f.mouse.Press(ButtonLeft, p(0, 0), key.ModNone)
	f.mouse.Move(p(30, 0), key.ModNone)
	f.mouse.Cancel()
	f.mouse.Release(ButtonLeft, p(30, 0), key.ModNone)
	f.clock.Advance(time.Second)

	assert.Equal(t, 0, f.rec.Count("LeftClick", input.StateReleased))
	assert.Equal(t, 0, f.rec.Count("LeftClick", input.StateClicked))
	assert.Equal(t, 0, f.rec.Count("LeftHold", input.StateHeld))
	assert.False(t, f.mouse.Dragging())
}

func TestWheelIsStateless(t *testing.T) {
	f := newFixture()

	f.mouse.Wheel(p(0, -120), p(10, 10), key.ModCtrl)
	f.mouse.Wheel(p(0, 40), p(10, 10), key.ModNone)

	wheels := f.rec.Matching(InputWheel, input.StateScrolled)
	require.Len(t, wheels, 2)
	assert.Equal(t, -120.0, wheels[0].Value)
	assert.True(t, wheels[0].HasValue)
	assert.Equal(t, key.ModCtrl, wheels[0].Modifiers)
	assert.Equal(t, 40.0, wheels[1].Value)
	assert.False(t, f.mouse.Session().Open)
}

func TestDisabledMouseStillDisambiguates(t *testing.T) {
	f := newFixture()
	f.mouse.Disable()
	f.mouse.Press(ButtonLeft, p(0, 0), key.ModNone)
	f.mouse.Move(p(20, 0), key.ModNone)
	assert.True(t, f.mouse.Dragging())
	assert.Equal(t, 0, f.rec.Len())
	f.mouse.Release(ButtonLeft, p(20, 0), key.ModNone)
	assert.False(t, f.mouse.Session().Open)
}

func TestDisposeStopsTimers(t *testing.T) {
	f := newFixture()

	f.mouse.Press(ButtonLeft, p(0, 0), key.ModNone)
	f.mouse.Dispose()
	f.mouse.Dispose()
	assert.Equal(t, 0, f.clock.Pending())

	f.clock.Advance(time.Second)
	f.mouse.Press(ButtonLeft, p(0, 0), key.ModNone)
	f.mouse.Wheel(p(0, 1), p(0, 0), key.ModNone)

	assert.Equal(t, 1, f.rec.Len(), "only the press before dispose")
}

func TestMalformedInputIsIgnored(t *testing.T) {
	f := newFixture()
	f.mouse.Press(ButtonNone, p(0, 0), key.ModNone)
	assert.False(t, f.mouse.Session().Open)
	assert.Equal(t, 0, f.rec.Len())
}
