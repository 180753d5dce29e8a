package touch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/spatialcms/internal/input"
	"github.com/dshills/spatialcms/internal/input/inputtest"
)

var p = input.V2

func newTouch() (*Touch, *inputtest.Clock, *inputtest.Recorder) {
	clock := inputtest.NewClock()
	rec := &inputtest.Recorder{}
	t := New(WithScheduler(clock), WithPicker(inputtest.GroundPicker()))
	t.Attach(rec)
	return t, clock, rec
}

func TestClassify(t *testing.T) {
	cfg := DefaultConfig()
	tests := []struct {
		name    string
		elapsed time.Duration
		disp    input.Vec2
		want    Gesture
	}{
		{"quick still touch is a tap", 100 * time.Millisecond, p(2, 2), GestureTap},
		{"tap boundary", 300 * time.Millisecond, p(10, 0), GestureTap},
		{"long still touch is a long press", 800 * time.Millisecond, p(3, 0), GestureLongPress},
		{"quick far touch is a swipe", 200 * time.Millisecond, p(80, 0), GestureSwipe},
		{"medium still touch is nothing", 400 * time.Millisecond, p(0, 0), GestureNone},
		{"slow far touch is nothing", time.Second, p(200, 0), GestureNone},
		{"quick medium distance is nothing", 100 * time.Millisecond, p(30, 0), GestureNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cfg.Classify(tt.elapsed, tt.disp))
		})
	}
}

func TestSwipeDirection(t *testing.T) {
	tests := []struct {
		disp input.Vec2
		want input.Direction
	}{
		{p(100, 0), input.DirRight},
		{p(100, 90), input.DirRight},
		{p(10, 100), input.DirDown},
		{p(-100, 20), input.DirLeft},
		{p(-100, -20), input.DirLeft},
		{p(0, -100), input.DirUp},
		{p(-30, -100), input.DirUp},
		{p(0, 0), input.DirNone},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SwipeDirection(tt.disp), "displacement %v", tt.disp)
	}
}

func TestTap(t *testing.T) {
	tc, clock, rec := newTouch()

	tc.Start(1, p(100, 100))
	clock.Advance(120 * time.Millisecond)
	tc.End(1, p(102, 101))

	taps := rec.Matching(InputTap, input.StateCompleted)
	require.Len(t, taps, 1)
	assert.Equal(t, 1, taps[0].PointerID)
	require.NotNil(t, taps[0].Hit)
	assert.Equal(t, "ground", taps[0].Hit.TargetID)
	assert.Equal(t, 1, rec.Count(InputStart, input.StatePressed))
	assert.Equal(t, 1, rec.Count(InputEnd, input.StateReleased))
	assert.Empty(t, tc.Active())
}

func TestLongPress(t *testing.T) {
	tc, clock, rec := newTouch()

	tc.Start(1, p(100, 100))
	clock.Advance(700 * time.Millisecond)
	tc.End(1, p(100, 100))

	assert.Equal(t, 1, rec.Count(InputLongPress, input.StateCompleted))
	assert.Equal(t, 0, rec.Count(InputTap, input.StateCompleted))
}

func TestSwipeWithPan(t *testing.T) {
	tc, clock, rec := newTouch()

	tc.Start(1, p(100, 100))
	clock.Advance(50 * time.Millisecond)
	tc.Move(1, p(60, 105))
	clock.Advance(50 * time.Millisecond)
	tc.Move(1, p(20, 110))
	tc.End(1, p(20, 110))

	pans := rec.Matching(InputPan, input.StateMoved)
	require.Len(t, pans, 2)
	assert.Equal(t, p(-40, 5), pans[0].Delta)

	swipes := rec.Matching(InputSwipe, input.StateCompleted)
	require.Len(t, swipes, 1)
	assert.Equal(t, input.DirLeft, swipes[0].Direction)
	assert.InDelta(t, 80.6, swipes[0].Value, 0.1)
}

func TestSlowDragHasNoGesture(t *testing.T) {
	tc, clock, rec := newTouch()

	tc.Start(1, p(0, 0))
	clock.Advance(time.Second)
	tc.Move(1, p(200, 0))
	tc.End(1, p(200, 0))

	assert.Equal(t, 1, rec.Count(InputPan, input.StateMoved))
	for _, id := range []string{InputTap, InputLongPress, InputSwipe} {
		assert.Equal(t, 0, rec.Count(id, input.StateCompleted), id)
	}
}

func TestPinchScale(t *testing.T) {
	tc, clock, rec := newTouch()

	tc.Start(1, p(100, 200))
	tc.Start(2, p(200, 200))
	require.True(t, tc.Pinching())

	started := rec.Matching(InputPinch, input.StateStarted)
	require.Len(t, started, 1)
	assert.Equal(t, 1.0, started[0].Value)

	clock.Advance(16 * time.Millisecond)
	tc.Move(2, p(250, 200))

	changed := rec.Matching(InputPinch, input.StateChanged)
	require.Len(t, changed, 1)
	assert.InDelta(t, 1.5, changed[0].Value, 1e-6)
	assert.Equal(t, p(175, 200), changed[0].Position)
	assert.Equal(t, 0, rec.Count(InputPan, input.StateMoved), "two-touch moves are not pans")

	tc.Move(1, p(150, 200))
	tc.Move(1, p(150, 200))
	assert.Equal(t, 3, rec.Count(InputPinch, input.StateChanged), "no debouncing")

	tc.End(1, p(150, 200))
	completed := rec.Matching(InputPinch, input.StateCompleted)
	require.Len(t, completed, 1)
	assert.InDelta(t, 1.0, completed[0].Value, 1e-6)
	assert.False(t, tc.Pinching())

	tc.End(2, p(250, 200))
	assert.Equal(t, 0, rec.Count(InputTap, input.StateCompleted), "pinch participants are not classified")
	assert.Equal(t, 0, rec.Count(InputSwipe, input.StateCompleted))
}

func TestPinchZeroBaseline(t *testing.T) {
	tc, _, rec := newTouch()
	tc.Start(1, p(10, 10))
	tc.Start(2, p(10, 10))
	tc.Move(2, p(40, 10))
	assert.Equal(t, 0, rec.Count(InputPinch, input.StateChanged))
}

func TestCancelDoesNotClassify(t *testing.T) {
	tc, clock, rec := newTouch()

	tc.Start(1, p(0, 0))
	clock.Advance(50 * time.Millisecond)
	tc.Cancel(1)
	tc.Cancel(1)

	assert.Empty(t, tc.Active())
	assert.Equal(t, 0, rec.Count(InputTap, input.StateCompleted))
	assert.Equal(t, 1, rec.Count(InputEnd, input.StateReleased))

	tc.End(1, p(0, 0))
	assert.Equal(t, 0, rec.Count(InputTap, input.StateCompleted))
}

func TestCancelAllClosesPinch(t *testing.T) {
	tc, _, rec := newTouch()
	tc.Start(1, p(0, 0))
	tc.Start(2, p(100, 0))
	tc.CancelAll()

	assert.False(t, tc.Pinching())
	assert.Empty(t, tc.Active())
	assert.Equal(t, 1, rec.Count(InputPinch, input.StateCompleted))
	assert.Equal(t, 2, rec.Count(InputEnd, input.StateReleased))
}

func TestDispose(t *testing.T) {
	tc, _, rec := newTouch()
	tc.Start(1, p(0, 0))
	tc.Dispose()
	tc.Dispose()

	assert.Empty(t, tc.Active())
	tc.Start(2, p(0, 0))
	tc.End(1, p(0, 0))
	assert.Equal(t, 1, rec.Len())
}
