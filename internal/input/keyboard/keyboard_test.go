package keyboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/spatialcms/internal/input"
	"github.com/dshills/spatialcms/internal/input/inputtest"
	"github.com/dshills/spatialcms/internal/input/key"
)

func newKeyboard(opts ...Option) (*Keyboard, *inputtest.Recorder) {
	rec := &inputtest.Recorder{}
	opts = append([]Option{WithScheduler(inputtest.NewClock())}, opts...)
	k := New(opts...)
	k.Attach(rec)
	return k, rec
}

func TestKeyboardPressHeldRelease(t *testing.T) {
	k, rec := newKeyboard()

	k.KeyDown(key.CodeW, key.ModNone)
	k.KeyDown(key.CodeW, key.ModNone)
	k.KeyDown(key.CodeW, key.ModShift)
	assert.True(t, k.IsHeld(key.CodeW))
	k.KeyUp(key.CodeW, key.ModNone)
	assert.False(t, k.IsHeld(key.CodeW))

	events := rec.Events()
	require.Len(t, events, 4)
	assert.Equal(t, input.StatePressed, events[0].State)
	assert.Equal(t, input.StateHeld, events[1].State)
	assert.Equal(t, input.StateHeld, events[2].State)
	assert.Equal(t, key.ModShift, events[2].Modifiers)
	assert.Equal(t, input.StateReleased, events[3].State)
	for _, ev := range events {
		assert.Equal(t, SourceName, ev.SourceName)
		assert.Equal(t, inputtest.Epoch, ev.Timestamp)
	}
}

func TestKeyboardPreventDefault(t *testing.T) {
	k, _ := newKeyboard()

	assert.True(t, k.KeyDown(key.CodeW, key.ModNone))
	assert.True(t, k.KeyDown(key.CodeSpace, key.ModNone))
	assert.False(t, k.KeyDown("KeyT", key.ModCtrl))
	assert.False(t, k.KeyDown(key.CodeF, key.ModNone))

	k.Disable()
	assert.False(t, k.KeyDown(key.CodeA, key.ModNone))
}

func TestKeyboardCustomGameKeys(t *testing.T) {
	k, _ := newKeyboard(WithConfig(Config{GameKeys: []string{key.CodeF}}))
	assert.True(t, k.KeyDown(key.CodeF, key.ModNone))
	assert.False(t, k.KeyDown(key.CodeW, key.ModNone))
	assert.True(t, k.IsGameKey(key.CodeF))
}

func TestKeyboardSuppressedWhileTyping(t *testing.T) {
	focus := &inputtest.Focus{Text: true}
	k, rec := newKeyboard(WithFocus(focus))

	assert.False(t, k.KeyDown(key.CodeW, key.ModNone))
	k.KeyUp(key.CodeW, key.ModNone)
	assert.Equal(t, 0, rec.Len())
	assert.Empty(t, k.Held())

	focus.Text = false
	k.KeyDown(key.CodeW, key.ModNone)
	focus.Text = true
	k.KeyUp(key.CodeW, key.ModNone)
	assert.Equal(t, 1, rec.Len())
	assert.False(t, k.IsHeld(key.CodeW), "release while typing still clears the held set")
}

func TestKeyboardDisabledKeepsTracking(t *testing.T) {
	k, rec := newKeyboard()
	k.Disable()
	k.KeyDown(key.CodeW, key.ModNone)
	assert.Equal(t, 0, rec.Len())
	assert.True(t, k.IsHeld(key.CodeW))

	k.Enable()
	k.KeyDown(key.CodeW, key.ModNone)
	last, _ := rec.Last()
	assert.Equal(t, input.StateHeld, last.State)
}

func TestKeyboardReleaseAll(t *testing.T) {
	k, rec := newKeyboard()
	k.KeyDown(key.CodeW, key.ModNone)
	k.KeyDown(key.CodeA, key.ModNone)
	rec.Reset()

	k.ReleaseAll()
	k.ReleaseAll()

	events := rec.Events()
	require.Len(t, events, 2)
	assert.Equal(t, key.CodeA, events[0].InputID)
	assert.Equal(t, key.CodeW, events[1].InputID)
	for _, ev := range events {
		assert.Equal(t, input.StateReleased, ev.State)
	}
	assert.Empty(t, k.Held())
}

func TestKeyboardReleaseAllWhileTyping(t *testing.T) {
	focus := &inputtest.Focus{}
	k, rec := newKeyboard(WithFocus(focus))
	k.KeyDown(key.CodeW, key.ModNone)
	rec.Reset()

	focus.Text = true
	k.ReleaseAll()

	events := rec.Events()
	require.Len(t, events, 1)
	assert.Equal(t, key.CodeW, events[0].InputID)
	assert.Equal(t, input.StateReleased, events[0].State)
	assert.Empty(t, k.Held())
}

func TestKeyboardMalformedCode(t *testing.T) {
	k, rec := newKeyboard()
	k.KeyDown("  ", key.ModNone)
	last, ok := rec.Last()
	require.True(t, ok)
	assert.Equal(t, key.CodeUnidentified, last.InputID)
}

func TestKeyboardDispose(t *testing.T) {
	k, rec := newKeyboard()
	k.KeyDown(key.CodeW, key.ModNone)
	k.Dispose()
	k.Dispose()

	assert.Empty(t, k.Held())
	k.KeyDown(key.CodeW, key.ModNone)
	k.KeyUp(key.CodeW, key.ModNone)
	assert.Equal(t, 1, rec.Len())
}
