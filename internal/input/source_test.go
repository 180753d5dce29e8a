package input

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseSourceForwarding(t *testing.T) {
	var got []Event
	s := NewBaseSource("kb")
	s.SendInput(Event{InputID: "KeyW"})
	s.Attach(DispatcherFunc(func(name string, ev Event) {
		assert.Equal(t, "kb", name)
		got = append(got, ev)
	}))

	s.SendInput(Event{InputID: "KeyW"})
	s.SendInput(Event{InputID: "KeyS", SourceName: "remote"})

	require.Len(t, got, 2)
	assert.Equal(t, "kb", got[0].SourceName)
	sent, dropped := s.Counts()
	assert.Equal(t, uint64(2), sent)
	assert.Equal(t, uint64(1), dropped)
}

func TestBaseSourceDisableIsIdempotent(t *testing.T) {
	calls := 0
	s := NewBaseSource("kb")
	s.Attach(DispatcherFunc(func(string, Event) { calls++ }))

	s.Disable()
	s.Disable()
	assert.False(t, s.Enabled())
	s.SendInput(Event{InputID: "KeyW"})
	assert.Equal(t, 0, calls)

	s.Enable()
	s.Enable()
	s.SendInput(Event{InputID: "KeyW"})
	assert.Equal(t, 1, calls)
}

func TestBaseSourceDispose(t *testing.T) {
	var order []int
	calls := 0
	s := NewBaseSource("kb")
	s.Attach(DispatcherFunc(func(string, Event) { calls++ }))
	s.OnDispose(func() { order = append(order, 1) })
	s.OnDispose(func() { order = append(order, 2) })

	s.Dispose()
	s.Dispose()
	assert.Equal(t, []int{2, 1}, order)
	assert.True(t, s.Disposed())

	s.Enable()
	assert.False(t, s.Enabled())
	s.SendInput(Event{InputID: "KeyW"})
	assert.Equal(t, 0, calls)

	late := false
	s.OnDispose(func() { late = true })
	assert.True(t, late)
}
