package mouse

import (
	"time"

	"github.com/dshills/spatialcms/internal/input"
)

// clickTracker remembers the last single click for double-click detection.
type clickTracker struct {
	window      time.Duration
	maxDistance float32

	button Button
	pos    input.Vec2
	at     time.Time
	valid  bool
}

func newClickTracker(window time.Duration, maxDistance float32) *clickTracker {
	return &clickTracker{
		window:      window,
		maxDistance: maxDistance,
	}
}

// isDouble reports whether a click of button at pos and time at completes
// a double-click with the remembered click.
func (t *clickTracker) isDouble(button Button, pos input.Vec2, at time.Time) bool {
	if !t.valid || t.button != button {
		return false
	}

	// Clock skew: a negative elapsed time starts a new sequence.
	elapsed := at.Sub(t.at)
	if elapsed < 0 || elapsed > t.window {
		return false
	}

	if t.maxDistance > 0 && pos.DistanceTo(t.pos) > t.maxDistance {
		return false
	}
	return true
}

// record remembers a single click.
func (t *clickTracker) record(button Button, pos input.Vec2, at time.Time) {
	t.button = button
	t.pos = pos
	t.at = at
	t.valid = true
}

// reset forgets the remembered click, so the next click is a single one.
func (t *clickTracker) reset() {
	t.valid = false
	t.button = ButtonNone
	t.pos = input.Vec2{}
	t.at = time.Time{}
}
