package mouse

import (
	"time"

	"github.com/dshills/spatialcms/internal/input"
)

// session is the disambiguation state of one press/release pair. At most
// one is open at a time; a second press replaces it.
type session struct {
	button    Button
	start     input.Vec2
	startTime time.Time

	// lastForwarded is the position of the last forwarded move, used for
	// move deltas. It starts at the press position.
	lastForwarded input.Vec2

	dragging  bool
	holdFired bool
	hold      input.Timer
}

func newSession(button Button, pos input.Vec2, at time.Time) *session {
	return &session{
		button:        button,
		start:         pos,
		startTime:     at,
		lastForwarded: pos,
	}
}

// stopHold cancels the hold timer if it is still pending.
func (s *session) stopHold() {
	if s.hold != nil {
		s.hold.Stop()
		s.hold = nil
	}
}

// SessionState is a snapshot of the open session.
type SessionState struct {
	// Open reports whether a press is awaiting its release.
	Open bool

	Button    Button
	Start     input.Vec2
	StartTime time.Time
	Dragging  bool
	HoldFired bool
}

func (s *session) state() SessionState {
	if s == nil {
		return SessionState{}
	}
	return SessionState{
		Open:      true,
		Button:    s.button,
		Start:     s.start,
		StartTime: s.startTime,
		Dragging:  s.dragging,
		HoldFired: s.holdFired,
	}
}
