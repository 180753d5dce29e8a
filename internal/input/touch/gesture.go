package touch

import (
	"time"

	"github.com/chewxy/math32"

	"github.com/dshills/spatialcms/internal/input"
)

// Gesture is the discrete classification of an ended touch.
type Gesture uint8

const (
	// GestureNone means the touch ended without a discrete gesture.
	GestureNone Gesture = iota
	// GestureTap is a short touch that barely moved.
	GestureTap
	// GestureLongPress is a long touch that barely moved.
	GestureLongPress
	// GestureSwipe is a short touch that travelled far.
	GestureSwipe
)

// String returns the gesture name.
func (g Gesture) String() string {
	switch g {
	case GestureTap:
		return "tap"
	case GestureLongPress:
		return "long-press"
	case GestureSwipe:
		return "swipe"
	default:
		return "none"
	}
}

// InputID returns the input id emitted for the gesture.
func (g Gesture) InputID() string {
	switch g {
	case GestureTap:
		return InputTap
	case GestureLongPress:
		return InputLongPress
	case GestureSwipe:
		return InputSwipe
	default:
		return ""
	}
}

// Classify applies the thresholds in priority order: tap, long press,
// swipe. Displacement is measured from start to end.
func (c Config) Classify(elapsed time.Duration, displacement input.Vec2) Gesture {
	dist := displacement.Length()
	small := dist <= c.MoveTolerance

	switch {
	case small && elapsed <= c.TapMaxDuration:
		return GestureTap
	case small && elapsed >= c.LongPressDuration:
		return GestureLongPress
	case elapsed <= c.SwipeMaxDuration && dist >= c.SwipeMinDistance:
		return GestureSwipe
	}
	return GestureNone
}

// SwipeDirection buckets a displacement into four 90 degree sectors
// centred on the axes. Screen y grows downward.
func SwipeDirection(displacement input.Vec2) input.Direction {
	if displacement.X == 0 && displacement.Y == 0 {
		return input.DirNone
	}
	deg := displacement.Angle() * 180 / math32.Pi

	switch {
	case deg >= -45 && deg <= 45:
		return input.DirRight
	case deg > 45 && deg <= 135:
		return input.DirDown
	case deg < -45 && deg >= -135:
		return input.DirUp
	default:
		return input.DirLeft
	}
}
