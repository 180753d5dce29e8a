package mouse

import (
	"time"

	"github.com/dshills/spatialcms/internal/input"
	"github.com/dshills/spatialcms/internal/input/key"
	"github.com/dshills/spatialcms/internal/logging"
)

// SourceName is the name the mouse source registers under.
const SourceName = "mouse"

// Config configures the click/drag/hold disambiguation.
type Config struct {
	// DragThreshold is the distance in pixels from the press position at
	// which a press becomes a drag.
	DragThreshold float32

	// HoldDuration is how long a press must stay still to emit a hold.
	HoldDuration time.Duration

	// DoubleClickTime is the maximum time between two clicks of the same
	// button for them to collapse into a double-click.
	DoubleClickTime time.Duration

	// DoubleClickDistance is the maximum distance between the two clicks.
	// Zero disables the check.
	DoubleClickDistance float32
}

// DefaultConfig returns the default thresholds.
func DefaultConfig() Config {
	return Config{
		DragThreshold:   5,
		HoldDuration:    500 * time.Millisecond,
		DoubleClickTime: 300 * time.Millisecond,
	}
}

// Option configures a Mouse.
type Option func(*Mouse)

// WithConfig sets the thresholds.
func WithConfig(cfg Config) Option {
	return func(m *Mouse) {
		m.config = cfg
	}
}

// WithPicker sets the scene picker used on press and click.
func WithPicker(p input.Picker) Option {
	return func(m *Mouse) {
		m.picker = p
	}
}

// WithScheduler sets the clock and timer factory.
func WithScheduler(s input.Scheduler) Option {
	return func(m *Mouse) {
		if s != nil {
			m.clock = s
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(m *Mouse) {
		if l != nil {
			m.logger = l
		}
	}
}

// Mouse is the pointer input source. It turns press, move and release
// into pressed, clicked, double-clicked, hold, drag-move and drag-release
// events.
type Mouse struct {
	*input.BaseSource

	config Config
	picker input.Picker
	clock  input.Scheduler
	logger logging.Logger

	session *session
	clicks  *clickTracker

	pointer    input.Vec2
	hasPointer bool
}

// New creates an enabled mouse source.
func New(opts ...Option) *Mouse {
	m := &Mouse{
		BaseSource: input.NewBaseSource(SourceName),
		config:     DefaultConfig(),
		clock:      input.SystemScheduler{},
		logger:     logging.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.clicks = newClickTracker(m.config.DoubleClickTime, m.config.DoubleClickDistance)
	m.logger = m.logger.WithComponent(SourceName)
	return m
}

// Config returns the active thresholds.
func (m *Mouse) Config() Config {
	return m.config
}

// Session returns a snapshot of the open session.
func (m *Mouse) Session() SessionState {
	return m.session.state()
}

// Dragging reports whether the open session has crossed the drag threshold.
func (m *Mouse) Dragging() bool {
	return m.session != nil && m.session.dragging
}

func (m *Mouse) pick(pos input.Vec2) *input.HitResult {
	if m.picker == nil {
		return nil
	}
	hit := m.picker.Pick(pos)
	return &hit
}

// Press opens a session for button at pos. An open session is replaced.
func (m *Mouse) Press(button Button, pos input.Vec2, mods key.Modifier) {
	if m.Disposed() || !button.IsValid() || !pos.IsFinite() {
		return
	}
	if m.session != nil {
		if m.logger.Enabled(logging.LevelDebug) {
			m.logger.Debug("press of %s replaces open %s session", button, m.session.button)
		}
		m.session.stopHold()
	}

	now := m.clock.Now()
	s := newSession(button, pos, now)
	m.session = s
	m.pointer, m.hasPointer = pos, true

	if m.config.HoldDuration > 0 {
		s.hold = m.clock.AfterFunc(m.config.HoldDuration, func() {
			m.fireHold(s)
		})
	}

	m.SendInput(input.Event{
		InputID:     button.InputID(),
		State:       input.StatePressed,
		Position:    pos,
		HasPosition: true,
		Modifiers:   mods,
		Hit:         m.pick(pos),
		HeldButton:  button.String(),
		Timestamp:   now,
	})
}

// fireHold runs on the hold timer. The timer may outlive its session, so
// it acts only if s is still the open, undragged session.
func (m *Mouse) fireHold(s *session) {
	if m.Disposed() || m.session != s || s.dragging || s.holdFired {
		return
	}
	s.holdFired = true
	s.hold = nil

	m.SendInput(input.Event{
		InputID:     s.button.HoldInputID(),
		State:       input.StateHeld,
		Position:    s.start,
		HasPosition: true,
		Hit:         m.pick(s.start),
		HeldButton:  s.button.String(),
		Timestamp:   m.clock.Now(),
	})
}

// Move handles pointer movement. Within an open session, movement below
// the drag threshold is swallowed; the move that crosses it starts the
// drag and is forwarded. Without a session the move is a hover.
func (m *Mouse) Move(pos input.Vec2, mods key.Modifier) {
	if m.Disposed() || !pos.IsFinite() {
		return
	}
	prev, hadPrev := m.pointer, m.hasPointer
	m.pointer, m.hasPointer = pos, true

	s := m.session
	if s == nil {
		ev := input.Event{
			InputID:     InputMove,
			State:       input.StateMoved,
			Position:    pos,
			HasPosition: true,
			Modifiers:   mods,
			Timestamp:   m.clock.Now(),
		}
		if hadPrev {
			ev.Delta = pos.Sub(prev)
		}
		m.SendInput(ev)
		return
	}

	if !s.dragging {
		if pos.DistanceTo(s.start) < m.config.DragThreshold {
			return
		}
		s.dragging = true
		s.stopHold()
		if m.logger.Enabled(logging.LevelDebug) {
			m.logger.Debug("%s drag started at %v", s.button, pos)
		}
	}

	delta := pos.Sub(s.lastForwarded)
	s.lastForwarded = pos
	m.SendInput(input.Event{
		InputID:     InputMove,
		State:       input.StateMoved,
		Position:    pos,
		HasPosition: true,
		Delta:       delta,
		Modifiers:   mods,
		HeldButton:  s.button.String(),
		IsDragging:  true,
		Timestamp:   m.clock.Now(),
	})
}

// Release closes the session of button. A drag ends with a released event
// tagged WasDragging; otherwise the release is a click, or a double-click
// when the previous click of the same button is inside the window. A
// release that does not match the open session emits nothing. The session
// is always cleared.
func (m *Mouse) Release(button Button, pos input.Vec2, mods key.Modifier) {
	if m.Disposed() {
		return
	}
	s := m.session
	defer m.endSession()

	if s == nil || s.button != button {
		return
	}
	if !pos.IsFinite() {
		pos = s.lastForwarded
	}
	m.pointer, m.hasPointer = pos, true
	now := m.clock.Now()

	if s.dragging {
		m.clicks.reset()
		m.SendInput(input.Event{
			InputID:     button.InputID(),
			State:       input.StateReleased,
			Position:    pos,
			HasPosition: true,
			Delta:       pos.Sub(s.start),
			Modifiers:   mods,
			HeldButton:  button.String(),
			WasDragging: true,
			Timestamp:   now,
		})
		return
	}

	state := input.StateClicked
	if m.clicks.isDouble(button, pos, now) {
		state = input.StateDoubleClicked
		m.clicks.reset()
	} else {
		m.clicks.record(button, pos, now)
	}

	m.SendInput(input.Event{
		InputID:     button.InputID(),
		State:       state,
		Position:    pos,
		HasPosition: true,
		Modifiers:   mods,
		Hit:         m.pick(pos),
		HeldButton:  button.String(),
		Timestamp:   now,
	})
}

// Wheel forwards one wheel tick. The value is the raw vertical delta; no
// accumulation or session tracking applies.
func (m *Mouse) Wheel(delta, pos input.Vec2, mods key.Modifier) {
	if m.Disposed() || !delta.IsFinite() {
		return
	}
	ev := input.Event{
		InputID:   InputWheel,
		State:     input.StateScrolled,
		Value:     float64(delta.Y),
		HasValue:  true,
		Delta:     delta,
		Modifiers: mods,
		Timestamp: m.clock.Now(),
	}
	if pos.IsFinite() {
		ev.Position, ev.HasPosition = pos, true
	}
	m.SendInput(ev)
}

// Cancel terminates the open session without emitting, for a pointer
// that left the window or lost capture before its release arrived.
func (m *Mouse) Cancel() {
	if m.session != nil && m.logger.Enabled(logging.LevelDebug) {
		m.logger.Debug("%s session cancelled", m.session.button)
	}
	m.endSession()
}

func (m *Mouse) endSession() {
	if m.session == nil {
		return
	}
	m.session.stopHold()
	m.session = nil
}

// Dispose cancels the open session and its timer and detaches the source.
func (m *Mouse) Dispose() {
	m.endSession()
	m.clicks.reset()
	m.BaseSource.Dispose()
}
