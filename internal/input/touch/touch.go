package touch

import (
	"sort"
	"time"

	"github.com/dshills/spatialcms/internal/input"
	"github.com/dshills/spatialcms/internal/logging"
)

// SourceName is the name the touch source registers under.
const SourceName = "touch"

// Input ids emitted by the touch source.
const (
	InputStart     = "TouchStart"
	InputEnd       = "TouchEnd"
	InputPan       = "TouchPan"
	InputPinch     = "TouchPinch"
	InputTap       = "TouchTap"
	InputLongPress = "TouchLongPress"
	InputSwipe     = "TouchSwipe"
)

// Config holds the gesture thresholds.
type Config struct {
	// TapMaxDuration is the longest touch that still counts as a tap.
	TapMaxDuration time.Duration

	// MoveTolerance is the largest displacement, in pixels, of a tap or
	// long press.
	MoveTolerance float32

	// LongPressDuration is the shortest touch that counts as a long press.
	LongPressDuration time.Duration

	// SwipeMaxDuration is the longest touch that still counts as a swipe.
	SwipeMaxDuration time.Duration

	// SwipeMinDistance is the smallest displacement of a swipe.
	SwipeMinDistance float32
}

// DefaultConfig returns the default thresholds.
func DefaultConfig() Config {
	return Config{
		TapMaxDuration:    300 * time.Millisecond,
		MoveTolerance:     10,
		LongPressDuration: 500 * time.Millisecond,
		SwipeMaxDuration:  500 * time.Millisecond,
		SwipeMinDistance:  50,
	}
}

// Option configures a Touch.
type Option func(*Touch)

// WithConfig sets the thresholds.
func WithConfig(cfg Config) Option {
	return func(t *Touch) {
		t.config = cfg
	}
}

// WithPicker sets the scene picker used for taps and long presses.
func WithPicker(p input.Picker) Option {
	return func(t *Touch) {
		t.picker = p
	}
}

// WithScheduler sets the clock.
func WithScheduler(s input.Scheduler) Option {
	return func(t *Touch) {
		if s != nil {
			t.clock = s
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(t *Touch) {
		if l != nil {
			t.logger = l
		}
	}
}

// point is the tracked state of one touch id.
type point struct {
	id        int
	start     input.Vec2
	startTime time.Time
	last      input.Vec2

	// pinched marks a touch that took part in a pinch. It is never
	// classified when it ends.
	pinched bool
}

// pinch is the state of an active two-finger pinch.
type pinch struct {
	a, b     int
	baseline float32
	scale    float64
}

// Touch is the touch input source.
type Touch struct {
	*input.BaseSource

	config Config
	picker input.Picker
	clock  input.Scheduler
	logger logging.Logger

	points map[int]*point
	pinch  *pinch
}

// New creates an enabled touch source.
func New(opts ...Option) *Touch {
	t := &Touch{
		BaseSource: input.NewBaseSource(SourceName),
		config:     DefaultConfig(),
		clock:      input.SystemScheduler{},
		logger:     logging.Nop(),
		points:     make(map[int]*point),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = t.logger.WithComponent(SourceName)
	return t
}

// Config returns the active thresholds.
func (t *Touch) Config() Config {
	return t.config
}

// Active returns the ids of tracked touches, sorted.
func (t *Touch) Active() []int {
	ids := make([]int, 0, len(t.points))
	for id := range t.points {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Pinching reports whether a pinch is in progress.
func (t *Touch) Pinching() bool {
	return t.pinch != nil
}

func (t *Touch) pick(pos input.Vec2) *input.HitResult {
	if t.picker == nil {
		return nil
	}
	hit := t.picker.Pick(pos)
	return &hit
}

func (t *Touch) event(id string, state input.State, p *point, pos input.Vec2, now time.Time) input.Event {
	return input.Event{
		InputID:     id,
		State:       state,
		Position:    pos,
		HasPosition: true,
		PointerID:   p.id,
		Timestamp:   now,
	}
}

// Start begins tracking touch id at pos. A start for an id that is
// already tracked replaces it. The second simultaneous touch starts a
// pinch.
func (t *Touch) Start(id int, pos input.Vec2) {
	if t.Disposed() || !pos.IsFinite() {
		return
	}
	if _, exists := t.points[id]; exists {
		t.remove(id, t.clock.Now())
	}

	now := t.clock.Now()
	p := &point{id: id, start: pos, startTime: now, last: pos}
	t.points[id] = p
	t.SendInput(t.event(InputStart, input.StatePressed, p, pos, now))

	if len(t.points) == 2 && t.pinch == nil {
		t.beginPinch(now)
	}
}

func (t *Touch) beginPinch(now time.Time) {
	ids := t.Active()
	a, b := t.points[ids[0]], t.points[ids[1]]
	baseline := a.last.DistanceTo(b.last)
	a.pinched, b.pinched = true, true
	t.pinch = &pinch{a: a.id, b: b.id, baseline: baseline, scale: 1}

	if t.logger.Enabled(logging.LevelDebug) {
		t.logger.Debug("pinch %d/%d baseline %.1f", a.id, b.id, baseline)
	}
	ev := t.event(InputPinch, input.StateStarted, b, midpoint(a.last, b.last), now)
	t.SendInput(ev.WithValue(1))
}

// Move updates touch id. During a pinch every move of a participant
// emits the current scale; otherwise a single touch emits a pan.
func (t *Touch) Move(id int, pos input.Vec2) {
	if t.Disposed() || !pos.IsFinite() {
		return
	}
	p, ok := t.points[id]
	if !ok {
		return
	}
	delta := pos.Sub(p.last)
	p.last = pos
	now := t.clock.Now()

	if pn := t.pinch; pn != nil && (id == pn.a || id == pn.b) {
		a, b := t.points[pn.a], t.points[pn.b]
		if pn.baseline <= 0 {
			return
		}
		pn.scale = float64(a.last.DistanceTo(b.last) / pn.baseline)
		ev := t.event(InputPinch, input.StateChanged, p, midpoint(a.last, b.last), now)
		ev.Delta = delta
		t.SendInput(ev.WithValue(pn.scale))
		return
	}

	if len(t.points) == 1 {
		ev := t.event(InputPan, input.StateMoved, p, pos, now)
		ev.Delta = delta
		t.SendInput(ev)
	}
}

// End finishes touch id at pos and emits its gesture classification.
func (t *Touch) End(id int, pos input.Vec2) {
	if t.Disposed() {
		return
	}
	p, ok := t.points[id]
	if !ok {
		return
	}
	if pos.IsFinite() {
		p.last = pos
	}
	now := t.clock.Now()
	pinched := p.pinched
	t.remove(id, now)

	if pinched {
		return
	}
	t.classify(p, now)
}

func (t *Touch) classify(p *point, now time.Time) {
	displacement := p.last.Sub(p.start)
	g := t.config.Classify(now.Sub(p.startTime), displacement)
	if t.logger.Enabled(logging.LevelDebug) {
		t.logger.Debug("touch %d ended: %s", p.id, g)
	}

	switch g {
	case GestureTap, GestureLongPress:
		ev := t.event(g.InputID(), input.StateCompleted, p, p.last, now)
		ev.Hit = t.pick(p.last)
		t.SendInput(ev)
	case GestureSwipe:
		ev := t.event(InputSwipe, input.StateCompleted, p, p.last, now)
		ev.Delta = displacement
		ev.Direction = SwipeDirection(displacement)
		t.SendInput(ev.WithValue(float64(displacement.Length())))
	}
}

// Cancel drops touch id without classifying it.
func (t *Touch) Cancel(id int) {
	if t.Disposed() {
		return
	}
	if _, ok := t.points[id]; !ok {
		return
	}
	t.remove(id, t.clock.Now())
}

// CancelAll drops every tracked touch without classifying.
func (t *Touch) CancelAll() {
	if t.Disposed() {
		return
	}
	now := t.clock.Now()
	for _, id := range t.Active() {
		t.remove(id, now)
	}
}

// remove stops tracking id, closing the pinch it belongs to and emitting
// TouchEnd.
func (t *Touch) remove(id int, now time.Time) {
	p := t.points[id]
	delete(t.points, id)

	if pn := t.pinch; pn != nil && (id == pn.a || id == pn.b) {
		t.pinch = nil
		ev := t.event(InputPinch, input.StateCompleted, p, p.last, now)
		t.SendInput(ev.WithValue(pn.scale))
	}
	t.SendInput(t.event(InputEnd, input.StateReleased, p, p.last, now))
}

// Dispose forgets all touches and detaches the source.
func (t *Touch) Dispose() {
	t.points = make(map[int]*point)
	t.pinch = nil
	t.BaseSource.Dispose()
}

func midpoint(a, b input.Vec2) input.Vec2 {
	return input.Vec2{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2}
}
