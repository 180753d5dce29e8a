// Package inputtest provides deterministic collaborators for testing input
// sources and the router: a manual clock, a recording dispatcher, a
// scripted picker and a focus stub.
package inputtest

import (
	"sort"
	"sync"
	"time"

	"github.com/dshills/spatialcms/internal/input"
)

// Epoch is the start time of every new Clock.
var Epoch = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

// Clock is a manual input.Scheduler. Timers fire only from Advance, in
// deadline order, on the caller's goroutine.
type Clock struct {
	mu     sync.Mutex
	now    time.Time
	seq    uint64
	timers []*clockTimer
}

// NewClock returns a clock set to Epoch.
func NewClock() *Clock {
	return &Clock{now: Epoch}
}

// Now returns the current manual time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// AfterFunc schedules f at Now()+d.
func (c *Clock) AfterFunc(d time.Duration, f func()) input.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	t := &clockTimer{clock: c, at: c.now.Add(d), seq: c.seq, fn: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves time forward by d, firing every timer that comes due.
// Timers scheduled by a firing callback fire too if they fall in range.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		t := c.nextDue(target)
		if t == nil {
			break
		}
		t.fn()
	}

	c.mu.Lock()
	c.now = target
	c.mu.Unlock()
}

// nextDue pops the earliest timer due at or before target and moves the
// clock to its deadline.
func (c *Clock) nextDue(target time.Time) *clockTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.timers) == 0 {
		return nil
	}
	sort.SliceStable(c.timers, func(i, j int) bool {
		if c.timers[i].at.Equal(c.timers[j].at) {
			return c.timers[i].seq < c.timers[j].seq
		}
		return c.timers[i].at.Before(c.timers[j].at)
	})
	t := c.timers[0]
	if t.at.After(target) {
		return nil
	}
	c.timers = c.timers[1:]
	t.done = true
	if t.at.After(c.now) {
		c.now = t.at
	}
	return t
}

// Pending returns the number of timers not yet fired or stopped.
func (c *Clock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

func (c *Clock) remove(t *clockTimer) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	for i, cur := range c.timers {
		if cur == t {
			c.timers = append(c.timers[:i], c.timers[i+1:]...)
			break
		}
	}
	return true
}

type clockTimer struct {
	clock *Clock
	at    time.Time
	seq   uint64
	fn    func()
	done  bool
}

func (t *clockTimer) Stop() bool {
	return t.clock.remove(t)
}

// Recorder is an input.Dispatcher that keeps every event it receives.
type Recorder struct {
	events []input.Event
}

// HandleInput records ev.
func (r *Recorder) HandleInput(sourceName string, ev input.Event) {
	if ev.SourceName == "" {
		ev.SourceName = sourceName
	}
	r.events = append(r.events, ev)
}

// Events returns the recorded events in order.
func (r *Recorder) Events() []input.Event {
	return append([]input.Event(nil), r.events...)
}

// Len returns the number of recorded events.
func (r *Recorder) Len() int {
	return len(r.events)
}

// Last returns the most recent event.
func (r *Recorder) Last() (input.Event, bool) {
	if len(r.events) == 0 {
		return input.Event{}, false
	}
	return r.events[len(r.events)-1], true
}

// Matching returns recorded events with the given input id and state.
func (r *Recorder) Matching(inputID string, state input.State) []input.Event {
	var out []input.Event
	for _, ev := range r.events {
		if ev.InputID == inputID && ev.State == state {
			out = append(out, ev)
		}
	}
	return out
}

// Count returns how many recorded events have the given input id and state.
func (r *Recorder) Count(inputID string, state input.State) int {
	return len(r.Matching(inputID, state))
}

// Reset drops every recorded event.
func (r *Recorder) Reset() {
	r.events = nil
}

// Picker is a scripted input.Picker. Regions are checked in order; the
// first containing the point wins, otherwise Default is returned.
type Picker struct {
	Regions []Region
	Default input.HitResult
	Calls   int
}

// Region is a screen rectangle that picks one target.
type Region struct {
	Min, Max input.Vec2
	TargetID string
}

// Contains reports whether p lies inside the region, edges included.
func (r Region) Contains(p input.Vec2) bool {
	return p.X >= r.Min.X && p.X <= r.Max.X && p.Y >= r.Min.Y && p.Y <= r.Max.Y
}

// GroundPicker returns a picker where every point hits the ground plane.
func GroundPicker() *Picker {
	return &Picker{Default: input.HitResult{Hit: true, TargetID: input.DefaultGroundID}}
}

// Pick implements input.Picker. The world point mirrors the screen point
// on the ground plane.
func (p *Picker) Pick(pos input.Vec2) input.HitResult {
	p.Calls++
	for _, r := range p.Regions {
		if r.Contains(pos) {
			return input.HitResult{
				Hit:        true,
				TargetID:   r.TargetID,
				WorldPoint: input.Vec3{X: pos.X, Z: pos.Y},
				Distance:   10,
			}
		}
	}
	hit := p.Default
	if hit.Hit {
		hit.WorldPoint = input.Vec3{X: pos.X, Z: pos.Y}
	}
	return hit
}

// Focus is a settable input.FocusProvider.
type Focus struct {
	Text bool
}

// TextInputFocused reports f.Text.
func (f *Focus) TextInputFocused() bool {
	return f.Text
}
