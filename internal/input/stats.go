package input

import (
	"sync/atomic"
	"time"
)

// Stats tracks router throughput. Counters are atomic so Snapshot may be
// called from any goroutine.
type Stats struct {
	eventsTotal        atomic.Uint64
	eventsBlocked      atomic.Uint64
	eventsUnmatched    atomic.Uint64
	actionsTotal       atomic.Uint64
	subscriberFailures atomic.Uint64
	configErrors       atomic.Uint64

	peakDispatch atomic.Int64
	startTime    time.Time
}

func newStats() *Stats {
	return &Stats{startTime: time.Now()}
}

func (s *Stats) recordEvent() { s.eventsTotal.Add(1) }
func (s *Stats) recordBlocked() { s.eventsBlocked.Add(1) }
func (s *Stats) recordUnmatched() { s.eventsUnmatched.Add(1) }
func (s *Stats) recordConfigError() { s.configErrors.Add(1) }
func (s *Stats) recordFailures(n int) { s.subscriberFailures.Add(uint64(n)) }
func (s *Stats) recordAction(d time.Duration) {
	s.actionsTotal.Add(1)
	ns := d.Nanoseconds()
	for {
		cur := s.peakDispatch.Load()
		if ns <= cur || s.peakDispatch.CompareAndSwap(cur, ns) {
			return
		}
	}
}

// StatsSnapshot is a point-in-time copy of the router counters.
type StatsSnapshot struct {
	EventsTotal        uint64
	EventsBlocked      uint64
	EventsUnmatched    uint64
	ActionsTotal       uint64
	SubscriberFailures uint64
	ConfigErrors       uint64

	// PeakDispatch is the slowest TriggerAction observed.
	PeakDispatch time.Duration

	Uptime time.Duration
}

// Snapshot returns the current counters.
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		EventsTotal:        s.eventsTotal.Load(),
		EventsBlocked:      s.eventsBlocked.Load(),
		EventsUnmatched:    s.eventsUnmatched.Load(),
		ActionsTotal:       s.actionsTotal.Load(),
		SubscriberFailures: s.subscriberFailures.Load(),
		ConfigErrors:       s.configErrors.Load(),
		PeakDispatch:       time.Duration(s.peakDispatch.Load()),
		Uptime:             time.Since(s.startTime),
	}
}

// Reset zeroes every counter.
func (s *Stats) Reset() {
	s.eventsTotal.Store(0)
	s.eventsBlocked.Store(0)
	s.eventsUnmatched.Store(0)
	s.actionsTotal.Store(0)
	s.subscriberFailures.Store(0)
	s.configErrors.Store(0)
	s.peakDispatch.Store(0)
	s.startTime = time.Now()
}
