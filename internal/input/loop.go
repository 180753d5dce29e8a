package input

import (
	"context"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dshills/spatialcms/internal/logging"
)

// Scheduler creates timers for sources that need timing (hold detection,
// double-click windows). Timer callbacks must run on the same goroutine as
// input handling.
type Scheduler interface {
	// Now returns the current time.
	Now() time.Time

	// AfterFunc calls f after d has elapsed, unless the returned timer is
	// stopped first.
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a cancellable handle returned by a Scheduler.
type Timer interface {
	// Stop prevents the timer from firing. It returns false if the timer
	// already fired or was already stopped.
	Stop() bool
}

// Loop is a serial executor. Every posted function and every timer created
// through its Scheduler runs on the goroutine that called Run, one at a
// time, so the pipeline for one hardware callback always completes before
// the next one starts.
type Loop struct {
	tasks    chan func()
	done     chan struct{}
	stopOnce sync.Once
	running  atomic.Bool
	logger   logging.Logger

	executed atomic.Uint64
	panics   atomic.Uint64
}

// DefaultQueueSize is the task queue capacity of a new Loop.
const DefaultQueueSize = 256

// LoopOption configures a Loop.
type LoopOption func(*Loop)

// WithQueueSize sets the capacity of the task queue.
func WithQueueSize(size int) LoopOption {
	return func(l *Loop) {
		if size > 0 {
			l.tasks = make(chan func(), size)
		}
	}
}

// WithLoopLogger sets the logger used to report recovered panics.
func WithLoopLogger(logger logging.Logger) LoopOption {
	return func(l *Loop) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLoop creates a loop. Call Run to start processing.
func NewLoop(opts ...LoopOption) *Loop {
	l := &Loop{
		tasks:  make(chan func(), DefaultQueueSize),
		done:   make(chan struct{}),
		logger: logging.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Post enqueues fn. It blocks while the queue is full and returns false
// once the loop has been stopped.
func (l *Loop) Post(fn func()) bool {
	if fn == nil {
		return false
	}
	select {
	case <-l.done:
		return false
	default:
	}

	select {
	case l.tasks <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Run executes posted functions until ctx is cancelled or Stop is called.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return ErrLoopRunning
	}
	defer l.running.Store(false)

	for {
		select {
		case <-ctx.Done():
			l.Stop()
			return ctx.Err()
		case <-l.done:
			return nil
		case fn := <-l.tasks:
			l.execute(fn)
		}
	}
}

// Stop terminates Run. Queued functions are discarded.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() {
		close(l.done)
	})
}

// Executed returns the number of functions run so far.
func (l *Loop) Executed() uint64 {
	return l.executed.Load()
}

// Panics returns the number of recovered panics.
func (l *Loop) Panics() uint64 {
	return l.panics.Load()
}

// execute runs one task. A panic is logged and swallowed so that a broken
// consumer cannot take down the loop.
func (l *Loop) execute(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.panics.Add(1)
			l.logger.Error("recovered panic in input loop: %v\n%s", r, debug.Stack())
		}
	}()
	l.executed.Add(1)
	fn()
}

// Scheduler returns a Scheduler whose timers fire on the loop goroutine.
func (l *Loop) Scheduler() Scheduler {
	return loopScheduler{loop: l}
}

type loopScheduler struct {
	loop *Loop
}

func (s loopScheduler) Now() time.Time {
	return time.Now()
}

func (s loopScheduler) AfterFunc(d time.Duration, f func()) Timer {
	t := &loopTimer{}
	t.timer = time.AfterFunc(d, func() {
		s.loop.Post(func() {
			// Stop may have been called between the runtime timer firing
			// and this closure reaching the front of the queue.
			if t.fired.CompareAndSwap(false, true) {
				f()
			}
		})
	})
	return t
}

type loopTimer struct {
	timer *time.Timer
	fired atomic.Bool
}

func (t *loopTimer) Stop() bool {
	t.timer.Stop()
	return t.fired.CompareAndSwap(false, true)
}

// SystemScheduler fires timers on runtime timer goroutines. Use it only
// when the caller serializes access to the router itself.
type SystemScheduler struct{}

// Now returns time.Now().
func (SystemScheduler) Now() time.Time {
	return time.Now()
}

// AfterFunc wraps time.AfterFunc.
func (SystemScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
