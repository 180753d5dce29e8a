package input

// Dispatcher receives standardized events from sources. The Router is the
// production implementation.
type Dispatcher interface {
	HandleInput(sourceName string, ev Event)
}

// DispatcherFunc adapts a function to the Dispatcher interface.
type DispatcherFunc func(sourceName string, ev Event)

// HandleInput calls f.
func (f DispatcherFunc) HandleInput(sourceName string, ev Event) {
	f(sourceName, ev)
}

// Source standardizes one hardware channel into Events.
type Source interface {
	// Name returns the unique source name ("keyboard", "mouse", "touch").
	Name() string

	// Attach connects the source to its dispatcher. The router calls it
	// during registration.
	Attach(d Dispatcher)

	// Enable resumes forwarding. Idempotent.
	Enable()

	// Disable stops forwarding. Events built while disabled are dropped;
	// listeners stay attached. Idempotent.
	Disable()

	// Enabled reports whether events are forwarded.
	Enabled() bool

	// SendInput tags ev with the source name if absent and forwards it
	// while the source is enabled and attached.
	SendInput(ev Event)

	// Dispose detaches hardware listeners and cancels pending timers.
	// The source is inert afterwards. Safe to call more than once.
	Dispose()
}

// BaseSource implements the bookkeeping shared by every Source. Concrete
// sources embed it and add hardware-specific entry points.
type BaseSource struct {
	name       string
	dispatcher Dispatcher
	enabled    bool
	disposed   bool
	cleanups   []func()

	sent    uint64
	dropped uint64
}

// NewBaseSource creates an enabled, unattached source base.
func NewBaseSource(name string) *BaseSource {
	return &BaseSource{
		name:    name,
		enabled: true,
	}
}

// Name returns the source name.
func (s *BaseSource) Name() string {
	return s.name
}

// Attach sets the dispatcher.
func (s *BaseSource) Attach(d Dispatcher) {
	if s.disposed {
		return
	}
	s.dispatcher = d
}

// Enable resumes forwarding.
func (s *BaseSource) Enable() {
	if s.disposed {
		return
	}
	s.enabled = true
}

// Disable stops forwarding.
func (s *BaseSource) Disable() {
	s.enabled = false
}

// Enabled reports whether events are forwarded.
func (s *BaseSource) Enabled() bool {
	return s.enabled && !s.disposed
}

// Disposed reports whether Dispose has run.
func (s *BaseSource) Disposed() bool {
	return s.disposed
}

// SendInput forwards ev to the dispatcher.
func (s *BaseSource) SendInput(ev Event) {
	if s.disposed || !s.enabled || s.dispatcher == nil {
		s.dropped++
		return
	}
	if ev.SourceName == "" {
		ev.SourceName = s.name
	}
	s.sent++
	s.dispatcher.HandleInput(ev.SourceName, ev)
}

// OnDispose registers a function that detaches a hardware listener.
// Functions run in reverse registration order. Registering on a disposed
// source runs fn immediately.
func (s *BaseSource) OnDispose(fn func()) {
	if fn == nil {
		return
	}
	if s.disposed {
		fn()
		return
	}
	s.cleanups = append(s.cleanups, fn)
}

// Dispose runs registered cleanups once and leaves the source inert.
func (s *BaseSource) Dispose() {
	if s.disposed {
		return
	}
	s.disposed = true
	s.enabled = false
	for i := len(s.cleanups) - 1; i >= 0; i-- {
		s.cleanups[i]()
	}
	s.cleanups = nil
	s.dispatcher = nil
}

// Counts returns how many events were forwarded and dropped.
func (s *BaseSource) Counts() (sent, dropped uint64) {
	return s.sent, s.dropped
}
