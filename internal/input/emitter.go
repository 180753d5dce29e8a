package input

import (
	"runtime/debug"

	"github.com/google/uuid"

	"github.com/dshills/spatialcms/internal/logging"
)

// AnyAction is the channel name that receives every triggered action.
const AnyAction = "*"

// ActionHandler consumes a triggered action. A returned error or a panic is
// logged and does not affect other handlers.
type ActionHandler func(a Action) error

// Subscription is a handle returned by Router.Subscribe.
type Subscription struct {
	id        string
	action    string
	handler   ActionHandler
	cancelled bool
	emitter   *emitter
}

// ID returns the unique subscription identifier.
func (s *Subscription) ID() string {
	return s.id
}

// Action returns the subscribed action name, or AnyAction.
func (s *Subscription) Action() string {
	return s.action
}

// IsActive reports whether the subscription still receives actions.
func (s *Subscription) IsActive() bool {
	return !s.cancelled
}

// Cancel stops delivery. Safe to call more than once.
func (s *Subscription) Cancel() {
	if s.cancelled {
		return
	}
	s.cancelled = true
	if s.emitter != nil {
		s.emitter.remove(s)
	}
}

// emitter delivers actions to subscribers synchronously.
type emitter struct {
	subs   map[string][]*Subscription
	logger logging.Logger
}

func newEmitter(logger logging.Logger) *emitter {
	return &emitter{
		subs:   make(map[string][]*Subscription),
		logger: logger,
	}
}

func (e *emitter) add(action string, h ActionHandler) *Subscription {
	s := &Subscription{
		id:      uuid.New().String(),
		action:  action,
		handler: h,
		emitter: e,
	}
	e.subs[action] = append(e.subs[action], s)
	return s
}

func (e *emitter) remove(s *Subscription) {
	list := e.subs[s.action]
	for i, cur := range list {
		if cur == s {
			// Copy so a snapshot taken by an in-flight emit stays intact.
			next := make([]*Subscription, 0, len(list)-1)
			next = append(next, list[:i]...)
			next = append(next, list[i+1:]...)
			if len(next) == 0 {
				delete(e.subs, s.action)
			} else {
				e.subs[s.action] = next
			}
			return
		}
	}
}

func (e *emitter) count(action string) int {
	return len(e.subs[action])
}

// emit delivers a to the subscribers of its name, then to the any-action
// subscribers. It returns the number of handlers that failed.
func (e *emitter) emit(a Action) int {
	failed := e.deliver(a.Name, a)
	failed += e.deliver(AnyAction, a)
	return failed
}

func (e *emitter) deliver(channel string, a Action) int {
	subs := e.subs[channel]
	if len(subs) == 0 {
		return 0
	}
	failed := 0
	for _, s := range subs {
		if s.cancelled {
			continue
		}
		if err := e.call(s, a); err != nil {
			failed++
			e.logger.Error("action subscriber failed: %v", err)
		}
	}
	return failed
}

func (e *emitter) call(s *Subscription, a Action) (serr *SubscriberError) {
	defer func() {
		if r := recover(); r != nil {
			if e.logger.Enabled(logging.LevelDebug) {
				e.logger.Debug("subscriber %s stack:\n%s", s.id, debug.Stack())
			}
			serr = &SubscriberError{
				SubscriptionID: s.id,
				Action:         a.Name,
				Panicked:       true,
				Value:          r,
			}
		}
	}()
	if err := s.handler(a); err != nil {
		return &SubscriberError{SubscriptionID: s.id, Action: a.Name, Err: err}
	}
	return nil
}

func (e *emitter) clear() {
	for _, list := range e.subs {
		for _, s := range list {
			s.cancelled = true
			s.emitter = nil
		}
	}
	e.subs = make(map[string][]*Subscription)
}
