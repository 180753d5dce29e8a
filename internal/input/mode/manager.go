package mode

import (
	"errors"
	"fmt"

	"github.com/dshills/spatialcms/internal/input"
)

// Switcher is the part of the router the manager drives.
type Switcher interface {
	SetContext(name string) error
	ActiveContextName() string
}

// Subscriber is the part of the router Bind subscribes to.
type Subscriber interface {
	Subscribe(name string, h input.ActionHandler) (*input.Subscription, error)
}

// ChangeCallback is called after the active mode changes.
type ChangeCallback func(from, to string)

// Manager layers mode history on top of the router's single active
// context: switching, a push/pop stack for temporary modes and change
// callbacks. It adds no locking; drive it from the input goroutine.
type Manager struct {
	router    Switcher
	cycle     []string
	previous  string
	stack     []string
	callbacks []ChangeCallback
}

// ErrEmptyStack is returned by Pop when nothing was pushed.
var ErrEmptyStack = errors.New("mode stack is empty")

// NewManager creates a manager over router. cycle is the order used by
// Next; it defaults to Names().
func NewManager(router Switcher, cycle ...string) *Manager {
	if len(cycle) == 0 {
		cycle = Names()
	}
	return &Manager{
		router: router,
		cycle:  append([]string(nil), cycle...),
	}
}

// Current returns the active mode name.
func (m *Manager) Current() string {
	return m.router.ActiveContextName()
}

// Previous returns the mode active before the last switch.
func (m *Manager) Previous() string {
	return m.previous
}

// Is reports whether name is the active mode.
func (m *Manager) Is(name string) bool {
	return m.Current() == name
}

// Switch activates name. On error the current mode stays active.
func (m *Manager) Switch(name string) error {
	from := m.Current()
	if err := m.router.SetContext(name); err != nil {
		return fmt.Errorf("switch to %s: %w", name, err)
	}
	if from == name {
		return nil
	}
	m.previous = from
	m.notify(from, name)
	return nil
}

// Push saves the current mode and switches to name. Pop restores it.
func (m *Manager) Push(name string) error {
	from := m.Current()
	if err := m.Switch(name); err != nil {
		return err
	}
	if from != "" {
		m.stack = append(m.stack, from)
	}
	return nil
}

// Pop restores the most recently pushed mode.
func (m *Manager) Pop() error {
	if len(m.stack) == 0 {
		return ErrEmptyStack
	}
	prev := m.stack[len(m.stack)-1]
	if err := m.Switch(prev); err != nil {
		return err
	}
	m.stack = m.stack[:len(m.stack)-1]
	return nil
}

// StackDepth returns the number of pushed modes.
func (m *Manager) StackDepth() int {
	return len(m.stack)
}

// Next switches to the mode after the current one in the cycle order.
// An unknown current mode moves to the first entry.
func (m *Manager) Next() error {
	if len(m.cycle) == 0 {
		return nil
	}
	cur := m.Current()
	next := m.cycle[0]
	for i, name := range m.cycle {
		if name == cur {
			next = m.cycle[(i+1)%len(m.cycle)]
			break
		}
	}
	return m.Switch(next)
}

// OnChange registers a callback for mode changes. The returned function
// unregisters it.
func (m *Manager) OnChange(cb ChangeCallback) func() {
	m.callbacks = append(m.callbacks, cb)
	index := len(m.callbacks) - 1
	return func() {
		// Nil out rather than remove so other indices stay valid.
		if index < len(m.callbacks) {
			m.callbacks[index] = nil
		}
	}
}

func (m *Manager) notify(from, to string) {
	for _, cb := range m.callbacks {
		if cb != nil {
			cb(from, to)
		}
	}
}

// Bind makes the cycleMode action call Next and exitMode call Exit. Only
// the pressed state switches, so a held key does not cycle repeatedly.
func (m *Manager) Bind(r Subscriber) ([]*input.Subscription, error) {
	var subs []*input.Subscription
	for name, fn := range map[string]func() error{
		ActionCycleMode: m.Next,
		ActionExitMode:  m.Exit,
	} {
		fn := fn
		sub, err := r.Subscribe(name, func(a input.Action) error {
			if a.State != input.StatePressed {
				return nil
			}
			return fn()
		})
		if err != nil {
			return subs, err
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

// Exit pops a pushed mode, or returns to Explore when nothing was pushed.
func (m *Manager) Exit() error {
	if len(m.stack) > 0 {
		return m.Pop()
	}
	return m.Switch(Explore)
}
