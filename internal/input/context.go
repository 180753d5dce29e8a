package input

import "fmt"

// Context is one interaction mode: an ordered binding table plus
// activation hooks. Exactly one context is active on a router at a time.
type Context interface {
	// Name returns the unique context name.
	Name() string

	// Activate is called by the router when the context becomes active.
	Activate()

	// Deactivate is called by the router when another context replaces it.
	Deactivate()

	// MapInputToAction resolves ev against the binding table. It returns
	// false when no binding matches, which is not an error.
	MapInputToAction(ev Event, ec *EvaluationContext) (Action, bool)

	// Bindings returns a copy of the binding table in match order.
	Bindings() []Binding
}

// BaseContext is a binding-table context. Mode packages construct one per
// mode; hosts may embed it to add state.
type BaseContext struct {
	name         string
	description  string
	bindings     []Binding
	active       bool
	onActivate   func()
	onDeactivate func()
}

// ContextOption configures a BaseContext.
type ContextOption func(*BaseContext)

// WithDescription sets a human-readable description.
func WithDescription(desc string) ContextOption {
	return func(c *BaseContext) {
		c.description = desc
	}
}

// OnActivate sets a hook run when the context becomes active.
func OnActivate(fn func()) ContextOption {
	return func(c *BaseContext) {
		c.onActivate = fn
	}
}

// OnDeactivate sets a hook run when the context is replaced.
func OnDeactivate(fn func()) ContextOption {
	return func(c *BaseContext) {
		c.onDeactivate = fn
	}
}

// NewContext creates a context with a copy of bindings. Declaration order
// is match order, so specific bindings must precede general fallbacks.
func NewContext(name string, bindings []Binding, opts ...ContextOption) *BaseContext {
	c := &BaseContext{
		name:     name,
		bindings: append([]Binding(nil), bindings...),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the context name.
func (c *BaseContext) Name() string {
	return c.name
}

// Description returns the context description.
func (c *BaseContext) Description() string {
	return c.description
}

// IsActive reports whether the router currently routes to this context.
func (c *BaseContext) IsActive() bool {
	return c.active
}

// Activate marks the context active and runs the activation hook.
func (c *BaseContext) Activate() {
	c.active = true
	if c.onActivate != nil {
		c.onActivate()
	}
}

// Deactivate marks the context inactive and runs the deactivation hook.
func (c *BaseContext) Deactivate() {
	c.active = false
	if c.onDeactivate != nil {
		c.onDeactivate()
	}
}

// Bindings returns a copy of the binding table.
func (c *BaseContext) Bindings() []Binding {
	return append([]Binding(nil), c.bindings...)
}

// MapInputToAction returns the action of the first matching binding.
func (c *BaseContext) MapInputToAction(ev Event, ec *EvaluationContext) (Action, bool) {
	for i := range c.bindings {
		b := &c.bindings[i]
		if b.Match(ev, ec) {
			return b.Resolve(ev), true
		}
	}
	return Action{}, false
}

// Validate checks every binding in the table.
func (c *BaseContext) Validate() error {
	if c.name == "" {
		return fmt.Errorf("context has no name")
	}
	for i, b := range c.bindings {
		if err := b.Validate(); err != nil {
			return fmt.Errorf("context %q binding %d: %w", c.name, i, err)
		}
	}
	return nil
}
