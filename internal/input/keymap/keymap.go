package keymap

import (
	"errors"
	"fmt"

	"github.com/dshills/spatialcms/internal/input"
)

// Keymap is a named binding table, the file form of one input context.
type Keymap struct {
	// Name is the context name the keymap produces.
	Name string `yaml:"name" toml:"name"`

	Description string `yaml:"description,omitempty" toml:"description,omitempty"`

	// Extends names a keymap whose bindings are matched after these.
	Extends string `yaml:"extends,omitempty" toml:"extends,omitempty"`

	// Bindings in match order.
	Bindings []Binding `yaml:"bindings" toml:"bindings"`

	// Source records where the keymap came from: a file path or "default".
	Source string `yaml:"-" toml:"-"`
}

// NewKeymap creates an empty keymap.
func NewKeymap(name string) *Keymap {
	return &Keymap{Name: name}
}

// WithDescription sets the description.
func (k *Keymap) WithDescription(desc string) *Keymap {
	k.Description = desc
	return k
}

// WithSource sets the source.
func (k *Keymap) WithSource(source string) *Keymap {
	k.Source = source
	return k
}

// ExtendsKeymap sets the base keymap.
func (k *Keymap) ExtendsKeymap(base string) *Keymap {
	k.Extends = base
	return k
}

// Add appends a binding of input to action with no restrictions.
func (k *Keymap) Add(in, action string) *Keymap {
	k.Bindings = append(k.Bindings, Binding{Input: in, Action: action})
	return k
}

// AddBinding appends a fully configured binding.
func (k *Keymap) AddBinding(b Binding) *Keymap {
	k.Bindings = append(k.Bindings, b)
	return k
}

// Compile converts every binding. All failures are reported, each tagged
// with its index.
func (k *Keymap) Compile() ([]input.Binding, error) {
	if k.Name == "" {
		return nil, fmt.Errorf("%w: missing name", ErrInvalidKeymap)
	}
	out := make([]input.Binding, 0, len(k.Bindings))
	var errs []error
	for i, b := range k.Bindings {
		compiled, err := b.Compile()
		if err != nil {
			errs = append(errs, fmt.Errorf("binding %d (%s -> %s): %w", i, b.Input, b.Action, err))
			continue
		}
		out = append(out, compiled)
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w %q: %w", ErrInvalidKeymap, k.Name, errors.Join(errs...))
	}
	return out, nil
}

// Validate reports whether the keymap compiles.
func (k *Keymap) Validate() error {
	_, err := k.Compile()
	return err
}

// FromContext converts a context's binding table into a keymap.
func FromContext(c input.Context) *Keymap {
	k := NewKeymap(c.Name())
	if d, ok := c.(interface{ Description() string }); ok {
		k.Description = d.Description()
	}
	for _, b := range c.Bindings() {
		k.Bindings = append(k.Bindings, FromBinding(b))
	}
	return k
}
