package keymap

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/dshills/spatialcms/internal/input"
	"github.com/dshills/spatialcms/internal/input/mode"
	"github.com/dshills/spatialcms/internal/logging"
)

// SourceDefault marks keymaps built from the compiled-in tables.
const SourceDefault = "default"

// ContextHost is the part of the router that receives compiled contexts.
type ContextHost interface {
	ReplaceContext(c input.Context) error
}

// Registry holds keymaps by name. Registering a name again replaces the
// previous keymap, so user files loaded after the defaults win.
type Registry struct {
	mu sync.RWMutex

	// keymaps holds the effective keymap per name.
	keymaps  map[string]*Keymap
	bases    map[string]*Keymap
	overlays map[string]*Keymap

	logger logging.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger logging.Logger) *Registry {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Registry{
		keymaps:  make(map[string]*Keymap),
		bases:    make(map[string]*Keymap),
		overlays: make(map[string]*Keymap),
		logger:   logger.WithComponent("keymap"),
	}
}

// Register validates km and adds it, replacing any keymap of the same
// name. A keymap that extends its own name is an overlay: its bindings
// are placed in front of the base keymap of that name. Registering the
// overlay again replaces the previous overlay rather than stacking.
func (r *Registry) Register(km *Keymap) error {
	if km == nil {
		return fmt.Errorf("%w: nil keymap", ErrInvalidKeymap)
	}
	if err := km.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if km.Extends == km.Name {
		base, ok := r.bases[km.Name]
		if !ok {
			return fmt.Errorf("%w: overlay %q has no base", ErrUnknownKeymap, km.Name)
		}
		r.overlays[km.Name] = km
		r.keymaps[km.Name] = overlay(base, km)
		r.logger.Info("keymap %q overlaid from %s", km.Name, sourceName(km))
		return nil
	}

	if prev, ok := r.bases[km.Name]; ok {
		r.logger.Info("keymap %q from %s replaces %s", km.Name, sourceName(km), sourceName(prev))
	}
	r.bases[km.Name] = km
	if top, ok := r.overlays[km.Name]; ok {
		r.keymaps[km.Name] = overlay(km, top)
	} else {
		r.keymaps[km.Name] = km
	}
	return nil
}

// overlay merges top over base without modifying either.
func overlay(base, top *Keymap) *Keymap {
	merged := &Keymap{
		Name:        base.Name,
		Description: base.Description,
		Extends:     base.Extends,
		Source:      top.Source,
		Bindings:    make([]Binding, 0, len(top.Bindings)+len(base.Bindings)),
	}
	if top.Description != "" {
		merged.Description = top.Description
	}
	merged.Bindings = append(merged.Bindings, top.Bindings...)
	merged.Bindings = append(merged.Bindings, base.Bindings...)
	return merged
}

// Unregister removes a keymap and its overlay.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	delete(r.keymaps, name)
	delete(r.bases, name)
	delete(r.overlays, name)
	r.mu.Unlock()
}

// Get returns the keymap registered under name.
func (r *Registry) Get(name string) (*Keymap, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	km, ok := r.keymaps[name]
	return km, ok
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.keymaps))
	for n := range r.keymaps {
		names = append(names, n)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

// LoadDefaults registers the built-in mode tables.
func (r *Registry) LoadDefaults() error {
	for _, c := range mode.Defaults() {
		if err := r.Register(FromContext(c).WithSource(SourceDefault)); err != nil {
			return fmt.Errorf("default keymap %q: %w", c.Name(), err)
		}
	}
	return nil
}

// Resolve compiles name and its extends chain. Bindings of name come
// first, then those of each base in turn.
func (r *Registry) Resolve(name string) ([]input.Binding, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []input.Binding
	seen := make(map[string]bool)
	for cur := name; cur != ""; {
		if seen[cur] {
			return nil, fmt.Errorf("%w: %q", ErrExtendsCycle, name)
		}
		seen[cur] = true

		km, ok := r.keymaps[cur]
		if !ok {
			if cur == name {
				return nil, fmt.Errorf("%w: %q", ErrUnknownKeymap, name)
			}
			return nil, fmt.Errorf("%w: %q extends %q", ErrUnknownKeymap, name, cur)
		}
		bindings, err := km.Compile()
		if err != nil {
			return nil, err
		}
		out = append(out, bindings...)
		cur = km.Extends
	}
	return out, nil
}

// Context builds the input context for name.
func (r *Registry) Context(name string) (*input.BaseContext, error) {
	bindings, err := r.Resolve(name)
	if err != nil {
		return nil, err
	}
	var desc string
	if km, ok := r.Get(name); ok {
		desc = km.Description
	}
	return input.NewContext(name, bindings, input.WithDescription(desc)), nil
}

// Apply builds every registered keymap and hands it to host. A keymap
// that fails to resolve is skipped; the errors are returned together
// after the rest have been applied.
func (r *Registry) Apply(host ContextHost) error {
	var failed []error
	for _, name := range r.Names() {
		c, err := r.Context(name)
		if err == nil {
			err = host.ReplaceContext(c)
		}
		if err != nil {
			r.logger.Warn("keymap %q not applied: %v", name, err)
			failed = append(failed, err)
		}
	}
	return errors.Join(failed...)
}

// ApplyFrom re-applies name and every keymap that extends it, directly
// or transitively.
func (r *Registry) ApplyFrom(host ContextHost, name string) error {
	var failed []error
	for _, n := range r.dependents(name) {
		c, err := r.Context(n)
		if err == nil {
			err = host.ReplaceContext(c)
		}
		if err != nil {
			r.logger.Warn("keymap %q not applied: %v", n, err)
			failed = append(failed, err)
		}
	}
	return errors.Join(failed...)
}

// dependents returns name and the keymaps whose extends chain reaches it.
func (r *Registry) dependents(name string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []string
	for n := range r.keymaps {
		seen := make(map[string]bool)
		for cur := n; cur != "" && !seen[cur]; {
			if cur == name {
				out = append(out, n)
				break
			}
			seen[cur] = true
			km, ok := r.keymaps[cur]
			if !ok {
				break
			}
			cur = km.Extends
		}
	}
	sort.Strings(out)
	return out
}

func sourceName(km *Keymap) string {
	if km.Source == "" {
		return "memory"
	}
	return km.Source
}
