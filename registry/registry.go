// Package registry holds the set of components a host can discover and
// instantiate by name.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/GoCodeAlone/workflow-components/component"
)

var (
	// ErrUnknownComponent is returned when no component is registered under a name.
	ErrUnknownComponent = errors.New("registry: unknown component")
	// ErrDuplicate is returned when a name is registered twice.
	ErrDuplicate = errors.New("registry: component already registered")
)

// Registry maps component names to their registrations. It is safe for
// concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]component.Registration
	exp     component.Expander
}

// Option configures a Registry.
type Option func(*Registry)

// WithExpander sets the resolver used for ${scheme:key} references in
// configuration values.
func WithExpander(exp component.Expander) Option {
	return func(r *Registry) { r.exp = exp }
}

// New creates an empty Registry.
func New(opts ...Option) *Registry {
	r := &Registry{entries: make(map[string]component.Registration)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register validates the descriptor and adds the registration.
func (r *Registry) Register(reg component.Registration) error {
	if err := reg.Descriptor.Validate(); err != nil {
		return err
	}
	if reg.Factory == nil {
		return fmt.Errorf("%w: %s has no factory", component.ErrInvalidDescriptor, reg.Descriptor.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[reg.Descriptor.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicate, reg.Descriptor.Name)
	}
	r.entries[reg.Descriptor.Name] = reg
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(regs ...component.Registration) {
	for _, reg := range regs {
		if err := r.Register(reg); err != nil {
			panic(err)
		}
	}
}

// Lookup returns the descriptor registered under name.
func (r *Registry) Lookup(name string) (component.Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.entries[name]
	return reg.Descriptor, ok
}

// Len returns the number of registered components.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Descriptors returns every registered descriptor sorted by name.
func (r *Registry) Descriptors() []component.Descriptor {
	r.mu.RLock()
	out := make([]component.Descriptor, 0, len(r.entries))
	for _, reg := range r.entries {
		out = append(out, reg.Descriptor)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Groups returns the distinct discovery groups in sorted order.
func (r *Registry) Groups() []string {
	seen := make(map[string]struct{})
	for _, d := range r.Descriptors() {
		seen[d.Group] = struct{}{}
	}
	groups := make([]string, 0, len(seen))
	for g := range seen {
		groups = append(groups, g)
	}
	sort.Strings(groups)
	return groups
}

// ByGroup returns the descriptors tagged with group, sorted by name.
func (r *Registry) ByGroup(group string) []component.Descriptor {
	var out []component.Descriptor
	for _, d := range r.Descriptors() {
		if d.Group == group {
			out = append(out, d)
		}
	}
	return out
}

// New merges configuration for the named component and builds an instance.
// Overrides take precedence over environment-declared values and defaults.
// No network access happens here; required keys and external handles are
// checked on the first Run. opts are passed to component.MergeConfig.
func (r *Registry) New(ctx context.Context, name string, overrides map[string]any, opts ...component.MergeOption) (component.Component, error) {
	r.mu.RLock()
	reg, ok := r.entries[name]
	exp := r.exp
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownComponent, name)
	}
	cfg, err := component.MergeConfig(ctx, reg.Descriptor, overrides, exp, opts...)
	if err != nil {
		return nil, err
	}
	c, err := reg.Factory(cfg)
	if err != nil {
		return nil, fmt.Errorf("registry: build %s: %w", name, err)
	}
	return c, nil
}
