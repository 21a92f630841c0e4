// Package component defines the contract shared by every component plugin:
// a static Descriptor, a Factory that builds an instance from resolved
// configuration, and a single Run method that wraps one external capability.
//
// Components never retry, never swallow failures and never open network
// connections at construction time. External handles are created lazily on
// the first Run via [Lazy].
package component

import "context"

// Component is a single named unit wrapping one external capability.
type Component interface {
	// Descriptor returns the static metadata the component was registered with.
	Descriptor() Descriptor

	// Run performs the component's action. Inputs carry exactly the keys
	// declared in the descriptor, already coerced to their semantic types.
	// The returned value matches Descriptor().Output.
	Run(ctx context.Context, in Inputs) (any, error)
}

// Factory builds a component instance from merged configuration. Factories
// must not perform network I/O or validate credentials.
type Factory func(cfg Config) (Component, error)

// Registration pairs a descriptor with the factory that builds it.
type Registration struct {
	Descriptor Descriptor
	Factory    Factory
}

// Base carries the descriptor and configuration of an instance and provides
// typed error helpers. Embed it in concrete components.
type Base struct {
	desc Descriptor
	cfg  Config
}

// NewBase returns a Base for the given descriptor and configuration.
func NewBase(d Descriptor, cfg Config) Base {
	return Base{desc: d, cfg: cfg}
}

func (b Base) Descriptor() Descriptor { return b.desc }
func (b Base) Config() Config         { return b.cfg }
func (b Base) Name() string           { return b.desc.Name }

// InvalidInput returns an InvalidInput error attributed to this component.
func (b Base) InvalidInput(input, format string, args ...any) error {
	return InvalidInput(b.desc.Name, input, format, args...)
}

// External wraps a failure reported by the wrapped service or library.
func (b Base) External(op string, err error) error {
	return External(b.desc.Name, op, err)
}

// ExternalStatus reports a non-success status returned by a remote service.
func (b Base) ExternalStatus(op string, status int, body string) error {
	return ExternalStatus(b.desc.Name, op, status, body)
}

// Require checks that the given configuration keys resolved to non-empty
// values, returning a ConfigurationError for the first one that did not.
func (b Base) Require(keys ...string) error {
	return b.cfg.Require(b.desc.Name, keys...)
}
