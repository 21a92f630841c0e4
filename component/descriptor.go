package component

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrInvalidDescriptor is returned when a descriptor fails registration checks.
var ErrInvalidDescriptor = errors.New("component: invalid descriptor")

var namePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*(\.[a-z0-9_]+)*$`)

// InputDef declares one named input of a component.
type InputDef struct {
	Name        string    `json:"name" yaml:"name"`
	Type        ValueType `json:"type" yaml:"type"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Optional    bool      `json:"optional,omitempty" yaml:"optional,omitempty"`
}

// ConfigField declares one configuration key of a component.
type ConfigField struct {
	Key         string `json:"key" yaml:"key"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Default     any    `json:"default,omitempty" yaml:"default,omitempty"`
	Required    bool   `json:"required,omitempty" yaml:"required,omitempty"`
	// Secret marks values that must never be logged or echoed back.
	Secret bool `json:"secret,omitempty" yaml:"secret,omitempty"`
	// Env names the environment variable the key is resolved from when the
	// caller does not override it.
	Env string `json:"env,omitempty" yaml:"env,omitempty"`
}

// Descriptor is the static metadata of a component.
type Descriptor struct {
	Name        string        `json:"name" yaml:"name"`
	Description string        `json:"description" yaml:"description"`
	Group       string        `json:"group" yaml:"group"`
	Inputs      []InputDef    `json:"inputs" yaml:"inputs"`
	Output      ValueType     `json:"output" yaml:"output"`
	Config      []ConfigField `json:"config,omitempty" yaml:"config,omitempty"`
	// SideEffects documents what the component mutates outside the process.
	// Empty means the component is read-only and safe to re-invoke.
	SideEffects string `json:"sideEffects,omitempty" yaml:"sideEffects,omitempty"`
}

// Validate checks the descriptor's name, types and key uniqueness.
func (d Descriptor) Validate() error {
	if !namePattern.MatchString(d.Name) {
		return fmt.Errorf("%w: name %q must be lowercase dotted identifier", ErrInvalidDescriptor, d.Name)
	}
	if d.Group == "" {
		return fmt.Errorf("%w: %s: group is required", ErrInvalidDescriptor, d.Name)
	}
	if !d.Output.Valid() {
		return fmt.Errorf("%w: %s: unknown output type %q", ErrInvalidDescriptor, d.Name, d.Output)
	}
	seen := make(map[string]bool, len(d.Inputs))
	for _, in := range d.Inputs {
		if in.Name == "" {
			return fmt.Errorf("%w: %s: input with empty name", ErrInvalidDescriptor, d.Name)
		}
		if seen[in.Name] {
			return fmt.Errorf("%w: %s: duplicate input %q", ErrInvalidDescriptor, d.Name, in.Name)
		}
		if !in.Type.Valid() {
			return fmt.Errorf("%w: %s: input %q has unknown type %q", ErrInvalidDescriptor, d.Name, in.Name, in.Type)
		}
		if in.Type == TypeStream {
			return fmt.Errorf("%w: %s: input %q cannot be a stream", ErrInvalidDescriptor, d.Name, in.Name)
		}
		seen[in.Name] = true
	}
	keys := make(map[string]bool, len(d.Config))
	for _, f := range d.Config {
		if f.Key == "" {
			return fmt.Errorf("%w: %s: config field with empty key", ErrInvalidDescriptor, d.Name)
		}
		if keys[f.Key] {
			return fmt.Errorf("%w: %s: duplicate config key %q", ErrInvalidDescriptor, d.Name, f.Key)
		}
		keys[f.Key] = true
	}
	return nil
}

// Input returns the declaration of the named input.
func (d Descriptor) Input(name string) (InputDef, bool) {
	for _, in := range d.Inputs {
		if in.Name == name {
			return in, true
		}
	}
	return InputDef{}, false
}

// Field returns the declaration of the named configuration key.
func (d Descriptor) Field(key string) (ConfigField, bool) {
	for _, f := range d.Config {
		if f.Key == key {
			return f, true
		}
	}
	return ConfigField{}, false
}

// ReadOnly reports whether the component declares no side effects.
func (d Descriptor) ReadOnly() bool { return d.SideEffects == "" }
