// Package config loads batch files: named lists of component invocations
// described in YAML.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"sort"

	"github.com/GoCodeAlone/workflow-components/registry"
	"gopkg.in/yaml.v3"
)

// ErrInvalidBatch is wrapped by every validation failure.
var ErrInvalidBatch = errors.New("invalid batch")

// Invocation is one component call in a batch.
type Invocation struct {
	Name      string         `json:"name" yaml:"name"`
	Component string         `json:"component" yaml:"component"`
	Config    map[string]any `json:"config,omitempty" yaml:"config,omitempty"`
	Inputs    map[string]any `json:"inputs,omitempty" yaml:"inputs,omitempty"`
}

// Batch is the top-level structure of a batch file.
type Batch struct {
	Name string `json:"name" yaml:"name"`
	// Defaults holds config overrides per component name, applied beneath
	// each invocation's own config.
	Defaults    map[string]map[string]any `json:"defaults,omitempty" yaml:"defaults,omitempty"`
	Invocations []Invocation              `json:"invocations" yaml:"invocations"`
}

// Parse decodes a batch from YAML. Unknown top-level fields are rejected.
func Parse(data []byte) (*Batch, error) {
	var b Batch
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&b); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", ErrInvalidBatch)
		}
		return nil, fmt.Errorf("parse batch: %w", err)
	}
	for i := range b.Invocations {
		inv := &b.Invocations[i]
		if inv.Name == "" {
			inv.Name = fmt.Sprintf("%s#%d", inv.Component, i+1)
		}
	}
	return &b, nil
}

// LoadFromFile reads and parses the batch file at path.
func LoadFromFile(path string) (*Batch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read batch %s: %w", path, err)
	}
	b, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return b, nil
}

// ConfigFor returns the effective overrides for inv: batch defaults for the
// component, then the invocation's own config.
func (b *Batch) ConfigFor(inv Invocation) map[string]any {
	out := make(map[string]any, len(inv.Config))
	maps.Copy(out, b.Defaults[inv.Component])
	maps.Copy(out, inv.Config)
	return out
}

// Validate checks every invocation against reg: the component must exist and
// config keys and input names must be declared. All problems are reported.
func (b *Batch) Validate(reg *registry.Registry) error {
	var errs []error
	if len(b.Invocations) == 0 {
		errs = append(errs, fmt.Errorf("%w: no invocations", ErrInvalidBatch))
	}
	for comp := range b.Defaults {
		if _, ok := reg.Lookup(comp); !ok {
			errs = append(errs, fmt.Errorf("%w: defaults: unknown component %q", ErrInvalidBatch, comp))
		}
	}

	seen := make(map[string]bool, len(b.Invocations))
	for _, inv := range b.Invocations {
		if seen[inv.Name] {
			errs = append(errs, fmt.Errorf("%w: duplicate invocation name %q", ErrInvalidBatch, inv.Name))
		}
		seen[inv.Name] = true

		d, ok := reg.Lookup(inv.Component)
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %s: unknown component %q", ErrInvalidBatch, inv.Name, inv.Component))
			continue
		}
		for _, key := range sortedKeys(b.ConfigFor(inv)) {
			if _, ok := d.Field(key); !ok {
				errs = append(errs, fmt.Errorf("%w: %s: %s has no config key %q", ErrInvalidBatch, inv.Name, d.Name, key))
			}
		}
		for _, name := range sortedKeys(inv.Inputs) {
			if _, ok := d.Input(name); !ok {
				errs = append(errs, fmt.Errorf("%w: %s: %s has no input %q", ErrInvalidBatch, inv.Name, d.Name, name))
			}
		}
		for _, in := range d.Inputs {
			if _, ok := inv.Inputs[in.Name]; !ok && !in.Optional {
				errs = append(errs, fmt.Errorf("%w: %s: missing input %q", ErrInvalidBatch, inv.Name, in.Name))
			}
		}
	}
	return errors.Join(errs...)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
