// Package plugin groups related components into versioned bundles that a
// host loads into a registry in one step.
package plugin

import (
	"fmt"
	"regexp"

	"github.com/GoCodeAlone/workflow-components/component"
	"golang.org/x/mod/semver"
)

var pluginNameRe = regexp.MustCompile(`^[a-z][a-z0-9-]*[a-z0-9]$`)

// Plugin contributes a set of component registrations.
type Plugin interface {
	Name() string
	Version() string
	Description() string
	Components() []component.Registration
}

// Registrar is the minimal interface required by [Load].
// *registry.Registry satisfies this interface.
type Registrar interface {
	Register(reg component.Registration) error
}

// BasePlugin provides the metadata methods of Plugin. Embed it and implement
// Components.
type BasePlugin struct {
	PluginName        string
	PluginVersion     string
	PluginDescription string
}

func (b *BasePlugin) Name() string        { return b.PluginName }
func (b *BasePlugin) Version() string     { return b.PluginVersion }
func (b *BasePlugin) Description() string { return b.PluginDescription }

// Manifest is the serializable summary of a plugin.
type Manifest struct {
	Name        string   `json:"name" yaml:"name"`
	Version     string   `json:"version" yaml:"version"`
	Description string   `json:"description" yaml:"description"`
	Components  []string `json:"components" yaml:"components"`
}

// ManifestOf summarizes p.
func ManifestOf(p Plugin) Manifest {
	m := Manifest{Name: p.Name(), Version: p.Version(), Description: p.Description()}
	for _, reg := range p.Components() {
		m.Components = append(m.Components, reg.Descriptor.Name)
	}
	return m
}

// Validate checks the plugin name and that its version is valid semver.
func Validate(p Plugin) error {
	if !pluginNameRe.MatchString(p.Name()) {
		return fmt.Errorf("plugin: name %q must be lowercase alphanumeric with hyphens", p.Name())
	}
	v := p.Version()
	if v != "" && v[0] != 'v' {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return fmt.Errorf("plugin %s: invalid version %q", p.Name(), p.Version())
	}
	return nil
}

// Load validates each plugin and registers its components. The first error
// encountered is returned immediately.
func Load(r Registrar, plugins ...Plugin) error {
	for _, p := range plugins {
		if err := Validate(p); err != nil {
			return err
		}
		for _, reg := range p.Components() {
			if err := r.Register(reg); err != nil {
				return fmt.Errorf("plugin %s: %w", p.Name(), err)
			}
		}
	}
	return nil
}
