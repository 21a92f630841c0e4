// Package input provides the value-source components a workflow starts from:
// literal text, integers, JSON documents, file references and rendered
// templates. None of them touch the network.
package input

import (
	"context"

	"github.com/GoCodeAlone/workflow-components/component"
	"github.com/GoCodeAlone/workflow-components/plugin"
)

// Plugin registers the input.* components.
type Plugin struct {
	plugin.BasePlugin
}

// New creates the input plugin.
func New() *Plugin {
	return &Plugin{
		BasePlugin: plugin.BasePlugin{
			PluginName:        "input",
			PluginVersion:     "1.0.0",
			PluginDescription: "Literal value sources (text, int, json, file, template)",
		},
	}
}

// Components returns the input.* registrations.
func (p *Plugin) Components() []component.Registration {
	return []component.Registration{
		simple(textDescriptor, runText),
		simple(intDescriptor, runInt),
		simple(jsonDescriptor, runJSON),
		simple(fileDescriptor, runFile),
		{Descriptor: templateDescriptor, Factory: newTemplate},
	}
}

var textDescriptor = component.Descriptor{
	Name:        "input.text",
	Description: "Passes a text value into the workflow",
	Group:       "input",
	Inputs:      []component.InputDef{{Name: "value", Type: component.TypeText}},
	Output:      component.TypeText,
}

var intDescriptor = component.Descriptor{
	Name:        "input.int",
	Description: "Passes an integer value into the workflow",
	Group:       "input",
	Inputs:      []component.InputDef{{Name: "value", Type: component.TypeInt}},
	Output:      component.TypeInt,
}

var jsonDescriptor = component.Descriptor{
	Name:        "input.json",
	Description: "Parses a JSON document (or passes a structure through)",
	Group:       "input",
	Inputs:      []component.InputDef{{Name: "value", Type: component.TypeJSON, Description: "JSON text or an already decoded structure"}},
	Output:      component.TypeJSON,
}

var fileDescriptor = component.Descriptor{
	Name:        "input.file",
	Description: "Checks a local file reference and resolves its media type",
	Group:       "input",
	Inputs:      []component.InputDef{{Name: "file", Type: component.TypeFile}},
	Output:      component.TypeFile,
}

// runFunc is the body of a stateless component.
type runFunc func(b component.Base, in component.Inputs) (any, error)

type stateless struct {
	component.Base
	run runFunc
}

func (s *stateless) Run(_ context.Context, in component.Inputs) (any, error) {
	return s.run(s.Base, in)
}

func simple(d component.Descriptor, run runFunc) component.Registration {
	return component.Registration{
		Descriptor: d,
		Factory: func(cfg component.Config) (component.Component, error) {
			return &stateless{Base: component.NewBase(d, cfg), run: run}, nil
		},
	}
}

func runText(_ component.Base, in component.Inputs) (any, error) {
	return in.Text("value"), nil
}

func runInt(_ component.Base, in component.Inputs) (any, error) {
	return in.Int("value", 0), nil
}

// runJSON returns the decoded structure. Coercion has already parsed text
// input, so repeated runs over the same input yield equal values.
func runJSON(_ component.Base, in component.Inputs) (any, error) {
	return in.Value("value"), nil
}

func runFile(b component.Base, in component.Inputs) (any, error) {
	f, err := in.File("file")
	if err != nil {
		return nil, b.InvalidInput("file", "%v", err)
	}
	if err := f.Exists(); err != nil {
		return nil, b.InvalidInput("file", "%v", err)
	}
	if f.MediaType == "" {
		head, err := readHead(f)
		if err != nil {
			return nil, b.InvalidInput("file", "%v", err)
		}
		f.MediaType = f.ResolveMediaType(head)
	}
	if f.Name == "" {
		f.Name = f.DisplayName()
	}
	return f, nil
}

// readHead returns up to the first 512 bytes of f for content sniffing.
func readHead(f component.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	buf := make([]byte, 512)
	n, _ := rc.Read(buf)
	return buf[:n], nil
}
