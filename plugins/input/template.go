package input

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"text/template"
	"time"

	"github.com/GoCodeAlone/workflow-components/component"
	"github.com/google/uuid"
)

var templateDescriptor = component.Descriptor{
	Name:        "input.template",
	Description: "Renders a Go text/template against a JSON object of variables",
	Group:       "input",
	Inputs: []component.InputDef{
		{Name: "template", Type: component.TypeTemplate},
		{Name: "vars", Type: component.TypeJSON, Optional: true, Description: "Object whose keys are visible as {{ .key }}"},
	},
	Output: component.TypeText,
	Config: []component.ConfigField{
		{Key: "missing_key", Default: "zero", Description: "text/template missingkey option: zero, default or error"},
	},
}

type renderTemplate struct {
	component.Base
}

func newTemplate(cfg component.Config) (component.Component, error) {
	return &renderTemplate{Base: component.NewBase(templateDescriptor, cfg)}, nil
}

func (c *renderTemplate) Run(_ context.Context, in component.Inputs) (any, error) {
	src := in.Text("template")
	if !strings.Contains(src, "{{") {
		return src, nil
	}

	missing := c.Config().String("missing_key")
	switch missing {
	case "zero", "default", "error":
	default:
		return nil, component.Configuration(c.Name(), "missing_key", "must be zero, default or error, got %q", missing)
	}

	var data map[string]any
	if in.Has("vars") {
		m, ok := in.Value("vars").(map[string]any)
		if !ok {
			return nil, c.InvalidInput("vars", "expected a JSON object, got %T", in.Value("vars"))
		}
		data = m
	}

	t, err := template.New(c.Name()).Funcs(templateFuncs()).Option("missingkey=" + missing).Parse(src)
	if err != nil {
		return nil, c.InvalidInput("template", "parse: %v", err)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return nil, c.InvalidInput("template", "execute: %v", err)
	}
	return buf.String(), nil
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"uuid": func() string {
			return uuid.New().String()
		},
		// now formats the current UTC time; the default layout is RFC3339.
		"now": func(layout ...string) string {
			l := time.RFC3339
			if len(layout) > 0 && layout[0] != "" {
				l = layout[0]
			}
			return time.Now().UTC().Format(l)
		},
		"lower": strings.ToLower,
		"upper": strings.ToUpper,
		"trim":  strings.TrimSpace,
		"default": func(fallback, val any) any {
			if val == nil {
				return fallback
			}
			if s, ok := val.(string); ok && s == "" {
				return fallback
			}
			return val
		},
		"json": func(v any) (string, error) {
			b, err := json.Marshal(v)
			return string(b), err
		},
	}
}
