// Package transform provides expression-driven data transformations: jq
// queries over JSON values and expr-lang expressions over an environment.
package transform

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/GoCodeAlone/workflow-components/component"
	"github.com/GoCodeAlone/workflow-components/plugin"
	"github.com/expr-lang/expr"
	"github.com/itchyny/gojq"
)

// Plugin registers the transform.* components.
type Plugin struct {
	plugin.BasePlugin
}

// New creates the transform plugin.
func New() *Plugin {
	return &Plugin{
		BasePlugin: plugin.BasePlugin{
			PluginName:        "transform",
			PluginVersion:     "1.0.0",
			PluginDescription: "jq and expr-lang transformations",
		},
	}
}

// Components returns the transform.* registrations.
func (p *Plugin) Components() []component.Registration {
	return []component.Registration{
		{Descriptor: jqDescriptor, Factory: func(cfg component.Config) (component.Component, error) {
			return &jq{Base: component.NewBase(jqDescriptor, cfg)}, nil
		}},
		{Descriptor: exprDescriptor, Factory: func(cfg component.Config) (component.Component, error) {
			return &evaluate{Base: component.NewBase(exprDescriptor, cfg)}, nil
		}},
	}
}

var jqDescriptor = component.Descriptor{
	Name:        "transform.jq",
	Description: "Applies a jq expression to a JSON value",
	Group:       "transform",
	Inputs: []component.InputDef{
		{Name: "data", Type: component.TypeJSON},
		{Name: "expression", Type: component.TypeText, Description: "jq program, e.g. .items | map(.name)"},
	},
	Output: component.TypeJSON,
	Config: []component.ConfigField{
		{Key: "always_list", Default: false, Description: "Return a list even when the program emits one value"},
	},
}

type jq struct {
	component.Base
}

func (j *jq) Run(ctx context.Context, in component.Inputs) (any, error) {
	parsed, err := gojq.Parse(in.Text("expression"))
	if err != nil {
		return nil, j.InvalidInput("expression", "parse: %v", err)
	}
	code, err := gojq.Compile(parsed)
	if err != nil {
		return nil, j.InvalidInput("expression", "compile: %v", err)
	}
	data, err := normalize(in.Value("data"))
	if err != nil {
		return nil, j.InvalidInput("data", "%v", err)
	}

	iter := code.RunWithContext(ctx, data)
	results := []any{}
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := v.(error); isErr {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, j.InvalidInput("expression", "%v", err)
		}
		results = append(results, v)
	}

	if j.Config().Bool("always_list", false) {
		return results, nil
	}
	switch len(results) {
	case 0:
		return nil, nil
	case 1:
		return results[0], nil
	default:
		return results, nil
	}
}

// normalize round-trips v through JSON so gojq only sees the types it
// supports (maps, slices, float64, string, bool, nil).
func normalize(v any) (any, error) {
	switch v.(type) {
	case nil, string, bool, float64, map[string]any, []any:
		return v, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("value is not JSON-compatible: %w", err)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

var exprDescriptor = component.Descriptor{
	Name:        "transform.expr",
	Description: "Evaluates an expr-lang expression against a JSON object environment",
	Group:       "transform",
	Inputs: []component.InputDef{
		{Name: "expression", Type: component.TypeText, Description: `e.g. price * qty > 100 ? "bulk" : "retail"`},
		{Name: "env", Type: component.TypeJSON, Optional: true, Description: "Object whose keys are visible as variables"},
	},
	Output: component.TypeAny,
	Config: []component.ConfigField{
		{Key: "expect_bool", Default: false, Description: "Reject expressions that do not evaluate to a boolean"},
	},
}

type evaluate struct {
	component.Base
}

func (e *evaluate) Run(_ context.Context, in component.Inputs) (any, error) {
	env := map[string]any{}
	if in.Has("env") {
		m, ok := in.Value("env").(map[string]any)
		if !ok {
			return nil, e.InvalidInput("env", "expected an object, got %T", in.Value("env"))
		}
		env = m
	}

	opts := []expr.Option{expr.Env(env)}
	if e.Config().Bool("expect_bool", false) {
		opts = append(opts, expr.AsBool())
	}
	program, err := expr.Compile(in.Text("expression"), opts...)
	if err != nil {
		return nil, e.InvalidInput("expression", "%v", err)
	}
	out, err := expr.Run(program, env)
	if err != nil {
		return nil, e.InvalidInput("expression", "%v", err)
	}
	return out, nil
}
