// Package sequence provides components whose output is a lazily produced
// stream. Nothing is generated until the consumer ranges over the result.
package sequence

import (
	"context"

	"github.com/GoCodeAlone/workflow-components/component"
	"github.com/GoCodeAlone/workflow-components/plugin"
)

// Plugin registers the sequence.* components.
type Plugin struct {
	plugin.BasePlugin
}

// New creates the sequence plugin.
func New() *Plugin {
	return &Plugin{
		BasePlugin: plugin.BasePlugin{
			PluginName:        "sequence",
			PluginVersion:     "1.0.0",
			PluginDescription: "Lazy stream producers (integer ranges, list iteration)",
		},
	}
}

// Components returns the sequence.* registrations.
func (p *Plugin) Components() []component.Registration {
	return []component.Registration{
		{Descriptor: rangeDescriptor, Factory: func(cfg component.Config) (component.Component, error) {
			return &rangeStream{Base: component.NewBase(rangeDescriptor, cfg)}, nil
		}},
		{Descriptor: iterateDescriptor, Factory: func(cfg component.Config) (component.Component, error) {
			return &iterate{Base: component.NewBase(iterateDescriptor, cfg)}, nil
		}},
	}
}

var rangeDescriptor = component.Descriptor{
	Name:        "sequence.range",
	Description: "Streams integers from start (inclusive) to stop (exclusive) by step",
	Group:       "sequence",
	Inputs: []component.InputDef{
		{Name: "start", Type: component.TypeInt, Optional: true, Description: "Defaults to 0"},
		{Name: "stop", Type: component.TypeInt},
		{Name: "step", Type: component.TypeInt, Optional: true, Description: "Defaults to 1; may be negative"},
	},
	Output: component.TypeStream,
}

type rangeStream struct {
	component.Base
}

func (r *rangeStream) Run(ctx context.Context, in component.Inputs) (any, error) {
	start, stop, step := in.Int("start", 0), in.Int("stop", 0), in.Int("step", 1)
	if step == 0 {
		return nil, r.InvalidInput("step", "must not be zero")
	}
	var s component.Stream = func(yield func(any, error) bool) {
		if (step > 0 && start >= stop) || (step < 0 && start <= stop) {
			return
		}
		for i := start; ; i += step {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			if !yield(i, nil) || !stepsBefore(i, stop, step) {
				return
			}
		}
	}
	return s, nil
}

// stepsBefore reports whether i+step is still short of stop. i must already
// be short of stop. Distances are unsigned so values near the int64 limits
// cannot wrap around.
func stepsBefore(i, stop, step int64) bool {
	if step > 0 {
		return uint64(stop)-uint64(i) > uint64(step)
	}
	return uint64(i)-uint64(stop) > -uint64(step)
}

var iterateDescriptor = component.Descriptor{
	Name:        "sequence.iterate",
	Description: "Streams the elements of a list one at a time",
	Group:       "sequence",
	Inputs:      []component.InputDef{{Name: "items", Type: component.TypeList}},
	Output:      component.TypeStream,
}

type iterate struct {
	component.Base
}

func (it *iterate) Run(ctx context.Context, in component.Inputs) (any, error) {
	items := in.List("items")
	var s component.Stream = func(yield func(any, error) bool) {
		for _, item := range items {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			if !yield(item, nil) {
				return
			}
		}
	}
	return s, nil
}
