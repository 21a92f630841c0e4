// Package container runs one-shot commands in Docker containers.
package container

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/GoCodeAlone/workflow-components/component"
	"github.com/GoCodeAlone/workflow-components/plugin"
)

// Plugin registers the container.* components.
type Plugin struct {
	plugin.BasePlugin
}

// New creates the container plugin.
func New() *Plugin {
	return &Plugin{
		BasePlugin: plugin.BasePlugin{
			PluginName:        "container",
			PluginVersion:     "1.0.0",
			PluginDescription: "One-shot Docker container execution",
		},
	}
}

// Components returns the container.* registrations.
func (p *Plugin) Components() []component.Registration {
	return []component.Registration{{Descriptor: runDescriptor, Factory: newDockerRun}}
}

var runDescriptor = component.Descriptor{
	Name:        "container.docker_run",
	Description: "Runs a command in a fresh container and returns its exit code and output",
	Group:       "container",
	Inputs: []component.InputDef{
		{Name: "command", Type: component.TypeList, Description: "Argument vector, e.g. [\"sh\", \"-c\", \"echo hi\"]"},
		{Name: "image", Type: component.TypeText, Optional: true, Description: "Overrides the configured image"},
		{Name: "files", Type: component.TypeList, Optional: true, Description: "Files copied into work_dir before start"},
		{Name: "env", Type: component.TypeJSON, Optional: true},
	},
	Output: component.TypeJSON,
	Config: []component.ConfigField{
		{Key: "image", Default: "alpine:3.20"},
		{Key: "work_dir", Default: "/workspace"},
		{Key: "env", Description: "Map of environment variables"},
		{Key: "memory_limit", Default: 0, Description: "Bytes; 0 means unlimited"},
		{Key: "cpu_limit", Default: 0, Description: "CPUs, e.g. 1.5"},
		{Key: "network_mode", Default: "none"},
		{Key: "timeout", Default: "10m"},
		{Key: "allow_nonzero_exit", Default: false, Description: "Return non-zero exits as results instead of failures"},
	},
	SideEffects: "starts and removes a Docker container",
}

type dockerRun struct {
	component.Base
	engine *component.Lazy[runner]
}

func newDockerRun(cfg component.Config) (component.Component, error) {
	return &dockerRun{
		Base: component.NewBase(runDescriptor, cfg),
		engine: component.NewLazy(func(context.Context) (runner, error) {
			return newEngine()
		}),
	}, nil
}

// Close releases the Docker client.
func (d *dockerRun) Close() error { return d.engine.Close() }

func (d *dockerRun) Run(ctx context.Context, in component.Inputs) (any, error) {
	spec, err := d.spec(in)
	if err != nil {
		return nil, err
	}
	eng, err := d.engine.Get(ctx)
	if err != nil {
		return nil, d.External("docker", err)
	}
	res, err := eng.Run(ctx, spec)
	if err != nil {
		return nil, d.External("run", err)
	}
	if res.ExitCode != 0 && !d.Config().Bool("allow_nonzero_exit", false) {
		return nil, d.External("run", fmt.Errorf("exit code %d: %s", res.ExitCode, res.Stderr))
	}
	return map[string]any{
		"exit_code": int64(res.ExitCode),
		"stdout":    res.Stdout,
		"stderr":    res.Stderr,
	}, nil
}

// spec validates inputs and merges them over configuration.
func (d *dockerRun) spec(in component.Inputs) (runSpec, error) {
	cfg := d.Config()
	spec := runSpec{
		Image:       cfg.String("image"),
		WorkDir:     cfg.String("work_dir"),
		Env:         cfg.StringMap("env"),
		NetworkMode: cfg.String("network_mode"),
		Timeout:     cfg.Duration("timeout", 10*time.Minute),
	}
	if img := strings.TrimSpace(in.Text("image")); img != "" {
		spec.Image = img
	}
	if spec.Image == "" {
		return runSpec{}, component.Configuration(d.Name(), "image", "no image configured")
	}
	if v, ok := cfg.Get("memory_limit"); ok {
		n, err := component.CoerceValue(component.TypeInt, v)
		if err != nil || n.(int64) < 0 {
			return runSpec{}, component.Configuration(d.Name(), "memory_limit", "must be a non-negative byte count")
		}
		spec.MemoryLimit = n.(int64)
	}
	if v, ok := cfg.Get("cpu_limit"); ok {
		f, err := component.CoerceValue(component.TypeFloat, v)
		if err != nil || f.(float64) < 0 {
			return runSpec{}, component.Configuration(d.Name(), "cpu_limit", "must be a non-negative number")
		}
		spec.CPULimit = f.(float64)
	}

	for i, arg := range in.List("command") {
		s, ok := arg.(string)
		if !ok {
			return runSpec{}, d.InvalidInput("command", "argument %d is %T, want string", i, arg)
		}
		spec.Cmd = append(spec.Cmd, s)
	}
	if len(spec.Cmd) == 0 {
		return runSpec{}, d.InvalidInput("command", "must not be empty")
	}

	if in.Has("env") {
		extra, ok := in.Value("env").(map[string]any)
		if !ok {
			return runSpec{}, d.InvalidInput("env", "expected an object")
		}
		if spec.Env == nil {
			spec.Env = make(map[string]string, len(extra))
		}
		for k, v := range extra {
			spec.Env[k] = fmt.Sprint(v)
		}
	}

	for i, raw := range in.List("files") {
		f, err := component.FileFrom(raw)
		if err != nil {
			return runSpec{}, d.InvalidInput("files", "item %d: %v", i, err)
		}
		if err := f.Exists(); err != nil {
			return runSpec{}, d.InvalidInput("files", "item %d: %v", i, err)
		}
		spec.Files = append(spec.Files, f)
	}
	if len(spec.Files) > 0 && spec.WorkDir == "" {
		return runSpec{}, component.Configuration(d.Name(), "work_dir", "required when files are copied in")
	}
	return spec, nil
}
