// Package mcp exposes the component catalogue to AI assistants over the
// Model Context Protocol: list and describe components, validate batch
// files and run a component.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/GoCodeAlone/workflow-components/component"
	"github.com/GoCodeAlone/workflow-components/config"
	"github.com/GoCodeAlone/workflow-components/invoke"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Version is the MCP server version, set at build time.
var Version = "dev"

// Server wraps an MCP server instance bound to an invoker.
type Server struct {
	mcpServer *server.MCPServer
	inv       *invoke.Invoker
	allowRun  bool
}

// ServerOption configures optional Server behaviour.
type ServerOption func(*Server)

// WithRun enables the run_component tool. Without it the server only
// exposes read-only tools.
func WithRun(enabled bool) ServerOption {
	return func(s *Server) { s.allowRun = enabled }
}

// NewServer creates an MCP server with the component tools registered.
func NewServer(inv *invoke.Invoker, opts ...ServerOption) *Server {
	s := &Server{inv: inv}
	for _, opt := range opts {
		opt(s)
	}

	s.mcpServer = server.NewMCPServer(
		"compctl-mcp-server",
		Version,
		server.WithToolCapabilities(true),
		server.WithInstructions("This MCP server exposes a catalogue of workflow components. "+
			"Use list_components and describe_component to discover components and their inputs, "+
			"validate_batch to check a batch YAML file, and run_component (when enabled) to execute one."),
	)
	s.registerTools()
	return s
}

// MCPServer returns the underlying mcp-go server instance.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the MCP server over standard input/output.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool("list_components",
			mcp.WithDescription("List registered components with their group, description and output type. Optionally filter by group."),
			mcp.WithString("group", mcp.Description("Only list components in this group, e.g. storage")),
			mcp.WithReadOnlyHintAnnotation(true),
		),
		s.handleListComponents,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("describe_component",
			mcp.WithDescription("Return the full descriptor of a component: inputs with semantic types, config keys with defaults, output type and side effects."),
			mcp.WithString("name", mcp.Required(), mcp.Description("Component name, e.g. input.json")),
			mcp.WithReadOnlyHintAnnotation(true),
		),
		s.handleDescribeComponent,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("validate_batch",
			mcp.WithDescription("Parse a batch YAML document and check every invocation against the registry."),
			mcp.WithString("yaml_content", mcp.Required(), mcp.Description("Batch YAML content")),
			mcp.WithReadOnlyHintAnnotation(true),
		),
		s.handleValidateBatch,
	)

	if s.allowRun {
		s.mcpServer.AddTool(
			mcp.NewTool("run_component",
				mcp.WithDescription("Run a component with the given inputs and config overrides and return its output as JSON."),
				mcp.WithString("name", mcp.Required(), mcp.Description("Component name")),
				mcp.WithObject("inputs", mcp.Description("Input values keyed by input name")),
				mcp.WithObject("config", mcp.Description("Config overrides keyed by config key")),
			),
			s.handleRunComponent,
		)
	}
}

type componentSummary struct {
	Name        string              `json:"name"`
	Group       string              `json:"group"`
	Description string              `json:"description"`
	Output      component.ValueType `json:"output"`
	ReadOnly    bool                `json:"read_only"`
}

func (s *Server) handleListComponents(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	reg := s.inv.Registry()
	descs := reg.Descriptors()
	if group := mcp.ParseString(req, "group", ""); group != "" {
		descs = reg.ByGroup(group)
	}
	out := make([]componentSummary, len(descs))
	for i, d := range descs {
		out[i] = componentSummary{
			Name:        d.Name,
			Group:       d.Group,
			Description: d.Description,
			Output:      d.Output,
			ReadOnly:    d.ReadOnly(),
		}
	}
	return marshalToolResult(map[string]any{"components": out, "count": len(out)})
}

func (s *Server) handleDescribeComponent(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := mcp.ParseString(req, "name", "")
	if name == "" {
		return mcp.NewToolResultError("name is required"), nil
	}
	d, ok := s.inv.Registry().Lookup(name)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("unknown component %q", name)), nil
	}
	return marshalToolResult(d)
}

func (s *Server) handleValidateBatch(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content := mcp.ParseString(req, "yaml_content", "")
	if content == "" {
		return mcp.NewToolResultError("yaml_content is required"), nil
	}
	b, err := config.Parse([]byte(content))
	if err != nil {
		return marshalToolResult(map[string]any{"valid": false, "errors": []string{err.Error()}})
	}
	if err := b.Validate(s.inv.Registry()); err != nil {
		return marshalToolResult(map[string]any{"valid": false, "errors": splitJoined(err)})
	}
	return marshalToolResult(map[string]any{"valid": true, "name": b.Name, "invocations": len(b.Invocations)})
}

func (s *Server) handleRunComponent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := mcp.ParseString(req, "name", "")
	if name == "" {
		return mcp.NewToolResultError("name is required"), nil
	}
	inputs := mcp.ParseStringMap(req, "inputs", nil)
	cfg := mcp.ParseStringMap(req, "config", nil)

	out, err := s.inv.Invoke(ctx, name, cfg, inputs)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("%s: %v", invoke.Outcome(err), err)), nil
	}
	if f, ok := out.(component.File); ok {
		out = f.ToMap()
	}
	return marshalToolResult(map[string]any{"output": out})
}

func splitJoined(err error) []string {
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		var out []string
		for _, e := range j.Unwrap() {
			out = append(out, e.Error())
		}
		return out
	}
	return []string{err.Error()}
}

func marshalToolResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("internal error: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
