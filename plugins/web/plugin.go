// Package web provides plain HTTP components: a read-only fetch and a
// general request that may mutate the remote side.
package web

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/GoCodeAlone/workflow-components/component"
	"github.com/GoCodeAlone/workflow-components/internal/httpclient"
	"github.com/GoCodeAlone/workflow-components/plugin"
)

// Plugin registers the web.* components.
type Plugin struct {
	plugin.BasePlugin
}

// New creates the web plugin.
func New() *Plugin {
	return &Plugin{
		BasePlugin: plugin.BasePlugin{
			PluginName:        "web",
			PluginVersion:     "1.0.0",
			PluginDescription: "HTTP fetch and request components",
		},
	}
}

// Components returns the web.* registrations.
func (p *Plugin) Components() []component.Registration {
	return []component.Registration{
		{Descriptor: fetchDescriptor, Factory: newCaller(fetchDescriptor)},
		{Descriptor: requestDescriptor, Factory: newCaller(requestDescriptor)},
	}
}

var commonConfig = []component.ConfigField{
	{Key: "timeout", Default: "30s", Description: "Per-request timeout"},
	{Key: "headers", Description: "Headers added to every request (map)"},
}

var fetchDescriptor = component.Descriptor{
	Name:        "web.http_fetch",
	Description: "GETs a URL and returns status, headers and the body (JSON-decoded when possible)",
	Group:       "web",
	Inputs: []component.InputDef{
		{Name: "url", Type: component.TypeText},
		{Name: "headers", Type: component.TypeJSON, Optional: true},
	},
	Output: component.TypeJSON,
	Config: commonConfig,
}

var requestDescriptor = component.Descriptor{
	Name:        "web.http_request",
	Description: "Sends an HTTP request with an optional JSON body",
	Group:       "web",
	Inputs: []component.InputDef{
		{Name: "url", Type: component.TypeText},
		{Name: "method", Type: component.TypeText, Optional: true, Description: "Defaults to POST"},
		{Name: "body", Type: component.TypeJSON, Optional: true},
		{Name: "headers", Type: component.TypeJSON, Optional: true},
	},
	Output:      component.TypeJSON,
	Config:      commonConfig,
	SideEffects: "the remote endpoint may change state",
}

type caller struct {
	component.Base
	client *component.Lazy[*http.Client]
}

func newCaller(d component.Descriptor) component.Factory {
	return func(cfg component.Config) (component.Component, error) {
		return &caller{
			Base: component.NewBase(d, cfg),
			client: component.NewLazy(func(context.Context) (*http.Client, error) {
				return httpclient.New(0), nil
			}),
		}, nil
	}
}

func (c *caller) Run(ctx context.Context, in component.Inputs) (any, error) {
	target := in.Text("url")
	u, err := url.Parse(target)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, c.InvalidInput("url", "%q is not an absolute http(s) URL", target)
	}

	method := http.MethodGet
	if c.Descriptor().Name == requestDescriptor.Name {
		method = strings.ToUpper(in.Text("method"))
		if method == "" {
			method = http.MethodPost
		}
	}

	headers := c.Config().StringMap("headers")
	if headers == nil {
		headers = map[string]string{}
	}
	if in.Has("headers") {
		h, ok := in.Value("headers").(map[string]any)
		if !ok {
			return nil, c.InvalidInput("headers", "expected an object, got %T", in.Value("headers"))
		}
		for k, v := range h {
			if s, ok := v.(string); ok {
				headers[k] = s
			}
		}
	}

	client, err := c.client.Get(ctx)
	if err != nil {
		return nil, c.External("client", err)
	}
	resp, err := httpclient.Do(ctx, client, httpclient.Request{
		Method:  method,
		URL:     u.String(),
		Header:  headers,
		JSON:    in.Value("body"),
		Timeout: c.Config().Duration("timeout", 30*time.Second),
	})
	if err != nil {
		return nil, c.External(method+" "+u.Host, err)
	}
	if !resp.OK() {
		return nil, c.ExternalStatus(method+" "+u.Host, resp.StatusCode, string(resp.Body))
	}
	return map[string]any{
		"status_code": resp.StatusCode,
		"headers":     resp.Headers(),
		"body":        resp.DecodedBody(),
	}, nil
}
