// Package llm provides a chat completion component backed by either the
// OpenAI or the Anthropic HTTP API.
package llm

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/GoCodeAlone/workflow-components/component"
	"github.com/GoCodeAlone/workflow-components/internal/httpclient"
	"github.com/GoCodeAlone/workflow-components/plugin"
)

const (
	providerOpenAI    = "openai"
	providerAnthropic = "anthropic"
)

// Plugin registers the llm.* components.
type Plugin struct {
	plugin.BasePlugin
}

// New creates the llm plugin.
func New() *Plugin {
	return &Plugin{
		BasePlugin: plugin.BasePlugin{
			PluginName:        "llm",
			PluginVersion:     "1.0.0",
			PluginDescription: "Chat completions via OpenAI or Anthropic",
		},
	}
}

// Components returns the llm.* registrations.
func (p *Plugin) Components() []component.Registration {
	return []component.Registration{{Descriptor: chatDescriptor, Factory: newChat}}
}

var chatDescriptor = component.Descriptor{
	Name:        "llm.chat",
	Description: "Sends a prompt (and optional system message) to a chat model and returns the reply text",
	Group:       "llm",
	Inputs: []component.InputDef{
		{Name: "prompt", Type: component.TypeText},
		{Name: "system", Type: component.TypeText, Optional: true},
	},
	Output: component.TypeText,
	Config: []component.ConfigField{
		{Key: "provider", Default: providerOpenAI, Description: "openai or anthropic"},
		{Key: "openai_api_key", Secret: true, Env: "OPENAI_API_KEY"},
		{Key: "anthropic_api_key", Secret: true, Env: "ANTHROPIC_API_KEY"},
		{Key: "model", Description: "Defaults to a provider-specific model"},
		{Key: "base_url", Description: "Override the provider API base URL"},
		{Key: "max_tokens", Default: 1024},
		{Key: "temperature", Description: "Sampling temperature; provider default when unset"},
		{Key: "timeout", Default: "60s"},
	},
}

type chat struct {
	component.Base
	client *component.Lazy[*http.Client]
}

func newChat(cfg component.Config) (component.Component, error) {
	return &chat{
		Base: component.NewBase(chatDescriptor, cfg),
		client: component.NewLazy(func(context.Context) (*http.Client, error) {
			return httpclient.New(0), nil
		}),
	}, nil
}

// completion is one provider's request/response mapping.
type completion interface {
	keyField() string
	request(c *chat, prompt, system string) (url string, headers map[string]string, body any)
	reply(body []byte) (string, error)
}

func (c *chat) Run(ctx context.Context, in component.Inputs) (any, error) {
	var p completion
	switch provider := strings.ToLower(c.Config().String("provider")); provider {
	case providerOpenAI:
		p = openAI{}
	case providerAnthropic:
		p = anthropic{}
	default:
		return nil, component.Configuration(c.Name(), "provider", "unsupported provider %q", provider)
	}
	if err := c.Require(p.keyField()); err != nil {
		return nil, err
	}
	prompt := in.Text("prompt")
	if strings.TrimSpace(prompt) == "" {
		return nil, c.InvalidInput("prompt", "must not be empty")
	}

	client, err := c.client.Get(ctx)
	if err != nil {
		return nil, c.External("client", err)
	}
	url, headers, body := p.request(c, prompt, in.Text("system"))
	resp, err := httpclient.Do(ctx, client, httpclient.Request{
		Method:  http.MethodPost,
		URL:     url,
		Header:  headers,
		JSON:    body,
		Timeout: c.Config().Duration("timeout", 60*time.Second),
	})
	if err != nil {
		return nil, c.External("completion", err)
	}
	if !resp.OK() {
		return nil, c.ExternalStatus("completion", resp.StatusCode, string(resp.Body))
	}
	text, err := p.reply(resp.Body)
	if err != nil {
		return nil, c.External("decode", err)
	}
	return text, nil
}

func (c *chat) model(def string) string {
	if m := c.Config().String("model"); m != "" {
		return m
	}
	return def
}

func (c *chat) baseURL(def string) string {
	if u := c.Config().String("base_url"); u != "" {
		return strings.TrimRight(u, "/")
	}
	return def
}

// temperature returns the configured temperature, or nil to omit it.
func (c *chat) temperature() *float64 {
	v, ok := c.Config().Get("temperature")
	if !ok {
		return nil
	}
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case int:
		f = float64(t)
	default:
		n, err := component.CoerceValue(component.TypeFloat, v)
		if err != nil {
			return nil
		}
		f = n.(float64)
	}
	return &f
}
