// Package notify provides outbound notification components.
package notify

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/GoCodeAlone/workflow-components/component"
	"github.com/GoCodeAlone/workflow-components/internal/httpclient"
	"github.com/GoCodeAlone/workflow-components/plugin"
)

// Plugin registers the notify.* components.
type Plugin struct {
	plugin.BasePlugin
}

// New creates the notify plugin.
func New() *Plugin {
	return &Plugin{
		BasePlugin: plugin.BasePlugin{
			PluginName:        "notify",
			PluginVersion:     "1.0.0",
			PluginDescription: "Chat notifications (Slack incoming webhooks)",
		},
	}
}

// Components returns the notify.* registrations.
func (p *Plugin) Components() []component.Registration {
	return []component.Registration{{Descriptor: slackDescriptor, Factory: newSlack}}
}

var slackDescriptor = component.Descriptor{
	Name:        "notify.slack",
	Description: "Posts a message to a Slack incoming webhook",
	Group:       "notify",
	Inputs: []component.InputDef{
		{Name: "text", Type: component.TypeText},
		{Name: "channel", Type: component.TypeText, Optional: true, Description: "Overrides the configured channel"},
	},
	Output: component.TypeJSON,
	Config: []component.ConfigField{
		{Key: "webhook_url", Required: true, Secret: true, Env: "SLACK_WEBHOOK_URL"},
		{Key: "channel"},
		{Key: "username"},
		{Key: "timeout", Default: "10s"},
	},
	SideEffects: "posts a message to a Slack channel",
}

type slackPayload struct {
	Channel  string `json:"channel,omitempty"`
	Username string `json:"username,omitempty"`
	Text     string `json:"text"`
}

type slack struct {
	component.Base
	client *component.Lazy[*http.Client]
}

func newSlack(cfg component.Config) (component.Component, error) {
	return &slack{
		Base: component.NewBase(slackDescriptor, cfg),
		client: component.NewLazy(func(context.Context) (*http.Client, error) {
			return httpclient.New(0), nil
		}),
	}, nil
}

func (s *slack) Run(ctx context.Context, in component.Inputs) (any, error) {
	if err := s.Require("webhook_url"); err != nil {
		return nil, err
	}
	text := in.Text("text")
	if strings.TrimSpace(text) == "" {
		return nil, s.InvalidInput("text", "must not be empty")
	}
	channel := in.Text("channel")
	if channel == "" {
		channel = s.Config().String("channel")
	}

	client, err := s.client.Get(ctx)
	if err != nil {
		return nil, s.External("client", err)
	}
	resp, err := httpclient.Do(ctx, client, httpclient.Request{
		Method:  http.MethodPost,
		URL:     s.Config().String("webhook_url"),
		JSON:    slackPayload{Channel: channel, Username: s.Config().String("username"), Text: text},
		Timeout: s.Config().Duration("timeout", 10*time.Second),
	})
	if err != nil {
		return nil, s.External("post", err)
	}
	if !resp.OK() {
		return nil, s.ExternalStatus("post", resp.StatusCode, string(resp.Body))
	}
	return map[string]any{"sent": true, "channel": channel}, nil
}
