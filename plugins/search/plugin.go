// Package search provides web search components.
package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/GoCodeAlone/workflow-components/component"
	"github.com/GoCodeAlone/workflow-components/internal/httpclient"
	"github.com/GoCodeAlone/workflow-components/plugin"
)

const defaultBingEndpoint = "https://api.bing.microsoft.com/v7.0/search"

// Plugin registers the search.* components.
type Plugin struct {
	plugin.BasePlugin
}

// New creates the search plugin.
func New() *Plugin {
	return &Plugin{
		BasePlugin: plugin.BasePlugin{
			PluginName:        "search",
			PluginVersion:     "1.0.0",
			PluginDescription: "Web search (Bing Web Search v7)",
		},
	}
}

// Components returns the search.* registrations.
func (p *Plugin) Components() []component.Registration {
	return []component.Registration{{Descriptor: bingDescriptor, Factory: newBing}}
}

var bingDescriptor = component.Descriptor{
	Name:        "search.bing",
	Description: "Queries Bing Web Search and returns the ranked web results",
	Group:       "search",
	Inputs: []component.InputDef{
		{Name: "query", Type: component.TypeText},
		{Name: "count", Type: component.TypeInt, Optional: true, Description: "Results to return (1-50, default 10)"},
	},
	Output: component.TypeJSON,
	Config: []component.ConfigField{
		{Key: "api_key", Required: true, Secret: true, Env: "BING_SEARCH_API_KEY", Description: "Ocp-Apim-Subscription-Key"},
		{Key: "endpoint", Default: defaultBingEndpoint},
		{Key: "market", Description: "Market code such as en-US"},
		{Key: "safe_search", Default: "Moderate", Description: "Off, Moderate or Strict"},
		{Key: "timeout", Default: "15s"},
	},
}

type bing struct {
	component.Base
	client *component.Lazy[*http.Client]
}

func newBing(cfg component.Config) (component.Component, error) {
	return &bing{
		Base: component.NewBase(bingDescriptor, cfg),
		client: component.NewLazy(func(context.Context) (*http.Client, error) {
			return httpclient.New(0), nil
		}),
	}, nil
}

type bingResponse struct {
	WebPages struct {
		TotalEstimatedMatches int64 `json:"totalEstimatedMatches"`
		Value                 []struct {
			Name             string `json:"name"`
			URL              string `json:"url"`
			Snippet          string `json:"snippet"`
			DateLastCrawled  string `json:"dateLastCrawled"`
			DisplayURL       string `json:"displayUrl"`
			IsFamilyFriendly bool   `json:"isFamilyFriendly"`
		} `json:"value"`
	} `json:"webPages"`
}

func (b *bing) Run(ctx context.Context, in component.Inputs) (any, error) {
	if err := b.Require("api_key"); err != nil {
		return nil, err
	}
	query := strings.TrimSpace(in.Text("query"))
	if query == "" {
		return nil, b.InvalidInput("query", "must not be empty")
	}
	count := in.Int("count", 10)
	if count < 1 || count > 50 {
		return nil, b.InvalidInput("count", "must be between 1 and 50, got %d", count)
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("count", strconv.FormatInt(count, 10))
	params.Set("safeSearch", b.Config().String("safe_search"))
	if mkt := b.Config().String("market"); mkt != "" {
		params.Set("mkt", mkt)
	}

	client, err := b.client.Get(ctx)
	if err != nil {
		return nil, b.External("client", err)
	}
	resp, err := httpclient.Do(ctx, client, httpclient.Request{
		URL:     b.Config().String("endpoint") + "?" + params.Encode(),
		Header:  map[string]string{"Ocp-Apim-Subscription-Key": b.Config().String("api_key")},
		Timeout: b.Config().Duration("timeout", 15*time.Second),
	})
	if err != nil {
		return nil, b.External("search", err)
	}
	if !resp.OK() {
		return nil, b.ExternalStatus("search", resp.StatusCode, string(resp.Body))
	}

	var parsed bingResponse
	if err := json.Unmarshal(resp.Body, &parsed); err != nil {
		return nil, b.External("decode", err)
	}
	results := make([]any, 0, len(parsed.WebPages.Value))
	for _, v := range parsed.WebPages.Value {
		results = append(results, map[string]any{
			"title":   v.Name,
			"url":     v.URL,
			"snippet": v.Snippet,
		})
	}
	return map[string]any{
		"query":            query,
		"total_estimated":  parsed.WebPages.TotalEstimatedMatches,
		"results":          results,
		"returned_results": len(results),
	}, nil
}
