package llm

import (
	"encoding/json"
	"errors"
	"strings"
)

type openAI struct{}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature *float64        `json:"temperature,omitempty"`
}

type openAIResponse struct {
	Choices []struct {
		Message openAIMessage `json:"message"`
	} `json:"choices"`
}

func (openAI) keyField() string { return "openai_api_key" }

func (openAI) request(c *chat, prompt, system string) (string, map[string]string, any) {
	var msgs []openAIMessage
	if system != "" {
		msgs = append(msgs, openAIMessage{Role: "system", Content: system})
	}
	msgs = append(msgs, openAIMessage{Role: "user", Content: prompt})
	return c.baseURL("https://api.openai.com") + "/v1/chat/completions",
		map[string]string{"Authorization": "Bearer " + c.Config().String("openai_api_key")},
		openAIRequest{
			Model:       c.model("gpt-4o-mini"),
			Messages:    msgs,
			MaxTokens:   c.Config().Int("max_tokens", 1024),
			Temperature: c.temperature(),
		}
}

func (openAI) reply(body []byte) (string, error) {
	var resp openAIResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("response contained no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

const anthropicVersion = "2023-06-01"

type anthropic struct{}

type anthropicRequest struct {
	Model       string          `json:"model"`
	MaxTokens   int             `json:"max_tokens"`
	System      string          `json:"system,omitempty"`
	Messages    []openAIMessage `json:"messages"`
	Temperature *float64        `json:"temperature,omitempty"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text,omitempty"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

func (anthropic) keyField() string { return "anthropic_api_key" }

func (anthropic) request(c *chat, prompt, system string) (string, map[string]string, any) {
	return c.baseURL("https://api.anthropic.com") + "/v1/messages",
		map[string]string{
			"x-api-key":         c.Config().String("anthropic_api_key"),
			"anthropic-version": anthropicVersion,
		},
		anthropicRequest{
			Model:       c.model("claude-sonnet-4-20250514"),
			MaxTokens:   c.Config().Int("max_tokens", 1024),
			System:      system,
			Messages:    []openAIMessage{{Role: "user", Content: prompt}},
			Temperature: c.temperature(),
		}
}

func (anthropic) reply(body []byte) (string, error) {
	var resp anthropicResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", err
	}
	var texts []string
	for _, block := range resp.Content {
		if block.Type == "text" {
			texts = append(texts, block.Text)
		}
	}
	if len(texts) == 0 {
		return "", errors.New("response contained no text blocks")
	}
	return strings.Join(texts, "\n"), nil
}
