// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package ai

import (
	"context"
	"fmt"
	"net/http"
)

// chatProvider speaks the OpenAI chat completions format, which Mistral
// also accepts.
type chatProvider struct {
	name   string
	config ProviderConfig
	client *http.Client
}

func newOpenAI(cfg ProviderConfig) *chatProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	return &chatProvider{name: "openai", config: cfg, client: &http.Client{Timeout: generateTimeout}}
}

func newMistral(cfg ProviderConfig) *chatProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.mistral.ai/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "mistral-small-latest"
	}
	return &chatProvider{name: "mistral", config: cfg, client: &http.Client{Timeout: generateTimeout}}
}

func (p *chatProvider) Name() string { return p.name }

func (p *chatProvider) Generate(ctx context.Context, pr Prompt) (string, error) {
	body := chatRequest{
		Model: p.config.Model,
		Messages: []chatMessage{
			{Role: "system", Content: pr.System},
			{Role: "user", Content: pr.User},
		},
		MaxTokens:   pr.MaxTokens,
		Temperature: pr.Temperature,
	}

	var result chatResponse
	err := postJSON(ctx, p.client, p.name, p.config.BaseURL+"/chat/completions",
		map[string]string{"Authorization": "Bearer " + p.config.APIKey}, body, &result)
	if err != nil {
		return "", err
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("%s: no choices returned", p.name)
	}
	return result.Choices[0].Message.Content, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}
