// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package ai

import (
	"context"
	"errors"
	"net/http"
)

const claudeDefaultMaxTokens = 4096

// claudeProvider calls the Anthropic Messages API.
type claudeProvider struct {
	config ProviderConfig
	client *http.Client
}

func newClaude(cfg ProviderConfig) *claudeProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.anthropic.com"
	}
	return &claudeProvider{config: cfg, client: &http.Client{Timeout: generateTimeout}}
}

func (p *claudeProvider) Name() string { return "claude" }

func (p *claudeProvider) Generate(ctx context.Context, pr Prompt) (string, error) {
	maxTokens := pr.MaxTokens
	if maxTokens == 0 {
		maxTokens = claudeDefaultMaxTokens
	}
	body := claudeRequest{
		Model:       p.config.Model,
		MaxTokens:   maxTokens,
		System:      pr.System,
		Messages:    []chatMessage{{Role: "user", Content: pr.User}},
		Temperature: pr.Temperature,
	}

	var result claudeResponse
	err := postJSON(ctx, p.client, "claude", p.config.BaseURL+"/v1/messages", map[string]string{
		"x-api-key":         p.config.APIKey,
		"anthropic-version": "2023-06-01",
	}, body, &result)
	if err != nil {
		return "", err
	}

	for _, block := range result.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", errors.New("claude: no text content in response")
}

type claudeRequest struct {
	Model       string        `json:"model"`
	MaxTokens   int           `json:"max_tokens"`
	System      string        `json:"system,omitempty"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
}

type claudeResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}
