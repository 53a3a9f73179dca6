// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// geminiProvider calls generateContent on the Gemini REST API.
type geminiProvider struct {
	config ProviderConfig
	client *http.Client
}

func newGemini(cfg ProviderConfig) *geminiProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://generativelanguage.googleapis.com"
	}
	return &geminiProvider{config: cfg, client: &http.Client{Timeout: generateTimeout}}
}

func (p *geminiProvider) Name() string { return "gemini" }

func (p *geminiProvider) Generate(ctx context.Context, pr Prompt) (string, error) {
	body := geminiRequest{
		SystemInstruction: &geminiContent{Parts: []geminiPart{{Text: pr.System}}},
		Contents:          []geminiContent{{Parts: []geminiPart{{Text: pr.User}}}},
	}
	if pr.MaxTokens > 0 || pr.Temperature > 0 {
		body.GenerationConfig = &geminiGenerationConfig{
			MaxOutputTokens: pr.MaxTokens,
			Temperature:     pr.Temperature,
		}
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", p.config.BaseURL, p.config.Model)
	var result geminiResponse
	err := postJSON(ctx, p.client, "gemini", url,
		map[string]string{"x-goog-api-key": p.config.APIKey}, body, &result)
	if err != nil {
		return "", err
	}
	if len(result.Candidates) == 0 {
		return "", errors.New("gemini: no candidates returned")
	}
	for _, part := range result.Candidates[0].Content.Parts {
		if part.Text != "" {
			return part.Text, nil
		}
	}
	return "", errors.New("gemini: no text in response")
}

type geminiPart struct {
	Text string `json:"text,omitempty"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
	Temperature     float64 `json:"temperature,omitempty"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	Contents          []geminiContent         `json:"contents"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}
