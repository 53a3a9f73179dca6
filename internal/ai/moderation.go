// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package ai

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strings"
)

// ModerationResult is the outcome of a prompt safety check.
type ModerationResult struct {
	Safe       bool
	Categories []string // flagged categories, readable form
}

// Moderator checks prompts for policy violations before generation.
type Moderator interface {
	CheckSafety(ctx context.Context, text string) (*ModerationResult, error)
}

// apiModerator calls a /moderations endpoint. OpenAI's is free for key
// holders; Mistral's shares the request shape but reports no top-level
// flag.
type apiModerator struct {
	service string
	model   string
	url     string
	apiKey  string
	client  *http.Client
}

func newOpenAIModerator(apiKey, baseURL string) *apiModerator {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &apiModerator{
		service: "openai moderation",
		model:   "omni-moderation-latest",
		url:     baseURL + "/moderations",
		apiKey:  apiKey,
		client:  &http.Client{Timeout: moderateTimeout},
	}
}

func newMistralModerator(apiKey, baseURL string) *apiModerator {
	if baseURL == "" {
		baseURL = "https://api.mistral.ai/v1"
	}
	return &apiModerator{
		service: "mistral moderation",
		model:   "mistral-moderation-latest",
		url:     baseURL + "/moderations",
		apiKey:  apiKey,
		client:  &http.Client{Timeout: moderateTimeout},
	}
}

func (m *apiModerator) CheckSafety(ctx context.Context, text string) (*ModerationResult, error) {
	var resp moderationResponse
	err := postJSON(ctx, m.client, m.service, m.url,
		map[string]string{"Authorization": "Bearer " + m.apiKey},
		moderationRequest{Model: m.model, Input: text}, &resp)
	if err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return &ModerationResult{Safe: true}, nil
	}

	r := resp.Results[0]
	var flagged []string
	for cat, hit := range r.Categories {
		if hit {
			flagged = append(flagged, readableCategory(cat))
		}
	}
	sort.Strings(flagged)
	return &ModerationResult{
		Safe:       !r.Flagged && len(flagged) == 0,
		Categories: flagged,
	}, nil
}

// readableCategory turns "hate/threatening" into "hate (threatening)".
func readableCategory(cat string) string {
	if head, tail, ok := strings.Cut(cat, "/"); ok {
		cat = head + " (" + tail + ")"
	}
	return strings.ReplaceAll(cat, "_", " ")
}

// fallbackModerator tries each moderator in order and moves on when one
// rejects its credentials (project-scoped OpenAI keys cannot moderate).
type fallbackModerator []Moderator

func (f fallbackModerator) CheckSafety(ctx context.Context, text string) (*ModerationResult, error) {
	var err error
	for _, m := range f {
		var res *ModerationResult
		res, err = m.CheckSafety(ctx, text)
		if err == nil {
			return res, nil
		}
		var se *StatusError
		if !errors.As(err, &se) || (se.Status != http.StatusUnauthorized && se.Status != http.StatusForbidden) {
			return nil, err
		}
		slog.Warn("moderator rejected credentials, trying next", "service", se.Service, "status", se.Status)
	}
	return nil, err
}

type moderationRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type moderationResponse struct {
	Results []struct {
		Flagged    bool            `json:"flagged"`
		Categories map[string]bool `json:"categories"`
	} `json:"results"`
}
