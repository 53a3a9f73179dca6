// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package ai drives the editor's writing assistant. Providers (OpenAI,
// Gemini, Claude, Mistral) sit behind one interface and the Registry picks
// the active one; prompts pass a moderation check before generation.
package ai

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Prompt is a single generation request.
type Prompt struct {
	System      string
	User        string
	MaxTokens   int     // 0 uses the provider default
	Temperature float64 // 0 uses the provider default
}

// Provider is one LLM backend.
type Provider interface {
	Generate(ctx context.Context, p Prompt) (string, error)
	Name() string
}

// ProviderConfig holds the credentials and model for one provider.
type ProviderConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// Registry holds the configured providers and the active selection.
// Safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	active    string
	moderator Moderator
}

// NewRegistry builds providers for every config with an API key. OpenAI's
// moderation endpoint is preferred for prompt checks with Mistral as the
// fallback.
func NewRegistry(active string, configs map[string]ProviderConfig) *Registry {
	r := &Registry{
		providers: make(map[string]Provider),
		active:    active,
	}

	for name, cfg := range configs {
		if cfg.APIKey == "" {
			continue
		}
		switch name {
		case "openai":
			r.providers[name] = newOpenAI(cfg)
		case "mistral":
			r.providers[name] = newMistral(cfg)
		case "gemini":
			r.providers[name] = newGemini(cfg)
		case "claude":
			r.providers[name] = newClaude(cfg)
		}
	}

	var mods []Moderator
	if cfg := configs["openai"]; cfg.APIKey != "" {
		mods = append(mods, newOpenAIModerator(cfg.APIKey, cfg.BaseURL))
	}
	if cfg := configs["mistral"]; cfg.APIKey != "" {
		mods = append(mods, newMistralModerator(cfg.APIKey, cfg.BaseURL))
	}
	switch len(mods) {
	case 0:
	case 1:
		r.moderator = mods[0]
	default:
		r.moderator = fallbackModerator(mods)
	}

	return r
}

// Generate runs p on the active provider.
func (r *Registry) Generate(ctx context.Context, p Prompt) (string, error) {
	prov, err := r.Active()
	if err != nil {
		return "", err
	}
	return prov.Generate(ctx, p)
}

// Active returns the active provider.
func (r *Registry) Active() (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[r.active]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoProvider, r.active)
	}
	return p, nil
}

// SetActive switches providers at runtime.
func (r *Registry) SetActive(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.providers[name]; !ok {
		return fmt.Errorf("%w: %q", ErrNoProvider, name)
	}
	r.active = name
	return nil
}

func (r *Registry) ActiveName() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active
}

// Available lists the configured provider names, sorted.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Enabled reports whether the active provider is configured.
func (r *Registry) Enabled() bool {
	_, err := r.Active()
	return err == nil
}

// Register adds or replaces a provider.
func (r *Registry) Register(name string, p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[name] = p
}

// SetModerator replaces the prompt moderator. nil disables moderation.
func (r *Registry) SetModerator(m Moderator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.moderator = m
}

// CheckPrompt moderates a prompt. Without a moderator every prompt passes;
// providers keep their own safety filters.
func (r *Registry) CheckPrompt(ctx context.Context, prompt string) (*ModerationResult, error) {
	r.mu.RLock()
	m := r.moderator
	r.mu.RUnlock()

	if m == nil {
		return &ModerationResult{Safe: true}, nil
	}
	return m.CheckSafety(ctx, prompt)
}
