// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package ai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type captured struct {
	path    string
	headers http.Header
	body    map[string]any
}

func newProviderServer(t *testing.T, status int, reply string, got *captured) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		if got != nil {
			got.path = r.URL.Path
			got.headers = r.Header.Clone()
			_ = json.Unmarshal(raw, &got.body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return srv
}

const (
	chatReply   = `{"choices":[{"message":{"role":"assistant","content":"hello"}}]}`
	claudeReply = `{"content":[{"type":"text","text":"hello"}]}`
	geminiReply = `{"candidates":[{"content":{"parts":[{"text":"hello"}]}}]}`
)

func TestProvidersGenerate(t *testing.T) {
	tests := []struct {
		name       string
		build      func(ProviderConfig) Provider
		reply      string
		wantPath   string
		authHeader string
		authValue  string
	}{
		{"openai", func(c ProviderConfig) Provider { return newOpenAI(c) }, chatReply, "/chat/completions", "Authorization", "Bearer key"},
		{"mistral", func(c ProviderConfig) Provider { return newMistral(c) }, chatReply, "/chat/completions", "Authorization", "Bearer key"},
		{"claude", func(c ProviderConfig) Provider { return newClaude(c) }, claudeReply, "/v1/messages", "X-Api-Key", "key"},
		{"gemini", func(c ProviderConfig) Provider { return newGemini(c) }, geminiReply, "/v1beta/models/m1:generateContent", "X-Goog-Api-Key", "key"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got captured
			srv := newProviderServer(t, http.StatusOK, tt.reply, &got)
			p := tt.build(ProviderConfig{APIKey: "key", Model: "m1", BaseURL: srv.URL})

			if p.Name() != tt.name {
				t.Errorf("Name() = %q", p.Name())
			}
			out, err := p.Generate(context.Background(), Prompt{System: "sys", User: "hi", MaxTokens: 500, Temperature: 0.7})
			if err != nil {
				t.Fatalf("Generate: %v", err)
			}
			if out != "hello" {
				t.Errorf("Generate = %q", out)
			}
			if got.path != tt.wantPath {
				t.Errorf("path = %q, want %q", got.path, tt.wantPath)
			}
			if v := got.headers.Get(tt.authHeader); v != tt.authValue {
				t.Errorf("%s = %q, want %q", tt.authHeader, v, tt.authValue)
			}
		})
	}
}

func TestChatRequestCarriesOptions(t *testing.T) {
	var got captured
	srv := newProviderServer(t, http.StatusOK, chatReply, &got)
	p := newOpenAI(ProviderConfig{APIKey: "key", Model: "gpt-test", BaseURL: srv.URL})

	if _, err := p.Generate(context.Background(), Prompt{System: "sys", User: "hi", MaxTokens: 2000, Temperature: 0.7}); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got.body["model"] != "gpt-test" {
		t.Errorf("model = %v", got.body["model"])
	}
	if got.body["max_tokens"] != float64(2000) || got.body["temperature"] != 0.7 {
		t.Errorf("options = %v / %v", got.body["max_tokens"], got.body["temperature"])
	}
	msgs, _ := got.body["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("messages = %v", got.body["messages"])
	}
}

func TestClaudeDefaultMaxTokens(t *testing.T) {
	var got captured
	srv := newProviderServer(t, http.StatusOK, claudeReply, &got)
	p := newClaude(ProviderConfig{APIKey: "key", Model: "c", BaseURL: srv.URL})

	if _, err := p.Generate(context.Background(), Prompt{User: "hi"}); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got.body["max_tokens"] != float64(claudeDefaultMaxTokens) {
		t.Errorf("max_tokens = %v", got.body["max_tokens"])
	}
	if v := got.headers.Get("Anthropic-Version"); v == "" {
		t.Errorf("missing anthropic-version header")
	}
}

func TestProvidersErrors(t *testing.T) {
	tests := []struct {
		name   string
		build  func(ProviderConfig) Provider
		status int
		reply  string
		want   string
	}{
		{"openai status", func(c ProviderConfig) Provider { return newOpenAI(c) }, http.StatusTooManyRequests, `{"error":"rate"}`, "status 429"},
		{"openai no choices", func(c ProviderConfig) Provider { return newOpenAI(c) }, http.StatusOK, `{"choices":[]}`, "no choices"},
		{"openai malformed", func(c ProviderConfig) Provider { return newOpenAI(c) }, http.StatusOK, `{`, "unmarshal"},
		{"claude no text", func(c ProviderConfig) Provider { return newClaude(c) }, http.StatusOK, `{"content":[{"type":"tool_use"}]}`, "no text"},
		{"gemini no candidates", func(c ProviderConfig) Provider { return newGemini(c) }, http.StatusOK, `{"candidates":[]}`, "no candidates"},
		{"gemini empty parts", func(c ProviderConfig) Provider { return newGemini(c) }, http.StatusOK, `{"candidates":[{"content":{"parts":[]}}]}`, "no text"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newProviderServer(t, tt.status, tt.reply, nil)
			p := tt.build(ProviderConfig{APIKey: "key", Model: "m", BaseURL: srv.URL})
			_, err := p.Generate(context.Background(), Prompt{User: "hi"})
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestStatusErrorIncludesBody(t *testing.T) {
	srv := newProviderServer(t, http.StatusBadRequest, `{"error":"bad model"}`, nil)
	p := newOpenAI(ProviderConfig{APIKey: "key", BaseURL: srv.URL})

	_, err := p.Generate(context.Background(), Prompt{User: "hi"})
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want *StatusError", err)
	}
	if se.Status != http.StatusBadRequest || !strings.Contains(se.Body, "bad model") {
		t.Errorf("status error = %+v", se)
	}
}

func TestGenerateCancelledContext(t *testing.T) {
	srv := newProviderServer(t, http.StatusOK, chatReply, nil)
	p := newOpenAI(ProviderConfig{APIKey: "key", BaseURL: srv.URL})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Generate(ctx, Prompt{User: "hi"}); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

func TestDefaultBaseURLs(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"openai", newOpenAI(ProviderConfig{}).config.BaseURL, "https://api.openai.com/v1"},
		{"mistral", newMistral(ProviderConfig{}).config.BaseURL, "https://api.mistral.ai/v1"},
		{"claude", newClaude(ProviderConfig{}).config.BaseURL, "https://api.anthropic.com"},
		{"gemini", newGemini(ProviderConfig{}).config.BaseURL, "https://generativelanguage.googleapis.com"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s base URL = %q, want %q", tt.name, tt.got, tt.want)
		}
	}
}
