// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"probitcms/internal/apperr"
	"probitcms/internal/auth"
	"probitcms/internal/markdown"
)

// Action names an editor assistant task.
type Action string

const (
	ActionGeneratePost    Action = "generate_post"
	ActionGenerateTitle   Action = "generate_title"
	ActionGenerateExcerpt Action = "generate_excerpt"
	ActionExpandContent   Action = "expand_content"
	ActionImproveContent  Action = "improve_content"
	ActionGenerateSEO     Action = "generate_seo"
	ActionGenerateTags    Action = "generate_tags"
)

const (
	postMaxTokens    = 2000
	snippetMaxTokens = 500
	temperature      = 0.7
	defaultCategory  = "Technology"
)

// Request is one assistant call from the post editor.
type Request struct {
	Action   Action `json:"action"`
	Prompt   string `json:"prompt"`
	Content  string `json:"content"`
	Category string `json:"category"`
}

// SEO is the parsed generate_seo answer.
type SEO struct {
	Description string `json:"description"`
	Keywords    string `json:"keywords"`
}

// Result carries the generated text. Titles, SEO and Tags are filled when
// the action's answer could be parsed; Text always holds the raw answer
// (HTML for generate_post).
type Result struct {
	Action Action   `json:"action"`
	Text   string   `json:"result"`
	Titles []string `json:"titles,omitempty"`
	SEO    *SEO     `json:"seo,omitempty"`
	Tags   []string `json:"tags,omitempty"`
}

// Generator is what the assistant needs from the Registry.
type Generator interface {
	Generate(ctx context.Context, p Prompt) (string, error)
	CheckPrompt(ctx context.Context, prompt string) (*ModerationResult, error)
}

// Assistant turns editor requests into provider prompts.
type Assistant struct {
	gen     Generator
	company string
}

// NewAssistant builds an assistant writing on behalf of company.
func NewAssistant(gen Generator, company string) *Assistant {
	return &Assistant{gen: gen, company: company}
}

// Run executes one assistant action for an operator.
func (a *Assistant) Run(ctx context.Context, ac auth.Context, req Request) (*Result, error) {
	const op = "ai.Run"
	operator, err := auth.Require(ac, op)
	if err != nil {
		return nil, err
	}

	req.Prompt = strings.TrimSpace(req.Prompt)
	req.Content = strings.TrimSpace(req.Content)
	p, err := a.prompt(op, req)
	if err != nil {
		return nil, err
	}

	check := req.Prompt
	if check == "" {
		check = req.Content
	}
	mod, err := a.gen.CheckPrompt(ctx, check)
	if err != nil {
		// Moderation outages do not block the editor.
		slog.Warn("prompt moderation failed", "error", err)
	} else if !mod.Safe {
		slog.Info("prompt flagged", "operator", operator.ID, "categories", mod.Categories)
		return nil, apperr.Validation(op, "prompt",
			"prompt was flagged by content moderation: "+strings.Join(mod.Categories, ", "))
	}

	text, err := a.gen.Generate(ctx, p)
	if err != nil {
		return nil, apperr.External(op, "ai", err)
	}
	text = stripFences(text)

	res := &Result{Action: req.Action, Text: text}
	switch req.Action {
	case ActionGeneratePost:
		html, err := markdown.ToHTML(text)
		if err != nil {
			return nil, fmt.Errorf("%s: render markdown: %w", op, err)
		}
		res.Text = html
	case ActionGenerateTitle:
		res.Titles = parseTitles(text)
	case ActionGenerateSEO:
		var seo SEO
		if json.Unmarshal([]byte(text), &seo) == nil && seo.Description != "" {
			res.SEO = &seo
		}
	case ActionGenerateTags:
		res.Tags = splitTags(text)
	}

	slog.Info("assistant generated", "action", req.Action, "operator", operator.ID, "chars", len(res.Text))
	return res, nil
}

func (a *Assistant) prompt(op string, req Request) (Prompt, error) {
	needPrompt := func() error {
		if req.Prompt == "" {
			return apperr.Validation(op, "prompt", "prompt is required")
		}
		return nil
	}
	needContent := func() error {
		if req.Content == "" {
			return apperr.Validation(op, "content", "content is required")
		}
		return nil
	}

	p := Prompt{MaxTokens: snippetMaxTokens, Temperature: temperature}
	switch req.Action {
	case ActionGeneratePost:
		if err := needPrompt(); err != nil {
			return p, err
		}
		category := strings.TrimSpace(req.Category)
		if category == "" {
			category = defaultCategory
		}
		p.MaxTokens = postMaxTokens
		p.System = fmt.Sprintf("You are a professional blog writer for %s, a software testing and development company. Write engaging, informative, and SEO-optimized blog posts.", a.company)
		p.User = fmt.Sprintf(`Write a comprehensive blog post about: %s

Category: %s

Include:
- Engaging introduction
- Well-structured sections with ## and ### headings
- Practical examples
- Conclusion with key takeaways

Output clean Markdown only. Do not wrap it in code fences.`, req.Prompt, category)

	case ActionGenerateTitle:
		if err := needPrompt(); err != nil {
			return p, err
		}
		p.System = "You are a creative content strategist. Generate catchy, SEO-friendly blog post titles."
		p.User = fmt.Sprintf("Generate 5 engaging blog post titles about: %s\n\nMake them catchy, informative, and optimized for clicks. Return as a JSON array of strings.", req.Prompt)

	case ActionGenerateExcerpt:
		if err := needContent(); err != nil {
			return p, err
		}
		p.System = "You are an expert at writing compelling blog post summaries."
		p.User = fmt.Sprintf("Write a compelling 2-3 sentence excerpt for this blog post:\n\n%s\n\nMake people want to read more. Return the excerpt only.", req.Content)

	case ActionExpandContent:
		if err := needContent(); err != nil {
			return p, err
		}
		p.System = "You are a professional content writer. Expand brief ideas into detailed, engaging paragraphs."
		p.User = fmt.Sprintf("Expand this brief idea into a detailed, well-written paragraph (3-5 sentences):\n\n%s", req.Content)

	case ActionImproveContent:
		if err := needContent(); err != nil {
			return p, err
		}
		p.System = "You are an expert editor. Improve grammar, style, and readability while keeping the original meaning."
		p.User = fmt.Sprintf("Improve this text for grammar, style, and readability:\n\n%s\n\nReturn the improved version only.", req.Content)

	case ActionGenerateSEO:
		if err := needPrompt(); err != nil {
			return p, err
		}
		p.System = "You are an SEO expert. Generate optimized meta descriptions and keywords."
		p.User = fmt.Sprintf(`Based on this blog post title and content:

Title: %s
Content: %s

Generate:
1. SEO meta description (150-160 characters)
2. 5-7 relevant keywords (comma-separated)

Return as JSON: {"description": "...", "keywords": "..."}`, req.Prompt, req.Content)

	case ActionGenerateTags:
		if err := needContent(); err != nil {
			return p, err
		}
		p.System = "You are a content categorization expert."
		p.User = fmt.Sprintf("Suggest 5-7 relevant tags for this blog post:\n\n%s\n\nReturn comma-separated tags only (e.g. automation, testing, selenium, QA, software).", req.Content)

	default:
		return p, apperr.Validation(op, "action", "unknown assistant action")
	}
	return p, nil
}

// stripFences removes a surrounding ``` block that models add despite
// being told not to.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") || len(s) < 6 {
		return s
	}
	body := strings.TrimSuffix(strings.TrimPrefix(s, "```"), "```")
	if nl := strings.IndexByte(body, '\n'); nl >= 0 && !strings.ContainsAny(body[:nl], " \t") {
		body = body[nl+1:] // language tag line
	}
	return strings.TrimSpace(body)
}

var listMarker = regexp.MustCompile(`^(?:[-*]|\d+[.)])\s+`)

// parseTitles reads a JSON array of titles, falling back to one title per
// non-empty line.
func parseTitles(s string) []string {
	var titles []string
	if err := json.Unmarshal([]byte(s), &titles); err == nil {
		return titles
	}
	for _, line := range strings.Split(s, "\n") {
		line = listMarker.ReplaceAllString(strings.TrimSpace(line), "")
		line = strings.Trim(line, `"`)
		if line != "" {
			titles = append(titles, line)
		}
	}
	return titles
}

func splitTags(s string) []string {
	var tags []string
	seen := make(map[string]bool)
	for _, t := range strings.Split(s, ",") {
		t = strings.Trim(strings.TrimSpace(t), `"#.`)
		key := strings.ToLower(t)
		if t == "" || seen[key] {
			continue
		}
		seen[key] = true
		tags = append(tags, t)
	}
	return tags
}
