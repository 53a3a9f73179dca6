// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package markdown renders Markdown to HTML with goldmark and sanitizes
// every HTML fragment that reaches a page with bluemonday.
package markdown

import (
	"bytes"
	"strings"
	"sync"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

const highlightStyle = "monokai"

// article renders long-form Markdown (posts, AI drafts). Code blocks are
// highlighted with CSS classes so the sanitizer can keep them.
var article = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		extension.Typographer,
		highlighting.NewHighlighting(
			highlighting.WithStyle(highlightStyle),
			highlighting.WithFormatOptions(chromahtml.WithClasses(true)),
		),
	),
	goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	goldmark.WithRendererOptions(html.WithUnsafe()),
)

// comment renders visitor Markdown. Raw HTML is dropped at parse time.
var comment = goldmark.New(
	goldmark.WithExtensions(extension.Strikethrough, extension.Linkify),
)

var (
	postPolicy    = newPostPolicy()
	commentPolicy = newCommentPolicy()
)

func newPostPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class").Matching(bluemonday.SpaceSeparatedTokens).OnElements("pre", "code", "span", "div")
	p.AllowAttrs("id").Matching(bluemonday.Paragraph).OnElements("h1", "h2", "h3", "h4", "h5", "h6")
	p.AllowAttrs("loading").Matching(bluemonday.Paragraph).OnElements("img")
	p.AddTargetBlankToFullyQualifiedLinks(true)
	return p
}

func newCommentPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowStandardURLs()
	p.AllowAttrs("href").OnElements("a")
	p.RequireNoFollowOnLinks(true)
	p.RequireNoReferrerOnLinks(true)
	p.AllowElements("p", "br", "em", "strong", "del", "code", "pre", "blockquote", "ul", "ol", "li")
	return p
}

// ToHTML converts Markdown into sanitized post HTML.
func ToHTML(source string) (string, error) {
	var buf bytes.Buffer
	if err := article.Convert([]byte(source), &buf); err != nil {
		return "", err
	}
	return postPolicy.Sanitize(buf.String()), nil
}

// SanitizePost cleans stored post HTML before it is rendered.
func SanitizePost(h string) string {
	return postPolicy.Sanitize(h)
}

// Comment renders a visitor comment. Links get rel="nofollow noreferrer".
func Comment(source string) string {
	var buf bytes.Buffer
	if err := comment.Convert([]byte(source), &buf); err != nil {
		return commentPolicy.Sanitize(source)
	}
	return commentPolicy.Sanitize(buf.String())
}

var (
	cssOnce sync.Once
	css     string
)

// HighlightCSS returns the stylesheet for highlighted code blocks.
func HighlightCSS() string {
	cssOnce.Do(func() {
		var b strings.Builder
		f := chromahtml.New(chromahtml.WithClasses(true))
		if err := f.WriteCSS(&b, styles.Get(highlightStyle)); err == nil {
			css = b.String()
		}
	})
	return css
}
