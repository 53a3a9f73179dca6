// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package render provides HTML template rendering for the public site and
// the admin interface. Pages are parsed once at startup, each paired with
// its section's layout, and executed into a buffer so that a template error
// never leaves a half-written response.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"probitcms/internal/markdown"
	"probitcms/internal/middleware"
	"probitcms/internal/publicview"
	"probitcms/internal/session"
)

//go:embed templates/public/*.html templates/admin/*.html
var templateFS embed.FS

// Site is the company identity shown in every layout.
type Site struct {
	Company string
	Phone   string
	BaseURL string
}

// PageData holds all data passed to templates.
type PageData struct {
	Title       string            // Page title for <title> tag
	Description string            // Meta description on public pages
	Section     string            // Active navigation section (e.g. "blog", "posts")
	Session     *session.Data     // Current operator session (nil if unauthenticated)
	CSRFToken   string            // CSRF token for admin forms and fetch headers
	Data        map[string]any    // Page-specific data
	Errors      map[string]string // Inline form errors keyed by field
	Flashes     []Flash           // One-time notification messages
	Site        Site
	Year        int
}

// Renderer handles template parsing and execution.
type Renderer struct {
	templates map[string]*template.Template
	site      Site
	now       func() time.Time
}

// layouts maps a section directory to its base layout file.
var layouts = map[string]string{
	"public": "base.html",
	"admin":  "base.html",
}

// standaloneTemplates are admin pages shown before sign-in completes. They
// use the slim auth layout instead of the sidebar layout.
var standaloneTemplates = map[string]bool{
	"admin/login":      true,
	"admin/setup":      true,
	"admin/2fa_setup":  true,
	"admin/2fa_verify": true,
}

// New parses every page template from the embedded filesystem.
func New(site Site) (*Renderer, error) {
	r := &Renderer{
		templates: make(map[string]*template.Template),
		site:      site,
		now:       time.Now,
	}
	funcs := funcMap()

	for dir, layout := range layouts {
		entries, err := templateFS.ReadDir("templates/" + dir)
		if err != nil {
			return nil, fmt.Errorf("read embedded templates: %w", err)
		}
		for _, e := range entries {
			file := e.Name()
			if e.IsDir() || file == layout || file == "auth.html" {
				continue
			}
			name := dir + "/" + strings.TrimSuffix(file, ".html")

			base := layout
			if standaloneTemplates[name] {
				base = "auth.html"
			}
			tmpl, err := template.New(base).Funcs(funcs).ParseFS(
				templateFS, "templates/"+dir+"/"+base, "templates/"+dir+"/"+file,
			)
			if err != nil {
				return nil, fmt.Errorf("parse template %s: %w", name, err)
			}
			r.templates[name] = tmpl
		}
	}
	return r, nil
}

// Page renders name with status 200.
func (rn *Renderer) Page(w http.ResponseWriter, r *http.Request, name string, data *PageData) {
	rn.PageStatus(w, r, http.StatusOK, name, data)
}

// PageStatus renders name for the current request. The session, CSRF token
// and any pending flash are filled in from the request.
func (rn *Renderer) PageStatus(w http.ResponseWriter, r *http.Request, status int, name string, data *PageData) {
	if data == nil {
		data = &PageData{}
	}
	data.CSRFToken = middleware.CSRFToken(r)
	if data.Session == nil {
		data.Session = middleware.SessionFromCtx(r.Context())
	}
	if f, ok := PopFlash(w, r); ok {
		data.Flashes = append(data.Flashes, f)
	}

	body, err := rn.Bytes(name, data)
	if err != nil {
		slog.Error("template render failed", "template", name, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(body)
}

// Bytes executes name into memory without touching any request state. The
// public handlers use it to produce cacheable pages.
func (rn *Renderer) Bytes(name string, data *PageData) ([]byte, error) {
	tmpl, ok := rn.templates[name]
	if !ok {
		return nil, fmt.Errorf("template %q not found", name)
	}
	if data == nil {
		data = &PageData{}
	}
	data.Site = rn.site
	data.Year = rn.now().Year()

	root := layouts[strings.SplitN(name, "/", 2)[0]]
	if standaloneTemplates[name] {
		root = "auth.html"
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, root, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Has reports whether a template is registered.
func (rn *Renderer) Has(name string) bool {
	_, ok := rn.templates[name]
	return ok
}

func funcMap() template.FuncMap {
	return template.FuncMap{
		"activeClass": func(current, target string) string {
			if current == target {
				return "active"
			}
			return ""
		},
		// deref safely dereferences a string pointer for use in templates.
		"deref": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
		"date": func(t time.Time) string {
			return t.Format("2 January 2006")
		},
		"datetime": func(t time.Time) string {
			return t.Format("02 Jan 2006 15:04")
		},
		"money":       Money,
		"postHTML":    func(h string) template.HTML { return template.HTML(markdown.SanitizePost(h)) },
		"commentHTML": func(s string) template.HTML { return template.HTML(markdown.Comment(s)) },
		"highlightCSS": func() template.CSS {
			return template.CSS(markdown.HighlightCSS())
		},
		"join":     strings.Join,
		"truncate": Truncate,
		"pageURL":  PageURL,
		"add":      func(a, b int) int { return a + b },
		"sub":      func(a, b int) int { return a - b },
		"field": func(errs map[string]string, name string) string {
			return errs[name]
		},
	}
}

// Money formats an amount in minor units, e.g. 149900 "gbp" as £1,499.00.
func Money(amount int64, currency string) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	whole := strconv.FormatInt(amount/100, 10)
	for i := len(whole) - 3; i > 0; i -= 3 {
		whole = whole[:i] + "," + whole[i:]
	}
	symbol := strings.ToUpper(currency) + " "
	switch strings.ToLower(currency) {
	case "gbp", "":
		symbol = "£"
	case "usd":
		symbol = "$"
	case "eur":
		symbol = "€"
	}
	return fmt.Sprintf("%s%s%s.%02d", sign, symbol, whole, amount%100)
}

// Truncate shortens s to at most n runes, appending an ellipsis when cut.
func Truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return strings.TrimSpace(string(runes[:n])) + "…"
}

// PageURL links to another page of the same blog listing.
func PageURL(q publicview.Query, page int) string {
	v := url.Values{}
	if q.Category != "" {
		v.Set("category", q.Category)
	}
	if q.Search != "" {
		v.Set("q", q.Search)
	}
	if page > 1 {
		v.Set("page", strconv.Itoa(page))
	}
	if len(v) == 0 {
		return "/blog"
	}
	return "/blog?" + v.Encode()
}
