// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"probitcms/internal/apperr"
	"probitcms/internal/cache"
	"probitcms/internal/contact"
	"probitcms/internal/moderation"
	"probitcms/internal/orders"
	"probitcms/internal/publicview"
	"probitcms/internal/render"
)

const (
	recentCount = 5 // posts in the sidebar
	maxPage     = 10000
)

// Services populate the enquiry form's service picker.
var Services = []string{
	"Managed IT Support",
	"Cloud Migration",
	"Cyber Security",
	"Network Infrastructure",
	"Web Development",
	"Other",
}

// PageCacher stores rendered public pages. *cache.PageCache satisfies it.
type PageCacher interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, html []byte)
}

// Public groups handlers for the visitor-facing site. Blog pages are served
// from the Valkey page cache when possible and stored on a miss.
type Public struct {
	renderer *render.Renderer
	views    *publicview.Service
	comments *moderation.Service
	contacts *contact.Service
	orders   *orders.Service
	cache    PageCacher
}

// NewPublic creates a new Public handler group. pageCache may be nil.
func NewPublic(renderer *render.Renderer, views *publicview.Service, comments *moderation.Service, contacts *contact.Service, orderSvc *orders.Service, pageCache PageCacher) *Public {
	return &Public{
		renderer: renderer,
		views:    views,
		comments: comments,
		contacts: contacts,
		orders:   orderSvc,
		cache:    pageCache,
	}
}

// Home sends visitors to the blog.
func (p *Public) Home(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/blog", http.StatusFound)
}

// BlogList renders one page of published posts, optionally filtered by
// category or a search term.
func (p *Public) BlogList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := publicview.Query{
		Category: strings.TrimSpace(r.URL.Query().Get("category")),
		Search:   strings.TrimSpace(r.URL.Query().Get("q")),
		Page:     pageParam(r.URL.Query()),
	}
	// Search terms are free text, so their results are never cached.
	key := ""
	if q.Search == "" {
		key = cache.ListKey(q.Category, "", q.Page)
		if p.serveCached(w, r, key) {
			return
		}
	}

	list, err := p.views.ListPublished(ctx, q)
	if err != nil {
		p.renderError(w, r, err)
		return
	}
	if len(list.Items) == 0 && (q.Category != "" || q.Page > 1) {
		// Unknown categories and pages past the end stay out of the cache.
		key = ""
	}
	data, err := p.sidebar(ctx)
	if err != nil {
		p.renderError(w, r, err)
		return
	}
	data["List"] = list

	title := "Blog"
	if q.Category != "" {
		title = q.Category + " articles"
	}
	p.renderCached(w, r, key, "public/blog", &render.PageData{
		Title:       title,
		Description: "News, guides and insights from our engineers.",
		Section:     "blog",
		Data:        data,
	})
}

// BlogPost renders a published post with its approved comments.
func (p *Public) BlogPost(w http.ResponseWriter, r *http.Request) {
	postSlug := chi.URLParam(r, "slug")
	submitted := r.URL.Query().Get("submitted") != ""

	key := cache.PostKey(postSlug)
	if !submitted && p.serveCached(w, r, key) {
		return
	}

	page, err := p.postPage(r.Context(), postSlug, moderation.CommentInput{})
	if err != nil {
		p.renderError(w, r, err)
		return
	}
	if submitted {
		// The confirmation banner is per visitor, so this copy is not cached.
		page.Data["Submitted"] = true
		p.renderer.Page(w, r, "public/post", page)
		return
	}
	p.renderCached(w, r, key, "public/post", page)
}

// CommentSubmit accepts a visitor comment into the moderation queue.
func (p *Public) CommentSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	postSlug := chi.URLParam(r, "slug")

	detail, err := p.views.PostDetail(ctx, postSlug)
	if err != nil {
		p.renderError(w, r, err)
		return
	}

	in := moderation.CommentInput{
		AuthorName:  r.PostFormValue("author_name"),
		AuthorEmail: strings.TrimSpace(r.PostFormValue("author_email")),
		Text:        r.PostFormValue("comment_text"),
	}
	if site := strings.TrimSpace(r.PostFormValue("author_website")); site != "" {
		in.AuthorWebsite = &site
	}

	if _, err := p.comments.SubmitComment(ctx, detail.Post.ID, in); err != nil {
		if !apperr.Is(err, apperr.KindValidation) {
			p.renderError(w, r, err)
			return
		}
		page, perr := p.postPage(ctx, postSlug, in)
		if perr != nil {
			p.renderError(w, r, perr)
			return
		}
		page.Errors = fieldErrors(err)
		p.renderer.PageStatus(w, r, http.StatusBadRequest, "public/post", page)
		return
	}

	http.Redirect(w, r, "/blog/"+url.PathEscape(postSlug)+"?submitted=1#comments", http.StatusSeeOther)
}

// ContactPage renders the enquiry form and the checkout packages.
func (p *Public) ContactPage(w http.ResponseWriter, r *http.Request) {
	p.renderer.Page(w, r, "public/contact", p.contactPage(contact.Input{}, r.URL.Query().Get("sent") != ""))
}

// ContactSubmit stores an enquiry and sends the follow-up emails.
func (p *Public) ContactSubmit(w http.ResponseWriter, r *http.Request) {
	in := contact.Input{
		Name:    r.PostFormValue("name"),
		Email:   strings.TrimSpace(r.PostFormValue("email")),
		Phone:   strings.TrimSpace(r.PostFormValue("phone")),
		Service: strings.TrimSpace(r.PostFormValue("service")),
		Message: r.PostFormValue("message"),
	}

	res, err := p.contacts.Submit(r.Context(), in)
	if err != nil {
		if !apperr.Is(err, apperr.KindValidation) {
			p.renderError(w, r, err)
			return
		}
		page := p.contactPage(in, false)
		page.Errors = fieldErrors(err)
		p.renderer.PageStatus(w, r, http.StatusBadRequest, "public/contact", page)
		return
	}
	if res.Notification.Err != nil {
		slog.Warn("contact stored without all emails", "id", res.Submission.ID, "error", res.Notification.Err)
	}
	http.Redirect(w, r, "/contact?sent=1", http.StatusSeeOther)
}

// Checkout starts a Stripe Checkout session for a package. JSON callers get
// {"url": ...}; form posts are redirected straight to the payment page.
func (p *Public) Checkout(w http.ResponseWriter, r *http.Request) {
	wantsJSON := isJSON(r)

	var in orders.CheckoutInput
	if wantsJSON {
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4<<10)).Decode(&in); err != nil {
			writeJSONError(w, r, apperr.Validation("handlers.Checkout", "body", "request body must be a JSON object"))
			return
		}
	} else {
		in = orders.CheckoutInput{
			PlanName: r.PostFormValue("planName"),
			PriceID:  r.PostFormValue("priceId"),
		}
	}

	redirect, err := p.orders.StartCheckout(r.Context(), in)
	if err != nil {
		if wantsJSON {
			writeJSONError(w, r, err)
			return
		}
		flashError(w, r, "/contact", err)
		return
	}
	if wantsJSON {
		writeJSON(w, http.StatusOK, map[string]string{"url": redirect})
		return
	}
	http.Redirect(w, r, redirect, http.StatusSeeOther)
}

// PaymentSuccess records the order behind a completed checkout. Reloading
// the page is safe; the order is only created once.
func (p *Public) PaymentSuccess(w http.ResponseWriter, r *http.Request) {
	order, err := p.orders.RecordCheckout(r.Context(), r.URL.Query().Get("session_id"))
	if err != nil {
		p.renderError(w, r, err)
		return
	}
	p.renderer.Page(w, r, "public/payment_success", &render.PageData{
		Title: "Payment received",
		Data:  map[string]any{"Order": order},
	})
}

// PaymentCancel tells the visitor nothing was charged.
func (p *Public) PaymentCancel(w http.ResponseWriter, r *http.Request) {
	p.renderer.Page(w, r, "public/payment_cancel", &render.PageData{Title: "Payment cancelled"})
}

// NotFound renders the public 404 page.
func (p *Public) NotFound(w http.ResponseWriter, r *http.Request) {
	p.renderError(w, r, apperr.NotFound("handlers.NotFound", "page"))
}

func (p *Public) postPage(ctx context.Context, postSlug string, form moderation.CommentInput) (*render.PageData, error) {
	detail, err := p.views.PostDetail(ctx, postSlug)
	if err != nil {
		return nil, err
	}
	data, err := p.sidebar(ctx)
	if err != nil {
		return nil, err
	}
	data["Post"] = detail.Post
	data["Comments"] = detail.Comments
	data["Form"] = form
	return &render.PageData{
		Title:       detail.Post.Title,
		Description: detail.Post.Excerpt,
		Section:     "blog",
		Data:        data,
	}, nil
}

func (p *Public) contactPage(form contact.Input, sent bool) *render.PageData {
	return &render.PageData{
		Title:       "Contact",
		Description: "Tell us about your project or buy a support package.",
		Section:     "contact",
		Data: map[string]any{
			"Form":     form,
			"Sent":     sent,
			"Services": Services,
			"Packages": orders.Plans,
		},
	}
}

func (p *Public) sidebar(ctx context.Context) (map[string]any, error) {
	categories, err := p.views.Categories(ctx)
	if err != nil {
		return nil, err
	}
	recent, err := p.views.Recent(ctx, recentCount)
	if err != nil {
		return nil, err
	}
	return map[string]any{"Categories": categories, "Recent": recent}, nil
}

// serveCached writes a cached page and reports whether it did.
func (p *Public) serveCached(w http.ResponseWriter, r *http.Request, key string) bool {
	if p.cache == nil {
		return false
	}
	body, ok := p.cache.Get(r.Context(), key)
	if !ok {
		return false
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("X-Cache", "HIT")
	w.Write(body)
	return true
}

// renderCached renders a page without request state, stores it under key
// and writes it. An empty key renders without storing.
func (p *Public) renderCached(w http.ResponseWriter, r *http.Request, key, name string, data *render.PageData) {
	body, err := p.renderer.Bytes(name, data)
	if err != nil {
		slog.Error("template render failed", "template", name, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	status := "BYPASS"
	if key != "" {
		status = "MISS"
		if p.cache != nil {
			p.cache.Set(r.Context(), key, body)
		}
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("X-Cache", status)
	w.Write(body)
}

// renderError shows the public error page with the status for err's kind.
func (p *Public) renderError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		slog.Error("public request failed", "path", r.URL.Path, "error", err)
	}
	msg := apperr.Message(err)
	if status == http.StatusNotFound {
		msg = "The page you were looking for could not be found."
	}
	p.renderer.PageStatus(w, r, status, "public/error", &render.PageData{
		Title: http.StatusText(status),
		Data:  map[string]any{"Status": status, "Message": msg},
	})
}

// pageParam reads ?page=, defaulting to 1 for missing or invalid values.
func pageParam(q url.Values) int {
	n, err := strconv.Atoi(q.Get("page"))
	if err != nil || n < 1 {
		return 1
	}
	return min(n, maxPage)
}

func isJSON(r *http.Request) bool {
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return mt == "application/json"
}
