// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"probitcms/internal/ai"
	"probitcms/internal/apperr"
	"probitcms/internal/auth"
	"probitcms/internal/blog"
	"probitcms/internal/contact"
	"probitcms/internal/middleware"
	"probitcms/internal/models"
	"probitcms/internal/moderation"
	"probitcms/internal/orders"
	"probitcms/internal/render"
	"probitcms/internal/slug"
)

// ImageStore uploads cover images. *storage.Client satisfies it.
type ImageStore interface {
	UploadImage(ctx context.Context, data []byte) (string, error)
	Delete(ctx context.Context, fileURL string) error
}

// Assistant runs writing-assistant actions. *ai.Assistant satisfies it.
type Assistant interface {
	Run(ctx context.Context, ac auth.Context, req ai.Request) (*ai.Result, error)
}

// Admin groups the back-office handlers. Every service call passes the
// operator identity resolved by the session middleware.
type Admin struct {
	renderer   *render.Renderer
	posts      *blog.Service
	comments   *moderation.Service
	contacts   *contact.Service
	orders     *orders.Service
	media      ImageStore
	assistant  Assistant
	aiProvider string
}

// NewAdmin creates the Admin handler group. media and assistant may be nil
// when storage or an AI provider is not configured.
func NewAdmin(renderer *render.Renderer, posts *blog.Service, comments *moderation.Service, contacts *contact.Service, orderSvc *orders.Service, media ImageStore, assistant Assistant, aiProvider string) *Admin {
	return &Admin{
		renderer:   renderer,
		posts:      posts,
		comments:   comments,
		contacts:   contacts,
		orders:     orderSvc,
		media:      media,
		assistant:  assistant,
		aiProvider: aiProvider,
	}
}

// Dashboard shows content, moderation, enquiry and revenue totals.
func (a *Admin) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ac := middleware.AuthFromCtx(ctx)

	posts, err := a.posts.ListPosts(ctx, ac)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	published := 0
	for _, p := range posts {
		if p.Published {
			published++
		}
	}
	queue, err := a.comments.ListAll(ctx, ac)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	newContacts, err := a.contacts.CountNew(ctx, ac)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	revenue, err := a.orders.RevenueStats(ctx, ac)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	data := map[string]any{
		"TotalPosts":     len(posts),
		"PublishedPosts": published,
		"Comments":       queue.Counts,
		"NewContacts":    newContacts,
		"Revenue":        revenue,
	}
	if a.assistant != nil {
		data["AIProvider"] = a.aiProvider
	}
	a.renderer.Page(w, r, "admin/dashboard", &render.PageData{
		Title:   "Dashboard",
		Section: "dashboard",
		Data:    data,
	})
}

// --- Posts ---

// PostsList shows every post, drafts included.
func (a *Admin) PostsList(w http.ResponseWriter, r *http.Request) {
	posts, err := a.posts.ListPosts(r.Context(), middleware.AuthFromCtx(r.Context()))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.renderer.Page(w, r, "admin/posts", &render.PageData{
		Title:   "Posts",
		Section: "posts",
		Data:    map[string]any{"Posts": posts},
	})
}

// PostNew renders an empty editor.
func (a *Admin) PostNew(w http.ResponseWriter, r *http.Request) {
	a.renderPostForm(w, r, http.StatusOK, render.PostForm{}, nil)
}

// PostCreate stores a new post from the editor form.
func (a *Admin) PostCreate(w http.ResponseWriter, r *http.Request) {
	form := postFormFromRequest(r)
	in := blog.PostInput{
		Title:     form.Title,
		Slug:      form.Slug,
		Excerpt:   form.Excerpt,
		Content:   form.Content,
		Image:     form.Image,
		Category:  form.Category,
		Tags:      blog.ParseTags(form.Tags),
		Published: form.Published,
	}
	if in.Slug == "" {
		in.Slug = slug.Generate(in.Title)
		form.Slug = in.Slug
	}

	post, err := a.posts.CreatePost(r.Context(), middleware.AuthFromCtx(r.Context()), in)
	if err != nil {
		a.postFormError(w, r, form, err)
		return
	}
	flashSuccess(w, r, "/admin/posts", "Post \""+post.Title+"\" created.")
}

// PostEdit renders the editor for an existing post.
func (a *Admin) PostEdit(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	post, err := a.posts.GetPostByID(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.renderPostForm(w, r, http.StatusOK, render.PostFormFor(post), nil)
}

// PostUpdate saves the editor form over an existing post.
func (a *Admin) PostUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	form := postFormFromRequest(r)
	form.ID = id.String()
	if form.Slug == "" {
		form.Slug = slug.Generate(form.Title)
	}
	tags := blog.ParseTags(form.Tags)
	upd := blog.PostUpdate{
		Title:     &form.Title,
		Slug:      &form.Slug,
		Excerpt:   &form.Excerpt,
		Content:   &form.Content,
		Image:     &form.Image,
		Category:  &form.Category,
		Tags:      &tags,
		Published: &form.Published,
	}

	post, err := a.posts.UpdatePost(r.Context(), middleware.AuthFromCtx(r.Context()), id, upd)
	if err != nil {
		a.postFormError(w, r, form, err)
		return
	}
	flashSuccess(w, r, "/admin/posts", "Post \""+post.Title+"\" saved.")
}

// PostPublish sets the published flag from the "published" form field.
func (a *Admin) PostPublish(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	published := r.PostFormValue("published") == "true"
	post, err := a.posts.SetPublished(r.Context(), middleware.AuthFromCtx(r.Context()), id, published)
	if err != nil {
		flashError(w, r, "/admin/posts", err)
		return
	}
	msg := "Post \"" + post.Title + "\" unpublished."
	if post.Published {
		msg = "Post \"" + post.Title + "\" published."
	}
	flashSuccess(w, r, "/admin/posts", msg)
}

// PostDelete removes a post without comments.
func (a *Admin) PostDelete(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if err := a.posts.DeletePost(r.Context(), middleware.AuthFromCtx(r.Context()), id); err != nil {
		flashError(w, r, "/admin/posts", err)
		return
	}
	flashSuccess(w, r, "/admin/posts", "Post deleted.")
}

// PostPurge removes a post with all of its comments, and its uploaded
// cover image when storage holds it.
func (a *Admin) PostPurge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := urlID(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	post, err := a.posts.GetPostByID(ctx, id)
	if err != nil {
		flashError(w, r, "/admin/posts", err)
		return
	}
	if err := a.posts.PurgePost(ctx, middleware.AuthFromCtx(ctx), id); err != nil {
		flashError(w, r, "/admin/posts", err)
		return
	}
	if a.media != nil && post.Image != "" {
		if err := a.media.Delete(ctx, post.Image); err != nil {
			slog.Warn("cover image cleanup failed", "post", id, "error", err)
		}
	}
	flashSuccess(w, r, "/admin/posts", "Post and comments deleted.")
}

// SlugPreview suggests a slug for ?title= as JSON.
func (a *Admin) SlugPreview(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"slug": slug.Generate(r.URL.Query().Get("title"))})
}

func (a *Admin) renderPostForm(w http.ResponseWriter, r *http.Request, status int, form render.PostForm, errs map[string]string) {
	title := "New post"
	if form.ID != "" {
		title = "Edit post"
	}
	a.renderer.PageStatus(w, r, status, "admin/post_form", &render.PageData{
		Title:   title,
		Section: "posts",
		Errors:  errs,
		Data: map[string]any{
			"Form":         form,
			"MediaEnabled": a.media != nil,
			"AIEnabled":    a.assistant != nil,
		},
	})
}

// postFormError re-renders the editor for validation and slug conflicts.
func (a *Admin) postFormError(w http.ResponseWriter, r *http.Request, form render.PostForm, err error) {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		a.renderPostForm(w, r, http.StatusBadRequest, form, fieldErrors(err))
	case apperr.KindConflict:
		a.renderPostForm(w, r, http.StatusConflict, form, map[string]string{"slug": apperr.Message(err)})
	default:
		a.fail(w, r, err)
	}
}

func postFormFromRequest(r *http.Request) render.PostForm {
	return render.PostForm{
		Title:     strings.TrimSpace(r.PostFormValue("title")),
		Slug:      strings.TrimSpace(r.PostFormValue("slug")),
		Excerpt:   r.PostFormValue("excerpt"),
		Content:   r.PostFormValue("content"),
		Image:     strings.TrimSpace(r.PostFormValue("image")),
		Category:  strings.TrimSpace(r.PostFormValue("category")),
		Tags:      r.PostFormValue("tags"),
		Published: r.PostFormValue("published") == "true",
	}
}

// --- Comments ---

// CommentsList shows the moderation queue, optionally filtered by ?status=.
func (a *Admin) CommentsList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ac := middleware.AuthFromCtx(ctx)
	filter := r.URL.Query().Get("status")

	var (
		queue *moderation.Queue
		err   error
	)
	if filter == "" {
		queue, err = a.comments.ListAll(ctx, ac)
	} else {
		queue, err = a.comments.ListByStatus(ctx, ac, models.CommentStatus(filter))
	}
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.renderer.Page(w, r, "admin/comments", &render.PageData{
		Title:   "Comments",
		Section: "comments",
		Data:    map[string]any{"Queue": queue, "Filter": filter},
	})
}

// CommentStatus moves a comment to the posted status.
func (a *Admin) CommentStatus(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	back := backTo(r, "/admin/comments")
	status := models.CommentStatus(r.PostFormValue("status"))
	c, err := a.comments.SetStatus(r.Context(), middleware.AuthFromCtx(r.Context()), id, status)
	if err != nil {
		flashError(w, r, back, err)
		return
	}
	flashSuccess(w, r, back, "Comment by "+c.AuthorName+" marked "+string(c.Status)+".")
}

// CommentHistory lists the moderation events of one comment.
func (a *Admin) CommentHistory(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	events, err := a.comments.History(r.Context(), middleware.AuthFromCtx(r.Context()), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.renderer.Page(w, r, "admin/comment_history", &render.PageData{
		Title:   "Moderation history",
		Section: "comments",
		Data:    map[string]any{"Events": events},
	})
}

// CommentDelete removes a comment.
func (a *Admin) CommentDelete(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	back := backTo(r, "/admin/comments")
	if err := a.comments.DeleteComment(r.Context(), middleware.AuthFromCtx(r.Context()), id); err != nil {
		flashError(w, r, back, err)
		return
	}
	flashSuccess(w, r, back, "Comment deleted.")
}

// --- Contacts ---

// ContactsList shows enquiries, optionally filtered by ?status=.
func (a *Admin) ContactsList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ac := middleware.AuthFromCtx(ctx)
	filter := r.URL.Query().Get("status")

	var (
		subs []models.ContactSubmission
		err  error
	)
	if filter == "" {
		subs, err = a.contacts.List(ctx, ac)
	} else {
		subs, err = a.contacts.ListByStatus(ctx, ac, models.ContactStatus(filter))
	}
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.renderer.Page(w, r, "admin/contacts", &render.PageData{
		Title:   "Enquiries",
		Section: "contacts",
		Data:    map[string]any{"Submissions": subs, "Filter": filter},
	})
}

// ContactView shows one enquiry. Opening a new enquiry marks it read.
func (a *Admin) ContactView(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ac := middleware.AuthFromCtx(ctx)
	id, err := urlID(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	sub, err := a.contacts.Get(ctx, ac, id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if sub.Status == models.ContactNew {
		if read, err := a.contacts.Advance(ctx, ac, id, models.ContactRead); err == nil {
			sub = read
		} else {
			slog.Warn("mark enquiry read failed", "id", id, "error", err)
		}
	}
	a.renderer.Page(w, r, "admin/contact", &render.PageData{
		Title:   "Enquiry from " + sub.Name,
		Section: "contacts",
		Data:    map[string]any{"Submission": sub},
	})
}

// ContactStatus advances an enquiry's status.
func (a *Admin) ContactStatus(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	back := "/admin/contacts/" + id.String()
	status := models.ContactStatus(r.PostFormValue("status"))
	if _, err := a.contacts.Advance(r.Context(), middleware.AuthFromCtx(r.Context()), id, status); err != nil {
		flashError(w, r, back, err)
		return
	}
	flashSuccess(w, r, back, "Enquiry marked "+string(status)+".")
}

// ContactDelete removes an enquiry.
func (a *Admin) ContactDelete(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if err := a.contacts.Delete(r.Context(), middleware.AuthFromCtx(r.Context()), id); err != nil {
		flashError(w, r, "/admin/contacts", err)
		return
	}
	flashSuccess(w, r, "/admin/contacts", "Enquiry deleted.")
}

// --- Orders ---

// OrdersList shows orders and revenue, optionally filtered by ?status=.
func (a *Admin) OrdersList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ac := middleware.AuthFromCtx(ctx)
	filter := r.URL.Query().Get("status")

	var (
		list []models.Order
		err  error
	)
	if filter == "" {
		list, err = a.orders.List(ctx, ac)
	} else {
		list, err = a.orders.ListByStatus(ctx, ac, models.OrderStatus(filter))
	}
	if err != nil {
		a.fail(w, r, err)
		return
	}
	revenue, err := a.orders.RevenueStats(ctx, ac)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.renderer.Page(w, r, "admin/orders", &render.PageData{
		Title:   "Orders",
		Section: "orders",
		Data:    map[string]any{"Orders": list, "Filter": filter, "Revenue": revenue},
	})
}

// OrderView shows one order with its status and notes forms.
func (a *Admin) OrderView(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	order, err := a.orders.Get(r.Context(), middleware.AuthFromCtx(r.Context()), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.renderOrder(w, r, http.StatusOK, order, nil)
}

// OrderStatus changes an order's status.
func (a *Admin) OrderStatus(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	back := "/admin/orders/" + id.String()
	status := models.OrderStatus(r.PostFormValue("status"))
	if _, err := a.orders.UpdateStatus(r.Context(), middleware.AuthFromCtx(r.Context()), id, status); err != nil {
		flashError(w, r, back, err)
		return
	}
	flashSuccess(w, r, back, "Order marked "+string(status)+".")
}

// OrderNotes saves the operator's notes on an order.
func (a *Admin) OrderNotes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ac := middleware.AuthFromCtx(ctx)
	id, err := urlID(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if _, err := a.orders.UpdateNotes(ctx, ac, id, r.PostFormValue("notes")); err != nil {
		if !apperr.Is(err, apperr.KindValidation) {
			flashError(w, r, "/admin/orders/"+id.String(), err)
			return
		}
		order, gerr := a.orders.Get(ctx, ac, id)
		if gerr != nil {
			a.fail(w, r, gerr)
			return
		}
		order.Notes = r.PostFormValue("notes")
		a.renderOrder(w, r, http.StatusBadRequest, order, fieldErrors(err))
		return
	}
	flashSuccess(w, r, "/admin/orders/"+id.String(), "Notes saved.")
}

// OrderDelete removes an order record.
func (a *Admin) OrderDelete(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if err := a.orders.Delete(r.Context(), middleware.AuthFromCtx(r.Context()), id); err != nil {
		flashError(w, r, "/admin/orders", err)
		return
	}
	flashSuccess(w, r, "/admin/orders", "Order deleted.")
}

func (a *Admin) renderOrder(w http.ResponseWriter, r *http.Request, status int, order *models.Order, errs map[string]string) {
	a.renderer.PageStatus(w, r, status, "admin/order", &render.PageData{
		Title:   "Order",
		Section: "orders",
		Errors:  errs,
		Data:    map[string]any{"Order": order},
	})
}

// fail handles errors on admin pages: an expired session goes back to the
// login page, other kinds become a plain status response.
func (a *Admin) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.HTTPStatus(err)
	switch {
	case status == http.StatusUnauthorized:
		http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
	case status >= http.StatusInternalServerError:
		slog.Error("admin request failed", "path", r.URL.Path, "error", err)
		http.Error(w, http.StatusText(status), status)
	default:
		http.Error(w, apperr.Message(err), status)
	}
}

// backTo returns the Referer path when it points into this site's back
// office, or fallback otherwise.
func backTo(r *http.Request, fallback string) string {
	ref, err := url.Parse(r.Referer())
	if err != nil || (ref.Host != "" && ref.Host != r.Host) {
		return fallback
	}
	if !strings.HasPrefix(ref.Path, "/admin/") || strings.Contains(ref.Path, "//") {
		return fallback
	}
	if ref.RawQuery != "" {
		return ref.Path + "?" + ref.RawQuery
	}
	return ref.Path
}
