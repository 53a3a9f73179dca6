// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package router sets up all HTTP routes and middleware chains for the
// site. It organizes routes into public and admin groups with appropriate
// middleware stacks.
package router

import (
	"context"
	"encoding/json"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"probitcms/internal/handlers"
	"probitcms/internal/metrics"
	"probitcms/internal/middleware"
)

// HealthCheck probes one backing service.
type HealthCheck func(ctx context.Context) error

// Config carries the collaborators New wires together.
type Config struct {
	Sessions middleware.SessionGetter
	Public   *handlers.Public
	Auth     *handlers.Auth
	Admin    *handlers.Admin

	// Static serves /static/. Nil disables it.
	Static fs.FS

	// FormLimiter throttles anonymous form posts; LoginLimiter throttles
	// sign-in and 2FA attempts. Either may be nil.
	FormLimiter  *middleware.RateLimiter
	LoginLimiter *middleware.RateLimiter

	SecureCookies bool
	Health        map[string]HealthCheck
}

// New creates and returns the configured Chi router with all middleware
// and route groups wired up.
func New(cfg Config) chi.Router {
	r := chi.NewRouter()

	// Global middleware, applied to every request.
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.SecureHeaders(cfg.SecureCookies))
	r.Use(middleware.LoadSession(cfg.Sessions))

	r.Get("/health", healthHandler(cfg.Health))
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	if cfg.Static != nil {
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(cfg.Static))))
	}

	public := cfg.Public
	formLimit := limit(cfg.FormLimiter)

	r.Get("/", public.Home)
	r.Get("/blog", public.BlogList)
	r.Get("/blog/{slug}", public.BlogPost)
	r.With(formLimit).Post("/blog/{slug}/comments", public.CommentSubmit)
	r.Get("/contact", public.ContactPage)
	r.With(formLimit).Post("/contact", public.ContactSubmit)
	r.With(formLimit).Post("/api/checkout", public.Checkout)
	r.Get("/payment/success", public.PaymentSuccess)
	r.Get("/payment/cancel", public.PaymentCancel)

	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.CSRF(cfg.SecureCookies))
		adminRoutes(r, cfg.Auth, cfg.Admin, limit(cfg.LoginLimiter))
	})

	r.NotFound(public.NotFound)
	return r
}

func adminRoutes(r chi.Router, auth *handlers.Auth, admin *handlers.Admin, loginLimit func(http.Handler) http.Handler) {
	// Sign-in pages, accessible without a session.
	r.Get("/login", auth.LoginPage)
	r.With(loginLimit).Post("/login", auth.LoginSubmit)
	r.Get("/setup", auth.SetupPage)
	r.With(loginLimit).Post("/setup", auth.SetupSubmit)
	r.Post("/logout", auth.Logout)

	// 2FA needs a session but not a completed second factor.
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireLogin)
		r.Get("/2fa", auth.TwoFAVerifyPage)
		r.Get("/2fa/setup", auth.TwoFASetupPage)
		r.Get("/2fa/verify", auth.TwoFAVerifyPage)
		r.With(loginLimit).Post("/2fa/verify", auth.TwoFAVerifySubmit)
	})

	// JSON endpoints answer 401 instead of redirecting.
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireOperatorAPI)
		r.Post("/api/ai", admin.AIAssist)
		r.Post("/media", admin.MediaUpload)
		r.Get("/posts/slug", admin.SlugPreview)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireOperator)

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/admin/dashboard", http.StatusSeeOther)
		})
		r.Get("/dashboard", admin.Dashboard)

		r.Route("/posts", func(r chi.Router) {
			r.Get("/", admin.PostsList)
			r.Get("/new", admin.PostNew)
			r.Post("/", admin.PostCreate)
			r.Get("/{id}/edit", admin.PostEdit)
			r.Post("/{id}", admin.PostUpdate)
			r.Post("/{id}/publish", admin.PostPublish)
			r.Post("/{id}/delete", admin.PostDelete)
			r.Post("/{id}/purge", admin.PostPurge)
		})

		r.Route("/comments", func(r chi.Router) {
			r.Get("/", admin.CommentsList)
			r.Post("/{id}/status", admin.CommentStatus)
			r.Get("/{id}/history", admin.CommentHistory)
			r.Post("/{id}/delete", admin.CommentDelete)
		})

		r.Route("/contacts", func(r chi.Router) {
			r.Get("/", admin.ContactsList)
			r.Get("/{id}", admin.ContactView)
			r.Post("/{id}/status", admin.ContactStatus)
			r.Post("/{id}/delete", admin.ContactDelete)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", admin.OrdersList)
			r.Get("/{id}", admin.OrderView)
			r.Post("/{id}/status", admin.OrderStatus)
			r.Post("/{id}/notes", admin.OrderNotes)
			r.Post("/{id}/delete", admin.OrderDelete)
		})
	})
}

func limit(rl *middleware.RateLimiter) func(http.Handler) http.Handler {
	if rl == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return rl.Middleware
}

// healthHandler reports ok when every check passes, otherwise 503 with the
// failing checks.
func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		body := map[string]any{"status": "ok"}
		failed := map[string]string{}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				failed[name] = err.Error()
			}
		}
		if len(failed) > 0 {
			status = http.StatusServiceUnavailable
			body = map[string]any{"status": "degraded", "failed": failed}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(body)
	}
}
