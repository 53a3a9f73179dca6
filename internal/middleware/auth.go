// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"probitcms/internal/auth"
	"probitcms/internal/session"
)

type contextKey string

const (
	sessionKey contextKey = "session"
	authKey    contextKey = "auth"
)

// SessionGetter loads the session named by a request.
type SessionGetter interface {
	Get(ctx context.Context, r *http.Request) (*session.Data, error)
}

// LoadSession attaches the session and the resolved auth.Context to the
// request. It never blocks: a lookup failure is logged and the request
// continues as anonymous.
func LoadSession(store SessionGetter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			data, err := store.Get(r.Context(), r)
			if err != nil {
				slog.Warn("session lookup failed", "error", err, "path", r.URL.Path)
			}
			if data != nil {
				r = r.WithContext(WithSession(r.Context(), data))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithSession stores data and its auth.Context in ctx.
func WithSession(ctx context.Context, data *session.Data) context.Context {
	ctx = context.WithValue(ctx, sessionKey, data)
	return context.WithValue(ctx, authKey, data.AuthContext())
}

// SessionFromCtx returns the loaded session, including one still waiting
// for 2FA, or nil.
func SessionFromCtx(ctx context.Context) *session.Data {
	data, _ := ctx.Value(sessionKey).(*session.Data)
	return data
}

// AuthFromCtx returns the caller identity. Anonymous unless the session
// completed 2FA.
func AuthFromCtx(ctx context.Context) auth.Context {
	ac, ok := ctx.Value(authKey).(auth.Context)
	if !ok {
		return auth.Anonymous
	}
	return ac
}

// RequireLogin lets through any session, verified or not. Guards the 2FA
// pages themselves.
func RequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if SessionFromCtx(r.Context()) == nil {
			http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireOperator guards admin pages: no session goes to the login page,
// a session pending 2FA goes to the 2FA step.
func RequireOperator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := SessionFromCtx(r.Context())
		switch {
		case sess == nil:
			http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
		case !sess.TwoFADone:
			http.Redirect(w, r, "/admin/2fa", http.StatusSeeOther)
		default:
			next.ServeHTTP(w, r)
		}
	})
}

// RequireOperatorAPI guards JSON endpoints with a 401 instead of a redirect.
func RequireOperatorAPI(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !AuthFromCtx(r.Context()).IsOperator() {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"operator session required"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}
