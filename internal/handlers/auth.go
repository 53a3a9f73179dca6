// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"encoding/base64"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	qrcode "github.com/skip2/go-qrcode"

	"probitcms/internal/middleware"
	"probitcms/internal/models"
	"probitcms/internal/render"
	"probitcms/internal/session"
	"probitcms/internal/validate"
)

// UserStore is the account storage the sign-in flow needs.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	Count(ctx context.Context) (int, error)
	CreateFirstAdmin(ctx context.Context, email, password, displayName string) (*models.User, error)
	SetTOTPSecret(ctx context.Context, userID uuid.UUID, secret string) error
	EnableTOTP(ctx context.Context, userID uuid.UUID) error
	CheckPassword(user *models.User, password string) bool
}

// SessionStore issues and revokes operator sessions.
type SessionStore interface {
	Create(ctx context.Context, w http.ResponseWriter, data *session.Data) (string, error)
	Rotate(ctx context.Context, w http.ResponseWriter, r *http.Request, data *session.Data) (string, error)
	Destroy(ctx context.Context, w http.ResponseWriter, r *http.Request) error
}

// setupInput is the first-run administrator form.
type setupInput struct {
	DisplayName string `json:"display_name" validate:"notblank,max=100"`
	Email       string `json:"email" validate:"required,email,max=254"`
	Password    string `json:"password" validate:"min=12,max=72"`
}

// Auth groups all authentication-related HTTP handlers.
type Auth struct {
	renderer *render.Renderer
	sessions SessionStore
	users    UserStore
	issuer   string
}

// NewAuth creates a new Auth handler group. issuer names the account in
// authenticator apps.
func NewAuth(renderer *render.Renderer, sessions SessionStore, users UserStore, issuer string) *Auth {
	return &Auth{
		renderer: renderer,
		sessions: sessions,
		users:    users,
		issuer:   issuer,
	}
}

// LoginPage renders the login form. Before any account exists it sends the
// visitor to first-run setup instead.
func (a *Auth) LoginPage(w http.ResponseWriter, r *http.Request) {
	// If already logged in with 2FA complete, redirect to dashboard.
	sess := middleware.SessionFromCtx(r.Context())
	if sess != nil && sess.TwoFADone {
		http.Redirect(w, r, "/admin/dashboard", http.StatusSeeOther)
		return
	}
	if n, err := a.users.Count(r.Context()); err == nil && n == 0 {
		http.Redirect(w, r, "/admin/setup", http.StatusSeeOther)
		return
	}

	a.renderer.Page(w, r, "admin/login", &render.PageData{Title: "Sign In"})
}

// LoginSubmit checks the password and starts a session that still needs
// the second factor.
func (a *Auth) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.PostFormValue("email"))
	password := r.PostFormValue("password")

	user, err := a.users.FindByEmail(r.Context(), email)
	if err != nil {
		slog.Error("login lookup failed", "error", err)
		a.loginError(w, r, email, http.StatusInternalServerError, "An unexpected error occurred.")
		return
	}
	if user == nil || !a.users.CheckPassword(user, password) {
		slog.Info("failed sign-in", "email", email, "ip", r.RemoteAddr)
		a.loginError(w, r, email, http.StatusUnauthorized, "Invalid email or password.")
		return
	}

	// TwoFADone starts as false; the operator must complete 2FA.
	if _, err := a.sessions.Create(r.Context(), w, session.ForUser(user)); err != nil {
		slog.Error("session create failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if user.Needs2FASetup() {
		http.Redirect(w, r, "/admin/2fa/setup", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/admin/2fa/verify", http.StatusSeeOther)
}

func (a *Auth) loginError(w http.ResponseWriter, r *http.Request, email string, status int, msg string) {
	a.renderer.PageStatus(w, r, status, "admin/login", &render.PageData{
		Title: "Sign In",
		Data:  map[string]any{"Error": msg, "Email": email},
	})
}

// SetupPage renders the first-run administrator form while no account
// exists.
func (a *Auth) SetupPage(w http.ResponseWriter, r *http.Request) {
	if !a.setupOpen(w, r) {
		return
	}
	a.renderer.Page(w, r, "admin/setup", &render.PageData{Title: "Create administrator", Data: map[string]any{}})
}

// SetupSubmit creates the first administrator and continues to 2FA setup.
func (a *Auth) SetupSubmit(w http.ResponseWriter, r *http.Request) {
	if !a.setupOpen(w, r) {
		return
	}
	in := setupInput{
		DisplayName: strings.TrimSpace(r.PostFormValue("display_name")),
		Email:       strings.TrimSpace(r.PostFormValue("email")),
		Password:    r.PostFormValue("password"),
	}
	form := map[string]any{"DisplayName": in.DisplayName, "Email": in.Email}

	errs := fieldErrors(validate.Struct("handlers.SetupSubmit", in))
	if errs == nil && in.Password != r.PostFormValue("password_confirm") {
		errs = map[string]string{"password_confirm": "passwords do not match"}
	}
	if errs != nil {
		a.renderer.PageStatus(w, r, http.StatusBadRequest, "admin/setup", &render.PageData{
			Title: "Create administrator", Data: form, Errors: errs,
		})
		return
	}

	user, err := a.users.CreateFirstAdmin(r.Context(), in.Email, in.Password, in.DisplayName)
	if err != nil {
		slog.Error("create first admin failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if user == nil {
		// Someone else finished setup first.
		http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
		return
	}
	slog.Info("first administrator created", "email", user.Email)

	if _, err := a.sessions.Create(r.Context(), w, session.ForUser(user)); err != nil {
		slog.Error("session create failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/admin/2fa/setup", http.StatusSeeOther)
}

// setupOpen redirects to the login page once an account exists.
func (a *Auth) setupOpen(w http.ResponseWriter, r *http.Request) bool {
	n, err := a.users.Count(r.Context())
	if err != nil {
		slog.Error("count users failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return false
	}
	if n > 0 {
		http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
		return false
	}
	return true
}

// TwoFASetupPage generates a TOTP secret and displays the QR code.
func (a *Auth) TwoFASetupPage(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	if sess == nil {
		http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
		return
	}
	user, err := a.users.FindByID(r.Context(), sess.UserID)
	if err != nil || user == nil {
		slog.Error("user lookup for 2fa setup failed", "error", err)
		http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
		return
	}
	// An enabled secret is never replaced from a half-authenticated session.
	if !user.Needs2FASetup() {
		http.Redirect(w, r, "/admin/2fa/verify", http.StatusSeeOther)
		return
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      a.issuer,
		AccountName: user.Email,
	})
	if err != nil {
		slog.Error("totp generate failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if err := a.users.SetTOTPSecret(r.Context(), user.ID, key.Secret()); err != nil {
		slog.Error("save totp secret failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	a.renderSetup(w, r, http.StatusOK, key, "")
}

// TwoFAVerifyPage renders the 2FA code entry form (for users who already
// have 2FA set up).
func (a *Auth) TwoFAVerifyPage(w http.ResponseWriter, r *http.Request) {
	if middleware.SessionFromCtx(r.Context()) == nil {
		http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
		return
	}
	a.renderer.Page(w, r, "admin/2fa_verify", &render.PageData{Title: "Two-Factor Authentication"})
}

// TwoFAVerifySubmit validates the TOTP code and completes authentication.
// The session ID is rotated so the pre-2FA cookie cannot be replayed.
func (a *Auth) TwoFAVerifySubmit(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	if sess == nil {
		http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
		return
	}

	user, err := a.users.FindByID(r.Context(), sess.UserID)
	if err != nil || user == nil {
		slog.Error("user lookup for 2fa failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if user.TOTPSecret == nil {
		http.Redirect(w, r, "/admin/2fa/setup", http.StatusSeeOther)
		return
	}

	code := strings.TrimSpace(r.PostFormValue("code"))
	if !totp.Validate(code, *user.TOTPSecret) {
		slog.Info("invalid 2fa code", "email", user.Email)
		if user.Needs2FASetup() {
			key, err := otp.NewKeyFromURL(totpURL(a.issuer, user.Email, *user.TOTPSecret))
			if err != nil {
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}
			a.renderSetup(w, r, http.StatusUnauthorized, key, "Invalid code. Please try again.")
			return
		}
		a.renderer.PageStatus(w, r, http.StatusUnauthorized, "admin/2fa_verify", &render.PageData{
			Title: "Two-Factor Authentication",
			Data:  map[string]any{"Error": "Invalid code. Please try again."},
		})
		return
	}

	// If this is the first-time setup, enable TOTP in the database.
	if user.Needs2FASetup() {
		if err := a.users.EnableTOTP(r.Context(), user.ID); err != nil {
			slog.Error("enable totp failed", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
	}

	sess.TwoFADone = true
	if _, err := a.sessions.Rotate(r.Context(), w, r, sess); err != nil {
		slog.Error("session rotate failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	slog.Info("operator signed in", "email", user.Email)
	http.Redirect(w, r, "/admin/dashboard", http.StatusSeeOther)
}

// Logout destroys the session and redirects to the login page.
func (a *Auth) Logout(w http.ResponseWriter, r *http.Request) {
	if err := a.sessions.Destroy(r.Context(), w, r); err != nil {
		slog.Warn("session destroy failed", "error", err)
	}
	http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
}

func (a *Auth) renderSetup(w http.ResponseWriter, r *http.Request, status int, key *otp.Key, errMsg string) {
	qrPNG, err := qrcode.Encode(key.URL(), qrcode.Medium, 256)
	if err != nil {
		slog.Error("qr code generation failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	data := map[string]any{
		"QRCode": template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(qrPNG)),
		"Secret": key.Secret(),
	}
	if errMsg != "" {
		data["Error"] = errMsg
	}
	a.renderer.PageStatus(w, r, status, "admin/2fa_setup", &render.PageData{
		Title: "Set Up Two-Factor Authentication",
		Data:  data,
	})
}

// totpURL rebuilds the otpauth URL for a stored secret.
func totpURL(issuer, account, secret string) string {
	v := url.Values{"secret": {secret}, "issuer": {issuer}}
	return "otpauth://totp/" + url.PathEscape(issuer) + ":" + url.PathEscape(account) + "?" + v.Encode()
}
