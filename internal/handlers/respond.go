// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers holds the HTTP handler groups: Public for the visitor
// site, Auth for operator sign-in, and Admin for the back office. Handlers
// translate requests into service calls and map apperr kinds onto statuses.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"probitcms/internal/apperr"
	"probitcms/internal/render"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeJSONError answers an API call with the status for err's kind.
// Unknown errors are logged and reported generically.
func writeJSONError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "path", r.URL.Path, "error", err)
	}
	body := map[string]string{"error": apperr.Message(err)}
	if field := apperr.FieldOf(err); field != "" {
		body["field"] = field
	}
	writeJSON(w, status, body)
}

// fieldErrors turns a validation error into the inline error map the form
// templates read. Other kinds yield nil.
func fieldErrors(err error) map[string]string {
	if !apperr.Is(err, apperr.KindValidation) {
		return nil
	}
	field := apperr.FieldOf(err)
	if field == "" {
		field = "form"
	}
	return map[string]string{field: apperr.Message(err)}
}

// urlID parses the {id} route parameter.
func urlID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, apperr.NotFound("handlers.urlID", "record")
	}
	return id, nil
}

// flashError redirects back to target with err shown as a banner. Unknown
// errors are logged and shown generically.
func flashError(w http.ResponseWriter, r *http.Request, target string, err error) {
	if apperr.HTTPStatus(err) >= http.StatusInternalServerError {
		slog.Error("admin action failed", "path", r.URL.Path, "error", err)
	}
	render.SetFlash(w, render.Flash{Type: "error", Message: apperr.Message(err)})
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// flashSuccess redirects to target with a confirmation banner.
func flashSuccess(w http.ResponseWriter, r *http.Request, target, msg string) {
	render.SetFlash(w, render.Flash{Type: "success", Message: msg})
	http.Redirect(w, r, target, http.StatusSeeOther)
}
