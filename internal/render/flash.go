// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package render

import (
	"encoding/base64"
	"net/http"
	"strings"
)

const flashCookie = "pcms_flash"

// Flash represents a one-time notification message displayed to the user.
type Flash struct {
	Type    string // "success", "error", "warning", "info"
	Message string
}

// SetFlash stores a message to show on the next rendered page, which is
// usually the target of a redirect.
func SetFlash(w http.ResponseWriter, f Flash) {
	value := base64.RawURLEncoding.EncodeToString([]byte(f.Type + "|" + f.Message))
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// PopFlash reads and clears the pending flash, if any.
func PopFlash(w http.ResponseWriter, r *http.Request) (Flash, bool) {
	c, err := r.Cookie(flashCookie)
	if err != nil || c.Value == "" {
		return Flash{}, false
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	raw, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return Flash{}, false
	}
	kind, msg, ok := strings.Cut(string(raw), "|")
	if !ok || msg == "" {
		return Flash{}, false
	}
	return Flash{Type: kind, Message: msg}, true
}
