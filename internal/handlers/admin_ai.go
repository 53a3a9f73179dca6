// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"encoding/json"
	"net/http"

	"probitcms/internal/ai"
	"probitcms/internal/apperr"
	"probitcms/internal/middleware"
)

// maxAIRequestSize bounds the editor payload, which may carry a full draft.
const maxAIRequestSize = 512 << 10

// AIAssist runs one writing-assistant action for the post editor. The body
// is an ai.Request and the answer an ai.Result.
func (a *Admin) AIAssist(w http.ResponseWriter, r *http.Request) {
	if a.assistant == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "No AI provider is configured."})
		return
	}

	var req ai.Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxAIRequestSize)).Decode(&req); err != nil {
		writeJSONError(w, r, apperr.Validation("handlers.AIAssist", "", "invalid request body"))
		return
	}

	res, err := a.assistant.Run(r.Context(), middleware.AuthFromCtx(r.Context()), req)
	if err != nil {
		writeJSONError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
