// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"errors"
	"io"
	"net/http"

	"probitcms/internal/apperr"
	"probitcms/internal/storage"
)

// multipartOverhead leaves room for the form boundaries around the file.
const multipartOverhead = 64 << 10

// MediaUpload stores a cover image from the editor and returns its public
// URL as {"url": "..."}. The file arrives in the multipart field "image".
func (a *Admin) MediaUpload(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.MediaUpload"
	if a.media == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "Media storage is not configured."})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, storage.MaxImageSize+multipartOverhead)
	file, _, err := r.FormFile("image")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeJSONError(w, r, apperr.Validation(op, "image", "image must be 5 MB or smaller"))
			return
		}
		writeJSONError(w, r, apperr.Validation(op, "image", "choose an image to upload"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, storage.MaxImageSize+1))
	if err != nil {
		writeJSONError(w, r, apperr.Validation(op, "image", "could not read the uploaded file"))
		return
	}

	url, err := a.media.UploadImage(r.Context(), data)
	if err != nil {
		writeJSONError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"url": url})
}
