package handlers

import (
	"bytes"
	"net/http"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

// HandleBlob serves an uploaded image back to the browser
func (h *Handler) HandleBlob(w http.ResponseWriter, r *http.Request) {
	if !h.requireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/blobs/")
	if id == "" || strings.Contains(id, "/") || strings.Contains(id, "..") {
		h.writeError(w, r, "Invalid blob id", http.StatusBadRequest)
		return
	}

	data, ok := h.blobs.Get(id)
	if !ok {
		h.writeError(w, r, "Blob not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", mimetype.Detect(data).String())
	w.Header().Set("Cache-Control", "private, max-age=3600")
	http.ServeContent(w, r, id, time.Time{}, bytes.NewReader(data))
}
