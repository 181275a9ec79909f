package handlers

import (
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// MaxUploadBytes caps a single uploaded image
const MaxUploadBytes = 10 * 1024 * 1024

// HandleUpload stores an uploaded image (front, back or interior preview) and
// returns a blob: source usable anywhere an image URL is accepted.
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	if !h.requireMethod(w, r, http.MethodPost) {
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		file, header, err = r.FormFile("files")
		if err != nil {
			h.writeError(w, r, "Failed to read file: "+err.Error(), http.StatusBadRequest)
			return
		}
	}
	defer file.Close()

	fileData, err := io.ReadAll(io.LimitReader(file, MaxUploadBytes+1))
	if err != nil {
		h.writeError(w, r, "Failed to read file contents: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if len(fileData) > MaxUploadBytes {
		h.writeError(w, r, "File too large (max 10MB)", http.StatusRequestEntityTooLarge)
		return
	}

	mtype := mimetype.Detect(fileData)
	if !strings.HasPrefix(mtype.String(), "image/") {
		h.writeError(w, r, "Uploaded file is "+mtype.String()+", not an image", http.StatusUnsupportedMediaType)
		return
	}

	source := h.blobs.Put(fileData)
	slog.Info("Stored uploaded image", "filename", header.Filename, "bytes", len(fileData), "type", mtype.String(), "source", source)

	h.writeJSON(w, map[string]any{
		"source":   source,
		"url":      "/blobs/" + strings.TrimPrefix(source, "blob:"),
		"filename": header.Filename,
		"type":     mtype.String(),
		"bytes":    len(fileData),
	})
}
