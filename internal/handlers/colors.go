package handlers

import (
	"net/http"
)

// HandleColors samples a cover image. Extraction never fails: unreadable
// images and timeouts produce the fallback palette.
func (h *Handler) HandleColors(w http.ResponseWriter, r *http.Request) {
	if !h.requireMethod(w, r, http.MethodPost) {
		return
	}

	var req struct {
		ImageURL string `json:"imageUrl"`
	}
	if !h.decodeJSON(w, r, &req) {
		return
	}
	if req.ImageURL == "" {
		h.writeError(w, r, "imageUrl is required", http.StatusBadRequest)
		return
	}

	h.writeJSON(w, h.palette.Extract(r.Context(), req.ImageURL))
}
