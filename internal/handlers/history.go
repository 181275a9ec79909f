package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/printshop-tools/kdpcover/internal/models"
	"github.com/printshop-tools/kdpcover/internal/storage"
)

func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		limit := storage.DefaultHistoryLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				h.writeError(w, r, "limit must be a positive integer", http.StatusBadRequest)
				return
			}
			limit = n
		}
		records, err := h.history.List(r.Context(), limit)
		if err != nil {
			h.writeFailure(w, r, err)
			return
		}
		if records == nil {
			records = []models.HistoryRecord{}
		}
		h.writeJSON(w, records)
	case http.MethodPost:
		var rec models.HistoryRecord
		if !h.decodeJSON(w, r, &rec) {
			return
		}
		if rec.Dimensions == nil && rec.PageCount > 0 {
			d := h.calc.Calculate(models.BookSpec{
				TrimSize:     rec.TrimSize,
				PageCount:    rec.PageCount,
				PaperType:    rec.PaperColor,
				IncludeBleed: true,
			})
			rec.Dimensions = &d
		}
		saved, err := h.history.Save(r.Context(), rec)
		if err != nil {
			h.writeFailure(w, r, err)
			return
		}
		h.writeJSON(w, saved)
	default:
		h.requireMethod(w, r, http.MethodGet, http.MethodPost)
	}
}

func (h *Handler) HandleHistoryDetail(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/history/")
	if id == "" || strings.Contains(id, "/") {
		h.writeError(w, r, "Invalid history id", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		rec, err := h.history.Get(r.Context(), id)
		if err != nil {
			h.writeFailure(w, r, err)
			return
		}
		h.writeJSON(w, rec)
	case http.MethodDelete:
		if err := h.history.Delete(r.Context(), id); err != nil {
			h.writeFailure(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		h.requireMethod(w, r, http.MethodGet, http.MethodDelete)
	}
}
