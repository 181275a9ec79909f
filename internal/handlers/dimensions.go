package handlers

import (
	"net/http"
	"strconv"

	"github.com/printshop-tools/kdpcover/internal/dimensions"
	"github.com/printshop-tools/kdpcover/internal/models"
)

// specRequest is a BookSpec whose bleed flag defaults to on when omitted
type specRequest struct {
	TrimSize     string           `json:"trimSize"`
	PageCount    int              `json:"pageCount"`
	PaperType    models.PaperType `json:"paperType"`
	IncludeBleed *bool            `json:"includeBleed"`
}

func (s specRequest) spec() models.BookSpec {
	bleed := true
	if s.IncludeBleed != nil {
		bleed = *s.IncludeBleed
	}
	return models.BookSpec{
		TrimSize:     s.TrimSize,
		PageCount:    s.PageCount,
		PaperType:    s.PaperType,
		IncludeBleed: bleed,
	}
}

type dimensionsResponse struct {
	models.Dimensions
	TrimSize        string `json:"trimSize"`
	SpineTextViable bool   `json:"spineTextViable"`
}

func (h *Handler) describeDimensions(spec models.BookSpec) dimensionsResponse {
	d := h.calc.Calculate(spec)
	return dimensionsResponse{
		Dimensions:      d,
		TrimSize:        dimensions.ResolveTrimSize(spec.TrimSize).Name,
		SpineTextViable: dimensions.SpineTextViable(d.SpineWidthIn),
	}
}

func (h *Handler) HandleDimensions(w http.ResponseWriter, r *http.Request) {
	var req specRequest
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		req.TrimSize = q.Get("trimSize")
		req.PaperType = models.PaperType(q.Get("paperType"))
		if raw := q.Get("pageCount"); raw != "" {
			pages, err := strconv.Atoi(raw)
			if err != nil {
				h.writeError(w, r, "pageCount must be an integer", http.StatusBadRequest)
				return
			}
			req.PageCount = pages
		}
		if raw := q.Get("includeBleed"); raw != "" {
			bleed, err := strconv.ParseBool(raw)
			if err != nil {
				h.writeError(w, r, "includeBleed must be true or false", http.StatusBadRequest)
				return
			}
			req.IncludeBleed = &bleed
		}
	case http.MethodPost:
		if !h.decodeJSON(w, r, &req) {
			return
		}
	default:
		h.requireMethod(w, r, http.MethodGet, http.MethodPost)
		return
	}

	h.writeJSON(w, h.describeDimensions(req.spec()))
}

func (h *Handler) HandleTrimSizes(w http.ResponseWriter, r *http.Request) {
	if !h.requireMethod(w, r, http.MethodGet) {
		return
	}
	h.writeJSON(w, dimensions.Catalog())
}
