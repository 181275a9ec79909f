package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/vincent-petithory/dataurl"

	"github.com/printshop-tools/kdpcover/internal/compositor"
	"github.com/printshop-tools/kdpcover/internal/covers"
	"github.com/printshop-tools/kdpcover/internal/dimensions"
	"github.com/printshop-tools/kdpcover/internal/export"
	"github.com/printshop-tools/kdpcover/internal/models"
	"github.com/printshop-tools/kdpcover/internal/providers"
)

type assembleRequest struct {
	SessionID  string             `json:"sessionId,omitempty"`
	Spec       specRequest        `json:"spec"`
	Front      string             `json:"front"`
	Back       string             `json:"back,omitempty"`
	Interior   []string           `json:"interior,omitempty"`
	Spine      models.SpineConfig `json:"spine"`
	Title      string             `json:"title,omitempty"`
	Author     string             `json:"author,omitempty"`
	ShowGuides bool               `json:"showGuides"`
}

func (h *Handler) params(req assembleRequest) (models.BookSpec, compositor.Params) {
	spec := req.Spec.spec()
	return spec, compositor.Params{
		Front:      req.Front,
		Back:       req.Back,
		Interior:   req.Interior,
		Dimensions: h.calc.Calculate(spec),
		Spine:      req.Spine,
		Title:      req.Title,
		Author:     req.Author,
		ShowGuides: req.ShowGuides,
	}
}

type assembleResponse struct {
	Image      string             `json:"image"`
	Width      int                `json:"width"`
	Height     int                `json:"height"`
	Dimensions models.Dimensions  `json:"dimensions"`
	Regions    compositor.Regions `json:"regions"`
	Guides     []compositor.Guide `json:"guides,omitempty"`
	Warnings   []string           `json:"warnings"`
}

func newAssembleResponse(png []byte, p compositor.Params, res *compositor.Result) assembleResponse {
	warnings := res.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	return assembleResponse{
		Image:      dataurl.New(png, "image/png").String(),
		Width:      p.Dimensions.FullWrapWidthPx,
		Height:     p.Dimensions.FullWrapHeightPx,
		Dimensions: p.Dimensions,
		Regions:    res.Regions,
		Guides:     res.Guides,
		Warnings:   warnings,
	}
}

// HandleAssemble renders a full wrap synchronously. Assembly errors are
// returned to the caller with the failing asset rather than replaced by a
// placeholder.
//
// ?format=json returns the PNG as a data URI alongside warnings and layout.
// ?export=true never draws guides and marks the response as a download.
func (h *Handler) HandleAssemble(w http.ResponseWriter, r *http.Request) {
	if !h.requireMethod(w, r, http.MethodPost) {
		return
	}

	var req assembleRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	exporting, _ := strconv.ParseBool(r.URL.Query().Get("export"))
	if exporting {
		req.ShowGuides = false
	}

	_, p := h.params(req)
	res, err := h.compositor.Assemble(r.Context(), p)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}

	data, err := export.WithDPI(res.PNG, dimensions.DPI)
	if err != nil {
		slog.Warn("Unable to tag cover DPI", "err", err)
		data = res.PNG
	}

	for _, warning := range res.Warnings {
		slog.Info("Cover assembled with warning", "warning", warning)
	}

	if r.URL.Query().Get("format") == "json" {
		h.writeJSON(w, newAssembleResponse(data, p, res))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	if exporting {
		name := fmt.Sprintf("kdp-cover-%s-%dp.png", dimensions.ResolveTrimSize(req.Spec.TrimSize).Name, p.Dimensions.PageCount)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		slog.Debug("Client went away during cover download", "err", err)
	}
}

type buildResponse struct {
	assembleResponse
	SessionID  string                  `json:"sessionId"`
	Generation uint64                  `json:"generation"`
	Strategy   string                  `json:"strategy"`
	Palette    models.ExtractedPalette `json:"palette"`
}

// HandleBuild runs the fallback workflow for a session. A build whose book
// spec or front image was changed by a later request returns 409.
func (h *Handler) HandleBuild(w http.ResponseWriter, r *http.Request) {
	if !h.requireMethod(w, r, http.MethodPost) {
		return
	}

	var req assembleRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.New().String()
	}

	session := h.sessions.GetOrCreate(req.SessionID, func() *covers.Session {
		return covers.NewSession(h.workflow)
	})

	spec, p := h.params(req)
	gen := session.Update(spec, req.Front)

	cover, err := session.Build(r.Context(), gen, p)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}

	slog.Info("Cover built", "session", req.SessionID, "generation", cover.Generation, "strategy", cover.Strategy)
	resp := newAssembleResponse(cover.Result.PNG, p, cover.Result)
	if cover.Warnings != nil {
		resp.Warnings = cover.Warnings
	}
	h.writeJSON(w, buildResponse{
		assembleResponse: resp,
		SessionID:        req.SessionID,
		Generation:       cover.Generation,
		Strategy:         cover.Strategy,
		Palette:          cover.Palette,
	})
}

// HandleGenerate produces a front cover image through the generator chain
func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	if !h.requireMethod(w, r, http.MethodPost) {
		return
	}

	var req providers.ImageRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	if req.Prompt == "" {
		h.writeError(w, r, "prompt is required", http.StatusBadRequest)
		return
	}

	result, err := h.images.GenerateImage(r.Context(), req)
	if err != nil {
		h.writeError(w, r, "Image generation failed: "+err.Error(), http.StatusBadGateway)
		return
	}
	h.writeJSON(w, result)
}
