package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gabriel-vasile/mimetype"

	"github.com/printshop-tools/kdpcover/internal/providers"
)

func (h *Handler) providerModel(name string) string {
	switch name {
	case "openai":
		return h.cfg.OpenAI.ChatModel
	case "gemini":
		return h.cfg.Gemini.Model
	case "ollama":
		return h.cfg.Ollama.Model
	}
	return ""
}

// HandleEnhancePrompt rewrites a cover idea into a detailed image prompt
func (h *Handler) HandleEnhancePrompt(w http.ResponseWriter, r *http.Request) {
	if !h.requireMethod(w, r, http.MethodPost) {
		return
	}

	var req struct {
		Prompt   string `json:"prompt"`
		Style    string `json:"style"`
		Provider string `json:"provider"`
		Model    string `json:"model"`
	}
	if !h.decodeJSON(w, r, &req) {
		return
	}
	if req.Prompt == "" {
		h.writeError(w, r, "prompt is required", http.StatusBadRequest)
		return
	}
	if req.Provider == "" {
		req.Provider = h.cfg.Provider
	}

	provider, ok := h.text[req.Provider]
	if !ok {
		h.writeError(w, r, "Unsupported provider: "+req.Provider, http.StatusBadRequest)
		return
	}
	if req.Model == "" {
		req.Model = h.providerModel(req.Provider)
	}

	out, err := provider.ExtractText(r.Context(), providers.Config{
		Model:       req.Model,
		Temperature: 0.7,
		Prompt:      providers.EnhancePrompt(req.Prompt, req.Style),
	})
	if err != nil {
		slog.Error("Prompt enhancement failed", "provider", req.Provider, "err", err)
		h.writeError(w, r, "Prompt enhancement failed: "+err.Error(), http.StatusBadGateway)
		return
	}

	h.writeJSON(w, map[string]string{
		"prompt":   providers.CleanCompletion(out),
		"provider": req.Provider,
	})
}

// HandleDescribe asks the vision provider to describe an existing image. The
// provider picks its own model.
func (h *Handler) HandleDescribe(w http.ResponseWriter, r *http.Request) {
	if !h.requireMethod(w, r, http.MethodPost) {
		return
	}
	if h.describer == nil {
		h.writeError(w, r, "No vision provider configured", http.StatusServiceUnavailable)
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

	data, err := h.loader.Fetch(r.Context(), req.ImageURL)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}

	description, err := h.describer.DescribeImage(r.Context(), providers.Config{
		Temperature: 0.4,
		Prompt:      providers.DescribePrompt(),
	}, data, mimetype.Detect(data).String())
	if err != nil {
		slog.Error("Image description failed", "err", err)
		h.writeError(w, r, "Image description failed: "+err.Error(), http.StatusBadGateway)
		return
	}

	h.writeJSON(w, map[string]string{"description": providers.CleanCompletion(description)})
}
