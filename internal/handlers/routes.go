package handlers

import (
	"log/slog"
	"net/http"

	"github.com/printshop-tools/kdpcover/internal/httpx"
	"github.com/printshop-tools/kdpcover/internal/images"
)

// MaxRequestBytes bounds JSON and multipart request bodies
const MaxRequestBytes = 16 << 20

// Routes returns the full HTTP surface wrapped in the shared middleware
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(images.ProxyPath, h.HandleProxyImage)
	mux.HandleFunc("/api/dimensions", h.HandleDimensions)
	mux.HandleFunc("/api/trim-sizes", h.HandleTrimSizes)
	mux.HandleFunc("/api/colors", h.HandleColors)
	mux.HandleFunc("/api/covers/assemble", h.HandleAssemble)
	mux.HandleFunc("/api/covers/build", h.HandleBuild)
	mux.HandleFunc("/api/covers/generate", h.HandleGenerate)
	mux.HandleFunc("/api/prompts/enhance", h.HandleEnhancePrompt)
	mux.HandleFunc("/api/prompts/describe", h.HandleDescribe)
	mux.HandleFunc("/api/history", h.HandleHistory)
	mux.HandleFunc("/api/history/", h.HandleHistoryDetail)
	mux.HandleFunc("/api/upload", h.HandleUpload)
	mux.HandleFunc("/blobs/", h.HandleBlob)
	mux.HandleFunc("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			slog.Error("Unable to write healthcheck", "err", err)
		}
	})

	return httpx.Chain(mux,
		httpx.RequestIDMiddleware,
		httpx.AccessLogMiddleware,
		httpx.RecoveryMiddleware,
		httpx.CORSMiddleware([]string{"*"}),
		httpx.RequestSizeLimitMiddleware(MaxRequestBytes),
	)
}
