package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/printshop-tools/kdpcover/internal/compositor"
	"github.com/printshop-tools/kdpcover/internal/config"
	"github.com/printshop-tools/kdpcover/internal/covers"
	"github.com/printshop-tools/kdpcover/internal/dimensions"
	"github.com/printshop-tools/kdpcover/internal/httpx"
	"github.com/printshop-tools/kdpcover/internal/images"
	"github.com/printshop-tools/kdpcover/internal/palette"
	"github.com/printshop-tools/kdpcover/internal/providers"
	"github.com/printshop-tools/kdpcover/internal/storage"
)

// Deps are the services the handlers call into. Nil text providers or a nil
// describer disable the matching prompt endpoints.
type Deps struct {
	Config     config.Config
	Loader     *images.Loader
	Blobs      *images.BlobStore
	Palette    *palette.Extractor
	Compositor *compositor.Compositor
	Workflow   *covers.Workflow
	History    storage.HistoryStore
	Images     providers.ImageGenerator
	Text       map[string]providers.Provider
	Describer  providers.Describer
}

type Handler struct {
	cfg        config.Config
	calc       *dimensions.Calculator
	loader     *images.Loader
	blobs      *images.BlobStore
	palette    *palette.Extractor
	compositor *compositor.Compositor
	workflow   *covers.Workflow
	sessions   *storage.SessionStore[*covers.Session]
	history    storage.HistoryStore
	images     providers.ImageGenerator
	text       map[string]providers.Provider
	describer  providers.Describer

	proxyClient  *http.Client
	proxyLimiter *httpx.RateLimiter

	sessionTTL time.Duration
	blobTTL    time.Duration
}

func New(d Deps) *Handler {
	blobs := d.Blobs
	if blobs == nil {
		blobs = images.NewBlobStore()
	}
	loader := d.Loader
	if loader == nil {
		loader = images.NewServerLoader(d.Config.ProxyBaseURL, blobs, d.Config.AllowPrivateProxy, d.Config.AssetTimeout)
	}
	history := d.History
	if history == nil {
		history = storage.NewMemoryStore()
	}
	imageGen := d.Images
	if imageGen == nil {
		imageGen = providers.Placeholder{}
	}
	ext := d.Palette
	if ext == nil {
		ext = palette.NewExtractor(loader, d.Config.PaletteTimeout)
	}
	comp := d.Compositor
	if comp == nil {
		comp = compositor.New(loader, d.Config.AssemblyTimeout)
	}
	workflow := d.Workflow
	if workflow == nil {
		workflow = covers.New(comp, nil, ext)
	}

	rps, burst := d.Config.ProxyRateLimit, d.Config.ProxyBurst
	if rps <= 0 {
		rps = 10
	}
	if burst <= 0 {
		burst = 20
	}

	limiter := httpx.NewRateLimiter(rps, burst)
	limiter.TrustForwarded = d.Config.TrustProxyHeaders

	sessionTTL, blobTTL := d.Config.SessionTTL, d.Config.BlobTTL
	if sessionTTL <= 0 {
		sessionTTL = 30 * time.Minute
	}
	if blobTTL <= 0 {
		blobTTL = 2 * time.Hour
	}

	return &Handler{
		cfg:          d.Config,
		calc:         dimensions.New(d.Config.MaxPages),
		loader:       loader,
		blobs:        blobs,
		palette:      ext,
		compositor:   comp,
		workflow:     workflow,
		sessions:     storage.New[*covers.Session](),
		history:      history,
		images:       imageGen,
		text:         d.Text,
		describer:    d.Describer,
		proxyClient:  images.NewGuardedClient(d.Config.AllowPrivateProxy, d.Config.AssetTimeout),
		proxyLimiter: limiter,
		sessionTTL:   sessionTTL,
		blobTTL:      blobTTL,
	}
}

// Prune drops idle build sessions, expired uploads and idle rate limit
// buckets
func (h *Handler) Prune() {
	sessions := h.sessions.Prune(h.sessionTTL)
	blobs := h.blobs.Prune(h.blobTTL)
	h.proxyLimiter.Prune()
	if sessions > 0 || blobs > 0 {
		slog.Debug("Pruned idle state", "sessions", sessions, "blobs", blobs)
	}
}

// Cleanup calls Prune every interval until ctx ends
func (h *Handler) Cleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.Prune()
		}
	}
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	httpx.JSON(w, http.StatusOK, data)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, message string, code int) {
	if code >= 500 {
		slog.Error(message, "path", r.URL.Path, "request_id", httpx.RequestIDFrom(r))
	} else {
		slog.Debug(message, "path", r.URL.Path, "status", code)
	}
	httpx.JSONError(w, r, code, message)
}

// writeFailure maps a service error onto a status code
func (h *Handler) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	var asmErr *compositor.AssemblyError
	var loadErr *images.AssetLoadError

	switch {
	case errors.Is(err, covers.ErrStale):
		h.writeError(w, r, err.Error(), http.StatusConflict)
	case errors.Is(err, context.DeadlineExceeded):
		h.writeError(w, r, err.Error(), http.StatusGatewayTimeout)
	case errors.As(err, &asmErr):
		slog.Warn("Cover assembly failed", "asset", asmErr.Asset, "err", asmErr.Err)
		httpx.JSONErrorAsset(w, r, http.StatusUnprocessableEntity, err.Error(), asmErr.Asset)
	case errors.As(err, &loadErr):
		h.writeError(w, r, err.Error(), http.StatusBadGateway)
	case errors.Is(err, storage.ErrNotFound):
		h.writeError(w, r, err.Error(), http.StatusNotFound)
	default:
		h.writeError(w, r, err.Error(), http.StatusInternalServerError)
	}
}

// decodeJSON reads the request body into v, writing a 400 on failure
func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.writeError(w, r, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func (h *Handler) requireMethod(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	w.Header().Set("Allow", strings.Join(methods, ", "))
	h.writeError(w, r, "Method not allowed", http.StatusMethodNotAllowed)
	return false
}
