package handlers

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// HandleProxyImage fetches a remote image on behalf of the browser so canvas
// reads are not blocked by the origin's CORS policy.
func (h *Handler) HandleProxyImage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	if r.Method == http.MethodOptions {
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if !h.requireMethod(w, r, http.MethodGet) {
		return
	}

	if !h.proxyLimiter.Allow(r) {
		w.Header().Set("Retry-After", "1")
		h.writeError(w, r, "Too many requests", http.StatusTooManyRequests)
		return
	}

	target, err := parseProxyTarget(r.URL.Query().Get("url"))
	if err != nil {
		h.writeError(w, r, err.Error(), http.StatusBadRequest)
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, target.String(), nil)
	if err != nil {
		h.writeError(w, r, "Invalid url", http.StatusBadRequest)
		return
	}
	req.Header.Set("Accept", "image/*")
	req.Header.Set("User-Agent", "kdpcover-proxy/1.0")

	resp, err := h.proxyClient.Do(req)
	if err != nil {
		slog.Warn("Proxy fetch failed", "url", target.Redacted(), "err", err)
		h.writeError(w, r, "Failed to fetch image", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		h.writeError(w, r, fmt.Sprintf("Upstream returned HTTP %d", resp.StatusCode), http.StatusBadGateway)
		return
	}

	limit := h.proxyMaxBytes()
	if resp.ContentLength > limit {
		h.writeError(w, r, "Image too large", http.StatusRequestEntityTooLarge)
		return
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		h.writeError(w, r, "Failed to read image", http.StatusBadGateway)
		return
	}
	if int64(len(data)) > limit {
		h.writeError(w, r, "Image too large", http.StatusRequestEntityTooLarge)
		return
	}

	mtype := mimetype.Detect(data)
	if !strings.HasPrefix(mtype.String(), "image/") {
		h.writeError(w, r, "Upstream content is "+mtype.String()+", not an image", http.StatusUnsupportedMediaType)
		return
	}

	w.Header().Set("Content-Type", mtype.String())
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		slog.Debug("Proxy client went away", "err", err)
	}
}

func (h *Handler) proxyMaxBytes() int64 {
	if h.cfg.ProxyMaxBytes > 0 {
		return h.cfg.ProxyMaxBytes
	}
	return 25 << 20
}

func parseProxyTarget(raw string) (*url.URL, error) {
	if raw == "" {
		return nil, errors.New("url parameter is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, errors.New("invalid url")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.New("only http and https urls can be proxied")
	}
	if u.Hostname() == "" {
		return nil, errors.New("url has no host")
	}
	return u, nil
}
