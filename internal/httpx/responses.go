package httpx

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// ErrorResponse is the body of every JSON error
type ErrorResponse struct {
	Error     string `json:"error"`
	Asset     string `json:"asset,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

// JSON writes v with status
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
	}
}

// JSONError writes an ErrorResponse
func JSONError(w http.ResponseWriter, r *http.Request, status int, message string) {
	JSONErrorAsset(w, r, status, message, "")
}

// JSONErrorAsset writes an ErrorResponse naming the asset that failed
func JSONErrorAsset(w http.ResponseWriter, r *http.Request, status int, message, asset string) {
	JSON(w, status, ErrorResponse{Error: message, Asset: asset, RequestID: RequestIDFrom(r)})
}
