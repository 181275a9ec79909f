package ollama

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/printshop-tools/kdpcover/internal/providers"
)

const (
	DefaultURL   = "http://localhost:11434"
	DefaultModel = "llama3.2"
)

// Ollama is a provider for Ollama
type Ollama struct {
	BaseURL    string
	Model      string
	HTTPClient *http.Client
}

// New returns a new Ollama provider; empty values fall back to OLLAMA_URL
// and the defaults
func New(baseURL, model string) *Ollama {
	if baseURL == "" {
		baseURL = os.Getenv("OLLAMA_URL")
	}
	if baseURL == "" {
		baseURL = DefaultURL
	}
	if model == "" {
		model = DefaultModel
	}
	return &Ollama{BaseURL: baseURL, Model: model, HTTPClient: &http.Client{}}
}

// ExtractText extracts text from the given prompt using Ollama
func (o *Ollama) ExtractText(ctx context.Context, config providers.Config) (string, error) {
	return o.generate(ctx, config, nil)
}

// DescribeImage needs a vision model such as llava
func (o *Ollama) DescribeImage(ctx context.Context, config providers.Config, image []byte, mimeType string) (string, error) {
	return o.generate(ctx, config, []string{base64.StdEncoding.EncodeToString(image)})
}

func (o *Ollama) generate(ctx context.Context, config providers.Config, images []string) (string, error) {
	model := config.Model
	if model == "" {
		model = o.Model
	}

	payload := map[string]interface{}{
		"model":  model,
		"prompt": config.Prompt,
		"stream": false,
		"options": map[string]interface{}{
			"temperature": config.Temperature,
		},
	}
	if len(images) > 0 {
		payload["images"] = images
	}

	requestBody, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	url := strings.TrimSuffix(o.BaseURL, "/") + "/api/generate"
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(requestBody))
	if err != nil {
		return "", fmt.Errorf("failed to create new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := o.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("received non-200 status code: %d - %s", resp.StatusCode, string(body))
	}

	var response struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("failed to decode response body: %w", err)
	}

	return response.Response, nil
}
