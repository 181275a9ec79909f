package openai

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
	DefaultBaseURL    = "https://api.openai.com/v1"
	DefaultChatModel  = "gpt-4o-mini"
	DefaultImageModel = "gpt-image-1"
	FallbackModel     = "dall-e-3"
)

// OpenAI is a provider for OpenAI
type OpenAI struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

// New returns a new OpenAI provider; an empty key falls back to OPENAI_API_KEY
func New(apiKey string) *OpenAI {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	return &OpenAI{
		APIKey:     apiKey,
		BaseURL:    DefaultBaseURL,
		HTTPClient: &http.Client{},
	}
}

// ExtractText runs a chat completion for the given prompt
func (o *OpenAI) ExtractText(ctx context.Context, config providers.Config) (string, error) {
	return o.chat(ctx, config, config.Prompt)
}

// DescribeImage sends the image inline as a data URI alongside the prompt
func (o *OpenAI) DescribeImage(ctx context.Context, config providers.Config, image []byte, mimeType string) (string, error) {
	dataURI := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(image)
	content := []map[string]any{
		{"type": "text", "text": config.Prompt},
		{"type": "image_url", "image_url": map[string]string{"url": dataURI}},
	}
	return o.chat(ctx, config, content)
}

func (o *OpenAI) chat(ctx context.Context, config providers.Config, content any) (string, error) {
	model := config.Model
	if model == "" {
		model = DefaultChatModel
	}

	var response struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	err := o.post(ctx, "/chat/completions", map[string]any{
		"model": model,
		"messages": []map[string]any{
			{
				"role":    "user",
				"content": content,
			},
		},
		"temperature": config.Temperature,
	}, &response)
	if err != nil {
		return "", err
	}

	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no choices returned from OpenAI")
	}

	return response.Choices[0].Message.Content, nil
}

// ImageModel binds the images API to one model
type ImageModel struct {
	client *OpenAI
	model  string
}

// Images returns an ImageGenerator for model
func (o *OpenAI) Images(model string) *ImageModel {
	if model == "" {
		model = DefaultImageModel
	}
	return &ImageModel{client: o, model: model}
}

// GenerateImage calls the images API. gpt-image models answer with base64
// data which is returned as a data URI; dall-e models answer with a URL.
func (m *ImageModel) GenerateImage(ctx context.Context, req providers.ImageRequest) (providers.ImageResult, error) {
	body := map[string]any{
		"model":  m.model,
		"prompt": providers.StylePrompt(req.Prompt, req.Style),
		"size":   ImageSize(m.model, req.Width, req.Height),
		"n":      1,
	}
	if strings.HasPrefix(m.model, "dall-e") {
		body["response_format"] = "url"
	}

	var response struct {
		Data []struct {
			URL           string `json:"url"`
			B64JSON       string `json:"b64_json"`
			RevisedPrompt string `json:"revised_prompt"`
		} `json:"data"`
	}
	if err := m.client.post(ctx, "/images/generations", body, &response); err != nil {
		return providers.ImageResult{}, err
	}
	if len(response.Data) == 0 {
		return providers.ImageResult{}, fmt.Errorf("no images returned from OpenAI")
	}

	d := response.Data[0]
	url := d.URL
	if url == "" && d.B64JSON != "" {
		url = "data:image/png;base64," + d.B64JSON
	}
	if url == "" {
		return providers.ImageResult{}, fmt.Errorf("empty image returned from OpenAI")
	}
	return providers.ImageResult{URL: url, Model: m.model, RevisedPrompt: d.RevisedPrompt}, nil
}

// ImageSize picks the supported size closest to the requested aspect ratio
func ImageSize(model string, w, h int) string {
	tall, wide, square := "1024x1536", "1536x1024", "1024x1024"
	if strings.HasPrefix(model, "dall-e") {
		tall, wide = "1024x1792", "1792x1024"
	}
	if w <= 0 || h <= 0 {
		return tall
	}
	ratio := float64(w) / float64(h)
	switch {
	case ratio < 0.85:
		return tall
	case ratio > 1.15:
		return wide
	default:
		return square
	}
}

func (o *OpenAI) post(ctx context.Context, path string, payload any, out any) error {
	if o.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}

	requestBody, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", strings.TrimSuffix(o.BaseURL, "/")+path, bytes.NewBuffer(requestBody))
	if err != nil {
		return fmt.Errorf("failed to create new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.APIKey)

	client := o.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("received non-200 status code: %d - %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response body: %w", err)
	}
	return nil
}
