package providers

import (
	"context"
)

// Config represents the configuration for a text completion
type Config struct {
	Model       string
	Temperature float64
	Prompt      string
}

// Provider defines the interface for a text LLM provider
type Provider interface {
	ExtractText(ctx context.Context, config Config) (string, error)
}

// Describer is a vision-capable provider
type Describer interface {
	DescribeImage(ctx context.Context, config Config, image []byte, mimeType string) (string, error)
}

// ImageRequest asks for one generated image
type ImageRequest struct {
	Prompt string `json:"prompt"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Style  string `json:"style,omitempty"`
}

// ImageResult is a generated image; URL may be an https URL or a data URI
type ImageResult struct {
	URL           string `json:"url"`
	Model         string `json:"model,omitempty"`
	Provider      string `json:"provider,omitempty"`
	RevisedPrompt string `json:"revisedPrompt,omitempty"`
}

// ImageGenerator produces cover artwork from a prompt
type ImageGenerator interface {
	GenerateImage(ctx context.Context, req ImageRequest) (ImageResult, error)
}
