package gemini

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/printshop-tools/kdpcover/internal/providers"
	"google.golang.org/api/option"
)

const DefaultModel = "gemini-1.5-flash"

// Gemini is a provider for Google Gemini
type Gemini struct {
	APIKey string
	Model  string
}

// New returns a new Gemini provider; an empty key falls back to GEMINI_API_KEY
func New(apiKey, model string) *Gemini {
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if model == "" {
		model = DefaultModel
	}
	return &Gemini{APIKey: apiKey, Model: model}
}

// ExtractText extracts text from the given prompt using Gemini
func (g *Gemini) ExtractText(ctx context.Context, config providers.Config) (string, error) {
	return g.generate(ctx, config, genai.Text(config.Prompt))
}

// DescribeImage sends the image inline with the prompt
func (g *Gemini) DescribeImage(ctx context.Context, config providers.Config, image []byte, mimeType string) (string, error) {
	format, err := ImageFormat(mimeType)
	if err != nil {
		return "", err
	}
	return g.generate(ctx, config, genai.ImageData(format, image), genai.Text(config.Prompt))
}

func (g *Gemini) generate(ctx context.Context, config providers.Config, parts ...genai.Part) (string, error) {
	if g.APIKey == "" {
		return "", fmt.Errorf("GEMINI_API_KEY environment variable not set")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(g.APIKey))
	if err != nil {
		return "", fmt.Errorf("failed to create new gemini client: %w", err)
	}
	defer client.Close()

	name := config.Model
	if name == "" {
		name = g.Model
	}
	model := client.GenerativeModel(name)
	model.SetTemperature(float32(config.Temperature))

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	return firstText(resp)
}

func firstText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates returned from Gemini")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("empty content returned from Gemini")
	}

	if txt, ok := candidate.Content.Parts[0].(genai.Text); ok {
		return string(txt), nil
	}

	return "", fmt.Errorf("unexpected response format from Gemini")
}

// ImageFormat maps a MIME type to the short format genai.ImageData expects
func ImageFormat(mimeType string) (string, error) {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	switch mimeType {
	case "image/png":
		return "png", nil
	case "image/jpeg", "image/jpg":
		return "jpeg", nil
	case "image/webp":
		return "webp", nil
	case "image/gif":
		return "gif", nil
	}
	return "", fmt.Errorf("unsupported image type for Gemini: %q", mimeType)
}
