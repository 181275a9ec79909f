package gemini

import (
	"context"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/printshop-tools/kdpcover/internal/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImageFormat(t *testing.T) {
	tests := []struct {
		mime    string
		want    string
		wantErr bool
	}{
		{mime: "image/png", want: "png"},
		{mime: "IMAGE/JPEG", want: "jpeg"},
		{mime: "image/webp; charset=binary", want: "webp"},
		{mime: "text/html", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.mime, func(t *testing.T) {
			got, err := ImageFormat(tt.mime)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFirstText(t *testing.T) {
	tests := []struct {
		name    string
		resp    *genai.GenerateContentResponse
		want    string
		wantErr bool
	}{
		{name: "nil", resp: nil, wantErr: true},
		{name: "no candidates", resp: &genai.GenerateContentResponse{}, wantErr: true},
		{
			name:    "empty content",
			resp:    &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{}}},
			wantErr: true,
		},
		{
			name: "text",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
				Content: &genai.Content{Parts: []genai.Part{genai.Text("a quiet forest")}},
			}}},
			want: "a quiet forest",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := firstText(tt.resp)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMissingAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	g := New("", "")
	assert.Equal(t, DefaultModel, g.Model)

	_, err := g.ExtractText(context.Background(), providers.Config{Prompt: "x"})
	assert.ErrorContains(t, err, "GEMINI_API_KEY")

	_, err = g.DescribeImage(context.Background(), providers.Config{Prompt: "x"}, []byte{1}, "image/png")
	assert.ErrorContains(t, err, "GEMINI_API_KEY")
}
