package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/printshop-tools/kdpcover/internal/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *OpenAI {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	o := New("test-key")
	o.BaseURL = srv.URL
	return o
}

func TestExtractText(t *testing.T) {
	o := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, DefaultChatModel, body["model"])

		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"a misty harbor at dawn"}}]}`))
	})

	got, err := o.ExtractText(context.Background(), providers.Config{Prompt: "harbor"})
	require.NoError(t, err)
	assert.Equal(t, "a misty harbor at dawn", got)
}

func TestDescribeImageSendsDataURI(t *testing.T) {
	o := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Messages []struct {
				Content []map[string]any `json:"content"`
			} `json:"messages"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.Messages, 1)
		require.Len(t, body.Messages[0].Content, 2)
		img := body.Messages[0].Content[1]["image_url"].(map[string]any)
		assert.Equal(t, "data:image/png;base64,AQID", img["url"])

		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"a red square"}}]}`))
	})

	got, err := o.DescribeImage(context.Background(), providers.Config{Prompt: "describe"}, []byte{1, 2, 3}, "image/png")
	require.NoError(t, err)
	assert.Equal(t, "a red square", got)
}

func TestGenerateImage(t *testing.T) {
	tests := []struct {
		name     string
		model    string
		response string
		wantURL  string
		wantSize string
	}{
		{
			name:     "gpt-image returns base64",
			model:    "gpt-image-1",
			response: `{"data":[{"b64_json":"iVBORw0KGgo="}]}`,
			wantURL:  "data:image/png;base64,iVBORw0KGgo=",
			wantSize: "1024x1536",
		},
		{
			name:     "dall-e returns url",
			model:    "dall-e-3",
			response: `{"data":[{"url":"https://cdn.example.com/x.png","revised_prompt":"better"}]}`,
			wantURL:  "https://cdn.example.com/x.png",
			wantSize: "1024x1792",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/images/generations", r.URL.Path)
				var body map[string]any
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				assert.Equal(t, tt.model, body["model"])
				assert.Equal(t, tt.wantSize, body["size"])
				_, _ = w.Write([]byte(tt.response))
			})

			res, err := o.Images(tt.model).GenerateImage(context.Background(), providers.ImageRequest{
				Prompt: "a lighthouse", Width: 1838, Height: 2775,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.wantURL, res.URL)
			assert.Equal(t, tt.model, res.Model)
		})
	}
}

func TestGenerateImageErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{name: "non-200", status: http.StatusTooManyRequests, body: `{"error":"slow down"}`, wantErr: "429"},
		{name: "empty data", status: http.StatusOK, body: `{"data":[]}`, wantErr: "no images"},
		{name: "bad json", status: http.StatusOK, body: `{`, wantErr: "decode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := o.Images("").GenerateImage(context.Background(), providers.ImageRequest{Prompt: "x"})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestMissingAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	_, err := New("").ExtractText(context.Background(), providers.Config{Prompt: "x"})
	assert.ErrorContains(t, err, "OPENAI_API_KEY")
}

func TestImageSize(t *testing.T) {
	tests := []struct {
		model string
		w, h  int
		want  string
	}{
		{"gpt-image-1", 6, 9, "1024x1536"},
		{"gpt-image-1", 9, 6, "1536x1024"},
		{"gpt-image-1", 10, 10, "1024x1024"},
		{"dall-e-3", 6, 9, "1024x1792"},
		{"dall-e-3", 0, 0, "1024x1792"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ImageSize(tt.model, tt.w, tt.h), "%s %dx%d", tt.model, tt.w, tt.h)
	}
}
