package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"KDPCOVER_ADDR", "KDPCOVER_PROXY_BASE_URL", "KDPCOVER_HISTORY_DB", "KDPCOVER_MAX_PAGES",
		"KDPCOVER_ALLOW_PRIVATE_PROXY", "KDPCOVER_TRUST_PROXY_HEADERS", "KDPCOVER_COMPOSITE_API_URL", "KDPCOVER_PROVIDER",
		"OPENAI_API_KEY", "OPENAI_IMAGE_MODEL", "GEMINI_API_KEY", "GEMINI_MODEL", "OLLAMA_URL", "OLLAMA_MODEL",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 828, cfg.MaxPages)
	assert.Equal(t, 5*time.Second, cfg.PaletteTimeout)
	assert.False(t, cfg.TrustProxyHeaders)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
}

func TestLoadLayering(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "kdpcover.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
addr: ":9000"
max_pages: 600
proxy_base_url: http://localhost:9000
assembly_timeout: 45s
openai:
  image_model: dall-e-3
gemini:
  model: gemini-pro-vision
`), 0644))

	t.Setenv("KDPCOVER_ADDR", ":7000")
	t.Setenv("KDPCOVER_ALLOW_PRIVATE_PROXY", "true")
	t.Setenv("KDPCOVER_TRUST_PROXY_HEADERS", "1")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.Addr, "env beats file")
	assert.Equal(t, 600, cfg.MaxPages, "file beats default")
	assert.Equal(t, "http://localhost:9000", cfg.ProxyBaseURL)
	assert.Equal(t, 45*time.Second, cfg.AssemblyTimeout)
	assert.Equal(t, "dall-e-3", cfg.OpenAI.ImageModel)
	assert.Equal(t, "dall-e-3", cfg.OpenAI.FallbackModel, "untouched nested default survives")
	assert.Equal(t, "gemini-pro-vision", cfg.Gemini.Model)
	assert.True(t, cfg.AllowPrivateProxy)
	assert.True(t, cfg.TrustProxyHeaders)
	assert.Equal(t, "sk-test", cfg.OpenAI.APIKey)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		env  map[string]string
	}{
		{name: "bad yaml", yaml: "addr: [unclosed"},
		{name: "bad max pages env", env: map[string]string{"KDPCOVER_MAX_PAGES": "lots"}},
		{name: "max pages below minimum", env: map[string]string{"KDPCOVER_MAX_PAGES": "10"}},
		{name: "bad bool", env: map[string]string{"KDPCOVER_ALLOW_PRIVATE_PROXY": "maybe"}},
		{name: "unknown provider", env: map[string]string{"KDPCOVER_PROVIDER": "skynet"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.yaml != "" {
				path = filepath.Join(t.TempDir(), "c.yaml")
				require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0644))
			}
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}
