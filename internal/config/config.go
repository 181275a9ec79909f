// Package config resolves runtime settings: defaults, then an optional YAML
// file, then environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/printshop-tools/kdpcover/internal/dimensions"
)

// DefaultPath is read when no --config flag is given; a missing file is fine
const DefaultPath = "kdpcover.yaml"

type Config struct {
	Addr         string `yaml:"addr"`
	ProxyBaseURL string `yaml:"proxy_base_url"`
	HistoryDB    string `yaml:"history_db"`
	MaxPages     int    `yaml:"max_pages"`

	AllowPrivateProxy bool          `yaml:"allow_private_proxy"`
	TrustProxyHeaders bool          `yaml:"trust_proxy_headers"`
	ProxyMaxBytes     int64         `yaml:"proxy_max_bytes"`
	ProxyRateLimit    float64       `yaml:"proxy_rate_limit"`
	ProxyBurst        int           `yaml:"proxy_burst"`
	AssetTimeout      time.Duration `yaml:"asset_timeout"`
	PaletteTimeout    time.Duration `yaml:"palette_timeout"`
	AssemblyTimeout   time.Duration `yaml:"assembly_timeout"`

	// SessionTTL and BlobTTL bound how long idle build sessions and
	// uploaded images stay in memory
	SessionTTL time.Duration `yaml:"session_ttl"`
	BlobTTL    time.Duration `yaml:"blob_ttl"`

	CompositeAPIURL string `yaml:"composite_api_url"`

	Provider string       `yaml:"provider"`
	OpenAI   OpenAIConfig `yaml:"openai"`
	Gemini   GeminiConfig `yaml:"gemini"`
	Ollama   OllamaConfig `yaml:"ollama"`
}

type OpenAIConfig struct {
	APIKey        string `yaml:"api_key"`
	ImageModel    string `yaml:"image_model"`
	FallbackModel string `yaml:"fallback_model"`
	ChatModel     string `yaml:"chat_model"`
}

type GeminiConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

type OllamaConfig struct {
	URL   string `yaml:"url"`
	Model string `yaml:"model"`
}

// Default returns the built-in settings
func Default() Config {
	return Config{
		Addr:            ":8888",
		HistoryDB:       "data/history.db",
		MaxPages:        dimensions.DefaultMaxPageCount,
		ProxyMaxBytes:   25 << 20,
		ProxyRateLimit:  10,
		ProxyBurst:      20,
		AssetTimeout:    30 * time.Second,
		PaletteTimeout:  5 * time.Second,
		AssemblyTimeout: 30 * time.Second,
		SessionTTL:      30 * time.Minute,
		BlobTTL:         2 * time.Hour,
		Provider:        "openai",
		OpenAI: OpenAIConfig{
			ImageModel:    "gpt-image-1",
			FallbackModel: "dall-e-3",
			ChatModel:     "gpt-4o-mini",
		},
		Gemini: GeminiConfig{Model: "gemini-1.5-flash"},
		Ollama: OllamaConfig{URL: "http://localhost:11434", Model: "llama3.2"},
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when it
// does not exist) and the environment.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	str("KDPCOVER_ADDR", &c.Addr)
	str("KDPCOVER_PROXY_BASE_URL", &c.ProxyBaseURL)
	str("KDPCOVER_HISTORY_DB", &c.HistoryDB)
	str("KDPCOVER_COMPOSITE_API_URL", &c.CompositeAPIURL)
	str("KDPCOVER_PROVIDER", &c.Provider)
	str("OPENAI_API_KEY", &c.OpenAI.APIKey)
	str("OPENAI_IMAGE_MODEL", &c.OpenAI.ImageModel)
	str("GEMINI_API_KEY", &c.Gemini.APIKey)
	str("GEMINI_MODEL", &c.Gemini.Model)
	str("OLLAMA_URL", &c.Ollama.URL)
	str("OLLAMA_MODEL", &c.Ollama.Model)

	if v, ok := lookup("KDPCOVER_MAX_PAGES"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid KDPCOVER_MAX_PAGES %q: %w", v, err)
		}
		c.MaxPages = n
	}
	if v, ok := lookup("KDPCOVER_ALLOW_PRIVATE_PROXY"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid KDPCOVER_ALLOW_PRIVATE_PROXY %q: %w", v, err)
		}
		c.AllowPrivateProxy = b
	}
	if v, ok := lookup("KDPCOVER_TRUST_PROXY_HEADERS"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid KDPCOVER_TRUST_PROXY_HEADERS %q: %w", v, err)
		}
		c.TrustProxyHeaders = b
	}
	return nil
}

// Validate rejects settings the server cannot run with
func (c Config) Validate() error {
	if c.MaxPages < dimensions.MinPageCount {
		return fmt.Errorf("max_pages must be at least %d, got %d", dimensions.MinPageCount, c.MaxPages)
	}
	switch strings.ToLower(c.Provider) {
	case "openai", "gemini", "ollama":
	default:
		return fmt.Errorf("unknown provider %q (supported: openai, gemini, ollama)", c.Provider)
	}
	if c.ProxyMaxBytes <= 0 {
		return fmt.Errorf("proxy_max_bytes must be positive")
	}
	return nil
}
