package cmd

import (
	"log/slog"

	"github.com/printshop-tools/kdpcover/internal/compositor"
	"github.com/printshop-tools/kdpcover/internal/config"
	"github.com/printshop-tools/kdpcover/internal/covers"
	"github.com/printshop-tools/kdpcover/internal/gemini"
	"github.com/printshop-tools/kdpcover/internal/handlers"
	"github.com/printshop-tools/kdpcover/internal/images"
	"github.com/printshop-tools/kdpcover/internal/ollama"
	"github.com/printshop-tools/kdpcover/internal/openai"
	"github.com/printshop-tools/kdpcover/internal/palette"
	"github.com/printshop-tools/kdpcover/internal/providers"
	"github.com/printshop-tools/kdpcover/internal/storage"
)

// services are the long-lived collaborators shared by the server and the CLI
type services struct {
	cfg        config.Config
	blobs      *images.BlobStore
	loader     *images.Loader
	palette    *palette.Extractor
	compositor *compositor.Compositor
	workflow   *covers.Workflow
}

// newServices wires the shared services. server selects the guarded loader
// used for request-supplied sources.
func newServices(cfg config.Config, server bool) *services {
	blobs := images.NewBlobStore()
	var loader *images.Loader
	if server {
		loader = images.NewServerLoader(cfg.ProxyBaseURL, blobs, cfg.AllowPrivateProxy, cfg.AssetTimeout)
	} else {
		loader = images.NewLoader(cfg.ProxyBaseURL, blobs)
		loader.Timeout = cfg.AssetTimeout
	}
	loader.MaxBytes = cfg.ProxyMaxBytes

	ext := palette.NewExtractor(loader, cfg.PaletteTimeout)
	comp := compositor.New(loader, cfg.AssemblyTimeout)

	var remote covers.Assembler
	if cfg.CompositeAPIURL != "" {
		slog.Info("Remote composite service enabled", "url", cfg.CompositeAPIURL)
		rc := covers.NewRemoteCompositor(cfg.CompositeAPIURL, loader)
		rc.Timeout = cfg.AssemblyTimeout
		remote = rc
	}

	return &services{
		cfg:        cfg,
		blobs:      blobs,
		loader:     loader,
		palette:    ext,
		compositor: comp,
		workflow:   covers.New(comp, remote, ext),
	}
}

// imageGenerator chains the configured OpenAI models in front of the
// placeholder generator
func (s *services) imageGenerator() providers.ImageGenerator {
	var chain []providers.NamedGenerator
	if s.cfg.OpenAI.APIKey != "" {
		client := openai.New(s.cfg.OpenAI.APIKey)
		chain = append(chain, providers.NamedGenerator{Name: "openai", Generator: client.Images(s.cfg.OpenAI.ImageModel)})
		if fb := s.cfg.OpenAI.FallbackModel; fb != "" && fb != s.cfg.OpenAI.ImageModel {
			chain = append(chain, providers.NamedGenerator{Name: "openai " + fb, Generator: client.Images(fb)})
		}
	}
	chain = append(chain, providers.NamedGenerator{Name: "placeholder", Generator: providers.Placeholder{}})
	return providers.NewGeneratorChain(chain...)
}

// textProviders returns the prompt providers that are configured; Ollama is
// always offered since it needs no key
func (s *services) textProviders() map[string]providers.Provider {
	out := map[string]providers.Provider{
		"ollama": ollama.New(s.cfg.Ollama.URL, s.cfg.Ollama.Model),
	}
	if s.cfg.OpenAI.APIKey != "" {
		out["openai"] = openai.New(s.cfg.OpenAI.APIKey)
	}
	if s.cfg.Gemini.APIKey != "" {
		out["gemini"] = gemini.New(s.cfg.Gemini.APIKey, s.cfg.Gemini.Model)
	}
	return out
}

// describer prefers Gemini for vision and falls back to OpenAI
func (s *services) describer() providers.Describer {
	switch {
	case s.cfg.Gemini.APIKey != "":
		return gemini.New(s.cfg.Gemini.APIKey, s.cfg.Gemini.Model)
	case s.cfg.OpenAI.APIKey != "":
		return openai.New(s.cfg.OpenAI.APIKey)
	}
	return nil
}

func (s *services) handler(history storage.HistoryStore) *handlers.Handler {
	return handlers.New(handlers.Deps{
		Config:     s.cfg,
		Loader:     s.loader,
		Blobs:      s.blobs,
		Palette:    s.palette,
		Compositor: s.compositor,
		Workflow:   s.workflow,
		History:    history,
		Images:     s.imageGenerator(),
		Text:       s.textProviders(),
		Describer:  s.describer(),
	})
}
