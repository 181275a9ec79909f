package providers

import (
	"context"

	"github.com/printshop-tools/kdpcover/internal/fallback"
)

// NamedGenerator is one link in a generator chain
type NamedGenerator struct {
	Name      string
	Generator ImageGenerator
}

// GeneratorChain tries each generator in order until one returns an image
type GeneratorChain struct {
	generators []NamedGenerator
}

func NewGeneratorChain(generators ...NamedGenerator) *GeneratorChain {
	return &GeneratorChain{generators: generators}
}

// GenerateImage implements ImageGenerator; the result's Provider names the
// generator that produced it
func (c *GeneratorChain) GenerateImage(ctx context.Context, req ImageRequest) (ImageResult, error) {
	chain := fallback.NewChain[ImageResult]("image generation")
	for _, g := range c.generators {
		gen := g.Generator
		chain.Then(g.Name, func(ctx context.Context) (ImageResult, error) {
			return gen.GenerateImage(ctx, req)
		})
	}

	res, name, err := chain.Run(ctx)
	if err != nil {
		return ImageResult{}, err
	}
	res.Provider = name
	return res, nil
}
