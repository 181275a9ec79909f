// Package covers runs the cover build workflow: palette extraction and
// full-wrap assembly in parallel, with a retry and fallback chain for the
// assembly step.
package covers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/printshop-tools/kdpcover/internal/compositor"
	"github.com/printshop-tools/kdpcover/internal/fallback"
	"github.com/printshop-tools/kdpcover/internal/models"
	"github.com/printshop-tools/kdpcover/internal/palette"
)

const (
	DefaultRetries    = 2
	DefaultRetryDelay = 500 * time.Millisecond

	StrategyLocal       = "local"
	StrategyRemote      = "remote"
	StrategyPlaceholder = "placeholder"
)

// Assembler renders a full wrap; *compositor.Compositor and *RemoteCompositor
// satisfy it
type Assembler interface {
	Assemble(ctx context.Context, p compositor.Params) (*compositor.Result, error)
}

// PaletteExtractor never fails; *palette.Extractor satisfies it
type PaletteExtractor interface {
	Extract(ctx context.Context, source string) models.ExtractedPalette
}

// Cover is a finished build
type Cover struct {
	Generation uint64                  `json:"generation"`
	Result     *compositor.Result      `json:"-"`
	Palette    models.ExtractedPalette `json:"palette"`
	Strategy   string                  `json:"strategy"`
	Warnings   []string                `json:"warnings"`
}

// summary drops the rendered bitmap so long-lived sessions stay small
func (c *Cover) summary() *Cover {
	out := *c
	out.Result = nil
	out.Warnings = append([]string(nil), c.Warnings...)
	return &out
}

// Workflow builds covers
type Workflow struct {
	local   Assembler
	remote  Assembler
	palette PaletteExtractor

	Retries    int
	RetryDelay time.Duration
}

// New wires a workflow; remote may be nil when no composite API is configured
func New(local Assembler, remote Assembler, extractor PaletteExtractor) *Workflow {
	return &Workflow{
		local:      local,
		remote:     remote,
		palette:    extractor,
		Retries:    DefaultRetries,
		RetryDelay: DefaultRetryDelay,
	}
}

// Build extracts the palette and assembles the wrap concurrently. Both finish
// before Build returns.
func (w *Workflow) Build(ctx context.Context, p compositor.Params) (*Cover, error) {
	if err := validate(p); err != nil {
		return nil, err
	}

	cover := &Cover{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if w.palette == nil {
			cover.Palette = palette.Fallback()
			return nil
		}
		cover.Palette = w.palette.Extract(gctx, p.Front)
		return nil
	})

	g.Go(func() error {
		res, strategy, err := w.assemblyChain(p).Run(gctx)
		if err != nil {
			return fmt.Errorf("failed to assemble cover: %w", err)
		}
		cover.Result = res
		cover.Strategy = strategy
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	cover.Warnings = append(cover.Warnings, cover.Result.Warnings...)
	if cover.Strategy != StrategyLocal && cover.Strategy != "" {
		slog.Info("Cover assembled by fallback", "strategy", cover.Strategy)
	}
	return cover, nil
}

func (w *Workflow) assemblyChain(p compositor.Params) *fallback.Chain[*compositor.Result] {
	chain := fallback.NewChain[*compositor.Result]("cover assembly")

	if w.local != nil {
		for attempt := 0; attempt <= w.Retries; attempt++ {
			name := StrategyLocal
			if attempt > 0 {
				name = fmt.Sprintf("%s retry %d", StrategyLocal, attempt)
			}
			delay := time.Duration(attempt) * w.RetryDelay
			chain.Then(name, func(ctx context.Context) (*compositor.Result, error) {
				if err := sleep(ctx, delay); err != nil {
					return nil, err
				}
				res, err := w.local.Assemble(ctx, p)
				if errors.Is(err, compositor.ErrAssetTooLarge) {
					return nil, fallback.Permanent(err)
				}
				return res, err
			})
		}
	}

	if w.remote != nil {
		chain.Then(StrategyRemote, func(ctx context.Context) (*compositor.Result, error) {
			return w.remote.Assemble(ctx, p)
		})
	}

	chain.Then(StrategyPlaceholder, func(ctx context.Context) (*compositor.Result, error) {
		return Placeholder(ctx, p)
	})
	return chain
}

// validate rejects input no strategy could succeed with
func validate(p compositor.Params) error {
	d := p.Dimensions
	switch {
	case d.FullWrapWidthPx <= 0 || d.FullWrapHeightPx <= 0:
		return &compositor.AssemblyError{Asset: compositor.AssetCanvas, Err: errors.New("dimensions are required")}
	case p.Front == "":
		return &compositor.AssemblyError{Asset: compositor.AssetFront, Err: errors.New("front cover is required")}
	case len(p.Interior) > compositor.MaxInteriorImages:
		return &compositor.AssemblyError{
			Asset: compositor.InteriorAsset(compositor.MaxInteriorImages),
			Err:   fmt.Errorf("at most %d interior previews are allowed", compositor.MaxInteriorImages),
		}
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
