// Package compositor assembles a print-ready full-wrap cover (back, spine,
// front) from independently generated images.
package compositor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"math"
	"time"
	"unicode/utf8"

	"github.com/disintegration/imaging"
	"golang.org/x/sync/errgroup"

	"github.com/printshop-tools/kdpcover/internal/dimensions"
	"github.com/printshop-tools/kdpcover/internal/images"
	"github.com/printshop-tools/kdpcover/internal/models"
	"github.com/printshop-tools/kdpcover/internal/palette"
)

const (
	// DefaultTimeout bounds one whole assembly, asset loading included
	DefaultTimeout = 30 * time.Second

	// MaxInteriorImages is the most interior previews a back cover takes
	MaxInteriorImages = 6

	// MaxInteriorBytes caps each interior preview source
	MaxInteriorBytes = 2 * 1024 * 1024

	// MaxSpineTextLen is the longest spine text accepted, in runes
	MaxSpineTextLen = 50

	// MaxSpineFontPx caps spine text at 48pt
	MaxSpineFontPx = 48 * dimensions.DPI / 72

	minSpineFontPx = 8
	spineFontRatio = 0.6
)

// AssetFetcher returns raw image bytes for a source; *images.Loader satisfies it
type AssetFetcher interface {
	Fetch(ctx context.Context, source string) ([]byte, error)
}

// Params describes one full-wrap assembly
type Params struct {
	Front      string
	Back       string
	Interior   []string
	Dimensions models.Dimensions
	Spine      models.SpineConfig
	Title      string
	Author     string
	ShowGuides bool
}

// Result is a finished composite
type Result struct {
	PNG      []byte
	Image    *image.NRGBA
	Regions  Regions
	Guides   []Guide
	Warnings []string
}

// Compositor builds full-wrap covers. It holds no per-call state, so
// concurrent Assemble calls each get their own canvas.
type Compositor struct {
	fetcher AssetFetcher
	timeout time.Duration
}

// New creates a compositor; timeout <= 0 uses DefaultTimeout
func New(fetcher AssetFetcher, timeout time.Duration) *Compositor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Compositor{fetcher: fetcher, timeout: timeout}
}

type loadedAssets struct {
	front    image.Image
	back     image.Image
	interior []image.Image
}

// Assemble loads every asset and renders the composite
func (c *Compositor) Assemble(ctx context.Context, p Params) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	d := p.Dimensions
	if d.FullWrapWidthPx <= 0 || d.FullWrapHeightPx <= 0 || d.FrontWidthPx <= 0 {
		return nil, &AssemblyError{Asset: AssetCanvas, Err: fmt.Errorf("invalid canvas size %dx%d", d.FullWrapWidthPx, d.FullWrapHeightPx)}
	}
	if p.Front == "" {
		return nil, &AssemblyError{Asset: AssetFront, Err: errors.New("front cover is required")}
	}
	if len(p.Interior) > MaxInteriorImages {
		return nil, &AssemblyError{
			Asset: InteriorAsset(MaxInteriorImages),
			Err:   fmt.Errorf("at most %d interior previews are allowed, got %d", MaxInteriorImages, len(p.Interior)),
		}
	}

	assets, err := c.loadAssets(ctx, p)
	if err != nil {
		return nil, err
	}

	surface := NewRasterSurface(d.FullWrapWidthPx, d.FullWrapHeightPx, color.White)
	res, err := Render(ctx, surface, assets.front, assets.back, assets.interior, p)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, surface.NRGBA()); err != nil {
		return nil, &AssemblyError{Asset: AssetCanvas, Err: fmt.Errorf("failed to encode PNG: %w", err)}
	}
	res.PNG = buf.Bytes()
	res.Image = surface.NRGBA()
	return res, nil
}

func (c *Compositor) loadAssets(ctx context.Context, p Params) (*loadedAssets, error) {
	out := &loadedAssets{interior: make([]image.Image, len(p.Interior))}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		img, err := c.load(gctx, AssetFront, p.Front, 0)
		out.front = img
		return err
	})

	if p.Back != "" {
		g.Go(func() error {
			img, err := c.load(gctx, AssetBack, p.Back, 0)
			out.back = img
			return err
		})
	}

	for i, src := range p.Interior {
		g.Go(func() error {
			img, err := c.load(gctx, InteriorAsset(i), src, MaxInteriorBytes)
			out.interior[i] = img
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Compositor) load(ctx context.Context, asset, source string, maxBytes int) (image.Image, error) {
	data, err := c.fetcher.Fetch(ctx, source)
	if err != nil {
		return nil, &AssemblyError{Asset: asset, Err: err}
	}
	if maxBytes > 0 && len(data) > maxBytes {
		return nil, &AssemblyError{Asset: asset, Err: fmt.Errorf("%w: image is %d bytes, limit is %d", ErrAssetTooLarge, len(data), maxBytes)}
	}
	img, err := images.Decode(source, data)
	if err != nil {
		return nil, &AssemblyError{Asset: asset, Err: err}
	}
	slog.Debug("Loaded cover asset", "asset", asset, "width", img.Bounds().Dx(), "height", img.Bounds().Dy())
	return img, nil
}

// Render draws an assembly onto any Surface with already decoded images.
// back may be nil, in which case a darkened blur of front stands in.
func Render(ctx context.Context, s Surface, front, back image.Image, interior []image.Image, p Params) (*Result, error) {
	d := p.Dimensions
	reg := ComputeRegions(d)
	res := &Result{Regions: reg}

	step := func(asset string) error {
		if err := ctx.Err(); err != nil {
			return &AssemblyError{Asset: asset, Err: err}
		}
		return nil
	}

	if err := step(AssetFront); err != nil {
		return nil, err
	}
	s.DrawImageScaled(reg.Front, front)

	if err := step(AssetSpine); err != nil {
		return nil, err
	}
	warnings, err := drawSpine(s, reg.Spine, d, p.Spine)
	if err != nil {
		return nil, &AssemblyError{Asset: AssetSpine, Err: err}
	}
	res.Warnings = append(res.Warnings, warnings...)

	if err := step(AssetBack); err != nil {
		return nil, err
	}
	if back != nil {
		s.DrawImageScaled(reg.Back, back)
	} else {
		s.DrawImageScaled(reg.Back, standInBack(front, reg.Back))
		if p.Title != "" || p.Author != "" {
			if err := drawTitleBand(s, reg.Back, d.BleedPx, p.Title, p.Author); err != nil {
				return nil, &AssemblyError{Asset: AssetBack, Err: err}
			}
		}
	}

	if len(interior) > 0 {
		slots := thumbnailSlots(reg.Back, d.BleedPx, len(interior))
		if slots == nil {
			res.Warnings = append(res.Warnings, "back cover is too small for interior previews; previews omitted")
		}
		for i, slot := range slots {
			if err := step(InteriorAsset(i)); err != nil {
				return nil, err
			}
			border := max(2, slot.Dx()/60)
			s.FillRect(slot.Inset(-border), color.White)
			s.DrawImageScaled(slot, interior[i])
		}
	}

	if p.ShowGuides {
		res.Guides = ComputeGuides(d, reg)
		drawGuides(s, res.Guides)
	}

	return res, nil
}

// standInBack blurs and darkens a downscaled copy of the front cover
func standInBack(front image.Image, r image.Rectangle) image.Image {
	w := max(1, r.Dx()/4)
	h := max(1, r.Dy()/4)
	small := imaging.Fill(front, w, h, imaging.Center, imaging.Linear)
	blurred := imaging.Blur(small, 5)
	return imaging.AdjustBrightness(blurred, -40)
}

func drawSpine(s Surface, r image.Rectangle, d models.Dimensions, cfg models.SpineConfig) ([]string, error) {
	var warnings []string

	fill, err := palette.ParseHex(cfg.Color)
	if err != nil {
		warnings = append(warnings, fmt.Sprintf("spine color %q is invalid; using %s", cfg.Color, palette.FallbackColor))
		fill, _ = palette.ParseHex(palette.FallbackColor)
	}
	s.FillRect(r, fill)

	text := cfg.Text
	if text == "" {
		return warnings, nil
	}
	if !dimensions.SpineTextViable(d.SpineWidthIn) {
		warnings = append(warnings, fmt.Sprintf(
			"spine is %.3fin wide; text needs at least %.2fin, spine text omitted",
			d.SpineWidthIn, dimensions.MinSpineTextWidthIn))
		return warnings, nil
	}
	if utf8.RuneCountInString(text) > MaxSpineTextLen {
		text = string([]rune(text)[:MaxSpineTextLen])
		warnings = append(warnings, fmt.Sprintf("spine text truncated to %d characters", MaxSpineTextLen))
	}

	size := math.Min(float64(r.Dx())*spineFontRatio, MaxSpineFontPx)

	// keep the rotated line inside the trim height
	avail := r.Dy() - 2*d.BleedPx - r.Dy()/10
	width, err := s.MeasureText(text, size, true)
	if err != nil {
		return warnings, err
	}
	if width > avail && width > 0 {
		size = size * float64(avail) / float64(width)
	}
	if size < minSpineFontPx {
		warnings = append(warnings, "spine text is too long to fit; spine text omitted")
		return warnings, nil
	}

	return warnings, s.DrawRotatedText(r, text, size, contrastColor(fill))
}

func drawTitleBand(s Surface, back image.Rectangle, bleedPx int, title, author string) error {
	bandH := back.Dy() / 6
	top := back.Min.Y + bleedPx + back.Dy()/10
	band := image.Rect(back.Min.X, top, back.Max.X, top+bandH)
	s.FillRect(band, color.NRGBA{A: 0x80})

	inner := image.Rect(band.Min.X+bleedPx, band.Min.Y, band.Max.X, band.Max.Y)
	titleSize := float64(bandH) * 0.35
	authorSize := float64(bandH) * 0.2

	if title != "" {
		titleSize = fitSize(s, title, titleSize, true, inner.Dx()*9/10)
		titleRect := image.Rect(inner.Min.X, inner.Min.Y, inner.Max.X, inner.Min.Y+bandH*6/10)
		if author == "" {
			titleRect = inner
		}
		if err := s.DrawText(titleRect, title, titleSize, true, color.White); err != nil {
			return err
		}
	}
	if author != "" {
		authorSize = fitSize(s, author, authorSize, false, inner.Dx()*9/10)
		authorRect := image.Rect(inner.Min.X, inner.Min.Y+bandH*6/10, inner.Max.X, inner.Max.Y)
		if title == "" {
			authorRect = inner
		}
		if err := s.DrawText(authorRect, author, authorSize, false, color.White); err != nil {
			return err
		}
	}
	return nil
}

// fitSize shrinks size until text fits maxWidth
func fitSize(s Surface, text string, size float64, bold bool, maxWidth int) float64 {
	w, err := s.MeasureText(text, size, bold)
	if err != nil || w <= maxWidth || w == 0 {
		return size
	}
	return size * float64(maxWidth) / float64(w)
}

func drawGuides(s Surface, guides []Guide) {
	guideColor := color.NRGBA{R: 0xff, G: 0x00, B: 0x66, A: 0xff}
	for _, g := range guides {
		dash := 0
		if g.Dashed {
			dash = guideDash
		}
		s.StrokeRect(g.Rect, g.Width, dash, guideColor)
	}
}

func contrastColor(bg color.NRGBA) color.Color {
	if palette.Luminance(bg) > 0.5 {
		return color.Black
	}
	return color.White
}
