// Package palette samples a cover image to pick spine colours.
//
// Extraction never fails: anything that goes wrong yields the neutral
// fallback palette, since colour choice is cosmetic.
package palette

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/printshop-tools/kdpcover/internal/images"
	"github.com/printshop-tools/kdpcover/internal/models"
)

const (
	// FallbackColor is returned as the dominant colour when sampling fails
	FallbackColor = "#333333"

	// DefaultTimeout bounds image loading for a single extraction
	DefaultTimeout = 5 * time.Second

	// MaxColors is the palette length
	MaxColors = 6

	sampleStride   = 4
	alphaThreshold = 128
	quantizeMask   = 0xf0
)

// ImageLoader is satisfied by *images.Loader
type ImageLoader interface {
	Load(ctx context.Context, source string) (image.Image, error)
}

// Extractor builds palettes from image sources
type Extractor struct {
	loader  ImageLoader
	timeout time.Duration
}

// NewExtractor creates an extractor; timeout <= 0 uses DefaultTimeout
func NewExtractor(loader ImageLoader, timeout time.Duration) *Extractor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Extractor{loader: loader, timeout: timeout}
}

// Fallback returns the neutral palette
func Fallback() models.ExtractedPalette {
	return models.ExtractedPalette{Colors: []string{}, DominantColor: FallbackColor}
}

// Extract loads source and samples it. The call returns within the
// extractor timeout even if the loader ignores cancellation.
func (e *Extractor) Extract(ctx context.Context, source string) models.ExtractedPalette {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	type loaded struct {
		img image.Image
		err error
	}
	done := make(chan loaded, 1)
	go func() {
		img, err := e.loader.Load(ctx, source)
		done <- loaded{img: img, err: err}
	}()

	select {
	case <-ctx.Done():
		slog.Warn("Color extraction timed out, using fallback", "source", images.DisplaySource(source), "err", ctx.Err())
		return Fallback()
	case res := <-done:
		if res.err != nil {
			slog.Warn("Color extraction failed, using fallback", "source", images.DisplaySource(source), "err", res.err)
			return Fallback()
		}
		return ExtractImage(res.img)
	}
}

// ExtractImage samples an already decoded image
func ExtractImage(img image.Image) (p models.ExtractedPalette) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("Color sampling panicked, using fallback", "panic", r)
			p = Fallback()
		}
	}()

	if img == nil {
		return Fallback()
	}

	counts := make(map[string]int)
	b := img.Bounds()
	w := b.Dx()
	total := w * b.Dy()

	// every 4th pixel in raster order
	for i := 0; i < total; i += sampleStride {
		x := b.Min.X + i%w
		y := b.Min.Y + i/w
		c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
		if c.A < alphaThreshold {
			continue
		}
		counts[quantize(c.R, c.G, c.B)]++
	}

	if len(counts) == 0 {
		return Fallback()
	}

	colors := rank(counts)
	if len(colors) > MaxColors {
		colors = colors[:MaxColors]
	}
	return models.ExtractedPalette{Colors: colors, DominantColor: colors[0]}
}

func quantize(r, g, b uint8) string {
	return fmt.Sprintf("#%02x%02x%02x", r&quantizeMask, g&quantizeMask, b&quantizeMask)
}

// rank orders colours by frequency, breaking ties by hex value
func rank(counts map[string]int) []string {
	colors := make([]string, 0, len(counts))
	for c := range counts {
		colors = append(colors, c)
	}
	sort.Slice(colors, func(i, j int) bool {
		if counts[colors[i]] != counts[colors[j]] {
			return counts[colors[i]] > counts[colors[j]]
		}
		return colors[i] < colors[j]
	})
	return colors
}

// ParseHex parses "#rgb" or "#rrggbb" (the leading # is optional)
func ParseHex(s string) (color.NRGBA, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return color.NRGBA{}, fmt.Errorf("invalid hex color %q", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid hex color %q: %w", s, err)
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}

// Hex formats a colour as "#rrggbb"
func Hex(c color.Color) string {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return fmt.Sprintf("#%02x%02x%02x", n.R, n.G, n.B)
}

// Luminance returns relative luminance in [0,1]
func Luminance(c color.NRGBA) float64 {
	return (0.299*float64(c.R) + 0.587*float64(c.G) + 0.114*float64(c.B)) / 255
}
