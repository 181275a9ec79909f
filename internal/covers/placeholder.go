package covers

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"github.com/printshop-tools/kdpcover/internal/compositor"
	"github.com/printshop-tools/kdpcover/internal/palette"
)

const placeholderWarning = "cover assets could not be composited; showing a placeholder layout"

// Placeholder renders the wrap layout without fetching anything: a flat front
// in the spine color, the spine and guides as requested.
func Placeholder(ctx context.Context, p compositor.Params) (*compositor.Result, error) {
	d := p.Dimensions
	fill, err := palette.ParseHex(p.Spine.Color)
	if err != nil {
		fill, _ = palette.ParseHex(palette.FallbackColor)
	}

	front := image.NewNRGBA(image.Rect(0, 0, 2, 3))
	for i := 0; i < len(front.Pix); i += 4 {
		front.Pix[i], front.Pix[i+1], front.Pix[i+2], front.Pix[i+3] = fill.R, fill.G, fill.B, 0xff
	}

	surface := compositor.NewRasterSurface(d.FullWrapWidthPx, d.FullWrapHeightPx, color.White)
	p.Interior = nil
	res, err := compositor.Render(ctx, surface, front, nil, nil, p)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, surface.NRGBA()); err != nil {
		return nil, fmt.Errorf("failed to encode placeholder: %w", err)
	}
	res.PNG = buf.Bytes()
	res.Image = surface.NRGBA()
	res.Warnings = append(res.Warnings, placeholderWarning)
	return res, nil
}
