package providers

import (
	"bytes"
	"context"
	"fmt"
	"hash/fnv"
	"image"
	"image/color"
	"image/png"

	"github.com/vincent-petithory/dataurl"
)

const placeholderMaxSide = 512

// Placeholder is the last resort generator. It never calls out and always
// returns a PNG data URI: a vertical gradient seeded by the prompt, with the
// requested aspect ratio.
type Placeholder struct{}

func (Placeholder) GenerateImage(ctx context.Context, req ImageRequest) (ImageResult, error) {
	if err := ctx.Err(); err != nil {
		return ImageResult{}, err
	}

	w, h := placeholderSize(req.Width, req.Height)
	top, bottom := placeholderColors(req.Prompt + "|" + req.Style)

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		t := float64(y) / float64(max(1, h-1))
		c := color.NRGBA{
			R: lerp(top.R, bottom.R, t),
			G: lerp(top.G, bottom.G, t),
			B: lerp(top.B, bottom.B, t),
			A: 0xff,
		}
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for x := 0; x < w; x++ {
			copy(row[x*4:], []byte{c.R, c.G, c.B, c.A})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return ImageResult{}, fmt.Errorf("failed to encode placeholder: %w", err)
	}
	return ImageResult{
		URL:   dataurl.New(buf.Bytes(), "image/png").String(),
		Model: "placeholder",
	}, nil
}

func placeholderSize(w, h int) (int, int) {
	if w <= 0 || h <= 0 {
		w, h = 2, 3
	}
	if w >= h {
		return placeholderMaxSide, max(1, placeholderMaxSide*h/w)
	}
	return max(1, placeholderMaxSide*w/h), placeholderMaxSide
}

func placeholderColors(seed string) (color.NRGBA, color.NRGBA) {
	f := fnv.New64a()
	_, _ = f.Write([]byte(seed))
	sum := f.Sum64()
	top := color.NRGBA{R: byte(sum) | 0x40, G: byte(sum >> 8), B: byte(sum>>16) | 0x40, A: 0xff}
	bottom := color.NRGBA{R: byte(sum>>24) / 4, G: byte(sum>>32) / 4, B: byte(sum>>40) / 4, A: 0xff}
	return top, bottom
}

func lerp(a, b uint8, t float64) uint8 {
	return uint8(float64(a) + (float64(b)-float64(a))*t + 0.5)
}
