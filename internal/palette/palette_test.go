package palette

import (
	"context"
	"errors"
	"image"
	"image/color"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/printshop-tools/kdpcover/internal/images"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLoader struct {
	img   image.Image
	err   error
	block bool
}

func (s *stubLoader) Load(ctx context.Context, source string) (image.Image, error) {
	if s.block {
		// ignores ctx on purpose
		time.Sleep(time.Second)
	}
	return s.img, s.err
}

func solid(w, h int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestExtractImage(t *testing.T) {
	red := color.NRGBA{R: 255, A: 255}
	blue := color.NRGBA{B: 255, A: 255}

	split := solid(8, 8, red)
	for y := 6; y < 8; y++ {
		for x := 0; x < 8; x++ {
			split.Set(x, y, blue)
		}
	}

	translucent := solid(8, 8, color.NRGBA{R: 255, A: 100})

	many := image.NewNRGBA(image.Rect(0, 0, 40, 1))
	for x := 0; x < 40; x++ {
		many.Set(x, 0, color.NRGBA{R: uint8(x * 6), A: 255})
	}

	tests := []struct {
		name     string
		img      image.Image
		dominant string
		colors   []string
	}{
		{
			name:     "solid red",
			img:      solid(8, 8, red),
			dominant: "#f00000",
			colors:   []string{"#f00000"},
		},
		{
			name:     "mostly red",
			img:      split,
			dominant: "#f00000",
			colors:   []string{"#f00000", "#0000f0"},
		},
		{
			name:     "quantizes down to multiples of 16",
			img:      solid(4, 4, color.NRGBA{R: 17, G: 33, B: 250, A: 255}),
			dominant: "#1020f0",
			colors:   []string{"#1020f0"},
		},
		{
			name:     "translucent pixels skipped",
			img:      translucent,
			dominant: FallbackColor,
			colors:   []string{},
		},
		{
			name:     "nil image",
			img:      nil,
			dominant: FallbackColor,
			colors:   []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ExtractImage(tt.img)
			assert.Equal(t, tt.dominant, p.DominantColor)
			assert.Equal(t, tt.colors, p.Colors)
		})
	}

	t.Run("caps palette length", func(t *testing.T) {
		p := ExtractImage(many)
		assert.Len(t, p.Colors, MaxColors)
		assert.Equal(t, p.Colors[0], p.DominantColor)
	})
}

func TestExtractFallsBackOnLoadError(t *testing.T) {
	e := NewExtractor(&stubLoader{err: errors.New("boom")}, time.Second)
	p := e.Extract(context.Background(), "https://example.invalid/cover.png")
	assert.Equal(t, Fallback(), p)
}

func TestExtractTimesOutWithFallback(t *testing.T) {
	e := NewExtractor(&stubLoader{block: true, img: solid(2, 2, color.White)}, 50*time.Millisecond)

	start := time.Now()
	p := e.Extract(context.Background(), "https://example.invalid/cover.png")

	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, []string{}, p.Colors)
	assert.Equal(t, "#333333", p.DominantColor)
}

func TestExtractUnreachableURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL + "/gone.png"
	srv.Close()

	e := NewExtractor(images.NewLoader("", nil), 2*time.Second)
	p := e.Extract(context.Background(), url)

	require.NotNil(t, p.Colors)
	assert.Empty(t, p.Colors)
	assert.Equal(t, FallbackColor, p.DominantColor)
}

func TestExtractSuccess(t *testing.T) {
	e := NewExtractor(&stubLoader{img: solid(4, 4, color.NRGBA{G: 200, A: 255})}, time.Second)
	p := e.Extract(context.Background(), "blob:x")
	assert.Equal(t, "#00c000", p.DominantColor)
}

func TestParseHex(t *testing.T) {
	tests := []struct {
		in      string
		want    color.NRGBA
		hex     string
		wantErr bool
	}{
		{in: "#112233", want: color.NRGBA{R: 0x11, G: 0x22, B: 0x33, A: 0xff}, hex: "#112233"},
		{in: "abc", want: color.NRGBA{R: 0xaa, G: 0xbb, B: 0xcc, A: 0xff}, hex: "#aabbcc"},
		{in: "#12345", wantErr: true},
		{in: "#zzzzzz", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseHex(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.hex, Hex(got))
		})
	}
}
