package compositor

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// Surface is the minimal drawing API the assembly algorithm needs. Any 2D
// raster backend can implement it.
type Surface interface {
	Bounds() image.Rectangle
	FillRect(r image.Rectangle, c color.Color)
	// DrawImageScaled scales src to cover r, cropping overflow around the centre
	DrawImageScaled(r image.Rectangle, src image.Image)
	// DrawText draws a single centred line inside r
	DrawText(r image.Rectangle, text string, sizePx float64, bold bool, c color.Color) error
	// DrawRotatedText draws a single line centred in r, rotated 90° clockwise
	// so it reads top to bottom
	DrawRotatedText(r image.Rectangle, text string, sizePx float64, c color.Color) error
	// StrokeRect outlines r; dash <= 0 draws a solid line
	StrokeRect(r image.Rectangle, width, dash int, c color.Color)
	// MeasureText returns the advance width of text in pixels
	MeasureText(text string, sizePx float64, bold bool) (int, error)
	Image() image.Image
}

// RasterSurface draws onto an in-memory NRGBA image
type RasterSurface struct {
	img *image.NRGBA
}

// NewRasterSurface allocates a w x h surface filled with bg
func NewRasterSurface(w, h int, bg color.Color) *RasterSurface {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
	return &RasterSurface{img: img}
}

func (s *RasterSurface) Bounds() image.Rectangle {
	return s.img.Bounds()
}

func (s *RasterSurface) Image() image.Image {
	return s.img
}

// NRGBA exposes the backing image
func (s *RasterSurface) NRGBA() *image.NRGBA {
	return s.img
}

func (s *RasterSurface) FillRect(r image.Rectangle, c color.Color) {
	draw.Draw(s.img, r.Intersect(s.img.Bounds()), image.NewUniform(c), image.Point{}, draw.Over)
}

func (s *RasterSurface) DrawImageScaled(r image.Rectangle, src image.Image) {
	if r.Empty() || src == nil || src.Bounds().Empty() {
		return
	}
	filled := imaging.Fill(src, r.Dx(), r.Dy(), imaging.Center, imaging.Linear)
	draw.Draw(s.img, r, filled, image.Point{}, draw.Src)
}

func (s *RasterSurface) MeasureText(text string, sizePx float64, bold bool) (int, error) {
	face, err := newFace(bold, sizePx)
	if err != nil {
		return 0, err
	}
	defer face.Close()
	return font.MeasureString(face, text).Ceil(), nil
}

// renderLine draws text onto a transparent image sized to fit it exactly
func renderLine(text string, sizePx float64, bold bool, c color.Color) (*image.NRGBA, error) {
	face, err := newFace(bold, sizePx)
	if err != nil {
		return nil, err
	}
	defer face.Close()

	m := face.Metrics()
	w := font.MeasureString(face, text).Ceil()
	h := (m.Ascent + m.Descent).Ceil()
	if w <= 0 || h <= 0 {
		return image.NewNRGBA(image.Rect(0, 0, 0, 0)), nil
	}

	line := image.NewNRGBA(image.Rect(0, 0, w, h))
	d := &font.Drawer{
		Dst:  line,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.Point26_6{X: 0, Y: m.Ascent},
	}
	d.DrawString(text)
	return line, nil
}

func (s *RasterSurface) DrawText(r image.Rectangle, text string, sizePx float64, bold bool, c color.Color) error {
	line, err := renderLine(text, sizePx, bold, c)
	if err != nil {
		return err
	}
	s.overlayCentered(r, line)
	return nil
}

func (s *RasterSurface) DrawRotatedText(r image.Rectangle, text string, sizePx float64, c color.Color) error {
	line, err := renderLine(text, sizePx, true, c)
	if err != nil {
		return err
	}
	// Rotate270 turns counter-clockwise by 270°, i.e. clockwise by 90°
	s.overlayCentered(r, imaging.Rotate270(line))
	return nil
}

// overlayCentered composites src centred in r, clipped to r
func (s *RasterSurface) overlayCentered(r image.Rectangle, src image.Image) {
	b := src.Bounds()
	if b.Empty() {
		return
	}
	x := r.Min.X + (r.Dx()-b.Dx())/2
	y := r.Min.Y + (r.Dy()-b.Dy())/2
	dst := image.Rect(x, y, x+b.Dx(), y+b.Dy())
	clipped := dst.Intersect(r).Intersect(s.img.Bounds())
	if clipped.Empty() {
		return
	}
	draw.Draw(s.img, clipped, src, b.Min.Add(clipped.Min.Sub(dst.Min)), draw.Over)
}

func (s *RasterSurface) StrokeRect(r image.Rectangle, width, dash int, c color.Color) {
	if width <= 0 || r.Empty() {
		return
	}
	// top and bottom edges
	s.hline(r.Min.X, r.Max.X, r.Min.Y, width, dash, c)
	s.hline(r.Min.X, r.Max.X, r.Max.Y-width, width, dash, c)
	// left and right edges
	s.vline(r.Min.Y, r.Max.Y, r.Min.X, width, dash, c)
	s.vline(r.Min.Y, r.Max.Y, r.Max.X-width, width, dash, c)
}

func (s *RasterSurface) hline(x0, x1, y, width, dash int, c color.Color) {
	for x := x0; x < x1; x += segmentStep(dash, x1-x0) {
		end := segmentEnd(x, x1, dash)
		s.FillRect(image.Rect(x, y, end, y+width), c)
	}
}

func (s *RasterSurface) vline(y0, y1, x, width, dash int, c color.Color) {
	for y := y0; y < y1; y += segmentStep(dash, y1-y0) {
		end := segmentEnd(y, y1, dash)
		s.FillRect(image.Rect(x, y, x+width, end), c)
	}
}

func segmentStep(dash, length int) int {
	if dash <= 0 {
		return length
	}
	return dash * 2
}

func segmentEnd(start, limit, dash int) int {
	if dash <= 0 || start+dash > limit {
		return limit
	}
	return start + dash
}
