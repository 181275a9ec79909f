package compositor

import (
	"image"

	"github.com/printshop-tools/kdpcover/internal/models"
)

// Regions are the three horizontal bands of a full wrap, left to right
type Regions struct {
	Back  image.Rectangle `json:"back"`
	Spine image.Rectangle `json:"spine"`
	Front image.Rectangle `json:"front"`
}

// Guide is one preview-only outline
type Guide struct {
	Rect   image.Rectangle `json:"rect"`
	Width  int             `json:"width"`
	Dashed bool            `json:"dashed"`
}

// ComputeRegions lays out the wrap from the pixel dimensions alone. The back
// band carries the left outer bleed; the front takes whatever width remains
// so the three bands always tile the canvas.
func ComputeRegions(d models.Dimensions) Regions {
	h := d.FullWrapHeightPx
	backEnd := d.FrontWidthPx + d.BleedPx
	spineEnd := backEnd + d.SpineWidthPx
	return Regions{
		Back:  image.Rect(0, 0, backEnd, h),
		Spine: image.Rect(backEnd, 0, spineEnd, h),
		Front: image.Rect(spineEnd, 0, d.FullWrapWidthPx, h),
	}
}

const (
	guideDash = 24
)

// guideWidth scales stroke width with the canvas so guides stay visible
func guideWidth(d models.Dimensions) int {
	w := d.FullWrapHeightPx / 900
	if w < 1 {
		w = 1
	}
	return w
}

// ComputeGuides returns trim outlines for back and front (inset by the bleed)
// and a solid outline around the spine
func ComputeGuides(d models.Dimensions, reg Regions) []Guide {
	w := guideWidth(d)
	b := d.BleedPx

	back := image.Rect(reg.Back.Min.X+b, reg.Back.Min.Y+b, reg.Back.Max.X, reg.Back.Max.Y-b)
	front := image.Rect(reg.Front.Min.X, reg.Front.Min.Y+b, reg.Front.Max.X-b, reg.Front.Max.Y-b)

	return []Guide{
		{Rect: back, Width: w, Dashed: true},
		{Rect: reg.Spine, Width: w},
		{Rect: front, Width: w, Dashed: true},
	}
}

// OnStroke reports whether p lies on the stroked outline of g
func (g Guide) OnStroke(p image.Point) bool {
	if !p.In(g.Rect) {
		return false
	}
	inner := g.Rect.Inset(g.Width)
	return !p.In(inner)
}

// thumbnailSlots places up to n interior previews in a three-column grid
// anchored to the bottom of the back cover's safe area
func thumbnailSlots(back image.Rectangle, bleedPx, n int) []image.Rectangle {
	if n <= 0 {
		return nil
	}
	const cols = 3
	margin := bleedPx + back.Dx()/16
	gap := back.Dx() / 40
	if gap < 1 {
		gap = 1
	}

	cellW := (back.Dx() - 2*margin - (cols-1)*gap) / cols
	if cellW <= 0 {
		return nil
	}
	cellH := cellW * 4 / 3

	rows := (n + cols - 1) / cols
	top := back.Max.Y - margin - rows*cellH - (rows-1)*gap
	if top < back.Min.Y+margin {
		return nil
	}

	slots := make([]image.Rectangle, 0, n)
	for i := 0; i < n; i++ {
		row, col := i/cols, i%cols
		x := back.Min.X + margin + col*(cellW+gap)
		y := top + row*(cellH+gap)
		slots = append(slots, image.Rect(x, y, x+cellW, y+cellH))
	}
	return slots
}
