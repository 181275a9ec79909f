// Package dimensions computes KDP paperback cover geometry.
//
// Bleed is applied as 0.125" on every outer edge of the wrap, so each axis of
// the full wrap grows by 0.25" when bleed is enabled. The spine sits between
// the two covers and never receives bleed of its own.
package dimensions

import (
	"math"
	"strconv"
	"strings"

	"github.com/printshop-tools/kdpcover/internal/models"
)

const (
	// DPI is the fixed print resolution for every pixel measurement
	DPI = 300

	// BleedPerEdgeIn is added to each outer trim edge when bleed is on
	BleedPerEdgeIn = 0.125

	// MinPageCount is KDP's paperback floor
	MinPageCount = 24

	// DefaultMaxPageCount is KDP's paperback ceiling for white paper
	DefaultMaxPageCount = 828

	// DefaultTrimSize is used when a trim size cannot be resolved
	DefaultTrimSize = "6x9"
)

var catalog = []models.TrimSize{
	{Name: "5x8", WidthIn: 5, HeightIn: 8},
	{Name: "5.25x8", WidthIn: 5.25, HeightIn: 8},
	{Name: "5.5x8.5", WidthIn: 5.5, HeightIn: 8.5},
	{Name: "6x9", WidthIn: 6, HeightIn: 9, Popular: true},
	{Name: "7x10", WidthIn: 7, HeightIn: 10},
	{Name: "8x10", WidthIn: 8, HeightIn: 10},
	{Name: "8.5x11", WidthIn: 8.5, HeightIn: 11, Popular: true},
}

// Catalog returns a copy of the supported trim sizes
func Catalog() []models.TrimSize {
	out := make([]models.TrimSize, len(catalog))
	copy(out, catalog)
	return out
}

// LookupTrimSize finds a catalog entry by name
func LookupTrimSize(name string) (models.TrimSize, bool) {
	key := normalizeTrimName(name)
	for _, ts := range catalog {
		if ts.Name == key {
			return ts, true
		}
	}
	return models.TrimSize{}, false
}

// ParseTrimSize parses a raw "WxH" value such as `6 x 9`, `6×9in` or `8.5X11"`
func ParseTrimSize(raw string) (models.TrimSize, bool) {
	key := normalizeTrimName(raw)
	w, h, found := strings.Cut(key, "x")
	if !found {
		return models.TrimSize{}, false
	}
	width, err := strconv.ParseFloat(w, 64)
	if err != nil || width <= 0 || math.IsInf(width, 0) {
		return models.TrimSize{}, false
	}
	height, err := strconv.ParseFloat(h, 64)
	if err != nil || height <= 0 || math.IsInf(height, 0) {
		return models.TrimSize{}, false
	}
	return models.TrimSize{Name: key, WidthIn: width, HeightIn: height}, true
}

// ResolveTrimSize tries the catalog, then a raw parse, then falls back to 6x9
func ResolveTrimSize(name string) models.TrimSize {
	if ts, ok := LookupTrimSize(name); ok {
		return ts
	}
	if ts, ok := ParseTrimSize(name); ok {
		return ts
	}
	ts, _ := LookupTrimSize(DefaultTrimSize)
	return ts
}

func normalizeTrimName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "×", "x")
	s = strings.ReplaceAll(s, "\"", "")
	s = strings.ReplaceAll(s, "inches", "")
	s = strings.ReplaceAll(s, "in", "")
	s = strings.ReplaceAll(s, " ", "")
	return s
}

// Calculator holds the page bounds used for clamping. The zero value uses
// MinPageCount and DefaultMaxPageCount.
type Calculator struct {
	MinPages int
	MaxPages int
}

// New returns a Calculator with the given ceiling; values <= 0 keep the default
func New(maxPages int) *Calculator {
	return &Calculator{MinPages: MinPageCount, MaxPages: maxPages}
}

func (c *Calculator) bounds() (int, int) {
	lo, hi := MinPageCount, DefaultMaxPageCount
	if c != nil {
		if c.MinPages > 0 {
			lo = c.MinPages
		}
		if c.MaxPages > 0 {
			hi = c.MaxPages
		}
	}
	if hi < lo {
		hi = lo
	}
	return lo, hi
}

// ClampPageCount forces a page count into the configured bounds
func (c *Calculator) ClampPageCount(pages int) int {
	lo, hi := c.bounds()
	if pages < lo {
		return lo
	}
	if pages > hi {
		return hi
	}
	return pages
}

// Calculate derives the full set of cover measurements from a BookSpec
func (c *Calculator) Calculate(spec models.BookSpec) models.Dimensions {
	trim := ResolveTrimSize(spec.TrimSize)
	pages := c.ClampPageCount(spec.PageCount)

	paper := spec.PaperType
	switch paper {
	case models.PaperWhite, models.PaperCream, models.PaperColor:
	default:
		paper = models.PaperWhite
	}

	spine := SpineWidth(pages, paper)

	bleed := 0.0
	if spec.IncludeBleed {
		bleed = BleedPerEdgeIn
	}

	d := models.Dimensions{
		TrimWidthIn:      trim.WidthIn,
		TrimHeightIn:     trim.HeightIn,
		FrontWidthIn:     trim.WidthIn,
		FrontHeightIn:    trim.HeightIn,
		SpineWidthIn:     spine,
		FullWrapWidthIn:  trim.WidthIn*2 + spine + 2*bleed,
		FullWrapHeightIn: trim.HeightIn + 2*bleed,
		BleedIn:          bleed,
		PageCount:        pages,
		PaperType:        paper,
		DPI:              DPI,
	}

	d.FrontWidthPx = ToPixels(d.FrontWidthIn)
	d.FrontHeightPx = ToPixels(d.FrontHeightIn)
	d.SpineWidthPx = ToPixels(d.SpineWidthIn)
	d.FullWrapWidthPx = ToPixels(d.FullWrapWidthIn)
	d.FullWrapHeightPx = ToPixels(d.FullWrapHeightIn)
	d.BleedPx = ToPixels(d.BleedIn)

	return d
}

// Calculate uses the default page bounds
func Calculate(spec models.BookSpec) models.Dimensions {
	return (*Calculator)(nil).Calculate(spec)
}

// ToPixels converts inches to whole pixels at DPI
func ToPixels(inches float64) int {
	return int(math.Round(inches * DPI))
}
