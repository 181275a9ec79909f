package dimensions

import (
	"math"
	"testing"

	"github.com/printshop-tools/kdpcover/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateIdempotent(t *testing.T) {
	spec := models.BookSpec{TrimSize: "6x9", PageCount: 212, PaperType: models.PaperCream, IncludeBleed: true}
	a := Calculate(spec)
	b := Calculate(spec)
	assert.Equal(t, a, b)
}

func TestCalculateWrapWidthInvariant(t *testing.T) {
	for _, ts := range Catalog() {
		for _, paper := range []models.PaperType{models.PaperWhite, models.PaperCream, models.PaperColor} {
			for _, bleed := range []bool{true, false} {
				for _, pages := range []int{24, 100, 333, 828} {
					d := Calculate(models.BookSpec{TrimSize: ts.Name, PageCount: pages, PaperType: paper, IncludeBleed: bleed})

					allowance := 0.0
					if bleed {
						allowance = 0.25
					}
					assert.InDelta(t, 2*d.FrontWidthIn+d.SpineWidthIn+allowance, d.FullWrapWidthIn, 1e-9,
						"trim=%s paper=%s pages=%d bleed=%v", ts.Name, paper, pages, bleed)
					assert.InDelta(t, d.FrontHeightIn+allowance, d.FullWrapHeightIn, 1e-9)
					assert.Equal(t, d.TrimWidthIn, d.FrontWidthIn)
				}
			}
		}
	}
}

func TestSpineWidthMonotonic(t *testing.T) {
	for _, paper := range []models.PaperType{models.PaperWhite, models.PaperCream, models.PaperColor} {
		prev := -1.0
		for pages := MinPageCount; pages <= DefaultMaxPageCount; pages++ {
			d := Calculate(models.BookSpec{TrimSize: "6x9", PageCount: pages, PaperType: paper})
			if d.SpineWidthIn <= prev {
				t.Fatalf("spine width did not increase for %s at %d pages: %f <= %f", paper, pages, d.SpineWidthIn, prev)
			}
			prev = d.SpineWidthIn
		}
	}
}

func TestCalculateClampsPageCount(t *testing.T) {
	tests := []struct {
		name     string
		calc     *Calculator
		pages    int
		expected int
	}{
		{name: "below floor", pages: 5, expected: MinPageCount},
		{name: "negative", pages: -40, expected: MinPageCount},
		{name: "above ceiling", pages: 10000, expected: DefaultMaxPageCount},
		{name: "in range", pages: 150, expected: 150},
		{name: "custom ceiling", calc: New(300), pages: 10000, expected: 300},
		{name: "custom ceiling keeps floor", calc: New(300), pages: 1, expected: MinPageCount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := models.BookSpec{TrimSize: "6x9", PageCount: tt.pages, PaperType: models.PaperWhite}
			got := tt.calc.Calculate(spec)

			spec.PageCount = tt.expected
			want := tt.calc.Calculate(spec)

			assert.Equal(t, tt.expected, got.PageCount)
			assert.Equal(t, want, got)
		})
	}
}

func TestSpineTextViableBoundary(t *testing.T) {
	assert.True(t, SpineTextViable(0.25))
	assert.False(t, SpineTextViable(0.249))
	assert.True(t, SpineTextViable(1))
	assert.False(t, SpineTextViable(0))
}

func TestCalculateWorkedExample(t *testing.T) {
	d := Calculate(models.BookSpec{TrimSize: "6x9", PageCount: 300, PaperType: models.PaperWhite, IncludeBleed: true})

	assert.InDelta(t, 0.6756, d.SpineWidthIn, 1e-9)
	assert.Equal(t, int(math.Round(300*0.002252*300)), d.SpineWidthPx)
	assert.Equal(t, 203, d.SpineWidthPx)
	assert.Equal(t, int(math.Round((6*2+0.6756+0.25)*300)), d.FullWrapWidthPx)
	assert.Equal(t, 2775, d.FullWrapHeightPx)
	assert.Equal(t, 1800, d.FrontWidthPx)
	assert.Equal(t, 2700, d.FrontHeightPx)
	assert.Equal(t, 38, d.BleedPx)
	assert.Equal(t, DPI, d.DPI)
}

func TestCalculateCreamScenario(t *testing.T) {
	d := Calculate(models.BookSpec{TrimSize: "6x9", PageCount: 120, PaperType: models.PaperCream, IncludeBleed: true})

	assert.InDelta(t, 0.30, d.SpineWidthIn, 1e-9)
	assert.True(t, SpineTextViable(d.SpineWidthIn))
	assert.Equal(t, 90, d.SpineWidthPx)
}

func TestCalculateWithoutBleed(t *testing.T) {
	d := Calculate(models.BookSpec{TrimSize: "8.5x11", PageCount: 100, PaperType: models.PaperColor})

	assert.Zero(t, d.BleedIn)
	assert.Zero(t, d.BleedPx)
	assert.Equal(t, 8.5, d.FrontWidthIn)
	assert.Equal(t, 11.0, d.FullWrapHeightIn)
	assert.Equal(t, 3300, d.FullWrapHeightPx)
}

func TestCalculateUnknownPaperFallsBackToWhite(t *testing.T) {
	d := Calculate(models.BookSpec{TrimSize: "6x9", PageCount: 100, PaperType: "glossy"})
	assert.Equal(t, models.PaperWhite, d.PaperType)
	assert.InDelta(t, 100*WhitePaperMultiplier, d.SpineWidthIn, 1e-12)
}

func TestResolveTrimSize(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		width  float64
		height float64
	}{
		{name: "catalog entry", input: "5.5x8.5", width: 5.5, height: 8.5},
		{name: "catalog with spaces", input: " 6 x 9 ", width: 6, height: 9},
		{name: "unicode times", input: "7×10", width: 7, height: 10},
		{name: "inch suffix", input: "8.5X11in", width: 8.5, height: 11},
		{name: "off catalog", input: "4.25x6.87", width: 4.25, height: 6.87},
		{name: "garbage", input: "paperback", width: 6, height: 9},
		{name: "empty", input: "", width: 6, height: 9},
		{name: "zero width", input: "0x9", width: 6, height: 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := ResolveTrimSize(tt.input)
			assert.Equal(t, tt.width, ts.WidthIn)
			assert.Equal(t, tt.height, ts.HeightIn)
		})
	}
}

func TestCatalogIsCopy(t *testing.T) {
	c := Catalog()
	require.NotEmpty(t, c)
	c[0].WidthIn = 99

	ts, ok := LookupTrimSize(c[0].Name)
	require.True(t, ok)
	assert.NotEqual(t, 99.0, ts.WidthIn)
}
