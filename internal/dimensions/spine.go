package dimensions

import "github.com/printshop-tools/kdpcover/internal/models"

// Spine thickness per page, in inches, from KDP's published paperback formula
const (
	WhitePaperMultiplier = 0.002252
	CreamPaperMultiplier = 0.0025
	ColorPaperMultiplier = 0.002347
)

// MinSpineTextWidthIn is the narrowest spine KDP allows text on
const MinSpineTextWidthIn = 0.25

// Multiplier returns the per-page spine thickness for a paper type.
// Unknown paper types are treated as white.
func Multiplier(paper models.PaperType) float64 {
	switch paper {
	case models.PaperCream:
		return CreamPaperMultiplier
	case models.PaperColor:
		return ColorPaperMultiplier
	default:
		return WhitePaperMultiplier
	}
}

// SpineWidth returns the spine thickness in inches for an already clamped page count
func SpineWidth(pageCount int, paper models.PaperType) float64 {
	return float64(pageCount) * Multiplier(paper)
}

// SpineTextViable reports whether a spine is wide enough to carry text
func SpineTextViable(spineWidthIn float64) bool {
	return spineWidthIn >= MinSpineTextWidthIn
}
