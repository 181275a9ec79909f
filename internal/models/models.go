package models

import "time"

// PaperType is the interior paper stock; it drives spine thickness
type PaperType string

const (
	PaperWhite PaperType = "white"
	PaperCream PaperType = "cream"
	PaperColor PaperType = "color"
)

// TrimSize is a catalog page size in inches
type TrimSize struct {
	Name     string  `json:"name" yaml:"name"`
	WidthIn  float64 `json:"widthIn" yaml:"width_in"`
	HeightIn float64 `json:"heightIn" yaml:"height_in"`
	Popular  bool    `json:"popular" yaml:"popular"`
}

// BookSpec is the user-configured set of print parameters
type BookSpec struct {
	TrimSize     string    `json:"trimSize"`
	PageCount    int       `json:"pageCount"`
	PaperType    PaperType `json:"paperType"`
	IncludeBleed bool      `json:"includeBleed"`
}

// Dimensions is derived from a BookSpec and never edited directly.
// The JSON shape is stored verbatim in history records.
type Dimensions struct {
	TrimWidthIn      float64   `json:"trimWidthIn" yaml:"trim_width_in"`
	TrimHeightIn     float64   `json:"trimHeightIn" yaml:"trim_height_in"`
	FrontWidthIn     float64   `json:"frontWidthIn" yaml:"front_width_in"`
	FrontHeightIn    float64   `json:"frontHeightIn" yaml:"front_height_in"`
	SpineWidthIn     float64   `json:"spineWidthIn" yaml:"spine_width_in"`
	FullWrapWidthIn  float64   `json:"fullWrapWidthIn" yaml:"full_wrap_width_in"`
	FullWrapHeightIn float64   `json:"fullWrapHeightIn" yaml:"full_wrap_height_in"`
	BleedIn          float64   `json:"bleedIn" yaml:"bleed_in"`
	PageCount        int       `json:"pageCount" yaml:"page_count"`
	PaperType        PaperType `json:"paperType" yaml:"paper_type"`
	DPI              int       `json:"dpi" yaml:"dpi"`

	FrontWidthPx     int `json:"frontWidthPx" yaml:"front_width_px"`
	FrontHeightPx    int `json:"frontHeightPx" yaml:"front_height_px"`
	SpineWidthPx     int `json:"spineWidthPx" yaml:"spine_width_px"`
	FullWrapWidthPx  int `json:"fullWrapWidthPx" yaml:"full_wrap_width_px"`
	FullWrapHeightPx int `json:"fullWrapHeightPx" yaml:"full_wrap_height_px"`
	BleedPx          int `json:"bleedPx" yaml:"bleed_px"`
}

// AssetKind identifies which part of the cover an asset belongs to
type AssetKind string

const (
	AssetFront    AssetKind = "front"
	AssetBack     AssetKind = "back"
	AssetInterior AssetKind = "interior"
)

// CoverAsset is an opaque reference to a generated image: a URL, a data URI,
// a blob id or a local path
type CoverAsset struct {
	Source string    `json:"source"`
	Kind   AssetKind `json:"kind"`
}

// ExtractedPalette is the sampled colour summary of a cover image
type ExtractedPalette struct {
	Colors        []string `json:"colors" yaml:"colors"`
	DominantColor string   `json:"dominantColor" yaml:"dominant_color"`
}

// SpineConfig holds the user-editable spine text and colour
type SpineConfig struct {
	Text  string `json:"text,omitempty"`
	Color string `json:"color"`
}

// HistoryRecord is one saved generation
type HistoryRecord struct {
	ID            string      `json:"id"`
	ImageURL      string      `json:"imageUrl,omitempty"`
	FullCoverURL  string      `json:"fullCoverUrl,omitempty"`
	FrontCoverURL string      `json:"frontCoverUrl,omitempty"`
	Prompt        string      `json:"prompt"`
	Style         string      `json:"style,omitempty"`
	TrimSize      string      `json:"trimSize"`
	PageCount     int         `json:"pageCount"`
	PaperColor    PaperType   `json:"paperColor"`
	BookType      string      `json:"bookType,omitempty"`
	SpineText     string      `json:"spineText,omitempty"`
	SpineColor    string      `json:"spineColor,omitempty"`
	Colors        []string    `json:"colors"`
	Dimensions    *Dimensions `json:"dimensions,omitempty"`
	CreatedAt     time.Time   `json:"createdAt"`
}
