package model

import (
	"strings"

	"github.com/coffersTech/emojisearch/internal/pkg/colorutil"
)

// MissingGroup is the group assigned to emojis without CLDR group data.
const MissingGroup = "Others"

// Swatch is one dominant color extracted from a style's image.
type Swatch struct {
	Hex         string        `json:"hex"`
	RGB         colorutil.RGB `json:"rgb"`
	HSL         [3]float64    `json:"hsl"`
	CIELAB      colorutil.Lab `json:"CIELAB"`
	Occurrences int           `json:"occurrences"`
}

// Style is one rendering of an emoji (default, skintone variants, flat, ...).
// ColorPalette is ordered by descending Occurrences.
type Style struct {
	ID           string   `json:"id"`
	Label        string   `json:"label"`
	URL          string   `json:"url"`
	Group        string   `json:"group"`
	IsSvg        bool     `json:"isSvg"`
	ColorPalette []Swatch `json:"colorPalette"`
	Height       *int     `json:"height"`
	Width        *int     `json:"width"`
	X            *int     `json:"x"`
	Y            *int     `json:"y"`
}

// DominantSwatch returns the most frequent color of the style.
func (s Style) DominantSwatch() (Swatch, bool) {
	if len(s.ColorPalette) == 0 {
		return Swatch{}, false
	}
	return s.ColorPalette[0], true
}

// Emoji is a single catalog record.
type Emoji struct {
	ID            string           `json:"id"`
	CLDR          string           `json:"cldr"`
	Group         string           `json:"group"`
	Keywords      []string         `json:"keywords"`
	TTS           string           `json:"tts"`
	Family        string           `json:"family"`
	FamilyVersion string           `json:"familyVersion"`
	Glyph         string           `json:"glyph"`
	Styles        map[string]Style `json:"styles"`
	DefaultStyle  string           `json:"defaultStyle"`
}

// Default returns the emoji's default style.
func (e Emoji) Default() (Style, bool) {
	s, ok := e.Styles[e.DefaultStyle]
	return s, ok
}

// NormalizeCLDR folds a CLDR name into the form used as a search index key:
// dashes and spaces become underscores, "()" is dropped, letters are lowercased.
func NormalizeCLDR(cldr string) string {
	r := strings.NewReplacer("-", "_", " ", "_", "()", "")
	return strings.ToLower(r.Replace(cldr))
}
