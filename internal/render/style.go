// Package render turns feature collections into map view descriptions and raster previews.
package render

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"github.com/woozymasta/geoview/internal/geo"
)

// Defaults used when a style leaves an option unset.
const (
	DefaultColor         = "#3388ff"
	DefaultStrokeOpacity = 1.0
	DefaultFillOpacity   = 0.2
)

// formatDefaults holds the stroke weight and zoom applied per dataset format.
var formatDefaults = map[geo.Format]struct {
	weight float64
	zoom   int
}{
	geo.FormatShapefile: {weight: 1, zoom: 10},
	geo.FormatGeoJSON:   {weight: 2, zoom: 6},
}

// Style is the rendering configuration. Unset pointer fields fall back to
// defaults, so styles from several config levels can be merged.
type Style struct {
	StrokeWeight  *float64 `yaml:"stroke_weight,omitempty"  json:"stroke_weight,omitempty"`
	StrokeOpacity *float64 `yaml:"stroke_opacity,omitempty" json:"stroke_opacity,omitempty"`
	StrokeColor   string   `yaml:"stroke_color,omitempty"   json:"stroke_color,omitempty"`
	FillColor     string   `yaml:"fill_color,omitempty"     json:"fill_color,omitempty"`
	FillOpacity   *float64 `yaml:"fill_opacity,omitempty"   json:"fill_opacity,omitempty"`
	LabelTemplate string   `yaml:"label,omitempty"          json:"label,omitempty"`
	InitialZoom   *int     `yaml:"zoom,omitempty"           json:"zoom,omitempty"`
	ScrollLocked  *bool    `yaml:"scroll_locked,omitempty"  json:"scroll_locked,omitempty"`

	// Label overrides LabelTemplate when set.
	Label LabelFunc `yaml:"-" json:"-"`
}

// PathStyle is a fully resolved style applied uniformly to every feature.
type PathStyle struct {
	Weight      float64 `json:"weight"`
	Opacity     float64 `json:"opacity"`
	Color       string  `json:"color"`
	FillColor   string  `json:"fillColor"`
	FillOpacity float64 `json:"fillOpacity"`
}

// Merge returns s with every option set in over replacing the one in s.
func (s Style) Merge(over Style) Style {
	if over.StrokeWeight != nil {
		s.StrokeWeight = over.StrokeWeight
	}
	if over.StrokeOpacity != nil {
		s.StrokeOpacity = over.StrokeOpacity
	}
	if over.StrokeColor != "" {
		s.StrokeColor = over.StrokeColor
	}
	if over.FillColor != "" {
		s.FillColor = over.FillColor
	}
	if over.FillOpacity != nil {
		s.FillOpacity = over.FillOpacity
	}
	if over.LabelTemplate != "" {
		s.LabelTemplate = over.LabelTemplate
	}
	if over.InitialZoom != nil {
		s.InitialZoom = over.InitialZoom
	}
	if over.ScrollLocked != nil {
		s.ScrollLocked = over.ScrollLocked
	}
	if over.Label != nil {
		s.Label = over.Label
	}
	return s
}

// IsScrollLocked reports whether scroll-wheel navigation is disabled.
func (s Style) IsScrollLocked() bool { return s.ScrollLocked != nil && *s.ScrollLocked }

// Zoom returns the initial zoom for a dataset format.
func (s Style) Zoom(format geo.Format) int {
	if s.InitialZoom != nil {
		return *s.InitialZoom
	}
	return formatDefaults[format].zoom
}

// Validate checks option ranges and colors.
func (s Style) Validate() error {
	if s.StrokeWeight != nil && *s.StrokeWeight < 0 {
		return &InvalidStyleError{Field: "stroke_weight", Reason: "must not be negative"}
	}
	if err := checkOpacity("stroke_opacity", s.StrokeOpacity); err != nil {
		return err
	}
	if err := checkOpacity("fill_opacity", s.FillOpacity); err != nil {
		return err
	}
	if s.StrokeColor != "" {
		if _, err := ParseColor(s.StrokeColor); err != nil {
			return &InvalidStyleError{Field: "stroke_color", Reason: err.Error()}
		}
	}
	if s.FillColor != "" {
		if _, err := ParseColor(s.FillColor); err != nil {
			return &InvalidStyleError{Field: "fill_color", Reason: err.Error()}
		}
	}
	if s.InitialZoom != nil && (*s.InitialZoom < 0 || *s.InitialZoom > 24) {
		return &InvalidStyleError{Field: "zoom", Reason: "must be within [0,24]"}
	}
	return nil
}

func checkOpacity(field string, v *float64) error {
	if v != nil && (*v < 0 || *v > 1) {
		return &InvalidStyleError{Field: field, Reason: fmt.Sprintf("%v is outside [0,1]", *v)}
	}
	return nil
}

// Resolve validates the style and fills defaults for the dataset format.
func (s Style) Resolve(format geo.Format) (PathStyle, error) {
	if err := s.Validate(); err != nil {
		return PathStyle{}, err
	}

	ps := PathStyle{
		Weight:      formatDefaults[format].weight,
		Opacity:     DefaultStrokeOpacity,
		Color:       DefaultColor,
		FillColor:   DefaultColor,
		FillOpacity: DefaultFillOpacity,
	}
	if s.StrokeWeight != nil {
		ps.Weight = *s.StrokeWeight
	}
	if s.StrokeOpacity != nil {
		ps.Opacity = *s.StrokeOpacity
	}
	if s.StrokeColor != "" {
		ps.Color = s.StrokeColor
	}
	if s.FillColor != "" {
		ps.FillColor = s.FillColor
	}
	if s.FillOpacity != nil {
		ps.FillOpacity = *s.FillOpacity
	}

	return ps, nil
}

var namedColors = map[string]color.NRGBA{
	"black":  {0, 0, 0, 255},
	"white":  {255, 255, 255, 255},
	"red":    {255, 0, 0, 255},
	"green":  {0, 128, 0, 255},
	"blue":   {0, 0, 255, 255},
	"yellow": {255, 255, 0, 255},
	"orange": {255, 165, 0, 255},
	"purple": {128, 0, 128, 255},
	"gray":   {128, 128, 128, 255},
	"grey":   {128, 128, 128, 255},
}

// ParseColor accepts #rgb, #rrggbb and a few CSS color names.
func ParseColor(s string) (color.NRGBA, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if c, ok := namedColors[s]; ok {
		return c, nil
	}
	if !strings.HasPrefix(s, "#") {
		return color.NRGBA{}, fmt.Errorf("color %q is neither hex nor a known name", s)
	}

	hex := s[1:]
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return color.NRGBA{}, fmt.Errorf("color %q must have 3 or 6 hex digits", s)
	}

	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("color %q: %w", s, err)
	}

	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
}
