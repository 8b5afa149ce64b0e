package render

import (
	"errors"
	"image/color"
	"testing"

	"github.com/woozymasta/geoview/internal/geo"
)

func TestStyleResolveDefaults(t *testing.T) {
	tests := []struct {
		format geo.Format
		want   PathStyle
		zoom   int
	}{
		{geo.FormatShapefile, PathStyle{Weight: 1, Opacity: 1, Color: DefaultColor, FillColor: DefaultColor, FillOpacity: 0.2}, 10},
		{geo.FormatGeoJSON, PathStyle{Weight: 2, Opacity: 1, Color: DefaultColor, FillColor: DefaultColor, FillOpacity: 0.2}, 6},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			got, err := Style{}.Resolve(tt.format)
			if err != nil {
				t.Fatalf("Resolve failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %+v, got %+v", tt.want, got)
			}
			if z := (Style{}).Zoom(tt.format); z != tt.zoom {
				t.Errorf("Expected zoom %d, got %d", tt.zoom, z)
			}
		})
	}
}

func TestStyleMerge(t *testing.T) {
	base := Style{StrokeWeight: ptr(3.0), StrokeColor: "red", LabelTemplate: "{NAME}"}
	over := Style{StrokeColor: "#00ff00", ScrollLocked: ptr(true), InitialZoom: ptr(0)}

	got := base.Merge(over)

	if *got.StrokeWeight != 3 {
		t.Errorf("Expected weight kept from base, got %v", *got.StrokeWeight)
	}
	if got.StrokeColor != "#00ff00" {
		t.Errorf("Expected color overridden, got %s", got.StrokeColor)
	}
	if got.LabelTemplate != "{NAME}" {
		t.Errorf("Expected label kept, got %q", got.LabelTemplate)
	}
	if !got.IsScrollLocked() {
		t.Error("Expected scroll lock from override")
	}
	if got.Zoom(geo.FormatGeoJSON) != 0 {
		t.Errorf("Expected explicit zoom 0 to win, got %d", got.Zoom(geo.FormatGeoJSON))
	}
	if base.IsScrollLocked() {
		t.Error("Expected base style unchanged")
	}
}

func TestStyleValidate(t *testing.T) {
	tests := []struct {
		name  string
		style Style
		field string
	}{
		{"valid", Style{StrokeWeight: ptr(0.0), FillOpacity: ptr(1.0), StrokeColor: "#abc"}, ""},
		{"negative weight", Style{StrokeWeight: ptr(-1.0)}, "stroke_weight"},
		{"stroke opacity", Style{StrokeOpacity: ptr(-0.1)}, "stroke_opacity"},
		{"fill opacity", Style{FillOpacity: ptr(2.0)}, "fill_opacity"},
		{"stroke color", Style{StrokeColor: "blueish"}, "stroke_color"},
		{"fill color", Style{FillColor: "#12345"}, "fill_color"},
		{"zoom", Style{InitialZoom: ptr(30)}, "zoom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.style.Validate()
			if tt.field == "" {
				if err != nil {
					t.Fatalf("Expected valid style, got %v", err)
				}
				return
			}

			var styleErr *InvalidStyleError
			if !errors.As(err, &styleErr) {
				t.Fatalf("Expected InvalidStyleError, got %v", err)
			}
			if styleErr.Field != tt.field {
				t.Errorf("Expected field %s, got %s", tt.field, styleErr.Field)
			}
		})
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in      string
		want    color.NRGBA
		wantErr bool
	}{
		{"#3388ff", color.NRGBA{0x33, 0x88, 0xff, 255}, false},
		{"#FFF", color.NRGBA{255, 255, 255, 255}, false},
		{" Red ", color.NRGBA{255, 0, 0, 255}, false},
		{"3388ff", color.NRGBA{}, true},
		{"#zzzzzz", color.NRGBA{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseColor(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseColor(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseColor(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestCompileLabel(t *testing.T) {
	props := map[string]any{
		"NAME":  "Austin",
		"POP":   961855.0,
		"RATIO": 0.25,
		"CAP":   true,
		"NOTE":  nil,
	}

	tests := []struct {
		tpl  string
		want string
	}{
		{"", ""},
		{"{NAME}", "Austin"},
		{"{NAME} pop {POP}", "Austin pop 961855"},
		{"{RATIO}/{CAP}", "0.25/true"},
		{"[{NOTE}][{MISSING}]", "[][]"},
		{"no placeholders", "no placeholders"},
	}

	for _, tt := range tests {
		t.Run(tt.tpl, func(t *testing.T) {
			if got := CompileLabel(tt.tpl)(props); got != tt.want {
				t.Errorf("CompileLabel(%q) = %q, want %q", tt.tpl, got, tt.want)
			}
		})
	}
}
