package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/woozymasta/geoview/internal/reader"
)

const sampleConfig = `
attribution: "US Census Bureau"
timeout: 30s
style:
  stroke_color: "#333333"
  label: "{NAME}"
datasets:
  - name: counties
    title: Texas counties
    shapefile: data/tl_2024_48_county
    aliases: [tx-counties]
    style:
      fill_opacity: 0.4
      scroll_locked: true
  - name: parks
    geojson: https://example.com/parks.geojson
    index: 0
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Timeout != 30*time.Second {
		t.Errorf("Expected timeout 30s, got %v", cfg.Timeout)
	}
	if len(cfg.Datasets) != 2 {
		t.Fatalf("Expected 2 datasets, got %d", len(cfg.Datasets))
	}

	counties := cfg.Datasets[0]
	if counties.Location() != "data/tl_2024_48_county" {
		t.Errorf("Unexpected location %q", counties.Location())
	}
	if len(counties.Aliases) != 1 || counties.Aliases[0] != "tx-counties" {
		t.Errorf("Unexpected aliases %v", counties.Aliases)
	}

	style := cfg.DatasetStyle(counties)
	if style.StrokeColor != "#333333" || style.LabelTemplate != "{NAME}" {
		t.Errorf("Expected global style options, got %+v", style)
	}
	if style.FillOpacity == nil || *style.FillOpacity != 0.4 {
		t.Errorf("Expected dataset fill opacity, got %v", style.FillOpacity)
	}
	if !style.IsScrollLocked() {
		t.Error("Expected dataset scroll lock")
	}

	parks := cfg.Datasets[1]
	if parks.Index == nil || *parks.Index != 0 {
		t.Errorf("Expected explicit index 0, got %v", parks.Index)
	}
	src, err := parks.Source(nil)
	if err != nil {
		t.Fatalf("Source failed: %v", err)
	}
	if _, ok := src.(reader.GeoJSONSource); !ok {
		t.Errorf("Expected GeoJSON source, got %T", src)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errPart string
	}{
		{"missing name", "datasets:\n  - geojson: a.geojson\n", "name is required"},
		{"duplicate", "datasets:\n  - {name: a, geojson: a.geojson}\n  - {name: a, geojson: b.geojson}\n", "duplicate"},
		{"no location", "datasets:\n  - name: a\n", "exactly one"},
		{"both locations", "datasets:\n  - {name: a, geojson: a.geojson, shapefile: dir}\n", "exactly one"},
		{"bad style", "datasets:\n  - name: a\n    geojson: a.geojson\n    style: {fill_opacity: 3}\n", "fill_opacity"},
		{"bad global style", "style: {stroke_color: nope}\ndatasets: []\n", "global style"},
		{"bad yaml", "datasets: [\n", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.errPart) {
				t.Errorf("Expected error containing %q, got %v", tt.errPart, err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestDatasetShapefileSource(t *testing.T) {
	dir := t.TempDir()
	shpPath := filepath.Join(dir, "tl_2024_48_county.shp")
	jsonPath := filepath.Join(dir, "parks.geojson")
	for _, p := range []string{shpPath, jsonPath} {
		if err := os.WriteFile(p, nil, 0644); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name     string
		location string
		want     reader.ShapefileSource
		wantErr  bool
	}{
		{"directory", dir, reader.ShapefileSource{Dir: dir}, false},
		{"shp path", shpPath, reader.ShapefileSource{Dir: dir, Base: "tl_2024_48_county"}, false},
		{"geojson file", jsonPath, reader.ShapefileSource{}, true},
		{"remote", "https://example.com/counties.shp", reader.ShapefileSource{}, true},
		{"missing", filepath.Join(dir, "missing"), reader.ShapefileSource{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Dataset{Name: "counties", Shapefile: tt.location}
			src, err := d.Source(nil)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Source() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			got, ok := src.(reader.ShapefileSource)
			if !ok {
				t.Fatalf("Expected shapefile source, got %T", src)
			}
			if got != tt.want {
				t.Errorf("Source() = %#v, want %#v", got, tt.want)
			}
		})
	}
}
