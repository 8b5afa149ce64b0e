package reader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/woozymasta/geoview/internal/geo"

	"github.com/paulmach/orb"
)

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	writeCounties(t, dir, "counties", threeCounties)

	tests := []struct {
		name     string
		location string
		want     Source
	}{
		{"directory", dir, ShapefileSource{Dir: dir}},
		{"shp path", filepath.Join(dir, "counties.shp"), ShapefileSource{Dir: dir, Base: "counties"}},
		{"http", "https://example.com/a.geojson", GeoJSONSource{URI: "https://example.com/a.geojson"}},
		{"s3", "s3://bucket/a.geojson", GeoJSONSource{URI: "s3://bucket/a.geojson"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Open(tt.location, nil)
			if err != nil {
				t.Fatalf("Open(%q) failed: %v", tt.location, err)
			}
			if got != tt.want {
				t.Errorf("Open(%q) = %#v, want %#v", tt.location, got, tt.want)
			}
		})
	}

	_, err := Open(filepath.Join(dir, "missing"), nil)
	var unavailable *SourceUnavailableError
	if !errors.As(err, &unavailable) {
		t.Errorf("Expected SourceUnavailableError, got %v", err)
	}
}

func TestOpenShapefileRejectsOtherLocations(t *testing.T) {
	dir := t.TempDir()
	doc := filepath.Join(dir, "parks.geojson")
	if err := os.WriteFile(doc, []byte(`{"type":"FeatureCollection","features":[]}`), 0644); err != nil {
		t.Fatal(err)
	}

	for _, location := range []string{doc, "https://example.com/counties.shp", "s3://bucket/counties"} {
		if _, err := OpenShapefile(location); !errors.Is(err, ErrNotShapefile) {
			t.Errorf("OpenShapefile(%q) error = %v, want ErrNotShapefile", location, err)
		}
	}

	// the same local file is still a GeoJSON source when the format is not fixed
	src, err := Open(doc, nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, ok := src.(GeoJSONSource); !ok {
		t.Errorf("Expected GeoJSON source, got %T", src)
	}
}

type countingSource struct {
	location string
	reads    atomic.Int32
	err      error
}

func (s *countingSource) Location() string { return s.location }
func (s *countingSource) Format() geo.Format { return geo.FormatGeoJSON }
func (s *countingSource) Read(context.Context) (*geo.FeatureCollection, error) {
	s.reads.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return geo.NewFeatureCollection(geo.FormatGeoJSON, "", []geo.Feature{
		geo.NewFeature(1, nil, orb.Point{1, 1}),
	}), nil
}

func TestCache(t *testing.T) {
	cache := NewCache()
	src := &countingSource{location: "a.geojson"}

	first, err := cache.Read(context.Background(), src)
	if err != nil {
		t.Fatalf("First read failed: %v", err)
	}
	second, err := cache.Read(context.Background(), src)
	if err != nil {
		t.Fatalf("Second read failed: %v", err)
	}

	if first != second {
		t.Error("Expected cached collection to be shared")
	}
	if n := src.reads.Load(); n != 1 {
		t.Errorf("Expected source read once, got %d", n)
	}

	stats := cache.Stats()
	if stats.Entries != 1 || stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("Unexpected stats %+v", stats)
	}

	cache.Invalidate("a.geojson")
	if _, err := cache.Read(context.Background(), src); err != nil {
		t.Fatal(err)
	}
	if n := src.reads.Load(); n != 2 {
		t.Errorf("Expected reread after invalidate, got %d reads", n)
	}
}

func TestCacheDoesNotStoreFailures(t *testing.T) {
	cache := NewCache()
	src := &countingSource{location: "bad.geojson", err: errors.New("boom")}

	for i := 0; i < 2; i++ {
		if _, err := cache.Read(context.Background(), src); err == nil {
			t.Fatal("Expected error")
		}
	}
	if n := src.reads.Load(); n != 2 {
		t.Errorf("Expected failed reads to be retried, got %d reads", n)
	}
	if cache.Stats().Entries != 0 {
		t.Error("Expected no cached entries")
	}
}

type countingFetcher struct {
	calls atomic.Int32
	data  []byte
}

func (f *countingFetcher) Fetch(context.Context, string) ([]byte, error) {
	f.calls.Add(1)
	return f.data, nil
}

func TestDiskCache(t *testing.T) {
	dir := t.TempDir()
	next := &countingFetcher{data: []byte(twoParks)}
	cache := NewDiskCache(dir, next, false)
	location := "https://example.com/parks.geojson"

	for i := 0; i < 2; i++ {
		data, err := cache.Fetch(context.Background(), location)
		if err != nil {
			t.Fatalf("Fetch failed: %v", err)
		}
		if string(data) != twoParks {
			t.Fatal("Unexpected cached content")
		}
	}
	if n := next.calls.Load(); n != 1 {
		t.Errorf("Expected one remote fetch, got %d", n)
	}
	if _, err := os.Stat(cache.Path(location)); err != nil {
		t.Errorf("Expected cache file: %v", err)
	}
	if cache.Path(location) == cache.Path(location+"?v=2") {
		t.Error("Expected distinct cache paths for distinct locations")
	}

	forced := NewDiskCache(dir, next, true)
	if _, err := forced.Fetch(context.Background(), location); err != nil {
		t.Fatal(err)
	}
	if n := next.calls.Load(); n != 2 {
		t.Errorf("Expected forced refetch, got %d fetches", n)
	}

	if _, err := cache.Fetch(context.Background(), "local.geojson"); err != nil {
		t.Fatal(err)
	}
	if n := next.calls.Load(); n != 3 {
		t.Errorf("Expected local path to pass through, got %d fetches", n)
	}
}
