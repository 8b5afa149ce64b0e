package reader

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/woozymasta/geoview/internal/geo"

	"github.com/paulmach/orb"
)

const twoParks = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "id": "zilker", "properties": {"name": "Zilker Park", "acres": 351, "open": true},
     "geometry": {"type": "Point", "coordinates": [-97.77, 30.26]}},
    {"type": "Feature", "properties": {"name": "Town Lake Trail", "tags": ["trail", "water"]},
     "geometry": {"type": "LineString", "coordinates": [[-97.75, 30.26], [-97.73, 30.25]]}}
  ]
}`

func TestParseGeoJSON(t *testing.T) {
	fc, err := ParseGeoJSON("parks.geojson", []byte(twoParks))
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}

	if fc.Len() != 2 {
		t.Fatalf("Expected 2 features, got %d", fc.Len())
	}
	if fc.Format() != geo.FormatGeoJSON {
		t.Errorf("Expected geojson format, got %s", fc.Format())
	}

	first := fc.Feature(0)
	if first.ID() != "zilker" {
		t.Errorf("Expected id zilker, got %v", first.ID())
	}
	if v, _ := first.Property("acres"); v != 351.0 {
		t.Errorf("Expected acres 351, got %v", v)
	}
	if v, _ := first.Property("open"); v != true {
		t.Errorf("Expected open true, got %v", v)
	}

	second := fc.Feature(1)
	if second.HasID() {
		t.Errorf("Expected no id, got %v", second.ID())
	}
	if tags, ok := second.Property("tags"); !ok || len(tags.([]any)) != 2 {
		t.Errorf("Expected nested tags kept as decoded, got %v", tags)
	}
	if second.GeometryType() != "LineString" {
		t.Errorf("Expected LineString, got %s", second.GeometryType())
	}

	want := orb.Bound{Min: orb.Point{-97.77, 30.25}, Max: orb.Point{-97.73, 30.26}}
	if fc.Bound() != want {
		t.Errorf("Expected bound %v, got %v", want, fc.Bound())
	}
}

func TestParseGeoJSONLegacyCRS(t *testing.T) {
	doc := `{"type":"FeatureCollection","crs":{"type":"name","properties":{"name":"urn:ogc:def:crs:EPSG::3857"}},
		"features":[{"type":"Feature","properties":{},"geometry":{"type":"Point","coordinates":[1,2]}}]}`

	fc, err := ParseGeoJSON("crs.geojson", []byte(doc))
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}
	if fc.CRS() != "urn:ogc:def:crs:EPSG::3857" {
		t.Errorf("Expected legacy crs name, got %q", fc.CRS())
	}
}

func isUnsupportedType(typ string) func(error) bool {
	return func(err error) bool {
		var e *UnsupportedGeoJSONTypeError
		return errors.As(err, &e) && e.Type == typ
	}
}

func isMalformedDocument(err error) bool {
	var e *MalformedDocumentError
	return errors.As(err, &e)
}

func isMalformedGeometry(feature int) func(error) bool {
	return func(err error) bool {
		var e *MalformedGeometryError
		return errors.As(err, &e) && e.Feature == feature
	}
}

func isNilGeometry(err error) bool {
	return errors.Is(err, geo.ErrNilGeometry)
}

func TestParseGeoJSONErrors(t *testing.T) {
	tests := []struct {
		name  string
		doc   string
		check func(error) bool
	}{
		{
			"top-level polygon",
			`{"type":"Polygon","coordinates":[[[0,0],[0,1],[1,1],[0,0]]]}`,
			isUnsupportedType("Polygon"),
		},
		{
			"missing type",
			`{"features":[]}`,
			isUnsupportedType(""),
		},
		{
			"invalid json",
			`{"type":"FeatureCollection",`,
			isMalformedDocument,
		},
		{
			"missing features",
			`{"type":"FeatureCollection"}`,
			isMalformedDocument,
		},
		{
			"short position",
			`{"type":"FeatureCollection","features":[{"type":"Feature","properties":{},"geometry":{"type":"Point","coordinates":[1]}}]}`,
			isMalformedGeometry(0),
		},
		{
			"mixed arity",
			`{"type":"FeatureCollection","features":[
				{"type":"Feature","properties":{},"geometry":{"type":"Point","coordinates":[0,0]}},
				{"type":"Feature","properties":{},"geometry":{"type":"LineString","coordinates":[[0,0],[1,1,5]]}}]}`,
			isMalformedGeometry(1),
		},
		{
			"unclosed ring",
			`{"type":"FeatureCollection","features":[{"type":"Feature","properties":{},
				"geometry":{"type":"Polygon","coordinates":[[[0,0],[0,1],[1,1],[1,0]]]}}]}`,
			isMalformedGeometry(0),
		},
		{
			"empty point coordinates",
			`{"type":"FeatureCollection","features":[{"type":"Feature","properties":{},"geometry":{"type":"Point","coordinates":[]}}]}`,
			isMalformedGeometry(0),
		},
		{
			"empty multipolygon",
			`{"type":"FeatureCollection","features":[
				{"type":"Feature","properties":{},"geometry":{"type":"MultiPolygon","coordinates":[]}},
				{"type":"Feature","properties":{},"geometry":{"type":"Point","coordinates":[5,5]}}]}`,
			isMalformedGeometry(0),
		},
		{
			"empty multipoint",
			`{"type":"FeatureCollection","features":[{"type":"Feature","properties":{},"geometry":{"type":"MultiPoint","coordinates":[]}}]}`,
			isMalformedGeometry(0),
		},
		{
			"empty position in line",
			`{"type":"FeatureCollection","features":[{"type":"Feature","properties":{},"geometry":{"type":"LineString","coordinates":[[0,0],[]]}}]}`,
			isMalformedGeometry(0),
		},
		{
			"empty position in multipoint",
			`{"type":"FeatureCollection","features":[{"type":"Feature","properties":{},"geometry":{"type":"MultiPoint","coordinates":[[]]}}]}`,
			isMalformedGeometry(0),
		},
		{
			"null geometry",
			`{"type":"FeatureCollection","features":[{"type":"Feature","properties":{},"geometry":null}]}`,
			isNilGeometry,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseGeoJSON("test.geojson", []byte(tt.doc))
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if !tt.check(err) {
				t.Errorf("Unexpected error type %T: %v", err, err)
			}
		})
	}
}

func TestParseGeoJSONEmpty(t *testing.T) {
	fc, err := ParseGeoJSON("empty.geojson", []byte(`{"type":"FeatureCollection","features":[]}`))
	if err != nil {
		t.Fatalf("Expected empty collection to parse, got %v", err)
	}
	if !fc.IsEmpty() {
		t.Errorf("Expected empty collection, got %d features", fc.Len())
	}
}

func TestReadGeoJSONRemote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/parks.geojson" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/geo+json")
		_, _ = w.Write([]byte(twoParks))
	}))
	defer srv.Close()

	fetcher := NewSourceFetcher(srv.Client(), nil)

	fc, err := ReadGeoJSON(context.Background(), fetcher, srv.URL+"/parks.geojson")
	if err != nil {
		t.Fatalf("Failed to read remote GeoJSON: %v", err)
	}
	if fc.Len() != 2 {
		t.Errorf("Expected 2 features, got %d", fc.Len())
	}

	_, err = ReadGeoJSON(context.Background(), fetcher, srv.URL+"/missing.geojson")
	var unavailable *SourceUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("Expected SourceUnavailableError for 404, got %v", err)
	}
}

func TestReadGeoJSONLocal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "parks.geojson")
	if err := os.WriteFile(path, []byte(twoParks), 0644); err != nil {
		t.Fatal(err)
	}

	src, err := Open(path, nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if src.Format() != geo.FormatGeoJSON {
		t.Fatalf("Expected GeoJSON source, got %s", src.Format())
	}

	fc, err := src.Read(context.Background())
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if fc.Len() != 2 {
		t.Errorf("Expected 2 features, got %d", fc.Len())
	}

	_, err = ReadGeoJSON(context.Background(), NewSourceFetcher(nil, nil), filepath.Join(t.TempDir(), "nope.geojson"))
	var unavailable *SourceUnavailableError
	if !errors.As(err, &unavailable) {
		t.Errorf("Expected SourceUnavailableError for missing file, got %v", err)
	}
}

func TestFetchS3NotConfigured(t *testing.T) {
	_, err := NewSourceFetcher(nil, nil).Fetch(context.Background(), "s3://bucket/key.geojson")
	if !errors.Is(err, ErrS3NotConfigured) {
		t.Errorf("Expected ErrS3NotConfigured, got %v", err)
	}
}

func TestNewS3Client(t *testing.T) {
	client, err := NewS3Client(S3Options{})
	if err != nil || client != nil {
		t.Errorf("Expected nil client without endpoint, got %v, %v", client, err)
	}

	if _, err := NewS3Client(S3Options{Endpoint: "localhost:9000"}); err == nil {
		t.Error("Expected error for endpoint without credentials")
	}

	client, err = NewS3Client(S3Options{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b"})
	if err != nil || client == nil {
		t.Errorf("Expected configured client, got %v, %v", client, err)
	}
}
