package reader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/woozymasta/geoview/internal/geo"

	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog/log"
)

const featureCollectionType = "FeatureCollection"

// documentHead is the part of a GeoJSON document inspected before full decoding.
type documentHead struct {
	Type     string          `json:"type"`
	Features json.RawMessage `json:"features"`
	CRS      *struct {
		Type       string `json:"type"`
		Properties struct {
			Name string `json:"name"`
		} `json:"properties"`
	} `json:"crs"`
}

// rawFeature exposes raw coordinates for arity checks, which orb does not report.
type rawFeature struct {
	Geometry *struct {
		Type        string          `json:"type"`
		Coordinates json.RawMessage `json:"coordinates"`
	} `json:"geometry"`
}

// ReadGeoJSON fetches a GeoJSON FeatureCollection from source and normalizes it.
func ReadGeoJSON(ctx context.Context, fetcher Fetcher, source string) (*geo.FeatureCollection, error) {
	data, err := fetcher.Fetch(ctx, source)
	if err != nil {
		var unavailable *SourceUnavailableError
		if !errors.As(err, &unavailable) {
			err = &SourceUnavailableError{Source: source, Err: err}
		}
		return nil, err
	}

	return ParseGeoJSON(source, data)
}

// ParseGeoJSON normalizes an already fetched GeoJSON document.
// source is used only for error messages.
func ParseGeoJSON(source string, data []byte) (*geo.FeatureCollection, error) {
	var head documentHead
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, &MalformedDocumentError{Source: source, Err: err}
	}
	if head.Type != featureCollectionType {
		return nil, &UnsupportedGeoJSONTypeError{Source: source, Type: head.Type}
	}
	if len(head.Features) == 0 || string(head.Features) == "null" {
		return nil, &MalformedDocumentError{Source: source, Err: errors.New("missing features array")}
	}

	var raws []rawFeature
	if err := json.Unmarshal(head.Features, &raws); err != nil {
		return nil, &MalformedDocumentError{Source: source, Err: fmt.Errorf("features: %w", err)}
	}
	for i, rf := range raws {
		if rf.Geometry == nil || len(rf.Geometry.Coordinates) == 0 {
			continue
		}
		if err := checkArity(rf.Geometry.Type, rf.Geometry.Coordinates); err != nil {
			return nil, &MalformedGeometryError{Source: source, Feature: i, Err: err}
		}
	}

	doc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, &MalformedGeometryError{Source: source, Feature: -1, Err: err}
	}

	features := make([]geo.Feature, 0, len(doc.Features))
	for i, f := range doc.Features {
		if err := geo.ValidateGeometry(f.Geometry); err != nil {
			return nil, &MalformedGeometryError{Source: source, Feature: i, Err: err}
		}
		features = append(features, geo.NewFeature(f.ID, f.Properties, f.Geometry))
	}

	crs := ""
	if head.CRS != nil && head.CRS.Type == "name" {
		crs = head.CRS.Properties.Name
	}

	fc := geo.NewFeatureCollection(geo.FormatGeoJSON, crs, features)

	log.Debug().
		Str("source", source).
		Int("features", fc.Len()).
		Str("crs", fc.CRS()).
		Msg("GeoJSON collection read")

	return fc, nil
}

// positionDepth is the array nesting level at which each geometry type
// holds its positions.
var positionDepth = map[string]int{
	"Point":           0,
	"MultiPoint":      1,
	"LineString":      1,
	"MultiLineString": 2,
	"Polygon":         2,
	"MultiPolygon":    3,
}

// checkArity verifies every position has at least two numbers and that all
// positions of one geometry share the same dimension. Empty coordinate arrays
// and empty positions are rejected since orb decodes them as (0,0) or as
// geometries with an inverted bound.
func checkArity(typ string, coordinates json.RawMessage) error {
	var v any
	if err := json.Unmarshal(coordinates, &v); err != nil {
		return fmt.Errorf("coordinates: %w", err)
	}
	if arr, ok := v.([]any); ok && len(arr) == 0 {
		return errors.New("coordinates array is empty")
	}

	depth, ok := positionDepth[typ]
	if !ok {
		depth = -1
	}

	arity := 0
	return walkPositions(v, depth, &arity)
}

// walkPositions descends v until depth reaches zero, where a position is
// expected. A negative depth means the nesting is not known for the type and
// positions are detected by content.
func walkPositions(v any, depth int, arity *int) error {
	arr, ok := v.([]any)
	if !ok {
		return fmt.Errorf("coordinates must be nested arrays, got %T", v)
	}

	if depth == 0 && len(arr) == 0 {
		return errors.New("position is empty")
	}
	if len(arr) == 0 {
		return nil
	}

	_, isNumber := arr[0].(float64)
	if depth > 0 && isNumber {
		return fmt.Errorf("position %v found where an array of positions is expected", arr)
	}
	if depth > 0 || (depth < 0 && !isNumber) {
		for _, child := range arr {
			if err := walkPositions(child, depth-1, arity); err != nil {
				return err
			}
		}
		return nil
	}

	for _, n := range arr {
		if _, ok := n.(float64); !ok {
			return fmt.Errorf("position %v mixes numbers and %T", arr, n)
		}
	}
	if len(arr) < 2 {
		return fmt.Errorf("position %v has %d values, need at least 2", arr, len(arr))
	}
	if *arity == 0 {
		*arity = len(arr)
	} else if *arity != len(arr) {
		return fmt.Errorf("inconsistent coordinate arity: %d and %d", *arity, len(arr))
	}

	return nil
}
