// Package geo holds the normalized feature model shared by all dataset formats.
package geo

import (
	"maps"

	"github.com/paulmach/orb"
)

// Feature is a single geometry with its attribute values.
// A Feature is read-only; accessors return copies.
type Feature struct {
	id         any
	properties map[string]any
	geometry   orb.Geometry
	bound      orb.Bound
}

// NewFeature builds a feature. id may be nil when the source carries no identifier.
func NewFeature(id any, properties map[string]any, geometry orb.Geometry) Feature {
	if properties == nil {
		properties = map[string]any{}
	}

	f := Feature{
		id:         id,
		properties: maps.Clone(properties),
		geometry:   orb.Clone(geometry),
	}
	if geometry != nil {
		f.bound = geometry.Bound()
	}

	return f
}

// ID returns the feature identifier or nil.
func (f Feature) ID() any { return f.id }

// HasID reports whether the source provided an identifier.
func (f Feature) HasID() bool { return f.id != nil }

// Properties returns a copy of the attribute map.
func (f Feature) Properties() map[string]any { return maps.Clone(f.properties) }

// Property returns a single attribute value.
func (f Feature) Property(name string) (any, bool) {
	v, ok := f.properties[name]
	return v, ok
}

// Geometry returns a copy of the feature geometry.
func (f Feature) Geometry() orb.Geometry { return orb.Clone(f.geometry) }

// GeometryType returns the GeoJSON type name of the geometry.
func (f Feature) GeometryType() string {
	if f.geometry == nil {
		return ""
	}
	return f.geometry.GeoJSONType()
}

// Bound returns the extent of the feature geometry.
func (f Feature) Bound() orb.Bound { return f.bound }
