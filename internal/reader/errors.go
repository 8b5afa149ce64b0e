package reader

import (
	"fmt"
	"strings"
)

// IncompleteDatasetError indicates a shapefile bundle lacks a mandatory component.
type IncompleteDatasetError struct {
	Dir     string
	Base    string
	Missing []string // missing extensions, e.g. ".dbf"
}

func (e *IncompleteDatasetError) Error() string {
	if e.Base == "" {
		return fmt.Sprintf("incomplete shapefile bundle in %s: missing %s",
			e.Dir, strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("incomplete shapefile bundle %q in %s: missing %s",
		e.Base, e.Dir, strings.Join(e.Missing, ", "))
}

// AmbiguousBundleError indicates a directory holds several complete shapefile bundles
// and no base name was given.
type AmbiguousBundleError struct {
	Dir   string
	Bases []string
}

func (e *AmbiguousBundleError) Error() string {
	return fmt.Sprintf("directory %s holds several shapefile bundles (%s), set a base name",
		e.Dir, strings.Join(e.Bases, ", "))
}

// MalformedGeometryError indicates a record whose geometry cannot be normalized.
// Feature is the zero-based record position, or -1 when the problem is not tied to one record.
type MalformedGeometryError struct {
	Source  string
	Feature int
	Reason  string
	Err     error
}

func (e *MalformedGeometryError) Error() string {
	reason := e.Reason
	if e.Err != nil {
		if reason == "" {
			reason = e.Err.Error()
		} else {
			reason += ": " + e.Err.Error()
		}
	}
	if e.Feature < 0 {
		return fmt.Sprintf("malformed geometry in %s: %s", e.Source, reason)
	}
	return fmt.Sprintf("malformed geometry in %s, feature %d: %s", e.Source, e.Feature, reason)
}

func (e *MalformedGeometryError) Unwrap() error { return e.Err }

// UnsupportedGeoJSONTypeError indicates a GeoJSON document whose top-level type
// is not FeatureCollection.
type UnsupportedGeoJSONTypeError struct {
	Source string
	Type   string
}

func (e *UnsupportedGeoJSONTypeError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("unsupported GeoJSON document %s: missing top-level type, want FeatureCollection", e.Source)
	}
	return fmt.Sprintf("unsupported GeoJSON document %s: top-level type %q, want FeatureCollection", e.Source, e.Type)
}

// MalformedDocumentError indicates a GeoJSON source that is not valid JSON.
type MalformedDocumentError struct {
	Source string
	Err    error
}

func (e *MalformedDocumentError) Error() string {
	return fmt.Sprintf("malformed GeoJSON document %s: %v", e.Source, e.Err)
}

func (e *MalformedDocumentError) Unwrap() error { return e.Err }

// SourceUnavailableError indicates an I/O or network failure reading a dataset location.
type SourceUnavailableError struct {
	Source string
	Err    error
}

func (e *SourceUnavailableError) Error() string {
	return fmt.Sprintf("source %s unavailable: %v", e.Source, e.Err)
}

func (e *SourceUnavailableError) Unwrap() error { return e.Err }
