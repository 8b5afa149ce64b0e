// Package reader turns shapefile bundles and GeoJSON documents into normalized
// feature collections.
package reader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/woozymasta/geoview/internal/geo"
)

// ErrNotShapefile reports a location that cannot name a shapefile bundle.
var ErrNotShapefile = errors.New("not a shapefile location")

// Source is a dataset location that can be read into a feature collection.
type Source interface {
	// Location identifies the dataset; it is the cache key.
	Location() string
	Format() geo.Format
	Read(ctx context.Context) (*geo.FeatureCollection, error)
}

// ShapefileSource is a shapefile bundle in a directory.
type ShapefileSource struct {
	Dir  string
	Base string // optional base name, required when Dir holds several bundles
}

// Location implements Source.
func (s ShapefileSource) Location() string {
	if s.Base == "" {
		return s.Dir
	}
	return filepath.Join(s.Dir, s.Base+ExtShp)
}

// Format implements Source.
func (s ShapefileSource) Format() geo.Format { return geo.FormatShapefile }

// Read implements Source. Shapefiles are local, so ctx is not consulted.
func (s ShapefileSource) Read(_ context.Context) (*geo.FeatureCollection, error) {
	return ReadShapefile(s.Dir, s.Base)
}

// GeoJSONSource is a GeoJSON document at a local path or remote location.
type GeoJSONSource struct {
	URI     string
	Fetcher Fetcher
}

// Location implements Source.
func (s GeoJSONSource) Location() string { return s.URI }

// Format implements Source.
func (s GeoJSONSource) Format() geo.Format { return geo.FormatGeoJSON }

// Read implements Source.
func (s GeoJSONSource) Read(ctx context.Context) (*geo.FeatureCollection, error) {
	f := s.Fetcher
	if f == nil {
		f = NewSourceFetcher(nil, nil)
	}
	return ReadGeoJSON(ctx, f, s.URI)
}

// Open picks the source variant for a location: a directory or a .shp path is a
// shapefile bundle, anything else is read as GeoJSON.
func Open(location string, fetcher Fetcher) (Source, error) {
	if IsRemote(location) {
		return GeoJSONSource{URI: location, Fetcher: fetcher}, nil
	}

	src, err := OpenShapefile(location)
	if errors.Is(err, ErrNotShapefile) {
		return GeoJSONSource{URI: location, Fetcher: fetcher}, nil
	}
	if err != nil {
		return nil, err
	}
	return src, nil
}

// OpenShapefile resolves a local bundle directory or .shp path.
// Other locations fail with ErrNotShapefile.
func OpenShapefile(location string) (ShapefileSource, error) {
	if IsRemote(location) {
		return ShapefileSource{}, fmt.Errorf("%w: %s is remote", ErrNotShapefile, location)
	}

	path := strings.TrimPrefix(location, "file://")
	info, err := os.Stat(path)
	if err != nil {
		return ShapefileSource{}, &SourceUnavailableError{Source: location, Err: err}
	}

	if info.IsDir() {
		return ShapefileSource{Dir: path}, nil
	}
	if filepath.Ext(path) == ExtShp {
		return ShapefileSource{
			Dir:  filepath.Dir(path),
			Base: strings.TrimSuffix(filepath.Base(path), ExtShp),
		}, nil
	}

	return ShapefileSource{}, fmt.Errorf("%w: %s is neither a directory nor a %s file", ErrNotShapefile, location, ExtShp)
}
