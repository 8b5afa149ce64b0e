package reader

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/woozymasta/geoview/internal/geo"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/encoding"
)

// Shapefile bundle components.
const (
	ExtShp = ".shp" // geometry
	ExtShx = ".shx" // index
	ExtDbf = ".dbf" // attribute table
	ExtPrj = ".prj" // projection text
	ExtCpg = ".cpg" // attribute encoding tag
	ExtXML = ".xml" // metadata documents
)

var mandatoryExts = []string{ExtShp, ExtShx, ExtDbf}

// bundle is a located shapefile: a directory and a base name shared by its files.
type bundle struct {
	dir  string
	base string
}

func (b bundle) path(ext string) string { return filepath.Join(b.dir, b.base+ext) }

// ReadShapefileBundle reads the single shapefile bundle stored in dir.
func ReadShapefileBundle(dir string) (*geo.FeatureCollection, error) {
	return ReadShapefile(dir, "")
}

// ReadShapefile reads the bundle named base in dir. An empty base selects the
// only complete bundle in the directory.
func ReadShapefile(dir, base string) (*geo.FeatureCollection, error) {
	b, err := locateBundle(dir, base)
	if err != nil {
		return nil, err
	}

	source := b.path(ExtShp)

	crs, err := readOptionalText(b.path(ExtPrj))
	if err != nil {
		return nil, &SourceUnavailableError{Source: b.path(ExtPrj), Err: err}
	}
	cpg, err := readOptionalText(b.path(ExtCpg))
	if err != nil {
		return nil, &SourceUnavailableError{Source: b.path(ExtCpg), Err: err}
	}

	dec, err := attributeDecoder(cpg)
	if err != nil {
		log.Warn().Err(err).Str("shp", source).Msg("Ignoring attribute encoding tag")
		dec = nil
	}

	r, err := shp.Open(source)
	if err != nil {
		return nil, &SourceUnavailableError{Source: source, Err: err}
	}
	defer func() { _ = r.Close() }()

	fields := r.Fields()
	rows := r.AttributeCount()

	features := make([]geo.Feature, 0, rows)
	for r.Next() {
		n, shape := r.Shape()

		g, err := shapeGeometry(shape)
		if err != nil {
			return nil, &MalformedGeometryError{Source: source, Feature: n, Err: err}
		}
		if err := geo.ValidateGeometry(g); err != nil {
			return nil, &MalformedGeometryError{Source: source, Feature: n, Err: err}
		}

		props := make(map[string]any, len(fields))
		for k, f := range fields {
			props[f.String()] = attributeValue(f, r.Attribute(k), dec)
		}

		features = append(features, geo.NewFeature(n, props, g))
	}
	if err := r.Err(); err != nil {
		return nil, &MalformedGeometryError{Source: source, Feature: -1, Err: err}
	}
	if len(features) != rows {
		return nil, &MalformedGeometryError{
			Source:  source,
			Feature: -1,
			Reason:  fmt.Sprintf("%d geometry records but %d attribute rows", len(features), rows),
		}
	}

	fc := geo.NewFeatureCollection(geo.FormatShapefile, crs, features)

	log.Debug().
		Str("shp", source).
		Int("features", fc.Len()).
		Int("fields", len(fields)).
		Bool("prj", fc.HasCRS()).
		Str("cpg", cpg).
		Msg("Shapefile bundle read")

	return fc, nil
}

// locateBundle finds the bundle base name and checks mandatory components.
func locateBundle(dir, base string) (bundle, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return bundle{}, &SourceUnavailableError{Source: dir, Err: err}
	}

	exts := make(map[string]map[string]bool)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if !isMandatory(ext) {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ext)
		if exts[name] == nil {
			exts[name] = make(map[string]bool)
		}
		exts[name][ext] = true
	}

	missing := func(name string) []string {
		var out []string
		for _, ext := range mandatoryExts {
			if !exts[name][ext] {
				out = append(out, ext)
			}
		}
		return out
	}

	if base != "" {
		if m := missing(base); len(m) > 0 {
			return bundle{}, &IncompleteDatasetError{Dir: dir, Base: base, Missing: m}
		}
		return bundle{dir: dir, base: base}, nil
	}

	names := make([]string, 0, len(exts))
	for name := range exts {
		names = append(names, name)
	}
	sort.Strings(names)

	var complete []string
	for _, name := range names {
		if len(missing(name)) == 0 {
			complete = append(complete, name)
		}
	}

	switch {
	case len(complete) == 1:
		return bundle{dir: dir, base: complete[0]}, nil
	case len(complete) > 1:
		return bundle{}, &AmbiguousBundleError{Dir: dir, Bases: complete}
	case len(names) == 0:
		return bundle{}, &IncompleteDatasetError{Dir: dir, Missing: mandatoryExts}
	default:
		return bundle{}, &IncompleteDatasetError{Dir: dir, Base: names[0], Missing: missing(names[0])}
	}
}

func isMandatory(ext string) bool {
	for _, m := range mandatoryExts {
		if ext == m {
			return true
		}
	}
	return false
}

// readOptionalText returns trimmed file content, or "" when the file does not exist.
func readOptionalText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// attributeValue converts a dBase cell into a scalar. Blank numeric, logical
// and date cells become nil.
func attributeValue(f shp.Field, raw string, dec *encoding.Decoder) any {
	raw = strings.Trim(raw, " \x00")

	switch f.Fieldtype {
	case 'N', 'F':
		if raw == "" || strings.Trim(raw, "*") == "" {
			return nil
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return raw
		}
		return v
	case 'L':
		switch raw {
		case "T", "t", "Y", "y":
			return true
		case "F", "f", "N", "n":
			return false
		default:
			return nil
		}
	case 'D':
		if raw == "" {
			return nil
		}
		return raw
	default:
		return decodeAttribute(dec, raw)
	}
}

// shapeGeometry converts a shapefile record into an orb geometry.
// Z and M values are dropped.
func shapeGeometry(s shp.Shape) (orb.Geometry, error) {
	switch s := s.(type) {
	case *shp.Null:
		return nil, nil
	case *shp.Point:
		return orb.Point{s.X, s.Y}, nil
	case *shp.PointZ:
		return orb.Point{s.X, s.Y}, nil
	case *shp.PointM:
		return orb.Point{s.X, s.Y}, nil
	case *shp.MultiPoint:
		return multiPoint(s.Points), nil
	case *shp.MultiPointZ:
		return multiPoint(s.Points), nil
	case *shp.MultiPointM:
		return multiPoint(s.Points), nil
	case *shp.PolyLine:
		return lineGeometry(s.Parts, s.Points)
	case *shp.PolyLineZ:
		return lineGeometry(s.Parts, s.Points)
	case *shp.PolyLineM:
		return lineGeometry(s.Parts, s.Points)
	case *shp.Polygon:
		return polygonGeometry(s.Parts, s.Points)
	case *shp.PolygonZ:
		return polygonGeometry(s.Parts, s.Points)
	case *shp.PolygonM:
		return polygonGeometry(s.Parts, s.Points)
	default:
		return nil, fmt.Errorf("%w: shape %T", geo.ErrUnsupportedGeometry, s)
	}
}

func multiPoint(points []shp.Point) orb.MultiPoint {
	mp := make(orb.MultiPoint, len(points))
	for i, p := range points {
		mp[i] = orb.Point{p.X, p.Y}
	}
	return mp
}

// splitParts cuts the flat point list into parts using the part start offsets.
func splitParts(parts []int32, points []shp.Point) ([][]orb.Point, error) {
	if len(parts) == 0 {
		return nil, errors.New("record has no parts")
	}

	out := make([][]orb.Point, 0, len(parts))
	for i, start := range parts {
		end := int32(len(points))
		if i+1 < len(parts) {
			end = parts[i+1]
		}
		if start < 0 || start > end || int(end) > len(points) {
			return nil, fmt.Errorf("part %d has invalid range [%d:%d] over %d points", i, start, end, len(points))
		}

		part := make([]orb.Point, 0, end-start)
		for _, p := range points[start:end] {
			part = append(part, orb.Point{p.X, p.Y})
		}
		out = append(out, part)
	}

	return out, nil
}

func lineGeometry(parts []int32, points []shp.Point) (orb.Geometry, error) {
	split, err := splitParts(parts, points)
	if err != nil {
		return nil, err
	}
	if len(split) == 1 {
		return orb.LineString(split[0]), nil
	}

	mls := make(orb.MultiLineString, len(split))
	for i, p := range split {
		mls[i] = orb.LineString(p)
	}
	return mls, nil
}

// polygonGeometry groups rings into polygons: a clockwise ring starts a new
// polygon, counter-clockwise rings are holes of the preceding one.
func polygonGeometry(parts []int32, points []shp.Point) (orb.Geometry, error) {
	split, err := splitParts(parts, points)
	if err != nil {
		return nil, err
	}

	var polygons orb.MultiPolygon
	for i, p := range split {
		ring := orb.Ring(p)
		if err := geo.ValidateRing(ring); err != nil {
			return nil, fmt.Errorf("ring %d: %w", i, err)
		}

		if len(polygons) == 0 || ring.Orientation() == orb.CW {
			polygons = append(polygons, orb.Polygon{ring})
			continue
		}
		last := len(polygons) - 1
		polygons[last] = append(polygons[last], ring)
	}

	if len(polygons) == 1 {
		return polygons[0], nil
	}
	return polygons, nil
}
