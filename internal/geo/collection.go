package geo

import (
	"sort"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"
)

// DefaultCRS is assumed when a dataset does not declare its coordinate reference system.
const DefaultCRS = "EPSG:4326"

// Format identifies the dataset format a collection was read from.
type Format string

const (
	FormatShapefile Format = "shapefile"
	FormatGeoJSON   Format = "geojson"
)

// minExtent pads degenerate extents (points, axis-aligned lines) for the R-tree,
// which rejects zero-length rectangle sides.
const minExtent = 1e-9

// FeatureCollection is the normalized, immutable result of reading a dataset.
type FeatureCollection struct {
	features []Feature
	bound    orb.Bound
	crs      string
	format   Format
	index    *rtreego.Rtree
}

// indexedFeature implements rtreego.Spatial for a feature position.
type indexedFeature struct {
	idx  int
	rect rtreego.Rect
}

// Bounds implements rtreego.Spatial.
func (f *indexedFeature) Bounds() rtreego.Rect { return f.rect }

// NewFeatureCollection builds a collection and derives its bounding box and spatial index.
// crs may be empty, in which case DefaultCRS is reported.
func NewFeatureCollection(format Format, crs string, features []Feature) *FeatureCollection {
	fc := &FeatureCollection{
		features: make([]Feature, len(features)),
		crs:      crs,
		format:   format,
		index:    rtreego.NewTree(2, 25, 50),
	}
	copy(fc.features, features)

	seeded := false
	for i, f := range fc.features {
		// geometries without positions have orb's inverted empty bound
		if f.Bound().IsEmpty() {
			continue
		}

		if !seeded {
			fc.bound = f.Bound()
			seeded = true
		} else {
			fc.bound = fc.bound.Union(f.Bound())
		}

		fc.index.Insert(&indexedFeature{idx: i, rect: boundToRect(f.Bound())})
	}

	return fc
}

// Features returns the features in source order.
func (fc *FeatureCollection) Features() []Feature {
	out := make([]Feature, len(fc.features))
	copy(out, fc.features)
	return out
}

// Feature returns the i-th feature.
func (fc *FeatureCollection) Feature(i int) Feature { return fc.features[i] }

// Len returns the number of features.
func (fc *FeatureCollection) Len() int { return len(fc.features) }

// IsEmpty reports whether the collection has no features.
func (fc *FeatureCollection) IsEmpty() bool { return len(fc.features) == 0 }

// Bound returns the union of all non-empty feature extents.
// The result is meaningless when no feature has positions.
func (fc *FeatureCollection) Bound() orb.Bound { return fc.bound }

// CRS returns the declared coordinate reference system or DefaultCRS.
func (fc *FeatureCollection) CRS() string {
	if fc.crs == "" {
		return DefaultCRS
	}
	return fc.crs
}

// HasCRS reports whether the dataset declared a coordinate reference system.
func (fc *FeatureCollection) HasCRS() bool { return fc.crs != "" }

// Format returns the format the collection was read from.
func (fc *FeatureCollection) Format() Format { return fc.format }

// PropertyKeys returns the sorted union of property names over all features.
func (fc *FeatureCollection) PropertyKeys() []string {
	seen := make(map[string]struct{})
	for _, f := range fc.features {
		for k := range f.properties {
			seen[k] = struct{}{}
		}
	}

	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return keys
}

// FeaturesInBounds returns features whose extent intersects b, in source order.
func (fc *FeatureCollection) FeaturesInBounds(b orb.Bound) []Feature {
	if fc.IsEmpty() {
		return nil
	}

	hits := fc.index.SearchIntersect(boundToRect(b))
	idx := make([]int, 0, len(hits))
	for _, h := range hits {
		idx = append(idx, h.(*indexedFeature).idx)
	}
	sort.Ints(idx)

	out := make([]Feature, 0, len(idx))
	for _, i := range idx {
		out = append(out, fc.features[i])
	}

	return out
}

func boundToRect(b orb.Bound) rtreego.Rect {
	point := rtreego.Point{b.Min[0], b.Min[1]}
	lengths := []float64{
		max(b.Max[0]-b.Min[0], minExtent),
		max(b.Max[1]-b.Min[1], minExtent),
	}

	// lengths are always positive, so NewRect cannot fail
	rect, _ := rtreego.NewRect(point, lengths)
	return rect
}
