package render

import (
	"encoding/json"

	"github.com/woozymasta/geoview/internal/geo"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Viewport is the initial map position. Center is [x, y] (lon, lat for geographic data).
type Viewport struct {
	Center orb.Point `json:"center"`
	Zoom   int       `json:"zoom"`
}

// Extent is an axis-aligned bounding box.
type Extent struct {
	MinX float64 `json:"minX"`
	MinY float64 `json:"minY"`
	MaxX float64 `json:"maxX"`
	MaxY float64 `json:"maxY"`
}

// Interaction tells the display surface which navigation gestures are enabled.
type Interaction struct {
	ScrollWheelZoom bool `json:"scrollWheelZoom"`
	Dragging        bool `json:"dragging"`
	ZoomControl     bool `json:"zoomControl"`
}

// StyledFeature is one feature ready for drawing.
type StyledFeature struct {
	ID         any            `json:"id,omitempty"`
	Label      string         `json:"label"`
	Style      PathStyle      `json:"style"`
	Properties map[string]any `json:"properties"`
	Geometry   orb.Geometry   `json:"-"`
}

// MarshalJSON encodes the geometry as a GeoJSON geometry object.
func (f StyledFeature) MarshalJSON() ([]byte, error) {
	type alias StyledFeature
	return json.Marshal(struct {
		alias
		Geometry *geojson.Geometry `json:"geometry"`
	}{alias: alias(f), Geometry: geojson.NewGeometry(f.Geometry)})
}

// RenderedView is a deterministic description of a map view.
type RenderedView struct {
	Viewport    Viewport        `json:"viewport"`
	Bounds      Extent          `json:"bounds"`
	CRS         string          `json:"crs"`
	Style       PathStyle       `json:"style"`
	Interaction Interaction     `json:"interaction"`
	Features    []StyledFeature `json:"features"`
}

// ComputeInitialViewport centers the view on the midpoint of the collection bounding box.
// The zoom comes from the style, or the dataset format default.
func ComputeInitialViewport(fc *geo.FeatureCollection, style Style) (Viewport, error) {
	if fc == nil || fc.IsEmpty() {
		return Viewport{}, ErrEmptyCollection
	}

	b := fc.Bound()
	return Viewport{
		Center: orb.Point{(b.Min[0] + b.Max[0]) / 2, (b.Min[1] + b.Max[1]) / 2},
		Zoom:   style.Zoom(fc.Format()),
	}, nil
}

// Render styles every feature of the collection.
func Render(fc *geo.FeatureCollection, style Style) (RenderedView, error) {
	if fc == nil || fc.IsEmpty() {
		return RenderedView{}, ErrEmptyCollection
	}
	return render(fc, style, fc.Features())
}

// RenderBounds is Render limited to features whose extent intersects b.
// The viewport still describes the whole collection.
func RenderBounds(fc *geo.FeatureCollection, style Style, b orb.Bound) (RenderedView, error) {
	if fc == nil || fc.IsEmpty() {
		return RenderedView{}, ErrEmptyCollection
	}
	return render(fc, style, fc.FeaturesInBounds(b))
}

func render(fc *geo.FeatureCollection, style Style, features []geo.Feature) (RenderedView, error) {
	ps, err := style.Resolve(fc.Format())
	if err != nil {
		return RenderedView{}, err
	}

	vp, err := ComputeInitialViewport(fc, style)
	if err != nil {
		return RenderedView{}, err
	}

	label := style.labelFunc()
	b := fc.Bound()

	view := RenderedView{
		Viewport: vp,
		Bounds:   Extent{MinX: b.Min[0], MinY: b.Min[1], MaxX: b.Max[0], MaxY: b.Max[1]},
		CRS:      fc.CRS(),
		Style:    ps,
		Interaction: Interaction{
			ScrollWheelZoom: !style.IsScrollLocked(),
			Dragging:        true,
			ZoomControl:     true,
		},
		Features: make([]StyledFeature, 0, len(features)),
	}

	for _, f := range features {
		props := f.Properties()
		view.Features = append(view.Features, StyledFeature{
			ID:         f.ID(),
			Label:      label(props),
			Style:      ps,
			Properties: props,
			Geometry:   f.Geometry(),
		})
	}

	return view, nil
}

// FeatureCollection converts the view into GeoJSON with the label and style
// embedded in each feature's properties under "label" and "style".
func (v RenderedView) FeatureCollection() *geojson.FeatureCollection {
	out := geojson.NewFeatureCollection()
	for _, f := range v.Features {
		gf := geojson.NewFeature(f.Geometry)
		gf.ID = f.ID
		gf.Properties = geojson.Properties{
			"label":      f.Label,
			"style":      f.Style,
			"attributes": f.Properties,
		}
		out.Append(gf)
	}
	return out
}
