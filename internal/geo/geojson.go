package geo

import (
	"encoding/json"

	"github.com/paulmach/orb/geojson"
)

// crsMember is the legacy named CRS object written alongside the features
// when the collection declares a non-default CRS.
type crsMember struct {
	Type       string `json:"type" yaml:"type"`
	Properties struct {
		Name string `json:"name" yaml:"name"`
	} `json:"properties" yaml:"properties"`
}

// GeoJSON converts the collection to an orb GeoJSON feature collection.
func (fc *FeatureCollection) GeoJSON() *geojson.FeatureCollection {
	out := geojson.NewFeatureCollection()
	for _, f := range fc.features {
		gf := geojson.NewFeature(f.Geometry())
		gf.ID = f.id
		gf.Properties = geojson.Properties(f.Properties())
		out.Append(gf)
	}

	if fc.HasCRS() {
		var crs crsMember
		crs.Type = "name"
		crs.Properties.Name = fc.crs
		out.ExtraMembers = geojson.Properties{"crs": crs}
	}

	return out
}

// MarshalJSON encodes the collection as a GeoJSON FeatureCollection.
func (fc *FeatureCollection) MarshalJSON() ([]byte, error) {
	return json.Marshal(fc.GeoJSON())
}

// Document returns the GeoJSON encoding decoded into plain maps and slices,
// suitable for re-encoding with YAML.
func (fc *FeatureCollection) Document() (map[string]any, error) {
	data, err := fc.MarshalJSON()
	if err != nil {
		return nil, err
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	return doc, nil
}
