// Package geo clusters map markers and renders them as GeoJSON.
package geo

import (
	"github.com/paulmach/orb/geojson"
)

// FeatureCollection renders markers as point features. Clusters carry
// "cluster", "count" and "members"; single markers carry their own
// properties plus "outlet_id".
func FeatureCollection(markers []Marker) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	for _, m := range markers {
		f := geojson.NewFeature(m.Point)
		f.ID = m.ID

		for k, v := range m.Properties {
			f.Properties[k] = v
		}
		f.Properties["cluster"] = m.IsCluster()
		f.Properties["count"] = m.Count
		if m.IsCluster() {
			f.Properties["members"] = m.Members
		} else {
			f.Properties["outlet_id"] = m.ID
		}

		fc.Append(f)
	}

	return fc
}
