package road

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

// Footprint returns the road centre line projected onto the ground plane,
// using X as the first coordinate and Z as the second.
func (r *Road) Footprint() orb.LineString {
	ls := make(orb.LineString, 0, len(r.waypoints))
	for _, w := range r.waypoints {
		ls = append(ls, orb.Point{w.X, w.Z})
	}
	return ls
}

// GeoJSON exports the network as a FeatureCollection with one LineString per
// road. Roads with fewer than two waypoints are skipped.
func (n *Network) GeoJSON() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	var bound orb.Bound
	first := true
	for _, r := range n.Roads() {
		if len(r.waypoints) < 2 {
			continue
		}
		ls := r.Footprint()

		f := geojson.NewFeature(ls)
		f.ID = r.id
		f.Properties["id"] = r.id
		f.Properties["one_way"] = r.oneWay
		f.Properties["lane_count"] = r.laneCount
		f.Properties["length"] = r.Length()
		f.Properties["footprint_length"] = planar.Length(ls)
		f.Properties["start_links"] = n.Connections(r.id, Start)
		f.Properties["end_links"] = n.Connections(r.id, Finish)
		fc.Append(f)

		if first {
			bound = ls.Bound()
			first = false
		} else {
			bound = bound.Union(ls.Bound())
		}
	}

	if !first {
		fc.BBox = geojson.NewBBox(bound)
	}
	return fc
}
