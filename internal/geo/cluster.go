package geo

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
)

// gridShift subdivides a map tile into 4x4 cells, roughly 64px on screen.
const gridShift = 2

// Item is a point to place on the map.
type Item struct {
	ID         string
	Lat, Lng   float64
	Properties map[string]any
}

// Marker is either a single item or a cluster of nearby items.
type Marker struct {
	ID         string
	Point      orb.Point
	Count      int
	Members    []string
	Properties map[string]any
}

// IsCluster reports whether the marker stands for more than one item.
func (m Marker) IsCluster() bool {
	return m.Count > 1
}

// Cluster groups items that share a grid cell at the given zoom. At or above
// maxZoom every item gets its own marker. Invalid coordinates are skipped.
// Output order follows the first appearance of each cell in items.
func Cluster(items []Item, zoom, maxZoom int) []Marker {
	if zoom >= maxZoom {
		markers := make([]Marker, 0, len(items))
		for _, it := range items {
			if !Valid(it.Lat, it.Lng) {
				continue
			}
			markers = append(markers, single(it))
		}
		return markers
	}

	z := maptile.Zoom(max(0, zoom) + gridShift)

	type cell struct {
		items  []Item
		points []orb.Point
	}
	var order []maptile.Tile
	cells := make(map[maptile.Tile]*cell)

	for _, it := range items {
		if !Valid(it.Lat, it.Lng) {
			continue
		}
		p := orb.Point{it.Lng, it.Lat}
		t := maptile.At(p, z)

		c, ok := cells[t]
		if !ok {
			c = &cell{}
			cells[t] = c
			order = append(order, t)
		}
		c.items = append(c.items, it)
		c.points = append(c.points, p)
	}

	markers := make([]Marker, 0, len(order))
	for _, t := range order {
		c := cells[t]
		if len(c.items) == 1 {
			markers = append(markers, single(c.items[0]))
			continue
		}

		members := make([]string, len(c.items))
		for i, it := range c.items {
			members[i] = it.ID
		}
		markers = append(markers, Marker{
			ID:      fmt.Sprintf("cluster/%d/%d/%d", t.Z, t.X, t.Y),
			Point:   Centroid(c.points),
			Count:   len(c.items),
			Members: members,
		})
	}

	return markers
}

func single(it Item) Marker {
	return Marker{
		ID:         it.ID,
		Point:      orb.Point{it.Lng, it.Lat},
		Count:      1,
		Members:    []string{it.ID},
		Properties: it.Properties,
	}
}
