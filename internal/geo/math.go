package geo

import (
	"math"

	"github.com/paulmach/orb"
)

// MaxLatitude is the Web Mercator latitude limit.
const MaxLatitude = 85.05112878

// Zoom bounds of the slippy map.
const (
	MinZoom = 0
	MaxZoom = 22
)

// Valid reports whether lat/lng can be drawn on a Web Mercator map.
func Valid(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lng) {
		return false
	}
	return lat >= -MaxLatitude && lat <= MaxLatitude && lng >= -180 && lng <= 180
}

// ClampLatitude limits lat to the Web Mercator range.
func ClampLatitude(lat float64) float64 {
	if lat > MaxLatitude {
		return MaxLatitude
	} else if lat < -MaxLatitude {
		return -MaxLatitude
	}
	return lat
}

// Finite reports whether v is neither NaN nor infinite.
func Finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// WrapLongitude folds lng into [-180, 180].
func WrapLongitude(lng float64) float64 {
	if lng >= -180 && lng <= 180 {
		return lng
	}
	lng = math.Mod(lng+180, 360)
	if lng < 0 {
		lng += 360
	}
	return lng - 180
}

// ClampZoom limits z to the supported zoom range.
func ClampZoom(z float64) float64 {
	return math.Max(MinZoom, math.Min(MaxZoom, z))
}

// Centroid averages points in projected Mercator space, so the result sits
// where the eye expects it on the rendered map rather than in raw degrees.
func Centroid(points []orb.Point) orb.Point {
	if len(points) == 0 {
		return orb.Point{}
	}

	var sumX, sumY float64
	for _, p := range points {
		sumX += p.Lon()
		sumY += mercatorY(ClampLatitude(p.Lat()))
	}
	n := float64(len(points))

	return orb.Point{sumX / n, inverseMercatorY(sumY / n)}
}

func mercatorY(lat float64) float64 {
	latRad := lat * math.Pi / 180.0
	return math.Log(math.Tan(math.Pi*0.25 + latRad*0.5))
}

// inverseMercatorY maps a projected y in [-PI..PI] back to degrees.
func inverseMercatorY(y float64) float64 {
	latRad := (2.0 * math.Atan(math.Exp(y))) - (math.Pi * 0.5)
	return ClampLatitude(latRad * (180.0 / math.Pi))
}
