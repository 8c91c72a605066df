// Package outlet holds the outlet record, its enrichment data and the
// read-only detail projection that reconciles both sources.
package outlet

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/asetsglobalindo/pertare-outlet-locator/internal/geo"
)

// MaxLatitude is the Web Mercator latitude limit; points beyond it cannot be drawn on a tile map.
const MaxLatitude = geo.MaxLatitude

// Coordinate is a degree value that may arrive as a JSON number or a numeric string.
// Anything that does not parse as a finite number decodes to 0.
type Coordinate float64

// UnmarshalJSON implements json.Unmarshaler and never fails.
func (c *Coordinate) UnmarshalJSON(data []byte) error {
	*c = 0

	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*c = finite(num)
		return nil
	}

	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*c = ParseCoordinate(str)
	}

	return nil
}

// ParseCoordinate coerces a string to a coordinate, yielding 0 on invalid input.
func ParseCoordinate(s string) Coordinate {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return finite(v)
}

func finite(v float64) Coordinate {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return Coordinate(v)
}

// Outlet is a physical location returned by the location API.
type Outlet struct {
	ID              string     `json:"_id" yaml:"id"`
	Name            string     `json:"name" yaml:"name"`
	Address         string     `json:"address" yaml:"address"`
	Lat             Coordinate `json:"lat" yaml:"lat"`
	Long            Coordinate `json:"long" yaml:"long"`
	Fuel            string     `json:"fuel,omitempty" yaml:"fuel,omitempty"`
	Facility        string     `json:"facility,omitempty" yaml:"facility,omitempty"`
	OperationalHour string     `json:"operational_hour,omitempty" yaml:"operational_hour,omitempty"`
	Code            string     `json:"code,omitempty" yaml:"code,omitempty"`
}

// UnmarshalJSON accepts both "_id" and "id" as the identity key.
func (o *Outlet) UnmarshalJSON(data []byte) error {
	type plain Outlet
	var aux struct {
		plain
		AltID string `json:"id"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	*o = Outlet(aux.plain)
	if o.ID == "" {
		o.ID = aux.AltID
	}
	return nil
}

// Plottable reports whether the outlet has usable map coordinates.
// Missing or invalid coordinates collapse to 0,0 and are not plottable.
func (o Outlet) Plottable() bool {
	lat, lng := float64(o.Lat), float64(o.Long)
	if lat == 0 && lng == 0 {
		return false
	}
	return geo.Valid(lat, lng)
}

// Fuels splits the comma-joined fuel field.
func (o Outlet) Fuels() []string {
	return SplitList(o.Fuel)
}

// Facilities splits the comma-joined facility field.
func (o Outlet) Facilities() []string {
	return SplitList(o.Facility)
}

// DirectionsURL links to turn-by-turn directions, or is empty for unplottable outlets.
func (o Outlet) DirectionsURL() string {
	if !o.Plottable() {
		return ""
	}
	return "https://www.google.com/maps/place/" +
		strconv.FormatFloat(float64(o.Lat), 'f', -1, 64) + "," +
		strconv.FormatFloat(float64(o.Long), 'f', -1, 64)
}

// SplitList splits a comma-joined list, trimming values and dropping empties.
func SplitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}

	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Find returns the outlet with the given id.
func Find(outlets []Outlet, id string) (Outlet, bool) {
	for _, o := range outlets {
		if o.ID == id {
			return o, true
		}
	}
	return Outlet{}, false
}
