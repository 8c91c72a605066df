// Package export writes outlet snapshots in the formats supported by the export tool.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/asetsglobalindo/pertare-outlet-locator/internal/geo"
	"github.com/asetsglobalindo/pertare-outlet-locator/internal/outlet"

	"github.com/sfomuseum/go-csvdict/v2"
	"gopkg.in/yaml.v3"
)

// Supported formats.
const (
	FormatJSON    = "json"
	FormatYAML    = "yaml"
	FormatGeoJSON = "geojson"
	FormatCSV     = "csv"
)

// Record is one exported outlet with its merged detail.
type Record struct {
	ID               string   `json:"id" yaml:"id"`
	Name             string   `json:"name" yaml:"name"`
	Address          string   `json:"address" yaml:"address"`
	Lat              float64  `json:"lat" yaml:"lat"`
	Long             float64  `json:"long" yaml:"long"`
	Plottable        bool     `json:"plottable" yaml:"plottable"`
	Code             string   `json:"code,omitempty" yaml:"code,omitempty"`
	OperationalHour  string   `json:"operational_hour,omitempty" yaml:"operational_hour,omitempty"`
	Fuels            []string `json:"fuels" yaml:"fuels"`
	Facilities       []string `json:"facilities" yaml:"facilities"`
	SurroundingAreas []string `json:"surrounding_areas,omitempty" yaml:"surrounding_areas,omitempty"`
	Enrichment       string   `json:"enrichment" yaml:"enrichment"`
	DirectionsURL    string   `json:"directions_url,omitempty" yaml:"directions_url,omitempty"`
}

// NewRecord flattens a detail projection.
func NewRecord(d outlet.Detail) Record {
	return Record{
		ID:               d.Outlet.ID,
		Name:             d.Outlet.Name,
		Address:          d.Outlet.Address,
		Lat:              float64(d.Outlet.Lat),
		Long:             float64(d.Outlet.Long),
		Plottable:        d.Outlet.Plottable(),
		Code:             d.Outlet.Code,
		OperationalHour:  d.Outlet.OperationalHour,
		Fuels:            nonNil(d.Fuels),
		Facilities:       nonNil(d.Facilities),
		SurroundingAreas: d.SurroundingAreas,
		Enrichment:       d.Enrichment.String(),
		DirectionsURL:    d.DirectionsURL,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// Write encodes records to w in the given format.
func Write(w io.Writer, format string, records []Record) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(records); err != nil {
			return err
		}
		return enc.Close()
	case FormatGeoJSON:
		return writeGeoJSON(w, records)
	case FormatCSV:
		return writeCSV(w, records)
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}

// writeGeoJSON emits one point feature per plottable record.
func writeGeoJSON(w io.Writer, records []Record) error {
	items := make([]geo.Item, 0, len(records))
	for _, r := range records {
		if !r.Plottable {
			continue
		}
		items = append(items, geo.Item{
			ID:  r.ID,
			Lat: r.Lat,
			Lng: r.Long,
			Properties: map[string]any{
				"name":       r.Name,
				"address":    r.Address,
				"fuels":      r.Fuels,
				"facilities": r.Facilities,
			},
		})
	}

	// Zoom at the cluster limit yields one marker per item.
	fc := geo.FeatureCollection(geo.Cluster(items, geo.MaxZoom, geo.MaxZoom))

	data, err := fc.MarshalJSON()
	if err != nil {
		return err
	}
	_, err = w.Write(append(data, '\n'))
	return err
}

func writeCSV(w io.Writer, records []Record) error {
	wr, err := csvdict.NewWriter(w)
	if err != nil {
		return fmt.Errorf("create csv writer: %w", err)
	}

	for _, r := range records {
		row := map[string]string{
			"id":                r.ID,
			"name":              r.Name,
			"address":           r.Address,
			"lat":               strconv.FormatFloat(r.Lat, 'f', -1, 64),
			"long":              strconv.FormatFloat(r.Long, 'f', -1, 64),
			"code":              r.Code,
			"operational_hour":  r.OperationalHour,
			"fuels":             strings.Join(r.Fuels, ", "),
			"facilities":        strings.Join(r.Facilities, ", "),
			"surrounding_areas": strings.Join(r.SurroundingAreas, ", "),
			"enrichment":        r.Enrichment,
			"directions_url":    r.DirectionsURL,
		}
		if err := wr.WriteRow(row); err != nil {
			return fmt.Errorf("write csv row %s: %w", r.ID, err)
		}
	}

	wr.Flush()
	return nil
}
