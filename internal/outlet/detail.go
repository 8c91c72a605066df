package outlet

// Detail is the read-only projection rendered in the detail panel.
// It is recomputed from the outlet and its enrichment on every read.
type Detail struct {
	Outlet           Outlet          `json:"outlet"`
	Fuels            []string        `json:"fuels"`
	Facilities       []string        `json:"facilities"`
	SurroundingAreas []string        `json:"surrounding_areas"`
	Enrichment       EnrichmentState `json:"enrichment"`
	DirectionsURL    string          `json:"directions_url,omitempty"`
}

// NewDetail merges primary outlet data with enrichment. While enrichment is
// pending or unknown only primary data is shown, so stale details from a
// previous outlet can never leak in.
func NewDetail(o Outlet, e Enrichment) Detail {
	d := Detail{
		Outlet:        o,
		Fuels:         o.Fuels(),
		Enrichment:    e.State,
		DirectionsURL: o.DirectionsURL(),
	}

	if !e.State.Settled() {
		d.Facilities = MergeFacilities(o.Facilities(), nil)
		return d
	}

	d.Facilities = MergeFacilities(o.Facilities(), e.Facilities)
	d.SurroundingAreas = append([]string(nil), e.SurroundingAreas...)
	return d
}
