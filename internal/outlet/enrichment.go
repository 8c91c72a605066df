package outlet

import "strings"

// Placeholder is the single list value shown when enrichment was checked but yielded nothing.
const Placeholder = "-"

// EnrichmentState tracks the lifecycle of the secondary data fetch.
type EnrichmentState int

const (
	// EnrichmentUnknown means nothing is selected or nothing was requested.
	EnrichmentUnknown EnrichmentState = iota
	// EnrichmentPending means a fetch is in flight.
	EnrichmentPending
	// EnrichmentReady means the fetch completed, or was not needed.
	EnrichmentReady
	// EnrichmentFailed means the fetch failed; lists hold the placeholder.
	EnrichmentFailed
)

// String implements fmt.Stringer.
func (s EnrichmentState) String() string {
	switch s {
	case EnrichmentPending:
		return "pending"
	case EnrichmentReady:
		return "ready"
	case EnrichmentFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText renders the state name in JSON payloads.
func (s EnrichmentState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name; unrecognised names decode as unknown.
func (s *EnrichmentState) UnmarshalText(text []byte) error {
	switch string(text) {
	case "pending":
		*s = EnrichmentPending
	case "ready":
		*s = EnrichmentReady
	case "failed":
		*s = EnrichmentFailed
	default:
		*s = EnrichmentUnknown
	}
	return nil
}

// Settled reports whether the fetch has finished one way or another.
func (s EnrichmentState) Settled() bool {
	return s == EnrichmentReady || s == EnrichmentFailed
}

// Enrichment is surrounding-area and facility data keyed by an outlet code.
type Enrichment struct {
	State            EnrichmentState `json:"state"`
	SurroundingAreas []string        `json:"surrounding_areas"`
	Facilities       []string        `json:"facilities"`
}

// PendingEnrichment is the state right after a selection change.
func PendingEnrichment() Enrichment {
	return Enrichment{State: EnrichmentPending}
}

// EmptyEnrichment is used for outlets without a code: nothing to fetch.
func EmptyEnrichment() Enrichment {
	return Enrichment{State: EnrichmentReady, SurroundingAreas: []string{}, Facilities: []string{}}
}

// FailedEnrichment carries placeholder lists so a failed lookup never renders as a blank section.
func FailedEnrichment() Enrichment {
	return Enrichment{
		State:            EnrichmentFailed,
		SurroundingAreas: []string{Placeholder},
		Facilities:       []string{Placeholder},
	}
}

// ReadyEnrichment builds a successful result. Empty lists become the placeholder.
func ReadyEnrichment(areas, facilities []string) Enrichment {
	return Enrichment{
		State:            EnrichmentReady,
		SurroundingAreas: orPlaceholder(areas),
		Facilities:       orPlaceholder(facilities),
	}
}

func orPlaceholder(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return []string{Placeholder}
	}
	return out
}

// MergeFacilities returns primary entries in their original order followed by
// enrichment-only entries, deduplicated case-insensitively. A placeholder from
// either source is listed once, last.
func MergeFacilities(primary []string, enrichment []string) []string {
	seen := make(map[string]struct{}, len(primary)+len(enrichment))
	merged := make([]string, 0, len(primary)+len(enrichment))
	placeholder := false

	add := func(v string) {
		v = strings.TrimSpace(v)
		if v == "" {
			return
		}
		if v == Placeholder {
			placeholder = true
			return
		}
		key := strings.ToLower(v)
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		merged = append(merged, v)
	}

	for _, v := range primary {
		add(v)
	}
	for _, v := range enrichment {
		add(v)
	}

	if placeholder {
		merged = append(merged, Placeholder)
	}
	return merged
}
