package locator

import (
	"github.com/asetsglobalindo/pertare-outlet-locator/internal/mapview"
	"github.com/asetsglobalindo/pertare-outlet-locator/internal/outlet"
	"github.com/asetsglobalindo/pertare-outlet-locator/internal/search"
)

// Mode is what the side panel shows.
type Mode string

const (
	ModeList   Mode = "list"
	ModeDetail Mode = "detail"
)

// Item is one row of the result list.
type Item struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Address   string `json:"address"`
	Plottable bool   `json:"plottable"`
}

// View is a read-only snapshot of a session.
type View struct {
	Version   uint64           `json:"version"`
	Locale    Locale           `json:"locale"`
	Mode      Mode             `json:"mode"`
	ListOpen  bool             `json:"list_open"`
	Search    search.State     `json:"search"`
	Loading   bool             `json:"loading"`
	NoResults bool             `json:"no_results"`
	Items     []Item           `json:"items"`
	Total     int              `json:"total"`
	Detail    *outlet.Detail   `json:"detail,omitempty"`
	Viewport  mapview.Viewport `json:"viewport"`
	FlyTo     *mapview.FlyTo   `json:"fly_to,omitempty"`
	Markers   int              `json:"markers"`
	Labels    Labels           `json:"-"`
}

// View snapshots the session. The panel mode is keyed only on whether an
// outlet is selected; the list shows at most the configured number of rows.
func (s *Session) View() View {
	version := s.Version()

	s.mu.Lock()
	locale, listOpen := s.locale, s.listOpen
	s.mu.Unlock()

	st := s.search.State()
	sel := s.selection.State()

	v := View{
		Version:   version,
		Locale:    locale,
		Mode:      ModeList,
		ListOpen:  listOpen,
		Search:    st,
		Loading:   st.Loading(),
		NoResults: st.NoResults(),
		Items:     []Item{},
		Total:     len(st.Outlets),
		Viewport:  s.mapview.Viewport(),
		Labels:    locale.Labels(),
	}

	if fly, ok := s.mapview.LastFlyTo(); ok {
		v.FlyTo = &fly
	}
	v.Markers = len(s.mapview.Layer(st.Outlets, sel.Outlet).Markers)

	if d, ok := sel.Detail(); ok {
		v.Mode = ModeDetail
		v.Detail = &d
		return v
	}

	n := min(len(st.Outlets), s.listLimit)
	v.Items = make([]Item, n)
	for i, o := range st.Outlets[:n] {
		v.Items[i] = Item{
			ID:        o.ID,
			Name:      o.Name,
			Address:   o.Address,
			Plottable: o.Plottable(),
		}
	}
	return v
}
