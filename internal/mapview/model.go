// Package mapview keeps the map viewport in step with search results and
// the selected outlet.
package mapview

import (
	"math"
	"sync"
	"time"

	"github.com/asetsglobalindo/pertare-outlet-locator/internal/geo"
	"github.com/asetsglobalindo/pertare-outlet-locator/internal/outlet"

	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LatLng is a map position in degrees.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Viewport is the visible map area.
type Viewport struct {
	Center LatLng  `json:"center"`
	Zoom   float64 `json:"zoom"`
}

// FlyTo asks the client map to animate to a position. Seq increases with
// every command so the client can tell a new request from a repeated one.
type FlyTo struct {
	Seq    uint64  `json:"seq"`
	Center LatLng  `json:"center"`
	Zoom   float64 `json:"zoom"`
}

// Selector receives the selection made by clicking a marker.
type Selector interface {
	Select(o outlet.Outlet)
}

// Options configures a Model.
type Options struct {
	Center         LatLng
	Zoom           float64
	FocusZoom      float64
	ClusterMaxZoom int
	// FlyDelay is the pause between starting the fly animation and selecting
	// the clicked outlet.
	FlyDelay time.Duration
	Logger   *zerolog.Logger
}

type timer interface {
	Stop() bool
}

type afterFunc func(d time.Duration, f func()) timer

func realAfterFunc(d time.Duration, f func()) timer {
	return time.AfterFunc(d, f)
}

// Model is the map state of one locator session.
type Model struct {
	mu       sync.Mutex
	opts     Options
	selector Selector
	after    afterFunc
	log      zerolog.Logger

	viewport Viewport
	fly      FlyTo
	flew     bool

	pending timer
	gen     uint64
	closed  bool
}

// New creates a model centred on the configured default viewport.
func New(sel Selector, opts Options) *Model {
	if opts.FocusZoom <= 0 {
		opts.FocusZoom = 15
	}
	if opts.ClusterMaxZoom <= 0 {
		opts.ClusterMaxZoom = 15
	}
	l := log.Logger
	if opts.Logger != nil {
		l = *opts.Logger
	}

	return &Model{
		opts:     opts,
		selector: sel,
		after:    realAfterFunc,
		log:      l,
		viewport: Viewport{
			Center: opts.Center,
			Zoom:   geo.ClampZoom(opts.Zoom),
		},
	}
}

// Viewport returns the current viewport.
func (m *Model) Viewport() Viewport {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.viewport
}

// LastFlyTo returns the most recent fly command, if any.
func (m *Model) LastFlyTo() (FlyTo, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fly, m.flew
}

// FocusOn centres the map on o at the focus zoom. Unplottable outlets are
// ignored and reported as false.
func (m *Model) FocusOn(o outlet.Outlet) bool {
	if !o.Plottable() {
		m.log.Debug().Str("outlet", o.ID).Msg("Ignored focus on unplottable outlet")
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	center := LatLng{Lat: float64(o.Lat), Lng: float64(o.Long)}
	m.viewport = Viewport{Center: center, Zoom: m.opts.FocusZoom}
	m.fly = FlyTo{Seq: m.fly.Seq + 1, Center: center, Zoom: m.opts.FocusZoom}
	m.flew = true
	return true
}

// ClickMarker flies to o and selects it once the fly delay has elapsed.
// A newer click, CancelPending or Close drops the delayed selection.
func (m *Model) ClickMarker(o outlet.Outlet) bool {
	if !m.FocusOn(o) {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return false
	}
	m.stopPendingLocked()
	gen := m.gen

	m.pending = m.after(m.opts.FlyDelay, func() {
		m.mu.Lock()
		if gen != m.gen || m.closed {
			m.mu.Unlock()
			return
		}
		m.pending = nil
		m.mu.Unlock()

		m.selector.Select(o)
	})
	return true
}

// CancelPending drops a delayed marker selection that has not fired yet.
func (m *Model) CancelPending() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopPendingLocked()
}

// SelectPending reports whether a marker selection is waiting on the fly delay.
func (m *Model) SelectPending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending != nil
}

// SetZoom records a zoom change made on the client map.
func (m *Model) SetZoom(z float64) {
	if !geo.Finite(z) {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.viewport.Zoom = geo.ClampZoom(z)
}

// Pan records a centre change made on the client map.
func (m *Model) Pan(c LatLng) {
	if !geo.Finite(c.Lat) || !geo.Finite(c.Lng) {
		return
	}
	center := LatLng{
		Lat: geo.ClampLatitude(c.Lat),
		Lng: geo.WrapLongitude(c.Lng),
	}
	if !geo.Finite(center.Lng) {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.viewport.Center = center
}

// Close drops any delayed selection. Later clicks only move the map.
func (m *Model) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopPendingLocked()
	m.closed = true
}

func (m *Model) stopPendingLocked() {
	m.gen++
	if m.pending != nil {
		m.pending.Stop()
		m.pending = nil
	}
}

// Layer is the marker layer for one render.
type Layer struct {
	Zoom     int          `json:"zoom"`
	Markers  []geo.Marker `json:"-"`
	Selected string       `json:"selected,omitempty"`
}

// Layer builds the markers for results at the current zoom. With a selected
// outlet only that outlet is shown, and only if it is among the results.
func (m *Model) Layer(results []outlet.Outlet, selected *outlet.Outlet) Layer {
	m.mu.Lock()
	zoom := int(math.Floor(m.viewport.Zoom))
	maxZoom := m.opts.ClusterMaxZoom
	m.mu.Unlock()

	l := Layer{Zoom: zoom}
	if selected != nil {
		l.Selected = selected.ID
	}

	items := make([]geo.Item, 0, len(results))
	for _, o := range results {
		if !o.Plottable() {
			continue
		}
		if selected != nil && o.ID != selected.ID {
			continue
		}
		items = append(items, geo.Item{
			ID:  o.ID,
			Lat: float64(o.Lat),
			Lng: float64(o.Long),
			Properties: map[string]any{
				"name":     o.Name,
				"address":  o.Address,
				"selected": selected != nil,
			},
		})
	}

	l.Markers = geo.Cluster(items, zoom, maxZoom)
	return l
}

// GeoJSON renders the layer for the client map.
func (l Layer) GeoJSON() *geojson.FeatureCollection {
	return geo.FeatureCollection(l.Markers)
}
