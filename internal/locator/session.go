// Package locator composes search, selection and the map into one viewer
// session and renders it.
package locator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/asetsglobalindo/pertare-outlet-locator/internal/mapview"
	"github.com/asetsglobalindo/pertare-outlet-locator/internal/metrics"
	"github.com/asetsglobalindo/pertare-outlet-locator/internal/outlet"
	"github.com/asetsglobalindo/pertare-outlet-locator/internal/search"
	"github.com/asetsglobalindo/pertare-outlet-locator/internal/selection"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrUnknownOutlet is returned when an intent names an outlet that is not in
// the current result list.
var ErrUnknownOutlet = errors.New("outlet not in current results")

// Backend serves both outlet searches and enrichment lookups.
type Backend interface {
	search.Searcher
	selection.Enricher
}

// Options configures every session created from it.
type Options struct {
	Debounce          time.Duration
	SearchLimit       int
	ListLimit         int
	EnrichmentTimeout time.Duration
	Map               mapview.Options
	Metrics           *metrics.Metrics
	Logger            *zerolog.Logger
}

// Session is the locator state of one viewer.
type Session struct {
	id        string
	listLimit int
	log       zerolog.Logger

	search    *search.Controller
	selection *selection.Controller
	mapview   *mapview.Model

	version atomic.Uint64

	mu       sync.Mutex
	locale   Locale
	listOpen bool
}

// NewSession wires the controllers together and issues the initial
// unfiltered search.
func NewSession(ctx context.Context, id string, b Backend, locale Locale, opts Options) *Session {
	l := log.Logger
	if opts.Logger != nil {
		l = *opts.Logger
	}
	l = l.With().Str("session", id).Logger()

	listLimit := opts.ListLimit
	if listLimit <= 0 {
		listLimit = 20
	}

	s := &Session{
		id:        id,
		listLimit: listLimit,
		log:       l,
		locale:    locale,
	}

	s.search = search.New(ctx, b, search.Options{
		Debounce: opts.Debounce,
		Limit:    opts.SearchLimit,
		Metrics:  opts.Metrics,
		Logger:   &l,
		OnChange: func(search.State) { s.touch() },
	})
	s.selection = selection.New(ctx, b, selection.Options{
		Timeout:  opts.EnrichmentTimeout,
		Metrics:  opts.Metrics,
		Logger:   &l,
		OnChange: func(selection.State) { s.touch() },
	})

	mapOpts := opts.Map
	mapOpts.Logger = &l
	s.mapview = mapview.New(s.selection, mapOpts)

	s.search.SearchNow()
	return s
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// Version increases on every state change visible in the view.
func (s *Session) Version() uint64 {
	return s.version.Load()
}

func (s *Session) touch() {
	s.version.Add(1)
}

// Locale returns the injected label language.
func (s *Session) Locale() Locale {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.locale
}

// SetLocale injects the viewer's language.
func (s *Session) SetLocale(l Locale) {
	s.mu.Lock()
	changed := s.locale != l
	s.locale = l
	s.mu.Unlock()

	if changed {
		s.touch()
	}
}

// SetInput forwards a keystroke to the debounced search.
func (s *Session) SetInput(raw string) {
	s.search.SetInput(raw)
}

// SearchNow searches for the current input without waiting for the debounce.
func (s *Session) SearchNow() {
	s.search.SearchNow()
}

// SelectFromList flies to the outlet and selects it right away.
func (s *Session) SelectFromList(id string) error {
	o, ok := outlet.Find(s.search.Results(), id)
	if !ok {
		return ErrUnknownOutlet
	}

	s.mapview.CancelPending()
	s.mapview.FocusOn(o)
	s.selection.Select(o)
	return nil
}

// ClickMarker flies to the outlet and selects it after the fly delay.
func (s *Session) ClickMarker(id string) error {
	o, ok := outlet.Find(s.search.Results(), id)
	if !ok {
		return ErrUnknownOutlet
	}

	s.mapview.ClickMarker(o)
	s.touch()
	return nil
}

// Deselect returns the panel to the result list.
func (s *Session) Deselect() {
	s.mapview.CancelPending()
	s.selection.Deselect()
}

// OpenList shows the result panel on narrow screens.
func (s *Session) OpenList() {
	s.setListOpen(true)
}

// CloseList hides the result panel on narrow screens.
func (s *Session) CloseList() {
	s.setListOpen(false)
}

// ToggleList flips the result panel.
func (s *Session) ToggleList() {
	s.mu.Lock()
	s.listOpen = !s.listOpen
	s.mu.Unlock()
	s.touch()
}

func (s *Session) setListOpen(open bool) {
	s.mu.Lock()
	changed := s.listOpen != open
	s.listOpen = open
	s.mu.Unlock()

	if changed {
		s.touch()
	}
}

// SetViewport records the client map position.
func (s *Session) SetViewport(center mapview.LatLng, zoom float64) {
	before := s.mapview.Viewport()
	s.mapview.Pan(center)
	s.mapview.SetZoom(zoom)

	if s.mapview.Viewport() != before {
		s.touch()
	}
}

// Markers returns the marker layer for the current state.
func (s *Session) Markers() mapview.Layer {
	return s.mapview.Layer(s.search.Results(), s.selection.Current())
}

// Wait blocks until no search or enrichment request is in flight.
func (s *Session) Wait() {
	s.search.Wait()
	s.selection.Wait()
}

// Close cancels all pending work of the session.
func (s *Session) Close() {
	s.mapview.Close()
	s.search.Close()
	s.selection.Close()
	s.log.Debug().Msg("Session closed")
}
