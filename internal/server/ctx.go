package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/asetsglobalindo/pertare-outlet-locator/internal/config"
	"github.com/asetsglobalindo/pertare-outlet-locator/internal/icon"
	"github.com/asetsglobalindo/pertare-outlet-locator/internal/locator"
	"github.com/asetsglobalindo/pertare-outlet-locator/internal/mapview"
	"github.com/asetsglobalindo/pertare-outlet-locator/internal/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
)

// Cookie names shared with the rest of the site.
const (
	SessionCookie = "locator_session"
	LocaleCookie  = "NEXT_LOCALE"
)

// Icon pixel sizes; they match the sizes the client script requests.
const (
	outletIconSize  = 32
	clusterIconSize = 40
)

// ServerContext holds dependencies for request handlers.
type ServerContext struct {
	Config   *config.Config
	Sessions *locator.Store
	Renderer *locator.Renderer
	Icons    *icon.Renderer
	Badges   *icon.Renderer
	Metrics  *metrics.Metrics
	// SecureCookies marks the session cookie Secure; enable behind HTTPS.
	SecureCookies bool

	validate *validator.Validate
}

// SessionOptions derives the per-session locator settings from the configuration.
func SessionOptions(cfg *config.Config, m *metrics.Metrics) locator.Options {
	return locator.Options{
		Debounce:          cfg.Search.Debounce,
		SearchLimit:       cfg.Search.Limit,
		ListLimit:         cfg.Search.ListLimit,
		EnrichmentTimeout: cfg.Enrichment.Timeout,
		Map: mapview.Options{
			Center:         mapview.LatLng{Lat: cfg.Map.Center.Lat, Lng: cfg.Map.Center.Lng},
			Zoom:           float64(cfg.Map.Zoom),
			FocusZoom:      float64(cfg.Map.FocusZoom),
			ClusterMaxZoom: cfg.Map.ClusterMaxZoom,
			FlyDelay:       cfg.Map.FlyDelay,
		},
		Metrics: m,
	}
}

// NewServerContext prepares the page renderer and icon caches.
func NewServerContext(cfg *config.Config, store *locator.Store, m *metrics.Metrics) (*ServerContext, error) {
	renderer, err := locator.NewRenderer(locator.MapConfig{
		TileURL:     cfg.Map.TileURL,
		Attribution: cfg.Map.Attribution,
	})
	if err != nil {
		return nil, fmt.Errorf("prepare page renderer: %w", err)
	}

	log.Info().
		Str("locale", cfg.Locale).
		Str("tile_url", cfg.Map.TileURL).
		Dur("session_ttl", cfg.Session.TTL).
		Msg("Server context initialized successfully")

	return &ServerContext{
		Config:   cfg,
		Sessions: store,
		Renderer: renderer,
		Icons:    icon.NewRenderer(outletIconSize),
		Badges:   icon.NewRenderer(clusterIconSize),
		Metrics:  m,
		validate: validator.New(),
	}, nil
}

// Router wires every route of the locator service.
func (s *ServerContext) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.RequestLogger)

	r.Get("/healthz", s.HandleHealth)
	r.Method(http.MethodGet, "/metrics", s.Metrics.Handler())

	r.Route("/icons", func(r chi.Router) {
		r.Get("/outlet.webp", s.HandleOutletIcon)
		r.Get("/cluster/{count}.webp", s.HandleClusterIcon)
	})

	r.Get("/", s.withSession(s.HandleIndex))

	r.Route("/api/locator", func(r chi.Router) {
		r.Use(middleware.Timeout(15 * time.Second))

		r.Get("/", s.withSession(s.HandleView))
		r.Get("/panel", s.withSession(s.HandlePanel))
		r.Get("/markers.geojson", s.withSession(s.HandleMarkers))

		r.Post("/input", s.withSession(s.HandleInput))
		r.Post("/search", s.withSession(s.HandleSearch))
		r.Post("/outlets/{id}/select", s.withSession(s.HandleSelect))
		r.Post("/markers/{id}/click", s.withSession(s.HandleMarkerClick))
		r.Delete("/selection", s.withSession(s.HandleDeselect))
		r.Post("/list/open", s.withSession(s.HandleListOpen))
		r.Post("/list/close", s.withSession(s.HandleListClose))
		r.Post("/viewport", s.withSession(s.HandleViewport))
	})

	return r
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, sess *locator.Session)

// withSession resolves the viewer session from its cookie, creating one if
// needed, and injects the locale from the site-wide locale cookie.
func (s *ServerContext) withSession(next sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		locale := locator.ParseLocale(s.Config.Locale)
		if c, err := r.Cookie(LocaleCookie); err == nil {
			locale = locator.ParseLocale(c.Value)
		}

		var id string
		if c, err := r.Cookie(SessionCookie); err == nil {
			id = c.Value
		}

		sess, created := s.Sessions.GetOrCreate(id, locale)
		if created {
			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookie,
				Value:    sess.ID(),
				Path:     "/",
				MaxAge:   int(s.Config.Session.TTL.Seconds()),
				HttpOnly: true,
				Secure:   s.SecureCookies,
				SameSite: http.SameSiteLaxMode,
			})
			log.Debug().
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("session", sess.ID()).
				Msg("New locator session")
		}
		sess.SetLocale(locale)

		next(w, r, sess)
	}
}
