// Package server handles HTTP requests and middleware.
package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/asetsglobalindo/pertare-outlet-locator/internal/geo"
	"github.com/asetsglobalindo/pertare-outlet-locator/internal/icon"
	"github.com/asetsglobalindo/pertare-outlet-locator/internal/locator"
	"github.com/asetsglobalindo/pertare-outlet-locator/internal/mapview"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// HandleHealth reports liveness and the number of live sessions.
func (s *ServerContext) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": s.Sessions.Len(),
	})
}

// HandleIndex serves the locator page rendered for the viewer's session.
func (s *ServerContext) HandleIndex(w http.ResponseWriter, r *http.Request, sess *locator.Session) {
	var buf bytes.Buffer
	if err := s.Renderer.Page(&buf, sess.View()); err != nil {
		log.Error().Err(err).Str("session", sess.ID()).Msg("Failed to render locator page")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(buf.Bytes())
}

// HandlePanel serves the side panel fragment: result list or outlet detail.
func (s *ServerContext) HandlePanel(w http.ResponseWriter, r *http.Request, sess *locator.Session) {
	var buf bytes.Buffer
	if err := s.Renderer.Panel(&buf, sess.View()); err != nil {
		log.Error().Err(err).Str("session", sess.ID()).Msg("Failed to render locator panel")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(buf.Bytes())
}

// HandleView serves the session snapshot as JSON.
func (s *ServerContext) HandleView(w http.ResponseWriter, r *http.Request, sess *locator.Session) {
	writeView(w, sess)
}

// HandleMarkers serves the current marker layer as GeoJSON.
func (s *ServerContext) HandleMarkers(w http.ResponseWriter, r *http.Request, sess *locator.Session) {
	w.Header().Set("Content-Type", "application/geo+json")
	w.Header().Set("Cache-Control", "no-store")
	_ = json.NewEncoder(w).Encode(sess.Markers().GeoJSON())
}

// HandleInput records a keystroke in the search box.
func (s *ServerContext) HandleInput(w http.ResponseWriter, r *http.Request, sess *locator.Session) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_form", "request body is not a valid form")
		return
	}
	sess.SetInput(r.PostFormValue("input"))
	writeView(w, sess)
}

// HandleSearch searches for the current input right away.
func (s *ServerContext) HandleSearch(w http.ResponseWriter, r *http.Request, sess *locator.Session) {
	sess.SearchNow()
	writeView(w, sess)
}

// HandleSelect selects an outlet from the result list.
func (s *ServerContext) HandleSelect(w http.ResponseWriter, r *http.Request, sess *locator.Session) {
	if err := sess.SelectFromList(chi.URLParam(r, "id")); err != nil {
		writeIntentError(w, err)
		return
	}
	writeView(w, sess)
}

// HandleMarkerClick flies to an outlet marker and selects it after the fly delay.
func (s *ServerContext) HandleMarkerClick(w http.ResponseWriter, r *http.Request, sess *locator.Session) {
	if err := sess.ClickMarker(chi.URLParam(r, "id")); err != nil {
		writeIntentError(w, err)
		return
	}
	writeView(w, sess)
}

// HandleDeselect returns to the result list.
func (s *ServerContext) HandleDeselect(w http.ResponseWriter, r *http.Request, sess *locator.Session) {
	sess.Deselect()
	writeView(w, sess)
}

// HandleListOpen shows the result panel on narrow screens.
func (s *ServerContext) HandleListOpen(w http.ResponseWriter, r *http.Request, sess *locator.Session) {
	sess.OpenList()
	writeView(w, sess)
}

// HandleListClose hides the result panel on narrow screens.
func (s *ServerContext) HandleListClose(w http.ResponseWriter, r *http.Request, sess *locator.Session) {
	sess.CloseList()
	writeView(w, sess)
}

type viewportRequest struct {
	Lat  float64 `validate:"gte=-90,lte=90"`
	Lng  float64 `validate:"gte=-1e6,lte=1e6"`
	Zoom float64 `validate:"gte=0,lte=22"`
}

// HandleViewport records where the client map currently is.
func (s *ServerContext) HandleViewport(w http.ResponseWriter, r *http.Request, sess *locator.Session) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_form", "request body is not a valid form")
		return
	}

	var req viewportRequest
	var err error
	parse := func(name string, dst *float64) {
		if err != nil {
			return
		}
		*dst, err = strconv.ParseFloat(r.PostFormValue(name), 64)
		if err != nil {
			err = fmt.Errorf("%s: %w", name, err)
		} else if !geo.Finite(*dst) {
			err = fmt.Errorf("%s: value must be finite", name)
		}
	}
	parse("lat", &req.Lat)
	parse("lng", &req.Lng)
	parse("zoom", &req.Zoom)
	if err == nil {
		err = s.validate.Struct(req)
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_viewport", err.Error())
		return
	}

	sess.SetViewport(mapview.LatLng{Lat: req.Lat, Lng: req.Lng}, req.Zoom)
	writeView(w, sess)
}

// HandleOutletIcon serves the single outlet marker.
func (s *ServerContext) HandleOutletIcon(w http.ResponseWriter, r *http.Request) {
	b, err := s.Icons.Outlet()
	if err != nil {
		log.Error().Err(err).Msg("Failed to render outlet icon")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	serveIcon(w, r, "outlet", b)
}

// HandleClusterIcon serves a cluster badge for the count in the path.
func (s *ServerContext) HandleClusterIcon(w http.ResponseWriter, r *http.Request) {
	count, err := strconv.Atoi(chi.URLParam(r, "count"))
	if err != nil || count < 1 {
		http.NotFound(w, r)
		return
	}

	b, err := s.Badges.Cluster(count)
	if err != nil {
		log.Error().Err(err).Int("count", count).Msg("Failed to render cluster icon")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	serveIcon(w, r, "cluster-"+icon.Label(count), b)
}

// serveIcon writes icon bytes tagged by icon key and encoded size.
func serveIcon(w http.ResponseWriter, r *http.Request, key string, b []byte) {
	etag := fmt.Sprintf(`"%s-%x"`, key, len(b))

	if match := r.Header.Get("If-None-Match"); match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", icon.ContentType)
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	_, _ = w.Write(b)
}

func writeView(w http.ResponseWriter, sess *locator.Session) {
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, sess.View())
}

func writeIntentError(w http.ResponseWriter, err error) {
	if errors.Is(err, locator.ErrUnknownOutlet) {
		writeError(w, http.StatusNotFound, "unknown_outlet", err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, "internal", "internal server error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Int("status", status).Msg("Failed to encode JSON response")
	}
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": msg,
		},
	})
}
