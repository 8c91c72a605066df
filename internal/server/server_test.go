package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/asetsglobalindo/pertare-outlet-locator/internal/config"
	"github.com/asetsglobalindo/pertare-outlet-locator/internal/locationapi"
	"github.com/asetsglobalindo/pertare-outlet-locator/internal/locator"
	"github.com/asetsglobalindo/pertare-outlet-locator/internal/metrics"
	"github.com/asetsglobalindo/pertare-outlet-locator/internal/outlet"
)

type fakeBackend struct {
	outlets []outlet.Outlet
}

func (b *fakeBackend) SearchOutlets(_ context.Context, _ locationapi.SearchParams) ([]outlet.Outlet, error) {
	return b.outlets, nil
}

func (b *fakeBackend) FetchEnrichment(_ context.Context, code string) outlet.Enrichment {
	return outlet.ReadyEnrichment([]string{"Area " + code}, []string{"WiFi"})
}

const testConfig = `
location_api:
  base_url: http://location.test
enrichment:
  url: http://enrichment.test/api/listings/{code}
search:
  debounce: 1h
map:
  fly_delay: 1ms
`

type testServer struct {
	*httptest.Server
	client *http.Client
	store  *locator.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg, err := config.Parse([]byte(testConfig))
	if err != nil {
		t.Fatalf("config: %v", err)
	}

	b := &fakeBackend{outlets: []outlet.Outlet{
		{ID: "o1", Name: "SPBU Satu", Address: "Jalan Satu", Lat: -6.2, Long: 106.8, Code: "C1", Facility: "Toilet"},
		{ID: "o2", Name: "SPBU Dua", Address: "Jalan Dua", Lat: -7.8, Long: 110.4},
	}}
	m := metrics.New()
	store := locator.NewStore(context.Background(), b, SessionOptions(cfg, m), cfg.Session.TTL)
	t.Cleanup(store.Close)

	sc, err := NewServerContext(cfg, store, m)
	if err != nil {
		t.Fatalf("server context: %v", err)
	}

	srv := httptest.NewServer(sc.Router())
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &testServer{Server: srv, client: &http.Client{Jar: jar}, store: store}
}

func (ts *testServer) do(t *testing.T, method, path string, form url.Values) (*http.Response, string) {
	t.Helper()

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequest(method, ts.URL+path, body)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := ts.client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, string(data)
}

// view fetches the session view after in-flight work has settled.
func (ts *testServer) view(t *testing.T) locator.View {
	t.Helper()
	ts.do(t, http.MethodGet, "/api/locator", nil)

	u, _ := url.Parse(ts.URL)
	for _, c := range ts.client.Jar.Cookies(u) {
		if c.Name == SessionCookie {
			if sess, ok := ts.store.Get(c.Value); ok {
				sess.Wait()
			}
		}
	}

	_, body := ts.do(t, http.MethodGet, "/api/locator", nil)
	var v locator.View
	if err := json.Unmarshal([]byte(body), &v); err != nil {
		t.Fatalf("decode view: %v (%s)", err, body)
	}
	return v
}

func TestServer_indexCreatesSession(t *testing.T) {
	ts := newTestServer(t)

	resp, body := ts.do(t, http.MethodGet, "/", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}
	if !strings.Contains(body, "Search location") {
		t.Fatalf("expected english page")
	}

	var found bool
	for _, c := range resp.Cookies() {
		if c.Name == SessionCookie && c.HttpOnly {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected session cookie")
	}

	ts.do(t, http.MethodGet, "/", nil)
	if n := ts.store.Len(); n != 1 {
		t.Fatalf("cookie should reuse the session, got %d sessions", n)
	}
}

func TestServer_localeCookieIsInjected(t *testing.T) {
	ts := newTestServer(t)
	u, _ := url.Parse(ts.URL)
	ts.client.Jar.SetCookies(u, []*http.Cookie{{Name: LocaleCookie, Value: "id"}})

	_, body := ts.do(t, http.MethodGet, "/", nil)
	if !strings.Contains(body, "Cari lokasi") {
		t.Fatalf("expected indonesian page")
	}
	if v := ts.view(t); v.Locale != locator.LocaleID {
		t.Fatalf("expected id locale, got %s", v.Locale)
	}
}

func TestServer_selectAndDeselect(t *testing.T) {
	ts := newTestServer(t)
	if v := ts.view(t); v.Total != 2 {
		t.Fatalf("expected initial results, got %+v", v)
	}

	resp, _ := ts.do(t, http.MethodPost, "/api/locator/outlets/o1/select", url.Values{})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}

	v := ts.view(t)
	if v.Mode != locator.ModeDetail || v.Detail == nil || v.Detail.Outlet.ID != "o1" {
		t.Fatalf("expected detail for o1, got %+v", v)
	}
	if len(v.Detail.SurroundingAreas) != 1 || v.Detail.SurroundingAreas[0] != "Area C1" {
		t.Fatalf("expected enrichment, got %+v", v.Detail)
	}

	_, panel := ts.do(t, http.MethodGet, "/api/locator/panel", nil)
	if !strings.Contains(panel, "Area C1") {
		t.Fatalf("panel should show the detail, got %s", panel)
	}

	ts.do(t, http.MethodDelete, "/api/locator/selection", nil)
	if v = ts.view(t); v.Mode != locator.ModeList {
		t.Fatalf("expected list mode, got %s", v.Mode)
	}
}

func TestServer_unknownOutlet(t *testing.T) {
	ts := newTestServer(t)

	resp, body := ts.do(t, http.MethodPost, "/api/locator/outlets/nope/select", url.Values{})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal([]byte(body), &payload); err != nil || payload.Error.Code != "unknown_outlet" {
		t.Fatalf("unexpected error body %s", body)
	}
}

func TestServer_inputAndList(t *testing.T) {
	ts := newTestServer(t)

	ts.do(t, http.MethodPost, "/api/locator/input", url.Values{"input": {"satu"}})
	ts.do(t, http.MethodPost, "/api/locator/list/open", url.Values{})

	v := ts.view(t)
	if v.Search.Input != "satu" || !v.ListOpen {
		t.Fatalf("unexpected view %+v", v)
	}

	ts.do(t, http.MethodPost, "/api/locator/search", url.Values{})
	ts.do(t, http.MethodPost, "/api/locator/list/close", url.Values{})
	if v = ts.view(t); v.Search.Query != "satu" || v.ListOpen {
		t.Fatalf("unexpected view %+v", v)
	}
}

func TestServer_viewport(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := ts.do(t, http.MethodPost, "/api/locator/viewport", url.Values{"lat": {"-6"}, "lng": {"107"}, "zoom": {"9"}})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}
	if v := ts.view(t); v.Viewport.Zoom != 9 || v.Viewport.Center.Lng != 107 {
		t.Fatalf("viewport not applied: %+v", v.Viewport)
	}

	resp, _ = ts.do(t, http.MethodPost, "/api/locator/viewport", url.Values{"lat": {"95"}, "lng": {"0"}, "zoom": {"9"}})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for out of range latitude, got %d", resp.StatusCode)
	}
	resp, _ = ts.do(t, http.MethodPost, "/api/locator/viewport", url.Values{"lat": {"x"}})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for garbage, got %d", resp.StatusCode)
	}

	for _, lng := range []string{"Inf", "-Inf", "NaN", "1e300"} {
		resp, _ = ts.do(t, http.MethodPost, "/api/locator/viewport", url.Values{"lat": {"0"}, "lng": {lng}, "zoom": {"6"}})
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected 400 for lng=%s, got %d", lng, resp.StatusCode)
		}
	}
	if v := ts.view(t); v.Viewport.Zoom != 9 || v.Viewport.Center.Lng != 107 {
		t.Fatalf("rejected viewport leaked into the session: %+v", v.Viewport)
	}
}

func TestServer_markers(t *testing.T) {
	ts := newTestServer(t)
	ts.view(t)

	resp, body := ts.do(t, http.MethodGet, "/api/locator/markers.geojson", nil)
	if ct := resp.Header.Get("Content-Type"); ct != "application/geo+json" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if !strings.Contains(body, `"FeatureCollection"`) {
		t.Fatalf("unexpected body %s", body)
	}
}

func TestServer_icons(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := ts.do(t, http.MethodGet, "/icons/outlet.webp", nil)
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "image/webp" {
		t.Fatalf("unexpected icon response %d %q", resp.StatusCode, resp.Header.Get("Content-Type"))
	}

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/icons/outlet.webp", nil)
	req.Header.Set("If-None-Match", resp.Header.Get("ETag"))
	cached, err := ts.client.Do(req)
	if err != nil {
		t.Fatalf("conditional request: %v", err)
	}
	cached.Body.Close()
	if cached.StatusCode != http.StatusNotModified {
		t.Fatalf("expected 304, got %d", cached.StatusCode)
	}

	if resp, _ = ts.do(t, http.MethodGet, "/icons/cluster/12.webp", nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected cluster icon status %d", resp.StatusCode)
	}
	if resp, _ = ts.do(t, http.MethodGet, "/icons/cluster/zero.webp", nil); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for a bad count, got %d", resp.StatusCode)
	}
}

func TestServer_healthAndMetrics(t *testing.T) {
	ts := newTestServer(t)

	resp, body := ts.do(t, http.MethodGet, "/healthz", nil)
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, `"status":"ok"`) {
		t.Fatalf("unexpected health %d %s", resp.StatusCode, body)
	}

	_, body = ts.do(t, http.MethodGet, "/metrics", nil)
	if !strings.Contains(body, "locator_http_requests_total") {
		t.Fatalf("expected request metrics, got %s", body)
	}
}
