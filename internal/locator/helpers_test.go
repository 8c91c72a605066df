package locator

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/asetsglobalindo/pertare-outlet-locator/internal/locationapi"
	"github.com/asetsglobalindo/pertare-outlet-locator/internal/mapview"
	"github.com/asetsglobalindo/pertare-outlet-locator/internal/outlet"
)

type fakeBackend struct {
	mu       sync.Mutex
	results  map[string][]outlet.Outlet
	enrich   map[string]outlet.Enrichment
	gate     chan struct{}
	searches []string
	lookups  []string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		results: map[string][]outlet.Outlet{},
		enrich:  map[string]outlet.Enrichment{},
	}
}

func (b *fakeBackend) SearchOutlets(ctx context.Context, p locationapi.SearchParams) ([]outlet.Outlet, error) {
	b.mu.Lock()
	b.searches = append(b.searches, p.Query)
	gate := b.gate
	res := b.results[p.Query]
	b.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return res, nil
}

func (b *fakeBackend) FetchEnrichment(_ context.Context, code string) outlet.Enrichment {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lookups = append(b.lookups, code)
	if e, ok := b.enrich[code]; ok {
		return e
	}
	return outlet.FailedEnrichment()
}

func testOptions() Options {
	return Options{
		Debounce:          time.Hour,
		SearchLimit:       100,
		ListLimit:         20,
		EnrichmentTimeout: time.Second,
		Map: mapview.Options{
			Center:         mapview.LatLng{Lat: -4.775231, Lng: 109.042028},
			Zoom:           6,
			FocusZoom:      15,
			ClusterMaxZoom: 15,
			FlyDelay:       time.Millisecond,
		},
	}
}

func newTestSession(t *testing.T, b *fakeBackend) *Session {
	t.Helper()
	s := NewSession(context.Background(), "test", b, LocaleEN, testOptions())
	t.Cleanup(s.Close)
	s.Wait()
	return s
}

func makeOutlets(n int) []outlet.Outlet {
	out := make([]outlet.Outlet, n)
	for i := range out {
		out[i] = outlet.Outlet{
			ID:      fmt.Sprintf("o%d", i),
			Name:    fmt.Sprintf("SPBU %d", i),
			Address: fmt.Sprintf("Jalan %d", i),
			Lat:     outlet.Coordinate(-6 - float64(i)*0.1),
			Long:    outlet.Coordinate(106 + float64(i)*0.1),
		}
	}
	return out
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}
