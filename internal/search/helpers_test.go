package search

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/asetsglobalindo/pertare-outlet-locator/internal/locationapi"
	"github.com/asetsglobalindo/pertare-outlet-locator/internal/outlet"
)

type fakeTimer struct {
	mu      *sync.Mutex
	fn      func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	was := !t.stopped && !t.fired
	t.stopped = true
	return was
}

// fakeClock records timers instead of scheduling them.
type fakeClock struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (c *fakeClock) after(_ time.Duration, fn func()) timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{mu: &c.mu, fn: fn}
	c.timers = append(c.timers, t)
	return t
}

// fire runs every timer that is neither stopped nor already fired.
func (c *fakeClock) fire() int {
	c.mu.Lock()
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	for _, t := range due {
		t.fn()
	}
	return len(due)
}

type fakeSearcher struct {
	mu      sync.Mutex
	calls   []string
	gates   map[string]chan struct{}
	results map[string][]outlet.Outlet
	errs    map[string]error
}

func newFakeSearcher() *fakeSearcher {
	return &fakeSearcher{
		gates:   map[string]chan struct{}{},
		results: map[string][]outlet.Outlet{},
		errs:    map[string]error{},
	}
}

// gate makes searches for q block until release is called.
func (f *fakeSearcher) gate(q string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gates[q] = make(chan struct{})
}

func (f *fakeSearcher) release(q string) {
	f.mu.Lock()
	ch := f.gates[q]
	f.mu.Unlock()
	close(ch)
}

func (f *fakeSearcher) SearchOutlets(_ context.Context, p locationapi.SearchParams) ([]outlet.Outlet, error) {
	f.mu.Lock()
	f.calls = append(f.calls, p.Query)
	gate := f.gates[p.Query]
	res := f.results[p.Query]
	err := f.errs[p.Query]
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	return res, err
}

func (f *fakeSearcher) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func newTestController(t *testing.T, s Searcher) (*Controller, *fakeClock) {
	t.Helper()
	clock := &fakeClock{}
	c := New(context.Background(), s, Options{Debounce: time.Second, Limit: 25})
	c.debouncer.after = clock.after
	t.Cleanup(c.Close)
	return c, clock
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
