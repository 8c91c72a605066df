// Package search owns the debounced outlet query and its result list.
package search

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/asetsglobalindo/pertare-outlet-locator/internal/locationapi"
	"github.com/asetsglobalindo/pertare-outlet-locator/internal/metrics"
	"github.com/asetsglobalindo/pertare-outlet-locator/internal/outlet"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Status is the search state machine position.
type Status int

const (
	// StatusIdle means no search was issued yet.
	StatusIdle Status = iota
	// StatusSearching means a request is in flight.
	StatusSearching
	// StatusResults means the last request returned outlets.
	StatusResults
	// StatusEmpty means the last request returned no outlets.
	StatusEmpty
	// StatusError means the last request failed.
	StatusError
)

// String implements fmt.Stringer.
func (s Status) String() string {
	switch s {
	case StatusSearching:
		return "searching"
	case StatusResults:
		return "results"
	case StatusEmpty:
		return "empty"
	case StatusError:
		return "error"
	default:
		return "idle"
	}
}

// MarshalText renders the status name in JSON payloads.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a status name.
func (s *Status) UnmarshalText(text []byte) error {
	for st := StatusIdle; st <= StatusError; st++ {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown search status %q", text)
}

// Searcher is the primary outlet search backend.
type Searcher interface {
	SearchOutlets(ctx context.Context, p locationapi.SearchParams) ([]outlet.Outlet, error)
}

// State is a snapshot of the controller.
type State struct {
	Input   string          `json:"input"`
	Query   string          `json:"query"`
	Outlets []outlet.Outlet `json:"-"`
	Status  Status          `json:"status"`
	Seq     uint64          `json:"seq"`
}

// Loading reports whether a request is in flight.
func (s State) Loading() bool {
	return s.Status == StatusSearching
}

// NoResults reports whether the settled result list is empty.
// Failures render the same way as a genuine zero-result search.
func (s State) NoResults() bool {
	return s.Status == StatusEmpty || s.Status == StatusError
}

// Options configures a Controller.
type Options struct {
	Debounce time.Duration
	Limit    int
	Metrics  *metrics.Metrics
	Logger   *zerolog.Logger
	// OnChange is called after every state transition, outside the lock.
	OnChange func(State)
}

// Controller debounces input, issues searches and keeps only the newest result.
type Controller struct {
	mu        sync.Mutex
	searcher  Searcher
	debouncer *Debouncer
	limit     int
	metrics   *metrics.Metrics
	log       zerolog.Logger
	onChange  func(State)

	ctx    context.Context
	stop   context.CancelFunc
	cancel context.CancelFunc
	wg     sync.WaitGroup

	state State
}

// New creates a controller. Searches run under ctx; Close cancels them.
func New(ctx context.Context, s Searcher, opts Options) *Controller {
	limit := opts.Limit
	if limit <= 0 {
		limit = 1000
	}
	l := log.Logger
	if opts.Logger != nil {
		l = *opts.Logger
	}

	ctx, stop := context.WithCancel(ctx)
	return &Controller{
		searcher:  s,
		debouncer: NewDebouncer(opts.Debounce),
		limit:     limit,
		metrics:   opts.Metrics,
		log:       l,
		onChange:  opts.OnChange,
		ctx:       ctx,
		stop:      stop,
	}
}

// SetInput records a keystroke. The raw value updates immediately; the
// search itself waits for the debounce quiet period.
func (c *Controller) SetInput(raw string) {
	c.mu.Lock()
	c.state.Input = raw
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.debouncer.Trigger(c.promote)
	c.notify(snap)
}

// SearchNow skips the debounce and searches for the current raw input.
func (c *Controller) SearchNow() {
	c.debouncer.Cancel()

	c.mu.Lock()
	query := c.state.Input
	c.mu.Unlock()

	c.issue(query)
}

// State returns a snapshot. The outlet slice is shared and must not be modified.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Results returns the current result list.
func (c *Controller) Results() []outlet.Outlet {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Outlets
}

// Wait blocks until no search is in flight.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Close drops any pending debounce and cancels in-flight searches.
func (c *Controller) Close() {
	c.debouncer.Cancel()

	c.mu.Lock()
	c.stop()
	c.mu.Unlock()

	c.wg.Wait()
}

// promote runs when the debounce timer fires.
func (c *Controller) promote() {
	c.mu.Lock()
	query := c.state.Input
	same := normalize(query) == normalize(c.state.Query) &&
		c.state.Status != StatusIdle && c.state.Status != StatusError
	c.mu.Unlock()

	if same {
		return
	}
	c.issue(query)
}

func (c *Controller) issue(query string) {
	c.mu.Lock()
	if c.ctx.Err() != nil {
		c.mu.Unlock()
		return
	}
	if c.cancel != nil {
		c.cancel()
	}

	c.state.Seq++
	token := c.state.Seq
	c.state.Query = query
	c.state.Status = StatusSearching

	ctx, cancel := context.WithCancel(c.ctx)
	c.cancel = cancel
	c.wg.Add(1)
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.log.Debug().
		Str("query", query).
		Uint64("seq", token).
		Msg("Search issued")

	c.notify(snap)

	go func() {
		defer c.wg.Done()
		defer cancel()

		outlets, err := c.searcher.SearchOutlets(ctx, locationapi.SearchParams{
			Query: normalize(query),
			Page:  1,
			Limit: c.limit,
		})
		c.resolve(token, outlets, err)
	}()
}

func (c *Controller) resolve(token uint64, outlets []outlet.Outlet, err error) {
	c.mu.Lock()
	if token != c.state.Seq {
		c.mu.Unlock()
		c.metrics.IncStale(metrics.SourceLocation)
		c.log.Debug().
			Uint64("seq", token).
			Msg("Discarded stale search response")
		return
	}

	switch {
	case err != nil:
		c.state.Outlets = nil
		c.state.Status = StatusError
	case len(outlets) == 0:
		c.state.Outlets = nil
		c.state.Status = StatusEmpty
	default:
		c.state.Outlets = outlets
		c.state.Status = StatusResults
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap)
}

func (c *Controller) snapshotLocked() State {
	return c.state
}

func (c *Controller) notify(s State) {
	if c.onChange != nil {
		c.onChange(s)
	}
}

func normalize(q string) string {
	return strings.TrimSpace(q)
}
