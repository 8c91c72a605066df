// Package selection tracks the selected outlet and orchestrates the
// enrichment lookup that accompanies it.
package selection

import (
	"context"
	"sync"
	"time"

	"github.com/asetsglobalindo/pertare-outlet-locator/internal/metrics"
	"github.com/asetsglobalindo/pertare-outlet-locator/internal/outlet"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Enricher fetches secondary data for an outlet code. It must not fail: any
// problem is reported as an outlet.EnrichmentFailed result.
type Enricher interface {
	FetchEnrichment(ctx context.Context, code string) outlet.Enrichment
}

// State is a snapshot of the selection.
type State struct {
	Outlet     *outlet.Outlet
	Enrichment outlet.Enrichment
}

// Selected reports whether an outlet is selected.
func (s State) Selected() bool {
	return s.Outlet != nil
}

// Detail merges the selected outlet with its enrichment.
func (s State) Detail() (outlet.Detail, bool) {
	if s.Outlet == nil {
		return outlet.Detail{}, false
	}
	return outlet.NewDetail(*s.Outlet, s.Enrichment), true
}

// Options configures a Controller.
type Options struct {
	// Timeout bounds each enrichment lookup; zero means no extra bound.
	Timeout  time.Duration
	Metrics  *metrics.Metrics
	Logger   *zerolog.Logger
	OnChange func(State)
}

// Controller owns the selected outlet.
type Controller struct {
	mu       sync.Mutex
	enricher Enricher
	timeout  time.Duration
	metrics  *metrics.Metrics
	log      zerolog.Logger
	onChange func(State)

	ctx    context.Context
	stop   context.CancelFunc
	cancel context.CancelFunc
	wg     sync.WaitGroup

	token uint64
	state State
}

// New creates a controller. Lookups run under ctx; Close cancels them.
func New(ctx context.Context, e Enricher, opts Options) *Controller {
	l := log.Logger
	if opts.Logger != nil {
		l = *opts.Logger
	}

	ctx, stop := context.WithCancel(ctx)
	return &Controller{
		enricher: e,
		timeout:  opts.Timeout,
		metrics:  opts.Metrics,
		log:      l,
		onChange: opts.OnChange,
		ctx:      ctx,
		stop:     stop,
	}
}

// Select makes o the selected outlet. Enrichment is reset before this call
// returns, so details of a previously selected outlet are never shown under
// the new name. Outlets without a code get empty enrichment and no lookup.
func (c *Controller) Select(o outlet.Outlet) {
	c.mu.Lock()
	c.supersedeLocked()
	token := c.token

	selected := o
	c.state.Outlet = &selected

	if o.Code == "" || c.ctx.Err() != nil {
		c.state.Enrichment = outlet.EmptyEnrichment()
		snap := c.state
		c.mu.Unlock()
		c.notify(snap)
		return
	}

	c.state.Enrichment = outlet.PendingEnrichment()

	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if c.timeout > 0 {
		ctx, cancel = context.WithTimeout(c.ctx, c.timeout)
	} else {
		ctx, cancel = context.WithCancel(c.ctx)
	}
	c.cancel = cancel
	c.wg.Add(1)
	snap := c.state
	c.mu.Unlock()

	c.log.Debug().
		Str("outlet", o.ID).
		Str("code", o.Code).
		Uint64("token", token).
		Msg("Enrichment requested")

	c.notify(snap)

	go func() {
		defer c.wg.Done()
		defer cancel()

		c.resolve(token, o.ID, c.enricher.FetchEnrichment(ctx, o.Code))
	}()
}

// Deselect clears the selection and abandons any in-flight lookup.
func (c *Controller) Deselect() {
	c.mu.Lock()
	c.supersedeLocked()
	c.state = State{}
	snap := c.state
	c.mu.Unlock()

	c.notify(snap)
}

// State returns a snapshot.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Current returns the selected outlet, or nil.
func (c *Controller) Current() *outlet.Outlet {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Outlet
}

// Detail returns the merged projection of the current selection.
func (c *Controller) Detail() (outlet.Detail, bool) {
	return c.State().Detail()
}

// Wait blocks until no lookup is in flight.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Close cancels in-flight lookups and waits for them to return.
func (c *Controller) Close() {
	c.mu.Lock()
	c.supersedeLocked()
	c.stop()
	c.mu.Unlock()

	c.wg.Wait()
}

func (c *Controller) supersedeLocked() {
	c.token++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

func (c *Controller) resolve(token uint64, outletID string, e outlet.Enrichment) {
	if !e.State.Settled() {
		e = outlet.FailedEnrichment()
	}

	c.mu.Lock()
	if token != c.token || c.state.Outlet == nil || c.state.Outlet.ID != outletID {
		c.mu.Unlock()
		c.metrics.IncStale(metrics.SourceEnrichment)
		c.log.Debug().
			Str("outlet", outletID).
			Uint64("token", token).
			Msg("Discarded superseded enrichment")
		return
	}

	c.state.Enrichment = e
	snap := c.state
	c.mu.Unlock()

	c.log.Debug().
		Str("outlet", outletID).
		Stringer("state", e.State).
		Msg("Enrichment settled")

	c.notify(snap)
}

func (c *Controller) notify(s State) {
	if c.onChange != nil {
		c.onChange(s)
	}
}
