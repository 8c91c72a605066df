// Package locationapi talks to the outlet location API and the third-party
// enrichment service.
package locationapi

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/asetsglobalindo/pertare-outlet-locator/internal/metrics"
	"github.com/asetsglobalindo/pertare-outlet-locator/internal/outlet"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// Options configures a Client.
type Options struct {
	BaseURL           string
	EnrichmentURL     string
	Timeout           time.Duration
	EnrichmentTimeout time.Duration
	EnrichmentRate    float64
	EnrichmentBurst   int
	HTTPClient        *http.Client
	Metrics           *metrics.Metrics
}

// Client implements outlet search and enrichment lookups.
type Client struct {
	httpClient        *http.Client
	baseURL           string
	enrichmentURL     string
	enrichmentTimeout time.Duration
	limiter           *rate.Limiter
	group             singleflight.Group
	metrics           *metrics.Metrics
}

// New creates a client. A zero EnrichmentRate disables rate limiting.
func New(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{
			Transport: &http.Transport{
				TLSNextProto:        make(map[string]func(string, *tls.Conn) http.RoundTripper),
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 20,
			},
			Timeout: timeout,
		}
	}

	var limiter *rate.Limiter
	if opts.EnrichmentRate > 0 {
		burst := opts.EnrichmentBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.EnrichmentRate), burst)
	}

	return &Client{
		httpClient:        httpClient,
		baseURL:           strings.TrimRight(opts.BaseURL, "/"),
		enrichmentURL:     opts.EnrichmentURL,
		enrichmentTimeout: opts.EnrichmentTimeout,
		limiter:           limiter,
		metrics:           opts.Metrics,
	}
}

// UpstreamError is returned when an upstream call fails for any reason:
// transport, HTTP status, decoding, or an unsuccessful envelope.
type UpstreamError struct {
	Op      string
	Status  int
	Message string
	Err     error
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Status != 0 {
		fmt.Fprintf(&b, ": status %d", e.Status)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// SearchParams are the query parameters of GET /location.
type SearchParams struct {
	Query string
	Page  int
	Limit int
	Lat   *float64
	Long  *float64
}

type locationEnvelope struct {
	Status  int             `json:"status"`
	Data    []outlet.Outlet `json:"data"`
	Message string          `json:"message"`
	Err     string          `json:"err"`
}

// SearchOutlets fetches one page of outlets. An empty query means no text filter.
func (c *Client) SearchOutlets(ctx context.Context, p SearchParams) ([]outlet.Outlet, error) {
	const op = "search outlets"

	if p.Limit <= 0 {
		return nil, &UpstreamError{Op: op, Message: "limit must be positive"}
	}
	if p.Page <= 0 {
		p.Page = 1
	}

	params := url.Values{}
	params.Set("page", strconv.Itoa(p.Page))
	params.Set("limit", strconv.Itoa(p.Limit))
	if q := strings.TrimSpace(p.Query); q != "" {
		params.Set("query", q)
	}
	if p.Lat != nil && p.Long != nil {
		params.Set("lat", strconv.FormatFloat(*p.Lat, 'f', -1, 64))
		params.Set("long", strconv.FormatFloat(*p.Long, 'f', -1, 64))
	}

	start := time.Now()
	outlets, err := c.fetchLocations(ctx, c.baseURL+"/location?"+params.Encode())
	c.metrics.ObserveUpstream(metrics.SourceLocation, outcome(err), time.Since(start))

	if err != nil {
		ev := log.Warn()
		if errors.Is(err, context.Canceled) {
			ev = log.Debug()
		}
		ev.Err(err).
			Str("query", p.Query).
			Msg("Outlet search failed")
		return nil, err
	}

	log.Debug().
		Str("query", p.Query).
		Int("count", len(outlets)).
		Dur("duration", time.Since(start)).
		Msg("Outlet search completed")

	return outlets, nil
}

func (c *Client) fetchLocations(ctx context.Context, reqURL string) ([]outlet.Outlet, error) {
	const op = "search outlets"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &UpstreamError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &UpstreamError{Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &UpstreamError{Op: op, Status: resp.StatusCode}
	}

	var env locationEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, &UpstreamError{Op: op, Err: fmt.Errorf("decode: %w", err)}
	}

	if env.Status != http.StatusOK {
		msg := env.Message
		if msg == "" {
			msg = env.Err
		}
		return nil, &UpstreamError{Op: op, Status: env.Status, Message: msg}
	}

	if env.Data == nil {
		return []outlet.Outlet{}, nil
	}
	return env.Data, nil
}

type enrichmentEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    *struct {
		SurroundingAreas []struct {
			Name string `json:"surrounding_area_name"`
		} `json:"surrounding_areas"`
		Facilities []struct {
			Name string `json:"facility_name"`
		} `json:"facilities"`
	} `json:"data"`
}

// FetchEnrichment looks up surrounding areas and facilities for an outlet code.
// It never returns an error: any failure yields outlet.FailedEnrichment so the
// primary flow is unaffected.
func (c *Client) FetchEnrichment(ctx context.Context, code string) outlet.Enrichment {
	code = strings.TrimSpace(code)
	if code == "" {
		return outlet.EmptyEnrichment()
	}

	if c.enrichmentTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.enrichmentTimeout)
		defer cancel()
	}

	start := time.Now()

	// DoChan lets this caller give up on its own context while a shared call continues.
	ch := c.group.DoChan(code, func() (interface{}, error) {
		fctx, cancel := c.sharedContext(ctx)
		defer cancel()

		e, err := c.fetchEnrichment(fctx, code)
		if err != nil {
			return nil, err
		}
		return e, nil
	})

	var (
		res outlet.Enrichment
		err error
	)
	select {
	case <-ctx.Done():
		err = ctx.Err()
	case r := <-ch:
		err = r.Err
		if err == nil {
			res = r.Val.(outlet.Enrichment)
		}
	}

	c.metrics.ObserveUpstream(metrics.SourceEnrichment, outcome(err), time.Since(start))

	if err != nil {
		ev := log.Warn()
		if errors.Is(err, context.Canceled) {
			ev = log.Debug()
		}
		ev.Err(err).
			Str("code", code).
			Msg("Enrichment lookup failed")
		return outlet.FailedEnrichment()
	}

	return res
}

func (c *Client) fetchEnrichment(ctx context.Context, code string) (outlet.Enrichment, error) {
	const op = "fetch enrichment"

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return outlet.Enrichment{}, &UpstreamError{Op: op, Message: "rate limited", Err: err}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.enrichmentEndpoint(code), nil)
	if err != nil {
		return outlet.Enrichment{}, &UpstreamError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return outlet.Enrichment{}, &UpstreamError{Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return outlet.Enrichment{}, &UpstreamError{Op: op, Status: resp.StatusCode}
	}

	var env enrichmentEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return outlet.Enrichment{}, &UpstreamError{Op: op, Err: fmt.Errorf("decode: %w", err)}
	}

	if !env.Success || env.Data == nil {
		msg := env.Message
		if msg == "" {
			msg = "no enrichment data"
		}
		return outlet.Enrichment{}, &UpstreamError{Op: op, Message: msg}
	}

	areas := make([]string, 0, len(env.Data.SurroundingAreas))
	for _, a := range env.Data.SurroundingAreas {
		areas = append(areas, a.Name)
	}
	facilities := make([]string, 0, len(env.Data.Facilities))
	for _, f := range env.Data.Facilities {
		facilities = append(facilities, f.Name)
	}

	return outlet.ReadyEnrichment(areas, facilities), nil
}

// sharedContext detaches a singleflight call from the first caller's
// cancellation while keeping it bounded by the enrichment timeout.
func (c *Client) sharedContext(ctx context.Context) (context.Context, context.CancelFunc) {
	base := context.WithoutCancel(ctx)
	if c.enrichmentTimeout > 0 {
		return context.WithTimeout(base, c.enrichmentTimeout)
	}
	return context.WithCancel(base)
}

func (c *Client) enrichmentEndpoint(code string) string {
	escaped := url.PathEscape(code)
	if strings.Contains(c.enrichmentURL, "{code}") {
		return strings.ReplaceAll(c.enrichmentURL, "{code}", escaped)
	}
	return strings.TrimRight(c.enrichmentURL, "/") + "/" + escaped
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, context.DeadlineExceeded):
		return metrics.OutcomeTimeout
	default:
		return metrics.OutcomeError
	}
}
