// Package scanclient performs one category's remote scan operation against
// the backend and turns the outcome into an aggregate.Result.
//
// The client holds no per-call state: invoking a category twice with the
// same request is safe and, given the same backend reply, yields the same
// payload.
package scanclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/waftester/reconsuite/pkg/aggregate"
	"github.com/waftester/reconsuite/pkg/category"
	"github.com/waftester/reconsuite/pkg/defaults"
	"github.com/waftester/reconsuite/pkg/httpclient"
	"github.com/waftester/reconsuite/pkg/iohelper"
	"github.com/waftester/reconsuite/pkg/jsonutil"
	"github.com/waftester/reconsuite/pkg/ratelimit"
)

// Request is the body sent to every category endpoint.
type Request struct {
	Domain string `json:"domain"`
}

// Invoker runs one category's remote operation. Implementations never
// return an error value separately: failures are carried in the Result.
type Invoker interface {
	Invoke(ctx context.Context, c category.Category, req Request) aggregate.Result
}

// Config configures a Client.
type Config struct {
	// BaseURL is the backend address, e.g. http://localhost:8000.
	BaseURL string
	// HTTPClient defaults to httpclient.New(httpclient.DefaultConfig()).
	HTTPClient *http.Client
	// Limiter throttles request starts. Nil means unlimited.
	Limiter *ratelimit.Limiter
	// UserAgent defaults to defaults.UserAgent.
	UserAgent string
	// MaxResponseBytes caps a reply body (default defaults.MaxResponseBytes).
	MaxResponseBytes int64
}

// Client is the HTTP Invoker.
type Client struct {
	baseURL   string
	http      *http.Client
	limiter   *ratelimit.Limiter
	userAgent string
	maxBody   int64
}

var _ Invoker = (*Client)(nil)

// New validates cfg and builds a Client.
func New(cfg Config) (*Client, error) {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, cfg.BaseURL)
	}
	hc := cfg.HTTPClient
	if hc == nil {
		if hc, err = httpclient.New(httpclient.DefaultConfig()); err != nil {
			return nil, err
		}
	}
	c := &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		http:      hc,
		limiter:   cfg.Limiter,
		userAgent: cfg.UserAgent,
		maxBody:   cfg.MaxResponseBytes,
	}
	if c.userAgent == "" {
		c.userAgent = defaults.UserAgent
	}
	if c.maxBody <= 0 {
		c.maxBody = defaults.MaxResponseBytes
	}
	return c, nil
}

// BaseURL returns the backend address without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

// Invoke posts req to the category's endpoint and decodes the reply.
func (c *Client) Invoke(ctx context.Context, cat category.Category, req Request) aggregate.Result {
	d := category.Describe(cat)
	if strings.TrimSpace(req.Domain) == "" {
		return aggregate.Failure(cat, ErrEmptyRequest)
	}

	body, err := jsonutil.Marshal(req)
	if err != nil {
		return aggregate.Failure(cat, fmt.Errorf("scanclient: encode request: %w", err))
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return aggregate.Failure(cat, networkError(cat, 0, err))
	}

	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, d.Endpoint(c.baseURL), bytes.NewReader(body))
	if err != nil {
		return aggregate.Failure(cat, networkError(cat, 0, err))
	}
	hreq.Header.Set("Content-Type", defaults.ContentTypeJSON)
	hreq.Header.Set("Accept", defaults.ContentTypeJSON)
	hreq.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(hreq)
	if err != nil {
		return aggregate.Failure(cat, networkError(cat, 0, err))
	}
	defer iohelper.DrainAndClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return aggregate.Failure(cat, networkError(cat, resp.StatusCode, nil))
	}

	data, err := iohelper.ReadCapped(resp.Body, c.maxBody)
	if errors.Is(err, iohelper.ErrTooLarge) {
		return aggregate.Failure(cat, protocolError(cat, resp.StatusCode,
			fmt.Errorf("reply exceeds %d bytes", c.maxBody)))
	}
	if err != nil {
		return aggregate.Failure(cat, networkError(cat, resp.StatusCode, err))
	}

	p, err := d.Decode(data)
	if err != nil {
		return aggregate.Failure(cat, protocolError(cat, resp.StatusCode, err))
	}
	return aggregate.Success(cat, p)
}
