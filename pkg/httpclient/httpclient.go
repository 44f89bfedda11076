// Package httpclient builds the pooled HTTP client used to reach the scan
// backend. All six category calls of a scan share one client so they reuse
// connections to the same host.
package httpclient

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/waftester/reconsuite/pkg/defaults"
	"github.com/waftester/reconsuite/pkg/duration"
)

// Config holds HTTP client configuration options.
type Config struct {
	// Timeout is the total request timeout (default: duration.BackendRequest)
	Timeout time.Duration

	// Proxy is an optional http://, https://, socks5:// or socks5h:// URL
	Proxy string

	// InsecureSkipVerify skips TLS certificate verification of the backend
	InsecureSkipVerify bool

	// MaxConnsPerHost bounds connections to the backend (default: 16)
	MaxConnsPerHost int

	// IdleConnTimeout is how long idle connections stay in pool (default: 90s)
	IdleConnTimeout time.Duration

	// DialTimeout is the timeout for establishing connections (default: 10s)
	DialTimeout time.Duration

	// TLSHandshakeTimeout is the timeout for TLS handshake (default: 10s)
	TLSHandshakeTimeout time.Duration

	// UserAgent is set on requests that carry none (default: defaults.UserAgent)
	UserAgent string
}

// DefaultConfig returns the settings used for backend calls.
func DefaultConfig() Config {
	return Config{
		Timeout:             duration.BackendRequest,
		MaxConnsPerHost:     16,
		IdleConnTimeout:     duration.IdleConn,
		DialTimeout:         duration.BackendDial,
		TLSHandshakeTimeout: duration.BackendTLSHandshake,
		UserAgent:           defaults.UserAgent,
	}
}

// New creates an HTTP client. Zero fields fall back to DefaultConfig. It fails
// only when Proxy is set and cannot be used.
func New(cfg Config) (*http.Client, error) {
	def := DefaultConfig()
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxConnsPerHost == 0 {
		cfg.MaxConnsPerHost = def.MaxConnsPerHost
	}
	if cfg.IdleConnTimeout == 0 {
		cfg.IdleConnTimeout = def.IdleConnTimeout
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = def.DialTimeout
	}
	if cfg.TLSHandshakeTimeout == 0 {
		cfg.TLSHandshakeTimeout = def.TLSHandshakeTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}

	dialer := &net.Dialer{
		Timeout:   cfg.DialTimeout,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		MaxIdleConns:          cfg.MaxConnsPerHost,
		MaxIdleConnsPerHost:   cfg.MaxConnsPerHost,
		MaxConnsPerHost:       cfg.MaxConnsPerHost,
		IdleConnTimeout:       cfg.IdleConnTimeout,
		ForceAttemptHTTP2:     true,
		ExpectContinueTimeout: 1 * time.Second,
		TLSHandshakeTimeout:   cfg.TLSHandshakeTimeout,
		DialContext:           dialer.DialContext,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.InsecureSkipVerify,
		},
	}

	if cfg.Proxy != "" {
		pc, err := ParseProxyURL(cfg.Proxy)
		if err != nil {
			return nil, err
		}
		if err := pc.apply(transport, dialer); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrProxyConfig, err)
		}
	}

	return &http.Client{
		Transport: &userAgentTransport{base: transport, userAgent: cfg.UserAgent},
		Timeout:   cfg.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			// A redirect from the backend is a misconfiguration; surface it.
			return http.ErrUseLastResponse
		},
	}, nil
}

// userAgentTransport sets User-Agent on requests that do not carry one.
type userAgentTransport struct {
	base      http.RoundTripper
	userAgent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") != "" {
		return t.base.RoundTrip(req)
	}
	r := req.Clone(req.Context())
	r.Header.Set("User-Agent", t.userAgent)
	return t.base.RoundTrip(r)
}
