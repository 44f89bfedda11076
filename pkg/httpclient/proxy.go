package httpclient

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/proxy"
)

var supportedProxySchemes = map[string]bool{
	"http":    true,
	"https":   true,
	"socks5":  true,
	"socks5h": true, // hostname resolved by the proxy
}

// ProxyConfig is a parsed, validated proxy URL.
type ProxyConfig struct {
	URL    *url.URL
	Scheme string
}

// IsSOCKS reports whether the proxy speaks SOCKS5.
func (p *ProxyConfig) IsSOCKS() bool {
	return p != nil && (p.Scheme == "socks5" || p.Scheme == "socks5h")
}

// ParseProxyURL validates a proxy URL. A URL without a scheme is treated as
// http://. Returns nil, nil for an empty string.
func ParseProxyURL(raw string) (*ProxyConfig, error) {
	if raw == "" {
		return nil, nil
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProxyConfig, err)
	}
	scheme := strings.ToLower(u.Scheme)
	if !supportedProxySchemes[scheme] {
		return nil, fmt.Errorf("%w: unsupported scheme %q (want http, https, socks5, socks5h)", ErrProxyConfig, scheme)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("%w: missing host", ErrProxyConfig)
	}
	u.Scheme = scheme
	return &ProxyConfig{URL: u, Scheme: scheme}, nil
}

// apply routes transport through the proxy. HTTP proxies use the transport's
// CONNECT support; SOCKS proxies replace the dialer.
func (p *ProxyConfig) apply(transport *http.Transport, forward *net.Dialer) error {
	if !p.IsSOCKS() {
		transport.Proxy = http.ProxyURL(p.URL)
		return nil
	}

	u := *p.URL
	// x/net/proxy only registers "socks5"; remote resolution is what it
	// does with hostnames anyway.
	u.Scheme = "socks5"
	d, err := proxy.FromURL(&u, forward)
	if err != nil {
		return err
	}
	cd, ok := d.(proxy.ContextDialer)
	if !ok {
		return fmt.Errorf("socks dialer does not support contexts")
	}
	transport.DialContext = cd.DialContext
	return nil
}
