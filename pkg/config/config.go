// Package config resolves reconsuite settings.
//
// Values are layered, later layers winning:
//
//	defaults → YAML file → environment (RECONSUITE_*) → command-line flags
//
// REACT_APP_API_URL is honoured as a lower-priority alias of
// RECONSUITE_BACKEND_URL so a deployment that already configures the web
// frontend points the CLI at the same backend.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/waftester/reconsuite/pkg/defaults"
	"github.com/waftester/reconsuite/pkg/duration"
	"github.com/waftester/reconsuite/pkg/httpclient"
	"github.com/waftester/reconsuite/pkg/ratelimit"
	"github.com/waftester/reconsuite/pkg/retry"
)

// Config holds all reconsuite settings.
type Config struct {
	// Backend
	BackendURL      string        `yaml:"backend_url"`
	Proxy           string        `yaml:"proxy"`
	Insecure        bool          `yaml:"insecure"`         // Skip TLS verification of the backend
	RequestTimeout  time.Duration `yaml:"request_timeout"`  // One backend call, connect to last byte
	CategoryTimeout time.Duration `yaml:"category_timeout"` // One category including retries (0 = none)
	ScanTimeout     time.Duration `yaml:"scan_timeout"`     // Whole scan (0 = none)
	RateLimit       float64       `yaml:"rate_limit"`       // Backend requests per second (0 = unlimited)

	Retry RetryConfig `yaml:"retry"`

	// Server
	ListenAddr string `yaml:"listen_addr"`
	Metrics    bool   `yaml:"metrics"`

	OTel OTelConfig `yaml:"otel"`
	Log  LogConfig  `yaml:"log"`
}

// RetryConfig controls category-local retries.
type RetryConfig struct {
	Attempts  int           `yaml:"attempts"` // 1 = no retries
	InitDelay time.Duration `yaml:"init_delay"`
	MaxDelay  time.Duration `yaml:"max_delay"`
}

// OTelConfig enables span export when Endpoint is set.
type OTelConfig struct {
	Endpoint string `yaml:"endpoint"`
	Insecure bool   `yaml:"insecure"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// Log formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		BackendURL:     defaults.BackendURL,
		RequestTimeout: duration.BackendRequest,
		Retry: RetryConfig{
			Attempts:  defaults.RetryAttempts,
			InitDelay: duration.RetryInit,
			MaxDelay:  duration.RetryMax,
		},
		ListenAddr: defaults.ListenAddr,
		OTel:       OTelConfig{Insecure: true},
		Log:        LogConfig{Level: "info", Format: FormatText},
	}
}

// Load builds a configuration from defaults, the YAML file at path (skipped
// when path is empty) and the process environment, then validates it.
func Load(path string) (*Config, error) {
	return load(path, os.LookupEnv, nil)
}

func load(path string, env LookupFunc, flags *Flags) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(env); err != nil {
		return nil, err
	}
	if flags != nil {
		flags.apply(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFile overlays the YAML file at path. Keys absent from the file keep
// their current value; unknown keys are rejected.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	return c.parseYAML(data)
}

func (c *Config) parseYAML(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Validate checks the configuration. Errors wrap ErrInvalidConfig or
// ErrMissingRequired.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.BackendURL) == "" {
		return fmt.Errorf("%w: backend_url", ErrMissingRequired)
	}
	u, err := url.Parse(c.BackendURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: backend_url %q is not an http(s) URL", ErrInvalidConfig, c.BackendURL)
	}
	if _, err := httpclient.ParseProxyURL(c.Proxy); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	for name, d := range map[string]time.Duration{
		"request_timeout":  c.RequestTimeout,
		"category_timeout": c.CategoryTimeout,
		"scan_timeout":     c.ScanTimeout,
	} {
		if d < 0 {
			return fmt.Errorf("%w: %s must not be negative", ErrInvalidConfig, name)
		}
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("%w: rate_limit must not be negative", ErrInvalidConfig)
	}

	if c.Retry.Attempts < 1 {
		return fmt.Errorf("%w: retry.attempts must be at least 1", ErrInvalidConfig)
	}
	if err := c.RetryPolicy().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case FormatText, FormatJSON:
	default:
		return fmt.Errorf("%w: log.format %q (want text or json)", ErrInvalidConfig, c.Log.Format)
	}
	return nil
}

// RetryPolicy converts the retry section for the orchestrator. The
// Retryable predicate is left for the orchestrator to fill in.
func (c *Config) RetryPolicy() retry.Config {
	rc := retry.DefaultConfig()
	rc.Attempts = c.Retry.Attempts
	rc.InitDelay = c.Retry.InitDelay
	rc.MaxDelay = c.Retry.MaxDelay
	return rc
}

// HTTPClient returns the backend client settings.
func (c *Config) HTTPClient() httpclient.Config {
	hc := httpclient.DefaultConfig()
	hc.Timeout = c.RequestTimeout
	hc.Proxy = c.Proxy
	hc.InsecureSkipVerify = c.Insecure
	return hc
}

// RateLimiter builds the backend throttle; nil when unlimited.
func (c *Config) RateLimiter() (*ratelimit.Limiter, error) {
	return ratelimit.New(ratelimit.Config{RequestsPerSecond: c.RateLimit})
}

// Logger builds a slog.Logger writing to w. Validate must have passed.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	level, _ := parseLevel(c.Log.Level)
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Log.Format, FormatJSON) {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("%w: log.level %q", ErrInvalidConfig, s)
	}
	return level, nil
}
