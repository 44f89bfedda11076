package config

import (
	"fmt"
	"strconv"
	"time"
)

// EnvPrefix prefixes every environment variable read by ApplyEnv.
const EnvPrefix = "RECONSUITE_"

// FrontendBackendEnv is the variable the web frontend reads for the backend
// address. RECONSUITE_BACKEND_URL takes precedence over it.
const FrontendBackendEnv = "REACT_APP_API_URL"

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overlays values found through lookup. A malformed value is an
// ErrInvalidConfig naming the variable.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	get := func(name string) (string, bool) {
		v, ok := lookup(EnvPrefix + name)
		return v, ok && v != ""
	}

	if v, ok := lookup(FrontendBackendEnv); ok && v != "" {
		c.BackendURL = v
	}
	if v, ok := get("BACKEND_URL"); ok {
		c.BackendURL = v
	}
	if v, ok := get("PROXY"); ok {
		c.Proxy = v
	}
	if v, ok := get("LISTEN_ADDR"); ok {
		c.ListenAddr = v
	}
	if v, ok := get("OTEL_ENDPOINT"); ok {
		c.OTel.Endpoint = v
	}
	if v, ok := get("LOG_LEVEL"); ok {
		c.Log.Level = v
	}
	if v, ok := get("LOG_FORMAT"); ok {
		c.Log.Format = v
	}

	durations := []struct {
		name string
		dst  *time.Duration
	}{
		{"REQUEST_TIMEOUT", &c.RequestTimeout},
		{"CATEGORY_TIMEOUT", &c.CategoryTimeout},
		{"SCAN_TIMEOUT", &c.ScanTimeout},
		{"RETRY_INIT_DELAY", &c.Retry.InitDelay},
		{"RETRY_MAX_DELAY", &c.Retry.MaxDelay},
	}
	for _, d := range durations {
		v, ok := get(d.name)
		if !ok {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return envError(d.name, v)
		}
		*d.dst = parsed
	}

	bools := []struct {
		name string
		dst  *bool
	}{
		{"INSECURE", &c.Insecure},
		{"METRICS", &c.Metrics},
		{"OTEL_INSECURE", &c.OTel.Insecure},
	}
	for _, b := range bools {
		v, ok := get(b.name)
		if !ok {
			continue
		}
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return envError(b.name, v)
		}
		*b.dst = parsed
	}

	if v, ok := get("RETRY_ATTEMPTS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return envError("RETRY_ATTEMPTS", v)
		}
		c.Retry.Attempts = n
	}
	if v, ok := get("RATE_LIMIT"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return envError("RATE_LIMIT", v)
		}
		c.RateLimit = f
	}
	return nil
}

func envError(name, value string) error {
	return fmt.Errorf("%w: %s%s=%q", ErrInvalidConfig, EnvPrefix, name, value)
}
