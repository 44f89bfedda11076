package config

import (
	"flag"
	"os"
)

// Flags binds command-line options to a FlagSet. Only flags given on the
// command line override the file and the environment.
type Flags struct {
	// ConfigPath is the -config value.
	ConfigPath string

	fs     *flag.FlagSet
	vals   Config
	setter map[string]func(dst, src *Config)
}

// RegisterFlags adds the configuration flags to fs. Commands that do not
// need the server or telemetry options still accept them.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{fs: fs, vals: Default(), setter: make(map[string]func(dst, src *Config))}
	v := &f.vals
	bind := func(name string, set func(dst, src *Config)) { f.setter[name] = set }

	// === CONFIG ===
	fs.StringVar(&f.ConfigPath, "config", "", "YAML configuration file")

	// === BACKEND ===
	fs.StringVar(&v.BackendURL, "backend", v.BackendURL, "Scan backend base URL")
	bind("backend", func(d, s *Config) { d.BackendURL = s.BackendURL })
	fs.StringVar(&v.Proxy, "proxy", v.Proxy, "HTTP or SOCKS5 proxy for backend calls")
	bind("proxy", func(d, s *Config) { d.Proxy = s.Proxy })
	fs.BoolVar(&v.Insecure, "insecure", v.Insecure, "Skip TLS verification of the backend")
	bind("insecure", func(d, s *Config) { d.Insecure = s.Insecure })
	fs.DurationVar(&v.RequestTimeout, "timeout", v.RequestTimeout, "Timeout of one backend call")
	bind("timeout", func(d, s *Config) { d.RequestTimeout = s.RequestTimeout })
	fs.DurationVar(&v.CategoryTimeout, "category-timeout", v.CategoryTimeout, "Timeout of one category including retries (0 = none)")
	bind("category-timeout", func(d, s *Config) { d.CategoryTimeout = s.CategoryTimeout })
	fs.DurationVar(&v.ScanTimeout, "scan-timeout", v.ScanTimeout, "Timeout of a whole scan (0 = none)")
	bind("scan-timeout", func(d, s *Config) { d.ScanTimeout = s.ScanTimeout })
	fs.Float64Var(&v.RateLimit, "rate-limit", v.RateLimit, "Max backend requests per second (0 = unlimited)")
	bind("rate-limit", func(d, s *Config) { d.RateLimit = s.RateLimit })

	// === RETRY ===
	fs.IntVar(&v.Retry.Attempts, "retries", v.Retry.Attempts, "Attempts per category (1 = no retries)")
	bind("retries", func(d, s *Config) { d.Retry.Attempts = s.Retry.Attempts })
	fs.DurationVar(&v.Retry.InitDelay, "retry-delay", v.Retry.InitDelay, "Delay before the first retry")
	bind("retry-delay", func(d, s *Config) { d.Retry.InitDelay = s.Retry.InitDelay })

	// === SERVER ===
	fs.StringVar(&v.ListenAddr, "listen", v.ListenAddr, "API listen address")
	bind("listen", func(d, s *Config) { d.ListenAddr = s.ListenAddr })
	fs.BoolVar(&v.Metrics, "metrics", v.Metrics, "Expose Prometheus metrics")
	bind("metrics", func(d, s *Config) { d.Metrics = s.Metrics })

	// === TELEMETRY ===
	fs.StringVar(&v.OTel.Endpoint, "otel-endpoint", v.OTel.Endpoint, "OTLP gRPC endpoint for traces (empty = off)")
	bind("otel-endpoint", func(d, s *Config) { d.OTel.Endpoint = s.OTel.Endpoint })

	// === LOGGING ===
	fs.StringVar(&v.Log.Level, "log-level", v.Log.Level, "Log level: debug, info, warn, error")
	bind("log-level", func(d, s *Config) { d.Log.Level = s.Log.Level })
	fs.StringVar(&v.Log.Format, "log-format", v.Log.Format, "Log format: text, json")
	bind("log-format", func(d, s *Config) { d.Log.Format = s.Log.Format })

	return f
}

func (f *Flags) apply(cfg *Config) {
	f.fs.Visit(func(fl *flag.Flag) {
		if set, ok := f.setter[fl.Name]; ok {
			set(cfg, &f.vals)
		}
	})
}

// Load resolves the full configuration after fs.Parse.
func (f *Flags) Load() (*Config, error) {
	return load(f.ConfigPath, os.LookupEnv, f)
}

// LoadWithEnv is Load with an explicit environment.
func (f *Flags) LoadWithEnv(env LookupFunc) (*Config, error) {
	return load(f.ConfigPath, env, f)
}
