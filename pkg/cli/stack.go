// Package cli wires reconsuite's packages into the commands of the
// reconsuite binary. Every command writes to the io.Writer it is given so it
// can run under test.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/waftester/reconsuite/pkg/aggregate"
	"github.com/waftester/reconsuite/pkg/config"
	"github.com/waftester/reconsuite/pkg/health"
	"github.com/waftester/reconsuite/pkg/httpclient"
	"github.com/waftester/reconsuite/pkg/orchestrator"
	"github.com/waftester/reconsuite/pkg/output/dispatcher"
	"github.com/waftester/reconsuite/pkg/output/hooks"
	"github.com/waftester/reconsuite/pkg/scanclient"
	"github.com/waftester/reconsuite/pkg/session"
)

const healthCacheTTL = 5 * time.Second

// Stack is one fully wired scanning session.
type Stack struct {
	Config       *config.Config
	Logger       *slog.Logger
	HTTPClient   *http.Client
	Client       *scanclient.Client
	Dispatcher   *dispatcher.Dispatcher
	Orchestrator *orchestrator.Orchestrator
	Session      *session.Session
	Health       *health.Checker

	// Metrics is nil unless Config.Metrics is set.
	Metrics *hooks.PrometheusHook
}

// NewStack builds every component from cfg. Close releases them.
func NewStack(cfg *config.Config, logger *slog.Logger) (*Stack, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Stack{Config: cfg, Logger: logger}

	hc, err := httpclient.New(cfg.HTTPClient())
	if err != nil {
		return nil, fmt.Errorf("http client: %w", err)
	}
	s.HTTPClient = hc

	limiter, err := cfg.RateLimiter()
	if err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	s.Client, err = scanclient.New(scanclient.Config{
		BaseURL:    cfg.BackendURL,
		HTTPClient: hc,
		Limiter:    limiter,
	})
	if err != nil {
		return nil, err
	}

	s.Dispatcher = dispatcher.New(dispatcher.Config{Logger: logger})
	s.Dispatcher.RegisterHook(hooks.NewLoggerHook(logger))
	if cfg.Metrics {
		if s.Metrics, err = hooks.NewPrometheusHook(hooks.PrometheusOptions{}); err != nil {
			return nil, fmt.Errorf("metrics: %w", err)
		}
		s.Dispatcher.RegisterHook(s.Metrics)
	}
	if cfg.OTel.Endpoint != "" {
		otelHook, err := hooks.NewOTelHook(hooks.OTelOptions{
			Endpoint: cfg.OTel.Endpoint,
			Insecure: cfg.OTel.Insecure,
		})
		if err != nil {
			// Tracing is optional; scans run without it.
			logger.Warn("tracing disabled", "endpoint", cfg.OTel.Endpoint, "error", err)
		} else {
			s.Dispatcher.RegisterHook(otelHook)
		}
	}

	s.Orchestrator, err = orchestrator.New(orchestrator.Config{
		Client:          s.Client,
		Retry:           cfg.RetryPolicy(),
		CategoryTimeout: cfg.CategoryTimeout,
		Dispatcher:      s.Dispatcher,
		Logger:          logger,
	})
	if err != nil {
		return nil, err
	}

	s.Session = session.New(s.Orchestrator, session.Options{
		ScanTimeout: cfg.ScanTimeout,
		Logger:      logger,
	})

	s.Health, err = health.NewChecker(health.Config{
		BaseURL:  cfg.BackendURL,
		Client:   hc,
		CacheTTL: healthCacheTTL,
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Close waits for an in-flight scan, then flushes the hooks.
func (s *Stack) Close() error {
	s.Session.Close()
	return s.Dispatcher.Close()
}

// RunOne submits domain to the stack's session and waits for it to settle.
// Cancelling ctx closes the session: categories still in flight fail and the
// aggregate is still returned.
func (s *Stack) RunOne(ctx context.Context, domain string) (*aggregate.Aggregate, error) {
	if _, err := s.Session.Submit(domain); err != nil {
		return nil, err
	}
	stop := context.AfterFunc(ctx, s.Session.Close)
	defer stop()
	return s.Session.Wait(context.Background())
}
