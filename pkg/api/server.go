// Package api serves a scanning session over HTTP/JSON.
//
//	POST /api/v1/scans                      start a scan         202, 400, 409
//	GET  /api/v1/scans/current              session snapshot     200, 304
//	GET  /api/v1/scans/current/{category}   one category result  200, 404
//	GET  /api/v1/categories                 the category registry
//	GET  /healthz                           liveness
//	GET  /readyz                            backend reachability 200, 503
//	GET  /metrics                           Prometheus, when configured
package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/waftester/reconsuite/pkg/health"
	"github.com/waftester/reconsuite/pkg/session"
)

// ErrNoSession is returned by New without a session.
var ErrNoSession = errors.New("api: session is required")

// Session is the part of *session.Session the server uses.
type Session interface {
	Submit(domain string) (string, error)
	Snapshot() session.State
}

var _ Session = (*session.Session)(nil)

// Options configures a Server.
type Options struct {
	Session Session

	// Health answers /readyz. Without it /readyz always reports ready.
	Health *health.Checker

	// Metrics is mounted at /metrics when set.
	Metrics http.Handler

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Server routes requests to a session.
type Server struct {
	session Session
	health  *health.Checker
	metrics http.Handler
	logger  *slog.Logger
}

// New validates opts and builds a Server.
func New(opts Options) (*Server, error) {
	if opts.Session == nil {
		return nil, ErrNoSession
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		session: opts.Session,
		health:  opts.Health,
		metrics: opts.Metrics,
		logger:  logger,
	}, nil
}

// Routes returns the router.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/categories", s.handleCategories)
		r.Post("/scans", s.handleSubmit)
		r.Get("/scans/current", s.handleCurrent)
		r.Get("/scans/current/{category}", s.handleCategory)
	})
	return r
}
