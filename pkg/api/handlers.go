package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/spaolacci/murmur3"

	"github.com/waftester/reconsuite/pkg/aggregate"
	"github.com/waftester/reconsuite/pkg/category"
	"github.com/waftester/reconsuite/pkg/defaults"
	"github.com/waftester/reconsuite/pkg/health"
	"github.com/waftester/reconsuite/pkg/jsonutil"
	"github.com/waftester/reconsuite/pkg/orchestrator"
	"github.com/waftester/reconsuite/pkg/session"
)

const maxRequestBody = 4 << 10

// ScanRequest is the POST /api/v1/scans body.
type ScanRequest struct {
	Domain string `json:"domain"`
}

// ScanAccepted is the 202 reply.
type ScanAccepted struct {
	ScanID string `json:"scan_id"`
	Domain string `json:"domain"`
}

// ErrorResponse is the body of every 4xx/5xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

// CategoryInfo describes one registry entry.
type CategoryInfo struct {
	Name      string `json:"name"`
	Title     string `json:"title"`
	Path      string `json:"path"`
	ResultKey string `json:"result_key"`
}

// CategoryResult is the reply of GET /api/v1/scans/current/{category}.
type CategoryResult struct {
	ScanID   string `json:"scan_id"`
	Domain   string `json:"domain"`
	Category string `json:"category"`

	aggregate.CategoryView `json:",inline"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": defaults.Version})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if s.health == nil {
		s.writeJSON(w, http.StatusOK, map[string]string{"status": string(health.StatusUnknown)})
		return
	}
	res := s.health.Cached(r.Context())
	status := http.StatusOK
	if !res.IsHealthy() {
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, res)
}

func (s *Server) handleCategories(w http.ResponseWriter, _ *http.Request) {
	out := make([]CategoryInfo, 0, category.Count)
	for _, c := range category.All() {
		d := category.Describe(c)
		out = append(out, CategoryInfo{Name: d.Name, Title: d.Title, Path: d.Path, ResultKey: d.ResultKey})
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	if err := jsonutil.UnmarshalRead(http.MaxBytesReader(w, r.Body, maxRequestBody), &req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	id, err := s.session.Submit(req.Domain)
	switch {
	case err == nil:
	case errors.Is(err, orchestrator.ErrEmptyDomain):
		s.writeError(w, http.StatusBadRequest, err)
		return
	case errors.Is(err, orchestrator.ErrScanInProgress):
		s.writeError(w, http.StatusConflict, err)
		return
	case errors.Is(err, session.ErrClosed):
		s.writeError(w, http.StatusServiceUnavailable, err)
		return
	default:
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Location", "/api/v1/scans/current")
	s.writeJSON(w, http.StatusAccepted, ScanAccepted{ScanID: id, Domain: strings.TrimSpace(req.Domain)})
}

func (s *Server) handleCurrent(w http.ResponseWriter, r *http.Request) {
	body, err := jsonutil.Marshal(s.session.Snapshot())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	tag := etag(body)
	w.Header().Set("ETag", tag)
	w.Header().Set("Cache-Control", "no-cache")
	if etagMatches(r.Header.Get("If-None-Match"), tag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", defaults.ContentTypeJSON)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (s *Server) handleCategory(w http.ResponseWriter, r *http.Request) {
	c, err := category.Parse(chi.URLParam(r, "category"))
	if err != nil {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	state := s.session.Snapshot()
	if state.Aggregate == nil {
		s.writeError(w, http.StatusNotFound, errors.New("no scan has settled yet"))
		return
	}
	agg := state.Aggregate
	s.writeJSON(w, http.StatusOK, CategoryResult{
		ScanID:       agg.ScanID,
		Domain:       agg.Domain,
		Category:     c.String(),
		CategoryView: aggregate.ViewOf(agg.Result(c)),
	})
}

// writeJSON encodes v before sending the status line so an encoding
// failure becomes a 500 instead of a truncated body.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := jsonutil.Marshal(v)
	if err != nil {
		s.logger.Error("api: encode response", "error", err)
		status = http.StatusInternalServerError
		body, _ = jsonutil.Marshal(ErrorResponse{Error: "internal error: response encoding failed"})
	}
	w.Header().Set("Content-Type", defaults.ContentTypeJSON)
	w.WriteHeader(status)
	if _, err := w.Write(append(body, '\n')); err != nil {
		s.logger.Debug("api: write response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

// etag is a strong validator over the encoded snapshot.
func etag(body []byte) string {
	return fmt.Sprintf(`"%016x"`, murmur3.Sum64(body))
}

func etagMatches(header, tag string) bool {
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == tag {
			return true
		}
	}
	return false
}
