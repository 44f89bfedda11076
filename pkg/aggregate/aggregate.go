package aggregate

import (
	"fmt"
	"strings"
	"time"

	"github.com/waftester/reconsuite/pkg/category"
	"github.com/waftester/reconsuite/pkg/jsonutil"
	"github.com/waftester/reconsuite/pkg/payload"
)

// Aggregate is the complete result set of one scan: exactly one settled
// Result per registry category. It is immutable once built and safe to share
// between goroutines.
type Aggregate struct {
	ScanID    string
	Domain    string
	StartedAt time.Time
	SettledAt time.Time

	results [category.Count]Result
}

// Result returns the settled result for c.
func (a *Aggregate) Result(c category.Category) Result {
	category.Describe(c)
	return a.results[c]
}

// Results returns all results in registry order.
func (a *Aggregate) Results() []Result {
	out := make([]Result, category.Count)
	copy(out, a.results[:])
	return out
}

// Duration is the wall time from start to settlement.
func (a *Aggregate) Duration() time.Duration { return a.SettledAt.Sub(a.StartedAt) }

// Succeeded counts categories that produced a payload.
func (a *Aggregate) Succeeded() int {
	n := 0
	for _, r := range a.results {
		if r.OK() {
			n++
		}
	}
	return n
}

// Failed lists failed categories in registry order.
func (a *Aggregate) Failed() []category.Category {
	var out []category.Category
	for _, r := range a.results {
		if !r.OK() {
			out = append(out, r.category)
		}
	}
	return out
}

// Failures maps each failed category to its error.
func (a *Aggregate) Failures() map[category.Category]error {
	out := make(map[category.Category]error)
	for _, r := range a.results {
		if !r.OK() {
			out[r.category] = r.err
		}
	}
	return out
}

// AllFailed reports whether no category succeeded.
func (a *Aggregate) AllFailed() bool { return a.Succeeded() == 0 }

// The typed accessors below are the read boundary: the payload is the
// category default when the category failed, and the error says why. Each
// call returns a fresh copy, so callers may modify it.

// Subdomains returns the discovered hostnames.
func (a *Aggregate) Subdomains() (payload.Subdomains, error) {
	r := a.results[category.Subdomains]
	return r.Payload().(payload.Subdomains), r.err
}

// DNS returns the DNS records by type.
func (a *Aggregate) DNS() (payload.DNSRecords, error) {
	r := a.results[category.DNSRecords]
	return r.Payload().(payload.DNSRecords), r.err
}

// URLs returns crawled URLs and their parameters.
func (a *Aggregate) URLs() (payload.URLs, error) {
	r := a.results[category.URLs]
	return r.Payload().(payload.URLs), r.err
}

// Technologies returns fingerprinted technologies.
func (a *Aggregate) Technologies() (payload.Technologies, error) {
	r := a.results[category.Technologies]
	return r.Payload().(payload.Technologies), r.err
}

// Ports returns port findings.
func (a *Aggregate) Ports() (payload.Ports, error) {
	r := a.results[category.Ports]
	return r.Payload().(payload.Ports), r.err
}

// SensitiveFiles returns exposed paths.
func (a *Aggregate) SensitiveFiles() (payload.SensitiveFiles, error) {
	r := a.results[category.SensitiveFiles]
	return r.Payload().(payload.SensitiveFiles), r.err
}

// Builder collects category results for one scan. It is not safe for
// concurrent use; the orchestrator fills it after its join barrier.
type Builder struct {
	agg Aggregate
	set [category.Count]bool
}

// NewBuilder starts an aggregate for a scan.
func NewBuilder(scanID, domain string, startedAt time.Time) *Builder {
	return &Builder{agg: Aggregate{ScanID: scanID, Domain: domain, StartedAt: startedAt}}
}

// Set records the result for its category. Setting a category twice is a
// programmer error and panics.
func (b *Builder) Set(r Result) {
	c := r.category
	category.Describe(c)
	if r.payload == nil && r.err == nil {
		panic(fmt.Sprintf("aggregate: zero Result for %s", c))
	}
	if b.set[c] {
		panic(fmt.Sprintf("aggregate: %s settled twice", c))
	}
	b.set[c] = true
	b.agg.results[c] = r
}

// Missing lists categories not yet set.
func (b *Builder) Missing() []category.Category {
	var out []category.Category
	for _, c := range category.All() {
		if !b.set[c] {
			out = append(out, c)
		}
	}
	return out
}

// Build returns the finished aggregate. It fails with ErrIncomplete unless
// every category has been set.
func (b *Builder) Build(settledAt time.Time) (*Aggregate, error) {
	if missing := b.Missing(); len(missing) > 0 {
		names := make([]string, len(missing))
		for i, c := range missing {
			names[i] = c.String()
		}
		return nil, fmt.Errorf("%w: missing %s", ErrIncomplete, strings.Join(names, ", "))
	}
	agg := b.agg
	agg.SettledAt = settledAt
	return &agg, nil
}

// Status values in the JSON view.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// View is the JSON shape of an aggregate. Every category key is present.
type View struct {
	ScanID     string                  `json:"scan_id"`
	Domain     string                  `json:"domain"`
	StartedAt  time.Time               `json:"started_at"`
	SettledAt  time.Time               `json:"settled_at"`
	DurationMs int64                   `json:"duration_ms"`
	Succeeded  int                     `json:"succeeded"`
	Results    map[string]CategoryView `json:"results"`
}

// CategoryView is the JSON shape of one category result.
type CategoryView struct {
	Status     string          `json:"status"`
	Error      string          `json:"error,omitempty"`
	Kind       string          `json:"kind,omitempty"`
	Attempts   int             `json:"attempts"`
	DurationMs int64           `json:"duration_ms"`
	Data       payload.Payload `json:"data"`
}

// ViewOf renders a single result.
func ViewOf(r Result) CategoryView {
	v := CategoryView{
		Status:     StatusOK,
		Attempts:   r.Attempts,
		DurationMs: r.Duration.Milliseconds(),
		Data:       r.Payload(),
	}
	if !r.OK() {
		v.Status = StatusFailed
		v.Error = r.Reason()
		v.Kind = r.Kind()
	}
	return v
}

// View renders the aggregate for JSON consumers.
func (a *Aggregate) View() View {
	v := View{
		ScanID:     a.ScanID,
		Domain:     a.Domain,
		StartedAt:  a.StartedAt,
		SettledAt:  a.SettledAt,
		DurationMs: a.Duration().Milliseconds(),
		Succeeded:  a.Succeeded(),
		Results:    make(map[string]CategoryView, category.Count),
	}
	for _, r := range a.results {
		v.Results[r.category.String()] = ViewOf(r)
	}
	return v
}

// MarshalJSON encodes the View.
func (a *Aggregate) MarshalJSON() ([]byte, error) {
	return jsonutil.Marshal(a.View())
}
