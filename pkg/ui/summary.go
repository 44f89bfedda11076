// Package ui renders scan results for the terminal.
package ui

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/waftester/reconsuite/pkg/aggregate"
	"github.com/waftester/reconsuite/pkg/category"
	"github.com/waftester/reconsuite/pkg/defaults"
	"github.com/waftester/reconsuite/pkg/payload"
)

// Options controls RenderSummary.
type Options struct {
	// Color enables ANSI styling. Use ColorEnabled(w) to decide.
	Color bool

	// Verbose lists the items found under each category.
	Verbose bool

	// MaxItems caps the items listed per category when Verbose (default 20).
	MaxItems int
}

// RenderSummary writes a per-category overview of agg to w.
//
//	reconsuite 0.3.0  scan 3f2a...
//	Domain    example.com
//	Settled   5/6 categories in 2.1s
//
//	  ok      subdomains      12 found     (340ms)
//	  failed  ports           ports: network error: HTTP 500 Internal Server Error
func RenderSummary(w io.Writer, agg *aggregate.Aggregate, opts Options) error {
	if opts.MaxItems <= 0 {
		opts.MaxItems = 20
	}
	st := newStyles(w, opts.Color)

	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s\n",
		st.title.Render(defaults.ToolName+" "+defaults.Version),
		st.muted.Render("scan "+agg.ScanID))
	fmt.Fprintf(&b, "%s%s\n", st.label.Render("Domain"), st.value.Render(agg.Domain))

	succeeded := agg.Succeeded()
	outcome := st.ok
	switch {
	case agg.AllFailed():
		outcome = st.failed
	case succeeded < category.Count:
		outcome = st.partial
	}
	fmt.Fprintf(&b, "%s%s categories in %s\n\n",
		st.label.Render("Settled"),
		outcome.Render(fmt.Sprintf("%d/%d", succeeded, category.Count)),
		formatDuration(agg.Duration()))

	for _, r := range agg.Results() {
		b.WriteString(renderResult(st, r))
		if opts.Verbose && r.OK() {
			for _, line := range truncate(Items(r.Payload()), opts.MaxItems) {
				b.WriteString(st.item.Render(line))
				b.WriteByte('\n')
			}
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func renderResult(st styles, r aggregate.Result) string {
	name := st.name.Render(r.Category().String())
	timing := ""
	if r.Duration > 0 {
		timing = st.muted.Render(" (" + formatDuration(r.Duration) + attemptsSuffix(r.Attempts) + ")")
	}
	if r.OK() {
		found := fmt.Sprintf("%d found", r.Payload().Len())
		return fmt.Sprintf("  %s  %s%-12s%s\n", st.ok.Render("ok    "), name, found, timing)
	}
	return fmt.Sprintf("  %s  %s%s%s\n", st.failed.Render("failed"), name, r.Reason(), timing)
}

func attemptsSuffix(n int) string {
	if n <= 1 {
		return ""
	}
	return ", " + strconv.Itoa(n) + " attempts"
}

// Items flattens a payload into one display line per item.
func Items(p payload.Payload) []string {
	var out []string
	switch v := p.(type) {
	case payload.Subdomains:
		out = append(out, v...)
	case payload.Technologies:
		out = append(out, v...)
	case payload.DNSRecords:
		for _, t := range v.Types() {
			for _, rec := range v.Lookup(t) {
				out = append(out, fmt.Sprintf("%-5s %s", t, rec))
			}
		}
	case payload.URLs:
		out = append(out, v.URLs...)
		for _, prm := range v.Parameters {
			line := fmt.Sprintf("param %s (%s) %s", prm.Parameter, prm.Kind(), prm.URL)
			if prm.Method != "" {
				line += " " + prm.Method
			}
			out = append(out, line)
		}
	case payload.Ports:
		for _, port := range v {
			out = append(out, fmt.Sprintf("%d/%s %s", port.Port, port.Service, port.State))
		}
	case payload.SensitiveFiles:
		for _, f := range v {
			out = append(out, fmt.Sprintf("%s [%s] %s", f.Path, f.Status, f.URL))
		}
	}
	return out
}

func truncate(lines []string, n int) []string {
	if len(lines) <= n {
		return lines
	}
	out := append([]string(nil), lines[:n]...)
	return append(out, fmt.Sprintf("... %d more", len(lines)-n))
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return d.String()
	case d < time.Second:
		return strconv.FormatInt(d.Milliseconds(), 10) + "ms"
	default:
		return strconv.FormatFloat(d.Seconds(), 'f', 1, 64) + "s"
	}
}
