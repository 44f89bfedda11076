package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"runtime"
	"text/tabwriter"
	"time"

	"github.com/waftester/reconsuite/pkg/api"
	"github.com/waftester/reconsuite/pkg/category"
	"github.com/waftester/reconsuite/pkg/config"
	"github.com/waftester/reconsuite/pkg/defaults"
	"github.com/waftester/reconsuite/pkg/duration"
	"github.com/waftester/reconsuite/pkg/jsonutil"
	"github.com/waftester/reconsuite/pkg/orchestrator"
	"github.com/waftester/reconsuite/pkg/ui"
)

// Command represents a CLI command.
type Command string

const (
	CommandScan       Command = "scan"
	CommandServe      Command = "serve"
	CommandCategories Command = "categories"
	CommandVersion    Command = "version"
)

// Commands returns the available commands in help order.
func Commands() []Command {
	return []Command{CommandScan, CommandServe, CommandCategories, CommandVersion}
}

// Describe returns the one-line help of cmd.
func (c Command) Describe() string {
	switch c {
	case CommandScan:
		return "Scan one domain across every category and print the result"
	case CommandServe:
		return "Serve a scanning session over HTTP"
	case CommandCategories:
		return "List the scan categories"
	case CommandVersion:
		return "Print the version"
	}
	return ""
}

// =============================================================================
// Scan
// =============================================================================

// ScanOptions for the scan command.
type ScanOptions struct {
	Config  *config.Config
	Logger  *slog.Logger
	Domain  string
	JSON    bool
	Verbose bool
	Color   bool

	// WaitBackend polls the backend for up to this long before scanning.
	WaitBackend time.Duration
}

// RunScan scans one domain and writes the summary (or JSON) to w. The exit
// code is ExitAllFailed when no category succeeded, ExitUserError for a
// rejected domain and ExitSuccess otherwise, even with failed categories.
func RunScan(ctx context.Context, opts ScanOptions, w io.Writer) (int, error) {
	stack, err := NewStack(opts.Config, opts.Logger)
	if err != nil {
		return defaults.ExitUserError, err
	}
	defer stack.Close()

	if opts.WaitBackend > 0 {
		wctx, cancel := context.WithTimeout(ctx, opts.WaitBackend)
		err := stack.Health.WaitFor(wctx, time.Second)
		cancel()
		if err != nil {
			return defaults.ExitInternalError, err
		}
	}

	agg, err := stack.RunOne(ctx, opts.Domain)
	switch {
	case errors.Is(err, orchestrator.ErrPrecondition):
		return defaults.ExitUserError, err
	case err != nil:
		return defaults.ExitInternalError, err
	}

	if opts.JSON {
		err = jsonutil.Write(w, agg, "  ")
	} else {
		err = ui.RenderSummary(w, agg, ui.Options{Color: opts.Color, Verbose: opts.Verbose})
	}
	if err != nil {
		return defaults.ExitInternalError, err
	}
	if agg.AllFailed() {
		return defaults.ExitAllFailed, nil
	}
	return defaults.ExitSuccess, nil
}

// =============================================================================
// Serve
// =============================================================================

// ServeOptions for the serve command.
type ServeOptions struct {
	Config *config.Config
	Logger *slog.Logger

	// Listener overrides Config.ListenAddr.
	Listener net.Listener

	// Ready, when set, is called with the bound address once serving.
	Ready func(addr string)
}

// RunServe serves the API until ctx ends, then shuts down gracefully: open
// requests get duration.ShutdownGrace and an in-flight scan is cancelled.
func RunServe(ctx context.Context, opts ServeOptions) error {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	stack, err := NewStack(opts.Config, logger)
	if err != nil {
		return err
	}
	defer stack.Close()

	apiOpts := api.Options{Session: stack.Session, Health: stack.Health, Logger: logger}
	if stack.Metrics != nil {
		apiOpts.Metrics = stack.Metrics.Handler()
	}
	srv, err := api.New(apiOpts)
	if err != nil {
		return err
	}

	ln := opts.Listener
	if ln == nil {
		if ln, err = net.Listen("tcp", opts.Config.ListenAddr); err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	}

	httpSrv := &http.Server{
		Handler:           srv.Routes(),
		ReadHeaderTimeout: duration.ServerRead,
		ReadTimeout:       duration.ServerRead,
		WriteTimeout:      duration.ServerWrite,
		MaxHeaderBytes:    1 << 20,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- httpSrv.Serve(ln) }()

	addr := ln.Addr().String()
	logger.Info("api listening", "addr", addr, "backend", opts.Config.BackendURL, "metrics", stack.Metrics != nil)
	if opts.Ready != nil {
		opts.Ready(addr)
	}

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), duration.ShutdownGrace)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// =============================================================================
// Categories, version
// =============================================================================

// RunCategories lists the registry as a table or JSON.
func RunCategories(w io.Writer, asJSON bool) error {
	if asJSON {
		out := make([]api.CategoryInfo, 0, category.Count)
		for _, c := range category.All() {
			d := category.Describe(c)
			out = append(out, api.CategoryInfo{Name: d.Name, Title: d.Title, Path: d.Path, ResultKey: d.ResultKey})
		}
		return jsonutil.Write(w, out, "  ")
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tENDPOINT\tRESULT KEY")
	for _, c := range category.All() {
		d := category.Describe(c)
		fmt.Fprintf(tw, "%s\tPOST %s%s\t%s\n", d.Name, defaults.ScanPathPrefix, d.Path, d.ResultKey)
	}
	return tw.Flush()
}

// RunVersion prints the version line.
func RunVersion(w io.Writer) error {
	_, err := fmt.Fprintf(w, "%s %s (%s %s/%s)\n", defaults.ToolName, defaults.Version,
		runtime.Version(), runtime.GOOS, runtime.GOARCH)
	return err
}
