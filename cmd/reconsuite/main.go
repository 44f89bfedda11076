// Command reconsuite runs reconnaissance scans against a scan backend, either
// once from the terminal or as a long-lived HTTP session.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/waftester/reconsuite/pkg/cli"
	"github.com/waftester/reconsuite/pkg/config"
	"github.com/waftester/reconsuite/pkg/defaults"
	"github.com/waftester/reconsuite/pkg/duration"
	"github.com/waftester/reconsuite/pkg/ui"
)

func main() {
	ctx, cancel := cli.SignalContext(duration.ShutdownGrace)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		printUsage(stderr)
		return defaults.ExitUserError
	}

	switch args[0] {
	case string(cli.CommandScan):
		return runScan(ctx, args[1:], stdout, stderr)
	case string(cli.CommandServe):
		return runServe(ctx, args[1:], stderr)
	case string(cli.CommandCategories):
		return runCategories(args[1:], stdout, stderr)
	case string(cli.CommandVersion), "-v", "--version":
		if err := cli.RunVersion(stdout); err != nil {
			return defaults.ExitInternalError
		}
		return defaults.ExitSuccess
	case "-h", "--help", "help":
		printUsage(stdout)
		return defaults.ExitSuccess
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n", args[0])
		printUsage(stderr)
		return defaults.ExitUserError
	}
}

func runScan(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("scan", flag.ContinueOnError)
	fs.SetOutput(stderr)
	cf := config.RegisterFlags(fs)
	domain := fs.String("d", "", "Domain to scan")
	asJSON := fs.Bool("json", false, "Print the aggregate as JSON")
	verbose := fs.Bool("v", false, "List the items found per category")
	noColor := fs.Bool("no-color", false, "Disable coloured output")
	wait := fs.Duration("wait", 0, "Wait up to this long for the backend to answer before scanning")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: %s scan [flags] <domain>\n\n", defaults.ToolName)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return flagExit(err)
	}

	if *domain == "" && fs.NArg() > 0 {
		*domain = fs.Arg(0)
	}
	if strings.TrimSpace(*domain) == "" {
		fmt.Fprintln(stderr, "error: a domain is required (-d example.com)")
		return defaults.ExitUserError
	}

	cfg, logger, ok := loadConfig(cf, stderr)
	if !ok {
		return defaults.ExitUserError
	}

	code, err := cli.RunScan(ctx, cli.ScanOptions{
		Config:      cfg,
		Logger:      logger,
		Domain:      *domain,
		JSON:        *asJSON,
		Verbose:     *verbose,
		Color:       !*noColor && ui.ColorEnabled(stdout),
		WaitBackend: *wait,
	}, stdout)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
	}
	return code
}

func runServe(ctx context.Context, args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	cf := config.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		return flagExit(err)
	}

	cfg, logger, ok := loadConfig(cf, stderr)
	if !ok {
		return defaults.ExitUserError
	}
	if err := cli.RunServe(ctx, cli.ServeOptions{Config: cfg, Logger: logger}); err != nil {
		logger.Error("serve failed", "error", err)
		return defaults.ExitInternalError
	}
	return defaults.ExitSuccess
}

func runCategories(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("categories", flag.ContinueOnError)
	fs.SetOutput(stderr)
	asJSON := fs.Bool("json", false, "Print as JSON")
	if err := fs.Parse(args); err != nil {
		return flagExit(err)
	}
	if err := cli.RunCategories(stdout, *asJSON); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return defaults.ExitInternalError
	}
	return defaults.ExitSuccess
}

func loadConfig(cf *config.Flags, stderr io.Writer) (*config.Config, *slog.Logger, bool) {
	cfg, err := cf.Load()
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return nil, nil, false
	}
	return cfg, cfg.Logger(stderr), true
}

func flagExit(err error) int {
	if errors.Is(err, flag.ErrHelp) {
		return defaults.ExitSuccess
	}
	return defaults.ExitUserError
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, "%s %s - reconnaissance scan orchestrator\n\n", defaults.ToolName, defaults.Version)
	fmt.Fprintf(w, "Usage: %s <command> [flags]\n\nCommands:\n", defaults.ToolName)
	for _, c := range cli.Commands() {
		fmt.Fprintf(w, "  %-12s %s\n", c, c.Describe())
	}
	fmt.Fprintf(w, "\nRun '%s <command> -h' for the flags of a command.\n", defaults.ToolName)
	fmt.Fprintf(w, "The backend URL is read from -backend, %sBACKEND_URL or %s.\n",
		config.EnvPrefix, config.FrontendBackendEnv)
}
