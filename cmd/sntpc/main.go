package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/mattn/go-isatty"

	"github.com/ghewgill/sntpc/internal/config"
	"github.com/ghewgill/sntpc/internal/ntp"
	"github.com/ghewgill/sntpc/internal/sandbox"
	"github.com/ghewgill/sntpc/pkg/logger"
	"github.com/ghewgill/sntpc/pkg/metrics"
)

var (
	// Build information
	version = "dev"

	// restrict confines the process before any network traffic
	restrict = sandbox.Restrict
)

// Exit codes
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes one sntpc invocation and returns the process exit code
func run(args []string, stdout, stderr io.Writer) int {
	cfg, err := config.Parse(args, stderr)
	switch {
	case errors.Is(err, flag.ErrHelp):
		config.Usage(stdout)
		return exitOK
	case errors.Is(err, config.ErrVersion):
		fmt.Fprintln(stdout, "sntpc version", version)
		return exitOK
	case err != nil:
		return exitUsage
	}

	initLogger(cfg, stdout, stderr)

	logger.Startup(version, cfg.String())
	logger.SafeDebug("main", "Runtime", map[string]interface{}{
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
	})

	promises := sandbox.Promises{SetTime: cfg.SetClock, Files: cfg.MetricsFile != ""}
	if err := restrict(promises); err != nil {
		if !errors.Is(err, sandbox.ErrUnsupported) {
			fmt.Fprintf(stderr, "sntpc: %v\n", err)
			return exitError
		}
		logger.SafeDebug("main", "Running without sandbox", map[string]interface{}{
			"reason": err.Error(),
		})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, runErr := ntp.NewClient().Run(ctx, cfg.Options())

	if err := writeReport(cfg, report, runErr, stdout); err != nil {
		fmt.Fprintf(stderr, "sntpc: %v\n", err)
		return exitError
	}

	if cfg.MetricsFile != "" {
		if err := writeMetrics(cfg.MetricsFile, report); err != nil {
			fmt.Fprintf(stderr, "sntpc: %v\n", err)
			return exitError
		}
	}

	if runErr != nil {
		fmt.Fprintf(stderr, "sntpc: %v\n", runErr)
		return exitError
	}
	return exitOK
}

// initLogger sends verbose diagnostics to stdout. Otherwise only errors are
// logged, to stderr.
func initLogger(cfg *config.Config, stdout, stderr io.Writer) {
	lc := logger.Config{
		Level:     "error",
		Format:    "console",
		Writer:    stderr,
		Component: "sntpc",
		NoColor:   !isTerminal(stderr),
	}
	if cfg.Verbose {
		lc.Level = "info"
		lc.Writer = stdout
		lc.NoColor = !isTerminal(stdout)
	}
	// Console output cannot fail to initialize
	_ = logger.InitLogger(lc)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// writeReport prints the outcome in the configured format. The text format
// is silent except for a successful dry run.
func writeReport(cfg *config.Config, report *ntp.Report, runErr error, stdout io.Writer) error {
	switch cfg.OutputFormat {
	case config.FormatYAML:
		data, err := yaml.Marshal(report)
		if err != nil {
			return fmt.Errorf("failed to marshal report: %w", err)
		}
		_, err = stdout.Write(data)
		return err
	default:
		if runErr == nil && report.DryRun {
			fmt.Fprintln(stdout, "sntpc: not setting clock because of -n")
		}
		return nil
	}
}

// writeMetrics records the run in a Prometheus textfile
func writeMetrics(path string, report *ntp.Report) error {
	registry := metrics.NewRegistry()
	if err := registry.Register(); err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	m := registry.GetMetrics()
	m.SetBuildInfo(version)
	m.Observe(report, time.Now())

	if err := registry.WriteTextfile(path); err != nil {
		return err
	}
	logger.SafeInfo("main", "Metrics written", map[string]interface{}{
		"path": path,
	})
	return nil
}
