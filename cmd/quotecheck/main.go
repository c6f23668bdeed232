// Command quotecheck runs the quote-form scenario battery against a live page
// and writes a report.
//
// Usage:
//
//	quotecheck [-url URL] [-scenario FILTER] [-parallel N] [-report md|html|json] [-out PATH]
//	quotecheck -fixture            # run against the built-in stand-in page
//	quotecheck -list               # print scenario names
//
// Exit status is 0 when every scenario passed, 1 when scenarios failed, 2 for
// configuration or internal errors and 3 when no browser could be launched.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kuitang/quoteform-e2e/internal/artifacts"
	"github.com/kuitang/quoteform-e2e/internal/automation"
	"github.com/kuitang/quoteform-e2e/internal/config"
	"github.com/kuitang/quoteform-e2e/internal/fixturesite"
	"github.com/kuitang/quoteform-e2e/internal/matrix"
	"github.com/kuitang/quoteform-e2e/internal/obs"
	"github.com/kuitang/quoteform-e2e/internal/report"
)

const (
	exitOK     = 0
	exitConfig = 2
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	launcher := automation.NewPlaywrightLauncher()

	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr, launcher)

	if err := launcher.Stop(); err != nil {
		obs.Pkg("quotecheck").Warn("driver_stop_failed", "error", err)
	}
	cancel()
	os.Exit(code)
}

type options struct {
	cfg         *config.Flags
	scenario    string
	parallel    int
	format      string
	out         string
	fixture     bool
	fixtureAddr string
	list        bool
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("quotecheck", flag.ContinueOnError)
	fs.SetOutput(stderr)
	opts := &options{cfg: config.RegisterFlags(fs)}
	fs.StringVar(&opts.scenario, "scenario", "", "Run only scenarios whose name contains this text")
	fs.IntVar(&opts.parallel, "parallel", 1, "Number of concurrent browser sessions")
	fs.StringVar(&opts.format, "report", "md", "Report format: md, html or json")
	fs.StringVar(&opts.out, "out", "-", "Report path, - for stdout")
	fs.BoolVar(&opts.fixture, "fixture", false, "Serve the built-in stand-in quote page and run against it")
	fs.StringVar(&opts.fixtureAddr, "fixture-addr", "127.0.0.1:0", "Listen address for -fixture")
	fs.BoolVar(&opts.list, "list", false, "List scenario names and exit")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if opts.parallel < 1 {
		return nil, fmt.Errorf("-parallel must be at least 1, got %d", opts.parallel)
	}
	return opts, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer, launcher automation.Launcher) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintln(stderr, "quotecheck:", err)
		return exitConfig
	}

	obs.Init()
	log := obs.Pkg("quotecheck")

	format, err := report.ParseFormat(opts.format)
	if err != nil {
		fmt.Fprintln(stderr, "quotecheck:", err)
		return exitConfig
	}

	m, err := matrix.Load()
	if err != nil {
		fmt.Fprintln(stderr, "quotecheck:", err)
		return exitConfig
	}
	selected := m.Select(opts.scenario)
	if opts.list {
		for _, s := range selected {
			fmt.Fprintln(stdout, s.Name)
		}
		return exitOK
	}
	if len(selected) == 0 {
		fmt.Fprintf(stderr, "quotecheck: no scenario matches %q\n", opts.scenario)
		return exitConfig
	}

	if opts.fixture {
		srv, err := fixturesite.Start(fixturesite.New(nil), opts.fixtureAddr)
		if err != nil {
			fmt.Fprintln(stderr, "quotecheck:", err)
			return exitConfig
		}
		defer func() {
			if err := srv.Close(); err != nil {
				log.Warn("fixture_site_close_failed", "error", err)
			}
		}()
		opts.cfg.TargetURL = srv.PageURL()
	}

	cfg, err := config.LoadConfig(opts.cfg)
	if err != nil {
		fmt.Fprintln(stderr, "quotecheck:", err)
		return exitConfig
	}
	cfg.PrintStartupSummary()

	store, err := artifacts.NewStore(ctx, cfg)
	if err != nil {
		fmt.Fprintln(stderr, "quotecheck:", err)
		return exitConfig
	}

	runID := obs.NewRunID()
	ctx = obs.WithRunID(ctx, runID)
	runner := &matrix.Runner{Launcher: launcher, Config: cfg, Artifacts: store, RunID: runID}

	log.Info("run_started", "run_id", runID, "scenarios", len(selected), "parallel", opts.parallel, "target", cfg.TargetURL)
	started := time.Now()
	outcomes := runner.RunAll(ctx, selected, opts.parallel)
	rep := report.New(runID, cfg.TargetURL, started, time.Now(), outcomes)
	log.Info("run_finished", "run_id", runID, "passed", rep.Summary.Passed, "failed", rep.Summary.Failed)

	if err := writeReport(opts.out, stdout, format, rep); err != nil {
		fmt.Fprintln(stderr, "quotecheck:", err)
		return exitConfig
	}
	return matrix.ExitCode(outcomes)
}

func writeReport(path string, stdout io.Writer, format report.Format, rep report.Report) error {
	if path == "" || path == "-" {
		return report.Write(stdout, format, rep)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	if err := report.Write(f, format, rep); err != nil {
		_ = f.Close()
		return fmt.Errorf("write report: %w", err)
	}
	return f.Close()
}
