// Command navkey detects previous/next navigation targets on a page and
// binds them for activation.
//
// Usage:
//
//	navkey -url https://example.com/articles            # watch a live page
//	navkey -url https://example.com/articles -static    # no browser, plain HTTP
//	navkey -once https://example.com/articles?page=2    # one static pass, print result
//	navkey -url ... -serve :8400                        # expose the status surface
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/navkey/navbind"
	"github.com/hazyhaar/navkey/navdetect"
	"github.com/hazyhaar/navkey/navdetect/page"
	"github.com/hazyhaar/navkey/navhost"
	"github.com/hazyhaar/navkey/rescan"
)

func main() {
	watchURL := flag.String("url", "", "watch a page and keep bindings fresh")
	onceURL := flag.String("once", "", "run one static detection pass and print the result")
	static := flag.Bool("static", false, "use the HTTP host instead of a browser")
	explain := flag.Bool("explain", false, "with -once: print per-element verdicts instead of the result")
	serveAddr := flag.String("serve", "", "serve the status/training HTTP surface on this address")
	dbPath := flag.String("db", "", "trained-override database path (empty disables training)")
	configPath := flag.String("config", "", "path to a tunables YAML file")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, options{
		watchURL: *watchURL,
		onceURL:  *onceURL,
		static:   *static,
		explain:  *explain,
		serve:    *serveAddr,
		db:       *dbPath,
		config:   *configPath,
	}); err != nil {
		logger.Error("navkey: fatal", "error", err)
		os.Exit(1)
	}
}

type options struct {
	watchURL string
	onceURL  string
	static   bool
	explain  bool
	serve    string
	db       string
	config   string
}

func run(ctx context.Context, logger *slog.Logger, opts options) error {
	detector, err := newDetector(opts.config, logger)
	if err != nil {
		return err
	}

	if opts.onceURL != "" {
		return runOnce(ctx, detector, opts)
	}
	if opts.watchURL != "" {
		return runWatch(ctx, logger, detector, opts)
	}

	fmt.Fprintln(os.Stderr, "usage: navkey -url <url> [-static] [-serve addr] [-db path] | -once <url> [-explain]")
	os.Exit(1)
	return nil
}

func newDetector(configPath string, logger *slog.Logger) (*navdetect.Detector, error) {
	opts := []navdetect.Option{navdetect.WithLogger(logger)}
	if configPath != "" {
		tun, err := navdetect.LoadTunablesFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		opts = append(opts, navdetect.WithTunables(tun))
	}
	return navdetect.New(opts...), nil
}

// runOnce does one static snapshot-and-detect pass and prints JSON.
func runOnce(ctx context.Context, detector *navdetect.Detector, opts options) error {
	host := navhost.NewStatic(opts.onceURL)
	snap, err := host.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}

	if opts.explain {
		return printJSON(detector.Explain(snap))
	}

	res := detector.Detect(snap)
	data, err := page.MarshalResult(&res)
	if err != nil {
		return err
	}
	os.Stdout.Write(data)
	os.Stdout.Write([]byte("\n"))
	return nil
}

// runWatch binds a page and keeps the bindings fresh until interrupted.
func runWatch(ctx context.Context, logger *slog.Logger, detector *navdetect.Detector, opts options) error {
	var host navbind.Host

	if opts.static {
		host = navhost.NewStatic(opts.watchURL, navhost.WithStaticLogger(logger))
	} else {
		browser, err := navhost.OpenBrowser(ctx, opts.watchURL, navhost.BrowserConfig{Logger: logger})
		if err != nil {
			return fmt.Errorf("open browser: %w", err)
		}
		defer browser.Close()
		host = browser
	}

	binder, err := navbind.New(navbind.Config{
		Host:      host,
		Detector:  detector,
		StorePath: opts.db,
		Rescan:    rescan.Config{},
		Logger:    logger,
	})
	if err != nil {
		return err
	}
	defer binder.Close()

	if browser, ok := host.(*navhost.Browser); ok {
		if err := browser.Watch(ctx, binder.Notify); err != nil {
			return fmt.Errorf("watch page: %w", err)
		}
	}

	if opts.serve != "" {
		srv := &http.Server{Addr: opts.serve, Handler: navbind.StatusHandler(binder, logger)}
		go func() {
			logger.Info("navkey: status surface listening", "addr", opts.serve)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("navkey: status surface failed", "error", err)
			}
		}()
		defer srv.Shutdown(context.Background())
	}

	binder.Run(ctx)
	return nil
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	os.Stdout.Write(data)
	os.Stdout.Write([]byte("\n"))
	return nil
}
