// Package main is the entry point for the gochat terminal client and HTTP server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/term"

	"gochat/config"
	"gochat/internal/app"
	"gochat/internal/engine"
	"gochat/internal/logging"
	"gochat/internal/status"
	"gochat/internal/version"
)

func main() {
	os.Exit(run())
}

func run() int {
	versionFlag := flag.Bool("version", false, "Print version information")
	serve := flag.Bool("serve", false, "Serve the session over HTTP instead of the terminal")
	configPath := flag.String("config", "", "Path to the YAML config (default: $GOCHAT_CONFIG or config.yaml)")
	flag.Parse()

	if *versionFlag {
		fmt.Println(version.Info())
		return 0
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}

	logger, err := logging.New(os.Stderr, logging.Options{Format: cfg.Logging.Format, Level: cfg.Logging.Level})
	if err != nil {
		slog.Error("invalid logging configuration", "error", err)
		return 1
	}
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var reporter engine.StatusReporter
	if !*serve {
		reporter = failureReporter{w: status.NewWriter(os.Stdout, logging.IsTerminal(os.Stdout))}
	}

	a, err := app.New(ctx, app.Config{AppConfig: cfg, Status: reporter, Logger: logger})
	if err != nil {
		slog.Error("failed to initialize", "error", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := a.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if *serve {
		return serveHTTP(ctx, a, cfg)
	}
	return interactive(ctx, a, cfg)
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

func serveHTTP(ctx context.Context, a *app.App, cfg *config.Config) int {
	slog.Info("starting gochat", "version", version.Version, "commit", version.Commit)
	if cfg.Server.MasterKey == "" {
		slog.Warn("GOCHAT_MASTER_KEY not set, HTTP API is unauthenticated")
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := a.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	if err := a.Start(":" + cfg.Server.Port); err != nil {
		slog.Error("server failed", "error", err)
		return 1
	}
	return 0
}

func interactive(ctx context.Context, a *app.App, cfg *config.Config) int {
	stdinTTY := term.IsTerminal(int(os.Stdin.Fd()))
	r := &repl{
		session:      a.Engine(),
		models:       a.Catalog(),
		model:        a.Model(),
		historyLimit: 20,
		in:           os.Stdin,
		out:          os.Stdout,
		prompt:       stdinTTY,
	}
	if cfg.History.Enabled {
		r.history = a.History()
	}
	if cfg.History.LoadOnStart > 0 {
		r.historyLimit = cfg.History.LoadOnStart
	}
	if stdinTTY {
		fmt.Fprintf(os.Stdout, "gochat %s, model %s. Type /help for commands.\n", version.Version, cfg.Model.Option)
	}

	done := make(chan error, 1)
	go func() { done <- r.run(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			slog.Error("input error", "error", err)
			return 1
		}
	case <-ctx.Done():
		fmt.Fprintln(os.Stdout)
	}
	return 0
}
