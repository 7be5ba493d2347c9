// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/flosch/pongo2/v6"
	"golang.org/x/sync/errgroup"

	"github.com/statigo/statigo/internal/serve"
	"github.com/statigo/statigo/internal/site"
	"github.com/statigo/statigo/internal/watch"
)

// Run performs one build pass with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, logger, builder, err := initialize(opts)
	if err != nil {
		return err
	}

	if err := build(ctx, logger, builder); err != nil {
		return err
	}
	if app.callbacks.EndRun != nil {
		app.callbacks.EndRun()
	}
	return nil
}

// Serve builds the site, then serves the output tree over HTTP while
// watching the content tree and rebuilding on change.
func Serve(ctx context.Context, opts ...Option) error {
	app, logger, builder, err := initialize(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	if err := build(ctx, logger, builder); err != nil {
		return err
	}

	broker := serve.NewBroker()
	defer broker.Close()

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: serve.NewRouter(cfg.Site.OutputDir, broker),
	}

	// Serialize rebuilds: the watcher callback and shutdown can race.
	var buildMu sync.Mutex
	rebuild := func() {
		buildMu.Lock()
		defer buildMu.Unlock()
		if err := build(ctx, logger, builder); err != nil {
			logger.Error("rebuild failed", slog.String("error", err.Error()))
			return
		}
		broker.NotifyReload()
	}
	watcher := watch.New(cfg.Site.ContentDir, 250*time.Millisecond, logger, rebuild)

	logger.Info("preview server starting", slog.String("address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return watcher.Run(gCtx)
	})

	g.Go(func() error {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown error", slog.String("error", err.Error()))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("application error", slog.String("error", err.Error()))
		return err
	}

	if app.callbacks.EndRun != nil {
		app.callbacks.EndRun()
	}
	logger.Info("server stopped")
	return nil
}

// initialize applies options, configures logging, registers template
// extensions, and constructs the builder.
func initialize(opts []Option) (*application, *slog.Logger, *site.Builder, error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, nil, nil, fmt.Errorf("config is required")
	}
	cfg := app.config

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("configuration loaded",
		slog.String("content_dir", cfg.Site.ContentDir),
		slog.String("output_dir", cfg.Site.OutputDir),
		slog.String("default_template", cfg.Site.DefaultTemplate),
		slog.String("log_level", cfg.App.LogLevel.String()))

	if app.callbacks.InitStart != nil {
		app.callbacks.InitStart(cfg)
	}

	for name, fn := range app.filters {
		if err := pongo2.RegisterFilter(name, fn); err != nil {
			if err := pongo2.ReplaceFilter(name, fn); err != nil {
				return nil, nil, nil, fmt.Errorf("register filter %q: %w", name, err)
			}
		}
	}
	for name, parser := range app.tags {
		if err := pongo2.RegisterTag(name, parser); err != nil {
			if err := pongo2.ReplaceTag(name, parser); err != nil {
				return nil, nil, nil, fmt.Errorf("register tag %q: %w", name, err)
			}
		}
	}

	vars := make(map[string]any, len(cfg.Site.Vars)+len(app.vars))
	for k, v := range cfg.Site.Vars {
		vars[k] = v
	}
	for k, v := range app.vars {
		vars[k] = v
	}

	builder, err := site.New(site.Options{
		ContentDir:       cfg.Site.ContentDir,
		OutputDir:        cfg.Site.OutputDir,
		DefaultTemplate:  cfg.Site.DefaultTemplate,
		RootSubdir:       cfg.Site.RootSubdir,
		Root:             app.root,
		JinjaMarkdown:    cfg.Site.JinjaMarkdown,
		DateFromFilename: cfg.Site.DateFromFilename,
		SkipDirs:         cfg.Site.SkipDirs,
		Vars:             vars,
		SetupEnvironment: app.callbacks.SetupEnvironment,
		Logger:           logger,
	})
	if err != nil {
		return nil, nil, nil, err
	}

	if app.callbacks.InitEnd != nil {
		app.callbacks.InitEnd(cfg)
	}
	return app, logger, builder, nil
}

// build runs one pass and logs the outcome.
func build(ctx context.Context, logger *slog.Logger, builder *site.Builder) error {
	stats, err := builder.Build(ctx)
	if err != nil {
		return fmt.Errorf("build: %w", err)
	}
	logger.Info("site generated",
		slog.Int("documents", stats.Documents),
		slog.Int("aggregated", stats.Aggregated),
		slog.Int("copied", stats.Copied),
		slog.Int("skipped", stats.Skipped),
		slog.Int("removed", stats.Removed),
		slog.Duration("duration", stats.Duration))
	return nil
}
