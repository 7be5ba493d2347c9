package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/statigo/statigo/internal"
	pkgconfig "github.com/statigo/statigo/pkg/config"
)

// loadConfig layers the YAML config file (when present) over the typed
// defaults, then applies CLI flag overrides.
func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadIfPresent(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cmd.IsSet("content") {
		cfg.Site.ContentDir = cmd.String("content")
	}
	if cmd.IsSet("output") {
		cfg.Site.OutputDir = cmd.String("output")
	}
	if cmd.IsSet("port") {
		cfg.App.HTTP.Port = int(cmd.Int("port"))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runBuild(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.Run(ctx, internal.WithConfig(cfg))
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.Serve(ctx, internal.WithConfig(cfg))
}

func main() {
	cmd := &cli.Command{
		Name:   "statigo",
		Usage:  "Incremental static site generator: Markdown with front matter in, templated HTML out",
		Action: runBuild,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "site.yaml",
				Value:       "site.yaml",
				Sources:     cli.EnvVars("STATIGO_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:  "content",
				Usage: "Override the content directory",
			},
			&cli.StringFlag{
				Name:  "output",
				Usage: "Override the output directory",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "build",
				Usage:  "Run one build pass",
				Action: runBuild,
			},
			{
				Name:   "serve",
				Usage:  "Build, then serve the output with live reload while watching for changes",
				Action: runServe,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "port",
						Usage: "Preview server port",
					},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
