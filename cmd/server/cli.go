package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/phrazzld/deckstudy/internal/config"
	"github.com/phrazzld/deckstudy/internal/platform/logger"
	"github.com/phrazzld/deckstudy/internal/redact"
	"github.com/urfave/cli/v3"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

// globals carries what the root command's Before hook prepares for the
// subcommands.
type globals struct {
	cfg    *config.Config
	logger *slog.Logger
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	var (
		configPath string
		envFile    string
		g          globals
	)

	app := &cli.Command{
		Name:    "deckstudy",
		Usage:   "Spaced-repetition study sessions over imported decks",
		Version: version,
		Writer:  stdout,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to a config file (default: ./config.yaml if present)",
				Sources:     cli.EnvVars("STUDY_CONFIG_FILE"),
				Destination: &configPath,
			},
			&cli.StringFlag{
				Name:        "env-file",
				Usage:       "Dotenv file loaded before configuration",
				Value:       ".env",
				Destination: &envFile,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			if err := loadEnvFile(envFile); err != nil {
				return ctx, err
			}

			cfg, err := loadConfig(configPath)
			if err != nil {
				return ctx, err
			}

			log, err := logger.Setup(cfg.Server)
			if err != nil {
				return ctx, fmt.Errorf("failed to set up logger: %w", err)
			}

			g.cfg = cfg
			g.logger = log
			log.Debug("configuration loaded",
				slog.String("database_driver", cfg.Database.Driver),
				slog.Int("port", cfg.Server.Port))
			return logger.WithLogger(ctx, log), nil
		},
		Commands: []*cli.Command{
			cmdServe(&g),
			cmdMigrate(&g),
			cmdImport(&g),
			cmdReset(&g),
			cmdPreview(&g),
		},
	}

	if err := app.Run(ctx, args); err != nil {
		log := g.logger
		if log == nil {
			log = slog.Default()
		}
		log.Error("failed to run command", slog.String("error", redact.Error(err)))
		return err
	}
	return nil
}

// loadEnvFile loads a dotenv file. A missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}
