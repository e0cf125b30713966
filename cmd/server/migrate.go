package main

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/phrazzld/deckstudy/internal/platform/migrate"
	"github.com/urfave/cli/v3"
)

func cmdMigrate(g *globals) *cli.Command {
	return &cli.Command{
		Name:      "migrate",
		Aliases:   []string{"m"},
		Usage:     "Apply or inspect database migrations",
		ArgsUsage: "<" + strings.Join(migrate.Commands(), "|") + ">",
		Action: func(ctx context.Context, c *cli.Command) error {
			command := c.Args().First()
			if command == "" {
				return errors.New("migration command required")
			}
			if !slices.Contains(migrate.Commands(), command) {
				return fmt.Errorf("%w: %s", migrate.ErrUnknownCommand, command)
			}

			app, err := newApplication(ctx, g.cfg, g.logger)
			if err != nil {
				return err
			}
			defer app.cleanup()

			return runMigration(ctx, app, command)
		},
	}
}

func runMigration(ctx context.Context, app *application, command string) error {
	runner, err := app.migrator()
	if err != nil {
		return err
	}
	return runner.Run(ctx, command)
}
