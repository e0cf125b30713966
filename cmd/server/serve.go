package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/phrazzld/deckstudy/internal/api"
	"github.com/phrazzld/deckstudy/internal/config"
	"github.com/phrazzld/deckstudy/internal/platform/migrate"
	"github.com/phrazzld/deckstudy/internal/reminder"
	"github.com/phrazzld/deckstudy/internal/service/study_session"
	"github.com/urfave/cli/v3"
)

// Housekeeping of the in-memory session registry.
const (
	sessionPruneInterval = 5 * time.Minute
	sessionMaxIdle       = 30 * time.Minute
)

func cmdServe(g *globals) *cli.Command {
	var skipMigrate bool

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Run the HTTP API",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "skip-migrate",
				Usage:       "Do not apply pending migrations on startup",
				Sources:     cli.EnvVars("STUDY_SKIP_MIGRATE"),
				Destination: &skipMigrate,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			app, err := newApplication(ctx, g.cfg, g.logger)
			if err != nil {
				return err
			}
			defer app.cleanup()

			if !skipMigrate {
				runner, err := app.migrator()
				if err != nil {
					return err
				}
				if err := runner.Run(ctx, migrate.CommandUp); err != nil {
					return err
				}
			}

			handler, jobs, err := app.buildServer()
			if err != nil {
				return err
			}
			jobs.Start()
			defer jobs.Stop()

			ln, err := net.Listen("tcp", fmt.Sprintf(":%d", g.cfg.Server.Port))
			if err != nil {
				return fmt.Errorf("failed to listen on port %d: %w", g.cfg.Server.Port, err)
			}
			return serveHTTP(ctx, ln, handler, app.logger)
		},
	}
}

// buildServer wires the HTTP handlers and the background jobs. The jobs are
// returned stopped.
func (app *application) buildServer() (http.Handler, *reminder.Scheduler, error) {
	log := app.logger

	registry := api.NewSessionRegistry(func() *study_session.Controller {
		return study_session.NewController(app.cardStore, app.scheduler, log)
	}, log)

	router := api.NewRouter(api.RouterConfig{
		Sessions:       api.NewSessionHandler(registry, app.cardStore, log),
		Decks:          api.NewDeckHandler(app.deckService, log),
		AllowedOrigins: app.config.Server.CORSAllowedOrigins,
		Logger:         log,
	})

	jobs := reminder.NewScheduler(log)
	err := jobs.Every(sessionPruneInterval, "session-prune", false, func(ctx context.Context) error {
		if n := registry.Prune(sessionMaxIdle); n > 0 {
			log.InfoContext(ctx, "pruned study sessions", slog.Int("removed", n))
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	if app.config.Reminder.Enabled {
		notifier, err := newNotifier(app.config.Reminder, log)
		if err != nil {
			return nil, nil, err
		}
		svc, err := reminder.NewService(app.cardStore, app.deckStore, notifier, log)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create reminder service: %w", err)
		}
		interval := time.Duration(app.config.Reminder.IntervalMinutes) * time.Minute
		if err := jobs.EveryReminderCheck(interval, svc); err != nil {
			return nil, nil, err
		}
	}

	return router, jobs, nil
}

// newNotifier always logs reminders and also delivers them to Telegram and
// Slack when those are configured.
func newNotifier(cfg config.ReminderConfig, log *slog.Logger) (reminder.Notifier, error) {
	notifiers := reminder.MultiNotifier{reminder.NewLogNotifier(log)}

	if cfg.TelegramToken != "" {
		tg, err := reminder.NewTelegramNotifier(cfg.TelegramToken, cfg.TelegramChatID)
		if err != nil {
			return nil, err
		}
		notifiers = append(notifiers, tg)
	}
	if cfg.SlackWebhookURL != "" {
		sl, err := reminder.NewSlackNotifier(cfg.SlackWebhookURL)
		if err != nil {
			return nil, err
		}
		notifiers = append(notifiers, sl)
	}

	if len(notifiers) == 1 {
		return notifiers[0], nil
	}
	return notifiers, nil
}
