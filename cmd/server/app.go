package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/phrazzld/deckstudy/internal/config"
	"github.com/phrazzld/deckstudy/internal/domain/srs"
	"github.com/phrazzld/deckstudy/internal/platform/migrate"
	"github.com/phrazzld/deckstudy/internal/platform/postgres"
	"github.com/phrazzld/deckstudy/internal/platform/sqlite"
	"github.com/phrazzld/deckstudy/internal/service"
	"github.com/phrazzld/deckstudy/internal/store"
	"github.com/pressly/goose/v3"
)

// Supported values of database.driver.
const (
	driverPostgres = "postgres"
	driverSQLite   = "sqlite"
)

// application holds the components every command shares.
type application struct {
	config *config.Config
	logger *slog.Logger

	db         *sql.DB
	dialect    goose.Dialect
	migrations fs.FS

	deckStore store.DeckStore
	cardStore store.CardStore

	scheduler   srs.Service
	deckService service.DeckService
}

// newApplication opens the configured store and wires the services on top
// of it. Callers must call cleanup.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	app := &application{config: cfg, logger: logger}

	if err := app.openStore(ctx); err != nil {
		return nil, err
	}

	scheduler, err := newScheduler(cfg.Scheduler)
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	app.scheduler = scheduler

	deckService, err := service.NewDeckService(app.deckStore, app.cardStore, scheduler, logger)
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to create deck service: %w", err)
	}
	app.deckService = deckService

	return app, nil
}

func (app *application) openStore(ctx context.Context) error {
	dbCfg := app.config.Database

	switch dbCfg.Driver {
	case driverSQLite:
		db, err := sqlite.Open(ctx, dbCfg.URL, app.logger)
		if err != nil {
			return err
		}
		app.db = db.DB
		app.dialect = sqlite.Dialect
		app.migrations = sqlite.Migrations()
		app.deckStore = sqlite.NewDeckStore(db, app.logger)
		app.cardStore = sqlite.NewCardStore(db, app.logger)

	case driverPostgres:
		db, err := postgres.Open(ctx, dbCfg.URL, app.logger)
		if err != nil {
			return err
		}
		app.db = db
		app.dialect = postgres.Dialect
		app.migrations = postgres.Migrations()
		app.deckStore = postgres.NewPostgresDeckStore(db, app.logger)
		app.cardStore = postgres.NewPostgresCardStore(db, app.logger)

	default:
		return fmt.Errorf("unsupported database driver %q", dbCfg.Driver)
	}
	return nil
}

// migrator returns a goose runner for the open store.
func (app *application) migrator() (*migrate.Runner, error) {
	return migrate.NewRunner(app.db, app.dialect, app.migrations, app.logger)
}

// cleanup closes the database.
func (app *application) cleanup() {
	if app.db == nil {
		return
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error("failed to close database", slog.String("error", err.Error()))
	}
	app.db = nil
}

// newScheduler builds the scheduler from configuration. An empty weight list
// keeps the default weights.
func newScheduler(cfg config.SchedulerConfig) (srs.Service, error) {
	params := srs.ParamsConfig{
		RequestedRetention:  cfg.RequestedRetention,
		MaximumIntervalDays: cfg.MaximumIntervalDays,
		DisableFuzz:         !cfg.EnableFuzz,
	}
	if len(cfg.Weights) > 0 {
		weights, err := srs.WeightsFromSlice(cfg.Weights)
		if err != nil {
			return nil, err
		}
		params.Weights = weights
	}
	return srs.NewServiceWithParams(srs.NewParams(params))
}
