// Package migrate applies the embedded schema migrations of a storage
// backend through goose.
package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/pressly/goose/v3"
)

// Supported migration commands.
const (
	CommandUp      = "up"
	CommandDown    = "down"
	CommandReset   = "reset"
	CommandStatus  = "status"
	CommandVersion = "version"
)

// ErrUnknownCommand is returned for a command outside the supported set.
var ErrUnknownCommand = errors.New("unknown migration command")

// Commands lists the supported migration commands.
func Commands() []string {
	return []string{CommandUp, CommandDown, CommandReset, CommandStatus, CommandVersion}
}

// slogGooseLogger routes goose output to slog.
type slogGooseLogger struct {
	logger *slog.Logger
}

func (l *slogGooseLogger) Printf(format string, v ...any) {
	l.logger.Debug(fmt.Sprintf(format, v...))
}

// Fatalf logs at error level. It does not exit; the provider reports the
// failure as an error to the caller.
func (l *slogGooseLogger) Fatalf(format string, v ...any) {
	l.logger.Error(fmt.Sprintf(format, v...))
}

// Runner executes migration commands against one database.
type Runner struct {
	provider *goose.Provider
	logger   *slog.Logger
}

// NewRunner creates a runner for the given dialect and migration files.
func NewRunner(
	db *sql.DB,
	dialect goose.Dialect,
	migrations fs.FS,
	logger *slog.Logger,
) (*Runner, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "migrations"))

	provider, err := goose.NewProvider(dialect, db, migrations,
		goose.WithLogger(&slogGooseLogger{logger: logger}),
		goose.WithVerbose(logger.Enabled(context.Background(), slog.LevelDebug)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create migration provider: %w", err)
	}

	return &Runner{provider: provider, logger: logger}, nil
}

// Run executes a single migration command.
func (r *Runner) Run(ctx context.Context, command string) error {
	start := time.Now()
	log := r.logger.With(slog.String("command", command))
	log.Info("starting migration command")

	var err error
	switch command {
	case CommandUp:
		var results []*goose.MigrationResult
		results, err = r.provider.Up(ctx)
		r.logResults(log, results)
	case CommandDown:
		var result *goose.MigrationResult
		result, err = r.provider.Down(ctx)
		if result != nil {
			r.logResults(log, []*goose.MigrationResult{result})
		}
	case CommandReset:
		var results []*goose.MigrationResult
		results, err = r.provider.DownTo(ctx, 0)
		r.logResults(log, results)
	case CommandStatus:
		err = r.logStatus(ctx, log)
	case CommandVersion:
		var version int64
		version, err = r.Version(ctx)
		if err == nil {
			log.Info("current schema version", slog.Int64("version", version))
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, command)
	}

	if err != nil {
		log.Error("migration command failed",
			slog.String("error", err.Error()),
			slog.Duration("duration", time.Since(start)))
		return fmt.Errorf("migration %s failed: %w", command, err)
	}

	log.Info("migration command completed", slog.Duration("duration", time.Since(start)))
	return nil
}

// Version returns the current schema version.
func (r *Runner) Version(ctx context.Context) (int64, error) {
	return r.provider.GetDBVersion(ctx)
}

func (r *Runner) logResults(log *slog.Logger, results []*goose.MigrationResult) {
	if len(results) == 0 {
		log.Info("no migrations to apply")
		return
	}
	for _, res := range results {
		if res == nil || res.Source == nil {
			continue
		}
		log.Info("applied migration",
			slog.Int64("version", res.Source.Version),
			slog.String("direction", res.Direction),
			slog.Duration("duration", res.Duration))
	}
}

func (r *Runner) logStatus(ctx context.Context, log *slog.Logger) error {
	statuses, err := r.provider.Status(ctx)
	if err != nil {
		return err
	}
	for _, st := range statuses {
		attrs := []any{
			slog.Int64("version", st.Source.Version),
			slog.String("state", string(st.State)),
		}
		if !st.AppliedAt.IsZero() {
			attrs = append(attrs, slog.Time("applied_at", st.AppliedAt))
		}
		log.Info("migration status", attrs...)
	}
	return nil
}
