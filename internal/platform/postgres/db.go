package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	// Registers the "pgx" database/sql driver.
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/phrazzld/deckstudy/internal/redact"
	"github.com/pressly/goose/v3"
)

// DriverName is the database/sql driver name registered by pgx.
const DriverName = "pgx"

// Dialect is the goose dialect of the embedded migrations.
const Dialect = goose.DialectPostgres

// Connection pool settings.
const (
	maxOpenConns    = 10
	maxIdleConns    = 5
	connMaxLifetime = 5 * time.Minute
	pingTimeout     = 5 * time.Second
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrations returns the schema migrations rooted at the migrations directory.
func Migrations() fs.FS {
	sub, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		// ALLOW-PANIC: the embedded directory is fixed at compile time
		panic(fmt.Sprintf("postgres migrations: %v", err))
	}
	return sub
}

// Open connects to PostgreSQL, configures the pool and verifies the
// connection with a ping.
func Open(ctx context.Context, url string, logger *slog.Logger) (*sql.DB, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open(DriverName, url)
	if err != nil {
		logger.Error("failed to open database connection", slog.String("error", redact.Error(err)))
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		logger.Error("failed to ping database", slog.String("error", redact.Error(err)))
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("database connection established", slog.String("driver", DriverName))
	return db, nil
}
