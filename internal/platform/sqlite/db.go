package sqlite

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/jmoiron/sqlx"
	// Registers the "sqlite3" database/sql driver.
	_ "github.com/mattn/go-sqlite3"
	"github.com/phrazzld/deckstudy/internal/redact"
	"github.com/pressly/goose/v3"
)

// DriverName is the database/sql driver name registered by go-sqlite3.
const DriverName = "sqlite3"

// Dialect is the goose dialect of the embedded migrations.
const Dialect = goose.DialectSQLite3

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrations returns the schema migrations rooted at the migrations directory.
func Migrations() fs.FS {
	sub, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		// ALLOW-PANIC: the embedded directory is fixed at compile time
		panic(fmt.Sprintf("sqlite migrations: %v", err))
	}
	return sub
}

// Open connects to the SQLite database at dsn with foreign keys enforced.
// SQLite allows a single writer, so the pool holds one connection.
func Open(ctx context.Context, dsn string, logger *slog.Logger) (*sqlx.DB, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sqlx.ConnectContext(ctx, DriverName, dsn)
	if err != nil {
		logger.Error("failed to connect to database", slog.String("error", redact.Error(err)))
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	logger.Info("database connection established", slog.String("driver", DriverName))
	return db, nil
}
