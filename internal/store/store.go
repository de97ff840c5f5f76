// Package store links charts to dashboards in the analytics platform's
// metadata database.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // postgres driver
	_ "modernc.org/sqlite"             // sqlite driver
)

const (
	dialectPostgres = "pgx"
	dialectSQLite   = "sqlite"
)

// SQLStore writes dashboard/chart associations to the dashboard_slices table.
type SQLStore struct {
	db      *sql.DB
	dialect string
	logger  *slog.Logger
}

// Open connects to dsn. postgres:// and postgresql:// URLs use the platform's
// Postgres database; anything else is treated as a SQLite file path and the
// link table is created if missing.
func Open(ctx context.Context, dsn string, logger *slog.Logger) (*SQLStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dialect := dialectSQLite
	source := dsn
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		dialect = dialectPostgres
	} else {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
		source = dsn + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open(dialect, source)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLStore{db: db, dialect: dialect, logger: logger}
	if dialect == dialectSQLite {
		if err := s.initSchema(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("initialize schema: %w", err)
		}
	}
	return s, nil
}

func (s *SQLStore) initSchema(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS dashboard_slices (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		dashboard_id INTEGER NOT NULL,
		slice_id INTEGER NOT NULL,
		UNIQUE (dashboard_id, slice_id)
	);`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// placeholder returns the n-th (1-based) bind parameter for the dialect.
func (s *SQLStore) placeholder(n int) string {
	if s.dialect == dialectPostgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}
