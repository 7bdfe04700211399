// Package topodb persists the last good topology snapshot in SQLite so the
// service can start, and keep serving, while the topology source is down.
package topodb

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // CGo-based SQLite driver

	"weekendest.com/stations/internal/appconf"
	"weekendest.com/stations/internal/logging"
)

//go:embed schema.sql
var ddl string

// Config controls where the store lives.
type Config struct {
	DBPath  string
	Env     appconf.Environment
	Verbose bool
}

// Client wraps the SQLite handle.
type Client struct {
	config Config
	DB     *sql.DB
	logger *slog.Logger
}

// NewClient opens (creating if needed) the database at config.DBPath and
// applies the schema.
func NewClient(config Config) (*Client, error) {
	logger := slog.Default().With(slog.String("component", "topodb"))

	db, err := createDB(config, logger)
	if err != nil {
		return nil, fmt.Errorf("unable to create DB: %w", err)
	}
	if config.Verbose {
		logging.LogOperation(logger, "topodb_schema_applied", slog.String("path", config.DBPath))
	}

	return &Client{config: config, DB: db, logger: logger}, nil
}

func (c *Client) Close() error {
	return c.DB.Close()
}

func (c *Client) GetDBPath() string {
	return c.config.DBPath
}

func createDB(config Config, logger *slog.Logger) (*sql.DB, error) {
	if config.Env == appconf.Test && config.DBPath != ":memory:" {
		return nil, fmt.Errorf("test database must use in-memory storage, got path: %s", config.DBPath)
	}

	db, err := sql.Open("sqlite3", config.DBPath)
	if err != nil {
		return nil, err
	}

	// Pool settings go first: every :memory: connection is its own database.
	configureConnectionPool(db, config)

	ctx := context.Background()
	if err := configureSQLite(ctx, db, logger); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("error configuring SQLite: %w", err)
	}
	if err := performDatabaseMigration(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("error performing database migration: %w", err)
	}
	return db, nil
}

func performDatabaseMigration(ctx context.Context, db *sql.DB) error {
	for _, stmt := range strings.Split(ddl, "-- migrate") {
		trimmed := strings.TrimSpace(stmt)
		if trimmed == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, trimmed); err != nil {
			return fmt.Errorf("error executing DDL statement [%s]: %w", trimmed, err)
		}
	}
	return nil
}

func configureSQLite(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	pragmas := []struct {
		statement   string
		description string
	}{
		{"PRAGMA cache_size=-8000", "cache size"},
		{"PRAGMA temp_store=MEMORY", "temp store"},
		{"PRAGMA busy_timeout=5000", "busy timeout"},
	}

	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p.statement); err != nil {
			logging.LogError(logger, "failed to set "+p.description, err)
			return fmt.Errorf("failed to execute %s: %w", p.statement, err)
		}
	}
	return nil
}

// configureConnectionPool limits :memory: databases to one connection, since
// each connection would otherwise see its own empty database. File databases
// get a small pool; the store is written rarely and read at startup.
func configureConnectionPool(db *sql.DB, config Config) {
	if config.DBPath == ":memory:" {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		return
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)
}

var countedTables = map[string]string{
	"stations":          "SELECT COUNT(*) FROM stations",
	"station_stops":     "SELECT COUNT(*) FROM station_stops",
	"station_transfers": "SELECT COUNT(*) FROM station_transfers",
	"trains":            "SELECT COUNT(*) FROM trains",
	"train_statuses":    "SELECT COUNT(*) FROM train_statuses",
	"routing_lines":     "SELECT COUNT(*) FROM routing_lines",
	"routing_paths":     "SELECT COUNT(*) FROM routing_paths",
}

// TableCounts reports row counts for the topology tables that exist.
func (c *Client) TableCounts(ctx context.Context) (map[string]int, error) {
	rows, err := c.DB.QueryContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%'")
	if err != nil {
		return nil, fmt.Errorf("failed to query table names: %w", err)
	}
	defer logging.SafeCloseWithLogging(rows, c.logger, "table_names")

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(tables))
	for _, table := range tables {
		query, ok := countedTables[table]
		if !ok {
			continue
		}
		var n int
		if err := c.DB.QueryRowContext(ctx, query).Scan(&n); err != nil {
			return nil, err
		}
		counts[table] = n
	}
	return counts, nil
}
