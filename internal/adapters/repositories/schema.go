package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

var sqliteSchema = []string{
	`
	CREATE TABLE IF NOT EXISTS stops (
		id TEXT PRIMARY KEY,
		address TEXT NOT NULL,
		customer_name TEXT NOT NULL DEFAULT '',
		service_type TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		lat REAL,
		lon REAL,
		day_of_week TEXT NOT NULL DEFAULT '',
		delivery_date TEXT NOT NULL DEFAULT '',
		confirmed INTEGER NOT NULL DEFAULT 1,
		CHECK ((lat IS NULL) = (lon IS NULL))
	);
	`,
	`
	CREATE INDEX IF NOT EXISTS idx_stops_schedule
	ON stops(day_of_week, delivery_date);
	`,
	`
	CREATE TABLE IF NOT EXISTS routes (
		id TEXT PRIMARY KEY,
		day_of_week TEXT NOT NULL DEFAULT '',
		delivery_date TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		driver_id TEXT,
		stop_count INTEGER NOT NULL,
		total_distance_km REAL,
		estimated_minutes INTEGER,
		metrics_source TEXT NOT NULL DEFAULT '',
		navigation_url TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`,
	`
	CREATE INDEX IF NOT EXISTS idx_routes_schedule
	ON routes(day_of_week, delivery_date);
	`,
	`
	CREATE TABLE IF NOT EXISTS route_stops (
		route_id TEXT NOT NULL REFERENCES routes(id) ON DELETE CASCADE,
		sequence INTEGER NOT NULL,
		stop_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		address TEXT NOT NULL DEFAULT '',
		customer_name TEXT NOT NULL DEFAULT '',
		service_type TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		lat REAL,
		lon REAL,
		PRIMARY KEY (route_id, sequence)
	);
	`,
	`
	CREATE TABLE IF NOT EXISTS work_location (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		address TEXT NOT NULL,
		lat REAL NOT NULL,
		lon REAL NOT NULL
	);
	`,
	`
	CREATE TABLE IF NOT EXISTS geocode_cache (
		address TEXT PRIMARY KEY,
		lat REAL NOT NULL,
		lon REAL NOT NULL,
		updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	`,
}

var postgresSchema = []string{
	`
	CREATE TABLE IF NOT EXISTS stops (
		id TEXT PRIMARY KEY,
		address TEXT NOT NULL,
		customer_name TEXT NOT NULL DEFAULT '',
		service_type TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		lat DOUBLE PRECISION,
		lon DOUBLE PRECISION,
		day_of_week TEXT NOT NULL DEFAULT '',
		delivery_date TEXT NOT NULL DEFAULT '',
		confirmed BOOLEAN NOT NULL DEFAULT TRUE,
		CHECK ((lat IS NULL) = (lon IS NULL))
	);
	`,
	`
	CREATE INDEX IF NOT EXISTS idx_stops_schedule
	ON stops(day_of_week, delivery_date);
	`,
	`
	CREATE TABLE IF NOT EXISTS routes (
		id TEXT PRIMARY KEY,
		day_of_week TEXT NOT NULL DEFAULT '',
		delivery_date TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		driver_id TEXT,
		stop_count INTEGER NOT NULL,
		total_distance_km DOUBLE PRECISION,
		estimated_minutes INTEGER,
		metrics_source TEXT NOT NULL DEFAULT '',
		navigation_url TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);
	`,
	`
	CREATE INDEX IF NOT EXISTS idx_routes_schedule
	ON routes(day_of_week, delivery_date);
	`,
	`
	CREATE TABLE IF NOT EXISTS route_stops (
		route_id TEXT NOT NULL REFERENCES routes(id) ON DELETE CASCADE,
		sequence INTEGER NOT NULL,
		stop_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		address TEXT NOT NULL DEFAULT '',
		customer_name TEXT NOT NULL DEFAULT '',
		service_type TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		lat DOUBLE PRECISION,
		lon DOUBLE PRECISION,
		PRIMARY KEY (route_id, sequence)
	);
	`,
	`
	CREATE TABLE IF NOT EXISTS work_location (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		address TEXT NOT NULL,
		lat DOUBLE PRECISION NOT NULL,
		lon DOUBLE PRECISION NOT NULL
	);
	`,
	`
	CREATE TABLE IF NOT EXISTS geocode_cache (
		address TEXT PRIMARY KEY,
		lat DOUBLE PRECISION NOT NULL,
		lon DOUBLE PRECISION NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	`,
}

// Initialize the SQLite database schema.
func InitSchema(ctx context.Context, db *sql.DB) error {
	return initSchema(ctx, db, sqliteSchema)
}

// Initialize the Postgres database schema.
func InitPostgresSchema(ctx context.Context, db *sql.DB) error {
	return initSchema(ctx, db, postgresSchema)
}

func initSchema(ctx context.Context, db *sql.DB, statements []string) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}
