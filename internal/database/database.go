package database

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

type DB struct {
	*sql.DB
	logger *zap.Logger
}

func New(storagePath string, logger *zap.Logger) (*DB, error) {
	db, err := sql.Open("sqlite", storagePath+"?_foreign_keys=1&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single connection: sqlite is single-writer, and an in-memory
	// database exists per connection.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	database := &DB{
		DB:     db,
		logger: logger,
	}

	if err := database.migrate(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Info("Database connection established", zap.String("path", storagePath))
	return database, nil
}

func (db *DB) migrate() error {
	migrations := []string{
		// Device identity and credentials. Single row; the device ID is
		// written once and never regenerated.
		`CREATE TABLE IF NOT EXISTS device_info (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			device_id TEXT UNIQUE NOT NULL,
			device_name TEXT,
			access_token TEXT,
			refresh_token TEXT,
			registered_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			last_sync_at TIMESTAMP
		)`,
		// Durable pending queue of activity records awaiting sync.
		`CREATE TABLE IF NOT EXISTS pending_activities (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			activity_data TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			retry_count INTEGER DEFAULT 0,
			last_attempt TIMESTAMP,
			blocked INTEGER DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_pending_activities_created ON pending_activities(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_pending_activities_blocked ON pending_activities(blocked)`,
		// Append-only telemetry logs consumed by the statistics
		// aggregator.
		`CREATE TABLE IF NOT EXISTS session_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			application TEXT NOT NULL,
			title TEXT,
			start_time TIMESTAMP NOT NULL,
			end_time TIMESTAMP NOT NULL,
			duration_seconds REAL NOT NULL,
			input_data TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_session_log_start ON session_log(start_time)`,
		`CREATE TABLE IF NOT EXISTS idle_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			start_time TIMESTAMP NOT NULL,
			end_time TIMESTAMP NOT NULL,
			duration_seconds REAL NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_idle_log_start ON idle_log(start_time)`,
		`CREATE TABLE IF NOT EXISTS input_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			period_start TIMESTAMP NOT NULL,
			period_end TIMESTAMP NOT NULL,
			stats_data TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_input_log_start ON input_log(period_start)`,
	}

	for _, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	db.logger.Info("Database migrations completed")
	return nil
}

func (db *DB) Close() error {
	if err := db.DB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	db.logger.Info("Database connection closed")
	return nil
}
