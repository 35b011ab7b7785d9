// Package feeddb caches ingested feed snapshots in SQLite so a cold start
// can serve from disk instead of re-downloading the feed archive.
package feeddb

import (
	"database/sql"
	"fmt"
	"log"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/rprovine/oahu-transit-hub-sub001/internal/appconf"
)

// Client is the entry point for the snapshot cache.
type Client struct {
	config Config
	DB     *sql.DB
}

// NewClient opens (or creates) the cache database and ensures its schema.
func NewClient(config Config) (*Client, error) {
	db, err := createDB(config)
	if err != nil {
		return nil, fmt.Errorf("error creating snapshot cache database: %w", err)
	}

	return &Client{config: config, DB: db}, nil
}

func (c *Client) Close() error {
	return c.DB.Close()
}

func createDB(config Config) (*sql.DB, error) {
	if config.Env == appconf.Test && config.DBPath != ":memory:" {
		log.Fatal("test cache DB must use :memory:, got ", config.DBPath)
	}

	db, err := sql.Open("sqlite", config.DBPath)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		return nil, fmt.Errorf("error enabling foreign keys: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return nil, fmt.Errorf("error starting transaction: %w", err)
	}

	createTables(tx)

	_, err = tx.Exec(`
		CREATE INDEX IF NOT EXISTS idx_stops_snapshot_id ON stops(snapshot_id);
		CREATE INDEX IF NOT EXISTS idx_routes_snapshot_id ON routes(snapshot_id);
		CREATE INDEX IF NOT EXISTS idx_stop_routes_snapshot_id ON stop_routes(snapshot_id);
	`)
	if err != nil {
		tx.Rollback() // nolint:errcheck
		return nil, fmt.Errorf("error creating indexes: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("error committing transaction: %w", err)
	}

	return db, nil
}

func createTables(tx *sql.Tx) {
	createTable(tx, "snapshots", `
		CREATE TABLE IF NOT EXISTS snapshots (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ingested_at INTEGER NOT NULL,
			feed_version TEXT
		);`)

	createTable(tx, "stops", `
		CREATE TABLE IF NOT EXISTS stops (
			snapshot_id INTEGER NOT NULL REFERENCES snapshots(id) ON DELETE CASCADE,
			stop_id TEXT NOT NULL,
			stop_name TEXT,
			stop_lat REAL NOT NULL,
			stop_lon REAL NOT NULL,
			PRIMARY KEY (snapshot_id, stop_id)
		);`)

	createTable(tx, "routes", `
		CREATE TABLE IF NOT EXISTS routes (
			snapshot_id INTEGER NOT NULL REFERENCES snapshots(id) ON DELETE CASCADE,
			route_id TEXT NOT NULL,
			route_short_name TEXT,
			route_long_name TEXT,
			mode INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (snapshot_id, route_id)
		);`)

	createTable(tx, "stop_routes", `
		CREATE TABLE IF NOT EXISTS stop_routes (
			snapshot_id INTEGER NOT NULL REFERENCES snapshots(id) ON DELETE CASCADE,
			stop_id TEXT NOT NULL,
			route_id TEXT NOT NULL,
			PRIMARY KEY (snapshot_id, stop_id, route_id)
		);`)
}

func createTable(tx *sql.Tx, tableName string, createStmt string) {
	if _, err := tx.Exec(createStmt); err != nil {
		log.Fatalf("Error creating table %s: %v", tableName, err)
	}
}
