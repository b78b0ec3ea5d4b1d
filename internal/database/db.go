package database

import (
	"database/sql"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// Database represents the database connection and operations
type Database struct {
	DB *sql.DB
}

// New creates a new Database instance
func New(dsn string) (*Database, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	// Verify connection
	if err = db.Ping(); err != nil {
		return nil, err
	}

	return &Database{DB: db}, nil
}

// Init creates the required tables if they don't exist
func (d *Database) Init() error {
	createTables := `
	CREATE TABLE IF NOT EXISTS cameras (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		location TEXT NOT NULL DEFAULT '',
		source_url TEXT NOT NULL DEFAULT '0',
		status TEXT NOT NULL DEFAULT 'inactive',
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS detections (
		id BIGSERIAL PRIMARY KEY,
		camera_id BIGINT REFERENCES cameras (id),
		timestamp TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		object_class TEXT NOT NULL,
		confidence DOUBLE PRECISION NOT NULL,
		bbox_x1 INTEGER NOT NULL,
		bbox_y1 INTEGER NOT NULL,
		bbox_x2 INTEGER NOT NULL,
		bbox_y2 INTEGER NOT NULL,
		snapshot_path TEXT NOT NULL DEFAULT '',
		alert_sent BOOLEAN NOT NULL DEFAULT FALSE
	);

	CREATE TABLE IF NOT EXISTS alerts (
		id BIGSERIAL PRIMARY KEY,
		detection_id BIGINT REFERENCES detections (id),
		camera_id BIGINT REFERENCES cameras (id),
		alert_type TEXT NOT NULL,
		severity TEXT NOT NULL,
		message TEXT NOT NULL DEFAULT '',
		acknowledged BOOLEAN NOT NULL DEFAULT FALSE,
		acknowledged_by TEXT,
		acknowledged_at TIMESTAMP,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	`

	_, err := d.DB.Exec(createTables)
	return err
}

// Close closes the database connection
func (d *Database) Close() error {
	return d.DB.Close()
}
