package auditlog

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Actions recorded per processed candidate
const (
	ActionRemoved = "REMOVED" // file existed and was deleted
	ActionMissing = "MISSING" // recognized candidate, file already absent
	ActionError   = "ERROR"   // delete attempt failed
	ActionDryRun  = "DRY_RUN" // dry-run mode, would have deleted
)

// DB manages the SQLite database for upload deletion history
type DB struct {
	db *sql.DB
}

// Event is a single audit row: one recognized candidate in one GC run
type Event struct {
	ID           int64     `json:"id"`
	RunID        string    `json:"run_id"`
	Timestamp    time.Time `json:"timestamp"`
	Action       string    `json:"action"`
	URL          string    `json:"url"`
	Path         string    `json:"path"`
	FileName     string    `json:"file_name"`
	ErrorMessage string    `json:"error_message,omitempty"`
}

// Open creates a new database connection and initializes the schema
func Open(dbPath string) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
		}
	}

	// file: prefix with _loc=auto enables automatic DATETIME parsing
	db, err := sql.Open("sqlite3", "file:"+dbPath+"?_loc=auto")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A simple query instead of Ping() ensures the database file is
	// actually created on disk
	if _, err = db.Exec("SELECT 1"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database (check permissions on %s): %w", dbPath, err)
	}

	// WAL mode for better concurrency (multiple readers, one writer)
	if _, err = db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if _, err = db.Exec("PRAGMA synchronous=NORMAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set synchronous mode: %w", err)
	}

	adb := &DB{db: db}
	if err = adb.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return adb, nil
}

// initSchema creates tables and indexes if they don't exist
func (d *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		timestamp DATETIME NOT NULL,
		action TEXT NOT NULL,
		url TEXT NOT NULL,
		path TEXT NOT NULL,
		file_name TEXT,
		error_message TEXT,

		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_run_id ON events(run_id);
	CREATE INDEX IF NOT EXISTS idx_timestamp ON events(timestamp);
	CREATE INDEX IF NOT EXISTS idx_action ON events(action);
	CREATE INDEX IF NOT EXISTS idx_path ON events(path);

	-- Metadata table for schema versioning
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`

	_, err := d.db.Exec(schema)
	return err
}

// Record inserts one audit event
func (d *DB) Record(runID, action, url, path, errorMsg string) error {
	query := `
	INSERT INTO events (run_id, timestamp, action, url, path, file_name, error_message)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := d.db.Exec(
		query,
		runID,
		time.Now().UTC(),
		action,
		url,
		path,
		filepath.Base(path),
		errorMsg,
	)

	return err
}

// Close closes the database connection
func (d *DB) Close() error {
	return d.db.Close()
}
